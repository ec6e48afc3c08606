package apperrors

var (
	ErrEmptyContent         = Validation("message content cannot be empty")
	ErrInvalidRecipient     = Validation("invalid recipient address format (e.g. 'username.os')")
	ErrSelfRecipient        = Validation("cannot send a direct message to yourself")
	ErrEmptyGroupName       = Validation("group name cannot be empty")
	ErrTooFewParticipants   = Validation("group must have at least 2 participants")
	ErrInvalidMember        = Validation("invalid member address")
	ErrInvalidGroupID       = Validation("invalid group id")
	ErrInvalidFileID        = Validation("invalid file id")
	ErrEmptyFileName        = Validation("file name cannot be empty")
	ErrInvalidMessage       = Validation("message is missing id or sender")
	ErrNotMember            = Validation("local node is not a member of this group")
	ErrAlreadyMember        = AlreadyExists("member already in group")
	ErrConversationNotFound = NotFound("conversation not found")
	ErrGroupNotFound        = NotFound("group not found")
	ErrNotAGroup            = NotFound("not a group conversation")
	ErrFileNotFound         = NotFound("file not found")
	ErrNodeIdentity         = New(KindInternal, "node identity not initialized")
)
