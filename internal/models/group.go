package models

// GroupJoinNotification carries the full membership snapshot of a group.
type GroupJoinNotification struct {
	GroupID      string   `json:"group_id"`
	GroupName    string   `json:"group_name"`
	Participants []string `json:"participants"`
	CreatedBy    string   `json:"created_by"`
}

// GroupLeaveNotification announces that Member left GroupID.
type GroupLeaveNotification struct {
	GroupID string `json:"group_id"`
	Member  string `json:"member"`
}

// Ack is the reply to every notification-style peer call.
type Ack struct {
	OK bool `json:"ok"`
}

// RemoteFileRequest asks a peer for the bytes of one of its files.
type RemoteFileRequest struct {
	FileID string `json:"file_id"`
}

// RemoteFileResponse carries the file bytes back.
type RemoteFileResponse struct {
	Data []byte `json:"data"`
}

// Peer operation names exposed to remote nodes.
const (
	OpReceiveMessage   = "ReceiveMessage"
	OpHandleGroupJoin  = "HandleGroupJoin"
	OpHandleGroupLeave = "HandleGroupLeave"
	OpGetRemoteFile    = "GetRemoteFile"
)
