package models

// Replication statuses reported after a fan-out.
const (
	ReplicationLocal   = "local"
	ReplicationSynced  = "synced"
	ReplicationPartial = "partial"
	ReplicationFailed  = "failed"
)

// PeerFailure records one outbound call that did not succeed.
type PeerFailure struct {
	Peer  string `json:"peer"`
	Error string `json:"error"`
}

// ReplicationReport describes what happened to the outbound copies of a
// locally persisted change.
type ReplicationReport struct {
	Attempted int           `json:"attempted"`
	Delivered []string      `json:"delivered"`
	Failed    []PeerFailure `json:"failed"`
}

// Status summarises the report.
func (r ReplicationReport) Status() string {
	switch {
	case r.Attempted == 0:
		return ReplicationLocal
	case len(r.Failed) == 0:
		return ReplicationSynced
	case len(r.Delivered) == 0:
		return ReplicationFailed
	default:
		return ReplicationPartial
	}
}

// SendReceipt is returned by a local send.
type SendReceipt struct {
	Message     ChatMessage       `json:"message"`
	Replication ReplicationReport `json:"replication"`
}

// GroupReceipt is returned by local group operations.
type GroupReceipt struct {
	GroupID     string            `json:"group_id"`
	Replication ReplicationReport `json:"replication"`
}
