package domain

// IngestionStatus is the terminal state of one ingestion attempt. Every
// call to the coordinator ends in exactly one of these.
type IngestionStatus int

const (
	StatusCommitted IngestionStatus = iota
	StatusDuplicateIgnored
	StatusRejected
)

func (s IngestionStatus) String() string {
	switch s {
	case StatusCommitted:
		return "committed"
	case StatusDuplicateIgnored:
		return "duplicate_ignored"
	default:
		return "rejected"
	}
}

// RejectReason explains a StatusRejected result.
type RejectReason string

const (
	ReasonNone                 RejectReason = ""
	ReasonBannedParticipant    RejectReason = "banned_participant"
	ReasonSelfMatch            RejectReason = "self_match"
	ReasonInvalidTimestamps    RejectReason = "invalid_timestamps"
	ReasonUnresolvableIdentity RejectReason = "unresolvable_identity"
	ReasonStorageTimeout       RejectReason = "storage_timeout"
)

// IngestionResult is returned for every report. NewRatings is populated
// only for StatusCommitted; Hash is set whenever the report got far enough
// to be content-addressed, so callers can correlate duplicates.
type IngestionResult struct {
	Status     IngestionStatus
	Reason     RejectReason
	Hash       string
	ProfileID0 string
	ProfileID1 string
	NewRating0 int
	NewRating1 int
}
