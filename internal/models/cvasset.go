package models

type ProcessingStatus string

const (
	StatusNone        ProcessingStatus = "none"
	StatusUploaded    ProcessingStatus = "uploaded"
	StatusAnonymizing ProcessingStatus = "anonymizing"
	StatusCompleted   ProcessingStatus = "completed"
	StatusError       ProcessingStatus = "error"
)

func (s ProcessingStatus) Valid() bool {
	switch s {
	case StatusNone, StatusUploaded, StatusAnonymizing, StatusCompleted, StatusError:
		return true
	}
	return false
}

func (s ProcessingStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// predecessors lists, for each status, the statuses an attempt may move from.
var predecessors = map[ProcessingStatus][]ProcessingStatus{
	StatusAnonymizing: {StatusUploaded},
	StatusCompleted:   {StatusAnonymizing},
	StatusError:       {StatusUploaded, StatusAnonymizing},
}

// Predecessors returns the statuses from which to is reachable within one attempt.
// StatusUploaded has none: it always starts a fresh attempt.
func Predecessors(to ProcessingStatus) []ProcessingStatus {
	return predecessors[to]
}

func CanTransition(from, to ProcessingStatus) bool {
	for _, p := range predecessors[to] {
		if p == from {
			return true
		}
	}
	return false
}

// CVAsset is the CV part of a proposal.
type CVAsset struct {
	OriginalURL   string           `json:"original_url,omitempty"`
	AnonymizedURL *string          `json:"anonymized_url"`
	Status        ProcessingStatus `json:"processing_status"`
	AttemptID     string           `json:"attempt_id,omitempty"`
}

// CVStatusEvent is published on every status change of an attempt.
type CVStatusEvent struct {
	Type          string           `json:"type"` // always "cv_status"
	ProposalID    string           `json:"proposal_id"`
	AttemptID     string           `json:"attempt_id"`
	Status        ProcessingStatus `json:"status"`
	AnonymizedURL *string          `json:"anonymized_url,omitempty"`
	Message       string           `json:"message,omitempty"`
	Timestamp     int64            `json:"ts_unix"`
}
