package events

const (
	SubmissionMessageKind string = "citecheck.events.submission"
	JobFailedMessageKind  string = "citecheck.events.job_failed"
	RevealMessageKind     string = "citecheck.events.reveal"
	defaultTopic          string = "citecheck.events"

	// failure messages are truncated before logging to keep citation text
	// out of the analytics stream
	maxFailureMessageLen = 120
)

// SubmissionEvent is emitted when a validation job is created.
type SubmissionEvent struct {
	JobID         string `json:"job_id"`
	Style         string `json:"style"`
	CitationCount int    `json:"citation_count"`
	FreeTier      bool   `json:"free_tier"`
}

// JobFailedEvent is emitted when the backend reports a failed job.
type JobFailedEvent struct {
	JobID   string `json:"job_id"`
	Message string `json:"message"`
}

// RevealEvent is emitted when a gated result set is revealed.
type RevealEvent struct {
	JobID               string `json:"job_id"`
	Outcome             string `json:"outcome"`
	TimeToRevealSeconds int64  `json:"time_to_reveal_seconds"`
}

// TruncateFailureMessage trims a backend failure message for analytics use.
func TruncateFailureMessage(msg string) string {
	if len(msg) <= maxFailureMessageLen {
		return msg
	}
	return msg[:maxFailureMessageLen]
}
