package v1alpha1

// JobStatus is the server-reported state of an asynchronous validation job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status ends the job's lifecycle on the server.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job is one asynchronous citation-validation request as reported by
// GET /api/jobs/{job_id}. Results is set only when Status is completed,
// Error only when Status is failed.
type Job struct {
	ID      string                   `json:"job_id"`
	Status  JobStatus                `json:"status"`
	Results *ValidationResultPayload `json:"results,omitempty"`
	Error   string                   `json:"error,omitempty"`
}

// ValidationResultPayload is the results field of a completed job.
//
// When Partial is true the backend checked only a subset of the submitted
// citations and CitationsChecked/CitationsRemaining describe the split.
type ValidationResultPayload struct {
	Results            []CitationResult `json:"results"`
	Partial            bool             `json:"partial,omitempty"`
	CitationsChecked   int              `json:"citations_checked,omitempty"`
	CitationsRemaining int              `json:"citations_remaining,omitempty"`

	// FreeUsedTotal, when present, is the authoritative free-tier usage count
	// and overwrites the locally cached counter.
	FreeUsedTotal *int `json:"free_used_total,omitempty"`
}

// PerfectCount returns the number of citations without validation errors.
func (p *ValidationResultPayload) PerfectCount() int {
	n := 0
	for _, r := range p.Results {
		if len(r.Errors) == 0 {
			n++
		}
	}
	return n
}

// ErrorCount returns the number of citations with at least one validation error.
func (p *ValidationResultPayload) ErrorCount() int {
	return len(p.Results) - p.PerfectCount()
}

// TotalSubmitted returns the number of citations originally submitted.
// For partial payloads this is larger than len(Results).
func (p *ValidationResultPayload) TotalSubmitted() int {
	if p.Partial {
		return p.CitationsChecked + p.CitationsRemaining
	}
	return len(p.Results)
}

// CitationResult is one checked citation. CitationNumber is the 1-based
// submission ordinal, unique within a payload.
type CitationResult struct {
	CitationNumber    int               `json:"citation_number"`
	Original          string            `json:"original"`
	SourceType        string            `json:"source_type,omitempty"`
	Errors            []ValidationError `json:"errors"`
	CorrectedCitation string            `json:"corrected_citation,omitempty"`
}

// ValidationError describes a single problem found in a citation.
type ValidationError struct {
	Component  string `json:"component"`
	Problem    string `json:"problem"`
	Correction string `json:"correction,omitempty"`
}

// SubmitRequest is the body of POST /api/validate/async.
type SubmitRequest struct {
	Citations string `json:"citations"`
	Style     string `json:"style"`
}

// SubmitResponse is the 2xx body of POST /api/validate/async.
type SubmitResponse struct {
	JobID string `json:"job_id"`
}

// RevealRequest is the body of the best-effort POST /api/reveal-results.
type RevealRequest struct {
	JobID   string `json:"job_id"`
	Outcome string `json:"outcome"`
}

// CreditsResponse is the body of GET /api/credits.
type CreditsResponse struct {
	Credits    int  `json:"credits"`
	ActivePass bool `json:"active_pass"`
}
