package v1alpha1

// StringToJobStatus maps a server-reported status string to a JobStatus.
// Unknown values are treated as pending so the caller keeps polling rather
// than inventing a terminal state the server never reported.
func StringToJobStatus(s string) JobStatus {
	switch s {
	case string(JobStatusPending):
		return JobStatusPending
	case string(JobStatusProcessing):
		return JobStatusProcessing
	case string(JobStatusCompleted):
		return JobStatusCompleted
	case string(JobStatusFailed):
		return JobStatusFailed
	default:
		return JobStatusPending
	}
}
