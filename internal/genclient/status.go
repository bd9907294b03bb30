package genclient

// StatusValue is the server-reported lifecycle state of a generation task.
type StatusValue string

const (
	StatusQueued     StatusValue = "queued"
	StatusProcessing StatusValue = "processing"
	StatusCompleted  StatusValue = "completed"
	StatusFailed     StatusValue = "failed"
	// StatusUnknown covers any server state this client does not recognize;
	// it is polled like processing for forward compatibility.
	StatusUnknown StatusValue = "unknown"
)

// ParseStatus maps a wire status string onto a StatusValue.
func ParseStatus(s string) StatusValue {
	switch StatusValue(s) {
	case StatusQueued, StatusProcessing, StatusCompleted, StatusFailed:
		return StatusValue(s)
	default:
		return StatusUnknown
	}
}

// StatusSnapshot is the result of one status poll. It is produced fresh on
// every poll and not retained beyond deciding the next transition.
type StatusSnapshot struct {
	Status          StatusValue
	ProgressMessage string
	Result          *Result
	Error           string
}

// Terminal reports whether no further polling transition follows this status.
func (s StatusValue) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}
