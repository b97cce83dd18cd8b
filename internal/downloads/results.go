package downloads

type StartStatus int

const (
	Started StartStatus = iota
	Queued
	RejectedBundled
	RejectedDownloaded
	RejectedNoLocator
	RejectedActive
	RejectedQueued
	RejectedMetered
	RejectedClosed
)

var startStatusNames = map[StartStatus]string{
	Started:            "started",
	Queued:             "queued",
	RejectedBundled:    "bundled",
	RejectedDownloaded: "already_downloaded",
	RejectedNoLocator:  "no_locator",
	RejectedActive:     "already_downloading",
	RejectedQueued:     "already_queued",
	RejectedMetered:    "metered_network",
	RejectedClosed:     "closed",
}

func (s StartStatus) String() string {
	if name, ok := startStatusNames[s]; ok {
		return name
	}
	return "unknown"
}

// StartResult is the outcome of DownloadCourse.
type StartResult struct {
	Status  StartStatus
	Message string
}

// Accepted is true when the course was started or queued.
func (r StartResult) Accepted() bool {
	return r.Status == Started || r.Status == Queued
}

// CancelResult tells apart an unknown course, a queued course that was
// dropped and an active transfer that was stopped.
type CancelResult int

const (
	CancelNotFound CancelResult = iota
	RemovedFromQueue
	CancelledActive
)

// Found is true only when an active transfer was cancelled.
func (r CancelResult) Found() bool {
	return r == CancelledActive
}

func (r CancelResult) String() string {
	switch r {
	case RemovedFromQueue:
		return "removed_from_queue"
	case CancelledActive:
		return "cancelled"
	default:
		return "not_found"
	}
}
