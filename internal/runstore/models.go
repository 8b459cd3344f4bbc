package runstore

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a dubbing run.
type Status string

const (
	StatusPending      Status = "pending"
	StatusTranslating  Status = "translating"
	StatusTranslated   Status = "translated"
	StatusSynthesizing Status = "synthesizing"
	StatusSynthesized  Status = "synthesized"
	StatusAligning     Status = "aligning"
	StatusAligned      Status = "aligned"
	StatusMuxing       Status = "muxing"
	StatusMuxed        Status = "muxed"
	StatusLipsyncing   Status = "lipsyncing"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusTranslating,
	StatusTranslated,
	StatusSynthesizing,
	StatusSynthesized,
	StatusAligning,
	StatusAligned,
	StatusMuxing,
	StatusMuxed,
	StatusLipsyncing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// ParseStatus normalizes user-supplied status text.
func ParseStatus(value string) (Status, bool) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	_, ok := statusSet[status]
	return status, ok
}

// IsTerminal reports whether a run in this status will not progress further.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

var processingRollbacks = map[Status]Status{
	StatusTranslating:  StatusPending,
	StatusSynthesizing: StatusTranslated,
	StatusAligning:     StatusSynthesized,
	StatusMuxing:       StatusAligned,
	StatusLipsyncing:   StatusMuxed,
}

// IsProcessing reports whether the status marks in-flight stage work. A
// process that dies mid-stage leaves runs here; ResetStuck rolls them back
// to the preceding stable state.
func (s Status) IsProcessing() bool {
	_, ok := processingRollbacks[s]
	return ok
}

// Run is one video dubbing job and its recorded artifacts.
type Run struct {
	ID        int64
	RunID     string
	VideoPath string
	SubPath   string
	Status    Status

	SegmentsPath string
	ClipsDir     string
	AudioPath    string
	OutputPath   string
	LipsyncJobID string

	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
