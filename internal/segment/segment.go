package segment

import (
	"fmt"

	"dubber/internal/services"
)

// Segment is one subtitle entry with its source-timeline slot and text.
// Segments are immutable once parsed except for attaching the translated
// text. JSON field names follow the pipeline's JSONL artifact contract.
type Segment struct {
	Index      int     `json:"index"`
	StartSec   float64 `json:"start_sec"`
	EndSec     float64 `json:"end_sec"`
	SourceText string  `json:"text_en"`
	TargetText string  `json:"text_de"`
}

// DurationSec returns the slot duration in seconds.
func (s Segment) DurationSec() float64 {
	return s.EndSec - s.StartSec
}

// ValidateSequence checks ordering and timing invariants for a parsed
// segment list. Overlaps and non-positive durations are data-quality errors,
// reported before any external call is made.
func ValidateSequence(segments []Segment) error {
	if len(segments) == 0 {
		return services.Wrap(services.ErrValidation, "segments", "", "no segments", nil)
	}
	prevIndex := 0
	prevEnd := -1.0
	prevStart := -1.0
	for _, seg := range segments {
		if seg.Index <= prevIndex {
			return services.Wrap(services.ErrValidation, "segments", "",
				fmt.Sprintf("index %d is not strictly increasing after %d", seg.Index, prevIndex), nil)
		}
		if seg.StartSec < 0 {
			return services.Wrap(services.ErrValidation, "segments", "",
				fmt.Sprintf("segment %d has negative start %.3f", seg.Index, seg.StartSec), nil)
		}
		if seg.EndSec <= seg.StartSec {
			return services.Wrap(services.ErrValidation, "segments", "",
				fmt.Sprintf("segment %d has non-positive duration (start %.3f, end %.3f)", seg.Index, seg.StartSec, seg.EndSec), nil)
		}
		if seg.StartSec < prevStart {
			return services.Wrap(services.ErrValidation, "segments", "",
				fmt.Sprintf("segment %d starts before segment %d", seg.Index, prevIndex), nil)
		}
		if prevEnd > seg.StartSec {
			return services.Wrap(services.ErrValidation, "segments", "",
				fmt.Sprintf("segment %d overlaps previous segment (previous end %.3f, start %.3f)", seg.Index, prevEnd, seg.StartSec), nil)
		}
		prevIndex = seg.Index
		prevStart = seg.StartSec
		prevEnd = seg.EndSec
	}
	return nil
}

// ClipName returns the on-disk artifact name for a segment's synthesized
// clip. The zero-padded scheme keeps lexical and index order identical.
func ClipName(index int) string {
	return fmt.Sprintf("seg_%04d.mp3", index)
}

// Indices returns the ordered index set of a segment list.
func Indices(segments []Segment) []int {
	out := make([]int, 0, len(segments))
	for _, seg := range segments {
		out = append(out, seg.Index)
	}
	return out
}
