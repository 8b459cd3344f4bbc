package align

import (
	"fmt"
	"math"

	"dubber/internal/segment"
	"dubber/internal/services"
)

// Slot is the sample-index range in the output track reserved for one
// segment.
type Slot struct {
	Index       int
	StartSample int
	EndSample   int
}

// Len returns the slot duration in samples.
func (s Slot) Len() int {
	return s.EndSample - s.StartSample
}

// slotsForSegments converts segment timings to sample ranges at the target
// rate and rejects malformed slots before any clip is touched.
func slotsForSegments(segments []segment.Segment, sampleRate int) ([]Slot, error) {
	slots := make([]Slot, 0, len(segments))
	for _, seg := range segments {
		start := int(math.Round(seg.StartSec * float64(sampleRate)))
		end := int(math.Round(seg.EndSec * float64(sampleRate)))
		if end <= start {
			return nil, services.Wrap(services.ErrValidation, "align", "slots",
				fmt.Sprintf("segment %d has non-positive slot duration (start %.3f, end %.3f)", seg.Index, seg.StartSec, seg.EndSec), nil)
		}
		slots = append(slots, Slot{Index: seg.Index, StartSample: start, EndSample: end})
	}
	return slots, nil
}
