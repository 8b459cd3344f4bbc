package speaker

import (
	"errors"
	"testing"

	"dubber/internal/media/pcm"
	"dubber/internal/segment"
	"dubber/internal/services"
)

func rampSource(n, rate int) pcm.Clip {
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = float64(i) / float64(n)
	}
	return pcm.Clip{Samples: samples, SampleRate: rate}
}

func TestExtractReferenceConcatenatesQualifyingSegments(t *testing.T) {
	source := rampSource(10000, 1000)
	segments := []segment.Segment{
		{Index: 1, StartSec: 0.0, EndSec: 0.5},  // too short
		{Index: 2, StartSec: 1.0, EndSec: 3.0},  // taken
		{Index: 3, StartSec: 4.0, EndSec: 4.8},  // too short
		{Index: 4, StartSec: 5.0, EndSec: 6.5},  // taken
		{Index: 5, StartSec: 7.0, EndSec: 9.0},  // beyond cap
	}
	ref, err := ExtractReference(source, segments, Options{NumSegments: 2, MinSegmentSeconds: 1.0}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if ref.SampleRate != 1000 {
		t.Fatalf("sample rate = %d", ref.SampleRate)
	}
	if len(ref.Samples) != 2000+1500 {
		t.Fatalf("length = %d, want 3500", len(ref.Samples))
	}
	if ref.Samples[0] != source.Samples[1000] {
		t.Error("reference does not start at the first qualifying segment")
	}
	if ref.Samples[2000] != source.Samples[5000] {
		t.Error("second segment not concatenated at the expected offset")
	}
}

func TestExtractReferenceClampsToSourceEnd(t *testing.T) {
	source := rampSource(2000, 1000)
	segments := []segment.Segment{{Index: 1, StartSec: 1.0, EndSec: 5.0}}
	ref, err := ExtractReference(source, segments, Options{NumSegments: 3, MinSegmentSeconds: 1.0}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(ref.Samples) != 1000 {
		t.Fatalf("length = %d, want 1000 (clamped at source end)", len(ref.Samples))
	}
}

func TestExtractReferenceNoQualifyingSegments(t *testing.T) {
	source := rampSource(2000, 1000)
	segments := []segment.Segment{{Index: 1, StartSec: 0.0, EndSec: 0.4}}
	_, err := ExtractReference(source, segments, Options{NumSegments: 3, MinSegmentSeconds: 1.0}, nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestExtractReferenceEmptySource(t *testing.T) {
	_, err := ExtractReference(pcm.Clip{}, nil, Options{NumSegments: 1}, nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}
