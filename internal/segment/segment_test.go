package segment_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"dubber/internal/segment"
	"dubber/internal/services"
)

func validSequence() []segment.Segment {
	return []segment.Segment{
		{Index: 1, StartSec: 0.5, EndSec: 2.0, SourceText: "Hello."},
		{Index: 2, StartSec: 2.0, EndSec: 4.5, SourceText: "Welcome back."},
		{Index: 3, StartSec: 5.0, EndSec: 7.25, SourceText: "Goodbye."},
	}
}

func TestValidateSequenceAccepts(t *testing.T) {
	if err := segment.ValidateSequence(validSequence()); err != nil {
		t.Fatalf("valid sequence rejected: %v", err)
	}
}

func TestValidateSequenceRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]segment.Segment) []segment.Segment
	}{
		{"empty", func(s []segment.Segment) []segment.Segment { return nil }},
		{"duplicate index", func(s []segment.Segment) []segment.Segment {
			s[1].Index = 1
			return s
		}},
		{"zero duration", func(s []segment.Segment) []segment.Segment {
			s[1].EndSec = s[1].StartSec
			return s
		}},
		{"end before start", func(s []segment.Segment) []segment.Segment {
			s[2].EndSec = s[2].StartSec - 1
			return s
		}},
		{"overlap", func(s []segment.Segment) []segment.Segment {
			s[1].StartSec = 1.5
			return s
		}},
		{"negative start", func(s []segment.Segment) []segment.Segment {
			s[0].StartSec = -0.1
			return s
		}},
		{"start regression", func(s []segment.Segment) []segment.Segment {
			s[2].StartSec = 1.0
			s[2].EndSec = 1.5
			return s
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := segment.ValidateSequence(tt.mutate(validSequence()))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestJSONLRoundTrip(t *testing.T) {
	segs := validSequence()
	segs[0].TargetText = "Hallo."
	segs[1].TargetText = "Willkommen zurück."
	segs[2].TargetText = "Auf Wiedersehen."

	path := filepath.Join(t.TempDir(), "translations.jsonl")
	if err := segment.WriteJSONL(path, segs); err != nil {
		t.Fatalf("WriteJSONL: %v", err)
	}

	loaded, err := segment.ReadJSONL(path)
	if err != nil {
		t.Fatalf("ReadJSONL: %v", err)
	}
	if len(loaded) != len(segs) {
		t.Fatalf("segment count = %d, want %d", len(loaded), len(segs))
	}
	for i, seg := range loaded {
		if seg != segs[i] {
			t.Errorf("segment %d = %+v, want %+v", i, seg, segs[i])
		}
	}

	gotIdx := segment.Indices(loaded)
	wantIdx := segment.Indices(segs)
	for i := range wantIdx {
		if gotIdx[i] != wantIdx[i] {
			t.Fatalf("index set changed: got %v, want %v", gotIdx, wantIdx)
		}
	}
}

func TestReadJSONLSkipsBlankLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sparse.jsonl")
	content := "\n{\"index\":1,\"start_sec\":0,\"end_sec\":1,\"text_en\":\"Hi\",\"text_de\":\"\"}\n\n" +
		"{\"index\":2,\"start_sec\":1,\"end_sec\":2,\"text_en\":\"Bye\",\"text_de\":\"\"}\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	segs, err := segment.ReadJSONL(path)
	if err != nil {
		t.Fatalf("ReadJSONL: %v", err)
	}
	if len(segs) != 2 {
		t.Fatalf("segment count = %d, want 2", len(segs))
	}
}
