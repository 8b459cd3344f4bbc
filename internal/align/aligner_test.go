package align

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"dubber/internal/media/pcm"
	"dubber/internal/segment"
	"dubber/internal/services"
)

func testOptions() Options {
	return Options{
		SampleRate:   1000,
		ToleranceRel: 0.1,
		StretchMin:   0.7,
		StretchMax:   1.3,
	}
}

func constClip(n int, value float64, rate int) pcm.Clip {
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = value
	}
	return pcm.Clip{Samples: samples, SampleRate: rate}
}

func TestRenderTwoSegments(t *testing.T) {
	a, err := New(testOptions(), nil)
	if err != nil {
		t.Fatal(err)
	}
	segments := []segment.Segment{
		{Index: 1, StartSec: 0.0, EndSec: 4.0},
		{Index: 2, StartSec: 4.0, EndSec: 7.0},
	}
	clips := map[int]pcm.Clip{
		1: constClip(3900, 0.5, 1000),
		2: constClip(4500, 0.5, 1000),
	}
	out, err := a.Render(segments, clips, 10.0)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Samples) != 10000 {
		t.Fatalf("output length = %d, want 10000", len(out.Samples))
	}

	// Segment 1 is within the ±10% band: copied verbatim, padded with
	// silence to the slot boundary.
	for i := 0; i < 3900; i++ {
		if out.Samples[i] != 0.5 {
			t.Fatalf("sample %d = %v, want 0.5 (no scaling inside tolerance)", i, out.Samples[i])
		}
	}
	for i := 3900; i < 4000; i++ {
		if out.Samples[i] != 0 {
			t.Fatalf("sample %d = %v, want silence padding", i, out.Samples[i])
		}
	}

	// Segment 2 needed stretching; its slot must carry signal.
	for i := 4500; i < 6500; i++ {
		if math.Abs(out.Samples[i]) < 0.01 {
			t.Fatalf("sample %d = %v, want stretched speech in slot", i, out.Samples[i])
		}
	}

	// After the last slot the track is silent.
	for i := 7000; i < 10000; i++ {
		if out.Samples[i] != 0 {
			t.Fatalf("sample %d = %v, want trailing silence", i, out.Samples[i])
		}
	}
}

func TestFitClampsStretchRate(t *testing.T) {
	a, err := New(testOptions(), nil)
	if err != nil {
		t.Fatal(err)
	}
	// Clip is half the slot duration, so the unclamped rate would be 0.5.
	// Clamped to 0.7 the stretched clip covers about 2143 samples and the
	// remainder of the slot must be padded silence.
	clip := make([]float64, 1500)
	for i := range clip {
		clip[i] = math.Sin(2 * math.Pi * 100 * float64(i) / 1000)
	}
	fitted := a.fit(Slot{Index: 1, StartSample: 0, EndSample: 3000}, clip)
	if len(fitted) != 3000 {
		t.Fatalf("fitted length = %d, want 3000", len(fitted))
	}
	for i := 2200; i < 3000; i++ {
		if fitted[i] != 0 {
			t.Fatalf("sample %d = %v, want silence past clamped stretch", i, fitted[i])
		}
	}
	var energy float64
	for i := 0; i < 2000; i++ {
		energy += fitted[i] * fitted[i]
	}
	if energy < 1 {
		t.Fatalf("stretched region has almost no signal (energy %v)", energy)
	}
}

func TestRenderExactClipIsIdentity(t *testing.T) {
	a, err := New(testOptions(), nil)
	if err != nil {
		t.Fatal(err)
	}
	samples := make([]float64, 2000)
	for i := range samples {
		samples[i] = float64(i%100) / 200
	}
	segments := []segment.Segment{{Index: 1, StartSec: 1.0, EndSec: 3.0}}
	clips := map[int]pcm.Clip{1: {Samples: samples, SampleRate: 1000}}

	first, err := a.Render(segments, clips, 4.0)
	if err != nil {
		t.Fatal(err)
	}
	again, err := a.Render(segments, map[int]pcm.Clip{1: {Samples: first.Samples[1000:3000], SampleRate: 1000}}, 4.0)
	if err != nil {
		t.Fatal(err)
	}
	for i := range first.Samples {
		if first.Samples[i] != again.Samples[i] {
			t.Fatalf("sample %d changed on re-alignment: %v != %v", i, first.Samples[i], again.Samples[i])
		}
	}
	for i := 1000; i < 3000; i++ {
		if first.Samples[i] != samples[i-1000] {
			t.Fatalf("sample %d = %v, want verbatim clip copy", i, first.Samples[i])
		}
	}
}

func TestRenderMissingClipLeavesSilence(t *testing.T) {
	a, err := New(testOptions(), nil)
	if err != nil {
		t.Fatal(err)
	}
	segments := []segment.Segment{{Index: 1, StartSec: 0.5, EndSec: 1.5}}
	out, err := a.Render(segments, nil, 2.0)
	if err != nil {
		t.Fatal(err)
	}
	for i, s := range out.Samples {
		if s != 0 {
			t.Fatalf("sample %d = %v, want silence for missing clip", i, s)
		}
	}
}

func TestRenderLaterSegmentWinsOverlap(t *testing.T) {
	a, err := New(testOptions(), nil)
	if err != nil {
		t.Fatal(err)
	}
	segments := []segment.Segment{
		{Index: 1, StartSec: 0.0, EndSec: 2.0},
		{Index: 2, StartSec: 1.0, EndSec: 3.0},
	}
	clips := map[int]pcm.Clip{
		1: constClip(2000, 0.25, 1000),
		2: constClip(2000, 0.5, 1000),
	}
	out, err := a.Render(segments, clips, 3.0)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 1000; i++ {
		if out.Samples[i] != 0.25 {
			t.Fatalf("sample %d = %v, want first segment", i, out.Samples[i])
		}
	}
	for i := 1000; i < 3000; i++ {
		if out.Samples[i] != 0.5 {
			t.Fatalf("sample %d = %v, want later segment to win overlap", i, out.Samples[i])
		}
	}
}

func TestRenderRejectsZeroDurationSlot(t *testing.T) {
	a, err := New(testOptions(), nil)
	if err != nil {
		t.Fatal(err)
	}
	segments := []segment.Segment{{Index: 1, StartSec: 2.0, EndSec: 2.0}}
	if _, err := a.Render(segments, nil, 4.0); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestRenderRejectsSampleRateMismatch(t *testing.T) {
	a, err := New(testOptions(), nil)
	if err != nil {
		t.Fatal(err)
	}
	segments := []segment.Segment{{Index: 1, StartSec: 0.0, EndSec: 1.0}}
	clips := map[int]pcm.Clip{1: constClip(1000, 0.5, 22050)}
	if _, err := a.Render(segments, clips, 2.0); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestNewRejectsBadOptions(t *testing.T) {
	cases := []struct {
		name string
		opts Options
	}{
		{"zero sample rate", Options{SampleRate: 0, StretchMin: 0.7, StretchMax: 1.3}},
		{"inverted stretch bounds", Options{SampleRate: 16000, StretchMin: 1.3, StretchMax: 0.7}},
		{"negative tolerance", Options{SampleRate: 16000, ToleranceRel: -0.1, StretchMin: 0.7, StretchMax: 1.3}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.opts, nil); !errors.Is(err, services.ErrConfiguration) {
				t.Fatalf("err = %v, want configuration error", err)
			}
		})
	}
}

func TestTimeStretchLength(t *testing.T) {
	samples := make([]float64, 8000)
	for i := range samples {
		samples[i] = math.Sin(2 * math.Pi * 220 * float64(i) / 16000)
	}
	cases := []struct {
		rate float64
		want int
	}{
		{1.0, 8000},
		{1.3, 6154},
		{0.7, 11429},
		{2.0, 4000},
	}
	for _, tc := range cases {
		got := timeStretch(samples, tc.rate)
		if len(got) != tc.want {
			t.Errorf("timeStretch(rate=%v) length = %d, want %d", tc.rate, len(got), tc.want)
		}
	}
}

func TestTimeStretchShortClipFallback(t *testing.T) {
	samples := []float64{0, 0.5, 1, 0.5, 0, -0.5, -1, -0.5}
	got := timeStretch(samples, 0.5)
	if len(got) != 16 {
		t.Fatalf("length = %d, want 16", len(got))
	}
}

type fakeDecoder struct {
	rate int
}

func (d fakeDecoder) DecodeClip(_ context.Context, inputPath, outputPath string, sampleRate int) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return err
	}
	samples := make([]float64, len(data)*10)
	for i := range samples {
		samples[i] = 0.1
	}
	return pcm.SaveWAV(outputPath, pcm.Clip{Samples: samples, SampleRate: sampleRate})
}

func TestLoadClipsSkipsMissingFiles(t *testing.T) {
	clipDir := t.TempDir()
	scratch := filepath.Join(t.TempDir(), "decoded")
	if err := os.WriteFile(filepath.Join(clipDir, segment.ClipName(1)), []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	segments := []segment.Segment{
		{Index: 1, StartSec: 0, EndSec: 1},
		{Index: 2, StartSec: 1, EndSec: 2},
	}
	clips, err := LoadClips(context.Background(), fakeDecoder{}, clipDir, scratch, segments, 1000, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(clips) != 1 {
		t.Fatalf("loaded %d clips, want 1", len(clips))
	}
	clip, ok := clips[1]
	if !ok {
		t.Fatal("clip for segment 1 missing")
	}
	if clip.SampleRate != 1000 {
		t.Fatalf("sample rate = %d, want 1000", clip.SampleRate)
	}
	if len(clip.Samples) == 0 {
		t.Fatal("decoded clip is empty")
	}
}

// failOnEmptyDecoder mirrors ffmpeg, which exits non-zero when handed a
// zero-byte input file.
type failOnEmptyDecoder struct {
	fakeDecoder
}

func (d failOnEmptyDecoder) DecodeClip(ctx context.Context, inputPath, outputPath string, sampleRate int) error {
	info, err := os.Stat(inputPath)
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return errors.New("exit status 1: invalid data found when processing input")
	}
	return d.fakeDecoder.DecodeClip(ctx, inputPath, outputPath, sampleRate)
}

func TestLoadClipsSkipsEmptyClipFiles(t *testing.T) {
	clipDir := t.TempDir()
	scratch := filepath.Join(t.TempDir(), "decoded")
	// Empty target text leaves a zero-byte clip behind.
	if err := os.WriteFile(filepath.Join(clipDir, segment.ClipName(1)), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(clipDir, segment.ClipName(2)), []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	segments := []segment.Segment{
		{Index: 1, StartSec: 0, EndSec: 1},
		{Index: 2, StartSec: 1, EndSec: 2},
	}
	clips, err := LoadClips(context.Background(), failOnEmptyDecoder{}, clipDir, scratch, segments, 1000, nil)
	if err != nil {
		t.Fatalf("empty clip file should be skipped, got %v", err)
	}
	if _, ok := clips[1]; ok {
		t.Fatal("empty clip should be absent from the result")
	}
	if _, ok := clips[2]; !ok {
		t.Fatal("clip for segment 2 missing")
	}
}
