package align

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dubber/internal/media/pcm"
	"dubber/internal/segment"
	"dubber/internal/services"
)

// ClipDecoder converts a synthesized clip on disk to mono WAV at the given
// sample rate. Satisfied by the ffmpeg tool.
type ClipDecoder interface {
	DecodeClip(ctx context.Context, inputPath, outputPath string, sampleRate int) error
}

// LoadClips reads the synthesized clip for each segment from clipDir,
// decoding through dec into scratchDir, and returns them keyed by segment
// index. Segments without a clip file are simply absent from the map; the
// caller decides whether that is acceptable.
func LoadClips(ctx context.Context, dec ClipDecoder, clipDir, scratchDir string, segments []segment.Segment, sampleRate int, logger *slog.Logger) (map[int]pcm.Clip, error) {
	if err := os.MkdirAll(scratchDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrMediaTool, "align", "load clips", "create scratch directory", err)
	}
	clips := make(map[int]pcm.Clip, len(segments))
	for _, seg := range segments {
		src := filepath.Join(clipDir, segment.ClipName(seg.Index))
		info, err := os.Stat(src)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, services.Wrap(services.ErrMediaTool, "align", "load clips",
				fmt.Sprintf("stat clip for segment %d", seg.Index), err)
		}
		// Synthesis writes a zero-byte clip for empty target text. There
		// is nothing to decode; the slot stays silent.
		if info.Size() == 0 {
			if logger != nil {
				logger.Warn("empty clip, slot will be silent",
					slog.Int("segment", seg.Index),
					slog.String("path", src))
			}
			continue
		}
		dst := filepath.Join(scratchDir, fmt.Sprintf("seg_%04d.wav", seg.Index))
		if err := dec.DecodeClip(ctx, src, dst, sampleRate); err != nil {
			return nil, services.Wrap(services.ErrMediaTool, "align", "load clips",
				fmt.Sprintf("decode clip for segment %d", seg.Index), err)
		}
		clip, err := pcm.LoadWAV(dst)
		if err != nil {
			return nil, services.Wrap(services.ErrMediaTool, "align", "load clips",
				fmt.Sprintf("read decoded clip for segment %d", seg.Index), err)
		}
		clips[seg.Index] = clip
	}
	if logger != nil {
		logger.Debug("loaded synthesized clips",
			slog.Int("segments", len(segments)),
			slog.Int("clips", len(clips)))
	}
	return clips, nil
}
