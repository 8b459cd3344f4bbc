package subtitles

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"dubber/internal/segment"
	"dubber/internal/services"
)

// ParseSRT reads an SRT file into ordered timed segments and validates the
// sequence invariants before anything downstream runs.
func ParseSRT(path string) ([]segment.Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read srt: %w", err)
	}
	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	content = strings.TrimPrefix(content, "\ufeff")
	blocks := strings.Split(strings.TrimSpace(content), "\n\n")

	segments := make([]segment.Segment, 0, len(blocks))
	for _, block := range blocks {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		seg, err := parseBlock(block)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "subtitles", "parse", err.Error(), nil)
		}
		segments = append(segments, seg)
	}

	if err := segment.ValidateSequence(segments); err != nil {
		return nil, err
	}
	return segments, nil
}

func parseBlock(block string) (segment.Segment, error) {
	lines := strings.Split(block, "\n")
	if len(lines) < 2 {
		return segment.Segment{}, fmt.Errorf("malformed cue %q", firstLine(block))
	}
	index, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil {
		return segment.Segment{}, fmt.Errorf("invalid cue index %q", lines[0])
	}
	start, end, err := parseTimecodeLine(lines[1])
	if err != nil {
		return segment.Segment{}, fmt.Errorf("cue %d: %w", index, err)
	}
	text := strings.TrimSpace(strings.Join(lines[2:], "\n"))
	return segment.Segment{
		Index:      index,
		StartSec:   start,
		EndSec:     end,
		SourceText: text,
	}, nil
}

func parseTimecodeLine(line string) (float64, float64, error) {
	parts := strings.Split(line, "-->")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid timecode line %q", line)
	}
	start, err := parseTimestamp(parts[0])
	if err != nil {
		return 0, 0, err
	}
	end, err := parseTimestamp(parts[1])
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

func parseTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	// SRT uses a comma for milliseconds; tolerate a period.
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}

// ComposeSRT renders segments back to SRT text. When useTarget is set the
// translated text is emitted, producing the target-language subtitle file.
func ComposeSRT(segments []segment.Segment, useTarget bool) string {
	var builder strings.Builder
	for i, seg := range segments {
		if i > 0 {
			builder.WriteString("\n")
		}
		text := seg.SourceText
		if useTarget {
			text = seg.TargetText
		}
		builder.WriteString(strconv.Itoa(seg.Index))
		builder.WriteString("\n")
		builder.WriteString(formatTimestamp(seg.StartSec))
		builder.WriteString(" --> ")
		builder.WriteString(formatTimestamp(seg.EndSec))
		builder.WriteString("\n")
		builder.WriteString(text)
		builder.WriteString("\n")
	}
	return builder.String()
}

func formatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	totalMillis := int(seconds*1000 + 0.5)
	hours := totalMillis / 3600000
	totalMillis -= hours * 3600000
	minutes := totalMillis / 60000
	totalMillis -= minutes * 60000
	secs := totalMillis / 1000
	millis := totalMillis % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

func firstLine(block string) string {
	if idx := strings.IndexByte(block, '\n'); idx >= 0 {
		return block[:idx]
	}
	return block
}
