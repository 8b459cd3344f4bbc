package segment

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WriteJSONL writes segments as newline-delimited JSON, one record per line,
// ordered by index. The file is written to a temp path and renamed so a
// failed write never leaves a truncated artifact.
func WriteJSONL(path string, segments []Segment) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure artifact directory: %w", err)
	}
	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}
	writer := bufio.NewWriter(file)
	for _, seg := range segments {
		line, err := json.Marshal(seg)
		if err != nil {
			file.Close()
			_ = os.Remove(tmp)
			return fmt.Errorf("marshal segment %d: %w", seg.Index, err)
		}
		if _, err := writer.Write(append(line, '\n')); err != nil {
			file.Close()
			_ = os.Remove(tmp)
			return fmt.Errorf("write segment %d: %w", seg.Index, err)
		}
	}
	if err := writer.Flush(); err != nil {
		file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("flush artifact: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close artifact: %w", err)
	}
	return os.Rename(tmp, path)
}

// ReadJSONL loads segments from a newline-delimited JSON artifact. Blank
// lines are skipped.
func ReadJSONL(path string) ([]Segment, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	defer file.Close()

	var segments []Segment
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var seg Segment
		if err := json.Unmarshal([]byte(line), &seg); err != nil {
			return nil, fmt.Errorf("parse artifact line %d: %w", lineNo, err)
		}
		segments = append(segments, seg)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return segments, nil
}
