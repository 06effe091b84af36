package feed

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
)

// FileSource reads JSONL-encoded events from a file, one envelope per line.
// Blank lines are skipped. The file is expected to already be in canonical
// order; callers that need the guarantee run ValidateOrdering over the result.
type FileSource struct {
	f       *os.File
	scanner *bufio.Scanner
	line    int
}

// NewFileSource opens a JSONL event file.
func NewFileSource(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open event file: %w", err)
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &FileSource{f: f, scanner: scanner}, nil
}

// Next returns the next event or io.EOF at end of file.
func (s *FileSource) Next(ctx context.Context) (*Event, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return nil, fmt.Errorf("read event file: %w", err)
			}
			return nil, io.EOF
		}
		s.line++
		line := s.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		ev, err := DecodeEvent(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", s.line, err)
		}
		return ev, nil
	}
}

// Close closes the underlying file.
func (s *FileSource) Close() error {
	return s.f.Close()
}

var _ Source = (*FileSource)(nil)
