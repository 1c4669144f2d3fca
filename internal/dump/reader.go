package dump

import (
	"bufio"
	"fmt"
	"os"
)

// Lines below this size always fit the scanner's initial buffer; subject
// records with large score_details blobs can run far past it.
const maxLineBytes = 16 * 1024 * 1024

// Lines is a single-pass iterator over a jsonlines file. It is not
// restartable; Close releases the underlying handle.
type Lines struct {
	f    *os.File
	sc   *bufio.Scanner
	line int
}

// OpenLines opens a jsonlines file for one sequential pass.
func OpenLines(path string) (*Lines, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dump file: %w", err)
	}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	return &Lines{f: f, sc: sc}, nil
}

// Scan advances to the next line, returning false at end of file or on a
// read error (see Err).
func (l *Lines) Scan() bool {
	if l.sc.Scan() {
		l.line++
		return true
	}
	return false
}

// Text returns the current line without its trailing newline.
func (l *Lines) Text() string { return l.sc.Text() }

// LineNum returns the 1-based number of the current line.
func (l *Lines) LineNum() int { return l.line }

// Err returns the first read error encountered, if any.
func (l *Lines) Err() error { return l.sc.Err() }

// Close releases the file handle.
func (l *Lines) Close() error { return l.f.Close() }
