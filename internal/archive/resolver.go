package archive

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoDumpDate is returned when a revision message carries no dump date.
// The revision cannot be dated, so it cannot be loaded; callers skip it.
var ErrNoDumpDate = errors.New("no dump date in revision message")

// Archive commits are titled after the dump they import, e.g.
// "dump-2025-09-02.210328Z.zip".
var dumpDatePattern = regexp.MustCompile(`dump-(\d{4}-\d{2}-\d{2})\.`)

// DumpDate extracts the snapshot date (YYYY-MM-DD) from a revision message.
func DumpDate(message string) (string, error) {
	m := dumpDatePattern.FindStringSubmatch(message)
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrNoDumpDate, strings.TrimSpace(message))
	}
	return m[1], nil
}
