package loader

import "fmt"

// Stats tallies the outcome of one ProcessFile run. It lives in memory for
// the duration of the run and is logged at the end; nothing persists it.
type Stats struct {
	TotalRead int
	Inserted  int
	Updated   int
	Skipped   int
	Failed    int
}

func (s Stats) String() string {
	return fmt.Sprintf("read=%d inserted=%d updated=%d skipped=%d failed=%d",
		s.TotalRead, s.Inserted, s.Updated, s.Skipped, s.Failed)
}
