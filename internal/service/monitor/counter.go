package monitor

import (
	"fmt"
	"time"
)

// Counter numbers persisted violator crops within one run. It starts at zero
// and only ever increases.
type Counter struct {
	n int
}

// Next increments the counter and returns the new value.
func (c *Counter) Next() int {
	c.n++
	return c.n
}

func (c *Counter) Value() int {
	return c.n
}

// Namer builds crop filenames of the form <Prefix>violator_<seq>.jpg.
type Namer struct {
	Prefix string
}

func (n Namer) Name(seq int) string {
	return fmt.Sprintf("%sviolator_%d.jpg", n.Prefix, seq)
}

// QualifiedLayout is the time layout of QualifiedNamer prefixes.
const QualifiedLayout = "20060102-150405"

// QualifiedNamer prefixes crop names with the run start time so that runs
// do not overwrite each other's crops.
func QualifiedNamer(start time.Time) Namer {
	return Namer{Prefix: start.Format(QualifiedLayout) + "_"}
}
