package core

import (
	"fmt"
	"sync/atomic"

	"pkt.systems/opsdeck/schema"
)

// jobIDs issues unique, monotonic job identifiers for the process lifetime.
type jobIDs struct {
	seq atomic.Uint64
}

func (g *jobIDs) next() schema.JobID {
	return schema.JobID(fmt.Sprintf("job-%06d", g.seq.Add(1)))
}
