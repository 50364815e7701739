package simulation

import (
	"time"

	"github.com/google/uuid"

	"github.com/peter-kozarec/strategytester/pkg/tools/metrics"
)

type Result struct {
	RunID      uuid.UUID        `json:"run_id"`
	Ticks      int              `json:"ticks"`
	Blown      bool             `json:"blown"`
	Samples    []metrics.Sample `json:"samples"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
}

// LastSample returns the final sample, taken after tear down.
func (r Result) LastSample() (metrics.Sample, bool) {
	if len(r.Samples) == 0 {
		return metrics.Sample{}, false
	}
	return r.Samples[len(r.Samples)-1], true
}
