package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/labforge/synthrig/pkg/logging"
	"github.com/labforge/synthrig/pkg/metrics"
	"github.com/labforge/synthrig/pkg/steps"
)

// Runner executes prepared command lists sequentially against one device.
type Runner struct {
	Device  steps.Device
	Logger  logging.Logger
	Metrics *metrics.Registry
}

// NewRunner returns a Runner with a no-op logger and the default metrics
// registry.
func NewRunner(dev steps.Device) *Runner {
	return &Runner{
		Device:  dev,
		Logger:  logging.NewNopLogger(),
		Metrics: metrics.DefaultRegistry(),
	}
}

// Run executes every command in order, stopping at the first device error
// or context cancellation. The failed command's kind and full property set
// go into the returned error; the device is left exactly where the failure
// happened, so the operator can see the state the error message describes.
func (r *Runner) Run(ctx context.Context, prep *Prepared) error {
	r.Logger.Info("run started",
		logging.Component("runner"),
		logging.RunID(prep.RunID),
		logging.Count(len(prep.Commands)))

	for i, cmd := range prep.Commands {
		if err := ctx.Err(); err != nil {
			return &PrepError{
				Stage: "execute",
				Step:  cmd.Kind().String(),
				Msg:   fmt.Sprintf("cancelled before command %d", i),
				Cause: err,
			}
		}

		kind := cmd.Kind().String()
		start := time.Now()
		err := cmd.Execute(r.Device)
		elapsed := time.Since(start)

		if r.Metrics != nil {
			status := "ok"
			if err != nil {
				status = "error"
			}
			r.Metrics.RecordCommand(kind, status, elapsed)
		}
		if err != nil {
			r.Logger.Error("command failed",
				logging.Component("runner"),
				logging.RunID(prep.RunID),
				logging.StepKind(kind),
				logging.Int("index", i),
				logging.Error(err))
			return &PrepError{
				Stage: "execute",
				Step:  kind,
				Msg:   fmt.Sprintf("command %d of %d: %+v", i, len(prep.Commands), cmd),
				Cause: err,
			}
		}
		r.Logger.Debug("command executed",
			logging.Component("runner"),
			logging.StepKind(kind),
			logging.Int("index", i),
			logging.Latency(elapsed))
	}

	r.Logger.Info("run finished",
		logging.Component("runner"),
		logging.RunID(prep.RunID))
	return nil
}
