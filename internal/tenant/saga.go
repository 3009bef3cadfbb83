package tenant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storedesk/internal/obs"

	"go.uber.org/zap"
)

const compensationTimeout = 10 * time.Second

// saga records the undo action of every committed step of a multi-step
// operation that spans systems without a shared transaction.
type saga struct {
	operation string
	logger    *zap.SugaredLogger
	steps     []compensation
}

type compensation struct {
	step string
	undo func(ctx context.Context) error
}

func newSaga(operation string, logger *zap.SugaredLogger) *saga {
	return &saga{operation: operation, logger: logger}
}

// done registers the undo for a step that has just committed.
func (s *saga) done(step string, undo func(ctx context.Context) error) {
	s.steps = append(s.steps, compensation{step: step, undo: undo})
}

// rollback runs every registered undo in reverse order. It keeps going past
// failures; each one is logged as an alert and counted. The returned error
// joins the undo failures and is nil when everything was rolled back.
func (s *saga) rollback(ctx context.Context, cause error) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	var failed []error
	for i := len(s.steps) - 1; i >= 0; i-- {
		c := s.steps[i]
		if err := c.undo(ctx); err != nil {
			obs.CompensationFailed(s.operation, c.step)
			s.logger.Errorw("compensation failed, manual cleanup required",
				"alert", "compensation_failed",
				"operation", s.operation,
				"step", c.step,
				"cause", cause,
				"error", err,
			)
			failed = append(failed, fmt.Errorf("undo %s: %w", c.step, err))
			continue
		}
		s.logger.Warnw("compensated step", "operation", s.operation, "step", c.step)
	}
	s.steps = nil
	return errors.Join(failed...)
}
