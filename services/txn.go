package services

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Step is one write of a multi-document unit of work. Undo reverses Do and is only
// called when the unit runs without a database transaction and a later step failed.
type Step struct {
	Name string
	Do   func(ctx context.Context) error
	Undo func(ctx context.Context) error
}

// Transactor runs steps as one logical unit
type Transactor interface {
	Run(ctx context.Context, steps ...Step) error
}

const undoTimeout = 5 * time.Second

// Compensator runs steps in order and, when one fails, undoes the completed steps in
// reverse order. An undo that fails leaves drift behind for the reconciler.
type Compensator struct {
	logger *zap.Logger
}

func NewCompensator(logger *zap.Logger) *Compensator {
	return &Compensator{logger: logger.Named("unit")}
}

func (c *Compensator) Run(ctx context.Context, steps ...Step) error {
	done := make([]Step, 0, len(steps))
	for _, s := range steps {
		if err := s.Do(ctx); err != nil {
			c.rollback(ctx, done, s.Name, err)
			return err
		}
		done = append(done, s)
	}
	return nil
}

func (c *Compensator) rollback(ctx context.Context, done []Step, failed string, cause error) {
	if len(done) == 0 {
		return
	}
	// the request context may already be cancelled
	uctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), undoTimeout)
	defer cancel()

	for i := len(done) - 1; i >= 0; i-- {
		s := done[i]
		if s.Undo == nil {
			continue
		}
		if err := s.Undo(uctx); err != nil {
			c.logger.Error("undo failed, reconcile required",
				zap.String("step", s.Name),
				zap.String("failedStep", failed),
				zap.NamedError("cause", cause),
				zap.Error(err))
		}
	}
	c.logger.Warn("unit rolled back", zap.String("failedStep", failed), zap.Error(cause))
}
