package arena

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/outofforest/logger"
	"github.com/outofforest/sigma/types"
)

// Checkpoint captures the state of the arena so changes done after it may be discarded.
// Blocks existing before checkpoint must not be modified until it is closed.
type Checkpoint struct {
	arena      *Arena
	size       int
	references int
	depth      int
}

// Checkpoint opens new checkpoint. Checkpoints are closed in reverse order.
func (a *Arena) Checkpoint() Checkpoint {
	a.depth++
	return Checkpoint{
		arena:      a,
		size:       a.size,
		references: a.refs.length,
		depth:      a.depth,
	}
}

// Depth returns the number of open checkpoints.
func (a *Arena) Depth() int {
	return a.depth
}

// Rollback discards changes done since checkpoint was opened. Nested checkpoints are closed too.
func (c Checkpoint) Rollback() {
	a := c.arena
	if a.depth < c.depth {
		panic("checkpoint has been already closed")
	}
	if a.size < c.size {
		panic(errors.Errorf("arena shrank below checkpoint: %d < %d", a.size, c.size))
	}
	a.FlushFromBlock(c.size)
	a.refs.truncate(c.references)
	a.depth = c.depth - 1
}

// Commit closes checkpoint keeping the changes.
func (c Checkpoint) Commit() {
	if c.arena.depth != c.depth {
		panic("checkpoints must be closed in reverse order")
	}
	c.arena.depth--
}

// Run executes fn and discards its changes if it fails.
func (a *Arena) Run(fn func() error) error {
	cp := a.Checkpoint()
	if err := fn(); err != nil {
		cp.Rollback()
		return err
	}
	cp.Commit()
	return nil
}

// Execute runs action under checkpoint. If action runs out of space or overflows integer, relax is asked to adjust
// the environment and action is retried. Error is returned once relax refuses.
func Execute(ctx context.Context, a *Arena, action func() error, relax func(err error) bool) error {
	log := logger.Get(ctx)
	for attempt := 1; ; attempt++ {
		err := a.Run(action)
		if err == nil {
			return nil
		}
		if !Relaxable(err) || relax == nil || !relax(err) {
			return err
		}
		log.Debug("Action failed, retrying", zap.Int("attempt", attempt), zap.Error(err))
	}
}

// Relaxable returns true if error might disappear after retrying with relaxed constraints.
func Relaxable(err error) bool {
	return errors.Is(err, types.ErrCapacityExceeded) || errors.Is(err, types.ErrIntegerOverflow)
}
