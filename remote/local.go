package remote

import (
	"context"
)

// LocalExecutor runs snapshot operations in-process. It is the loopback
// peer: useful for tests and for treating the local host uniformly with
// remote ones.
type LocalExecutor struct {
	name string
}

// NewLocalExecutor creates a loopback executor with the given peer name.
func NewLocalExecutor(name string) *LocalExecutor {
	if name == "" {
		name = "local"
	}
	return &LocalExecutor{name: name}
}

// Name implements Executor.Name.
func (l *LocalExecutor) Name() string {
	return l.name
}

// Call implements Executor.Call. The operation runs in its own goroutine so
// that an external cancellation surfaces immediately instead of waiting for
// the operation to notice.
func (l *LocalExecutor) Call(ctx context.Context, fn SnapshotFunc) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type outcome struct {
		snap map[string]string
		err  error
	}

	done := make(chan outcome, 1)
	go func() {
		snap, err := fn(ctx)
		done <- outcome{snap: snap, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case out := <-done:
		return out.snap, out.err
	}
}
