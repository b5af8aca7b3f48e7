package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/chazu/kiln/pkg/scene"
)

// EvalTimeout is the default limit for a single evaluation.
const EvalTimeout = 5 * time.Second

// Fatal evaluation errors.
var (
	ErrTimeout    = errors.New("engine: evaluation timed out")
	ErrSuperseded = errors.New("engine: evaluation superseded by a newer one")
)

// outcome carries one evaluation's result out of its goroutine.
type outcome struct {
	prims  []*scene.Prim
	errors []EvalError
	err    error
}

func (e *Engine) timeout() time.Duration {
	if e.Timeout > 0 {
		return e.Timeout
	}
	return EvalTimeout
}

// current reports whether gen is the newest evaluation started.
func (e *Engine) current(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return gen == e.generation
}

// await blocks until evaluation gen delivers on ch or the timeout passes.
// A timed-out goroutine keeps running; its prims are never returned. A
// result that arrives after a newer evaluation began is dropped too.
func (e *Engine) await(ch <-chan outcome, gen uint64) ([]*scene.Prim, []EvalError, error) {
	d := e.timeout()
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case res := <-ch:
		if !e.current(gen) {
			return nil, nil, ErrSuperseded
		}
		return res.prims, res.errors, res.err
	case <-timer.C:
		return nil, nil, fmt.Errorf("%w after %s", ErrTimeout, d)
	}
}
