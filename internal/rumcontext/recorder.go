package rumcontext

import (
	"sync"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/fakeyudi/rumsession/internal/rum"
)

// Recorder is a rum.ContextObserver that saves every context change to a
// Store. Unchanged contexts are not written again.
type Recorder struct {
	store  Store
	clock  clock.Clock
	logger *zap.Logger

	mu    sync.Mutex
	last  rum.Context
	saved bool
	err   error
}

var _ rum.ContextObserver = (*Recorder)(nil)

func NewRecorder(store Store, clk clock.Clock, logger *zap.Logger) *Recorder {
	return &Recorder{store: store, clock: clk, logger: logger}
}

func (r *Recorder) OnContextChanged(ctx rum.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saved && ctx == r.last {
		return
	}
	if err := r.store.Save(&Snapshot{Context: ctx, UpdatedAt: r.clock.Now()}); err != nil {
		r.logger.Warn("failed to save RUM context", zap.Error(err))
		if r.err == nil {
			r.err = err
		}
		return
	}
	r.last = ctx
	r.saved = true
}

// Err returns the first save error, if any.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
