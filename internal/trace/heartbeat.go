package trace

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Heartbeat emits a liveness event at a fixed interval. Each beat names the
// number of open spans and the most recently started one, so a stuck unit
// shows up as beats without progress.
type Heartbeat struct {
	cancel context.CancelFunc
	done   sync.WaitGroup
	once   sync.Once
}

// StartHeartbeat starts beating into t. It returns nil when t is disabled or
// interval is not positive; Stop accepts nil.
func StartHeartbeat(t Tracer, interval time.Duration) *Heartbeat {
	if t == nil || !t.Enabled() || interval <= 0 {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &Heartbeat{cancel: cancel}
	h.done.Add(1)
	go func() {
		defer h.done.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for beat := 1; ; beat++ {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				t.Emit(&Event{
					Time:   now,
					Kind:   KindHeartbeat,
					Scope:  ScopeDriver,
					GID:    goroutineID(),
					Name:   "heartbeat",
					Detail: beatDetail(beat),
				})
			}
		}
	}()
	return h
}

func beatDetail(beat int) string {
	detail := fmt.Sprintf("#%d open=%d", beat, openSpans.Load())
	if last := lastSpan.Load(); last != nil {
		detail += " last=" + *last
	}
	return detail
}

// Stop ends the heartbeat and waits for its goroutine.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		h.cancel()
		h.done.Wait()
	})
}
