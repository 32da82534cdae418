package repository

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// ViewInvalidator fans stale-view notifications out to registered listeners.
// Notifications are fire-and-forget and idempotent: telling an
// already-stale view it is stale again is a no-op for listeners.
type ViewInvalidator struct {
	mu        sync.RWMutex
	listeners []func(view string)
	log       *logrus.Logger
}

// NewViewInvalidator creates an invalidator.
func NewViewInvalidator(log *logrus.Logger) *ViewInvalidator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ViewInvalidator{log: log}
}

// Subscribe registers a listener for stale-view notifications.
func (v *ViewInvalidator) Subscribe(fn func(view string)) {
	if fn == nil {
		return
	}
	v.mu.Lock()
	v.listeners = append(v.listeners, fn)
	v.mu.Unlock()
}

// Invalidate notifies every listener about each stale view.
func (v *ViewInvalidator) Invalidate(views ...string) {
	v.mu.RLock()
	listeners := append(([]func(view string))(nil), v.listeners...)
	v.mu.RUnlock()

	for _, view := range views {
		v.log.Debugf("[invalidate] view %s is stale", view)
		for _, listener := range listeners {
			listener(view)
		}
	}
}
