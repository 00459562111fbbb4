// Package navigation carries full-page navigations requested by the session
// core out to whichever front end is driving it.
package navigation

import (
	"context"
	"sync"
)

// Navigator performs a full-page navigation. A forced navigation abandons
// whatever the caller was doing; callers must not try to continue past it.
type Navigator interface {
	Redirect(ctx context.Context, to string, replace bool)
}

// Redirect is a requested navigation.
type Redirect struct {
	To      string
	Replace bool
}

// Recorder keeps the first redirect requested during one inbound request.
// Later requests are ignored, so repeated evictions collapse into a single
// externally visible redirect.
type Recorder struct {
	mu      sync.Mutex
	pending *Redirect
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Redirect records the navigation unless one is already pending.
func (r *Recorder) Redirect(_ context.Context, to string, replace bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending != nil {
		return
	}
	r.pending = &Redirect{To: to, Replace: replace}
}

// Pending returns the recorded redirect, if any.
func (r *Recorder) Pending() (Redirect, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending == nil {
		return Redirect{}, false
	}
	return *r.pending, true
}

// Func adapts a function to the Navigator interface.
type Func func(ctx context.Context, to string, replace bool)

func (f Func) Redirect(ctx context.Context, to string, replace bool) {
	f(ctx, to, replace)
}
