package ui

import (
	"context"
	"fmt"
	"sync"

	ssmerrors "github.com/sourcli/ssm/internal/errors"
	"github.com/sourcli/ssm/internal/logger"
	"github.com/sourcli/ssm/internal/model"
	"github.com/sourcli/ssm/internal/view"
)

// Renderer owns the terminal frame lifecycle. The surface is held only for
// the duration of one Render call; a frame is fully composed before the
// surface is touched, so a failure never leaves half a frame on screen.
type Renderer struct {
	surface Surface
	opts    view.Options
	log     logger.Logger

	mu     sync.Mutex
	opened bool
	closed bool
}

// NewRenderer creates a renderer drawing onto s.
func NewRenderer(s Surface, opts view.Options, log logger.Logger) *Renderer {
	if log == nil {
		log = logger.Noop()
	}
	return &Renderer{surface: s, opts: opts, log: log}
}

// Start acquires the terminal (alt screen, hidden cursor).
func (r *Renderer) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.opened {
		return nil
	}
	if err := r.surface.Open(); err != nil {
		return ssmerrors.Render(err)
	}
	r.opened = true
	return nil
}

// Present formats a report and draws it.
func (r *Renderer) Present(_ context.Context, rep model.Report) error {
	return r.Render(view.Build(rep, r.opts))
}

// Render draws one complete frame. Any failure restores the terminal before
// returning a RENDER error.
func (r *Renderer) Render(f view.Frame) (err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ssmerrors.Render(ErrSurfaceClosed)
	}

	defer func() {
		if p := recover(); p != nil {
			err = ssmerrors.Render(fmt.Errorf("panic while drawing: %v", p))
		}
		if err != nil {
			r.log.Error("render failed, restoring terminal: %v", err)
			r.restoreLocked()
		}
	}()

	width, _ := r.surface.Size()
	content := Compose(f, width)

	if err := r.surface.Draw(content); err != nil {
		return ssmerrors.Render(err)
	}
	return nil
}

// Close releases the terminal. Safe to call more than once.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.restoreLocked()
}

func (r *Renderer) restoreLocked() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if err := r.surface.Close(); err != nil {
		return ssmerrors.Render(err)
	}
	return nil
}
