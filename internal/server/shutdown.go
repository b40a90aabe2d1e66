package server

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog/log"
)

type hook struct {
	name string
	fn   func(context.Context) error
}

// ShutdownHooks releases the process's resources when the server stops.
// Hooks run in reverse order of registration: a resource registered early,
// like the telemetry providers, is released after everything registered
// later that may still use it. A failing hook does not stop the others.
type ShutdownHooks struct {
	hooks []hook
}

// Add registers a hook that receives the shutdown context, which carries the
// shutdown deadline. A nil hook is ignored.
func (s *ShutdownHooks) Add(name string, fn func(context.Context) error) {
	if fn == nil {
		log.Warn().Str("hook", name).Msg("ignoring nil shutdown hook")
		return
	}

	log.Debug().Str("hook", name).Msg("adding shutdown hook")
	s.hooks = append(s.hooks, hook{name: name, fn: fn})
}

// AddCloser registers closer.Close as a hook. A nil closer is ignored.
func (s *ShutdownHooks) AddCloser(name string, closer io.Closer) {
	if closer == nil {
		log.Warn().Str("hook", name).Msg("ignoring nil shutdown hook")
		return
	}

	s.Add(name, func(context.Context) error {
		return closer.Close()
	})
}

// Execute runs every hook and returns the joined errors of those that failed.
func (s *ShutdownHooks) Execute(ctx context.Context) error {
	var errs []error

	for i := len(s.hooks) - 1; i >= 0; i-- {
		h := s.hooks[i]
		hookLog := log.Ctx(ctx).With().Str("hook", h.name).Logger()

		start := time.Now()
		if err := h.fn(ctx); err != nil {
			hookLog.Warn().Err(err).Dur("duration", time.Since(start)).Msg("shutdown failed")
			errs = append(errs, err)
			continue
		}

		hookLog.Info().Dur("duration", time.Since(start)).Msg("shutdown complete")
	}

	return errors.Join(errs...)
}
