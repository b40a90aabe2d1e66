package imagga

import (
	"context"

	"golang.org/x/text/language"
)

// Result is the pending outcome of KeywordsAsync. It completes exactly once,
// with either the keywords or an error.
type Result struct {
	done     chan struct{}
	keywords []Keyword
	err      error
}

// KeywordsAsync starts Keywords in its own goroutine and returns immediately.
// Cancelling ctx cancels the outstanding request.
func (a *Adapter) KeywordsAsync(ctx context.Context, res Resource, locale language.Tag) *Result {
	r := &Result{done: make(chan struct{})}

	go func() {
		defer close(r.done)
		r.keywords, r.err = a.Keywords(ctx, res, locale)
	}()

	return r
}

// Done is closed once the result is available.
func (r *Result) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the result is available or ctx is done. Giving up on
// waiting does not cancel the request itself.
func (r *Result) Wait(ctx context.Context) ([]Keyword, error) {
	select {
	case <-r.done:
		return r.keywords, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
