// Package archive keeps a write-only record of tournament results:
// pool standings when the group phase closes and the knockout bracket as
// it is played. Nothing is ever read back into a running session.
package archive

import (
	"context"
	"errors"
	"fmt"

	"github.com/homme-x/PES-Tournament-Manager/internal/model"
	"golang.org/x/sync/errgroup"
)

type Archive interface {
	RecordStandings(ctx context.Context, sessionID string, pools []model.Pool) error
	RecordBracket(ctx context.Context, sessionID string, matches []model.KnockoutMatch) error
	Close() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordStandings(context.Context, string, []model.Pool) error        { return nil }
func (Nop) RecordBracket(context.Context, string, []model.KnockoutMatch) error { return nil }
func (Nop) Close() error                                                       { return nil }

// Multi writes to every sink concurrently. A failing sink does not stop
// the others; the first error is returned.
type Multi struct {
	sinks []Archive
}

func NewMulti(sinks ...Archive) *Multi {
	return &Multi{sinks: sinks}
}

func (m *Multi) Len() int {
	return len(m.sinks)
}

func (m *Multi) RecordStandings(ctx context.Context, sessionID string, pools []model.Pool) error {
	return m.each(ctx, func(ctx context.Context, a Archive) error {
		return a.RecordStandings(ctx, sessionID, pools)
	})
}

func (m *Multi) RecordBracket(ctx context.Context, sessionID string, matches []model.KnockoutMatch) error {
	return m.each(ctx, func(ctx context.Context, a Archive) error {
		return a.RecordBracket(ctx, sessionID, matches)
	})
}

func (m *Multi) each(ctx context.Context, fn func(context.Context, Archive) error) error {
	var g errgroup.Group
	for _, sink := range m.sinks {
		g.Go(func() error {
			if err := fn(ctx, sink); err != nil {
				return fmt.Errorf("%T: %w", sink, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (m *Multi) Close() error {
	var errs []error
	for _, sink := range m.sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
