// Package sink delivers scan results to files and remote endpoints.
package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/coal/siterisk/internal/model"
)

// ResultSink consumes finished scan results.
type ResultSink interface {
	Name() string
	Write(ctx context.Context, res *model.ScanResult) error
	Close(ctx context.Context) error
}

// Multi fans a result out to several sinks. Every sink is attempted; the
// errors of those that failed are joined.
type Multi struct {
	sinks []ResultSink
}

// NewMulti wraps sinks. Nil entries are skipped.
func NewMulti(sinks ...ResultSink) *Multi {
	m := &Multi{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Name implements ResultSink.
func (m *Multi) Name() string { return "multi" }

// Len returns the number of wrapped sinks.
func (m *Multi) Len() int { return len(m.sinks) }

// Write implements ResultSink.
func (m *Multi) Write(ctx context.Context, res *model.ScanResult) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Write(ctx, res); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Close implements ResultSink.
func (m *Multi) Close(ctx context.Context) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
