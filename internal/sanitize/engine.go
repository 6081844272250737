// Package sanitize turns untrusted SVG into markup that is safe to embed, or
// rejects it with a reason.
//
// An Engine runs a fixed pipeline for every document: size check, textual
// pre-pass, strict parse, structural filter, serialization and a final
// content-signature scan over the serialized result. Text input that does
// not contain an svg element is escaped instead of parsed.
//
// Engines are immutable after New and safe for concurrent use.
package sanitize

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/odysseus0/svgsafe/internal/filter"
	"github.com/odysseus0/svgsafe/internal/rules"
	"github.com/odysseus0/svgsafe/internal/scan"
)

// Engine sanitizes documents against one rule table and one set of limits.
type Engine struct {
	table        *rules.Table
	limits       rules.Limits
	scanner      *scan.Scanner
	removeRemote bool
	logger       zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger attaches a logger. Stage outcomes are logged at debug level and
// rejections at info.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithRemoteReferences controls whether references to resources outside the
// document are kept. They are removed by default.
func WithRemoteReferences(allow bool) Option {
	return func(e *Engine) {
		e.removeRemote = !allow
	}
}

// New builds an Engine. A nil table means rules.Default().
func New(table *rules.Table, limits rules.Limits, opts ...Option) (*Engine, error) {
	if table == nil {
		table = rules.Default()
	}
	if err := limits.Validate(); err != nil {
		return nil, fmt.Errorf("new engine: %w", err)
	}
	e := &Engine{
		table:        table,
		limits:       limits,
		removeRemote: true,
		logger:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.scanner = scan.New(table, e.removeRemote)
	return e, nil
}

// Default returns an Engine with the built-in rules and limits.
func Default() *Engine {
	e, err := New(rules.Default(), rules.DefaultLimits())
	if err != nil {
		panic(err)
	}
	return e
}

// Rules returns the engine's rule table.
func (e *Engine) Rules() *rules.Table {
	return e.table
}

// Limits returns the engine's size limits.
func (e *Engine) Limits() rules.Limits {
	return e.limits
}

// RemovesRemoteReferences reports whether external references are stripped.
func (e *Engine) RemovesRemoteReferences() bool {
	return e.removeRemote
}

func (e *Engine) filterOptions() filter.Options {
	opts := filter.Options{RemoveRemoteReferences: e.removeRemote}
	if e.logger.GetLevel() <= zerolog.DebugLevel {
		opts.OnRemove = func(r filter.Removal) {
			e.logger.Debug().
				Str("kind", string(r.Kind)).
				Str("tag", r.Tag).
				Str("attribute", r.Attribute).
				Str("reason", r.Reason).
				Msg("removed")
		}
	}
	return opts
}

func (e *Engine) rejected(mode string, rej *RejectError) error {
	ev := e.logger.Info().Str("mode", mode).Str("reason", string(rej.Reason))
	if rej.Signature != "" {
		ev = ev.Str("signature", rej.Signature)
	}
	ev.Msg("input rejected")
	return rej
}
