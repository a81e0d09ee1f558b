// Package pipeline wires a capture source to the digest and formatter and
// records each completed derivation.
//
// Stages run in a fixed order: snapshot, nonce, digest, format, log. A
// failure at any stage stops the derivation and nothing is recorded; in
// particular a source that cannot produce a frame means no digest is
// computed.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/lavarand/internal/capture"
	"github.com/san-kum/lavarand/internal/entropy"
	"github.com/san-kum/lavarand/internal/history"
	"github.com/san-kum/lavarand/internal/keygen"
)

const previewLen = 10

// Derivation is the digest of one snapshot and its formatted output.
type Derivation struct {
	DigestHex string
	Output    string
}

// DeriveKey digests snapshot with the nonce for ts and formats the result.
func DeriveKey(ctx context.Context, d entropy.Digester, snapshot []byte, ts time.Time, req keygen.Request) (Derivation, error) {
	h, err := d.Digest(ctx, snapshot, ts)
	if err != nil {
		return Derivation{}, fmt.Errorf("digest: %w", err)
	}
	out, err := keygen.Format(h, req)
	if err != nil {
		return Derivation{}, fmt.Errorf("format: %w", err)
	}
	return Derivation{DigestHex: h, Output: out}, nil
}

// Preview is the head of a digest as shown in the capture log.
func Preview(digest string) string {
	if len(digest) <= previewLen {
		return digest
	}
	return digest[:previewLen] + "..."
}

type Option func(*Pipeline)

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

func WithIDGenerator(gen func() (string, error)) Option {
	return func(p *Pipeline) { p.newID = gen }
}

// Pipeline runs derivations against any capture source. It is safe for
// concurrent use; the log insert is the only shared write.
type Pipeline struct {
	digester entropy.Digester
	log      *history.Log
	now      func() time.Time
	newID    func() (string, error)
	logger   *slog.Logger
}

func New(d entropy.Digester, log *history.Log, opts ...Option) *Pipeline {
	p := &Pipeline{
		digester: d,
		log:      log,
		now:      time.Now,
		newID:    newV7,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func newV7() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func (p *Pipeline) Log() *history.Log { return p.log }

// Derive captures a frame from src and turns it into a recorded output.
func (p *Pipeline) Derive(ctx context.Context, src capture.Source, req keygen.Request) (history.Record, error) {
	if err := req.Validate(); err != nil {
		return history.Record{}, err
	}

	snap, err := src.Snapshot()
	if err != nil {
		p.logger.Debug("derive skipped", "kind", req.Kind.String(), "error", err)
		return history.Record{}, fmt.Errorf("snapshot: %w", err)
	}

	ts := p.now()
	d, err := DeriveKey(ctx, p.digester, snap.Pix, ts, req)
	if err != nil {
		return history.Record{}, err
	}

	id, err := p.newID()
	if err != nil {
		return history.Record{}, fmt.Errorf("record id: %w", err)
	}

	rec := history.Record{
		ID:          id,
		Timestamp:   ts,
		SeedPreview: Preview(d.DigestHex),
		Key:         d.Output,
		Kind:        req.Kind,
	}
	p.log.Push(rec)

	p.logger.Debug("derived",
		"kind", req.Kind.String(),
		"source", snap.Source,
		"frame", fmt.Sprintf("%dx%d", snap.Width, snap.Height),
		"seed", rec.SeedPreview)
	return rec, nil
}
