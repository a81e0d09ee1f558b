// Package entropy turns a captured frame into a digest: the frame bytes are
// combined with a millisecond time nonce and hashed with a named algorithm.
package entropy

import (
	"context"
	"crypto"
	_ "crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	_ "golang.org/x/crypto/blake2b"
	_ "golang.org/x/crypto/sha3"
)

// DefaultAlgorithm is used when no algorithm is configured.
const DefaultAlgorithm = "sha256"

// ErrDigestUnsupported is returned for an unknown algorithm name or a hash
// that is not linked into the binary. No other algorithm is substituted.
var ErrDigestUnsupported = errors.New("entropy: digest algorithm unsupported")

var registry = map[string]crypto.Hash{
	"sha256":      crypto.SHA256,
	"sha3-256":    crypto.SHA3_256,
	"blake2b-256": crypto.BLAKE2b_256,
}

// Digester hashes a snapshot together with its capture time.
type Digester interface {
	Digest(ctx context.Context, snapshot []byte, ts time.Time) (string, error)
}

// Nonce is the decimal millisecond timestamp.
func Nonce(ts time.Time) []byte {
	return strconv.AppendInt(nil, ts.UnixMilli(), 10)
}

// Combine appends the nonce to a copy of the snapshot.
func Combine(snapshot []byte, ts time.Time) []byte {
	buf := make([]byte, 0, len(snapshot)+20)
	buf = append(buf, snapshot...)
	return append(buf, Nonce(ts)...)
}

// Engine is a Digester over one registered hash.
// Identical snapshots captured in the same millisecond digest identically.
type Engine struct {
	name string
	hash crypto.Hash
}

func NewEngine(name string) (*Engine, error) {
	if name == "" {
		name = DefaultAlgorithm
	}
	h, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrDigestUnsupported, name)
	}
	if !h.Available() {
		return nil, fmt.Errorf("%w: %q not linked into binary", ErrDigestUnsupported, name)
	}
	return &Engine{name: name, hash: h}, nil
}

func (e *Engine) Name() string { return e.name }

// Digest returns the lowercase hex digest of snapshot ++ Nonce(ts). Hashing
// runs on its own goroutine; if ctx ends first the result is discarded and
// ctx.Err() returned.
func (e *Engine) Digest(ctx context.Context, snapshot []byte, ts time.Time) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	done := make(chan string, 1)
	go func() {
		h := e.hash.New()
		h.Write(snapshot)
		h.Write(Nonce(ts))
		done <- hex.EncodeToString(h.Sum(nil))
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case sum := <-done:
		return sum, nil
	}
}

// Algorithm describes a registry entry.
type Algorithm struct {
	Name      string
	Size      int
	Available bool
	Default   bool
}

// Algorithms lists the registry in name order.
func Algorithms() []Algorithm {
	out := make([]Algorithm, 0, len(registry))
	for name, h := range registry {
		a := Algorithm{Name: name, Available: h.Available(), Default: name == DefaultAlgorithm}
		if a.Available {
			a.Size = h.Size()
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
