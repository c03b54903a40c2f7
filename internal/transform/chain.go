package transform

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/PolarWolf314/syncany/internal/crypto"
	kerrors "github.com/PolarWolf314/syncany/internal/errors"
)

// Stage types as they appear in repository files.
const (
	TypeGzip   = "gzip"
	TypeZstd   = "zstd"
	TypeCipher = "cipher"
	TypeSign   = "ed25519-sign"
)

// Descriptor names a stage and its settings.
type Descriptor struct {
	Type     string            `toml:"type"`
	Settings map[string]string `toml:"settings,omitempty"`
}

// Keys is the key material available to stage factories.
type Keys struct {
	// MasterKey is required by the cipher stage. Its signing key, if any,
	// is used by the sign stage.
	MasterKey *crypto.MasterKey

	// VerifyKey is the repository's verification key. If nil, the sign
	// stage falls back to the master key's public half, and skips
	// verification if there is none.
	VerifyKey ed25519.PublicKey
}

// Stage wraps streams in one direction each. Stages are immutable; a fresh
// wrapper is created per stream.
type Stage interface {
	Type() string
	WrapWriter(w io.WriteCloser) (io.WriteCloser, error)
	WrapReader(r io.Reader) (io.ReadCloser, error)
	String() string
}

// Factory builds an initialized stage from its settings.
type Factory func(settings map[string]string, keys Keys) (Stage, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[string]Factory{
		TypeGzip:   newGzipStage,
		TypeZstd:   newZstdStage,
		TypeCipher: newCipherStage,
		TypeSign:   newSignStage,
	}
)

// Register adds or replaces the factory for a stage type. It is safe to call
// while chains are being built.
func Register(typ string, factory Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[typ] = factory
}

func lookupFactory(typ string) (Factory, bool) {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	factory, ok := factories[typ]
	return factory, ok
}

// Types returns the registered stage types, sorted.
func Types() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	types := make([]string, 0, len(factories))
	for typ := range factories {
		types = append(types, typ)
	}
	sort.Strings(types)
	return types
}

// DefaultDescriptors returns the stages of a new repository: compression,
// then the given cipher suite if any, then signing if the key can sign.
func DefaultDescriptors(suite crypto.CipherSuite, key *crypto.MasterKey) []Descriptor {
	descs := []Descriptor{{Type: TypeGzip}}
	if len(suite) > 0 {
		descs = append(descs, Descriptor{Type: TypeCipher, Settings: map[string]string{SettingCipherSpecs: suite.String()}})
	}
	if key != nil && key.HasWriteAccess() {
		descs = append(descs, Descriptor{Type: TypeSign})
	}
	return descs
}

// Chain is an ordered list of stages. The first stage is the one callers
// write to and read from; the last stage touches the raw sink or source.
type Chain struct {
	stages []Stage
}

// NewChain returns a chain of already built stages.
func NewChain(stages ...Stage) *Chain {
	return &Chain{stages: stages}
}

// Build resolves every descriptor against the registered factories.
func Build(descs []Descriptor, keys Keys) (*Chain, error) {
	stages := make([]Stage, 0, len(descs))
	for i, desc := range descs {
		factory, ok := lookupFactory(desc.Type)
		if !ok {
			return nil, fmt.Errorf("%w: %q", kerrors.ErrUnknownTransformer, desc.Type)
		}

		stage, err := factory(desc.Settings, keys)
		if err != nil {
			return nil, fmt.Errorf("stage %d (%s): %w", i, desc.Type, err)
		}
		stages = append(stages, stage)
	}
	return &Chain{stages: stages}, nil
}

// Stages returns the stages in chain order.
func (c *Chain) Stages() []Stage {
	return append([]Stage(nil), c.stages...)
}

// Encode wraps sink so that bytes written to the result pass through every
// stage, first to last. Closing the result closes sink. On error the caller
// still owns sink.
func (c *Chain) Encode(sink io.WriteCloser) (io.WriteCloser, error) {
	w := sink
	for i := len(c.stages) - 1; i >= 0; i-- {
		wrapped, err := c.stages[i].WrapWriter(w)
		if err != nil {
			return nil, fmt.Errorf("wrap %s: %w", c.stages[i], err)
		}
		w = wrapped
	}
	return w, nil
}

// Decode wraps src in the reverse nesting of Encode. Closing the result
// closes src if it is an io.Closer.
func (c *Chain) Decode(src io.Reader) (io.ReadCloser, error) {
	var r io.ReadCloser
	if rc, ok := src.(io.ReadCloser); ok {
		r = rc
	} else {
		r = io.NopCloser(src)
	}

	for i := len(c.stages) - 1; i >= 0; i-- {
		wrapped, err := c.stages[i].WrapReader(r)
		if err != nil {
			return nil, fmt.Errorf("wrap %s: %w", c.stages[i], err)
		}
		r = wrapped
	}
	return r, nil
}

// EncodeBytes runs data through the chain into memory.
func (c *Chain) EncodeBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := c.Encode(nopWriteCloser{&buf})
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, errors.Join(err, w.Close())
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeBytes reverses EncodeBytes.
func (c *Chain) DecodeBytes(data []byte) ([]byte, error) {
	r, err := c.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	out, err := io.ReadAll(r)
	return out, errors.Join(err, r.Close())
}

func (c *Chain) String() string {
	if len(c.stages) == 0 {
		return "None"
	}
	names := make([]string, len(c.stages))
	for i, stage := range c.stages {
		names[i] = stage.String()
	}
	return strings.Join(names, "-")
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// writeCloser closes the stage writer, then the writer it wraps.
type writeCloser struct {
	io.Writer
	closeFn func() error
	next    io.Closer
	closed  bool
}

func (w *writeCloser) Write(p []byte) (int, error) {
	if w.closed {
		return 0, kerrors.ErrStreamClosed
	}
	return w.Writer.Write(p)
}

func (w *writeCloser) Close() error {
	if w.closed {
		return kerrors.ErrStreamClosed
	}
	w.closed = true
	return errors.Join(w.closeFn(), w.next.Close())
}

// readCloser closes the stage reader, then the reader it wraps.
type readCloser struct {
	io.Reader
	closeFn func() error
	next    io.Closer
	closed  bool
}

func (r *readCloser) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	var err error
	if r.closeFn != nil {
		err = r.closeFn()
	}
	if r.next != nil {
		err = errors.Join(err, r.next.Close())
	}
	return err
}

func closerOf(r io.Reader) io.Closer {
	if c, ok := r.(io.Closer); ok {
		return c
	}
	return nil
}
