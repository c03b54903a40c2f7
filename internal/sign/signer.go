package sign

import (
	"crypto/ed25519"
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"
	"io"

	kerrors "github.com/PolarWolf314/syncany/internal/errors"
)

// Ed25519SignatureSize is the size of the trailer appended by an Ed25519 signer.
const Ed25519SignatureSize = ed25519.SignatureSize

// DefaultHash is the digest used for signed streams.
var DefaultHash = sha256.New

// Signer signs a stream digest.
type Signer interface {
	Sign(digest []byte) ([]byte, error)
}

// Verifier checks a signature against a stream digest.
type Verifier interface {
	Verify(digest, signature []byte) bool
}

// Ed25519 signs with Private and verifies with Public. Either half may be nil:
// signing without a private key fails, verifying without a public key is
// skipped and always succeeds.
type Ed25519 struct {
	Private ed25519.PrivateKey
	Public  ed25519.PublicKey
}

func (k Ed25519) Sign(digest []byte) ([]byte, error) {
	if k.Private == nil {
		return nil, kerrors.ErrNoSigningKey
	}
	if len(k.Private) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: private key must be %d bytes", kerrors.ErrMissingKeyMaterial, ed25519.PrivateKeySize)
	}
	return ed25519.Sign(k.Private, digest), nil
}

func (k Ed25519) Verify(digest, signature []byte) bool {
	if k.Public == nil {
		return true
	}
	if len(k.Public) != ed25519.PublicKeySize || len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(k.Public, digest, signature)
}

// SignWriter forwards every byte to the wrapped writer unchanged and appends
// a signature over their digest on Close.
type SignWriter struct {
	w      io.WriteCloser
	digest hash.Hash
	signer Signer
	closed bool
}

// NewSignWriter returns a SignWriter writing to w.
func NewSignWriter(w io.WriteCloser, newHash func() hash.Hash, signer Signer) *SignWriter {
	if newHash == nil {
		newHash = DefaultHash
	}
	return &SignWriter{w: w, digest: newHash(), signer: signer}
}

func (s *SignWriter) Write(p []byte) (int, error) {
	if s.closed {
		return 0, kerrors.ErrStreamClosed
	}

	n, err := s.w.Write(p)
	s.digest.Write(p[:n])
	return n, err
}

// Close signs the digest, writes the signature and closes the wrapped
// writer. The wrapped writer is closed even if signing fails.
func (s *SignWriter) Close() error {
	if s.closed {
		return kerrors.ErrStreamClosed
	}
	s.closed = true

	if s.signer == nil {
		return errors.Join(kerrors.ErrNoSigningKey, s.w.Close())
	}

	signature, err := s.signer.Sign(s.digest.Sum(nil))
	if err != nil {
		return errors.Join(err, s.w.Close())
	}
	if _, err := s.w.Write(signature); err != nil {
		return errors.Join(fmt.Errorf("write signature: %w", err), s.w.Close())
	}
	return s.w.Close()
}
