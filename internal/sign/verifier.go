package sign

import (
	"fmt"
	"hash"
	"io"

	kerrors "github.com/PolarWolf314/syncany/internal/errors"
)

// VerifyReader strips and verifies the trailing signature of a stream
// produced by SignWriter.
//
// It holds back the last size bytes read from the source in a ring buffer.
// A byte is released to the caller only once a newer byte has displaced it,
// so when the source ends the ring holds exactly the signature. Released
// bytes are folded into the digest. Memory use is bounded by size plus the
// caller's read buffer.
type VerifyReader struct {
	r        io.Reader
	digest   hash.Hash
	verifier Verifier

	ring   []byte
	head   int
	primed bool

	fresh      []byte
	pendingEOF bool
	err        error
	closed     bool
}

// NewVerifyReader returns a VerifyReader for a stream whose last size bytes
// are the signature. A nil verifier skips verification.
func NewVerifyReader(r io.Reader, newHash func() hash.Hash, size int, verifier Verifier) *VerifyReader {
	if newHash == nil {
		newHash = DefaultHash
	}

	v := &VerifyReader{r: r, digest: newHash(), verifier: verifier}
	if size <= 0 {
		v.err = fmt.Errorf("invalid signature size %d", size)
		return v
	}
	v.ring = make([]byte, size)
	return v
}

// Read returns payload bytes. After the last payload byte it verifies the
// signature and returns io.EOF, or errors.ErrSignatureMismatch. Errors are
// sticky.
func (v *VerifyReader) Read(p []byte) (int, error) {
	if v.err != nil {
		return 0, v.err
	}
	if len(p) == 0 {
		return 0, nil
	}

	if !v.primed {
		if _, err := io.ReadFull(v.r, v.ring); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				err = kerrors.ErrSignatureNotPresent
			}
			v.err = err
			return 0, err
		}
		v.primed = true
	}

	if v.pendingEOF {
		v.err = v.finish()
		return 0, v.err
	}

	if cap(v.fresh) < len(p) {
		v.fresh = make([]byte, len(p))
	}
	fresh := v.fresh[:len(p)]

	n, err := v.r.Read(fresh)
	v.displace(p[:n], fresh[:n])
	v.digest.Write(p[:n])

	switch {
	case err == io.EOF && n > 0:
		v.pendingEOF = true
		return n, nil
	case err == io.EOF:
		v.err = v.finish()
		return 0, v.err
	case err != nil:
		v.err = err
		return n, err
	}
	return n, nil
}

// ReadByte reads a single payload byte through Read.
func (v *VerifyReader) ReadByte() (byte, error) {
	var b [1]byte
	for {
		n, err := v.Read(b[:])
		if n == 1 {
			return b[0], nil
		}
		if err != nil {
			return 0, err
		}
	}
}

// Close closes the source if it is an io.Closer. Further calls are no-ops.
func (v *VerifyReader) Close() error {
	if v.closed {
		return nil
	}
	v.closed = true
	if v.err == nil {
		v.err = kerrors.ErrStreamClosed
	}
	if closer, ok := v.r.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// displace pushes fresh bytes into the ring and writes the bytes they
// displace, oldest first, into out.
func (v *VerifyReader) displace(out, fresh []byte) {
	for i, b := range fresh {
		out[i] = v.ring[v.head]
		v.ring[v.head] = b
		v.head++
		if v.head == len(v.ring) {
			v.head = 0
		}
	}
}

// signature returns the ring content in stream order.
func (v *VerifyReader) signature() []byte {
	sig := make([]byte, 0, len(v.ring))
	sig = append(sig, v.ring[v.head:]...)
	return append(sig, v.ring[:v.head]...)
}

func (v *VerifyReader) finish() error {
	if v.verifier == nil || v.verifier.Verify(v.digest.Sum(nil), v.signature()) {
		return io.EOF
	}
	return kerrors.ErrSignatureMismatch
}
