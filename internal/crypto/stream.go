package crypto

import (
	"bufio"
	"bytes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"

	kerrors "github.com/PolarWolf314/syncany/internal/errors"
)

const (
	// ChunkSize is the plaintext chunk size of every cipher layer (64 KB).
	ChunkSize = 64 * 1024

	// streamVersion is the current encrypted stream format version.
	streamVersion = 1

	// layerSaltSize is the size of the per-layer HKDF salt in the header.
	layerSaltSize = 12

	// lastChunkFlag is set on bit 63 of the counter for the final chunk to prevent truncation.
	lastChunkFlag = uint64(1) << 63
)

// streamMagic identifies an encrypted stream.
var streamMagic = []byte{'S', 'y', 0x02, 0x05}

// layer holds everything needed to seal or open one cipher layer.
type layer struct {
	spec      CipherSpec
	aead      cipher.AEAD
	baseNonce []byte
}

// NewEncryptWriter returns a writer that encrypts everything written to it
// with the cascade described by suite and writes the result to w.
//
// The header is written to w immediately. Close must be called to emit the
// final chunk of every layer; it also closes w if w is an io.Closer.
func NewEncryptWriter(w io.Writer, suite CipherSuite, key *MasterKey) (io.WriteCloser, error) {
	if len(suite) == 0 {
		return nil, kerrors.ErrEmptyCipherSuite
	}
	if key == nil {
		return nil, fmt.Errorf("%w: master key", kerrors.ErrMissingKeyMaterial)
	}
	if len(suite) > 255 {
		return nil, fmt.Errorf("cipher suite too long: %d specs", len(suite))
	}

	header := bytes.NewBuffer(nil)
	header.Write(streamMagic)
	header.WriteByte(streamVersion)
	header.WriteByte(byte(len(suite)))

	layers := make([]layer, len(suite))
	for i, spec := range suite {
		salt := make([]byte, layerSaltSize)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return nil, fmt.Errorf("generate layer salt: %w", err)
		}
		nonce := make([]byte, spec.NonceSize)
		if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
			return nil, fmt.Errorf("generate nonce: %w", err)
		}

		aead, err := layerAEAD(spec, key, salt)
		if err != nil {
			return nil, err
		}

		header.WriteByte(byte(spec.ID))
		header.Write(salt)
		header.Write(nonce)
		layers[i] = layer{spec: spec, aead: aead, baseNonce: nonce}
	}

	aad := header.Bytes()
	if _, err := w.Write(aad); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	// The first spec encrypts the plaintext, the last one writes to w.
	var cur io.Writer = w
	for i := len(layers) - 1; i >= 0; i-- {
		cur = &chunkWriter{w: cur, layer: layers[i], aad: aad, buf: make([]byte, 0, ChunkSize)}
	}
	return cur.(io.WriteCloser), nil
}

// NewDecryptReader reads the header from r and returns a reader producing
// the plaintext. Close closes r if r is an io.Closer.
func NewDecryptReader(r io.Reader, key *MasterKey) (io.ReadCloser, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: master key", kerrors.ErrMissingKeyMaterial)
	}

	header := bytes.NewBuffer(nil)
	tee := io.TeeReader(r, header)

	fixed := make([]byte, len(streamMagic)+2)
	if _, err := io.ReadFull(tee, fixed); err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrInvalidHeader, err)
	}
	if !bytes.Equal(fixed[:len(streamMagic)], streamMagic) {
		return nil, fmt.Errorf("%w: bad magic", kerrors.ErrInvalidHeader)
	}
	if fixed[len(streamMagic)] != streamVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", kerrors.ErrInvalidHeader, fixed[len(streamMagic)])
	}

	count := int(fixed[len(streamMagic)+1])
	if count == 0 {
		return nil, fmt.Errorf("%w: no cipher specs", kerrors.ErrInvalidHeader)
	}

	layers := make([]layer, count)
	for i := range layers {
		var id [1]byte
		if _, err := io.ReadFull(tee, id[:]); err != nil {
			return nil, fmt.Errorf("%w: %v", kerrors.ErrInvalidHeader, err)
		}
		spec, err := CipherSpecByID(int(id[0]))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", kerrors.ErrInvalidHeader, err)
		}

		salt := make([]byte, layerSaltSize)
		nonce := make([]byte, spec.NonceSize)
		if _, err := io.ReadFull(tee, salt); err != nil {
			return nil, fmt.Errorf("%w: %v", kerrors.ErrInvalidHeader, err)
		}
		if _, err := io.ReadFull(tee, nonce); err != nil {
			return nil, fmt.Errorf("%w: %v", kerrors.ErrInvalidHeader, err)
		}

		aead, err := layerAEAD(spec, key, salt)
		if err != nil {
			return nil, err
		}
		layers[i] = layer{spec: spec, aead: aead, baseNonce: nonce}
	}

	aad := header.Bytes()

	// Peel the last spec first; the first spec yields the plaintext.
	cur := r
	for i := len(layers) - 1; i >= 0; i-- {
		l := layers[i]
		cur = &chunkReader{
			src:   cur,
			r:     bufio.NewReader(cur),
			layer: l,
			aad:   aad,
			enc:   make([]byte, ChunkSize+l.aead.Overhead()),
		}
	}
	return cur.(io.ReadCloser), nil
}

// Encrypt encrypts a small in-memory payload.
func Encrypt(plaintext []byte, suite CipherSuite, key *MasterKey) ([]byte, error) {
	var buf bytes.Buffer
	w, err := NewEncryptWriter(&buf, suite, key)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decrypt decrypts a payload produced by Encrypt.
func Decrypt(ciphertext []byte, key *MasterKey) ([]byte, error) {
	r, err := NewDecryptReader(bytes.NewReader(ciphertext), key)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func layerAEAD(spec CipherSpec, key *MasterKey, salt []byte) (cipher.AEAD, error) {
	layerKey, err := expandKey(key.encryptKey, salt, "syncany-cipher-"+strconv.Itoa(spec.ID), spec.KeySize)
	if err != nil {
		return nil, err
	}
	return spec.NewAEAD(layerKey)
}

// deriveNonce XORs a counter into the last 8 bytes of the base nonce.
func deriveNonce(baseNonce []byte, counter uint64) []byte {
	nonce := bytes.Clone(baseNonce)
	var counterBytes [8]byte
	binary.BigEndian.PutUint64(counterBytes[:], counter)
	offset := len(nonce) - 8
	for i := 0; i < 8; i++ {
		nonce[offset+i] ^= counterBytes[i]
	}
	return nonce
}

// chunkWriter seals fixed-size chunks of one cipher layer. A full chunk is
// held back until more data arrives, so the final chunk is always sealed
// with the last-chunk flag.
type chunkWriter struct {
	w       io.Writer
	layer   layer
	aad     []byte
	buf     []byte
	sealed  []byte
	counter uint64
	closed  bool
}

func (c *chunkWriter) Write(p []byte) (int, error) {
	if c.closed {
		return 0, kerrors.ErrStreamClosed
	}

	written := 0
	for len(p) > 0 {
		if len(c.buf) == ChunkSize {
			if err := c.seal(false); err != nil {
				return written, err
			}
		}
		n := min(ChunkSize-len(c.buf), len(p))
		c.buf = append(c.buf, p[:n]...)
		p = p[n:]
		written += n
	}
	return written, nil
}

func (c *chunkWriter) seal(final bool) error {
	counter := c.counter
	if final {
		counter |= lastChunkFlag
	}

	c.sealed = c.layer.aead.Seal(c.sealed[:0], deriveNonce(c.layer.baseNonce, counter), c.buf, c.aad)
	if _, err := c.w.Write(c.sealed); err != nil {
		return fmt.Errorf("write chunk %d: %w", c.counter, err)
	}
	c.buf = c.buf[:0]
	c.counter++
	return nil
}

func (c *chunkWriter) Close() error {
	if c.closed {
		return kerrors.ErrStreamClosed
	}
	c.closed = true

	sealErr := c.seal(true)
	var closeErr error
	if closer, ok := c.w.(io.Closer); ok {
		closeErr = closer.Close()
	}
	return errors.Join(sealErr, closeErr)
}

// chunkReader opens the chunks of one cipher layer.
type chunkReader struct {
	src     io.Reader
	r       *bufio.Reader
	layer   layer
	aad     []byte
	enc     []byte
	plain   []byte
	pos     int
	counter uint64
	eof     bool
	err     error
	closed  bool
}

func (c *chunkReader) Read(p []byte) (int, error) {
	for c.pos == len(c.plain) {
		if c.err != nil {
			return 0, c.err
		}
		if c.eof {
			return 0, io.EOF
		}
		c.next()
	}

	n := copy(p, c.plain[c.pos:])
	c.pos += n
	return n, nil
}

func (c *chunkReader) next() {
	n, err := io.ReadFull(c.r, c.enc)

	var final bool
	switch {
	case err == nil:
		_, peekErr := c.r.Peek(1)
		if peekErr != nil && peekErr != io.EOF {
			c.err = peekErr
			return
		}
		final = peekErr == io.EOF
	case err == io.ErrUnexpectedEOF:
		final = true
	case err == io.EOF:
		c.err = fmt.Errorf("%w: stream truncated after chunk %d", kerrors.ErrDecryptFailed, c.counter)
		return
	default:
		c.err = err
		return
	}

	counter := c.counter
	if final {
		counter |= lastChunkFlag
	}

	plain, openErr := c.layer.aead.Open(c.plain[:0], deriveNonce(c.layer.baseNonce, counter), c.enc[:n], c.aad)
	if openErr != nil {
		c.err = fmt.Errorf("%w: %s chunk %d", kerrors.ErrDecryptFailed, c.layer.spec.Name, c.counter)
		return
	}

	c.plain = plain
	c.pos = 0
	c.counter++
	c.eof = final
}

func (c *chunkReader) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if closer, ok := c.src.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
