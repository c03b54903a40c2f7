package transform

import (
	"fmt"
	"io"

	kerrors "github.com/PolarWolf314/syncany/internal/errors"
	"github.com/PolarWolf314/syncany/internal/sign"
)

// SignStage appends an Ed25519 signature on encode and verifies it on decode.
type SignStage struct {
	key         sign.Ed25519
	initialized bool
}

// NewSignStage returns a sign stage. key.Private may be nil for a stage
// that only decodes; key.Public may be nil to skip verification.
func NewSignStage(key sign.Ed25519) *SignStage {
	return &SignStage{key: key, initialized: true}
}

func newSignStage(_ map[string]string, keys Keys) (Stage, error) {
	if keys.MasterKey == nil && keys.VerifyKey == nil {
		return nil, fmt.Errorf("%w: sign stage needs a master key or a verify key", kerrors.ErrMissingKeyMaterial)
	}

	var key sign.Ed25519
	if keys.MasterKey != nil {
		key.Private = keys.MasterKey.SigningKey()
		key.Public = keys.MasterKey.VerifyKey()
	}
	if keys.VerifyKey != nil {
		key.Public = keys.VerifyKey
	}
	return NewSignStage(key), nil
}

func (s *SignStage) Type() string { return TypeSign }

func (s *SignStage) WrapWriter(w io.WriteCloser) (io.WriteCloser, error) {
	if !s.initialized {
		return nil, kerrors.ErrStageNotInitialized
	}
	return sign.NewSignWriter(w, sign.DefaultHash, s.key), nil
}

func (s *SignStage) WrapReader(r io.Reader) (io.ReadCloser, error) {
	if !s.initialized {
		return nil, kerrors.ErrStageNotInitialized
	}
	return sign.NewVerifyReader(r, sign.DefaultHash, sign.Ed25519SignatureSize, s.key), nil
}

func (s *SignStage) String() string { return "Ed25519Sign" }
