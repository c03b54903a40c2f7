package transform

import (
	"fmt"
	"io"

	"github.com/PolarWolf314/syncany/internal/crypto"
	kerrors "github.com/PolarWolf314/syncany/internal/errors"
)

// SettingCipherSpecs is the comma separated cipher spec id list of the cipher stage.
const SettingCipherSpecs = "cipherspecs"

// CipherStage encrypts with a cipher suite under a master key.
type CipherStage struct {
	suite crypto.CipherSuite
	key   *crypto.MasterKey
}

// NewCipherStage returns a cipher stage.
func NewCipherStage(suite crypto.CipherSuite, key *crypto.MasterKey) (*CipherStage, error) {
	if len(suite) == 0 {
		return nil, kerrors.ErrEmptyCipherSuite
	}
	if key == nil {
		return nil, fmt.Errorf("%w: cipher stage needs a master key", kerrors.ErrMissingKeyMaterial)
	}
	return &CipherStage{suite: suite, key: key}, nil
}

func newCipherStage(settings map[string]string, keys Keys) (Stage, error) {
	raw, ok := settings[SettingCipherSpecs]
	if !ok || raw == "" {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrMissingSetting, SettingCipherSpecs)
	}
	suite, err := crypto.ParseCipherSuite(raw)
	if err != nil {
		return nil, err
	}
	return NewCipherStage(suite, keys.MasterKey)
}

func (s *CipherStage) Type() string { return TypeCipher }

// Suite returns the stage's cipher suite.
func (s *CipherStage) Suite() crypto.CipherSuite { return s.suite }

func (s *CipherStage) WrapWriter(w io.WriteCloser) (io.WriteCloser, error) {
	if s.key == nil {
		return nil, kerrors.ErrStageNotInitialized
	}
	return crypto.NewEncryptWriter(w, s.suite, s.key)
}

func (s *CipherStage) WrapReader(r io.Reader) (io.ReadCloser, error) {
	if s.key == nil {
		return nil, kerrors.ErrStageNotInitialized
	}
	return crypto.NewDecryptReader(r, s.key)
}

func (s *CipherStage) String() string {
	return fmt.Sprintf("Cipher(%s)", s.suite)
}
