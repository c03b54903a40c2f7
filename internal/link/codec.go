package link

import (
	"context"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"github.com/PolarWolf314/syncany/internal/configs"
	"github.com/PolarWolf314/syncany/internal/crypto"
	kerrors "github.com/PolarWolf314/syncany/internal/errors"
	"github.com/PolarWolf314/syncany/internal/storage"
)

const (
	// Prefix starts every repository link.
	Prefix = "syncany://storage/1/"

	// Version is the only supported link format version.
	Version = 1

	notEncrypted = "not-encrypted/"
)

var linkPattern = regexp.MustCompile(`^syncany://storage/1/(?:not-encrypted/(.+)|([^-]+)-(.+))$`)

var base64Encodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.URLEncoding,
	base64.RawStdEncoding,
	base64.RawURLEncoding,
}

// Link is a parsed repository link.
type Link struct {
	Version   int
	Encrypted bool

	// Salt is the master key salt. It is nil for unencrypted links.
	Salt []byte

	// Payload is the serialized connection, or its ciphertext.
	Payload []byte
}

// String encodes l in the link format.
func (l *Link) String() string {
	payload := base64.StdEncoding.EncodeToString(l.Payload)
	if !l.Encrypted {
		return Prefix + notEncrypted + payload
	}
	return Prefix + base64.StdEncoding.EncodeToString(l.Salt) + "-" + payload
}

// Result is a decoded repository link.
type Result struct {
	Connection configs.ConnectionTO

	// MasterKey is the key derived from the link's salt and the supplied
	// passwords. It is nil for unencrypted links.
	MasterKey *crypto.MasterKey

	Encrypted bool
}

// Encode serializes conn into a link. If key is nil the link is not
// encrypted; otherwise the connection is encrypted under key with suite.
func Encode(conn configs.ConnectionTO, suite crypto.CipherSuite, key *crypto.MasterKey) (string, error) {
	plain, err := configs.EncodeTOML(conn)
	if err != nil {
		return "", fmt.Errorf("serializing connection: %w", err)
	}

	if key == nil {
		return (&Link{Version: Version, Payload: plain}).String(), nil
	}

	if len(suite) == 0 {
		if suite, err = crypto.NewCipherSuite(crypto.DefaultCipherSuiteIDs...); err != nil {
			return "", err
		}
	}
	ciphertext, err := crypto.Encrypt(plain, suite, key)
	if err != nil {
		return "", fmt.Errorf("encrypting connection: %w", err)
	}

	l := &Link{Version: Version, Encrypted: true, Salt: key.Salt(), Payload: ciphertext}
	return l.String(), nil
}

// Parse checks the link grammar and decodes its base64 parts. It never
// touches key material.
func Parse(s string) (*Link, error) {
	s = strings.TrimSpace(s)
	m := linkPattern.FindStringSubmatch(s)
	if m == nil {
		return nil, fmt.Errorf("%w: link must match %s(not-encrypted/<data>|<salt>-<data>)", kerrors.ErrInvalidLink, Prefix)
	}
	// Standard base64 salts may contain '/', so an empty not-encrypted
	// payload also matches the encrypted form.
	if m[1] == "" && strings.HasPrefix(s, Prefix+notEncrypted) {
		return nil, fmt.Errorf("%w: unencrypted link has no data", kerrors.ErrInvalidLink)
	}

	if m[1] != "" {
		payload, err := decodeBase64(m[1])
		if err != nil {
			return nil, err
		}
		return &Link{Version: Version, Payload: payload}, nil
	}

	salt, err := decodeBase64(m[2])
	if err != nil {
		return nil, err
	}
	if len(salt) != crypto.SaltSize {
		return nil, fmt.Errorf("%w: salt has %d bytes, expected %d", kerrors.ErrInvalidLink, len(salt), crypto.SaltSize)
	}
	payload, err := decodeBase64(m[3])
	if err != nil {
		return nil, err
	}
	return &Link{Version: Version, Encrypted: true, Salt: salt, Payload: payload}, nil
}

// Codec decodes links into connections. The zero value uses the default
// key derivation parameters and the default plugin registry.
type Codec struct {
	Keys    *crypto.KeyService
	Plugins *storage.Registry
}

// Decode parses s, asks passwords for encrypted links, and returns the
// connection it holds.
//
// A wrong password and a corrupt link are both reported as
// errors.ErrInvalidLink. A connection naming an unknown plugin yields
// errors.ErrUnknownPlugin.
func (c *Codec) Decode(ctx context.Context, s string, passwords PasswordProvider) (*Result, error) {
	l, err := Parse(s)
	if err != nil {
		return nil, err
	}

	result := &Result{Encrypted: l.Encrypted}
	plain := l.Payload

	if l.Encrypted {
		if passwords == nil {
			return nil, kerrors.ErrNoPasswordProvider
		}
		pw, err := passwords.Passwords(ctx)
		if err != nil {
			return nil, fmt.Errorf("reading passwords: %w", err)
		}

		result.MasterKey, err = c.keys().DeriveMasterKey(ctx, pw.Encrypt, pw.Sign, l.Salt)
		if err != nil {
			return nil, err
		}
		if plain, err = crypto.Decrypt(l.Payload, result.MasterKey); err != nil {
			return nil, fmt.Errorf("%w: cannot decrypt link (wrong password or corrupt link)", kerrors.ErrInvalidLink)
		}
	}

	if err := configs.DecodeTOML(plain, &result.Connection); err != nil || result.Connection.Type == "" {
		return nil, fmt.Errorf("%w: link does not hold connection settings", kerrors.ErrInvalidLink)
	}
	if _, err := c.plugins().Get(result.Connection.Type); err != nil {
		return nil, err
	}

	return result, nil
}

func (c *Codec) keys() *crypto.KeyService {
	if c.Keys == nil {
		return crypto.NewKeyService(nil)
	}
	return c.Keys
}

func (c *Codec) plugins() *storage.Registry {
	if c.Plugins == nil {
		return storage.DefaultRegistry()
	}
	return c.Plugins
}

func decodeBase64(s string) ([]byte, error) {
	for _, enc := range base64Encodings {
		if data, err := enc.DecodeString(s); err == nil && len(data) > 0 {
			return data, nil
		}
	}
	return nil, fmt.Errorf("%w: malformed base64", kerrors.ErrInvalidLink)
}
