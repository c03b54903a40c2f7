package link

import "context"

// Passwords are the two repository passwords. Sign may be empty for
// read-only access.
type Passwords struct {
	Encrypt string
	Sign    string
}

// PasswordProvider supplies passwords for encrypted links, either from the
// user or from pre-supplied values.
type PasswordProvider interface {
	Passwords(ctx context.Context) (Passwords, error)
}

// StaticPasswords provides fixed passwords.
type StaticPasswords Passwords

// Passwords implements PasswordProvider.
func (p StaticPasswords) Passwords(context.Context) (Passwords, error) {
	return Passwords(p), nil
}

// PasswordFunc adapts a function to PasswordProvider.
type PasswordFunc func(ctx context.Context) (Passwords, error)

// Passwords implements PasswordProvider.
func (f PasswordFunc) Passwords(ctx context.Context) (Passwords, error) {
	return f(ctx)
}
