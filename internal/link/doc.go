// Package link encodes repository connections into shareable links.
//
// A link has one of two forms:
//
//	syncany://storage/1/not-encrypted/<base64(connection)>
//	syncany://storage/1/<base64(salt)>-<base64(ciphertext)>
//
// The connection is the TOML serialization of a [configs.ConnectionTO].
// In the encrypted form it is encrypted with the crypto stream format under
// the master key, and the salt allows the key to be re-derived from the
// repository passwords. Base64 parts may use the standard or URL alphabet,
// padded or not.
//
// Parse rejects malformed links before any key is derived. Decoding with a
// wrong password is reported exactly like a corrupt link.
package link
