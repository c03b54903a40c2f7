// Package crypto provides the key material and symmetric encryption used by
// syncany repositories.
//
// # Master Key
//
// A MasterKey is derived from two passwords by KeyService.DeriveMasterKey:
//
//   - the encrypt password yields a 32-byte symmetric key
//   - the optional sign password yields an Ed25519 signing key
//
// Both halves use scrypt followed by HKDF-SHA256 with distinct info strings
// over the same salt. The salt is stored unencrypted in the repository's
// master file so that other clients can reconstruct the same key.
//
// # Cipher Suites
//
// A CipherSuite is an ordered list of CipherSpec ids, for example "1,2"
// (AES-128-GCM then Twofish-128-GCM). Data is encrypted by every spec in
// turn; the first spec is innermost.
//
// # Stream Format
//
//	magic "Sy\x02\x05" | version | count | count x (id | salt[12] | nonce)
//	layer chunks ...
//
// Every layer splits its input into 64 KB chunks sealed with the layer's
// AEAD. The nonce is the base nonce XOR the chunk counter, with bit 63 set
// on the final chunk, and the header is authenticated as additional data.
// Reordering, truncating or tampering with chunks fails with
// errors.ErrDecryptFailed.
package crypto
