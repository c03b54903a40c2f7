// Package transform builds the stream pipelines applied to repository files.
//
// A Chain is built from an ordered list of Descriptors, as stored in the
// repository file:
//
//	[[transformers]]
//	type = "gzip"
//
//	[[transformers]]
//	type = "cipher"
//	settings = { cipherspecs = "1,2" }
//
//	[[transformers]]
//	type = "ed25519-sign"
//
// On encode, data written by the caller passes through the stages in list
// order before reaching the sink (compress, then encrypt, then sign). On
// decode, the stages are nested the other way around, so the last stage
// is the first to see the raw bytes.
//
// Stages are built by factories and are never mutated afterwards. A Chain
// may be shared; each Encode or Decode call creates fresh per-stream state.
package transform
