// Package sign appends and verifies trailing signatures on byte streams.
//
// A signed stream is the unchanged payload followed by a fixed-size
// signature over the SHA-256 digest of the payload:
//
//	payload ... | signature[64]
//
// SignWriter computes the digest while forwarding writes and emits the
// signature on Close. VerifyReader withholds the last 64 bytes read from its
// source in a ring buffer, so the signature is never delivered as payload,
// and verifies it when the source ends. The total length never needs to be
// known in advance.
//
// Instances hold per-stream state and are not safe for concurrent use.
package sign
