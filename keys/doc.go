// Package keys resolves signing accounts for radup.
//
// API stability:
//
// Stable:
//   - Pure, deterministic primitives: ResolveAccount, signature creation and
//     verification, public key and secret text formats.
//
// Experimental:
//   - Secret providers and the filesystem-backed KeyStore. These are local-first
//     utilities for supplying a signing key at run time; key material is never
//     compiled into the binary.
package keys
