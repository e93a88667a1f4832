// Package txn assembles, notarizes and compiles ledger transactions.
//
// A transaction is built in three layers: an Intent (header, manifest text,
// attached blobs and an optional message), a SignedIntent (the intent plus
// intent signatures) and a NotarizedTransaction (the signed intent plus the
// notary's signature over the signed-intent hash).
//
// Every layer is serialized with Core Deterministic CBOR (RFC 8949 section
// 4.2), so a given value always produces the same bytes and hashes. The intent
// hash, rendered as bech32m under the "txid_" prefix, is the transaction id.
package txn
