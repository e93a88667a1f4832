// Package manifest builds, renders, parses and statically validates the
// transaction manifests radup submits.
//
// A manifest is an ordered list of CALL_METHOD instructions plus the binary
// blob payloads they reference by blake2b-256 digest. Manifests are built
// from typed values; text is only ever produced by Render, which escapes
// string literals, so a file name or address cannot alter the instruction
// grammar.
//
// Errors are structured (*Error) with a stable Kind and RuleID. Callers should
// branch on those rather than matching error strings.
package manifest
