// Package ir provides the immutable value model shared by every plumage package.
//
// Values stored in the state store are trees of ir.Value. Arrays and objects
// keep their storage unexported, so a value that has been converted with
// FromNative cannot be mutated by the caller that supplied it. All edits go
// through copy-on-write helpers (Object.With, Array.Append, SetPath, ...).
//
// This package imports nothing internal. Key constraints:
//   - Numbers are float64; integral values round trip exactly up to 2^53
//   - Opaque wraps host handles that are never inspected or copied
//   - MarshalCanonical is the only encoding used for hashing and golden files
package ir
