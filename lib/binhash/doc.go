// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package binhash provides BLAKE3 content hashing for launcher binaries.
//
// A setuid launcher is only as trustworthy as the bytes installed at its
// path. The deployment check hashes each installed launcher so operators
// can compare it against the digest of the build they meant to install,
// and fails when a configured expected digest does not match.
//
// Digests are BLAKE3 keyed hashes in a launcher-specific domain, so a
// launcher digest can never be confused with a hash of the same bytes
// computed for another purpose.
//
// The API surface is three functions:
//
//   - [HashFile] -- streams a file through the hash, returning a [Digest]
//     with constant memory usage regardless of file size
//   - [FormatDigest] -- converts a [Digest] to its canonical hex string,
//     used in config files and check output
//   - [ParseDigest] -- parses a hex string back to a [Digest], validating
//     length and encoding
//
// This package has no dependencies on other suidgate packages.
package binhash
