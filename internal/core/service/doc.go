// Package service provides the services that sit between the transports and
// the vault core.
//
// This package contains:
//
//   - Device: the byte-stream mapping of a Vault. It serializes every vault
//     call behind one mutex and keeps a cursor per open session.
//   - IdentityResolver: maps a principal and secret to a user ordinal, with
//     argon2id secret hashes and per-principal rate limiting.
//
// The vault core is not safe for concurrent use; Device is the only place
// that takes a lock around it.
package service
