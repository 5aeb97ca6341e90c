// Package domain defines the domain values shared by the vault core, the
// device service and the transports.
//
// This package contains:
//
//   - Errors: coded domain errors, compared with errors.Is by code
//   - Secrets: argon2id hashing and constant-time verification of
//     principal secrets
//
// Nothing here performs IO.
package domain
