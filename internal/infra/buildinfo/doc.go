// Package buildinfo exposes version information of the kvault binaries.
//
// Values are injected at build time via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/keyvault-go/internal/infra/buildinfo.Version=v1.0.0"
//
// When Commit is not injected, the VCS revision recorded by the Go
// toolchain is used.
package buildinfo
