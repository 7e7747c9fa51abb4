// Package app holds build-time version information for omoplink.
package app

// Version and Build are set at compile time via ldflags:
//
//	go build -ldflags "-X github.com/medtext/omoplink/pkg.Version=v1.0.0"
var (
	Version = "v0.1.0"
	Build   = "n/a"
)
