// Package version provides build version information embedding.
//
// Version and build time are set at compile time via -ldflags:
//
//	go build -ldflags "-X github.com/davidkennedy02/csvtohl7/version.Version=1.0.0"
package version
