// Package version exposes the build version of the codecompass binary.
//
// Values are injected at build time:
//
//	go build -ldflags "-X github.com/kbukum/codecompass/version.Version=v1.2.0 \
//	    -X github.com/kbukum/codecompass/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// Without ldflags the VCS stamp embedded by the Go toolchain is used.
package version
