// Package version reports the build version of inflight and the
// User-Agent it sends on outbound requests.
//
// Version, git commit and build time are set at compile time via -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/inflight/version.Version=1.0.0"
package version
