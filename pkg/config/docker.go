package config

import (
	"os"
	"sync"
)

var (
	isDockerOnce   sync.Once
	isDockerResult bool
)

// IsRunningInDocker reports whether /.dockerenv exists. Cached after the first call.
func IsRunningInDocker() bool {
	isDockerOnce.Do(func() {
		_, err := os.Stat("/.dockerenv")
		isDockerResult = err == nil
	})
	return isDockerResult
}

// ResolveHostForDocker maps a loopback database host to host.docker.internal
// when running in a container, so a developer's local Postgres stays reachable.
func ResolveHostForDocker(host string) string {
	if IsRunningInDocker() && (host == "localhost" || host == "127.0.0.1") {
		return "host.docker.internal"
	}
	return host
}
