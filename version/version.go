package version

import "fmt"

// will be replaced with the release version when using goreleaser
var version = "development"

// Version returns the application version
func Version() string {
	return version
}

// UserAgent is sent with every config and artifact request
func UserAgent() string {
	return fmt.Sprintf("directupdate/%s", version)
}
