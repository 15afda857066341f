// Package version reports the libproteus release identifiers.
package version

import "fmt"

const (
	major = 0
	minor = 4
	patch = 3
)

// Version returns the major, minor and patch components along with the
// formatted "major.minor.patch" string.
func Version() (int, int, int, string) {
	return major, minor, patch, fmt.Sprintf("%d.%d.%d", major, minor, patch)
}
