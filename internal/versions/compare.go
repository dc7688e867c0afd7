package versions

import "github.com/Masterminds/semver/v3"

// AtLeast reports whether version is greater than or equal to minimum.
// Both are compared as semantic versions when they parse, and as plain
// strings otherwise.
func AtLeast(version, minimum string) bool {
	v, errV := semver.NewVersion(version)
	m, errM := semver.NewVersion(minimum)
	if errV != nil || errM != nil {
		return version >= minimum
	}
	return !v.LessThan(m)
}
