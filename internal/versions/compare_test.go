package versions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAtLeast(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		version  string
		minimum  string
		expected bool
	}{
		{name: "equal", version: "1.2.0", minimum: "1.2.0", expected: true},
		{name: "newer minor", version: "1.10.2", minimum: "1.2.0", expected: true},
		{name: "newer major", version: "2.0.0", minimum: "1.2.0", expected: true},
		{name: "older minor", version: "1.1.9", minimum: "1.2.0", expected: false},
		{name: "v prefix", version: "v1.3.0", minimum: "1.2.0", expected: true},
		{name: "prerelease of minimum", version: "1.2.0-rc.1", minimum: "1.2.0", expected: false},
		{name: "non-semver falls back to strings", version: "nightly-b", minimum: "nightly-a", expected: true},
		{name: "empty version", version: "", minimum: "1.2.0", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, AtLeast(tt.version, tt.minimum))
		})
	}
}
