package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPreservedPaths(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		before  []string
		applied []string
		want    []string
	}{
		{
			name:    "secrets survive an overlay",
			before:  []string{"app/index.js", ".env", "config/local.json"},
			applied: []string{"app/index.js", "package.json"},
			want:    []string{".env", "config/local.json"},
		},
		{
			name:    "empty tree preserves nothing",
			before:  nil,
			applied: []string{"app/index.js"},
			want:    []string{},
		},
		{
			name:    "bundle covering the whole tree preserves nothing",
			before:  []string{"app/index.js"},
			applied: []string{"app/index.js"},
			want:    []string{},
		},
		{
			name:    "output is sorted",
			before:  []string{"z.txt", "a.txt", "m.txt"},
			applied: nil,
			want:    []string{"a.txt", "m.txt", "z.txt"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			before := make(map[string]struct{}, len(tt.before))
			for _, p := range tt.before {
				before[p] = struct{}{}
			}

			assert.Equal(t, tt.want, preservedPaths(before, tt.applied))
		})
	}
}
