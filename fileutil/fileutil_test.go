package fileutil

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckPathTraversal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		root      string
		target    string
		expectErr bool
	}{
		{
			name:      "Safe child",
			root:      "/tmp/safe",
			target:    "/tmp/safe/child.txt",
			expectErr: false,
		},
		{
			name:      "Safe deep child",
			root:      "/tmp/safe",
			target:    "/tmp/safe/dir/child.txt",
			expectErr: false,
		},
		{
			name:      "Root itself",
			root:      "/tmp/safe",
			target:    "/tmp/safe",
			expectErr: false,
		},
		{
			name:      "Traversal attempt",
			root:      "/tmp/safe",
			target:    "/tmp/safe/../evil.txt",
			expectErr: true,
		},
		{
			name:      "Direct parent traversal",
			root:      "/tmp/safe",
			target:    "/tmp/evil.txt",
			expectErr: true,
		},
		{
			name:      "Root prefix but not child",
			root:      "/tmp/safe",
			target:    "/tmp/safe_suffix_is_not_child",
			expectErr: true,
		},
		{
			name:      "Relative paths safe",
			root:      "safe",
			target:    "safe/child",
			expectErr: false,
		},
		{
			name:      "Relative paths unsafe",
			root:      "safe",
			target:    "safe/../evil",
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Normalize for OS (Windows vs Unix)
			root := filepath.FromSlash(tt.root)
			target := filepath.FromSlash(tt.target)

			err := CheckPathTraversal(root, target)
			if tt.expectErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "illegal file path")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheckRemotePathTraversal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		root      string
		target    string
		expectErr bool
	}{
		{
			name:      "Safe child",
			root:      "/var/www/api",
			target:    "/var/www/api/app/index.js",
			expectErr: false,
		},
		{
			name:      "Root itself",
			root:      "/var/www/api",
			target:    "/var/www/api",
			expectErr: false,
		},
		{
			name:      "Traversal attempt",
			root:      "/var/www/api",
			target:    "/var/www/api/../evil.txt",
			expectErr: true,
		},
		{
			name:      "Root prefix but not child",
			root:      "/var/www/api",
			target:    "/var/www/api_suffix",
			expectErr: true,
		},
		{
			name:      "Trailing slash root",
			root:      "/var/www/api/",
			target:    "/var/www/api/package.json",
			expectErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := CheckRemotePathTraversal(tt.root, tt.target)
			if tt.expectErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "illegal remote file path")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSanitizeArchivePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		member    string
		wantRel   string
		want      string
		expectErr bool
	}{
		{
			name:    "plain file",
			member:  "package.json",
			wantRel: "package.json",
			want:    "/var/www/api/package.json",
		},
		{
			name:    "nested file",
			member:  "app/index.js",
			wantRel: "app/index.js",
			want:    "/var/www/api/app/index.js",
		},
		{
			name:    "leading slash stripped",
			member:  "/app/index.js",
			wantRel: "app/index.js",
			want:    "/var/www/api/app/index.js",
		},
		{
			name:    "leading dot-slash",
			member:  "./app/index.js",
			wantRel: "app/index.js",
			want:    "/var/www/api/app/index.js",
		},
		{
			name:      "parent escape",
			member:    "../evil.js",
			expectErr: true,
		},
		{
			name:      "nested escape",
			member:    "app/../../evil.js",
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rel, got, err := SanitizeArchivePath("/var/www/api", tt.member)
			if tt.expectErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantRel, rel)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestContextReader(t *testing.T) {
	t.Parallel()

	t.Run("passes data through", func(t *testing.T) {
		t.Parallel()

		cr := &ContextReader{Ctx: context.Background(), Reader: strings.NewReader("payload")}

		data, err := io.ReadAll(cr)
		require.NoError(t, err)
		assert.Equal(t, "payload", string(data))
	})

	t.Run("stops on cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		cr := &ContextReader{Ctx: ctx, Reader: strings.NewReader("payload")}

		_, err := io.ReadAll(cr)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestProgressReader(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte("x"), 1024)

	var last int64

	pr := &ProgressReader{
		Reader: bytes.NewReader(payload),
		Total:  int64(len(payload)),
		Fn: func(current, total int64) {
			last = current
			assert.Equal(t, int64(len(payload)), total)
		},
	}

	data, err := io.ReadAll(pr)
	require.NoError(t, err)
	assert.Len(t, data, len(payload))
	assert.Equal(t, int64(len(payload)), last)
}
