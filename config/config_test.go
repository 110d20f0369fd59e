package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shipwaylabs/shipway"
)

const sampleProject = `app: billing
host: app01.internal
user: deploy
port: 2222
deploy_path: /srv/billing

bundle: /tmp/billing.tar.gz
local_bundle: dist/billing.tar.gz

runtime: "20.12.2"
process: billing
transition: reload

hooks:
  pre:
    - mkdir -p shared/logs
  post:
    - curl -fsS https://status.internal/ping
    - rm -f /tmp/billing.tar.gz

trust:
  hosts: [app01.internal, db01.internal]
  store_path: /home/deploy/.ssh/known_hosts
  key_path: /home/deploy/.ssh/id_rsa
`

func writeProject(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFileName), []byte(content), 0o644))

	return dir
}

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := writeProject(t, sampleProject)

	p, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "billing", p.App)
	assert.Equal(t, "app01.internal", p.Host)
	assert.Equal(t, 2222, p.Port)
	assert.Equal(t, "/srv/billing", p.DeployPath)
	assert.Equal(t, "reload", p.Transition)
	assert.Equal(t, []string{"mkdir -p shared/logs"}, p.Hooks.Pre)
	assert.Len(t, p.Hooks.Post, 2)
	assert.Equal(t, []string{"app01.internal", "db01.internal"}, p.Trust.Hosts)
}

func TestLoad_Missing(t *testing.T) {
	t.Parallel()

	_, err := Load(t.TempDir())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadFile_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "malformed yaml",
			content: "app: [unclosed",
		},
		{
			name:    "unknown transition",
			content: "app: x\ntransition: rolling\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := writeProject(t, tt.content)

			_, err := Load(dir)
			assert.Error(t, err)
		})
	}
}

func TestProject_DeployConfig(t *testing.T) {
	t.Parallel()

	dir := writeProject(t, sampleProject)

	p, err := Load(dir)
	require.NoError(t, err)

	cfg := p.DeployConfig()
	cfg.Ref = "v1.4.0"
	cfg.UseTagNamespace = true

	require.NoError(t, cfg.Validate())

	assert.Equal(t, "app01.internal", cfg.Target.Host)
	assert.Equal(t, "/srv/billing", cfg.Target.DeployPath)
	assert.Equal(t, shipway.PolicyReload, cfg.Policy)
	assert.Equal(t, "billing", cfg.Process)
	assert.Equal(t, 2222, cfg.Port)
	assert.Equal(t, []string{"app01.internal", "db01.internal"}, cfg.TrustHosts)
}

func TestProject_DeployConfig_Defaults(t *testing.T) {
	t.Parallel()

	p := &Project{App: "billing", Host: "app01.internal"}

	cfg := p.DeployConfig().WithDefaults()

	assert.Equal(t, shipway.PolicySkip, cfg.Policy)
	assert.Equal(t, "deploy", cfg.Target.User)
	assert.Equal(t, "/var/www/billing", cfg.Target.DeployPath)
}
