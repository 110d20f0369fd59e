// Package config loads the .shipway.yaml project file.
//
// The file carries the stable per-project deployment settings (target, runtime,
// process, hooks) so that a deploy needs nothing on the command line beyond the
// release reference. Flags override file values.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/shipwaylabs/shipway"
	"github.com/shipwaylabs/shipway/deploy"
)

// DefaultFileName is the project file looked up in the project root.
const DefaultFileName = ".shipway.yaml"

// Project is the parsed .shipway.yaml file.
type Project struct {
	App        string `yaml:"app"`
	Host       string `yaml:"host"`
	User       string `yaml:"user"`
	Port       int    `yaml:"port"`
	DeployPath string `yaml:"deploy_path"`

	// Bundle is the artifact path on the target. LocalBundle names a bundle
	// on the deploying machine, uploaded to Bundle before materialization.
	Bundle      string `yaml:"bundle"`
	LocalBundle string `yaml:"local_bundle"`

	Runtime    string `yaml:"runtime"`
	Process    string `yaml:"process"`
	Transition string `yaml:"transition"` // skip, restart or reload

	Hooks Hooks `yaml:"hooks"`
	Trust Trust `yaml:"trust"`
}

// Hooks are shell commands run over the channel, each as its own stage.
type Hooks struct {
	Pre  []string `yaml:"pre"`
	Post []string `yaml:"post"`
}

// Trust configures the host-trust stage and channel authentication.
type Trust struct {
	// Hosts ensured present in the trust store; defaults to the target host.
	Hosts     []string `yaml:"hosts"`
	StorePath string   `yaml:"store_path"`
	KeyPath   string   `yaml:"key_path"`
}

// ErrNotFound indicates the project directory has no project file.
var ErrNotFound = errors.New("no " + DefaultFileName + " found")

// Load reads DefaultFileName from projectDir. A missing file returns
// ErrNotFound so callers can fall back to flags alone.
func Load(projectDir string) (*Project, error) {
	return LoadFile(filepath.Join(projectDir, DefaultFileName))
}

// LoadFile reads and parses the project file at path.
func LoadFile(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}

		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var p Project
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if _, err := shipway.ParseTransitionPolicy(p.Transition); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &p, nil
}

// DeployConfig maps the project file onto a deployment config. The result
// still goes through deploy.Config defaulting and validation; the reference
// and any flag overrides are the caller's to fill in.
func (p *Project) DeployConfig() deploy.Config {
	policy, _ := shipway.ParseTransitionPolicy(p.Transition)

	return deploy.Config{
		Target: shipway.Target{
			Host:       p.Host,
			User:       p.User,
			App:        p.App,
			DeployPath: p.DeployPath,
		},
		Bundle:         p.Bundle,
		LocalBundle:    p.LocalBundle,
		RuntimeVersion: p.Runtime,
		Process:        p.Process,
		Policy:         policy,
		PreHooks:       p.Hooks.Pre,
		PostHooks:      p.Hooks.Post,
		TrustHosts:     p.Trust.Hosts,
		TrustStorePath: p.Trust.StorePath,
		KeyPath:        p.Trust.KeyPath,
		Port:           p.Port,
	}
}
