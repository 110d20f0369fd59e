package deploy

import (
	"errors"
	"fmt"

	"github.com/shipwaylabs/shipway"
	"github.com/shipwaylabs/shipway/trust"
)

// DefaultRuntimeVersion is the interpreter version deployed when none is
// configured. Pinned so that every host in a fleet resolves the same runtime.
const DefaultRuntimeVersion = "20.12.2"

// Config describes one deployment run. Zero values are filled by
// WithDefaults; Validate reports what remains unusable.
type Config struct {
	Target shipway.Target

	// Ref is the commit or tag to deploy. UseTagNamespace restricts
	// resolution to refs/tags; a branch or commit name then does not
	// resolve, even if one exists.
	Ref             string
	UseTagNamespace bool

	// Bundle is the artifact path on the target. LocalBundle, when set,
	// names a bundle on the deploying machine that is uploaded to Bundle
	// before materialization.
	Bundle      string
	LocalBundle string

	// RuntimeVersion pins the interpreter version. Missing versions fail
	// the run; nothing is installed on demand.
	RuntimeVersion string

	// Process names the managed process. Required unless Policy is
	// PolicySkip.
	Process string
	Policy  shipway.TransitionPolicy

	// PreHooks run in the working tree after host trust and artifact
	// upload, before the source sync. PostHooks run after the process
	// transition. Hook failure is fatal like any stage.
	PreHooks  []string
	PostHooks []string

	// TrustHosts are ensured present in the trust store before the
	// channel dials. Defaults to the target host.
	TrustHosts     []string
	TrustStorePath string

	// KeyPath is the private key for channel auth; Passphrase unlocks it
	// when encrypted. Port overrides the SSH port.
	KeyPath    string
	Passphrase string
	Port       int

	// InsecureIgnoreHostKey disables host key verification, and with it
	// the trust stage. Test environments only.
	InsecureIgnoreHostKey bool

	// Local runs the pipeline against this machine without SSH.
	Local bool
}

// WithDefaults returns a copy of the config with defaults applied.
func (c Config) WithDefaults() Config {
	if c.Local && c.Target.Host == "" {
		c.Target.Host = "localhost"
	}

	c.Target = c.Target.WithDefaults()

	if c.RuntimeVersion == "" {
		c.RuntimeVersion = DefaultRuntimeVersion
	}

	if len(c.TrustHosts) == 0 && !c.Local {
		c.TrustHosts = []string{c.Target.Host}
	}

	if c.TrustStorePath == "" {
		c.TrustStorePath = trust.DefaultStorePath()
	}

	if c.KeyPath == "" {
		c.KeyPath = trust.DefaultKeyPath()
	}

	return c
}

// Validate checks that the config describes a runnable deployment.
func (c Config) Validate() error {
	if err := c.Target.Validate(); err != nil {
		return err
	}

	if c.Ref == "" {
		return errors.New("deploy ref cannot be empty")
	}

	if c.Bundle == "" {
		return errors.New("artifact bundle path cannot be empty")
	}

	if c.Policy != shipway.PolicySkip && c.Process == "" {
		return fmt.Errorf("transition policy %q requires a process name", c.Policy)
	}

	return nil
}
