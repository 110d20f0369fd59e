package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/shipwaylabs/shipway"
	"github.com/shipwaylabs/shipway/trust"
)

// keyEnvVar carries private key material into the trust command, the way CI
// systems hand out secrets.
const keyEnvVar = "SHIPWAY_SSH_KEY"

func newTrustCmd() *cobra.Command {
	var (
		hostList     string
		sshDir       string
		keyPath      string
		keyFile      string
		probeTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "trust",
		Short: "Establish the SSH key and known-host fingerprints for deployment targets",
		Long: `Writes the deployment private key (create-if-absent, never overwritten) and
ensures every listed host has a fingerprint in the trust store, probing
unknown hosts for their public key. Probe failures are reported per host and
do not abort the batch.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			hosts := trust.SplitHostList(hostList)
			if len(hosts) == 0 {
				return errors.New("missing --hosts")
			}

			if sshDir == "" {
				home, err := os.UserHomeDir()
				if err != nil {
					return fmt.Errorf("resolving home directory: %w", err)
				}

				sshDir = filepath.Join(home, ".ssh")
			}

			if keyPath == "" {
				keyPath = filepath.Join(sshDir, "id_rsa")
			}

			material, err := keyMaterial(keyFile)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			if len(material) > 0 {
				if err := trust.EnsureKey(keyPath, material); err != nil {
					return err
				}

				fmt.Fprintln(out, okStyle.Render("✔ key ensured at "+keyPath))
			}

			store := trust.NewStore(filepath.Join(sshDir, "known_hosts"),
				trust.WithProbeTimeout(probeTimeout))

			report, err := store.Ensure(cmd.Context(), hosts)

			var partial *shipway.PartialError
			if err != nil && !errors.As(err, &partial) {
				return err
			}

			for _, host := range report.Added {
				fmt.Fprintln(out, okStyle.Render("✔ "+host+" added"))
			}

			for _, host := range report.Skipped {
				fmt.Fprintln(out, skipStyle.Render("- "+host+" already trusted"))
			}

			if partial != nil {
				for _, perr := range partial.Errs {
					fmt.Fprintln(out, warnStyle.Render("! "+perr.Error()))
				}

				fmt.Fprintln(out, warnStyle.Render(fmt.Sprintf(
					"trust store partially updated (%d of %d hosts failed)",
					len(report.Failed), len(hosts))))
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&hostList, "hosts", "", "Comma-separated hosts to trust")
	cmd.Flags().StringVar(&sshDir, "ssh-dir", "", "SSH directory (default ~/.ssh)")
	cmd.Flags().StringVar(&keyPath, "key-path", "", "Private key destination (default <ssh-dir>/id_rsa)")
	cmd.Flags().StringVar(&keyFile, "key-file", "", "File holding private key material (default $"+keyEnvVar+")")
	cmd.Flags().DurationVar(&probeTimeout, "probe-timeout", 10*time.Second, "Per-host key probe timeout")

	return cmd
}

// keyMaterial loads private key material from the given file, falling back to
// the environment. Empty material means no key is written.
func keyMaterial(keyFile string) ([]byte, error) {
	if keyFile != "" {
		material, err := os.ReadFile(keyFile)
		if err != nil {
			return nil, fmt.Errorf("reading key file: %w", err)
		}

		return material, nil
	}

	return []byte(os.Getenv(keyEnvVar)), nil
}
