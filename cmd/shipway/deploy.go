package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/shipwaylabs/shipway"
	"github.com/shipwaylabs/shipway/config"
	"github.com/shipwaylabs/shipway/deploy"
	"github.com/shipwaylabs/shipway/trust"
)

func newDeployCmd() *cobra.Command {
	var (
		projectFile   string
		host          string
		user          string
		app           string
		deployPath    string
		artifact      string
		localArtifact string
		ref           string
		useTag        bool
		runtime       string
		transition    string
		processName   string
		hostList      string
		keyPath       string
		port          int
		localMode     bool
		insecure      bool
		askPassphrase bool
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Run the deployment pipeline against a target host",
		Long: `Runs the deployment stages in order: host trust, artifact upload, pre-hooks,
source sync, artifact materialization, runtime and dependency installation,
process transition, post-hooks. The first failing stage halts the run; there
is no rollback.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadProject(projectFile)
			if err != nil {
				return err
			}

			flags := cmd.Flags()

			setString(flags, "host", &cfg.Target.Host, host)
			setString(flags, "user", &cfg.Target.User, user)
			setString(flags, "app", &cfg.Target.App, app)
			setString(flags, "deploy-path", &cfg.Target.DeployPath, deployPath)
			setString(flags, "artifact", &cfg.Bundle, artifact)
			setString(flags, "local-artifact", &cfg.LocalBundle, localArtifact)
			setString(flags, "runtime", &cfg.RuntimeVersion, runtime)
			setString(flags, "process", &cfg.Process, processName)
			setString(flags, "key-path", &cfg.KeyPath, keyPath)

			cfg.Ref = ref
			cfg.UseTagNamespace = useTag
			cfg.Local = localMode
			cfg.InsecureIgnoreHostKey = insecure

			if flags.Changed("transition") {
				cfg.Policy, err = shipway.ParseTransitionPolicy(transition)
				if err != nil {
					return err
				}
			}

			if flags.Changed("hosts") {
				cfg.TrustHosts = trust.SplitHostList(hostList)
			}

			if flags.Changed("port") {
				cfg.Port = port
			}

			if askPassphrase {
				cfg.Passphrase, err = readPassphrase()
				if err != nil {
					return err
				}
			}

			d, err := deploy.New(cfg, deploy.WithLogger(slog.Default()))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render("Deploying "+cfg.Target.App+" @ "+ref))

			report, runErr := d.Run(cmd.Context())
			printReport(out, report)

			return runErr
		},
	}

	cmd.Flags().StringVarP(&projectFile, "file", "f", "", "Project file (default ./"+config.DefaultFileName+")")
	cmd.Flags().StringVar(&host, "host", "", "Target host or ~/.ssh/config alias")
	cmd.Flags().StringVar(&user, "user", shipway.DefaultUser, "Remote user")
	cmd.Flags().StringVar(&app, "app", "", "Application name")
	cmd.Flags().StringVar(&deployPath, "deploy-path", "", "Working tree root (default "+shipway.DefaultDeployBase+"/<app>)")
	cmd.Flags().StringVar(&artifact, "artifact", "", "Artifact bundle path on the target")
	cmd.Flags().StringVar(&localArtifact, "local-artifact", "", "Local bundle to upload before materialization")
	cmd.Flags().StringVar(&ref, "ref", "", "Commit or tag to deploy")
	cmd.Flags().BoolVar(&useTag, "tag", false, "Resolve --ref in the tag namespace only")
	cmd.Flags().StringVar(&runtime, "runtime", deploy.DefaultRuntimeVersion, "Runtime version (must already be installed)")
	cmd.Flags().StringVar(&transition, "transition", "skip", "Process transition: skip, restart or reload")
	cmd.Flags().StringVar(&processName, "process", "", "Managed process name (required unless --transition=skip)")
	cmd.Flags().StringVar(&hostList, "hosts", "", "Comma-separated hosts to trust (default the target host)")
	cmd.Flags().StringVar(&keyPath, "key-path", "", "Private key for channel auth")
	cmd.Flags().IntVar(&port, "port", 0, "SSH port override")
	cmd.Flags().BoolVar(&localMode, "local", false, "Deploy to this machine without SSH")
	cmd.Flags().BoolVar(&insecure, "insecure-ignore-host-key", false, "Skip host key verification (testing only)")
	cmd.Flags().BoolVar(&askPassphrase, "ask-passphrase", false, "Prompt for the private key passphrase")

	return cmd
}

// loadProject reads the project file into a deployment config. With no --file
// flag a missing ./.shipway.yaml just means flags carry the whole config.
func loadProject(path string) (deploy.Config, error) {
	var (
		project *config.Project
		err     error
	)

	if path != "" {
		project, err = config.LoadFile(path)
	} else {
		project, err = config.Load(".")
		if errors.Is(err, config.ErrNotFound) {
			return deploy.Config{}, nil
		}
	}

	if err != nil {
		return deploy.Config{}, err
	}

	return project.DeployConfig(), nil
}

// setString overlays a flag value onto a project file value. An explicitly
// set flag always wins; otherwise the flag default fills empty fields only.
func setString(flags *pflag.FlagSet, name string, dst *string, value string) {
	if flags.Changed(name) || *dst == "" {
		*dst = value
	}
}

func readPassphrase() (string, error) {
	fmt.Fprint(os.Stderr, "key passphrase: ")

	b, err := term.ReadPassword(int(os.Stdin.Fd()))

	fmt.Fprintln(os.Stderr)

	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}

	return string(b), nil
}

func printReport(out io.Writer, report *shipway.Report) {
	if report == nil {
		return
	}

	for _, res := range report.Results {
		switch res.Status {
		case shipway.StatusOK:
			fmt.Fprintln(out, okStyle.Render(fmt.Sprintf("✔ %s (%s)", res.Stage, round(res.Duration))))
		case shipway.StatusPartial:
			fmt.Fprintln(out, warnStyle.Render(fmt.Sprintf("! %s (%s): %v", res.Stage, round(res.Duration), res.Err)))
		case shipway.StatusFailed:
			fmt.Fprintln(out, failStyle.Render(fmt.Sprintf("✖ %s: %v", res.Stage, res.Err)))
		case shipway.StatusSkipped:
			fmt.Fprintln(out, skipStyle.Render("- "+res.Stage+" (skipped)"))
		}
	}
}

func round(d time.Duration) time.Duration {
	return d.Round(10 * time.Millisecond)
}
