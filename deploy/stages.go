package deploy

import (
	"context"
	"fmt"

	"github.com/shipwaylabs/shipway"
	"github.com/shipwaylabs/shipway/artifact"
	"github.com/shipwaylabs/shipway/process"
	"github.com/shipwaylabs/shipway/source"
	"github.com/shipwaylabs/shipway/toolchain"
)

// Stage names, in pipeline order. Exported so the invoking orchestration
// layer can match report entries.
const (
	StageHostTrust    = "host-trust"
	StageUpload       = "artifact-upload"
	StagePreHook      = "pre-hook"
	StageSourceSync   = "source-sync"
	StageMaterialize  = "materialize"
	StageRuntime      = "runtime"
	StageDependencies = "dependencies"
	StageTransition   = "transition"
	StagePostHook     = "post-hook"
)

func (d *Deployment) stages(lazy *lazyChannel) []shipway.Stage {
	cfg := d.cfg
	tree := cfg.Target.DeployPath

	// Resolved by the runtime stage, consumed by dependencies and
	// transition. The pipeline is sequential, so plain shared state works.
	var rt *toolchain.Runtime

	var stages []shipway.Stage

	if !cfg.Local && !cfg.InsecureIgnoreHostKey {
		stages = append(stages, shipway.StageFunc{
			StageName: StageHostTrust,
			Fn: func(ctx context.Context) error {
				report, err := d.store.Ensure(ctx, cfg.TrustHosts)
				if report != nil {
					d.log.Info("host trust ensured",
						"added", len(report.Added),
						"skipped", len(report.Skipped),
						"failed", len(report.Failed))
				}

				return err
			},
		})
	}

	if cfg.LocalBundle != "" {
		stages = append(stages, shipway.StageFunc{
			StageName: StageUpload,
			Fn: func(ctx context.Context) error {
				ch, err := lazy.get(ctx)
				if err != nil {
					return err
				}

				opts := []shipway.FileOption{shipway.WithPermissions(0o644)}
				if d.progress != nil {
					opts = append(opts, shipway.WithProgress(d.progress))
				}

				return ch.Upload(ctx, cfg.LocalBundle, cfg.Bundle, opts...)
			},
		})
	}

	stages = append(stages, d.hookStages(StagePreHook, cfg.PreHooks, lazy)...)

	stages = append(stages, shipway.StageFunc{
		StageName: StageSourceSync,
		Fn: func(ctx context.Context) error {
			ch, err := lazy.get(ctx)
			if err != nil {
				return err
			}

			return source.NewSyncer(ch).Sync(ctx, tree, cfg.Ref, cfg.UseTagNamespace)
		},
	})

	stages = append(stages, shipway.StageFunc{
		StageName: StageMaterialize,
		Fn: func(ctx context.Context) error {
			ch, err := lazy.get(ctx)
			if err != nil {
				return err
			}

			set, err := artifact.NewMaterializer(ch).Materialize(ctx, cfg.Bundle, tree)
			if err != nil {
				return err
			}

			d.log.Info("artifact materialized",
				"applied", len(set.Applied),
				"preserved", len(set.Preserved))

			for _, cerr := range set.CleanupErrs {
				d.log.Warn("post-materialization cleanup", "error", cerr)
			}

			return nil
		},
	})

	stages = append(stages, shipway.StageFunc{
		StageName: StageRuntime,
		Fn: func(ctx context.Context) error {
			ch, err := lazy.get(ctx)
			if err != nil {
				return err
			}

			rt, err = toolchain.NewInstaller(ch).PrepareRuntime(ctx, cfg.RuntimeVersion)
			if err != nil {
				return err
			}

			d.log.Info("runtime resolved", "version", rt.Version, "bin", rt.BinDir)

			return nil
		},
	})

	stages = append(stages, shipway.StageFunc{
		StageName: StageDependencies,
		Fn: func(ctx context.Context) error {
			ch, err := lazy.get(ctx)
			if err != nil {
				return err
			}

			return toolchain.NewInstaller(ch).InstallDependencies(ctx, rt, tree)
		},
	})

	stages = append(stages, shipway.StageFunc{
		StageName: StageTransition,
		Fn: func(ctx context.Context) error {
			if cfg.Policy == shipway.PolicySkip {
				return nil
			}

			ch, err := lazy.get(ctx)
			if err != nil {
				return err
			}

			var opts []process.Option
			if rt != nil {
				opts = append(opts, process.WithBinDir(rt.BinDir))
			}

			return process.NewController(ch, opts...).Apply(ctx, cfg.Process, cfg.Policy)
		},
	})

	stages = append(stages, d.hookStages(StagePostHook, cfg.PostHooks, lazy)...)

	return stages
}

// hookStages turns each hook command into its own named stage. Hooks run in
// the working tree; a non-zero exit is fatal like any stage failure.
func (d *Deployment) hookStages(kind string, hooks []string, lazy *lazyChannel) []shipway.Stage {
	stages := make([]shipway.Stage, 0, len(hooks))

	for i, hook := range hooks {
		name := kind
		if len(hooks) > 1 {
			name = fmt.Sprintf("%s-%d", kind, i+1)
		}

		stages = append(stages, shipway.StageFunc{
			StageName: name,
			Fn: func(ctx context.Context) error {
				ch, err := lazy.get(ctx)
				if err != nil {
					return err
				}

				cmd, err := shipway.ParseCommand(hook)
				if err != nil {
					return fmt.Errorf("parsing hook %q: %w", hook, err)
				}

				cmd.Dir = d.cfg.Target.DeployPath

				_, err = shipway.RunCheck(ctx, ch, cmd)

				return err
			},
		})
	}

	return stages
}
