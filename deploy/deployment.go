// Package deploy assembles the standard deployment pipeline: host trust,
// artifact upload, pre-hooks, source sync, materialization, runtime and
// dependency installation, process transition, post-hooks.
//
// The channel is dialed lazily on first use, after the trust stage has had a
// chance to establish host keys, and is closed when the run finishes. There
// is no rollback: a failed run halts and the report says how far it got.
package deploy

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shipwaylabs/shipway"
	"github.com/shipwaylabs/shipway/channel/local"
	sshchannel "github.com/shipwaylabs/shipway/channel/ssh"
	"github.com/shipwaylabs/shipway/trust"
)

// OpenFunc dials the channel the stages run over.
type OpenFunc func(ctx context.Context) (shipway.Channel, error)

// Deployment runs the standard pipeline for one target.
type Deployment struct {
	cfg      Config
	log      *slog.Logger
	open     OpenFunc
	store    *trust.Store
	progress shipway.ProgressFunc
}

// Option defines a functional option for a Deployment.
type Option func(*Deployment)

// WithLogger routes deployment logs to the given logger.
func WithLogger(log *slog.Logger) Option {
	return func(d *Deployment) {
		if log != nil {
			d.log = log
		}
	}
}

// WithChannel replaces how the channel is dialed. Tests inject mock or local
// channels through this.
func WithChannel(open OpenFunc) Option {
	return func(d *Deployment) {
		d.open = open
	}
}

// WithTrustStore replaces the trust store used by the host-trust stage.
func WithTrustStore(store *trust.Store) Option {
	return func(d *Deployment) {
		d.store = store
	}
}

// WithUploadProgress reports artifact upload progress to fn.
func WithUploadProgress(fn shipway.ProgressFunc) Option {
	return func(d *Deployment) {
		d.progress = fn
	}
}

// New creates a Deployment from cfg. Defaults are applied before validation.
func New(cfg Config, opts ...Option) (*Deployment, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	d := &Deployment{
		cfg: cfg,
		log: slog.Default(),
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.open == nil {
		d.open = d.dial
	}

	if d.store == nil {
		d.store = trust.NewStore(cfg.TrustStorePath)
	}

	return d, nil
}

// Run executes the pipeline and returns its report. The report is returned
// alongside a non-nil error when a stage failed; callers decide how to
// surface partial progress.
func (d *Deployment) Run(ctx context.Context) (*shipway.Report, error) {
	lazy := &lazyChannel{open: d.open}
	defer func() {
		if err := lazy.Close(); err != nil {
			d.log.Warn("closing channel", "error", err)
		}
	}()

	pipe := shipway.NewPipeline(d.stages(lazy), shipway.WithLogger(d.log))

	return pipe.Run(ctx)
}

func (d *Deployment) dial(_ context.Context) (shipway.Channel, error) {
	if d.cfg.Local {
		return local.New(), nil
	}

	opts := []sshchannel.Option{
		sshchannel.WithKnownHosts(d.cfg.TrustStorePath),
		sshchannel.WithKeyPath(d.cfg.KeyPath),
	}

	if d.cfg.Passphrase != "" {
		opts = append(opts, sshchannel.WithPassphrase(d.cfg.Passphrase))
	}

	if d.cfg.Port != 0 {
		opts = append(opts, sshchannel.WithPort(d.cfg.Port))
	}

	if d.cfg.InsecureIgnoreHostKey {
		opts = append(opts, sshchannel.WithInsecureIgnoreHostKey(true))
	}

	return sshchannel.New(d.cfg.Target.Host, d.cfg.Target.User, opts...)
}

// lazyChannel memoizes the first successful dial so every stage shares one
// channel, and nothing dials at all if the run fails before first use.
type lazyChannel struct {
	open OpenFunc

	mu sync.Mutex
	ch shipway.Channel
}

func (l *lazyChannel) get(ctx context.Context) (shipway.Channel, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ch != nil {
		return l.ch, nil
	}

	ch, err := l.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening channel: %w", err)
	}

	l.ch = ch

	return ch, nil
}

func (l *lazyChannel) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ch == nil {
		return nil
	}

	err := l.ch.Close()
	l.ch = nil

	return err
}
