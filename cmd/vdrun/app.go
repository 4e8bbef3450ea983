package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/sa6mwa/vdrun"
	"github.com/sa6mwa/vdrun/bundle"
	"github.com/sa6mwa/vdrun/internal/config"
	"github.com/sa6mwa/vdrun/internal/filestate"
	"github.com/sa6mwa/vdrun/internal/host"
	"github.com/sa6mwa/vdrun/platform"
	"github.com/sa6mwa/vdrun/provision"
)

// app is the wired launcher for one CLI invocation.
type app struct {
	cfg      *config.Config
	cfgFile  string
	stdout   io.Writer
	logger   *log.Logger
	resolver platform.Resolver
	table    provision.Table
	host     *host.Host
	gate     *vdrun.Gate
}

func newApp(flags *rootFlags, stdout, stderr io.Writer) (*app, error) {
	cfg, used, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}

	logger := log.NewWithOptions(stderr, log.Options{
		Prefix: "vdrun",
	})
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	if flags.verbose {
		level = log.DebugLevel
	}
	logger.SetLevel(level)
	if used != "" {
		logger.Debug("loaded config", "file", used)
	}

	paths := make(map[platform.Tag]string, len(cfg.Tool.Paths))
	for k, v := range cfg.Tool.Paths {
		paths[platform.Tag(k)] = v
	}
	resolver := platform.Resolver{Names: cfg.ExecutableNames()}
	table := bundle.Table(resolver, bundle.FS(), bundle.Options{
		Paths: paths,
		Dir:   cfg.Tool.Dir,
	})

	h := host.New(logger, filestate.NewCache())
	prov := provision.New(table, provision.Options{
		TempDir: cfg.Provision.TempDir,
		Memfd:   cfg.Provision.Memfd,
		Logger:  logger,
	})
	gate := vdrun.New(vdrun.Options{
		Resolver:     resolver,
		Provisioner:  prov,
		Host:         h,
		Logger:       logger,
		Timeout:      cfg.Run.Timeout,
		KillOnCancel: cfg.Run.KillOnCancel,
	})
	return &app{
		cfg:      cfg,
		cfgFile:  used,
		stdout:   stdout,
		logger:   logger,
		resolver: resolver,
		table:    table,
		host:     h,
		gate:     gate,
	}, nil
}

// withPolicy restricts embedded executables to tool.allow_digests when any
// are configured.
func (a *app) withPolicy(ctx context.Context) (context.Context, error) {
	if len(a.cfg.Tool.AllowDigests) == 0 {
		return ctx, nil
	}
	ctx = provision.WithPolicy(ctx, provision.DENY)
	ctx, err := provision.WithRule(ctx, provision.ALLOW, strings.Join(a.cfg.Tool.AllowDigests, "\n"))
	if err != nil {
		return nil, fmt.Errorf("tool.allow_digests: %w", err)
	}
	return ctx, nil
}

func (a *app) requests(targets, extra []string) []vdrun.Request {
	args := append(append([]string{}, a.cfg.Run.Args...), extra...)
	reqs := make([]vdrun.Request, 0, len(targets))
	for _, t := range targets {
		reqs = append(reqs, vdrun.NewRequest(t, args...))
	}
	return reqs
}
