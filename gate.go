// Package vdrun runs a platform-specific resize tool against Android vector
// drawables. The tool ships inside the binary (or next to it during
// development); for every invocation it is resolved for the running OS,
// materialized to a runnable path, started as
//
//	<tool> -i /abs/path/res/drawable/ic_launcher.xml
//
// and its merged output streamed to the diagnostic logger. When the tool
// exits the host is asked to reload the file from disk.
//
//	g := vdrun.New(vdrun.Options{Provisioner: provision.New(table, provision.Options{})})
//	res, err := g.Invoke(ctx, vdrun.NewRequest("app/src/main/res/drawable/ic.xml"))
package vdrun

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sa6mwa/vdrun/platform"
	"github.com/sa6mwa/vdrun/port"
	"github.com/sa6mwa/vdrun/provision"
)

// drawablePattern is matched against "<grandparent>/<parent>/<file>".
const drawablePattern = "res/{drawable,drawable-*}/*.xml"

// Eligible reports whether path names an XML file directly inside a
// res/drawable or res/drawable-<qualifier> folder. It only looks at the
// path as given, so relative paths must spell out both folders; see
// CheckTarget for the full check.
func Eligible(path string) bool {
	clean := filepath.Clean(path)
	dir := filepath.Dir(clean)
	tail := filepath.Base(filepath.Dir(dir)) + "/" + filepath.Base(dir) + "/" + filepath.Base(clean)
	ok, err := doublestar.Match(drawablePattern, tail)
	return err == nil && ok
}

// CheckTarget verifies that the absolute form of target is Eligible and an
// existing regular file, returning that absolute path. Failures match
// ErrNotEligible.
func CheckTarget(target string) (string, error) {
	abs, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNotEligible, err)
	}
	if !Eligible(abs) {
		return "", fmt.Errorf("%w: %s is not an xml file in res/drawable*", ErrNotEligible, target)
	}
	st, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNotEligible, err)
	}
	if !st.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s is not a regular file", ErrNotEligible, abs)
	}
	return abs, nil
}

// Provisioner materializes a platform executable. *provision.Provisioner
// implements it.
type Provisioner interface {
	Provision(ctx context.Context, exe platform.Executable) (*provision.Resolved, error)
}

// fileProvisioner is implemented by provisioners that can bypass memfd.
type fileProvisioner interface {
	ProvisionFile(ctx context.Context, exe platform.Executable) (*provision.Resolved, error)
}

// Options configure a Gate.
type Options struct {
	// OSName is matched by the resolver; empty means platform.HostOSName().
	OSName      string
	Resolver    platform.Resolver
	Provisioner Provisioner
	// Runner defaults to commandrunner.Default.
	Runner port.CommandRunner
	// Host defaults to a host that ignores progress and refresh requests.
	Host         port.Host
	Logger       *log.Logger
	Timeout      time.Duration
	KillOnCancel bool
}

// Gate is the entry point: it checks eligibility and drives one target
// through resolve, provision, run and refresh.
type Gate struct {
	osName       string
	resolver     platform.Resolver
	provisioner  Provisioner
	runner       port.CommandRunner
	host         port.Host
	logger       *log.Logger
	timeout      time.Duration
	killOnCancel bool
}

func New(opts Options) *Gate {
	g := &Gate{
		osName:       opts.OSName,
		resolver:     opts.Resolver,
		provisioner:  opts.Provisioner,
		runner:       opts.Runner,
		host:         opts.Host,
		logger:       opts.Logger,
		timeout:      opts.Timeout,
		killOnCancel: opts.KillOnCancel,
	}
	if g.osName == "" {
		g.osName = platform.HostOSName()
	}
	if g.provisioner == nil {
		g.provisioner = provision.New(nil, provision.Options{})
	}
	if g.host == nil {
		g.host = nopHost{}
	}
	if g.logger == nil {
		g.logger = log.Default()
	}
	return g
}

// Enabled reports whether the trigger should be offered for target.
func (g *Gate) Enabled(target string) bool {
	_, err := CheckTarget(target)
	return err == nil
}

// Invoke runs the tool against req.Target and blocks until it exits. The
// host's Refresh is called exactly once after the tool exits, whatever its
// exit code; it is not called when an earlier stage fails or the wait is
// interrupted.
func (g *Gate) Invoke(ctx context.Context, req Request) (Result, error) {
	runID := uuid.NewString()
	logger := g.logger.With("run", runID, "target", req.Target)

	target, err := CheckTarget(req.Target)
	if err != nil {
		logger.Error("target rejected", "err", err)
		return Result{RunID: runID, ExitCode: -1}, err
	}

	exe, err := g.resolver.Resolve(g.osName)
	if err != nil {
		logger.Error("cannot resolve executable", "err", err)
		return Result{RunID: runID, ExitCode: -1}, err
	}

	g.host.ReportProgress(fmt.Sprintf("Preparing %s", exe.Name))
	resolved, err := g.provisioner.Provision(ctx, exe)
	if err != nil {
		logger.Error("cannot provision executable", "executable", exe.Name, "err", err)
		return Result{RunID: runID, ExitCode: -1}, err
	}
	defer func() {
		if err := resolved.Close(); err != nil {
			logger.Debug("release executable", "path", resolved.Path, "err", err)
		}
	}()
	logger.Debug("executable ready", "path", resolved.Path, "provenance", resolved.Provenance)

	args := append([]string{"-i", target}, req.Args...)
	pr := &ProcessRunner{
		Runner:       g.runner,
		Timeout:      g.timeout,
		KillOnCancel: g.killOnCancel,
		Sink: func(line string) {
			logger.Info(line)
		},
	}
	g.host.ReportProgress(fmt.Sprintf("Processing %s", filepath.Base(target)))
	res, err := pr.Run(ctx, resolved.Path, args...)
	if err != nil && resolved.IsMemfd() && errors.Is(err, ErrLaunchFailed) && launchHint(err) == hintNotExecutable {
		if fp, ok := g.provisioner.(fileProvisioner); ok {
			logger.Debug("memfd not executable, retrying from temporary file", "err", err)
			fallback, ferr := fp.ProvisionFile(ctx, exe)
			if ferr != nil {
				err = fmt.Errorf("%w; fallback to temporary file failed: %v", err, ferr)
			} else {
				if cerr := resolved.Close(); cerr != nil {
					logger.Debug("release executable", "path", resolved.Path, "err", cerr)
				}
				resolved = fallback
				res, err = pr.Run(ctx, resolved.Path, args...)
			}
		}
	}
	res.RunID = runID
	if err != nil {
		logger.Error("tool run failed", "err", err)
		return res, err
	}
	if res.Success {
		logger.Info("tool finished", "exit", res.ExitCode)
	} else {
		logger.Warn("tool exited with non-zero status", "exit", res.ExitCode)
	}

	if err := g.host.Refresh(ctx, target); err != nil {
		logger.Warn("refresh failed", "err", err)
	}
	return res, nil
}

// InvokeSelected invokes the tool on the host's selected target.
func (g *Gate) InvokeSelected(ctx context.Context, args ...string) (Result, error) {
	target, err := g.host.SelectedTarget()
	if err != nil {
		return Result{ExitCode: -1}, fmt.Errorf("%w: %w", ErrNotEligible, err)
	}
	return g.Invoke(ctx, NewRequest(target, args...))
}

// InvokeAsync runs Invoke on a new goroutine so the caller never blocks.
// Cancelling the returned Background interrupts the wait.
func (g *Gate) InvokeAsync(parent context.Context, req Request) *Background {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan Result, 1)
	go func() {
		defer cancel()
		res, err := g.Invoke(ctx, req)
		if err != nil {
			res.Error = err
		}
		done <- res
		close(done)
	}()
	return &Background{
		Context: ctx,
		Cancel:  cancel,
		Done:    done,
	}
}

// InvokeAll invokes every request, at most limit at a time (no limit when
// limit <= 0). Invocations are independent: one failing does not cancel the
// others. Results are in request order; the returned error joins every
// failure.
func (g *Gate) InvokeAll(ctx context.Context, reqs []Request, limit int) ([]Result, error) {
	results := make([]Result, len(reqs))
	errs := make([]error, len(reqs))
	var eg errgroup.Group
	if limit > 0 {
		eg.SetLimit(limit)
	}
	for i, req := range reqs {
		eg.Go(func() error {
			res, err := g.Invoke(ctx, req)
			if err != nil {
				res.Error = err
			}
			results[i] = res
			errs[i] = err
			return nil
		})
	}
	eg.Wait()
	return results, errors.Join(errs...)
}

type nopHost struct{}

func (nopHost) SelectedTarget() (string, error) {
	return "", errors.New("no target selected")
}

func (nopHost) ReportProgress(string) {}

func (nopHost) Refresh(context.Context, string) error { return nil }
