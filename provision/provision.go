// Package provision turns a platform executable identifier into a path the
// operating system can run. Executables either live on the filesystem
// (development layout) and are used in place, or are embedded in the binary
// and get materialized into a fresh temporary file (or, on Linux, an
// anonymous memfd) per call.
package provision

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/sa6mwa/vdrun/platform"
)

var (
	ErrExecutableMissing = errors.New("executable missing")
	ErrExtractionFailed  = errors.New("extraction failed")
	ErrPayloadIsEmpty    = errors.New("payload is empty")
)

// Provenance tells where a resolved executable came from.
type Provenance int

const (
	Filesystem Provenance = iota
	Embedded
)

func (p Provenance) String() string {
	switch p {
	case Filesystem:
		return "filesystem"
	case Embedded:
		return "embedded"
	default:
		return fmt.Sprintf("provenance(%d)", p)
	}
}

// Source locates one executable. Exactly one of Path, Payload or FS should
// be set.
type Source struct {
	// Path is an executable on disk, used as-is.
	Path string
	// Payload is an embedded executable image.
	Payload []byte
	// FS and Name point at an embedded executable inside a file system,
	// typically an embed.FS.
	FS   fs.FS
	Name string
}

// FileSource returns a Source for an executable already on disk.
func FileSource(path string) Source { return Source{Path: path} }

// BlobSource returns a Source for an in-memory executable image.
func BlobSource(payload []byte) Source { return Source{Payload: payload} }

// FSSource returns a Source for an executable stored in fsys.
func FSSource(fsys fs.FS, name string) Source { return Source{FS: fsys, Name: name} }

func (s Source) embedded() bool {
	return s.Path == "" && (s.Payload != nil || s.FS != nil)
}

func (s Source) open() (io.ReadCloser, error) {
	if s.FS != nil {
		f, err := s.FS.Open(s.Name)
		if err != nil {
			return nil, err
		}
		st, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, err
		}
		if st.IsDir() {
			f.Close()
			return nil, fs.ErrNotExist
		}
		return f, nil
	}
	return io.NopCloser(bytes.NewReader(s.Payload)), nil
}

// Table is the resource table injected into a Provisioner.
type Table map[platform.Tag]Source

// Resolved is a runnable executable owned by a single invocation.
type Resolved struct {
	Path       string
	Platform   platform.Tag
	Name       string
	Provenance Provenance
	// Digest is the hex sha256 of an embedded payload, empty for filesystem
	// executables.
	Digest string

	mu       sync.Mutex
	memfd    *os.File
	tempfile bool
	closed   bool
}

// IsMemfd reports whether Path refers to an anonymous in-memory file.
func (r *Resolved) IsMemfd() bool {
	return r != nil && r.memfd != nil
}

// Close releases the materialized executable. Temporary files are removed,
// memfds closed. Filesystem executables are left untouched. Close is safe to
// call more than once.
func (r *Resolved) Close() error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if r.memfd != nil {
		return r.memfd.Close()
	}
	if r.tempfile {
		if err := os.Remove(r.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Options configure a Provisioner.
type Options struct {
	// TempDir is where embedded executables are extracted. Empty means
	// os.TempDir().
	TempDir string
	// Memfd materializes embedded executables into an anonymous memfd when
	// the platform supports it, falling back to a temporary file.
	Memfd bool
	// Registry receives every extracted temporary file for deletion at
	// shutdown. Nil means Shutdown.
	Registry *Registry
	Logger   *log.Logger
}

// Provisioner resolves executables from a Table.
type Provisioner struct {
	table    Table
	tempDir  string
	memfd    bool
	registry *Registry
	logger   *log.Logger
}

// New returns a Provisioner over table. The table is copied.
func New(table Table, opts Options) *Provisioner {
	t := make(Table, len(table))
	for k, v := range table {
		t[k] = v
	}
	p := &Provisioner{
		table:    t,
		tempDir:  opts.TempDir,
		memfd:    opts.Memfd,
		registry: opts.Registry,
		logger:   opts.Logger,
	}
	if p.registry == nil {
		p.registry = Shutdown
	}
	if p.logger == nil {
		p.logger = log.Default()
	}
	return p
}

// Provision locates exe in the table and returns a runnable path for it.
// Embedded executables are checked against the digest policy carried in ctx
// and written to a new, uniquely named file on every call.
func (p *Provisioner) Provision(ctx context.Context, exe platform.Executable) (*Resolved, error) {
	return p.provision(ctx, exe, p.memfd)
}

// ProvisionFile is Provision without memfd: embedded executables always go
// to a temporary file. It serves as the retry path when a memfd turns out
// not to be executable.
func (p *Provisioner) ProvisionFile(ctx context.Context, exe platform.Executable) (*Resolved, error) {
	return p.provision(ctx, exe, false)
}

func (p *Provisioner) provision(ctx context.Context, exe platform.Executable, memfd bool) (*Resolved, error) {
	src, ok := p.table[exe.Platform]
	if !ok || (src.Path == "" && !src.embedded()) {
		return nil, fmt.Errorf("%w: no resource for %s", ErrExecutableMissing, exe.Name)
	}
	if !src.embedded() {
		return p.fromFilesystem(exe, src.Path)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rc, err := src.open()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s not in bundle", ErrExecutableMissing, exe.Name)
		}
		return nil, fmt.Errorf("%w: open %s: %w", ErrExtractionFailed, exe.Name, err)
	}
	defer rc.Close()

	if memfd {
		r, err := p.toMemfd(ctx, exe, rc)
		if err == nil {
			return r, nil
		}
		if !errors.Is(err, errMemfdUnavailable) {
			return nil, err
		}
		p.logger.Debug("memfd unavailable, extracting to temporary file", "executable", exe.Name)
	}
	return p.toTempfile(ctx, exe, rc)
}

func (p *Provisioner) fromFilesystem(exe platform.Executable, path string) (*Resolved, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrExecutableMissing, path, err)
	}
	st, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecutableMissing, err)
	}
	if st.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrExecutableMissing, abs)
	}
	if err := executable(abs); err != nil {
		return nil, fmt.Errorf("%w: %s is not executable: %w", ErrExecutableMissing, abs, err)
	}
	return &Resolved{
		Path:       abs,
		Platform:   exe.Platform,
		Name:       exe.Name,
		Provenance: Filesystem,
	}, nil
}

// tempPattern keeps the extension last so Windows still recognizes .exe.
func tempPattern(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + "-*" + ext
}

func (p *Provisioner) toTempfile(ctx context.Context, exe platform.Executable, src io.Reader) (*Resolved, error) {
	tmpf, err := os.CreateTemp(p.tempDir, tempPattern(exe.Name))
	if err != nil {
		return nil, fmt.Errorf("%w: create temporary file: %w", ErrExtractionFailed, err)
	}
	name := tmpf.Name()
	cleanup := true
	defer func() {
		if cleanup {
			tmpf.Close()
			os.Remove(name)
		}
	}()
	digest, err := copyDigest(tmpf, src)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to write to temporary file: %w", ErrExtractionFailed, err)
	}
	if err := tmpf.Close(); err != nil {
		return nil, fmt.Errorf("%w: close temporary file: %w", ErrExtractionFailed, err)
	}
	if err := checkDigest(ctx, digest); err != nil {
		return nil, err
	}
	if err := os.Chmod(name, 0o700); err != nil {
		return nil, fmt.Errorf("%w: chmod +x: %w", ErrExtractionFailed, err)
	}
	cleanup = false
	p.registry.Register(name)
	p.logger.Debug("extracted executable", "executable", exe.Name, "path", name)
	return &Resolved{
		Path:       name,
		Platform:   exe.Platform,
		Name:       exe.Name,
		Provenance: Embedded,
		Digest:     hex.EncodeToString(digest[:]),
		tempfile:   true,
	}, nil
}

func (p *Provisioner) toMemfd(ctx context.Context, exe platform.Executable, src io.Reader) (*Resolved, error) {
	f, err := createMemfd(exe.Name)
	if err != nil {
		return nil, err
	}
	digest, err := copyDigest(f, src)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: unable to write payload: %w", ErrExtractionFailed, err)
	}
	if err := checkDigest(ctx, digest); err != nil {
		f.Close()
		return nil, err
	}
	return &Resolved{
		Path:       f.Name(),
		Platform:   exe.Platform,
		Name:       exe.Name,
		Provenance: Embedded,
		Digest:     hex.EncodeToString(digest[:]),
		memfd:      f,
	}, nil
}

func copyDigest(dst io.Writer, src io.Reader) ([32]byte, error) {
	var sum [32]byte
	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(dst, h), src)
	if err != nil {
		return sum, err
	}
	if n == 0 {
		return sum, ErrPayloadIsEmpty
	}
	copy(sum[:], h.Sum(nil))
	return sum, nil
}
