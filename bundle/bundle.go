// Package bundle embeds the resize tool executables and assembles the
// provisioning table from the embedded files and configured overrides.
package bundle

import (
	"embed"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sa6mwa/vdrun/platform"
	"github.com/sa6mwa/vdrun/provision"
)

//go:embed bin
var files embed.FS

// FS returns the embedded executables, rooted at bin/.
func FS() fs.FS {
	sub, err := fs.Sub(files, "bin")
	if err != nil {
		panic(err)
	}
	return sub
}

// Options select where executables come from besides the bundle.
type Options struct {
	// Paths take precedence over everything else.
	Paths map[platform.Tag]string
	// Dir is searched for executables the bundle does not carry.
	Dir string
}

// Table builds the provisioning table for every supported platform using
// the names from r. Lookup order per platform is Paths, the embedded bundle,
// then Dir. Platforms found nowhere are left out, so provisioning them fails
// with provision.ErrExecutableMissing.
func Table(r platform.Resolver, embedded fs.FS, opts Options) provision.Table {
	table := make(provision.Table, len(platform.Tags))
	for _, tag := range platform.Tags {
		name := r.Name(tag)
		if p := opts.Paths[tag]; p != "" {
			table[tag] = provision.FileSource(p)
			continue
		}
		if embedded != nil {
			if st, err := fs.Stat(embedded, name); err == nil && st.Mode().IsRegular() {
				table[tag] = provision.FSSource(embedded, name)
				continue
			}
		}
		if opts.Dir != "" {
			p := filepath.Join(opts.Dir, name)
			if _, err := os.Stat(p); err == nil {
				table[tag] = provision.FileSource(p)
			}
		}
	}
	return table
}

// Describe reports where the executable for tag would come from, or
// "missing".
func Describe(table provision.Table, tag platform.Tag) string {
	src, ok := table[tag]
	switch {
	case !ok:
		return "missing"
	case src.Path != "":
		return src.Path
	case src.FS != nil:
		return "embedded:" + src.Name
	default:
		return "embedded"
	}
}
