package provenance

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/blackwell-systems/srsl/internal/apt"
)

// ErrOriginUnresolved means a package could not be traced to a configured
// repository. Such packages are kept in the inventory but get no
// repository or key reconstruction.
var ErrOriginUnresolved = errors.New("origin unresolved")

// FileSource lists the package files of a package's candidate version.
// *apt.Cache implements it.
type FileSource interface {
	CandidateFiles(ctx context.Context, name string) ([]apt.PackageFile, error)
}

// Resolution ties a package to the package index that provides it and the
// configured repository line serving that index.
type Resolution struct {
	Package string
	// Index describes the package index, "<uri> <suite>/<component> <arch> Packages".
	Index string
	// RepoLine is the matching source line with host-local options stripped.
	RepoLine string
	Err      error
}

// Resolved reports whether a repository line was found.
func (r Resolution) Resolved() bool {
	return r.Err == nil
}

// Resolve finds the repository line a package's candidate version comes
// from. The first Debian package index among the candidate's files is
// used; its URI is matched by substring against sources and the first
// line containing it wins.
func Resolve(ctx context.Context, files FileSource, name string, sources []string) Resolution {
	res := Resolution{Package: name}

	candidates, err := files.CandidateFiles(ctx, name)
	if err != nil {
		res.Err = fmt.Errorf("%w: %s: %w", ErrOriginUnresolved, name, err)
		return res
	}

	var index apt.PackageFile
	for _, f := range candidates {
		if f.IsPackageIndex() {
			index = f
			break
		}
	}
	if index.Path == "" {
		res.Err = fmt.Errorf("%w: %s has no package index", ErrOriginUnresolved, name)
		return res
	}
	res.Index = index.Path

	uri := index.URI()
	for _, line := range sources {
		if strings.Contains(line, uri) {
			res.RepoLine = StripOption(line, "signed-by")
			return res
		}
	}

	res.Err = fmt.Errorf("%w: %s: no source line for %s", ErrOriginUnresolved, name, uri)
	return res
}

// ResolveAll resolves each package in order.
func ResolveAll(ctx context.Context, files FileSource, packages []*apt.Package, sources []string) []Resolution {
	out := make([]Resolution, 0, len(packages))
	for _, pkg := range packages {
		out = append(out, Resolve(ctx, files, pkg.Name, sources))
	}
	return out
}
