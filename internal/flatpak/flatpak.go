// Package flatpak saves and restores system-wide Flatpak remotes and refs.
package flatpak

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/blackwell-systems/srsl/internal/command"
)

// ErrRepositoryAddFailed is returned when no URL candidate for a remote
// could be added.
var ErrRepositoryAddFailed = errors.New("repository add failed")

// Remote is a configured Flatpak repository.
type Remote struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Ref is an installed application or runtime.
type Ref struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Arch   string `json:"arch"`
	Branch string `json:"branch"`
	Origin string `json:"origin"`
}

// String returns the ref in flatpak's kind/name/arch/branch form.
func (r Ref) String() string {
	return r.Kind + "/" + r.Name + "/" + r.Arch + "/" + r.Branch
}

// Document is the saved Flatpak inventory.
type Document struct {
	SavedAt time.Time `json:"saved_at"`
	Remotes []Remote  `json:"remotes"`
	Refs    []Ref     `json:"refs"`
}

// ParseRemotes parses `flatpak remotes --columns=name,url` output. OCI
// remotes lose their oci+ prefix.
func ParseRemotes(r io.Reader) ([]Remote, error) {
	remotes := []Remote{}
	err := eachRow(r, 2, func(cols []string) {
		remotes = append(remotes, Remote{Name: cols[0], URL: strings.TrimPrefix(cols[1], "oci+")})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read flatpak remotes: %w", err)
	}
	return remotes, nil
}

// ParseRefs parses `flatpak list --columns=application,arch,branch,origin,options`
// output.
func ParseRefs(r io.Reader) ([]Ref, error) {
	refs := []Ref{}
	err := eachRow(r, 5, func(cols []string) {
		kind := "app"
		for _, opt := range strings.Split(cols[4], ",") {
			if strings.TrimSpace(opt) == "runtime" {
				kind = "runtime"
			}
		}
		refs = append(refs, Ref{Name: cols[0], Kind: kind, Arch: cols[1], Branch: cols[2], Origin: cols[3]})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read flatpak refs: %w", err)
	}
	return refs, nil
}

// eachRow calls fn for every tab-separated row with at least n columns.
func eachRow(r io.Reader, n int, fn func([]string)) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		cols := strings.Split(scanner.Text(), "\t")
		if len(cols) < n || strings.TrimSpace(cols[0]) == "" {
			continue
		}
		for i := range cols {
			cols[i] = strings.TrimSpace(cols[i])
		}
		fn(cols)
	}
	return scanner.Err()
}

// Snapshot collects the system remotes and installed refs.
func Snapshot(ctx context.Context, runner command.Runner) (*Document, error) {
	output, err := runner.Output(ctx, "flatpak", "remotes", "--system", "--columns=name,url")
	if err != nil {
		return nil, err
	}
	remotes, err := ParseRemotes(strings.NewReader(string(output)))
	if err != nil {
		return nil, err
	}

	output, err = runner.Output(ctx, "flatpak", "list", "--system", "--columns=application,arch,branch,origin,options")
	if err != nil {
		return nil, err
	}
	refs, err := ParseRefs(strings.NewReader(string(output)))
	if err != nil {
		return nil, err
	}

	return &Document{Remotes: remotes, Refs: refs}, nil
}

// RepoURLCandidates lists where a remote's .flatpakrepo file may live, in
// the order they are tried: next to the repository URL, at the top level
// of the host, one level down, and under /flatpak-refs/.
func RepoURLCandidates(r Remote) []string {
	full := strings.TrimPrefix(r.URL, "oci+")
	if !strings.HasSuffix(full, "/") {
		full += "/"
	}
	full += r.Name + ".flatpakrepo"

	candidates := []string{full}
	u, err := url.Parse(full)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return candidates
	}

	base := u.Scheme + "://" + u.Host + "/"
	file := path.Base(u.Path)
	candidates = append(candidates, base+file)

	segments := strings.Split(strings.TrimPrefix(u.Path, "/"), "/")
	if len(segments) > 1 {
		candidates = append(candidates, base+segments[0]+"/"+file)
	}
	candidates = append(candidates, base+"flatpak-refs/"+file)

	return dedupe(candidates)
}

func dedupe(values []string) []string {
	seen := make(map[string]bool)
	out := values[:0]
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// AddRemote registers a remote, trying each URL candidate in turn.
func AddRemote(ctx context.Context, runner command.Runner, r Remote) error {
	var errs []error
	for _, candidate := range RepoURLCandidates(r) {
		_, err := runner.CombinedOutput(ctx, "flatpak", "remote-add", "--system", "--if-not-exists", r.Name, candidate)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	return fmt.Errorf("%w: %s (%s): %w", ErrRepositoryAddFailed, r.Name, r.URL, errors.Join(errs...))
}

// RefreshRemote fetches the appstream metadata of a newly added remote so
// its refs can be resolved before installing.
func RefreshRemote(ctx context.Context, runner command.Runner, name string) error {
	if _, err := runner.CombinedOutput(ctx, "flatpak", "update", "--appstream", "--system", "--noninteractive", name); err != nil {
		return fmt.Errorf("failed to refresh flatpak remote %s: %w", name, err)
	}
	return nil
}

// Install installs one ref from its origin remote.
func Install(ctx context.Context, runner command.Runner, ref Ref) error {
	if _, err := runner.CombinedOutput(ctx, "flatpak", "install", "-y", "--noninteractive", "--system", ref.Origin, ref.String()); err != nil {
		return fmt.Errorf("failed to install flatpak %s: %w", ref.Name, err)
	}
	return nil
}
