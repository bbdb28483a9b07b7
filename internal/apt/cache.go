package apt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/blackwell-systems/srsl/internal/command"
)

// policyBatch bounds the number of package names passed to one
// apt-cache policy invocation.
const policyBatch = 200

// Paths locates the apt and dpkg state the cache reads.
type Paths struct {
	Status         string
	ExtendedStates string
	ListsDir       string
}

// DefaultPaths returns the standard Debian locations.
func DefaultPaths() Paths {
	return Paths{
		Status:         "/var/lib/dpkg/status",
		ExtendedStates: "/var/lib/apt/extended_states",
		ListsDir:       "/var/lib/apt/lists",
	}
}

// Cache answers package questions from the dpkg database and apt-cache.
// Policy output is fetched lazily and kept for the lifetime of the Cache.
type Cache struct {
	runner command.Runner
	paths  Paths

	fileOrigins map[string]Origin
	policies    map[string]*Policy
	trust       map[string]bool
}

// NewCache creates a Cache that runs apt-cache through runner.
func NewCache(runner command.Runner, paths Paths) *Cache {
	return &Cache{
		runner:   runner,
		paths:    paths,
		policies: make(map[string]*Policy),
		trust:    make(map[string]bool),
	}
}

// ListInstalled returns every installed package with its auto-installed
// flag set. Origins are filled separately by FillOrigins.
func (c *Cache) ListInstalled(ctx context.Context) ([]*Package, error) {
	data, err := os.ReadFile(c.paths.Status)
	if err != nil {
		return nil, fmt.Errorf("failed to read dpkg status: %w", err)
	}
	packages, err := ParseStatus(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	states := AutoStates{}
	data, err = os.ReadFile(c.paths.ExtendedStates)
	switch {
	case err == nil:
		states, err = ParseExtendedStates(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
	case errors.Is(err, fs.ErrNotExist):
		// A fresh system has no extended_states: nothing is automatic yet.
	default:
		return nil, fmt.Errorf("failed to read extended states: %w", err)
	}

	for _, pkg := range packages {
		pkg.AutoInstalled = states.IsAuto(pkg.Name, pkg.Architecture)
	}
	return packages, nil
}

// FillOrigins sets Origins on each package from the package files of its
// installed version, in apt's order.
func (c *Cache) FillOrigins(ctx context.Context, packages []*Package) error {
	if err := c.loadFileOrigins(ctx); err != nil {
		return err
	}

	names := make([]string, 0, len(packages))
	for _, pkg := range packages {
		names = append(names, pkg.Name)
	}
	if err := c.loadPolicies(ctx, names); err != nil {
		return err
	}

	for _, pkg := range packages {
		policy, ok := c.policies[pkg.Name]
		if !ok {
			continue
		}
		pkg.Origins = pkg.Origins[:0]
		for _, file := range policy.InstalledFiles() {
			pkg.Origins = append(pkg.Origins, c.originOf(file))
		}
	}
	return nil
}

// CandidateFiles returns the package files of a package's candidate
// version, in apt's order.
func (c *Cache) CandidateFiles(ctx context.Context, name string) ([]PackageFile, error) {
	if err := c.loadPolicies(ctx, []string{name}); err != nil {
		return nil, err
	}
	policy, ok := c.policies[name]
	if !ok {
		return nil, nil
	}
	return policy.CandidateFiles(), nil
}

func (c *Cache) originOf(file PackageFile) Origin {
	o, ok := c.fileOrigins[file.Path]
	if !ok && file.Path == StatusFile {
		o = Origin{Archive: "now"}
	}
	if file.IsPackageIndex() {
		o.Trusted = c.isTrusted(file.URI(), file.Suite())
	}
	return o
}

func (c *Cache) loadFileOrigins(ctx context.Context) error {
	if c.fileOrigins != nil {
		return nil
	}
	output, err := c.runner.Output(ctx, "apt-cache", "policy")
	if err != nil {
		return err
	}
	origins, err := ParseFileOrigins(bytes.NewReader(output))
	if err != nil {
		return err
	}
	c.fileOrigins = origins
	return nil
}

func (c *Cache) loadPolicies(ctx context.Context, names []string) error {
	var missing []string
	for _, name := range names {
		if _, ok := c.policies[name]; !ok {
			missing = append(missing, name)
		}
	}

	for start := 0; start < len(missing); start += policyBatch {
		end := min(start+policyBatch, len(missing))
		args := append([]string{"policy"}, missing[start:end]...)
		output, err := c.runner.Output(ctx, "apt-cache", args...)
		if err != nil {
			return err
		}
		policies, err := ParsePolicies(bytes.NewReader(output))
		if err != nil {
			return err
		}
		for name, p := range policies {
			c.policies[name] = p
		}
	}
	return nil
}

// TrustSources marks the repositories whose source line carries
// trusted=yes. apt treats those as trusted without a signed Release file.
func (c *Cache) TrustSources(lines []string) {
	for _, line := range lines {
		entry, ok := ParseSourceLine(line)
		if !ok || !strings.EqualFold(entry.Options["trusted"], "yes") {
			continue
		}
		c.trust[trustKey(entry.URI, entry.Suite)] = true
	}
}

// isTrusted reports whether apt holds a signed Release file for the
// repository suite.
func (c *Cache) isTrusted(uri, suite string) bool {
	if uri == "" || suite == "" {
		return false
	}
	key := trustKey(uri, suite)
	if trusted, ok := c.trust[key]; ok {
		return trusted
	}

	base := releaseBase(uri, suite)
	trusted := false
	for _, name := range []string{"InRelease", "Release.gpg"} {
		if _, err := os.Stat(filepath.Join(c.paths.ListsDir, ListFileName(base+name))); err == nil {
			trusted = true
			break
		}
	}
	c.trust[key] = trusted
	return trusted
}

func trustKey(uri, suite string) string {
	return strings.TrimSuffix(uri, "/") + " " + suite
}

// ListFileName mangles a repository URI into the file name apt uses under
// its lists directory: the scheme and credentials are dropped, unsafe
// characters are %-quoted and slashes become underscores.
func ListFileName(uri string) string {
	if _, rest, ok := strings.Cut(uri, "://"); ok {
		uri = rest
	}
	if at := strings.IndexByte(uri, '@'); at >= 0 {
		if slash := strings.IndexByte(uri, '/'); slash < 0 || at < slash {
			uri = uri[at+1:]
		}
	}

	const unsafe = "\\|{}[]<>\"^~_=!@#$%^&*"
	var sb strings.Builder
	for i := 0; i < len(uri); i++ {
		ch := uri[i]
		switch {
		case ch == '/':
			sb.WriteByte('_')
		case ch <= 0x20 || ch >= 0x7f || strings.IndexByte(unsafe, ch) >= 0:
			fmt.Fprintf(&sb, "%%%02x", ch)
		default:
			sb.WriteByte(ch)
		}
	}
	return sb.String()
}
