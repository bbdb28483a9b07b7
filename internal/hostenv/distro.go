package hostenv

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shirou/gopsutil/v4/host"

	"github.com/blackwell-systems/srsl/internal/apt"
)

// OSReleasePath is read for the release codename.
var OSReleasePath = "/etc/os-release"

// DetectDistro identifies the running distribution. Anything that is not
// Ubuntu, Debian or a derivative naming one of them in ID_LIKE is
// unsupported.
func DetectDistro(ctx context.Context) (apt.Distro, error) {
	platform, family, version, err := host.PlatformInformationWithContext(ctx)
	if err != nil {
		return apt.Distro{}, fmt.Errorf("%w: failed to detect platform: %w", ErrEnvironmentUnsupported, err)
	}

	osRelease := map[string]string{}
	if f, err := os.Open(OSReleasePath); err == nil {
		osRelease = ParseOSRelease(f)
		f.Close()
	}

	return distroFromRelease(platform, family, version, osRelease)
}

// ParseOSRelease reads KEY=value pairs in os-release(5) format.
func ParseOSRelease(r io.Reader) map[string]string {
	values := make(map[string]string)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		values[key] = strings.Trim(value, `"'`)
	}
	return values
}

func distroFromRelease(platform, family, version string, osRelease map[string]string) (apt.Distro, error) {
	id := canonicalID(platform)
	if id == "" {
		id = canonicalID(osRelease["ID"])
	}
	if id == "" {
		for _, like := range strings.Fields(osRelease["ID_LIKE"]) {
			if id = canonicalID(like); id != "" {
				break
			}
		}
	}
	if id == "" && family != "debian" {
		return apt.Distro{}, fmt.Errorf("%w: %s is not a Debian-family distribution", ErrEnvironmentUnsupported, firstNonEmpty(platform, osRelease["ID"], "this system"))
	}
	if id == "" {
		id = "Debian"
	}

	// Derivatives carry the codename of their Ubuntu base in UBUNTU_CODENAME.
	codename := osRelease["VERSION_CODENAME"]
	if id == "Ubuntu" && osRelease["UBUNTU_CODENAME"] != "" {
		codename = osRelease["UBUNTU_CODENAME"]
	}
	if codename == "" {
		return apt.Distro{}, fmt.Errorf("%w: cannot determine the %s release codename", ErrEnvironmentUnsupported, id)
	}

	return apt.Distro{
		ID:          id,
		Codename:    codename,
		Release:     firstNonEmpty(osRelease["VERSION_ID"], version),
		Description: osRelease["PRETTY_NAME"],
	}, nil
}

// canonicalID maps an os-release ID to the Origin label of its archive.
func canonicalID(s string) string {
	switch strings.ToLower(s) {
	case "ubuntu":
		return "Ubuntu"
	case "debian":
		return "Debian"
	default:
		return ""
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
