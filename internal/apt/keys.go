package apt

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/blackwell-systems/srsl/internal/command"
)

// DefaultKeyringPaths are the keyring files and directories read with gpg
// alongside apt-key.
var DefaultKeyringPaths = []string{
	"/etc/apt/trusted.gpg",
	"/etc/apt/trusted.gpg.d",
	"/etc/apt/keyrings",
	"/usr/share/keyrings",
}

type keyParseState int

const (
	awaitingPub keyParseState = iota
	awaitingUID
)

// ParseKeyRecords reads gpg --with-colons --fixed-list-mode output and
// returns one TrustKey per (key, user id) pair. A pub record that carries
// a user id yields a key on its own; every following uid record yields
// another entry for the same key id. uid records seen before any pub are
// ignored.
func ParseKeyRecords(r io.Reader) ([]TrustKey, error) {
	var keys []TrustKey

	state := awaitingPub
	var current TrustKey
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), ":")
		if len(fields) < 10 {
			continue
		}

		switch fields[0] {
		case "pub":
			current = TrustKey{
				ID:     fields[4],
				Expiry: parseEpoch(fields[5]),
			}
			state = awaitingUID
			if fields[9] != "" {
				current.Name = fields[9]
				keys = append(keys, current)
			}
		case "uid":
			if state != awaitingUID || fields[9] == "" {
				continue
			}
			k := current
			k.Name = fields[9]
			keys = append(keys, k)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read key listing: %w", err)
	}

	return keys, nil
}

func parseEpoch(s string) time.Time {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return time.Time{}
	}
	return time.Unix(n, 0).UTC()
}

// ListKeys returns the signing keys apt trusts: the keys apt-key lists
// merged with the keys read by gpg from the keyring files under
// keyringPaths. Keyrings named by signed-by options are not known to
// apt-key, so they are read even when apt-key works. It fails only when
// neither source yields anything.
func ListKeys(ctx context.Context, runner command.Runner, keyringPaths []string) ([]TrustKey, error) {
	var keys []TrustKey
	var aptKeyErr error
	output, err := runner.Output(ctx, "apt-key", "--quiet", "adv", "--with-colons", "--batch", "--fixed-list-mode", "--list-keys")
	if err == nil {
		keys, err = ParseKeyRecords(bytes.NewReader(output))
		if err != nil {
			return nil, err
		}
	} else {
		aptKeyErr = err
		slog.Debug("apt-key unavailable, reading keyrings with gpg", "error", err)
	}

	files := keyringFiles(keyringPaths)
	if aptKeyErr != nil && len(files) == 0 {
		return nil, fmt.Errorf("failed to list apt keys: %w", aptKeyErr)
	}

	for _, file := range files {
		output, err := runner.Output(ctx, "gpg", "--show-keys", "--with-colons", "--fixed-list-mode", file)
		if err != nil {
			slog.Warn("skipping unreadable keyring", "file", file, "error", err)
			continue
		}
		parsed, err := ParseKeyRecords(bytes.NewReader(output))
		if err != nil {
			return nil, err
		}
		keys = append(keys, parsed...)
	}
	return dedupKeys(keys), nil
}

// dedupKeys drops repeated (id, user id) pairs, keeping the first.
func dedupKeys(keys []TrustKey) []TrustKey {
	seen := make(map[string]bool, len(keys))
	out := keys[:0]
	for _, k := range keys {
		id := k.ID + "\x00" + k.Name
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, k)
	}
	return out
}

// SignedByKeyrings returns the keyring files named by the signed-by option
// of the given source lines, in order and without repeats. Fingerprint
// values are skipped.
func SignedByKeyrings(lines []string) []string {
	var paths []string
	seen := make(map[string]bool)
	for _, line := range lines {
		entry, ok := ParseSourceLine(line)
		if !ok {
			continue
		}
		for _, p := range strings.Split(entry.Options["signed-by"], ",") {
			if !filepath.IsAbs(p) || seen[p] {
				continue
			}
			seen[p] = true
			paths = append(paths, p)
		}
	}
	return paths
}

// keyringFiles expands directories into their .gpg and .asc files.
func keyringFiles(paths []string) []string {
	var files []string
	seen := make(map[string]bool)
	add := func(names ...string) {
		for _, name := range names {
			if !seen[name] {
				seen[name] = true
				files = append(files, name)
			}
		}
	}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			add(filepath.Clean(p))
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			continue
		}
		var names []string
		for _, e := range entries {
			ext := filepath.Ext(e.Name())
			if !e.IsDir() && (ext == ".gpg" || ext == ".asc") {
				names = append(names, filepath.Join(p, e.Name()))
			}
		}
		sort.Strings(names)
		add(names...)
	}
	return files
}
