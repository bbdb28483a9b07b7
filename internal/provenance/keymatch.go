package provenance

import (
	"strconv"
	"strings"

	"github.com/blackwell-systems/srsl/internal/apt"
)

// Rule names a key matching heuristic.
type Rule string

const (
	// RuleName: key name and package name contain one another.
	RuleName Rule = "name"
	// RuleOrigin: the repository Origin appears in the key name.
	RuleOrigin Rule = "origin"
	// RuleLabel: repository Label and key name contain one another.
	RuleLabel Rule = "label"
	// RuleCasefold: lowercased names match with hyphens read as spaces.
	RuleCasefold Rule = "casefold"
	// RuleOBS: an openSUSE Build Service key whose project path appears in
	// the repository line.
	RuleOBS Rule = "obs"
)

const (
	launchpadKeyPrefix = "Launchpad"
	obsMarker          = "build.opensuse.org"
)

// Candidate is a third-party package looking for its signing keys.
type Candidate struct {
	Name     string
	Origin   string
	Label    string
	RepoLine string
}

// KeyMatch is a key found for a candidate and the rules that selected it.
type KeyMatch struct {
	Key   apt.TrustKey
	Rules []Rule
}

// MatchKeys returns every key that plausibly signs the candidate's
// repository, in key order. Any single rule is enough. Launchpad PPA keys
// are never candidates.
func MatchKeys(c Candidate, keys []apt.TrustKey) []KeyMatch {
	var matches []KeyMatch
	for _, key := range keys {
		if strings.HasPrefix(key.Name, launchpadKeyPrefix) {
			continue
		}
		if rules := matchRules(c, key.Name); len(rules) > 0 {
			matches = append(matches, KeyMatch{Key: key, Rules: rules})
		}
	}
	return matches
}

func matchRules(c Candidate, keyName string) []Rule {
	var rules []Rule

	if contains(keyName, c.Name) || contains(c.Name, keyName) {
		rules = append(rules, RuleName)
	}
	if contains(keyName, c.Origin) {
		rules = append(rules, RuleOrigin)
	}
	if contains(keyName, c.Label) || contains(c.Label, keyName) {
		rules = append(rules, RuleLabel)
	}

	foldedKey := fold(keyName)
	foldedPkg := fold(c.Name)
	if contains(foldedPkg, foldedKey) || contains(foldedKey, foldedPkg) {
		rules = append(rules, RuleCasefold)
	}

	if strings.Contains(keyName, obsMarker) && c.RepoLine != "" {
		if token := obsRepoUser(keyName); contains(c.RepoLine, token) {
			rules = append(rules, RuleOBS)
		}
	}

	return rules
}

// contains is strings.Contains that never matches an empty needle.
func contains(s, sub string) bool {
	return sub != "" && strings.Contains(s, sub)
}

func fold(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), "-", " ")
}

// obsRepoUser derives the project path from an OBS key name such as
// "home:alice OBS Project <home:alice@build.opensuse.org>", giving
// "home:/alice" as it appears in download.opensuse.org URLs. gpg escapes
// some characters in user ids as \xHH; those are decoded first.
func obsRepoUser(keyName string) string {
	name := strings.ReplaceAll(decodeHexEscapes(keyName), "home:", "home:/")
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func decodeHexEscapes(s string) string {
	if !strings.Contains(s, `\x`) {
		return s
	}

	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+3 < len(s) && s[i+1] == 'x' {
			if b, err := strconv.ParseUint(s[i+2:i+4], 16, 8); err == nil {
				sb.WriteByte(byte(b))
				i += 3
				continue
			}
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}
