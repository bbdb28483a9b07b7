package provenance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/srsl/internal/apt"
)

func keyNames(matches []KeyMatch) []string {
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Key.Name)
	}
	return out
}

func TestMatchKeys_Rules(t *testing.T) {
	tests := []struct {
		name      string
		candidate Candidate
		key       string
		want      []Rule
	}{
		{
			name:      "key name inside package name",
			candidate: Candidate{Name: "docker-ce"},
			key:       "docker",
			want:      []Rule{RuleName, RuleCasefold},
		},
		{
			name:      "package name inside key name",
			candidate: Candidate{Name: "docker"},
			key:       "docker-ce release key",
			want:      []Rule{RuleName, RuleCasefold},
		},
		{
			name:      "origin inside key name",
			candidate: Candidate{Name: "code", Origin: "Microsoft"},
			key:       "Microsoft (Release signing) <gpgsecurity@microsoft.com>",
			want:      []Rule{RuleOrigin},
		},
		{
			name:      "label contains key name",
			candidate: Candidate{Name: "signal-desktop", Label: "Signal Desktop Repository"},
			key:       "Signal Desktop",
			want:      []Rule{RuleLabel, RuleCasefold},
		},
		{
			name:      "casefold with hyphens as spaces",
			candidate: Candidate{Name: "yandex-disk"},
			key:       "Yandex Disk Team <disk@yandex-team.ru>",
			want:      []Rule{RuleCasefold},
		},
		{
			name:      "obs project path in repo line",
			candidate: Candidate{Name: "tool", RepoLine: "deb [] http://download.opensuse.org/repositories/home:/alice/xUbuntu_22.04/ /"},
			key:       `home\x3aalice OBS Project <home\x3aalice@build.opensuse.org>`,
			want:      []Rule{RuleOBS},
		},
		{
			name:      "obs key without escapes",
			candidate: Candidate{Name: "tool", RepoLine: "deb http://download.opensuse.org/repositories/home:/bob/Debian_12/ /"},
			key:       "home:bob OBS Project <home:bob@build.opensuse.org>",
			want:      []Rule{RuleOBS},
		},
		{
			name:      "unrelated",
			candidate: Candidate{Name: "google-chrome-stable", Origin: "Google LLC", Label: "Google"},
			key:       "Microsoft (Release signing)",
			want:      nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches := MatchKeys(tt.candidate, []apt.TrustKey{{ID: "K1", Name: tt.key}})
			if tt.want == nil {
				assert.Empty(t, matches)
				return
			}
			require.Len(t, matches, 1)
			assert.Equal(t, tt.want, matches[0].Rules)
		})
	}
}

func TestMatchKeys_NameRuleIsSymmetric(t *testing.T) {
	pairs := [][2]string{{"docker", "docker-ce"}, {"chrome", "google-chrome"}, {"a", "abc"}}
	for _, p := range pairs {
		forward := MatchKeys(Candidate{Name: p[0]}, []apt.TrustKey{{ID: "K", Name: p[1]}})
		backward := MatchKeys(Candidate{Name: p[1]}, []apt.TrustKey{{ID: "K", Name: p[0]}})
		require.NotEmpty(t, forward, p)
		require.NotEmpty(t, backward, p)
		assert.Contains(t, forward[0].Rules, RuleName)
		assert.Contains(t, backward[0].Rules, RuleName)
	}
}

func TestMatchKeys_SkipsLaunchpadAndEmptyNames(t *testing.T) {
	keys := []apt.TrustKey{
		{ID: "L1", Name: "Launchpad PPA for OBS Studio"},
		{ID: "E1", Name: ""},
		{ID: "G1", Name: "Google Inc. (Linux Packages Signing Authority) <linux-packages-keymaster@google.com>"},
	}

	matches := MatchKeys(Candidate{Name: "obs-studio", Origin: "", Label: ""}, keys)
	assert.Empty(t, matches, "empty names and origins must not match everything")

	matches = MatchKeys(Candidate{Name: "google-chrome-stable", Origin: "Google LLC", Label: "Google"}, keys)
	assert.Equal(t, []string{keys[2].Name}, keyNames(matches))
	assert.Equal(t, []Rule{RuleLabel}, matches[0].Rules)
}

func TestMatchKeys_CollectsEveryMatchingKey(t *testing.T) {
	keys := []apt.TrustKey{
		{ID: "A", Name: "Docker Release (CE deb) <docker@docker.com>"},
		{ID: "B", Name: "docker"},
		{ID: "A", Name: "Docker Secondary uid"},
	}
	matches := MatchKeys(Candidate{Name: "docker-ce", Label: "Docker"}, keys)
	assert.Equal(t, []string{"Docker Release (CE deb) <docker@docker.com>", "docker", "Docker Secondary uid"}, keyNames(matches))
}

func TestDecodeHexEscapes(t *testing.T) {
	assert.Equal(t, "home:alice", decodeHexEscapes(`home\x3aalice`))
	assert.Equal(t, `bad\xZZ`, decodeHexEscapes(`bad\xZZ`))
	assert.Equal(t, `tail\x3`, decodeHexEscapes(`tail\x3`))
	assert.Equal(t, "plain", decodeHexEscapes("plain"))
}
