package provenance

import "strings"

// StripOption removes every token containing word from the options block
// of a one-line repository entry, e.g. signed-by paths that only make sense
// on the host they were saved from:
//
//	deb [signed-by=/a/b.gpg arch=amd64] http://x/y bionic stable
//	deb [arch=amd64] http://x/y bionic stable
//
// A block left empty stays as "[]" after the deb keyword. Lines without
// exactly one well-formed options block are returned unchanged.
func StripOption(line, word string) string {
	if strings.Count(line, "]") != 1 {
		return line
	}
	open := strings.IndexByte(line, '[')
	end := strings.IndexByte(line, ']')
	if open < 0 || open > end {
		return line
	}

	head := strings.TrimRight(line[:open], " \t")
	rest := line[end+1:]

	var kept []string
	for _, tok := range strings.Fields(line[open+1 : end]) {
		if !strings.Contains(tok, word) {
			kept = append(kept, tok)
		}
	}

	return head + " [" + strings.Join(kept, " ") + "]" + rest
}

// ppaHosts are the Launchpad PPA host markers, old and new.
var ppaHosts = []string{"ppa.launchpad.net/", "ppa.launchpadcontent.net/"}

// PPAShortcut turns a Launchpad PPA URL or deb line into its
// "ppa:<user>/<name>" form. It returns "" when the URL is not a PPA or
// lacks the two path segments after the host.
func PPAShortcut(url string) string {
	for _, host := range ppaHosts {
		i := strings.Index(url, host)
		if i < 0 {
			continue
		}
		segments := strings.SplitN(url[i+len(host):], "/", 3)
		if len(segments) < 2 {
			return ""
		}
		name := strings.Fields(segments[1])
		if segments[0] == "" || len(name) == 0 || strings.HasPrefix(segments[1], " ") {
			return ""
		}
		return "ppa:" + segments[0] + "/" + name[0]
	}
	return ""
}
