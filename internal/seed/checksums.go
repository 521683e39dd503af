package seed

import (
	"bufio"
	"bytes"
	"regexp"
	"sort"
	"strings"
)

// ChecksumFile is the sha256sum listing stored alongside each version.
const ChecksumFile = "checksums.sha256"

var (
	checksumLine   = regexp.MustCompile(`^([a-fA-F0-9]{64})\s+\*?\s*(.+)$`)
	versionPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// ParseChecksums reads sha256sum output into a name to lowercase digest map.
// Blank lines, comments and malformed lines are ignored.
func ParseChecksums(blob []byte) map[string]string {
	out := make(map[string]string)

	scanner := bufio.NewScanner(bytes.NewReader(blob))
	scanner.Buffer(make([]byte, 0, 4096), maxChecksumBytes)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m := checksumLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		out[strings.TrimSpace(m[2])] = strings.ToLower(m[1])
	}
	return out
}

// LatestVersion returns the newest YYYY-MM-DD folder directly under prefix.
func LatestVersion(keys []string, prefix string) (string, error) {
	versions := make(map[string]struct{})
	for _, key := range keys {
		rest, ok := strings.CutPrefix(key, prefix)
		if !ok {
			continue
		}
		folder, _, _ := strings.Cut(rest, "/")
		if versionPattern.MatchString(folder) {
			versions[folder] = struct{}{}
		}
	}
	if len(versions) == 0 {
		return "", ErrNoVersions
	}

	sorted := make([]string, 0, len(versions))
	for v := range versions {
		sorted = append(sorted, v)
	}
	// Zero-padded dates sort lexically
	sort.Strings(sorted)
	return sorted[len(sorted)-1], nil
}
