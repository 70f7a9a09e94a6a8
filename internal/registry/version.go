package registry

import (
	"strconv"
	"strings"
)

// CompareVersions compares two dotted versions numerically.
// Returns 1 if a > b, -1 if a < b, 0 if equal. A leading "v" and any
// pre-release/build suffix ("-beta", "+sha") are ignored; missing
// components count as zero, so "1.0" equals "1.0.0".
func CompareVersions(a, b string) int {
	pa, pb := parseVersion(a), parseVersion(b)
	n := len(pa)
	if len(pb) > n {
		n = len(pb)
	}
	for i := 0; i < n; i++ {
		var x, y int
		if i < len(pa) {
			x = pa[i]
		}
		if i < len(pb) {
			y = pb[i]
		}
		if x > y {
			return 1
		}
		if x < y {
			return -1
		}
	}
	return 0
}

// parseVersion splits a version into its numeric components.
func parseVersion(v string) []int {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		v = v[:i]
	}
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ".")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			n = 0
		}
		out[i] = n
	}
	return out
}

// LatestVersion returns the highest version in versions, or "" if empty.
func LatestVersion(versions []string) string {
	latest := ""
	for _, v := range versions {
		if latest == "" || CompareVersions(v, latest) > 0 {
			latest = v
		}
	}
	return latest
}
