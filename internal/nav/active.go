package nav

import (
	"strings"

	"github.com/starford/navgate/internal/menu"
)

// RootURL is the dashboard entry. It only matches itself.
const RootURL = "/"

// IsTopLevelActive reports whether n is highlighted at path.
//
// Matching is a plain byte prefix test, so "/clients" is also active at
// "/clientsx". The root url is special-cased to an exact match, otherwise
// it would be active everywhere.
func IsTopLevelActive(n menu.Node, path string) bool {
	if n.Dead() {
		return false
	}
	if n.URL == RootURL {
		return path == RootURL
	}
	if n.URL != "" && strings.HasPrefix(path, n.URL) {
		return true
	}
	for _, s := range n.SubMenus {
		if IsChildActive(s.URL, path) {
			return true
		}
	}
	return false
}

// IsChildActive reports whether a child with url is highlighted at path.
func IsChildActive(url, path string) bool {
	return url != "" && strings.HasPrefix(path, url)
}

// ActiveIndex returns the index of the first active node, or -1. When
// several siblings match, the earliest one in tree order wins.
func ActiveIndex(nodes []menu.Node, path string) int {
	for i, n := range nodes {
		if IsTopLevelActive(n, path) {
			return i
		}
	}
	return -1
}
