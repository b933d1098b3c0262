// Package migrations carries the snapfeed schema as embedded SQL files.
// Files are numbered so lexicographic order is apply order.
package migrations

import (
	"embed"
	"sort"
)

//go:embed *.sql
var FS embed.FS

// Files lists embedded migration filenames in apply order.
func Files() ([]string, error) {
	entries, err := FS.ReadDir(".")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
