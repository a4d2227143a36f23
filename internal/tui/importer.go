package tui

import (
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	maxCandidates  = 8
	candidateDepth = 3
)

type candidatesMsg struct {
	dir   string
	paths []string
}

// findCandidates lists import candidates off the update loop.
func findCandidates(dir string) tea.Cmd {
	return func() tea.Msg {
		return candidatesMsg{dir: dir, paths: importCandidates(dir)}
	}
}

// candidatePatterns matches JSON files at most candidateDepth path
// elements below the root, so directories deeper than that are never read.
func candidatePatterns() []string {
	out := make([]string, candidateDepth)
	for d := range candidateDepth {
		out[d] = strings.Repeat("*/", d) + "*.json"
	}
	return out
}

// importCandidates lists JSON files under dir that could be bookmark
// exports, shallow ones first and files named *-bookmarks.json before the
// rest. Hidden directories are skipped.
func importCandidates(dir string) []string {
	fsys := os.DirFS(dir)
	var out []string
	for _, pattern := range candidatePatterns() {
		ms, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			continue
		}
		for _, m := range ms {
			if !hidden(strings.Split(m, "/")) {
				out = append(out, m)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		bi, bj := isExport(out[i]), isExport(out[j])
		if bi != bj {
			return bi
		}
		di, dj := strings.Count(out[i], "/"), strings.Count(out[j], "/")
		if di != dj {
			return di < dj
		}
		return out[i] < out[j]
	})
	if len(out) > maxCandidates {
		out = out[:maxCandidates]
	}
	for i, m := range out {
		out[i] = filepath.Join(dir, filepath.FromSlash(m))
	}
	return out
}

func isExport(p string) bool {
	return strings.HasSuffix(path.Base(p), "-bookmarks.json")
}

func hidden(parts []string) bool {
	for _, p := range parts {
		if strings.HasPrefix(p, ".") || p == "node_modules" {
			return true
		}
	}
	return false
}
