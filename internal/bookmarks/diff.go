package bookmarks

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"
)

// PreviewImport returns a unified diff between the current export and the
// export the store would hold after importing r. Nothing is written. An
// empty string means the import would change nothing.
func (s *Store) PreviewImport(r io.Reader) (string, error) {
	imported, err := s.parseImport(r)
	if err != nil {
		return "", err
	}

	current := s.Load()
	before, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal current: %w", err)
	}
	after, err := json.MarshalIndent(current.Clone().Merge(imported), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal merged: %w", err)
	}

	a, b := string(before)+"\n", string(after)+"\n"
	edits := myers.ComputeEdits(span.URIFromPath(s.ExportFileName()), a, b)
	if len(edits) == 0 {
		return "", nil
	}
	return fmt.Sprint(gotextdiff.ToUnified("current", "imported", a, edits)), nil
}
