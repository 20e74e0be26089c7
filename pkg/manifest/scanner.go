package manifest

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/hasentry/sentry/pkg/observability"
)

// DescriptorName is the fixed file name that marks a directory as a component.
const DescriptorName = "manifest.json"

// Location identifies one discovered component descriptor. The component id
// is derived from the containing directory name, not from descriptor content,
// so a usable id exists even when the descriptor later fails to parse.
type Location struct {
	ID             string
	Dir            string
	DescriptorPath string
}

// Alternate is a directory found by the fallback search that does contain
// component descriptors.
type Alternate struct {
	Path  string `json:"path"`
	Count int    `json:"count"`
}

// Diagnostics records the outcome of scanning every candidate root. It is the
// caller's evidence when a scan comes back empty.
type Diagnostics struct {
	CheckedRoots      []string    `json:"checked_roots"`
	FoundRoots        []string    `json:"found_roots"`
	MissingRoots      []string    `json:"missing_roots"`
	EmptyRoots        []string    `json:"empty_roots"`
	UnreadableRoots   []string    `json:"unreadable_roots,omitempty"`
	UnmatchedPatterns []string    `json:"unmatched_patterns,omitempty"`
	Alternates        []Alternate `json:"alternates,omitempty"`
}

// Empty reports whether the scan found no descriptors at all.
func (d *Diagnostics) Empty() bool {
	return len(d.FoundRoots) == 0
}

// wellKnownAlternateRoots are checked by the fallback search when no
// configured root yields any descriptors. These mirror the mount points a
// supervised installation exposes.
var wellKnownAlternateRoots = []string{
	"/config",
	"/homeassistant",
	"/usr/share/hassio/homeassistant",
	"/usr/src",
	"/usr/local",
	"/data",
}

// componentDirNames are subdirectory names the fallback search inspects.
var componentDirNames = map[string]bool{
	"custom_components": true,
	"components":        true,
}

// Scanner locates component descriptors beneath candidate root directories.
type Scanner struct {
	logger         *observability.Logger
	descriptorName string

	// alternateRoots overrides the well-known fallback locations; used by
	// tests to avoid touching the real filesystem layout.
	alternateRoots []string
}

// NewScanner creates a Scanner. A nil logger falls back to the default.
func NewScanner(logger *observability.Logger) *Scanner {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Scanner{
		logger:         logger,
		descriptorName: DescriptorName,
		alternateRoots: wellKnownAlternateRoots,
	}
}

// WithAlternateRoots replaces the fallback search locations.
func (s *Scanner) WithAlternateRoots(roots []string) *Scanner {
	s.alternateRoots = roots
	return s
}

// Scan walks the candidate roots and returns one Location per discovered
// component, in root order then directory order. Missing or unreadable roots
// are recorded in the diagnostics, never returned as errors. When zero
// descriptors are found across all roots, a bounded fallback search of
// alternate locations populates Diagnostics.Alternates.
func (s *Scanner) Scan(roots []string) ([]Location, *Diagnostics) {
	expanded, unmatched := s.expandGlobs(roots)
	expanded = dedupePreservingOrder(expanded)

	diag := &Diagnostics{
		CheckedRoots:      expanded,
		UnmatchedPatterns: unmatched,
	}

	s.logger.Infof("Scanning %d candidate root(s) for component descriptors", len(expanded))

	var locations []Location
	for _, root := range expanded {
		info, err := os.Stat(root)
		if err != nil {
			if os.IsNotExist(err) {
				diag.MissingRoots = append(diag.MissingRoots, root)
				s.logger.Debugf("Root does not exist: %s", root)
			} else {
				diag.UnreadableRoots = append(diag.UnreadableRoots, root)
				s.logger.WithError(err).Warnf("Cannot stat root: %s", root)
			}
			continue
		}
		if !info.IsDir() {
			diag.EmptyRoots = append(diag.EmptyRoots, root)
			continue
		}

		found, err := s.scanRoot(root)
		if err != nil {
			diag.UnreadableRoots = append(diag.UnreadableRoots, root)
			s.logger.WithError(err).Warnf("Cannot read root: %s", root)
			continue
		}
		if len(found) == 0 {
			diag.EmptyRoots = append(diag.EmptyRoots, root)
			s.logger.Debugf("Root exists but contains no components: %s", root)
			continue
		}

		diag.FoundRoots = append(diag.FoundRoots, root)
		s.logger.Infof("Found %d component descriptor(s) under %s", len(found), root)
		locations = append(locations, found...)
	}

	if len(locations) == 0 {
		s.logger.Warnf("No component descriptors found in %d checked root(s)", len(expanded))
		diag.Alternates = s.searchAlternates()
		if len(diag.Alternates) > 0 {
			for _, alt := range diag.Alternates {
				s.logger.Warnf("Alternate component path found: %s (%d descriptors)", alt.Path, alt.Count)
			}
		} else {
			s.logger.Warn("No alternate component paths found in well-known locations")
		}
	}

	return locations, diag
}

// scanRoot returns a Location for every immediate subdirectory of root that
// contains a descriptor file.
func (s *Scanner) scanRoot(root string) ([]Location, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	var found []Location
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		descriptor := filepath.Join(dir, s.descriptorName)
		if _, err := os.Stat(descriptor); err != nil {
			continue
		}
		found = append(found, Location{
			ID:             entry.Name(),
			Dir:            dir,
			DescriptorPath: descriptor,
		})
	}
	return found, nil
}

// expandGlobs expands any glob patterns in the candidate list and collects
// patterns that matched nothing.
func (s *Scanner) expandGlobs(roots []string) (expanded, unmatched []string) {
	for _, root := range roots {
		if !strings.ContainsAny(root, "*?[") {
			expanded = append(expanded, root)
			continue
		}
		matches, err := filepath.Glob(root)
		if err != nil || len(matches) == 0 {
			unmatched = append(unmatched, root)
			continue
		}
		expanded = append(expanded, matches...)
	}
	return expanded, unmatched
}

// searchAlternates performs a depth-limited search of well-known locations for
// directories that do contain descriptors. It never fails; at worst it finds
// nothing.
func (s *Scanner) searchAlternates() []Alternate {
	var alternates []Alternate
	for _, base := range s.alternateRoots {
		entries, err := os.ReadDir(base)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			full := filepath.Join(base, entry.Name())
			switch {
			case entry.Name() == "homeassistant":
				// Prefer the components subdirectory when present.
				components := filepath.Join(full, "components")
				if n := s.countDescriptors(components); n > 0 {
					alternates = append(alternates, Alternate{Path: components, Count: n})
				} else if n := s.countDescriptors(full); n > 0 {
					alternates = append(alternates, Alternate{Path: full, Count: n})
				}
			case componentDirNames[entry.Name()]:
				if n := s.countDescriptors(full); n > 0 {
					alternates = append(alternates, Alternate{Path: full, Count: n})
				}
			}
		}
	}
	return alternates
}

// countDescriptors counts descriptor files in immediate subdirectories.
func (s *Scanner) countDescriptors(root string) int {
	entries, err := os.ReadDir(root)
	if err != nil {
		return 0
	}
	count := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(root, entry.Name(), s.descriptorName)); err == nil {
			count++
		}
	}
	return count
}

func dedupePreservingOrder(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}
