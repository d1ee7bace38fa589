package envdisc

import (
	"os"
	"path/filepath"
)

// Strategy locates one tool root on the host. Discovery is best effort: a
// miss is not an error, it simply leaves the binding unset for Validate to
// report later.
type Strategy interface {
	// Discover returns the resolved path and whether it was found.
	Discover() (string, bool)
}

// DriveProbe searches a fixed subdirectory under each drive root for a known
// marker file. The build environment is usually a mounted ISO, so it can
// appear at the root of any drive; the first match wins.
type DriveProbe struct {
	Roots  []string // drive roots to probe; defaults to A:..Z:
	Subdir string   // subdirectory expected under each root
	Marker string   // file that must exist inside Subdir
}

// DriveRoots enumerates the conventional drive-letter roots.
func DriveRoots() []string {
	roots := make([]string, 0, 26)
	for letter := 'A'; letter <= 'Z'; letter++ {
		roots = append(roots, string(letter)+":")
	}
	return roots
}

func (p DriveProbe) Discover() (string, bool) {
	roots := p.Roots
	if len(roots) == 0 {
		roots = DriveRoots()
	}
	for _, root := range roots {
		dir := filepath.Join(root, p.Subdir)
		if _, err := os.Stat(filepath.Join(dir, p.Marker)); err == nil {
			return dir, true
		}
	}
	return "", false
}

// FixedPath probes a single hardcoded location. When Markers is non-empty,
// every listed relative path must exist under Root; otherwise Root itself
// must exist.
type FixedPath struct {
	Root    string
	Markers []string
}

func (p FixedPath) Discover() (string, bool) {
	if len(p.Markers) == 0 {
		if _, err := os.Stat(p.Root); err != nil {
			return "", false
		}
		return p.Root, true
	}
	for _, marker := range p.Markers {
		if _, err := os.Stat(filepath.Join(p.Root, marker)); err != nil {
			return "", false
		}
	}
	return p.Root, true
}
