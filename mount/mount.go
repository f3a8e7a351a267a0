// Package mount implements the drive table (A..P, each mapped to a
// host directory) and the path-resolution rules BDOS uses to turn a
// guest-supplied, possibly drive-relative, possibly dot-dot-laden path
// into an absolute host filesystem path.
package mount

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// MaxDrives is the number of drive letters CP/M-3 exposes (A..P).
const MaxDrives = 16

// ErrInvalidDrive is returned for a drive index with no host path
// mounted.
var ErrInvalidDrive = errors.New("mount: invalid or unmounted drive")

// Table is the A..P drive table: each entry is either empty (unmounted)
// or a host directory root, plus that drive's current directory,
// stored relative to its root ("" means the drive's root).
type Table struct {
	roots [MaxDrives]string
	cwd   [MaxDrives]string
}

// New returns an empty drive table; every drive starts unmounted.
func New() *Table {
	return &Table{}
}

// Mount assigns a host directory as the root of the given drive (0=A).
func (t *Table) Mount(drive int, hostRoot string) {
	if drive < 0 || drive >= MaxDrives {
		return
	}
	t.roots[drive] = filepath.Clean(hostRoot)
	t.cwd[drive] = ""
}

// IsMounted reports whether the given drive has a host path assigned.
func (t *Table) IsMounted(drive int) bool {
	return drive >= 0 && drive < MaxDrives && t.roots[drive] != ""
}

// Root returns the host directory a drive is mounted at.
func (t *Table) Root(drive int) (string, error) {
	if !t.IsMounted(drive) {
		return "", ErrInvalidDrive
	}
	return t.roots[drive], nil
}

// CurrentDir returns a drive's current directory, relative to its
// mount root ("" at the root).
func (t *Table) CurrentDir(drive int) string {
	if drive < 0 || drive >= MaxDrives {
		return ""
	}
	return t.cwd[drive]
}

// HostPath returns the absolute host path a drive's current directory
// maps to.
func (t *Table) HostPath(drive int) (string, error) {
	root, err := t.Root(drive)
	if err != nil {
		return "", err
	}
	if t.cwd[drive] == "" {
		return root, nil
	}
	return filepath.Join(root, t.cwd[drive]), nil
}

// Resolve turns a guest path specification into an absolute host path:
// the spec may be empty (current directory of the given default drive),
// may start with a drive letter and colon (selects a different drive),
// may start with a path separator (absolute within the drive), and may
// contain ".."  components, which are collapsed against the drive's
// root rather than escaping it.
//
// defaultDrive is used when spec carries no "D:" prefix. The resolved
// drive index is returned alongside the host path.
func (t *Table) Resolve(defaultDrive int, spec string) (hostPath string, drive int, err error) {
	drive = defaultDrive
	spec = strings.ToUpper(spec)
	spec = strings.TrimLeft(spec, " ")

	if len(spec) >= 2 && isDriveLetter(spec[0]) && spec[1] == ':' {
		drive = int(spec[0] - 'A')
		spec = spec[2:]
	}

	if !t.IsMounted(drive) {
		return "", drive, ErrInvalidDrive
	}

	spec = strings.ReplaceAll(spec, "\\", "/")

	absolute := strings.HasPrefix(spec, "/")
	spec = strings.TrimPrefix(spec, "/")

	var rel string
	if absolute {
		rel = spec
	} else if spec == "" {
		rel = t.cwd[drive]
	} else if t.cwd[drive] == "" {
		rel = spec
	} else {
		rel = t.cwd[drive] + "/" + spec
	}

	rel = collapseDotDot(rel)

	root := t.roots[drive]
	if rel == "" {
		return root, drive, nil
	}
	return filepath.Join(root, rel), drive, nil
}

// ChangeDir moves a drive's current directory to the resolved form of
// spec, returning an error if the resulting directory does not exist
// on the host.
func (t *Table) ChangeDir(defaultDrive int, spec string) error {
	host, drive, err := t.Resolve(defaultDrive, spec)
	if err != nil {
		return err
	}

	info, err := os.Stat(host)
	if err != nil || !info.IsDir() {
		return errors.New("mount: directory does not exist")
	}

	root := t.roots[drive]
	rel, err := filepath.Rel(root, host)
	if err != nil {
		return err
	}
	if rel == "." {
		rel = ""
	}
	t.cwd[drive] = filepath.ToSlash(rel)
	return nil
}

func isDriveLetter(c byte) bool {
	return c >= 'A' && c <= 'P'
}

// collapseDotDot removes ".." path components without ever climbing
// above the drive root: "AAA/BBB/../CCC" becomes "AAA/CCC", and excess
// ".." at the front of the path are simply dropped rather than escaping
// the mount root.
func collapseDotDot(path string) string {
	parts := strings.Split(path, "/")
	stack := make([]string, 0, len(parts))
	for _, p := range parts {
		switch p {
		case "", ".":
			// skip
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			stack = append(stack, p)
		}
	}
	return strings.Join(stack, "/")
}
