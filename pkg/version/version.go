package version

import (
	"fmt"
	"strconv"
	"strings"
)

// SaveVersion identifies the schema a save payload was written with.
// The zero value is "0.0.0".
type SaveVersion struct {
	Major      int    `json:"major"`
	Minor      int    `json:"minor"`
	Patch      int    `json:"patch"`
	PreRelease string `json:"pre_release,omitempty"`
}

// New returns a SaveVersion without a pre-release tag.
func New(major, minor, patch int) SaveVersion {
	return SaveVersion{Major: major, Minor: minor, Patch: patch}
}

// WithPreRelease returns a copy of v carrying the given pre-release tag.
func (v SaveVersion) WithPreRelease(tag string) SaveVersion {
	v.PreRelease = tag
	return v
}

// Parse parses "MAJOR.MINOR.PATCH" with an optional "-<tag>" suffix on the
// patch component.
func Parse(raw string) (SaveVersion, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return SaveVersion{}, fmt.Errorf("version is empty")
	}

	parts := strings.Split(value, ".")
	if len(parts) != 3 {
		return SaveVersion{}, fmt.Errorf("invalid version format %q (expected MAJOR.MINOR.PATCH)", raw)
	}

	major, err := parseComponent(parts[0])
	if err != nil {
		return SaveVersion{}, fmt.Errorf("invalid major version in %q", raw)
	}
	minor, err := parseComponent(parts[1])
	if err != nil {
		return SaveVersion{}, fmt.Errorf("invalid minor version in %q", raw)
	}

	patchPart := parts[2]
	var pre string
	if dash := strings.IndexByte(patchPart, '-'); dash >= 0 {
		pre = patchPart[dash+1:]
		patchPart = patchPart[:dash]
		if pre == "" {
			return SaveVersion{}, fmt.Errorf("empty pre-release tag in %q", raw)
		}
	}
	patch, err := parseComponent(patchPart)
	if err != nil {
		return SaveVersion{}, fmt.Errorf("invalid patch version in %q", raw)
	}

	return SaveVersion{Major: major, Minor: minor, Patch: patch, PreRelease: pre}, nil
}

// MustParse is Parse for static version strings; it panics on error.
func MustParse(raw string) SaveVersion {
	v, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return v
}

func parseComponent(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid version component %q", s)
	}
	return n, nil
}

// String renders the dotted form, with "-<tag>" appended for pre-releases.
func (v SaveVersion) String() string {
	if v.PreRelease != "" {
		return fmt.Sprintf("%d.%d.%d-%s", v.Major, v.Minor, v.Patch, v.PreRelease)
	}
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compare orders versions by major, minor, patch. Pre-release tags do not
// participate in ordering.
func (v SaveVersion) Compare(o SaveVersion) int {
	if v.Major != o.Major {
		if v.Major < o.Major {
			return -1
		}
		return 1
	}
	if v.Minor != o.Minor {
		if v.Minor < o.Minor {
			return -1
		}
		return 1
	}
	if v.Patch != o.Patch {
		if v.Patch < o.Patch {
			return -1
		}
		return 1
	}
	return 0
}

// Less reports whether v orders before o.
func (v SaveVersion) Less(o SaveVersion) bool {
	return v.Compare(o) < 0
}

// Compatibility classifies a save's version against the running version.
type Compatibility int

const (
	// Exact means the save was written by this exact version.
	Exact Compatibility = iota
	// Compatible means only the patch component differs; no migration needed.
	Compatible
	// NeedsMigration means the save is from an older minor version and must
	// be migrated before use.
	NeedsMigration
	// TooNew means the save is from a newer minor version than this build.
	TooNew
	// Incompatible means the major versions differ.
	Incompatible
)

// String returns a human-readable label for logging and CLI output.
func (c Compatibility) String() string {
	switch c {
	case Exact:
		return "exact"
	case Compatible:
		return "compatible"
	case NeedsMigration:
		return "needs-migration"
	case TooNew:
		return "too-new"
	case Incompatible:
		return "incompatible"
	default:
		return fmt.Sprintf("compatibility(%d)", int(c))
	}
}

// CompatibilityWith classifies the save version against the running
// version v. Major differences are incompatible, a lower save minor needs
// migration, a higher save minor is from a future build, and patch-only
// differences are compatible as-is.
func (v SaveVersion) CompatibilityWith(save SaveVersion) Compatibility {
	if v.Major != save.Major {
		return Incompatible
	}
	if v.Minor != save.Minor {
		if v.Minor > save.Minor {
			return NeedsMigration
		}
		return TooNew
	}
	if v.Patch != save.Patch {
		return Compatible
	}
	return Exact
}

// MismatchError reports a save version this build refuses to load.
type MismatchError struct {
	Expected string
	Found    string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("version mismatch: expected %s, found %s", e.Expected, e.Found)
}
