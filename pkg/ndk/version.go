package ndk

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	sdkerrors "github.com/sdkforge/sdkforge-cli/internal/errors"
)

// aliasTable maps release aliases to canonical dotted versions. The alias is
// what humans and release notes use (r26d); the canonical version is what
// sdkmanager and the on-disk directory layout use (26.3.11579264).
var aliasTable = map[string]string{
	"r21e": "21.4.7075529",
	"r22b": "22.1.7171670",
	"r23c": "23.2.8568313",
	"r24":  "24.0.8215888",
	"r25c": "25.2.9519653",
	"r26b": "26.1.10909125",
	"r26d": "26.3.11579264",
	"r27c": "27.2.12479018",
	"r28":  "28.0.13004108",
}

// Version describes one NDK release in both naming schemes
type Version struct {
	Alias     string `json:"alias"`
	Canonical string `json:"canonical"`
	Major     int    `json:"major"`
	Minor     int    `json:"minor"`
	Patch     int    `json:"patch"`
}

// Aliases returns all known release aliases, sorted
func Aliases() []string {
	out := make([]string, 0, len(aliasTable))
	for alias := range aliasTable {
		out = append(out, alias)
	}
	sort.Strings(out)
	return out
}

// FromAlias resolves a release alias against the static table
func FromAlias(alias string) (*Version, error) {
	canonical, ok := aliasTable[alias]
	if !ok {
		return nil, sdkerrors.NewInvalidArgumentError("NDK_UNKNOWN_ALIAS",
			fmt.Sprintf("unknown NDK alias %q; known aliases: %s", alias, strings.Join(Aliases(), ", "))).
			WithDetail("alias", alias).
			WithDetail("known_aliases", strings.Join(Aliases(), ","))
	}

	major, minor, patch, err := parseCanonical(canonical)
	if err != nil {
		return nil, err
	}

	return &Version{
		Alias:     alias,
		Canonical: canonical,
		Major:     major,
		Minor:     minor,
		Patch:     patch,
	}, nil
}

// FromCanonical resolves a canonical dotted version. When the version is in
// the static table the real alias is attached; otherwise the alias is
// guessed from the release numbering convention (26.3 was published as
// r26d). The guess is best-effort and not guaranteed round-trippable.
func FromCanonical(canonical string) (*Version, error) {
	major, minor, patch, err := parseCanonical(canonical)
	if err != nil {
		return nil, err
	}

	v := &Version{
		Canonical: canonical,
		Major:     major,
		Minor:     minor,
		Patch:     patch,
	}

	for alias, c := range aliasTable {
		if c == canonical {
			v.Alias = alias
			return v, nil
		}
	}

	v.Alias = guessAlias(major, minor)
	return v, nil
}

// guessAlias reconstructs the release alias from major/minor numbering:
// minor 0 is the plain release (r26), minor n is the (n+1)-th letter (r26d
// for 26.3).
func guessAlias(major, minor int) string {
	if minor <= 0 || minor > 25 {
		return fmt.Sprintf("r%d", major)
	}
	return fmt.Sprintf("r%d%c", major, 'a'+rune(minor))
}

// IsCanonical reports whether s looks like a canonical dotted version
func IsCanonical(s string) bool {
	_, _, _, err := parseCanonical(s)
	return err == nil
}

func parseCanonical(s string) (major, minor, patch int, err error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return 0, 0, 0, sdkerrors.NewInvalidArgumentError("NDK_BAD_VERSION",
			fmt.Sprintf("%q is not a canonical NDK version (want major.minor.patch)", s)).
			WithDetail("version", s)
	}

	nums := make([]int, 3)
	for i, part := range parts {
		n, convErr := strconv.Atoi(part)
		if convErr != nil || n < 0 {
			return 0, 0, 0, sdkerrors.NewInvalidArgumentError("NDK_BAD_VERSION",
				fmt.Sprintf("%q is not a canonical NDK version (want major.minor.patch)", s)).
				WithDetail("version", s)
		}
		nums[i] = n
	}

	return nums[0], nums[1], nums[2], nil
}

// Spec selects an NDK either by release alias or by explicit directory.
// Exactly one of the two fields is set; Validate enforces the invariant.
type Spec struct {
	Alias string `json:"alias,omitempty"`
	Path  string `json:"path,omitempty"`
}

// SpecFromAlias builds a Spec selecting a release by alias
func SpecFromAlias(alias string) Spec {
	return Spec{Alias: alias}
}

// SpecFromPath builds a Spec selecting an explicit NDK directory
func SpecFromPath(path string) Spec {
	return Spec{Path: path}
}

// Validate enforces the tagged-union invariant
func (s Spec) Validate() error {
	switch {
	case s.Alias == "" && s.Path == "":
		return sdkerrors.NewInvalidArgumentError("NDK_SPEC_EMPTY",
			"an NDK must be selected by alias or by explicit path")
	case s.Alias != "" && s.Path != "":
		return sdkerrors.NewInvalidArgumentError("NDK_SPEC_AMBIGUOUS",
			"an NDK cannot be selected by alias and explicit path at once").
			WithDetail("alias", s.Alias).
			WithDetail("path", s.Path)
	}
	return nil
}

func (s Spec) String() string {
	if s.Path != "" {
		return "path:" + s.Path
	}
	return s.Alias
}
