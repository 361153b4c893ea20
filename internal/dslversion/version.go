// Package dslversion parses and compares declared definitions versions of
// the blueprint DSL.
package dslversion

import (
	"strconv"
	"strings"

	"github.com/vk/blueprintgo/internal/parseerr"
)

// Prefix is the mandatory lead-in of every definitions version string, e.g.
// "blueprint_dsl_1_2".
const Prefix = "blueprint_dsl_"

// Version is a parsed definitions version.
type Version struct {
	// Raw is the version string as written in the document.
	Raw string
	// Definitions is the version part without the prefix, e.g. "1_2".
	Definitions string
	Major       int
	Minor       int
}

// supported enumerates the definitions versions this engine understands.
var supported = []string{"1_0", "1_1", "1_2", "1_3"}

// Parse validates and decomposes a definitions version string.
func Parse(raw string) (*Version, error) {
	if !strings.HasPrefix(raw, Prefix) {
		return nil, parseerr.Logic(parseerr.CodeInvalidDSLVersion,
			"Invalid definitions version: '%s', expected a value of the form '%s%s'",
			raw, Prefix, supported[len(supported)-1])
	}
	definitions := strings.TrimPrefix(raw, Prefix)
	if !isSupported(definitions) {
		return nil, parseerr.Logic(parseerr.CodeInvalidDSLVersion,
			"Definitions version '%s' is not supported. Supported versions: %v", raw, supported)
	}
	parts := strings.SplitN(definitions, "_", 2)
	major, _ := strconv.Atoi(parts[0])
	minor, _ := strconv.Atoi(parts[1])
	return &Version{
		Raw:         raw,
		Definitions: definitions,
		Major:       major,
		Minor:       minor,
	}, nil
}

// MustParse is Parse for statically known version strings; it panics on
// failure.
func MustParse(raw string) *Version {
	v, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return v
}

func isSupported(definitions string) bool {
	for _, s := range supported {
		if s == definitions {
			return true
		}
	}
	return false
}

// Less reports whether v precedes other.
func (v *Version) Less(other *Version) bool {
	if v.Major != other.Major {
		return v.Major < other.Major
	}
	return v.Minor < other.Minor
}

func (v *Version) String() string {
	if v == nil {
		return "<nil>"
	}
	return v.Raw
}

// Sugar for version-gated features.
var (
	V1_0 = MustParse(Prefix + "1_0")
	V1_1 = MustParse(Prefix + "1_1")
	V1_2 = MustParse(Prefix + "1_2")
	V1_3 = MustParse(Prefix + "1_3")
)
