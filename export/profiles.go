// Package export serializes inferred node shapes as SHACL documents in
// Turtle, N-Triples, and JSON-LD.
package export

import "fmt"

// Profile determines how much evidence annotation the exported shapes
// carry beyond the bare constraints.
type Profile string

const (
	// ProfileCore emits only the constraint triples validators need:
	// target class, path, type constraints, and cardinality bounds.
	ProfileCore Profile = "core"

	// ProfileStandard adds sh:nodeKind assertions to the core profile.
	ProfileStandard Profile = "standard"

	// ProfileAnnotated adds sh:description annotations carrying the
	// support evidence each constraint was inferred from.
	ProfileAnnotated Profile = "annotated"
)

// ProfileConfig contains configuration for an export profile.
type ProfileConfig struct {
	// Name is the profile identifier.
	Name Profile

	// Description describes the profile.
	Description string

	// IncludeNodeKind indicates whether to assert sh:nodeKind alongside
	// each type constraint.
	IncludeNodeKind bool

	// IncludeDescriptions indicates whether to annotate constraints with
	// their observed support.
	IncludeDescriptions bool
}

// Profiles contains the configuration for all available export profiles.
var Profiles = map[Profile]ProfileConfig{
	ProfileCore: {
		Name:                ProfileCore,
		Description:         "Constraint triples only",
		IncludeNodeKind:     false,
		IncludeDescriptions: false,
	},
	ProfileStandard: {
		Name:                ProfileStandard,
		Description:         "Constraints plus sh:nodeKind assertions",
		IncludeNodeKind:     true,
		IncludeDescriptions: false,
	},
	ProfileAnnotated: {
		Name:                ProfileAnnotated,
		Description:         "Constraints annotated with support evidence",
		IncludeNodeKind:     true,
		IncludeDescriptions: true,
	},
}

// GetProfileConfig returns the configuration for a profile, falling back
// to the standard profile for unknown names.
func GetProfileConfig(profile Profile) ProfileConfig {
	if config, ok := Profiles[profile]; ok {
		return config
	}
	return Profiles[ProfileStandard]
}

// ParseProfile resolves a profile name from user input.
func ParseProfile(s string) (Profile, error) {
	p := Profile(s)
	if _, ok := Profiles[p]; !ok {
		return "", fmt.Errorf("unknown export profile: %s", s)
	}
	return p, nil
}
