package specs

import (
	"os"
	"strconv"

	"club-overview-console/internal/models"
)

// RuleOptions controls how the composite save spec is built.
// ENV vars (with defaults):
//
//	SPEC_MIN_CORNERS (4)
type RuleOptions struct {
	MinCorners int
}

func defaultOpts() RuleOptions {
	return RuleOptions{MinCorners: models.MinCorners}
}

// OptionsFromEnv reads RuleOptions, keeping defaults for unset or malformed values.
func OptionsFromEnv() RuleOptions {
	o := defaultOpts()
	if v := os.Getenv("SPEC_MIN_CORNERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			o.MinCorners = n
		}
	}
	return o
}

// BuildSaveSpec composes every rule a working copy must pass before it can be committed, in
// the order their messages are reported.
func BuildSaveSpec(o RuleOptions) Specification[Candidate] {
	if o.MinCorners < 1 {
		o.MinCorners = models.MinCorners
	}
	return HasName().
		And(HasClubType()).
		And(NonNegativeCapacity()).
		And(NonNegativeEntryPrice()).
		And(LatitudeInRange()).
		And(LongitudeInRange()).
		And(EntranceWellFormed()).
		And(CornersWellFormed()).
		And(HasMinValidCorners(o.MinCorners)).
		And(HasOpeningDay())
}
