package validation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"club-overview-console/internal/domain/specs"
	"club-overview-console/internal/models"
)

// Violation messages shown to editors.
const (
	MsgNameRequired     = specs.MsgNameRequired
	MsgClubTypeRequired = specs.MsgClubTypeRequired
	MsgCapacity         = specs.MsgCapacity
	MsgEntryPrice       = specs.MsgEntryPrice
	MsgLatitude         = specs.MsgLatitude
	MsgLongitude        = specs.MsgLongitude
	MsgEntranceFormat   = specs.MsgEntranceFormat
	MsgOpeningHours     = specs.MsgOpeningHours
)

// Validator checks a working copy before commit. Every rule runs; nothing short-circuits.
type Validator struct {
	save specs.Specification[specs.Candidate]
}

// NewValidator builds a validator from rule options.
func NewValidator(o specs.RuleOptions) *Validator {
	return &Validator{save: specs.BuildSaveSpec(o)}
}

var defaultValidator = NewValidator(specs.OptionsFromEnv())

// ValidateClub runs the default rule set. An empty result means the record can be saved.
func ValidateClub(club *models.Club, form models.FormInputs) []string {
	return defaultValidator.Validate(context.Background(), club, form)
}

// Validate returns every violation, in a fixed order.
func (v *Validator) Validate(ctx context.Context, club *models.Club, form models.FormInputs) []string {
	if club == nil {
		club = &models.Club{}
	}
	return v.save.Violations(ctx, specs.Candidate{Club: club, Form: form})
}

// ValidateCornerInputs reports each filled corner slot that is not a "lat, lon" pair, by
// 1-based slot number.
func ValidateCornerInputs(inputs []string) []string {
	return specs.CornerFormatViolations(inputs)
}

// ValidateCoordinatePair validates one "lat, lon" input, including ranges.
func ValidateCoordinatePair(s string) error {
	lat, lon, ok := models.ParseCoordinatePair(s)
	if !ok {
		return fmt.Errorf("coordinates must be in format: lat, lon")
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude must be between -90 and 90")
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("longitude must be between -180 and 180")
	}
	return nil
}

// ValidateTime validates an "HH:MM" opening time.
func ValidateTime(s string) error {
	if len(s) != 5 {
		return fmt.Errorf("time must be in format HH:MM")
	}
	if _, err := time.Parse("15:04", s); err != nil {
		return fmt.Errorf("time %q is not a valid HH:MM time", s)
	}
	return nil
}

// ValidateAgeRestriction validates a per-club or per-day minimum age.
func ValidateAgeRestriction(age int) error {
	if age < 0 || age > 99 {
		return fmt.Errorf("age restriction must be between 0 and 99")
	}
	return nil
}

// ValidateColor validates a color name or hex value.
func ValidateColor(c string) error {
	if len(strings.TrimSpace(c)) == 0 {
		return fmt.Errorf("color cannot be empty")
	}
	if len(c) > 100 {
		return fmt.Errorf("color must be less than 100 characters")
	}
	return nil
}

// ValidateDescription validates club description
func ValidateDescription(desc string) error {
	if len(desc) > 5000 {
		return fmt.Errorf("description must be less than 5000 characters")
	}
	return nil
}
