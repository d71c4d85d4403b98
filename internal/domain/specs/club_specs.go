package specs

import (
	"context"
	"fmt"
	"math"
	"strings"

	"club-overview-console/internal/models"
)

// Messages shown to editors when a rule fails.
const (
	MsgNameRequired     = "Name is required."
	MsgClubTypeRequired = "Club type is required."
	MsgCapacity         = "Capacity must be a number greater than or equal to 0."
	MsgEntryPrice       = "Entry price must be a non-negative number."
	MsgLatitude         = "Latitude must be between -90 and 90."
	MsgLongitude        = "Longitude must be between -180 and 180."
	MsgEntranceFormat   = "Entrance must be in format: lat, lon (e.g., 55.1124214, 12.3232344)"
	MsgOpeningHours     = "At least one day must have valid opening hours."
	msgCornerFormat     = "Corner %d has an invalid format. Use: 'lat, lon'"
	msgMinCorners       = "You must fill in at least %d valid corners."
)

// Candidate is a working copy together with the coordinate text it was edited from.
type Candidate struct {
	Club *models.Club
	Form models.FormInputs
}

// HasName requires a non-blank name.
func HasName() Specification[Candidate] {
	return New(MsgNameRequired, func(ctx context.Context, c Candidate) bool {
		return strings.TrimSpace(c.Club.Name) != ""
	})
}

// HasClubType requires type_of_club.
func HasClubType() Specification[Candidate] {
	return New(MsgClubTypeRequired, func(ctx context.Context, c Candidate) bool {
		return c.Club.TypeOfClub != ""
	})
}

// NonNegativeCapacity rejects negative capacities. An unset capacity passes; it is filled
// with 0 when the record is written.
func NonNegativeCapacity() Specification[Candidate] {
	return New(MsgCapacity, func(ctx context.Context, c Candidate) bool {
		return c.Club.Capacity == nil || *c.Club.Capacity >= 0
	})
}

// NonNegativeEntryPrice requires a finite entry price of at least 0.
func NonNegativeEntryPrice() Specification[Candidate] {
	return New(MsgEntryPrice, func(ctx context.Context, c Candidate) bool {
		return c.Club.EntryPrice != nil && finite(*c.Club.EntryPrice) && *c.Club.EntryPrice >= 0
	})
}

// LatitudeInRange requires lat within [-90, 90].
func LatitudeInRange() Specification[Candidate] {
	return New(MsgLatitude, func(ctx context.Context, c Candidate) bool {
		return c.Club.Lat != nil && *c.Club.Lat >= -90 && *c.Club.Lat <= 90
	})
}

// LongitudeInRange requires lon within [-180, 180].
func LongitudeInRange() Specification[Candidate] {
	return New(MsgLongitude, func(ctx context.Context, c Candidate) bool {
		return c.Club.Lon != nil && *c.Club.Lon >= -180 && *c.Club.Lon <= 180
	})
}

// EntranceWellFormed requires the entrance text to be a "lat, lon" pair.
func EntranceWellFormed() Specification[Candidate] {
	return New(MsgEntranceFormat, func(ctx context.Context, c Candidate) bool {
		return models.CoordinatePattern.MatchString(strings.TrimSpace(c.Form.Entrance))
	})
}

// CornersWellFormed reports each filled corner slot that is not a "lat, lon" pair, by 1-based
// slot number. Empty slots are ignored.
func CornersWellFormed() Specification[Candidate] {
	return Each(func(ctx context.Context, c Candidate) []string {
		return CornerFormatViolations(c.Form.CornerInputs)
	})
}

// CornerFormatViolations is the per-slot check behind CornersWellFormed.
func CornerFormatViolations(inputs []string) []string {
	var out []string
	for i, in := range inputs {
		in = strings.TrimSpace(in)
		if in == "" {
			continue
		}
		if !models.CoordinatePattern.MatchString(in) {
			out = append(out, fmt.Sprintf(msgCornerFormat, i+1))
		}
	}
	return out
}

// HasMinValidCorners requires at least n filled, well-formed corner slots.
func HasMinValidCorners(n int) Specification[Candidate] {
	return New(MinCornersMessage(n), func(ctx context.Context, c Candidate) bool {
		return len(c.Form.ValidCorners()) >= n
	})
}

// MinCornersMessage is the aggregate corner violation for n.
func MinCornersMessage(n int) string { return fmt.Sprintf(msgMinCorners, n) }

// HasOpeningDay requires at least one weekday with both open and close set.
func HasOpeningDay() Specification[Candidate] {
	return New(MsgOpeningHours, func(ctx context.Context, c Candidate) bool {
		for _, day := range models.Weekdays {
			if c.Club.Day(day).HasHours() {
				return true
			}
		}
		return false
	})
}

func finite(f float64) bool { return !math.IsInf(f, 0) && !math.IsNaN(f) }
