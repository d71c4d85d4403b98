package specs

import (
	"context"
	"math"
	"reflect"
	"testing"

	"club-overview-console/internal/models"
)

func validCandidate() Candidate {
	lat, lon, price := 55.6761, 12.5683, 0.0
	c := models.NewEmptyClub()
	c.Name = "Test Club"
	c.TypeOfClub = "lounge"
	c.Lat, c.Lon, c.EntryPrice = &lat, &lon, &price
	c.Corners = []models.GeoPoint{
		{Latitude: 55.67, Longitude: 12.56}, {Latitude: 55.68, Longitude: 12.56},
		{Latitude: 55.68, Longitude: 12.58}, {Latitude: 55.67, Longitude: 12.58},
	}
	c.OpeningHours["monday"] = &models.DayHours{Open: "09:00", Close: "17:00"}
	return Candidate{Club: c, Form: models.FormFromClub(c)}
}

func TestAnd_ReportsEveryFailure(t *testing.T) {
	never := func(msg string) Specification[int] {
		return New(msg, func(context.Context, int) bool { return false })
	}
	always := New("unused", func(context.Context, int) bool { return true })

	s := never("a").And(always).And(never("b")).And(Each(func(context.Context, int) []string {
		return []string{"c1", "c2"}
	}))
	if got, want := s.Violations(context.Background(), 0), []string{"a", "b", "c1", "c2"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("violations = %q, want %q", got, want)
	}
	if s.IsSatisfiedBy(context.Background(), 0) {
		t.Fatal("composite with failures should not be satisfied")
	}
}

func TestAnd_DoesNotShareBackingArray(t *testing.T) {
	base := New("a", func(context.Context, int) bool { return false }).
		And(New("b", func(context.Context, int) bool { return false }))
	x := base.And(New("x", func(context.Context, int) bool { return false }))
	y := base.And(New("y", func(context.Context, int) bool { return false }))

	if got := x.Violations(context.Background(), 0); !reflect.DeepEqual(got, []string{"a", "b", "x"}) {
		t.Errorf("x = %q", got)
	}
	if got := y.Violations(context.Background(), 0); !reflect.DeepEqual(got, []string{"a", "b", "y"}) {
		t.Errorf("y = %q", got)
	}
}

func TestCancelledContextFails(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := New("ok", func(context.Context, int) bool { return true })
	if s.IsSatisfiedBy(ctx, 0) {
		t.Fatal("cancelled context should fail")
	}
}

func TestBuildSaveSpec(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Candidate)
		want   []string
	}{
		{"valid", func(*Candidate) {}, nil},
		{"infinite price", func(c *Candidate) { inf := math.Inf(1); c.Club.EntryPrice = &inf }, []string{MsgEntryPrice}},
		{"negative price", func(c *Candidate) { neg := -1.0; c.Club.EntryPrice = &neg }, []string{MsgEntryPrice}},
		{"three corners", func(c *Candidate) { c.Form.CornerInputs[3] = "" }, []string{MinCornersMessage(4)}},
		{"bad corner", func(c *Candidate) { c.Form.CornerInputs[0] = "north" }, []string{
			"Corner 1 has an invalid format. Use: 'lat, lon'", MinCornersMessage(4),
		}},
		{"no name no hours", func(c *Candidate) {
			c.Club.Name = ""
			c.Club.OpeningHours["monday"] = nil
		}, []string{MsgNameRequired, MsgOpeningHours}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			c := validCandidate()
			tt.mutate(&c)
			got := BuildSaveSpec(RuleOptions{MinCorners: 4}).Violations(context.Background(), c)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}
