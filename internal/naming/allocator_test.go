package naming

import (
	"context"
	"errors"
	"testing"

	"club-overview-console/internal/domain"
	"club-overview-console/internal/models"
	testutil "club-overview-console/internal/testing"
	errs "club-overview-console/pkg/errors"
)

func TestSanitize(t *testing.T) {
	tests := map[string]string{
		"Club One":       "Club_One",
		"  Club   One  ": "Club_One",
		"Club\tOne\nTwo": "Club_One_Two",
		"NoSpaces":       "NoSpaces",
		"":               "",
	}
	for in, want := range tests {
		if got := Sanitize(in); got != want {
			t.Errorf("Sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRecordID(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		want     string
	}{
		{"Club One", []string{"club_one_0", "club_one_1"}, "club_one_2"},
		{"Club One", nil, "club_one_0"},
		{"Club One", []string{"Club_One_0"}, "club_one_1"},
		{"Club One", []string{"club_one_1"}, "club_one_0"},
	}
	for _, tt := range tests {
		got, err := RecordID(tt.name, tt.existing, 0)
		if err != nil {
			t.Fatalf("RecordID(%q, %v): %v", tt.name, tt.existing, err)
		}
		if got != tt.want {
			t.Errorf("RecordID(%q, %v) = %q, want %q", tt.name, tt.existing, got, tt.want)
		}
	}
}

func TestLogoName(t *testing.T) {
	tests := []struct {
		existing []string
		want     string
	}{
		{nil, "Club_One_0_logo.webp"},
		{[]string{"Club_One_0_logo"}, "Club_One_1_logo.webp"},
		// Logo names are compared without case folding.
		{[]string{"club_one_0_logo"}, "Club_One_0_logo.webp"},
		{[]string{"Club_One_0_logo.webp"}, "Club_One_0_logo.webp"},
	}
	for _, tt := range tests {
		got, err := LogoName("Club One", tt.existing, 0)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("LogoName(%v) = %q, want %q", tt.existing, got, tt.want)
		}
	}
}

func TestRecordID_Exhausted(t *testing.T) {
	_, err := RecordID("A", []string{"a_0", "a_1", "a_2"}, 3)
	if !errors.Is(err, ErrAllocationExhausted) {
		t.Fatalf("err = %v, want ErrAllocationExhausted", err)
	}
}

func TestAllocator_ReadsBothCollections(t *testing.T) {
	store := testutil.NewMockRecordStore()
	store.Seed(domain.CollectionClubData, "club_one_0", models.Document{"name": "Club One"})
	store.Seed(domain.CollectionNewClubs, "club_one_1", models.Document{"name": "Club One"})
	store.Seed(domain.CollectionBackups, "club_one_2", models.Document{"name": "Club One"})

	a := NewAllocator(store, 0)
	got, err := a.Allocate(context.Background(), "Club One", true, true)
	if err != nil {
		t.Fatal(err)
	}
	if got.RecordID != "club_one_2" {
		t.Errorf("RecordID = %q, want club_one_2", got.RecordID)
	}
	if got.LogoName != "Club_One_0_logo.webp" {
		t.Errorf("LogoName = %q", got.LogoName)
	}
}

func TestAllocator_ExhaustedIsBizError(t *testing.T) {
	store := testutil.NewMockRecordStore()
	store.Seed(domain.CollectionClubData, "x_0", models.Document{})
	a := NewAllocator(store, 1)

	_, err := a.AllocateRecordID(context.Background(), "x")
	if !errs.Is(err, errs.ErrBiz) || !errors.Is(err, ErrAllocationExhausted) {
		t.Fatalf("err = %v", err)
	}
}

func TestAllocator_StoreFailure(t *testing.T) {
	store := testutil.NewMockRecordStore()
	store.GetErr[domain.CollectionNewClubs] = errors.New("unavailable")
	a := NewAllocator(store, 0)

	if _, err := a.AllocateRecordID(context.Background(), "x"); !errs.Is(err, errs.ErrStore) {
		t.Fatalf("err = %v, want store error", err)
	}
}
