package models

import "testing"

func TestParseSlot(t *testing.T) {
	tests := []struct {
		key     string
		want    Slot
		wantErr bool
	}{
		{key: "logo", want: LogoSlot()},
		{key: "banner", want: BannerSlot()},
		{key: "barcard", want: BarcardSlot()},
		{key: "location:3", want: LocationImageSlot(3)},
		{key: "offer:Friday", want: DayOfferSlot("friday")},
		{key: "extra:menu.png", want: ExtraSlot("menu.png")},
		{key: "logo:1", wantErr: true},
		{key: "location:-1", wantErr: true},
		{key: "location:x", wantErr: true},
		{key: "offer:funday", wantErr: true},
		{key: "extra:../etc", wantErr: true},
		{key: "poster", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.key, func(t *testing.T) {
			got, err := ParseSlot(tt.key)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
			if back, _ := ParseSlot(got.String()); back != got {
				t.Fatalf("String() did not round-trip: %q", got.String())
			}
		})
	}
}

func TestStorageLayout_BlobPath(t *testing.T) {
	l := DefaultStorageLayout()
	tests := []struct {
		slot Slot
		file string
		want string
	}{
		{LogoSlot(), "Club_0_logo.webp", "club_logos/Club_0_logo.webp"},
		{BannerSlot(), "", "club_images/club_0/cover_image.webp"},
		{LocationImageSlot(0), "", "club_images/club_0/mood_images_stock/stock_mood_image_1.webp"},
		{BarcardSlot(), "", "club_images/club_0/barcard.pdf"},
		{DayOfferSlot("friday"), "", "club_images/club_0/offers/friday_offer.webp"},
		{ExtraSlot("menu.png"), "", "club_images/club_0/menu.png"},
	}
	for _, tt := range tests {
		name := tt.slot.Filename(tt.file)
		if got := l.BlobPath(tt.slot, "club_0", name); got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.slot, got, tt.want)
		}
	}
}
