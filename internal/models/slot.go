package models

import (
	"fmt"
	"strconv"
	"strings"
)

// SlotKind enumerates the media slots a pending attachment can target.
type SlotKind int

const (
	SlotLogo SlotKind = iota
	SlotBanner
	SlotLocationImage
	SlotBarcard
	SlotDayOffer
	SlotExtra
)

func (k SlotKind) String() string {
	switch k {
	case SlotLogo:
		return "logo"
	case SlotBanner:
		return "banner"
	case SlotLocationImage:
		return "location"
	case SlotBarcard:
		return "barcard"
	case SlotDayOffer:
		return "offer"
	case SlotExtra:
		return "extra"
	default:
		return "unknown"
	}
}

// Slot identifies where staged bytes go. Index is used by SlotLocationImage, Day by
// SlotDayOffer and Name by SlotExtra.
type Slot struct {
	Kind  SlotKind
	Index int
	Day   string
	Name  string
}

func LogoSlot() Slot               { return Slot{Kind: SlotLogo} }
func BannerSlot() Slot             { return Slot{Kind: SlotBanner} }
func BarcardSlot() Slot            { return Slot{Kind: SlotBarcard} }
func LocationImageSlot(i int) Slot { return Slot{Kind: SlotLocationImage, Index: i} }
func DayOfferSlot(day string) Slot { return Slot{Kind: SlotDayOffer, Day: day} }
func ExtraSlot(name string) Slot   { return Slot{Kind: SlotExtra, Name: name} }

// String renders the slot key used in pending maps and URLs: logo, banner, barcard,
// location:N, offer:<day>, extra:<name>.
func (s Slot) String() string {
	switch s.Kind {
	case SlotLocationImage:
		return "location:" + strconv.Itoa(s.Index)
	case SlotDayOffer:
		return "offer:" + s.Day
	case SlotExtra:
		return "extra:" + s.Name
	default:
		return s.Kind.String()
	}
}

// ParseSlot is the inverse of Slot.String.
func ParseSlot(key string) (Slot, error) {
	kind, arg, hasArg := strings.Cut(key, ":")
	switch kind {
	case "logo", "banner", "barcard":
		if hasArg {
			return Slot{}, fmt.Errorf("slot %q takes no argument", kind)
		}
		switch kind {
		case "logo":
			return LogoSlot(), nil
		case "banner":
			return BannerSlot(), nil
		default:
			return BarcardSlot(), nil
		}
	case "location":
		i, err := strconv.Atoi(arg)
		if err != nil || i < 0 {
			return Slot{}, fmt.Errorf("invalid location image index %q", arg)
		}
		return LocationImageSlot(i), nil
	case "offer":
		day := strings.ToLower(arg)
		if !IsWeekday(day) {
			return Slot{}, fmt.Errorf("invalid weekday %q", arg)
		}
		return DayOfferSlot(day), nil
	case "extra":
		if arg == "" || strings.ContainsAny(arg, "/\\") || arg == "." || arg == ".." {
			return Slot{}, fmt.Errorf("invalid extra name %q", arg)
		}
		return ExtraSlot(arg), nil
	}
	return Slot{}, fmt.Errorf("unknown slot %q", key)
}

// IsImage reports whether the slot holds an image (everything except the barcard PDF).
func (s Slot) IsImage() bool { return s.Kind != SlotBarcard }

// Filename is the stored filename for the slot. Logo names are allocated separately and
// passed in; location images are numbered from 1.
func (s Slot) Filename(logoName string) string {
	switch s.Kind {
	case SlotLogo:
		return logoName
	case SlotBanner:
		return "cover_image.webp"
	case SlotLocationImage:
		return fmt.Sprintf("stock_mood_image_%d.webp", s.Index+1)
	case SlotBarcard:
		return "barcard.pdf"
	case SlotDayOffer:
		return s.Day + "_offer.webp"
	case SlotExtra:
		return s.Name
	}
	return ""
}

// StorageLayout names the blob path prefixes.
type StorageLayout struct {
	LogosPrefix      string // club_logos
	ClubImagesPrefix string // club_images
	ClubOffersDir    string // offers
}

// DefaultStorageLayout returns the standard prefixes.
func DefaultStorageLayout() StorageLayout {
	return StorageLayout{LogosPrefix: "club_logos", ClubImagesPrefix: "club_images", ClubOffersDir: "offers"}
}

// BlobPath returns where the slot's bytes are stored for clubID.
func (l StorageLayout) BlobPath(s Slot, clubID, filename string) string {
	switch s.Kind {
	case SlotLogo:
		return l.LogosPrefix + "/" + filename
	case SlotLocationImage:
		return l.ClubImagesPrefix + "/" + clubID + "/mood_images_stock/" + filename
	case SlotDayOffer:
		return l.ClubImagesPrefix + "/" + clubID + "/" + l.ClubOffersDir + "/" + filename
	default:
		return l.ClubImagesPrefix + "/" + clubID + "/" + filename
	}
}
