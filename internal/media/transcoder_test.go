package media

import (
	"context"
	"errors"
	"testing"

	"club-overview-console/internal/models"
)

var (
	pngBytes  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	webpBytes = []byte("RIFF\x24\x00\x00\x00WEBPVP8 ")
	pdfBytes  = []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")
	textBytes = []byte("just some text")
)

func TestSniffer_Transcode(t *testing.T) {
	s := NewSniffer(0)
	tests := []struct {
		name    string
		slot    models.Slot
		data    []byte
		want    string
		wantErr error
	}{
		{"webp banner", models.BannerSlot(), webpBytes, "image/webp", nil},
		{"png logo", models.LogoSlot(), pngBytes, "image/png", nil},
		{"pdf barcard", models.BarcardSlot(), pdfBytes, "application/pdf", nil},
		{"image barcard", models.BarcardSlot(), pngBytes, "", ErrUnsupportedType},
		{"pdf offer", models.DayOfferSlot("friday"), pdfBytes, "", ErrUnsupportedType},
		{"text location image", models.LocationImageSlot(0), textBytes, "", ErrUnsupportedType},
		{"text extra", models.ExtraSlot("notes.txt"), textBytes, "text/plain", nil},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			out, ct, err := s.Transcode(context.Background(), tt.slot, tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if ct != tt.want {
				t.Errorf("content type = %q, want %q", ct, tt.want)
			}
			if string(out) != string(tt.data) {
				t.Errorf("bytes changed")
			}
		})
	}
}

func TestSniffer_TooLarge(t *testing.T) {
	s := NewSniffer(4)
	if _, _, err := s.Transcode(context.Background(), models.BannerSlot(), webpBytes); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}
}
