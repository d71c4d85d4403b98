// Package media checks staged attachment bytes before they are uploaded.
package media

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"club-overview-console/internal/models"
)

// DefaultMaxBytes caps a single attachment.
const DefaultMaxBytes = 10 << 20

var (
	ErrTooLarge        = errors.New("attachment too large")
	ErrUnsupportedType = errors.New("unsupported attachment type")
)

// Sniffer implements domain.Transcoder by content sniffing. Images are converted to WebP by
// the editor before staging, so bytes pass through unchanged; the sniffed type is what gets
// uploaded. Barcards must be PDF documents.
type Sniffer struct {
	MaxBytes int
}

func NewSniffer(maxBytes int) *Sniffer {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Sniffer{MaxBytes: maxBytes}
}

func (s *Sniffer) Transcode(ctx context.Context, slot models.Slot, data []byte) ([]byte, string, error) {
	if len(data) > s.MaxBytes {
		return nil, "", fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, len(data), s.MaxBytes)
	}
	ct := DetectContentType(data)
	switch {
	case slot.Kind == models.SlotBarcard:
		if ct != "application/pdf" {
			return nil, "", fmt.Errorf("%w: barcard must be a PDF, got %s", ErrUnsupportedType, ct)
		}
	case slot.Kind == models.SlotExtra:
		// extras keep whatever was staged
	case !strings.HasPrefix(ct, "image/"):
		return nil, "", fmt.Errorf("%w: %s needs an image, got %s", ErrUnsupportedType, slot, ct)
	}
	return data, ct, nil
}

// DetectContentType extends http.DetectContentType with WebP, which it reports only on
// newer releases.
func DetectContentType(data []byte) string {
	if len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WEBP" {
		return "image/webp"
	}
	ct := http.DetectContentType(data)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return ct
}
