// Package loader reads stored clubs into the editable model and resolves media previews.
package loader

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strings"
	"sync/atomic"
	"unicode"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"club-overview-console/internal/domain"
	"club-overview-console/internal/models"
	errs "club-overview-console/pkg/errors"
	"club-overview-console/pkg/logging"
)

// Defaults are the preview URLs used when a stored file cannot be resolved.
type Defaults struct {
	Logo      string
	Banner    string
	MoodImage string
	Offer     string
}

// Loader hydrates clubs from the record store. Preview lookups never fail a load; they fall
// back to Defaults.
type Loader struct {
	records  domain.RecordStore
	blobs    domain.BlobStore
	layout   models.StorageLayout
	defaults atomic.Pointer[Defaults]
	logger   *logging.ComponentLogger
}

func New(records domain.RecordStore, blobs domain.BlobStore, layout models.StorageLayout, defaults Defaults, logger *logging.Logger) *Loader {
	if logger == nil {
		logger = logging.NewNop()
	}
	l := &Loader{
		records: records,
		blobs:   blobs,
		layout:  layout,
		logger:  logger.WithComponent("loader"),
	}
	l.SetDefaults(defaults)
	return l
}

// SetDefaults swaps the fallback preview URLs for later loads.
func (l *Loader) SetDefaults(d Defaults) { l.defaults.Store(&d) }

// Load reads an approved club and resolves every media preview.
func (l *Loader) Load(ctx context.Context, id string) (*models.Club, error) {
	doc, err := l.records.Get(ctx, domain.CollectionClubData, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, errs.NewNotFound("loader.load", domain.CollectionClubData+"/"+id, err)
		}
		return nil, errs.NewStore("loader.load", domain.CollectionClubData, "read "+id, err)
	}
	club := models.ClubFromDocument(id, doc)
	l.resolvePreviews(ctx, club)
	return club, nil
}

// resolvePreviews fills PreviewRef on every attachment. Each lookup writes a distinct field.
func (l *Loader) resolvePreviews(ctx context.Context, c *models.Club) {
	defaults := *l.defaults.Load()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	if c.Logo != nil {
		g.Go(func() error {
			path := l.layout.BlobPath(models.LogoSlot(), c.ID, c.Logo.Name)
			c.Logo.PreviewRef = l.url(gctx, defaults.Logo, path)
			return nil
		})
	}
	if c.Banner != nil {
		g.Go(func() error {
			c.Banner.PreviewRef = l.urlAnyCase(gctx, defaults.Banner, models.BannerSlot(), c.ID, c.Banner.Name)
			return nil
		})
	}
	if c.Barcard != nil {
		g.Go(func() error {
			c.Barcard.PreviewRef = l.urlAnyCase(gctx, "", models.BarcardSlot(), c.ID, c.Barcard.Name)
			return nil
		})
	}
	for i := range c.LocationImages {
		i := i
		img := &c.LocationImages[i]
		g.Go(func() error {
			path := l.layout.BlobPath(models.LocationImageSlot(i), c.ID, img.Name)
			img.PreviewRef = l.url(gctx, defaults.MoodImage, path)
			return nil
		})
	}
	for _, day := range models.Weekdays {
		day := day
		d := c.Day(day)
		if d == nil || d.DailyOffer == nil {
			continue
		}
		offer := d.DailyOffer
		g.Go(func() error {
			offer.PreviewRef = l.urlAnyCase(gctx, defaults.Offer, models.DayOfferSlot(day), c.ID, offer.Name)
			return nil
		})
	}
	_ = g.Wait()
}

func (l *Loader) url(ctx context.Context, fallback string, paths ...string) string {
	for _, p := range paths {
		u, err := l.blobs.GetDownloadURL(ctx, p)
		if err == nil {
			return u
		}
		l.logger.Debug("Preview not found", logging.String("path", p), logging.Error(err))
	}
	return fallback
}

// urlAnyCase tries the club folder as stored, lowercased and title-cased. Older uploads used
// inconsistent casing for the folder name.
func (l *Loader) urlAnyCase(ctx context.Context, fallback string, slot models.Slot, clubID, name string) string {
	var paths []string
	for _, id := range IDVariants(clubID) {
		paths = append(paths, l.layout.BlobPath(slot, id, name))
	}
	return l.url(ctx, fallback, paths...)
}

// IDVariants returns clubID as given, lowercased and title-cased, without duplicates.
func IDVariants(clubID string) []string {
	if clubID == "" {
		return nil
	}
	lower := strings.ToLower(clubID)
	first, size := utf8.DecodeRuneInString(lower)
	title := string(unicode.ToUpper(first)) + lower[size:]
	out := []string{clubID}
	for _, v := range []string{lower, title} {
		if !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

// Tags reads the tag vocabulary. Entries without a name fall back to their record id.
func (l *Loader) Tags(ctx context.Context) ([]models.Tag, error) {
	docs, err := l.records.GetAll(ctx, domain.CollectionTags)
	if err != nil {
		return nil, errs.NewStore("loader.tags", domain.CollectionTags, "list tags", err)
	}
	tags := make([]models.Tag, 0, len(docs))
	for _, d := range docs {
		name, _ := d.Data["name"].(string)
		if name == "" {
			name = d.ID
		}
		emoji, _ := d.Data["emoji"].(string)
		tags = append(tags, models.Tag{Name: name, Emoji: emoji})
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
	return tags, nil
}

// Summary is one row of the club picker.
type Summary struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	DisplayName *string `json:"displayName,omitempty"`
	TypeOfClub  string  `json:"type_of_club"`
}

// List returns the clubs in collection ordered by name, then id.
func (l *Loader) List(ctx context.Context, collection string) ([]Summary, error) {
	docs, err := l.records.GetAll(ctx, collection)
	if err != nil {
		return nil, errs.NewStore("loader.list", collection, "list clubs", err)
	}
	out := make([]Summary, 0, len(docs))
	for _, d := range docs {
		c := models.ClubFromDocument(d.ID, d.Data)
		out = append(out, Summary{ID: c.ID, Name: c.Name, DisplayName: c.DisplayName, TypeOfClub: c.TypeOfClub})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
