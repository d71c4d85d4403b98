package naming

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"club-overview-console/internal/domain"
	errs "club-overview-console/pkg/errors"
	"club-overview-console/pkg/metrics"
)

// DefaultMaxAttempts bounds the candidate search.
const DefaultMaxAttempts = 1_000_000

// ErrAllocationExhausted means no free candidate was found within the attempt limit.
var ErrAllocationExhausted = errors.New("identifier allocation exhausted")

const logoSuffix = "_logo.webp"

var whitespace = regexp.MustCompile(`\s+`)

// Sanitize trims name and replaces each whitespace run with "_". Case is kept.
func Sanitize(name string) string {
	return whitespace.ReplaceAllString(strings.TrimSpace(name), "_")
}

// scan returns the first candidate(base, i) for which taken reports false.
func scan(base string, maxAttempts int, candidate func(base string, i int) string, taken func(string) bool) (string, int, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	for i := 0; i < maxAttempts; i++ {
		c := candidate(base, i)
		if !taken(c) {
			return c, i + 1, nil
		}
	}
	return "", maxAttempts, fmt.Errorf("%w: %q after %d candidates", ErrAllocationExhausted, base, maxAttempts)
}

func recordCandidate(base string, i int) string { return fmt.Sprintf("%s_%d", base, i) }

func logoCandidate(base string, i int) string { return fmt.Sprintf("%s_%d%s", base, i, logoSuffix) }

// RecordID returns the lowercase id "sanitized_name_N" with the smallest N not in existing.
// Existing ids are compared case-insensitively.
func RecordID(name string, existing []string, maxAttempts int) (string, error) {
	id, _, err := recordID(name, existing, maxAttempts)
	return id, err
}

func recordID(name string, existing []string, maxAttempts int) (string, int, error) {
	set := make(map[string]bool, len(existing))
	for _, id := range existing {
		set[strings.ToLower(id)] = true
	}
	id, n, err := scan(Sanitize(name), maxAttempts, recordCandidate, func(c string) bool {
		return set[strings.ToLower(c)]
	})
	return strings.ToLower(id), n, err
}

// LogoName returns "Sanitized_Name_N_logo.webp". Candidates are tested with the ".webp"
// suffix removed and without case folding.
func LogoName(name string, existing []string, maxAttempts int) (string, error) {
	logo, _, err := logoName(name, existing, maxAttempts)
	return logo, err
}

func logoName(name string, existing []string, maxAttempts int) (string, int, error) {
	set := make(map[string]bool, len(existing))
	for _, id := range existing {
		set[id] = true
	}
	return scan(Sanitize(name), maxAttempts, logoCandidate, func(c string) bool {
		return set[strings.TrimSuffix(c, ".webp")]
	})
}

// Allocator derives identifiers against the ids currently stored in the approved and pending
// collections.
type Allocator struct {
	store       domain.RecordStore
	collections []string

	mu          sync.RWMutex
	maxAttempts int
}

// NewAllocator creates an allocator reading ids from clubData and newClubs.
func NewAllocator(store domain.RecordStore, maxAttempts int) *Allocator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Allocator{
		store:       store,
		collections: []string{domain.CollectionClubData, domain.CollectionNewClubs},
		maxAttempts: maxAttempts,
	}
}

// SetMaxAttempts changes the attempt limit; used when configuration is reloaded.
func (a *Allocator) SetMaxAttempts(n int) {
	if n <= 0 {
		return
	}
	a.mu.Lock()
	a.maxAttempts = n
	a.mu.Unlock()
}

func (a *Allocator) limit() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.maxAttempts
}

// Allocation is the result of a combined allocation.
type Allocation struct {
	RecordID string
	LogoName string
}

// Allocate reads the existing ids once and derives the requested record id and logo name.
func (a *Allocator) Allocate(ctx context.Context, name string, withRecordID, withLogo bool) (Allocation, error) {
	var out Allocation
	if !withRecordID && !withLogo {
		return out, nil
	}
	existing, err := a.ExistingIDs(ctx)
	if err != nil {
		return out, err
	}
	if withRecordID {
		id, attempts, err := recordID(name, existing, a.limit())
		metrics.AllocationAttempts.WithLabelValues("record").Add(float64(attempts))
		if err != nil {
			return out, errs.NewBiz("naming.allocate_record_id", "no free record id", err)
		}
		out.RecordID = id
	}
	if withLogo {
		logo, attempts, err := logoName(name, existing, a.limit())
		metrics.AllocationAttempts.WithLabelValues("logo").Add(float64(attempts))
		if err != nil {
			return out, errs.NewBiz("naming.allocate_logo", "no free logo name", err)
		}
		out.LogoName = logo
	}
	return out, nil
}

// AllocateRecordID derives a record id for name.
func (a *Allocator) AllocateRecordID(ctx context.Context, name string) (string, error) {
	al, err := a.Allocate(ctx, name, true, false)
	return al.RecordID, err
}

// AllocateLogoName derives a logo filename for name.
func (a *Allocator) AllocateLogoName(ctx context.Context, name string) (string, error) {
	al, err := a.Allocate(ctx, name, false, true)
	return al.LogoName, err
}

// ExistingIDs lists the ids of every stored record in the watched collections.
func (a *Allocator) ExistingIDs(ctx context.Context) ([]string, error) {
	results := make([][]domain.StoredDocument, len(a.collections))
	g, gctx := errgroup.WithContext(ctx)
	for i, coll := range a.collections {
		i, coll := i, coll
		g.Go(func() error {
			docs, err := a.store.GetAll(gctx, coll)
			if err != nil {
				return errs.NewStore("naming.existing_ids", coll, "list ids", err)
			}
			results[i] = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var ids []string
	for _, docs := range results {
		for _, d := range docs {
			ids = append(ids, d.ID)
		}
	}
	return ids, nil
}
