package properties

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oneviewsg/rental-ai-platform/pkg/logging"
)

// Listing holds the details a scraper extracted from a listing page.
type Listing struct {
	Title   string
	Address string
	Facts   map[string]string
}

// Scraper fetches listing details from a source URL. Implementations are
// best-effort; the importer falls back to a placeholder title on failure.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*Listing, error)
}

// ImportResult reports the outcome of an import attempt.
type ImportResult struct {
	Property *Property
	Created  bool
}

// Importer adds listings by URL, deduplicating on the canonical URL so the
// same link shared twice maps to one property.
type Importer struct {
	repo    Repository
	scraper Scraper
	logger  *logging.Logger
}

// NewImporter creates a listing importer. scraper may be nil.
func NewImporter(repo Repository, scraper Scraper, logger *logging.Logger) *Importer {
	if repo == nil {
		panic("properties: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Importer{repo: repo, scraper: scraper, logger: logger}
}

// ImportByURL imports the listing at url for the user. A second import of
// the same link (modulo query string and fragment) returns the existing
// property with Created=false.
func (i *Importer) ImportByURL(ctx context.Context, userID, url string) (*ImportResult, error) {
	normalized := NormalizeURL(url)
	if normalized == "" {
		return nil, errors.New("properties: empty listing url")
	}

	existing, err := i.repo.FindByNormalizedURL(ctx, userID, normalized)
	if err == nil {
		return &ImportResult{Property: existing, Created: false}, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("properties: duplicate check failed: %w", err)
	}

	p := &Property{
		UserID:        userID,
		Title:         placeholderTitle(normalized),
		SourceURL:     strings.TrimSpace(url),
		NormalizedURL: normalized,
	}

	if i.scraper != nil {
		listing, err := i.scraper.Scrape(ctx, url)
		if err != nil {
			i.logger.Warn("listing scrape failed, importing with placeholder details", "user_id", userID, "url", normalized, "error", err)
		} else if listing != nil {
			if t := strings.TrimSpace(listing.Title); t != "" {
				p.Title = t
			}
			p.Address = strings.TrimSpace(listing.Address)
			p.Facts = listing.Facts
		}
	}

	if err := i.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return &ImportResult{Property: p, Created: true}, nil
}

// placeholderTitle derives a readable title from the last URL path segment.
func placeholderTitle(normalized string) string {
	s := normalized
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.TrimSpace(s)
	if s == "" {
		return "Imported listing"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
