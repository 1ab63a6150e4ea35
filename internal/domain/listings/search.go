package listings

import "strings"

type SortOrder string

const (
	SortByPriceAsc  SortOrder = "price_asc"
	SortByPriceDesc SortOrder = "price_desc"
	SortByRating    SortOrder = "rating"
	SortByNewest    SortOrder = "newest"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

// SearchParams filters the listing catalog. Zero values mean "no filter".
type SearchParams struct {
	Host          HostID
	Query         string
	Category      string
	Location      string
	MinGuests     int
	PriceMinCents int64
	PriceMaxCents int64
	Sort          SortOrder
	Limit         int
	Offset        int
}

type SearchResult struct {
	Items []*Listing
	Total int
}

// Normalized returns a copy with trimmed text filters and clamped paging.
func (p SearchParams) Normalized() SearchParams {
	out := p
	out.Query = strings.ToLower(strings.TrimSpace(p.Query))
	out.Category = strings.TrimSpace(p.Category)
	out.Location = strings.TrimSpace(p.Location)
	if out.Limit <= 0 {
		out.Limit = defaultSearchLimit
	}
	if out.Limit > maxSearchLimit {
		out.Limit = maxSearchLimit
	}
	if out.Offset < 0 {
		out.Offset = 0
	}
	switch out.Sort {
	case SortByPriceAsc, SortByPriceDesc, SortByRating, SortByNewest:
	default:
		out.Sort = SortByNewest
	}
	return out
}

// Matches applies every non-zero filter to the listing.
func (p SearchParams) Matches(l *Listing) bool {
	if p.Host != "" && l.Host != p.Host {
		return false
	}
	if p.Category != "" && !strings.EqualFold(l.Category, p.Category) {
		return false
	}
	if p.Location != "" && !strings.EqualFold(l.Location, p.Location) {
		return false
	}
	if p.MinGuests > 0 && l.MaxGuests < p.MinGuests {
		return false
	}
	if p.PriceMinCents > 0 && l.NightlyRate.Cents < p.PriceMinCents {
		return false
	}
	if p.PriceMaxCents > 0 && l.NightlyRate.Cents > p.PriceMaxCents {
		return false
	}
	if p.Query != "" {
		haystack := strings.ToLower(l.Title + " " + l.Description + " " + l.Location)
		if !strings.Contains(haystack, p.Query) {
			return false
		}
	}
	return true
}
