package domain

// Listing is the search view of a marketplace listing. The persisted store is
// authoritative; this struct is immutable for the duration of a search call.
type Listing struct {
	ID          string
	Title       string
	Description string
	SellerID    string
}

// SearchText returns the text a listing is matched and embedded against.
func (l Listing) SearchText() string {
	if l.Description == "" {
		return l.Title
	}
	return l.Title + " " + l.Description
}

// ScoredResult is a single ranked search hit, created transiently per call.
type ScoredResult struct {
	ListingID      string
	CompositeScore float64
	SemanticScore  float64
	LexicalScore   float64
	SellerID       string
}
