package domain

// Location of a practice. Country is left empty when the source does not report it.
type Location struct {
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country,omitempty"`
}

// ProfileRecord is one doctor profile normalized from any source.
// Identity key is ProfileURL.
type ProfileRecord struct {
	SourceID    string   `json:"sourceId"`
	ExternalID  string   `json:"externalId,omitempty"`
	Name        string   `json:"name"`
	Specialties []string `json:"specialties"`
	Location    Location `json:"location"`
	Hospital    string   `json:"hospital,omitempty"`
	Rating      float64  `json:"rating"` // 0..5 average
	ReviewCount int      `json:"reviewCount"`
	ImageURL    *string  `json:"imageUrl,omitempty"`
	ProfileURL  string   `json:"profileUrl"`
	Slug        *string  `json:"slug,omitempty"`
}

// Key returns the identity key used for duplicate suppression.
func (p ProfileRecord) Key() string { return p.ProfileURL }

// AggregationResult is the cached snapshot for search and speciality lookups.
type AggregationResult struct {
	SourceID string          `json:"source"`
	Records  []ProfileRecord `json:"results"`
}
