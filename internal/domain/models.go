package domain

// Domain contains core models shared by fetchers, storage and the detector.

// PostRecord identifies a post by its canonical URL.
type PostRecord struct {
	URL string `json:"url"`
}

// Valid reports whether the record carries a usable identifier.
func (p PostRecord) Valid() bool {
	return p.URL != ""
}
