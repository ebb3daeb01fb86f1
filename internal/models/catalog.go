package models

// CatalogRow is one entry of a batch catalog: a source URL plus optional
// provenance strings. Brand and Campaign may be derived from a
// "Brand // Campaign" title when not given explicitly.
type CatalogRow struct {
	URL      string `json:"url"`
	Title    string `json:"title,omitempty"`
	Brand    string `json:"brand,omitempty"`
	Campaign string `json:"campaign,omitempty"`
}
