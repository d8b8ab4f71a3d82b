package models

// Row is one line of a collection table.
type Row struct {
	ID    int      `json:"id"`
	Cells []string `json:"cells"`
}

// TablePage is the fragment served for one page of a collection.
//
// Controls lists the element ids rendered with the page, navigation controls and row triggers alike.
// Replacing a page replaces its controls.
type TablePage struct {
	Collection string   `json:"collection"`
	Page       int      `json:"page"`
	Last       int      `json:"last"`
	Columns    []string `json:"columns"`
	Rows       []Row    `json:"rows"`
	Controls   []string `json:"controls,omitempty"`
}

// HasControl reports whether id was rendered with the page.
func (p TablePage) HasControl(id string) bool {
	for _, c := range p.Controls {
		if c == id {
			return true
		}
	}
	return false
}

// Suggestion is one search suggestion.
type Suggestion struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
}

// SearchPage is one page of search results for a category.
type SearchPage struct {
	Category string       `json:"category"`
	Count    int          `json:"count"`
	Page     int          `json:"page"`
	Results  []Suggestion `json:"results"`
}
