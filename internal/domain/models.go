package domain

// Domain contains the core models shared by the discovery pipeline.

// Task is one independent want-to-buy scan.
type Task struct {
	Name        string   `json:"name" yaml:"name"`
	Query       string   `json:"query" yaml:"query"`
	MaxPrice    *float64 `json:"max_price,omitempty" yaml:"max_price"`
	Currency    string   `json:"currency,omitempty" yaml:"currency"`
	Description string   `json:"description,omitempty" yaml:"description"`
	// Sites overrides the globally configured target sites when non-empty.
	Sites []string `json:"sites,omitempty" yaml:"sites"`
}

// SearchPageSource is a search-results page planned for one marketplace.
type SearchPageSource struct {
	SiteName  string `json:"site_name"`
	SearchURL string `json:"search_url"`
}

// Candidate is an unverified listing URL picked off a search-results page.
type Candidate struct {
	URL             string `json:"url"`
	Title           string `json:"title"`
	Price           string `json:"price"`
	ConfidenceScore int    `json:"confidence_score"`
	Reasoning       string `json:"reasoning"`
}

// FetchedAd is the truncated text of a listing detail page.
type FetchedAd struct {
	Site    string `json:"site"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// ClassificationResult is the verdict for one FetchedAd.
type ClassificationResult struct {
	URL       string `json:"url"`
	FoundItem bool   `json:"found_item"`
	ItemName  string `json:"item_name"`
	Price     string `json:"price"`
	Reasoning string `json:"reasoning"`
}
