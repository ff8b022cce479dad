package semantic

// SearchResult is a single vector search hit.
type SearchResult struct {
	ID    string         `json:"id"`
	Score float32        `json:"score"`
	Text  string         `json:"text"`
	Meta  map[string]any `json:"meta"`
}

// StoredRecord is a stored point as returned by inspection reads.
type StoredRecord struct {
	ID   string         `json:"id"`
	Text string         `json:"text"`
	Meta map[string]any `json:"meta"`
}
