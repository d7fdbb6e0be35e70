package db

// TagMatch selects documents whose TAG field equals Value, or starts with
// it when Prefix is set.
type TagMatch struct {
	Field  string
	Value  string
	Prefix bool
}

// IsZero reports whether the match constrains nothing.
func (m TagMatch) IsZero() bool { return m.Field == "" }

// IndexQuery is the input for a tag query over an FT index.
// A zero Match selects every document of the index.
type IndexQuery struct {
	Index    string
	Match    TagMatch
	Exclude  []TagMatch
	SortBy   string
	SortDesc bool
	Offset   int
	Limit    int
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Fields map[string]string
}
