package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/rikitraki/trackapi/internal/db"
)

// Query runs a tag query via FT.SEARCH.
func (s *Store) Query(ctx context.Context, q *db.IndexQuery) (*db.SearchResult, error) {
	cmd, err := s.buildSearchCmd(q)
	if err != nil {
		return nil, err
	}
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	return parseListResult(raw)
}

// QueryMulti runs several tag queries in a single DoMulti round-trip.
func (s *Store) QueryMulti(ctx context.Context, qs []*db.IndexQuery) ([]*db.SearchResult, error) {
	if len(qs) == 0 {
		return nil, nil
	}

	cmds := make([]rueidis.Completed, len(qs))
	for i, q := range qs {
		cmd, err := s.buildSearchCmd(q)
		if err != nil {
			return nil, fmt.Errorf("query %d: %w", i, err)
		}
		cmds[i] = cmd
	}

	results := s.client.DoMulti(ctx, cmds...)
	out := make([]*db.SearchResult, len(results))
	for i, res := range results {
		raw, err := res.ToArray()
		if err != nil {
			return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("query %d: %w", i, err)}
		}
		parsed, err := parseListResult(raw)
		if err != nil {
			return nil, fmt.Errorf("query %d: %w", i, err)
		}
		out[i] = parsed
	}
	return out, nil
}

// Count returns the number of matching documents via FT.SEARCH with LIMIT 0 0.
func (s *Store) Count(ctx context.Context, q *db.IndexQuery) (int, error) {
	if q.Index == "" {
		return 0, errors.New("index name is required")
	}
	args := []string{q.Index, buildQuery(q), "LIMIT", "0", "0", "DIALECT", "2"}
	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return 0, &db.Error{Op: db.OpSearch, Err: err}
	}
	if len(raw) == 0 {
		return 0, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, fmt.Errorf("parse count: %w", err)
	}
	return int(total), nil
}

func (s *Store) buildSearchCmd(q *db.IndexQuery) (rueidis.Completed, error) {
	args, err := buildSearchArgs(q)
	if err != nil {
		return rueidis.Completed{}, err
	}
	return s.b().Arbitrary("FT.SEARCH").Args(args...).Build(), nil
}

func buildSearchArgs(q *db.IndexQuery) ([]string, error) {
	if q.Index == "" {
		return nil, errors.New("index name is required")
	}
	if q.Limit <= 0 {
		return nil, errors.New("limit must be positive")
	}
	if q.Offset < 0 {
		return nil, errors.New("offset must not be negative")
	}

	args := []string{q.Index, buildQuery(q)}

	if q.SortBy != "" {
		dir := "ASC"
		if q.SortDesc {
			dir = "DESC"
		}
		args = append(args, "SORTBY", q.SortBy, dir)
	}

	args = append(args,
		"LIMIT", strconv.Itoa(q.Offset), strconv.Itoa(q.Limit),
		"DIALECT", "2",
	)
	return args, nil
}

// --- Query rendering ---

// buildQuery renders the match and exclusions as an FT.SEARCH query string.
// With neither, every document matches.
func buildQuery(q *db.IndexQuery) string {
	parts := make([]string, 0, 1+len(q.Exclude))
	if !q.Match.IsZero() {
		parts = append(parts, buildTagFilter(q.Match))
	}
	for _, ex := range q.Exclude {
		if ex.IsZero() {
			continue
		}
		parts = append(parts, "-"+buildTagFilter(ex))
	}
	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, " ")
}

func buildTagFilter(m db.TagMatch) string {
	value := tagEscaper.Replace(m.Value)
	if m.Prefix {
		value += "*"
	}
	return fmt.Sprintf("@%s:{%s}", m.Field, value)
}

var tagEscaper = strings.NewReplacer(
	`\`, `\\`,
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"[", "\\[",
	"]", "\\]",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"|", "\\|",
	"/", "\\/",
	" ", "\\ ",
)

// --- Result parsing ---

func parseListResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	entries := make([]db.SearchEntry, 0, (len(raw)-1)/2)
	// 2-stride: [total, key1, fields1, key2, fields2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		entries = append(entries, db.SearchEntry{
			Key:    key,
			Fields: parseFieldPairs(fields),
		})
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}
