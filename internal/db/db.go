package db

import (
	"context"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Store interface {
	Pinger
	HashStore
	IndexManager
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashStore provides hash-based key-value operations.
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// IndexManager provides FT index lifecycle operations.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Searcher runs tag-matching queries over FT indexes.
type Searcher interface {
	Query(ctx context.Context, q *IndexQuery) (*SearchResult, error)
	// QueryMulti sends all queries in one pipelined round-trip and returns
	// results in input order. Any failed query fails the whole batch.
	QueryMulti(ctx context.Context, qs []*IndexQuery) ([]*SearchResult, error)
	Count(ctx context.Context, q *IndexQuery) (int, error)
}
