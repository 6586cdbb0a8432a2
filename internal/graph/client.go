// Package graph wraps the Bolt driver behind a small query interface so the
// ownership repositories can be exercised against an in-memory double.
package graph

import (
	"context"
	"errors"
)

// Client executes openCypher statements against the ownership store.
type Client interface {
	ExecuteWrite(ctx context.Context, cypher string, params map[string]any) (Result, error)
	ExecuteRead(ctx context.Context, cypher string, params map[string]any) (Result, error)
	VerifyConnectivity(ctx context.Context) error
	Close(ctx context.Context) error
}

// Result is the flattened response of a single query.
type Result struct {
	Records []Record
}

// Record is one row of a query response keyed by return alias.
type Record map[string]any

// Options configures a graph client implementation.
type Options struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
}

// ErrMissingURI indicates the graph URI is not provided.
var ErrMissingURI = errors.New("graph URI is required")
