// Package catalog holds book records and the retrieval boundary.
//
// A Retriever returns records for a free-text query in decreasing relevance.
// MemoryRetriever ranks an in-memory catalog by keyword overlap and serves the
// CLI and tests. ResilientRetriever wraps any Retriever with a per-call timeout,
// a circuit breaker and an optional rate limiter, and reports every failure as
// ErrRetrievalUnavailable.
//
// LoadFile reads a catalog from a JSON array of records or from a CSV export
// with the columns
//
//	isbn13,title,authors,simple_categories,average_rating,ratings_count,
//	joy,anger,fear,sadness,surprise,neutral,description,thumbnail
//
// where authors are separated by ';'. Column order is free and unknown columns
// are ignored.
package catalog
