package storage

// Package storage provides the persistence layer of the delivery pipeline.
//
// It holds two tables keyed by (recipient, period):
//   - delivery records (proof of successful posts, for dedup)
//   - retry states (attempt bookkeeping for failed deliveries)
