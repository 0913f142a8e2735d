// Package store persists domain records: the append-only orders journal
// and the case and wellness snapshot files.
//
// Invariants:
// - Orders are one JSON record per line, append-only, each with a unique
//   order id.
// - Snapshot files are a JSON array rewritten atomically (temp file plus
//   rename) on every update.
// - Writes to a given file are serialized through a per-store mutex.
//
// Usage:
//
//	journal, _ := store.NewOrdersJournal("/tmp/murmur/orders.jsonl")
//	_ = journal.Append(order)
//	last, _ := journal.Last()
//	_ = last
package store
