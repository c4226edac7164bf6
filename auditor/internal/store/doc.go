// Package store keeps audit reports.
//
// Store holds recent reports in memory. They expire after a configurable
// TTL and are evicted by a background loop. Archive optionally persists
// every report to a PostgreSQL table for long-term trend queries.
package store
