// Package integration runs the indexer against real Postgres, search engine
// and Kafka containers, covering scheduled-style sync passes and the
// withdrawal cascade end to end.
package integration
