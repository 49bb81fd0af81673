// Package server exposes ingestion and chat over HTTP.
//
// Routes:
//
//	GET  /health          liveness probe
//	POST /knowledge/rss   {"source": "..."} ingest the latest articles of a registered feed
//	POST /chat            {"query": "...", "sessionId": "..."} stream an answer as server-sent events
//
// The two POST routes are mounted under the configured base path.
package server
