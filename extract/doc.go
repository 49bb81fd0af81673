// Package extract turns article pages into indexed chunks.
//
// A Renderer loads a page and returns its visible text, Normalize collapses
// line breaks, a Chunker cuts the text into overlapping windows, and Handler
// ties the steps together as the job handler of the ingestion queue:
//
//	render -> normalize -> chunk -> vector store write -> processed marker
//
// The processed marker is written only after the vector store accepted the
// whole batch, so a failure at any step leaves the article eligible for
// another attempt.
package extract
