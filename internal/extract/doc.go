// Package extract defines the core domain-relevance scoring engine: keyword
// matching, per-domain score accumulation, ranking, and sink deduplication.
// Observation sources (Common Crawl scanners, dork searches) and sinks live
// in their own packages and plug in through the interfaces declared here.
package extract
