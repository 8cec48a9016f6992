package extract

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ObservationsProcessed counts observations that reached the matcher.
	ObservationsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "domainscout_observations_processed_total",
		Help: "The total number of observations processed by the scoring engine.",
	})
	// ObservationsSkipped counts malformed observations dropped before matching.
	ObservationsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "domainscout_observations_skipped_total",
		Help: "The total number of malformed observations dropped.",
	})
	// DomainsDiscovered counts domains entering the accumulator for the first time.
	DomainsDiscovered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "domainscout_domains_discovered_total",
		Help: "The total number of unique domains that received a first scoring contribution.",
	})
	// SearchQueries counts dork queries issued against the search engine.
	SearchQueries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "domainscout_search_queries_total",
		Help: "The total number of search queries executed by the dork channel.",
	})
	// SinkUpserts counts domain records written to the sink.
	SinkUpserts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "domainscout_sink_upserts_total",
		Help: "The total number of domain records upserted into the sink.",
	})
	// ArchiveFilesScanned counts Common Crawl archive files fully scanned.
	ArchiveFilesScanned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "domainscout_archive_files_scanned_total",
		Help: "The total number of WET/WAT archive files scanned.",
	})
)
