package extract

// FilterNew drops candidates whose domain exact-matches an entry in existing,
// preserving input order. Domains were normalized at observation time, so the
// comparison is case-sensitive.
//
// This is advisory pre-upload deduplication only: existing may be stale
// relative to concurrent writers, so sinks still upsert by domain.
func FilterNew(candidates []DomainRecord, existing map[string]struct{}) []DomainRecord {
	if len(existing) == 0 {
		out := make([]DomainRecord, len(candidates))
		copy(out, candidates)
		return out
	}
	out := make([]DomainRecord, 0, len(candidates))
	for _, rec := range candidates {
		if _, known := existing[rec.Domain]; known {
			continue
		}
		out = append(out, rec)
	}
	return out
}
