package handler

// Stats is a point-in-time snapshot of the handler's running counters.
// Total counts admitted records only; RateLimited counts rejections.
type Stats struct {
	Total       int            `json:"total"`
	ByCategory  map[string]int `json:"byCategory"`
	BySeverity  map[string]int `json:"bySeverity"`
	ByCode      map[string]int `json:"byCode"`
	Recovered   int            `json:"recovered"`
	Fatal       int            `json:"fatal"`
	RateLimited int            `json:"rateLimited"`
	Groups      int            `json:"groups"`
	Stored      int            `json:"stored"`
}

// stats is the handler's internal mutable counter set, guarded by the
// handler mutex.
type stats struct {
	total       int
	byCategory  map[string]int
	bySeverity  map[string]int
	byCode      map[string]int
	recovered   int
	fatal       int
	rateLimited int
}

func newStats() stats {
	return stats{
		byCategory: make(map[string]int),
		bySeverity: make(map[string]int),
		byCode:     make(map[string]int),
	}
}

func (s *stats) snapshot() Stats {
	out := Stats{
		Total:       s.total,
		ByCategory:  make(map[string]int, len(s.byCategory)),
		BySeverity:  make(map[string]int, len(s.bySeverity)),
		ByCode:      make(map[string]int, len(s.byCode)),
		Recovered:   s.recovered,
		Fatal:       s.fatal,
		RateLimited: s.rateLimited,
	}
	for k, v := range s.byCategory {
		out.ByCategory[k] = v
	}
	for k, v := range s.bySeverity {
		out.BySeverity[k] = v
	}
	for k, v := range s.byCode {
		out.ByCode[k] = v
	}
	return out
}
