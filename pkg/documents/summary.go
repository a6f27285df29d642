package documents

// Summary counts the outcome of a bulk download.
type Summary struct {
	Total       int
	Skipped     int
	Documents   int
	Missing     int
	Unsupported int
}

// Record counts a written result.
func (s *Summary) Record(r *Result) {
	if r == nil {
		return
	}
	switch r.Kind {
	case KindDocument:
		s.Documents++
	case KindNone:
		s.Missing++
	case KindBad:
		s.Unsupported++
	}
}

// Fetched returns the number of items requested from the API.
func (s Summary) Fetched() int {
	return s.Documents + s.Missing + s.Unsupported
}
