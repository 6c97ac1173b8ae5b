package structs

const (
	queryLimitDefault = 50
	queryLimitMax     = 200
)

// Query filters job listings. All fields are optional and purely additive;
// a zero Query returns everything, most-recent-first (runner contract).
type Query struct {
	Kind   Kind   `json:"kind,omitempty"`
	Status Status `json:"status,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

func (q *Query) Sanitize() {
	if q.Limit <= 0 {
		q.Limit = queryLimitDefault
	}
	if q.Limit > queryLimitMax {
		q.Limit = queryLimitMax
	}
}
