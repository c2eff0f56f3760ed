package types

// Paging defaults applied when a caller leaves Limit or Offset unset.
const (
	DefaultLimit  = 100
	DefaultOffset = 0
)

// Page is a (limit, offset) window over an ordered result set.
type Page struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Normalize replaces a non-positive limit with DefaultLimit and a negative
// offset with zero.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Offset < 0 {
		p.Offset = DefaultOffset
	}
	return p
}
