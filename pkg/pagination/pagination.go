package pagination

const (
	// DefaultTake is the standard page size when take is not provided.
	DefaultTake = 20
	// MaxTake caps how many rows any listing can request.
	MaxTake = 100
)

// Params holds page/take inputs forwarded to the backend listings.
type Params struct {
	Page int
	Take int
}

// Normalize clamps page to 1.. and take to 1..MaxTake.
func Normalize(p Params) Params {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Take <= 0 {
		p.Take = DefaultTake
	}
	if p.Take > MaxTake {
		p.Take = MaxTake
	}
	return p
}

// Meta describes a page returned by the backend.
type Meta struct {
	Page      int  `json:"page"`
	Take      int  `json:"take"`
	ItemCount int  `json:"itemCount"`
	PageCount int  `json:"pageCount"`
	HasNext   bool `json:"hasNextPage"`
	HasPrev   bool `json:"hasPreviousPage"`
}
