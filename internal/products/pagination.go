package products

// MaxPageLimit caps the page size a caller may request.
const MaxPageLimit = 100

// Window is the result of pagination arithmetic over a total item count.
type Window struct {
	Skip       int
	Limit      int
	Page       int
	TotalPages int
}

// Paginate computes skip = (page-1)*limit and totalPages = ceil(total/limit).
// page and limit below 1 are clamped to 1; limit above MaxPageLimit is clamped to MaxPageLimit.
// Pages past the end get an empty window.
func Paginate(total, page, limit int) Window {
	if total < 0 {
		total = 0
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	w := Window{Limit: limit, Page: page, TotalPages: pages}
	if page-1 > total/limit {
		// (page-1)*limit would exceed total and may overflow
		w.Skip = total
		return w
	}
	w.Skip = (page - 1) * limit
	return w
}

// Slice returns the window's portion of items; never more than Limit elements.
func (w Window) Slice(items []Product) []Product {
	if w.Skip >= len(items) {
		return []Product{}
	}
	end := w.Skip + w.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[w.Skip:end]
}
