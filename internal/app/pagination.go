package app

// RecipePageSize is how many recipes a list page shows.
const RecipePageSize = 20

// Pagination describes one window over a filtered recipe list. From and
// To are 1-based display positions, both zero when nothing matched.
type Pagination struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"pageSize"`
	TotalCount int  `json:"totalCount"`
	TotalPages int  `json:"totalPages"`
	HasPrev    bool `json:"hasPrev"`
	HasNext    bool `json:"hasNext"`
	From       int  `json:"from"`
	To         int  `json:"to"`
}

// Paginate computes the window for a page over totalCount rows. A page
// past the end keeps its number and reports an empty range, the list
// query simply returns no rows there.
func Paginate(totalCount, page, pageSize int) Pagination {
	if page < 1 {
		page = 1
	}
	totalPages := (totalCount + pageSize - 1) / pageSize

	p := Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
		TotalPages: totalPages,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
	}
	if totalCount == 0 {
		return p
	}

	from := (page-1)*pageSize + 1
	if from > totalCount {
		return p
	}
	to := page * pageSize
	if to > totalCount {
		to = totalCount
	}
	p.From = from
	p.To = to
	return p
}

// Offset converts the page number to a row offset for the list query.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}
