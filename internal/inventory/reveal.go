package inventory

import "dealership/internal/model"

// PageSize is how many cars each reveal step adds.
const PageSize = 12

// Pages is how many pages a request may reveal. The count only carries over while the criteria
// are unchanged: when prevKey is set and differs from c.Key() the reveal starts again at one page.
func Pages(requested int, prevKey string, c Criteria) int {
	if requested < 1 || (prevKey != "" && prevKey != c.Key()) {
		return 1
	}
	return requested
}

// Window cuts the revealed part of a filtered catalog: pages revealed so far, the last page
// alone, and whether another page exists.
func Window(cars []model.Car, pages, pageSize int) (visible, fresh []model.Car, hasMore bool) {
	if pageSize <= 0 {
		pageSize = PageSize
	}
	if pages < 1 {
		pages = 1
	}
	end := min(pages*pageSize, len(cars))
	start := min((pages-1)*pageSize, end)
	return cars[:end], cars[start:end], end < len(cars)
}
