package video

import (
	"net/http"
	"strconv"
)

const defaultPageSize = 8
const maxPageSize = 100

type Pagination struct {
	CurrentPage int `json:"currentPage"`
	TotalPage   int `json:"totalPage"`
	TotalVideos int `json:"totalVideos"`
	PageSize    int `json:"pageSize"`
}

// paginate derives page counts from a total. Out-of-range pages are allowed;
// they just produce empty result sets.
func paginate(totalVideos, page, size int) Pagination {
	totalPage := 0
	if totalVideos > 0 {
		totalPage = (totalVideos + size - 1) / size
	}
	return Pagination{
		CurrentPage: page,
		TotalPage:   totalPage,
		TotalVideos: totalVideos,
		PageSize:    size,
	}
}

func pageOffset(page, size int) int {
	return (page - 1) * size
}

func pageParams(r *http.Request) (page, size int) {
	page = 1
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 1 {
		page = p
	}

	size = defaultPageSize
	if s, err := strconv.Atoi(r.URL.Query().Get("size")); err == nil && s > 0 {
		size = s
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	return page, size
}
