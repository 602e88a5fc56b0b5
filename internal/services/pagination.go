package services

import (
	"math"
	"net/url"
	"strconv"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

type Page struct {
	Page   int
	Limit  int
	Offset int
}

type PageMeta struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	TotalPages int `json:"totalPages"`
}

// ParsePagination reads currentPage/itemsPerPage, falling back to page/limit.
// Invalid values fall back to defaults; limit is capped at 100.
func ParsePagination(q url.Values) Page {
	rawPage := q.Get("currentPage")
	if rawPage == "" {
		rawPage = q.Get("page")
	}
	rawLimit := q.Get("itemsPerPage")
	if rawLimit == "" {
		rawLimit = q.Get("limit")
	}

	page := 1
	if p, err := strconv.ParseFloat(rawPage, 64); err == nil && p > 0 && p < math.MaxInt32 {
		page = int(math.Floor(p))
		if page < 1 {
			page = 1
		}
	}

	limit := defaultPageSize
	if l, err := strconv.ParseFloat(rawLimit, 64); err == nil && l > 0 {
		limit = int(math.Min(math.Floor(l), maxPageSize))
		if limit < 1 {
			limit = defaultPageSize
		}
	}

	return Page{Page: page, Limit: limit, Offset: (page - 1) * limit}
}

func MakeMeta(total, page, limit int) PageMeta {
	totalPages := 0
	if limit > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(limit)))
	}
	return PageMeta{Total: total, Page: page, PerPage: limit, TotalPages: totalPages}
}
