package model

import "time"

// Pagination represents common pagination parameters
type Pagination struct {
	Page     int `json:"page" form:"page"`
	PageSize int `json:"page_size" form:"page_size"`
}

// Offset returns the zero-based index of the first item on the page.
func (p Pagination) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// TotalPages returns how many pages total items span at the page size.
func (p Pagination) TotalPages(total int) int {
	if p.PageSize <= 0 || total <= 0 {
		return 0
	}
	return (total + p.PageSize - 1) / p.PageSize
}

// JSONMap represents a generic JSON object
type JSONMap map[string]interface{}

// TimePtr returns a pointer to a copy of t.
func TimePtr(t time.Time) *time.Time {
	return &t
}
