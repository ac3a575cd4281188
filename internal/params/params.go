package params

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

// URL: /v1/products?page=2&limit=30
// → Parse(q, Defaults) → Pagination{Limit:30, Page:2, Offset:30}
// → Mongo: find().skip(30).limit(30) + countDocuments
// → ComputeMeta(total) → fills TotalPages, HasNext, etc.
type Pagination struct {
	Limit      int  `json:"limit"`
	Offset     int  `json:"offset"`
	Page       int  `json:"page"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// Limits bounds the page size of one listing.
type Limits struct {
	Default int
	Max     int
}

var (
	ProsmartLimits  = Limits{Default: 10, Max: 100}
	HydraliteLimits = Limits{Default: 20, Max: 100}
)

// Requested reports whether the caller asked for a page. ProSmart listings
// return everything unless both page and limit are present.
func Requested(q url.Values) bool {
	return strings.TrimSpace(q.Get("page")) != "" && strings.TrimSpace(q.Get("limit")) != ""
}

// Parse reads ?limit=...&page=... Keys are case sensitive.
func Parse(q url.Values, l Limits) Pagination {
	p := Pagination{
		Limit: l.Default,
		Page:  1,
	}

	if limitStr := strings.TrimSpace(q.Get("limit")); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			switch {
			case limit <= 0:
				p.Limit = l.Default
			case l.Max > 0 && limit > l.Max:
				p.Limit = l.Max
			default:
				p.Limit = limit
			}
		}
	}

	if pageStr := strings.TrimSpace(q.Get("page")); pageStr != "" {
		if page, err := strconv.Atoi(pageStr); err == nil && page > 0 {
			p.Page = page
		}
	}

	p.Offset = (p.Page - 1) * p.Limit
	return p
}

// ComputeMeta updates pagination after fetching total count.
func (p *Pagination) ComputeMeta(total int) {
	p.Total = total
	if p.Limit > 0 {
		p.TotalPages = int(math.Ceil(float64(total) / float64(p.Limit)))
	}
	p.HasPrev = p.Page > 1
	p.HasNext = (p.Page * p.Limit) < total
}
