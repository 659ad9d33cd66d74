// Package pagination derives paging metadata from limit, offset and a row
// count, and parses the raw query parameters that feed it.
package pagination

import (
	"strconv"
	"strings"

	"github.com/docshare/identity-api/internal/core/domain"
)

// Metadata describes the page a limit/offset window falls on.
type Metadata struct {
	TotalCount  int64 `json:"totalCount"`
	CurrentPage int64 `json:"currentPage"`
	PageCount   int64 `json:"pageCount"`
	PageSize    int64 `json:"pageSize"`
}

// Paginate computes metadata for a window of limit rows starting at offset
// over count rows. limit must be >= 1.
//
// limit and offset are first clamped to count. On the final page with a
// non-zero offset the page size is count-offset when offset divides count,
// and count mod offset otherwise. That matches the remaining row count only
// when offset is a multiple of the page stride; callers that page with
// irregular offsets get the legacy value.
func Paginate(limit, offset, count int64) Metadata {
	if count <= 0 {
		return Metadata{TotalCount: 0, CurrentPage: 1, PageCount: 1, PageSize: 0}
	}
	if limit > count {
		limit = count
	}
	if offset > count {
		offset = count
	}

	m := Metadata{
		TotalCount:  count,
		CurrentPage: offset/limit + 1,
		PageCount:   (count + limit - 1) / limit,
		PageSize:    limit,
	}
	// offset == count on an exact multiple of limit lands one past the end.
	if m.CurrentPage > m.PageCount {
		m.CurrentPage = m.PageCount
	}

	if m.CurrentPage == m.PageCount && offset != 0 {
		if count%offset == 0 {
			m.PageSize = count - offset
		} else {
			m.PageSize = count % offset
		}
	}
	return m
}

// ParseQuery turns the raw limit/offset query values into a page window.
// Paging applies only when both values are present; otherwise it returns nil
// and the caller lists everything. With both present, limit must be an
// integer >= 1 and offset an integer >= 0, or the result is a
// MalformedPaginationQuery failure.
func ParseQuery(rawLimit, rawOffset string) (*domain.Page, error) {
	rawLimit = strings.TrimSpace(rawLimit)
	rawOffset = strings.TrimSpace(rawOffset)
	if rawLimit == "" || rawOffset == "" {
		return nil, nil
	}

	limit, err := strconv.Atoi(rawLimit)
	if err != nil || limit < 1 {
		return nil, domain.Invalid(domain.CauseMalformedPaginationQuery,
			domain.FieldError{Field: "limit", Message: "limit must be a positive integer"})
	}
	offset, err := strconv.Atoi(rawOffset)
	if err != nil || offset < 0 {
		return nil, domain.Invalid(domain.CauseMalformedPaginationQuery,
			domain.FieldError{Field: "offset", Message: "offset must be a non-negative integer"})
	}
	return &domain.Page{Limit: limit, Offset: offset}, nil
}
