package handlers

import (
	"errors"
	"strconv"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

var errInvalidPagination = errors.New("page and limit must be positive integers")

// parsePaginationParams reads page/limit query values; limit is capped at
// maxPageSize.
func parsePaginationParams(pageStr, limitStr string) (int64, int64, error) {
	page := int64(1)
	limit := int64(defaultPageSize)

	if pageStr != "" {
		p, err := strconv.ParseInt(pageStr, 10, 64)
		if err != nil || p < 1 {
			return 0, 0, errInvalidPagination
		}
		page = p
	}

	if limitStr != "" {
		l, err := strconv.ParseInt(limitStr, 10, 64)
		if err != nil || l < 1 {
			return 0, 0, errInvalidPagination
		}
		limit = min(l, maxPageSize)
	}

	return page, limit, nil
}
