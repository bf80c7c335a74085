package pagination

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params holds pagination parameters extracted from a request.
type Params struct {
	Limit  int
	Offset int
}

// FromContext extracts pagination parameters from the echo context.
// Query parameters win over a PostgREST-style "Range: 0-19" header.
func FromContext(c echo.Context) Params {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	if limit <= 0 && offset <= 0 {
		if from, to, ok := parseRange(c.Request().Header.Get("Range")); ok {
			offset = from
			limit = to - from + 1
		}
	}

	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}

	return Params{Limit: limit, Offset: offset}
}

// parseRange reads "from-to" with an optional "items=" unit prefix.
func parseRange(h string) (int, int, bool) {
	h = strings.TrimPrefix(strings.TrimSpace(h), "items=")
	lo, hi, found := strings.Cut(h, "-")
	if !found {
		return 0, 0, false
	}
	from, err := strconv.Atoi(lo)
	if err != nil || from < 0 {
		return 0, 0, false
	}
	to, err := strconv.Atoi(hi)
	if err != nil || to < from {
		return 0, 0, false
	}
	return from, to, true
}

// Response wraps a paginated API response.
type Response struct {
	Data    interface{} `json:"data"`
	Total   int         `json:"total"`
	Limit   int         `json:"limit"`
	Offset  int         `json:"offset"`
	HasMore bool        `json:"has_more"`
}

func NewResponse(data interface{}, total, limit, offset int) *Response {
	return &Response{
		Data:    data,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	}
}

// ContentRange renders the PostgREST Content-Range value for a page, e.g. "0-19/57".
func (p Params) ContentRange(returned, total int) string {
	if returned == 0 {
		return fmt.Sprintf("*/%d", total)
	}
	return fmt.Sprintf("%d-%d/%d", p.Offset, p.Offset+returned-1, total)
}

// HasNext returns true if there are more results after the current page.
func (p Params) HasNext(total int) bool {
	return p.Offset+p.Limit < total
}
