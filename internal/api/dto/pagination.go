package dto

import (
	"fmt"
	"net/url"
)

// Page is the list envelope: {count, next, previous, results}. next and
// previous are request paths with adjusted page parameters, null at the
// edges.
type Page struct {
	Count    int64       `json:"count"`
	Next     *string     `json:"next"`
	Previous *string     `json:"previous"`
	Results  interface{} `json:"results"`
}

// NewPage builds the envelope from the request URL so filter parameters
// survive into the next/previous links.
func NewPage(requestURL *url.URL, page, pageSize int, total int64, results interface{}) Page {
	totalPages := (total + int64(pageSize) - 1) / int64(pageSize)

	var next, previous *string
	if int64(page) < totalPages {
		u := pageLink(requestURL, page+1)
		next = &u
	}
	if page > 1 {
		u := pageLink(requestURL, page-1)
		previous = &u
	}

	return Page{
		Count:    total,
		Next:     next,
		Previous: previous,
		Results:  results,
	}
}

func pageLink(requestURL *url.URL, page int) string {
	q := requestURL.Query()
	q.Set("page", fmt.Sprintf("%d", page))
	u := *requestURL
	u.RawQuery = q.Encode()
	return u.String()
}
