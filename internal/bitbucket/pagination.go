package bitbucket

import "context"

// page is the envelope Bitbucket wraps every list response in
type page[T any] struct {
	Values  []T    `json:"values"`
	Next    string `json:"next"`
	Page    int    `json:"page"`
	PageLen int    `json:"pagelen"`
	Size    int    `json:"size"`
}

// listAll follows "next" links until the last page and keeps server order
func listAll[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	all := make([]T, 0)
	next := path
	for next != "" {
		var p page[T]
		if err := c.get(ctx, next, &p); err != nil {
			return nil, err
		}
		all = append(all, p.Values...)

		if p.Next == next {
			break
		}
		next = p.Next
	}
	return all, nil
}
