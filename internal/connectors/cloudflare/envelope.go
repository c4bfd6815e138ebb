package cloudflare

import (
	"context"
	"strconv"
	"strings"

	"github.com/custodia-labs/connect-cli/internal/connectors/rest"
)

// Message is an entry of the envelope's errors or messages arrays.
type Message struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ResultInfo carries page-number pagination details.
type ResultInfo struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Count      int `json:"count"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}

// HasNext reports whether another page follows page. Without total_pages
// a full page is taken to mean more results.
func (ri *ResultInfo) HasNext(page, got int) bool {
	if ri == nil {
		return false
	}
	if ri.TotalPages > 0 {
		return page < ri.TotalPages
	}
	return ri.PerPage > 0 && got >= ri.PerPage
}

// Envelope is the standard Cloudflare response wrapper.
type Envelope[T any] struct {
	Success    bool        `json:"success"`
	Errors     []Message   `json:"errors"`
	Messages   []Message   `json:"messages"`
	Result     T           `json:"result"`
	ResultInfo *ResultInfo `json:"result_info,omitempty"`
}

// call issues req and unwraps the envelope.
func call[T any](ctx context.Context, c *Client, req rest.Request) (T, *ResultInfo, error) {
	var zero T
	resp, err := c.rest.Do(ctx, req)
	if err != nil {
		return zero, nil, err
	}

	var env Envelope[T]
	if err := resp.Decode(&env); err != nil {
		return zero, nil, err
	}
	if !env.Success {
		return zero, nil, envelopeError(c, req, resp, env.Errors)
	}
	return env.Result, env.ResultInfo, nil
}

func envelopeError(c *Client, req rest.Request, resp *rest.Response, errs []Message) *rest.APIError {
	method := req.Method
	if method == "" {
		method = "GET"
	}
	apiErr := &rest.APIError{
		Connector:  c.rest.Name(),
		StatusCode: resp.StatusCode,
		Method:     method,
		URL:        c.rest.BaseURL() + req.Path,
		Body:       resp.Body,
		Message:    "request unsuccessful",
	}
	if len(errs) > 0 {
		apiErr.Code = strconv.Itoa(errs[0].Code)
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Message
		}
		apiErr.Message = strings.Join(msgs, "; ")
	}
	return apiErr
}

// idResult is returned by delete and purge endpoints.
type idResult struct {
	ID string `json:"id"`
}
