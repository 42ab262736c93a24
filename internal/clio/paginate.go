package clio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"CaseReview/internal/constants"

	"go.uber.org/zap"
)

const defaultPageLimit = 200

type CursorStyle int

const (
	// CursorNextLink follows meta.paging.next verbatim.
	CursorNextLink CursorStyle = iota
	// CursorPageToken echoes meta.paging.next_page_token as page_token.
	CursorPageToken
)

func (s CursorStyle) String() string {
	if s == CursorPageToken {
		return "token"
	}
	return "link"
}

// ParseCursorStyle accepts "link" or "token"; anything else is an error.
func ParseCursorStyle(v string) (CursorStyle, error) {
	switch v {
	case "", "link":
		return CursorNextLink, nil
	case "token":
		return CursorPageToken, nil
	}
	return CursorNextLink, fmt.Errorf("%w: unknown cursor style %q", constants.ErrConfig, v)
}

type PageSpec struct {
	Limit  int
	Cursor CursorStyle
	// Strict turns a failed page into a *PageError instead of a short result.
	Strict bool
}

// PageError reports a page that did not return 200 after retries.
type PageError struct {
	URL    string
	Status int
	Body   string
	Rows   int
}

func (e *PageError) Error() string {
	return fmt.Sprintf(constants.ErrPageFailed, e.Status, e.Body) + " (" + e.URL + ")"
}

func (e *PageError) Unwrap() error {
	return constants.ErrPage
}

type pageEnvelope struct {
	Data any `json:"data"`
	Meta struct {
		Paging struct {
			Next          any `json:"next"`
			NextPageToken any `json:"next_page_token"`
		} `json:"paging"`
	} `json:"meta"`
}

// Paginate walks every page of a collection and returns the object entries in
// server order. It stops when no cursor is returned or a page comes back
// shorter than the limit.
func (c *Client) Paginate(ctx context.Context, rawURL string, params url.Values, spec PageSpec) ([]map[string]any, error) {
	base := cloneValues(params)
	if base.Get("limit") == "" {
		limit := spec.Limit
		if limit <= 0 {
			limit = defaultPageLimit
		}
		base.Set("limit", strconv.Itoa(limit))
	}
	if base.Get("order") == "" {
		base.Set("order", constants.DefaultOrdering)
	}
	limit, _ := strconv.Atoi(base.Get("limit"))

	var rows []map[string]any
	next, nextParams := rawURL, base
	for page := 1; ; page++ {
		resp, err := c.Do(ctx, http.MethodGet, next, nextParams, nil)
		if err != nil {
			return rows, err
		}
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		var env pageEnvelope
		decodeErr := readErr
		if resp.StatusCode == http.StatusOK && decodeErr == nil {
			decodeErr = decodeJSON(body, &env)
		}
		if resp.StatusCode != http.StatusOK || decodeErr != nil {
			pageErr := &PageError{URL: next, Status: resp.StatusCode, Body: snippet(body), Rows: len(rows)}
			if spec.Strict {
				return rows, pageErr
			}
			c.log.Warn("clio page failed, keeping rows fetched so far",
				zap.String("url", next), zap.Int("page", page), zap.Int("status", resp.StatusCode),
				zap.Int("rows", len(rows)), zap.String("body", pageErr.Body), zap.NamedError("decode", decodeErr))
			return rows, nil
		}

		entries := list(env.Data)
		for _, e := range entries {
			if m := obj(e); m != nil {
				rows = append(rows, m)
			}
		}
		c.log.Debug("clio page fetched", zap.String("url", next), zap.Int("page", page), zap.Int("entries", len(entries)))

		if len(entries) < limit {
			return rows, nil
		}
		switch spec.Cursor {
		case CursorPageToken:
			token := str(env.Meta.Paging.NextPageToken)
			if token == "" {
				return rows, nil
			}
			nextParams = cloneValues(base)
			nextParams.Set("page_token", token)
		default:
			link := str(env.Meta.Paging.Next)
			if link == "" {
				return rows, nil
			}
			next, nextParams = link, nil
		}
	}
}

func decodeJSON(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	return dec.Decode(v)
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}
	return out
}
