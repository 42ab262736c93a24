package clio

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"testing"

	"CaseReview/internal/constants"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numbered(from, n int) []any {
	out := make([]any, 0, n)
	for i := from; i < from+n; i++ {
		out = append(out, map[string]any{"id": i})
	}
	return out
}

func ids(rows []map[string]any) []int {
	out := make([]int, 0, len(rows))
	for _, r := range rows {
		n, _ := strconv.Atoi(str(r["id"]))
		out = append(out, n)
	}
	return out
}

func TestPaginateFollowsNextLinks(t *testing.T) {
	h := newHarness(t)
	var queries []string
	h.router.HandleFunc("/api/v4/matters.json", func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.RawQuery)
		switch r.URL.Query().Get("page") {
		case "":
			writeJSON(w, http.StatusOK, page(numbered(1, 200), h.url("/api/v4/matters.json?page=2&limit=200")))
		case "2":
			writeJSON(w, http.StatusOK, page(numbered(201, 200), h.url("/api/v4/matters.json?page=3&limit=200")))
		default:
			writeJSON(w, http.StatusOK, page(numbered(401, 50), ""))
		}
	})

	rows, err := h.client.Paginate(context.Background(), h.url("/api/v4/matters.json"), nil, PageSpec{Limit: 200})
	require.NoError(t, err)
	require.Len(t, rows, 450)

	got := ids(rows)
	for i, id := range got {
		require.Equal(t, i+1, id)
	}
	require.Len(t, queries, 3)
	assert.Equal(t, "limit=200&order=id%28asc%29", queries[0])
	assert.Equal(t, "page=2&limit=200", queries[1])
}

func TestPaginateEchoesPageToken(t *testing.T) {
	h := newHarness(t)
	var tokens []string
	h.router.HandleFunc("/api/v4/activities", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "2", q.Get("limit"))
		assert.Equal(t, "billable", q.Get("status"))
		tokens = append(tokens, q.Get("page_token"))
		body := map[string]any{"data": numbered(len(tokens)*10, 2), "meta": map[string]any{"paging": map[string]any{}}}
		if len(tokens) < 3 {
			body["meta"] = map[string]any{"paging": map[string]any{"next_page_token": "tok-" + strconv.Itoa(len(tokens))}}
		}
		writeJSON(w, http.StatusOK, body)
	})

	params := map[string][]string{"status": {"billable"}}
	rows, err := h.client.Paginate(context.Background(), h.url("/api/v4/activities"), params, PageSpec{Limit: 2, Cursor: CursorPageToken})
	require.NoError(t, err)
	assert.Len(t, rows, 6)
	assert.Equal(t, []string{"", "tok-1", "tok-2"}, tokens)
}

func TestPaginateStopsOnShortPage(t *testing.T) {
	h := newHarness(t)
	calls := 0
	h.router.HandleFunc("/api/v4/matters.json", func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeJSON(w, http.StatusOK, page(numbered(1, 3), h.url("/api/v4/matters.json?page=2")))
	})

	rows, err := h.client.Paginate(context.Background(), h.url("/api/v4/matters.json"), nil, PageSpec{Limit: 200})
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	assert.Equal(t, 1, calls)
}

func TestPaginateDropsNonObjectEntries(t *testing.T) {
	h := newHarness(t)
	h.router.HandleFunc("/api/v4/matters.json", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, page([]any{map[string]any{"id": 1}, "junk", 7, nil, map[string]any{"id": 2}}, ""))
	})

	rows, err := h.client.Paginate(context.Background(), h.url("/api/v4/matters.json"), nil, PageSpec{})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, ids(rows))
}

func TestPaginateKeepsNumbersExact(t *testing.T) {
	h := newHarness(t)
	h.router.HandleFunc("/api/v4/outstanding_client_balances.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":1,"total_outstanding_balance":1234567.89}],"meta":{"paging":{}}}`))
	})

	rows, err := h.client.Paginate(context.Background(), h.url("/api/v4/outstanding_client_balances.json"), nil, PageSpec{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "1234567.89", str(rows[0]["total_outstanding_balance"]))
}

func TestPaginateFailedPageKeepsRowsSoFar(t *testing.T) {
	h := newHarness(t, WithMaxAttempts(1))
	h.router.HandleFunc("/api/v4/matters.json", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, page(numbered(1, 2), h.url("/api/v4/matters.json?page=2")))
	})

	rows, err := h.client.Paginate(context.Background(), h.url("/api/v4/matters.json"), nil, PageSpec{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	warned := h.logs.FilterMessage("clio page failed, keeping rows fetched so far")
	require.Equal(t, 1, warned.Len())
	assert.EqualValues(t, 500, warned.All()[0].ContextMap()["status"])
}

func TestPaginateStrictReturnsPageError(t *testing.T) {
	h := newHarness(t, WithMaxAttempts(1))
	h.router.HandleFunc("/api/v4/matters.json", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	})

	_, err := h.client.Paginate(context.Background(), h.url("/api/v4/matters.json"), nil, PageSpec{Strict: true})
	require.Error(t, err)

	var pageErr *PageError
	require.True(t, errors.As(err, &pageErr))
	assert.Equal(t, http.StatusForbidden, pageErr.Status)
	assert.True(t, errors.Is(err, constants.ErrPage))
}

func TestParseCursorStyle(t *testing.T) {
	s, err := ParseCursorStyle("token")
	require.NoError(t, err)
	assert.Equal(t, CursorPageToken, s)

	s, err = ParseCursorStyle("")
	require.NoError(t, err)
	assert.Equal(t, CursorNextLink, s)

	_, err = ParseCursorStyle("offset")
	assert.ErrorIs(t, err, constants.ErrConfig)
}
