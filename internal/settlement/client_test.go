package settlement

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSubmitCreated(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, HandsPath, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req Request
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(Response{
			ID:       1,
			HandID:   req.HandID,
			Actions:  "f f f f f",
			Winnings: map[string]int64{"4": -20, "5": 20},
		})
	}))
	defer server.Close()

	req, err := BuildRequest(foldedAround(t))
	require.NoError(t, err)

	resp, err := NewClient(server.URL+"/", time.Second).Submit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(20), resp.Winnings["5"])
	assert.Equal(t, "f f f f f", resp.Actions)
}

func TestClientSubmitMapsFailures(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		handler http.HandlerFunc
		want    error
	}{
		"conflict": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error":"exists"}`, http.StatusConflict)
			},
			want: ErrAlreadySaved,
		},
		"server error": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			want: ErrServer,
		},
		"malformed": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusCreated)
				_, _ = w.Write([]byte("{not-json"))
			},
			want: ErrMalformedResponse,
		},
		"wrong hand": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusCreated)
				_ = json.NewEncoder(w).Encode(Response{HandID: "other"})
			},
			want: ErrMalformedResponse,
		},
	}

	req, err := BuildRequest(foldedAround(t))
	require.NoError(t, err)

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(tc.handler)
			defer server.Close()

			_, err := NewClient(server.URL, time.Second).Submit(context.Background(), req)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestClientSubmitNetworkError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	req, err := BuildRequest(foldedAround(t))
	require.NoError(t, err)

	_, err = NewClient(url, time.Second).Submit(context.Background(), req)
	require.ErrorIs(t, err, ErrNetwork)

	_, err = NewClient("", time.Second).Submit(context.Background(), req)
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestClientHistory(t *testing.T) {
	t.Parallel()

	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "3", r.URL.Query().Get("limit"))
		_ = json.NewEncoder(w).Encode([]HistoryEntry{{
			HandID:       "h1",
			DisplayLines: []string{"Seat 1 is dealt AsAh"},
			CreatedAt:    created,
		}})
	}))
	defer server.Close()

	entries, err := NewClient(server.URL, time.Second).History(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "h1", entries[0].HandID)
	assert.True(t, created.Equal(entries[0].CreatedAt))
}
