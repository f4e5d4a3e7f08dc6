package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imaddar/poker-arena/services/holdem/internal/domain"
	"github.com/imaddar/poker-arena/services/holdem/internal/persistence"
	"github.com/imaddar/poker-arena/services/holdem/internal/rules"
	"github.com/imaddar/poker-arena/services/holdem/internal/service"
	"github.com/imaddar/poker-arena/services/holdem/internal/settlement"
	"github.com/imaddar/poker-arena/services/holdem/internal/statemachine"
)

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func newTestServer(t *testing.T) (*Server, *service.Hands) {
	t.Helper()

	logger := log.New(discard{})
	hands := service.NewHands(persistence.NewInMemoryRepository(), nil, logger, service.DefaultHistoryLimits())
	server := NewServer(hands, Options{
		Logger:        logger,
		NewCardSource: func() rules.CardSource { return rules.NewSeededSource(1) },
		Settler:       settlement.NewSettler(hands, settlement.NewGuard(), logger),
	})
	return server, hands
}

func serve(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestCreateHandReturnsCreatedAndConflict(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	body := mustJSON(t, foldedAroundRequest(t, "h1"))

	w := serve(t, server, http.MethodPost, HandsPath, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp settlement.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "h1", resp.HandID)
	assert.Equal(t, "f f f f f", resp.Actions)
	assert.Equal(t, int64(20), resp.Winnings["5"])
	assert.Equal(t, int64(-20), resp.Winnings["4"])
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(t, server, http.MethodPost, HandsPath, body)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "already exists")
}

func TestCreateHandRejectsBadInput(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)

	w := serve(t, server, http.MethodPost, HandsPath, `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := foldedAroundRequest(t, "bad")
	req.Actions[0].Seat = 2
	w = serve(t, server, http.MethodPost, HandsPath, mustJSON(t, req))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "invalid hand record")
}

func TestGetListAndDeleteHand(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	for _, handID := range []string{"h1", "h2"} {
		w := serve(t, server, http.MethodPost, HandsPath, mustJSON(t, foldedAroundRequest(t, handID)))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w := serve(t, server, http.MethodGet, HandsPath+"h1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp settlement.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "h1", resp.HandID)

	w = serve(t, server, http.MethodGet, HandsPath+"?limit=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var history []settlement.HistoryEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	require.Len(t, history, 1)
	assert.Contains(t, history[0].DisplayLines, "Winnings:")

	w = serve(t, server, http.MethodGet, HandsPath+"?limit=ten", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = serve(t, server, http.MethodDelete, HandsPath+"h1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = serve(t, server, http.MethodDelete, HandsPath+"h1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = serve(t, server, http.MethodGet, HandsPath+"h1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRootHealthAndPreflight(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)

	w := serve(t, server, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	var root map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &root))
	assert.Equal(t, Version, root["version"])

	w = serve(t, server, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","database":"connected"}`, w.Body.String())

	w = serve(t, server, http.MethodOptions, HandsPath, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(t, server, http.MethodGet, "/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthReportsUnavailableStore(t *testing.T) {
	t.Parallel()

	server := NewServer(unhealthyHands{}, Options{Logger: log.New(discard{})})
	w := serve(t, server, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"unhealthy","database":"disconnected"}`, w.Body.String())
}

func TestCreateHandMapsStoreFailureToServerError(t *testing.T) {
	t.Parallel()

	server := NewServer(unhealthyHands{}, Options{Logger: log.New(discard{})})
	w := serve(t, server, http.MethodPost, HandsPath, mustJSON(t, foldedAroundRequest(t, "h1")))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

type unhealthyHands struct{}

var errStoreDown = errors.New("store down")

func (unhealthyHands) Create(context.Context, settlement.Request) (settlement.Response, error) {
	return settlement.Response{}, errStoreDown
}

func (unhealthyHands) Get(context.Context, string) (settlement.Response, error) {
	return settlement.Response{}, errStoreDown
}

func (unhealthyHands) List(context.Context, int) ([]settlement.HistoryEntry, error) {
	return nil, errStoreDown
}

func (unhealthyHands) Delete(context.Context, string) error { return errStoreDown }

func (unhealthyHands) Healthy(context.Context) error { return errStoreDown }

func foldedAroundRequest(t *testing.T, handID string) settlement.Request {
	t.Helper()

	engine := statemachine.NewEngine(rules.NewScriptedSource(domain.Standard52Deck()[:17]...))
	state, err := engine.NewHand(statemachine.NewHandInput{HandID: handID, StackSize: 1000, DealCards: true})
	require.NoError(t, err)
	for range 5 {
		state, err = engine.Apply(state, domain.Action{Kind: domain.ActionFold})
		require.NoError(t, err)
	}
	req, err := settlement.BuildRequest(state)
	require.NoError(t, err)
	return req
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()

	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}
