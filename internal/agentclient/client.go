package agentclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/imaddar/poker-arena/services/holdem/internal/domain"
	"github.com/imaddar/poker-arena/services/holdem/internal/statemachine"
	"github.com/imaddar/poker-arena/services/holdem/internal/transcript"
)

const (
	ProtocolVersion      = 1
	defaultTimeout       = 2 * time.Second
	defaultActionTimeout = uint64(2000)
	maxResponseBodyBytes = 1 << 20
)

var (
	ErrEndpointNotConfigured = errors.New("agent endpoint not configured")
	ErrRequestTimeout        = errors.New("agent request timeout")
	ErrNetwork               = errors.New("agent network error")
	ErrMalformedResponse     = errors.New("agent response malformed")
	ErrIllegalAgentAction    = errors.New("agent returned illegal action")
	ErrMissingHoleCards      = errors.New("missing acting seat hole cards")
)

// Client asks a remote seat agent over HTTP which action to take.
type Client struct {
	httpClient *http.Client
}

type Request struct {
	EndpointURL     string
	State           domain.HandState
	ActionTimeoutMS uint64
}

// protocolRequest is the acting seat's view of the table. Other seats' hole
// cards are never sent.
type protocolRequest struct {
	ProtocolVersion int               `json:"protocol_version"`
	HandID          string            `json:"hand_id"`
	Street          string            `json:"street"`
	Seat            int               `json:"seat"`
	HoleCards       string            `json:"hole_cards"`
	Board           string            `json:"board"`
	Pot             int64             `json:"pot"`
	ToCall          uint32            `json:"to_call"`
	MinRaiseTo      *uint32           `json:"min_raise_to"`
	Stacks          map[string]uint32 `json:"stacks"`
	Bets            map[string]uint32 `json:"bets"`
	Folded          []int             `json:"folded"`
	LegalActions    []string          `json:"legal_actions"`
	ActionDeadline  uint64            `json:"action_deadline_ms"`
}

type protocolResponse struct {
	Action string  `json:"action"`
	Amount *uint32 `json:"amount,omitempty"`
}

func New(timeout time.Duration) Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return Client{httpClient: &http.Client{Timeout: timeout}}
}

func (c Client) NextAction(ctx context.Context, req Request) (domain.Action, error) {
	if strings.TrimSpace(req.EndpointURL) == "" {
		return domain.Action{}, ErrEndpointNotConfigured
	}
	if c.httpClient == nil {
		c = New(defaultTimeout)
	}

	payload, legal, err := buildProtocolRequest(req.State, chooseActionTimeout(req))
	if err != nil {
		return domain.Action{}, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return domain.Action{}, fmt.Errorf("%w: marshal payload: %v", ErrMalformedResponse, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.EndpointURL, bytes.NewReader(body))
	if err != nil {
		return domain.Action{}, fmt.Errorf("%w: build request: %v", ErrNetwork, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if isTimeoutError(err) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return domain.Action{}, fmt.Errorf("%w: %v", ErrRequestTimeout, err)
		}
		return domain.Action{}, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return domain.Action{}, fmt.Errorf("%w: status %d", ErrNetwork, resp.StatusCode)
	}

	decoder := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBodyBytes+1))
	var dto protocolResponse
	if err := decoder.Decode(&dto); err != nil {
		return domain.Action{}, fmt.Errorf("%w: decode: %v", ErrMalformedResponse, err)
	}
	var trailing json.RawMessage
	if err := decoder.Decode(&trailing); err != io.EOF {
		return domain.Action{}, fmt.Errorf("%w: response body has trailing data", ErrMalformedResponse)
	}

	return parseAndValidateProtocolResponse(dto, req.State, legal)
}

func chooseActionTimeout(req Request) uint64 {
	if req.ActionTimeoutMS > 0 {
		return req.ActionTimeoutMS
	}
	return defaultActionTimeout
}

func buildProtocolRequest(state domain.HandState, timeoutMS uint64) (protocolRequest, map[domain.ActionKind]struct{}, error) {
	acting, ok := state.Acting()
	if !ok {
		return protocolRequest{}, nil, fmt.Errorf("%w: acting seat %d not found", ErrMalformedResponse, state.ActingSeat)
	}
	if !acting.Dealt() {
		return protocolRequest{}, nil, fmt.Errorf("%w: seat %d has %d cards", ErrMissingHoleCards, acting.SeatNo, len(acting.HoleCards))
	}

	var toCall uint32
	if state.CurrentBet > acting.Committed {
		toCall = state.CurrentBet - acting.Committed
	}

	legalKinds := statemachine.LegalActions(state)
	legal := make(map[domain.ActionKind]struct{}, len(legalKinds))
	legalActions := make([]string, 0, len(legalKinds))
	for _, kind := range legalKinds {
		legal[kind] = struct{}{}
		legalActions = append(legalActions, string(kind))
	}

	var minRaiseTo *uint32
	if _, ok := legal[domain.ActionRaise]; ok {
		minRaiseTo = domain.Chips(statemachine.MinRaiseTo(state))
	}

	payload := protocolRequest{
		ProtocolVersion: ProtocolVersion,
		HandID:          state.HandID,
		Street:          string(state.Street),
		Seat:            int(acting.SeatNo),
		HoleCards:       domain.JoinCards(acting.HoleCards),
		Board:           domain.JoinCards(state.Board),
		Pot:             transcript.PotDisplay(state),
		ToCall:          toCall,
		MinRaiseTo:      minRaiseTo,
		Stacks:          make(map[string]uint32, len(state.Seats)),
		Bets:            make(map[string]uint32, len(state.Seats)),
		Folded:          make([]int, 0, len(state.Seats)),
		LegalActions:    legalActions,
		ActionDeadline:  timeoutMS,
	}
	for _, seat := range state.Seats {
		key := strconv.Itoa(int(seat.SeatNo))
		payload.Stacks[key] = seat.Stack
		payload.Bets[key] = seat.Committed
		if seat.Folded {
			payload.Folded = append(payload.Folded, int(seat.SeatNo))
		}
	}

	return payload, legal, nil
}

func parseAndValidateProtocolResponse(dto protocolResponse, state domain.HandState, legal map[domain.ActionKind]struct{}) (domain.Action, error) {
	kind, err := domain.ParseActionKind(dto.Action)
	if err != nil {
		return domain.Action{}, fmt.Errorf("%w: %v", ErrIllegalAgentAction, err)
	}
	if _, ok := legal[kind]; !ok {
		return domain.Action{}, fmt.Errorf("%w: action %q not legal", ErrIllegalAgentAction, dto.Action)
	}

	action, err := domain.NewAction(kind, dto.Amount)
	if err != nil {
		return domain.Action{}, fmt.Errorf("%w: %v", ErrIllegalAgentAction, err)
	}
	if err := statemachine.ValidateAction(state, action); err != nil {
		return domain.Action{}, fmt.Errorf("%w: %v", ErrIllegalAgentAction, err)
	}
	return action, nil
}

func isTimeoutError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
