package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/imaddar/poker-arena/services/holdem/internal/domain"
	"github.com/imaddar/poker-arena/services/holdem/internal/settlement"
	"github.com/imaddar/poker-arena/services/holdem/internal/statemachine"
	"github.com/imaddar/poker-arena/services/holdem/internal/transcript"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 16
)

const (
	MessageConfigure = "configure"
	MessageStart     = "start"
	MessageAction    = "action"
	MessageSettle    = "settle"
	MessageSnapshot  = "snapshot"
	MessageError     = "error"
)

var ErrHandInProgress = errors.New("a hand is in progress")

// ClientMessage is any message a table client sends.
type ClientMessage struct {
	Type      string  `json:"type"`
	StackSize *uint32 `json:"stack_size,omitempty"`
	Action    string  `json:"action,omitempty"`
	Amount    *uint32 `json:"amount,omitempty"`
}

type SeatView struct {
	SeatNo    domain.SeatNo `json:"seat_no"`
	HoleCards []domain.Card `json:"hole_cards"`
	Stack     uint32        `json:"stack"`
	Committed uint32        `json:"committed"`
	Folded    bool          `json:"folded"`
	AllIn     bool          `json:"all_in"`
}

// Snapshot is the table as the client renders it.
type Snapshot struct {
	Type           string              `json:"type"`
	HandID         string              `json:"hand_id"`
	StackSize      uint32              `json:"stack_size"`
	Street         domain.Street       `json:"street"`
	DealerSeat     domain.SeatNo       `json:"dealer_seat"`
	SmallBlindSeat domain.SeatNo       `json:"small_blind_seat"`
	BigBlindSeat   domain.SeatNo       `json:"big_blind_seat"`
	ActingSeat     domain.SeatNo       `json:"acting_seat"`
	Pot            int64               `json:"pot"`
	CurrentBet     uint32              `json:"current_bet"`
	MinRaiseTo     uint32              `json:"min_raise_to"`
	Board          []domain.Card       `json:"board"`
	Seats          []SeatView          `json:"seats"`
	Dealt          bool                `json:"dealt"`
	Complete       bool                `json:"complete"`
	LegalActions   []domain.ActionKind `json:"legal_actions"`
	Log            []string            `json:"log"`
	Winnings       map[string]int64    `json:"winnings,omitempty"`
	SettleError    string              `json:"settle_error,omitempty"`
}

type ErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("WebSocket upgrade failed", "error", err)
		return
	}

	var engine *statemachine.Engine
	if s.options.NewCardSource != nil {
		engine = statemachine.NewEngine(s.options.NewCardSource())
	} else {
		engine = statemachine.NewEngine(nil)
	}
	session, err := newTableSession(conn, engine, s.options.Settler, s.options.SettleTimeout, s.logger.WithPrefix("table"))
	if err != nil {
		s.logger.Error("Failed to open table", "error", err)
		_ = conn.Close()
		return
	}
	session.run(r.Context())
}

// tableSession is one client's private table. Only the read loop touches
// state; the write loop owns the connection's writer.
type tableSession struct {
	conn          *websocket.Conn
	engine        *statemachine.Engine
	settler       TableSettler
	settleTimeout time.Duration
	logger        *log.Logger

	state       domain.HandState
	settleError string
	send        chan any
}

func newTableSession(conn *websocket.Conn, engine *statemachine.Engine, settler TableSettler, settleTimeout time.Duration, logger *log.Logger) (*tableSession, error) {
	state, err := engine.NewHand(statemachine.NewHandInput{StackSize: domain.DefaultStackSize})
	if err != nil {
		return nil, err
	}
	return &tableSession{
		conn:          conn,
		engine:        engine,
		settler:       settler,
		settleTimeout: settleTimeout,
		logger:        logger,
		state:         state,
		send:          make(chan any, sendBuffer),
	}, nil
}

func (t *tableSession) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		t.writePump(ctx)
	}()

	t.send <- t.snapshot()
	t.readPump(ctx)
	close(t.send)
	<-done
}

func (t *tableSession) readPump(ctx context.Context) {
	t.conn.SetReadLimit(maxMessageSize)
	_ = t.conn.SetReadDeadline(time.Now().Add(pongWait))
	t.conn.SetPongHandler(func(string) error {
		_ = t.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg ClientMessage
		if err := t.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				t.logger.Warn("WebSocket error", "error", err)
			}
			return
		}

		reply := t.handle(ctx, msg)
		select {
		case t.send <- reply:
		case <-ctx.Done():
			return
		}
	}
}

func (t *tableSession) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = t.conn.Close()
	}()

	for {
		select {
		case message, ok := <-t.send:
			_ = t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = t.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := t.conn.WriteJSON(message); err != nil {
				t.logger.Warn("Failed to write message", "error", err)
				return
			}
		case <-ticker.C:
			_ = t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (t *tableSession) handle(ctx context.Context, msg ClientMessage) any {
	t.logger.Debug("Received message", "type", msg.Type, "hand", t.state.HandID)

	var err error
	switch msg.Type {
	case MessageConfigure:
		err = t.configure(msg)
	case MessageStart:
		err = t.start()
	case MessageAction:
		err = t.act(ctx, msg)
	case MessageSettle:
		t.settle(ctx)
	default:
		err = fmt.Errorf("unknown message type %q", msg.Type)
	}
	if err != nil {
		return ErrorMessage{Type: MessageError, Error: err.Error()}
	}
	return t.snapshot()
}

func (t *tableSession) configure(msg ClientMessage) error {
	if msg.StackSize == nil {
		return fmt.Errorf("%w: stack_size is required", domain.ErrInvalidStackSize)
	}
	if t.state.Dealt() && !t.state.Complete {
		return ErrHandInProgress
	}

	fresh, err := t.engine.NewHand(statemachine.NewHandInput{StackSize: t.state.StackSize})
	if err != nil {
		return err
	}
	configured, err := statemachine.WithStackSize(fresh, *msg.StackSize)
	if err != nil {
		return err
	}
	t.state = configured
	t.settleError = ""
	return nil
}

func (t *tableSession) start() error {
	if t.state.Dealt() && !t.state.Complete {
		return ErrHandInProgress
	}
	state, err := t.engine.NewHand(statemachine.NewHandInput{StackSize: t.state.StackSize, DealCards: true})
	if err != nil {
		return err
	}
	t.state = state
	t.settleError = ""
	t.logger.Info("Hand started", "hand", state.HandID, "stack", state.StackSize)
	return nil
}

func (t *tableSession) act(ctx context.Context, msg ClientMessage) error {
	kind, err := domain.ParseActionKind(msg.Action)
	if err != nil {
		return err
	}
	action, err := domain.NewAction(kind, msg.Amount)
	if err != nil {
		return err
	}
	next, err := t.engine.Apply(t.state, action)
	if err != nil {
		return err
	}
	t.state = next
	if t.state.Complete {
		t.logger.Info("Hand complete", "hand", t.state.HandID, "final_pot", transcript.FinalPot(t.state))
		t.settle(ctx)
	}
	return nil
}

func (t *tableSession) settle(ctx context.Context) {
	if t.settler == nil || !t.state.Complete || t.state.Settled() {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, t.settleTimeout)
	defer cancel()

	settled, err := t.settler.Settle(ctx, t.state)
	if err != nil {
		t.settleError = err.Error()
		return
	}
	t.state = settled
	t.settleError = ""
}

func (t *tableSession) snapshot() Snapshot {
	state := t.state
	seats := make([]SeatView, 0, len(state.Seats))
	for _, seat := range state.Seats {
		seats = append(seats, SeatView{
			SeatNo:    seat.SeatNo,
			HoleCards: append([]domain.Card{}, seat.HoleCards...),
			Stack:     seat.Stack,
			Committed: seat.Committed,
			Folded:    seat.Folded,
			AllIn:     seat.AllIn(),
		})
	}

	snapshot := Snapshot{
		Type:           MessageSnapshot,
		HandID:         state.HandID,
		StackSize:      state.StackSize,
		Street:         state.Street,
		DealerSeat:     state.DealerSeat,
		SmallBlindSeat: state.SmallBlindSeat,
		BigBlindSeat:   state.BigBlindSeat,
		ActingSeat:     state.ActingSeat,
		Pot:            transcript.PotDisplay(state),
		CurrentBet:     state.CurrentBet,
		MinRaiseTo:     statemachine.MinRaiseTo(state),
		Board:          append([]domain.Card{}, state.Board...),
		Seats:          seats,
		Dealt:          state.Dealt(),
		Complete:       state.Complete,
		LegalActions:   statemachine.LegalActions(state),
		Log:            transcript.Format(state),
		SettleError:    t.settleError,
	}
	if state.Settled() {
		snapshot.Winnings = settlement.FormatWinnings(state.Settlement)
	}
	return snapshot
}
