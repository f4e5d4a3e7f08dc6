package agentclient

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"time"

	"github.com/imaddar/poker-arena/services/holdem/internal/domain"
)

var ErrInvalidEndpoint = errors.New("invalid agent endpoint")

type SeatEndpointProvider interface {
	EndpointForSeat(state domain.HandState, seat domain.SeatNo) (string, error)
}

// StaticEndpoints maps seats to fixed agent URLs.
type StaticEndpoints map[domain.SeatNo]string

// NewStaticEndpoints checks that every key is a seat number and every value
// an absolute http or https URL.
func NewStaticEndpoints(raw map[int]string) (StaticEndpoints, error) {
	endpoints := make(StaticEndpoints, len(raw))
	for seatNo, endpoint := range raw {
		seat, err := domain.NewSeatNo(seatNo)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidEndpoint, err)
		}
		parsed, err := url.Parse(endpoint)
		if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			return nil, fmt.Errorf("%w: seat %d url %q", ErrInvalidEndpoint, seatNo, endpoint)
		}
		endpoints[seat] = endpoint
	}
	return endpoints, nil
}

func (s StaticEndpoints) EndpointForSeat(_ domain.HandState, seat domain.SeatNo) (string, error) {
	return s[seat], nil
}

// Seats lists the seats with an agent, lowest first.
func (s StaticEndpoints) Seats() []domain.SeatNo {
	seats := make([]domain.SeatNo, 0, len(s))
	for seat := range s {
		seats = append(seats, seat)
	}
	slices.Sort(seats)
	return seats
}

// ActionProvider plugs remote agents into a table runner. A seat without an
// endpoint fails with ErrEndpointNotConfigured.
type ActionProvider struct {
	Client    Client
	Endpoints SeatEndpointProvider
	// ActionTimeout is the decision deadline sent to the agent; zero sends
	// the protocol default.
	ActionTimeout time.Duration
}

func (p ActionProvider) NextAction(ctx context.Context, state domain.HandState) (domain.Action, error) {
	endpoint, err := p.endpoint(state)
	if err != nil {
		return domain.Action{}, err
	}
	return p.Client.NextAction(ctx, Request{
		EndpointURL:     endpoint,
		State:           state,
		ActionTimeoutMS: uint64(max(p.ActionTimeout.Milliseconds(), 0)),
	})
}

func (p ActionProvider) endpoint(state domain.HandState) (string, error) {
	if p.Endpoints == nil {
		return "", ErrEndpointNotConfigured
	}
	endpoint, err := p.Endpoints.EndpointForSeat(state, state.ActingSeat)
	switch {
	case err != nil:
		return "", fmt.Errorf("%w: seat %d: %v", ErrEndpointNotConfigured, state.ActingSeat, err)
	case endpoint == "":
		return "", fmt.Errorf("%w: seat %d", ErrEndpointNotConfigured, state.ActingSeat)
	default:
		return endpoint, nil
	}
}
