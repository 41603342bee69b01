// Package unmask runs the CVC challenge that reveals the full number of a
// stored card.
//
// A session moves Idle -> AwaitingChallengeResponse -> AwaitingNetworkResult
// and ends in Complete or Error. A server "try again" answer returns the
// session to AwaitingChallengeResponse so the caller can resubmit. The
// prompter's ShowResult fires exactly once per session.
package unmask

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"
	"golang.org/x/text/language"

	"github.com/alovak/cardsync/card"
	"github.com/alovak/cardsync/payments"
)

var (
	ErrSessionActive  = errors.New("an unmask session is already active")
	ErrInvalidState   = errors.New("invalid state for this action")
	ErrCancelled      = errors.New("unmask cancelled")
	ErrMalformedInput = errors.New("malformed input")
)

type State int

const (
	StateIdle State = iota
	StateAwaitingChallengeResponse
	StateAwaitingNetworkResult
	StateComplete
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingChallengeResponse:
		return "awaiting challenge response"
	case StateAwaitingNetworkResult:
		return "awaiting network result"
	case StateComplete:
		return "complete"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

func (s State) Terminal() bool { return s == StateComplete || s == StateError }

// Reason tags why the card is being unmasked.
type Reason string

const (
	ReasonAutofill       Reason = "autofill"
	ReasonPaymentRequest Reason = "payment_request"
)

// Unmasker is the remote call issued for masked server cards.
type Unmasker interface {
	UnmaskCard(ctx context.Context, req payments.UnmaskRequest) (string, error)
}

// Prompter is the UI side of the challenge. Answers come back through
// Session.Submit.
type Prompter interface {
	RequestChallenge(s *Session, info card.DisplayInfo, reason Reason)
	ShowResult(s *Session, res Result, err error)
}

// RetryPrompter is implemented by prompters that want to be told why a
// submitted challenge was rejected while the session stays open.
type RetryPrompter interface {
	ChallengeRejected(s *Session, err error)
}

// Store persists unmasked cards when the user asked to keep a local copy.
type Store interface {
	SaveCard(ctx context.Context, c *card.Record) error
}

// ChallengeResponse is the user's answer. ExpirationMonth and
// ExpirationYear are zero unless the user corrected the date.
type ChallengeResponse struct {
	CVC             string
	ExpirationMonth int
	ExpirationYear  int
	StoreLocally    bool
}

// Result is delivered when a session completes.
type Result struct {
	Card *card.Record
	CVC  string
}

// Controller owns at most one open session.
type Controller struct {
	client   Unmasker
	prompter Prompter
	store    Store
	logger   *slog.Logger

	// Locale is forwarded to the server with unmask requests.
	Locale language.Tag

	now func() time.Time

	mu     sync.Mutex
	active *Session
}

// NewController wires the collaborators. store may be nil when local copies
// are never kept.
func NewController(client Unmasker, prompter Prompter, store Store, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Controller{
		client:   client,
		prompter: prompter,
		store:    store,
		logger:   logger.With(slog.String("component", "unmask")),
		now:      time.Now,
	}
}

// Begin opens a session for c and surfaces the challenge to the prompter.
// c is updated in place when the session completes and must not be used
// by the caller until then. ctx bounds the session's network calls.
func (c *Controller) Begin(ctx context.Context, rec *card.Record, reason Reason, riskData string) (*Session, error) {
	if rec == nil {
		return nil, fmt.Errorf("%w: no card", ErrMalformedInput)
	}
	switch rec.Kind {
	case card.KindMaskedRemote:
		if rec.RemoteID == "" {
			return nil, fmt.Errorf("%w: masked card without remote id", ErrMalformedInput)
		}
	case card.KindLocal, card.KindFullRemote:
		if !rec.HasFullNumber() {
			return nil, fmt.Errorf("%w: %s card without a number", ErrMalformedInput, rec.Kind)
		}
	}

	c.mu.Lock()
	if c.active != nil && !c.active.State().Terminal() {
		c.mu.Unlock()
		return nil, ErrSessionActive
	}
	s := newSession(c, rec, reason, riskData)
	c.active = s
	c.mu.Unlock()

	s.logger.Info("unmask started",
		slog.String("kind", rec.Kind.String()),
		slog.String("network", string(rec.Network())),
		slog.String("last4", rec.LastFour()),
		slog.String("reason", string(reason)))

	info := rec.Display(c.now())
	go s.run(ctx)
	if c.prompter != nil {
		c.prompter.RequestChallenge(s, info, reason)
	}
	return s, nil
}

// Active returns the open session, or nil.
func (c *Controller) Active() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil || c.active.State().Terminal() {
		return nil
	}
	return c.active
}

func (c *Controller) release(s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == s {
		c.active = nil
	}
}

func newSession(c *Controller, rec *card.Record, reason Reason, riskData string) *Session {
	id := uuid.NewString()
	return &Session{
		id:       id,
		ctrl:     c,
		card:     rec,
		reason:   reason,
		riskData: riskData,
		state:    StateAwaitingChallengeResponse,
		submitCh: make(chan submitEvent),
		cancelCh: make(chan struct{}),
		netCh:    make(chan netResult),
		ended:    make(chan struct{}),
		done:     make(chan struct{}),
		logger:   c.logger.With(slog.String("session", id)),
	}
}
