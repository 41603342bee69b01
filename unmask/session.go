package unmask

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/exp/slog"

	"github.com/alovak/cardsync/card"
	"github.com/alovak/cardsync/payments"
)

type submitEvent struct {
	resp  ChallengeResponse
	reply chan error
}

type netResult struct {
	attempt int
	pan     string
	err     error
}

// Session is one unmask attempt. All transitions run on the session's own
// goroutine; the exported methods only post events to it. Prompter
// callbacks may call Submit and Cancel.
type Session struct {
	id       string
	ctrl     *Controller
	card     *card.Record
	reason   Reason
	riskData string
	logger   *slog.Logger

	submitCh chan submitEvent
	cancelCh chan struct{}
	netCh    chan netResult
	// ended closes once the terminal state is set, before ShowResult runs;
	// done closes after ShowResult returns.
	ended chan struct{}
	done  chan struct{}

	// owned by the loop
	pending ChallengeResponse

	mu       sync.Mutex
	state    State
	attempts int
	lastErr  error
	result   Result
	err      error
}

func (s *Session) ID() string { return s.id }

func (s *Session) Card() *card.Record { return s.card }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Attempts is the number of unmask calls sent to the server.
func (s *Session) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// LastFailure is the recoverable error that re-opened the challenge, if any.
func (s *Session) LastFailure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Done is closed once the session reached Complete or Error.
func (s *Session) Done() <-chan struct{} { return s.done }

// Result returns the outcome. It is meaningful once Done is closed.
func (s *Session) Result() (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result, s.err
}

// Wait blocks until the session ends or ctx is done.
func (s *Session) Wait(ctx context.Context) (Result, error) {
	select {
	case <-s.done:
		return s.Result()
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Submit answers the challenge. Input that fails local validation is
// rejected without leaving AwaitingChallengeResponse.
func (s *Session) Submit(resp ChallengeResponse) error {
	reply := make(chan error, 1)
	select {
	case s.submitCh <- submitEvent{resp: resp, reply: reply}:
		return <-reply
	case <-s.ended:
		return fmt.Errorf("%w: session %s", ErrInvalidState, s.State())
	}
}

// Cancel ends the session as cancelled. A call in flight is not aborted;
// its result is dropped.
func (s *Session) Cancel() {
	select {
	case s.cancelCh <- struct{}{}:
	case <-s.ended:
	}
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	s.logger.Debug("state changed", slog.String("state", st.String()))
}

func (s *Session) run(ctx context.Context) {
	defer s.ctrl.release(s)
	for {
		select {
		case ev := <-s.submitCh:
			ev.reply <- s.handleSubmit(ctx, ev.resp)
		case r := <-s.netCh:
			if r.attempt != s.Attempts() {
				s.logger.Debug("dropping stale network result", slog.Int("attempt", r.attempt))
				continue
			}
			s.handleNetwork(ctx, r)
		case <-s.cancelCh:
			s.finish(Result{}, ErrCancelled)
		case <-ctx.Done():
			s.finish(Result{}, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err()))
		}
		if s.State().Terminal() {
			return
		}
	}
}

func (s *Session) validate(resp ChallengeResponse) error {
	if !s.card.ValidSecurityCode(resp.CVC) {
		return fmt.Errorf("%w: security code", ErrMalformedInput)
	}
	if resp.ExpirationMonth == 0 && resp.ExpirationYear == 0 {
		return nil
	}
	if resp.ExpirationMonth < 1 || resp.ExpirationMonth > 12 || resp.ExpirationYear < 2000 || resp.ExpirationYear > 2999 {
		return fmt.Errorf("%w: expiration %02d/%d", ErrMalformedInput, resp.ExpirationMonth, resp.ExpirationYear)
	}
	if !card.ValidateExpiration(resp.ExpirationYear, resp.ExpirationMonth, s.ctrl.now()) {
		return fmt.Errorf("%w: corrected expiration is in the past", ErrMalformedInput)
	}
	return nil
}

func (s *Session) handleSubmit(ctx context.Context, resp ChallengeResponse) error {
	if st := s.State(); st != StateAwaitingChallengeResponse {
		return fmt.Errorf("%w: %s", ErrInvalidState, st)
	}
	if err := s.validate(resp); err != nil {
		return err
	}

	switch s.card.Kind {
	case card.KindLocal, card.KindFullRemote:
		// the CVC is enough for a card whose number is already known
		if resp.ExpirationMonth != 0 {
			_ = s.card.SetExpirationMonth(resp.ExpirationMonth)
			_ = s.card.SetExpirationYear(resp.ExpirationYear)
		}
		s.finish(Result{Card: s.card, CVC: resp.CVC}, nil)
		return nil
	case card.KindMaskedRemote:
	default:
		return fmt.Errorf("%w: unknown card kind %d", ErrInvalidState, s.card.Kind)
	}

	s.pending = resp
	s.mu.Lock()
	s.attempts++
	attempt := s.attempts
	s.mu.Unlock()
	s.setState(StateAwaitingNetworkResult)

	req := payments.UnmaskRequest{
		RemoteID:        s.card.RemoteID,
		RiskData:        s.riskData,
		CVC:             resp.CVC,
		ExpirationMonth: resp.ExpirationMonth,
		ExpirationYear:  resp.ExpirationYear,
		Locale:          s.ctrl.Locale,
	}
	go func() {
		pan, err := s.ctrl.client.UnmaskCard(ctx, req)
		select {
		case s.netCh <- netResult{attempt: attempt, pan: pan, err: err}:
		case <-s.ended:
		}
	}()
	return nil
}

func (s *Session) handleNetwork(ctx context.Context, r netResult) {
	if r.err != nil {
		if payments.IsRecoverable(r.err) {
			s.logger.Info("challenge rejected, awaiting new response", slog.Any("err", r.err))
			s.mu.Lock()
			s.lastErr = r.err
			s.mu.Unlock()
			s.setState(StateAwaitingChallengeResponse)
			if rp, ok := s.ctrl.prompter.(RetryPrompter); ok {
				go rp.ChallengeRejected(s, r.err)
			}
			return
		}
		s.finish(Result{}, r.err)
		return
	}

	resp := s.pending
	if err := s.card.Unmasked(r.pan, resp.ExpirationMonth, resp.ExpirationYear); err != nil {
		s.finish(Result{}, fmt.Errorf("applying unmask result: %w", err))
		return
	}
	if resp.StoreLocally && s.ctrl.store != nil {
		if err := s.ctrl.store.SaveCard(ctx, s.card); err != nil {
			// the user still gets the card; only the local copy is lost
			s.logger.Warn("storing unmasked card failed", slog.Any("err", err))
		}
	}
	s.finish(Result{Card: s.card, CVC: resp.CVC}, nil)
}

// finish moves to the terminal state and fires ShowResult. It runs once:
// the loop exits right after. Submit and Cancel stop waiting on the loop
// before ShowResult runs, so the prompter may call them from there.
func (s *Session) finish(res Result, err error) {
	st := StateComplete
	if err != nil {
		st = StateError
	}
	s.mu.Lock()
	s.result, s.err = res, err
	s.mu.Unlock()
	s.setState(st)
	close(s.ended)

	if err != nil {
		level := slog.LevelWarn
		if errors.Is(err, ErrCancelled) {
			level = slog.LevelInfo
		}
		s.logger.Log(context.Background(), level, "unmask failed", slog.Any("err", err))
	} else {
		s.logger.Info("unmask complete", slog.String("last4", s.card.LastFour()))
	}

	if s.ctrl.prompter != nil {
		s.ctrl.prompter.ShowResult(s, res, err)
	}
	close(s.done)
}
