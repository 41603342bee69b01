package walletdev

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"
	"golang.org/x/text/language"

	"github.com/alovak/cardsync/card"
	"github.com/alovak/cardsync/internal/cardgen"
	"github.com/alovak/cardsync/internal/expiry"
	"github.com/alovak/cardsync/internal/security"
	"github.com/alovak/cardsync/store"
)

var (
	ErrCardNotFound   = errors.New("card not found")
	ErrWrongCVC       = errors.New("security code does not match")
	ErrCardExpired    = errors.New("card expired")
	ErrUnknownContext = errors.New("unknown or used context token")
	ErrInvalidCard    = errors.New("invalid card")
	ErrDuplicateCard  = errors.New("card already stored")
)

const contextTokenTTL = 15 * time.Minute

// Service holds the server side of the card sync flows: it hands out
// upload context tokens, verifies unmask challenges and accepts uploads.
type Service struct {
	repo   *store.Repository
	cvc    security.CVCProvider
	loc    *time.Location
	now    func() time.Time
	logger *slog.Logger

	mu       sync.RWMutex
	cards    map[string]*ServerCard
	contexts map[string]time.Time
}

func NewService(repo *store.Repository, cvc security.CVCProvider, loc *time.Location, logger *slog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		repo:     repo,
		cvc:      cvc,
		loc:      loc,
		now:      time.Now,
		logger:   logger,
		cards:    make(map[string]*ServerCard),
		contexts: make(map[string]time.Time),
	}
}

// AddCard stores a new server card and returns it.
func (s *Service) AddCard(ctx context.Context, pan, holder string, month, year int, addrs []Address) (*ServerCard, error) {
	pan = cardgen.NormalizePAN(pan)
	if !card.ValidateNumber(pan) {
		return nil, fmt.Errorf("%w: number", ErrInvalidCard)
	}
	if month < 1 || month > 12 || year < 2000 || year > 2999 {
		return nil, fmt.Errorf("%w: expiration %02d/%d", ErrInvalidCard, month, year)
	}

	id := uuid.NewString()
	rec := card.NewFullRemote(id, pan, holder, month, year)
	rec.ID = id
	if err := s.repo.SaveCard(ctx, rec); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrDuplicateCard
		}
		return nil, fmt.Errorf("saving card: %w", err)
	}

	sc := &ServerCard{
		ID:              id,
		Number:          pan,
		HolderName:      holder,
		ExpirationMonth: month,
		ExpirationYear:  year,
		Addresses:       addrs,
	}
	s.mu.Lock()
	s.cards[id] = sc
	s.mu.Unlock()

	s.logger.Info("card added",
		slog.String("card_id", id),
		slog.String("network", string(rec.Network())),
		slog.String("last4", rec.LastFour()))
	return sc, nil
}

// NumberUnique reports whether no stored card has this number.
func (s *Service) NumberUnique(ctx context.Context, pan string) (bool, error) {
	_, err := s.repo.FindByNumber(ctx, pan)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return true, nil
	case err != nil:
		return false, err
	}
	return false, nil
}

// Card returns a copy of a server card.
func (s *Service) Card(id string) (ServerCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cards[id]
	if !ok {
		return ServerCard{}, ErrCardNotFound
	}
	return *c, nil
}

// UploadDetails opens an upload: the returned token must accompany the
// card upload that follows.
func (s *Service) UploadDetails(tag language.Tag) UploadDetailsResponse {
	token := uuid.NewString()
	now := s.now()

	s.mu.Lock()
	for t, issued := range s.contexts {
		if now.Sub(issued) > contextTokenTTL {
			delete(s.contexts, t)
		}
	}
	s.contexts[token] = now
	s.mu.Unlock()

	return UploadDetailsResponse{
		ContextToken: token,
		LegalMessage: legalMessage(tag),
	}
}

func legalMessage(tag language.Tag) LegalMessage {
	terms := LegalParameter{DisplayText: "Terms of Service", URL: "https://wallet.example.com/terms"}
	privacy := LegalParameter{DisplayText: "Privacy Notice", URL: "https://wallet.example.com/privacy"}
	if base, _ := tag.Base(); base.String() == "es" {
		terms.DisplayText = "Condiciones del servicio"
		privacy.DisplayText = "Aviso de privacidad"
		return LegalMessage{Lines: []LegalLine{
			{Template: "Al continuar, aceptas las {0}.", Parameters: []LegalParameter{terms}},
			{Template: "Consulta el {0}.", Parameters: []LegalParameter{privacy}},
		}}
	}
	return LegalMessage{Lines: []LegalLine{
		{Template: "By continuing, you agree to the {0}.", Parameters: []LegalParameter{terms}},
		{Template: "See the {0} for how card data is handled.", Parameters: []LegalParameter{privacy}},
	}}
}

type UnmaskInput struct {
	CardID          string
	CVC             string
	ExpirationMonth int
	ExpirationYear  int
}

// Unmask verifies the challenge and returns the full number. A corrected
// expiration is checked instead of the stored one and replaces it on
// success.
func (s *Service) Unmask(ctx context.Context, in UnmaskInput) (string, error) {
	s.mu.RLock()
	sc, ok := s.cards[in.CardID]
	var cur ServerCard
	if ok {
		cur = *sc
	}
	s.mu.RUnlock()
	if !ok {
		return "", ErrCardNotFound
	}

	month, year := cur.ExpirationMonth, cur.ExpirationYear
	corrected := in.ExpirationMonth != 0 && in.ExpirationYear != 0
	if corrected {
		month, year = in.ExpirationMonth, in.ExpirationYear
	}
	if expiry.IsExpired(year, month, s.now().In(s.loc)) {
		return "", fmt.Errorf("%w: %s", ErrCardExpired, expiry.CardFace(year, month))
	}

	want, err := security.CVCFor(s.cvc, cur.Number, year, month)
	if err != nil {
		return "", fmt.Errorf("computing cvc: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(want), []byte(in.CVC)) != 1 {
		s.logger.Info("unmask rejected", slog.String("card_id", cur.ID), slog.String("reason", "cvc mismatch"))
		return "", ErrWrongCVC
	}

	if corrected && (month != cur.ExpirationMonth || year != cur.ExpirationYear) {
		if err := s.updateExpiration(ctx, cur, month, year); err != nil {
			return "", err
		}
	}
	s.logger.Info("card unmasked", slog.String("card_id", cur.ID), slog.Bool("expiration_updated", corrected))
	return cur.Number, nil
}

func (s *Service) updateExpiration(ctx context.Context, cur ServerCard, month, year int) error {
	rec := card.NewFullRemote(cur.ID, cur.Number, cur.HolderName, month, year)
	rec.ID = cur.ID
	if err := s.repo.SaveCard(ctx, rec); err != nil {
		return fmt.Errorf("updating expiration: %w", err)
	}
	s.mu.Lock()
	if sc, ok := s.cards[cur.ID]; ok {
		sc.ExpirationMonth, sc.ExpirationYear = month, year
	}
	s.mu.Unlock()
	return nil
}

type UploadInput struct {
	PAN             string
	CVC             string
	HolderName      string
	ExpirationMonth int
	ExpirationYear  int
	Addresses       []Address
	ContextToken    string
}

// Upload stores a card sent by a client. The context token is consumed
// whether or not the upload succeeds.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*ServerCard, error) {
	if !s.consumeContext(in.ContextToken) {
		return nil, ErrUnknownContext
	}
	pan := cardgen.NormalizePAN(in.PAN)
	if !card.ValidateNumber(pan) {
		return nil, fmt.Errorf("%w: number", ErrInvalidCard)
	}
	if !card.ValidateSecurityCode(in.CVC, pan) {
		return nil, fmt.Errorf("%w: security code", ErrInvalidCard)
	}
	if !card.ValidateExpiration(in.ExpirationYear, in.ExpirationMonth, s.now().In(s.loc)) {
		return nil, fmt.Errorf("%w: %s", ErrCardExpired, expiry.CardFace(in.ExpirationYear, in.ExpirationMonth))
	}
	return s.AddCard(ctx, pan, in.HolderName, in.ExpirationMonth, in.ExpirationYear, in.Addresses)
}

func (s *Service) consumeContext(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	issued, ok := s.contexts[token]
	if !ok {
		return false
	}
	delete(s.contexts, token)
	return s.now().Sub(issued) <= contextTokenTTL
}
