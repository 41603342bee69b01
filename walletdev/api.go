package walletdev

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/exp/slog"
	"golang.org/x/text/language"

	"github.com/alovak/cardsync/card"
	"github.com/alovak/cardsync/internal/cardgen"
	"github.com/alovak/cardsync/internal/devauth"
	"github.com/alovak/cardsync/internal/expiry"
)

// Error codes carried in the response envelope. Clients treat INTERNAL as
// "try again" and everything else as final.
const (
	codeInternal       = "INTERNAL"
	codePermanent      = "PERMANENT_FAILURE"
	codeNotFound       = "NOT_FOUND"
	codeAlreadyExists  = "ALREADY_EXISTS"
	codeInvalidRequest = "INVALID_ARGUMENT"
)

// API is a HTTP API for the wallet service
type API struct {
	svc    *Service
	auth   *devauth.Issuer
	logger *slog.Logger
}

func NewAPI(svc *Service, auth *devauth.Issuer, logger *slog.Logger) *API {
	return &API{svc: svc, auth: auth, logger: logger}
}

func (a *API) AppendRoutes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Use(a.authenticate)
		r.Post("/upload-details", a.uploadDetails)
		r.Post("/unmask", a.unmask)
		r.Post("/cards", a.uploadCard)
	})
	r.Route("/dev", func(r chi.Router) {
		r.Post("/cards", a.seedCard)
		r.Get("/cards/unique-check", a.uniqueCheck)
	})
}

func (a *API) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		claims, err := a.auth.Verify(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		a.logger.Debug("authenticated", slog.String("sub", claims.Subject), slog.String("path", r.URL.Path))
		next.ServeHTTP(w, r)
	})
}

func (a *API) uploadDetails(w http.ResponseWriter, r *http.Request) {
	var req UploadDetailsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, a.svc.UploadDetails(parseLocale(req.Context.LanguageCode)))
}

func (a *API) unmask(w http.ResponseWriter, r *http.Request) {
	var req UnmaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.CreditCardID == "" || req.CVC == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "credit_card_id and cvc are required")
		return
	}

	pan, err := a.svc.Unmask(r.Context(), UnmaskInput{
		CardID:          req.CreditCardID,
		CVC:             req.CVC,
		ExpirationMonth: req.ExpirationMonth,
		ExpirationYear:  req.ExpirationYear,
	})
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, UnmaskResponse{PAN: pan})
}

func (a *API) uploadCard(w http.ResponseWriter, r *http.Request) {
	var req UploadCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sc, err := a.svc.Upload(r.Context(), UploadInput{
		PAN:             req.PAN,
		CVC:             req.CVC,
		HolderName:      req.CardholderName,
		ExpirationMonth: req.ExpirationMonth,
		ExpirationYear:  req.ExpirationYear,
		Addresses:       req.Addresses,
		ContextToken:    req.ContextToken,
	})
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, UploadCardResponse{CreditCardID: sc.ID})
}

// seedCard adds a card without the upload handshake. Dev only.
func (a *API) seedCard(w http.ResponseWriter, r *http.Request) {
	var req SeedCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sc, err := a.svc.AddCard(r.Context(), req.PAN, req.CardholderName, req.ExpirationMonth, req.ExpirationYear, nil)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	face := expiry.CardFace(sc.ExpirationYear, sc.ExpirationMonth)
	if sc.HolderName != "" {
		face += " " + strings.ToUpper(sc.HolderName)
	}
	writeJSON(w, http.StatusCreated, SeedCardResponse{
		CreditCardID: sc.ID,
		Network:      string(card.ClassifyNetwork(sc.Number)),
		LastFour:     cardgen.LastN(sc.Number, 4),
		CardFace:     face,
	})
}

func (a *API) uniqueCheck(w http.ResponseWriter, r *http.Request) {
	pan := r.URL.Query().Get("pan")
	if pan == "" {
		http.Error(w, "pan is required", http.StatusBadRequest)
		return
	}
	unique, err := a.svc.NumberUnique(r.Context(), pan)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"unique": unique})
}

func (a *API) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrWrongCVC):
		writeError(w, http.StatusUnprocessableEntity, codeInternal, err.Error())
	case errors.Is(err, ErrCardNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, ErrDuplicateCard):
		writeError(w, http.StatusConflict, codeAlreadyExists, err.Error())
	case errors.Is(err, ErrCardExpired), errors.Is(err, ErrUnknownContext):
		writeError(w, http.StatusUnprocessableEntity, codePermanent, err.Error())
	case errors.Is(err, ErrInvalidCard):
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
	default:
		a.logger.Error("request failed", slog.Any("err", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func parseLocale(code string) language.Tag {
	if code == "" {
		return language.Und
	}
	tag, err := language.Parse(code)
	if err != nil {
		return language.Und
	}
	return tag
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{Code: code, Message: msg}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
