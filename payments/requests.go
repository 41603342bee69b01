package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/exp/slog"
	"golang.org/x/text/language"

	"github.com/alovak/cardsync/card"
	"github.com/alovak/cardsync/internal/cardgen"
	"github.com/alovak/cardsync/profile"
)

const (
	opUploadDetails = "get upload details"
	opUnmask        = "unmask card"
	opUpload        = "upload card"

	pathUploadDetails = "/v1/upload-details"
	pathUnmask        = "/v1/unmask"
	pathUpload        = "/v1/cards"
)

type requestContext struct {
	LanguageCode string `json:"language_code,omitempty"`
}

func contextFor(locale language.Tag) requestContext {
	if locale == language.Und {
		return requestContext{}
	}
	return requestContext{LanguageCode: locale.String()}
}

// LegalParameter is a link substituted into a legal message template.
type LegalParameter struct {
	DisplayText string `json:"display_text"`
	URL         string `json:"url"`
}

// LegalLine is one line of legal terms. Template holds "{0}"-style
// placeholders for Parameters.
type LegalLine struct {
	Template   string           `json:"template"`
	Parameters []LegalParameter `json:"template_parameter,omitempty"`
}

// Text renders the line with parameters replaced by their display text.
func (l LegalLine) Text() string {
	out := l.Template
	for i, p := range l.Parameters {
		out = strings.ReplaceAll(out, fmt.Sprintf("{%d}", i), p.DisplayText)
	}
	return out
}

type LegalMessage struct {
	Lines []LegalLine `json:"line"`
}

// UploadDetails is the server's offer to store a card.
type UploadDetails struct {
	ContextToken string
	LegalMessage LegalMessage
}

type uploadDetailsRequest struct {
	Context requestContext `json:"context"`
}

type uploadDetailsResponse struct {
	ContextToken string        `json:"context_token"`
	LegalMessage *LegalMessage `json:"legal_message"`
}

// GetUploadDetails fetches the context token and legal terms needed before
// offering an upload.
func (c *Client) GetUploadDetails(ctx context.Context, locale language.Tag) (UploadDetails, error) {
	var resp uploadDetailsResponse
	if err := c.call(ctx, opUploadDetails, pathUploadDetails, uploadDetailsRequest{Context: contextFor(locale)}, &resp); err != nil {
		return UploadDetails{}, err
	}
	if resp.ContextToken == "" {
		return UploadDetails{}, incomplete(opUploadDetails, "context_token")
	}
	if resp.LegalMessage == nil || len(resp.LegalMessage.Lines) == 0 {
		return UploadDetails{}, incomplete(opUploadDetails, "legal_message")
	}
	return UploadDetails{ContextToken: resp.ContextToken, LegalMessage: *resp.LegalMessage}, nil
}

// UnmaskRequest asks for the full number of a masked server card.
// ExpirationMonth and ExpirationYear are set only when the user corrected
// the expiration date.
type UnmaskRequest struct {
	RemoteID        string
	RiskData        string
	CVC             string
	ExpirationMonth int
	ExpirationYear  int
	Locale          language.Tag
}

type unmaskRequest struct {
	CreditCardID    string         `json:"credit_card_id"`
	RiskData        string         `json:"risk_data_encoded"`
	CVC             string         `json:"cvc"`
	ExpirationMonth int            `json:"expiration_month,omitempty"`
	ExpirationYear  int            `json:"expiration_year,omitempty"`
	Context         requestContext `json:"context"`
}

type unmaskResponse struct {
	PAN string `json:"pan"`
}

func (r UnmaskRequest) validate() error {
	if strings.TrimSpace(r.RemoteID) == "" {
		return errors.New("missing card id")
	}
	if !cardgen.IsDigits(r.CVC) || len(r.CVC) < 3 || len(r.CVC) > 4 {
		return errors.New("cvc must be 3 or 4 digits")
	}
	if (r.ExpirationMonth == 0) != (r.ExpirationYear == 0) {
		return errors.New("corrected expiration needs both month and year")
	}
	if r.ExpirationMonth != 0 && (r.ExpirationMonth < 1 || r.ExpirationMonth > 12) {
		return card.ErrInvalidMonth
	}
	if r.ExpirationYear != 0 && (r.ExpirationYear < 2000 || r.ExpirationYear > 2999) {
		return card.ErrInvalidYear
	}
	return nil
}

// UnmaskCard returns the full number of the card identified by RemoteID.
func (c *Client) UnmaskCard(ctx context.Context, req UnmaskRequest) (string, error) {
	if err := req.validate(); err != nil {
		return "", &Error{Op: opUnmask, Kind: KindMalformedInput, Err: err}
	}
	body := unmaskRequest{
		CreditCardID:    req.RemoteID,
		RiskData:        req.RiskData,
		CVC:             req.CVC,
		ExpirationMonth: req.ExpirationMonth,
		ExpirationYear:  req.ExpirationYear,
		Context:         contextFor(req.Locale),
	}
	var resp unmaskResponse
	if err := c.call(ctx, opUnmask, pathUnmask, body, &resp); err != nil {
		return "", err
	}
	if resp.PAN == "" {
		return "", incomplete(opUnmask, "pan")
	}
	pan := cardgen.NormalizePAN(resp.PAN)
	if !cardgen.IsDigits(pan) {
		return "", &Error{Op: opUnmask, Kind: KindPermanent, Err: fmt.Errorf("%w: pan is not numeric", ErrIncompleteResponse)}
	}
	return pan, nil
}

// UploadRequest offers a locally observed card to the server.
type UploadRequest struct {
	Card         *card.Record
	CVC          string
	Profiles     []*profile.Profile
	ContextToken string
	Locale       language.Tag
	RiskData     string
}

type address struct {
	Name    string   `json:"name,omitempty"`
	Company string   `json:"company_name,omitempty"`
	Lines   []string `json:"address_lines,omitempty"`
	City    string   `json:"locality,omitempty"`
	State   string   `json:"administrative_area,omitempty"`
	Zip     string   `json:"postal_code,omitempty"`
	Country string   `json:"country_code,omitempty"`
	Phone   string   `json:"phone_number,omitempty"`
}

func addressFrom(p *profile.Profile) address {
	var lines []string
	for _, l := range []string{p.Line1, p.Line2} {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return address{
		Name:    p.Name.FullName(),
		Company: p.Company,
		Lines:   lines,
		City:    p.City,
		State:   p.State,
		Zip:     p.Zip,
		Country: p.Country,
		Phone:   p.Phone,
	}
}

type uploadRequest struct {
	PAN             string         `json:"pan"`
	CVC             string         `json:"cvc"`
	CardholderName  string         `json:"cardholder_name"`
	ExpirationMonth int            `json:"expiration_month"`
	ExpirationYear  int            `json:"expiration_year"`
	Addresses       []address      `json:"addresses"`
	ContextToken    string         `json:"context_token"`
	RiskData        string         `json:"risk_data_encoded"`
	Context         requestContext `json:"context"`
}

type uploadResponse struct {
	CreditCardID string `json:"credit_card_id"`
}

// UploadAck is the server's acceptance of an uploaded card.
type UploadAck struct {
	RemoteID string
}

func (r UploadRequest) validate() error {
	if r.Card == nil || !r.Card.HasFullNumber() {
		return errors.New("card has no full number")
	}
	if !card.ValidateNumber(r.Card.Number()) {
		return errors.New("invalid card number")
	}
	if !r.Card.HasExpiration() {
		return errors.New("card has no expiration")
	}
	if !r.Card.ValidSecurityCode(r.CVC) {
		return errors.New("invalid cvc")
	}
	if r.ContextToken == "" {
		return errors.New("missing context token")
	}
	return nil
}

// UploadCard stores the card on the server with its billing profiles.
func (c *Client) UploadCard(ctx context.Context, req UploadRequest) (UploadAck, error) {
	if err := req.validate(); err != nil {
		return UploadAck{}, &Error{Op: opUpload, Kind: KindMalformedInput, Err: err}
	}
	addrs := make([]address, 0, len(req.Profiles))
	for _, p := range req.Profiles {
		if p != nil {
			addrs = append(addrs, addressFrom(p))
		}
	}
	body := uploadRequest{
		PAN:             req.Card.Number(),
		CVC:             req.CVC,
		CardholderName:  req.Card.HolderName,
		ExpirationMonth: req.Card.ExpirationMonth(),
		ExpirationYear:  req.Card.ExpirationYear(),
		Addresses:       addrs,
		ContextToken:    req.ContextToken,
		RiskData:        req.RiskData,
		Context:         contextFor(req.Locale),
	}
	var resp uploadResponse
	if err := c.call(ctx, opUpload, pathUpload, body, &resp); err != nil {
		return UploadAck{}, err
	}
	if resp.CreditCardID == "" {
		return UploadAck{}, incomplete(opUpload, "credit_card_id")
	}
	c.logger.Info("card uploaded",
		slog.String("network", string(req.Card.Network())),
		slog.String("last4", req.Card.LastFour()),
		slog.String("remote_id", resp.CreditCardID))
	return UploadAck{RemoteID: resp.CreditCardID}, nil
}
