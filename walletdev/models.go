package walletdev

import (
	"github.com/alovak/cardsync/card"
	"github.com/alovak/cardsync/internal/cardgen"
)

// ServerCard is a card held by the service. The full number stays in
// memory only.
type ServerCard struct {
	ID              string
	Number          string
	HolderName      string
	ExpirationMonth int
	ExpirationYear  int
	Addresses       []Address
}

// Masked is the view clients get before unmasking.
func (c *ServerCard) Masked() *card.Record {
	return card.NewMaskedRemote(c.ID, card.ClassifyNetwork(c.Number), cardgen.LastN(c.Number, 4), c.HolderName, c.ExpirationMonth, c.ExpirationYear)
}

type Address struct {
	Name    string   `json:"name,omitempty"`
	Company string   `json:"company_name,omitempty"`
	Lines   []string `json:"address_lines,omitempty"`
	City    string   `json:"locality,omitempty"`
	State   string   `json:"administrative_area,omitempty"`
	Zip     string   `json:"postal_code,omitempty"`
	Country string   `json:"country_code,omitempty"`
	Phone   string   `json:"phone_number,omitempty"`
}

type requestContext struct {
	LanguageCode string `json:"language_code,omitempty"`
}

type UploadDetailsRequest struct {
	Context requestContext `json:"context"`
}

type LegalParameter struct {
	DisplayText string `json:"display_text"`
	URL         string `json:"url"`
}

type LegalLine struct {
	Template   string           `json:"template"`
	Parameters []LegalParameter `json:"template_parameter,omitempty"`
}

type LegalMessage struct {
	Lines []LegalLine `json:"line"`
}

type UploadDetailsResponse struct {
	ContextToken string       `json:"context_token"`
	LegalMessage LegalMessage `json:"legal_message"`
}

type UnmaskRequest struct {
	CreditCardID    string         `json:"credit_card_id"`
	RiskData        string         `json:"risk_data_encoded"`
	CVC             string         `json:"cvc"`
	ExpirationMonth int            `json:"expiration_month,omitempty"`
	ExpirationYear  int            `json:"expiration_year,omitempty"`
	Context         requestContext `json:"context"`
}

type UnmaskResponse struct {
	PAN string `json:"pan"`
}

type UploadCardRequest struct {
	PAN             string         `json:"pan"`
	CVC             string         `json:"cvc"`
	CardholderName  string         `json:"cardholder_name"`
	ExpirationMonth int            `json:"expiration_month"`
	ExpirationYear  int            `json:"expiration_year"`
	Addresses       []Address      `json:"addresses"`
	ContextToken    string         `json:"context_token"`
	RiskData        string         `json:"risk_data_encoded"`
	Context         requestContext `json:"context"`
}

type UploadCardResponse struct {
	CreditCardID string `json:"credit_card_id"`
}

// SeedCardRequest adds a card directly, bypassing the upload flow.
type SeedCardRequest struct {
	PAN             string `json:"pan"`
	CardholderName  string `json:"cardholder_name"`
	ExpirationMonth int    `json:"expiration_month"`
	ExpirationYear  int    `json:"expiration_year"`
}

type SeedCardResponse struct {
	CreditCardID string `json:"credit_card_id"`
	Network      string `json:"network"`
	LastFour     string `json:"last4"`
	CardFace     string `json:"card_face"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}
