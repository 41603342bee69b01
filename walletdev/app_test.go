package walletdev_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
	"golang.org/x/text/language"

	"github.com/alovak/cardsync/card"
	"github.com/alovak/cardsync/internal/devauth"
	"github.com/alovak/cardsync/internal/security"
	"github.com/alovak/cardsync/payments"
	"github.com/alovak/cardsync/profile"
	"github.com/alovak/cardsync/unmask"
	"github.com/alovak/cardsync/walletdev"
)

func startApp(t *testing.T) *walletdev.App {
	t.Helper()
	cfg := walletdev.DefaultConfig()
	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.CVCKey = "e2e-cvk"

	app := walletdev.NewApp(slog.New(slog.NewTextHandler(io.Discard, nil)), cfg)
	require.NoError(t, app.Start())
	t.Cleanup(app.Shutdown)
	return app
}

func clientFor(app *walletdev.App) *payments.Client {
	cfg := payments.DefaultConfig()
	cfg.BaseURL = "http://" + app.Addr
	return payments.New(cfg, devauth.NewProvider(app.Auth, "e2e"), nil)
}

func TestHealth(t *testing.T) {
	app := startApp(t)
	for _, path := range []string{"/-/live", "/-/ready"} {
		resp, err := http.Get("http://" + app.Addr + path)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestSeedCard(t *testing.T) {
	app := startApp(t)

	body, _ := json.Marshal(walletdev.SeedCardRequest{
		PAN:             "4111111111111111",
		CardholderName:  "Elvis Presley",
		ExpirationMonth: 4,
		ExpirationYear:  2031,
	})
	resp, err := http.Post("http://"+app.Addr+"/dev/cards", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var seeded walletdev.SeedCardResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&seeded))
	require.NotEmpty(t, seeded.CreditCardID)
	require.Equal(t, "visa", seeded.Network)
	require.Equal(t, "1111", seeded.LastFour)
	require.Equal(t, "04/31 ELVIS PRESLEY", seeded.CardFace)

	resp2, err := http.Get("http://" + app.Addr + "/dev/cards/unique-check?pan=4111111111111111")
	require.NoError(t, err)
	defer resp2.Body.Close()
	var check struct {
		Unique bool `json:"unique"`
	}
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&check))
	require.False(t, check.Unique)
}

func TestUnmaskOverHTTP(t *testing.T) {
	app := startApp(t)
	ctx := context.Background()
	client := clientFor(app)

	sc, err := app.Service.AddCard(ctx, "5555555555554444", "Elvis Presley", 4, 2031, nil)
	require.NoError(t, err)
	cvk, err := security.NewHMACProvider([]byte("e2e-cvk"))
	require.NoError(t, err)
	right, err := security.CVCFor(cvk, sc.Number, 2031, 4)
	require.NoError(t, err)
	wrong := "000"
	if right == wrong {
		wrong = "111"
	}

	_, err = client.UnmaskCard(ctx, payments.UnmaskRequest{RemoteID: sc.ID, CVC: wrong})
	require.Error(t, err)
	require.Equal(t, payments.KindServerRejected, payments.KindOf(err))
	require.True(t, payments.IsRecoverable(err))

	pan, err := client.UnmaskCard(ctx, payments.UnmaskRequest{RemoteID: sc.ID, CVC: right})
	require.NoError(t, err)
	require.Equal(t, "5555555555554444", pan)

	_, err = client.UnmaskCard(ctx, payments.UnmaskRequest{RemoteID: "missing", CVC: right})
	require.Equal(t, payments.KindPermanent, payments.KindOf(err))
}

// challengePrompter answers the challenge from a script, one CVC per prompt.
type challengePrompter struct {
	cvcs []string
	done chan error
}

func (p *challengePrompter) next(s *unmask.Session) {
	cvc := p.cvcs[0]
	p.cvcs = p.cvcs[1:]
	go func() {
		if err := s.Submit(unmask.ChallengeResponse{CVC: cvc}); err != nil {
			p.done <- err
		}
	}()
}

func (p *challengePrompter) RequestChallenge(s *unmask.Session, _ card.DisplayInfo, _ unmask.Reason) {
	p.next(s)
}

func (p *challengePrompter) ChallengeRejected(s *unmask.Session, _ error) { p.next(s) }

func (p *challengePrompter) ShowResult(_ *unmask.Session, _ unmask.Result, err error) { p.done <- err }

func TestUnmaskControllerAgainstService(t *testing.T) {
	app := startApp(t)
	ctx := context.Background()

	sc, err := app.Service.AddCard(ctx, "4012888888881881", "Elvis Presley", 9, 2030, nil)
	require.NoError(t, err)
	cvk, _ := security.NewHMACProvider([]byte("e2e-cvk"))
	right, err := security.CVCFor(cvk, sc.Number, 2030, 9)
	require.NoError(t, err)
	wrong := "000"
	if right == wrong {
		wrong = "111"
	}

	p := &challengePrompter{cvcs: []string{wrong, right}, done: make(chan error, 2)}
	ctrl := unmask.NewController(clientFor(app), p, nil, nil)

	rec := sc.Masked()
	s, err := ctrl.Begin(ctx, rec, unmask.ReasonAutofill, "")
	require.NoError(t, err)

	select {
	case err := <-p.done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("unmask did not finish")
	}
	require.Equal(t, 2, s.Attempts())
	require.Equal(t, card.KindFullRemote, rec.Kind)
	require.Equal(t, "4012888888881881", rec.Number())
}

func TestUploadOverHTTP(t *testing.T) {
	app := startApp(t)
	ctx := context.Background()
	client := clientFor(app)

	details, err := client.GetUploadDetails(ctx, language.Spanish)
	require.NoError(t, err)
	require.Contains(t, details.LegalMessage.Lines[0].Text(), "Condiciones del servicio")

	home := profile.New()
	home.Name = profile.Name{First: "Elvis", Last: "Presley"}
	home.Line1 = "3734 Elvis Presley Blvd."
	home.City, home.State, home.Zip, home.Country = "Memphis", "TN", "38116", "US"

	local := card.NewLocal("4111111111111111", "Elvis Presley", 4, 2031)
	ack, err := client.UploadCard(ctx, payments.UploadRequest{
		Card:         local,
		CVC:          "123",
		Profiles:     []*profile.Profile{home},
		ContextToken: details.ContextToken,
	})
	require.NoError(t, err)
	require.NotEmpty(t, ack.RemoteID)

	stored, err := app.Service.Card(ack.RemoteID)
	require.NoError(t, err)
	require.Len(t, stored.Addresses, 1)
	require.Equal(t, "38116", stored.Addresses[0].Zip)
	require.Equal(t, "Elvis Presley", stored.Addresses[0].Name)

	// the same number again is refused for good
	details, err = client.GetUploadDetails(ctx, language.English)
	require.NoError(t, err)
	_, err = client.UploadCard(ctx, payments.UploadRequest{Card: local, CVC: "123", ContextToken: details.ContextToken})
	var perr *payments.Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, payments.KindPermanent, perr.Kind)
	require.Equal(t, "ALREADY_EXISTS", perr.Code)
}

func TestForeignTokenIsUnauthorized(t *testing.T) {
	app := startApp(t)

	other, err := devauth.NewIssuer([]byte("someone-else"), time.Hour)
	require.NoError(t, err)
	cfg := payments.DefaultConfig()
	cfg.BaseURL = "http://" + app.Addr
	client := payments.New(cfg, devauth.NewProvider(other, "intruder"), nil)

	_, err = client.GetUploadDetails(context.Background(), language.English)
	require.ErrorIs(t, err, payments.ErrUnauthorized)
	require.Equal(t, payments.KindPermanent, payments.KindOf(err))
}
