//go:build softhsm

// Package hsm computes CVCs with a 3DES CVK held in a PKCS#11 token such as
// SoftHSM. Build with -tags softhsm.
package hsm

import (
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/miekg/pkcs11"

	"github.com/alovak/cardsync/internal/security"
)

type Config struct {
	LibPath  string
	SlotID   uint
	PIN      string
	CVKLabel string
}

// Provider signs panNoCD+YYMM+SC with CKM_DES3_MAC and decimalizes the MAC.
// A PKCS#11 session is not safe for concurrent use, so calls are serialized.
type Provider struct {
	cfg Config

	mu   sync.Mutex
	p11  *pkcs11.Ctx
	sess pkcs11.SessionHandle
	cvk  pkcs11.ObjectHandle
}

func New(cfg Config) *Provider {
	return &Provider{cfg: cfg}
}

func (p *Provider) Open() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.p11 = pkcs11.New(p.cfg.LibPath)
	if p.p11 == nil {
		return fmt.Errorf("loading pkcs11 library %q failed", p.cfg.LibPath)
	}
	if err := p.p11.Initialize(); err != nil {
		return fmt.Errorf("initializing pkcs11: %w", err)
	}
	sess, err := p.p11.OpenSession(p.cfg.SlotID, pkcs11.CKF_SERIAL_SESSION|pkcs11.CKF_RW_SESSION)
	if err != nil {
		_ = p.p11.Finalize()
		return fmt.Errorf("opening session: %w", err)
	}
	p.sess = sess
	if err := p.p11.Login(p.sess, pkcs11.CKU_USER, p.cfg.PIN); err != nil {
		_ = p.p11.CloseSession(p.sess)
		_ = p.p11.Finalize()
		return fmt.Errorf("login: %w", err)
	}

	template := []*pkcs11.Attribute{
		pkcs11.NewAttribute(pkcs11.CKA_LABEL, p.cfg.CVKLabel),
		pkcs11.NewAttribute(pkcs11.CKA_CLASS, pkcs11.CKO_SECRET_KEY),
		pkcs11.NewAttribute(pkcs11.CKA_KEY_TYPE, pkcs11.CKK_DES3),
	}
	if err := p.p11.FindObjectsInit(p.sess, template); err != nil {
		return err
	}
	objs, _, err := p.p11.FindObjects(p.sess, 1)
	_ = p.p11.FindObjectsFinal(p.sess)
	if err != nil {
		return err
	}
	if len(objs) == 0 {
		return fmt.Errorf("cvk not found by label=%s", p.cfg.CVKLabel)
	}
	p.cvk = objs[0]
	return nil
}

func (p *Provider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.p11 == nil {
		return
	}
	if p.sess != 0 {
		_ = p.p11.Logout(p.sess)
		_ = p.p11.CloseSession(p.sess)
	}
	_ = p.p11.Finalize()
	p.p11.Destroy()
	p.p11 = nil
}

// decimalize keeps the MAC's decimal hex digits in order, then maps the
// letters a..f to 0..5 for any remaining positions.
func decimalize(mac []byte, n int) string {
	hx := hex.EncodeToString(mac)
	out := make([]byte, 0, n)
	for i := 0; i < len(hx) && len(out) < n; i++ {
		if c := hx[i]; c >= '0' && c <= '9' {
			out = append(out, c)
		}
	}
	for i := 0; i < len(hx) && len(out) < n; i++ {
		if c := hx[i]; c >= 'a' && c <= 'f' {
			out = append(out, '0'+(c-'a'))
		}
	}
	return string(out)
}

func (p *Provider) ComputeCVC(panNoCD, yymm, sc string, width int) (string, error) {
	if err := security.ValidateInputs(panNoCD, yymm, sc); err != nil {
		return "", err
	}
	if width != 4 {
		width = 3
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.p11 == nil {
		return "", fmt.Errorf("hsm provider is not open")
	}
	mech := []*pkcs11.Mechanism{pkcs11.NewMechanism(pkcs11.CKM_DES3_MAC, nil)}
	if err := p.p11.SignInit(p.sess, mech, p.cvk); err != nil {
		return "", err
	}
	mac, err := p.p11.Sign(p.sess, []byte(panNoCD+yymm+sc))
	if err != nil {
		return "", err
	}
	return decimalize(mac, width), nil
}

var _ security.CVCProvider = (*Provider)(nil)
