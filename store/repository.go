// Package store keeps card records in memory or in Postgres. The Postgres
// backend never stores a full number: only BIN, last four digits and an
// HMAC of the number.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jackc/pgconn"
	"github.com/lib/pq"

	"github.com/alovak/cardsync/card"
	"github.com/alovak/cardsync/internal/cardgen"
)

var (
	ErrNotFound = fmt.Errorf("not found")
	ErrConflict = fmt.Errorf("conflict")
)

type Repository struct {
	mu       sync.RWMutex
	cards    map[string]*card.Record
	panIndex map[string]string // number -> card id

	db      *sql.DB
	hashKey []byte
}

func NewRepository() *Repository {
	return &Repository{
		cards:    make(map[string]*card.Record),
		panIndex: make(map[string]string),
	}
}

// NewPGRepository constructs a db-backed repository.
func NewPGRepository(db *sql.DB, hashKey []byte) *Repository {
	return &Repository{db: db, hashKey: hashKey}
}

const schema = `
CREATE SCHEMA IF NOT EXISTS wallet;
CREATE TABLE IF NOT EXISTS wallet.cards (
    card_id      text PRIMARY KEY,
    kind         text NOT NULL,
    holder_name  text NOT NULL DEFAULT '',
    remote_id    text NOT NULL DEFAULT '',
    network      text NOT NULL,
    bin          text NOT NULL DEFAULT '',
    last4        text NOT NULL,
    exp_month    int  NOT NULL DEFAULT 0,
    exp_year     int  NOT NULL DEFAULT 0,
    pan_hash     bytea UNIQUE,
    created_at   timestamptz NOT NULL DEFAULT now(),
    updated_at   timestamptz NOT NULL DEFAULT now()
);`

// EnsureSchema creates the cards table when missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

// SaveCard inserts or replaces the record with the same ID. Two records
// with the same full number conflict.
func (r *Repository) SaveCard(ctx context.Context, c *card.Record) error {
	if c == nil || c.ID == "" {
		return fmt.Errorf("card without id")
	}
	if r.db == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		if c.HasFullNumber() {
			if owner, ok := r.panIndex[c.Number()]; ok && owner != c.ID {
				return fmt.Errorf("card number exists: %w", ErrConflict)
			}
		}
		if prev, ok := r.cards[c.ID]; ok && prev.HasFullNumber() {
			delete(r.panIndex, prev.Number())
		}
		r.cards[c.ID] = c.Clone()
		if c.HasFullNumber() {
			r.panIndex[c.Number()] = c.ID
		}
		return nil
	}

	var bin string
	var hash []byte
	if c.HasFullNumber() {
		bin = binOf(c.Number())
		hash = cardgen.HashPAN(c.Number(), r.hashKey)
	}
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO wallet.cards(card_id, kind, holder_name, remote_id, network, bin, last4, exp_month, exp_year, pan_hash)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        ON CONFLICT (card_id) DO UPDATE SET
            kind=EXCLUDED.kind, holder_name=EXCLUDED.holder_name, remote_id=EXCLUDED.remote_id,
            network=EXCLUDED.network, bin=EXCLUDED.bin, last4=EXCLUDED.last4,
            exp_month=EXCLUDED.exp_month, exp_year=EXCLUDED.exp_year,
            pan_hash=EXCLUDED.pan_hash, updated_at=now()
    `, c.ID, c.Kind.String(), c.HolderName, c.RemoteID, string(c.Network()), bin, c.LastFour(),
		c.ExpirationMonth(), c.ExpirationYear(), hash)
	if isUniqueViolation(err) {
		return fmt.Errorf("card number exists: %w", ErrConflict)
	}
	return err
}

// GetCard returns a copy of the stored record. Records read from Postgres
// come back masked since the number is not stored.
func (r *Repository) GetCard(ctx context.Context, id string) (*card.Record, error) {
	if r.db == nil {
		r.mu.RLock()
		defer r.mu.RUnlock()
		c, ok := r.cards[id]
		if !ok {
			return nil, ErrNotFound
		}
		return c.Clone(), nil
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM wallet.cards WHERE card_id=$1`, id)
	c, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

// FindByNumber looks a card up by its full number.
func (r *Repository) FindByNumber(ctx context.Context, pan string) (*card.Record, error) {
	pan = cardgen.NormalizePAN(pan)
	if r.db == nil {
		r.mu.RLock()
		defer r.mu.RUnlock()
		id, ok := r.panIndex[pan]
		if !ok {
			return nil, ErrNotFound
		}
		return r.cards[id].Clone(), nil
	}
	hash := cardgen.HashPAN(pan, r.hashKey)
	row := r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM wallet.cards WHERE pan_hash=$1`, hash)
	c, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

// ListCards returns all cards ordered by ID.
func (r *Repository) ListCards(ctx context.Context) ([]*card.Record, error) {
	if r.db == nil {
		r.mu.RLock()
		defer r.mu.RUnlock()
		out := make([]*card.Record, 0, len(r.cards))
		for _, c := range r.cards {
			out = append(out, c.Clone())
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return out, nil
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+columns+` FROM wallet.cards ORDER BY card_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*card.Record
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Ping returns DB readiness
func (r *Repository) Ping(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	return r.db.PingContext(ctx)
}

const columns = `card_id, holder_name, remote_id, network, last4, exp_month, exp_year`

type scanner interface {
	Scan(dest ...any) error
}

func scanCard(s scanner) (*card.Record, error) {
	var id, holder, remoteID, network, last4 string
	var month, year int
	if err := s.Scan(&id, &holder, &remoteID, &network, &last4, &month, &year); err != nil {
		return nil, err
	}
	c := card.NewMaskedRemote(remoteID, card.Network(network), last4, holder, month, year)
	c.ID = id
	return c, nil
}

// binOf keeps up to the first 8 digits, or 6 for short numbers.
func binOf(pan string) string {
	switch {
	case len(pan) >= 16:
		return pan[:8]
	case len(pan) >= 6:
		return pan[:6]
	default:
		return ""
	}
}

func isUniqueViolation(err error) bool {
	var pe *pq.Error
	if errors.As(err, &pe) && pe.Code == "23505" {
		return true
	}
	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) && pgerr.Code == "23505" {
		return true
	}
	return false
}
