package share

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Gate decides whether a request may see or download a share. Denials carry
// a specific sentinel so the transport can tell "prompt for a password"
// apart from "invalid code".
type Gate struct {
	store *Store
	now   func() time.Time
}

// NewGate creates a gate over the given store.
func NewGate(store *Store) *Gate {
	return &Gate{store: store, now: time.Now}
}

// Lookup returns the item for code if it exists and has not expired.
// Expired items are reported as ErrNotFound even when the reclaimer has not
// physically removed them yet.
func (g *Gate) Lookup(code string) (*Item, error) {
	item, err := g.store.Get(code)
	if err != nil {
		return nil, err
	}
	if item.ExpiredAt(g.now()) {
		return nil, ErrNotFound
	}
	return item, nil
}

// Authorize evaluates the download policy for code, in order: unknown or
// expired code, missing password, wrong password, granted. After a grant
// the caller records the download via the store before streaming content;
// counting on authorize is deliberate, so an aborted stream still counts.
func (g *Gate) Authorize(code, password string) (*Item, error) {
	item, err := g.Lookup(code)
	if err != nil {
		return nil, err
	}

	if item.PasswordHash != nil {
		if password == "" {
			return nil, ErrPasswordRequired
		}
		if err := bcrypt.CompareHashAndPassword([]byte(*item.PasswordHash), []byte(password)); err != nil {
			return nil, ErrWrongPassword
		}
	}

	return item, nil
}

// HashPassword returns the bcrypt hash to store for a share password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
