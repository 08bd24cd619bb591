// Package credstore owns the session identity: the bearer token, the user
// profile, and the currency preference. All three are mirrored to durable
// storage so a session survives process restarts.
package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/storage"
)

// Storage keys, fixed by convention.
const (
	keyToken    = "token"
	keyUser     = "user"
	keyCurrency = "currency"
)

var ErrInvalidCurrency = errors.New("invalid currency code")

// Store holds the current session's credentials in memory and keeps the
// durable copy in sync. The zero session is "logged out".
type Store struct {
	mu       sync.RWMutex
	kv       storage.KV
	user     *core.User
	token    string
	currency string
	log      *log.Logger
}

// New creates a Store over the given durable KV. Call Load before first use
// to rehydrate any previous session.
func New(kv storage.KV, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Store{
		kv:       kv,
		currency: core.DefaultCurrency,
		log:      logger.WithComponent(log.ComponentCredStore),
	}
}

// Load rehydrates the session from durable storage. A corrupt stored user
// or an expired stored JWT is discarded and logged; Load only fails on
// storage errors, never on bad content.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, err := s.kv.Get(ctx, keyToken)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		token = ""
	case err != nil:
		return fmt.Errorf("load token: %w", err)
	}

	if token != "" && tokenExpired(token) {
		s.log.WarnContext(ctx, "Stored session token expired, discarding",
			log.FieldOperation, log.OpRehydrate)
		_ = s.kv.Delete(ctx, keyToken)
		_ = s.kv.Delete(ctx, keyUser)
		token = ""
	}

	var user *core.User
	raw, err := s.kv.Get(ctx, keyUser)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return fmt.Errorf("load user: %w", err)
	default:
		var u core.User
		if jsonErr := json.Unmarshal([]byte(raw), &u); jsonErr != nil {
			s.log.WarnContext(ctx, "Stored user is unreadable, discarding",
				log.FieldOperation, log.OpRehydrate,
				log.FieldError, jsonErr.Error())
			_ = s.kv.Delete(ctx, keyUser)
		} else {
			user = &u
		}
	}

	currency, err := s.kv.Get(ctx, keyCurrency)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		currency = core.DefaultCurrency
	case err != nil:
		return fmt.Errorf("load currency: %w", err)
	}
	if !core.ValidCurrency(currency) {
		s.log.WarnContext(ctx, "Stored currency is unknown, using default",
			log.FieldOperation, log.OpRehydrate)
		currency = core.DefaultCurrency
	}

	s.token = token
	s.user = user
	s.currency = currency

	s.log.InfoContext(ctx, "Session rehydrated",
		log.FieldOperation, log.OpRehydrate,
		"authenticated", token != "")
	return nil
}

// SetCredentials replaces the current identity and persists it.
func (s *Store) SetCredentials(ctx context.Context, user core.User, token string) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	if err := s.kv.Set(ctx, keyToken, token); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	if err := s.kv.Set(ctx, keyUser, string(raw)); err != nil {
		return fmt.Errorf("persist user: %w", err)
	}

	s.mu.Lock()
	s.user = &user
	s.token = token
	s.mu.Unlock()

	s.log.InfoContext(ctx, "Credentials stored",
		log.FieldOperation, log.OpPersist,
		log.FieldUserID, user.ID)
	return nil
}

// Clear removes the identity from memory and durable storage. Safe to call
// with no session.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, keyToken); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	if err := s.kv.Delete(ctx, keyUser); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	s.mu.Lock()
	s.user = nil
	s.token = ""
	s.mu.Unlock()

	s.log.InfoContext(ctx, "Credentials cleared", log.FieldOperation, log.OpClear)
	return nil
}

// Current returns the session identity, or (nil, "") when logged out.
func (s *Store) Current() (*core.User, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil, s.token
	}
	u := *s.user
	return &u, s.token
}

// Token returns the current bearer token, empty when logged out. It
// satisfies the gateway's TokenSource so every request reads the token at
// call time.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Authenticated reports whether a token is present.
func (s *Store) Authenticated() bool {
	return s.Token() != ""
}

// Currency returns the stored display-currency preference.
func (s *Store) Currency() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currency
}

// SetCurrency persists the display-currency preference.
func (s *Store) SetCurrency(ctx context.Context, code string) error {
	if !core.ValidCurrency(code) {
		return fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}
	if err := s.kv.Set(ctx, keyCurrency, code); err != nil {
		return fmt.Errorf("persist currency: %w", err)
	}
	s.mu.Lock()
	s.currency = code
	s.mu.Unlock()
	return nil
}

// tokenExpired reports whether token is a well-formed JWT whose exp claim is
// in the past. The signature is deliberately not checked: the client only
// wants to avoid resuming a session the server is guaranteed to reject.
// Opaque (non-JWT) tokens are never considered expired here.
func tokenExpired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}
