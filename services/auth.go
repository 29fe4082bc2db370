package services

import (
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// AuthGate remembers which Telegram users entered the operator pin. The set
// lives for the process lifetime; there is no expiry, rate limit or lockout.
type AuthGate struct {
	pinHash []byte

	mu    sync.RWMutex
	users map[int64]struct{}
}

// NewAuthGate accepts either a plain pin or a bcrypt hash of it. A plain pin
// is hashed once here so comparisons do not depend on where the inputs differ.
func NewAuthGate(pin string) (*AuthGate, error) {
	hash := pin
	if !isBcryptHash(pin) {
		var err error
		if hash, err = HashPin(pin); err != nil {
			return nil, err
		}
	}
	return &AuthGate{pinHash: []byte(hash), users: make(map[int64]struct{})}, nil
}

func (g *AuthGate) IsAuthenticated(userID int64) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.users[userID]
	return ok
}

// VerifyPin adds userID to the authenticated set when entered matches.
func (g *AuthGate) VerifyPin(userID int64, entered string) bool {
	entered = strings.TrimSpace(entered)
	if entered == "" {
		return false
	}
	if bcrypt.CompareHashAndPassword(g.pinHash, []byte(entered)) != nil {
		return false
	}
	g.mu.Lock()
	g.users[userID] = struct{}{}
	g.mu.Unlock()
	return true
}
