package session

import (
	"time"

	"github.com/Umer-Fazal/pharmacore/internal/domain"
)

// Session is the server-side state behind the opaque cookie id. The browser
// only ever sees the id; everything else lives in the store.
type Session struct {
	ID             string              `json:"-"`
	CreatedAt      time.Time           `json:"created_at"`
	LastActivityAt time.Time           `json:"last_activity_at"`
	CSRFToken      string              `json:"csrf_token,omitempty"`
	Identity       *domain.Identity    `json:"identity,omitempty"`
	PendingAuth    *domain.PendingAuth `json:"pending_auth,omitempty"`
	Cart           map[int64]int       `json:"cart,omitempty"`
	// Flash is a one-time message cleared on read (order confirmation).
	Flash string `json:"flash,omitempty"`
}

func (s *Session) Authenticated() bool {
	return s.Identity != nil
}

// ExpiredByInactivity reports whether the gap since the last request
// exceeds the inactivity window.
func (s *Session) ExpiredByInactivity(now time.Time, window time.Duration) bool {
	return now.Sub(s.LastActivityAt) > window
}

// AddToCart merges qty into the cart, additive when present.
func (s *Session) AddToCart(productID int64, qty int) {
	if s.Cart == nil {
		s.Cart = make(map[int64]int)
	}
	s.Cart[productID] += qty
}

// RemoveFromCart is idempotent; removing an absent product is a no-op.
func (s *Session) RemoveFromCart(productID int64) {
	delete(s.Cart, productID)
}

func (s *Session) ClearCart() {
	s.Cart = nil
}

// TakeFlash returns the one-time message and clears it.
func (s *Session) TakeFlash() string {
	msg := s.Flash
	s.Flash = ""
	return msg
}
