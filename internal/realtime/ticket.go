package realtime

import (
	"errors"
	"fmt"
	"time"

	"lostfound_backend/internal/config"
	"lostfound_backend/internal/platform/crypto"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const ticketAudience = "realtime"

var ErrInvalidTicket = errors.New("invalid or expired realtime ticket")

// TicketIssuer mints short-lived tokens that authorize a websocket upgrade.
// Browsers cannot attach an Authorization header to the upgrade request,
// so the client trades its ID token for a ticket and passes it as a query parameter.
type TicketIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTicketIssuer uses REALTIME_TICKET_SECRET, or a random per-process secret when unset.
func NewTicketIssuer(cfg *config.Config, logger *zap.Logger) (*TicketIssuer, error) {
	secret := []byte(cfg.RealtimeTicketSecret)
	if len(secret) == 0 {
		b, err := crypto.RandomBytes(32)
		if err != nil {
			return nil, fmt.Errorf("generating realtime ticket secret: %w", err)
		}
		secret = b
		logger.Warn("REALTIME_TICKET_SECRET is not set; tickets are only valid on this instance")
	}
	ttl := cfg.RealtimeTicketTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &TicketIssuer{secret: secret, ttl: ttl, now: time.Now}, nil
}

// Issue returns a signed ticket for userID and its expiry.
func (t *TicketIssuer) Issue(userID uuid.UUID) (string, time.Time, error) {
	now := t.now()
	expiresAt := now.Add(t.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		Audience:  jwt.ClaimStrings{ticketAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		ID:        uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing realtime ticket: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify returns the user a ticket was issued to.
func (t *TicketIssuer) Verify(ticket string) (uuid.UUID, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(ticket, claims, func(tok *jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(ticketAudience),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidTicket, err)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject", ErrInvalidTicket)
	}
	return userID, nil
}
