package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

const (
	// ResetTokenBytes is the amount of random data behind a reset token.
	ResetTokenBytes = 32
	// ResetTokenWindow is how long a reset token stays usable.
	ResetTokenWindow = 10 * time.Minute
)

// ResetToken is a freshly generated one-time password reset token. Plain is
// handed to the user once; only Hash and ExpiresAt are persisted.
type ResetToken struct {
	Plain     string
	Hash      string
	ExpiresAt time.Time
}

// ResetTokens generates password reset tokens.
type ResetTokens struct {
	window time.Duration
	now    func() time.Time
}

// NewResetTokens returns a generator using the given clock; nil means time.Now.
func NewResetTokens(now func() time.Time) *ResetTokens {
	if now == nil {
		now = time.Now
	}
	return &ResetTokens{window: ResetTokenWindow, now: now}
}

// Generate returns a random token, its sha256 hash and the expiry.
func (g *ResetTokens) Generate() (ResetToken, error) {
	buf := make([]byte, ResetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return ResetToken{}, err
	}
	plain := hex.EncodeToString(buf)
	return ResetToken{
		Plain:     plain,
		Hash:      HashResetToken(plain),
		ExpiresAt: g.now().UTC().Add(g.window),
	}, nil
}

// HashResetToken returns the lookup hash of a candidate reset token. A fast
// hash is enough here: the token space is 256 random bits.
func HashResetToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}
