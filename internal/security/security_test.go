package security

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestHasher(t *testing.T) *PasswordHasher {
	t.Helper()
	h, err := NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)
	return h
}

func TestPasswordRoundTrip(t *testing.T) {
	h := newTestHasher(t)

	for _, pw := range []string{"", "secret1", "пароль-с-юникодом", "🎬🍿 popcorn", strings.Repeat("x", 72)} {
		hash, err := h.Hash(pw)
		require.NoError(t, err)
		assert.True(t, h.Verify(pw, hash), "round trip for %q", pw)
		assert.False(t, h.Verify(pw+"!", hash), "other plaintext for %q", pw)
	}
}

func TestPasswordHashIsSalted(t *testing.T) {
	h := newTestHasher(t)

	a, err := h.Hash("secret1")
	require.NoError(t, err)
	b, err := h.Hash("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestPasswordVerifyMalformedHash(t *testing.T) {
	h := newTestHasher(t)

	assert.False(t, h.Verify("secret1", ""))
	assert.False(t, h.Verify("secret1", "not-a-bcrypt-hash"))
	assert.False(t, h.Verify("secret1", "$2a$04$short"))
}

func TestPasswordLongerThanBcryptLimit(t *testing.T) {
	h := newTestHasher(t)

	for _, pw := range []string{
		strings.Repeat("фильм", 8),
		strings.Repeat("🎬", 30),
		strings.Repeat("x", 200),
	} {
		require.Greater(t, len(pw), 72)
		hash, err := h.Hash(pw)
		require.NoError(t, err)
		assert.True(t, h.Verify(pw, hash), "round trip for %d bytes", len(pw))

		// отличие после 72-го байта тоже должно учитываться
		assert.False(t, h.Verify(pw[:len(pw)-1]+"?", hash))
		assert.False(t, h.Verify(pw[:72], hash))
	}
}

func TestVerifyDummyReady(t *testing.T) {
	h := newTestHasher(t)
	require.NotEmpty(t, h.dummy)
	_, err := bcrypt.Cost(h.dummy)
	require.NoError(t, err)
	h.VerifyDummy("anything")
}

func TestNewPasswordHasherCost(t *testing.T) {
	_, err := NewPasswordHasher(bcrypt.MinCost - 1)
	assert.Error(t, err)
	_, err = NewPasswordHasher(bcrypt.MaxCost + 1)
	assert.Error(t, err)
}

func newTestCodec(t *testing.T, now time.Time) *TokenCodec {
	t.Helper()
	c, err := NewTokenCodec(testSecret, "cineradar-test", time.Hour)
	require.NoError(t, err)
	return c.WithClock(func() time.Time { return now })
}

func TestTokenIssueVerify(t *testing.T) {
	now := time.Date(2025, 3, 19, 12, 0, 0, 0, time.UTC)
	c := newTestCodec(t, now)
	sub := uuid.New()

	tok, exp, err := c.Issue(sub)
	require.NoError(t, err)
	assert.True(t, now.Add(time.Hour).Equal(exp))

	claims, err := c.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, sub, claims.Subject)
	assert.True(t, now.Equal(claims.IssuedAt))
	assert.True(t, exp.Equal(claims.ExpiresAt))
}

func TestTokenExpired(t *testing.T) {
	issuedAt := time.Date(2025, 3, 19, 12, 0, 0, 0, time.UTC)
	tok, _, err := newTestCodec(t, issuedAt).IssueWithTTL(uuid.New(), time.Second)
	require.NoError(t, err)

	_, err = newTestCodec(t, issuedAt.Add(2*time.Second)).Verify(tok)
	require.Error(t, err)
	reason, ok := RejectReason(err)
	require.True(t, ok)
	assert.Equal(t, ReasonExpired, reason)
}

func TestTokenBadSignature(t *testing.T) {
	now := time.Date(2025, 3, 19, 12, 0, 0, 0, time.UTC)
	c := newTestCodec(t, now)

	other, err := NewTokenCodec([]byte("ffffffffffffffffffffffffffffffff"), "cineradar-test", time.Hour)
	require.NoError(t, err)
	forged, _, err := other.WithClock(func() time.Time { return now }).Issue(uuid.New())
	require.NoError(t, err)

	_, err = c.Verify(forged)
	reason, _ := RejectReason(err)
	assert.Equal(t, ReasonBadSignature, reason)

	// Подмена payload при сохранённой подписи.
	good, _, err := c.Issue(uuid.New())
	require.NoError(t, err)
	evil, _, err := c.Issue(uuid.New())
	require.NoError(t, err)
	gp := strings.Split(good, ".")
	ep := strings.Split(evil, ".")
	tampered := gp[0] + "." + ep[1] + "." + gp[2]

	_, err = c.Verify(tampered)
	reason, _ = RejectReason(err)
	assert.Equal(t, ReasonBadSignature, reason)
}

func TestTokenSignatureCheckedBeforeExpiry(t *testing.T) {
	issuedAt := time.Date(2025, 3, 19, 12, 0, 0, 0, time.UTC)
	other, err := NewTokenCodec([]byte("ffffffffffffffffffffffffffffffff"), "cineradar-test", time.Hour)
	require.NoError(t, err)
	forged, _, err := other.WithClock(func() time.Time { return issuedAt }).IssueWithTTL(uuid.New(), time.Second)
	require.NoError(t, err)

	_, err = newTestCodec(t, issuedAt.Add(time.Hour)).Verify(forged)
	reason, _ := RejectReason(err)
	assert.Equal(t, ReasonBadSignature, reason)
}

func TestTokenMalformed(t *testing.T) {
	c := newTestCodec(t, time.Now())

	for _, tok := range []string{"", "garbage", "a.b.c", "Bearer x.y.z"} {
		_, err := c.Verify(tok)
		require.Error(t, err, tok)
		reason, ok := RejectReason(err)
		require.True(t, ok)
		assert.Equal(t, ReasonMalformed, reason, tok)
	}
}

func TestNewTokenCodecValidation(t *testing.T) {
	_, err := NewTokenCodec([]byte("short"), "x", time.Hour)
	assert.Error(t, err)
	_, err = NewTokenCodec(testSecret, "x", 0)
	assert.Error(t, err)
}
