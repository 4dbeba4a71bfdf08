package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codepair/collab/internal/domain"
	"github.com/codepair/collab/internal/store/memory"
)

const testSecret = "test-secret"

func setupVerifier(t *testing.T) (*Issuer, *Verifier, *domain.User) {
	t.Helper()
	users := memory.NewUsers()
	u := &domain.User{ID: "u1", Name: "alice", Email: "alice@example.com"}
	require.NoError(t, users.Create(context.Background(), u, "hash"))
	return NewIssuer(testSecret, time.Hour), NewVerifier(testSecret, users), u
}

func TestVerifyRoundTrip(t *testing.T) {
	issuer, verifier, u := setupVerifier(t)

	token, err := issuer.Issue(u.ID)
	require.NoError(t, err)

	got, err := verifier.Verify(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.Equal(t, "alice", got.Name)
}

func TestVerifyErrorKinds(t *testing.T) {
	issuer, verifier, u := setupVerifier(t)
	ctx := context.Background()

	_, err := verifier.Verify(ctx, "")
	require.ErrorIs(t, err, ErrMissingCredential)

	_, err = verifier.Verify(ctx, "not-a-token")
	require.ErrorIs(t, err, ErrInvalidSignature)

	// Signed with a different secret.
	other := NewIssuer("other-secret", time.Hour)
	tok, err := other.Issue(u.ID)
	require.NoError(t, err)
	_, err = verifier.Verify(ctx, tok)
	require.ErrorIs(t, err, ErrInvalidSignature)

	// Expired.
	expired := NewIssuer(testSecret, -time.Minute)
	tok, err = expired.Issue(u.ID)
	require.NoError(t, err)
	_, err = verifier.Verify(ctx, tok)
	require.ErrorIs(t, err, ErrExpired)

	// Valid signature, subject not in the store.
	tok, err = issuer.Issue("ghost")
	require.NoError(t, err)
	_, err = verifier.Verify(ctx, tok)
	require.ErrorIs(t, err, ErrUnknownUser)
}

func TestCredentialPrecedence(t *testing.T) {
	newReq := func(query, header, cookie string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/api/ws"+query, nil)
		if header != "" {
			r.Header.Set("Authorization", header)
		}
		if cookie != "" {
			r.AddCookie(&http.Cookie{Name: CookieName, Value: cookie})
		}
		return r
	}

	tests := []struct {
		name    string
		req     *http.Request
		want    string
		wantErr error
	}{
		{"query wins over all", newReq("?token=q", "Bearer h", "c"), "q", nil},
		{"header wins over cookie", newReq("", "Bearer h", "c"), "h", nil},
		{"cookie as fallback", newReq("", "", "c"), "c", nil},
		{"nothing present", newReq("", "", ""), "", ErrMissingCredential},
		{"non-bearer header skipped", newReq("", "Basic xyz", "c"), "c", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CredentialFromRequest(tt.req)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	require.True(t, CheckPassword(hash, "s3cret"))
	require.False(t, CheckPassword(hash, "wrong"))
}
