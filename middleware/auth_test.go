package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Dosada05/league-engine/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func protected(t *testing.T) (http.Handler, *models.Actor) {
	t.Helper()
	var seen models.Actor
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := Authenticate(testSecret, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := ActorFromContext(r.Context())
		require.NoError(t, err)
		seen = actor
		w.WriteHeader(http.StatusNoContent)
	}))
	return h, &seen
}

func TestAuthenticateAcceptsValidToken(t *testing.T) {
	h, seen := protected(t)
	token, err := IssueToken(testSecret, models.Actor{UserID: "u-42", Role: models.RoleAdmin}, time.Hour, time.Now())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(ClientIDHeader, "tab-7")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, models.Actor{UserID: "u-42", Role: models.RoleAdmin, ClientID: "tab-7"}, *seen)
}

func TestAuthenticateRejects(t *testing.T) {
	expired, err := IssueToken(testSecret, models.Actor{UserID: "u"}, time.Hour, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	foreign, err := IssueToken([]byte("other"), models.Actor{UserID: "u"}, time.Hour, time.Now())
	require.NoError(t, err)
	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"user_id": "u"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	cases := map[string]string{
		"no header":    "",
		"wrong scheme": "Basic abc",
		"expired":      "Bearer " + expired,
		"wrong secret": "Bearer " + foreign,
		"alg none":     "Bearer " + unsigned,
		"garbage":      "Bearer not-a-jwt",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			h, _ := protected(t)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestActorFromClaims(t *testing.T) {
	actor, err := actorFromClaims(jwt.MapClaims{"user_id": float64(17)})
	require.NoError(t, err)
	assert.Equal(t, models.Actor{UserID: "17", Role: models.RolePlayer}, actor)

	_, err = actorFromClaims(jwt.MapClaims{"user_id": 1.5})
	assert.Error(t, err)
	_, err = actorFromClaims(jwt.MapClaims{"user_id": "u", "role": "superuser"})
	assert.Error(t, err)
	_, err = actorFromClaims(jwt.MapClaims{})
	assert.Error(t, err)
}
