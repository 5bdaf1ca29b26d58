package adminapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

type fakeLister struct{ sessions []SessionInfo }

func (f fakeLister) ListSessions() []SessionInfo { return f.sessions }

func TestHealthzIsUnauthenticated(t *testing.T) {
	router := NewRouter(fakeLister{}, prometheus.NewRegistry(), []byte("a-secret-long-enough"))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestSessionsRequiresBearerTokenWhenSecretSet(t *testing.T) {
	router := NewRouter(fakeLister{}, prometheus.NewRegistry(), []byte("a-secret-long-enough"))

	req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionsAllowsValidBearerToken(t *testing.T) {
	secret := []byte("a-secret-long-enough")

	sessions := []SessionInfo{{ID: "1", RemoteAddr: "127.0.0.1:1234", State: "Idle", StartedAt: time.Now()}}
	router := NewRouter(fakeLister{sessions: sessions}, prometheus.NewRegistry(), secret)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{})

	signed, err := token.SignedString(secret)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+signed)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "127.0.0.1:1234")
}

func TestSessionsOpenWhenNoSecretConfigured(t *testing.T) {
	router := NewRouter(fakeLister{}, prometheus.NewRegistry(), nil)

	req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpointExposesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	metrics.Sessions.Set(3)

	router := NewRouter(fakeLister{}, reg, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "rspstub_sessions_active 3")
}
