package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/crownline/pageant/internal/app/service/purchase"
	"github.com/crownline/pageant/internal/platform/pesapal"
)

type stubInitiator struct {
	result *purchase.InitiationResult
	err    error
}

func (s *stubInitiator) InitiateVotes(_ context.Context, _ *purchase.VoteOrderRequest) (*purchase.InitiationResult, error) {
	return s.result, s.err
}

func (s *stubInitiator) InitiateTicket(_ context.Context, _ *purchase.TicketOrderRequest) (*purchase.InitiationResult, error) {
	return s.result, s.err
}

func voteBody(t *testing.T) *bytes.Reader {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"payer_email": "voter@example.com",
		"package_id":  "pkg-1",
		"selections":  []map[string]string{{"contestant_id": "c-1", "category_id": "cat-1"}},
	})
	require.NoError(t, err)
	return bytes.NewReader(body)
}

func newPurchaseRouter(svc purchase.Initiator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterPurchaseRoutes(r.Group("/api/v1"), svc)
	return r
}

func TestApiInitiateVotes_ReturnsRedirectURL(t *testing.T) {
	svc := &stubInitiator{result: &purchase.InitiationResult{
		MerchantRef:     "PGT-20250601-AABBCCDD",
		OrderTrackingID: "trk-1",
		RedirectURL:     "https://pay.pesapal.com/iframe/trk-1",
		Amount:          10.00,
	}}
	r := newPurchaseRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/votes", voteBody(t))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "redirect_url")
	require.Contains(t, w.Body.String(), "trk-1")
}

func TestApiInitiateVotes_ValidationFailureIsBadRequest(t *testing.T) {
	svc := &stubInitiator{err: purchase.ErrVotingClosed}
	r := newPurchaseRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/votes", voteBody(t))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "voting is currently closed")
}

func TestApiInitiateVotes_GatewayDownIsServiceUnavailable(t *testing.T) {
	svc := &stubInitiator{err: pesapal.ErrUnavailable}
	r := newPurchaseRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/votes", voteBody(t))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestApiInitiateVotes_RejectsMissingSelections(t *testing.T) {
	r := newPurchaseRouter(&stubInitiator{})

	body, _ := json.Marshal(map[string]any{"payer_email": "voter@example.com", "package_id": "pkg-1"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/votes", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestApiInitiateTicket_FreeTicketConfirmedImmediately(t *testing.T) {
	svc := &stubInitiator{result: &purchase.InitiationResult{
		MerchantRef: "PGT-20250601-11223344",
		Confirmed:   true,
	}}
	r := newPurchaseRouter(svc)

	body, _ := json.Marshal(map[string]any{
		"payer_email":    "guest@example.com",
		"ticket_type_id": "tt-1",
		"quantity":       1,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tickets", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"confirmed":true`)
}
