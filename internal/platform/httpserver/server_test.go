package httpserver

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	escrowservice "crystalgive/contexts/crowdfunding/escrow-service"
	metricsadapter "crystalgive/contexts/crowdfunding/escrow-service/adapters/metrics"
	escrowhttp "crystalgive/contexts/crowdfunding/escrow-service/transport/http"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	owner     = "0x1000000000000000000000000000000000000001"
	donorA    = "0x2000000000000000000000000000000000000002"
	donorB    = "0x3000000000000000000000000000000000000003"
	recipient = "0x5000000000000000000000000000000000000005"
)

func newTestServer() *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := prometheus.NewRegistry()
	module := escrowservice.NewInMemoryModule(metricsadapter.NewPrometheus(registry), logger)
	return New(module, registry, logger, ":0")
}

func do(t *testing.T, server *Server, method string, path string, caller string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if caller != "" {
		req.Header.Set("X-User-Id", caller)
	}
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	return rr
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, status int) {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("expected %d, got %d body=%s", status, rr.Code, rr.Body.String())
	}
}

func expectCode(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	expectStatus(t, rr, status)
	var resp escrowhttp.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if resp.Code != code {
		t.Fatalf("expected code %q, got %q", code, resp.Code)
	}
}

func TestCreateCampaignRequiresUserHeader(t *testing.T) {
	server := newTestServer()
	rr := do(t, server, http.MethodPost, "/v1/campaigns", "", `{"title":"roof","target":"10"}`)
	expectCode(t, rr, http.StatusUnauthorized, "missing_user")
}

func TestCreateCampaignRejectsMalformedBody(t *testing.T) {
	server := newTestServer()
	rr := do(t, server, http.MethodPost, "/v1/campaigns", owner, `{"title":`)
	expectCode(t, rr, http.StatusBadRequest, "invalid_json")

	rr = do(t, server, http.MethodPost, "/v1/campaigns", owner, `{"title":"roof","target":"0"}`)
	expectCode(t, rr, http.StatusBadRequest, "invalid_argument")
}

func TestEscrowLifecycleOverHTTP(t *testing.T) {
	server := newTestServer()

	rr := do(t, server, http.MethodPost, "/v1/campaigns", owner, `{"title":"roof","target":"10"}`)
	expectStatus(t, rr, http.StatusCreated)
	var campaign escrowhttp.CampaignResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &campaign); err != nil {
		t.Fatalf("decode campaign: %v", err)
	}
	if campaign.CampaignID != 0 {
		t.Fatalf("expected campaign 0, got %d", campaign.CampaignID)
	}

	expectStatus(t, do(t, server, http.MethodPost, "/v1/campaigns/0/donations", donorA, `{"amount":"2"}`), http.StatusOK)
	expectStatus(t, do(t, server, http.MethodPost, "/v1/campaigns/0/donations", donorB, `{"amount":"1"}`), http.StatusOK)

	rr = do(t, server, http.MethodPost, "/v1/campaigns/0/requests", donorA, `{"description":"x","value":"1","recipient":"`+recipient+`"}`)
	expectCode(t, rr, http.StatusForbidden, "unauthorized")

	rr = do(t, server, http.MethodPost, "/v1/campaigns/0/requests", owner, `{"description":"shingles","value":"1","recipient":"`+recipient+`","proof_ref":"N/A"}`)
	expectStatus(t, rr, http.StatusCreated)

	expectStatus(t, do(t, server, http.MethodPost, "/v1/campaigns/0/requests/0/approvals", donorA, ""), http.StatusOK)
	expectCode(t, do(t, server, http.MethodPost, "/v1/campaigns/0/requests/0/approvals", donorA, ""), http.StatusConflict, "already_voted")
	expectCode(t, do(t, server, http.MethodPost, "/v1/campaigns/0/requests/0/approvals", owner, ""), http.StatusForbidden, "unauthorized")

	expectCode(t, do(t, server, http.MethodPost, "/v1/campaigns/0/requests/0/finalize", owner, ""), http.StatusUnprocessableEntity, "quorum_not_met")
	expectStatus(t, do(t, server, http.MethodPost, "/v1/campaigns/0/requests/0/approvals", donorB, ""), http.StatusOK)

	rr = do(t, server, http.MethodPost, "/v1/campaigns/0/requests/0/finalize", owner, "")
	expectStatus(t, rr, http.StatusOK)
	var finalized escrowhttp.FinalizeResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &finalized); err != nil {
		t.Fatalf("decode finalize: %v", err)
	}
	if finalized.EscrowBalance != "2" || finalized.RecipientBalance != "1" || !finalized.Request.Complete {
		t.Fatalf("unexpected finalize response: %+v", finalized)
	}
	expectCode(t, do(t, server, http.MethodPost, "/v1/campaigns/0/requests/0/finalize", owner, ""), http.StatusConflict, "already_finalized")

	rr = do(t, server, http.MethodGet, "/v1/accounts/"+recipient+"/balance", "", "")
	expectStatus(t, rr, http.StatusOK)
	if !strings.Contains(rr.Body.String(), `"balance":"1"`) {
		t.Fatalf("unexpected balance body: %s", rr.Body.String())
	}

	rr = do(t, server, http.MethodGet, "/v1/campaigns/0/contributors/"+strings.ToLower(donorB)+"?request_index=0", "", "")
	expectStatus(t, rr, http.StatusOK)
	if !strings.Contains(rr.Body.String(), `"is_contributor":true`) || !strings.Contains(rr.Body.String(), `"has_voted":true`) {
		t.Fatalf("unexpected membership body: %s", rr.Body.String())
	}

	rr = do(t, server, http.MethodGet, "/v1/events?campaign_id=0&event_type=donation.received", "", "")
	expectStatus(t, rr, http.StatusOK)
	var events escrowhttp.ListEventsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &events); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(events.Items) != 2 {
		t.Fatalf("expected 2 donation events, got %d", len(events.Items))
	}
}

func TestShortfallReturnsUnprocessable(t *testing.T) {
	server := newTestServer()
	expectStatus(t, do(t, server, http.MethodPost, "/v1/campaigns", owner, `{"title":"roof","target":"10"}`), http.StatusCreated)
	expectStatus(t, do(t, server, http.MethodPost, "/v1/campaigns/0/donations", donorA, `{"amount":"1"}`), http.StatusOK)
	expectStatus(t, do(t, server, http.MethodPost, "/v1/campaigns/0/requests", owner, `{"value":"5","recipient":"`+recipient+`"}`), http.StatusCreated)
	expectStatus(t, do(t, server, http.MethodPost, "/v1/campaigns/0/requests/0/approvals", donorA, ""), http.StatusOK)

	expectCode(t, do(t, server, http.MethodPost, "/v1/campaigns/0/requests/0/finalize", owner, ""), http.StatusUnprocessableEntity, "insufficient_funds")

	rr := do(t, server, http.MethodGet, "/v1/campaigns/0/requests/0", "", "")
	expectStatus(t, rr, http.StatusOK)
	if !strings.Contains(rr.Body.String(), `"complete":false`) {
		t.Fatalf("request must stay pending after shortfall: %s", rr.Body.String())
	}
}

func TestIdempotencyKeyReplayAndConflict(t *testing.T) {
	server := newTestServer()
	expectStatus(t, do(t, server, http.MethodPost, "/v1/campaigns", owner, `{"title":"roof","target":"10"}`), http.StatusCreated)

	donate := func(amount string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/campaigns/0/donations", strings.NewReader(`{"amount":"`+amount+`"}`))
		req.Header.Set("X-User-Id", donorA)
		req.Header.Set("Idempotency-Key", "donation-1")
		rr := httptest.NewRecorder()
		server.Handler().ServeHTTP(rr, req)
		return rr
	}
	expectStatus(t, donate("2"), http.StatusOK)
	replay := donate("2")
	expectStatus(t, replay, http.StatusOK)
	if !strings.Contains(replay.Body.String(), `"replayed":true`) || !strings.Contains(replay.Body.String(), `"collected":"2"`) {
		t.Fatalf("expected replay without a second credit: %s", replay.Body.String())
	}
	expectCode(t, donate("3"), http.StatusConflict, "idempotency_conflict")
}

func TestReadErrors(t *testing.T) {
	server := newTestServer()
	expectCode(t, do(t, server, http.MethodGet, "/v1/campaigns/abc", "", ""), http.StatusBadRequest, "invalid_campaign_id")
	expectCode(t, do(t, server, http.MethodGet, "/v1/campaigns/7", "", ""), http.StatusNotFound, "campaign_not_found")
	expectCode(t, do(t, server, http.MethodGet, "/v1/campaigns?limit=x", "", ""), http.StatusBadRequest, "invalid_limit")
	expectCode(t, do(t, server, http.MethodGet, "/v1/events?event_type=nope", "", ""), http.StatusBadRequest, "invalid_list_filter")
	expectCode(t, do(t, server, http.MethodGet, "/v1/accounts/not-an-address/balance", "", ""), http.StatusBadRequest, "invalid_argument")

	expectStatus(t, do(t, server, http.MethodPost, "/v1/campaigns", owner, `{"title":"roof","target":"10"}`), http.StatusCreated)
	expectCode(t, do(t, server, http.MethodGet, "/v1/campaigns/0/requests/3", "", ""), http.StatusNotFound, "request_not_found")
}

func TestMetricsAndHealthEndpoints(t *testing.T) {
	server := newTestServer()
	expectStatus(t, do(t, server, http.MethodPost, "/v1/campaigns", owner, `{"title":"roof","target":"10"}`), http.StatusCreated)

	rr := do(t, server, http.MethodGet, "/metrics", "", "")
	expectStatus(t, rr, http.StatusOK)
	if !strings.Contains(rr.Body.String(), "crystalgive_campaigns_created_total 1") {
		t.Fatalf("expected campaign counter in metrics output")
	}

	expectStatus(t, do(t, server, http.MethodGet, "/healthz", "", ""), http.StatusOK)
}

func TestMetricsDisabledWithoutGatherer(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	server := New(escrowservice.NewInMemoryModule(nil, logger), nil, logger, "")
	expectStatus(t, do(t, server, http.MethodGet, "/metrics", "", ""), http.StatusNotFound)
	if server.addr != ":8080" {
		t.Fatalf("expected default addr, got %q", server.addr)
	}
}
