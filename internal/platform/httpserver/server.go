package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	escrowservice "crystalgive/contexts/crowdfunding/escrow-service"
	escrowerrors "crystalgive/contexts/crowdfunding/escrow-service/domain/errors"
	escrowhttp "crystalgive/contexts/crowdfunding/escrow-service/transport/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/sync/errgroup"

	_ "crystalgive/internal/platform/httpserver/docs"
)

type Server struct {
	mux      *http.ServeMux
	logger   *slog.Logger
	addr     string
	escrow   escrowservice.Module
	gatherer prometheus.Gatherer
}

// New builds the API mux. A nil gatherer leaves /metrics unregistered.
func New(
	escrow escrowservice.Module,
	gatherer prometheus.Gatherer,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:      http.NewServeMux(),
		logger:   logger,
		addr:     addr,
		escrow:   escrow,
		gatherer: gatherer,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return traced(s.mux)
}

// Run serves until ctx is cancelled, then drains in-flight requests for up to
// shutdownTimeout.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		s.logger.Info("http server starting",
			"event", "http_server_starting",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"addr", s.addr,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("http server stopping",
			"event", "http_server_stopping",
			"module", "internal/platform/httpserver",
			"layer", "platform",
		)
		return srv.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	if s.gatherer != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.mux.HandleFunc("POST /v1/campaigns", s.handleCreateCampaign)
	s.mux.HandleFunc("GET /v1/campaigns", s.handleListCampaigns)
	s.mux.HandleFunc("GET /v1/campaigns/{campaign_id}", s.handleGetCampaign)
	s.mux.HandleFunc("POST /v1/campaigns/{campaign_id}/donations", s.handleDonate)
	s.mux.HandleFunc("POST /v1/campaigns/{campaign_id}/requests", s.handleCreateRequest)
	s.mux.HandleFunc("GET /v1/campaigns/{campaign_id}/requests", s.handleListRequests)
	s.mux.HandleFunc("GET /v1/campaigns/{campaign_id}/requests/{request_index}", s.handleGetRequest)
	s.mux.HandleFunc("POST /v1/campaigns/{campaign_id}/requests/{request_index}/approvals", s.handleApproveRequest)
	s.mux.HandleFunc("POST /v1/campaigns/{campaign_id}/requests/{request_index}/finalize", s.handleFinalizeRequest)
	s.mux.HandleFunc("GET /v1/campaigns/{campaign_id}/contributors/{address}", s.handleMembership)
	s.mux.HandleFunc("GET /v1/accounts/{address}/balance", s.handleAccountBalance)
	s.mux.HandleFunc("GET /v1/events", s.handleListEvents)
}

func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req escrowhttp.CreateCampaignRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.escrow.Handler.CreateCampaignHandler(r.Context(), caller, r.Header.Get("Idempotency-Key"), req)
	if err != nil {
		writeEscrowDomainError(w, err)
		return
	}
	writeJSON(w, createdStatus(resp.Replayed), resp)
}

func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	offset, ok := queryInt(w, query.Get("offset"), "offset")
	if !ok {
		return
	}
	limit, ok := queryInt(w, query.Get("limit"), "limit")
	if !ok {
		return
	}
	resp, err := s.escrow.Handler.ListCampaignsHandler(r.Context(), offset, limit)
	if err != nil {
		writeEscrowDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := pathCampaignID(w, r)
	if !ok {
		return
	}
	resp, err := s.escrow.Handler.GetCampaignHandler(r.Context(), campaignID)
	if err != nil {
		writeEscrowDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDonate(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	campaignID, ok := pathCampaignID(w, r)
	if !ok {
		return
	}
	var req escrowhttp.DonateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.escrow.Handler.DonateHandler(r.Context(), caller, r.Header.Get("Idempotency-Key"), campaignID, req)
	if err != nil {
		writeEscrowDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	campaignID, ok := pathCampaignID(w, r)
	if !ok {
		return
	}
	var req escrowhttp.CreateDisbursementRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.escrow.Handler.CreateRequestHandler(r.Context(), caller, r.Header.Get("Idempotency-Key"), campaignID, req)
	if err != nil {
		writeEscrowDomainError(w, err)
		return
	}
	writeJSON(w, createdStatus(resp.Replayed), resp)
}

func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := pathCampaignID(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	offset, ok := queryInt(w, query.Get("offset"), "offset")
	if !ok {
		return
	}
	limit, ok := queryInt(w, query.Get("limit"), "limit")
	if !ok {
		return
	}
	resp, err := s.escrow.Handler.ListRequestsHandler(r.Context(), campaignID, offset, limit)
	if err != nil {
		writeEscrowDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	campaignID, index, ok := pathRequest(w, r)
	if !ok {
		return
	}
	resp, err := s.escrow.Handler.GetRequestHandler(r.Context(), campaignID, index)
	if err != nil {
		writeEscrowDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleApproveRequest(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	campaignID, index, ok := pathRequest(w, r)
	if !ok {
		return
	}
	resp, err := s.escrow.Handler.ApproveRequestHandler(r.Context(), caller, campaignID, index)
	if err != nil {
		writeEscrowDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFinalizeRequest(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	campaignID, index, ok := pathRequest(w, r)
	if !ok {
		return
	}
	resp, err := s.escrow.Handler.FinalizeRequestHandler(r.Context(), caller, campaignID, index)
	if err != nil {
		writeEscrowDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMembership(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := pathCampaignID(w, r)
	if !ok {
		return
	}
	var requestIndex *int
	if raw := r.URL.Query().Get("request_index"); raw != "" {
		index, ok := queryInt(w, raw, "request_index")
		if !ok {
			return
		}
		requestIndex = &index
	}
	resp, err := s.escrow.Handler.MembershipHandler(r.Context(), campaignID, r.PathValue("address"), requestIndex)
	if err != nil {
		writeEscrowDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAccountBalance(w http.ResponseWriter, r *http.Request) {
	resp, err := s.escrow.Handler.AccountBalanceHandler(r.Context(), r.PathValue("address"))
	if err != nil {
		writeEscrowDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := escrowhttp.ListEventsRequest{
		Actor:     query.Get("actor"),
		EventType: query.Get("event_type"),
	}
	if raw := query.Get("campaign_id"); raw != "" {
		campaignID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeEscrowError(w, http.StatusBadRequest, "invalid_campaign_id", "campaign_id must be an integer")
			return
		}
		req.CampaignID = &campaignID
	}
	if raw := query.Get("after_sequence"); raw != "" {
		after, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeEscrowError(w, http.StatusBadRequest, "invalid_after_sequence", "after_sequence must be an integer")
			return
		}
		req.AfterSequence = after
	}
	limit, ok := queryInt(w, query.Get("limit"), "limit")
	if !ok {
		return
	}
	req.Limit = limit

	resp, err := s.escrow.Handler.ListEventsHandler(r.Context(), req)
	if err != nil {
		writeEscrowDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func requireCaller(w http.ResponseWriter, r *http.Request) (string, bool) {
	caller := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if caller == "" {
		writeEscrowError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return "", false
	}
	return caller, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		writeEscrowError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return false
	}
	return true
}

func pathCampaignID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	campaignID, err := strconv.ParseInt(r.PathValue("campaign_id"), 10, 64)
	if err != nil {
		writeEscrowError(w, http.StatusBadRequest, "invalid_campaign_id", "campaign_id must be an integer")
		return 0, false
	}
	return campaignID, true
}

func pathRequest(w http.ResponseWriter, r *http.Request) (int64, int, bool) {
	campaignID, ok := pathCampaignID(w, r)
	if !ok {
		return 0, 0, false
	}
	index, err := strconv.Atoi(r.PathValue("request_index"))
	if err != nil {
		writeEscrowError(w, http.StatusBadRequest, "invalid_request_index", "request_index must be an integer")
		return 0, 0, false
	}
	return campaignID, index, true
}

func queryInt(w http.ResponseWriter, raw string, name string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		writeEscrowError(w, http.StatusBadRequest, "invalid_"+name, name+" must be an integer")
		return 0, false
	}
	return value, true
}

func createdStatus(replayed bool) int {
	if replayed {
		return http.StatusOK
	}
	return http.StatusCreated
}

func writeEscrowDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, escrowerrors.ErrIdempotencyKeyConflict):
		writeEscrowError(w, http.StatusConflict, "idempotency_conflict", err.Error())
	case errors.Is(err, escrowerrors.ErrInvalidListFilter):
		writeEscrowError(w, http.StatusBadRequest, "invalid_list_filter", err.Error())
	case errors.Is(err, escrowerrors.ErrInvalidArgument):
		writeEscrowError(w, http.StatusBadRequest, "invalid_argument", err.Error())
	case errors.Is(err, escrowerrors.ErrCampaignNotFound):
		writeEscrowError(w, http.StatusNotFound, "campaign_not_found", err.Error())
	case errors.Is(err, escrowerrors.ErrRequestNotFound):
		writeEscrowError(w, http.StatusNotFound, "request_not_found", err.Error())
	case errors.Is(err, escrowerrors.ErrNotFound):
		writeEscrowError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, escrowerrors.ErrUnauthorized):
		writeEscrowError(w, http.StatusForbidden, "unauthorized", err.Error())
	case errors.Is(err, escrowerrors.ErrAlreadyVoted):
		writeEscrowError(w, http.StatusConflict, "already_voted", err.Error())
	case errors.Is(err, escrowerrors.ErrAlreadyFinalized):
		writeEscrowError(w, http.StatusConflict, "already_finalized", err.Error())
	case errors.Is(err, escrowerrors.ErrQuorumNotMet):
		writeEscrowError(w, http.StatusUnprocessableEntity, "quorum_not_met", err.Error())
	case errors.Is(err, escrowerrors.ErrInsufficientFunds):
		writeEscrowError(w, http.StatusUnprocessableEntity, "insufficient_funds", err.Error())
	default:
		writeEscrowError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeEscrowError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, escrowhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
