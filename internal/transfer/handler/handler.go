// Package handler exposes the transfer protocol over HTTP. It decodes
// requests, delegates to the transfer service, and translates domain errors
// to JSON responses; no custody logic lives here.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"medtrace/internal/platform/metrics"
	"medtrace/internal/platform/middleware"
	transferModels "medtrace/internal/transfer/models"
	"medtrace/internal/transfer/service"
	"medtrace/internal/transfer/store"
	id "medtrace/pkg/domain"
	dErrors "medtrace/pkg/domain-errors"
)

// Service defines the interface for transfer operations.
type Service interface {
	Create(ctx context.Context, in service.CreateInput) (*service.CreateResult, error)
	Pickup(ctx context.Context, transferID id.TransferID, in service.PickupInput) (*service.PickupResult, error)
	Deliver(ctx context.Context, transferID id.TransferID, in service.DeliveryInput) (*service.DeliveryResult, error)
	Get(ctx context.Context, transferID id.TransferID) (*service.Detail, error)
	Verify(ctx context.Context, transferID id.TransferID) (*service.Detail, error)
	List(ctx context.Context, filter store.Filter) (*service.ListResult, error)
	Pending(ctx context.Context) (*service.PendingResult, error)
	Anomalous(ctx context.Context) ([]service.Detail, error)
}

// Handler handles transfer endpoints.
type Handler struct {
	logger    *slog.Logger
	transfers Service
	metrics   *metrics.Metrics
}

// New creates a new transfer Handler.
func New(transfers Service, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		logger:    logger,
		transfers: transfers,
		metrics:   m,
	}
}

// Register registers the transfer routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	tr := chi.NewRouter()
	tr.Use(middleware.Recovery(h.logger))
	tr.Use(middleware.RequestID)
	tr.Use(middleware.Logger(h.logger))
	tr.Use(middleware.Timeout(30 * time.Second))
	tr.Use(middleware.ContentTypeJSON)
	tr.Use(middleware.Latency(h.metrics))

	tr.Post("/transfers", h.handleCreate)
	tr.Get("/transfers", h.handleList)
	tr.Get("/transfers/pending/list", h.handlePending)
	tr.Get("/transfers/anomalies/list", h.handleAnomalies)
	tr.Get("/transfers/{transferID}", h.handleGet)
	tr.Get("/transfers/{transferID}/verify", h.handleVerify)
	tr.Post("/transfers/{transferID}/pickup", h.handlePickup)
	tr.Post("/transfers/{transferID}/deliver", h.handleDeliver)

	r.Mount("/", tr)
}

// handleCreate registers a new transfer with sender-scanned items.
func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid create transfer request",
			"request_id", requestID,
			"error", err.Error(),
		)
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.transfers.Create(ctx, req.toInput())
	if err != nil {
		h.logDomainError(ctx, "failed to create transfer", requestID, err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createResponse{
		Transfer:        result.Transfer,
		Items:           result.Items,
		SenderSignature: result.SenderDigest,
		QRCodes:         result.QRCodes,
	})
}

// handlePickup records the transporter leg of the custody chain.
func (h *Handler) handlePickup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	transferID, err := id.ParseTransferID(chi.URLParam(r, "transferID"))
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid transfer id"))
		return
	}

	var req pickupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid pickup request",
			"request_id", requestID,
			"error", err.Error(),
		)
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.transfers.Pickup(ctx, transferID, req.toInput())
	if err != nil {
		h.logDomainError(ctx, "failed to record pickup", requestID, err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pickupResponse{
		Transfer:             result.Transfer,
		TransporterSignature: result.TransporterDigest,
	})
}

// handleDeliver records the receiver leg and settles the verdict.
func (h *Handler) handleDeliver(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	transferID, err := id.ParseTransferID(chi.URLParam(r, "transferID"))
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid transfer id"))
		return
	}

	var req deliverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid delivery request",
			"request_id", requestID,
			"error", err.Error(),
		)
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.transfers.Deliver(ctx, transferID, req.toInput())
	if err != nil {
		h.logDomainError(ctx, "failed to record delivery", requestID, err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, detailResponse{
		Transfer:     result.Transfer,
		Items:        result.Items,
		Verification: result.Verdict,
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	h.respondDetail(w, r, h.transfers.Get)
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	h.respondDetail(w, r, h.transfers.Verify)
}

// respondDetail serves both the detail and verify endpoints; they differ only
// in route, not in shape.
func (h *Handler) respondDetail(w http.ResponseWriter, r *http.Request, fetch func(context.Context, id.TransferID) (*service.Detail, error)) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	transferID, err := id.ParseTransferID(chi.URLParam(r, "transferID"))
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid transfer id"))
		return
	}

	detail, err := fetch(ctx, transferID)
	if err != nil {
		h.logDomainError(ctx, "failed to load transfer", requestID, err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, detailResponse{
		Transfer:     detail.Transfer,
		Items:        detail.Items,
		Verification: detail.Verdict,
	})
}

// handleList returns a filtered page of transfers plus collection counts.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	filter, err := filterFromQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.transfers.List(ctx, filter)
	if err != nil {
		h.logDomainError(ctx, "failed to list transfers", requestID, err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse{
		Transfers: result.Transfers,
		Count:     len(result.Transfers),
		Summary:   result.Summary,
	})
}

// handlePending returns non-terminal transfers with their stage-timeout alerts.
func (h *Handler) handlePending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	result, err := h.transfers.Pending(ctx)
	if err != nil {
		h.logDomainError(ctx, "failed to list pending transfers", requestID, err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pendingResponse{
		Transfers: result.Transfers,
		Count:     len(result.Transfers),
		Alerts:    result.Alerts,
	})
}

// handleAnomalies returns disputed transfers with their recomputed verdicts.
func (h *Handler) handleAnomalies(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	details, err := h.transfers.Anomalous(ctx)
	if err != nil {
		h.logDomainError(ctx, "failed to list anomalous transfers", requestID, err)
		writeError(w, err)
		return
	}

	items := make([]detailResponse, 0, len(details))
	for _, d := range details {
		items = append(items, detailResponse{
			Transfer:     d.Transfer,
			Items:        d.Items,
			Verification: d.Verdict,
		})
	}
	writeJSON(w, http.StatusOK, anomaliesResponse{
		Transfers: items,
		Count:     len(items),
	})
}

// logDomainError logs at warn for caller mistakes and at error for everything
// else. The response itself is written by writeError from the original error.
func (h *Handler) logDomainError(ctx context.Context, msg, requestID string, err error) {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeBadRequest, dErrors.CodeNotFound, dErrors.CodeConflict, dErrors.CodeInvalidState:
		h.logger.WarnContext(ctx, msg, "request_id", requestID, "error", err.Error())
	default:
		h.logger.ErrorContext(ctx, msg, "request_id", requestID, "error", err.Error())
	}
}

func filterFromQuery(r *http.Request) (store.Filter, error) {
	q := r.URL.Query()
	filter := store.Filter{
		FromDistrict: id.DistrictID(q.Get("from_district")),
		ToDistrict:   id.DistrictID(q.Get("to_district")),
	}
	if s := q.Get("status"); s != "" {
		filter.Status = transferModels.Status(s)
		if !filter.Status.Valid() {
			return store.Filter{}, dErrors.Newf(dErrors.CodeBadRequest, "unknown status %q", s)
		}
	}
	if v := q.Get("has_discrepancy"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return store.Filter{}, dErrors.New(dErrors.CodeBadRequest, "has_discrepancy must be a boolean")
		}
		filter.HasDiscrepancy = &b
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return store.Filter{}, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer")
		}
		filter.Limit = n
	}
	return filter, nil
}
