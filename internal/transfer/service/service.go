// Package service orchestrates the transfer verification protocol: the three
// custody actions mutating the aggregate through its state machine, plus the
// read operations that attach live verdicts.
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	catalogmodels "medtrace/internal/catalog/models"
	"medtrace/internal/transfer/metrics"
	"medtrace/internal/transfer/store"
	id "medtrace/pkg/domain"
	dErrors "medtrace/pkg/domain-errors"
	"medtrace/pkg/platform/audit"
	"medtrace/pkg/platform/sentinel"
)

// Catalog is the external district/medicine lookup the protocol resolves
// references against before creating a transfer.
type Catalog interface {
	ResolveDistrict(ctx context.Context, districtID id.DistrictID) (*catalogmodels.District, error)
	ResolveMedicine(ctx context.Context, medicineID id.MedicineID) (*catalogmodels.Medicine, error)
}

// Service implements the protocol orchestrator. It holds no mutable state of
// its own; everything shared lives behind the store.
type Service struct {
	transfers store.Store
	catalog   Catalog
	publisher audit.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	tracer    trace.Tracer
}

// Option configures optional collaborators.
type Option func(*Service)

// WithPublisher attaches a custody-trail publisher.
func WithPublisher(p audit.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithMetrics attaches domain metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs a transfer service.
func New(transfers store.Store, catalog Catalog, logger *slog.Logger, opts ...Option) (*Service, error) {
	if transfers == nil {
		return nil, errors.New("transfer store is required")
	}
	if catalog == nil {
		return nil, errors.New("catalog is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		transfers: transfers,
		catalog:   catalog,
		logger:    logger,
		tracer:    otel.Tracer("medtrace/transfer"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// wrapStoreErr translates store sentinel errors into coded domain errors.
func wrapStoreErr(err error, notFoundMsg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, notFoundMsg)
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "transfer already exists")
	default:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "transfer store unavailable")
	}
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		// The trail is evidence, not a precondition: log and move on.
		s.logger.WarnContext(ctx, "failed to publish custody event",
			"transfer_id", event.TransferID,
			"action", event.Action,
			"error", err.Error(),
		)
	}
}
