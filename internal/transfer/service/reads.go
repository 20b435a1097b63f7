package service

import (
	"context"

	"medtrace/internal/transfer/store"
	"medtrace/internal/transfer/verify"
	id "medtrace/pkg/domain"
	"medtrace/pkg/requestcontext"
)

// Get returns a transfer with a freshly recomputed verdict. Reads take no
// lock: a reader simply reflects state as of its own snapshot.
func (s *Service) Get(ctx context.Context, transferID id.TransferID) (*Detail, error) {
	t, items, err := s.transfers.Get(ctx, transferID)
	if err != nil {
		return nil, wrapStoreErr(err, "transfer "+string(transferID)+" not found")
	}
	return &Detail{Transfer: t, Items: items, Verdict: verify.Verify(t, items)}, nil
}

// Verify recomputes the verdict on demand without touching the record.
func (s *Service) Verify(ctx context.Context, transferID id.TransferID) (*Detail, error) {
	return s.Get(ctx, transferID)
}

// List returns a filtered page plus collection-wide summary counts.
func (s *Service) List(ctx context.Context, filter store.Filter) (*ListResult, error) {
	transfers, err := s.transfers.List(ctx, filter)
	if err != nil {
		return nil, wrapStoreErr(err, "transfers not found")
	}
	summary, err := s.transfers.Summary(ctx)
	if err != nil {
		return nil, wrapStoreErr(err, "transfers not found")
	}
	return &ListResult{Transfers: transfers, Summary: summary}, nil
}

// Pending lists transfers awaiting action together with the monitor's alerts
// for them, evaluated against the request-scoped clock.
func (s *Service) Pending(ctx context.Context) (*PendingResult, error) {
	transfers, err := s.transfers.ListPending(ctx)
	if err != nil {
		return nil, wrapStoreErr(err, "transfers not found")
	}
	alerts := verify.DetectPending(transfers, requestcontext.Now(ctx))
	return &PendingResult{Transfers: transfers, Alerts: alerts}, nil
}

// Anomalous returns every discrepancy-flagged transfer with its recomputed
// verdict so operators can see why each one is flagged.
func (s *Service) Anomalous(ctx context.Context) ([]Detail, error) {
	flagged := true
	transfers, err := s.transfers.List(ctx, store.Filter{HasDiscrepancy: &flagged, Limit: store.MaxListLimit})
	if err != nil {
		return nil, wrapStoreErr(err, "transfers not found")
	}
	details := make([]Detail, 0, len(transfers))
	for i := range transfers {
		t, items, err := s.transfers.Get(ctx, transfers[i].ID)
		if err != nil {
			return nil, wrapStoreErr(err, "transfer "+string(transfers[i].ID)+" not found")
		}
		details = append(details, Detail{Transfer: t, Items: items, Verdict: verify.Verify(t, items)})
	}
	return details, nil
}
