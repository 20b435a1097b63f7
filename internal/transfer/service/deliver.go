package service

import (
	"context"

	"medtrace/internal/transfer/digest"
	"medtrace/internal/transfer/models"
	"medtrace/internal/transfer/verify"
	id "medtrace/pkg/domain"
	dErrors "medtrace/pkg/domain-errors"
	"medtrace/pkg/platform/audit"
	"medtrace/pkg/requestcontext"
)

// Deliver runs the final protocol step: the receiver confirms delivery, every
// item is receiver-scanned, the receiver digest is computed, and the
// delivery-time verification run settles the transfer into verified or
// disputed, all inside one atomic store transition.
func (s *Service) Deliver(ctx context.Context, transferID id.TransferID, in DeliveryInput) (*DeliveryResult, error) {
	ctx, span := s.tracer.Start(ctx, "transfer.deliver")
	defer span.End()

	if in.ReceiverID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "receiver id is required")
	}
	if in.ReceivedQuantity < 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "received quantity cannot be negative")
	}
	for qr, condition := range in.ItemConditions {
		if !condition.Valid() {
			return nil, dErrors.Newf(dErrors.CodeBadRequest, "unknown condition %q for item %s", condition, qr)
		}
	}

	now := requestcontext.Now(ctx)
	var verdict models.VerificationVerdict

	t, items, err := s.transfers.Execute(ctx, transferID,
		func(t *models.Transfer) error {
			return t.CanDeliver()
		},
		func(t *models.Transfer, items []models.BatchItem) error {
			signed := make([]digest.SignedItem, 0, len(items))
			for i := range items {
				items[i].MarkReceiverScanned(in.ItemConditions[items[i].BatchQRCode], now)
				signed = append(signed, digest.SignedItem{QR: items[i].BatchQRCode, Qty: items[i].Quantity})
			}
			receiverDigest := digest.Sign(in.ReceiverID, t.ID, signed, now, "")
			t.ApplyDelivery(in.ReceiverID, receiverDigest, in.ReceivedQuantity, in.Location, in.ReceiverNotes, now)

			verdict = verify.Verify(t, items)
			t.ApplyVerdict(verdict, now)
			return nil
		},
	)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvalidState) {
			return nil, err
		}
		return nil, wrapStoreErr(err, "transfer "+string(transferID)+" not found")
	}

	s.metrics.IncDeliveriesRecorded()
	for _, a := range verdict.Anomalies {
		s.metrics.IncAnomaly(string(a.Kind))
	}

	action := audit.ActionTransferVerified
	severity := ""
	reason := ""
	if t.Status == models.StatusDisputed {
		action = audit.ActionTransferDisputed
		severity = string(models.SeverityCritical)
		reason = t.DiscrepancyNotes
		s.metrics.IncTransfersDisputed()
	} else {
		s.metrics.IncTransfersVerified()
	}
	s.emitAudit(ctx, audit.Event{
		Timestamp:    now,
		TransferID:   t.ID,
		Action:       audit.ActionDeliveryRecorded,
		Actor:        in.ReceiverID,
		FromDistrict: t.FromDistrict,
		ToDistrict:   t.ToDistrict,
		RequestID:    requestcontext.RequestID(ctx),
	})
	s.emitAudit(ctx, audit.Event{
		Timestamp:    now,
		TransferID:   t.ID,
		Action:       action,
		Actor:        in.ReceiverID,
		FromDistrict: t.FromDistrict,
		ToDistrict:   t.ToDistrict,
		Severity:     severity,
		Reason:       reason,
		RequestID:    requestcontext.RequestID(ctx),
	})
	s.logger.InfoContext(ctx, "delivery recorded",
		"transfer_id", t.ID,
		"receiver_id", in.ReceiverID,
		"status", t.Status,
		"is_valid", verdict.Valid,
		"anomalies", len(verdict.Anomalies),
	)

	return &DeliveryResult{Transfer: t, Items: items, Verdict: verdict}, nil
}
