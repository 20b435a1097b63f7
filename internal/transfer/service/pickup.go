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

// Pickup runs the second protocol step: the transporter acknowledges taking
// custody. The precondition check and the mutation execute atomically inside
// the store, so concurrent pickups on one transfer produce exactly one
// success.
func (s *Service) Pickup(ctx context.Context, transferID id.TransferID, in PickupInput) (*PickupResult, error) {
	ctx, span := s.tracer.Start(ctx, "transfer.pickup")
	defer span.End()

	if in.TransporterID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "transporter id is required")
	}

	now := requestcontext.Now(ctx)
	var transporterDigest string

	t, _, err := s.transfers.Execute(ctx, transferID,
		func(t *models.Transfer) error {
			return t.CanPickup()
		},
		func(t *models.Transfer, items []models.BatchItem) error {
			signed := make([]digest.SignedItem, 0, len(items))
			for _, item := range items {
				signed = append(signed, digest.SignedItem{QR: item.BatchQRCode, Qty: item.Quantity})
			}
			transporterDigest = digest.Sign(in.TransporterID, t.ID, signed, now, "")
			t.ApplyPickup(in.TransporterID, transporterDigest, in.Location, now, now.Add(verify.MaxTransit))
			return nil
		},
	)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvalidState) {
			return nil, err
		}
		return nil, wrapStoreErr(err, "transfer "+string(transferID)+" not found")
	}

	s.metrics.IncPickupsRecorded()
	s.emitAudit(ctx, audit.Event{
		Timestamp:    now,
		TransferID:   t.ID,
		Action:       audit.ActionPickupRecorded,
		Actor:        in.TransporterID,
		FromDistrict: t.FromDistrict,
		ToDistrict:   t.ToDistrict,
		RequestID:    requestcontext.RequestID(ctx),
	})
	s.logger.InfoContext(ctx, "pickup recorded",
		"transfer_id", t.ID,
		"transporter_id", in.TransporterID,
		"expected_delivery_at", t.ExpectedDeliveryAt,
	)

	return &PickupResult{Transfer: t, TransporterDigest: transporterDigest}, nil
}
