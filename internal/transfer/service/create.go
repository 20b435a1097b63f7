package service

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"medtrace/internal/transfer/digest"
	"medtrace/internal/transfer/models"
	dErrors "medtrace/pkg/domain-errors"
	"medtrace/pkg/platform/audit"
	"medtrace/pkg/platform/sentinel"
	"medtrace/pkg/requestcontext"
)

// Create runs the first protocol step: the sender declares a transfer. Both
// districts and the medicine must resolve in the catalog before anything is
// written; the transfer and its items are then persisted in one atomic write
// with the sender digest already attached.
func (s *Service) Create(ctx context.Context, in CreateInput) (*CreateResult, error) {
	ctx, span := s.tracer.Start(ctx, "transfer.create")
	defer span.End()

	now := requestcontext.Now(ctx)

	transferID := digest.NewTransferID()
	t, err := models.NewTransfer(
		transferID, in.MedicineID, in.Quantity,
		in.FromDistrict, in.ToDistrict,
		in.Priority, in.CreatedBy, in.SenderNotes, now,
	)
	if err != nil {
		return nil, err
	}
	for _, item := range in.Items {
		if item.Quantity <= 0 {
			return nil, dErrors.Newf(dErrors.CodeBadRequest, "item %q quantity must be positive", item.BatchID)
		}
	}

	if err := s.resolveReferences(ctx, in); err != nil {
		return nil, err
	}

	// Build items; zero explicit batches collapse into one synthetic default
	// item covering the full declared quantity.
	itemInputs := in.Items
	if len(itemInputs) == 0 {
		itemInputs = []ItemInput{{BatchID: models.DefaultBatchID(now), Quantity: in.Quantity}}
	}
	items := make([]models.BatchItem, 0, len(itemInputs))
	signed := make([]digest.SignedItem, 0, len(itemInputs))
	qrCodes := make([]string, 0, len(itemInputs))
	for i, item := range itemInputs {
		// Each item line hashes its own timestamp, so two lines carrying the
		// same batch id and quantity still get distinct QR codes.
		qr := digest.NewBatchQRCode(in.MedicineID, item.BatchID, item.Quantity, now.Add(time.Duration(i)))
		items = append(items, models.NewBatchItem(transferID, qr, item.BatchID, item.Quantity, item.ExpiryDate, now))
		signed = append(signed, digest.SignedItem{QR: qr, Qty: item.Quantity})
		qrCodes = append(qrCodes, qr)
	}

	photoDigest := ""
	if len(in.PhotoEvidence) > 0 {
		photoDigest = digest.DigestPhoto(in.PhotoEvidence)
	}
	t.SenderDigest = digest.Sign(in.CreatedBy, transferID, signed, now, photoDigest)

	if err := s.transfers.Create(ctx, t, items); err != nil {
		return nil, wrapStoreErr(err, "transfer not found")
	}

	s.metrics.IncTransfersCreated()
	s.emitAudit(ctx, audit.Event{
		Timestamp:    now,
		TransferID:   t.ID,
		Action:       audit.ActionTransferCreated,
		Actor:        in.CreatedBy,
		FromDistrict: t.FromDistrict,
		ToDistrict:   t.ToDistrict,
		RequestID:    requestcontext.RequestID(ctx),
	})
	s.logger.InfoContext(ctx, "transfer created",
		"transfer_id", t.ID,
		"medicine_id", t.MedicineID,
		"quantity", t.Quantity,
		"from_district", t.FromDistrict,
		"to_district", t.ToDistrict,
		"items", len(items),
	)

	return &CreateResult{
		Transfer:     t,
		Items:        items,
		SenderDigest: t.SenderDigest,
		QRCodes:      qrCodes,
	}, nil
}

// resolveReferences checks all three catalog references concurrently; the
// first failure cancels the rest.
func (s *Service) resolveReferences(ctx context.Context, in CreateInput) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.catalog.ResolveDistrict(ctx, in.FromDistrict)
		return wrapCatalogErr(err, "source district "+string(in.FromDistrict)+" not found")
	})
	g.Go(func() error {
		_, err := s.catalog.ResolveDistrict(ctx, in.ToDistrict)
		return wrapCatalogErr(err, "destination district "+string(in.ToDistrict)+" not found")
	})
	g.Go(func() error {
		_, err := s.catalog.ResolveMedicine(ctx, in.MedicineID)
		return wrapCatalogErr(err, "medicine "+string(in.MedicineID)+" not found")
	})
	return g.Wait()
}

func wrapCatalogErr(err error, notFoundMsg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, notFoundMsg)
	}
	return dErrors.Wrap(err, dErrors.CodeUnavailable, "catalog unavailable")
}
