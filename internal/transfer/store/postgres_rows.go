package store

import (
	"context"
	"database/sql"
	"fmt"

	"medtrace/internal/transfer/models"
)

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransfer(sc rowScanner) (*models.Transfer, error) {
	var (
		t models.Transfer

		senderNotes, transporterID, transporterSig sql.NullString
		receiverID, receiverSig, receiverNotes     sql.NullString
		verificationHash, discKind, discNotes      sql.NullString
		pickupLat, pickupLng                       sql.NullFloat64
		deliveryLat, deliveryLng                   sql.NullFloat64
		receivedQty                                sql.NullInt64
		pickupAt, expectedAt, deliveredAt          sql.NullTime
		verifiedAt                                 sql.NullTime
	)

	err := sc.Scan(
		&t.ID, &t.MedicineID, &t.Quantity, &t.FromDistrict, &t.ToDistrict, &t.Status, &t.Priority,
		&t.CreatedAt, &t.CreatedBy, &t.SenderDigest, &senderNotes,
		&pickupAt, &transporterID, &transporterSig,
		&pickupLat, &pickupLng, &expectedAt,
		&deliveredAt, &receiverID, &receiverSig, &receivedQty,
		&deliveryLat, &deliveryLng, &receiverNotes,
		&verificationHash, &t.Verified, &verifiedAt,
		&t.HasDiscrepancy, &discKind, &discNotes,
	)
	if err != nil {
		return nil, err
	}

	t.SenderNotes = senderNotes.String
	t.TransporterID = transporterID.String
	t.TransporterDigest = transporterSig.String
	t.ReceiverID = receiverID.String
	t.ReceiverDigest = receiverSig.String
	t.ReceiverNotes = receiverNotes.String
	t.VerificationDigest = verificationHash.String
	t.DiscrepancyKind = models.AnomalyKind(discKind.String)
	t.DiscrepancyNotes = discNotes.String

	if pickupAt.Valid {
		t.PickupAt = &pickupAt.Time
	}
	if expectedAt.Valid {
		t.ExpectedDeliveryAt = &expectedAt.Time
	}
	if deliveredAt.Valid {
		t.DeliveredAt = &deliveredAt.Time
	}
	if verifiedAt.Valid {
		t.VerifiedAt = &verifiedAt.Time
	}
	if receivedQty.Valid {
		qty := int(receivedQty.Int64)
		t.ReceivedQuantity = &qty
	}
	if pickupLat.Valid && pickupLng.Valid {
		t.PickupLocation = &models.GeoPoint{Lat: pickupLat.Float64, Lng: pickupLng.Float64}
	}
	if deliveryLat.Valid && deliveryLng.Valid {
		t.DeliveryLocation = &models.GeoPoint{Lat: deliveryLat.Float64, Lng: deliveryLng.Float64}
	}
	return &t, nil
}

// execer covers *sql.DB and *sql.Tx for shared write helpers.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertTransfer(ctx context.Context, e execer, t *models.Transfer) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO transfers (`+transferColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7,
		        $8, $9, $10, $11,
		        $12, $13, $14,
		        $15, $16, $17,
		        $18, $19, $20, $21,
		        $22, $23, $24,
		        $25, $26, $27,
		        $28, $29, $30)
	`, transferArgs(t)...)
	if err != nil {
		return fmt.Errorf("insert transfer: %w", err)
	}
	return nil
}

func updateTransfer(ctx context.Context, e execer, t *models.Transfer) error {
	_, err := e.ExecContext(ctx, `
		UPDATE transfers SET
			status = $6, priority = $7,
			pickup_at = $12, transporter_id = $13, transporter_signature = $14,
			pickup_lat = $15, pickup_lng = $16, expected_delivery_at = $17,
			delivered_at = $18, receiver_id = $19, receiver_signature = $20, received_quantity = $21,
			delivery_lat = $22, delivery_lng = $23, receiver_notes = $24,
			verification_hash = $25, is_verified = $26, verified_at = $27,
			has_discrepancy = $28, discrepancy_type = $29, discrepancy_notes = $30
		WHERE id = $1
	`, transferArgs(t)...)
	if err != nil {
		return fmt.Errorf("update transfer: %w", err)
	}
	return nil
}

// transferArgs lays out the bind arguments in transferColumns order so insert
// and update stay in lockstep.
func transferArgs(t *models.Transfer) []any {
	var pickupLat, pickupLng, deliveryLat, deliveryLng any
	if t.PickupLocation != nil {
		pickupLat, pickupLng = t.PickupLocation.Lat, t.PickupLocation.Lng
	}
	if t.DeliveryLocation != nil {
		deliveryLat, deliveryLng = t.DeliveryLocation.Lat, t.DeliveryLocation.Lng
	}
	return []any{
		string(t.ID), string(t.MedicineID), t.Quantity, string(t.FromDistrict), string(t.ToDistrict),
		string(t.Status), string(t.Priority),
		t.CreatedAt, t.CreatedBy, t.SenderDigest, nullString(t.SenderNotes),
		t.PickupAt, nullString(t.TransporterID), nullString(t.TransporterDigest),
		pickupLat, pickupLng, t.ExpectedDeliveryAt,
		t.DeliveredAt, nullString(t.ReceiverID), nullString(t.ReceiverDigest), t.ReceivedQuantity,
		deliveryLat, deliveryLng, nullString(t.ReceiverNotes),
		nullString(t.VerificationDigest), t.Verified, t.VerifiedAt,
		t.HasDiscrepancy, nullString(string(t.DiscrepancyKind)), nullString(t.DiscrepancyNotes),
	}
}

func insertItem(ctx context.Context, e execer, item *models.BatchItem) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO transfer_items (
			transfer_id, batch_qr_code, batch_id, quantity, expiry_date,
			scanned_at_sender, sender_scan_time,
			scanned_at_receiver, receiver_scan_time, condition_on_receipt
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		string(item.TransferID), item.BatchQRCode, item.BatchID, item.Quantity, item.ExpiryDate,
		item.ScannedAtSender, item.SenderScanTime,
		item.ScannedAtReceiver, item.ReceiverScanTime, nullString(string(item.ConditionOnReceipt)),
	)
	if err != nil {
		return fmt.Errorf("insert transfer item: %w", err)
	}
	return nil
}

func updateItem(ctx context.Context, e execer, item *models.BatchItem) error {
	_, err := e.ExecContext(ctx, `
		UPDATE transfer_items SET
			scanned_at_receiver = $3, receiver_scan_time = $4, condition_on_receipt = $5
		WHERE transfer_id = $1 AND batch_qr_code = $2
	`,
		string(item.TransferID), item.BatchQRCode,
		item.ScannedAtReceiver, item.ReceiverScanTime, nullString(string(item.ConditionOnReceipt)),
	)
	if err != nil {
		return fmt.Errorf("update transfer item: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
