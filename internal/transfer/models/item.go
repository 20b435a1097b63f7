package models

import (
	"time"

	id "medtrace/pkg/domain"
)

// ItemCondition is the receiver's assessment of a batch item on receipt.
type ItemCondition string

const (
	ConditionGood    ItemCondition = "good"
	ConditionDamaged ItemCondition = "damaged"
	ConditionExpired ItemCondition = "expired"
)

// Valid reports whether c is a known condition value.
func (c ItemCondition) Valid() bool {
	switch c {
	case ConditionGood, ConditionDamaged, ConditionExpired:
		return true
	}
	return false
}

// BatchItem is one physically scannable sub-unit of a transfer. Items are
// created atomically with the transfer and never deleted; receiver-side
// fields are set only during the delivery action.
type BatchItem struct {
	TransferID  id.TransferID `json:"transfer_id"`
	BatchQRCode string        `json:"batch_qr_code"`
	BatchID     string        `json:"batch_id"`
	Quantity    int           `json:"quantity"`
	ExpiryDate  *time.Time    `json:"expiry_date,omitempty"`

	ScannedAtSender bool       `json:"scanned_at_sender"`
	SenderScanTime  *time.Time `json:"sender_scan_time,omitempty"`

	ScannedAtReceiver bool       `json:"scanned_at_receiver"`
	ReceiverScanTime  *time.Time `json:"receiver_scan_time,omitempty"`

	ConditionOnReceipt ItemCondition `json:"condition_on_receipt,omitempty"`
}

// NewBatchItem builds an item in the sender-scanned state; creation implies
// the sender scanned the batch while packing it.
func NewBatchItem(transferID id.TransferID, qrCode, batchID string, quantity int, expiry *time.Time, now time.Time) BatchItem {
	scanTime := now
	return BatchItem{
		TransferID:      transferID,
		BatchQRCode:     qrCode,
		BatchID:         batchID,
		Quantity:        quantity,
		ExpiryDate:      expiry,
		ScannedAtSender: true,
		SenderScanTime:  &scanTime,
	}
}

// MarkReceiverScanned records the receiver-side scan during delivery.
func (b *BatchItem) MarkReceiverScanned(condition ItemCondition, now time.Time) {
	scanTime := now
	b.ScannedAtReceiver = true
	b.ReceiverScanTime = &scanTime
	if condition == "" {
		condition = ConditionGood
	}
	b.ConditionOnReceipt = condition
}

// DefaultBatchID names the synthetic item that covers the full declared
// quantity when the sender provides no explicit batch list.
func DefaultBatchID(now time.Time) string {
	return "BATCH-" + now.Format("20060102150405")
}
