package service

import (
	"time"

	"medtrace/internal/transfer/models"
	"medtrace/internal/transfer/store"
	id "medtrace/pkg/domain"
)

// ItemInput describes one explicit batch in a creation request.
type ItemInput struct {
	BatchID    string
	Quantity   int
	ExpiryDate *time.Time
}

// CreateInput carries everything the sender declares at creation.
type CreateInput struct {
	MedicineID   id.MedicineID
	Quantity     int
	FromDistrict id.DistrictID
	ToDistrict   id.DistrictID
	Priority     models.Priority
	CreatedBy    string
	SenderNotes  string
	Items        []ItemInput
	// PhotoEvidence, when present, is digested into the sender signature.
	PhotoEvidence []byte
}

// PickupInput carries the transporter's acknowledgement.
type PickupInput struct {
	TransporterID string
	Location      *models.GeoPoint
}

// DeliveryInput carries the receiver's confirmation. ItemConditions maps
// batch QR codes to condition overrides; unlisted items default to good.
type DeliveryInput struct {
	ReceiverID       string
	ReceivedQuantity int
	Location         *models.GeoPoint
	ReceiverNotes    string
	ItemConditions   map[string]models.ItemCondition
}

// CreateResult is returned from Create: the persisted aggregate plus the
// sender digest and QR codes the sender prints.
type CreateResult struct {
	Transfer     *models.Transfer
	Items        []models.BatchItem
	SenderDigest string
	QRCodes      []string
}

// PickupResult is returned from Pickup.
type PickupResult struct {
	Transfer          *models.Transfer
	TransporterDigest string
}

// DeliveryResult is returned from Deliver with the delivery-time verdict.
type DeliveryResult struct {
	Transfer *models.Transfer
	Items    []models.BatchItem
	Verdict  models.VerificationVerdict
}

// Detail is a transfer snapshot with a live (recomputed) verdict.
type Detail struct {
	Transfer *models.Transfer
	Items    []models.BatchItem
	Verdict  models.VerificationVerdict
}

// ListResult pairs a filtered page with collection-wide summary counts.
type ListResult struct {
	Transfers []models.Transfer
	Summary   store.Summary
}

// PendingResult lists transfers awaiting action plus monitor alerts.
type PendingResult struct {
	Transfers []models.Transfer
	Alerts    []models.PendingAlert
}
