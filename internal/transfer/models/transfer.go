// Package models defines the transfer aggregate: the Transfer record, its
// BatchItems, and the rules governing valid mutation. Services mutate
// transfers only through the guard/apply methods here so the state machine
// stays in one place.
package models

import (
	"time"

	id "medtrace/pkg/domain"
	dErrors "medtrace/pkg/domain-errors"
)

// Status is the transfer state machine position.
// created → picked_up → delivered → {verified | disputed}.
type Status string

const (
	StatusCreated  Status = "created"
	StatusPickedUp Status = "picked_up"
	// StatusDelivered is transient: delivery lands in verified or disputed
	// within the same action, but readers may observe it mid-transition.
	StatusDelivered Status = "delivered"
	StatusVerified  Status = "verified"
	StatusDisputed  Status = "disputed"
)

// Terminal reports whether no further custody action can change the transfer.
func (s Status) Terminal() bool {
	return s == StatusVerified || s == StatusDisputed
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusCreated, StatusPickedUp, StatusDelivered, StatusVerified, StatusDisputed:
		return true
	}
	return false
}

// Priority ranks how urgently a transfer should move.
type Priority string

const (
	PriorityNormal   Priority = "normal"
	PriorityUrgent   Priority = "urgent"
	PriorityCritical Priority = "critical"
)

// Valid reports whether p is a known priority value.
func (p Priority) Valid() bool {
	switch p {
	case PriorityNormal, PriorityUrgent, PriorityCritical:
		return true
	}
	return false
}

// GeoPoint is a WGS84 coordinate captured at a custody handoff.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Transfer is one shipment of a single medicine between two districts. Fields
// are grouped by the custody stage that sets them; a field belonging to a
// later stage is never set before the transfer reaches that stage.
type Transfer struct {
	ID           id.TransferID `json:"id"`
	MedicineID   id.MedicineID `json:"medicine_id"`
	Quantity     int           `json:"quantity"`
	FromDistrict id.DistrictID `json:"from_district_id"`
	ToDistrict   id.DistrictID `json:"to_district_id"`
	Status       Status        `json:"status"`
	Priority     Priority      `json:"priority"`

	// Stage 1: creation (sender).
	CreatedAt    time.Time `json:"created_at"`
	CreatedBy    string    `json:"created_by"`
	SenderDigest string    `json:"sender_signature"`
	SenderNotes  string    `json:"sender_notes,omitempty"`

	// Stage 2: pickup (transporter).
	PickupAt           *time.Time `json:"pickup_at,omitempty"`
	TransporterID      string     `json:"transporter_id,omitempty"`
	TransporterDigest  string     `json:"transporter_signature,omitempty"`
	PickupLocation     *GeoPoint  `json:"pickup_location,omitempty"`
	ExpectedDeliveryAt *time.Time `json:"expected_delivery_at,omitempty"`

	// Stage 3: delivery (receiver).
	DeliveredAt      *time.Time `json:"delivered_at,omitempty"`
	ReceiverID       string     `json:"receiver_id,omitempty"`
	ReceiverDigest   string     `json:"receiver_signature,omitempty"`
	ReceivedQuantity *int       `json:"received_quantity,omitempty"`
	DeliveryLocation *GeoPoint  `json:"delivery_location,omitempty"`
	ReceiverNotes    string     `json:"receiver_notes,omitempty"`

	// Verification outcome, persisted at delivery time. The verdict itself is
	// always recomputed on read; these fields are the durable trace of the
	// delivery-time run.
	VerificationDigest string     `json:"verification_hash,omitempty"`
	Verified           bool       `json:"is_verified"`
	VerifiedAt         *time.Time `json:"verified_at,omitempty"`

	HasDiscrepancy   bool        `json:"has_discrepancy"`
	DiscrepancyKind  AnomalyKind `json:"discrepancy_type,omitempty"`
	DiscrepancyNotes string      `json:"discrepancy_notes,omitempty"`
}

// NewTransfer validates creation invariants and builds a transfer in the
// initial state. The sender digest is attached by the service once items have
// QR codes.
func NewTransfer(
	transferID id.TransferID,
	medicineID id.MedicineID,
	quantity int,
	from, to id.DistrictID,
	priority Priority,
	createdBy string,
	senderNotes string,
	now time.Time,
) (*Transfer, error) {
	if quantity <= 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "quantity must be positive")
	}
	if from == "" || to == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "source and destination districts are required")
	}
	if from == to {
		return nil, dErrors.New(dErrors.CodeBadRequest, "source and destination districts must be different")
	}
	if medicineID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "medicine id is required")
	}
	if createdBy == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "creator id is required")
	}
	if priority == "" {
		priority = PriorityNormal
	}
	if !priority.Valid() {
		return nil, dErrors.Newf(dErrors.CodeBadRequest, "unknown priority %q", priority)
	}
	return &Transfer{
		ID:           transferID,
		MedicineID:   medicineID,
		Quantity:     quantity,
		FromDistrict: from,
		ToDistrict:   to,
		Status:       StatusCreated,
		Priority:     priority,
		CreatedAt:    now,
		CreatedBy:    createdBy,
		SenderNotes:  senderNotes,
	}, nil
}

// CanPickup checks the pickup precondition without mutating.
func (t *Transfer) CanPickup() error {
	if t.Status != StatusCreated {
		return dErrors.Newf(dErrors.CodeInvalidState,
			"transfer is in %q status, cannot pickup", t.Status)
	}
	return nil
}

// ApplyPickup records the transporter leg. Callers must have checked
// CanPickup under the store's transition lock.
func (t *Transfer) ApplyPickup(transporterID, transporterDigest string, loc *GeoPoint, pickupAt, expectedDeliveryAt time.Time) {
	t.Status = StatusPickedUp
	t.PickupAt = &pickupAt
	t.TransporterID = transporterID
	t.TransporterDigest = transporterDigest
	t.PickupLocation = loc
	t.ExpectedDeliveryAt = &expectedDeliveryAt
}

// CanDeliver checks the delivery precondition without mutating.
func (t *Transfer) CanDeliver() error {
	if t.Status != StatusPickedUp {
		return dErrors.Newf(dErrors.CodeInvalidState,
			"transfer is in %q status, cannot deliver", t.Status)
	}
	return nil
}

// ApplyDelivery records the receiver leg. The transfer sits in the transient
// delivered state until ApplyVerdict settles it.
func (t *Transfer) ApplyDelivery(receiverID, receiverDigest string, receivedQuantity int, loc *GeoPoint, notes string, deliveredAt time.Time) {
	t.Status = StatusDelivered
	t.DeliveredAt = &deliveredAt
	t.ReceiverID = receiverID
	t.ReceiverDigest = receiverDigest
	t.ReceivedQuantity = &receivedQuantity
	t.DeliveryLocation = loc
	t.ReceiverNotes = notes
}

// ApplyVerdict settles a delivered transfer into verified or disputed based
// on the delivery-time verification run.
func (t *Transfer) ApplyVerdict(v VerificationVerdict, now time.Time) {
	t.VerificationDigest = v.Digest
	t.Verified = v.Valid
	if v.Valid {
		verifiedAt := now
		t.VerifiedAt = &verifiedAt
	}

	critical := v.Critical()
	if len(critical) > 0 {
		t.HasDiscrepancy = true
		t.DiscrepancyKind = critical[0].Kind
		t.DiscrepancyNotes = joinMessages(critical)
		t.Status = StatusDisputed
		return
	}
	t.Status = StatusVerified
}

func joinMessages(anomalies []AnomalyEvent) string {
	out := ""
	for i, a := range anomalies {
		if i > 0 {
			out += "; "
		}
		out += a.Message
	}
	return out
}
