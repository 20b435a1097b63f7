package handler

import (
	"time"

	"medtrace/internal/transfer/models"
	"medtrace/internal/transfer/service"
	"medtrace/internal/transfer/store"
	id "medtrace/pkg/domain"
)

// createRequest is the sender's declaration. Items are optional; the service
// synthesizes a single full-quantity batch when none are listed.
type createRequest struct {
	MedicineID   string        `json:"medicine_id"`
	Quantity     int           `json:"quantity"`
	FromDistrict string        `json:"from_district_id"`
	ToDistrict   string        `json:"to_district_id"`
	Priority     string        `json:"priority,omitempty"`
	CreatedBy    string        `json:"created_by"`
	SenderNotes  string        `json:"sender_notes,omitempty"`
	Items        []itemRequest `json:"items,omitempty"`
	// PhotoEvidence is base64 on the wire per encoding/json []byte rules.
	PhotoEvidence []byte `json:"photo_evidence,omitempty"`
}

type itemRequest struct {
	BatchID    string     `json:"batch_id"`
	Quantity   int        `json:"quantity"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`
}

func (r createRequest) toInput() service.CreateInput {
	in := service.CreateInput{
		MedicineID:    id.MedicineID(r.MedicineID),
		Quantity:      r.Quantity,
		FromDistrict:  id.DistrictID(r.FromDistrict),
		ToDistrict:    id.DistrictID(r.ToDistrict),
		Priority:      models.Priority(r.Priority),
		CreatedBy:     r.CreatedBy,
		SenderNotes:   r.SenderNotes,
		PhotoEvidence: r.PhotoEvidence,
	}
	for _, item := range r.Items {
		in.Items = append(in.Items, service.ItemInput{
			BatchID:    item.BatchID,
			Quantity:   item.Quantity,
			ExpiryDate: item.ExpiryDate,
		})
	}
	return in
}

type pickupRequest struct {
	TransporterID string           `json:"transporter_id"`
	Location      *models.GeoPoint `json:"location,omitempty"`
}

func (r pickupRequest) toInput() service.PickupInput {
	return service.PickupInput{
		TransporterID: r.TransporterID,
		Location:      r.Location,
	}
}

// deliverRequest is the receiver's confirmation. ItemConditions maps batch QR
// codes to conditions; unlisted scanned items default to good.
type deliverRequest struct {
	ReceiverID       string            `json:"receiver_id"`
	ReceivedQuantity int               `json:"received_quantity"`
	Location         *models.GeoPoint  `json:"location,omitempty"`
	ReceiverNotes    string            `json:"receiver_notes,omitempty"`
	ItemConditions   map[string]string `json:"item_conditions,omitempty"`
}

func (r deliverRequest) toInput() service.DeliveryInput {
	in := service.DeliveryInput{
		ReceiverID:       r.ReceiverID,
		ReceivedQuantity: r.ReceivedQuantity,
		Location:         r.Location,
		ReceiverNotes:    r.ReceiverNotes,
	}
	if len(r.ItemConditions) > 0 {
		in.ItemConditions = make(map[string]models.ItemCondition, len(r.ItemConditions))
		for qr, condition := range r.ItemConditions {
			in.ItemConditions[qr] = models.ItemCondition(condition)
		}
	}
	return in
}

type createResponse struct {
	Transfer        *models.Transfer   `json:"transfer"`
	Items           []models.BatchItem `json:"items"`
	SenderSignature string             `json:"sender_signature"`
	QRCodes         []string           `json:"qr_codes"`
}

type pickupResponse struct {
	Transfer             *models.Transfer `json:"transfer"`
	TransporterSignature string           `json:"transporter_signature"`
}

// detailResponse serves delivery, detail, and verify responses alike: the
// record, its items, and the current verdict.
type detailResponse struct {
	Transfer     *models.Transfer           `json:"transfer"`
	Items        []models.BatchItem         `json:"items"`
	Verification models.VerificationVerdict `json:"verification"`
}

type listResponse struct {
	Transfers []models.Transfer `json:"transfers"`
	Count     int               `json:"count"`
	Summary   store.Summary     `json:"summary"`
}

type pendingResponse struct {
	Transfers []models.Transfer     `json:"transfers"`
	Count     int                   `json:"count"`
	Alerts    []models.PendingAlert `json:"alerts"`
}

type anomaliesResponse struct {
	Transfers []detailResponse `json:"transfers"`
	Count     int              `json:"count"`
}
