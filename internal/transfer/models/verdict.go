package models

import (
	id "medtrace/pkg/domain"
)

// AnomalyKind enumerates everything the verification engine and the pending
// monitor can flag.
type AnomalyKind string

const (
	AnomalySignatureMissing       AnomalyKind = "signature_missing"
	AnomalyQuantityMismatch       AnomalyKind = "quantity_mismatch"
	AnomalyIncompleteSenderScan   AnomalyKind = "incomplete_sender_scan"
	AnomalyIncompleteReceiverScan AnomalyKind = "incomplete_receiver_scan"
	AnomalyLatePickup             AnomalyKind = "late_pickup"
	AnomalyExtendedTransit        AnomalyKind = "extended_transit"

	// Monitor-only alert kinds.
	AnomalyStalledTransfer AnomalyKind = "stalled_transfer"
	AnomalyOverdueDelivery AnomalyKind = "overdue_delivery"
)

// Severity classifies how strongly an anomaly indicts the transfer. Critical
// anomalies dispute a delivery; warnings are surfaced but do not invalidate.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
)

// AnomalyEvent is one classified finding. The numeric payloads are pointers
// so JSON omits whichever a given kind does not carry.
type AnomalyEvent struct {
	Kind     AnomalyKind `json:"type"`
	Severity Severity    `json:"severity"`
	Message  string      `json:"message"`

	MissingUnits  *int     `json:"missing_units,omitempty"`
	AffectedItems *int     `json:"affected_items,omitempty"`
	ElapsedHours  *float64 `json:"elapsed_hours,omitempty"`
}

// Party identifies one of the three custody roles in the signature chain.
type Party string

const (
	PartySender      Party = "sender"
	PartyTransporter Party = "transporter"
	PartyReceiver    Party = "receiver"
)

// VerificationVerdict is the ephemeral result of one verification run. It is
// recomputed from scratch on every call and never persisted as source of
// truth; only Digest and Valid land on the transfer record at delivery time.
type VerificationVerdict struct {
	Valid         bool           `json:"is_valid"`
	ChainComplete bool           `json:"chain_complete"`
	Signatures    map[Party]bool `json:"signatures"`
	Anomalies     []AnomalyEvent `json:"anomalies"`
	Digest        string         `json:"verification_hash"`
}

// Critical returns the critical-severity anomalies in evaluation order.
func (v VerificationVerdict) Critical() []AnomalyEvent {
	var out []AnomalyEvent
	for _, a := range v.Anomalies {
		if a.Severity == SeverityCritical {
			out = append(out, a)
		}
	}
	return out
}

// PendingAlert is one monitor finding about a transfer that has not failed
// yet but is on track to.
type PendingAlert struct {
	TransferID   id.TransferID `json:"transfer_id"`
	Kind         AnomalyKind   `json:"type"`
	Severity     Severity      `json:"severity"`
	Message      string        `json:"message"`
	FromDistrict id.DistrictID `json:"from_district"`
	ToDistrict   id.DistrictID `json:"to_district"`
	ElapsedHours float64       `json:"elapsed_hours"`
}
