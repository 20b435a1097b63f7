// Package verify implements the verification engine: pure classification of a
// transfer snapshot into a verdict, plus the pending-anomaly scan used by the
// monitor. Nothing here mutates state or performs I/O, so verdicts can be
// recomputed at any time and from any number of callers.
package verify

import (
	"fmt"
	"strings"
	"time"

	"medtrace/internal/transfer/digest"
	"medtrace/internal/transfer/models"
)

// Timing thresholds shared by delivery-time verification and the pending
// monitor. The monitor applies them against "now"; the engine applies them
// against completed timestamp pairs.
const (
	// PickupDeadline is how long a transfer may wait for a transporter.
	PickupDeadline = 24 * time.Hour
	// MaxTransit is the longest acceptable pickup-to-delivery window. It also
	// fixes the expected-delivery estimate recorded at pickup.
	MaxTransit = 48 * time.Hour
)

// Verify classifies a transfer snapshot. All five checks run independently,
// with no short-circuiting, so a single verdict lists every problem at once.
// Calling Verify twice on the same snapshot yields an identical verdict.
func Verify(t *models.Transfer, items []models.BatchItem) models.VerificationVerdict {
	var anomalies []models.AnomalyEvent

	signatures := map[models.Party]bool{
		models.PartySender:      t.SenderDigest != "",
		models.PartyTransporter: t.TransporterDigest != "",
		models.PartyReceiver:    t.ReceiverDigest != "",
	}

	// Check 1: signature completeness.
	chainComplete := signatures[models.PartySender] &&
		signatures[models.PartyTransporter] &&
		signatures[models.PartyReceiver]
	if !chainComplete {
		var missing []string
		for _, p := range []models.Party{models.PartySender, models.PartyTransporter, models.PartyReceiver} {
			if !signatures[p] {
				missing = append(missing, string(p))
			}
		}
		anomalies = append(anomalies, models.AnomalyEvent{
			Kind:     models.AnomalySignatureMissing,
			Severity: models.SeverityCritical,
			Message:  "Missing signatures from: " + strings.Join(missing, ", "),
		})
	}

	// Check 2: quantity reconciliation.
	if t.ReceivedQuantity != nil && *t.ReceivedQuantity != t.Quantity {
		missing := t.Quantity - *t.ReceivedQuantity
		anomalies = append(anomalies, models.AnomalyEvent{
			Kind:     models.AnomalyQuantityMismatch,
			Severity: models.SeverityCritical,
			Message: fmt.Sprintf("Quantity discrepancy: Sent %d, Received %d (Missing: %d)",
				t.Quantity, *t.ReceivedQuantity, missing),
			MissingUnits: &missing,
		})
	}

	// Check 3: item-scan completeness.
	var unscannedSender, unscannedReceiver int
	for _, item := range items {
		if !item.ScannedAtSender {
			unscannedSender++
		}
		if !item.ScannedAtReceiver {
			unscannedReceiver++
		}
	}
	if unscannedSender > 0 {
		count := unscannedSender
		anomalies = append(anomalies, models.AnomalyEvent{
			Kind:          models.AnomalyIncompleteSenderScan,
			Severity:      models.SeverityWarning,
			Message:       fmt.Sprintf("%d items not scanned by sender", count),
			AffectedItems: &count,
		})
	}
	if unscannedReceiver > 0 {
		count := unscannedReceiver
		anomalies = append(anomalies, models.AnomalyEvent{
			Kind:          models.AnomalyIncompleteReceiverScan,
			Severity:      models.SeverityWarning,
			Message:       fmt.Sprintf("%d items not scanned by receiver", count),
			AffectedItems: &count,
		})
	}

	// Check 4: pickup timeliness.
	if t.PickupAt != nil {
		if elapsed := t.PickupAt.Sub(t.CreatedAt); elapsed > PickupDeadline {
			hours := elapsed.Hours()
			anomalies = append(anomalies, models.AnomalyEvent{
				Kind:     models.AnomalyLatePickup,
				Severity: models.SeverityWarning,
				Message: fmt.Sprintf("Pickup delayed by %.1f hours (expected: %.0fh)",
					hours, PickupDeadline.Hours()),
				ElapsedHours: &hours,
			})
		}
	}

	// Check 5: transit timeliness.
	if t.PickupAt != nil && t.DeliveredAt != nil {
		if elapsed := t.DeliveredAt.Sub(*t.PickupAt); elapsed > MaxTransit {
			hours := elapsed.Hours()
			anomalies = append(anomalies, models.AnomalyEvent{
				Kind:     models.AnomalyExtendedTransit,
				Severity: models.SeverityWarning,
				Message: fmt.Sprintf("Transit took %.1f hours (expected max: %.0fh)",
					hours, MaxTransit.Hours()),
				ElapsedHours: &hours,
			})
		}
	}

	// The final digest exists only for a complete chain; a partial chain has
	// nothing meaningful to combine.
	finalDigest := ""
	if chainComplete {
		finalDigest = digest.Combine(t.SenderDigest, t.TransporterDigest, t.ReceiverDigest)
	}

	valid := chainComplete
	for _, a := range anomalies {
		if a.Severity == models.SeverityCritical {
			valid = false
		}
	}

	return models.VerificationVerdict{
		Valid:         valid,
		ChainComplete: chainComplete,
		Signatures:    signatures,
		Anomalies:     anomalies,
		Digest:        finalDigest,
	}
}
