package verify

import (
	"fmt"
	"time"

	"medtrace/internal/transfer/models"
)

// DetectPending scans non-terminal transfers for stage timeouts measured
// against now. It applies the same two thresholds as Verify, but to elapsed
// wall time rather than to a completed pair of timestamps: it flags transfers
// that have not failed yet but are on track to.
//
// Transfers past the created or picked_up stages are skipped; their timing is
// judged by Verify at delivery time.
func DetectPending(transfers []models.Transfer, now time.Time) []models.PendingAlert {
	var alerts []models.PendingAlert
	for _, t := range transfers {
		switch t.Status {
		case models.StatusCreated:
			age := now.Sub(t.CreatedAt)
			if age > PickupDeadline {
				alerts = append(alerts, models.PendingAlert{
					TransferID:   t.ID,
					Kind:         models.AnomalyStalledTransfer,
					Severity:     models.SeverityWarning,
					Message:      fmt.Sprintf("Transfer awaiting pickup for %.1f hours", age.Hours()),
					FromDistrict: t.FromDistrict,
					ToDistrict:   t.ToDistrict,
					ElapsedHours: age.Hours(),
				})
			}
		case models.StatusPickedUp:
			if t.PickupAt == nil {
				continue
			}
			transit := now.Sub(*t.PickupAt)
			if transit > MaxTransit {
				// The strongest diversion signal the protocol can raise
				// without human intervention.
				alerts = append(alerts, models.PendingAlert{
					TransferID:   t.ID,
					Kind:         models.AnomalyOverdueDelivery,
					Severity:     models.SeverityCritical,
					Message:      fmt.Sprintf("In transit for %.1f hours - possible diversion", transit.Hours()),
					FromDistrict: t.FromDistrict,
					ToDistrict:   t.ToDistrict,
					ElapsedHours: transit.Hours(),
				})
			}
		}
	}
	return alerts
}
