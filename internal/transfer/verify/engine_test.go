package verify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medtrace/internal/transfer/models"
)

var (
	baseCreated   = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	basePickup    = baseCreated.Add(2 * time.Hour)
	baseDelivered = basePickup.Add(10 * time.Hour)
)

// completedTransfer builds a fully signed transfer with matching quantities
// and timestamps inside every threshold.
func completedTransfer() (*models.Transfer, []models.BatchItem) {
	pickup := basePickup
	delivered := baseDelivered
	received := 100

	t := &models.Transfer{
		ID:                "TXN-AAAA11112222",
		MedicineID:        "MED-PARA-500",
		Quantity:          100,
		FromDistrict:      "DST-COLOMBO",
		ToDistrict:        "DST-KANDY",
		Status:            models.StatusDelivered,
		CreatedAt:         baseCreated,
		SenderDigest:      "sender-digest",
		PickupAt:          &pickup,
		TransporterDigest: "transporter-digest",
		DeliveredAt:       &delivered,
		ReceiverDigest:    "receiver-digest",
		ReceivedQuantity:  &received,
	}
	items := []models.BatchItem{
		{
			TransferID:        t.ID,
			BatchQRCode:       "QR-1111",
			Quantity:          100,
			ScannedAtSender:   true,
			ScannedAtReceiver: true,
		},
	}
	return t, items
}

func kinds(v models.VerificationVerdict) []models.AnomalyKind {
	var out []models.AnomalyKind
	for _, a := range v.Anomalies {
		out = append(out, a.Kind)
	}
	return out
}

func Test_Verify_CleanDelivery(t *testing.T) {
	transfer, items := completedTransfer()

	verdict := Verify(transfer, items)

	assert.True(t, verdict.Valid)
	assert.True(t, verdict.ChainComplete)
	assert.Empty(t, verdict.Anomalies)
	assert.NotEmpty(t, verdict.Digest)
	assert.Equal(t, map[models.Party]bool{
		models.PartySender:      true,
		models.PartyTransporter: true,
		models.PartyReceiver:    true,
	}, verdict.Signatures)
}

func Test_Verify_Idempotent(t *testing.T) {
	transfer, items := completedTransfer()
	received := 90
	transfer.ReceivedQuantity = &received

	first := Verify(transfer, items)
	second := Verify(transfer, items)

	assert.Equal(t, first, second)
}

func Test_Verify_MissingSignature(t *testing.T) {
	transfer, items := completedTransfer()
	transfer.TransporterDigest = ""

	verdict := Verify(transfer, items)

	assert.False(t, verdict.Valid)
	assert.False(t, verdict.ChainComplete)
	assert.Empty(t, verdict.Digest, "partial chain must not produce a final digest")

	require.Len(t, verdict.Anomalies, 1)
	anomaly := verdict.Anomalies[0]
	assert.Equal(t, models.AnomalySignatureMissing, anomaly.Kind)
	assert.Equal(t, models.SeverityCritical, anomaly.Severity)
	assert.Equal(t, "Missing signatures from: transporter", anomaly.Message)
}

func Test_Verify_MissingSignature_ListsAllParties(t *testing.T) {
	transfer, items := completedTransfer()
	transfer.TransporterDigest = ""
	transfer.ReceiverDigest = ""

	verdict := Verify(transfer, items)

	require.Len(t, verdict.Anomalies, 1)
	assert.Equal(t, "Missing signatures from: transporter, receiver", verdict.Anomalies[0].Message)
}

func Test_Verify_QuantityMismatch(t *testing.T) {
	transfer, items := completedTransfer()
	received := 90
	transfer.ReceivedQuantity = &received

	verdict := Verify(transfer, items)

	assert.False(t, verdict.Valid)
	assert.True(t, verdict.ChainComplete)
	assert.NotEmpty(t, verdict.Digest, "digest is computed even for disputed complete chains")

	require.Len(t, verdict.Anomalies, 1)
	anomaly := verdict.Anomalies[0]
	assert.Equal(t, models.AnomalyQuantityMismatch, anomaly.Kind)
	assert.Equal(t, models.SeverityCritical, anomaly.Severity)
	assert.Equal(t, "Quantity discrepancy: Sent 100, Received 90 (Missing: 10)", anomaly.Message)
	require.NotNil(t, anomaly.MissingUnits)
	assert.Equal(t, 10, *anomaly.MissingUnits)
}

func Test_Verify_QuantitySurplusStillMismatch(t *testing.T) {
	transfer, items := completedTransfer()
	received := 110
	transfer.ReceivedQuantity = &received

	verdict := Verify(transfer, items)

	require.Len(t, verdict.Anomalies, 1)
	assert.Equal(t, models.AnomalyQuantityMismatch, verdict.Anomalies[0].Kind)
	require.NotNil(t, verdict.Anomalies[0].MissingUnits)
	assert.Equal(t, -10, *verdict.Anomalies[0].MissingUnits)
}

func Test_Verify_IncompleteScans(t *testing.T) {
	transfer, items := completedTransfer()
	items = append(items, models.BatchItem{
		TransferID:        transfer.ID,
		BatchQRCode:       "QR-2222",
		ScannedAtSender:   false,
		ScannedAtReceiver: false,
	})

	verdict := Verify(transfer, items)

	// Warnings only: the transfer stays valid.
	assert.True(t, verdict.Valid)
	assert.ElementsMatch(t, []models.AnomalyKind{
		models.AnomalyIncompleteSenderScan,
		models.AnomalyIncompleteReceiverScan,
	}, kinds(verdict))

	for _, a := range verdict.Anomalies {
		assert.Equal(t, models.SeverityWarning, a.Severity)
		require.NotNil(t, a.AffectedItems)
		assert.Equal(t, 1, *a.AffectedItems)
	}
}

func Test_Verify_LatePickup(t *testing.T) {
	transfer, items := completedTransfer()
	pickup := baseCreated.Add(30 * time.Hour)
	delivered := pickup.Add(5 * time.Hour)
	transfer.PickupAt = &pickup
	transfer.DeliveredAt = &delivered

	verdict := Verify(transfer, items)

	assert.True(t, verdict.Valid)
	require.Len(t, verdict.Anomalies, 1)
	anomaly := verdict.Anomalies[0]
	assert.Equal(t, models.AnomalyLatePickup, anomaly.Kind)
	assert.Equal(t, models.SeverityWarning, anomaly.Severity)
	assert.Equal(t, "Pickup delayed by 30.0 hours (expected: 24h)", anomaly.Message)
	require.NotNil(t, anomaly.ElapsedHours)
	assert.InDelta(t, 30.0, *anomaly.ElapsedHours, 0.01)
}

func Test_Verify_PickupExactlyAtDeadline(t *testing.T) {
	transfer, items := completedTransfer()
	pickup := baseCreated.Add(PickupDeadline)
	delivered := pickup.Add(5 * time.Hour)
	transfer.PickupAt = &pickup
	transfer.DeliveredAt = &delivered

	verdict := Verify(transfer, items)

	assert.Empty(t, verdict.Anomalies, "thresholds are exclusive bounds")
}

func Test_Verify_ExtendedTransit(t *testing.T) {
	transfer, items := completedTransfer()
	delivered := basePickup.Add(60 * time.Hour)
	transfer.DeliveredAt = &delivered

	verdict := Verify(transfer, items)

	assert.True(t, verdict.Valid)
	require.Len(t, verdict.Anomalies, 1)
	anomaly := verdict.Anomalies[0]
	assert.Equal(t, models.AnomalyExtendedTransit, anomaly.Kind)
	assert.Equal(t, "Transit took 60.0 hours (expected max: 48h)", anomaly.Message)
}

func Test_Verify_AllChecksRun(t *testing.T) {
	transfer, items := completedTransfer()
	transfer.ReceiverDigest = ""
	received := 80
	transfer.ReceivedQuantity = &received
	pickup := baseCreated.Add(30 * time.Hour)
	delivered := pickup.Add(60 * time.Hour)
	transfer.PickupAt = &pickup
	transfer.DeliveredAt = &delivered
	items[0].ScannedAtReceiver = false

	verdict := Verify(transfer, items)

	assert.False(t, verdict.Valid)
	assert.ElementsMatch(t, []models.AnomalyKind{
		models.AnomalySignatureMissing,
		models.AnomalyQuantityMismatch,
		models.AnomalyIncompleteReceiverScan,
		models.AnomalyLatePickup,
		models.AnomalyExtendedTransit,
	}, kinds(verdict))
}

func Test_Verify_InTransitSnapshot(t *testing.T) {
	transfer, items := completedTransfer()
	transfer.Status = models.StatusPickedUp
	transfer.ReceiverDigest = ""
	transfer.DeliveredAt = nil
	transfer.ReceivedQuantity = nil
	items[0].ScannedAtReceiver = false

	verdict := Verify(transfer, items)

	// A mid-chain read reports an incomplete chain without inventing
	// delivery-stage anomalies.
	assert.False(t, verdict.Valid)
	assert.False(t, verdict.ChainComplete)
	assert.ElementsMatch(t, []models.AnomalyKind{
		models.AnomalySignatureMissing,
		models.AnomalyIncompleteReceiverScan,
	}, kinds(verdict))
}
