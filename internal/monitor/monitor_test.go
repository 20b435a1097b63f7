package monitor

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medtrace/internal/transfer/models"
	"medtrace/internal/transfer/store"
	id "medtrace/pkg/domain"
	"medtrace/pkg/platform/audit"
	"medtrace/pkg/platform/audit/publisher"
)

func seedTransfer(t *testing.T, s *store.InMemory, transferID id.TransferID, status models.Status, createdAt time.Time, pickupAt *time.Time) {
	t.Helper()
	err := s.Create(context.Background(), &models.Transfer{
		ID:           transferID,
		MedicineID:   "MED-PARA-500",
		Quantity:     100,
		FromDistrict: "DST-COLOMBO",
		ToDistrict:   "DST-KANDY",
		Status:       status,
		CreatedAt:    createdAt,
		CreatedBy:    "officer-1",
		SenderDigest: "sender-digest",
		PickupAt:     pickupAt,
	}, nil)
	require.NoError(t, err)
}

func Test_Scan_PublishesCriticalAlertsOnly(t *testing.T) {
	s := store.NewInMemory()
	now := time.Now()

	// Stalled (warning): created 30h ago, never picked up.
	seedTransfer(t, s, "TXN-AAAA11112222", models.StatusCreated, now.Add(-30*time.Hour), nil)
	// Overdue (critical): in transit for 60h.
	pickup := now.Add(-60 * time.Hour)
	seedTransfer(t, s, "TXN-BBBB33334444", models.StatusPickedUp, now.Add(-61*time.Hour), &pickup)
	// Healthy: created an hour ago.
	seedTransfer(t, s, "TXN-CCCC55556666", models.StatusCreated, now.Add(-time.Hour), nil)

	trail := publisher.NewChannel(8)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := New(s, trail, nil, logger, time.Minute)

	require.NoError(t, m.Scan(context.Background()))

	// Only the critical alert reaches the custody trail.
	var events []audit.Event
	for {
		select {
		case e := <-trail.Events():
			events = append(events, e)
			continue
		default:
		}
		break
	}
	require.Len(t, events, 1)
	event := events[0]
	assert.Equal(t, audit.ActionOverdueDelivery, event.Action)
	assert.Equal(t, id.TransferID("TXN-BBBB33334444"), event.TransferID)
	assert.Equal(t, "monitor", event.Actor)
	assert.Equal(t, string(models.SeverityCritical), event.Severity)
	assert.Contains(t, event.Reason, "possible diversion")
}

func Test_Scan_ReadOnly(t *testing.T) {
	s := store.NewInMemory()
	now := time.Now()
	seedTransfer(t, s, "TXN-AAAA11112222", models.StatusCreated, now.Add(-30*time.Hour), nil)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := New(s, nil, nil, logger, time.Minute)
	require.NoError(t, m.Scan(context.Background()))

	// Alerts never mutate the record; the transfer still awaits pickup.
	stored, _, err := s.Get(context.Background(), "TXN-AAAA11112222")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCreated, stored.Status)
	assert.False(t, stored.HasDiscrepancy)
}

func Test_Run_StopsOnContextCancel(t *testing.T) {
	s := store.NewInMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := New(s, nil, nil, logger, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop after cancel")
	}
}
