//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"medtrace/internal/transfer/models"
	id "medtrace/pkg/domain"
	"medtrace/pkg/platform/sentinel"
	"medtrace/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	ctx   context.Context
	pg    *containers.PostgresContainer
	store *Postgres
	base  time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.pg = containers.NewPostgresContainer(s.T())
	s.Require().NoError(ApplySchema(s.ctx, s.pg.DB))
	s.store = NewPostgres(s.pg.DB)
	s.base = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
}

func (s *PostgresStoreSuite) SetupTest() {
	_, err := s.pg.DB.ExecContext(s.ctx, `TRUNCATE transfer_items, transfers`)
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) seed(transferID id.TransferID, status models.Status, createdAt time.Time) *models.Transfer {
	t := &models.Transfer{
		ID:           transferID,
		MedicineID:   "MED-PARA-500",
		Quantity:     100,
		FromDistrict: "DST-COLOMBO",
		ToDistrict:   "DST-KANDY",
		Status:       status,
		Priority:     models.PriorityNormal,
		CreatedAt:    createdAt,
		CreatedBy:    "officer-1",
		SenderDigest: "sender-digest",
	}
	items := []models.BatchItem{{
		TransferID:      transferID,
		BatchQRCode:     "QR-" + string(transferID),
		BatchID:         "BATCH-001",
		Quantity:        100,
		ScannedAtSender: true,
	}}
	s.Require().NoError(s.store.Create(s.ctx, t, items))
	return t
}

func (s *PostgresStoreSuite) TestCreateAndGetRoundTrip() {
	pickup := s.base.Add(2 * time.Hour)
	received := 90
	created := s.seed("TXN-AAAA11112222", models.StatusCreated, s.base)

	// Drive the record through a full transition so every nullable column
	// gets exercised.
	_, _, err := s.store.Execute(s.ctx, created.ID,
		func(*models.Transfer) error { return nil },
		func(t *models.Transfer, items []models.BatchItem) error {
			t.ApplyPickup("transporter-1", "t-digest", &models.GeoPoint{Lat: 6.9, Lng: 79.8}, pickup, pickup.Add(48*time.Hour))
			t.ApplyDelivery("receiver-1", "r-digest", received, &models.GeoPoint{Lat: 7.2, Lng: 80.6}, "short", pickup.Add(10*time.Hour))
			items[0].MarkReceiverScanned(models.ConditionDamaged, pickup.Add(10*time.Hour))
			return nil
		})
	s.Require().NoError(err)

	got, items, err := s.store.Get(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusDelivered, got.Status)
	s.Require().NotNil(got.PickupAt)
	s.True(got.PickupAt.Equal(pickup))
	s.Require().NotNil(got.PickupLocation)
	s.InDelta(6.9, got.PickupLocation.Lat, 0.0001)
	s.Require().NotNil(got.ReceivedQuantity)
	s.Equal(90, *got.ReceivedQuantity)
	s.Equal("short", got.ReceiverNotes)

	s.Require().Len(items, 1)
	s.True(items[0].ScannedAtReceiver)
	s.Equal(models.ConditionDamaged, items[0].ConditionOnReceipt)
}

func (s *PostgresStoreSuite) TestCreateDuplicateConflicts() {
	created := s.seed("TXN-AAAA11112222", models.StatusCreated, s.base)

	err := s.store.Create(s.ctx, created, nil)
	s.Require().Error(err)
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestGetNotFound() {
	_, _, err := s.store.Get(s.ctx, "TXN-000000000000")
	s.Require().Error(err)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListAndSummary() {
	s.seed("TXN-AAAA11112222", models.StatusCreated, s.base)
	s.seed("TXN-BBBB33334444", models.StatusCreated, s.base.Add(time.Hour))
	s.seed("TXN-CCCC55556666", models.StatusVerified, s.base.Add(2*time.Hour))

	out, err := s.store.List(s.ctx, Filter{Status: models.StatusCreated})
	s.Require().NoError(err)
	s.Require().Len(out, 2)
	s.Equal(id.TransferID("TXN-BBBB33334444"), out[0].ID, "newest first")

	summary, err := s.store.Summary(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, summary.ByStatus[models.StatusCreated])
	s.Equal(1, summary.ByStatus[models.StatusVerified])
}

func (s *PostgresStoreSuite) TestListPendingOldestFirst() {
	s.seed("TXN-BBBB33334444", models.StatusPickedUp, s.base.Add(time.Hour))
	s.seed("TXN-AAAA11112222", models.StatusCreated, s.base)
	s.seed("TXN-CCCC55556666", models.StatusDisputed, s.base.Add(2*time.Hour))

	out, err := s.store.ListPending(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(out, 2)
	s.Equal(id.TransferID("TXN-AAAA11112222"), out[0].ID)
}

func (s *PostgresStoreSuite) TestExecuteValidateFailureRollsBack() {
	created := s.seed("TXN-AAAA11112222", models.StatusVerified, s.base)

	_, _, err := s.store.Execute(s.ctx, created.ID,
		func(t *models.Transfer) error { return t.CanPickup() },
		func(t *models.Transfer, _ []models.BatchItem) error {
			t.Status = models.StatusPickedUp
			return nil
		})
	s.Require().Error(err)

	stored, _, err := s.store.Get(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusVerified, stored.Status)
}

// TestExecuteSerializesContestedTransition races two pickups for one transfer
// through real row locks: the loser must observe the winner's committed
// status and fail its precondition.
func (s *PostgresStoreSuite) TestExecuteSerializesContestedTransition() {
	created := s.seed("TXN-AAAA11112222", models.StatusCreated, s.base)

	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func(n int) {
			_, _, err := s.store.Execute(s.ctx, created.ID,
				func(t *models.Transfer) error { return t.CanPickup() },
				func(t *models.Transfer, _ []models.BatchItem) error {
					pickup := s.base.Add(time.Duration(n+1) * time.Hour)
					t.ApplyPickup("transporter", "digest", nil, pickup, pickup.Add(48*time.Hour))
					return nil
				})
			results <- err
		}(i)
	}

	var failures int
	for i := 0; i < 2; i++ {
		if err := <-results; err != nil {
			failures++
		}
	}
	s.Equal(1, failures)

	stored, _, err := s.store.Get(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPickedUp, stored.Status)
}
