package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	catalogmodels "medtrace/internal/catalog/models"
	catalogstore "medtrace/internal/catalog/store"
	"medtrace/internal/transfer/models"
	"medtrace/internal/transfer/store"
	id "medtrace/pkg/domain"
	dErrors "medtrace/pkg/domain-errors"
	"medtrace/pkg/platform/audit"
	"medtrace/pkg/platform/audit/publisher"
	"medtrace/pkg/requestcontext"
)

type TransferServiceSuite struct {
	suite.Suite
	store   *store.InMemory
	trail   *publisher.Channel
	service *Service
	base    time.Time
}

func TestTransferServiceSuite(t *testing.T) {
	suite.Run(t, new(TransferServiceSuite))
}

func (s *TransferServiceSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.trail = publisher.NewChannel(64)
	s.base = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	catalog := catalogstore.NewInMemory()
	catalogstore.SeedDev(catalog)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := New(s.store, catalogResolver{catalog}, logger, WithPublisher(s.trail))
	s.Require().NoError(err)
	s.service = svc
}

// catalogResolver adapts the catalog store directly, skipping the cache layer
// the production resolver adds.
type catalogResolver struct {
	store catalogstore.Store
}

func (c catalogResolver) ResolveDistrict(ctx context.Context, districtID id.DistrictID) (*catalogmodels.District, error) {
	return c.store.GetDistrict(ctx, districtID)
}

func (c catalogResolver) ResolveMedicine(ctx context.Context, medicineID id.MedicineID) (*catalogmodels.Medicine, error) {
	return c.store.GetMedicine(ctx, medicineID)
}

func (s *TransferServiceSuite) at(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func (s *TransferServiceSuite) createInput() CreateInput {
	return CreateInput{
		MedicineID:   "MED-PARA-500",
		Quantity:     100,
		FromDistrict: "DST-COLOMBO",
		ToDistrict:   "DST-KANDY",
		CreatedBy:    "officer-1",
	}
}

// createTransfer runs Create at the suite's base time.
func (s *TransferServiceSuite) createTransfer() *CreateResult {
	result, err := s.service.Create(s.at(s.base), s.createInput())
	s.Require().NoError(err)
	return result
}

// pickedUpTransfer advances a fresh transfer to picked_up, two hours in.
func (s *TransferServiceSuite) pickedUpTransfer() *PickupResult {
	created := s.createTransfer()
	result, err := s.service.Pickup(s.at(s.base.Add(2*time.Hour)), created.Transfer.ID, PickupInput{
		TransporterID: "transporter-1",
	})
	s.Require().NoError(err)
	return result
}

func (s *TransferServiceSuite) drainTrail() []audit.Event {
	var events []audit.Event
	for {
		select {
		case e := <-s.trail.Events():
			events = append(events, e)
		default:
			return events
		}
	}
}

func (s *TransferServiceSuite) TestCreate() {
	result := s.createTransfer()

	t := result.Transfer
	s.Equal(models.StatusCreated, t.Status)
	s.Equal(models.PriorityNormal, t.Priority)
	s.NotEmpty(t.SenderDigest)
	s.Equal(t.SenderDigest, result.SenderDigest)

	// No explicit batches: one synthetic item covers the full quantity,
	// already sender-scanned.
	s.Require().Len(result.Items, 1)
	item := result.Items[0]
	s.Equal(100, item.Quantity)
	s.Equal(models.DefaultBatchID(s.base), item.BatchID)
	s.True(item.ScannedAtSender)
	s.False(item.ScannedAtReceiver)
	s.Require().Len(result.QRCodes, 1)
	s.Equal(item.BatchQRCode, result.QRCodes[0])

	stored, _, err := s.store.Get(context.Background(), t.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusCreated, stored.Status)

	events := s.drainTrail()
	s.Require().Len(events, 1)
	s.Equal(audit.ActionTransferCreated, events[0].Action)
	s.Equal("officer-1", events[0].Actor)
}

func (s *TransferServiceSuite) TestCreateWithExplicitItems() {
	in := s.createInput()
	expiry := s.base.AddDate(1, 0, 0)
	in.Items = []ItemInput{
		{BatchID: "BATCH-A", Quantity: 40, ExpiryDate: &expiry},
		{BatchID: "BATCH-B", Quantity: 60},
	}

	result, err := s.service.Create(s.at(s.base), in)
	s.Require().NoError(err)

	s.Require().Len(result.Items, 2)
	s.NotEqual(result.Items[0].BatchQRCode, result.Items[1].BatchQRCode)
	s.Require().NotNil(result.Items[0].ExpiryDate)
	s.True(result.Items[0].ExpiryDate.Equal(expiry))
}

func (s *TransferServiceSuite) TestCreateDuplicateBatchLinesGetDistinctQRCodes() {
	in := s.createInput()
	in.Items = []ItemInput{
		{BatchID: "BATCH-77", Quantity: 50},
		{BatchID: "BATCH-77", Quantity: 50},
	}

	result, err := s.service.Create(s.at(s.base), in)
	s.Require().NoError(err)

	s.Require().Len(result.QRCodes, 2)
	s.NotEqual(result.QRCodes[0], result.QRCodes[1])
	s.NotEqual(result.Items[0].BatchQRCode, result.Items[1].BatchQRCode)
}

func (s *TransferServiceSuite) TestCreateRejectsSameDistrict() {
	in := s.createInput()
	in.ToDistrict = in.FromDistrict

	_, err := s.service.Create(s.at(s.base), in)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))

	// Rejected before persistence.
	out, listErr := s.store.List(context.Background(), store.Filter{})
	s.Require().NoError(listErr)
	s.Empty(out)
	s.Empty(s.drainTrail())
}

func (s *TransferServiceSuite) TestCreateRejectsNonPositiveItemQuantity() {
	in := s.createInput()
	in.Items = []ItemInput{{BatchID: "BATCH-A", Quantity: 0}}

	_, err := s.service.Create(s.at(s.base), in)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *TransferServiceSuite) TestCreateUnknownReferences() {
	s.Run("unknown district", func() {
		in := s.createInput()
		in.ToDistrict = "DST-NOWHERE"
		_, err := s.service.Create(s.at(s.base), in)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.Contains(err.Error(), "DST-NOWHERE")
	})

	s.Run("unknown medicine", func() {
		in := s.createInput()
		in.MedicineID = "MED-NOPE"
		_, err := s.service.Create(s.at(s.base), in)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *TransferServiceSuite) TestCreatePhotoEvidenceChangesDigest() {
	first, err := s.service.Create(s.at(s.base), s.createInput())
	s.Require().NoError(err)

	in := s.createInput()
	in.PhotoEvidence = []byte("packing photo")
	second, err := s.service.Create(s.at(s.base), in)
	s.Require().NoError(err)

	s.NotEqual(first.SenderDigest, second.SenderDigest)
}

func (s *TransferServiceSuite) TestPickup() {
	created := s.createTransfer()
	pickupAt := s.base.Add(2 * time.Hour)

	result, err := s.service.Pickup(s.at(pickupAt), created.Transfer.ID, PickupInput{
		TransporterID: "transporter-1",
		Location:      &models.GeoPoint{Lat: 6.9271, Lng: 79.8612},
	})
	s.Require().NoError(err)

	t := result.Transfer
	s.Equal(models.StatusPickedUp, t.Status)
	s.NotEmpty(result.TransporterDigest)
	s.NotEqual(created.SenderDigest, result.TransporterDigest)
	s.Require().NotNil(t.PickupAt)
	s.True(t.PickupAt.Equal(pickupAt))
	// Expected delivery is pinned to the transit allowance.
	s.Require().NotNil(t.ExpectedDeliveryAt)
	s.True(t.ExpectedDeliveryAt.Equal(pickupAt.Add(48 * time.Hour)))

	events := s.drainTrail()
	s.Require().Len(events, 2)
	s.Equal(audit.ActionPickupRecorded, events[1].Action)
}

func (s *TransferServiceSuite) TestPickupRequiresTransporter() {
	created := s.createTransfer()

	_, err := s.service.Pickup(s.at(s.base), created.Transfer.ID, PickupInput{})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *TransferServiceSuite) TestPickupUnknownTransfer() {
	_, err := s.service.Pickup(s.at(s.base), "TXN-000000000000", PickupInput{TransporterID: "transporter-1"})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *TransferServiceSuite) TestPickupTwiceInvalidState() {
	picked := s.pickedUpTransfer()

	_, err := s.service.Pickup(s.at(s.base.Add(3*time.Hour)), picked.Transfer.ID, PickupInput{
		TransporterID: "transporter-2",
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

	// The first transporter's record stands.
	stored, _, err := s.store.Get(context.Background(), picked.Transfer.ID)
	s.Require().NoError(err)
	s.Equal("transporter-1", stored.TransporterID)
}

func (s *TransferServiceSuite) TestDeliverClean() {
	picked := s.pickedUpTransfer()
	deliverAt := s.base.Add(12 * time.Hour)

	result, err := s.service.Deliver(s.at(deliverAt), picked.Transfer.ID, DeliveryInput{
		ReceiverID:       "receiver-1",
		ReceivedQuantity: 100,
	})
	s.Require().NoError(err)

	t := result.Transfer
	s.Equal(models.StatusVerified, t.Status)
	s.True(t.Verified)
	s.Require().NotNil(t.VerifiedAt)
	s.False(t.HasDiscrepancy)
	s.Empty(t.DiscrepancyKind)
	s.NotEmpty(t.VerificationDigest)

	s.True(result.Verdict.Valid)
	s.True(result.Verdict.ChainComplete)
	s.Empty(result.Verdict.Anomalies)
	s.Equal(t.VerificationDigest, result.Verdict.Digest)

	// Every item got receiver-scanned in good condition.
	s.Require().Len(result.Items, 1)
	s.True(result.Items[0].ScannedAtReceiver)
	s.Equal(models.ConditionGood, result.Items[0].ConditionOnReceipt)

	events := s.drainTrail()
	s.Require().Len(events, 4)
	s.Equal(audit.ActionDeliveryRecorded, events[2].Action)
	s.Equal(audit.ActionTransferVerified, events[3].Action)
}

func (s *TransferServiceSuite) TestDeliverShortQuantityDisputes() {
	picked := s.pickedUpTransfer()
	deliverAt := s.base.Add(12 * time.Hour)

	result, err := s.service.Deliver(s.at(deliverAt), picked.Transfer.ID, DeliveryInput{
		ReceiverID:       "receiver-1",
		ReceivedQuantity: 90,
	})
	s.Require().NoError(err)

	t := result.Transfer
	s.Equal(models.StatusDisputed, t.Status)
	s.False(t.Verified)
	s.Nil(t.VerifiedAt)
	s.True(t.HasDiscrepancy)
	s.Equal(models.AnomalyQuantityMismatch, t.DiscrepancyKind)
	s.Equal("Quantity discrepancy: Sent 100, Received 90 (Missing: 10)", t.DiscrepancyNotes)
	// A complete chain still yields the final digest, dispute or not.
	s.NotEmpty(t.VerificationDigest)

	s.Require().Len(result.Verdict.Anomalies, 1)
	anomaly := result.Verdict.Anomalies[0]
	s.Equal(models.AnomalyQuantityMismatch, anomaly.Kind)
	s.Require().NotNil(anomaly.MissingUnits)
	s.Equal(10, *anomaly.MissingUnits)

	events := s.drainTrail()
	s.Require().Len(events, 4)
	disputed := events[3]
	s.Equal(audit.ActionTransferDisputed, disputed.Action)
	s.Equal(string(models.SeverityCritical), disputed.Severity)
	s.Contains(disputed.Reason, "Missing: 10")
}

func (s *TransferServiceSuite) TestDeliverDamagedCondition() {
	picked := s.pickedUpTransfer()

	_, items, err := s.store.Get(context.Background(), picked.Transfer.ID)
	s.Require().NoError(err)
	qr := items[0].BatchQRCode

	result, err := s.service.Deliver(s.at(s.base.Add(12*time.Hour)), picked.Transfer.ID, DeliveryInput{
		ReceiverID:       "receiver-1",
		ReceivedQuantity: 100,
		ItemConditions:   map[string]models.ItemCondition{qr: models.ConditionDamaged},
	})
	s.Require().NoError(err)

	s.Equal(models.ConditionDamaged, result.Items[0].ConditionOnReceipt)
	// Condition is recorded evidence, not an anomaly trigger.
	s.Equal(models.StatusVerified, result.Transfer.Status)
}

func (s *TransferServiceSuite) TestDeliverValidation() {
	picked := s.pickedUpTransfer()

	cases := []struct {
		name string
		in   DeliveryInput
	}{
		{name: "missing receiver", in: DeliveryInput{ReceivedQuantity: 100}},
		{name: "negative quantity", in: DeliveryInput{ReceiverID: "receiver-1", ReceivedQuantity: -1}},
		{name: "unknown condition", in: DeliveryInput{
			ReceiverID:       "receiver-1",
			ReceivedQuantity: 100,
			ItemConditions:   map[string]models.ItemCondition{"QR-X": "soggy"},
		}},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.service.Deliver(s.at(s.base.Add(12*time.Hour)), picked.Transfer.ID, tc.in)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
		})
	}
}

func (s *TransferServiceSuite) TestDeliverBeforePickupInvalidState() {
	created := s.createTransfer()

	_, err := s.service.Deliver(s.at(s.base.Add(time.Hour)), created.Transfer.ID, DeliveryInput{
		ReceiverID:       "receiver-1",
		ReceivedQuantity: 100,
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func (s *TransferServiceSuite) TestDeliverLateLegsStayVerified() {
	created := s.createTransfer()
	pickupAt := s.base.Add(30 * time.Hour)
	_, err := s.service.Pickup(s.at(pickupAt), created.Transfer.ID, PickupInput{TransporterID: "transporter-1"})
	s.Require().NoError(err)

	result, err := s.service.Deliver(s.at(pickupAt.Add(60*time.Hour)), created.Transfer.ID, DeliveryInput{
		ReceiverID:       "receiver-1",
		ReceivedQuantity: 100,
	})
	s.Require().NoError(err)

	// Timing breaches are warnings: verified, with the anomalies on record.
	s.Equal(models.StatusVerified, result.Transfer.Status)
	s.False(result.Transfer.HasDiscrepancy)
	s.Len(result.Verdict.Anomalies, 2)
}

func (s *TransferServiceSuite) TestGetRecomputesVerdict() {
	picked := s.pickedUpTransfer()

	detail, err := s.service.Get(context.Background(), picked.Transfer.ID)
	s.Require().NoError(err)

	s.Equal(models.StatusPickedUp, detail.Transfer.Status)
	s.False(detail.Verdict.ChainComplete)
	s.False(detail.Verdict.Signatures[models.PartyReceiver])
}

func (s *TransferServiceSuite) TestGetNotFound() {
	_, err := s.service.Get(context.Background(), "TXN-000000000000")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *TransferServiceSuite) TestList() {
	s.createTransfer()
	picked := s.pickedUpTransfer()

	result, err := s.service.List(context.Background(), store.Filter{Status: models.StatusPickedUp})
	s.Require().NoError(err)
	s.Require().Len(result.Transfers, 1)
	s.Equal(picked.Transfer.ID, result.Transfers[0].ID)
	s.Equal(1, result.Summary.ByStatus[models.StatusCreated])
	s.Equal(1, result.Summary.ByStatus[models.StatusPickedUp])
}

func (s *TransferServiceSuite) TestPendingWithAlerts() {
	stalled := s.createTransfer()
	picked := s.pickedUpTransfer()

	// 30h after creation: the untouched transfer is stalled; the picked-up
	// one left 2h in and is now 28h in transit, inside its window.
	result, err := s.service.Pending(s.at(s.base.Add(30 * time.Hour)))
	s.Require().NoError(err)

	s.Len(result.Transfers, 2)
	s.Require().Len(result.Alerts, 1)
	s.Equal(stalled.Transfer.ID, result.Alerts[0].TransferID)
	s.Equal(models.AnomalyStalledTransfer, result.Alerts[0].Kind)

	// 60h in transit crosses the overdue threshold.
	result, err = s.service.Pending(s.at(s.base.Add(62 * time.Hour)))
	s.Require().NoError(err)
	s.Require().Len(result.Alerts, 2)
	kindsByID := map[id.TransferID]models.AnomalyKind{}
	for _, a := range result.Alerts {
		kindsByID[a.TransferID] = a.Kind
	}
	s.Equal(models.AnomalyOverdueDelivery, kindsByID[picked.Transfer.ID])
}

func (s *TransferServiceSuite) TestAnomalous() {
	clean := s.pickedUpTransfer()
	_, err := s.service.Deliver(s.at(s.base.Add(10*time.Hour)), clean.Transfer.ID, DeliveryInput{
		ReceiverID:       "receiver-1",
		ReceivedQuantity: 100,
	})
	s.Require().NoError(err)

	short := s.pickedUpTransfer()
	_, err = s.service.Deliver(s.at(s.base.Add(10*time.Hour)), short.Transfer.ID, DeliveryInput{
		ReceiverID:       "receiver-1",
		ReceivedQuantity: 75,
	})
	s.Require().NoError(err)

	details, err := s.service.Anomalous(context.Background())
	s.Require().NoError(err)
	s.Require().Len(details, 1)
	s.Equal(short.Transfer.ID, details[0].Transfer.ID)
	s.Equal(models.AnomalyQuantityMismatch, details[0].Transfer.DiscrepancyKind)
	s.Require().Len(details[0].Verdict.Anomalies, 1)
	s.Require().NotNil(details[0].Verdict.Anomalies[0].MissingUnits)
	s.Equal(25, *details[0].Verdict.Anomalies[0].MissingUnits)
}
