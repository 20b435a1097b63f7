package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"medtrace/internal/transfer/models"
	id "medtrace/pkg/domain"
	"medtrace/pkg/platform/sentinel"
)

// Postgres persists transfers in PostgreSQL. Create and Execute wrap the
// transfer row and its item rows in one transaction so a timeout or crash can
// never leave a half-written custody record.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed transfer store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const transferColumns = `
	id, medicine_id, quantity, from_district_id, to_district_id, status, priority,
	created_at, created_by, sender_signature, sender_notes,
	pickup_at, transporter_id, transporter_signature,
	pickup_lat, pickup_lng, expected_delivery_at,
	delivered_at, receiver_id, receiver_signature, received_quantity,
	delivery_lat, delivery_lng, receiver_notes,
	verification_hash, is_verified, verified_at,
	has_discrepancy, discrepancy_type, discrepancy_notes
`

func (s *Postgres) Create(ctx context.Context, t *models.Transfer, items []models.BatchItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create transfer: %w", err)
	}
	defer tx.Rollback()

	if err := insertTransfer(ctx, tx, t); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return fmt.Errorf("transfer %s already exists: %w", t.ID, sentinel.ErrConflict)
		}
		return err
	}
	for i := range items {
		if err := insertItem(ctx, tx, &items[i]); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create transfer: %w", err)
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, transferID id.TransferID) (*models.Transfer, []models.BatchItem, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE id = $1`
	t, err := scanTransfer(s.db.QueryRowContext(ctx, query, string(transferID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, fmt.Errorf("transfer %s: %w", transferID, sentinel.ErrNotFound)
		}
		return nil, nil, fmt.Errorf("get transfer: %w", err)
	}
	items, err := s.loadItems(ctx, s.db, transferID)
	if err != nil {
		return nil, nil, err
	}
	return t, items, nil
}

func (s *Postgres) List(ctx context.Context, filter Filter) ([]models.Transfer, error) {
	filter = filter.Normalize()

	query := `SELECT ` + transferColumns + ` FROM transfers WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Status != "" {
		query += ` AND status = ` + arg(string(filter.Status))
	}
	if filter.FromDistrict != "" {
		query += ` AND from_district_id = ` + arg(string(filter.FromDistrict))
	}
	if filter.ToDistrict != "" {
		query += ` AND to_district_id = ` + arg(string(filter.ToDistrict))
	}
	if filter.HasDiscrepancy != nil {
		query += ` AND has_discrepancy = ` + arg(*filter.HasDiscrepancy)
	}
	query += ` ORDER BY created_at DESC LIMIT ` + arg(filter.Limit)

	return s.queryTransfers(ctx, query, args...)
}

func (s *Postgres) ListPending(ctx context.Context) ([]models.Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers
		WHERE status IN ('created', 'picked_up')
		ORDER BY created_at ASC`
	return s.queryTransfers(ctx, query)
}

func (s *Postgres) Summary(ctx context.Context) (Summary, error) {
	summary := Summary{ByStatus: make(map[models.Status]int)}

	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*), COUNT(*) FILTER (WHERE has_discrepancy)
		FROM transfers GROUP BY status
	`)
	if err != nil {
		return Summary{}, fmt.Errorf("transfer summary: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count, discrepant int
		if err := rows.Scan(&status, &count, &discrepant); err != nil {
			return Summary{}, fmt.Errorf("scan transfer summary: %w", err)
		}
		summary.ByStatus[models.Status(status)] = count
		summary.WithDiscrepancies += discrepant
	}
	if err := rows.Err(); err != nil {
		return Summary{}, fmt.Errorf("transfer summary rows: %w", err)
	}
	return summary, nil
}

func (s *Postgres) Execute(
	ctx context.Context,
	transferID id.TransferID,
	validate func(t *models.Transfer) error,
	mutate func(t *models.Transfer, items []models.BatchItem) error,
) (*models.Transfer, []models.BatchItem, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin transfer transition: %w", err)
	}
	defer tx.Rollback()

	// FOR UPDATE serializes concurrent transitions on the same id: the
	// second caller blocks here and re-reads the committed status, so its
	// precondition check sees the winner's write.
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE id = $1 FOR UPDATE`
	t, err := scanTransfer(tx.QueryRowContext(ctx, query, string(transferID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, fmt.Errorf("transfer %s: %w", transferID, sentinel.ErrNotFound)
		}
		return nil, nil, fmt.Errorf("lock transfer: %w", err)
	}
	items, err := s.loadItems(ctx, tx, transferID)
	if err != nil {
		return nil, nil, err
	}

	if err := validate(t); err != nil {
		return nil, nil, err
	}
	if err := mutate(t, items); err != nil {
		return nil, nil, err
	}

	if err := updateTransfer(ctx, tx, t); err != nil {
		return nil, nil, err
	}
	for i := range items {
		if err := updateItem(ctx, tx, &items[i]); err != nil {
			return nil, nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit transfer transition: %w", err)
	}
	return t, items, nil
}

// querier covers *sql.DB and *sql.Tx for shared read helpers.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Postgres) queryTransfers(ctx context.Context, query string, args ...any) ([]models.Transfer, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	defer rows.Close()

	var out []models.Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transfers rows: %w", err)
	}
	return out, nil
}

func (s *Postgres) loadItems(ctx context.Context, q querier, transferID id.TransferID) ([]models.BatchItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT transfer_id, batch_qr_code, batch_id, quantity, expiry_date,
		       scanned_at_sender, sender_scan_time,
		       scanned_at_receiver, receiver_scan_time, condition_on_receipt
		FROM transfer_items
		WHERE transfer_id = $1
		ORDER BY batch_qr_code
	`, string(transferID))
	if err != nil {
		return nil, fmt.Errorf("load transfer items: %w", err)
	}
	defer rows.Close()

	var items []models.BatchItem
	for rows.Next() {
		var item models.BatchItem
		var condition sql.NullString
		err := rows.Scan(
			&item.TransferID, &item.BatchQRCode, &item.BatchID, &item.Quantity, &item.ExpiryDate,
			&item.ScannedAtSender, &item.SenderScanTime,
			&item.ScannedAtReceiver, &item.ReceiverScanTime, &condition,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transfer item: %w", err)
		}
		item.ConditionOnReceipt = models.ItemCondition(condition.String)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load transfer items rows: %w", err)
	}
	return items, nil
}
