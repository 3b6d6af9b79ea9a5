package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/investment-simulator/internal/models"
)

// TriggerActivated archives a newly created trigger record. Archiving the
// same operation twice leaves the first row untouched.
func (db *DB) TriggerActivated(ctx context.Context, rec models.TriggerRecord) error {
	query := `
		INSERT INTO trigger_records (
			operation_id, security_id, security_ticker, triggered_price,
			target_price, notification_target, triggered_at, is_processed
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (operation_id) DO NOTHING
	`
	_, err := db.conn.ExecContext(ctx, query,
		rec.OperationID, rec.SecurityID, rec.SecurityTicker, rec.TriggeredPrice,
		rec.TargetPrice, rec.NotificationTarget, rec.TriggeredAt, rec.IsProcessed,
	)
	if err != nil {
		return fmt.Errorf("failed to archive trigger record: %w", err)
	}
	return nil
}

// TriggerAcknowledged marks an archived trigger record as processed
func (db *DB) TriggerAcknowledged(ctx context.Context, rec models.TriggerRecord) error {
	query := `
		UPDATE trigger_records
		SET is_processed = true, processed_at = $2
		WHERE operation_id = $1 AND is_processed = false
	`
	_, err := db.conn.ExecContext(ctx, query, rec.OperationID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark trigger record processed: %w", err)
	}
	return nil
}

// GetTriggerRecord retrieves an archived trigger record by operation id
func (db *DB) GetTriggerRecord(ctx context.Context, operationID int) (*models.TriggerRecord, error) {
	query := `
		SELECT operation_id, security_id, security_ticker, triggered_price,
		       target_price, notification_target, triggered_at, is_processed
		FROM trigger_records
		WHERE operation_id = $1
	`
	rec, err := scanTriggerRecord(db.conn.QueryRowContext(ctx, query, operationID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("trigger record %d: %w", operationID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trigger record: %w", err)
	}
	return rec, nil
}

// GetPendingTriggerRecords retrieves archived records not yet processed
func (db *DB) GetPendingTriggerRecords(ctx context.Context) ([]*models.TriggerRecord, error) {
	query := `
		SELECT operation_id, security_id, security_ticker, triggered_price,
		       target_price, notification_target, triggered_at, is_processed
		FROM trigger_records
		WHERE is_processed = false
		ORDER BY operation_id
	`
	return db.scanTriggerRecords(db.conn.QueryContext(ctx, query))
}

// GetTriggerRecordsByTicker retrieves the most recent records for a ticker
func (db *DB) GetTriggerRecordsByTicker(ctx context.Context, ticker string, limit int) ([]*models.TriggerRecord, error) {
	query := `
		SELECT operation_id, security_id, security_ticker, triggered_price,
		       target_price, notification_target, triggered_at, is_processed
		FROM trigger_records
		WHERE security_ticker = $1
		ORDER BY triggered_at DESC
		LIMIT $2
	`
	return db.scanTriggerRecords(db.conn.QueryContext(ctx, query, ticker, limit))
}

// DeleteTriggerRecordsOlderThan removes archived records triggered before date
func (db *DB) DeleteTriggerRecordsOlderThan(ctx context.Context, date time.Time) (int64, error) {
	query := `DELETE FROM trigger_records WHERE triggered_at < $1`
	result, err := db.conn.ExecContext(ctx, query, date)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old trigger records: %w", err)
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTriggerRecord(row rowScanner) (*models.TriggerRecord, error) {
	var rec models.TriggerRecord
	var triggeredPrice, targetPrice string
	var notificationTarget sql.NullString

	err := row.Scan(
		&rec.OperationID, &rec.SecurityID, &rec.SecurityTicker, &triggeredPrice,
		&targetPrice, &notificationTarget, &rec.TriggeredAt, &rec.IsProcessed,
	)
	if err != nil {
		return nil, err
	}

	if rec.TriggeredPrice, err = decimal.NewFromString(triggeredPrice); err != nil {
		return nil, fmt.Errorf("invalid triggered price %q: %w", triggeredPrice, err)
	}
	if rec.TargetPrice, err = decimal.NewFromString(targetPrice); err != nil {
		return nil, fmt.Errorf("invalid target price %q: %w", targetPrice, err)
	}
	if notificationTarget.Valid {
		rec.NotificationTarget = notificationTarget.String
	}
	return &rec, nil
}

func (db *DB) scanTriggerRecords(rows *sql.Rows, err error) ([]*models.TriggerRecord, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to query trigger records: %w", err)
	}
	defer rows.Close()

	var records []*models.TriggerRecord
	for rows.Next() {
		rec, err := scanTriggerRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trigger record: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}
