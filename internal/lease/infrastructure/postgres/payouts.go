package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	lease "lease-escrow/internal/lease/domain"
)

// DeliverPayouts sends up to limit undelivered payouts to the rail, oldest
// first. A refused payout stays queued with its attempt count bumped and is
// retried on a later call under the same reference. Concurrent callers may
// resend a row; the rail dedupes on the reference.
func (s *Store) DeliverPayouts(ctx context.Context, limit int) (int, error) {
	if s.transfer == nil {
		return 0, nil
	}
	if limit <= 0 {
		limit = 100
	}
	pending, err := s.pendingPayouts(ctx, limit)
	if err != nil {
		return 0, err
	}

	var (
		sent     int
		failures []error
	)
	for _, entry := range pending {
		if err := s.transfer(ctx, entry); err != nil {
			failures = append(failures, fmt.Errorf("payout %s to %s: %w", entry.ID, entry.Party, err))
			if _, markErr := s.db.ExecContext(ctx,
				`UPDATE payout_outbox SET attempts = attempts + 1, last_error = $2 WHERE ledger_id = $1`,
				entry.ID, err.Error()); markErr != nil {
				failures = append(failures, markErr)
			}
			continue
		}
		if _, err := s.db.ExecContext(ctx,
			`UPDATE payout_outbox SET sent_at = $2, attempts = attempts + 1, last_error = '' WHERE ledger_id = $1`,
			entry.ID, s.now()); err != nil {
			failures = append(failures, err)
			continue
		}
		sent++
	}
	return sent, errors.Join(failures...)
}

// RunPayouts redelivers queued payouts every interval until ctx is done.
func (s *Store) RunPayouts(ctx context.Context, interval time.Duration, batch int) {
	if s.transfer == nil {
		return
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sent, err := s.DeliverPayouts(ctx, batch)
			if err != nil {
				s.logger.Warn("payout redelivery", zap.Int("sent", sent), zap.Error(err))
			}
		}
	}
}

func (s *Store) pendingPayouts(ctx context.Context, limit int) ([]lease.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT ledger_id, kind, payee, agreement_id, property_id, amount, booked_at
FROM payout_outbox
WHERE sent_at IS NULL
ORDER BY seq
LIMIT $1`, int64(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []lease.LedgerEntry
	for rows.Next() {
		var (
			entry                   lease.LedgerEntry
			kind, payee             string
			agreementID, propertyID sql.NullInt64
		)
		if err := rows.Scan(&entry.ID, &kind, &payee, &agreementID, &propertyID, &entry.Amount, &entry.At); err != nil {
			return nil, err
		}
		entry.Kind = lease.EntryKind(kind)
		entry.Direction = lease.DirectionOut
		entry.Party = lease.Identity(payee)
		if agreementID.Valid {
			entry.AgreementID = lease.AgreementID(agreementID.Int64)
		}
		if propertyID.Valid {
			entry.PropertyID = lease.PropertyID(propertyID.Int64)
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
