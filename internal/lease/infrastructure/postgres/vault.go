package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	lease "lease-escrow/internal/lease/domain"
)

// vault keeps custody as a column on the platform row and books every movement
// in ledger_entries within the unit's transaction.
type vault struct{ unit *unitTx }

func (v vault) Collect(ctx context.Context, from lease.Identity, amount int64, memo lease.Memo) error {
	if amount < 0 {
		return lease.ErrNegativeAmount
	}
	if amount == 0 {
		return nil
	}
	result, err := v.unit.tx.ExecContext(ctx, `
UPDATE platform_state
SET custody = custody + $1
WHERE id = 1 AND custody <= 9223372036854775807 - $1`, amount)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return lease.ErrAmountOverflow
	}
	_, err = v.record(ctx, from, lease.DirectionIn, amount, memo)
	return err
}

// Pay books the transfer. With a rail configured the payout is also queued in
// payout_outbox under the ledger entry id and delivered after commit.
func (v vault) Pay(ctx context.Context, to lease.Identity, amount int64, memo lease.Memo) error {
	if amount < 0 {
		return lease.ErrNegativeAmount
	}
	if amount == 0 {
		return nil
	}
	result, err := v.unit.tx.ExecContext(ctx, `
UPDATE platform_state
SET custody = custody - $1
WHERE id = 1 AND custody >= $1`, amount)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return lease.ErrInsufficientCustody
	}
	id, err := v.record(ctx, to, lease.DirectionOut, amount, memo)
	if err != nil {
		return err
	}
	if v.unit.store.transfer == nil {
		return nil
	}
	if _, err := v.unit.tx.ExecContext(ctx, `
INSERT INTO payout_outbox (ledger_id, payee, amount, kind, agreement_id, property_id, booked_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, string(to), amount, string(memo.Kind),
		optionalID(uint64(memo.AgreementID)), optionalID(uint64(memo.PropertyID)), v.unit.store.now()); err != nil {
		return fmt.Errorf("postgres vault: queue payout: %w", err)
	}
	v.unit.payouts++
	return nil
}

// Entries returns the movements of party in booking order, or all movements
// when party is empty.
func (v vault) Entries(ctx context.Context, party lease.Identity) ([]lease.LedgerEntry, error) {
	query := `
SELECT id, kind, direction, party, agreement_id, property_id, amount, at
FROM ledger_entries`
	var args []any
	if party != "" {
		query += ` WHERE party = $1`
		args = append(args, string(party))
	}
	query += ` ORDER BY seq`

	rows, err := v.unit.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []lease.LedgerEntry
	for rows.Next() {
		var (
			entry                   lease.LedgerEntry
			kind, direction, payee  string
			agreementID, propertyID sql.NullInt64
		)
		if err := rows.Scan(&entry.ID, &kind, &direction, &payee, &agreementID, &propertyID, &entry.Amount, &entry.At); err != nil {
			return nil, err
		}
		entry.Kind = lease.EntryKind(kind)
		entry.Direction = lease.Direction(direction)
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

func (v vault) record(ctx context.Context, party lease.Identity, direction lease.Direction, amount int64, memo lease.Memo) (string, error) {
	id := "led-" + uuid.NewString()
	_, err := v.unit.tx.ExecContext(ctx, `
INSERT INTO ledger_entries (id, kind, direction, party, agreement_id, property_id, amount, at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, string(memo.Kind), string(direction), string(party),
		optionalID(uint64(memo.AgreementID)), optionalID(uint64(memo.PropertyID)), amount, v.unit.store.now())
	return id, err
}

func optionalID(id uint64) sql.NullInt64 {
	if id == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(id), Valid: true}
}
