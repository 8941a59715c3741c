package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lease-escrow/internal/lease/application"
	lease "lease-escrow/internal/lease/domain"
)

var fixedNow = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func setupMockStore(t *testing.T, opts ...Option) (*sql.DB, sqlmock.Sqlmock, *Store) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	store, err := NewStore(db, opts...)
	require.NoError(t, err)
	return db, mock, store
}

func TestNewStore_NilDB(t *testing.T) {
	_, err := NewStore(nil)
	require.Error(t, err)
}

func TestGetProperty_NotFound(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM properties WHERE id = \$1 FOR UPDATE`).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := store.Atomic(context.Background(), func(ctx context.Context, tx application.Tx) error {
		_, err := tx.Properties().Get(ctx, 9)
		return err
	})

	assert.ErrorIs(t, err, lease.ErrPropertyNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAgreement_ScansRow(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	start := fixedNow.Add(24 * time.Hour)
	rows := sqlmock.NewRows([]string{
		"id", "property_id", "tenant", "landlord", "monthly_rent", "security_deposit", "start_date", "end_date",
		"last_rent_payment", "total_paid_rent", "active", "dispute_status", "dispute_raised_by", "dispute_stake",
		"deposit_settled", "created_at", "terminated_at",
	}).AddRow(
		int64(3), int64(1), "tenant", "landlord", int64(1000), int64(2000), start, start.AddDate(1, 0, 0),
		fixedNow, int64(1000), true, "pending", "landlord", int64(100),
		false, fixedNow, nil,
	)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM rental_agreements WHERE id = \$1 FOR UPDATE`).
		WithArgs(int64(3)).
		WillReturnRows(rows)
	mock.ExpectCommit()

	var got lease.RentalAgreement
	err := store.Atomic(context.Background(), func(ctx context.Context, tx application.Tx) error {
		var err error
		got, err = tx.Agreements().Get(ctx, 3)
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, lease.AgreementID(3), got.ID)
	assert.Equal(t, lease.DisputePending, got.DisputeStatus)
	assert.Equal(t, lease.Identity("landlord"), got.DisputeRaisedBy)
	assert.True(t, got.TerminatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEscrowGet_MissingRowIsZeroAccount(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM escrow_accounts`).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"accrued", "released", "last_release_at"}))
	mock.ExpectCommit()

	var account lease.EscrowAccount
	err := store.Atomic(context.Background(), func(ctx context.Context, tx application.Tx) error {
		var err error
		account, err = tx.Escrow().Get(ctx, 4)
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, lease.EscrowAccount{AgreementID: 4}, account)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVaultPay_InsufficientCustody(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE platform_state`).
		WithArgs(int64(50)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.Atomic(context.Background(), func(ctx context.Context, tx application.Tx) error {
		return tx.Vault().Pay(ctx, "landlord", 50, lease.Memo{Kind: lease.EntryRentRelease, AgreementID: 1})
	})

	assert.ErrorIs(t, err, lease.ErrInsufficientCustody)
	require.NoError(t, mock.ExpectationsWereMet())
}

func pendingPayoutRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"ledger_id", "kind", "payee", "agreement_id", "property_id", "amount", "booked_at"})
}

func expectQueuedPayout(mock sqlmock.Sqlmock, payee, kind string, amount int64) {
	mock.ExpectExec(`UPDATE platform_state`).
		WithArgs(amount).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO ledger_entries`).
		WithArgs(sqlmock.AnyArg(), kind, "out", payee, int64(7), nil, amount, fixedNow).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO payout_outbox`).
		WithArgs(sqlmock.AnyArg(), payee, amount, kind, int64(7), nil, fixedNow).
		WillReturnResult(sqlmock.NewResult(1, 1))
}

func TestTermination_RefusedDepositPayoutIsRedeliveredOnce(t *testing.T) {
	refuse := map[string]bool{"led-deposit": true}
	accepted := map[string]int64{}
	var attempts []string
	db, mock, store := setupMockStore(t, WithTransfer(func(_ context.Context, entry lease.LedgerEntry) error {
		attempts = append(attempts, entry.ID)
		if refuse[entry.ID] {
			delete(refuse, entry.ID)
			return errors.New("payee bank offline")
		}
		accepted[entry.ID] += entry.Amount
		return nil
	}))
	defer db.Close()

	mock.ExpectBegin()
	expectQueuedPayout(mock, "landlord", "escrow_settlement", 1000)
	expectQueuedPayout(mock, "tenant", "deposit_return", 2000)
	mock.ExpectCommit()
	mock.ExpectQuery(`FROM payout_outbox`).
		WithArgs(int64(2)).
		WillReturnRows(pendingPayoutRows().
			AddRow("led-escrow", "escrow_settlement", "landlord", int64(7), nil, int64(1000), fixedNow).
			AddRow("led-deposit", "deposit_return", "tenant", int64(7), nil, int64(2000), fixedNow))
	mock.ExpectExec(`UPDATE payout_outbox SET sent_at`).
		WithArgs("led-escrow", fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE payout_outbox SET attempts`).
		WithArgs("led-deposit", "payee bank offline").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Atomic(context.Background(), func(ctx context.Context, tx application.Tx) error {
		if err := tx.Vault().Pay(ctx, "landlord", 1000, lease.Memo{Kind: lease.EntrySettlement, AgreementID: 7}); err != nil {
			return err
		}
		return tx.Vault().Pay(ctx, "tenant", 2000, lease.Memo{Kind: lease.EntryDepositReturn, AgreementID: 7})
	})
	require.NoError(t, err, "a refused rail transfer must not roll back the committed termination")

	mock.ExpectQuery(`FROM payout_outbox`).
		WithArgs(int64(10)).
		WillReturnRows(pendingPayoutRows().
			AddRow("led-deposit", "deposit_return", "tenant", int64(7), nil, int64(2000), fixedNow))
	mock.ExpectExec(`UPDATE payout_outbox SET sent_at`).
		WithArgs("led-deposit", fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))

	sent, err := store.DeliverPayouts(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	assert.Equal(t, []string{"led-escrow", "led-deposit", "led-deposit"}, attempts)
	assert.Equal(t, map[string]int64{"led-escrow": 1000, "led-deposit": 2000}, accepted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVaultPay_RolledBackUnitQueuesNothing(t *testing.T) {
	var attempts int
	db, mock, store := setupMockStore(t, WithTransfer(func(context.Context, lease.LedgerEntry) error {
		attempts++
		return nil
	}))
	defer db.Close()

	mock.ExpectBegin()
	expectQueuedPayout(mock, "landlord", "escrow_settlement", 1000)
	mock.ExpectRollback()

	failed := errors.New("deposit bookkeeping failed")
	err := store.Atomic(context.Background(), func(ctx context.Context, tx application.Tx) error {
		if err := tx.Vault().Pay(ctx, "landlord", 1000, lease.Memo{Kind: lease.EntrySettlement, AgreementID: 7}); err != nil {
			return err
		}
		return failed
	})

	assert.ErrorIs(t, err, failed)
	assert.Zero(t, attempts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeliverPayouts_WithoutRailIsNoop(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	sent, err := store.DeliverPayouts(context.Background(), 10)
	require.NoError(t, err)
	assert.Zero(t, sent)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAtomic_NestedFailureRollsBackToSavepoint(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`^SAVEPOINT lease_sp_1$`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE platform_state`).
		WithArgs(int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`^ROLLBACK TO SAVEPOINT lease_sp_1$`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	var inner error
	err := store.Atomic(context.Background(), func(ctx context.Context, _ application.Tx) error {
		inner = store.Atomic(ctx, func(ctx context.Context, tx application.Tx) error {
			tx.Emit(application.PropertyListed{PropertyID: "prop-1"})
			return tx.Vault().Pay(ctx, "tenant", 10, lease.Memo{Kind: lease.EntryRefund})
		})
		return nil
	})

	require.NoError(t, err)
	assert.ErrorIs(t, inner, lease.ErrInsufficientCustody)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAtomic_WritesEventsToOutboxBeforeCommit(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO event_outbox`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "application.PropertyListed", "prop-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := store.Atomic(context.Background(), func(_ context.Context, tx application.Tx) error {
		tx.Emit(application.PropertyListed{PropertyID: "prop-1", Landlord: "landlord", MonthlyRent: 1000})
		return nil
	})

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMaintenanceAppend_ReturnsNextPosition(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO maintenance_requests`).
		WithArgs(int64(2), int64(5), "tenant", "leaking tap", fixedNow).
		WillReturnRows(sqlmock.NewRows([]string{"request_id"}).AddRow(int64(3)))
	mock.ExpectCommit()

	var id lease.RequestID
	err := store.Atomic(context.Background(), func(ctx context.Context, tx application.Tx) error {
		var err error
		id, err = tx.Maintenance().Append(ctx, lease.MaintenanceRequest{
			PropertyID:  2,
			AgreementID: 5,
			Requester:   "tenant",
			Description: "leaking tap",
			RequestedAt: fixedNow,
		})
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, lease.RequestID(3), id)
	require.NoError(t, mock.ExpectationsWereMet())
}
