package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	lease "lease-escrow/internal/lease/domain"
)

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

type propertyRepo struct{ tx *sql.Tx }

const propertyColumns = `id, landlord, address, description, monthly_rent, security_deposit, status, min_maintenance_score, iot_enabled, listed_at`

func (r propertyRepo) NextID(ctx context.Context) (lease.PropertyID, error) {
	var id int64
	if err := r.tx.QueryRowContext(ctx, `SELECT nextval('property_id_seq')`).Scan(&id); err != nil {
		return 0, err
	}
	return lease.PropertyID(id), nil
}

func (r propertyRepo) Get(ctx context.Context, id lease.PropertyID) (lease.Property, error) {
	row := r.tx.QueryRowContext(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = $1 FOR UPDATE`, int64(id))
	property, err := scanProperty(row)
	if errors.Is(err, sql.ErrNoRows) {
		return lease.Property{}, lease.ErrPropertyNotFound
	}
	return property, err
}

func (r propertyRepo) Save(ctx context.Context, p lease.Property) error {
	_, err := r.tx.ExecContext(ctx, `
INSERT INTO properties (`+propertyColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id)
DO UPDATE SET
	status = EXCLUDED.status,
	address = EXCLUDED.address,
	description = EXCLUDED.description`,
		int64(p.ID), string(p.Landlord), p.Address, p.Description, p.MonthlyRent, p.SecurityDeposit,
		string(p.Status), int(p.MinMaintenanceScore), p.IoTEnabled, p.ListedAt.UTC())
	return err
}

func (r propertyRepo) ListByLandlord(ctx context.Context, landlord lease.Identity) ([]lease.Property, error) {
	rows, err := r.tx.QueryContext(ctx, `SELECT `+propertyColumns+` FROM properties WHERE landlord = $1 ORDER BY id`, string(landlord))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []lease.Property
	for rows.Next() {
		property, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, property)
	}
	return result, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProperty(row scanner) (lease.Property, error) {
	var (
		p        lease.Property
		id       int64
		landlord string
		status   string
		minScore int
	)
	err := row.Scan(&id, &landlord, &p.Address, &p.Description, &p.MonthlyRent, &p.SecurityDeposit,
		&status, &minScore, &p.IoTEnabled, &p.ListedAt)
	if err != nil {
		return lease.Property{}, err
	}
	p.ID = lease.PropertyID(id)
	p.Landlord = lease.Identity(landlord)
	p.Status = lease.PropertyStatus(status)
	p.MinMaintenanceScore = uint8(minScore)
	return p, nil
}

type agreementRepo struct{ tx *sql.Tx }

const agreementColumns = `id, property_id, tenant, landlord, monthly_rent, security_deposit, start_date, end_date,
	last_rent_payment, total_paid_rent, active, dispute_status, dispute_raised_by, dispute_stake,
	deposit_settled, created_at, terminated_at`

func (r agreementRepo) NextID(ctx context.Context) (lease.AgreementID, error) {
	var id int64
	if err := r.tx.QueryRowContext(ctx, `SELECT nextval('agreement_id_seq')`).Scan(&id); err != nil {
		return 0, err
	}
	return lease.AgreementID(id), nil
}

func (r agreementRepo) Get(ctx context.Context, id lease.AgreementID) (lease.RentalAgreement, error) {
	row := r.tx.QueryRowContext(ctx, `SELECT `+agreementColumns+` FROM rental_agreements WHERE id = $1 FOR UPDATE`, int64(id))
	agreement, err := scanAgreement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return lease.RentalAgreement{}, lease.ErrAgreementNotFound
	}
	return agreement, err
}

func (r agreementRepo) Save(ctx context.Context, a lease.RentalAgreement) error {
	_, err := r.tx.ExecContext(ctx, `
INSERT INTO rental_agreements (`+agreementColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
ON CONFLICT (id)
DO UPDATE SET
	last_rent_payment = EXCLUDED.last_rent_payment,
	total_paid_rent = EXCLUDED.total_paid_rent,
	active = EXCLUDED.active,
	dispute_status = EXCLUDED.dispute_status,
	dispute_raised_by = EXCLUDED.dispute_raised_by,
	dispute_stake = EXCLUDED.dispute_stake,
	deposit_settled = EXCLUDED.deposit_settled,
	terminated_at = EXCLUDED.terminated_at`,
		int64(a.ID), int64(a.PropertyID), string(a.Tenant), string(a.Landlord), a.MonthlyRent, a.SecurityDeposit,
		a.StartDate.UTC(), a.EndDate.UTC(), a.LastRentPayment.UTC(), a.TotalPaidRent, a.Active,
		string(a.DisputeStatus), string(a.DisputeRaisedBy), a.DisputeStake, a.DepositSettled,
		a.CreatedAt.UTC(), nullTime(a.TerminatedAt))
	return err
}

func (r agreementRepo) ListByTenant(ctx context.Context, tenant lease.Identity) ([]lease.RentalAgreement, error) {
	rows, err := r.tx.QueryContext(ctx, `SELECT `+agreementColumns+` FROM rental_agreements WHERE tenant = $1 ORDER BY id`, string(tenant))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []lease.RentalAgreement
	for rows.Next() {
		agreement, err := scanAgreement(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, agreement)
	}
	return result, rows.Err()
}

func scanAgreement(row scanner) (lease.RentalAgreement, error) {
	var (
		a                                  lease.RentalAgreement
		id, propertyID                     int64
		tenant, landlord, status, raisedBy string
		terminatedAt                       sql.NullTime
	)
	err := row.Scan(&id, &propertyID, &tenant, &landlord, &a.MonthlyRent, &a.SecurityDeposit, &a.StartDate, &a.EndDate,
		&a.LastRentPayment, &a.TotalPaidRent, &a.Active, &status, &raisedBy, &a.DisputeStake,
		&a.DepositSettled, &a.CreatedAt, &terminatedAt)
	if err != nil {
		return lease.RentalAgreement{}, err
	}
	a.ID = lease.AgreementID(id)
	a.PropertyID = lease.PropertyID(propertyID)
	a.Tenant = lease.Identity(tenant)
	a.Landlord = lease.Identity(landlord)
	a.DisputeStatus = lease.DisputeStatus(status)
	a.DisputeRaisedBy = lease.Identity(raisedBy)
	if terminatedAt.Valid {
		a.TerminatedAt = terminatedAt.Time
	}
	return a, nil
}

type escrowRepo struct{ tx *sql.Tx }

func (r escrowRepo) Get(ctx context.Context, id lease.AgreementID) (lease.EscrowAccount, error) {
	account := lease.EscrowAccount{AgreementID: id}
	var lastRelease sql.NullTime
	err := r.tx.QueryRowContext(ctx, `
SELECT accrued, released, last_release_at
FROM escrow_accounts
WHERE agreement_id = $1
FOR UPDATE`, int64(id)).Scan(&account.Accrued, &account.Released, &lastRelease)
	if errors.Is(err, sql.ErrNoRows) {
		return account, nil
	}
	if err != nil {
		return lease.EscrowAccount{}, err
	}
	if lastRelease.Valid {
		account.LastReleaseAt = lastRelease.Time
	}
	return account, nil
}

func (r escrowRepo) Save(ctx context.Context, account lease.EscrowAccount) error {
	_, err := r.tx.ExecContext(ctx, `
INSERT INTO escrow_accounts (agreement_id, accrued, released, last_release_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (agreement_id)
DO UPDATE SET
	accrued = EXCLUDED.accrued,
	released = EXCLUDED.released,
	last_release_at = EXCLUDED.last_release_at`,
		int64(account.AgreementID), account.Accrued, account.Released, nullTime(account.LastReleaseAt))
	return err
}

type conditionRepo struct{ tx *sql.Tx }

func (r conditionRepo) Get(ctx context.Context, id lease.PropertyID) (lease.MaintenanceSnapshot, bool, error) {
	var (
		s                                     lease.MaintenanceSnapshot
		temperature, plumbing, security, over int
		reporter                              string
	)
	err := r.tx.QueryRowContext(ctx, `
SELECT temperature, plumbing, security, overall, updated_at, reported_by
FROM condition_reports
WHERE property_id = $1`, int64(id)).Scan(&temperature, &plumbing, &security, &over, &s.UpdatedAt, &reporter)
	if errors.Is(err, sql.ErrNoRows) {
		return lease.MaintenanceSnapshot{}, false, nil
	}
	if err != nil {
		return lease.MaintenanceSnapshot{}, false, err
	}
	s.PropertyID = id
	s.Temperature = uint8(temperature)
	s.Plumbing = uint8(plumbing)
	s.Security = uint8(security)
	s.Overall = uint8(over)
	s.ReportedBy = lease.Identity(reporter)
	return s, true, nil
}

func (r conditionRepo) Save(ctx context.Context, s lease.MaintenanceSnapshot) error {
	_, err := r.tx.ExecContext(ctx, `
INSERT INTO condition_reports (property_id, temperature, plumbing, security, overall, updated_at, reported_by)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (property_id)
DO UPDATE SET
	temperature = EXCLUDED.temperature,
	plumbing = EXCLUDED.plumbing,
	security = EXCLUDED.security,
	overall = EXCLUDED.overall,
	updated_at = EXCLUDED.updated_at,
	reported_by = EXCLUDED.reported_by`,
		int64(s.PropertyID), int(s.Temperature), int(s.Plumbing), int(s.Security), int(s.Overall), s.UpdatedAt.UTC(), string(s.ReportedBy))
	return err
}

type maintenanceRepo struct{ tx *sql.Tx }

const maintenanceColumns = `property_id, request_id, agreement_id, requester, description, requested_at, resolved, cost, resolved_at`

// Append numbers the request after the highest existing position. The caller
// holds the property row lock, so positions cannot collide.
func (r maintenanceRepo) Append(ctx context.Context, m lease.MaintenanceRequest) (lease.RequestID, error) {
	var next int64
	err := r.tx.QueryRowContext(ctx, `
INSERT INTO maintenance_requests (`+maintenanceColumns+`)
SELECT $1, COALESCE(MAX(request_id), 0) + 1, $2, $3, $4, $5, FALSE, 0, NULL
FROM maintenance_requests
WHERE property_id = $1
RETURNING request_id`,
		int64(m.PropertyID), int64(m.AgreementID), string(m.Requester), m.Description, m.RequestedAt.UTC()).Scan(&next)
	if err != nil {
		return 0, err
	}
	return lease.RequestID(next), nil
}

func (r maintenanceRepo) Get(ctx context.Context, propertyID lease.PropertyID, id lease.RequestID) (lease.MaintenanceRequest, error) {
	row := r.tx.QueryRowContext(ctx, `
SELECT `+maintenanceColumns+`
FROM maintenance_requests
WHERE property_id = $1 AND request_id = $2
FOR UPDATE`, int64(propertyID), int64(id))
	request, err := scanMaintenance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return lease.MaintenanceRequest{}, lease.ErrRequestNotFound
	}
	return request, err
}

func (r maintenanceRepo) Save(ctx context.Context, m lease.MaintenanceRequest) error {
	result, err := r.tx.ExecContext(ctx, `
UPDATE maintenance_requests
SET resolved = $3, cost = $4, resolved_at = $5
WHERE property_id = $1 AND request_id = $2`,
		int64(m.PropertyID), int64(m.ID), m.Resolved, m.Cost, nullTime(m.ResolvedAt))
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return lease.ErrRequestNotFound
	}
	return nil
}

func (r maintenanceRepo) List(ctx context.Context, propertyID lease.PropertyID) ([]lease.MaintenanceRequest, error) {
	rows, err := r.tx.QueryContext(ctx, `
SELECT `+maintenanceColumns+`
FROM maintenance_requests
WHERE property_id = $1
ORDER BY request_id`, int64(propertyID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []lease.MaintenanceRequest
	for rows.Next() {
		request, err := scanMaintenance(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, request)
	}
	return result, rows.Err()
}

func scanMaintenance(row scanner) (lease.MaintenanceRequest, error) {
	var (
		m                           lease.MaintenanceRequest
		propertyID, id, agreementID int64
		requester                   string
		resolvedAt                  sql.NullTime
	)
	err := row.Scan(&propertyID, &id, &agreementID, &requester, &m.Description, &m.RequestedAt, &m.Resolved, &m.Cost, &resolvedAt)
	if err != nil {
		return lease.MaintenanceRequest{}, err
	}
	m.PropertyID = lease.PropertyID(propertyID)
	m.ID = lease.RequestID(id)
	m.AgreementID = lease.AgreementID(agreementID)
	m.Requester = lease.Identity(requester)
	if resolvedAt.Valid {
		m.ResolvedAt = resolvedAt.Time
	}
	return m, nil
}

type platformRepo struct{ tx *sql.Tx }

func (r platformRepo) Get(ctx context.Context) (lease.Platform, error) {
	var (
		p          lease.Platform
		operator   string
		feePercent int
	)
	err := r.tx.QueryRowContext(ctx, `
SELECT operator, fee_percent, dispute_deposit, fee_pool, held_stakes
FROM platform_state
WHERE id = 1
FOR UPDATE`).Scan(&operator, &feePercent, &p.DisputeDeposit, &p.FeePool, &p.HeldStakes)
	if errors.Is(err, sql.ErrNoRows) {
		return lease.Platform{}, errors.New("lease store: platform not initialised")
	}
	if err != nil {
		return lease.Platform{}, err
	}
	p.Operator = lease.Identity(operator)
	p.FeePercent = uint8(feePercent)
	return p, nil
}

func (r platformRepo) Save(ctx context.Context, p lease.Platform) error {
	_, err := r.tx.ExecContext(ctx, `
UPDATE platform_state
SET operator = $1, fee_percent = $2, dispute_deposit = $3, fee_pool = $4, held_stakes = $5
WHERE id = 1`, string(p.Operator), int(p.FeePercent), p.DisputeDeposit, p.FeePool, p.HeldStakes)
	return err
}
