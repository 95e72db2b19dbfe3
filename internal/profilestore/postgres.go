package profilestore

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/account-lifecycle/internal/domain"
)

// pgStore is the Postgres backing for profile records.
type pgStore struct {
	pool *pgxpool.Pool
}

func newPGStore(pool *pgxpool.Pool) *pgStore {
	return &pgStore{pool: pool}
}

func (r *pgStore) insert(ctx context.Context, profile *domain.Profile) error {
	const query = `
        INSERT INTO profiles (account_id, approval_status, activity_status, status_reason,
            hold_duration_days, hold_start, hold_end, employee_id, joining_date)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING last_updated, created_at`

	return r.pool.QueryRow(ctx, query,
		profile.AccountID,
		profile.ApprovalStatus,
		profile.ActivityStatus,
		profile.StatusReason,
		profile.HoldDurationDays,
		profile.HoldStart,
		profile.HoldEnd,
		profile.EmployeeID,
		profile.JoiningDate,
	).Scan(&profile.LastUpdated, &profile.CreatedAt)
}

func (r *pgStore) fetch(ctx context.Context, accountID string) (*domain.Profile, error) {
	const query = `
        SELECT account_id, approval_status, activity_status, status_reason,
               hold_duration_days, hold_start, hold_end, employee_id, joining_date,
               last_updated, created_at
        FROM profiles WHERE account_id=$1`

	var profile domain.Profile
	if err := r.pool.QueryRow(ctx, query, accountID).Scan(
		&profile.AccountID,
		&profile.ApprovalStatus,
		&profile.ActivityStatus,
		&profile.StatusReason,
		&profile.HoldDurationDays,
		&profile.HoldStart,
		&profile.HoldEnd,
		&profile.EmployeeID,
		&profile.JoiningDate,
		&profile.LastUpdated,
		&profile.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &profile, nil
}

// update merges the patch into the current row and writes the full record
// back. Last write wins; the lifecycle design accepts the resulting benign
// race between a user activate and an operator suspend. last_updated is
// advanced by the database so it stays strictly increasing per account.
func (r *pgStore) update(ctx context.Context, accountID string, patch PartialUpdate) (*domain.Profile, error) {
	current, err := r.fetch(ctx, accountID)
	if err != nil {
		return nil, err
	}

	merged := *current
	if patch.ApprovalStatus != nil {
		merged.ApprovalStatus = *patch.ApprovalStatus
	}
	if patch.ActivityStatus != nil {
		merged.ActivityStatus = *patch.ActivityStatus
	}
	if patch.StatusReason != nil {
		merged.StatusReason = patch.StatusReason
	}
	if patch.ClearHold {
		merged.HoldDurationDays = nil
		merged.HoldStart = nil
		merged.HoldEnd = nil
	}
	if patch.SetHold != nil {
		days := patch.SetHold.DurationDays
		start := patch.SetHold.Start
		end := patch.SetHold.End
		merged.HoldDurationDays = &days
		merged.HoldStart = &start
		merged.HoldEnd = &end
	}
	if patch.EmployeeID != nil {
		merged.EmployeeID = patch.EmployeeID
	}
	if patch.JoiningDate != nil {
		merged.JoiningDate = patch.JoiningDate
	}

	const query = `
        UPDATE profiles SET approval_status=$1, activity_status=$2, status_reason=$3,
            hold_duration_days=$4, hold_start=$5, hold_end=$6, employee_id=$7,
            joining_date=$8, last_updated=NOW()
        WHERE account_id=$9
        RETURNING last_updated`

	if err := r.pool.QueryRow(ctx, query,
		merged.ApprovalStatus,
		merged.ActivityStatus,
		merged.StatusReason,
		merged.HoldDurationDays,
		merged.HoldStart,
		merged.HoldEnd,
		merged.EmployeeID,
		merged.JoiningDate,
		accountID,
	).Scan(&merged.LastUpdated); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &merged, nil
}
