package snapshots

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cargo-insurance-service/internal/domain"
	"cargo-insurance-service/internal/platform/obs"
)

// SQLSnapshotStore keeps last-known-good policy projections in Postgres.
// Rows are refreshed after successful live reads and consulted only when a
// per-policy read fails, so a degraded listing can still show the policy
// with a stale marker. Nothing here is authoritative.
type SQLSnapshotStore struct {
	DB *sql.DB
}

func NewSQLSnapshotStore(db *sql.DB) *SQLSnapshotStore {
	return &SQLSnapshotStore{DB: db}
}

// Fetch snapshots for the given policy ids. Missing ids are simply absent.
func (s *SQLSnapshotStore) GetMany(ctx context.Context, ids []uint64) (_ map[uint64]domain.PolicyView, err error) {
	defer obs.Time(ctx, "snapshots.GetMany")(&err)

	if s.DB == nil {
		return nil, errors.New("snapshot store: db is nil")
	}
	if len(ids) == 0 {
		return map[uint64]domain.PolicyView{}, nil
	}

	idArgs := make([]int64, 0, len(ids))
	for _, id := range ids {
		idArgs = append(idArgs, int64(id))
	}

	q := `
	SELECT policy_id, insured, container_id, expected_arrival, actual_arrival,
	       claimed_days, status_code, claimable_days
	FROM policy_snapshots
	WHERE policy_id = ANY($1::bigint[]);
	`
	rows, err := s.DB.QueryContext(ctx, q, idArgs)
	if err != nil {
		return nil, fmt.Errorf("get snapshots: query policy_snapshots: %w", err)
	}
	defer rows.Close()

	out := make(map[uint64]domain.PolicyView, len(ids))
	for rows.Next() {
		var (
			id, expected, actual   int64
			insured, containerID   string
			claimed, claimableDays int64
			status                 int16
		)
		if err := rows.Scan(&id, &insured, &containerID, &expected, &actual, &claimed, &status, &claimableDays); err != nil {
			return nil, fmt.Errorf("get snapshots: scan row: %w", err)
		}
		out[uint64(id)] = domain.PolicyView{
			Policy: domain.Policy{
				PolicyID:        uint64(id),
				Insured:         domain.Address(insured),
				ContainerID:     containerID,
				ExpectedArrival: expected,
				ActualArrival:   actual,
				ClaimedDays:     uint32(claimed),
				StatusCode:      uint8(status),
			},
			ClaimableDays: uint32(claimableDays),
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get snapshots: row iteration: %w", err)
	}

	return out, nil
}

// Store or refresh snapshots for successfully read policies.
func (s *SQLSnapshotStore) PutMany(ctx context.Context, views []domain.PolicyView) error {
	if s.DB == nil {
		return errors.New("snapshot store: db is nil")
	}
	if len(views) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put snapshots: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO policy_snapshots
		(policy_id, insured, container_id, expected_arrival, actual_arrival,
		 claimed_days, status_code, claimable_days, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
	ON CONFLICT (policy_id) DO UPDATE
	SET insured = EXCLUDED.insured,
		container_id = EXCLUDED.container_id,
		expected_arrival = EXCLUDED.expected_arrival,
		actual_arrival = EXCLUDED.actual_arrival,
		claimed_days = EXCLUDED.claimed_days,
		status_code = EXCLUDED.status_code,
		claimable_days = EXCLUDED.claimable_days,
		updated_at = now();
	`)
	if err != nil {
		return fmt.Errorf("put snapshots: db prepare: %w", err)
	}
	defer stmt.Close()

	for _, v := range views {
		if v.Stale {
			// A stale view came from this table; writing it back would
			// only refresh updated_at on old data.
			continue
		}
		_, err := stmt.ExecContext(ctx,
			int64(v.PolicyID), v.Insured.String(), v.ContainerID,
			v.ExpectedArrival, v.ActualArrival,
			int64(v.ClaimedDays), int16(v.StatusCode), int64(v.ClaimableDays),
		)
		if err != nil {
			return fmt.Errorf("put snapshots: policy_id=%d: %w", v.PolicyID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("put snapshots: commit: %w", err)
	}

	return nil
}
