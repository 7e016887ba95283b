package approval

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// PostgresStore persists approval requests in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed request store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const requestColumns = `id, rule_id, action, scope, wallet_id, account_id, asset_id,
	value, description, required_guardians, decisions, status, created_at, expires_at, updated_at`

// Migrate creates the approval_requests table if it does not exist.
// The goose migrations under migrations/ are the canonical schema; this is
// the fallback for deployments that skip the migrate binary.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS approval_requests (
			id TEXT PRIMARY KEY,
			rule_id TEXT NOT NULL,
			action TEXT NOT NULL,
			scope TEXT NOT NULL,
			wallet_id TEXT NOT NULL DEFAULT '',
			account_id TEXT NOT NULL DEFAULT '',
			asset_id TEXT NOT NULL DEFAULT '',
			value BIGINT NOT NULL DEFAULT 0,
			description TEXT NOT NULL DEFAULT '',
			required_guardians JSONB NOT NULL DEFAULT '[]',
			decisions JSONB NOT NULL DEFAULT '[]',
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_approval_requests_wallet ON approval_requests(wallet_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_approval_requests_status ON approval_requests(status, created_at DESC)`)
	return err
}

func (p *PostgresStore) Create(ctx context.Context, req *Request) error {
	guardiansJSON, decisionsJSON, err := marshalRequestJSON(req)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO approval_requests (`+requestColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		req.ID, req.RuleID, string(req.Action), string(req.Scope),
		req.WalletID, req.AccountID, req.AssetID,
		req.Value, req.Description, guardiansJSON, decisionsJSON,
		string(req.Status), req.CreatedAt, req.ExpiresAt, req.UpdatedAt,
	)
	return err
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Request, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT `+requestColumns+` FROM approval_requests WHERE id = $1`, id)
	return scanRequest(row)
}

func (p *PostgresStore) Update(ctx context.Context, req *Request) error {
	guardiansJSON, decisionsJSON, err := marshalRequestJSON(req)
	if err != nil {
		return err
	}
	res, err := p.db.ExecContext(ctx, `
		UPDATE approval_requests
		SET decisions = $2, status = $3, updated_at = $4, required_guardians = $5
		WHERE id = $1`,
		req.ID, decisionsJSON, string(req.Status), req.UpdatedAt, guardiansJSON,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRequestNotFound
	}
	return nil
}

func (p *PostgresStore) List(ctx context.Context, walletID string, limit int) ([]*Request, error) {
	query := `SELECT ` + requestColumns + ` FROM approval_requests`
	args := []any{}
	if walletID != "" {
		query += ` WHERE wallet_id = $1`
		args = append(args, walletID)
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, limit)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanRequests(rows)
}

func (p *PostgresStore) ListByStatus(ctx context.Context, status Status, limit int) ([]*Request, error) {
	query := `SELECT ` + requestColumns + ` FROM approval_requests WHERE status = $1 ORDER BY created_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, limit)
	}

	rows, err := p.db.QueryContext(ctx, query, string(status))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanRequests(rows)
}

// LoadGuardians reads the configured guardian set.
func (p *PostgresStore) LoadGuardians(ctx context.Context) ([]Guardian, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, label, role, contact, status FROM guardians ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var result []Guardian
	for rows.Next() {
		var g Guardian
		var role, status string
		if err := rows.Scan(&g.ID, &g.Label, &role, &g.Contact, &status); err != nil {
			return nil, err
		}
		g.Role = Role(role)
		g.Status = GuardianStatus(status)
		result = append(result, g)
	}
	return result, rows.Err()
}

// LoadRules reads the rule catalog in configured order.
func (p *PostgresStore) LoadRules(ctx context.Context) ([]Rule, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, scope, action, account_id, asset_id, threshold_value,
			min_approvals, guardian_ids, description
		FROM guardian_rules ORDER BY position, id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var result []Rule
	for rows.Next() {
		var r Rule
		var scope, action string
		var threshold sql.NullInt64
		var guardiansJSON []byte
		if err := rows.Scan(&r.ID, &scope, &action, &r.AccountID, &r.AssetID,
			&threshold, &r.MinApprovals, &guardiansJSON, &r.Description); err != nil {
			return nil, err
		}
		r.Scope = RuleScope(scope)
		r.Action = RuleAction(action)
		if threshold.Valid {
			v := threshold.Int64
			r.ThresholdValue = &v
		}
		if err := json.Unmarshal(guardiansJSON, &r.GuardianIDs); err != nil {
			return nil, fmt.Errorf("approval: corrupt guardian_ids for rule %s: %w", r.ID, err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func marshalRequestJSON(req *Request) (guardians, decisions []byte, err error) {
	guardians, err = json.Marshal(req.RequiredGuardians)
	if err != nil {
		return nil, nil, err
	}
	decisions, err = json.Marshal(req.Decisions)
	if err != nil {
		return nil, nil, err
	}
	return guardians, decisions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*Request, error) {
	var req Request
	var action, scope, status string
	var guardiansJSON, decisionsJSON []byte

	err := row.Scan(
		&req.ID, &req.RuleID, &action, &scope,
		&req.WalletID, &req.AccountID, &req.AssetID,
		&req.Value, &req.Description, &guardiansJSON, &decisionsJSON,
		&status, &req.CreatedAt, &req.ExpiresAt, &req.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}

	req.Action = RuleAction(action)
	req.Scope = RuleScope(scope)
	req.Status = Status(status)
	if err := json.Unmarshal(guardiansJSON, &req.RequiredGuardians); err != nil {
		return nil, fmt.Errorf("approval: corrupt required_guardians for %s: %w", req.ID, err)
	}
	if err := json.Unmarshal(decisionsJSON, &req.Decisions); err != nil {
		return nil, fmt.Errorf("approval: corrupt decisions for %s: %w", req.ID, err)
	}
	return &req, nil
}

func scanRequests(rows *sql.Rows) ([]*Request, error) {
	var result []*Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, req)
	}
	return result, rows.Err()
}

var _ Store = (*PostgresStore)(nil)
