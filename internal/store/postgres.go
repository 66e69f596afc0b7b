package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// PostgresStore persists the same shapes the memory store holds,
// storing each aggregate as a JSONB document. Question set ordering is
// kept with a position column; prepends take min(position)-1 so new
// sets list first without renumbering.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) GetPortalConfig(ctx context.Context, env Environment) (PortalConfig, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT config FROM portal_configs WHERE env = $1`, string(env)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return PortalConfig{}, ErrNotFound
	}
	if err != nil {
		return PortalConfig{}, fmt.Errorf("get portal config: %w", err)
	}
	var cfg PortalConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return PortalConfig{}, fmt.Errorf("decode portal config: %w", err)
	}
	return cfg, nil
}

func (s *PostgresStore) ReplacePortalConfig(ctx context.Context, env Environment, cfg PortalConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode portal config: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO portal_configs (env, config, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (env) DO UPDATE SET config = EXCLUDED.config, updated_at = NOW()
	`, string(env), raw)
	if err != nil {
		return fmt.Errorf("replace portal config: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListQuestionSets(ctx context.Context, env Environment) ([]QuestionSet, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT data FROM question_sets WHERE env = $1 ORDER BY position ASC
	`, string(env))
	if err != nil {
		return nil, fmt.Errorf("list question sets: %w", err)
	}
	defer rows.Close()

	out := []QuestionSet{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan question set: %w", err)
		}
		var set QuestionSet
		if err := json.Unmarshal(raw, &set); err != nil {
			return nil, fmt.Errorf("decode question set: %w", err)
		}
		out = append(out, set)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetQuestionSet(ctx context.Context, env Environment, id string) (QuestionSet, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT data FROM question_sets WHERE env = $1 AND id = $2
	`, string(env), id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return QuestionSet{}, ErrNotFound
	}
	if err != nil {
		return QuestionSet{}, fmt.Errorf("get question set: %w", err)
	}
	var set QuestionSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return QuestionSet{}, fmt.Errorf("decode question set: %w", err)
	}
	return set, nil
}

func (s *PostgresStore) InsertQuestionSet(ctx context.Context, env Environment, set QuestionSet) error {
	raw, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("encode question set: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO question_sets (env, id, position, data, updated_at)
		VALUES ($1, $2,
			(SELECT COALESCE(MIN(position), 0) - 1 FROM question_sets WHERE env = $1),
			$3, NOW())
	`, string(env), set.ID, raw)
	if err != nil {
		return fmt.Errorf("insert question set: %w", err)
	}
	return nil
}

func (s *PostgresStore) ReplaceQuestionSet(ctx context.Context, env Environment, set QuestionSet) error {
	raw, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("encode question set: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE question_sets SET data = $3, updated_at = NOW()
		WHERE env = $1 AND id = $2
	`, string(env), set.ID, raw)
	if err != nil {
		return fmt.Errorf("replace question set: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("replace question set: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) UpsertQuestionSet(ctx context.Context, env Environment, set QuestionSet) error {
	raw, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("encode question set: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO question_sets (env, id, position, data, updated_at)
		VALUES ($1, $2,
			(SELECT COALESCE(MIN(position), 0) - 1 FROM question_sets WHERE env = $1),
			$3, NOW())
		ON CONFLICT (env, id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()
	`, string(env), set.ID, raw)
	if err != nil {
		return fmt.Errorf("upsert question set: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAccounts(ctx context.Context) ([]CustomerAccount, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM customer_accounts ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	out := []CustomerAccount{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		var account CustomerAccount
		if err := json.Unmarshal(raw, &account); err != nil {
			return nil, fmt.Errorf("decode account: %w", err)
		}
		out = append(out, account)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SearchAccounts(ctx context.Context, query string) ([]CustomerAccount, error) {
	accounts, err := s.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return accounts, nil
	}
	var out []CustomerAccount
	for _, a := range accounts {
		if accountMatches(a, needle) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *PostgresStore) GetAccount(ctx context.Context, id string) (CustomerAccount, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM customer_accounts WHERE id = $1`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return CustomerAccount{}, ErrNotFound
	}
	if err != nil {
		return CustomerAccount{}, fmt.Errorf("get account: %w", err)
	}
	var account CustomerAccount
	if err := json.Unmarshal(raw, &account); err != nil {
		return CustomerAccount{}, fmt.Errorf("decode account: %w", err)
	}
	return account, nil
}

func (s *PostgresStore) InsertAccount(ctx context.Context, account CustomerAccount) error {
	raw, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("encode account: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO customer_accounts (id, data) VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING
	`, account.ID, raw)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// DeleteAccountDocument removes the document and prepends the audit
// entry inside a single transaction with the account row locked.
func (s *PostgresStore) DeleteAccountDocument(ctx context.Context, accountID, documentID, reason string) (Document, AuditEntry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Document{}, AuditEntry{}, fmt.Errorf("begin delete tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var raw []byte
	err = tx.QueryRowContext(ctx, `
		SELECT data FROM customer_accounts WHERE id = $1 FOR UPDATE
	`, accountID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, AuditEntry{}, ErrNotFound
	}
	if err != nil {
		return Document{}, AuditEntry{}, fmt.Errorf("lock account: %w", err)
	}

	var account CustomerAccount
	if err := json.Unmarshal(raw, &account); err != nil {
		return Document{}, AuditEntry{}, fmt.Errorf("decode account: %w", err)
	}

	idx := -1
	for i, d := range account.Documents {
		if d.ID == documentID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Document{}, AuditEntry{}, ErrNotFound
	}

	doc := account.Documents[idx]
	entry := AuditEntry{
		At:     time.Now().UTC(),
		Event:  "Document deleted",
		Detail: doc.Name + " • Reason: " + reason,
	}
	account.Documents = append(account.Documents[:idx], account.Documents[idx+1:]...)
	account.Audit = append([]AuditEntry{entry}, account.Audit...)

	updated, err := json.Marshal(account)
	if err != nil {
		return Document{}, AuditEntry{}, fmt.Errorf("encode account: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE customer_accounts SET data = $2 WHERE id = $1
	`, accountID, updated); err != nil {
		return Document{}, AuditEntry{}, fmt.Errorf("update account: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Document{}, AuditEntry{}, fmt.Errorf("commit delete tx: %w", err)
	}
	return doc, entry, nil
}
