package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	normalization "connector-hub/internal/normalization/domain"
)

const defaultMappingRulesTable = "mapping_rules"

// RuleRepository is a Postgres store for mapping rule definitions. The rule
// body is kept as a JSON document; identifier, name and version are lifted
// into columns for addressing.
type RuleRepository struct {
	db    *sql.DB
	table string
}

// RuleRepositoryOption configures the repository.
type RuleRepositoryOption func(*RuleRepository)

// WithRulesTable overrides the table name.
func WithRulesTable(table string) RuleRepositoryOption {
	return func(repo *RuleRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// NewRuleRepository constructs a repository.
func NewRuleRepository(db *sql.DB, opts ...RuleRepositoryOption) *RuleRepository {
	repo := &RuleRepository{db: db, table: defaultMappingRulesTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// Save upserts a rule definition.
func (r *RuleRepository) Save(ctx context.Context, rule normalization.MappingRule) error {
	if r == nil || r.db == nil {
		return errors.New("rule repo: nil db")
	}
	if err := rule.Validate(); err != nil {
		return err
	}
	definition, err := json.Marshal(rule)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (id, name, version, source_type, definition, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)
ON CONFLICT (id) DO UPDATE SET
  name = EXCLUDED.name,
  version = EXCLUDED.version,
  source_type = EXCLUDED.source_type,
  definition = EXCLUDED.definition,
  updated_at = EXCLUDED.updated_at`, r.table)

	_, err = r.db.ExecContext(ctx, query,
		rule.ID, rule.Name, rule.Version, rule.SourceType, definition, time.Now().UTC())
	return err
}

// Get loads one rule definition by identifier. Returns nil when absent.
func (r *RuleRepository) Get(ctx context.Context, id string) (*normalization.MappingRule, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("rule repo: nil db")
	}
	if id == "" {
		return nil, errors.New("rule repo: empty id")
	}

	query := fmt.Sprintf(`SELECT definition FROM %s WHERE id = $1`, r.table)
	var definition []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(&definition)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rule normalization.MappingRule
	if err := json.Unmarshal(definition, &rule); err != nil {
		return nil, fmt.Errorf("rule repo: corrupt definition for %q: %w", id, err)
	}
	return &rule, nil
}

// List loads all rule definitions ordered by identifier.
func (r *RuleRepository) List(ctx context.Context) ([]normalization.MappingRule, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("rule repo: nil db")
	}

	query := fmt.Sprintf(`SELECT definition FROM %s ORDER BY id ASC`, r.table)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []normalization.MappingRule
	for rows.Next() {
		var definition []byte
		if err := rows.Scan(&definition); err != nil {
			return nil, err
		}
		var rule normalization.MappingRule
		if err := json.Unmarshal(definition, &rule); err != nil {
			return nil, fmt.Errorf("rule repo: corrupt definition: %w", err)
		}
		result = append(result, rule)
	}
	return result, rows.Err()
}
