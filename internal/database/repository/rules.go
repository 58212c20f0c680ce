package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/finch-money/finch/internal/rules"
)

// RuleRepo stores rule definitions. Conditions and actions are kept as JSON
// columns so the rule shape can grow without schema churn.
type RuleRepo struct{ db *sql.DB }

func NewRuleRepo(db *sql.DB) *RuleRepo { return &RuleRepo{db: db} }

func (r *RuleRepo) Upsert(ctx context.Context, rule rules.Rule) error {
	conds, err := json.Marshal(rule.Conditions)
	if err != nil {
		return fmt.Errorf("encode conditions for rule %s: %w", rule.ID, err)
	}
	acts, err := json.Marshal(rule.Actions)
	if err != nil {
		return fmt.Errorf("encode actions for rule %s: %w", rule.ID, err)
	}
	_, err = r.db.ExecContext(ctx, `
	INSERT INTO rules(id, label, enabled, priority, combinator, stop_processing, conditions, actions, created_at, updated_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	ON CONFLICT(id) DO UPDATE SET
	 label=excluded.label,
	 enabled=excluded.enabled,
	 priority=excluded.priority,
	 combinator=excluded.combinator,
	 stop_processing=excluded.stop_processing,
	 conditions=excluded.conditions,
	 actions=excluded.actions,
	 updated_at=CURRENT_TIMESTAMP;
	`, rule.ID, rule.Label, rule.Enabled, rule.Priority, string(rule.Combinator), rule.Stop, string(conds), string(acts))
	return err
}

func (r *RuleRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM rules WHERE id = ?`, id)
	return err
}

func (r *RuleRepo) ListRules(ctx context.Context) ([]rules.Rule, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, label, enabled, priority, combinator, stop_processing, conditions, actions
	FROM rules ORDER BY priority ASC, id ASC;
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []rules.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

func (r *RuleRepo) GetRule(ctx context.Context, id string) (*rules.Rule, error) {
	row := r.db.QueryRowContext(ctx, `
	SELECT id, label, enabled, priority, combinator, stop_processing, conditions, actions
	FROM rules WHERE id = ?;
	`, id)
	rule, err := scanRule(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}

func scanRule(row scanner) (rules.Rule, error) {
	var rule rules.Rule
	var combinator, conds, acts string
	if err := row.Scan(&rule.ID, &rule.Label, &rule.Enabled, &rule.Priority,
		&combinator, &rule.Stop, &conds, &acts); err != nil {
		return rules.Rule{}, err
	}
	rule.Combinator = rules.Combinator(combinator)
	if err := json.Unmarshal([]byte(conds), &rule.Conditions); err != nil {
		return rules.Rule{}, fmt.Errorf("decode conditions for rule %s: %w", rule.ID, err)
	}
	if err := json.Unmarshal([]byte(acts), &rule.Actions); err != nil {
		return rules.Rule{}, fmt.Errorf("decode actions for rule %s: %w", rule.ID, err)
	}
	return rule, nil
}
