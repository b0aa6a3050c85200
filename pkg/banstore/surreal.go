package banstore

import (
	"context"
	"fmt"

	"zerotwo/pkg/surreal"
)

const DefaultTable = "banned_users"

// Querier is the part of *surreal.Client the backend needs.
type Querier interface {
	Query(ctx context.Context, sql string, vars map[string]interface{}) (interface{}, error)
}

// SurrealPersistence keeps one row per banned user in a SurrealDB table.
type SurrealPersistence struct {
	db    Querier
	table string
}

func NewSurrealPersistence(db Querier, table string) (*SurrealPersistence, error) {
	if table == "" {
		table = DefaultTable
	}
	if err := surreal.ValidateIdentifier(table); err != nil {
		return nil, err
	}
	return &SurrealPersistence{db: db, table: table}, nil
}

func (s *SurrealPersistence) Load(ctx context.Context) ([]string, error) {
	result, err := s.db.Query(ctx, fmt.Sprintf("SELECT user_id FROM %s;", s.table), map[string]interface{}{})
	if err != nil {
		return nil, fmt.Errorf("failed to load ban table: %w", err)
	}
	if result == nil {
		return nil, nil
	}

	rows, ok := result.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected result type: %T", result)
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		m, ok := row.(map[string]interface{})
		if !ok {
			continue
		}
		if id, ok := m["user_id"].(string); ok && id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Save replaces the table contents inside one transaction.
func (s *SurrealPersistence) Save(ctx context.Context, ids []string) error {
	rows := make([]map[string]interface{}, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, map[string]interface{}{"user_id": id})
	}

	insert := ""
	if len(rows) > 0 {
		insert = fmt.Sprintf("INSERT INTO %s $rows;", s.table)
	}
	sql := fmt.Sprintf(`
		BEGIN TRANSACTION;
		DELETE %s;
		%s
		COMMIT TRANSACTION;
	`, s.table, insert)

	if _, err := s.db.Query(ctx, sql, map[string]interface{}{"rows": rows}); err != nil {
		return fmt.Errorf("failed to save ban table: %w", err)
	}
	return nil
}
