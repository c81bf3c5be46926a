package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/lib/pq"

	"erp-helpdesk-workers/internal/helpdesk/rules"
)

var (
	doctypePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_ ]*$`)
	fieldPattern   = regexp.MustCompile(`^[a-z_][a-z0-9_ ]*$`)
)

// ErrInvalidIdentifier is returned for doctype or field names that cannot be queried safely.
var ErrInvalidIdentifier = errors.New("invalid identifier")

const defaultEntityPageSize = 500

// EntityStore reads business records from the ERP's "tab<Doctype>" tables.
type EntityStore struct {
	db       *sql.DB
	pageSize int
}

func NewEntityStore(db *sql.DB) *EntityStore {
	return &EntityStore{db: db, pageSize: defaultEntityPageSize}
}

// FetchEntities selects name plus fields from the doctype's table in name order. Records
// are read in pages keyed on name until the table is exhausted or limit records have been
// read. limit <= 0 reads every record.
func (s *EntityStore) FetchEntities(ctx context.Context, doctype string, fields []string, limit int) ([]rules.Entity, error) {
	query, columns, err := buildEntityQuery(doctype, fields)
	if err != nil {
		return nil, err
	}

	entities := []rules.Entity{}
	after := ""
	for {
		size := s.pageSize
		if limit > 0 && limit-len(entities) < size {
			size = limit - len(entities)
		}
		page, err := s.fetchPage(ctx, query, columns, after, size)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", doctype, err)
		}
		entities = append(entities, page...)
		if len(page) < size || (limit > 0 && len(entities) >= limit) {
			return entities, nil
		}
		after = page[len(page)-1].Name
	}
}

func (s *EntityStore) fetchPage(ctx context.Context, query string, columns []string, after string, size int) ([]rules.Entity, error) {
	rows, err := s.db.QueryContext(ctx, query, after, size)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entities := []rules.Entity{}
	for rows.Next() {
		values := make([]interface{}, len(columns)+1)
		ptrs := make([]interface{}, len(values))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}

		entity := rules.Entity{Fields: make(map[string]interface{}, len(columns))}
		entity.Name = asString(values[0])
		for i, col := range columns {
			entity.Fields[col] = values[i+1]
		}
		entities = append(entities, entity)
	}
	return entities, rows.Err()
}

// buildEntityQuery returns a keyset page query taking the last name seen ($1) and the
// page size ($2).
func buildEntityQuery(doctype string, fields []string) (string, []string, error) {
	if !doctypePattern.MatchString(doctype) {
		return "", nil, fmt.Errorf("%w: doctype %q", ErrInvalidIdentifier, doctype)
	}

	name := pq.QuoteIdentifier("name")
	seen := map[string]bool{"name": true}
	columns := make([]string, 0, len(fields))
	quoted := []string{name}
	for _, f := range fields {
		if seen[f] {
			continue
		}
		if !fieldPattern.MatchString(f) {
			return "", nil, fmt.Errorf("%w: field %q", ErrInvalidIdentifier, f)
		}
		seen[f] = true
		columns = append(columns, f)
		quoted = append(quoted, pq.QuoteIdentifier(f))
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s > $1 ORDER BY %s LIMIT $2",
		strings.Join(quoted, ", "), pq.QuoteIdentifier("tab"+doctype), name, name)
	return query, columns, nil
}

func asString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}
