package sql

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	model "github.com/tigerroll/sweep/pkg/batch/core/domain/model"
	"github.com/tigerroll/sweep/pkg/batch/support/util/exception"
	"github.com/tigerroll/sweep/pkg/batch/support/util/logger"
)

// tableSchema is a validated table definition ready for DDL.
type tableSchema struct {
	name    string
	columns []string // columns[0] is always model.KeyColumn
	rows    [][]interface{}
}

// buildSchema validates the table and normalizes its key column and row widths.
func (s *GormConfigStore) buildSchema(t *model.ConfigTable) (*tableSchema, error) {
	if s.isReserved(t.Name) {
		return nil, exception.NewReservedNameError(moduleName, t.Name)
	}
	if !model.IsValidIdentifier(t.Name) || strings.Contains(strings.ToLower(t.Name), stagingInfix) {
		return nil, exception.NewMalformedSpecError(moduleName, fmt.Sprintf("invalid table name '%s'", t.Name), nil)
	}
	if len(t.Columns) == 0 {
		return nil, exception.NewMalformedSpecError(moduleName, fmt.Sprintf("table '%s' has no columns", t.Name), nil)
	}

	keyed := t.HasKeyColumn()
	columns := []string{model.KeyColumn}
	dataColumns := t.Columns
	if keyed {
		dataColumns = t.Columns[1:]
	}
	seen := map[string]struct{}{model.KeyColumn: {}}
	for _, c := range dataColumns {
		if !model.IsValidIdentifier(c) {
			return nil, exception.NewMalformedSpecError(moduleName, fmt.Sprintf("invalid column name '%s'", c), nil)
		}
		if _, dup := seen[strings.ToLower(c)]; dup {
			return nil, exception.NewMalformedSpecError(moduleName, fmt.Sprintf("duplicate column '%s'", c), nil)
		}
		seen[strings.ToLower(c)] = struct{}{}
		columns = append(columns, c)
	}

	rows := make([][]interface{}, 0, len(t.Rows))
	keys := make(map[int64]struct{}, len(t.Rows))
	for i, raw := range t.Rows {
		if len(raw) > len(t.Columns) {
			return nil, exception.NewMalformedSpecError(moduleName, fmt.Sprintf("row %d has %d values for %d columns", i+1, len(raw), len(t.Columns)), nil)
		}
		padded := make([]string, len(t.Columns))
		copy(padded, raw)

		row := make([]interface{}, 0, len(columns))
		values := padded
		if keyed {
			id, err := strconv.ParseInt(strings.TrimSpace(padded[0]), 10, 64)
			if err != nil {
				return nil, exception.NewMalformedSpecError(moduleName, fmt.Sprintf("row %d: id '%s' is not an integer", i+1, padded[0]), err)
			}
			if _, dup := keys[id]; dup {
				return nil, exception.NewMalformedSpecError(moduleName, fmt.Sprintf("row %d: duplicate id %d", i+1, id), nil)
			}
			keys[id] = struct{}{}
			row = append(row, id)
			values = padded[1:]
		} else {
			row = append(row, int64(i+1))
		}
		for _, v := range values {
			row = append(row, v)
		}
		rows = append(rows, row)
	}
	return &tableSchema{name: t.Name, columns: columns, rows: rows}, nil
}

func keyColumnType(dbType string) string {
	if dbType == "sqlite" {
		return "INTEGER"
	}
	return "BIGINT"
}

func numericCastType(dbType string) string {
	switch dbType {
	case "postgres":
		return "DOUBLE PRECISION"
	case "mysql":
		return "DOUBLE"
	default:
		return "REAL"
	}
}

// createStatement renders CREATE TABLE with quoted identifiers supplied as clause vars.
func createStatement(dbType, table string, columns []string) (string, []interface{}) {
	var sb strings.Builder
	vars := []interface{}{clause.Table{Name: table}, clause.Column{Name: columns[0]}}
	sb.WriteString("CREATE TABLE ? (? ")
	sb.WriteString(keyColumnType(dbType))
	sb.WriteString(" PRIMARY KEY")
	for _, c := range columns[1:] {
		sb.WriteString(", ? TEXT")
		vars = append(vars, clause.Column{Name: c})
	}
	sb.WriteString(")")
	return sb.String(), vars
}

// CreateTable implements repository.TableStore. Rows are loaded into a staging table first;
// the live table is only dropped and replaced once every row is in.
func (s *GormConfigStore) CreateTable(ctx context.Context, t *model.ConfigTable) error {
	schema, err := s.buildSchema(t)
	if err != nil {
		return err
	}
	conn, err := s.connection(ctx)
	if err != nil {
		return err
	}
	db := conn.GormDB(ctx)
	staging := schema.name + stagingInfix + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]

	ddl, vars := createStatement(conn.Type(), staging, schema.columns)
	if err := db.Exec(ddl, vars...).Error; err != nil {
		return exception.NewBatchErrorf(moduleName, "failed to create staging table for '%s'", schema.name, err)
	}

	if err := s.fillTable(db, staging, schema); err != nil {
		if dropErr := db.Exec("DROP TABLE IF EXISTS ?", clause.Table{Name: staging}).Error; dropErr != nil {
			logger.Errorf("ConfigStore: failed to drop staging table '%s': %v", staging, dropErr)
		}
		return exception.NewBatchErrorf(moduleName, "failed to load rows into table '%s'", schema.name, err)
	}

	if err := swapTable(db, conn.Type(), staging, schema.name); err != nil {
		if dropErr := db.Exec("DROP TABLE IF EXISTS ?", clause.Table{Name: staging}).Error; dropErr != nil {
			logger.Errorf("ConfigStore: failed to drop staging table '%s': %v", staging, dropErr)
		}
		return exception.NewBatchErrorf(moduleName, "failed to replace table '%s'", schema.name, err)
	}
	logger.Infof("ConfigStore: table '%s' stored with %d rows.", schema.name, len(schema.rows))
	return nil
}

// swapTable replaces the live table with the loaded staging table.
// MySQL commits every DDL statement on its own, so it swaps both names in a single
// RENAME TABLE and drops the retired table afterwards. The other dialects run DDL
// inside the transaction.
func swapTable(db *gorm.DB, dbType, staging, name string) error {
	if dbType != "mysql" {
		return db.Transaction(func(tx *gorm.DB) error {
			existing, found, err := findTable(tx, name)
			if err != nil {
				return err
			}
			if found {
				if err := tx.Exec("DROP TABLE ?", clause.Table{Name: existing}).Error; err != nil {
					return err
				}
			}
			return tx.Migrator().RenameTable(staging, name)
		})
	}

	existing, found, err := findTable(db, name)
	if err != nil {
		return err
	}
	if !found {
		return db.Exec("RENAME TABLE ? TO ?", clause.Table{Name: staging}, clause.Table{Name: name}).Error
	}
	retired := staging + "old"
	if err := db.Exec("RENAME TABLE ? TO ?, ? TO ?",
		clause.Table{Name: existing}, clause.Table{Name: retired},
		clause.Table{Name: staging}, clause.Table{Name: name}).Error; err != nil {
		return err
	}
	if err := db.Exec("DROP TABLE ?", clause.Table{Name: retired}).Error; err != nil {
		logger.Warnf("ConfigStore: table '%s' replaced but the previous copy '%s' could not be dropped: %v", name, retired, err)
	}
	return nil
}

func (s *GormConfigStore) fillTable(db *gorm.DB, table string, schema *tableSchema) error {
	for start := 0; start < len(schema.rows); start += s.batchSize {
		end := start + s.batchSize
		if end > len(schema.rows) {
			end = len(schema.rows)
		}
		batch := make([]map[string]interface{}, 0, end-start)
		for _, row := range schema.rows[start:end] {
			record := make(map[string]interface{}, len(schema.columns))
			for i, c := range schema.columns {
				record[c] = row[i]
			}
			batch = append(batch, record)
		}
		if err := db.Table(table).Create(batch).Error; err != nil {
			return err
		}
	}
	return nil
}

// GetRows implements repository.TableStore.
func (s *GormConfigStore) GetRows(ctx context.Context, name string, filter model.Filter) ([]string, [][]string, error) {
	if s.isReserved(name) || !model.IsValidIdentifier(name) {
		return nil, nil, exception.NewUnknownTableError(moduleName, name)
	}
	conn, err := s.connection(ctx)
	if err != nil {
		return nil, nil, err
	}
	db := conn.GormDB(ctx)
	table, found, err := findTable(db, name)
	if err != nil {
		return nil, nil, exception.NewBatchErrorf(moduleName, "failed to look up table '%s'", name, err)
	}
	if !found {
		return nil, nil, exception.NewUnknownTableError(moduleName, name)
	}

	columnTypes, err := db.Migrator().ColumnTypes(table)
	if err != nil {
		return nil, nil, exception.NewBatchErrorf(moduleName, "failed to read columns of '%s'", table, err)
	}
	known := make([]string, len(columnTypes))
	for i, ct := range columnTypes {
		known[i] = ct.Name()
	}
	if len(known) == 0 {
		return nil, nil, exception.NewUnknownTableError(moduleName, name)
	}

	exprs, err := filterExpressions(conn.Type(), known, filter)
	if err != nil {
		return nil, nil, err
	}

	query := db.Table(table)
	if len(exprs) > 0 {
		query = query.Clauses(clause.Where{Exprs: exprs})
	}
	rows, err := query.Order(clause.OrderByColumn{Column: clause.Column{Name: known[0]}}).Rows()
	if err != nil {
		return nil, nil, exception.NewBatchErrorf(moduleName, "failed to query table '%s'", table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, exception.NewBatchErrorf(moduleName, "failed to read columns of '%s'", table, err)
	}

	var result [][]string
	for rows.Next() {
		cells := make([]sql.NullString, len(columns))
		dest := make([]interface{}, len(columns))
		for i := range cells {
			dest[i] = &cells[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, nil, exception.NewBatchErrorf(moduleName, "failed to scan row of '%s'", name, err)
		}
		values := make([]string, len(columns))
		for i, c := range cells {
			values[i] = c.String
		}
		result = append(result, values)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, exception.NewBatchErrorf(moduleName, "failed to read rows of '%s'", name, err)
	}
	return columns, result, nil
}

// findTable returns the stored spelling of name. An exact match wins over a case-insensitive one.
func findTable(db *gorm.DB, name string) (string, bool, error) {
	tables, err := db.Migrator().GetTables()
	if err != nil {
		return "", false, err
	}
	match := ""
	for _, t := range tables {
		if t == name {
			return t, true, nil
		}
		if match == "" && strings.EqualFold(t, name) {
			match = t
		}
	}
	return match, match != "", nil
}

// filterExpressions turns filter conditions into bound clause expressions.
// Ordering comparisons against numeric literals compare the column numerically.
func filterExpressions(dbType string, columns []string, filter model.Filter) ([]clause.Expression, error) {
	exprs := make([]clause.Expression, 0, len(filter.Conditions))
	for _, cond := range filter.Conditions {
		name, ok := matchColumn(columns, cond.Column)
		if !ok {
			return nil, exception.NewInvalidFilterError(moduleName, fmt.Sprintf("unknown column '%s' in filter", cond.Column))
		}
		if len(cond.Values) == 0 {
			return nil, exception.NewInvalidFilterError(moduleName, fmt.Sprintf("condition on '%s' has no value", cond.Column))
		}
		col := clause.Column{Name: name}
		value := cond.Values[0]

		switch cond.Operator {
		case model.OpEq:
			exprs = append(exprs, clause.Eq{Column: col, Value: value})
		case model.OpNe:
			exprs = append(exprs, clause.Neq{Column: col, Value: value})
		case model.OpLt, model.OpLe, model.OpGt, model.OpGe:
			if f, err := strconv.ParseFloat(value, 64); err == nil {
				exprs = append(exprs, clause.Expr{
					SQL:  fmt.Sprintf("CAST(? AS %s) %s ?", numericCastType(dbType), cond.Operator),
					Vars: []interface{}{col, f},
				})
				continue
			}
			exprs = append(exprs, clause.Expr{SQL: fmt.Sprintf("? %s ?", cond.Operator), Vars: []interface{}{col, value}})
		case model.OpIn, model.OpNotIn:
			values := make([]interface{}, len(cond.Values))
			for i, v := range cond.Values {
				values[i] = v
			}
			in := clause.IN{Column: col, Values: values}
			if cond.Operator == model.OpNotIn {
				exprs = append(exprs, clause.Not(in))
			} else {
				exprs = append(exprs, in)
			}
		case model.OpLike:
			exprs = append(exprs, clause.Like{Column: col, Value: value})
		default:
			return nil, exception.NewInvalidFilterError(moduleName, fmt.Sprintf("unsupported operator '%s'", cond.Operator))
		}
	}
	return exprs, nil
}

func matchColumn(columns []string, name string) (string, bool) {
	for _, c := range columns {
		if strings.EqualFold(c, name) {
			return c, true
		}
	}
	return "", false
}

// ListTables implements repository.TableStore.
func (s *GormConfigStore) ListTables(ctx context.Context) ([]string, error) {
	conn, err := s.connection(ctx)
	if err != nil {
		return nil, err
	}
	tables, err := conn.GormDB(ctx).Migrator().GetTables()
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to list tables", err)
	}
	names := make([]string, 0, len(tables))
	for _, t := range tables {
		lower := strings.ToLower(t)
		if s.isReserved(t) || strings.Contains(lower, stagingInfix) || strings.HasPrefix(lower, "sqlite_") {
			continue
		}
		names = append(names, t)
	}
	sort.Strings(names)
	return names, nil
}
