package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"supportdesk/internal/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Column describes one column exposed through the gateway.
type Column struct {
	Name     string
	Type     string // SQL type used to cast incoming values
	Writable bool
}

// TableSpec whitelists a table for generic CRUD.
type TableSpec struct {
	Name       string
	PrimaryKey string
	Columns    []Column
}

func (t TableSpec) column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

func (t TableSpec) columnList() string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return strings.Join(names, ", ")
}

func ro(name, typ string) Column { return Column{Name: name, Type: typ} }
func rw(name, typ string) Column { return Column{Name: name, Type: typ, Writable: true} }

// Tables lists every table reachable through the gateway. The users table is
// left out and id / created_at are never writable.
var Tables = map[string]TableSpec{
	"customers": {Name: "customers", PrimaryKey: "id", Columns: []Column{
		ro("id", "bigint"), rw("name", "text"), rw("email", "text"), rw("phone", "text"),
		rw("company", "text"), rw("stage", "text"), rw("position", "integer"),
		rw("value_cents", "bigint"), rw("tags", "text[]"), rw("notes", "text"),
		ro("created_at", "timestamptz"), ro("updated_at", "timestamptz"),
	}},
	"conversations": {Name: "conversations", PrimaryKey: "id", Columns: []Column{
		ro("id", "bigint"), rw("customer_id", "bigint"), rw("agent_id", "bigint"),
		rw("assignee_id", "bigint"), rw("channel", "text"), rw("status", "text"),
		rw("subject", "text"), rw("ai_confidence", "double precision"), rw("external_ref", "text"),
		ro("last_message_at", "timestamptz"), ro("created_at", "timestamptz"), ro("updated_at", "timestamptz"),
	}},
	"messages": {Name: "messages", PrimaryKey: "id", Columns: []Column{
		ro("id", "bigint"), rw("conversation_id", "bigint"), rw("sender", "text"),
		rw("content", "text"), rw("confidence", "double precision"), ro("created_at", "timestamptz"),
	}},
	"ai_agents": {Name: "ai_agents", PrimaryKey: "id", Columns: []Column{
		ro("id", "bigint"), rw("name", "text"), rw("model", "text"), rw("system_prompt", "text"),
		rw("greeting", "text"), rw("fallback_reply", "text"), rw("temperature", "double precision"),
		rw("confidence_threshold", "double precision"), rw("max_tokens", "integer"),
		rw("knowledge_base_id", "bigint"), rw("is_active", "boolean"),
		ro("created_at", "timestamptz"), ro("updated_at", "timestamptz"),
	}},
	"settings": {Name: "settings", PrimaryKey: "key", Columns: []Column{
		rw("key", "text"), rw("value", "text"), ro("updated_at", "timestamptz"),
	}},
	"knowledge_bases": {Name: "knowledge_bases", PrimaryKey: "id", Columns: []Column{
		ro("id", "bigint"), rw("name", "text"), rw("description", "text"), ro("created_at", "timestamptz"),
	}},
	"knowledge_documents": {Name: "knowledge_documents", PrimaryKey: "id", Columns: []Column{
		ro("id", "bigint"), rw("knowledge_base_id", "bigint"), rw("title", "text"),
		rw("content", "text"), ro("object_key", "text"), ro("created_at", "timestamptz"),
	}},
	"webhook_events": {Name: "webhook_events", PrimaryKey: "id", Columns: []Column{
		ro("id", "text"), ro("event_type", "text"), ro("payload", "jsonb"), ro("status", "text"),
		ro("attempts", "integer"), ro("response_status", "integer"), ro("last_error", "text"),
		ro("delivered_at", "timestamptz"), ro("created_at", "timestamptz"),
	}},
}

// LookupTable returns the spec for a registered table.
func LookupTable(name string) (TableSpec, error) {
	spec, ok := Tables[name]
	if !ok {
		return TableSpec{}, fmt.Errorf("table %q: %w", name, entities.ErrNotFound)
	}
	return spec, nil
}

// RowQuery is a parsed list request.
type RowQuery struct {
	Filters map[string]string // column = value equality filters
	OrderBy string
	Desc    bool
	Limit   int
	Offset  int
}

// BuildSelect renders the SELECT for a RowQuery.
func BuildSelect(spec TableSpec, q RowQuery) (string, []any, error) {
	var where []string
	var args []any

	cols := make([]string, 0, len(q.Filters))
	for col := range q.Filters {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	for _, col := range cols {
		if _, ok := spec.column(col); !ok {
			return "", nil, fmt.Errorf("%w: unknown column %q", entities.ErrInvalidInput, col)
		}
		args = append(args, q.Filters[col])
		where = append(where, fmt.Sprintf("%s::text = $%d", col, len(args)))
	}

	order := spec.PrimaryKey
	if q.OrderBy != "" {
		if _, ok := spec.column(q.OrderBy); !ok {
			return "", nil, fmt.Errorf("%w: unknown order column %q", entities.ErrInvalidInput, q.OrderBy)
		}
		order = q.OrderBy
	}
	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s", spec.columnList(), spec.Name)
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	args = append(args, q.Limit, q.Offset)
	fmt.Fprintf(&sb, " ORDER BY %s %s LIMIT $%d OFFSET $%d", order, dir, len(args)-1, len(args))
	return sb.String(), args, nil
}

// BuildInsert renders an INSERT ... RETURNING for the writable fields in data.
func BuildInsert(spec TableSpec, data map[string]any) (string, []any, error) {
	cols, placeholders, args, err := writableArgs(spec, data)
	if err != nil {
		return "", nil, err
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		spec.Name, strings.Join(cols, ", "), strings.Join(placeholders, ", "), spec.columnList())
	return query, args, nil
}

// BuildUpdate renders an UPDATE ... RETURNING keyed by the primary key.
func BuildUpdate(spec TableSpec, key string, data map[string]any) (string, []any, error) {
	cols, placeholders, args, err := writableArgs(spec, data)
	if err != nil {
		return "", nil, err
	}
	sets := make([]string, len(cols))
	for i := range cols {
		sets[i] = cols[i] + " = " + placeholders[i]
	}
	if _, ok := spec.column("updated_at"); ok {
		sets = append(sets, "updated_at = NOW()")
	}
	args = append(args, key)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s::text = $%d RETURNING %s",
		spec.Name, strings.Join(sets, ", "), spec.PrimaryKey, len(args), spec.columnList())
	return query, args, nil
}

func writableArgs(spec TableSpec, data map[string]any) ([]string, []string, []any, error) {
	if len(data) == 0 {
		return nil, nil, nil, fmt.Errorf("%w: no data provided", entities.ErrInvalidInput)
	}
	names := make([]string, 0, len(data))
	for name := range data {
		names = append(names, name)
	}
	sort.Strings(names)

	var cols, placeholders []string
	var args []any
	for _, name := range names {
		col, ok := spec.column(name)
		if !ok || !col.Writable {
			return nil, nil, nil, fmt.Errorf("%w: column %q is not writable", entities.ErrInvalidInput, name)
		}
		v, err := encodeValue(col, data[name])
		if err != nil {
			return nil, nil, nil, err
		}
		args = append(args, v)
		cols = append(cols, col.Name)
		placeholders = append(placeholders, fmt.Sprintf("$%d::%s", len(args), col.Type))
	}
	return cols, placeholders, args, nil
}

// encodeValue turns a decoded JSON value into a text parameter that the
// placeholder cast converts to the column type.
func encodeValue(col Column, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if col.Type == "text[]" {
		items, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: column %q expects an array", entities.ErrInvalidInput, col.Name)
		}
		out := make([]string, len(items))
		for i, item := range items {
			out[i] = fmt.Sprint(item)
		}
		return out, nil
	}
	if col.Type == "jsonb" {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", entities.ErrInvalidInput, err)
		}
		return string(b), nil
	}
	switch val := v.(type) {
	case string:
		return val, nil
	case bool:
		return strconv.FormatBool(val), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case json.Number:
		return val.String(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported value for column %q", entities.ErrInvalidInput, col.Name)
	}
}

// TableGateway runs generic CRUD against registered tables.
type TableGateway struct {
	db *pgxpool.Pool
}

func NewTableGateway(db *pgxpool.Pool) *TableGateway {
	return &TableGateway{db: db}
}

func (g *TableGateway) Select(ctx context.Context, table string, q RowQuery) ([]map[string]any, error) {
	spec, err := LookupTable(table)
	if err != nil {
		return nil, err
	}
	query, args, err := BuildSelect(spec, q)
	if err != nil {
		return nil, err
	}
	rows, err := g.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "select "+table)
	}
	return collectMaps(rows)
}

func (g *TableGateway) Insert(ctx context.Context, table string, data map[string]any) (map[string]any, error) {
	spec, err := LookupTable(table)
	if err != nil {
		return nil, err
	}
	query, args, err := BuildInsert(spec, data)
	if err != nil {
		return nil, err
	}
	return g.one(ctx, "insert "+table, query, args)
}

func (g *TableGateway) Update(ctx context.Context, table, key string, data map[string]any) (map[string]any, error) {
	spec, err := LookupTable(table)
	if err != nil {
		return nil, err
	}
	query, args, err := BuildUpdate(spec, key, data)
	if err != nil {
		return nil, err
	}
	return g.one(ctx, "update "+table, query, args)
}

func (g *TableGateway) Delete(ctx context.Context, table, key string) error {
	spec, err := LookupTable(table)
	if err != nil {
		return err
	}
	if !spec.hasWritable() {
		return fmt.Errorf("%w: table %q is read-only", entities.ErrInvalidInput, table)
	}
	tag, err := g.db.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s::text = $1", spec.Name, spec.PrimaryKey), key)
	if err != nil {
		return mapError(err, "delete "+table)
	}
	return requireRow(tag, "delete "+table)
}

func (t TableSpec) hasWritable() bool {
	for _, c := range t.Columns {
		if c.Writable {
			return true
		}
	}
	return false
}

func (g *TableGateway) one(ctx context.Context, what, query string, args []any) (map[string]any, error) {
	rows, err := g.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, what)
	}
	result, err := collectMaps(rows)
	if err != nil {
		return nil, mapError(err, what)
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("%s: %w", what, entities.ErrNotFound)
	}
	return result[0], nil
}

func collectMaps(rows pgx.Rows) ([]map[string]any, error) {
	defer rows.Close()
	fieldDescs := rows.FieldDescriptions()
	results := []map[string]any{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		rowMap := make(map[string]any, len(fieldDescs))
		for i, fd := range fieldDescs {
			rowMap[fd.Name] = values[i]
		}
		results = append(results, rowMap)
	}
	return results, rows.Err()
}
