package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"supportdesk/internal/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const customerColumns = "id, name, email, phone, company, stage, position, value_cents, tags, notes, created_at, updated_at"

type CustomerRepository struct {
	db *pgxpool.Pool
}

func NewCustomerRepository(db *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{db: db}
}

func scanCustomer(row pgx.Row, c *entities.Customer) error {
	return row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Company, &c.Stage, &c.Position,
		&c.ValueCents, &c.Tags, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
}

func collectCustomers(rows pgx.Rows) ([]entities.Customer, error) {
	defer rows.Close()
	customers := []entities.Customer{}
	for rows.Next() {
		var c entities.Customer
		if err := scanCustomer(rows, &c); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (r *CustomerRepository) List(ctx context.Context, f entities.CustomerFilter) ([]entities.Customer, int, error) {
	var where []string
	var args []any
	if f.Stage != "" {
		args = append(args, string(f.Stage))
		where = append(where, fmt.Sprintf("stage = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d OR company ILIKE $%d)", n, n, n))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM customers"+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, f.Offset)
	query := fmt.Sprintf("SELECT %s FROM customers%s ORDER BY updated_at DESC, id DESC LIMIT $%d OFFSET $%d",
		customerColumns, clause, len(args)-1, len(args))
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	customers, err := collectCustomers(rows)
	return customers, total, err
}

// ListForBoard returns every customer ordered by stage position.
func (r *CustomerRepository) ListForBoard(ctx context.Context) ([]entities.Customer, error) {
	rows, err := r.db.Query(ctx, "SELECT "+customerColumns+" FROM customers ORDER BY position, id")
	if err != nil {
		return nil, err
	}
	return collectCustomers(rows)
}

func (r *CustomerRepository) Get(ctx context.Context, id int64) (*entities.Customer, error) {
	var c entities.Customer
	if err := scanCustomer(r.db.QueryRow(ctx, "SELECT "+customerColumns+" FROM customers WHERE id = $1", id), &c); err != nil {
		return nil, mapError(err, "get customer")
	}
	return &c, nil
}

// FindByContact looks a customer up by email or phone; nil when absent.
func (r *CustomerRepository) FindByContact(ctx context.Context, email, phone string) (*entities.Customer, error) {
	if email == "" && phone == "" {
		return nil, nil
	}
	var c entities.Customer
	err := scanCustomer(r.db.QueryRow(ctx, "SELECT "+customerColumns+` FROM customers
		WHERE ($1 <> '' AND email = $1) OR ($2 <> '' AND phone = $2)
		ORDER BY id LIMIT 1`, email, phone), &c)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const insertCustomerSQL = `
	INSERT INTO customers (name, email, phone, company, stage, position, value_cents, tags, notes)
	VALUES ($1, $2, $3, $4, $5,
		(SELECT COALESCE(MAX(position) + 1, 0) FROM customers WHERE stage = $5),
		$6, $7, $8)
	RETURNING ` + customerColumns

func (r *CustomerRepository) Create(ctx context.Context, c *entities.Customer) error {
	if c.Tags == nil {
		c.Tags = []string{}
	}
	err := scanCustomer(r.db.QueryRow(ctx, insertCustomerSQL,
		c.Name, c.Email, c.Phone, c.Company, string(c.Stage), c.ValueCents, c.Tags, c.Notes), c)
	return mapError(err, "create customer")
}

// CreateMany inserts all customers in one transaction.
func (r *CustomerRepository) CreateMany(ctx context.Context, customers []entities.Customer) (int, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for i := range customers {
		c := &customers[i]
		if c.Tags == nil {
			c.Tags = []string{}
		}
		if err := scanCustomer(tx.QueryRow(ctx, insertCustomerSQL,
			c.Name, c.Email, c.Phone, c.Company, string(c.Stage), c.ValueCents, c.Tags, c.Notes), c); err != nil {
			return 0, mapError(err, fmt.Sprintf("row %d insert failed", i+1))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return len(customers), nil
}

func (r *CustomerRepository) Update(ctx context.Context, id int64, p entities.CustomerPatch) (*entities.Customer, error) {
	var sets []string
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if p.Name != nil {
		add("name", *p.Name)
	}
	if p.Email != nil {
		add("email", *p.Email)
	}
	if p.Phone != nil {
		add("phone", *p.Phone)
	}
	if p.Company != nil {
		add("company", *p.Company)
	}
	if p.Stage != nil {
		add("stage", string(*p.Stage))
	}
	if p.ValueCents != nil {
		add("value_cents", *p.ValueCents)
	}
	if p.Tags != nil {
		tags := *p.Tags
		if tags == nil {
			tags = []string{}
		}
		add("tags", tags)
	}
	if p.Notes != nil {
		add("notes", *p.Notes)
	}
	if len(sets) == 0 {
		return r.Get(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE customers SET %s, updated_at = NOW() WHERE id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), customerColumns)
	var c entities.Customer
	if err := scanCustomer(r.db.QueryRow(ctx, query, args...), &c); err != nil {
		return nil, mapError(err, "update customer")
	}
	return &c, nil
}

// Move places a customer at position in stage, shifting later cards down.
// It returns the updated customer and the stage it came from.
func (r *CustomerRepository) Move(ctx context.Context, id int64, stage entities.Stage, position int) (*entities.Customer, entities.Stage, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, "", err
	}
	defer tx.Rollback(ctx)

	var from entities.Stage
	if err := tx.QueryRow(ctx, "SELECT stage FROM customers WHERE id = $1 FOR UPDATE", id).Scan(&from); err != nil {
		return nil, "", mapError(err, "move customer")
	}

	if _, err := tx.Exec(ctx,
		"UPDATE customers SET position = position + 1 WHERE stage = $1 AND position >= $2 AND id <> $3",
		string(stage), position, id); err != nil {
		return nil, "", fmt.Errorf("shift column: %w", err)
	}

	var c entities.Customer
	if err := scanCustomer(tx.QueryRow(ctx,
		"UPDATE customers SET stage = $1, position = $2, updated_at = NOW() WHERE id = $3 RETURNING "+customerColumns,
		string(stage), position, id), &c); err != nil {
		return nil, "", mapError(err, "move customer")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, "", err
	}
	return &c, from, nil
}

func (r *CustomerRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM customers WHERE id = $1", id)
	if err != nil {
		return err
	}
	return requireRow(tag, "delete customer")
}
