package usecases

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"supportdesk/internal/entities"
)

type CustomerUsecase struct {
	customers CustomerStore
	events    EventRecorder
	logger    *slog.Logger
}

func NewCustomerUsecase(customers CustomerStore, events EventRecorder, logger *slog.Logger) *CustomerUsecase {
	return &CustomerUsecase{customers: customers, events: events, logger: logger}
}

func (uc *CustomerUsecase) List(ctx context.Context, f entities.CustomerFilter) ([]entities.Customer, int, error) {
	if f.Stage != "" && !f.Stage.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown stage %q", entities.ErrInvalidInput, f.Stage)
	}
	f.Search = strings.TrimSpace(SanitizeString(f.Search))
	f.Limit, f.Offset = clampPage(f.Limit, f.Offset)
	return uc.customers.List(ctx, f)
}

func (uc *CustomerUsecase) Get(ctx context.Context, id int64) (*entities.Customer, error) {
	return uc.customers.Get(ctx, id)
}

func normalizeCustomer(c *entities.Customer) error {
	var err error
	if c.Name, err = requireText("name", c.Name, MaxTitleLength); err != nil {
		return err
	}
	if c.Email, err = optionalText("email", c.Email, MaxTitleLength); err != nil {
		return err
	}
	if c.Email != "" && !strings.Contains(c.Email, "@") {
		return fmt.Errorf("%w: email %q is not valid", entities.ErrInvalidInput, c.Email)
	}
	if c.Phone, err = optionalText("phone", c.Phone, 64); err != nil {
		return err
	}
	if c.Company, err = optionalText("company", c.Company, MaxTitleLength); err != nil {
		return err
	}
	if c.Notes, err = optionalText("notes", c.Notes, MaxMessageLength); err != nil {
		return err
	}
	if c.Stage == "" {
		c.Stage = entities.StageLead
	}
	if !c.Stage.Valid() {
		return fmt.Errorf("%w: unknown stage %q", entities.ErrInvalidInput, c.Stage)
	}
	if c.ValueCents < 0 {
		return fmt.Errorf("%w: value must not be negative", entities.ErrInvalidInput)
	}
	return nil
}

func (uc *CustomerUsecase) Create(ctx context.Context, c *entities.Customer) error {
	if err := normalizeCustomer(c); err != nil {
		return err
	}
	return uc.customers.Create(ctx, c)
}

// Update applies a partial change. A stage change is recorded as an event.
func (uc *CustomerUsecase) Update(ctx context.Context, id int64, p entities.CustomerPatch) (*entities.Customer, error) {
	current, err := uc.customers.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Empty() {
		return current, nil
	}

	merged := *current
	if p.Name != nil {
		merged.Name = *p.Name
	}
	if p.Email != nil {
		merged.Email = *p.Email
	}
	if p.Phone != nil {
		merged.Phone = *p.Phone
	}
	if p.Company != nil {
		merged.Company = *p.Company
	}
	if p.Stage != nil {
		merged.Stage = *p.Stage
	}
	if p.ValueCents != nil {
		merged.ValueCents = *p.ValueCents
	}
	if p.Notes != nil {
		merged.Notes = *p.Notes
	}
	if err := normalizeCustomer(&merged); err != nil {
		return nil, err
	}

	// Write back the normalized values.
	patch := entities.CustomerPatch{Tags: p.Tags}
	if p.Name != nil {
		patch.Name = &merged.Name
	}
	if p.Email != nil {
		patch.Email = &merged.Email
	}
	if p.Phone != nil {
		patch.Phone = &merged.Phone
	}
	if p.Company != nil {
		patch.Company = &merged.Company
	}
	if p.Stage != nil {
		patch.Stage = &merged.Stage
	}
	if p.ValueCents != nil {
		patch.ValueCents = &merged.ValueCents
	}
	if p.Notes != nil {
		patch.Notes = &merged.Notes
	}

	updated, err := uc.customers.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	if updated.Stage != current.Stage {
		uc.stageChanged(ctx, updated, current.Stage)
	}
	return updated, nil
}

func (uc *CustomerUsecase) Delete(ctx context.Context, id int64) error {
	return uc.customers.Delete(ctx, id)
}

// Board groups customers into one column per stage in funnel order.
func (uc *CustomerUsecase) Board(ctx context.Context) ([]entities.BoardColumn, error) {
	customers, err := uc.customers.ListForBoard(ctx)
	if err != nil {
		return nil, err
	}
	return BuildBoard(customers), nil
}

// BuildBoard groups customers by stage. Input order is kept within a column;
// customers with an unknown stage are dropped.
func BuildBoard(customers []entities.Customer) []entities.BoardColumn {
	columns := make([]entities.BoardColumn, len(entities.Stages))
	index := make(map[entities.Stage]int, len(entities.Stages))
	for i, st := range entities.Stages {
		columns[i] = entities.BoardColumn{Stage: st, Customers: []entities.Customer{}}
		index[st] = i
	}
	for _, c := range customers {
		i, ok := index[c.Stage]
		if !ok {
			continue
		}
		col := &columns[i]
		col.Customers = append(col.Customers, c)
		col.Count++
		col.ValueCents += c.ValueCents
	}
	return columns
}

// Move places a customer in a column at position.
func (uc *CustomerUsecase) Move(ctx context.Context, id int64, stage entities.Stage, position int) (*entities.Customer, error) {
	if !stage.Valid() {
		return nil, fmt.Errorf("%w: unknown stage %q", entities.ErrInvalidInput, stage)
	}
	if position < 0 {
		return nil, fmt.Errorf("%w: position must not be negative", entities.ErrInvalidInput)
	}
	moved, from, err := uc.customers.Move(ctx, id, stage, position)
	if err != nil {
		return nil, err
	}
	if from != stage {
		uc.stageChanged(ctx, moved, from)
	}
	return moved, nil
}

func (uc *CustomerUsecase) stageChanged(ctx context.Context, c *entities.Customer, from entities.Stage) {
	recordEvent(ctx, uc.events, uc.logger, entities.EventCustomerStageChanged, map[string]any{
		"customer_id": c.ID,
		"name":        c.Name,
		"from":        from,
		"to":          c.Stage,
		"value_cents": c.ValueCents,
	})
}

// ImportCSV parses and inserts customers in one transaction.
func (uc *CustomerUsecase) ImportCSV(ctx context.Context, r io.Reader) (int, error) {
	customers, err := ParseCustomersCSV(r)
	if err != nil {
		return 0, err
	}
	for i := range customers {
		if err := normalizeCustomer(&customers[i]); err != nil {
			return 0, fmt.Errorf("row %d: %w", i+2, err)
		}
	}
	n, err := uc.customers.CreateMany(ctx, customers)
	if err != nil {
		return 0, err
	}
	uc.logger.Info("customers imported", "count", n)
	return n, nil
}

// ParseCustomersCSV reads a header row followed by customer rows. Known
// columns are name, email, phone, company, stage and value (a decimal amount);
// other columns are ignored. Unknown stages fall back to lead.
func ParseCustomersCSV(r io.Reader) ([]entities.Customer, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: CSV is empty", entities.ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read CSV header: %v", entities.ErrInvalidInput, err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	if _, ok := cols["name"]; !ok {
		return nil, fmt.Errorf("%w: CSV header must include a name column", entities.ErrInvalidInput)
	}
	field := func(record []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var customers []entities.Customer
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", entities.ErrInvalidInput, line, err)
		}
		if len(customers) >= MaxImportRows {
			return nil, fmt.Errorf("%w: at most %d rows per import", entities.ErrInvalidInput, MaxImportRows)
		}

		stage := entities.Stage(strings.ToLower(field(record, "stage")))
		if !stage.Valid() {
			stage = entities.StageLead
		}
		value, err := parseAmountCents(field(record, "value"))
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", entities.ErrInvalidInput, line, err)
		}

		customers = append(customers, entities.Customer{
			Name:       field(record, "name"),
			Email:      field(record, "email"),
			Phone:      field(record, "phone"),
			Company:    field(record, "company"),
			Stage:      stage,
			ValueCents: value,
		})
	}
	if len(customers) == 0 {
		return nil, fmt.Errorf("%w: CSV has no data rows", entities.ErrInvalidInput)
	}
	return customers, nil
}

func parseAmountCents(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimPrefix(s, "$"), ",", "")
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("invalid value %q", s)
	}
	return int64(math.Round(v * 100)), nil
}
