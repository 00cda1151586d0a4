package usecases

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"supportdesk/internal/entities"
	"supportdesk/internal/repository"
)

const (
	defaultRowLimit = 100
	maxRowLimit     = 1000
)

// RestUsecase exposes whitelisted tables through generic row CRUD.
type RestUsecase struct {
	rows RowStore
}

func NewRestUsecase(rows RowStore) *RestUsecase {
	return &RestUsecase{rows: rows}
}

// ParseRowQuery reads order=col.asc|col.desc, limit and offset; every other
// parameter is an equality filter. Values may carry an "eq." prefix.
func ParseRowQuery(params url.Values) (repository.RowQuery, error) {
	q := repository.RowQuery{Filters: map[string]string{}, Limit: defaultRowLimit}
	for key, values := range params {
		if len(values) == 0 {
			continue
		}
		value := values[0]
		switch key {
		case "order":
			col, dir, _ := strings.Cut(value, ".")
			switch dir {
			case "", "asc":
			case "desc":
				q.Desc = true
			default:
				return q, fmt.Errorf("%w: order direction must be asc or desc", entities.ErrInvalidInput)
			}
			q.OrderBy = col
		case "limit":
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 {
				return q, fmt.Errorf("%w: limit must be a positive integer", entities.ErrInvalidInput)
			}
			if n > maxRowLimit {
				n = maxRowLimit
			}
			q.Limit = n
		case "offset":
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return q, fmt.Errorf("%w: offset must be a non-negative integer", entities.ErrInvalidInput)
			}
			q.Offset = n
		default:
			q.Filters[key] = strings.TrimPrefix(value, "eq.")
		}
	}
	return q, nil
}

func (uc *RestUsecase) Select(ctx context.Context, table string, params url.Values) ([]map[string]any, error) {
	q, err := ParseRowQuery(params)
	if err != nil {
		return nil, err
	}
	return uc.rows.Select(ctx, table, q)
}

func (uc *RestUsecase) Insert(ctx context.Context, table string, data map[string]any) (map[string]any, error) {
	return uc.rows.Insert(ctx, table, sanitizeRow(data))
}

func (uc *RestUsecase) Update(ctx context.Context, table, key string, data map[string]any) (map[string]any, error) {
	return uc.rows.Update(ctx, table, key, sanitizeRow(data))
}

func (uc *RestUsecase) Delete(ctx context.Context, table, key string) error {
	return uc.rows.Delete(ctx, table, key)
}

func sanitizeRow(data map[string]any) map[string]any {
	for k, v := range data {
		if s, ok := v.(string); ok {
			data[k] = SanitizeString(s)
		}
	}
	return data
}
