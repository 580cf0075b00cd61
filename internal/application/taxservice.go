package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ericfisherdev/storefront/internal/domain/model"
	"github.com/ericfisherdev/storefront/internal/domain/port/driven"
)

// Tax table validation errors.
var (
	ErrUnknownTaxTable = errors.New("unknown tax table")
	ErrInvalidTaxValue = errors.New("invalid tax value")
)

// TaxService validates and stores NCM codes and IPI rates.
type TaxService struct {
	store driven.TaxCodeStore
}

// NewTaxService creates a TaxService.
func NewTaxService(store driven.TaxCodeStore) *TaxService {
	return &TaxService{store: store}
}

// List returns every entry in table.
func (s *TaxService) List(ctx context.Context, table model.TaxTable) (map[string]string, error) {
	if !table.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTaxTable, table)
	}
	return s.store.List(ctx, table)
}

// SetMany validates every entry first and only then writes them, so an
// invalid entry leaves the table unchanged.
func (s *TaxService) SetMany(ctx context.Context, table model.TaxTable, entries map[string]string) error {
	if !table.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownTaxTable, table)
	}

	cleaned := make(map[string]string, len(entries))
	for key, value := range entries {
		k, v, err := validateTaxEntry(table, key, value)
		if err != nil {
			return err
		}
		cleaned[k] = v
	}

	for key, value := range cleaned {
		if err := s.store.Set(ctx, table, key, value); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes key from table.
func (s *TaxService) Delete(ctx context.Context, table model.TaxTable, key string) error {
	if !table.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownTaxTable, table)
	}
	return s.store.Delete(ctx, table, strings.TrimSpace(key))
}

func validateTaxEntry(table model.TaxTable, key, value string) (string, string, error) {
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if key == "" {
		return "", "", fmt.Errorf("%w: empty key", ErrInvalidTaxValue)
	}
	if value == "" {
		return "", "", fmt.Errorf("%w: empty value for %q", ErrInvalidTaxValue, key)
	}

	if table == model.TaxTableIPI {
		rate, err := decimal.NewFromString(strings.TrimSuffix(value, "%"))
		if err != nil || rate.IsNegative() || rate.GreaterThan(hundred) {
			return "", "", fmt.Errorf("%w: IPI rate %q for %q must be a percentage between 0 and 100", ErrInvalidTaxValue, value, key)
		}
		value = rate.String()
	}
	return key, value, nil
}
