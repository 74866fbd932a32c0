package main

import (
	"github.com/dvloznov/pocket-ledger/internal/domain"
	"github.com/dvloznov/pocket-ledger/internal/transactions"
	"github.com/shopspring/decimal"
)

func parseValue(s string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &domain.ValidationError{Field: "amount", Message: "invalid amount: " + s}
	}
	return v, nil
}

func createInput(txType, value, currency, description, date string) (transactions.CreateInput, error) {
	var in transactions.CreateInput

	t, err := domain.ParseTransactionType(txType)
	if err != nil {
		return in, err
	}
	v, err := parseValue(value)
	if err != nil {
		return in, err
	}
	c, err := domain.ParseCurrency(currency)
	if err != nil {
		return in, err
	}
	d, err := domain.ParseDate(date)
	if err != nil {
		return in, err
	}

	return transactions.CreateInput{
		Type:        t,
		Value:       v,
		Currency:    c,
		Description: description,
		Date:        d,
	}, nil
}

// buildPatch turns the flags present in set into a transactions.Patch.
func buildPatch(set map[string]bool, txType, value, currency, description, date string) (transactions.Patch, error) {
	var p transactions.Patch

	if set["type"] {
		t, err := domain.ParseTransactionType(txType)
		if err != nil {
			return p, err
		}
		p.Type = &t
	}
	if set["value"] {
		v, err := parseValue(value)
		if err != nil {
			return p, err
		}
		p.Value = &v
	}
	if set["currency"] {
		c, err := domain.ParseCurrency(currency)
		if err != nil {
			return p, err
		}
		p.Currency = &c
	}
	if set["description"] {
		p.Description = &description
	}
	if set["date"] {
		d, err := domain.ParseDate(date)
		if err != nil {
			return p, err
		}
		p.Date = &d
	}
	return p, nil
}
