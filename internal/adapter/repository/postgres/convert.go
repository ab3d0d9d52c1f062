package postgres

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/iho/financeager/internal/domain"
)

func recordColumns(record domain.EntryRecord) (pgtype.Numeric, pgtype.Date, error) {
	d, err := time.Parse(domain.DateLayout, record.Date)
	if err != nil {
		return pgtype.Numeric{}, pgtype.Date{}, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	return floatToNumeric(record.Value), pgtype.Date{Time: d, Valid: true}, nil
}

func floatToNumeric(f float64) pgtype.Numeric {
	return decimalToNumeric(decimal.NewFromFloat(f))
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric

	_ = n.Scan(d.String())

	return n
}

func numericToFloat(n pgtype.Numeric) float64 {
	f, _ := numericToDecimal(n).Float64()
	return f
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}

	d, _ := decimal.NewFromString(n.Int.String())
	if n.Exp != 0 {
		d = d.Shift(n.Exp)
	}

	return d
}

func dateToString(d pgtype.Date) string {
	if !d.Valid {
		return ""
	}
	return d.Time.Format(domain.DateLayout)
}
