package render

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/order-report/internal/domain/order"
	"github.com/xenking/order-report/internal/domain/report"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestNewFormatter_Invalid(t *testing.T) {
	_, err := NewFormatter("not a locale!", "USD")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse locale")

	_, err = NewFormatter("en-US", "DOLLARS")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse currency")
}

func TestFormatter_Money(t *testing.T) {
	tests := []struct {
		name     string
		locale   string
		currency string
		amount   decimal.Decimal
		want     string
	}{
		{name: "english grouping", locale: "en-US", currency: "USD", amount: d("1268.973"), want: "1,268.97"},
		{name: "rounds half away from zero", locale: "en-US", currency: "USD", amount: d("728.055"), want: "728.06"},
		{name: "german separators", locale: "de-DE", currency: "EUR", amount: d("1268.97"), want: "1.268,97"},
		{name: "keeps cents of large amounts", locale: "en-US", currency: "USD", amount: d("123456789012345678.91"), want: "123,456,789,012,345,678.91"},
		{name: "leading zero cents", locale: "en-US", currency: "USD", amount: d("5.05"), want: "5.05"},
		{name: "whole amount", locale: "en-US", currency: "USD", amount: d("500"), want: "500.00"},
		{name: "negative", locale: "en-US", currency: "USD", amount: d("-80.895"), want: "-80.90"},
		{name: "beyond int64", locale: "en-US", currency: "USD", amount: d("12345678901234567890123.456"), want: "12345678901234567890123.46"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewFormatter(tt.locale, tt.currency)
			require.NoError(t, err)
			assert.Contains(t, f.Money(tt.amount), tt.want)
		})
	}
}

func TestFormatter_Summary(t *testing.T) {
	f, err := NewFormatter("en-US", "USD")
	require.NoError(t, err)

	s := &report.Summary{
		Orders:       2,
		GrossRevenue: d("2038.95"),
		NetRevenue:   d("1835.06"),
		TopSpender:   "pers2",
		Customers: []report.CustomerSpend{
			{Customer: "pers2", Total: d("1268.97"), Orders: 1},
			{Customer: "pers3", Total: d("566.08"), Orders: 1},
		},
		Popularity: report.Popularity{
			{Name: "Keyboard", Quantity: 3},
			{Name: "Laptop", Quantity: 1},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, f.Summary(&buf, s))

	out := buf.String()
	assert.Contains(t, out, "Top spender: pers2")
	assert.Contains(t, out, "2,038.95")
	assert.Contains(t, out, "1,268.97")
	assert.Contains(t, out, "Keyboard")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("Keyboard")), bytes.Index(buf.Bytes(), []byte("Laptop")))
}

func TestFormatter_Order(t *testing.T) {
	f, err := NewFormatter("en-US", "USD")
	require.NoError(t, err)

	o := order.Restore(1, "Utiu Dalia", "Romania", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	item, err := order.NewLineItem("Monitor", 1, d("549.00"))
	require.NoError(t, err)
	o.AddItem(item)

	var buf bytes.Buffer
	require.NoError(t, f.Order(&buf, o))

	out := buf.String()
	assert.Contains(t, out, "Utiu Dalia")
	assert.Contains(t, out, "2024-03-01")
	assert.Contains(t, out, "54.90")
	assert.Contains(t, out, "494.10")
}
