package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// InsuranceRate is the rate applied to a cargo type on a given date.
// Date is free text as supplied by the uploader.
type InsuranceRate struct {
	ID          int64     `json:"id"`
	CargoType   string    `json:"cargo_type"`
	Rate        float64   `json:"rate"`
	Date        string    `json:"date"`
	CreatedDate time.Time `json:"created_date"`
}

// AuditID implements Auditable
func (r *InsuranceRate) AuditID() int64 {
	return r.ID
}

// SameKey reports whether the row has exactly the (date, cargo_type, rate)
// natural key. Empty strings and zero rates compare like any other value.
func (r *InsuranceRate) SameKey(date, cargoType string, rate float64) bool {
	return r.Date == date && r.CargoType == cargoType && r.Rate == rate
}

// RateFilter selects insurance rates. Nil fields impose no constraint.
type RateFilter struct {
	ID        *int64   `json:"id,omitempty"`
	CargoType *string  `json:"cargo_type,omitempty"`
	Rate      *float64 `json:"rate,omitempty"`
	Date      *string  `json:"date,omitempty"`
}

// Normalize drops falsy fields (empty strings, zero id, zero rate) so they
// impose no constraint
func (f RateFilter) Normalize() RateFilter {
	if f.ID != nil && *f.ID == 0 {
		f.ID = nil
	}
	if f.Rate != nil && *f.Rate == 0 {
		f.Rate = nil
	}
	if f.CargoType != nil && *f.CargoType == "" {
		f.CargoType = nil
	}
	if f.Date != nil && *f.Date == "" {
		f.Date = nil
	}
	return f
}

// Matches reports whether the rate satisfies every set field
func (f RateFilter) Matches(r *InsuranceRate) bool {
	n := f.Normalize()
	if n.ID != nil && r.ID != *n.ID {
		return false
	}
	if n.CargoType != nil && r.CargoType != *n.CargoType {
		return false
	}
	if n.Rate != nil && r.Rate != *n.Rate {
		return false
	}
	if n.Date != nil && r.Date != *n.Date {
		return false
	}
	return true
}

// RateItem is one cargo type and rate within an upload
type RateItem struct {
	CargoType string  `json:"cargo_type" yaml:"cargo_type"`
	Rate      float64 `json:"rate" yaml:"rate"`
}

// DateRates holds the rates uploaded for one date
type DateRates struct {
	Date  string
	Items []RateItem
}

// UploadPayload maps dates to rate items. It is encoded as a JSON object keyed
// by date; key order is preserved so rows are created in upload order.
type UploadPayload []DateRates

// Set replaces the items for date, keeping the position of an existing key
func (p *UploadPayload) Set(date string, items []RateItem) {
	for i := range *p {
		if (*p)[i].Date == date {
			(*p)[i].Items = items
			return
		}
	}
	*p = append(*p, DateRates{Date: date, Items: items})
}

// Len returns the total number of rate items across all dates
func (p UploadPayload) Len() int {
	n := 0
	for _, d := range p {
		n += len(d.Items)
	}
	return n
}

// Flatten expands the payload into one unsaved InsuranceRate per item,
// dates in payload order and items in list order.
func (p UploadPayload) Flatten() []*InsuranceRate {
	rates := make([]*InsuranceRate, 0, p.Len())
	for _, d := range p {
		for _, item := range d.Items {
			rates = append(rates, &InsuranceRate{
				CargoType: item.CargoType,
				Rate:      item.Rate,
				Date:      d.Date,
			})
		}
	}
	return rates
}

// UnmarshalJSON decodes a date-keyed object without losing key order
func (p *UploadPayload) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*p = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("%w: upload payload must be an object keyed by date", ErrInvalidInput)
	}

	out := UploadPayload{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		date, ok := tok.(string)
		if !ok {
			return fmt.Errorf("%w: unexpected token %v", ErrInvalidInput, tok)
		}

		var items []RateItem
		if err := dec.Decode(&items); err != nil {
			return fmt.Errorf("%w: rates for %q: %v", ErrInvalidInput, date, err)
		}
		out.Set(date, items)
	}

	// closing brace
	if _, err := dec.Token(); err != nil {
		return err
	}

	*p = out
	return nil
}

// MarshalJSON encodes the payload as a date-keyed object in payload order
func (p UploadPayload) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, d := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(d.Date)
		if err != nil {
			return nil, err
		}
		items := d.Items
		if items == nil {
			items = []RateItem{}
		}
		value, err := json.Marshal(items)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// CalculationRequest asks for the insurance amount on a price
type CalculationRequest struct {
	ID    int64   `json:"id"`
	Price float64 `json:"price"`
}

// Calculation is the result of applying a rate to a price
type Calculation struct {
	Total float64 `json:"total"`
}

// UpdateRateRequest changes the rate of an existing row
type UpdateRateRequest struct {
	ID      int64   `json:"id"`
	NewRate float64 `json:"new_rate"`
}

// DeleteRateRequest removes a row by ID
type DeleteRateRequest struct {
	ID int64 `json:"id"`
}
