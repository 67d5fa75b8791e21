package catalog

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Record is a validated candidate product, the common input of the direct
// create endpoint and the import queue consumer.
type Record struct {
	Title       string
	Description string
	Price       int64
	Count       int64
}

// ParseRecord parses and validates a candidate product payload. Title must be
// a non-empty string, description a string when present, price a positive
// integer. Price and count accept either a number or a numeric string;
// CSV-sourced rows routinely carry the latter. Count is optional and defaults
// to zero. All failures wrap ErrInvalidRecord.
func ParseRecord(payload []byte) (Record, error) {
	var raw struct {
		Title       json.RawMessage `json:"title"`
		Description json.RawMessage `json:"description"`
		Price       json.RawMessage `json:"price"`
		Count       json.RawMessage `json:"count"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Record{}, fmt.Errorf("%w: malformed payload: %v", ErrInvalidRecord, err)
	}

	var rec Record

	title, ok := asString(raw.Title)
	if !ok || strings.TrimSpace(title) == "" {
		return Record{}, fmt.Errorf("%w: title must be a non-empty string", ErrInvalidRecord)
	}
	rec.Title = title

	if len(raw.Description) > 0 {
		description, ok := asString(raw.Description)
		if !ok {
			return Record{}, fmt.Errorf("%w: description must be a string", ErrInvalidRecord)
		}
		rec.Description = description
	}

	if len(raw.Price) == 0 {
		return Record{}, fmt.Errorf("%w: price is required", ErrInvalidRecord)
	}
	price, err := asNumber(raw.Price)
	if err != nil {
		return Record{}, fmt.Errorf("%w: price must be an integer number", ErrInvalidRecord)
	}
	if price <= 0 {
		return Record{}, fmt.Errorf("%w: price must be positive", ErrInvalidRecord)
	}
	rec.Price = price

	if len(raw.Count) > 0 {
		count, err := asNumber(raw.Count)
		if err != nil {
			return Record{}, fmt.Errorf("%w: count must be a number or numeric string", ErrInvalidRecord)
		}
		if count < 0 {
			return Record{}, fmt.Errorf("%w: count must not be negative", ErrInvalidRecord)
		}
		rec.Count = count
	}

	return rec, nil
}

func asString(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// asNumber accepts a JSON number or a numeric string and returns its integer
// value.
func asNumber(raw json.RawMessage) (int64, error) {
	var value any
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	if err := dec.Decode(&value); err != nil {
		return 0, err
	}

	switch v := value.(type) {
	case json.Number:
		return v.Int64()
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	default:
		return 0, fmt.Errorf("unexpected type %T", value)
	}
}
