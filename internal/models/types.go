package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is a server-assigned identifier. Upstreams may send it as a JSON string
// or number; either way it is kept verbatim as text.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}

// Record is a row of a resource collection as returned by its upstream.
type Record interface {
	RecordID() string
	// FieldValues returns the record's editable fields in their textual form.
	FieldValues() Fields
	// Cells returns the display values of the schema fields, in schema order.
	Cells() []string
}

type User struct {
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (u User) RecordID() string { return string(u.ID) }

func (u User) FieldValues() Fields {
	return Fields{"name": u.Name, "email": u.Email}
}

func (u User) Cells() []string {
	return []string{u.Name, u.Email}
}

type Product struct {
	ID    ID      `json:"_id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

func (p Product) RecordID() string { return string(p.ID) }

func (p Product) FieldValues() Fields {
	return Fields{"name": p.Name, "price": strconv.FormatFloat(p.Price, 'f', -1, 64)}
}

func (p Product) Cells() []string {
	return []string{p.Name, FormatPrice(p.Price)}
}

// FormatPrice renders a price with a currency sign and exactly two decimals.
func FormatPrice(price float64) string {
	return fmt.Sprintf("$%.2f", price)
}
