package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Document is an open JSON document stored in a JSONB column.
type Document map[string]interface{}

// Value implements driver.Valuer.
func (d Document) Value() (driver.Value, error) {
	if d == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(d)
}

// Scan implements sql.Scanner.
func (d *Document) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = Document{}
		return nil
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	default:
		return fmt.Errorf("unsupported document source %T", src)
	}
}

// Record is one row of a generic entity collection.
type Record struct {
	ID        string    `db:"id" json:"id"`
	Entity    string    `db:"entity" json:"-"`
	Doc       Document  `db:"doc" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"timestamp"`
}

// MarshalJSON flattens the document alongside the identity and timestamp so
// clients see one open object per record.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(r.Doc)+2)
	for k, v := range r.Doc {
		out[k] = v
	}
	out["id"] = r.ID
	out["timestamp"] = r.CreatedAt
	return json.Marshal(out)
}
