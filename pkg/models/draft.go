package models

import (
	"bytes"
	"encoding/json"
)

// Optional holds a value that is either absent or explicitly set.
// A set zero value ("" or an empty slice) is still set.
type Optional[T any] struct {
	value T
	set   bool
}

// Some returns a set Optional holding v
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// None returns an absent Optional
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it is set
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

// Value returns the value, or the zero value when absent
func (o Optional[T]) Value() T {
	return o.value
}

// IsSet reports whether a value is present
func (o Optional[T]) IsSet() bool {
	return o.set
}

// IsZero lets encoding/json omit absent fields tagged omitzero
func (o Optional[T]) IsZero() bool {
	return !o.set
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.set {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = Optional[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

// Draft is a partially filled capture handed in by the capture parser.
// Absent fields are eligible for auto-fill; set fields are never overwritten.
type Draft struct {
	Title       string             `json:"title,omitempty"`
	Category    Optional[string]   `json:"category,omitzero"`
	Subcategory Optional[string]   `json:"subcategory,omitzero"`
	Skills      Optional[[]string] `json:"skills,omitzero"`
	Goal        Optional[string]   `json:"goal,omitzero"`
	People      []string           `json:"people,omitempty"`
	Location    Optional[string]   `json:"location,omitzero"`
}

// RecordKind identifies what a finalized record was saved as
type RecordKind string

const (
	RecordKindEvent RecordKind = "event"
	RecordKindTask  RecordKind = "task"
	RecordKindText  RecordKind = "text"
)

// Valid reports whether k is a known record kind
func (k RecordKind) Valid() bool {
	switch k {
	case RecordKindEvent, RecordKindTask, RecordKindText:
		return true
	}
	return false
}

// Record is a finalized event, task or raw capture whose user-assigned
// attributes are learned from. Empty fields are treated as absent.
type Record struct {
	ID          string     `json:"id,omitempty"`
	Kind        RecordKind `json:"kind"`
	Text        string     `json:"text"`
	Category    string     `json:"category,omitempty"`
	Subcategory string     `json:"subcategory,omitempty"`
	Skills      []string   `json:"skills,omitempty"`
	Goal        string     `json:"goal,omitempty"`
	People      []string   `json:"people,omitempty"`
	Location    string     `json:"location,omitempty"`
}
