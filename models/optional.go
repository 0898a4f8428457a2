package models

import (
	"bytes"
	"encoding/json"
)

// Opt distinguishes "key absent" from "key present with null" in a JSON
// patch body. Defined is true once the key appeared; Value stays nil for an
// explicit null.
type Opt[T any] struct {
	Defined bool
	Value   *T
}

func (o *Opt[T]) UnmarshalJSON(data []byte) error {
	o.Defined = true
	if bytes.Equal(data, []byte("null")) {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

func (o Opt[T]) MarshalJSON() ([]byte, error) {
	if !o.Defined || o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.Value)
}

// Some builds a present Opt; handy in tests and internal callers.
func Some[T any](v T) Opt[T] {
	return Opt[T]{Defined: true, Value: &v}
}

// Null builds an explicit-null Opt.
func Null[T any]() Opt[T] {
	return Opt[T]{Defined: true}
}
