package domain

import (
	"bytes"
	"strconv"
)

// Num is an optional numeric snapshot field. Valid is false when the field was
// absent, null, or carried a non-numeric JSON value.
type Num struct {
	Value float64
	Valid bool
}

// Some returns a valid Num holding v.
func Some(v float64) Num {
	return Num{Value: v, Valid: true}
}

// Truthy reports whether n holds a non-zero number.
func (n Num) Truthy() bool {
	return n.Valid && n.Value != 0
}

// Or returns the value, or def when n is not valid.
func (n Num) Or(def float64) float64 {
	if !n.Valid {
		return def
	}
	return n.Value
}

// UnmarshalJSON accepts any JSON value. Numbers become valid; everything else
// (null, strings, booleans, objects, arrays) leaves n invalid without error.
func (n *Num) UnmarshalJSON(data []byte) error {
	*n = Num{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	c := data[0]
	if c != '-' && (c < '0' || c > '9') {
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return nil
	}
	n.Value = v
	n.Valid = true
	return nil
}

// MarshalJSON encodes a valid Num as a JSON number and an invalid one as null.
func (n Num) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, n.Value, 'f', -1, 64), nil
}
