package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Vector 是以 JSON 数组形式存储在 MySQL 中的 embedding 向量。
type Vector []float32

// Value 实现 driver.Valuer，空向量存为 NULL。
func (v Vector) Value() (driver.Value, error) {
	if len(v) == 0 {
		return nil, nil
	}
	b, err := json.Marshal([]float32(v))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan 实现 sql.Scanner。
func (v *Vector) Scan(src interface{}) error {
	var data []byte
	switch s := src.(type) {
	case nil:
		*v = nil
		return nil
	case []byte:
		data = s
	case string:
		data = []byte(s)
	default:
		return fmt.Errorf("unsupported vector source type %T", src)
	}
	if len(data) == 0 {
		*v = nil
		return nil
	}
	var out []float32
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("failed to decode vector: %w", err)
	}
	*v = out
	return nil
}
