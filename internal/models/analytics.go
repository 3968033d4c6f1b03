package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Analytics is the institution summary returned by GET /analytics/.
type Analytics struct {
	TotalStudents   int           `json:"total_students"`
	TotalActivities int           `json:"total_activities"`
	DepartmentWise  OrderedCounts `json:"department_wise"`
}

// DepartmentCount is one department entry.
type DepartmentCount struct {
	Department string `json:"department" yaml:"department"`
	Count      int    `json:"count" yaml:"count"`
}

// OrderedCounts is a department -> count mapping that keeps the key order the
// backend sent. It encodes back to a JSON object in the same order.
type OrderedCounts []DepartmentCount

// Max returns the largest count, or zero for an empty mapping.
func (o OrderedCounts) Max() int {
	highest := 0
	for _, entry := range o {
		if entry.Count > highest {
			highest = entry.Count
		}
	}
	return highest
}

// UnmarshalJSON decodes a JSON object token by token so key order survives.
func (o *OrderedCounts) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*o = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("department counts: expected object, got %v", tok)
	}

	result := OrderedCounts{}
	index := map[string]int{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("department counts: invalid key %v", keyTok)
		}
		var count int
		if err := dec.Decode(&count); err != nil {
			return fmt.Errorf("department counts: value for %q: %w", key, err)
		}
		if pos, dup := index[key]; dup {
			result[pos].Count = count
			continue
		}
		index[key] = len(result)
		result = append(result, DepartmentCount{Department: key, Count: count})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*o = result
	return nil
}

// MarshalJSON encodes the mapping as a JSON object in insertion order.
func (o OrderedCounts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, entry := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(entry.Department)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		fmt.Fprintf(&buf, "%d", entry.Count)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
