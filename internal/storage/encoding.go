package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// encodeStrings stores a string list as a JSON array. nil and empty both
// encode as "[]".
func encodeStrings(s []string) string {
	if len(s) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(s)
	return string(b)
}

// decodeStrings reverses encodeStrings. An empty array decodes to nil.
func decodeStrings(s string) ([]string, error) {
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("invalid string list %q: %w", s, err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// nullableStrings encodes a list whose absence is meaningful.
func nullableStrings(s []string, present bool) sql.NullString {
	if !present {
		return sql.NullString{}
	}
	return sql.NullString{String: encodeStrings(s), Valid: true}
}

func nullableID(id int, ok bool) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(id), Valid: ok}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
