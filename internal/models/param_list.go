package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// ParamList stores an ordered list of parameter names as a comma-joined
// string, while tolerating legacy JSON-array data.
type ParamList []string

func (p ParamList) Value() (driver.Value, error) {
	return strings.Join([]string(p), ","), nil
}

func (p *ParamList) Scan(value interface{}) error {
	if p == nil {
		return fmt.Errorf("models.ParamList: Scan on nil pointer")
	}
	if value == nil {
		*p = ParamList{}
		return nil
	}

	var raw string
	switch v := value.(type) {
	case []byte:
		raw = string(v)
	case string:
		raw = v
	default:
		return fmt.Errorf("models.ParamList: unsupported Scan type %T", value)
	}

	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" || raw == "[]" {
		*p = ParamList{}
		return nil
	}

	if strings.HasPrefix(raw, "[") && strings.HasSuffix(raw, "]") {
		raw = strings.Trim(raw, "[]")
		raw = strings.ReplaceAll(raw, `"`, "")
	}

	parts := strings.Split(raw, ",")
	out := make(ParamList, 0, len(parts))
	for _, part := range parts {
		if name := strings.TrimSpace(part); name != "" {
			out = append(out, name)
		}
	}
	*p = out
	return nil
}
