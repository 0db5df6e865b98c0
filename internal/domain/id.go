package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ID is the canonical string form of an identifier. Upstream services send
// ids as JSON numbers or strings; both decode to the same ID, so 1 and "1"
// compare equal everywhere in the client.
type ID string

// String returns the canonical form.
func (id ID) String() string {
	return string(id)
}

// IsZero reports whether the id is blank.
func (id ID) IsZero() bool {
	return strings.TrimSpace(string(id)) == ""
}

// UnmarshalJSON accepts a JSON string, number or null.
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
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	canonical, err := canonicalNumber(string(data))
	if err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = ID(canonical)
	return nil
}

// IDOf canonicalizes an id of any supported Go type.
func IDOf(raw any) (ID, error) {
	switch v := raw.(type) {
	case nil:
		return "", &ValidationError{Field: "id", Reason: "required"}
	case ID:
		return normalizeString(string(v))
	case string:
		return normalizeString(v)
	case json.Number:
		s, err := canonicalNumber(v.String())
		if err != nil {
			return "", &ValidationError{Field: "id", Reason: err.Error()}
		}
		return ID(s), nil
	case int:
		return ID(strconv.FormatInt(int64(v), 10)), nil
	case int32:
		return ID(strconv.FormatInt(int64(v), 10)), nil
	case int64:
		return ID(strconv.FormatInt(v, 10)), nil
	case uint:
		return ID(strconv.FormatUint(uint64(v), 10)), nil
	case uint32:
		return ID(strconv.FormatUint(uint64(v), 10)), nil
	case uint64:
		return ID(strconv.FormatUint(v, 10)), nil
	case float32:
		return ID(strconv.FormatFloat(float64(v), 'f', -1, 32)), nil
	case float64:
		return ID(strconv.FormatFloat(v, 'f', -1, 64)), nil
	case fmt.Stringer:
		return normalizeString(v.String())
	default:
		return "", &ValidationError{Field: "id", Reason: fmt.Sprintf("unsupported type %T", raw)}
	}
}

func normalizeString(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", &ValidationError{Field: "id", Reason: "required"}
	}
	return ID(s), nil
}

// canonicalNumber keeps integer literals verbatim and renders other numbers
// in their shortest decimal form, so 7 and 7.0 agree.
func canonicalNumber(lit string) (string, error) {
	lit = strings.TrimSpace(lit)
	if lit == "" {
		return "", fmt.Errorf("empty number")
	}
	if !strings.ContainsAny(lit, ".eE") {
		if _, err := strconv.ParseInt(lit, 10, 64); err == nil {
			return lit, nil
		}
		if _, err := strconv.ParseUint(lit, 10, 64); err == nil {
			return lit, nil
		}
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return "", fmt.Errorf("invalid number %q", lit)
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}
