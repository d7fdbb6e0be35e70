package filter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/rikitraki/trackapi/internal/domain"
)

// Parse decodes a client filter object. Unknown keys are dropped here so
// that matching never sees them. An empty input yields Empty().
func Parse(raw []byte) (Expression, error) {
	if strings.TrimSpace(string(raw)) == "" {
		return Empty(), nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return Expression{}, fmt.Errorf("%w: %w", domain.ErrInvalidFilter, err)
	}

	if rawAnd, ok := obj["and"]; ok {
		cs, err := parseList("and", rawAnd)
		if err != nil {
			return Expression{}, err
		}
		return And(cs...), nil
	}
	if rawOr, ok := obj["or"]; ok {
		cs, err := parseList("or", rawOr)
		if err != nil {
			return Expression{}, err
		}
		return Or(cs...), nil
	}

	c, err := parseCondition(obj)
	if err != nil {
		return Expression{}, err
	}
	return Flat(c), nil
}

func parseList(group string, raw json.RawMessage) ([]Condition, error) {
	var items []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %q must be a list of objects", domain.ErrInvalidFilter, group)
	}
	if len(items) > MaxConditionsPerGroup {
		return nil, fmt.Errorf("%w: too many %s conditions (max %d)",
			domain.ErrInvalidFilter, group, MaxConditionsPerGroup)
	}
	cs := make([]Condition, 0, len(items))
	for _, item := range items {
		c, err := parseCondition(item)
		if err != nil {
			return nil, err
		}
		cs = append(cs, c)
	}
	return cs, nil
}

func parseCondition(obj map[string]json.RawMessage) (Condition, error) {
	var c Condition
	for k, raw := range obj {
		if !IsKnown(k) {
			continue
		}
		val, err := scalar(raw)
		if err != nil {
			return Condition{}, fmt.Errorf("%w: key %q: %w", domain.ErrInvalidFilter, k, err)
		}
		if val == "" {
			continue
		}

		switch Key(k) {
		case KeyUsername:
			c.Username = &val
		case KeyTrackFav:
			b, err := strconv.ParseBool(val)
			if err != nil {
				return Condition{}, fmt.Errorf("%w: trackFav must be a boolean", domain.ErrInvalidFilter)
			}
			c.Favorite = &b
		case KeyLevel:
			c.Level = SplitList(val)
		case KeyActivity:
			c.Activity = SplitList(val)
		case KeyCountry:
			c.Country = SplitList(val)
		case KeyRegion:
			c.Region = SplitList(val)
		}
	}
	return c, nil
}

// scalar normalizes a JSON string, boolean or number to its string form.
func scalar(raw json.RawMessage) (string, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", err
	}
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(t), nil
	case bool:
		return strconv.FormatBool(t), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}

// SplitList splits a comma-separated value, trimming blanks and dropping
// empty entries. Order is preserved: the first entry drives index selection.
func SplitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
