package macros

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Nutriments holds the raw nutrient map of a food database record. Values may
// be numbers, numeric strings or junk.
type Nutriments map[string]any

// Number returns the value under key when it is a finite, positive number.
// Zero, negative, non-numeric and non-finite values count as absent.
func (n Nutriments) Number(key string) (float64, bool) {
	raw, ok := n[key]
	if !ok || raw == nil {
		return 0, false
	}

	var v float64
	switch val := raw.(type) {
	case float64:
		v = val
	case float32:
		v = float64(val)
	case int:
		v = float64(val)
	case int64:
		v = float64(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return 0, false
		}
		v = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		v = f
	default:
		return 0, false
	}

	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, false
	}
	return v, true
}

// Product is a food database record. Every field is optional.
type Product struct {
	Code        string     `json:"code"`
	Name        string     `json:"product_name"`
	Brands      string     `json:"brands"`
	ServingSize string     `json:"serving_size"`
	Nutriments  Nutriments `json:"nutriments"`
}

// UnmarshalJSON ignores fields of unexpected types instead of failing the
// whole record.
func (p *Product) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*p = Product{
		Code:        stringField(raw, "code", "_id"),
		Name:        stringField(raw, "product_name", "product_name_en", "generic_name"),
		Brands:      stringField(raw, "brands"),
		ServingSize: stringField(raw, "serving_size"),
		Nutriments:  Nutriments{},
	}

	if nutrimentsRaw, ok := raw["nutriments"]; ok {
		var n map[string]any
		if err := json.Unmarshal(nutrimentsRaw, &n); err == nil && n != nil {
			p.Nutriments = n
		}
	}

	return nil
}

// stringField returns the first non-empty string among keys. Numbers are
// accepted as well, since barcodes sometimes arrive unquoted.
func stringField(raw map[string]json.RawMessage, keys ...string) string {
	for _, key := range keys {
		v, ok := raw[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
			continue
		}
		var n json.Number
		if err := json.Unmarshal(v, &n); err == nil && n.String() != "" {
			return n.String()
		}
	}
	return ""
}
