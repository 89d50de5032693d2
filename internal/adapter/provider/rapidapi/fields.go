package rapidapi

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"

	"github.com/simaogato/fundfolio-backend/internal/domain"
)

// FieldPaths holds the JSONPath expressions that locate the scheme code, name
// and NAV inside one provider record.
type FieldPaths struct {
	Code string
	Name string
	NAV  string
}

// DefaultFieldPaths returns the paths for the RapidAPI "latest" payload
func DefaultFieldPaths() FieldPaths {
	return FieldPaths{
		Code: "$.Scheme_Code",
		Name: "$.Scheme_Name",
		NAV:  "$.Net_Asset_Value",
	}
}

func (p FieldPaths) withDefaults() FieldPaths {
	d := DefaultFieldPaths()
	if p.Code == "" {
		p.Code = d.Code
	}
	if p.Name == "" {
		p.Name = d.Name
	}
	if p.NAV == "" {
		p.NAV = d.NAV
	}
	return p
}

// record maps a decoded provider object onto a FundRecord. Missing or
// unparseable fields are left empty; judging validity is up to the caller.
func (p FieldPaths) record(item map[string]any) domain.FundRecord {
	record := domain.FundRecord{Raw: item}

	if v, ok := lookup(p.Code, item); ok {
		record.SchemeCode = scalarString(v)
	}
	if v, ok := lookup(p.Name, item); ok {
		record.Name = strings.TrimSpace(scalarString(v))
	}
	if v, ok := lookup(p.NAV, item); ok {
		if nav, err := parseNAV(v); err == nil {
			record.NAV = decimal.NewNullDecimal(nav)
		}
	}

	return record
}

func lookup(path string, item map[string]any) (any, bool) {
	v, err := jsonpath.Get(path, item)
	if err != nil || v == nil {
		return nil, false
	}
	// jsonpath may wrap a single match in a list
	if list, ok := v.([]any); ok {
		if len(list) == 0 {
			return nil, false
		}
		v = list[0]
	}
	return v, true
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

// parseNAV accepts numbers and numeric strings such as "1,038.52"
func parseNAV(v any) (decimal.Decimal, error) {
	switch t := v.(type) {
	case json.Number:
		return decimal.NewFromString(t.String())
	case float64:
		return decimal.NewFromFloat(t), nil
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(t), ",", "")
		if s == "" || strings.EqualFold(s, "N/A") {
			return decimal.Zero, fmt.Errorf("nav not available")
		}
		return decimal.NewFromString(s)
	default:
		return decimal.Zero, fmt.Errorf("unsupported nav type %T", v)
	}
}
