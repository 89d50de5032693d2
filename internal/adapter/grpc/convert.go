package grpc

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/fundfolio-backend/internal/domain"
	"github.com/simaogato/fundfolio-backend/internal/usecase/portfolio"
)

// entryToMap renders a portfolio entry with money fields as fixed-point strings
func entryToMap(e portfolio.Entry) map[string]any {
	return map[string]any{
		"id":            e.HoldingID.String(),
		"fund_name":     e.FundName,
		"scheme_code":   e.SchemeCode,
		"nav":           e.NAV.StringFixed(domain.NAVPlaces),
		"quantity":      float64(e.Quantity),
		"current_value": e.CurrentValue.StringFixed(domain.NAVPlaces),
	}
}

func reportToMap(r *domain.RefreshReport) map[string]any {
	updated := make([]any, 0, len(r.Updated))
	for _, code := range r.Updated {
		updated = append(updated, code)
	}
	failed := make([]any, 0, len(r.Failed))
	for _, f := range r.Failed {
		failed = append(failed, map[string]any{"scheme_code": f.SchemeCode, "reason": f.Reason})
	}
	return map[string]any{
		"updated":       updated,
		"failed":        failed,
		"updated_count": float64(r.UpdatedCount()),
		"failed_count":  float64(r.FailedCount()),
		"started_at":    r.StartedAt.UTC().Format(time.RFC3339),
		"finished_at":   r.FinishedAt.UTC().Format(time.RFC3339),
	}
}

func totalToString(entries []portfolio.Entry) string {
	return portfolio.Total(entries).StringFixed(domain.NAVPlaces)
}

// protoSafe rewrites a decoded JSON value into the types structpb accepts.
// json.Number becomes float64 and typed slices become []any.
func protoSafe(v any) any {
	switch t := v.(type) {
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = protoSafe(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = protoSafe(val)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case decimal.Decimal:
		return t.String()
	default:
		return v
	}
}

// newStruct builds a structpb.Struct from m after making its values proto-safe
func newStruct(m map[string]any) (*structpb.Struct, error) {
	return structpb.NewStruct(protoSafe(m).(map[string]any))
}

// stringField returns the string field name of s, or "" when absent
func stringField(s *structpb.Struct, name string) string {
	if s == nil {
		return ""
	}
	if v, ok := s.GetFields()[name]; ok {
		if sv, ok := v.GetKind().(*structpb.Value_StringValue); ok {
			return sv.StringValue
		}
	}
	return ""
}

// integerField returns the whole-number field name of s. Missing fields are 0;
// fractional or non-numeric values are an error.
func integerField(s *structpb.Struct, name string) (int64, error) {
	if s == nil {
		return 0, nil
	}
	v, ok := s.GetFields()[name]
	if !ok {
		return 0, nil
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		f := k.NumberValue
		if f != math.Trunc(f) || f >= 1<<63 || f < -(1<<63) {
			return 0, fmt.Errorf("%s must be a whole number", name)
		}
		return int64(f), nil
	case *structpb.Value_NullValue:
		return 0, nil
	default:
		return 0, fmt.Errorf("%s must be a number", name)
	}
}
