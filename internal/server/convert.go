package server

import (
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/alfredjeanlab/configmonkey/internal/model"
	"github.com/alfredjeanlab/configmonkey/internal/service"
)

// gRPC messages are structpb.Struct values. Versions carry their value in
// text form with a type tag, so 64-bit integers survive the float64 numbers
// of structpb.

func domainFields(d *model.Domain) map[string]any {
	return map[string]any{
		"slug":       d.Slug,
		"created_at": d.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func configFields(c *model.Config) map[string]any {
	return map[string]any{
		"key":        c.Key,
		"created_at": c.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func versionFields(v *model.Version) map[string]any {
	text, typ := v.Value.Encode()
	return map[string]any{
		"index":      float64(v.Index),
		"type":       string(typ),
		"value":      text,
		"created_at": v.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// pageFields renders a page as {"items", "count", "limit", "offset"} plus
// "next_offset" and "prev_offset" when those pages exist.
func pageFields[T any](page model.Page[T], conv func(T) map[string]any) map[string]any {
	items := make([]any, 0, len(page.Items))
	for _, item := range page.Items {
		items = append(items, conv(item))
	}
	out := map[string]any{
		"items":  items,
		"count":  float64(page.Count),
		"limit":  float64(page.Limit),
		"offset": float64(page.Offset),
	}
	if page.NextOffset != nil {
		out["next_offset"] = float64(*page.NextOffset)
	}
	if page.PrevOffset != nil {
		out["prev_offset"] = float64(*page.PrevOffset)
	}
	return out
}

func toStruct(fields map[string]any) (*structpb.Struct, error) {
	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("build response: %w", err)
	}
	return st, nil
}

// stringField returns the named string field. A missing field is "".
func stringField(in *structpb.Struct, name string) (string, error) {
	v, ok := in.GetFields()[name]
	if !ok {
		return "", nil
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("field %q: want string", name)
	}
	return s.StringValue, nil
}

// intField returns the named integral number field and whether it was set.
func intField(in *structpb.Struct, name string) (int64, bool, error) {
	v, ok := in.GetFields()[name]
	if !ok {
		return 0, false, nil
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, false, fmt.Errorf("field %q: want number", name)
	}
	if n.NumberValue != math.Trunc(n.NumberValue) || math.Abs(n.NumberValue) > 1<<53 {
		return 0, false, fmt.Errorf("field %q: want integer", name)
	}
	return int64(n.NumberValue), true, nil
}

// pageRequest reads limit and offset and validates them like the HTTP query.
func (s *Server) pageRequest(in *structpb.Struct) (service.PageRequest, error) {
	var lq listQuery
	for name, dst := range map[string]**int{"limit": &lq.Limit, "offset": &lq.Offset} {
		n, ok, err := intField(in, name)
		if err != nil {
			return service.PageRequest{}, &service.Error{Kind: service.KindInvalidPagination, Err: err}
		}
		if ok {
			i := int(n)
			*dst = &i
		}
	}
	return s.toPageRequest(lq)
}

// valueField decodes the "type" and "value" fields. A missing type means
// string.
func valueField(in *structpb.Struct) (model.Value, error) {
	typ, err := stringField(in, "type")
	if err != nil {
		return model.Value{}, err
	}
	if typ == "" {
		typ = string(model.TypeString)
	}
	text, err := stringField(in, "value")
	if err != nil {
		return model.Value{}, err
	}
	v, err := model.DecodeValue(model.ValueType(typ), text)
	if err != nil {
		return model.Value{}, &service.Error{Kind: service.KindInvalidValue, Err: err}
	}
	return v, nil
}
