package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alfredjeanlab/configmonkey/internal/client"
	"github.com/alfredjeanlab/configmonkey/internal/model"
	"github.com/alfredjeanlab/configmonkey/internal/service"
	"github.com/alfredjeanlab/configmonkey/internal/ui"
)

var fixedTime = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"table", "json", "yaml"} {
		f, err := parseFormat(s)
		require.NoError(t, err)
		require.Equal(t, format(s), f)
	}
	_, err := parseFormat("xml")
	require.ErrorContains(t, err, `"xml"`)
}

func TestPrinter_VersionJSON(t *testing.T) {
	var buf bytes.Buffer
	p := printer{w: &buf, format: formatJSON}
	v := &model.Version{ID: "v-internal", Index: 3, Value: model.IntValue(42), CreatedAt: fixedTime}
	require.NoError(t, p.version(v))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Equal(t, map[string]any{
		"index":      float64(3),
		"type":       "integer",
		"value":      float64(42),
		"created_at": "2026-03-14T09:26:53Z",
	}, got)
}

func TestPrinter_VersionYAML(t *testing.T) {
	var buf bytes.Buffer
	p := printer{w: &buf, format: formatYAML}
	require.NoError(t, p.version(&model.Version{Index: 1, Value: model.BoolValue(true), CreatedAt: fixedTime}))

	out := buf.String()
	require.Contains(t, out, "index: 1\n")
	require.Contains(t, out, "type: boolean\n")
	require.Contains(t, out, "value: true\n")
}

func TestPrinter_Table(t *testing.T) {
	ui.SetColor(false)

	var buf bytes.Buffer
	p := printer{w: &buf, format: formatTable}
	require.NoError(t, p.version(&model.Version{Index: 2, Value: model.StringValue("on call"), CreatedAt: fixedTime}))
	require.Contains(t, buf.String(), "Index:")
	require.Contains(t, buf.String(), `"on call"`)

	buf.Reset()
	next := 2
	page := model.Page[*model.Domain]{
		Items:      []*model.Domain{{Slug: "billing", CreatedAt: fixedTime}, {Slug: "search", CreatedAt: fixedTime}},
		Count:      2,
		Limit:      2,
		NextOffset: &next,
	}
	require.NoError(t, p.domains(page))
	out := buf.String()
	require.Contains(t, out, "SLUG")
	require.Contains(t, out, "billing")
	require.Contains(t, out, "2 domains from offset 0; more with --offset 2")
}

func TestPrinter_PageJSONHidesInternalIDs(t *testing.T) {
	var buf bytes.Buffer
	p := printer{w: &buf, format: formatJSON}
	page := model.Paginate([]*model.Config{{ID: "c1", DomainID: "d1", Key: "timeout", CreatedAt: fixedTime}}, 10, 0)
	require.NoError(t, p.configs(page))

	require.NotContains(t, buf.String(), "domain_id")
	require.NotContains(t, buf.String(), `"c1"`)

	var got pageView[configView]
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Equal(t, 1, got.Count)
	require.Equal(t, "timeout", got.Items[0].Key)
	require.Nil(t, got.NextOffset)
	require.Nil(t, got.PrevOffset)
}

func TestFormatError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "registry error",
			err:  fmt.Errorf("creating: %w", &service.Error{Kind: service.KindDomainNotFound}),
			want: "Error: Domain not found (domain_not_found)",
		},
		{
			name: "api error with code",
			err:  &client.APIError{StatusCode: 502, Code: "bad_gateway", Message: "upstream unavailable"},
			want: "Error: upstream unavailable (bad_gateway)",
		},
		{
			name: "api error without code",
			err:  &client.APIError{StatusCode: 500, Message: "boom"},
			want: "Error: HTTP 500: boom",
		},
		{
			name: "plain error",
			err:  errors.New("connection refused"),
			want: "Error: connection refused",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, formatError(tc.err))
		})
	}
}
