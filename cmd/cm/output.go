package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/alfredjeanlab/configmonkey/internal/client"
	"github.com/alfredjeanlab/configmonkey/internal/model"
	"github.com/alfredjeanlab/configmonkey/internal/service"
	"github.com/alfredjeanlab/configmonkey/internal/ui"
)

type format string

const (
	formatTable format = "table"
	formatJSON  format = "json"
	formatYAML  format = "yaml"
)

func parseFormat(s string) (format, error) {
	switch f := format(s); f {
	case formatTable, formatJSON, formatYAML:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (must be table, json or yaml)", s)
}

const timeLayout = "2006-01-02 15:04:05"

// Views are what json and yaml output show; internal ids stay hidden.

type domainView struct {
	Slug      string    `json:"slug" yaml:"slug"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

type configView struct {
	Key       string    `json:"key" yaml:"key"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

type versionView struct {
	Index     int64           `json:"index" yaml:"index"`
	Type      model.ValueType `json:"type" yaml:"type"`
	Value     model.Value     `json:"value" yaml:"value"`
	CreatedAt time.Time       `json:"created_at" yaml:"created_at"`
}

type pageView[T any] struct {
	Items      []T  `json:"items" yaml:"items"`
	Count      int  `json:"count" yaml:"count"`
	Limit      int  `json:"limit" yaml:"limit"`
	Offset     int  `json:"offset" yaml:"offset"`
	NextOffset *int `json:"next_offset,omitempty" yaml:"next_offset,omitempty"`
	PrevOffset *int `json:"prev_offset,omitempty" yaml:"prev_offset,omitempty"`
}

func toDomainView(d *model.Domain) domainView {
	return domainView{Slug: d.Slug, CreatedAt: d.CreatedAt}
}

func toConfigView(c *model.Config) configView {
	return configView{Key: c.Key, CreatedAt: c.CreatedAt}
}

func toVersionView(v *model.Version) versionView {
	return versionView{Index: v.Index, Type: v.Value.Type(), Value: v.Value, CreatedAt: v.CreatedAt}
}

func toPageView[S, T any](page model.Page[S], conv func(S) T) pageView[T] {
	items := make([]T, 0, len(page.Items))
	for _, item := range page.Items {
		items = append(items, conv(item))
	}
	return pageView[T]{
		Items:      items,
		Count:      page.Count,
		Limit:      page.Limit,
		Offset:     page.Offset,
		NextOffset: page.NextOffset,
		PrevOffset: page.PrevOffset,
	}
}

// printer writes results in the selected format. table renders the
// human-readable form.
type printer struct {
	w      io.Writer
	format format
}

func newPrinter(w io.Writer) printer {
	f, _ := parseFormat(outputFormat)
	return printer{w: w, format: f}
}

func (p printer) print(v any, table func(w io.Writer)) error {
	switch p.format {
	case formatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		_, err = fmt.Fprintln(p.w, string(data))
		return err
	case formatYAML:
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		return enc.Close()
	default:
		tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
		table(tw)
		return tw.Flush()
	}
}

func (p printer) domain(d *model.Domain) error {
	return p.print(toDomainView(d), func(w io.Writer) {
		fmt.Fprintf(w, "Slug:\t%s\n", d.Slug)
		fmt.Fprintf(w, "Created At:\t%s\n", d.CreatedAt.Local().Format(timeLayout))
	})
}

func (p printer) config(c *model.Config) error {
	return p.print(toConfigView(c), func(w io.Writer) {
		fmt.Fprintf(w, "Key:\t%s\n", c.Key)
		fmt.Fprintf(w, "Created At:\t%s\n", c.CreatedAt.Local().Format(timeLayout))
	})
}

func (p printer) version(v *model.Version) error {
	return p.print(toVersionView(v), func(w io.Writer) {
		fmt.Fprintf(w, "Index:\t%d\n", v.Index)
		fmt.Fprintf(w, "Type:\t%s\n", v.Value.Type())
		fmt.Fprintf(w, "Created At:\t%s\n", v.CreatedAt.Local().Format(timeLayout))
		fmt.Fprintf(w, "Value:\t%s\n", renderValue(v.Value))
	})
}

// renderValue shows a value as it would be typed on the command line.
func renderValue(v model.Value) string {
	text := v.String()
	if v.Type() == model.TypeString {
		data, _ := json.Marshal(v.Str())
		text = string(data)
	}
	return ui.RenderValue(v.Type(), text)
}

func (p printer) domains(page model.Page[*model.Domain]) error {
	return p.print(toPageView(page, toDomainView), func(w io.Writer) {
		fmt.Fprintln(w, "SLUG\tCREATED")
		for _, d := range page.Items {
			fmt.Fprintf(w, "%s\t%s\n", d.Slug, d.CreatedAt.Local().Format(timeLayout))
		}
		pageFooter(w, page.Count, page.Offset, page.NextOffset, "domains")
	})
}

func (p printer) configs(page model.Page[*model.Config]) error {
	return p.print(toPageView(page, toConfigView), func(w io.Writer) {
		fmt.Fprintln(w, "KEY\tCREATED")
		for _, c := range page.Items {
			fmt.Fprintf(w, "%s\t%s\n", c.Key, c.CreatedAt.Local().Format(timeLayout))
		}
		pageFooter(w, page.Count, page.Offset, page.NextOffset, "configs")
	})
}

func (p printer) versions(page model.Page[*model.Version]) error {
	return p.print(toPageView(page, toVersionView), func(w io.Writer) {
		width := ui.Width(100)
		fmt.Fprintln(w, "INDEX\tTYPE\tCREATED\tVALUE")
		for _, v := range page.Items {
			value := v.Value
			if v.Value.Type() == model.TypeString {
				value = model.StringValue(ui.Truncate(v.Value.Str(), max(width-50, 20)))
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", v.Index, v.Value.Type(), v.CreatedAt.Local().Format(timeLayout), renderValue(value))
		}
		pageFooter(w, page.Count, page.Offset, page.NextOffset, "versions")
	})
}

func pageFooter(w io.Writer, count, offset int, next *int, noun string) {
	line := fmt.Sprintf("\n%d %s from offset %d", count, noun, offset)
	if next != nil {
		line += fmt.Sprintf("; more with --offset %d", *next)
	}
	fmt.Fprintln(w, ui.RenderMuted(line))
}

// formatError renders err for the terminal. Registry failures show their
// stable code.
func formatError(err error) string {
	var se *service.Error
	if errors.As(err, &se) {
		return fmt.Sprintf("Error: %s (%s)", se.Kind.Message(), se.Kind.Code())
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Code != "" {
		return fmt.Sprintf("Error: %s (%s)", apiErr.Message, apiErr.Code)
	}
	return fmt.Sprintf("Error: %v", err)
}
