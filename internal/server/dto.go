package server

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/alfredjeanlab/configmonkey/internal/model"
	"github.com/alfredjeanlab/configmonkey/internal/service"
)

type createDomainRequest struct {
	Slug string `json:"slug" validate:"required,max=64,slug"`
}

type createConfigRequest struct {
	Key string `json:"key" validate:"required,max=128,configkey"`
}

type createVersionRequest struct {
	Value json.RawMessage `json:"value" validate:"required"`
}

// listQuery holds the optional paging parameters of list routes.
type listQuery struct {
	Limit  *int `json:"limit" validate:"omitempty,min=1,max=100"`
	Offset *int `json:"offset" validate:"omitempty,min=0"`
}

// parseListQuery reads limit and offset. A parameter that is not an integer
// is reported like an out-of-range one.
func (s *Server) parseListQuery(q url.Values) (service.PageRequest, error) {
	var lq listQuery
	for name, dst := range map[string]**int{"limit": &lq.Limit, "offset": &lq.Offset} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return service.PageRequest{}, &service.Error{Kind: service.KindInvalidPagination, Err: err}
		}
		*dst = &n
	}
	return s.toPageRequest(lq)
}

type domainJSON struct {
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

func toDomainJSON(d *model.Domain) domainJSON {
	return domainJSON{Slug: d.Slug, CreatedAt: d.CreatedAt}
}

type configJSON struct {
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"created_at"`
}

func toConfigJSON(c *model.Config) configJSON {
	return configJSON{Key: c.Key, CreatedAt: c.CreatedAt}
}

// versionJSON exposes the version index as "id"; internal ids stay private.
type versionJSON struct {
	ID        int64           `json:"id"`
	Value     model.Value     `json:"value"`
	Type      model.ValueType `json:"type"`
	CreatedAt time.Time       `json:"created_at"`
}

func toVersionJSON(v *model.Version) versionJSON {
	return versionJSON{ID: v.Index, Value: v.Value, Type: v.Value.Type(), CreatedAt: v.CreatedAt}
}

type paginationJSON struct {
	Count  int     `json:"count"`
	Offset int     `json:"offset"`
	Limit  int     `json:"limit"`
	Next   *string `json:"next"`
	Prev   *string `json:"prev"`
}

type listJSON[T any] struct {
	Data       []T            `json:"data"`
	Pagination paginationJSON `json:"pagination"`
}

// newList converts a page and renders its cursors as links back to path.
func newList[S, T any](path string, page model.Page[S], conv func(S) T) listJSON[T] {
	data := make([]T, 0, len(page.Items))
	for _, item := range page.Items {
		data = append(data, conv(item))
	}
	return listJSON[T]{
		Data: data,
		Pagination: paginationJSON{
			Count:  page.Count,
			Offset: page.Offset,
			Limit:  page.Limit,
			Next:   pageLink(path, page.Limit, page.NextOffset),
			Prev:   pageLink(path, page.Limit, page.PrevOffset),
		},
	}
}

func pageLink(path string, limit int, offset *int) *string {
	if offset == nil {
		return nil
	}
	link := fmt.Sprintf("%s?limit=%d&offset=%d", path, limit, *offset)
	return &link
}

// toPageRequest validates lq and converts it for the registry.
func (s *Server) toPageRequest(lq listQuery) (service.PageRequest, error) {
	if err := s.check(&lq); err != nil {
		return service.PageRequest{}, err
	}
	var req service.PageRequest
	if lq.Limit != nil {
		req.Limit = *lq.Limit
	}
	if lq.Offset != nil {
		req.Offset = *lq.Offset
	}
	return req, nil
}