package server

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/alfredjeanlab/configmonkey/internal/model"
	"github.com/alfredjeanlab/configmonkey/internal/service"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return model.ValidSlug(fl.Field().String())
	})
	_ = v.RegisterValidation("configkey", func(fl validator.FieldLevel) bool {
		return model.ValidKey(fl.Field().String())
	})
	return v
}

// fieldKinds says which error a failing field reports.
var fieldKinds = map[string]service.ErrorKind{
	"slug":   service.KindInvalidSlug,
	"key":    service.KindInvalidKey,
	"value":  service.KindInvalidValue,
	"limit":  service.KindInvalidPagination,
	"offset": service.KindInvalidPagination,
}

// check validates req and reports the first failing field as a registry
// error, so that transport validation and registry validation agree.
func (s *Server) check(req any) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		if kind, ok := fieldKinds[verrs[0].Field()]; ok {
			return &service.Error{Kind: kind, Err: err}
		}
	}
	return err
}
