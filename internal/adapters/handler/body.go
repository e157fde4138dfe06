package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"

	"github.com/AchilleasB/kinderopvang/incident-service/internal/core/domain"
)

var errInvalidPayload = errors.New("invalid request payload")

type validatable interface {
	Validate() error
}

// decodeBody decodes the request body into dst. A body that is not JSON yields
// errInvalidPayload. Values of the wrong type are reported as field errors together
// with whatever the validator finds on the fields that did decode.
func decodeBody(r *http.Request, dst validatable) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	if !errors.As(err, &typeErr) || typeErr.Field == "" {
		return errInvalidPayload
	}

	verr := &domain.ValidationError{}
	verr.Add(typeErr.Field, typeMessage(typeErr.Type))

	var rest *domain.ValidationError
	if errors.As(dst.Validate(), &rest) {
		for _, fe := range rest.Fields {
			if !verr.Has(fe.Field) {
				verr.Add(fe.Field, fe.Message)
			}
		}
	}
	return verr
}

func typeMessage(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "Must be an integer"
	case reflect.Bool:
		return "Must be a boolean"
	case reflect.String:
		return "Must be a string"
	default:
		return "Invalid value"
	}
}
