package domain

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	// Report the JSON name of a field so errors match the request body.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

var fieldMessages = map[string]string{
	"child_id":      "Child ID is required",
	"incident_type": "Invalid incident type",
	"description":   "Description is required",
	"target":        "Invalid target",
	"status":        "Invalid status",
}

// Validate trims the description and checks every field, collecting all failures.
func (n *NewIncident) Validate() error {
	n.Description = strings.TrimSpace(n.Description)
	return structErrors(validate.Struct(n))
}

func (u *IncidentUpdate) Validate() error {
	if u.FollowUpNotes != nil {
		notes := strings.TrimSpace(*u.FollowUpNotes)
		u.FollowUpNotes = &notes
	}
	return structErrors(validate.Struct(u))
}

func structErrors(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	verr := &ValidationError{}
	for _, fe := range fieldErrs {
		msg, ok := fieldMessages[fe.Field()]
		if !ok {
			msg = "failed on " + fe.Tag()
		}
		verr.Add(fe.Field(), msg)
	}
	return verr
}
