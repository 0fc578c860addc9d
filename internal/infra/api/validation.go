package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

type validationError struct {
	msg    string
	fields []FieldError
}

func (e *validationError) Error() string { return e.msg }

// decodeJSON reads at most 64KiB into dst and validates its struct tags.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 64<<10))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return &validationError{msg: "malformed JSON body"}
	}
	return validateStruct(dst)
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &validationError{msg: "invalid request"}
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: jsonName(fe), Tag: fe.Tag(), Message: fieldMessage(fe)})
	}
	return &validationError{msg: "request validation failed", fields: out}
}

func jsonName(fe validator.FieldError) string { return fe.Field() }

func fieldMessage(fe validator.FieldError) string {
	name := jsonName(fe)
	switch fe.Tag() {
	case "required", "required_if":
		return name + " is required"
	case "oneof":
		return name + " must be one of " + fe.Param()
	case "uuid":
		return name + " must be a valid id"
	case "max":
		return name + " must be at most " + fe.Param() + " characters"
	default:
		return name + " is invalid"
	}
}

type purchaseRequest struct {
	Type      string `json:"type" validate:"required,oneof=premium boost"`
	Plan      string `json:"plan" validate:"required_if=Type premium"`
	Duration  string `json:"duration" validate:"required_if=Type boost"`
	ListingID string `json:"listingId" validate:"required_if=Type boost"`
	Platform  string `json:"platform" validate:"omitempty,oneof=web ios android"`
}

type receiptRequest struct {
	ReceiptData string `json:"receiptData" validate:"required"`
	ProductID   string `json:"productId" validate:"required,max=128"`
	ListingID   string `json:"listingId" validate:"omitempty,uuid"`
	Platform    string `json:"platform" validate:"omitempty,oneof=ios android"`
}

type manualInitRequest struct {
	UserID  string `json:"userId" validate:"required,uuid"`
	Package string `json:"package" validate:"required,max=64"`
}
