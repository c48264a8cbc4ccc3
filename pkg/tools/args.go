package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ArgumentError describes one bad argument, e.g. "n must be an integer".
type ArgumentError struct {
	Field   string
	Problem string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Problem)
}

func (e *ArgumentError) Unwrap() error {
	return ErrInvalidArguments
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// bindArgs coerces raw model arguments to the declared parameter types,
// decodes them over dst and validates the result.
func bindArgs(params []Param, raw map[string]any, dst any) error {
	if rawText, ok := raw["_raw"].(string); ok {
		return &ArgumentError{Field: "arguments", Problem: fmt.Sprintf("are not valid JSON: %s", rawText)}
	}

	coerced := make(map[string]any, len(params))
	for _, p := range params {
		v, present := raw[p.Name]
		if !present || v == nil {
			continue
		}
		value, err := coerce(p, v)
		if err != nil {
			return err
		}
		coerced[p.Name] = value
	}

	data, err := json.Marshal(coerced)
	if err != nil {
		return &ArgumentError{Field: "arguments", Problem: err.Error()}
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return &ArgumentError{Field: "arguments", Problem: err.Error()}
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return describe(verrs[0])
		}
		return &ArgumentError{Field: "arguments", Problem: err.Error()}
	}
	return nil
}

func coerce(p Param, v any) (any, error) {
	switch p.Type {
	case "integer":
		switch n := v.(type) {
		case float64:
			if n != math.Trunc(n) {
				return nil, &ArgumentError{Field: p.Name, Problem: "must be an integer"}
			}
			return int(n), nil
		case int:
			return n, nil
		case json.Number:
			i, err := n.Int64()
			if err != nil {
				return nil, &ArgumentError{Field: p.Name, Problem: "must be an integer"}
			}
			return int(i), nil
		case string:
			i, err := strconv.Atoi(strings.TrimSpace(n))
			if err != nil {
				return nil, &ArgumentError{Field: p.Name, Problem: "must be an integer"}
			}
			return i, nil
		}
		return nil, &ArgumentError{Field: p.Name, Problem: "must be an integer"}
	case "string":
		switch s := v.(type) {
		case string:
			return strings.TrimSpace(s), nil
		case float64, int, bool, json.Number:
			return fmt.Sprint(s), nil
		}
		return nil, &ArgumentError{Field: p.Name, Problem: "must be a string"}
	}
	return v, nil
}

func describe(fe validator.FieldError) *ArgumentError {
	switch fe.Tag() {
	case "required":
		return &ArgumentError{Field: fe.Field(), Problem: "is required"}
	case "gt":
		return &ArgumentError{Field: fe.Field(), Problem: "must be greater than " + fe.Param()}
	case "gte", "min":
		return &ArgumentError{Field: fe.Field(), Problem: "must be at least " + fe.Param()}
	case "lte", "max":
		return &ArgumentError{Field: fe.Field(), Problem: "must be at most " + fe.Param()}
	}
	return &ArgumentError{Field: fe.Field(), Problem: "failed " + fe.Tag() + " validation"}
}
