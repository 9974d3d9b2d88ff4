// Package request decodes API request bodies and checks them against the
// rules of the operation they name.
package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/atinyakov/calendar/internal/operation"
)

var (
	// ErrMalformed is returned when the body is not a JSON object.
	ErrMalformed = errors.New("malformed request body")
	// ErrUnknownOperation is returned when the type field is missing or
	// names no supported operation.
	ErrUnknownOperation = errors.New("unknown operation type")
	// ErrMissingFields is returned when mandatory fields are absent or empty.
	ErrMissingFields = errors.New("missing mandatory fields")
	// ErrInvalidField is returned when a field has the wrong shape.
	ErrInvalidField = errors.New("invalid field")
)

// SessionLookup resolves a session token to the user it was issued to.
type SessionLookup interface {
	Get(token string) (int64, bool)
}

// Params are the validated, typed parameters handed to an operation handler.
// Only the fields mandatory for the operation are populated.
type Params struct {
	Login    string
	Password string
	Name     string
	Date     string
	Time     string
	Duration int64
	UserID   int64
}

// Validator checks decoded requests and injects the session's user id.
type Validator struct {
	sessions SessionLookup
	validate *validator.Validate
}

// NewValidator returns a Validator resolving cookies through sessions.
func NewValidator(sessions SessionLookup) *Validator {
	return &Validator{
		sessions: sessions,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Decode reads a JSON object from r. Numbers are kept as json.Number. The
// object must be the whole body; anything but whitespace after it is an
// error.
func Decode(r io.Reader) (map[string]any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: body is not an object", ErrMalformed)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after object", ErrMalformed)
	}
	return fields, nil
}

// Validate resolves the operation named by fields["type"], injects the user
// bound to sessionID for session operations and checks the mandatory
// fields. A user_id sent by the client is always discarded.
func (v *Validator) Validate(fields map[string]any, sessionID string) (operation.Kind, Params, error) {
	tag, _ := fields[operation.FieldType].(string)
	kind, ok := operation.Parse(tag)
	if !ok {
		return 0, Params{}, fmt.Errorf("%w: %q", ErrUnknownOperation, tag)
	}

	values := make(map[string]any, len(fields)+1)
	for k, val := range fields {
		if k == operation.FieldUserID {
			continue
		}
		values[k] = val
	}
	if kind.RequiresSession() {
		if userID, found := v.sessions.Get(sessionID); found {
			values[operation.FieldUserID] = userID
		}
	}

	rules := make(map[string]any)
	for _, f := range kind.MandatoryFields() {
		rules[f] = "required"
	}
	if errs := v.validate.ValidateMap(values, rules); len(errs) > 0 {
		missing := make([]string, 0, len(errs))
		for f := range errs {
			missing = append(missing, f)
		}
		slices.Sort(missing)
		return kind, Params{}, fmt.Errorf("%w: %s", ErrMissingFields, strings.Join(missing, ", "))
	}

	params, err := toParams(kind, values)
	if err != nil {
		return kind, Params{}, err
	}
	return kind, params, nil
}

func toParams(kind operation.Kind, values map[string]any) (Params, error) {
	var (
		p   Params
		err error
	)
	for _, f := range kind.MandatoryFields() {
		switch f {
		case operation.FieldLogin:
			p.Login, err = stringField(values, f)
		case operation.FieldPassword:
			p.Password, err = stringField(values, f)
		case operation.FieldName:
			p.Name, err = stringField(values, f)
		case operation.FieldDate:
			p.Date, err = stringField(values, f)
		case operation.FieldTime:
			p.Time, err = stringField(values, f)
		case operation.FieldDuration:
			p.Duration, err = intField(values, f)
		case operation.FieldUserID:
			p.UserID, _ = values[f].(int64)
		}
		if err != nil {
			return Params{}, err
		}
	}
	return p, nil
}

func stringField(values map[string]any, name string) (string, error) {
	switch v := values[name].(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	default:
		return "", fmt.Errorf("%w: %s must be a string", ErrInvalidField, name)
	}
}

func intField(values map[string]any, name string) (int64, error) {
	var (
		n   int64
		err error
	)
	switch v := values[name].(type) {
	case json.Number:
		n, err = v.Int64()
	case string:
		n, err = strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	default:
		err = fmt.Errorf("unexpected type %T", v)
	}
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", ErrInvalidField, name)
	}
	return n, nil
}
