package validator

import (
	"errors"
	"fmt"
	"regexp"

	playground "github.com/go-playground/validator/v10"
)

var clockTimeRe = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// Validator validates request and model structs via `validate` tags.
type Validator interface {
	Validate(interface{}) error
}

type validator struct {
	v *playground.Validate
}

func New() Validator {
	v := playground.New(playground.WithRequiredStructEnabled())
	// hhmm validates a wall-clock time of day like "08:00" or "14:30".
	_ = v.RegisterValidation("hhmm", func(fl playground.FieldLevel) bool {
		return clockTimeRe.MatchString(fl.Field().String())
	})
	return &validator{v: v}
}

func (val *validator) Validate(obj interface{}) error {
	if err := val.v.Struct(obj); err != nil {
		var errs playground.ValidationErrors
		if errors.As(err, &errs) && len(errs) > 0 {
			fe := errs[0]
			return fmt.Errorf("%s failed %s validation", fe.Field(), fe.Tag())
		}
		return err
	}
	return nil
}

// IsClockTime reports whether s is a valid HH:MM wall-clock time.
func IsClockTime(s string) bool {
	return clockTimeRe.MatchString(s)
}
