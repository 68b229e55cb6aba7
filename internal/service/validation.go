package service

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"petshop-backend/internal/availability"
	"petshop-backend/internal/domain"
)

var (
	phonePattern = regexp.MustCompile(`^\(?\d{2}\)?\s?\d{4,5}-?\d{4}$`)
	clockPattern = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):[0-5][0-9]$`)
)

// NewValidator returns a validator that reports json field names and knows
// the phone and clock rules.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		return clockPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("halfhour", func(fl validator.FieldLevel) bool {
		m, err := availability.ParseClock(fl.Field().String())
		return err == nil && m%availability.StepMinutes == 0
	})
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return strongPassword(fl.Field().String())
	})
	return v
}

// strongPassword wants 8+ characters with lower, upper and digit.
func strongPassword(p string) bool {
	if len(p) < 8 {
		return false
	}
	var lower, upper, digit bool
	for _, r := range p {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return lower && upper && digit
}

type appointmentRules struct {
	PetName       string `json:"petName" validate:"required,max=100"`
	Species       string `json:"species" validate:"required,oneof=Dog Cat"`
	Breed         string `json:"breed" validate:"max=100"`
	Notes         string `json:"notes" validate:"max=500"`
	Size          string `json:"size" validate:"required,oneof=Small Medium Large"`
	OwnerName     string `json:"ownerName" validate:"required,max=100"`
	BaseServiceID int64  `json:"baseService" validate:"required,gt=0"`
	Time          string `json:"time" validate:"required,clock"`
	Status        string `json:"status" validate:"required,oneof=Pending Confirmed Canceled Completed"`
}

type phoneRules struct {
	OwnerPhone string `json:"ownerPhone" validate:"required,phone"`
}

type optionalPhoneRules struct {
	OwnerPhone string `json:"ownerPhone" validate:"omitempty,phone"`
}

type scheduledRules struct {
	Time string `json:"time" validate:"halfhour"`
}

// AppointmentValidator checks appointment records before they are written.
type AppointmentValidator struct {
	V *validator.Validate
	// Grid requires start times on the half-hour booking grid.
	Grid bool
	// PhoneOptional accepts a missing owner phone. A phone that is present
	// must still be well formed. Spreadsheet imports use it.
	PhoneOptional bool
}

func (a AppointmentValidator) Check(ap domain.Appointment) error {
	v := a.V
	if v == nil {
		v = NewValidator()
	}
	rules := appointmentRules{
		PetName:       strings.TrimSpace(ap.PetName),
		Species:       string(ap.Species),
		Breed:         ap.Breed,
		Notes:         ap.Notes,
		Size:          string(ap.Size),
		OwnerName:     strings.TrimSpace(ap.OwnerName),
		BaseServiceID: ap.BaseServiceID,
		Time:          ap.Time,
		Status:        string(ap.Status),
	}
	if err := firstViolation(v.Struct(rules)); err != nil {
		return err
	}
	phone := strings.TrimSpace(ap.OwnerPhone)
	var phoneCheck any = phoneRules{OwnerPhone: phone}
	if a.PhoneOptional {
		phoneCheck = optionalPhoneRules{OwnerPhone: phone}
	}
	if err := firstViolation(v.Struct(phoneCheck)); err != nil {
		return err
	}
	if ap.Date.IsZero() {
		return invalid("date", "date is required")
	}
	if a.Grid {
		if err := firstViolation(v.Struct(scheduledRules{Time: ap.Time})); err != nil {
			return err
		}
	}
	return nil
}

// firstViolation converts validator output into a ValidationError for the
// first failing field.
func firstViolation(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	return &ValidationError{Field: fe.Field(), Message: ruleMessage(fe)}
}

func ruleMessage(fe validator.FieldError) string {
	f := fe.Field()
	switch fe.Tag() {
	case "required":
		return f + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", f, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", f, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", f, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be %s or more", f, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", f, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "phone":
		return f + " must look like (11) 91234-5678"
	case "clock":
		return f + " must be HH:MM"
	case "halfhour":
		return f + " must fall on a 30-minute slot"
	case "email":
		return f + " must be a valid email"
	case "password":
		return f + " must have at least 8 characters with upper case, lower case and a number"
	}
	return fmt.Sprintf("%s failed %s", f, fe.Tag())
}

// Validate runs struct-tag validation and returns the first violation.
func Validate(v *validator.Validate, s any) error {
	return firstViolation(v.Struct(s))
}
