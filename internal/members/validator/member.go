package validator

import (
	"errors"
	"fmt"
	"strings"

	"gymflow/pkg/logger"
	"gymflow/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	messages := make([]string, 0, len(v))
	for _, err := range v {
		messages = append(messages, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return strings.Join(messages, "; ")
}

type MemberValidator struct {
	validate *validator.Validate
	log      *logger.Logger
}

func NewMemberValidator(log *logger.Logger) *MemberValidator {
	return &MemberValidator{
		validate: validator.New(),
		log:      log,
	}
}

func (v *MemberValidator) Validate(member *model.Member) error {
	return v.translate(v.validate.Struct(member))
}

func (v *MemberValidator) ValidateUpdate(update *model.MemberUpdate) error {
	return v.translate(v.validate.Struct(update))
}

func (v *MemberValidator) translate(err error) error {
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	var validationErrors ValidationErrors
	for _, e := range validationErrs {
		message := e.Error()

		switch e.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", e.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s characters", e.Field(), e.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", e.Field(), e.Param())
		case "email":
			message = fmt.Sprintf("%s must be a valid email address", e.Field())
		case "e164":
			message = fmt.Sprintf("%s must be in E.164 format (e.g., +972501234567)", e.Field())
		case "uuid4":
			message = fmt.Sprintf("%s must be a valid UUID", e.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   e.Field(),
			Message: message,
		})
	}

	return validationErrors
}
