package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"expobook/pkg/logger"
	"expobook/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type ExhibitionValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewExhibitionValidator(log *logger.Logger) *ExhibitionValidator {
	v := validator.New()
	v.RegisterCustomTypeFunc(calendarDate, model.Date{})
	log.Info("Exhibition validator initialized successfully")

	return &ExhibitionValidator{
		validate: v,
		logger:   log,
	}
}

// calendarDate lets field tags like required see the underlying time.
func calendarDate(field reflect.Value) any {
	if d, ok := field.Interface().(model.Date); ok {
		return d.Time
	}
	return nil
}

func (v *ExhibitionValidator) Validate(exhibition *model.Exhibition) error {
	if err := v.validate.Struct(exhibition); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *ExhibitionValidator) ValidateUpdate(update *model.ExhibitionUpdate) error {
	if err := v.validate.Struct(update); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	if update.Name == nil && update.Description == nil && update.Venue == nil &&
		update.StartDate == nil && update.DurationDay == nil &&
		update.SmallBoothQuota == nil && update.BigBoothQuota == nil &&
		update.PosterPicture == nil {
		return ValidationErrors{
			ValidationError{Field: "body", Message: "at least one field must be provided"},
		}
	}

	return nil
}

func (v *ExhibitionValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid MongoDB ObjectID", err.Field())
		case "url":
			message = fmt.Sprintf("%s must be a valid URL", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
