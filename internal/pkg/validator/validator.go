package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	registerCustomValidations()
}

func oneOf(values ...string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		v := fl.Field().String()
		for _, allowed := range values {
			if v == allowed {
				return true
			}
		}
		return false
	}
}

func registerCustomValidations() {
	validate.RegisterValidation("role", oneOf("client", "photographer", "admin"))
	validate.RegisterValidation("quote_status", oneOf("yourQuotes", "upcommingBookings", "previousBookings"))
	validate.RegisterValidation("booking_status", oneOf("pending", "confirmed", "completed", "canceled"))
	validate.RegisterValidation("booking_response", oneOf("accepted", "rejected"))
	validate.RegisterValidation("message_type", oneOf("text", "image", "file", "paymentCard", ""))
	validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		p := fl.Field().String()
		if len(p) < 8 || len(p) > 16 {
			return false
		}
		for i, r := range p {
			if r == '+' && i == 0 {
				continue
			}
			if r < '0' || r > '9' {
				return false
			}
		}
		return true
	})
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"_": err.Error()}
	}

	errors := make(map[string]string)
	for _, err := range verrs {
		field := err.Field()
		switch err.Tag() {
		case "required":
			errors[field] = "This field is required"
		case "required_without":
			errors[field] = "This field is required when " + err.Param() + " is empty"
		case "email":
			errors[field] = "Invalid email format"
		case "min":
			errors[field] = "Value is too short (min: " + err.Param() + ")"
		case "max":
			errors[field] = "Value is too long (max: " + err.Param() + ")"
		case "gte":
			errors[field] = "Value must be at least " + err.Param()
		case "lte":
			errors[field] = "Value must be at most " + err.Param()
		case "len":
			errors[field] = "Value must have length " + err.Param()
		case "numeric":
			errors[field] = "Value must be numeric"
		case "role":
			errors[field] = "Invalid role. Must be: client, photographer, or admin"
		case "quote_status":
			errors[field] = "Invalid quote status. Must be: yourQuotes, upcommingBookings, or previousBookings"
		case "booking_status":
			errors[field] = "Invalid booking status. Must be: pending, confirmed, completed, or canceled"
		case "booking_response":
			errors[field] = "Invalid response. Must be: accepted or rejected"
		case "message_type":
			errors[field] = "Invalid message type. Must be: text, image, file, or paymentCard"
		case "phone":
			errors[field] = "Invalid phone number"
		default:
			errors[field] = "Invalid value"
		}
	}

	return errors
}

// ValidateVar validates a single variable
func ValidateVar(field interface{}, tag string) error {
	return validate.Var(field, tag)
}
