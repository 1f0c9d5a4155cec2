package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	playground "github.com/go-playground/validator/v10"
)

// seatIDRegex accepts seat labels such as 1A, 12B or W-04
var seatIDRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9-]{0,15}$`)

var phoneValidator = NewPhoneValidator()

// IsSeatID reports whether s is a well-formed seat identifier
func IsSeatID(s string) bool {
	return seatIDRegex.MatchString(s)
}

// Register adds the seatid and phone tags to v
func Register(v *playground.Validate) error {
	if err := v.RegisterValidation("seatid", func(fl playground.FieldLevel) bool {
		return IsSeatID(fl.Field().String())
	}); err != nil {
		return fmt.Errorf("failed to register seatid validation: %w", err)
	}
	if err := v.RegisterValidation("phone", func(fl playground.FieldLevel) bool {
		return phoneValidator.IsValid(fl.Field().String())
	}); err != nil {
		return fmt.Errorf("failed to register phone validation: %w", err)
	}
	return nil
}

// RegisterGinValidators installs the custom tags on gin's binding engine
func RegisterGinValidators() error {
	v, ok := binding.Validator.Engine().(*playground.Validate)
	if !ok {
		return errors.New("gin binding engine is not go-playground/validator")
	}
	return Register(v)
}

// Describe turns binding errors into a short client-facing message
func Describe(err error) string {
	var verrs playground.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "seatid":
			msgs = append(msgs, fmt.Sprintf("%s must be a seat identifier", fe.Field()))
		case "phone":
			msgs = append(msgs, fmt.Sprintf("%s must be a valid mobile number", fe.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
