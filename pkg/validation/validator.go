package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/richxcame/rideplanner/pkg/models"
)

var (
	// Validate is the global validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators
	_ = Validate.RegisterValidation("latitude", validateLatitude)
	_ = Validate.RegisterValidation("longitude", validateLongitude)
	_ = Validate.RegisterValidation("vehicle_class", validateVehicleClass)
	_ = Validate.RegisterValidation("point_kind", validatePointKind)
}

// ValidationError collects failed fields keyed by their JSON name.
type ValidationError struct {
	Errors map[string]string `json:"errors"`
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Errors))
	for field := range e.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.Errors[field]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewValidationError converts validator errors into a ValidationError
func NewValidationError(errs validator.ValidationErrors) *ValidationError {
	validationErr := &ValidationError{Errors: make(map[string]string, len(errs))}
	for _, fe := range errs {
		validationErr.Errors[jsonName(fe)] = describe(fe)
	}
	return validationErr
}

// ValidateStruct validates a struct and returns a ValidationError if validation fails
func ValidateStruct(s interface{}) error {
	err := Validate.Struct(s)
	if err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return NewValidationError(validationErrors)
		}
		return err
	}
	return nil
}

func jsonName(fe validator.FieldError) string {
	name := fe.Field()
	if len(name) == 0 {
		return name
	}
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "latitude":
		return "must be between -90 and 90"
	case "longitude":
		return "must be between -180 and 180"
	case "vehicle_class":
		return "must be one of motorbike, car, truck"
	case "point_kind":
		return "must be departure or destination"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "is invalid"
	}
}

// validateLatitude checks if latitude is within valid range (-90 to 90)
func validateLatitude(fl validator.FieldLevel) bool {
	latitude := fl.Field().Float()
	return latitude >= -90.0 && latitude <= 90.0
}

// validateLongitude checks if longitude is within valid range (-180 to 180)
func validateLongitude(fl validator.FieldLevel) bool {
	longitude := fl.Field().Float()
	return longitude >= -180.0 && longitude <= 180.0
}

func validateVehicleClass(fl validator.FieldLevel) bool {
	return models.VehicleClass(fl.Field().String()).IsValid()
}

func validatePointKind(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case PointDeparture, PointDestination:
		return true
	}
	return false
}

// ValidateCoordinates validates latitude and longitude
func ValidateCoordinates(latitude, longitude float64) error {
	if latitude < -90.0 || latitude > 90.0 {
		return fmt.Errorf("latitude must be between -90 and 90, got: %f", latitude)
	}
	if longitude < -180.0 || longitude > 180.0 {
		return fmt.Errorf("longitude must be between -180 and 180, got: %f", longitude)
	}
	return nil
}
