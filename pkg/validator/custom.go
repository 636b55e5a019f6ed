package validator

import "github.com/go-playground/validator/v10"

func RegisterCustomValidations(validate *validator.Validate) {
	validate.RegisterValidation("lat", validateLat)
	validate.RegisterValidation("lng", validateLng)
	validate.RegisterValidation("incident_type", validateIncidentType)
	validate.RegisterValidation("severity", validateSeverity)
}

func validateLat(fl validator.FieldLevel) bool {
	lat := fl.Field().Float()
	return lat >= -90.0 && lat <= 90.0
}

func validateLng(fl validator.FieldLevel) bool {
	lng := fl.Field().Float()
	return lng >= -180.0 && lng <= 180.0
}

func validateIncidentType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "accident", "roadwork", "closure", "other":
		return true
	}
	return false
}

func validateSeverity(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "", "low", "medium", "high":
		return true
	}
	return false
}
