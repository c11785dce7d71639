package service

import "errors"

var (
	ErrMissingAPIKey = errors.New("missing api key")
	// ErrInvalidAPIKey covers both unknown and deactivated keys.
	ErrInvalidAPIKey = errors.New("invalid or inactive api key")

	ErrAPIKeyNotFound = errors.New("api key not found")

	ErrPlanNotFound  = errors.New("plan not found")
	ErrPlanNameTaken = errors.New("plan name already exists")
	ErrPlanInUse     = errors.New("plan has existing api keys")
	ErrInvalidLimit  = errors.New("default_rpm must not be negative")

	ErrInvalidAdminToken = errors.New("invalid admin token")
)
