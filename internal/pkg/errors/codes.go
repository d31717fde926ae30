package errors

import "net/http"

var (
	ErrPOINotFound = New(
		"POI_NOT_FOUND",
		"Point of interest not found",
		http.StatusNotFound,
	)

	ErrInvalidPOIID = New(
		"INVALID_POI_ID",
		"Invalid point of interest ID",
		http.StatusBadRequest,
	)

	ErrInvalidFilter = New(
		"INVALID_FILTER",
		"Invalid filter parameters",
		http.StatusBadRequest,
	)

	ErrInvalidSource = New(
		"INVALID_SOURCE",
		"Source must be one of csv, json, xml",
		http.StatusBadRequest,
	)

	ErrValidationFailed = New(
		"VALIDATION_FAILED",
		"Request validation failed",
		http.StatusBadRequest,
	)

	ErrDatabaseError = New(
		"DATABASE_ERROR",
		"Database operation failed",
		http.StatusInternalServerError,
	)

	ErrCacheError = New(
		"CACHE_ERROR",
		"Cache operation failed",
		http.StatusInternalServerError,
	)

	ErrInvalidRequest = New(
		"INVALID_REQUEST",
		"Invalid request parameters",
		http.StatusBadRequest,
	)

	ErrInternalServer = New(
		"INTERNAL_SERVER_ERROR",
		"Internal server error",
		http.StatusInternalServerError,
	)
)
