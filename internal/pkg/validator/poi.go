package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/poi-ingest/internal/domain"
	"github.com/poi-ingest/internal/pkg/normalize"
)

// poiPayload - схема точки интереса. Порядок полей задаёт порядок проверок.
type poiPayload struct {
	ExternalID string          `json:"external_id" validate:"required,max=128"`
	Source     string          `json:"source" validate:"required,oneof=csv json xml"`
	Name       string          `json:"name" validate:"required,max=255"`
	Category   string          `json:"category" validate:"required,max=64"`
	Latitude   decimal.Decimal `json:"latitude" validate:"latitude,maxdecimals=6"`
	Longitude  decimal.Decimal `json:"longitude" validate:"longitude,maxdecimals=6"`
}

// fieldOrder - порядок полей в отчёте об ошибках
var fieldOrder = []string{
	domain.FieldExternalID,
	domain.FieldSource,
	domain.FieldName,
	domain.FieldCategory,
	domain.FieldLatitude,
	domain.FieldLongitude,
	domain.FieldRatings,
	domain.FieldDescription,
}

// ValidationError - причины отказа по полям
type ValidationError struct {
	Fields map[string]string
}

func newValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

func (e *ValidationError) add(field, reason string) {
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = reason
	}
}

// FieldNames возвращает поля с ошибками в порядке проверки
func (e *ValidationError) FieldNames() []string {
	names := make([]string, 0, len(e.Fields))
	seen := make(map[string]bool, len(e.Fields))
	for _, f := range fieldOrder {
		if _, ok := e.Fields[f]; ok {
			names = append(names, f)
			seen[f] = true
		}
	}
	rest := make([]string, 0)
	for f := range e.Fields {
		if !seen[f] {
			rest = append(rest, f)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.FieldNames() {
		parts = append(parts, fmt.Sprintf("%s: %s", f, e.Fields[f]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ValidatePOI проверяет сырую запись и возвращает нормализованную.
// При ошибке возвращает *ValidationError. Хранилище не трогает.
func ValidatePOI(raw domain.RawRecord) (domain.POIRecord, error) {
	verr := newValidationError()

	payload := poiPayload{
		ExternalID: normalize.NormalizeString(raw[domain.FieldExternalID], ""),
		Source:     normalize.NormalizeString(raw[domain.FieldSource], ""),
		Name:       normalize.NormalizeString(raw[domain.FieldName], ""),
		Category:   normalize.NormalizeString(raw[domain.FieldCategory], ""),
	}

	var ok bool
	if payload.Latitude, ok = coordinateField(raw, domain.FieldLatitude, verr); !ok {
		payload.Latitude = decimal.Zero
	}
	if payload.Longitude, ok = coordinateField(raw, domain.FieldLongitude, verr); !ok {
		payload.Longitude = decimal.Zero
	}

	if err := validate.Struct(payload); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return domain.POIRecord{}, fmt.Errorf("validate poi: %w", err)
		}
		for _, fe := range fieldErrs {
			verr.add(fe.Field(), Reason(fe))
		}
	}

	if len(verr.Fields) > 0 {
		return domain.POIRecord{}, verr
	}

	description := descriptionOf(raw[domain.FieldDescription])
	description, _ = normalize.Truncate(description, domain.MaxDescriptionLength)

	return domain.POIRecord{
		ExternalID:  payload.ExternalID,
		Source:      domain.Source(payload.Source),
		Name:        payload.Name,
		Latitude:    payload.Latitude.Round(domain.CoordinateScale),
		Longitude:   payload.Longitude.Round(domain.CoordinateScale),
		Category:    payload.Category,
		Ratings:     ratingsOf(raw),
		Description: description,
	}, nil
}

// Reason переводит ошибку валидатора в понятное сообщение
func Reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("Ensure this value is greater than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("Invalid %s %q, must be one of: %s",
			fe.Field(), fmt.Sprint(fe.Value()), strings.Join(strings.Fields(fe.Param()), ", "))
	case "latitude":
		return "Latitude must be between -90 and 90"
	case "longitude":
		return "Longitude must be between -180 and 180"
	case "maxdecimals":
		return fmt.Sprintf("Ensure that there are no more than %s decimal places", fe.Param())
	}
	return fmt.Sprintf("Failed on the %q rule", fe.Tag())
}

// FieldErrors переводит ошибку go-playground в map поле -> причина
func FieldErrors(err error) map[string]string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Fields
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return nil
	}
	out := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		if _, exists := out[fe.Field()]; !exists {
			out[fe.Field()] = Reason(fe)
		}
	}
	return out
}

func coordinateField(raw domain.RawRecord, field string, verr *ValidationError) (decimal.Decimal, bool) {
	value, present := raw[field]
	if !present || value == nil {
		verr.add(field, "This field is required")
		return decimal.Decimal{}, false
	}
	d, ok := toDecimal(value)
	if !ok {
		verr.add(field, "A valid number is required")
		return decimal.Decimal{}, false
	}
	return d, true
}

func toDecimal(value any) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		return d, err == nil
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		return d, err == nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat(v), true
	case float32:
		return toDecimal(float64(v))
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	case int32:
		return decimal.NewFromInt32(v), true
	}
	return decimal.Decimal{}, false
}

// ratingsOf приводит оценки к числам и ограничивает [0, 5].
// Нечисловые элементы отбрасываются. Отсутствующее поле остаётся nil.
func ratingsOf(raw domain.RawRecord) []float64 {
	value, present := raw[domain.FieldRatings]
	if !present || value == nil {
		return nil
	}

	list, _ := normalize.CoerceFloatList(value, normalize.DefaultSeparator)
	out := make([]float64, len(list))
	for i, r := range list {
		out[i], _ = normalize.ClampRating(r, normalize.MinRating, normalize.MaxRating)
	}
	return out
}

func descriptionOf(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	}
	return normalize.NormalizeString(value, "")
}
