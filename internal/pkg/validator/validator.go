package validator

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Имена полей в ошибках берём из json тега, для параметров запроса - из query
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "query"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return ""
	})

	// decimal.Decimal валидируется как строка в десятичной записи
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	if err := validate.RegisterValidation("maxdecimals", validateMaxDecimals); err != nil {
		panic(err)
	}
}

// Validate - валидация структуры
func Validate(s interface{}) error {
	return validate.Struct(s)
}

// GetValidator - получить валидатор для кастомной конфигурации
func GetValidator() *validator.Validate {
	return validate
}

// validateMaxDecimals проверяет число знаков после запятой: maxdecimals=6
func validateMaxDecimals(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}

	var s string
	switch fl.Field().Kind() {
	case reflect.String:
		s = fl.Field().String()
	case reflect.Float32, reflect.Float64:
		s = strconv.FormatFloat(fl.Field().Float(), 'f', -1, 64)
	default:
		return true
	}

	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return true
	}
	return len(s)-dot-1 <= limit
}
