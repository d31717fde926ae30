package utils

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/poi-ingest/internal/pkg/errors"
)

type SuccessResponse struct {
	Data interface{} `json:"data"`
	Meta *Meta       `json:"meta,omitempty"`
}

type ErrorResponse struct {
	Error *apperrors.AppError `json:"error"`
}

// Meta - сведения о странице выборки
type Meta struct {
	Total    int64   `json:"total"`
	Page     int     `json:"page,omitempty"`
	Limit    int     `json:"limit,omitempty"`
	Pages    int64   `json:"pages,omitempty"`
	TimeMSec float64 `json:"time_ms,omitempty"`
}

// NewPageMeta считает число страниц по total и limit
func NewPageMeta(total int64, page, limit int) *Meta {
	meta := &Meta{Total: total, Page: page, Limit: limit}
	if limit > 0 {
		meta.Pages = (total + int64(limit) - 1) / int64(limit)
	}
	return meta
}

func SendSuccess(c *fiber.Ctx, data interface{}, meta *Meta) error {
	return c.JSON(SuccessResponse{
		Data: data,
		Meta: meta,
	})
}

func SendError(c *fiber.Ctx, err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return c.Status(appErr.StatusCode).JSON(ErrorResponse{
			Error: appErr,
		})
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(ErrorResponse{
			Error: apperrors.New("HTTP_ERROR", fiberErr.Message, fiberErr.Code),
		})
	}

	// Unknown error - return 500
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error: apperrors.ErrInternalServer,
	})
}
