package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	apperrors "github.com/poi-ingest/internal/pkg/errors"
	"github.com/poi-ingest/internal/pkg/utils"
	"github.com/poi-ingest/internal/pkg/validator"
	"github.com/poi-ingest/internal/usecase"
	"github.com/poi-ingest/internal/usecase/dto"
)

// POIHandler - обработчик запросов к точкам интереса
type POIHandler struct {
	poiUC  *usecase.POIUseCase
	logger *zap.Logger
}

// NewPOIHandler - создание нового POIHandler
func NewPOIHandler(poiUC *usecase.POIUseCase, logger *zap.Logger) *POIHandler {
	return &POIHandler{
		poiUC:  poiUC,
		logger: logger,
	}
}

// List godoc
// @Summary List points of interest
// @Description Постраничная выборка с фильтрами. Нечисловой id даёт пустой результат, неизвестный source и нечисловые рейтинги игнорируются.
// @Tags POI
// @Produce json
// @Param id query string false "Internal ID"
// @Param external_id query string false "External ID"
// @Param category query string false "Category"
// @Param source query string false "Source (csv, json, xml)"
// @Param min_rating query string false "Minimum average rating"
// @Param max_rating query string false "Maximum average rating"
// @Param ordering query string false "name, category, avg_rating, id; prefix - for descending"
// @Param page query int false "Page, starting from 1"
// @Param limit query int false "Page size (default 25, max 100)"
// @Success 200 {object} utils.SuccessResponse{data=[]dto.POIResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /api/v1/pois [get]
func (h *POIHandler) List(c *fiber.Ctx) error {
	var req dto.ListPOIsRequest
	if err := c.QueryParser(&req); err != nil {
		return utils.SendError(c, apperrors.ErrInvalidRequest.WithMessage(err.Error()))
	}

	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, validationError(err))
	}

	result, err := h.poiUC.List(c.UserContext(), req)
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, result.POIs, utils.NewPageMeta(result.Total, result.Page, result.Limit))
}

// GetByID godoc
// @Summary Get point of interest
// @Tags POI
// @Produce json
// @Param id path int true "Internal ID"
// @Success 200 {object} utils.SuccessResponse{data=dto.POIResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/pois/{id} [get]
func (h *POIHandler) GetByID(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return utils.SendError(c, apperrors.ErrInvalidPOIID)
	}

	poi, err := h.poiUC.GetByID(c.UserContext(), id)
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, poi, nil)
}

// Categories godoc
// @Summary List categories
// @Description Различные категории по алфавиту с числом точек
// @Tags POI
// @Produce json
// @Success 200 {object} utils.SuccessResponse{data=dto.GroupsResponse}
// @Failure 500 {object} utils.ErrorResponse
// @Router /api/v1/pois/categories [get]
func (h *POIHandler) Categories(c *fiber.Ctx) error {
	result, err := h.poiUC.Categories(c.UserContext())
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, result, nil)
}

// Sources godoc
// @Summary List sources
// @Tags POI
// @Produce json
// @Success 200 {object} utils.SuccessResponse{data=dto.GroupsResponse}
// @Failure 500 {object} utils.ErrorResponse
// @Router /api/v1/pois/sources [get]
func (h *POIHandler) Sources(c *fiber.Ctx) error {
	result, err := h.poiUC.Sources(c.UserContext())
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, result, nil)
}

// validationError собирает причины по полям в детали ответа
func validationError(err error) error {
	fields := validator.FieldErrors(err)
	if len(fields) == 0 {
		return apperrors.ErrInvalidRequest
	}
	details := make(map[string]interface{}, len(fields))
	for field, reason := range fields {
		details[field] = reason
	}
	return apperrors.ErrValidationFailed.WithDetails(details)
}
