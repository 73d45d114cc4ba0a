package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// SweepHandler は回収スイープの手動トリガーハンドラー
type SweepHandler struct {
	service SweepServiceInterface
}

func NewSweepHandler(s SweepServiceInterface) *SweepHandler {
	return &SweepHandler{service: s}
}

type SweepResponse struct {
	SeatsReleased  int `json:"seats_released"`
	ChartsModified int `json:"charts_modified"`
	ChartsFailed   int `json:"charts_failed"`
}

// Trigger godoc
// @Summary 回収スイープを実行
// @Description 期限切れホールドの回収を即時実行し、診断カウントを返します
// @Tags admin
// @Produce json
// @Success 200 {object} SweepResponse
// @Failure 500 {object} map[string]string
// @Router /admin/sweep [post]
func (h *SweepHandler) Trigger(c echo.Context) error {
	result, err := h.service.SweepExpiredHolds(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, SweepResponse{
		SeatsReleased:  result.SeatsReleased,
		ChartsModified: result.ChartsModified,
		ChartsFailed:   result.ChartsFailed,
	})
}
