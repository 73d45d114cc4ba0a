package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-seat-hold-engine/internal/application"
	"github.com/sanosuguru/go-seat-hold-engine/internal/domain/chart"
)

// ChartHandler はシーティングチャートのハンドラー
type ChartHandler struct {
	service ChartServiceInterface
}

func NewChartHandler(s ChartServiceInterface) *ChartHandler {
	return &ChartHandler{service: s}
}

type CreateChartRequest struct {
	Name     string                 `json:"name" validate:"required" example:"メインホール"`
	Sections []CreateSectionRequest `json:"sections" validate:"required,min=1,dive"`
}

type CreateSectionRequest struct {
	Name   string               `json:"name" validate:"required" example:"アリーナA"`
	Tables []CreateTableRequest `json:"tables" validate:"dive"`
}

type CreateTableRequest struct {
	Label      string   `json:"label" validate:"required" example:"T-1"`
	SeatLabels []string `json:"seat_labels" validate:"required,min=1"`
}

type ChartResponse struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Sections       []SectionResponse `json:"sections"`
	AvailableCount int               `json:"available_count"`
	ReservedCount  int               `json:"reserved_count"`
	SoldCount      int               `json:"sold_count"`
	BlockedCount   int               `json:"blocked_count"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

type SectionResponse struct {
	Index  int             `json:"index"`
	Name   string          `json:"name"`
	Tables []TableResponse `json:"tables"`
}

type TableResponse struct {
	Index int            `json:"index"`
	Label string         `json:"label"`
	Seats []SeatResponse `json:"seats"`
}

type AvailabilityResponse struct {
	ChartID   string `json:"chart_id"`
	Available int    `json:"available"`
	Reserved  int    `json:"reserved"`
	Sold      int    `json:"sold"`
	Blocked   int    `json:"blocked"`
}

func toChartResponse(c *chart.Chart) ChartResponse {
	resp := ChartResponse{
		ID: c.ID, Name: c.Name,
		AvailableCount: c.AvailableCount, ReservedCount: c.ReservedCount,
		SoldCount: c.SoldCount, BlockedCount: c.BlockedCount,
		CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt,
		Sections: make([]SectionResponse, 0, len(c.Sections)),
	}
	for _, sec := range c.Sections {
		secResp := SectionResponse{Index: sec.Index, Name: sec.Name, Tables: make([]TableResponse, 0, len(sec.Tables))}
		for _, tbl := range sec.Tables {
			tblResp := TableResponse{Index: tbl.Index, Label: tbl.Label, Seats: make([]SeatResponse, 0, len(tbl.Seats))}
			for _, se := range tbl.Seats {
				tblResp.Seats = append(tblResp.Seats, toSeatResponse(se))
			}
			secResp.Tables = append(secResp.Tables, tblResp)
		}
		resp.Sections = append(resp.Sections, secResp)
	}
	return resp
}

// Create godoc
// @Summary チャートを作成
// @Description レイアウト定義からシーティングチャートを作成します
// @Tags charts
// @Accept json
// @Produce json
// @Param request body CreateChartRequest true "レイアウト"
// @Success 201 {object} ChartResponse
// @Failure 400 {object} map[string]string
// @Router /charts [post]
func (h *ChartHandler) Create(c echo.Context) error {
	var req CreateChartRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	input := application.CreateChartInput{Name: req.Name}
	for _, sec := range req.Sections {
		secInput := application.SectionInput{Name: sec.Name}
		for _, tbl := range sec.Tables {
			secInput.Tables = append(secInput.Tables, application.TableInput{
				Label: tbl.Label, SeatLabels: tbl.SeatLabels,
			})
		}
		input.Sections = append(input.Sections, secInput)
	}

	created, err := h.service.CreateChart(c.Request().Context(), input)
	if err != nil {
		return chartHTTPError(err)
	}
	return c.JSON(http.StatusCreated, toChartResponse(created))
}

// GetByID godoc
// @Summary チャートを取得
// @Description 指定IDのチャートを座席ツリー込みで取得します
// @Tags charts
// @Produce json
// @Param id path string true "チャートID"
// @Success 200 {object} ChartResponse
// @Failure 404 {object} map[string]string
// @Router /charts/{id} [get]
func (h *ChartHandler) GetByID(c echo.Context) error {
	found, err := h.service.GetChart(c.Request().Context(), c.Param("id"))
	if err != nil {
		return chartHTTPError(err)
	}
	return c.JSON(http.StatusOK, toChartResponse(found))
}

// GetAvailability godoc
// @Summary 空席サマリーを取得
// @Description チャートのステータス別座席数を取得します
// @Tags charts
// @Produce json
// @Param id path string true "チャートID"
// @Success 200 {object} AvailabilityResponse
// @Failure 404 {object} map[string]string
// @Router /charts/{id}/availability [get]
func (h *ChartHandler) GetAvailability(c echo.Context) error {
	id := c.Param("id")
	counts, err := h.service.GetAvailability(c.Request().Context(), id)
	if err != nil {
		return chartHTTPError(err)
	}
	return c.JSON(http.StatusOK, AvailabilityResponse{
		ChartID: id, Available: counts.Available, Reserved: counts.Reserved,
		Sold: counts.Sold, Blocked: counts.Blocked,
	})
}

// RemoveTable godoc
// @Summary テーブルを削除
// @Description テーブルとその座席を削除します。ホールド中の座席が含まれる場合は失敗します
// @Tags charts
// @Produce json
// @Param chartID path string true "チャートID"
// @Param section query int true "セクションインデックス"
// @Param table query int true "テーブルインデックス"
// @Success 200 {object} map[string]int
// @Failure 409 {object} map[string]string "ホールド中の座席が存在"
// @Router /charts/{chartID}/tables [delete]
func (h *ChartHandler) RemoveTable(c echo.Context) error {
	sectionIndex, err := strconv.Atoi(c.QueryParam("section"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "section は整数で指定してください")
	}
	tableIndex, err := strconv.Atoi(c.QueryParam("table"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "table は整数で指定してください")
	}

	removed, err := h.service.RemoveTable(c.Request().Context(), application.RemoveTableInput{
		ChartID:      c.Param("chartID"),
		SectionIndex: sectionIndex,
		TableIndex:   tableIndex,
	})
	if err != nil {
		return chartHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]int{"seats_removed": removed})
}

// Delete godoc
// @Summary チャートを削除
// @Description チャートと配下の座席を破棄します
// @Tags charts
// @Produce json
// @Param id path string true "チャートID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /charts/{id} [delete]
func (h *ChartHandler) Delete(c echo.Context) error {
	if err := h.service.DeleteChart(c.Request().Context(), c.Param("id")); err != nil {
		return chartHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func chartHTTPError(err error) error {
	switch {
	case errors.Is(err, chart.ErrChartNotFound), errors.Is(err, chart.ErrTableNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, chart.ErrSeatsStillReserved):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, chart.ErrChartNameRequired),
		errors.Is(err, chart.ErrSectionsRequired),
		errors.Is(err, chart.ErrSeatLabelsRequired):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
