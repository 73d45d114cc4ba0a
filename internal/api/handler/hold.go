package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-seat-hold-engine/internal/application"
	"github.com/sanosuguru/go-seat-hold-engine/internal/domain/seat"
)

// HoldHandler は座席ホールド操作のハンドラー
type HoldHandler struct {
	service HoldServiceInterface
}

func NewHoldHandler(s HoldServiceInterface) *HoldHandler {
	return &HoldHandler{service: s}
}

type HoldRequest struct {
	SessionID string `json:"session_id" validate:"required" example:"sess-550e8400"`
	TTLMillis int64  `json:"ttl_ms" validate:"omitempty,min=1" example:"900000"`
}

type CommitRequest struct {
	SessionID string `json:"session_id" validate:"required" example:"sess-550e8400"`
}

type SeatResponse struct {
	ID            string     `json:"id"`
	ChartID       string     `json:"chart_id"`
	SectionIndex  int        `json:"section_index"`
	TableIndex    int        `json:"table_index"`
	SeatIndex     int        `json:"seat_index"`
	Label         string     `json:"label"`
	Status        string     `json:"status"`
	SessionID     *string    `json:"session_id,omitempty"`
	HoldExpiresAt *time.Time `json:"hold_expires_at,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func toSeatResponse(s *seat.Seat) SeatResponse {
	return SeatResponse{
		ID: s.ID, ChartID: s.ChartID,
		SectionIndex: s.SectionIndex, TableIndex: s.TableIndex, SeatIndex: s.SeatIndex,
		Label: s.Label, Status: string(s.Status),
		SessionID: s.SessionID, HoldExpiresAt: s.HoldExpiresAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// Place godoc
// @Summary 座席をホールド
// @Description 座席をチェックアウトセッション用に仮押さえします（デフォルト15分間有効）
// @Tags holds
// @Accept json
// @Produce json
// @Param chartID path string true "チャートID"
// @Param seatID path string true "座席ID"
// @Param request body HoldRequest true "ホールド情報"
// @Success 200 {object} SeatResponse
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string "座席がホールドできない"
// @Router /charts/{chartID}/seats/{seatID}/hold [post]
func (h *HoldHandler) Place(c echo.Context) error {
	var req HoldRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	se, err := h.service.PlaceHold(c.Request().Context(), application.PlaceHoldInput{
		ChartID:   c.Param("chartID"),
		SeatID:    c.Param("seatID"),
		SessionID: req.SessionID,
		TTL:       time.Duration(req.TTLMillis) * time.Millisecond,
	})
	if err != nil {
		return holdHTTPError(err)
	}
	return c.JSON(http.StatusOK, toSeatResponse(se))
}

// Extend godoc
// @Summary ホールドを延長
// @Description 同一セッションが保持するホールドの有効期限を延長します
// @Tags holds
// @Accept json
// @Produce json
// @Param chartID path string true "チャートID"
// @Param seatID path string true "座席ID"
// @Param request body HoldRequest true "延長情報"
// @Success 200 {object} SeatResponse
// @Failure 403 {object} map[string]string "保持者ではない"
// @Failure 409 {object} map[string]string "ホールドされていない"
// @Router /charts/{chartID}/seats/{seatID}/extend [post]
func (h *HoldHandler) Extend(c echo.Context) error {
	var req HoldRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	se, err := h.service.ExtendHold(c.Request().Context(), application.ExtendHoldInput{
		ChartID:   c.Param("chartID"),
		SeatID:    c.Param("seatID"),
		SessionID: req.SessionID,
		TTL:       time.Duration(req.TTLMillis) * time.Millisecond,
	})
	if err != nil {
		return holdHTTPError(err)
	}
	return c.JSON(http.StatusOK, toSeatResponse(se))
}

// Release godoc
// @Summary ホールドを解放
// @Description ホールドを解放して座席を販売可能に戻します。X-Admin-Override ヘッダーで強制解放
// @Tags holds
// @Accept json
// @Produce json
// @Param chartID path string true "チャートID"
// @Param seatID path string true "座席ID"
// @Param X-Admin-Override header string false "管理者強制解放（true で有効）"
// @Param request body CommitRequest true "セッション情報"
// @Success 200 {object} SeatResponse
// @Failure 403 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /charts/{chartID}/seats/{seatID}/release [post]
func (h *HoldHandler) Release(c echo.Context) error {
	force := c.Request().Header.Get("X-Admin-Override") == "true"

	var req CommitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	// 強制解放はセッション照合を行わないため session_id を要求しない
	if !force {
		if err := c.Validate(&req); err != nil {
			return err
		}
	}
	se, err := h.service.ReleaseHold(c.Request().Context(), application.ReleaseHoldInput{
		ChartID:   c.Param("chartID"),
		SeatID:    c.Param("seatID"),
		SessionID: req.SessionID,
		Force:     force,
	})
	if err != nil {
		return holdHTTPError(err)
	}
	return c.JSON(http.StatusOK, toSeatResponse(se))
}

// Commit godoc
// @Summary ホールドを販売確定
// @Description 期限内のホールドを販売済みに確定します
// @Tags holds
// @Accept json
// @Produce json
// @Param chartID path string true "チャートID"
// @Param seatID path string true "座席ID"
// @Param request body CommitRequest true "セッション情報"
// @Success 200 {object} SeatResponse
// @Failure 403 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Failure 410 {object} map[string]string "ホールドの期限切れ"
// @Router /charts/{chartID}/seats/{seatID}/commit [post]
func (h *HoldHandler) Commit(c echo.Context) error {
	var req CommitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	se, err := h.service.CommitHold(c.Request().Context(), application.CommitHoldInput{
		ChartID:   c.Param("chartID"),
		SeatID:    c.Param("seatID"),
		SessionID: req.SessionID,
	})
	if err != nil {
		return holdHTTPError(err)
	}
	return c.JSON(http.StatusOK, toSeatResponse(se))
}

// Block godoc
// @Summary 座席を販売停止
// @Description 管理者が座席を販売停止します。available な座席のみ対象
// @Tags admin
// @Produce json
// @Param chartID path string true "チャートID"
// @Param seatID path string true "座席ID"
// @Success 200 {object} SeatResponse
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string "available ではない"
// @Router /charts/{chartID}/seats/{seatID}/block [post]
func (h *HoldHandler) Block(c echo.Context) error {
	se, err := h.service.BlockSeat(c.Request().Context(), application.BlockSeatInput{
		ChartID: c.Param("chartID"),
		SeatID:  c.Param("seatID"),
	})
	if err != nil {
		return holdHTTPError(err)
	}
	return c.JSON(http.StatusOK, toSeatResponse(se))
}

// Unblock godoc
// @Summary 販売停止を解除
// @Description 販売停止中の座席を販売可能に戻します
// @Tags admin
// @Produce json
// @Param chartID path string true "チャートID"
// @Param seatID path string true "座席ID"
// @Success 200 {object} SeatResponse
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string "販売停止中ではない"
// @Router /charts/{chartID}/seats/{seatID}/unblock [post]
func (h *HoldHandler) Unblock(c echo.Context) error {
	se, err := h.service.UnblockSeat(c.Request().Context(), application.BlockSeatInput{
		ChartID: c.Param("chartID"),
		SeatID:  c.Param("seatID"),
	})
	if err != nil {
		return holdHTTPError(err)
	}
	return c.JSON(http.StatusOK, toSeatResponse(se))
}

// GetSeat godoc
// @Summary 座席を取得
// @Description 指定IDの座席の現在の状態を取得します
// @Tags holds
// @Produce json
// @Param chartID path string true "チャートID"
// @Param seatID path string true "座席ID"
// @Success 200 {object} SeatResponse
// @Failure 404 {object} map[string]string
// @Router /charts/{chartID}/seats/{seatID} [get]
func (h *HoldHandler) GetSeat(c echo.Context) error {
	se, err := h.service.GetSeat(c.Request().Context(), c.Param("seatID"))
	if err != nil {
		return holdHTTPError(err)
	}
	if se.ChartID != c.Param("chartID") {
		return echo.NewHTTPError(http.StatusNotFound, seat.ErrSeatNotFound.Error())
	}
	return c.JSON(http.StatusOK, toSeatResponse(se))
}

// holdHTTPError はドメインエラーをHTTPステータスへ変換する
// SeatUnavailable / HoldExpired は購入者には「この座席は選べません」に相当する
func holdHTTPError(err error) error {
	switch {
	case errors.Is(err, seat.ErrSeatNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, seat.ErrNotHolder):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, seat.ErrHoldExpired):
		return echo.NewHTTPError(http.StatusGone, err.Error())
	case errors.Is(err, seat.ErrSeatUnavailable),
		errors.Is(err, seat.ErrSeatNotReserved),
		errors.Is(err, seat.ErrSeatNotBlocked),
		errors.Is(err, seat.ErrConcurrentModification):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
