package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-seat-hold-engine/internal/application"
	"github.com/sanosuguru/go-seat-hold-engine/internal/domain/chart"
	"github.com/sanosuguru/go-seat-hold-engine/internal/domain/seat"
)

// MockChartService はChartServiceInterfaceのモック
type MockChartService struct {
	mock.Mock
}

func (m *MockChartService) CreateChart(ctx context.Context, input application.CreateChartInput) (*chart.Chart, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chart.Chart), args.Error(1)
}

func (m *MockChartService) GetChart(ctx context.Context, id string) (*chart.Chart, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chart.Chart), args.Error(1)
}

func (m *MockChartService) GetAvailability(ctx context.Context, chartID string) (chart.StatusCounts, error) {
	args := m.Called(ctx, chartID)
	return args.Get(0).(chart.StatusCounts), args.Error(1)
}

func (m *MockChartService) RemoveTable(ctx context.Context, input application.RemoveTableInput) (int, error) {
	args := m.Called(ctx, input)
	return args.Int(0), args.Error(1)
}

func (m *MockChartService) DeleteChart(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func sampleChart() *chart.Chart {
	now := time.Now()
	se := seat.NewSeat("chart-1", 0, 0, 0, "T1-1")
	se.ID = "seat-1"
	return &chart.Chart{
		ID:   "chart-1",
		Name: "メインホール",
		Sections: []chart.Section{
			{
				Index: 0,
				Name:  "1階",
				Tables: []chart.Table{
					{Index: 0, Label: "T1", Seats: []*seat.Seat{se}},
				},
			},
		},
		AvailableCount: 1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestChartHandler_Create(t *testing.T) {
	e := NewTestEcho()

	t.Run("チャートを作成できる", func(t *testing.T) {
		mockService := new(MockChartService)
		mockService.On("CreateChart", mock.Anything, mock.MatchedBy(func(input application.CreateChartInput) bool {
			return input.Name == "メインホール" && len(input.Sections) == 1
		})).Return(sampleChart(), nil)

		handler := NewChartHandler(mockService)

		body := `{"name":"メインホール","sections":[{"name":"1階","tables":[{"label":"T1","seat_labels":["T1-1"]}]}]}`
		req := httptest.NewRequest(http.MethodPost, "/charts", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := handler.Create(c)

		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, rec.Code)

		var resp ChartResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "chart-1", resp.ID)
		assert.Equal(t, 1, resp.AvailableCount)
		require.Len(t, resp.Sections, 1)
		require.Len(t, resp.Sections[0].Tables, 1)
		assert.Len(t, resp.Sections[0].Tables[0].Seats, 1)
		mockService.AssertExpectations(t)
	})

	t.Run("nameなしはバリデーションエラー", func(t *testing.T) {
		mockService := new(MockChartService)
		handler := NewChartHandler(mockService)

		body := `{"sections":[{"name":"1階","tables":[{"label":"T1","seat_labels":["T1-1"]}]}]}`
		req := httptest.NewRequest(http.MethodPost, "/charts", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := handler.Create(c)

		require.Error(t, err)
		mockService.AssertNotCalled(t, "CreateChart")
	})

	t.Run("sectionsが空はバリデーションエラー", func(t *testing.T) {
		mockService := new(MockChartService)
		handler := NewChartHandler(mockService)

		body := `{"name":"メインホール","sections":[]}`
		req := httptest.NewRequest(http.MethodPost, "/charts", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := handler.Create(c)

		require.Error(t, err)
		mockService.AssertNotCalled(t, "CreateChart")
	})
}

func TestChartHandler_GetByID(t *testing.T) {
	e := NewTestEcho()

	t.Run("チャートを取得できる", func(t *testing.T) {
		mockService := new(MockChartService)
		mockService.On("GetChart", mock.Anything, "chart-1").Return(sampleChart(), nil)

		handler := NewChartHandler(mockService)

		req := httptest.NewRequest(http.MethodGet, "/charts/chart-1", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues("chart-1")

		err := handler.GetByID(c)

		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("存在しないチャートは404", func(t *testing.T) {
		mockService := new(MockChartService)
		mockService.On("GetChart", mock.Anything, "chart-999").Return(nil, chart.ErrChartNotFound)

		handler := NewChartHandler(mockService)

		req := httptest.NewRequest(http.MethodGet, "/charts/chart-999", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues("chart-999")

		err := handler.GetByID(c)

		require.Error(t, err)
		httpErr, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusNotFound, httpErr.Code)
	})
}

func TestChartHandler_GetAvailability(t *testing.T) {
	e := NewTestEcho()

	mockService := new(MockChartService)
	mockService.On("GetAvailability", mock.Anything, "chart-1").
		Return(chart.StatusCounts{Available: 10, Reserved: 3, Sold: 2}, nil)

	handler := NewChartHandler(mockService)

	req := httptest.NewRequest(http.MethodGet, "/charts/chart-1/availability", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("chart-1")

	err := handler.GetAvailability(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp AvailabilityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "chart-1", resp.ChartID)
	assert.Equal(t, 10, resp.Available)
	assert.Equal(t, 3, resp.Reserved)
	assert.Equal(t, 2, resp.Sold)
}

func TestChartHandler_RemoveTable(t *testing.T) {
	e := NewTestEcho()

	newRemoveContext := func(query string) (echo.Context, *httptest.ResponseRecorder) {
		req := httptest.NewRequest(http.MethodDelete, "/charts/chart-1/tables?"+query, nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("chartID")
		c.SetParamValues("chart-1")
		return c, rec
	}

	t.Run("テーブルを削除できる", func(t *testing.T) {
		mockService := new(MockChartService)
		mockService.On("RemoveTable", mock.Anything, application.RemoveTableInput{
			ChartID: "chart-1", SectionIndex: 0, TableIndex: 1,
		}).Return(4, nil)

		handler := NewChartHandler(mockService)
		c, rec := newRemoveContext("section=0&table=1")

		err := handler.RemoveTable(c)

		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]int
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 4, resp["seats_removed"])
	})

	t.Run("ホールド中の座席を含むテーブルは409", func(t *testing.T) {
		mockService := new(MockChartService)
		mockService.On("RemoveTable", mock.Anything, mock.Anything).
			Return(0, chart.ErrSeatsStillReserved)

		handler := NewChartHandler(mockService)
		c, _ := newRemoveContext("section=0&table=1")

		err := handler.RemoveTable(c)

		require.Error(t, err)
		httpErr, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusConflict, httpErr.Code)
	})

	t.Run("クエリパラメータが整数でない場合は400", func(t *testing.T) {
		mockService := new(MockChartService)
		handler := NewChartHandler(mockService)
		c, _ := newRemoveContext("section=abc&table=1")

		err := handler.RemoveTable(c)

		require.Error(t, err)
		httpErr, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusBadRequest, httpErr.Code)
		mockService.AssertNotCalled(t, "RemoveTable")
	})
}

func TestChartHandler_Delete(t *testing.T) {
	e := NewTestEcho()

	mockService := new(MockChartService)
	mockService.On("DeleteChart", mock.Anything, "chart-1").Return(nil)

	handler := NewChartHandler(mockService)

	req := httptest.NewRequest(http.MethodDelete, "/charts/chart-1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("chart-1")

	err := handler.Delete(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
