package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-seat-hold-engine/internal/api"
)

// NewTestEcho はリクエスト検証を有効にしたEchoをテスト用に返す
func NewTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = api.NewValidator()
	return e
}
