package api

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// CustomValidator は go-playground/validator を Echo のリクエスト検証に接続する
type CustomValidator struct {
	validate *validator.Validate
}

func NewValidator() *CustomValidator {
	return &CustomValidator{validate: validator.New()}
}

// Validate は構造体タグの検証を実行し、違反を400エラーに変換する
func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "リクエストの検証に失敗しました: "+err.Error())
	}
	return nil
}
