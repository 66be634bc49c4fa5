package echoapi

import (
	"github.com/labstack/echo/v4"
)

// Response is the envelope wrapping every API payload.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Count   *int        `json:"count,omitempty"`
}

func respond(ctx echo.Context, code int, data interface{}) error {
	return ctx.JSON(code, Response{Success: true, Data: data})
}

func respondMessage(ctx echo.Context, code int, msg string, data interface{}) error {
	return ctx.JSON(code, Response{Success: true, Message: msg, Data: data})
}

func respondList(ctx echo.Context, code int, data interface{}, count int) error {
	return ctx.JSON(code, Response{Success: true, Data: data, Count: &count})
}
