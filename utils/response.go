package utils

import "github.com/gin-gonic/gin"

// JSONResponse defines the uniform structure for API responses.
type JSONResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Respond writes a JSON response with the given status code.
func Respond(ctx *gin.Context, status int, code int, message string, data interface{}) {
	ctx.JSON(status, JSONResponse{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// Success returns a standard success response.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, 200, 0, "success", data)
}

// Created returns a standard success response with a 201 status.
func Created(ctx *gin.Context, data interface{}) {
	Respond(ctx, 201, 0, "created", data)
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status int, code int, message string) {
	Respond(ctx, status, code, message, nil)
}

// FieldErrors returns a 400 response carrying per-field validation details so
// a client can fix every problem in one round trip.
func FieldErrors(ctx *gin.Context, code int, fields map[string][]string) {
	ctx.JSON(400, JSONResponse{
		Code:    code,
		Message: "validation failed",
		Data:    gin.H{"errors": fields},
	})
}
