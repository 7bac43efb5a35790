package utils

import (
	"github.com/gin-gonic/gin"
)

type JSONResponse struct {
	Status  bool        `json:"status"`
	Message string      `json:"message"`
	Code    string      `json:"code,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func RespondJSON(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, JSONResponse{
		Status:  code >= 200 && code < 300,
		Message: message,
		Data:    data,
	})
}

func RespondError(c *gin.Context, code int, err error) {
	c.JSON(code, JSONResponse{
		Status:  false,
		Message: err.Error(),
		Data:    nil,
	})
}

// RespondErrorCode is RespondError with a machine-readable error code.
// Clients are expected to branch on the code, not the message.
func RespondErrorCode(c *gin.Context, code int, errCode string, err error) {
	c.JSON(code, JSONResponse{
		Status:  false,
		Message: err.Error(),
		Code:    errCode,
		Data:    nil,
	})
}
