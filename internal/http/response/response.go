package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/painlens-backend/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondAPIError writes err using its apierr status and code; anything else is a 500.
func RespondAPIError(c *gin.Context, err error, fallbackCode string) {
	ae := apierr.From(err, fallbackCode)
	status := ae.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	RespondError(c, status, ae.Code, ae)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
