package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/neurobridge-progress/internal/platform/apierr"
)

type APIError struct {
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
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

// RespondAggregateError writes err using the status its aggregate code maps to.
func RespondAggregateError(c *gin.Context, err error) {
	ae := apierr.FromAggregate(err)
	if ae == nil {
		ae = apierr.New(http.StatusInternalServerError, "internal", nil)
	}
	c.JSON(ae.Status, ErrorEnvelope{Error: ToAPIError(ae)})
}

// ToAPIError renders an apierr for embedding in a success payload.
func ToAPIError(ae *apierr.Error) APIError {
	msg := "unknown error"
	if ae.Err != nil {
		msg = ae.Err.Error()
	}
	return APIError{Message: msg, Code: ae.Code, Retryable: ae.Retryable}
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
