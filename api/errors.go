package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Domenick1991/airbroker/api/middleware"
	"github.com/Domenick1991/airbroker/internal/domain"
	"github.com/Domenick1991/airbroker/internal/vendor"
	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Error         string          `json:"error"`
	RequestID     string          `json:"request_id,omitempty"`
	VendorStatus  int             `json:"vendor_status,omitempty"`
	VendorPayload json.RawMessage `json:"vendor_payload,omitempty"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrVendorAuth),
		errors.Is(err, domain.ErrVendorTransport),
		errors.Is(err, domain.ErrVendorBusiness):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps a use case error to a status and a JSON body. Vendor
// failures carry the vendor's own body when it is JSON.
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	resp := errorResponse{
		Error:     err.Error(),
		RequestID: middleware.RequestIDFrom(c),
	}

	var vErr *vendor.Error
	if errors.As(err, &vErr) {
		resp.VendorStatus = vErr.StatusCode
		if len(vErr.Payload) > 0 && json.Valid(vErr.Payload) {
			resp.VendorPayload = vErr.Payload
		}
	}

	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().Err(err).Int("status", status).Msg("request failed")
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, resp)
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{
		Error:     msg,
		RequestID: middleware.RequestIDFrom(c),
	})
}
