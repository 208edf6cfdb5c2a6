package api

import (
	"encoding/json"
	"net/http"

	"github.com/Domenick1991/airbroker/internal/domain"
	"github.com/Domenick1991/airbroker/internal/service/booking"
	"github.com/Domenick1991/airbroker/internal/vendor"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type createBookingRequest struct {
	Username string `json:"username"`
	vendor.BookingRequest
}

type saveBookingRequest struct {
	Payload        vendor.BookingRequest `json:"payload"`
	VendorResponse json.RawMessage       `json:"vendorResponse"`
	Username       string                `json:"username"`
}

type bookingResponse struct {
	ID          int64   `json:"id"`
	BookingCode string  `json:"booking_code"`
	ReferenceNo string  `json:"reference_no"`
	Status      string  `json:"status"`
	TimeLimit   string  `json:"time_limit"`
	TotalPrice  float64 `json:"total_price"`
	SalesPrice  float64 `json:"sales_price"`
	Passengers  int     `json:"passengers"`
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

// Register mounts the vendor booking call under airline and the local store
// under bookings.
func (h *BookingHandler) Register(airline, bookings *gin.RouterGroup) {
	airline.POST("/booking", h.create)
	bookings.POST("", h.save)
	bookings.GET("", h.list)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	b, err := h.service.CreateBooking(c.Request.Context(), req.Username, req.BookingRequest)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBookingResponse(b))
}

func (h *BookingHandler) save(c *gin.Context) {
	var req saveBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if len(req.VendorResponse) == 0 {
		badRequest(c, "vendorResponse is required")
		return
	}

	resp, err := vendor.DecodeBookingResponse(req.VendorResponse)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	b, err := h.service.SaveBooking(c.Request.Context(), req.Payload, resp, req.Username)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBookingResponse(b))
}

func (h *BookingHandler) list(c *gin.Context) {
	summaries, err := h.service.ListBookings(c.Request.Context(), c.Query("username"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summaries)
}

func toBookingResponse(b *domain.Booking) bookingResponse {
	return bookingResponse{
		ID:          b.ID,
		BookingCode: b.BookingCode,
		ReferenceNo: b.ReferenceNo,
		Status:      string(b.Status),
		TimeLimit:   b.TimeLimit,
		TotalPrice:  b.TotalPrice,
		SalesPrice:  b.SalesPrice,
		Passengers:  len(b.Passengers),
	}
}
