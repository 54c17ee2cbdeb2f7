package booking

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"wavewellness/internal/auth"
	"wavewellness/internal/ledger"
	"wavewellness/internal/slot"
	"wavewellness/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Handler struct {
	service  Service
	slotRepo slot.Repository
}

func NewHandler(db *sqlx.DB, notifier Notifier) *Handler {
	return &Handler{
		service: NewService(
			NewRepository(db),
			ledger.NewRepository(db),
			user.NewRepository(db),
			notifier,
		),
		slotRepo: slot.NewRepository(db),
	}
}

// BookSlot godoc
// @Summary      Book a slot
// @Description  Reserves a seat in a slot. Requires a positive credit balance; the credit is debited at attendance, not here.
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        slotID  path      int  true  "Slot ID"
// @Success      201     {object}  Booking
// @Failure      400     {object}  gin.H
// @Failure      402     {object}  gin.H
// @Failure      403     {object}  gin.H
// @Failure      404     {object}  gin.H
// @Failure      409     {object}  gin.H
// @Router       /slots/{slotID}/book [post]
func (h *Handler) BookSlot(c *gin.Context) {
	principal, ok := auth.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	slotID, err := strconv.Atoi(c.Param("slotID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid slot ID"})
		return
	}

	booking, err := h.service.BookSlot(c.Request.Context(), principal, slotID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotStudent):
			c.JSON(http.StatusForbidden, gin.H{"error": "Only students can book slots"})
		case errors.Is(err, ErrNoCredit):
			c.JSON(http.StatusPaymentRequired, gin.H{"error": "No credits available; purchase a package first"})
		case errors.Is(err, ErrSlotNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Slot not found"})
		case errors.Is(err, ErrSlotInactive):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Slot is not active"})
		case errors.Is(err, ErrSlotInPast):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot book a slot in the past"})
		case errors.Is(err, ErrSlotFull):
			c.JSON(http.StatusConflict, gin.H{"error": "Slot is full"})
		case errors.Is(err, ErrDuplicateBooking):
			c.JSON(http.StatusConflict, gin.H{"error": "You already have a booking for this slot"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create booking"})
		}
		return
	}

	c.JSON(http.StatusCreated, booking)
}

// CancelBooking godoc
// @Summary      Cancel booking
// @Description  Cancels a booked reservation. Refunds one credit when at least 24 hours remain before the slot starts.
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        bookingID  path      int  true  "Booking ID"
// @Success      200        {object}  gin.H
// @Failure      400        {object}  gin.H
// @Failure      403        {object}  gin.H
// @Failure      404        {object}  gin.H
// @Router       /bookings/{bookingID}/cancel [post]
func (h *Handler) CancelBooking(c *gin.Context) {
	principal, ok := auth.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	bookingID, err := strconv.Atoi(c.Param("bookingID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	refunded, err := h.service.Cancel(c.Request.Context(), principal, bookingID)
	if err != nil {
		switch {
		case errors.Is(err, ErrBookingNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
		case errors.Is(err, ErrNotOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": "You can only cancel your own bookings"})
		case errors.Is(err, ErrNotStudent):
			c.JSON(http.StatusForbidden, gin.H{"error": "Only students can cancel bookings"})
		case errors.Is(err, ErrAlreadyFinalized):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Booking was already cancelled or completed"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel booking"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Booking cancelled",
		"refunded": refunded,
	})
}

// MarkAttendance godoc
// @Summary      Mark attendance
// @Description  Finalizes a booking as attended or no_show and debits one credit. Slot coach or admin only.
// @Tags         bookings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        bookingID  path      int                true  "Booking ID"
// @Param        request    body      AttendanceRequest  true  "Target status"
// @Success      200        {object}  gin.H
// @Failure      400        {object}  gin.H
// @Failure      403        {object}  gin.H
// @Failure      404        {object}  gin.H
// @Router       /bookings/{bookingID}/attendance [post]
func (h *Handler) MarkAttendance(c *gin.Context) {
	principal, ok := auth.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	bookingID, err := strconv.Atoi(c.Param("bookingID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	var req AttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.MarkAttendance(c.Request.Context(), principal, bookingID, req.Status); err != nil {
		switch {
		case errors.Is(err, ErrBookingNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
		case errors.Is(err, ErrNotAllowed):
			c.JSON(http.StatusForbidden, gin.H{"error": "You can only mark attendance for your own slots"})
		case errors.Is(err, ErrAlreadyFinalized):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Booking was already marked"})
		case errors.Is(err, ErrBadStatus):
			c.JSON(http.StatusBadRequest, gin.H{"error": "status must be attended or no_show"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark attendance"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Attendance marked"})
}

// ListMyBookings godoc
// @Summary      List my bookings
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   BookingWithDetails
// @Failure      500  {object}  gin.H
// @Router       /bookings [get]
func (h *Handler) ListMyBookings(c *gin.Context) {
	principal, ok := auth.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	bookings, err := h.service.ListMine(c.Request.Context(), principal)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch bookings"})
		return
	}

	c.JSON(http.StatusOK, bookings)
}

// ListBookingsBySlot godoc
// @Summary      List bookings for a slot
// @Description  Returns the roster for a slot. Slot coach or admin only.
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        slotID  path      int  true  "Slot ID"
// @Success      200     {array}   BookingWithDetails
// @Failure      400     {object}  gin.H
// @Failure      403     {object}  gin.H
// @Failure      404     {object}  gin.H
// @Router       /coach/slots/{slotID}/bookings [get]
func (h *Handler) ListBookingsBySlot(c *gin.Context) {
	principal, ok := auth.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	slotID, err := strconv.Atoi(c.Param("slotID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid slot ID"})
		return
	}

	sl, err := h.slotRepo.GetByID(c.Request.Context(), slotID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Slot not found"})
		return
	}

	bookings, err := h.service.ListBySlot(c.Request.Context(), principal, slotID, sl.CoachID)
	if err != nil {
		if errors.Is(err, ErrNotAllowed) {
			c.JSON(http.StatusForbidden, gin.H{"error": "You can only view rosters for your own slots"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch bookings"})
		return
	}

	c.JSON(http.StatusOK, bookings)
}

// GetStats godoc
// @Summary      Booking statistics
// @Description  Per-day booking outcome counts. Admin only.
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        from  query     string  true  "Start datetime (RFC3339)"
// @Param        to    query     string  true  "End datetime (RFC3339)"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  gin.H
// @Failure      500   {object}  gin.H
// @Router       /admin/bookings/stats [get]
func (h *Handler) GetStats(c *gin.Context) {
	fromStr := c.Query("from")
	toStr := c.Query("to")

	if fromStr == "" || toStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from and to query params are required"})
		return
	}

	from, err := time.Parse(time.RFC3339, fromStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from format, use RFC3339"})
		return
	}

	to, err := time.Parse(time.RFC3339, toStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to format, use RFC3339"})
		return
	}

	stats, err := h.service.StatsByDay(c.Request.Context(), from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"from": from,
		"to":   to,
		"data": stats,
	})
}
