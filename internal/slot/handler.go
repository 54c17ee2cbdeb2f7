package slot

import (
	"errors"
	"net/http"
	"strconv"

	"wavewellness/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Handler struct {
	service Service
}

func NewHandler(db *sqlx.DB) *Handler {
	return &Handler{
		service: NewService(NewRepository(db)),
	}
}

func (h *Handler) principal(c *gin.Context) (auth.Principal, bool) {
	principal, ok := auth.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
	}
	return principal, ok
}

// ListSlots godoc
// @Summary      List bookable slots
// @Description  Returns all active future slots with remaining seat counts.
// @Tags         slots
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   SlotWithAvailability
// @Failure      500  {object}  gin.H
// @Router       /slots [get]
func (h *Handler) ListSlots(c *gin.Context) {
	slots, err := h.service.ListUpcoming(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch slots"})
		return
	}

	c.JSON(http.StatusOK, slots)
}

// CreateSlot godoc
// @Summary      Create availability slot
// @Description  Creates a one-hour slot for the authenticated coach.
// @Tags         slots
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CreateSlotRequest  true  "Slot start time (RFC3339)"
// @Success      201      {object}  Slot
// @Failure      400      {object}  gin.H
// @Failure      409      {object}  gin.H
// @Router       /coach/slots [post]
func (h *Handler) CreateSlot(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req CreateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	slot, err := h.service.Create(c.Request.Context(), principal, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateSlot):
			c.JSON(http.StatusConflict, gin.H{"error": "A slot already exists at this time"})
		case errors.Is(err, ErrSlotInPast):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Slot start time must be in the future"})
		case errors.Is(err, ErrBadTime):
			c.JSON(http.StatusBadRequest, gin.H{"error": "starts_at must be RFC3339"})
		case errors.Is(err, ErrNotCoach):
			c.JSON(http.StatusForbidden, gin.H{"error": "Only coaches can create slots"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create slot"})
		}
		return
	}

	c.JSON(http.StatusCreated, slot)
}

// BulkCreateSlots godoc
// @Summary      Create slots in bulk
// @Description  Creates one-hour slots for every date and hour combination, skipping past times and duplicates.
// @Tags         slots
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      BulkCreateRequest  true  "Dates (YYYY-MM-DD) and hours (HH:MM)"
// @Success      201      {object}  BulkCreateResponse
// @Failure      400      {object}  gin.H
// @Router       /coach/slots/bulk [post]
func (h *Handler) BulkCreateSlots(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req BulkCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.service.BulkCreate(c.Request.Context(), principal, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrBadTime):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date or hour format"})
		case errors.Is(err, ErrNotCoach):
			c.JSON(http.StatusForbidden, gin.H{"error": "Only coaches can create slots"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create slots"})
		}
		return
	}

	if resp.CreatedCount == 0 {
		c.JSON(http.StatusConflict, gin.H{
			"error": "No new slots created; they may already exist or be in the past",
		})
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// ListMySlots godoc
// @Summary      List own slots
// @Description  Returns the authenticated coach's slots with booking counts.
// @Tags         slots
// @Security     BearerAuth
// @Produce      json
// @Param        only_future  query     bool  false  "Only future slots"
// @Success      200          {array}   SlotWithAvailability
// @Failure      500          {object}  gin.H
// @Router       /coach/slots [get]
func (h *Handler) ListMySlots(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	onlyFuture, _ := strconv.ParseBool(c.DefaultQuery("only_future", "true"))

	slots, err := h.service.ListMine(c.Request.Context(), principal, onlyFuture)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch slots"})
		return
	}

	c.JSON(http.StatusOK, slots)
}

// UpdateSlot godoc
// @Summary      Reschedule slot
// @Description  Moves an unbooked slot to a new start time.
// @Tags         slots
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        slotID   path      int                true  "Slot ID"
// @Param        request  body      UpdateSlotRequest  true  "New start time (RFC3339)"
// @Success      200      {object}  gin.H
// @Failure      400      {object}  gin.H
// @Failure      403      {object}  gin.H
// @Failure      404      {object}  gin.H
// @Failure      409      {object}  gin.H
// @Router       /coach/slots/{slotID} [patch]
func (h *Handler) UpdateSlot(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	slotID, err := strconv.Atoi(c.Param("slotID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid slot ID"})
		return
	}

	var req UpdateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.UpdateTime(c.Request.Context(), principal, slotID, req); err != nil {
		switch {
		case errors.Is(err, ErrSlotNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Slot not found"})
		case errors.Is(err, ErrNotSlotOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": "You can only edit your own slots"})
		case errors.Is(err, ErrSlotHasBookings):
			c.JSON(http.StatusConflict, gin.H{"error": "Slot has bookings and cannot be moved"})
		case errors.Is(err, ErrDuplicateSlot):
			c.JSON(http.StatusConflict, gin.H{"error": "A slot already exists at this time"})
		case errors.Is(err, ErrSlotInPast), errors.Is(err, ErrBadTime):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update slot"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Slot updated"})
}

// DeleteSlot godoc
// @Summary      Delete slot
// @Description  Deletes an unbooked slot belonging to the authenticated coach.
// @Tags         slots
// @Security     BearerAuth
// @Produce      json
// @Param        slotID  path      int  true  "Slot ID"
// @Success      200     {object}  gin.H
// @Failure      403     {object}  gin.H
// @Failure      404     {object}  gin.H
// @Failure      409     {object}  gin.H
// @Router       /coach/slots/{slotID} [delete]
func (h *Handler) DeleteSlot(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	slotID, err := strconv.Atoi(c.Param("slotID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid slot ID"})
		return
	}

	if err := h.service.Delete(c.Request.Context(), principal, slotID); err != nil {
		switch {
		case errors.Is(err, ErrSlotNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Slot not found"})
		case errors.Is(err, ErrNotSlotOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": "You can only delete your own slots"})
		case errors.Is(err, ErrSlotHasBookings):
			c.JSON(http.StatusConflict, gin.H{"error": "Slot has bookings and cannot be deleted"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete slot"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Slot deleted"})
}
