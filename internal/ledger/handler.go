package ledger

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

// GetCredits godoc
// @Summary      Credit balance
// @Description  Returns the caller's available credits and the amount expiring within a week.
// @Tags         credits
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  BalanceResponse
// @Failure      500  {object}  gin.H
// @Router       /me/credits [get]
func (h *Handler) GetCredits(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	summary, err := h.service.Summary(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load credit balance"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetLedger godoc
// @Summary      Credit history
// @Description  Returns the caller's credit ledger entries, newest first.
// @Tags         credits
// @Security     BearerAuth
// @Produce      json
// @Param        limit   query     int  false  "Page size"
// @Param        offset  query     int  false  "Page offset"
// @Success      200     {array}   Entry
// @Failure      500     {object}  gin.H
// @Router       /me/ledger [get]
func (h *Handler) GetLedger(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	entries, err := h.service.History(c.Request.Context(), userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load credit history"})
		return
	}

	c.JSON(http.StatusOK, entries)
}

// AdjustCredits godoc
// @Summary      Manual credit adjustment
// @Description  Appends a manual_adjustment ledger entry for a student. Admin only.
// @Tags         credits
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        studentID  path      int                   true  "Student ID"
// @Param        request    body      AdjustCreditsRequest  true  "Signed delta"
// @Success      201        {object}  Entry
// @Failure      400        {object}  gin.H
// @Failure      500        {object}  gin.H
// @Router       /admin/students/{studentID}/credits [post]
func (h *Handler) AdjustCredits(c *gin.Context) {
	principal, ok := auth.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	studentID, err := strconv.Atoi(c.Param("studentID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid student ID"})
		return
	}

	var req AdjustCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, err := h.service.ManualAdjust(c.Request.Context(), principal, studentID, req.Delta)
	if err != nil {
		if errors.Is(err, ErrZeroDelta) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "delta cannot be zero"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to adjust credits"})
		return
	}

	c.JSON(http.StatusCreated, entry)
}
