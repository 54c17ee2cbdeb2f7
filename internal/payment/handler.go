package payment

import (
	"errors"
	"net/http"
	"strconv"

	"wavewellness/internal/auth"
	"wavewellness/internal/ledger"
	"wavewellness/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Handler struct {
	service Service
}

func NewHandler(db *sqlx.DB, notifier Notifier) *Handler {
	return &Handler{
		service: NewService(
			NewRepository(db),
			ledger.NewRepository(db),
			user.NewRepository(db),
			notifier,
		),
	}
}

// ListPackages godoc
// @Summary      List packages
// @Description  Active credit packages available for purchase.
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   Package
// @Failure      500  {object}  gin.H
// @Router       /packages [get]
func (h *Handler) ListPackages(c *gin.Context) {
	activeOnly := c.Query("all") != "true"

	packages, err := h.service.ListPackages(c.Request.Context(), activeOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch packages"})
		return
	}

	c.JSON(http.StatusOK, packages)
}

// CreatePackage godoc
// @Summary      Create package
// @Description  Adds a purchasable credit package. Admin only.
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CreatePackageRequest  true  "Package details"
// @Success      201      {object}  Package
// @Failure      400      {object}  gin.H
// @Failure      403      {object}  gin.H
// @Router       /admin/packages [post]
func (h *Handler) CreatePackage(c *gin.Context) {
	principal, ok := auth.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req CreatePackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pkg, err := h.service.CreatePackage(c.Request.Context(), principal, req)
	if err != nil {
		if errors.Is(err, ErrNotAdmin) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create package"})
		return
	}

	c.JSON(http.StatusCreated, pkg)
}

// CreatePayment godoc
// @Summary      Purchase a package
// @Description  Opens a pending payment for the chosen package. Credits arrive only after an admin approves the payment.
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CreatePaymentRequest  true  "Package to purchase"
// @Success      201      {object}  Payment
// @Failure      400      {object}  gin.H
// @Failure      403      {object}  gin.H
// @Failure      404      {object}  gin.H
// @Router       /payments [post]
func (h *Handler) CreatePayment(c *gin.Context) {
	principal, ok := auth.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payment, err := h.service.Purchase(c.Request.Context(), principal, req.PackageID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotStudent):
			c.JSON(http.StatusForbidden, gin.H{"error": "Only students can purchase packages"})
		case errors.Is(err, ErrPackageNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Package not found"})
		case errors.Is(err, ErrPackageInactive):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Package is no longer available"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create payment"})
		}
		return
	}

	c.JSON(http.StatusCreated, payment)
}

// AttachProof godoc
// @Summary      Attach payment proof
// @Description  Records the proof-of-payment file path on a pending payment. Only the paying student can attach, and only while pending.
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        paymentID  path      int                 true  "Payment ID"
// @Param        request    body      AttachProofRequest  true  "Proof path"
// @Success      200        {object}  gin.H
// @Failure      400        {object}  gin.H
// @Failure      403        {object}  gin.H
// @Failure      404        {object}  gin.H
// @Router       /payments/{paymentID}/proof [post]
func (h *Handler) AttachProof(c *gin.Context) {
	principal, ok := auth.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	paymentID, err := strconv.Atoi(c.Param("paymentID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payment ID"})
		return
	}

	var req AttachProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.AttachProof(c.Request.Context(), principal, paymentID, req.ProofPath); err != nil {
		switch {
		case errors.Is(err, ErrNotStudent):
			c.JSON(http.StatusForbidden, gin.H{"error": "Only students can attach proof"})
		case errors.Is(err, ErrBadProofType):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Proof must be a jpg, jpeg, png, webp or pdf file"})
		case errors.Is(err, ErrPaymentNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
		case errors.Is(err, ErrNotPaymentOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": "You can only attach proof to your own payments"})
		case errors.Is(err, ErrNotPending):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Payment is no longer pending"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to attach proof"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Proof attached"})
}

// ListMyPayments godoc
// @Summary      List my payments
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   Payment
// @Failure      500  {object}  gin.H
// @Router       /payments [get]
func (h *Handler) ListMyPayments(c *gin.Context) {
	principal, ok := auth.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	payments, err := h.service.ListMine(c.Request.Context(), principal)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch payments"})
		return
	}

	c.JSON(http.StatusOK, payments)
}

// ListPendingPayments godoc
// @Summary      List payments by status
// @Description  Payments awaiting settlement, oldest first. Admin only.
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        status  query     string  false  "Status filter (default pending)"
// @Success      200     {array}   Payment
// @Failure      500     {object}  gin.H
// @Router       /admin/payments [get]
func (h *Handler) ListPendingPayments(c *gin.Context) {
	status := c.DefaultQuery("status", StatusPending)

	payments, err := h.service.ListByStatus(c.Request.Context(), status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch payments"})
		return
	}

	c.JSON(http.StatusOK, payments)
}

// ApprovePayment godoc
// @Summary      Approve payment
// @Description  Credits the snapshotted package credits to the student and marks the payment approved. Repeating the call never grants twice. Admin only.
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        paymentID  path      int  true  "Payment ID"
// @Success      200        {object}  gin.H
// @Failure      400        {object}  gin.H
// @Failure      403        {object}  gin.H
// @Failure      404        {object}  gin.H
// @Router       /admin/payments/{paymentID}/approve [post]
func (h *Handler) ApprovePayment(c *gin.Context) {
	principal, ok := auth.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	paymentID, err := strconv.Atoi(c.Param("paymentID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payment ID"})
		return
	}

	if err := h.service.Approve(c.Request.Context(), principal, paymentID); err != nil {
		switch {
		case errors.Is(err, ErrNotAdmin):
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
		case errors.Is(err, ErrPaymentNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
		case errors.Is(err, ErrNotPending):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Payment was already settled"})
		case errors.Is(err, ErrNoProof):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Payment has no proof attached"})
		case errors.Is(err, ErrUnlimitedPackage):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unlimited packages cannot be approved"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to approve payment"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Payment approved"})
}

// RejectPayment godoc
// @Summary      Reject payment
// @Description  Marks a pending payment rejected without granting credits. Admin only.
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        paymentID  path      int  true  "Payment ID"
// @Success      200        {object}  gin.H
// @Failure      400        {object}  gin.H
// @Failure      403        {object}  gin.H
// @Failure      404        {object}  gin.H
// @Router       /admin/payments/{paymentID}/reject [post]
func (h *Handler) RejectPayment(c *gin.Context) {
	principal, ok := auth.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	paymentID, err := strconv.Atoi(c.Param("paymentID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payment ID"})
		return
	}

	if err := h.service.Reject(c.Request.Context(), principal, paymentID); err != nil {
		switch {
		case errors.Is(err, ErrNotAdmin):
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
		case errors.Is(err, ErrPaymentNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
		case errors.Is(err, ErrNotPending):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Payment was already settled"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reject payment"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Payment rejected"})
}
