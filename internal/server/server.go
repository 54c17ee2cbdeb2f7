package server

import (
	"context"
	"net/http"
	"time"

	"wavewellness/internal/auth"
	"wavewellness/internal/booking"
	"wavewellness/internal/config"
	"wavewellness/internal/ledger"
	"wavewellness/internal/notification"
	"wavewellness/internal/payment"
	"wavewellness/internal/slot"
	"wavewellness/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Server struct {
	router *gin.Engine
	db     *sqlx.DB
	config *config.Config
	http   *http.Server
}

func New(db *sqlx.DB, cfg *config.Config, notifier *notification.Service) *Server {
	router := gin.Default()
	router.Use(corsMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(RequestLoggingMiddleware())
	router.Use(RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst))

	userHandler := user.NewHandler(db, cfg.JWTSecret)
	ledgerHandler := ledger.NewHandler(db)
	slotHandler := slot.NewHandler(db)
	bookingHandler := booking.NewHandler(db, notifier)
	paymentHandler := payment.NewHandler(db, notifier)

	public := router.Group("/auth")
	{
		public.POST("/register", userHandler.Register)
		public.POST("/login", userHandler.Login)
		public.POST("/refresh", userHandler.Refresh)
	}

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", userHandler.GetMe)
		protected.GET("/me/credits", ledgerHandler.GetCredits)
		protected.GET("/me/ledger", ledgerHandler.GetLedger)

		protected.GET("/slots", slotHandler.ListSlots)
		protected.POST("/slots/:slotID/book", bookingHandler.BookSlot)
		protected.GET("/bookings", bookingHandler.ListMyBookings)
		protected.POST("/bookings/:bookingID/cancel", bookingHandler.CancelBooking)

		protected.GET("/packages", paymentHandler.ListPackages)
		protected.POST("/payments", paymentHandler.CreatePayment)
		protected.GET("/payments", paymentHandler.ListMyPayments)
		protected.POST("/payments/:paymentID/proof", paymentHandler.AttachProof)
	}

	coach := router.Group("/coach")
	coach.Use(authMiddleware, auth.RequireRole(auth.RoleCoach, auth.RoleAdmin))
	{
		coach.POST("/slots", slotHandler.CreateSlot)
		coach.POST("/slots/bulk", slotHandler.BulkCreateSlots)
		coach.GET("/slots", slotHandler.ListMySlots)
		coach.PATCH("/slots/:slotID", slotHandler.UpdateSlot)
		coach.DELETE("/slots/:slotID", slotHandler.DeleteSlot)
		coach.GET("/slots/:slotID/bookings", bookingHandler.ListBookingsBySlot)
	}

	// Attendance lives outside /coach because admins may mark it too; the
	// service checks slot ownership itself.
	marking := router.Group("/bookings")
	marking.Use(authMiddleware, auth.RequireRole(auth.RoleCoach, auth.RoleAdmin))
	{
		marking.POST("/:bookingID/attendance", bookingHandler.MarkAttendance)
	}

	admin := router.Group("/admin")
	admin.Use(authMiddleware, auth.RequireRole(auth.RoleAdmin))
	{
		admin.GET("/payments", paymentHandler.ListPendingPayments)
		admin.POST("/payments/:paymentID/approve", paymentHandler.ApprovePayment)
		admin.POST("/payments/:paymentID/reject", paymentHandler.RejectPayment)
		admin.POST("/packages", paymentHandler.CreatePackage)
		admin.POST("/students/:studentID/credits", ledgerHandler.AdjustCredits)
		admin.PATCH("/users/:userID/role", userHandler.SetRole)
		admin.GET("/bookings/stats", bookingHandler.GetStats)
	}

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())
	router.GET("/test-email", TestEmail(notifier))
	SetupSwagger(router)

	return &Server{
		router: router,
		db:     db,
		config: cfg,
	}
}

func (s *Server) Start(port string) error {
	s.http = &http.Server{
		Addr:              ":" + port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
