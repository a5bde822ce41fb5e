package http

import (
	"html/template"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarium/internal/auth"
	"github.com/mrlokans/librarium/internal/entities"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	router.Use(auth.SecurityHeadersMiddleware())

	// CSRF must run before session so that session context is preserved:
	// gorilla/csrf replaces the request, and session context is layered on
	// top afterwards.
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies, cfg.AuthService))
	}

	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}

	if cfg.AuthMiddleware != nil {
		router.Use(cfg.AuthMiddleware.Handler())
	} else {
		router.Use(func(c *gin.Context) {
			c.Set(auth.ContextKeyUserID, auth.DefaultUserID)
			c.Set(auth.ContextKeyAuthType, auth.AuthTypeNone)
			c.Next()
		})
	}

	// Inject auth data for templates
	router.Use(AuthContextMiddleware(cfg.AuthConfig.Mode))

	funcMap := template.FuncMap{
		"formatDate": func(t interface{ Format(string) string }) string {
			return t.Format("2006-01-02")
		},
	}

	if cfg.TemplatesPath != "" {
		tmpl := template.Must(template.New("").Funcs(funcMap).ParseGlob(cfg.TemplatesPath + "/*.html"))
		router.SetHTMLTemplate(tmpl)
	}

	// Auth routes (sign-in exchanges an access token for a session)
	if cfg.AuthService != nil && cfg.AuthService.IsAuthEnabled() {
		authController, err := auth.NewAuthController(cfg.AuthService, cfg.SessionManager, cfg.TemplatesPath)
		if err == nil {
			authController.RegisterRoutes(router)
		}
	}

	health := NewHealthController(cfg.Database, cfg.Version)
	booksController := NewBooksController(cfg.Circulation, cfg.Catalog)
	reservationsController := NewReservationsController(cfg.Circulation)
	checkoutsController := NewCheckoutsController(cfg.Circulation)
	uiController := NewUIController(cfg.Circulation, cfg.Catalog)

	librarianOnly := auth.RequireRole(entities.RoleLibrarian)
	readerOnly := auth.RequireRole(entities.RoleReader)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// Books API endpoints
	router.GET("/api/books", booksController.ListBooks)
	router.GET("/api/books/genres", booksController.ListGenres)
	router.GET("/api/books/:id", booksController.GetBook)
	router.POST("/api/books", librarianOnly, booksController.CreateBook)
	router.PUT("/api/books/:id", librarianOnly, booksController.UpdateBook)
	router.DELETE("/api/books/:id", librarianOnly, booksController.RetireBook)

	// Reservations API endpoints
	router.GET("/api/reservations", reservationsController.ListReservations)
	router.GET("/api/reservations/:id", reservationsController.GetReservation)
	router.POST("/api/reservations", readerOnly, reservationsController.Reserve)
	router.DELETE("/api/reservations/:id", reservationsController.Unreserve)
	router.POST("/api/reservations/:id/checkout", librarianOnly, checkoutsController.Checkout)

	// Checkouts API endpoints
	router.GET("/api/checkouts", checkoutsController.ListCheckouts)
	router.GET("/api/checkouts/:id", checkoutsController.GetCheckout)
	router.POST("/api/checkouts/:id/return", librarianOnly, checkoutsController.Return)

	// UI routes
	if cfg.TemplatesPath != "" {
		router.GET("/", uiController.BooksPage)
		router.GET("/reservations", uiController.ReservationsPage)
		router.GET("/checkouts", uiController.CheckoutsPage)

		router.GET("/ui/books/new", librarianOnly, uiController.NewBookPage)
		router.POST("/ui/books", librarianOnly, uiController.CreateBook)
		router.GET("/ui/books/:id/edit", librarianOnly, uiController.EditBookPage)
		router.POST("/ui/books/:id/edit", librarianOnly, uiController.UpdateBook)
		router.GET("/ui/books/:id/retire", librarianOnly, uiController.RetirePage)
		router.POST("/ui/books/:id/retire", librarianOnly, uiController.Retire)

		router.POST("/ui/books/:id/reserve", readerOnly, uiController.Reserve)
		router.POST("/ui/reservations/:id/checkout", librarianOnly, uiController.CheckoutReservation)
		router.POST("/ui/reservations/:id/cancel", uiController.CancelReservation)
		router.POST("/ui/checkouts/:id/return", librarianOnly, uiController.ReturnCheckout)
	}

	return router
}
