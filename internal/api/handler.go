package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/linksight/gateway/internal/collaborator"
	"github.com/linksight/gateway/internal/middleware"
	"github.com/linksight/gateway/internal/model"
	"github.com/linksight/gateway/internal/observability"
	"github.com/linksight/gateway/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler holds HTTP handlers and dependencies.
// It follows the dependency injection pattern, receiving interfaces
// rather than concrete implementations for testability.
type Handler struct {
	urlService   service.URLServiceInterface
	authService  service.AuthServiceInterface
	visitLogger  service.VisitLoggerInterface
	collaborator collaborator.ClientInterface
	db           DBInterface
	cache        CacheInterface
	logger       *slog.Logger
}

// DBInterface defines the database operations needed by the handler
// for health checks; it allows mocking without a real connection.
type DBInterface interface {
	Ping(ctx context.Context) error
	Close()
}

// CacheInterface defines the cache operations needed by the handler
// for health checks.
type CacheInterface interface {
	Ping(ctx context.Context) error
}

// NewHandler creates a new handler instance with the provided dependencies.
func NewHandler(
	urlService service.URLServiceInterface,
	authService service.AuthServiceInterface,
	visitLogger service.VisitLoggerInterface,
	collab collaborator.ClientInterface,
	db DBInterface,
	cache CacheInterface,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		urlService:   urlService,
		authService:  authService,
		visitLogger:  visitLogger,
		collaborator: collab,
		db:           db,
		cache:        cache,
		logger:       logger,
	}
}

// RegisterRoutes registers all route definitions on the given Gin engine.
// The caller creates the engine and adds global middleware first so it
// runs in the correct order. Rate limiters are passed per operation
// class and mounted before the auth middleware: abuse is rejected before
// any credential verification happens.
func (h *Handler) RegisterRoutes(r *gin.Engine, loginLimiter, insightLimiter gin.HandlerFunc) {
	r.GET("/health", h.healthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authRequired := middleware.Auth(h.authService)

	api := r.Group("/api")
	{
		api.POST("/auth/signup", h.signup)
		api.POST("/auth/login", loginLimiter, h.login)

		api.POST("/shorten", authRequired, h.createShortURL)
		api.GET("/urls", authRequired, h.listURLs)

		api.GET("/analytics/:urlId", authRequired, h.fetchAnalytics)
		api.POST("/ai/graph-insight", authRequired, h.graphInsight)
		api.POST("/ai/chat", authRequired, h.chat)
		api.POST("/insight", insightLimiter, authRequired, h.insight)
	}

	// Public redirect route. The param segment coexists with the static
	// siblings (/health, /metrics, /api); gin matches statics first.
	r.GET("/:code", h.redirect)
}

// healthCheck handles GET /health
// Response codes:
//   - 200 OK: All dependencies are healthy
//   - 503 Service Unavailable: One or more dependencies are down
func (h *Handler) healthCheck(c *gin.Context) {
	ctx := c.Request.Context()

	cacheErr := h.cache.Ping(ctx)
	dbErr := h.db.Ping(ctx)

	status := "ok"
	code := http.StatusOK
	deps := gin.H{"cache": "up", "database": "up"}

	if cacheErr != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
		deps["cache"] = "down"
	}
	if dbErr != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
		deps["database"] = "down"
	}

	c.JSON(code, gin.H{"status": status, "dependencies": deps})
}

// signup handles POST /api/auth/signup
// Response codes:
//   - 201 Created: account created, returns {id, email}
//   - 400 Bad Request: missing or malformed fields
//   - 409 Conflict: generic message, never echoes storage errors
func (h *Handler) signup(c *gin.Context) {
	ctx := c.Request.Context()
	var req model.SignupRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "Missing fields")
		return
	}

	user, err := h.authService.Signup(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			// Deliberately vague: account enumeration is not worth
			// precision here.
			h.errorResponse(c, http.StatusConflict, "User likely exists")
			return
		}
		h.logger.ErrorContext(ctx, "unexpected error during signup",
			slog.String("error", err.Error()))
		h.errorResponse(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": user.ID, "email": user.Email})
}

// login handles POST /api/auth/login
// Rate limited per client address before this handler runs.
// Response codes:
//   - 200 OK: returns {token}
//   - 400 Bad Request: missing fields
//   - 401 Unauthorized: unknown email or wrong password, same body for both
func (h *Handler) login(c *gin.Context) {
	ctx := c.Request.Context()
	var req model.LoginRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "Missing fields")
		return
	}

	token, err := h.authService.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.errorResponse(c, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		h.logger.ErrorContext(ctx, "unexpected error during login",
			slog.String("error", err.Error()))
		h.errorResponse(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	c.JSON(http.StatusOK, model.TokenResponse{Token: token})
}

// createShortURL handles POST /api/shorten
// Response codes:
//   - 201 Created: returns the full url row
//   - 400 Bad Request: invalid request body or URL
//   - 500 Internal Server Error: code space exhausted or unexpected error
func (h *Handler) createShortURL(c *gin.Context) {
	ctx := c.Request.Context()
	claims := middleware.CurrentUser(c)

	var req model.ShortenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	url, err := h.urlService.CreateShortURL(ctx, claims.UserID, req.URL)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidURL):
			h.errorResponse(c, http.StatusBadRequest, "Invalid URL format")
		case errors.Is(err, service.ErrCodeSpaceExhausted):
			// Operationally actionable, not client-fixable.
			h.logger.ErrorContext(ctx, "short code space exhausted")
			h.errorResponse(c, http.StatusInternalServerError, "Internal server error")
		default:
			h.logger.ErrorContext(ctx, "unexpected error creating short URL",
				slog.String("error", err.Error()))
			h.errorResponse(c, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	c.JSON(http.StatusCreated, url)
}

// listURLs handles GET /api/urls
// Returns the caller's urls, newest first.
func (h *Handler) listURLs(c *gin.Context) {
	ctx := c.Request.Context()
	claims := middleware.CurrentUser(c)

	urls, err := h.urlService.ListURLs(ctx, claims.UserID)
	if err != nil {
		h.logger.ErrorContext(ctx, "unexpected error listing URLs",
			slog.String("error", err.Error()))
		h.errorResponse(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	c.JSON(http.StatusOK, urls)
}

// redirect handles GET /:code
// Resolves the short code and redirects before the visit write is even
// started: the log write runs as a detached task whose outcome the
// client can never observe.
// Response codes:
//   - 302 Found: redirects to original URL
//   - 404 Not Found: short code does not exist, no visit is recorded
func (h *Handler) redirect(c *gin.Context) {
	ctx := c.Request.Context()
	code := c.Param("code")

	url, err := h.urlService.Resolve(ctx, code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrURLNotFound):
			h.errorResponse(c, http.StatusNotFound, "URL not found")
		default:
			h.logger.ErrorContext(ctx, "unexpected error during redirect",
				slog.String("error", err.Error()),
				slog.String("code", code))
			h.errorResponse(c, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	c.Redirect(http.StatusFound, url.OriginalURL)
	observability.RedirectsServed.Inc()

	h.visitLogger.Submit(ctx, &model.Visit{
		URLID:         url.ID,
		VisitorIPHash: service.HashIP(c.ClientIP()),
		UserAgent:     c.Request.UserAgent(),
		Referer:       c.Request.Referer(),
	}, url.ShortCode)
}

// fetchAnalytics handles GET /api/analytics/:urlId
// Proxies the aggregation payload for an owned URL.
func (h *Handler) fetchAnalytics(c *gin.Context) {
	ctx := c.Request.Context()
	claims := middleware.CurrentUser(c)

	urlID, err := strconv.ParseInt(c.Param("urlId"), 10, 64)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, "Invalid url id")
		return
	}

	if !h.requireOwnership(c, urlID, claims.UserID) {
		return
	}

	payload, err := h.collaborator.FetchAnalytics(ctx, urlID)
	if err != nil {
		h.collaboratorError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", payload)
}

// graphInsight handles POST /api/ai/graph-insight
func (h *Handler) graphInsight(c *gin.Context) {
	ctx := c.Request.Context()
	claims := middleware.CurrentUser(c)

	var req model.GraphInsightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "Missing url_id or graph_type")
		return
	}

	if !h.requireOwnership(c, req.URLID, claims.UserID) {
		return
	}

	payload, err := h.collaborator.GraphInsight(ctx, req.URLID, req.GraphType)
	if err != nil {
		h.collaboratorError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", payload)
}

// chat handles POST /api/ai/chat
func (h *Handler) chat(c *gin.Context) {
	ctx := c.Request.Context()
	claims := middleware.CurrentUser(c)

	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "Missing url_id or message")
		return
	}

	if !h.requireOwnership(c, req.URLID, claims.UserID) {
		return
	}

	payload, err := h.collaborator.Chat(ctx, req.URLID, req.Message, req.Context)
	if err != nil {
		h.collaboratorError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", payload)
}

// insight handles POST /api/insight
// Rate limited per client address before auth runs.
func (h *Handler) insight(c *gin.Context) {
	ctx := c.Request.Context()
	claims := middleware.CurrentUser(c)

	var req model.InsightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "Missing url_id")
		return
	}

	if !h.requireOwnership(c, req.URLID, claims.UserID) {
		return
	}

	payload, err := h.collaborator.Insight(ctx, req.URLID)
	if err != nil {
		h.collaboratorError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", payload)
}

// requireOwnership re-checks per request that urlID belongs to userID.
// Unknown ids and foreign-owned ids produce the same 403 response so
// resource existence is never disclosed to non-owners. Returns false
// when the request has already been answered.
func (h *Handler) requireOwnership(c *gin.Context, urlID, userID int64) bool {
	owned, err := h.urlService.VerifyOwnership(c.Request.Context(), urlID, userID)
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "ownership check failed",
			slog.String("error", err.Error()),
			slog.Int64("url_id", urlID))
		h.errorResponse(c, http.StatusInternalServerError, "Internal server error")
		return false
	}
	if !owned {
		h.errorResponse(c, http.StatusForbidden, "Unauthorized access to this URL")
		return false
	}
	return true
}

// collaboratorError maps any collaborator failure to a single generic
// response; the collaborator's own errors are never relayed.
func (h *Handler) collaboratorError(c *gin.Context, err error) {
	if errors.Is(err, collaborator.ErrUnavailable) {
		h.errorResponse(c, http.StatusBadGateway, "Analytics service unavailable")
		return
	}
	h.logger.ErrorContext(c.Request.Context(), "unexpected collaborator error",
		slog.String("error", err.Error()))
	h.errorResponse(c, http.StatusInternalServerError, "Internal server error")
}

// errorResponse sends a standardized JSON error response.
func (h *Handler) errorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, model.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}
