package handler

import (
	"context"
	"errors"
	"time"

	"github.com/cloudflying87/qrgenerator/internal/app/repository"
	"github.com/cloudflying87/qrgenerator/internal/app/service"
	"github.com/cloudflying87/qrgenerator/internal/http/view"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Pinger reports whether the backing database is reachable. *pgxpool.Pool
// satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ResolveDeps groups dependencies required by the public resolution handler.
type ResolveDeps struct {
	Logger   *zap.Logger
	Recorder *service.ScanRecorder
	Filter   *service.CodeFilter
	DB       Pinger
}

// ResolveHandler serves the short-code path scanners actually hit.
type ResolveHandler struct {
	logger   *zap.Logger
	recorder *service.ScanRecorder
	filter   *service.CodeFilter
	db       Pinger
}

// NewResolveHandler creates a resolution handler with the provided dependencies.
func NewResolveHandler(deps ResolveDeps) *ResolveHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResolveHandler{
		logger:   logger,
		recorder: deps.Recorder,
		filter:   deps.Filter,
		db:       deps.DB,
	}
}

// Register wires resolution routes onto the provided router.
func (h *ResolveHandler) Register(router fiber.Router) {
	router.Get("/", h.Health)
	router.Get("/health", h.Health)
	router.Get("/:code", h.Resolve)
}

// Health reports readiness, including a database ping when a pool is wired.
func (h *ResolveHandler) Health(c *fiber.Ctx) error {
	status := "ok"
	httpStatus := fiber.StatusOK
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			h.logger.Warn("health database ping failed", zap.Error(err))
			status = "degraded"
			httpStatus = fiber.StatusServiceUnavailable
		}
	}
	return c.Status(httpStatus).JSON(fiber.Map{
		"service": "qrgenerator",
		"status":  status,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Resolve handles GET /:code. Each policy outcome maps to its own response;
// only an allowed resolution redirects.
func (h *ResolveHandler) Resolve(c *fiber.Ctx) error {
	shortCode := c.Params("code")
	if shortCode == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "missing code",
		})
	}

	// Cheap membership pre-check: junk codes never reach the database.
	// A bloom false positive just falls through to a NotFound lookup.
	if h.filter != nil && !h.filter.MightContain(shortCode) {
		return h.renderNotFound(c)
	}

	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}

	resolution, err := h.recorder.Resolve(ctx, shortCode, service.ScanRequest{
		RawIP:        c.IP(),
		RawUserAgent: c.Get("User-Agent"),
		Referer:      c.Get("Referer"),
		Password:     c.Query("password"),
	})
	if err != nil {
		if errors.Is(err, repository.ErrCodeNotFound) {
			return h.renderNotFound(c)
		}
		h.logger.Error("resolution failed", zap.Error(err), zap.String("short_code", shortCode))
		return h.renderErrorPage(c, fiber.StatusInternalServerError,
			"Something went wrong", "Please try again in a moment.")
	}

	switch resolution.Decision {
	case service.DecisionAllowed:
		h.logger.Debug("redirecting scan",
			zap.String("short_code", shortCode),
			zap.String("target", resolution.DestinationURL))
		return c.Redirect(resolution.DestinationURL, fiber.StatusFound)

	case service.DecisionPasswordRequired, service.DecisionPasswordIncorrect:
		return h.renderPasswordPage(c, shortCode, resolution)

	case service.DecisionExpired:
		return h.renderErrorPage(c, fiber.StatusGone,
			"Code expired", "This code has expired and can no longer be scanned.")

	case service.DecisionScanLimitReached:
		return h.renderErrorPage(c, fiber.StatusGone,
			"Scan limit reached", "This code has reached its maximum number of scans.")

	case service.DecisionPaused:
		return h.renderErrorPage(c, fiber.StatusForbidden,
			"Code paused", "The owner has temporarily paused this code. Try again later.")

	case service.DecisionDisabled:
		return h.renderErrorPage(c, fiber.StatusGone,
			"Code disabled", "This code has been disabled by its owner.")

	default:
		return h.renderErrorPage(c, fiber.StatusInternalServerError,
			"Something went wrong", "Please try again in a moment.")
	}
}

func (h *ResolveHandler) renderNotFound(c *fiber.Ctx) error {
	return h.renderErrorPage(c, fiber.StatusNotFound,
		"Code not found", "No QR code matches this link.")
}

func (h *ResolveHandler) renderPasswordPage(c *fiber.Ctx, shortCode string, resolution *service.Resolution) error {
	name := ""
	if resolution.Code != nil {
		name = resolution.Code.Name
	}
	html, err := view.RenderPasswordPage(view.PasswordPageData{
		ShortCode: shortCode,
		CodeName:  name,
		Incorrect: resolution.Decision == service.DecisionPasswordIncorrect,
	})
	if err != nil {
		h.logger.Error("failed to render password page", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to render page",
		})
	}

	status := fiber.StatusUnauthorized
	return c.Status(status).Type("html", "utf-8").SendString(html)
}

func (h *ResolveHandler) renderErrorPage(c *fiber.Ctx, status int, title, message string) error {
	html, err := view.RenderErrorPage(view.ErrorPageData{Title: title, Message: message})
	if err != nil {
		h.logger.Error("failed to render error page", zap.Error(err))
		return c.Status(status).JSON(fiber.Map{"error": message})
	}
	return c.Status(status).Type("html", "utf-8").SendString(html)
}
