package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudflying87/qrgenerator/internal/app/model"
	"github.com/cloudflying87/qrgenerator/internal/app/repository"
	"github.com/cloudflying87/qrgenerator/internal/app/service"
	infraPrometheus "github.com/cloudflying87/qrgenerator/internal/infra/prometheus"
	"github.com/cloudflying87/qrgenerator/internal/qrimage"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ownerHeader carries the acting account id. Authentication itself lives in
// front of this service; the header is trusted as-is.
const ownerHeader = "X-Owner-ID"

// APIDeps groups dependencies required by the management API handlers.
type APIDeps struct {
	Logger    *zap.Logger
	Codes     service.QRCodeService
	Analytics service.AnalyticsService
	BaseURL   string
}

// APIHandler implements the owner-facing management endpoints.
type APIHandler struct {
	logger    *zap.Logger
	codes     service.QRCodeService
	analytics service.AnalyticsService
	baseURL   string
}

// NewAPIHandler creates an API handler with the provided dependencies.
func NewAPIHandler(deps APIDeps) *APIHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{
		logger:    logger,
		codes:     deps.Codes,
		analytics: deps.Analytics,
		baseURL:   strings.TrimRight(deps.BaseURL, "/"),
	}
}

// Register wires API routes onto the provided router.
func (h *APIHandler) Register(router fiber.Router) {
	api := router.Group("/api")
	{
		codes := api.Group("/codes")
		{
			codes.Post("/", h.CreateCode)
			codes.Get("/", h.ListCodes)
			codes.Get("/:id", h.GetCode)
			codes.Patch("/:id", h.UpdateCode)
			codes.Delete("/:id", h.DeleteCode)
			codes.Get("/:id/analytics", h.GetAnalytics)
			codes.Get("/:id/image.png", h.GetImage)
		}
	}
}

// CreateCodeRequest represents the request body for registering a code.
type CreateCodeRequest struct {
	Name            string     `json:"name"`
	Type            string     `json:"type,omitempty"`
	DestinationURL  string     `json:"destination_url"`
	Password        string     `json:"password,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	MaxScans        *int64     `json:"max_scans,omitempty"`
	Size            int        `json:"size,omitempty"`
	ErrorCorrection string     `json:"error_correction,omitempty"`
	ForegroundColor string     `json:"foreground_color,omitempty"`
	BackgroundColor string     `json:"background_color,omitempty"`
	Description     string     `json:"description,omitempty"`
	Tags            string     `json:"tags,omitempty"`
}

// CodeResponse is the wire form of a QR code record. The password hash never
// leaves the service.
type CodeResponse struct {
	ID              uint       `json:"id"`
	OwnerID         string     `json:"owner_id"`
	Name            string     `json:"name"`
	Type            string     `json:"type"`
	ShortCode       string     `json:"short_code,omitempty"`
	ShortURL        string     `json:"short_url,omitempty"`
	DestinationURL  string     `json:"destination_url"`
	Status          string     `json:"status"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	MaxScans        *int64     `json:"max_scans,omitempty"`
	HasPassword     bool       `json:"has_password"`
	Size            int        `json:"size"`
	ErrorCorrection string     `json:"error_correction"`
	ForegroundColor string     `json:"foreground_color"`
	BackgroundColor string     `json:"background_color"`
	Description     string     `json:"description,omitempty"`
	Tags            string     `json:"tags,omitempty"`
	TotalScans      int64      `json:"total_scans"`
	UniqueScans     int64      `json:"unique_scans"`
	LastScannedAt   *time.Time `json:"last_scanned_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func (h *APIHandler) toResponse(code *model.QRCode) CodeResponse {
	resp := CodeResponse{
		ID:              code.ID,
		OwnerID:         code.OwnerID,
		Name:            code.Name,
		Type:            code.Type,
		ShortCode:       code.ShortCode,
		DestinationURL:  code.DestinationURL,
		Status:          code.Status,
		ExpiresAt:       code.ExpiresAt,
		MaxScans:        code.MaxScans,
		HasPassword:     code.PasswordHash != "",
		Size:            code.Size,
		ErrorCorrection: code.ErrorCorrection,
		ForegroundColor: code.ForegroundColor,
		BackgroundColor: code.BackgroundColor,
		Description:     code.Description,
		Tags:            code.Tags,
		TotalScans:      code.TotalScans,
		UniqueScans:     code.UniqueScans,
		LastScannedAt:   code.LastScannedAt,
		CreatedAt:       code.CreatedAt,
	}
	if code.IsDynamic() && code.ShortCode != "" {
		resp.ShortURL = fmt.Sprintf("%s/%s", h.baseURL, code.ShortCode)
	}
	return resp
}

// CreateCode handles POST /api/codes
func (h *APIHandler) CreateCode(c *fiber.Ctx) error {
	ownerID := c.Get(ownerHeader)
	if ownerID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "missing " + ownerHeader + " header",
		})
	}

	var req CreateCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if req.Name == "" || req.DestinationURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "name and destination_url are required",
		})
	}
	if req.Type != "" && req.Type != model.TypeStatic && req.Type != model.TypeDynamic {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "type must be one of: static, dynamic",
		})
	}

	code, err := h.codes.CreateCode(h.ctx(c), service.CreateCodeInput{
		OwnerID:         ownerID,
		Name:            req.Name,
		Type:            req.Type,
		DestinationURL:  req.DestinationURL,
		Password:        req.Password,
		ExpiresAt:       req.ExpiresAt,
		MaxScans:        req.MaxScans,
		Size:            req.Size,
		ErrorCorrection: req.ErrorCorrection,
		ForegroundColor: req.ForegroundColor,
		BackgroundColor: req.BackgroundColor,
		Description:     req.Description,
		Tags:            req.Tags,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidDestination):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		case errors.Is(err, service.ErrAllocationExhausted):
			h.logger.Error("short code allocation exhausted")
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "could not allocate a short code, try again later",
			})
		default:
			h.logger.Error("failed to create code", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to create code",
			})
		}
	}

	infraPrometheus.CodesCreated.Inc()
	return c.Status(fiber.StatusCreated).JSON(h.toResponse(code))
}

// ListCodes handles GET /api/codes
func (h *APIHandler) ListCodes(c *fiber.Ctx) error {
	ownerID := c.Get(ownerHeader)
	if ownerID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "missing " + ownerHeader + " header",
		})
	}

	limit := 20
	if parsed := c.QueryInt("limit"); parsed > 0 && parsed <= 100 {
		limit = parsed
	}
	offset := 0
	if parsed := c.QueryInt("offset"); parsed > 0 {
		offset = parsed
	}

	codes, err := h.codes.ListCodes(h.ctx(c), repository.ListFilter{
		OwnerID: ownerID,
		Type:    c.Query("type"),
		Status:  c.Query("status"),
		Search:  c.Query("search"),
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		h.logger.Error("failed to list codes", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list codes",
		})
	}

	response := make([]CodeResponse, len(codes))
	for i := range codes {
		response[i] = h.toResponse(&codes[i])
	}

	return c.JSON(fiber.Map{
		"codes":  response,
		"limit":  limit,
		"offset": offset,
		"count":  len(response),
	})
}

// GetCode handles GET /api/codes/:id
func (h *APIHandler) GetCode(c *fiber.Ctx) error {
	id, ownerID, ok := h.idAndOwner(c)
	if !ok {
		return nil
	}

	code, err := h.codes.GetCode(h.ctx(c), ownerID, id)
	if err != nil {
		return h.codeError(c, err, id)
	}
	return c.JSON(h.toResponse(code))
}

// UpdateCodeRequest represents the request body for mutating a code.
type UpdateCodeRequest struct {
	Name            *string    `json:"name,omitempty"`
	DestinationURL  *string    `json:"destination_url,omitempty"`
	Status          *string    `json:"status,omitempty"`
	Password        *string    `json:"password,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	MaxScans        *int64     `json:"max_scans,omitempty"`
	Size            *int       `json:"size,omitempty"`
	ErrorCorrection *string    `json:"error_correction,omitempty"`
	ForegroundColor *string    `json:"foreground_color,omitempty"`
	BackgroundColor *string    `json:"background_color,omitempty"`
	Description     *string    `json:"description,omitempty"`
	Tags            *string    `json:"tags,omitempty"`
}

// UpdateCode handles PATCH /api/codes/:id
func (h *APIHandler) UpdateCode(c *fiber.Ctx) error {
	id, ownerID, ok := h.idAndOwner(c)
	if !ok {
		return nil
	}

	var req UpdateCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	code, err := h.codes.UpdateCode(h.ctx(c), ownerID, id, service.UpdateCodeInput{
		Name:            req.Name,
		DestinationURL:  req.DestinationURL,
		Status:          req.Status,
		Password:        req.Password,
		ExpiresAt:       req.ExpiresAt,
		MaxScans:        req.MaxScans,
		Size:            req.Size,
		ErrorCorrection: req.ErrorCorrection,
		ForegroundColor: req.ForegroundColor,
		BackgroundColor: req.BackgroundColor,
		Description:     req.Description,
		Tags:            req.Tags,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidDestination) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return h.codeError(c, err, id)
	}
	return c.JSON(h.toResponse(code))
}

// DeleteCode handles DELETE /api/codes/:id
func (h *APIHandler) DeleteCode(c *fiber.Ctx) error {
	id, ownerID, ok := h.idAndOwner(c)
	if !ok {
		return nil
	}

	if err := h.codes.DeleteCode(h.ctx(c), ownerID, id); err != nil {
		return h.codeError(c, err, id)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetAnalytics handles GET /api/codes/:id/analytics?days=N
func (h *APIHandler) GetAnalytics(c *fiber.Ctx) error {
	id, ownerID, ok := h.idAndOwner(c)
	if !ok {
		return nil
	}

	var window repository.Window
	if days := c.QueryInt("days"); days > 0 {
		from := time.Now().AddDate(0, 0, -days)
		window.From = &from
	}

	summary, err := h.analytics.Summary(h.ctx(c), ownerID, id, window)
	if err != nil {
		return h.codeError(c, err, id)
	}
	return c.JSON(summary)
}

// GetImage handles GET /api/codes/:id/image.png. The image encodes the public
// short URL for dynamic codes and the raw destination for static ones.
func (h *APIHandler) GetImage(c *fiber.Ctx) error {
	id, ownerID, ok := h.idAndOwner(c)
	if !ok {
		return nil
	}

	code, err := h.codes.GetCode(h.ctx(c), ownerID, id)
	if err != nil {
		return h.codeError(c, err, id)
	}

	content := code.DestinationURL
	if code.IsDynamic() {
		content = fmt.Sprintf("%s/%s", h.baseURL, code.ShortCode)
	}

	png, err := qrimage.Render(content, qrimage.Options{
		Size:            code.Size,
		ErrorCorrection: code.ErrorCorrection,
		Foreground:      code.ForegroundColor,
		Background:      code.BackgroundColor,
	})
	if err != nil {
		h.logger.Error("failed to render qr image", zap.Error(err), zap.Uint("code_id", id))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to render image",
		})
	}

	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(png)
}

// idAndOwner extracts the code id and owner header. When ok is false a 400
// response has already been written.
func (h *APIHandler) idAndOwner(c *fiber.Ctx) (id uint, ownerID string, ok bool) {
	parsed, err := c.ParamsInt("id")
	if err != nil || parsed <= 0 {
		_ = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid code id",
		})
		return 0, "", false
	}

	ownerID = c.Get(ownerHeader)
	if ownerID == "" {
		_ = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "missing " + ownerHeader + " header",
		})
		return 0, "", false
	}
	return uint(parsed), ownerID, true
}

func (h *APIHandler) ctx(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx
}

func (h *APIHandler) codeError(c *fiber.Ctx, err error, id uint) error {
	switch {
	case errors.Is(err, repository.ErrCodeNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "code not found",
		})
	case errors.Is(err, service.ErrNotOwner):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "code belongs to another account",
		})
	default:
		h.logger.Error("code operation failed", zap.Error(err), zap.Uint("code_id", id))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}
}
