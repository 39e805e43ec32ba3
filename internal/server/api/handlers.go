package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"quickshare/internal/server/service"
	"quickshare/internal/server/share"
	"quickshare/internal/server/social"

	"github.com/labstack/echo/v4"
)

// Handler contains the HTTP handlers for the QuickShare API.
type Handler struct {
	svc      *service.ShareService
	resolver *social.Resolver
	maxSize  int64
}

// NewHandler creates a new handler with the given dependencies.
func NewHandler(svc *service.ShareService, resolver *social.Resolver, maxSize int64) *Handler {
	return &Handler{svc: svc, resolver: resolver, maxSize: maxSize}
}

// HandleUpload handles POST /upload.
// Accepts a multipart form with a "file" field, optional "password" and
// "ttl_hours" fields.
func (h *Handler) HandleUpload(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "file is required (use form field 'file')",
		})
	}

	// Oversized uploads are rejected here, before the core ever sees them.
	if fileHeader.Size > h.maxSize {
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{
			"error": "file_too_large",
		})
	}

	src, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "failed to read uploaded file",
		})
	}
	defer src.Close()

	var ttl time.Duration
	if v := c.FormValue("ttl_hours"); v != "" {
		hours, err := strconv.ParseFloat(v, 64)
		if err != nil || hours <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "invalid_ttl",
			})
		}
		ttl = time.Duration(hours * float64(time.Hour))
	}

	result, err := h.svc.CreateShare(
		c.Request().Context(),
		fileHeader.Filename,
		src,
		fileHeader.Size,
		c.FormValue("password"),
		ttl,
	)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusCreated, result)
}

// HandleDownload handles GET /download/:code.
// Serves the file as an attachment. Accepts an optional "password" query param.
func (h *Handler) HandleDownload(c echo.Context) error {
	code := c.Param("code")
	password := c.QueryParam("password")

	filePath, filename, err := h.svc.Fetch(c.Request().Context(), code, password)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.Attachment(filePath, filename)
}

// HandleInfo handles GET /info/:code.
// Returns share metadata without serving the file.
func (h *Handler) HandleInfo(c echo.Context) error {
	info, err := h.svc.Inspect(c.Param("code"))
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, info)
}

// HandlePurge handles DELETE /share/:code/:token.
// Removes a share early using the purge token handed out at upload time.
func (h *Handler) HandlePurge(c echo.Context) error {
	if err := h.svc.Purge(c.Param("code"), c.Param("token")); err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "share deleted successfully",
	})
}

// HandleSocialDownload handles POST /api/social-download.
// Stateless pass-through to the configured third-party resolution API.
func (h *Handler) HandleSocialDownload(c echo.Context) error {
	data, status, err := h.resolver.Resolve(c.Request().Context(), c.Request().Body)
	if err != nil {
		if errors.Is(err, social.ErrUnconfigured) {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{
				"error": "social downloads are not enabled",
			})
		}
		return c.JSON(http.StatusBadGateway, echo.Map{
			"error": "resolver request failed",
		})
	}

	return c.JSONBlob(status, data)
}

// HandleHealth handles GET /health.
func (h *Handler) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"status": "healthy",
	})
}

// HandleStats handles GET /api/stats.
// Returns aggregate server statistics.
func (h *Handler) HandleStats(c echo.Context) error {
	stats := h.svc.Stats()

	return c.JSON(http.StatusOK, echo.Map{
		"active_shares":      stats.ActiveShares,
		"total_downloads":    stats.TotalDownloads,
		"storage_used_bytes": stats.BytesStored,
		"storage_used_human": humanizeBytes(stats.BytesStored),
	})
}

// mapServiceError translates core and service errors into HTTP responses.
// Every denial carries a machine-checkable reason, so a client can decide
// whether to prompt for a password or show "invalid code".
func mapServiceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, share.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found"})
	case errors.Is(err, share.ErrPasswordRequired):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "password_required"})
	case errors.Is(err, share.ErrWrongPassword):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "wrong_password"})
	case errors.Is(err, share.ErrCapacityExhausted):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "capacity_exhausted"})
	case errors.Is(err, service.ErrFileTooLarge):
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": "file_too_large"})
	case errors.Is(err, service.ErrInvalidTTL):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_ttl"})
	case errors.Is(err, service.ErrInvalidToken):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "invalid_token"})
	case errors.Is(err, service.ErrStorageFailure):
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "storage_failure"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
}

// humanizeBytes formats a byte count into a human-readable string.
func humanizeBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
