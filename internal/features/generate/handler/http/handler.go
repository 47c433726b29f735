package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/anonymousgrouphp-collab/skillbun/internal/common/errors"
	commonmw "github.com/anonymousgrouphp-collab/skillbun/internal/common/middleware"
	"github.com/anonymousgrouphp-collab/skillbun/internal/features/generate/models"
	"github.com/anonymousgrouphp-collab/skillbun/internal/features/generate/service"
	"github.com/anonymousgrouphp-collab/skillbun/internal/platform/gemini"
)

// JSON bodies above this size are refused outright; the per-fragment bounds
// make legitimate payloads far smaller.
const maxBodyBytes = 100 << 10

type Handler struct {
	upstream        *gemini.Client
	upstreamTimeout time.Duration
}

func NewHandler(upstream *gemini.Client, upstreamTimeout time.Duration) *Handler {
	return &Handler{upstream: upstream, upstreamTimeout: upstreamTimeout}
}

func (h *Handler) RegisterRoutes(router *gin.RouterGroup, gates ...gin.HandlerFunc) {
	handlers := append(append([]gin.HandlerFunc{}, gates...), h.Generate)
	router.POST("/gemini", handlers...)
}

// Generate validates the conversation payload and forwards it upstream under
// a deadline. The success body passes through opaquely; every failure is
// reduced to the fixed status table and a generic message.
func (h *Handler) Generate(c *gin.Context) {
	if !h.upstream.Configured() {
		commonmw.AbortWithError(c, apperrors.
			New(apperrors.CodeConfig, "API key not configured. Please contact the team.").
			WithReason("missing_upstream_credential"))
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	var req models.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		commonmw.AbortWithError(c, apperrors.
			Wrap(err, apperrors.CodeValidation, "Invalid request format.").
			WithReason("malformed_body"))
		return
	}

	if appErr := service.ValidatePayload(&req); appErr != nil {
		commonmw.AbortWithError(c, appErr)
		return
	}

	// Re-serialize rather than forwarding raw bytes: only the validated,
	// typed fields ever reach the upstream service.
	body, err := json.Marshal(req)
	if err != nil {
		commonmw.AbortWithError(c, apperrors.Wrap(err, apperrors.CodeInternal, "Internal server error."))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.upstreamTimeout)
	defer cancel()

	data, err := h.upstream.Generate(ctx, body)
	if err != nil {
		commonmw.AbortWithError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", data)
}
