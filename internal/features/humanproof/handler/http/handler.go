package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/anonymousgrouphp-collab/skillbun/internal/common/errors"
	commonmw "github.com/anonymousgrouphp-collab/skillbun/internal/common/middleware"
	"github.com/anonymousgrouphp-collab/skillbun/internal/features/humanproof/models"
	"github.com/anonymousgrouphp-collab/skillbun/internal/features/humanproof/service"
	"github.com/anonymousgrouphp-collab/skillbun/internal/platform/turnstile"
)

const captchaProvider = "turnstile"

type Handler struct {
	captchaEnabled bool
	siteKey        string
	proofs         *service.Service
	captcha        *turnstile.Client
}

func NewHandler(captchaEnabled bool, siteKey string, proofs *service.Service, captcha *turnstile.Client) *Handler {
	return &Handler{
		captchaEnabled: captchaEnabled,
		siteKey:        siteKey,
		proofs:         proofs,
		captcha:        captcha,
	}
}

func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/config", h.Config)
	router.POST("/human/verify", h.Verify)
}

// Config is public configuration discovery for the frontend. The site key is
// only disclosed while the challenge mechanism is fully enabled; the secret
// key never leaves the process.
func (h *Handler) Config(c *gin.Context) {
	siteKey := ""
	if h.captchaEnabled {
		siteKey = h.siteKey
	}
	c.JSON(http.StatusOK, models.ConfigResponse{
		Captcha: models.CaptchaConfig{
			Provider: captchaProvider,
			Enabled:  h.captchaEnabled,
			SiteKey:  siteKey,
		},
	})
}

// Verify runs the challenge step (when enabled) and issues a proof token
// bound to the caller's hashed address.
func (h *Handler) Verify(c *gin.Context) {
	ip := c.ClientIP()

	if h.captchaEnabled {
		var req models.VerifyRequest
		// An unreadable or absent body just leaves the token empty, which
		// fails the length bounds below without a network round trip.
		_ = c.ShouldBindJSON(&req)

		if !h.captcha.Verify(c.Request.Context(), req.Token, ip) {
			commonmw.AbortWithError(c, apperrors.
				New(apperrors.CodeAuth, "Captcha verification failed. Please try again.").
				WithReason("challenge_failed"))
			return
		}
	}

	token, expiresAt := h.proofs.Issue(h.proofs.HashAddr(ip))
	c.JSON(http.StatusOK, models.VerifyResponse{
		CaptchaEnabled: h.captchaEnabled,
		HumanToken:     token,
		ExpiresAt:      expiresAt,
	})
}
