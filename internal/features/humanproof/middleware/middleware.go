package middleware

import (
	"github.com/gin-gonic/gin"

	apperrors "github.com/anonymousgrouphp-collab/skillbun/internal/common/errors"
	commonmw "github.com/anonymousgrouphp-collab/skillbun/internal/common/middleware"
	"github.com/anonymousgrouphp-collab/skillbun/internal/features/humanproof/service"
)

// RequireHumanProof gates a route behind a valid proof token carried in the
// proof header. When the challenge mechanism is disabled the gate is a no-op:
// there is no verification step the caller could have passed.
func RequireHumanProof(enabled bool, proofs *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			c.Next()
			return
		}

		token := c.GetHeader(service.Header)
		if !proofs.Verify(token, proofs.HashAddr(c.ClientIP())) {
			commonmw.AbortWithError(c, apperrors.
				New(apperrors.CodeAuth, "Human verification required. Please verify and try again.").
				WithReason("invalid_proof_token"))
			return
		}
		c.Next()
	}
}
