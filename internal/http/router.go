package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/anonymousgrouphp-collab/skillbun/internal/common/config"
	"github.com/anonymousgrouphp-collab/skillbun/internal/common/middleware"
	"github.com/anonymousgrouphp-collab/skillbun/internal/common/ratelimit"
	generatehttp "github.com/anonymousgrouphp-collab/skillbun/internal/features/generate/handler/http"
	humanproofhttp "github.com/anonymousgrouphp-collab/skillbun/internal/features/humanproof/handler/http"
	proofmw "github.com/anonymousgrouphp-collab/skillbun/internal/features/humanproof/middleware"
	proofsvc "github.com/anonymousgrouphp-collab/skillbun/internal/features/humanproof/service"
	"github.com/anonymousgrouphp-collab/skillbun/internal/platform/gemini"
	redisplatform "github.com/anonymousgrouphp-collab/skillbun/internal/platform/redis"
	"github.com/anonymousgrouphp-collab/skillbun/internal/platform/turnstile"
)

const janitorInterval = 2 * time.Minute

// Trusted proxy ranges honored when TRUST_PROXY is set: loopback plus RFC1918.
var trustedProxyRanges = []string{"127.0.0.1/8", "::1/128", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}

// NewRouter is the composition root: it resolves every optional protection
// from explicit config once, wires the admission tiers, and registers the
// gateway routes plus static serving. ctx bounds background work (janitor)
// and the startup Redis ping.
func NewRouter(ctx context.Context, cfg *config.Config) (*gin.Engine, error) {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	if cfg.Server.TrustProxy {
		if err := router.SetTrustedProxies(trustedProxyRanges); err != nil {
			return nil, err
		}
	} else {
		if err := router.SetTrustedProxies(nil); err != nil {
			return nil, err
		}
	}

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	if cfg.Server.SecurityHeaders {
		router.Use(middleware.SecurityHeaders())
	}
	router.Use(middleware.BlockSensitivePaths())

	if corsMW := buildCORS(cfg); corsMW != nil {
		router.Use(corsMW)
	}

	store, err := buildLimiterStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	general := ratelimit.New(store, "general", cfg.RateLimit.GeneralMax, cfg.RateWindow())
	upstreamTier := ratelimit.New(store, "gemini", cfg.RateLimit.APIMax, cfg.RateWindow())

	proofs := proofsvc.New(cfg.ProofSecret(), cfg.ProofTTL())
	captcha := turnstile.NewClient(cfg.Captcha.SecretKey, cfg.Captcha.VerifyURL, cfg.CaptchaTimeout())
	upstream := gemini.NewClient(cfg.Upstream.APIKey, cfg.Upstream.BaseURL, cfg.Upstream.Model)

	api := router.Group("/api", middleware.RateLimit(general, "Too many requests. Please slow down."))

	humanproofhttp.NewHandler(cfg.CaptchaEnabled(), cfg.Captcha.SiteKey, proofs, captcha).
		RegisterRoutes(api)

	generatehttp.NewHandler(upstream, cfg.UpstreamTimeout()).
		RegisterRoutes(api,
			middleware.RateLimit(upstreamTier, "Too many API requests. Please wait a moment."),
			proofmw.RequireHumanProof(cfg.CaptchaEnabled(), proofs),
		)

	registerStatic(router, cfg.Server.StaticDir, cfg.Debug)

	return router, nil
}

func buildCORS(cfg *config.Config) gin.HandlerFunc {
	if cfg.Debug {
		// Local development: allow all origins for LAN/mobile testing.
		return cors.Default()
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		return nil
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.AllowedOrigins
	corsConfig.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	corsConfig.AllowHeaders = []string{"Content-Type", proofsvc.Header}
	corsConfig.MaxAge = 24 * time.Hour
	return cors.New(corsConfig)
}

func buildLimiterStore(ctx context.Context, cfg *config.Config) (ratelimit.Store, error) {
	if cfg.RateLimit.RedisAddr != "" {
		client, err := redisplatform.Open(ctx, cfg.RateLimit.RedisAddr, cfg.RateLimit.RedisPassword, cfg.RateLimit.RedisDB)
		if err != nil {
			return nil, err
		}
		return ratelimit.NewRedisStore(client), nil
	}

	store := ratelimit.NewMemoryStore()
	store.StartJanitor(ctx, janitorInterval)
	return store, nil
}
