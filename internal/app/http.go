package app

import (
	"context"
	"net/http"

	"storefront/internal/auth/credentials"
	"storefront/internal/auth/handler"
	"storefront/internal/auth/provider"
	"storefront/internal/auth/provider/google"
	"storefront/internal/auth/provider/keycloak"
	"storefront/internal/auth/resolver"
	"storefront/internal/authstate"
	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/config"
	"storefront/internal/logger"
	"storefront/internal/middleware"
	"storefront/internal/query"
	"storefront/internal/review"
	"storefront/internal/session"
	"storefront/internal/shop"

	"github.com/gin-gonic/gin"
)

func setupHTTP(
	ctx context.Context,
	cfg config.Config,
	done <-chan struct{},
) (*gin.Engine, func() error, error) {

	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	// ----------------------------
	// Dependencies
	// ----------------------------

	sessionStore := session.NewRedisStore(infra.Redis.Client)
	sessionUsers := session.NewUserSource(sessionStore, cfg.SessionIdleTTL)
	hub := authstate.NewHub(
		sessionUsers,
		authstate.NewRedisBroker(infra.Redis.Client),
	)

	registry, err := setupProviders(ctx, cfg)
	if err != nil {
		_ = infra.Close()
		return nil, nil, err
	}

	authHandler := handler.NewHandler(
		registry,
		sessionStore,
		resolver.NewDBResolver(infra.DB),
		credentials.NewService(infra.DB),
		hub,
		handler.Options{
			Cookie: session.CookieOptions{
				Secure:   cfg.CookieSecure,
				SameSite: http.SameSiteLaxMode,
			},
			SessionTTL: cfg.SessionTTL,
			IdleTTL:    cfg.SessionIdleTTL,
			Done:       done,
		},
	)

	authMiddleware := middleware.NewAuthMiddleware(
		hub,
		cfg.AuthResolveTimeout,
		middleware.WithSessionTouch(sessionUsers),
	)

	products := catalog.NewPostgresStore(infra.DB)
	shopHandler := shop.NewHandler(
		products,
		cart.NewService(cart.NewRedisStore(infra.Redis.Client), products),
		review.NewService(review.NewPostgresStore(infra.DB)),
		query.New(query.NewRedisBackend(infra.Redis.Client), cfg.ProductCacheTTL),
		shop.Options{SecureCookies: cfg.CookieSecure},
	)

	// ----------------------------
	// Router
	// ----------------------------

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger())

	router.GET("/health", healthHandler(map[string]checkFunc{
		"postgres": infra.DB.Check,
		"redis":    infra.Redis.Check,
	}))

	authHandler.RegisterRoutes(router, authMiddleware)
	shopHandler.RegisterRoutes(router, authMiddleware)

	for _, route := range router.Routes() {
		logger.Debug("route registered", map[string]any{
			"method": route.Method,
			"path":   route.Path,
		})
	}

	return router, infra.Close, nil
}

// setupProviders registers the OAuth providers that are fully configured.
func setupProviders(ctx context.Context, cfg config.Config) (*provider.Registry, error) {
	var providers []provider.OAuthProvider

	if cfg.GoogleEnabled() {
		p, err := google.New(
			ctx,
			cfg.GoogleClientID,
			cfg.GoogleClientSecret,
			cfg.GoogleRedirectURL,
		)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}

	if cfg.KeycloakEnabled() {
		p, err := keycloak.New(
			ctx,
			cfg.KeycloakIssuer,
			cfg.KeycloakClientID,
			cfg.KeycloakRedirectURL,
			cfg.KeycloakPublicBaseURL,
		)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}

	registry := provider.NewRegistry(providers...)
	logger.Info("oauth providers configured", map[string]any{
		"providers": registry.Names(),
	})

	return registry, nil
}
