package api

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	iauth "github.com/cultach/cultach-api/internal/auth"
	"github.com/cultach/cultach-api/internal/auth/social"
	"github.com/cultach/cultach-api/internal/handlers"
	"github.com/cultach/cultach-api/internal/middleware"
	"github.com/cultach/cultach-api/internal/services"
	"github.com/cultach/cultach-api/pkg/storage"
)

// IdentityProvider is the OAuth collaborator consumed by the social login
// routes. *social.GoogleProvider satisfies it.
type IdentityProvider interface {
	AuthURL(state, nonce string) string
	Exchange(ctx context.Context, code, expectedNonce string) (*social.Identity, error)
}

// Dependencies bundles the collaborators the router mounts routes for.
// Social, Uploads and RateStore are optional; their routes or middleware are
// skipped when absent.
type Dependencies struct {
	DB         *gorm.DB
	Tokens     *iauth.TokenService
	Accounts   *services.AccountService
	Events     *services.EventService
	EventCache *services.EventCacheService
	Venues     *services.VenueService
	ChatRooms  *services.ChatRoomService
	Social     *services.SocialService
	Provider   IdentityProvider
	Uploads    storage.ObjectStore
	RateStore  middleware.RateStore
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if deps.Tokens == nil {
		return nil, fmt.Errorf("token service must be provided")
	}
	if deps.Accounts == nil {
		return nil, fmt.Errorf("account service must be provided")
	}
	if deps.Events == nil || deps.EventCache == nil {
		return nil, fmt.Errorf("event services must be provided")
	}
	if deps.Venues == nil {
		return nil, fmt.Errorf("venue service must be provided")
	}
	if deps.ChatRooms == nil {
		return nil, fmt.Errorf("chat room service must be provided")
	}

	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	// Basic rate limiting: 100 requests/minute per IP+path
	r.Use(middleware.RateLimit(deps.RateStore, 100, time.Minute))

	r.GET("/health", handlers.Health())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authHandler := handlers.NewAuthHandler(deps.Accounts)

	// Public auth routes
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/token", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.GET("/verify-email/:token", authHandler.VerifyEmail)
		auth.GET("/verify-token/:token", authHandler.VerifyActionToken)
		auth.POST("/resend-verification", authHandler.ResendVerification)
		auth.POST("/password-reset/request", authHandler.RequestPasswordReset)
		auth.POST("/password-reset/confirm", authHandler.ConfirmPasswordReset)
	}

	if deps.Provider != nil && deps.Social != nil {
		socialHandler := handlers.NewSocialHandler(deps.Provider, deps.Social)
		google := r.Group("/api/social/google")
		{
			google.GET("/login", socialHandler.GoogleLogin)
			google.GET("/callback", socialHandler.GoogleCallback)
		}
	}

	requireAuth := middleware.Auth(deps.Tokens)
	withUser := middleware.LoadUser(deps.DB)

	r.GET("/api/auth/me", requireAuth, authHandler.Me)

	eventHandler := handlers.NewEventHandler(deps.Events, deps.EventCache)
	events := r.Group("/api/events")
	{
		events.GET("", eventHandler.List)
		events.GET("/search", eventHandler.Search)
		events.GET("/:id", eventHandler.Get)
		events.GET("/:id/comments", eventHandler.ListComments)
		events.GET("/comments/:commentID", eventHandler.GetComment)

		events.GET("/favorites", requireAuth, withUser, eventHandler.Favorites)
		events.POST("", requireAuth, withUser, eventHandler.Create)
		events.PATCH("/:id", requireAuth, withUser, eventHandler.Update)
		events.DELETE("/:id", requireAuth, withUser, eventHandler.Delete)
		events.POST("/:id/like", requireAuth, withUser, eventHandler.Like)
		events.DELETE("/:id/like", requireAuth, withUser, eventHandler.Unlike)
		events.POST("/:id/comments", requireAuth, withUser, eventHandler.AddComment)
		events.DELETE("/comments/:commentID", requireAuth, withUser, eventHandler.DeleteComment)
	}

	venueHandler := handlers.NewVenueHandler(deps.Venues)
	venues := r.Group("/api/venues")
	{
		venues.GET("", venueHandler.List)
		venues.GET("/:id", venueHandler.Get)
		venues.GET("/:id/comments", venueHandler.ListComments)
		venues.GET("/comments/:commentID", venueHandler.GetComment)

		venues.POST("", requireAuth, withUser, venueHandler.Create)
		venues.POST("/:id/like", requireAuth, withUser, venueHandler.Like)
		venues.DELETE("/:id/like", requireAuth, withUser, venueHandler.Unlike)
		venues.POST("/:id/comments", requireAuth, withUser, venueHandler.AddComment)
		venues.DELETE("/comments/:commentID", requireAuth, withUser, venueHandler.DeleteComment)
	}

	chatHandler := handlers.NewChatRoomHandler(deps.ChatRooms)
	rooms := r.Group("/api/chat-rooms", requireAuth, withUser)
	{
		rooms.GET("", chatHandler.List)
		rooms.POST("", chatHandler.Create)
	}

	if deps.Uploads != nil {
		uploadHandler := handlers.NewUploadHandler(deps.Uploads)
		r.POST("/api/uploads", requireAuth, uploadHandler.Upload)
	}

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
