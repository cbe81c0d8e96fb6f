package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gin-gonic/gin"

	"github.com/cultach/cultach-api/internal/api"
	"github.com/cultach/cultach-api/internal/app"
	"github.com/cultach/cultach-api/internal/app/maintenance"
	iauth "github.com/cultach/cultach-api/internal/auth"
	"github.com/cultach/cultach-api/internal/auth/social"
	"github.com/cultach/cultach-api/internal/cache"
	"github.com/cultach/cultach-api/internal/database"
	"github.com/cultach/cultach-api/internal/middleware"
	"github.com/cultach/cultach-api/internal/services"
	"github.com/cultach/cultach-api/pkg/geo"
	"github.com/cultach/cultach-api/pkg/logger"
	"github.com/cultach/cultach-api/pkg/mail"
	"github.com/cultach/cultach-api/pkg/storage"
)

// runtimeStack bundles long-lived collaborators used by the HTTP server.
type runtimeStack struct {
	DB      *gorm.DB
	Redis   cache.Store
	Cleaner *maintenance.Cleaner
	Router  *gin.Engine
}

// bootstrapRuntime initialises the database, cache, services, and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	dbStore := cache.NewDatabaseStore(stack.DB)

	var cacheStore cache.Store = dbStore
	if cfg.Cache.Redis.Enabled {
		if stack.Redis, err = cache.NewRedisClient(cfg.Cache.Redis.ClientConfig()); err != nil {
			log.Warn("redis unavailable; falling back to database-backed cache", zap.Error(err))
		} else {
			cacheStore = stack.Redis
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}

	tokens, err := iauth.NewTokenService(iauth.TokenConfig{
		Secret:          cfg.Auth.JWT.Secret,
		Issuer:          cfg.Auth.JWT.Issuer,
		AccessTokenTTL:  cfg.Auth.JWT.AccessTTL,
		RefreshTokenTTL: cfg.Auth.JWT.RefreshTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise token service: %w", err)
	}

	actionTokens, err := iauth.NewActionTokenService(cfg.Auth.Action.Secret, nil)
	if err != nil {
		return nil, fmt.Errorf("initialise action token service: %w", err)
	}

	var mailer mail.Mailer
	if cfg.Email.SMTP.Enabled {
		mailer, err = mail.NewSMTPMailer(cfg.Email.SMTP.Settings())
		if err != nil {
			return nil, fmt.Errorf("initialise mailer: %w", err)
		}
	} else {
		mailer = mail.NewLogMailer()
		log.Warn("smtp disabled; outbound email is written to the log")
	}

	accounts, err := services.NewAccountService(stack.DB, tokens, actionTokens, mailer,
		services.WithAccountBaseURL(cfg.Server.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("initialise account service: %w", err)
	}

	events, err := services.NewEventService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise event service: %w", err)
	}

	eventCache, err := services.NewEventCacheService(cacheStore, events)
	if err != nil {
		return nil, fmt.Errorf("initialise event cache: %w", err)
	}

	venueOpts := []services.VenueOption{}
	if cfg.Geo.Enabled {
		geocoder, geoErr := geo.NewNominatimClient(cfg.Geo.UserAgent, nominatimOptions(cfg)...)
		if geoErr != nil {
			return nil, fmt.Errorf("initialise geocoder: %w", geoErr)
		}
		venueOpts = append(venueOpts,
			services.WithVenueGeocoder(geocoder),
			services.WithVenueCountry(cfg.Geo.Country))
	}

	venues, err := services.NewVenueService(stack.DB, venueOpts...)
	if err != nil {
		return nil, fmt.Errorf("initialise venue service: %w", err)
	}

	rooms, err := services.NewChatRoomService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise chat room service: %w", err)
	}

	socialSvc, err := services.NewSocialService(stack.DB, tokens)
	if err != nil {
		return nil, fmt.Errorf("initialise social service: %w", err)
	}

	var provider api.IdentityProvider
	if cfg.Social.Google.Enabled {
		google, providerErr := social.NewGoogleProvider(ctx, cfg.Social.Google.ProviderConfig())
		if providerErr != nil {
			return nil, fmt.Errorf("initialise google provider: %w", providerErr)
		}
		provider = google
	}

	var objectStore storage.ObjectStore
	if cfg.Storage.Enabled {
		s3Store, storeErr := storage.NewS3Store(ctx, cfg.Storage.Settings())
		if storeErr != nil {
			return nil, fmt.Errorf("initialise object store: %w", storeErr)
		}
		objectStore = s3Store
	}

	if cfg.Maintenance.Enabled {
		stack.Cleaner, err = maintenance.NewCleaner(stack.DB,
			maintenance.WithUnverifiedRetentionDays(cfg.Maintenance.UnverifiedRetentionDays))
		if err != nil {
			return nil, fmt.Errorf("initialise maintenance: %w", err)
		}
		if err := stack.Cleaner.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}
	}

	var rateStore middleware.RateStore
	switch {
	case stack.Redis != nil:
		rateStore = middleware.NewCacheRateStore(stack.Redis)
	default:
		rateStore = middleware.NewCacheRateStore(dbStore)
	}

	stack.Router, err = api.NewRouter(api.Dependencies{
		DB:         stack.DB,
		Tokens:     tokens,
		Accounts:   accounts,
		Events:     events,
		EventCache: eventCache,
		Venues:     venues,
		ChatRooms:  rooms,
		Social:     socialSvc,
		Provider:   provider,
		Uploads:    objectStore,
		RateStore:  rateStore,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		if stopCtx != nil {
			ctx = stopCtx
		}
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	if rc, ok := s.Redis.(*cache.RedisClient); ok && rc != nil {
		if err := rc.Close(); err != nil {
			log.Warn("redis shutdown", zap.Error(err))
		}
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}

func nominatimOptions(cfg *app.Config) []geo.Option {
	opts := []geo.Option{}
	if base := strings.TrimSpace(cfg.Geo.BaseURL); base != "" {
		opts = append(opts, geo.WithBaseURL(base))
	}
	return opts
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.ServiceConfig()
	dbCfg.Driver = strings.ToLower(strings.TrimSpace(dbCfg.Driver))
	if dbCfg.Driver == "" {
		dbCfg.Driver = "sqlite"
	}

	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	logger.WithModule("database").Info("database connected", zap.String("driver", dbCfg.Driver))

	return db, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
