package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/duskwallet/duskwallet-api/internal/analysis"
	"github.com/duskwallet/duskwallet-api/internal/config"
	"github.com/duskwallet/duskwallet-api/internal/db"
	"github.com/duskwallet/duskwallet-api/internal/http/api/front"
	"github.com/duskwallet/duskwallet-api/internal/llm"
	"github.com/duskwallet/duskwallet-api/internal/quota"
	"github.com/duskwallet/duskwallet-api/internal/ratelimit"
)

const shutdownTimeout = 10 * time.Second

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	return db.Migrate(conn.WithContext(ctx))
}

// Server is a fully wired API server.
type Server struct {
	Engine  *gin.Engine
	Config  config.ServerConfig
	limiter *ratelimit.Manager
	closeDB func() error
}

// Close releases the rate limiter and database handles.
func (s *Server) Close() error {
	var errs []error
	if s.limiter != nil {
		errs = append(errs, s.limiter.Close())
	}
	if s.closeDB != nil {
		errs = append(errs, s.closeDB())
	}
	return errors.Join(errs...)
}

// Build loads every config section and wires the database, quota gate,
// analysis service, rate limiter and routes.
func Build(configPath string, flagPort int) (*Server, error) {
	serverCfg, err := config.LoadServerConfig(configPath, flagPort)
	if err != nil {
		return nil, err
	}
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return nil, err
	}
	jwtCfg, err := config.LoadJWTConfig(configPath)
	if err != nil {
		return nil, err
	}
	aiCfg, err := config.LoadAIConfig(configPath)
	if err != nil {
		return nil, err
	}
	rateCfg, err := config.LoadRateLimitConfig(configPath)
	if err != nil {
		return nil, err
	}

	if target, errDescribe := describeDSN(dsn); errDescribe == nil {
		log.Infof("connecting to %s", target)
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return nil, err
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("db handle: %w", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		_ = sqlDB.Close()
		return nil, errMigrate
	}

	generator, errGenerator := llm.New(aiCfg)
	if errGenerator != nil {
		log.WithError(errGenerator).Warn("ai generator unavailable, analysis requests will fail")
		generator = llm.Unavailable(errGenerator)
	}
	gate := quota.NewGate(conn)
	service := analysis.NewService(conn, gate, generator, aiCfg.Timeout)
	limiter := ratelimit.NewManager(ratelimit.StaticSettings(rateCfg), time.Now, nil)

	if serverCfg.Debug {
		gin.SetMode(gin.DebugMode)
		log.SetLevel(log.DebugLevel)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	if errProxies := engine.SetTrustedProxies(serverCfg.TrustedProxies); errProxies != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("trusted proxies: %w", errProxies)
	}
	environment := "production"
	if serverCfg.Debug {
		environment = "development"
	}
	front.RegisterFrontRoutes(engine, front.Deps{
		DB:          conn,
		JWT:         jwtCfg,
		Analysis:    service,
		Gate:        gate,
		Limiter:     limiter,
		Debug:       serverCfg.Debug,
		Environment: environment,
	})

	return &Server{
		Engine:  engine,
		Config:  serverCfg,
		limiter: limiter,
		closeDB: sqlDB.Close,
	}, nil
}

// RunServer builds the API and serves it until ctx is cancelled.
func RunServer(ctx context.Context, cfg config.AppConfig, flagPort int) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	if _, errEnsure := EnsureConfig(configPath, flagPort); errEnsure != nil {
		return errEnsure
	}

	server, err := Build(configPath, flagPort)
	if err != nil {
		return err
	}
	defer func() {
		if errClose := server.Close(); errClose != nil {
			log.WithError(errClose).Error("server close error")
		}
	}()

	addr := fmt.Sprintf(":%d", server.Config.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if errShutdown := srv.Shutdown(shutdownCtx); errShutdown != nil {
			log.Errorf("server shutdown error: %v", errShutdown)
		}
	}()

	log.Infof("starting api server on %s with config=%s", addr, configPath)
	if errListen := srv.ListenAndServe(); errListen != nil && !errors.Is(errListen, http.ErrServerClosed) {
		return errListen
	}
	log.Info("api server stopped")
	return nil
}
