package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kai426/Dignus-sub001/domain"
	"github.com/kai426/Dignus-sub001/internal/config"
	httpx "github.com/kai426/Dignus-sub001/internal/http"
	"github.com/kai426/Dignus-sub001/internal/http/handlers"
	"github.com/kai426/Dignus-sub001/internal/http/middleware"
	"github.com/kai426/Dignus-sub001/internal/infrastructure/ai"
	"github.com/kai426/Dignus-sub001/internal/infrastructure/audit"
	"github.com/kai426/Dignus-sub001/internal/infrastructure/auth"
	"github.com/kai426/Dignus-sub001/internal/infrastructure/database"
	"github.com/kai426/Dignus-sub001/internal/infrastructure/notifications"
	"github.com/kai426/Dignus-sub001/internal/infrastructure/repositories"
	"github.com/kai426/Dignus-sub001/internal/infrastructure/storage"
	"github.com/kai426/Dignus-sub001/internal/metrics"
	"github.com/kai426/Dignus-sub001/internal/services"
)

// Infrastructure holds the external systems the container is built on
type Infrastructure struct {
	DB       *gorm.DB
	Redis    *redis.Client
	Enforcer *casbin.Enforcer
	Storage  domain.VideoStorage
	AIAgent  domain.AIAgent
	Notifier domain.NotificationService
}

// Container holds all dependencies
type Container struct {
	// Config
	Config *config.Config
	Logger *zap.Logger
	Clock  clockwork.Clock

	Infrastructure
	Metrics *metrics.Metrics

	// Repositories
	CandidateRepo domain.CandidateRepository
	TokenRepo     domain.AuthTokenRepository
	RefreshRepo   domain.RefreshTokenRepository
	AdminRepo     domain.AdminRepository
	SessionRepo   domain.SessionRepository
	TestRepo      domain.TestInstanceRepository
	GroupRepo     domain.QuestionGroupRepository
	TemplateRepo  domain.QuestionTemplateRepository

	// Services
	TokenSvc         domain.TokenService
	CandidateAuthSvc domain.CandidateAuthService
	AdminAuthSvc     domain.AdminAuthService
	TestSvc          domain.TestService
	GroupSvc         domain.QuestionGroupService
	BankSvc          domain.QuestionBankService
	PolicySvc        domain.PolicyService

	Router *gin.Engine
}

// NewContainer connects to postgres, redis, the object store and the mail and SMS
// providers, then assembles every service on top of them
func NewContainer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	db, err := database.Open(cfg.DSN, database.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
	}, gormLogLevel(cfg.DBLogLevel))
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	rdb := database.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := rdb.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	enforcer, err := auth.NewCasbinEnforcer(db, cfg.CasbinModelPath)
	if err != nil {
		return nil, err
	}

	videoStorage, err := newVideoStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	notifier := notifications.NewNotificationService(
		notifications.NewSMTPSender(notifications.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
			Timeout:  cfg.SMTPTimeout,
		}, logger),
		notifications.NewTwilioSender(cfg.TwilioSID, cfg.TwilioToken, cfg.TwilioFrom, logger),
	)

	agent := ai.NewAgentClient(ai.Config{
		BaseURL:     cfg.AIBaseURL,
		APIKey:      cfg.AIAPIKey,
		CallbackURL: cfg.AICallbackURL,
		Timeout:     cfg.AITimeout,
	}, logger)

	return Assemble(cfg, logger, clockwork.NewRealClock(), Infrastructure{
		DB:       db,
		Redis:    rdb.Client,
		Enforcer: enforcer,
		Storage:  videoStorage,
		AIAgent:  agent,
		Notifier: notifier,
	}), nil
}

func newVideoStorage(ctx context.Context, cfg *config.Config) (domain.VideoStorage, error) {
	switch cfg.StorageDriver {
	case "local":
		return storage.NewLocalVideoStorage(cfg.StorageLocalRoot, cfg.StorageBaseURL), nil
	case "", "minio":
		return storage.NewMinioVideoStorage(ctx, storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			PublicURL: cfg.StorageBaseURL,
		})
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// Assemble wires repositories, services, handlers and the router over infra
func Assemble(cfg *config.Config, logger *zap.Logger, clock clockwork.Clock, infra Infrastructure) *Container {
	c := &Container{
		Config:         cfg,
		Logger:         logger,
		Clock:          clock,
		Infrastructure: infra,
		Metrics:        metrics.New(),
	}
	c.initRepositories()
	c.initServices()
	c.initRouter()
	return c
}

func (c *Container) initRepositories() {
	c.CandidateRepo = repositories.NewCandidateRepository(c.DB)
	c.TokenRepo = repositories.NewAuthTokenRepository(c.DB)
	c.RefreshRepo = repositories.NewRefreshTokenRepository(c.Redis)
	c.AdminRepo = repositories.NewAdminRepository(c.DB)
	c.SessionRepo = repositories.NewSessionRepository(c.Redis, c.Config.AccessTTL, c.Clock)
	c.TestRepo = repositories.NewTestInstanceRepository(c.DB)
	c.GroupRepo = repositories.NewQuestionGroupRepository(c.DB)
	c.TemplateRepo = repositories.NewQuestionTemplateRepository(c.DB)
}

func (c *Container) initServices() {
	auditLogger := audit.NewZapAuditLogger(c.Logger)
	c.TokenSvc = auth.NewJWTService(c.Config.JWTSecret, c.Config.JWTIssuer, c.Config.AccessTTL, c.Clock)

	authCfg := services.DefaultCandidateAuthConfig()
	if c.Config.CodeTTL > 0 {
		authCfg.CodeTTL = c.Config.CodeTTL
	}
	if c.Config.MaxFailedLogins > 0 {
		authCfg.MaxFailedAttempts = c.Config.MaxFailedLogins
	}
	if c.Config.LockoutDuration > 0 {
		authCfg.LockoutDuration = c.Config.LockoutDuration
	}
	if c.Config.RefreshTTL > 0 {
		authCfg.RefreshTokenTTL = c.Config.RefreshTTL
	}
	c.CandidateAuthSvc = services.NewCandidateAuthService(
		c.CandidateRepo,
		c.TokenRepo,
		c.RefreshRepo,
		auth.NewCodeGenerator(c.Config.CodeLength),
		c.TokenSvc,
		c.Notifier,
		database.NewRedisLocker(c.Redis, "lock:"),
		auditLogger,
		c.Metrics,
		c.Clock,
		c.Logger,
		authCfg,
	)

	c.AdminAuthSvc = services.NewAdminAuthService(
		c.AdminRepo,
		c.SessionRepo,
		auth.NewPasswordService(0),
		c.TokenSvc,
		auditLogger,
		c.Clock,
		c.Logger,
	)

	testCfg := services.DefaultTestServiceConfig()
	if len(c.Config.DurationLimits) > 0 {
		testCfg.DurationLimits = c.Config.DurationLimits
	}
	if c.Config.MaxVideoSize > 0 {
		testCfg.MaxVideoSize = c.Config.MaxVideoSize
	}
	if c.Config.AITimeout > 0 {
		testCfg.AIDispatchTimeout = c.Config.AITimeout
	}
	c.TestSvc = services.NewTestService(
		c.TestRepo,
		c.GroupRepo,
		c.TemplateRepo,
		c.Storage,
		c.AIAgent,
		auditLogger,
		c.Metrics,
		c.Clock,
		c.Logger,
		testCfg,
	)

	counts := c.Config.QuestionCounts
	if len(counts) == 0 {
		counts = domain.DefaultQuestionCounts()
	}
	c.GroupSvc = services.NewQuestionGroupService(
		c.GroupRepo,
		c.TemplateRepo,
		domain.NewQuestionCountPolicy(counts),
		auditLogger,
		c.Clock,
		c.Logger,
	)
	c.BankSvc = services.NewQuestionBankService(c.TemplateRepo, c.Clock)
	c.PolicySvc = services.NewPolicyService(c.Enforcer)
}

func (c *Container) initRouter() {
	maxVideo := c.Config.MaxVideoSize
	if maxVideo <= 0 {
		maxVideo = services.DefaultTestServiceConfig().MaxVideoSize
	}

	h := httpx.Handlers{
		Auth:      handlers.NewAuthHandlers(c.CandidateAuthSvc, c.Clock, c.Logger),
		AdminAuth: handlers.NewAdminAuthHandlers(c.AdminAuthSvc, c.Clock, c.Logger),
		Tests:     handlers.NewTestHandlers(c.TestSvc, maxVideo, c.Clock, c.Logger),
		Groups:    handlers.NewQuestionGroupHandlers(c.GroupSvc, c.Clock, c.Logger),
		Templates: handlers.NewQuestionTemplateHandlers(c.BankSvc, c.Clock, c.Logger),
		Policies:  handlers.NewPolicyHandlers(c.PolicySvc, c.Clock, c.Logger),
		Webhooks:  handlers.NewWebhookHandlers(c.TestSvc, c.Config.AIWebhookSecret, c.Clock, c.Logger),
	}

	requests, window := c.Config.RateLimitRequests, c.Config.RateLimitWindow
	if requests <= 0 || window <= 0 {
		requests, window = 30, time.Minute
	}

	c.Router = httpx.BuildRouter(
		h,
		middleware.NewAuthMW(c.TokenSvc, c.SessionRepo),
		middleware.NewCasbinMW(services.NewCasbinEnforcerWrapper(c.Enforcer), c.Config.ValidationRules, c.Logger),
		middleware.NewRateLimiter(requests, window, c.Clock),
		c.Metrics,
	)
}

// PurgeExpiredTokens deletes access codes that expired before the retention window.
// Lockout state lives on the newest token, so recent rows are kept.
func (c *Container) PurgeExpiredTokens(ctx context.Context, retention time.Duration) (int64, error) {
	return c.TokenRepo.DeleteExpired(ctx, c.Clock.Now().Add(-retention))
}

// Close closes all connections
func (c *Container) Close() error {
	if c.Redis != nil {
		c.Redis.Close()
	}

	if c.DB != nil {
		sqlDB, err := c.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}

	return nil
}

func gormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "info":
		return gormlogger.Info
	case "warn":
		return gormlogger.Warn
	case "error":
		return gormlogger.Error
	default:
		return gormlogger.Silent
	}
}
