package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"PerfPulsePlatform/internal/domain"
	"PerfPulsePlatform/internal/events"
	"PerfPulsePlatform/internal/middleware"
	"PerfPulsePlatform/internal/pkg/token"
	"PerfPulsePlatform/internal/repository"
	"PerfPulsePlatform/internal/repository/postgres"
	redisrepo "PerfPulsePlatform/internal/repository/redis"
	"PerfPulsePlatform/internal/service"
	"PerfPulsePlatform/pkg/config"
	"PerfPulsePlatform/pkg/database"
	pkgerrors "PerfPulsePlatform/pkg/errors"
	"PerfPulsePlatform/pkg/health"
	"PerfPulsePlatform/pkg/logger"
	"PerfPulsePlatform/pkg/metrics"
	"PerfPulsePlatform/pkg/rabbitmq"
	"PerfPulsePlatform/pkg/ratelimit"
	"PerfPulsePlatform/pkg/redis"
)

const (
	serviceName    = "perfpulse-core"
	serviceVersion = "v1.0.0"

	shutdownTimeout = 15 * time.Second
	connectTimeout  = 30 * time.Second

	// Лимиты запросов на пользователя (или IP, если запрос анонимный)
	rateLimitRequests = 120
	rateLimitWindow   = time.Minute
)

func main() {
	configFile := flag.String("config", os.Getenv("CONFIG_FILE"), "путь к файлу конфигурации")
	flag.Parse()

	// Загружаем конфигурацию
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализируем логгер
	baseLogger, err := logger.NewLogger(cfg.Environment, cfg.Logger.Level, serviceName, false)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer baseLogger.Sync()

	baseLogger.Info("Starting perfpulse core service",
		logger.String("version", serviceVersion),
		logger.String("environment", cfg.Environment))

	// Инициализируем метрики и трассировку
	metricsInstance := metrics.NewMetrics(serviceName)
	if err := metrics.InitializeOpenTelemetry(serviceName); err != nil {
		baseLogger.Warn("Failed to initialize OpenTelemetry", logger.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	// Подключаемся к PostgreSQL
	pg, err := connectPostgres(ctx, cfg)
	if err != nil {
		baseLogger.Error("Failed to connect to postgres", logger.Error(err))
		os.Exit(1)
	}
	defer pg.Close()

	// Подключаемся к Redis. Redis не критичен для старта: без него работаем
	// без кэша тенантов и без ограничения частоты запросов
	redisClient := connectRedis(ctx, cfg, baseLogger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Подключаемся к RabbitMQ. Без брокера события жизненного цикла целей
	// отбрасываются, остальная функциональность не страдает
	publisher, rabbitConn := connectPublisher(ctx, cfg, baseLogger)
	if rabbitConn != nil {
		defer rabbitConn.Close()
	}

	// Репозитории
	tenantRepo := postgres.NewTenantRepository(pg.Pool)
	userRepo := postgres.NewUserRepository(pg.Pool)
	departmentRepo := postgres.NewDepartmentRepository(pg.Pool)
	teamRepo := postgres.NewTeamRepository(pg.Pool)
	goalRepo := postgres.NewGoalRepository(pg.Pool)
	kpiRepo := postgres.NewKPIRepository(pg.Pool)

	var tenantCache repository.TenantCache
	if redisClient != nil {
		tenantCache = redisrepo.NewTenantCache(redisClient.Client)
		// Обновления тенанта сбрасывают его запись в кэше резолюции
		tenantRepo = redisrepo.NewInvalidatingTenantRepository(tenantRepo, tenantCache, baseLogger)
	}

	// Сервисы
	resolver := service.NewTenantResolver(tenantRepo, tenantCache, tenantCacheTTL(cfg, baseLogger), baseLogger)
	provisioner := service.NewProvisioner(tenantRepo, userRepo,
		cfg.Auth.AutoProvisionTenant, cfg.Auth.AutoProvisionUser, baseLogger)
	authorizer := service.NewAuthorizer(userRepo, departmentRepo, teamRepo, baseLogger)
	hierarchyGuard := service.NewHierarchyGuard(departmentRepo, userRepo, baseLogger)
	goalService := service.NewGoalService(goalRepo, kpiRepo, userRepo, departmentRepo,
		authorizer, publisher, baseLogger)

	// Верификатор токенов: режим определяется конфигурацией и окружением
	mode := token.ResolveMode(cfg.Auth.Mode, os.Getenv("AUTH_MODE"), cfg.Environment, cfg.Auth.PermissiveEnvironments)
	verifier := token.NewVerifier(cfg.Auth.Secret, mode)
	baseLogger.Info("Token verification configured", logger.String("mode", string(mode)))

	authMiddleware := middleware.NewAuthMiddleware(verifier, resolver, provisioner, metricsInstance, baseLogger)

	app := &application{
		goals:     goalService,
		hierarchy: hierarchyGuard,
		logger:    baseLogger,
	}

	// Аутентифицированная часть: rate limit считается по пользователю из контекста
	var protected http.Handler = app.routes()
	if redisClient != nil {
		limiter := ratelimit.NewRedisRateLimiter(redisClient.Client)
		protected = middleware.RateLimitMiddleware(limiter, rateLimitRequests, rateLimitWindow, true, baseLogger)(protected)
	}
	protected = authMiddleware.Authenticate(protected)

	// Служебные эндпоинты живут вне пайплайна аутентификации
	healthChecker := health.NewSimpleHealthChecker(serviceVersion)
	mux := http.NewServeMux()
	mux.Handle("/health", health.Handler(healthChecker))
	mux.Handle("/ready", health.ReadyHandler())
	mux.Handle("/live", health.LiveHandler())
	mux.Handle("/metrics", metricsInstance.GetHandler())
	mux.Handle("/api/", protected)

	handler := pkgerrors.Middleware(metricsInstance.Middleware(mux))

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Запускаем сервер и ждем сигнала остановки
	errCh := make(chan error, 1)
	go func() {
		baseLogger.Info("HTTP server listening", logger.String("addr", server.Addr))
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		baseLogger.Info("Shutdown signal received", logger.String("signal", sig.String()))
	case err := <-errCh:
		baseLogger.Error("HTTP server failed", logger.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("Graceful shutdown failed", logger.Error(err))
	}

	baseLogger.Info("Service stopped")
}

// connectPostgres собирает конфигурацию пула из настроек приложения
func connectPostgres(ctx context.Context, cfg *config.Config) (*database.Postgres, error) {
	dbConfig := database.NewConfig()
	dbConfig.Host = cfg.Database.Host
	dbConfig.Port = cfg.Database.Port
	dbConfig.User = cfg.Database.User
	dbConfig.Password = cfg.Database.Password
	dbConfig.Database = cfg.Database.Name

	return database.Connect(ctx, dbConfig)
}

// connectRedis подключается к Redis; при сбое возвращает nil
func connectRedis(ctx context.Context, cfg *config.Config, log logger.Logger) *redis.Client {
	redisConfig := redis.NewConfig()
	redisConfig.Addr = cfg.Redis.Addr
	redisConfig.Password = cfg.Redis.Password
	redisConfig.DB = cfg.Redis.DB
	redisConfig.PoolSize = cfg.Redis.PoolSize
	redisConfig.MinIdleConn = cfg.Redis.MinIdleConn
	redisConfig.MaxRetries = cfg.Redis.MaxRetries
	if d, err := time.ParseDuration(cfg.Redis.RetryInterval); err == nil {
		redisConfig.RetryInterval = d
	}
	if d, err := time.ParseDuration(cfg.Redis.HealthCheck); err == nil {
		redisConfig.HealthCheck = d
	}

	client, err := redis.Connect(ctx, redisConfig)
	if err != nil {
		log.Warn("Redis unavailable, tenant cache and rate limiting disabled", logger.Error(err))
		return nil
	}

	return client
}

// connectPublisher подключается к RabbitMQ и создает издатель событий
// При сбое возвращает NopPublisher — события целей отбрасываются
func connectPublisher(ctx context.Context, cfg *config.Config, log logger.Logger) (events.Publisher, *rabbitmq.Connection) {
	rabbitConfig := rabbitmq.NewConfig()
	rabbitConfig.URL = cfg.RabbitMQ.URL
	rabbitConfig.Exchange = cfg.RabbitMQ.Exchange
	rabbitConfig.RoutingKey = cfg.RabbitMQ.RoutingKey
	rabbitConfig.Queue = cfg.RabbitMQ.Queue

	conn, err := rabbitmq.Connect(ctx, rabbitConfig)
	if err != nil {
		log.Warn("RabbitMQ unavailable, goal events disabled", logger.Error(err))
		return events.NopPublisher{}, nil
	}

	producer := rabbitmq.NewProducer(conn, rabbitConfig)
	return events.NewRabbitMQPublisher(producer, log), conn
}

// tenantCacheTTL разбирает TTL кэша тенантов из конфигурации
func tenantCacheTTL(cfg *config.Config, log logger.Logger) time.Duration {
	d, err := time.ParseDuration(cfg.Auth.TenantCacheTTL)
	if err != nil {
		log.Warn("Invalid tenant cache TTL, using default",
			logger.String("value", cfg.Auth.TenantCacheTTL))
		return 5 * time.Minute
	}
	return d
}

// application связывает доменные сервисы с HTTP поверхностью
// Полноценные контроллеры целей живут в отдельном API-сервисе,
// здесь только эндпоинты, опирающиеся на контекст запроса
type application struct {
	goals     service.GoalLifecycle
	hierarchy service.OrgHierarchyGuard
	logger    logger.Logger
}

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/whoami", app.handleWhoami)
	mux.HandleFunc("/api/v1/goals", app.handleListGoals)
	mux.HandleFunc("PUT /api/v1/departments/{id}/parent", app.handleSetDepartmentParent)
	mux.HandleFunc("PUT /api/v1/departments/{id}/manager", app.handleSetDepartmentManager)
	return mux
}

// handleWhoami возвращает текущего пользователя и тенант из контекста запроса
func (app *application) handleWhoami(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Tenant interface{} `json:"tenant,omitempty"`
		User   interface{} `json:"user,omitempty"`
	}

	resp := response{}
	if tenant := service.CurrentTenant(r.Context()); tenant != nil {
		resp.Tenant = tenant
	}
	if user := service.CurrentUser(r.Context()); user != nil {
		resp.User = user
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleListGoals возвращает видимые текущему пользователю цели тенанта
func (app *application) handleListGoals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	goals, err := app.goals.ListGoals(r.Context())
	if err != nil {
		app.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, goals)
}

// handleSetDepartmentParent меняет родителя отдела после проверки циклов
func (app *application) handleSetDepartmentParent(w http.ResponseWriter, r *http.Request) {
	tenant, actor, err := app.requireAdmin(r)
	if err != nil {
		app.writeError(w, err)
		return
	}

	var body struct {
		ParentID string `json:"parent_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		app.writeError(w, pkgerrors.New(pkgerrors.ErrValidation, "invalid request body"))
		return
	}

	if err := app.hierarchy.SetDepartmentParent(r.Context(), r.PathValue("id"), body.ParentID, tenant.ID); err != nil {
		app.writeError(w, err)
		return
	}

	app.logger.Info("Department parent changed",
		logger.String("department_id", r.PathValue("id")),
		logger.String("actor_id", actor.ID))
	w.WriteHeader(http.StatusNoContent)
}

// handleSetDepartmentManager меняет менеджера отдела после проверки циклов
func (app *application) handleSetDepartmentManager(w http.ResponseWriter, r *http.Request) {
	tenant, actor, err := app.requireAdmin(r)
	if err != nil {
		app.writeError(w, err)
		return
	}

	var body struct {
		ManagerID string `json:"manager_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		app.writeError(w, pkgerrors.New(pkgerrors.ErrValidation, "invalid request body"))
		return
	}

	if err := app.hierarchy.SetDepartmentManager(r.Context(), r.PathValue("id"), body.ManagerID, tenant.ID); err != nil {
		app.writeError(w, err)
		return
	}

	app.logger.Info("Department manager changed",
		logger.String("department_id", r.PathValue("id")),
		logger.String("actor_id", actor.ID))
	w.WriteHeader(http.StatusNoContent)
}

// requireAdmin извлекает тенант и администратора из контекста запроса
// Мутации оргструктуры доступны только администратору тенанта
func (app *application) requireAdmin(r *http.Request) (*domain.Tenant, *domain.User, error) {
	tenant, err := service.RequireTenant(r.Context())
	if err != nil {
		return nil, nil, err
	}

	actor := service.CurrentUser(r.Context())
	if actor == nil {
		return nil, nil, pkgerrors.New(pkgerrors.ErrUnauthorized, "authenticated user required")
	}
	if !actor.IsAdmin() {
		return nil, nil, pkgerrors.New(pkgerrors.ErrForbidden, "tenant administrator required")
	}

	return tenant, actor, nil
}

func (app *application) writeError(w http.ResponseWriter, err error) {
	var custom *pkgerrors.Error
	if e, ok := err.(*pkgerrors.Error); ok {
		custom = e
	} else {
		custom = pkgerrors.Wrap(err, pkgerrors.ErrInternal, "internal error")
	}

	if custom.HTTPStatus() >= http.StatusInternalServerError {
		app.logger.Error("Request failed", logger.Error(custom))
	}
	pkgerrors.SendErrorResponse(w, custom)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// Заголовки уже отправлены, остается только залогировать
		log.Printf("failed to encode response: %v", err)
	}
}
