package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/2beens/ninjatraining/internal/auth"
	"github.com/2beens/ninjatraining/internal/config"
	"github.com/2beens/ninjatraining/internal/db"
	"github.com/2beens/ninjatraining/internal/food"
	"github.com/2beens/ninjatraining/internal/foodfacts"
	"github.com/2beens/ninjatraining/internal/geoip"
	"github.com/2beens/ninjatraining/internal/middleware"
	"github.com/2beens/ninjatraining/internal/progress"
	"github.com/2beens/ninjatraining/internal/telemetry/metrics"
	"github.com/2beens/ninjatraining/internal/telemetry/tracing"
	"github.com/2beens/ninjatraining/internal/vision"
	"github.com/2beens/ninjatraining/internal/workouts"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const sessionsCleanupInterval = 8 * time.Hour

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server

	config         *config.Config
	scrollPassword string
	dbPool         *pgxpool.Pool
	redisClient    *redis.Client

	sessions       *auth.Sessions
	loginChecker   auth.Checker
	accounts       *auth.Accounts
	workoutService *workouts.Service
	foodService    *food.Service
	locResolver    *geoip.Resolver

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	IpInfoAPIKey            string
	VisionAPIKey            string
	RecoveryTokenSecret     string
	ScrollPassword          string
	RedisPassword           string
	DBPassword              string
	AWSRegion               string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	cfg := params.Config

	duplicatePolicy, err := progress.ParseDuplicatePolicy(cfg.DuplicateCheckInPolicy)
	if err != nil {
		return nil, err
	}

	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         cfg.PostgresHost,
		DBPort:         cfg.PostgresPort,
		DBName:         cfg.PostgresDBName,
		DBPassword:     params.DBPassword,
		TracingEnabled: params.HoneycombTracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("new db pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Warnf("failed to ping db: %s", err)
	}

	pgxpoolCollector := pgxpoolprometheus.NewCollector(
		dbPool,
		map[string]string{"db_name": cfg.PostgresDBName},
	)
	promRegistry := metrics.SetupPrometheus(pgxpoolCollector)
	metricsManager := metrics.NewManager("ninja", "main", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
		Password: params.RedisPassword,
		DB:       0, // use default DB
	})

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "ninja-backend", rdb)
	if err != nil {
		return nil, err
	}

	tracedHttpClient := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   time.Minute,
	}

	var mailer auth.Mailer = auth.LogMailer{}
	if cfg.MailSender != "" && params.AWSRegion != "" {
		sesMailer, err := auth.NewSESMailer(ctx, params.AWSRegion, cfg.MailSender)
		if err != nil {
			log.Errorf("ses mailer, falling back to log mailer: %s", err)
		} else {
			mailer = sesMailer
		}
	} else {
		log.Warnln("mail sender or AWS region not set, recovery mails will only be logged")
	}

	sessions := auth.NewSessions(auth.DefaultTTL, rdb)
	loginChecker := auth.NewLoginChecker(auth.DefaultTTL, rdb)
	accounts := auth.NewAccounts(auth.AccountsParams{
		Repo:           auth.NewRepo(dbPool),
		Sessions:       sessions,
		Checker:        loginChecker,
		Recovery:       auth.NewRecoveryTokens(params.RecoveryTokenSecret, rdb),
		Mailer:         mailer,
		RecoveryURL:    cfg.PasswordRecoveryURL,
		MetricsManager: metricsManager,
	})

	engine := progress.NewEngine(progress.DefaultCatalog(), duplicatePolicy)

	s := &Server{
		config:         cfg,
		scrollPassword: params.ScrollPassword,
		dbPool:         dbPool,
		redisClient:    rdb,

		sessions:       sessions,
		loginChecker:   loginChecker,
		accounts:       accounts,
		workoutService: workouts.NewService(workouts.NewRepo(dbPool), engine, metricsManager),
		foodService: food.NewService(
			food.NewRepo(dbPool),
			foodfacts.NewClient(cfg.FoodFactsBaseURL, cfg.FoodFactsCacheSizeMB, tracedHttpClient, metricsManager),
			vision.NewClient(cfg.VisionBaseURL, params.VisionAPIKey, cfg.VisionModel, tracedHttpClient, metricsManager),
			metricsManager,
		),
		locResolver: geoip.NewResolver(tracedHttpClient, params.IpInfoAPIKey, rdb),

		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}

	go s.cleanupSessions(ctx)

	return s, nil
}

func (s *Server) cleanupSessions(ctx context.Context) {
	ticker := time.NewTicker(sessionsCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sessions.ScanAndClean(ctx)
		}
	}
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("main-router"))

	reqRateLimiter := redis_rate.NewLimiter(s.redisClient)

	authHandler := auth.NewHandler(s.accounts)
	authRouter := r.PathPrefix("/auth").Subrouter()
	authRouter.HandleFunc("/signup", authHandler.HandleSignUp).Methods("POST", "OPTIONS").Name("signup")
	authRouter.HandleFunc("/login", authHandler.HandleLogin).Methods("POST", "OPTIONS").Name("login")
	authRouter.HandleFunc("/logout", authHandler.HandleLogout).Methods("GET", "POST", "OPTIONS").Name("logout")
	authRouter.HandleFunc("/session", authHandler.HandleSession).Methods("GET", "OPTIONS").Name("session")
	authRouter.HandleFunc("/password/reset", authHandler.HandlePasswordReset).Methods("POST", "OPTIONS").Name("password-reset")
	authRouter.HandleFunc("/password/recover", authHandler.HandlePasswordRecover).Methods("POST", "OPTIONS").Name("password-recover")
	authRouter.HandleFunc("/password", authHandler.HandlePasswordUpdate).Methods("PUT", "OPTIONS").Name("password-update")
	authRouter.HandleFunc("/introspect", authHandler.HandleIntrospect).Methods("GET", "OPTIONS").Name("introspect")
	authRouter.Use(middleware.RateLimit(reqRateLimiter, "auth", s.config.LoginRateLimitAllowedPerMin, s.metricsManager))

	workoutsHandler := workouts.NewHandler(
		s.workoutService,
		s.locResolver,
		s.config.ExperiencePerWorkout,
		s.scrollPassword,
	)
	workoutsHandler.SetupRoutes(r)

	foodHandler := food.NewHandler(s.foodService, s.locResolver, s.config.MaxImageSizeMB)
	foodHandler.SetupRoutes(
		r,
		middleware.RateLimit(reqRateLimiter, "vision", s.config.VisionRateLimitAllowedPerMin, s.metricsManager),
	)

	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ninja training ready"))
	}).Methods("GET", "OPTIONS").Name("root")

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "DELETE", "OPTIONS").Name("unknown")

	authMiddleware := middleware.NewAuthMiddlewareHandler(s.loginChecker)

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors(s.config.AllowedOrigins))
	r.Use(authMiddleware.AuthCheck())
	r.Use(middleware.DrainAndCloseRequest())

	return r
}

func (s *Server) Serve(host string, port int) {
	router := s.routerSetup()

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(
		s.promRegistry,
		promhttp.HandlerOpts{Registry: s.promRegistry},
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:              metricsAddr,
		Handler:           metricsRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	s.otelShutdown()
	log.Trace("otel shut down ...")

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown http server")
		}
		log.Warnln("server shut down")
	}

	if s.metricsHttpServer != nil {
		if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown metrics http server")
		}
		log.Warnln("metrics server shut down")
	}

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}
}
