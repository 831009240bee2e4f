package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

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

	"github.com/2beens/workouttracker/internal/auth"
	"github.com/2beens/workouttracker/internal/config"
	"github.com/2beens/workouttracker/internal/db"
	"github.com/2beens/workouttracker/internal/middleware"
	"github.com/2beens/workouttracker/internal/routines"
	"github.com/2beens/workouttracker/internal/telemetry/metrics"
	"github.com/2beens/workouttracker/internal/telemetry/tracing"
	"github.com/2beens/workouttracker/internal/users"
	"github.com/2beens/workouttracker/internal/workouts"
	"github.com/2beens/workouttracker/pkg"
)

const sessionsCleanupInterval = time.Hour

type healthCheck func(ctx context.Context) error

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config       *config.Config
	dbPool       *pgxpool.Pool
	redisClient  *redis.Client
	authService  *auth.Service
	cookieStore  *auth.CookieStore
	rateLimiter  middleware.RequestRateLimiter
	routineCache *routines.DetailCache
	healthChecks map[string]healthCheck

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	VersionInfo             string
	SessionSecret           string
	AdminPasswordHash       string
	RedisPassword           string
	DBPassword              string
	HoneycombTracingEnabled bool
}

var errAdminPasswordHashNotSet = errors.New("bootstrap admin password hash not set")

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	if params.SessionSecret == "" {
		return nil, errors.New("session secret not set")
	}
	if params.AdminPasswordHash == "" {
		return nil, errAdminPasswordHashNotSet
	}

	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         params.Config.PostgresHost,
		DBPort:         params.Config.PostgresPort,
		DBName:         params.Config.PostgresDBName,
		DBUser:         params.Config.PostgresUser,
		DBPassword:     params.DBPassword,
		TracingEnabled: params.HoneycombTracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("new db pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Warnf("failed to ping db: %s", err)
	}

	if params.Config.RunMigrations {
		applied, err := db.NewMigrator(dbPool).Apply(ctx)
		if err != nil {
			dbPool.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		log.Infof("applied %d migration(s)", applied)
	}

	pgxpoolCollector := pgxpoolprometheus.NewCollector(
		dbPool,
		map[string]string{"db_name": params.Config.PostgresDBName},
	)
	promRegistry := metrics.SetupPrometheus(pgxpoolCollector)
	metricsManager := metrics.NewManager("backend", "main", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(params.Config.RedisHost, params.Config.RedisPort),
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
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "workout-tracker", rdb)
	if err != nil {
		return nil, err
	}

	authService := auth.NewService(params.Config.SessionTTL.Duration, rdb)
	go authService.RunCleaner(ctx, sessionsCleanupInterval)

	s := &Server{
		config:      params.Config,
		versionInfo: params.VersionInfo,
		dbPool:      dbPool,
		redisClient: rdb,
		authService: authService,
		cookieStore: auth.NewCookieStore([]byte(params.SessionSecret), params.Config.SecureCookies, params.Config.SessionTTL.Duration),
		rateLimiter: redis_rate.NewLimiter(rdb),
		routineCache: routines.NewDetailCache(
			params.Config.RoutineCacheSizeMB,
			params.Config.RoutineCacheTTLSeconds,
			metricsManager,
		),
		healthChecks: map[string]healthCheck{
			"postgres": dbPool.Ping,
			"redis": func(ctx context.Context) error {
				return rdb.Ping(ctx).Err()
			},
		},

		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}

	if err := s.ensureBootstrapAdmin(ctx, params.AdminPasswordHash); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Server) ensureBootstrapAdmin(ctx context.Context, passwordHash string) error {
	if passwordHash == "" {
		return errAdminPasswordHashNotSet
	}

	service := users.NewService(users.NewRepo(s.dbPool), s.authService)
	admin, err := service.EnsureBootstrapAdmin(ctx, passwordHash)
	if err != nil {
		return fmt.Errorf("ensure bootstrap admin: %w", err)
	}
	log.Debugf("bootstrap admin present, id: %d", admin.ID)
	return nil
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods("GET", "OPTIONS").Name("health")

	admin := api.PathPrefix("/admin").Subrouter()

	usersHandler := users.NewHandler(
		users.NewService(users.NewRepo(s.dbPool), s.authService),
		s.authService,
		s.cookieStore,
		s.metricsManager,
	)
	usersHandler.SetupRoutes(api, admin, s.rateLimiter, s.config.LoginRateLimitAllowedPerMin)

	routinesHandler := routines.NewHandler(
		routines.NewService(routines.NewRepo(s.dbPool), s.routineCache, s.metricsManager),
	)
	routinesHandler.SetupRoutes(api)

	workoutsHandler := workouts.NewHandler(
		workouts.NewService(workouts.NewRepo(s.dbPool), s.metricsManager),
	)
	workoutsHandler.SetupRoutes(api)

	// all the rest - unhandled paths
	api.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pkg.WriteJSONError(w, http.StatusNotFound, "Not found", "")
	}).Name("unknown")

	authMiddleware := middleware.NewAuthMiddlewareHandler(s.authService, s.cookieStore)

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.Cors(s.config.AllowedOrigins))
	r.Use(middleware.DrainAndCloseRequest())
	r.Use(otelmux.Middleware("workout-tracker-router"))

	api.Use(authMiddleware.AuthCheck())
	admin.Use(middleware.RequireAdmin())

	return r
}

type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:  "ok",
		Version: s.versionInfo,
		Checks:  make(map[string]string, len(s.healthChecks)),
	}
	for name, check := range s.healthChecks {
		if err := check(ctx); err != nil {
			log.Errorf("health check %s: %s", name, err)
			resp.Checks[name] = "unavailable"
			resp.Status = "unavailable"
			continue
		}
		resp.Checks[name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	pkg.WriteJSON(w, status, resp)
}

func (s *Server) metricsRouterSetup() *mux.Router {
	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.InstrumentMetricHandler(
		s.promRegistry,
		promhttp.HandlerFor(s.promRegistry, promhttp.HandlerOpts{}),
	))
	return metricsRouter
}

func (s *Server) Serve(host string, port int) {
	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:           s.routerSetup(),
		Addr:              ipAndPort,
		WriteTimeout:      time.Minute,
		ReadTimeout:       time.Minute,
		ReadHeaderTimeout: 10 * time.Second,
		ConnState:         s.connStateMetrics,
	}

	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:              metricsAddr,
		Handler:           s.metricsRouterSetup(),
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

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	// stop taking requests before the stores go away
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Errorf(" >>> failed to gracefully shutdown http server: %s", err)
		}
		log.Warnln("server shut down")
	}

	if s.metricsHttpServer != nil {
		if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
			log.Errorf(" >>> failed to gracefully shutdown metrics http server: %s", err)
		}
		log.Warnln("metrics server shut down")
	}

	s.otelShutdown()
	log.Trace("otel shut down ...")

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

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
