package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"

	"club-overview-console/internal/admin"
	"club-overview-console/internal/auth"
	"club-overview-console/internal/commit"
	"club-overview-console/internal/domain"
	"club-overview-console/internal/domain/specs"
	"club-overview-console/internal/drafts"
	"club-overview-console/internal/geo"
	"club-overview-console/internal/infrastructure/blob"
	"club-overview-console/internal/infrastructure/cache"
	"club-overview-console/internal/infrastructure/repository"
	"club-overview-console/internal/loader"
	"club-overview-console/internal/media"
	"club-overview-console/internal/models"
	"club-overview-console/internal/naming"
	"club-overview-console/internal/validation"
	"club-overview-console/pkg/config"
	"club-overview-console/pkg/container"
	"club-overview-console/pkg/database"
	"club-overview-console/pkg/events"
	"club-overview-console/pkg/health"
	"club-overview-console/pkg/logging"
	metricsPkg "club-overview-console/pkg/metrics"
	"club-overview-console/pkg/monitoring"
)

// stores bundles the record store variants. records is the store of truth; listed goes
// through the Redis list cache when one is configured.
type stores struct {
	records domain.RecordStore
	listed  domain.RecordStore
	ping    func(ctx context.Context) error
	db      *database.DB
	redis   *redis.Client
	cache   *cache.RecordStore
}

func main() {
	c := container.New()

	c.MustProvide(config.Load)
	c.MustProvide(newLogger)
	c.MustProvide(openStores)
	c.MustProvide(func(cfg *config.Config, logger *logging.Logger) (blob.Store, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return blob.Open(ctx, cfg, logger)
	})
	c.MustProvide(func(st *stores) (events.EventStore, error) {
		if st.db == nil {
			return events.NewMemoryStore(), nil
		}
		return events.NewSQLEventStore(context.Background(), st.db)
	})
	c.MustProvide(func(cfg *config.Config, logger *logging.Logger) (*geo.Locator, error) {
		return geo.NewGoogleLocator(cfg.GoogleMapsAPIKey, logger)
	})
	c.MustProvide(func(cfg *config.Config) models.StorageLayout {
		return models.StorageLayout{
			LogosPrefix:      cfg.LogosPrefix,
			ClubImagesPrefix: cfg.ClubImagesPrefix,
			ClubOffersDir:    cfg.ClubOffersDir,
		}
	})
	c.MustProvide(func(cfg *config.Config, st *stores, blobs blob.Store, layout models.StorageLayout, logger *logging.Logger) *loader.Loader {
		return loader.New(st.listed, blobs, layout, previewDefaults(cfg), logger)
	})
	// The allocator reads the uncached store so a stale listing can never hand out a taken id.
	c.MustProvide(func(cfg *config.Config, st *stores) *naming.Allocator {
		return naming.NewAllocator(st.records, cfg.MaxAllocationAttempts)
	})
	c.MustProvide(func(cfg *config.Config, logger *logging.Logger) *auth.ActorResolver {
		return auth.NewActorResolver(cfg.AdminsYAMLPath, logger)
	})
	c.MustProvide(drafts.NewRegistry)
	c.MustProvide(func(
		cfg *config.Config,
		st *stores,
		blobs blob.Store,
		es events.EventStore,
		ld *loader.Loader,
		alloc *naming.Allocator,
		loc *geo.Locator,
		layout models.StorageLayout,
		reg *drafts.Registry,
		logger *logging.Logger,
	) *admin.Server {
		return admin.NewServer(admin.Options{
			Registry: reg,
			Loader:   ld,
			Locator:  loc,
			Events:   es,
			Logger:   logger,
			Commit: commit.Deps{
				// Writes go through the cache wrapper so listings are invalidated.
				Records:           st.listed,
				Blobs:             blobs,
				Transcoder:        media.NewSniffer(media.DefaultMaxBytes),
				Allocator:         alloc,
				Validator:         validation.NewValidator(specs.OptionsFromEnv()),
				Loader:            ld,
				Events:            es,
				Layout:            layout,
				UploadConcurrency: cfg.UploadConcurrency,
			},
		})
	})

	var (
		cfg      *config.Config
		logger   *logging.Logger
		st       *stores
		blobs    blob.Store
		ld       *loader.Loader
		alloc    *naming.Allocator
		resolver *auth.ActorResolver
		reg      *drafts.Registry
		srv      *admin.Server
	)
	if err := c.Invoke(func(
		c0 *config.Config, l0 *logging.Logger, s0 *stores, b0 blob.Store, ld0 *loader.Loader,
		a0 *naming.Allocator, r0 *auth.ActorResolver, reg0 *drafts.Registry, srv0 *admin.Server,
	) {
		cfg, logger, st, blobs, ld, alloc, resolver, reg, srv = c0, l0, s0, b0, ld0, a0, r0, reg0, srv0
	}); err != nil {
		log.Fatalf("startup: %v", err)
	}
	defer logger.Close()

	mainLog := logger.WithComponent("main")
	if err := cfg.Validate(); err != nil {
		mainLog.Warn("Configuration has problems", logging.Error(err))
	}
	mainLog.Info("Starting club overview console",
		logging.String("env", cfg.Env),
		logging.String("record_store", cfg.RecordStoreDriver),
		logging.String("blob_store", cfg.BlobDriver),
		logging.Bool("list_cache", st.cache != nil))
	monitoring.EnableProfiling(cfg.ProfilingEnabled)

	hm := health.NewHealthManager(health.DefaultHealthConfig(), logger)
	registerHealthChecks(hm, st, blobs, resolver)

	// Hot reload of the settings diffKeys reports; everything else needs a restart.
	cw := config.NewWatcher(time.Duration(cfg.ConfigReloadIntervalSeconds) * time.Second)
	cw.Start()
	defer cw.Close()
	go func() {
		for chg := range cw.Subscribe() {
			if chg.Err != nil {
				mainLog.Warn("Config reload failed", logging.Error(chg.Err))
				continue
			}
			logger.SetLevel(logging.ParseLevel(chg.New.LogLevel))
			srv.SetUploadConcurrency(chg.New.UploadConcurrency)
			alloc.SetMaxAttempts(chg.New.MaxAllocationAttempts)
			ld.SetDefaults(previewDefaults(chg.New))
			if st.cache != nil {
				st.cache.SetTTL(chg.New.CacheTTL)
			}
			if err := resolver.Reload(); err != nil {
				mainLog.Warn("admins.yaml reload failed", logging.Error(err))
			}
			mainLog.Info("Config applied", logging.Strings("fields", chg.Fields))
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	window := monitoring.NewWindow(512)
	router := mux.NewRouter()
	if cfg.MetricsEnabled {
		router.Use(monitoring.Middleware(window))
	}
	router.Use(requestID)
	router.Use(auth.NewMiddleware(resolver).Handler)

	api := router
	if base := strings.TrimSuffix(cfg.BasePath, "/"); base != "" {
		api = router.PathPrefix(base).Subrouter()
	}
	srv.Routes(api)

	root := http.NewServeMux()
	hm.Register(root, cfg.HealthCheckPath)
	if fsStore, ok := blobs.(*blob.FSStore); ok && strings.HasPrefix(cfg.BlobBaseURL, "/") {
		prefix := strings.TrimSuffix(cfg.BlobBaseURL, "/") + "/"
		root.Handle(prefix, http.StripPrefix(prefix, http.FileServer(http.Dir(fsStore.Root()))))
	}
	root.Handle("/", router)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var adminServer *http.Server
	if cfg.ProfilingEnabled || cfg.MetricsEnabled {
		adminMux := http.NewServeMux()
		if cfg.ProfilingEnabled {
			monitoring.RegisterPprof(adminMux)
		}
		if cfg.MetricsEnabled {
			adminMux.Handle(cfg.MetricsPath, metricsPkg.Handler())
			adminMux.Handle("/debug/stats", monitoring.StatsHandler(window, func() map[string]any {
				return map[string]any{"working_copies": reg.Count()}
			}))
		}
		adminServer = &http.Server{Addr: ":" + cfg.ProfilingPort, Handler: adminMux, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			mainLog.Info("Admin server (pprof/metrics) starting", logging.String("port", cfg.ProfilingPort))
			if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				mainLog.Error("Admin HTTP server error", err)
			}
		}()
	}

	go func() {
		mainLog.Info("Server starting", logging.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			mainLog.Error("HTTP server error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	mainLog.Info("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		mainLog.Error("HTTP server shutdown error", err)
	}
	if adminServer != nil {
		if err := adminServer.Shutdown(shutdownCtx); err != nil {
			mainLog.Error("Admin HTTP server shutdown error", err)
		}
	}
	if st.redis != nil {
		_ = st.redis.Close()
	}
	if st.db != nil {
		if err := st.db.Close(); err != nil {
			mainLog.Error("Database close error", err)
		}
	}
	mainLog.Info("Application shutdown complete")
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	lc := logging.DefaultLogConfig()
	lc.Level = logging.ParseLevel(cfg.LogLevel)
	lc.Format = cfg.LogFormat
	if cfg.LogFile != "" {
		lc.Output = cfg.LogFile
	}
	return logging.NewLogger(lc)
}

func openStores(cfg *config.Config, logger *logging.Logger) (*stores, error) {
	st := &stores{}
	switch cfg.RecordStoreDriver {
	case "mysql", "sqlite":
		db, err := database.NewWithConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("open %s record store: %w", cfg.RecordStoreDriver, err)
		}
		sqlStore := repository.NewSQLRecordStore(db)
		st.db, st.records, st.ping = db, sqlStore, sqlStore.Ping
	default:
		mem := repository.NewMemoryRecordStore()
		st.records, st.ping = mem, mem.Ping
	}

	st.listed = st.records
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if client := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB); client != nil {
		st.redis = client
		st.cache = cache.NewRecordStore(st.records, cache.RedisKV{Client: client}, cfg.CacheTTL, logger)
		st.listed = st.cache
	} else if cfg.RedisAddr != "" {
		logger.Warn("Redis unreachable; list cache disabled", logging.String("addr", cfg.RedisAddr))
	}
	return st, nil
}

func previewDefaults(cfg *config.Config) loader.Defaults {
	return loader.Defaults{
		Logo:      cfg.DefaultLogoURL,
		Banner:    cfg.DefaultBannerURL,
		MoodImage: cfg.DefaultMoodImageURL,
		Offer:     cfg.DefaultOfferURL,
	}
}

func registerHealthChecks(hm *health.HealthManager, st *stores, blobs blob.Store, resolver *auth.ActorResolver) {
	if st.db != nil {
		hm.RegisterChecker(health.NewDatabaseHealthChecker(st.db.Conn(), "record_store"))
	} else {
		hm.RegisterChecker(health.NewPingChecker("record_store", st.ping))
	}

	blobCheck := health.NewPingChecker("blob_store", blobs.Ping)
	if b, ok := blobs.(*blob.BreakerStore); ok {
		blobCheck.WithMetadata(func() map[string]interface{} {
			return map[string]interface{}{"circuit": b.State().String()}
		})
	}
	hm.RegisterChecker(blobCheck)

	if st.redis != nil {
		hm.RegisterChecker(health.NewPingChecker("list_cache", func(ctx context.Context) error {
			return st.redis.Ping(ctx).Err()
		}).Optional())
	}

	hm.RegisterChecker(health.NewPingChecker("actors", func(ctx context.Context) error {
		if !resolver.IsLoaded() {
			return fmt.Errorf("admins.yaml not loaded")
		}
		return nil
	}))
}

// requestID tags every request with an id the logger and clients can correlate on.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), logging.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
