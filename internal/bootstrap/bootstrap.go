package bootstrap

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"pilotforce-server-go/internal/domain/eventbus"
	"pilotforce-server-go/internal/domain/geotiff"
	"pilotforce-server-go/internal/domain/imagery"
	"pilotforce-server-go/internal/domain/presign"
	presigncache "pilotforce-server-go/internal/domain/presign/cache"
	platformconfig "pilotforce-server-go/internal/platform/config"
	platformerrors "pilotforce-server-go/internal/platform/errors"
	platformlogging "pilotforce-server-go/internal/platform/logging"
	platformstorage "pilotforce-server-go/internal/platform/storage"
	httptransport "pilotforce-server-go/internal/transport/http"
	httpresources "pilotforce-server-go/internal/transport/http/resources"
	httpwebapi "pilotforce-server-go/internal/transport/http/webapi"
)

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Kind      platformerrors.Kind
	Execute   stepFn
}

type appState struct {
	config     *platformconfig.Config
	configPath string
	logger     *platformlogging.Logger

	db    *gorm.DB
	blobs *platformstorage.BlobStore

	bus           *eventbus.Bus
	urlCache      presigncache.Cache
	signer        *presign.Signer
	refresher     *presign.Refresher
	authenticator *httpwebapi.Authenticator
	reassembler   *geotiff.Reassembler
}

// Run drives the whole service lifecycle: configuration, dependency
// initialisation, serving, and graceful shutdown.
func Run(ctx context.Context) error {
	state := &appState{}

	steps := InitGraph()
	if err := executeInitSteps(ctx, steps, state); err != nil {
		return err
	}

	config := state.config
	logger := state.logger
	if config == nil || logger == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"bootstrap state validation",
			"config/logger not initialised",
		)
	}

	logBootstrapGraph(steps, logger)

	defer func() {
		if state.bus != nil {
			state.bus.Close()
		}
		if state.urlCache != nil {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := state.urlCache.Close(closeCtx); err != nil {
				logger.WarnTag("BOOT", "url cache did not close cleanly: %v", err)
			}
		}
	}()

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalCtx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(rootCtx)

	if _, err := startHTTPServer(state, group, groupCtx); err != nil {
		cancel()
		return err
	}

	if config.GeoTIFF.Enabled && state.reassembler != nil {
		group.Go(func() error {
			state.reassembler.Run(groupCtx)
			return nil
		})
		logger.InfoTag("GEOTIFF", "reassembly sweeper running every %s", config.GeoTIFF.SweepInterval)
	}

	if err := waitForShutdown(signalCtx, cancel, logger, group); err != nil {
		return err
	}

	logger.InfoTag("BOOT", "server stopped")
	logger.Close()
	return nil
}

func logBootstrapGraph(steps []initStep, logger *platformlogging.Logger) {
	if logger == nil {
		return
	}
	logger.InfoTag("BOOT", "initialisation order")
	for _, step := range steps {
		logger.InfoTag("BOOT", "  %s", step.Title)
	}
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	if state == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"execute init steps",
			"nil bootstrap state",
		)
	}

	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.New(
					platformerrors.KindBootstrap,
					step.ID,
					fmt.Sprintf("dependency %s not satisfied", dep),
				)
			}
		}
		if step.Execute == nil {
			return platformerrors.New(
				platformerrors.KindBootstrap,
				step.ID,
				"missing execute function",
			)
		}
		if err := step.Execute(ctx, state); err != nil {
			var typed *platformerrors.Error
			if stderrors.As(err, &typed) {
				return err
			}

			kind := step.Kind
			if kind == "" {
				kind = platformerrors.KindBootstrap
			}
			return platformerrors.Wrap(kind, step.ID, "bootstrap step failed", err)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Kind:    platformerrors.KindConfig,
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init",
			Title:     "Initialise logging",
			DependsOn: []string{"config:load"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initLoggingStep,
		},
		{
			ID:        "storage:init-database",
			Title:     "Initialise database",
			DependsOn: []string{"logging:init"},
			Kind:      platformerrors.KindStorage,
			Execute:   initDatabaseStep,
		},
		{
			ID:        "storage:init-blobstore",
			Title:     "Initialise blob store",
			DependsOn: []string{"logging:init"},
			Kind:      platformerrors.KindStorage,
			Execute:   initBlobStoreStep,
		},
		{
			ID:        "eventbus:init",
			Title:     "Initialise event bus",
			DependsOn: []string{"logging:init"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initEventBusStep,
		},
		{
			ID:        "auth:init",
			Title:     "Initialise authentication",
			DependsOn: []string{"config:load", "logging:init"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initAuthStep,
		},
		{
			ID:        "presign:init",
			Title:     "Initialise url signing and refresh",
			DependsOn: []string{"logging:init"},
			Kind:      platformerrors.KindPresign,
			Execute:   initPresignStep,
		},
		{
			ID:        "geotiff:init",
			Title:     "Initialise chunk reassembly",
			DependsOn: []string{"storage:init-database", "storage:init-blobstore", "presign:init", "eventbus:init"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initGeoTIFFStep,
		},
	}
}

func loadConfigStep(_ context.Context, state *appState) error {
	result, err := platformconfig.NewLoader().Load()
	if err != nil {
		return err
	}
	state.config = result.Config
	state.configPath = result.Path
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	if state == nil || state.config == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"logging:init",
			"config not loaded",
		)
	}

	logger, err := platformlogging.New(platformlogging.Config{
		Level: state.config.Log.Level,
		Dir:   state.config.Log.Dir,
		File:  state.config.Log.File,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "logging:init", "failed to initialise logging", err)
	}

	state.logger = logger
	platformlogging.DefaultLogger = logger

	source := state.configPath
	if source == "" {
		source = "defaults"
	}
	logger.InfoTag("BOOT", "logging ready [%s] config from %s", state.config.Log.Level, source)
	return nil
}

func initDatabaseStep(_ context.Context, state *appState) error {
	db, err := platformstorage.Open(state.config.Storage)
	if err != nil {
		return err
	}
	state.db = db
	state.logger.InfoTag("STORE", "database ready (%s)", state.config.Storage.DSN)
	return nil
}

func initBlobStoreStep(_ context.Context, state *appState) error {
	blobs, err := platformstorage.NewBlobStore(state.config.Storage.BlobDir)
	if err != nil {
		return err
	}
	state.blobs = blobs
	state.logger.InfoTag("STORE", "blob store ready (%s)", state.config.Storage.BlobDir)
	return nil
}

func initEventBusStep(_ context.Context, state *appState) error {
	logger := state.logger
	state.bus = eventbus.New(eventbus.WithDropCallback(func(topic string) {
		logger.WarnTag("EVENT", "queue full, dropped event on %s", topic)
	}))
	return eventbus.RegisterAuditLog(state.bus, logger)
}

func initAuthStep(_ context.Context, state *appState) error {
	if !state.config.Server.Auth.Enabled {
		state.logger.WarnTag("AUTH", "authentication disabled, api is open")
		return nil
	}
	auth, err := httpwebapi.NewAuthenticator(state.config.Server.Auth)
	if err != nil {
		return err
	}
	state.authenticator = auth
	return nil
}

func initPresignStep(_ context.Context, state *appState) error {
	signer, err := presign.NewSigner(state.config.Presign)
	if err != nil {
		return err
	}
	state.signer = signer

	cacheCfg := presigncache.Config{
		Driver: state.config.Presign.Cache.Driver,
		TTL:    state.config.Presign.Cache.TTL,
	}
	if redisCfg := state.config.Presign.Cache.Redis; redisCfg != nil {
		cacheCfg.Redis = &presigncache.RedisConfig{
			Addr:     redisCfg.Addr,
			Username: redisCfg.Username,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
			Prefix:   redisCfg.Prefix,
		}
	}
	if memCfg := state.config.Presign.Cache.Memory; memCfg != nil {
		cacheCfg.Memory = &presigncache.MemoryConfig{
			GCInterval: memCfg.GCInterval,
		}
	}
	urlCache, err := presigncache.New(cacheCfg)
	if err != nil {
		return err
	}
	state.urlCache = urlCache

	// Local deployments reissue against their own signer; multi-node setups
	// can delegate to a remote presign endpoint instead.
	var reissuer presign.Reissuer = signer
	if endpoint := state.config.Presign.RemoteEndpoint; endpoint != "" {
		remote, err := presign.NewHTTPReissuer(endpoint, state.config.Presign.RemoteToken)
		if err != nil {
			return err
		}
		reissuer = remote
		state.logger.InfoTag("PRESIGN", "reissuing via remote endpoint %s", endpoint)
	}

	state.refresher = presign.NewRefresher(urlCache, reissuer, state.logger)
	state.logger.InfoTag("PRESIGN", "url signing ready (cache driver %s)", cacheCfg.Driver)
	return nil
}

func initGeoTIFFStep(_ context.Context, state *appState) error {
	state.reassembler = geotiff.NewReassembler(
		state.config.GeoTIFF,
		platformstorage.NewChunkSessionRepository(state.db),
		platformstorage.NewResourceRepository(state.db),
		state.blobs,
		state.signer,
		state.bus,
		state.logger,
	)
	return nil
}

func startHTTPServer(
	state *appState,
	g *errgroup.Group,
	groupCtx context.Context,
) (*http.Server, error) {
	config := state.config
	logger := state.logger

	var authMiddleware gin.HandlerFunc
	if state.authenticator != nil {
		authMiddleware = state.authenticator.Middleware()
	}

	httpRouter, err := httptransport.Build(httptransport.Options{
		Config:         config,
		Logger:         logger,
		AuthMiddleware: authMiddleware,
	})
	if err != nil {
		return nil, err
	}
	router := httpRouter.Engine

	router.NoRoute(func(c *gin.Context) {
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api") {
			c.JSON(http.StatusNotFound, httptransport.APIResponse{
				Success: false,
				Data:    gin.H{},
				Message: "api not found",
				Code:    http.StatusNotFound,
			})
			return
		}
		if config.Web.Enabled {
			c.File(config.Web.StaticDir + "/index.html")
			return
		}
		c.Status(http.StatusNotFound)
	})

	webapiService := httpwebapi.NewService(
		config,
		logger,
		state.authenticator,
		platformstorage.NewUserRepository(state.db),
		platformstorage.NewCompanyRepository(state.db),
		platformstorage.NewAssetRepository(state.db),
		platformstorage.NewBookingRepository(state.db),
	)
	webapiService.Register(httpRouter)

	resourceService := httpresources.NewService(
		config,
		logger,
		imagery.NewValidator(&config.Upload, logger),
		state.blobs,
		platformstorage.NewResourceRepository(state.db),
		platformstorage.NewChunkSessionRepository(state.db),
		platformstorage.NewBookingRepository(state.db),
		state.signer,
		state.refresher,
		state.reassembler,
		state.bus,
	)
	resourceService.Register(httpRouter)

	httpServer := &http.Server{
		Addr:    state.config.Server.Host + ":" + strconv.Itoa(config.Server.Port),
		Handler: router,
	}

	g.Go(func() error {
		logger.InfoTag("HTTP", "listening on http://%s", httpServer.Addr)

		go func() {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.ErrorTag("HTTP", "http shutdown failed: %v", err)
			} else {
				logger.InfoTag("HTTP", "http server closed")
			}
		}()

		if err := httpServer.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			logger.ErrorTag("HTTP", "http server failed: %v", err)
			return err
		}
		return nil
	})

	return httpServer, nil
}

func waitForShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	logger *platformlogging.Logger,
	g *errgroup.Group,
) error {
	<-ctx.Done()
	logger.InfoTag("BOOT", "shutdown signal received (%v), cleaning up", context.Cause(ctx))

	cancel()

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.ErrorTag("BOOT", "error during shutdown: %v", err)
			return err
		}
		logger.InfoTag("BOOT", "all services stopped")
	case <-time.After(15 * time.Second):
		timeoutErr := stderrors.New("shutdown timed out")
		logger.ErrorTag("BOOT", "shutdown timed out, forcing exit")
		return timeoutErr
	}
	return nil
}
