package main

import (
	"context"
	"os"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/tashkeelhq/tashkeel/modules/annotate"
	"github.com/tashkeelhq/tashkeel/modules/auth"
	"github.com/tashkeelhq/tashkeel/modules/billing"
	"github.com/tashkeelhq/tashkeel/modules/guard"
	"github.com/tashkeelhq/tashkeel/modules/profile"
	"github.com/tashkeelhq/tashkeel/pkg/config"
	"github.com/tashkeelhq/tashkeel/pkg/httpserver"
	"github.com/tashkeelhq/tashkeel/pkg/logger"
	"github.com/tashkeelhq/tashkeel/pkg/pg"
	"github.com/tashkeelhq/tashkeel/pkg/redis"
	"github.com/tashkeelhq/tashkeel/pkg/requestid"
)

type appConfig struct {
	Environment string `env:"APP_ENV" envDefault:"development"`
	ServiceName string `env:"APP_NAME" envDefault:"tashkeel"`
}

func main() {
	ctx := context.Background()

	var (
		appCfg      appConfig
		pgCfg       pg.Config
		redisCfg    redis.Config
		httpCfg     httpserver.Config
		authCfg     auth.Config
		billingCfg  billing.Config
		annotateCfg annotate.Config
	)
	config.MustLoad(&appCfg)
	config.MustLoad(&pgCfg)
	config.MustLoad(&redisCfg)
	config.MustLoad(&httpCfg)
	config.MustLoad(&authCfg)
	config.MustLoad(&billingCfg)
	config.MustLoad(&annotateCfg)

	log := logger.New(
		logger.WithEnvironment(appCfg.Environment, appCfg.ServiceName),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	)
	logger.SetAsDefault(log)

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		log.ErrorContext(ctx, "Failed to connect to postgres", logger.Error(err))
		os.Exit(1)
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		log.ErrorContext(ctx, "Failed to apply migrations", logger.Error(err))
		os.Exit(1)
	}

	redisClient, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		log.ErrorContext(ctx, "Failed to connect to redis", logger.Error(err))
		os.Exit(1)
	}
	defer redisClient.Close()

	catalog := billing.DefaultCatalog()
	if billingCfg.PlansPath != "" {
		catalog, err = billing.LoadCatalog(billingCfg.PlansPath)
		if err != nil {
			log.ErrorContext(ctx, "Failed to load plan catalog", logger.Error(err))
			os.Exit(1)
		}
	}

	profiles := profile.NewRepository(pool)
	dedup := billing.NewInvoiceDedup(redisClient, billingCfg.DedupTTL)

	recOpts := []billing.ReconcilerOption{billing.WithDedupStore(dedup)}
	if billingCfg.ExtendFromEndDate {
		recOpts = append(recOpts, billing.WithExtendFromEndDate())
	}
	reconciler := billing.NewReconciler(profiles, catalog, log, recOpts...)
	sweeper := billing.NewSweeper(profiles, catalog, log)

	subscriptionGuard := guard.New(profiles, guard.WithGraceDays(catalog.Pro.GraceDays))
	annotator := annotate.NewClient(annotateCfg)

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", httpserver.HealthCheckHandler(ctx, log,
		pg.Healthcheck(pool),
		redis.Healthcheck(redisClient),
	))

	r.Mount("/", billing.Router(reconciler, sweeper, billingCfg, log))

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(authCfg.SigningKey, log))

		r.Get("/me/subscription", guard.StatusHandler(subscriptionGuard, auth.UserIDFromContext))

		r.With(guard.AllowWithDailyLimit(
			subscriptionGuard, profiles, catalog.Free.DailyLimit, auth.UserIDFromContext, log,
		)).Post("/annotate", annotate.Handler(annotator, log))
	})

	srv := httpserver.NewFromConfig(httpCfg,
		httpserver.WithLogger(log),
	)
	if err := srv.Run(ctx, r); err != nil {
		log.ErrorContext(ctx, "Server stopped with error", logger.Error(err))
		os.Exit(1)
	}
}
