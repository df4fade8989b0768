package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"tokengate/internal/authz"
	"tokengate/internal/compliance"
	"tokengate/internal/compliance/aggregator"
	compliancehandler "tokengate/internal/compliance/handler"
	compliancemetrics "tokengate/internal/compliance/metrics"
	"tokengate/internal/compliance/ports"
	"tokengate/internal/compliance/rules/accredited"
	"tokengate/internal/compliance/rules/geographic"
	"tokengate/internal/compliance/rules/holdingperiod"
	"tokengate/internal/compliance/rules/investorlimit"
	"tokengate/internal/compliance/rules/transferlimit"
	statusstore "tokengate/internal/compliance/store/status"
	"tokengate/internal/event"
	eventhandler "tokengate/internal/event/handler"
	"tokengate/internal/event/publisher/kafka"
	eventmemory "tokengate/internal/event/store/memory"
	eventpostgres "tokengate/internal/event/store/postgres"
	eventworker "tokengate/internal/event/worker"
	identityhandler "tokengate/internal/identity/handler"
	identityports "tokengate/internal/identity/ports"
	identityservice "tokengate/internal/identity/service"
	identitymemory "tokengate/internal/identity/store/memory"
	identitypostgres "tokengate/internal/identity/store/postgres"
	"tokengate/internal/jwttoken"
	"tokengate/internal/ledger"
	"tokengate/internal/ledger/coordinator"
	ledgerhandler "tokengate/internal/ledger/handler"
	"tokengate/internal/platform/config"
	"tokengate/internal/platform/httpserver"
	"tokengate/internal/platform/logger"
	platformpostgres "tokengate/internal/platform/postgres"
	platformredis "tokengate/internal/platform/redis"
	"tokengate/pkg/domain"
	authmw "tokengate/pkg/platform/middleware/auth"
	"tokengate/pkg/platform/middleware/requestid"
	"tokengate/pkg/platform/middleware/requesttime"
	"tokengate/pkg/requestcontext"
)

// main wires storage, the rule set and the HTTP surface. Business logic
// lives in the internal services; everything here is assembly.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "tokengate: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()

	owner, err := domain.ParseAddress(cfg.OwnerAddress)
	if err != nil {
		return fmt.Errorf("TOKENGATE_OWNER_ADDRESS: %w", err)
	}
	registry, err := authz.New(owner)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage backends. Empty URLs fall back to in-memory stores.
	db, err := platformpostgres.Open(cfg.PostgresURL)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	if db != nil {
		defer db.Close()
	}
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var eventStore event.Store
	var identityStore identityports.Store
	if db != nil {
		identityStore = identitypostgres.New(db)
		eventStore = eventpostgres.New(db)
	} else {
		identityStore = identitymemory.New()
		eventStore = eventmemory.New()
	}
	var statuses ports.StatusStore
	if redisClient != nil {
		statuses = statusstore.NewRedis(redisClient)
	} else {
		statuses = statusstore.New()
	}

	events, err := event.NewService(eventStore, event.WithLogger(log))
	if err != nil {
		return err
	}

	identities, err := identityservice.New(identityStore, registry,
		identityservice.WithLogger(log), identityservice.WithEvents(events))
	if err != nil {
		return err
	}

	metrics := compliancemetrics.New()
	rules, err := aggregator.New(statuses, registry,
		aggregator.WithLogger(log), aggregator.WithMetrics(metrics))
	if err != nil {
		return err
	}

	balances := ledger.NewMemory()
	holding, err := installRules(ctx, cfg.Rules, owner, rules, identities, balances, registry)
	if err != nil {
		return fmt.Errorf("install rules: %w", err)
	}

	transfers, err := coordinator.New(balances, rules,
		coordinator.WithLogger(log), coordinator.WithEvents(events))
	if err != nil {
		return err
	}

	tokens := jwttoken.New(cfg.JWTSigningKey, "tokengate")

	router := chi.NewRouter()
	router.Use(chimiddleware.Recoverer)
	router.Use(requestid.Middleware)
	router.Use(requesttime.Middleware)
	router.Use(authmw.Middleware(tokens, log))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	identityhandler.New(identities, log).Register(router)
	eventhandler.New(events, log).Register(router)
	ledgerhandler.New(transfers, log).Register(router)

	complianceOpts := []compliancehandler.Option{}
	if holding != nil {
		complianceOpts = append(complianceOpts, compliancehandler.WithHoldingInspector(holding))
	}
	compliancehandler.New(rules, log, complianceOpts...).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	group, ctx := errgroup.WithContext(ctx)

	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := kafka.New(ctx, cfg.Kafka.Brokers,
			kafka.WithLogger(log), kafka.WithTopic(cfg.Kafka.Topic))
		if err != nil {
			return fmt.Errorf("kafka: %w", err)
		}
		defer publisher.Close()
		worker := eventworker.New(publisher, events.Outbox(), eventworker.WithLogger(log))
		group.Go(func() error {
			if err := worker.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		})
	}

	group.Go(func() error {
		log.Info("starting tokengate", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

// installRules builds the rule set from configuration and registers each
// rule with the aggregator. Only configured rules are deployed. Returns the
// holding period rule for the lock projection endpoint, nil when not
// configured.
func installRules(
	ctx context.Context,
	cfg config.RulesConfig,
	owner domain.Address,
	rules *aggregator.Service,
	identities ports.IdentityReader,
	balances ports.BalanceReader,
	registry *authz.Registry,
) (*holdingperiod.Rule, error) {
	// Registration requires an authorized caller; boot acts as the owner.
	ctx = requestcontext.WithCaller(ctx, owner)

	add := func(rule compliance.Rule, err error) error {
		if err != nil {
			return err
		}
		return rules.AddRule(ctx, rule)
	}

	if cfg.MaxInvestors > 0 {
		rule, err := investorlimit.New(cfg.MaxInvestors, balances, registry)
		if err := add(rule, err); err != nil {
			return nil, err
		}
	}
	if cfg.GeographicMode != "" {
		mode, err := geographic.ParseMode(cfg.GeographicMode)
		if err != nil {
			return nil, err
		}
		rule, err := geographic.New(mode, identities, registry)
		if err := add(rule, err); err != nil {
			return nil, err
		}
	}
	if cfg.MinLevel != "" {
		level, err := domain.ParseVerificationLevel(cfg.MinLevel)
		if err != nil {
			return nil, err
		}
		rule, err := accredited.New(level, identities, registry)
		if err := add(rule, err); err != nil {
			return nil, err
		}
	}
	var holding *holdingperiod.Rule
	if cfg.HoldingPeriod > 0 {
		rule, err := holdingperiod.New(cfg.HoldingPeriod, registry)
		if err := add(rule, err); err != nil {
			return nil, err
		}
		holding = rule
	}
	if cfg.MaxTokensPerInv > 0 || cfg.MaxInvestmentUSD > 0 {
		rule, err := transferlimit.New(transferlimit.Config{
			MaxTokensPerInvestor: domain.Amount(cfg.MaxTokensPerInv),
			MaxInvestmentCents:   domain.Cents(cfg.MaxInvestmentUSD),
			UnitPriceCents:       domain.Cents(cfg.UnitPriceUSDCents),
		}, balances, registry)
		if err := add(rule, err); err != nil {
			return nil, err
		}
	}
	return holding, nil
}
