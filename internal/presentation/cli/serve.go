package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Zhima-Mochi/colleshop/internal/application/checkout"
	appInventory "github.com/Zhima-Mochi/colleshop/internal/application/inventory"
	appNotification "github.com/Zhima-Mochi/colleshop/internal/application/notification"
	appOrder "github.com/Zhima-Mochi/colleshop/internal/application/order"
	appPayment "github.com/Zhima-Mochi/colleshop/internal/application/payment"
	"github.com/Zhima-Mochi/colleshop/internal/config"
	domnotif "github.com/Zhima-Mochi/colleshop/internal/domain/notification"
	dompay "github.com/Zhima-Mochi/colleshop/internal/domain/payment"
	"github.com/Zhima-Mochi/colleshop/internal/infrastructure/id"
	kafkanotifier "github.com/Zhima-Mochi/colleshop/internal/infrastructure/notifier/kafka"
	lognotifier "github.com/Zhima-Mochi/colleshop/internal/infrastructure/notifier/log"
	infraobs "github.com/Zhima-Mochi/colleshop/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/colleshop/internal/infrastructure/observability/telemetry"
	"github.com/Zhima-Mochi/colleshop/internal/infrastructure/outbox"
	stripegw "github.com/Zhima-Mochi/colleshop/internal/infrastructure/payment/stripe"
	"github.com/Zhima-Mochi/colleshop/internal/observability"
	"github.com/Zhima-Mochi/colleshop/internal/pkg/logging"
	httppresentation "github.com/Zhima-Mochi/colleshop/internal/presentation/http"
	workerpresentation "github.com/Zhima-Mochi/colleshop/internal/presentation/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const otelScope = "github.com/Zhima-Mochi/colleshop"

func newServeCommand(opts *rootOptions, version string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the notification worker",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts, version)
		},
	}
}

func runServe(parent context.Context, opts *rootOptions, version string) error {
	cfg, err := opts.load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: version,
		Environment:    cfg.Env,
		Endpoint:       cfg.OTelEndpoint,
		AuthHeader:     cfg.OTelAuthHeader,
		Insecure:       cfg.OTelInsecure,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	baseLogger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)
	systemLogger := logging.WithTrace(baseLogger, logging.SystemTraceID, logging.SystemSpanID)

	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(sctx); err != nil {
			systemLogger.Error("telemetry_shutdown_error", zap.Error(err))
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	tel := infraobs.NewService(cfg.ServiceName, baseLogger, registry)

	st, err := openStores(ctx, cfg, systemLogger)
	if err != nil {
		return err
	}
	defer st.close()

	notifier, closeNotifier := newNotifier(cfg, tel, systemLogger)
	defer func() {
		if err := closeNotifier(); err != nil {
			systemLogger.Error("notifier_close_error", zap.Error(err))
		}
	}()

	gateway, err := newGateway(cfg)
	if err != nil {
		return err
	}

	bus := outbox.NewBus(tel.Logger(), tel)
	ids := id.NewUUIDGenerator()
	ledger := appInventory.NewLedger(st.products, tel)
	intents := appPayment.NewIntentService(gateway, ids, cfg.Payment(), tel)

	notifications := appNotification.NewService(notifier, cfg.NotifyTimeout, tel)
	workerpresentation.NewNotificationWorker(bus, notifications, tel).Start()
	bus.Start(ctx)

	checkoutUC := checkout.NewUseCase(checkout.Deps{
		Products:  st.products,
		Settings:  st.settings,
		Users:     st.users,
		Orders:    st.orders,
		Ledger:    ledger,
		Payments:  intents,
		IDs:       ids,
		Publisher: bus,
	}, tel)
	setStatusUC := appOrder.NewSetStatusUseCase(st.orders, ledger, bus, tel)
	queries := appOrder.NewQueryService(st.orders, tel, appOrder.WithDirectory(st.users, st.products))

	var handlerOpts []httppresentation.Option
	if st.ping != nil {
		handlerOpts = append(handlerOpts, httppresentation.WithReadiness(st.ping))
	}
	handler := httppresentation.NewHandler(checkoutUC, setStatusUC, queries,
		httppresentation.NewHeaderAuthenticator(st.users), tel, handlerOpts...)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		systemLogger.Info("http_server_start",
			zap.String("addr", server.Addr),
			zap.String("payment_mode", string(intents.Mode())),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serverErr:
		systemLogger.Error("http_server_error", zap.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		systemLogger.Error("http_server_shutdown_error", zap.Error(err))
	} else {
		systemLogger.Info("http_server_stopped")
	}
	// Drain pending notifications before the notifier closes.
	bus.Stop(shutdownCtx)
	return runErr
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	opts := []logging.Option{logging.WithLevel(level)}
	if cfg.OTelEndpoint != "" {
		opts = append(opts, logging.WithOTelExport(otelScope))
	}
	logger, err := logging.NewLogger(cfg.ServiceName, cfg.Env, opts...)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return logger, nil
}

// newGateway returns nil in mock mode so the intent service never dials out.
func newGateway(cfg *config.Config) (dompay.Gateway, error) {
	if cfg.Payment().Mode != appPayment.ModeStripe {
		return nil, nil
	}
	g, err := stripegw.New(cfg.StripeSecretKey)
	if err != nil {
		return nil, fmt.Errorf("payment gateway: %w", err)
	}
	return g, nil
}

// newNotifier publishes to Kafka when brokers are configured and logs otherwise.
func newNotifier(cfg *config.Config, tel observability.Observability, log *zap.Logger) (domnotif.Notifier, func() error) {
	brokers := kafkanotifier.Brokers(cfg.KafkaBrokers)
	if len(brokers) == 0 {
		log.Warn("notifier_log_only", zap.String("reason", "KAFKA_BROKERS not set"))
		return lognotifier.New(tel.Logger()), func() error { return nil }
	}
	n := kafkanotifier.New(brokers, cfg.NotificationTopic)
	log.Info("notifier_kafka", zap.Strings("brokers", brokers), zap.String("topic", cfg.NotificationTopic))
	return n, n.Close
}
