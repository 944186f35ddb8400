package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rentcore/internal/clients/bgcheck"
	"rentcore/internal/clients/creditbureau"
	"rentcore/internal/clients/processor"
	intconfig "rentcore/internal/config"
	"rentcore/internal/events"
	router "rentcore/internal/http"
	"rentcore/internal/http/handlers"
	"rentcore/internal/obs"
	"rentcore/internal/repositories"
	"rentcore/internal/services"
	"rentcore/internal/utils"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	env, err := intconfig.LoadEnv()
	if err != nil {
		return err
	}
	logger, err := utils.InitLogger(env.IsProduction())
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if env.GinMode != "" {
		gin.SetMode(env.GinMode)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	shutdownTracer, err := obs.InitTracer(ctx, "rentcore", env.AppEnv, env.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(sctx); err != nil {
			zap.L().Warn("tracer shutdown", zap.Error(err))
		}
	}()

	db, err := intconfig.ConnectDB(env.DSN())
	if err != nil {
		return err
	}
	defer intconfig.CloseDB()

	rdb := intconfig.ConnectRedis(env)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	var publisher events.Publisher = events.Noop{}
	if env.AMQPURL != "" {
		amqpPub, err := events.NewPublisher(env.AMQPURL, env.AMQPExchange)
		if err != nil {
			zap.L().Warn("event broker unavailable, events are dropped", zap.Error(err))
		} else {
			defer func() { _ = amqpPub.Close() }()
			publisher = amqpPub
		}
	}

	feeRate, err := env.PlatformFee()
	if err != nil {
		return err
	}

	agreements := repositories.AgreementRepository{DB: db}
	users := repositories.UserRepository{DB: db}
	bookings := services.BookingService{
		Agreements: agreements,
		Signatures: agreements,
		Bookings:   repositories.BookingRepository{DB: db},
		Events:     publisher,
	}
	hd := &handlers.Handler{
		Screenings: services.ScreeningService{
			Credits:        repositories.PurchaseCreditRepository{DB: db},
			Records:        repositories.ScreeningRepository{DB: db},
			Bureau:         creditbureau.NewClient(env.CreditBureauURL, env.CreditBureauKey, env.CreditBureauSecret, env.VendorTimeout),
			Background:     bgcheck.NewClient(env.BGCheckURL, env.BGCheckAccount, env.BGCheckPassword, env.VendorTimeout),
			Events:         publisher,
			FingerprintKey: []byte(env.FingerprintKey),
		},
		Payments: services.PaymentService{
			Agreements: agreements,
			Users:      users,
			Payouts:    users,
			Processor:  processor.NewStripe(env.StripeSecretKey),
			Bookings:   bookings,
		},
		Bookings:        bookings,
		WebhookSecret:   []byte(env.WebhookSecret),
		PlatformFeeRate: feeRate,
	}

	srv := &http.Server{
		Addr:              env.AppAddr,
		Handler:           router.NewRouter(env, hd, rdb),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      env.VendorTimeout + 20*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("server listening", zap.String("addr", env.AppAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	zap.L().Info("shutting down server")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	zap.L().Info("server stopped")
	return nil
}
