package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/pribylovaa/go-tourism-gateway/internal/authz"
	"github.com/pribylovaa/go-tourism-gateway/internal/config"
	"github.com/pribylovaa/go-tourism-gateway/internal/federation"
	"github.com/pribylovaa/go-tourism-gateway/internal/hasher"
	gwhttp "github.com/pribylovaa/go-tourism-gateway/internal/http"
	"github.com/pribylovaa/go-tourism-gateway/internal/interceptors"
	"github.com/pribylovaa/go-tourism-gateway/internal/metrics"
	"github.com/pribylovaa/go-tourism-gateway/internal/ratelimit"
	"github.com/pribylovaa/go-tourism-gateway/internal/service"
	"github.com/pribylovaa/go-tourism-gateway/internal/storage/postgres"
	"github.com/pribylovaa/go-tourism-gateway/internal/token"
	gwgrpc "github.com/pribylovaa/go-tourism-gateway/internal/transport/grpc"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting auth-gateway", slog.String("env", cfg.Env))

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	// Хранилище.
	str, err := postgres.New(rootCtx, cfg.DB.DatabaseURL)
	if err != nil {
		log.Error("postgres_connect_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer str.Close()
	log.Info("postgres_connected")

	// Токены.
	tokens, err := token.NewManager(token.Config{
		Secret:     []byte(cfg.Auth.JWTSecret),
		Issuer:     cfg.Auth.Issuer,
		Audience:   cfg.Auth.Audience,
		AccessTTL:  cfg.Auth.AccessTokenTTL,
		RefreshTTL: cfg.Auth.RefreshTokenTTL,
		Leeway:     cfg.Auth.Leeway,
	})
	if err != nil {
		log.Error("token_manager_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	// Сервис.
	svc := service.New(str, str, hasher.New(cfg.Auth.BcryptCost), tokens, service.Config{
		SignInAccessOnly:     cfg.Auth.SignInAccessOnly,
		AllowUnverifiedEmail: cfg.Google.AllowUnverifiedEmail,
	})

	if cfg.Google.Enabled() {
		google, err := federation.NewGoogleVerifier(federation.GoogleConfig{
			ClientID: cfg.Google.ClientID,
			JWKSURL:  cfg.Google.JWKSURL,
			Issuers:  cfg.Google.Issuers,
			Leeway:   cfg.Auth.Leeway,
		})
		if err != nil {
			log.Error("google_verifier_init_failed", slog.String("err", err.Error()))
			os.Exit(1)
		}
		svc.SetFederatedVerifier(google)
		log.Info("google_sign_in_enabled")
	} else {
		log.Warn("google_sign_in_disabled")
	}
	log.Info("service_initialized")

	// Лимитер: Redis, если задан, иначе в памяти процесса.
	rlCfg := ratelimit.Config{
		Limit:  cfg.RateLimit.Limit,
		Window: cfg.RateLimit.Window,
		Prefix: cfg.RateLimit.Prefix,
	}
	var limiter ratelimit.Limiter = ratelimit.NewMemory(rlCfg)
	if cfg.Redis.RedisURL != "" {
		rl, err := ratelimit.NewRedis(rootCtx, cfg.Redis.RedisURL, rlCfg)
		if err != nil {
			log.Error("redis_connect_failed", slog.String("err", err.Error()))
			os.Exit(1)
		}
		defer func() {
			if cerr := rl.Close(); cerr != nil {
				log.Warn("redis_close_failed", slog.String("err", cerr.Error()))
			}
		}()
		limiter = rl
		log.Info("redis_connected")
	}

	// Метрики и конвейер авторизации.
	m := metrics.New(prometheus.DefaultRegisterer)
	pipeline := authz.New(tokens, authz.WithRecorder(m))

	apiHandler := gwhttp.NewRouter(svc, pipeline, gwhttp.Options{
		Logger:     log,
		Timeout:    cfg.Timeouts.Service,
		TrustProxy: cfg.HTTP.TrustProxy,
		Limiter:    limiter,
		Metrics:    m,
	})

	var ready int32 // 0 — not ready; 1 — ready

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if atomic.LoadInt32(&ready) != 1 {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := str.Ping(ctx); err != nil {
			http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", metrics.Handler(prometheus.DefaultGatherer))
	mux.Handle("/", apiHandler)

	httpAddr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	httpLn, err := net.Listen("tcp", httpAddr)
	if err != nil {
		log.Error("http_listen_failed", slog.String("addr", httpAddr), slog.String("err", err.Error()))
		os.Exit(1)
	}
	log.Info("http_listen_start", slog.String("addr", httpAddr))

	grpc_prometheus.EnableHandlingTimeHistogram()

	// gRPC-сервер и интерсепторы.
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			interceptors.Recover(log),
			interceptors.UnaryLoggingInterceptor(log),
			interceptors.WithTimeout(cfg.Timeouts.Service),
			grpc_prometheus.UnaryServerInterceptor,
		),
		grpc.ChainStreamInterceptor(
			grpc_prometheus.StreamServerInterceptor,
		),
	)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)

	gwgrpc.RegisterIdentityServiceServer(grpcServer, gwgrpc.NewIdentityServer(tokens))

	// Рефлексия — только в local/dev.
	if cfg.Env == envLocal || cfg.Env == envDev {
		reflection.Register(grpcServer)
	}

	grpc_prometheus.Register(grpcServer)

	grpcAddr := cfg.GRPC.Addr()
	grpcLn, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		log.Error("grpc_listen_failed", slog.String("addr", grpcAddr), slog.String("err", err.Error()))
		_ = httpLn.Close()
		os.Exit(1)
	}
	log.Info("grpc_listen_start", slog.String("addr", grpcAddr))

	serveErrCh := make(chan error, 2)
	go func() {
		if err := httpSrv.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
	}()
	go func() {
		if err := grpcServer.Serve(grpcLn); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			serveErrCh <- err
		}
	}()

	// Сервис готов: health -> SERVING и readiness=1
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(gwgrpc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	atomic.StoreInt32(&ready, 1)
	log.Info("gateway_ready")

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		log.Error("serve_failed", slog.String("err", err.Error()))
	}

	// Переводим в NOT_SERVING и снимаем ready.
	hs.Shutdown()
	atomic.StoreInt32(&ready, 0)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
	} else {
		log.Info("http_stopped")
	}

	done := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		log.Info("grpc_stopped")
	case <-shutdownCtx.Done():
		log.Warn("grpc_force_stop")
		grpcServer.Stop()
	}

	log.Info("service_stopped")
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
