package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/linlinbupt123-crypto/chat_wallet/api"
	"github.com/linlinbupt123-crypto/chat_wallet/chain"
	"github.com/linlinbupt123-crypto/chat_wallet/config"
	"github.com/linlinbupt123-crypto/chat_wallet/db"
	"github.com/linlinbupt123-crypto/chat_wallet/domain"
	"github.com/linlinbupt123-crypto/chat_wallet/logger"
	"github.com/linlinbupt123-crypto/chat_wallet/repository"
	"github.com/linlinbupt123-crypto/chat_wallet/service"
)

func main() {
	cfgPath := flag.String("config", "config/config.yaml", "path to the YAML config")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.New(os.Stderr, "error", "json").Error("load config", "err", err)
		os.Exit(1)
	}
	log := logger.New(os.Stdout, cfg.LogLevel, cfg.LogFmt)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. MongoDB
	mongoRepo, err := db.NewMongoRepo(ctx, cfg.Secrets.MongoURI, cfg.Mongo.Database)
	if err != nil {
		log.Error("connect mongo", "err", err)
		os.Exit(1)
	}
	defer mongoRepo.Close(context.Background())
	if err := db.EnsureIndexes(ctx, mongoRepo.DB); err != nil {
		log.Error("ensure indexes", "err", err)
		os.Exit(1)
	}
	store := repository.NewStore(mongoRepo)

	// 2. chains
	registry, dialed, err := chain.DialAll(ctx, cfg.Chains, cfg.Confirm.PollInterval, log)
	if err != nil {
		log.Error("dial chains", "err", err)
		os.Exit(1)
	}
	defer func() {
		for _, c := range dialed {
			c.Close()
		}
	}()
	ens := dialed[strings.ToLower(cfg.ENSChain)]

	// 3. domain
	cipher := domain.NewKeyCipher(cfg.Cipher.ScryptN)
	passphrase := cfg.Secrets.EncryptionKey
	names := domain.NewNameResolver(ens, ens, log)
	provisioner := domain.NewWalletProvisioner(store, cipher, passphrase, registry, log)
	executor := domain.NewTransferExecutor(store, registry, names, cipher, passphrase, log)
	executor.ConfirmTimeout = cfg.Confirm.Timeout

	walletService := service.NewWalletService(store, registry, provisioner, executor, names, log)

	// 4. Gin
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), api.RequestLogger(log))
	api.NewWalletHandler(walletService, log).Register(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("wallet service listening", "addr", srv.Addr, "chains", registry.Chains())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server start failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", "err", err)
	}
}
