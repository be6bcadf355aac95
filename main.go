package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"mazeserver/auth"       //接続用トークンの発行と検証
	"mazeserver/database"   //設定の読み込みとPostgreSQL、Redisの初期化
	"mazeserver/handlers"   //HTTPリクエストの処理
	"mazeserver/lobby"      //ユーザー、招待、マッチメイキング、対戦の管理
	"mazeserver/migrations" //対戦履歴テーブルのマイグレーション
	"mazeserver/relay"      //WebSocketの中継
	"mazeserver/utils"      //ロガーの初期化とCronジョブ
)

// sessionStore はリレーとCronジョブの両方から使うセッションストア
type sessionStore interface {
	relay.SessionStore
	utils.SessionSweeper
}

func main() {
	logger, err := utils.InitLogger() // ロガーの初期化
	if err != nil {
		panic(err) // 失敗した場合はプログラム停止
	}
	defer logger.Sync() // ロガーのクリーンアップ

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.json"
	}
	config, err := database.LoadConfig(configPath)
	if err != nil {
		logger.Fatal("設定ファイルの読み込みに失敗しました", zap.Error(err))
	}

	opts := lobby.OptionsFromConfig(config)
	opts.Logger = logger

	// 対戦履歴はPostgreSQLが有効な場合のみ保存する
	var purger utils.HistoryPurger
	if config.DB.Enabled {
		db, err := database.InitPostgreSQL(config.DB, logger)
		if err != nil {
			logger.Fatal("PostgreSQLの初期化に失敗しました", zap.Error(err))
		}
		if err := migrations.Run(db, logger); err != nil {
			logger.Fatal("マイグレーションに失敗しました", zap.Error(err))
		}
		history := database.NewHistoryStore(db)
		opts.History = history
		purger = history
	}

	var sessions sessionStore
	if config.Redis.Enabled {
		rdb, err := database.InitRedis(config.Redis, logger)
		if err != nil {
			logger.Fatal("Failed to initialize Redis", zap.Error(err))
		}
		sessions = database.NewRedisSessionStore(rdb, logger)
	} else {
		sessions = database.NewMemorySessionStore(database.SessionTTL)
	}

	tokens := auth.NewTokenManager(config.Auth.JWTSecret, config.Auth.TokenTTL())

	lb, err := lobby.New(opts)
	if err != nil {
		logger.Fatal("Failed to create lobby", zap.Error(err))
	}

	hub := relay.NewHub(logger)
	lb.SetNotifier(hub)

	relayConfig := relay.DefaultConfig()
	relayConfig.AllowOrigins = config.Server.AllowOrigins
	rs := relay.NewServer(hub, lb, sessions, tokens, relayConfig, logger)

	// クーロンスケジューラのセットアップ
	retention := time.Duration(config.History.RetentionDays) * 24 * time.Hour
	scheduler, err := utils.StartCronJobs(lb, sessions, purger, retention, logger)
	if err != nil {
		logger.Fatal("Failed to start cron jobs", zap.Error(err))
	}
	defer scheduler.Stop()

	router := handlers.NewRouter(config.Server.AllowOrigins, lb, tokens, rs, logger)
	srv := &http.Server{
		Addr:    config.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Info("Server listening", zap.String("Addr", config.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to run HTTP server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), config.Server.ShutdownGrace()+5*time.Second)
	defer cancel()

	// 接続中のクライアントにサーバー停止を通知してから閉じる
	rs.Shutdown(ctx, config.Server.ShutdownGrace())
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
}
