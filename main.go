package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"chat-node/internal/config"
	"chat-node/internal/db"
	"chat-node/internal/directory"
	"chat-node/internal/files"
	grpcpeer "chat-node/internal/grpc"
	"chat-node/internal/handlers"
	"chat-node/internal/logger"
	"chat-node/internal/middleware"
	"chat-node/internal/observability"
	"chat-node/internal/rabbitmq"
	"chat-node/internal/repositories"
	"chat-node/internal/services"
	"chat-node/internal/store"
	"chat-node/internal/telemetry"
	"chat-node/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl, err := logger.New(logger.Config{Development: cfg.IsDevelopment(), NodeID: cfg.Node.ID})
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, cfg.Tracing.Endpoint, cfg.Tracing.ServiceName)
	if err != nil {
		zl.Fatal("failed to init tracer", zap.Error(err))
	}

	publisher := rabbitmq.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, zl)
	observability.SetPublisher(publisher)
	zl.Info("event publisher ready",
		zap.String("mode", rabbitmq.PublisherMode(publisher)),
		zap.String("noop_reason", rabbitmq.PublisherNoopReason(publisher)),
	)

	var (
		database  *sqlx.DB
		persister store.Persister
		nodes     services.NodeStore
	)
	if cfg.Database.DSN != "" {
		database, err = db.Connect(ctx, cfg.Database.DSN, zl)
		if err != nil {
			zl.Fatal("failed to connect to db", zap.Error(err))
		}
		persister = repositories.NewPersister(repositories.NewConversationRepo(database), repositories.NewMessageRepo(database))
		nodes = repositories.NewNodeRepo(database)
	} else {
		zl.Warn("database.dsn not set, state will not survive restarts")
	}

	nodeID, err := services.ResolveNodeID(ctx, cfg.Node.ID, nodes, zl)
	if err != nil {
		zl.Fatal("failed to resolve node identity", zap.Error(err))
	}
	if cfg.Node.ID == "" {
		zl = zl.With(zap.String("node_id", nodeID))
	}

	st := store.New(persister, zl)
	if err := st.Restore(ctx); err != nil {
		zl.Fatal("failed to restore conversations", zap.Error(err))
	}

	fileStore, err := newFileStore(ctx, cfg.Files)
	if err != nil {
		zl.Fatal("failed to init file store", zap.Error(err))
	}

	var resolver directory.Resolver = directory.NewStaticResolver(cfg.Peer.Peers, cfg.Peer.DefaultPort)
	var redisDir *directory.RedisDirectory
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		redisDir = directory.NewRedisDirectory(rdb, cfg.Redis.Prefix, cfg.Redis.TTL, resolver, zl)
		resolver = redisDir
		if cfg.Peer.AdvertiseAddr != "" {
			go redisDir.Heartbeat(ctx, nodeID, cfg.Peer.AdvertiseAddr)
		}
	}

	peerClient := grpcpeer.NewPeerClient(resolver, cfg.Peer.RetryMaxElapsed, zl)
	defer peerClient.Close()

	settings := services.Settings{
		NodeID:      nodeID,
		CallTimeout: cfg.Peer.Timeout,
		FileTimeout: cfg.Peer.FileTimeout,
		Parallelism: cfg.Peer.Parallelism,
		FilesRoot:   cfg.Files.Root,
	}
	messageSvc := services.NewMessageService(st, peerClient, settings, zl)
	groupSvc := services.NewGroupService(st, peerClient, settings, zl)
	fileSvc := services.NewFileService(fileStore, peerClient, settings, zl)
	querySvc := services.NewQueryService(st, nodeID)

	hub := ws.NewHub(zl)
	messageSvc.SetNotifier(hub)
	groupSvc.SetNotifier(hub)

	audit := telemetry.NewAuditEmitter(publisher, "audit.chat", cfg.Tracing.ServiceName, cfg.Environment, nodeID, zl)

	router := newRouter(cfg, zl, audit, hub, messageSvc, groupSvc, fileSvc, querySvc)
	httpServer := &http.Server{
		Addr:    ":" + cfg.HTTP.Port,
		Handler: router,
	}

	peerServer := grpcpeer.NewServer(grpcpeer.NewPeerServer(messageSvc, groupSvc, fileSvc, zl), zl)
	lis, err := net.Listen("tcp", ":"+cfg.Peer.Port)
	if err != nil {
		zl.Fatal("failed to listen for peers", zap.Error(err))
	}

	go func() {
		zl.Info("peer server listening", zap.String("addr", lis.Addr().String()))
		if err := peerServer.Serve(lis); err != nil {
			zl.Error("peer server stopped", zap.Error(err))
			stop()
		}
	}()

	go func() {
		zl.Info("http server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Error("http server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zl.Error("http server forced to shutdown", zap.Error(err))
	}
	peerServer.GracefulStop()

	if redisDir != nil && cfg.Peer.AdvertiseAddr != "" {
		if err := redisDir.Deregister(shutdownCtx, nodeID); err != nil {
			zl.Warn("failed to deregister from peer directory", zap.Error(err))
		}
	}
	if err := publisher.Close(); err != nil {
		zl.Warn("failed to close publisher", zap.Error(err))
	}
	if database != nil {
		_ = database.Close()
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		zl.Warn("failed to shutdown tracer", zap.Error(err))
	}
}

func newFileStore(ctx context.Context, cfg config.FilesConfig) (files.Store, error) {
	if cfg.Backend == config.FilesBackendS3 {
		return files.NewS3Store(ctx, cfg.S3Region, cfg.S3Bucket)
	}
	return files.NewOSStore(), nil
}

func newRouter(
	cfg config.Config,
	zl *zap.Logger,
	audit *telemetry.AuditEmitter,
	hub *ws.Hub,
	messageSvc *services.MessageService,
	groupSvc *services.GroupService,
	fileSvc *services.FileService,
	querySvc *services.QueryService,
) *gin.Engine {
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		gin.Recovery(),
		otelgin.Middleware(cfg.Tracing.ServiceName),
		middleware.RequestID(),
		observability.HTTPMetricsMiddleware(),
		middleware.AccessLog(zl),
	)

	messageHandler := handlers.NewMessageHandler(messageSvc, audit)
	groupHandler := handlers.NewGroupHandler(groupSvc, audit)
	fileHandler := handlers.NewFileHandler(fileSvc, audit)
	conversationHandler := handlers.NewConversationHandler(querySvc)
	liveHandler := ws.NewLiveHandler(hub, querySvc, zl)

	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(observability.MetricsHandler()))

	api := router.Group("/api")
	api.GET("/node", conversationHandler.Node)
	api.GET("/conversations", conversationHandler.ListConversations)
	api.GET("/conversations/:conversation_id/messages", conversationHandler.ListMessages)
	api.POST("/messages", messageHandler.SendMessage)
	api.POST("/groups", groupHandler.CreateGroup)
	api.POST("/groups/:group_id/members", groupHandler.AddMember)
	api.DELETE("/groups/:group_id/me", groupHandler.LeaveGroup)
	api.POST("/files", fileHandler.Upload)
	api.GET("/files/:file_id", fileHandler.Download)

	router.GET("/ws", liveHandler.HandleFeed)
	router.GET("/ws/conversations/:conversation_id", liveHandler.HandleConversation)

	handlers.RegisterDebugRoutes(router, audit, querySvc.NodeID(), cfg.Debug.Enabled)

	return router
}
