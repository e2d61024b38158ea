package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	backtestapp "github.com/wyfcoding/tradingbot/internal/backtest/application"
	backtestdomain "github.com/wyfcoding/tradingbot/internal/backtest/domain"
	backtestmysql "github.com/wyfcoding/tradingbot/internal/backtest/infrastructure/persistence/mysql"
	"github.com/wyfcoding/tradingbot/internal/backtest/infrastructure/messaging"
	backtestifaces "github.com/wyfcoding/tradingbot/internal/backtest/interfaces"
	botapp "github.com/wyfcoding/tradingbot/internal/bot/application"
	botdomain "github.com/wyfcoding/tradingbot/internal/bot/domain"
	botmysql "github.com/wyfcoding/tradingbot/internal/bot/infrastructure/persistence/mysql"
	botifaces "github.com/wyfcoding/tradingbot/internal/bot/interfaces"
	execapp "github.com/wyfcoding/tradingbot/internal/execution/application"
	execdomain "github.com/wyfcoding/tradingbot/internal/execution/domain"
	execinfra "github.com/wyfcoding/tradingbot/internal/execution/infrastructure"
	execmysql "github.com/wyfcoding/tradingbot/internal/execution/infrastructure/persistence/mysql"
	execifaces "github.com/wyfcoding/tradingbot/internal/execution/interfaces"
	marketdomain "github.com/wyfcoding/tradingbot/internal/marketdata/domain"
	marketinfra "github.com/wyfcoding/tradingbot/internal/marketdata/infrastructure"
	portfolioapp "github.com/wyfcoding/tradingbot/internal/portfolio/application"
	portfoliodomain "github.com/wyfcoding/tradingbot/internal/portfolio/domain"
	portfoliomysql "github.com/wyfcoding/tradingbot/internal/portfolio/infrastructure/persistence/mysql"
	portfolioifaces "github.com/wyfcoding/tradingbot/internal/portfolio/interfaces"
	"github.com/wyfcoding/tradingbot/pkg/cache"
	"github.com/wyfcoding/tradingbot/pkg/config"
	"github.com/wyfcoding/tradingbot/pkg/db"
	"github.com/wyfcoding/tradingbot/pkg/logger"
	"github.com/wyfcoding/tradingbot/pkg/metrics"
	"github.com/wyfcoding/tradingbot/pkg/middleware"
	"github.com/wyfcoding/tradingbot/pkg/mq"
)

func main() {
	configPath := flag.String("config", "configs/config.toml", "配置文件路径")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("service exited with error", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	// 1. 配置与日志
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(cfg.Logger); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	bootLog := logger.Module("bootstrap")
	bootLog.Info("启动中", "service", cfg.ServiceName, "environment", cfg.Environment)

	// 2. 指标
	m := metrics.New(cfg.ServiceName)
	if cfg.Metrics.Enabled {
		metrics.StartHTTPServer(cfg.Metrics.Port, cfg.Metrics.Path)
	}

	// 3. 数据库
	database, err := db.Init(cfg.Database)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer database.Close()

	if err := database.AutoMigrate(
		&botdomain.Bot{},
		&botdomain.Position{},
		&botdomain.Trade{},
		&execdomain.ExecutionReport{},
		&portfoliodomain.PortfolioSnapshot{},
		&backtestdomain.BacktestRun{},
	); err != nil {
		return fmt.Errorf("migrate tables: %w", err)
	}

	// 4. 价格源降级链：券商实时报价优先，供应商兜底
	var brokerSource marketdomain.PriceSource = marketinfra.NewBrokerSource(cfg.Execution.BrokerAddr, cfg.Execution.BrokerAPIKey)
	vendorSource := marketinfra.NewVendorSource(cfg.MarketData.VendorAddr, cfg.MarketData.VendorAPIKey)
	var vendorPriceSource marketdomain.PriceSource = vendorSource

	if cfg.Redis.Enabled {
		redisCache, err := cache.New(cfg.Redis)
		if err != nil {
			return fmt.Errorf("init redis: %w", err)
		}
		defer redisCache.Close()
		ttl := time.Duration(cfg.Redis.PriceTTL) * time.Millisecond
		brokerSource = marketinfra.NewCachedSource(brokerSource, redisCache, ttl)
		vendorPriceSource = marketinfra.NewCachedSource(vendorPriceSource, redisCache, ttl)
	}

	resolver := marketdomain.NewChainResolver(cfg.MarketData.Timeout(), logger.Module("marketdata"), brokerSource, vendorPriceSource)
	resolver.SetObserver(func(source, result string) {
		m.PriceResolveTotal.WithLabelValues(source, result).Inc()
	})

	// 5. 回测事件总线与 Kafka 外发桥
	bus := backtestdomain.NewEventBus()
	bus.SetSubscriptionGauge(m.ActiveSubscriptions)

	if cfg.Kafka.Enabled {
		producer := mq.NewProducer(cfg.Kafka)
		defer producer.Close()
		bridge := messaging.NewKafkaBridge(bus, producer, cfg.Kafka.BacktestTopic, logger.Module("messaging"))
		defer bridge.Close()
	}

	// 6. 仓储
	botRepo := botmysql.NewBotRepository(database.DB)
	positionRepo := botmysql.NewPositionRepository(database.DB)
	tradeRepo := botmysql.NewTradeRepository(database.DB)
	settlementRepo := botmysql.NewSettlementRepository(database.DB)
	reportRepo := execmysql.NewReportRepository(database)
	snapshotRepo := portfoliomysql.NewSnapshotRepository(database)
	runRepo := backtestmysql.NewRunRepository(database)

	// 7. 领域组件与应用服务
	cmdService := botapp.NewCommandService(botRepo, logger.Module("bot"))
	queryService := botapp.NewQueryService(botRepo, positionRepo, tradeRepo, logger.Module("bot"))

	aggregator := portfoliodomain.NewAggregator(resolver, positionRepo, logger.Module("portfolio"))
	portfolioService := portfolioapp.NewPortfolioService(aggregator, botRepo, snapshotRepo, logger.Module("portfolio"))

	snapshotCtx, stopSnapshots := context.WithCancel(context.Background())
	defer stopSnapshots()
	if cfg.Portfolio.SnapshotEnabled {
		go portfolioService.RunSnapshotLoop(snapshotCtx, cfg.Portfolio.Interval())
	}

	evaluator := execinfra.NewEvaluatorClient(cfg.Execution.EvaluatorAddr)
	broker := execinfra.NewBrokerClient(cfg.Execution.BrokerAddr, cfg.Execution.BrokerAPIKey)
	pipeline := execdomain.NewPipeline(evaluator, broker, cfg.Execution.Timeout(), logger.Module("execution"))
	dispatcher := execdomain.NewDispatcher(pipeline, logger.Module("execution"))
	executionService := execapp.NewExecutionService(dispatcher, botRepo, settlementRepo, reportRepo, m, logger.Module("execution"))

	engine := backtestdomain.NewEngine(vendorSource, bus, runRepo, cfg.Backtest.ProgressInterval, logger.Module("backtest"))
	backtestService := backtestapp.NewBacktestService(engine, runRepo, bus, m, logger.Module("backtest"))

	// 8. HTTP 路由
	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(),
		middleware.HTTPMetrics(m),
		middleware.RateLimit(middleware.NewRateLimiter(200, 100)),
	)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": cfg.ServiceName})
	})

	api := router.Group("/api/v1")
	{
		botifaces.NewHTTPHandler(cmdService, queryService).RegisterRoutes(api)
		portfolioifaces.NewHTTPHandler(portfolioService).RegisterRoutes(api)
		execifaces.NewHTTPHandler(executionService, reportRepo).RegisterRoutes(api, middleware.BearerAuth(cfg.Execution.TriggerSecret))
		backtestifaces.NewHTTPHandler(backtestService).RegisterRoutes(api)
	}

	// 9. 启动与优雅停机
	// 回测事件走 SSE 长连接，不设全局写超时
	server := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:     router,
		ReadTimeout: time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		bootLog.Info("HTTP 服务启动", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-quit:
		bootLog.Info("收到退出信号", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	bootLog.Info("服务已退出")
	return nil
}
