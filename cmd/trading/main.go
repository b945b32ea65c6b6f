package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	factoryapp "github.com/wyfcoding/perptrading/internal/factory/application"
	factorydomain "github.com/wyfcoding/perptrading/internal/factory/domain"
	factorymsg "github.com/wyfcoding/perptrading/internal/factory/infrastructure/messaging"
	factoryhttp "github.com/wyfcoding/perptrading/internal/factory/interfaces/http"
	oracleapp "github.com/wyfcoding/perptrading/internal/oracle/application"
	oracledomain "github.com/wyfcoding/perptrading/internal/oracle/domain"
	oraclemsg "github.com/wyfcoding/perptrading/internal/oracle/infrastructure/messaging"
	oraclehttp "github.com/wyfcoding/perptrading/internal/oracle/interfaces/http"
	poolapp "github.com/wyfcoding/perptrading/internal/pool/application"
	registryapp "github.com/wyfcoding/perptrading/internal/registry/application"
	registrydomain "github.com/wyfcoding/perptrading/internal/registry/domain"
	registrymemory "github.com/wyfcoding/perptrading/internal/registry/infrastructure/persistence/memory"
	registrymysql "github.com/wyfcoding/perptrading/internal/registry/infrastructure/persistence/mysql"
	registryhttp "github.com/wyfcoding/perptrading/internal/registry/interfaces/http"
	rewardsapp "github.com/wyfcoding/perptrading/internal/rewards/application"
	tradingapp "github.com/wyfcoding/perptrading/internal/trading/application"
	tradingdomain "github.com/wyfcoding/perptrading/internal/trading/domain"
	tradingmsg "github.com/wyfcoding/perptrading/internal/trading/infrastructure/messaging"
	tradingmemory "github.com/wyfcoding/perptrading/internal/trading/infrastructure/persistence/memory"
	tradingmysql "github.com/wyfcoding/perptrading/internal/trading/infrastructure/persistence/mysql"
	tradingredis "github.com/wyfcoding/perptrading/internal/trading/infrastructure/persistence/redis"
	tradinghttp "github.com/wyfcoding/perptrading/internal/trading/interfaces/http"
	treasuryapp "github.com/wyfcoding/perptrading/internal/treasury/application"
	"github.com/wyfcoding/perptrading/pkg/config"
	"github.com/wyfcoding/perptrading/pkg/db"
	"github.com/wyfcoding/perptrading/pkg/logger"
	"github.com/wyfcoding/perptrading/pkg/middleware"
	"github.com/wyfcoding/perptrading/pkg/mq"
)

// 固定的模块交付地址：单体部署下注册表仍以地址辨识调用方。
// 地址由服务名派生，见 pool.DeriveAddress 的做法。
var (
	treasuryAddr = common.HexToAddress("0x0000000000000000000000000000000000000101")
	tradingAddr  = common.HexToAddress("0x0000000000000000000000000000000000000102")
	poolAddr     = common.HexToAddress("0x0000000000000000000000000000000000000103")
	oracleAddr   = common.HexToAddress("0x0000000000000000000000000000000000000104")
	factoryAddr  = common.HexToAddress("0x0000000000000000000000000000000000000105")
	routerAddr   = common.HexToAddress("0x0000000000000000000000000000000000000100")
)

func main() {
	// 1. Config
	configPath := flag.String("config", "configs/config.toml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// 2. Logger
	if err := logger.Init(cfg.Logger); err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	lg := logger.Get()

	// 3. Persistence
	var (
		registryRepo registrydomain.Repository
		tradingRepo  tradingdomain.Repository
	)
	if cfg.Database.DSN != "" {
		conn, err := db.Init(db.Config{
			DSN:          cfg.Database.DSN,
			MaxOpenConns: cfg.Database.MaxOpenConns,
			MaxIdleConns: cfg.Database.MaxIdleConns,
		})
		if err != nil {
			log.Fatalf("failed to connect database: %v", err)
		}
		if err := conn.AutoMigrate(
			&registrymysql.CurrencyEntryModel{},
			&tradingmysql.ProductModel{},
			&tradingmysql.PositionModel{},
			&tradingmysql.OrderModel{},
			&tradingmysql.TriggerOrderModel{},
		); err != nil {
			log.Fatalf("failed to migrate database: %v", err)
		}
		registryRepo = registrymysql.NewRepository(conn)
		tradingRepo = tradingmysql.NewRepository(conn)
	} else {
		registryRepo = registrymemory.NewRepository()
		tradingRepo = tradingmemory.NewRepository()
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		tradingRepo = tradingredis.NewCachedRepository(tradingRepo, client, lg)
	}

	// 4. Event publishers
	var (
		tradingEvents tradingdomain.EventPublisher
		oracleEvents  oracledomain.EventPublisher
		factoryEvents factorydomain.EventPublisher
	)
	if len(cfg.Kafka.Brokers) > 0 {
		producer := mq.NewProducer(mq.KafkaConfig{Brokers: cfg.Kafka.Brokers})
		defer producer.Close()
		tradingEvents = tradingmsg.NewKafkaEventPublisher(producer)
		oracleEvents = oraclemsg.NewKafkaEventPublisher(producer)
		factoryEvents = factorymsg.NewKafkaEventPublisher(producer)
	} else {
		tradingEvents = tradingmsg.NewMemoryEventPublisher()
		oracleEvents = oraclemsg.NewMemoryEventPublisher()
		factoryEvents = factorymsg.NewMemoryEventPublisher()
	}

	// 5. Application layers
	owner := common.HexToAddress(cfg.Wiring.Owner)
	darkOracle := common.HexToAddress(cfg.Wiring.DarkOracle)

	registrySvc := registryapp.NewService(owner, registryRepo, lg)
	treasurySvc := treasuryapp.NewService(lg)
	poolSvc := poolapp.NewService(lg)
	rewardsSvc := rewardsapp.NewService(lg)
	tradingSvc := tradingapp.NewTradingService(tradingRepo, treasurySvc, poolSvc, rewardsSvc, tradingEvents, lg)
	oracleSvc := oracleapp.NewService(registrySvc, tradingSvc, oracleEvents, lg)
	factorySvc := factoryapp.NewService(registrySvc, poolSvc, rewardsSvc, factoryEvents, lg)

	// 6. Wiring
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := registrySvc.SetContracts(ctx, owner, registrydomain.Contracts{
		Treasury:   treasuryAddr,
		Trading:    tradingAddr,
		Pool:       poolAddr,
		Oracle:     oracleAddr,
		DarkOracle: darkOracle,
		Factory:    factoryAddr,
	}); err != nil {
		log.Fatalf("failed to wire contracts: %v", err)
	}
	tradingSvc.SetRouter(registrySvc)
	factorySvc.SetRouter(routerAddr)

	// 7. HTTP server
	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog())

	api := router.Group("/api/v1")
	registryhttp.NewHandler(registrySvc).RegisterRoutes(api)
	tradinghttp.NewHandler(tradingSvc).RegisterRoutes(api)
	oraclehttp.NewHandler(oracleSvc).RegisterRoutes(api)
	factoryhttp.NewHandler(factorySvc).RegisterRoutes(api)
	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		lg.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
