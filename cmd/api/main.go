// @title           Supplestore API
// @version         1.0
// @description     补剂商城后端：订单状态机、库存流水、优惠券、支付与退款
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appcart "github.com/xiebiao/supplestore/internal/application/cart"
	appcatalog "github.com/xiebiao/supplestore/internal/application/catalog"
	appcoupon "github.com/xiebiao/supplestore/internal/application/coupon"
	appinventory "github.com/xiebiao/supplestore/internal/application/inventory"
	apporder "github.com/xiebiao/supplestore/internal/application/order"
	appuser "github.com/xiebiao/supplestore/internal/application/user"
	"github.com/xiebiao/supplestore/internal/domain/user"
	"github.com/xiebiao/supplestore/internal/infrastructure/config"
	"github.com/xiebiao/supplestore/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/supplestore/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/supplestore/internal/interface/http/handler"
	"github.com/xiebiao/supplestore/internal/interface/http/middleware"
	"github.com/xiebiao/supplestore/internal/interface/http/router"
	"github.com/xiebiao/supplestore/pkg/logger"
	"github.com/xiebiao/supplestore/pkg/metrics"
	"github.com/xiebiao/supplestore/pkg/tracing"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 2. 日志
	zlog, err := logger.New(logger.Config{
		Level:        cfg.Log.Level,
		Format:       cfg.Log.Format,
		Output:       cfg.Log.Output,
		EnableCaller: cfg.Log.EnableCaller,
	})
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer func() { _ = zlog.Sync() }()
	zap.ReplaceGlobals(zlog)

	// 3. 指标与链路追踪
	metrics.InitMetrics()
	if cfg.Tracing.Enabled {
		shutdown, err := tracing.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.Endpoint)
		if err != nil {
			zlog.Fatal("初始化链路追踪失败", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(ctx); err != nil {
				zlog.Warn("关闭链路追踪失败", zap.Error(err))
			}
		}()
	}

	// 4. 依赖组装
	engine, cleanup, err := buildEngine(cfg, zlog)
	if err != nil {
		zlog.Fatal("初始化应用失败", zap.Error(err))
	}
	defer cleanup()

	// 5. 启动服务，收到SIGINT/SIGTERM后优雅关闭
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		zlog.Info("服务启动", zap.String("addr", srv.Addr), zap.String("mode", cfg.Server.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("服务异常退出", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info("正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zlog.Error("服务关闭超时", zap.Error(err))
	}
	zlog.Info("服务已关闭")
}

// buildEngine 手动依赖注入
// 依赖链：Repository ← Service/UseCase ← Handler ← Router（wire.go描述同一张图）
func buildEngine(cfg *config.Config, zlog *zap.Logger) (*gin.Engine, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}
	fail := func(err error) (*gin.Engine, func(), error) {
		cleanup()
		return nil, nil, err
	}

	// 基础设施层
	db, closeDB, err := provideDB(cfg, zlog)
	if err != nil {
		return fail(err)
	}
	cleanups = append(cleanups, closeDB)

	redisClient, closeRedis, err := provideRedis(cfg, zlog)
	if err != nil {
		return fail(err)
	}
	cleanups = append(cleanups, closeRedis)

	notifier, closeNotifier, err := provideNotifier(cfg, zlog)
	if err != nil {
		return fail(err)
	}
	cleanups = append(cleanups, closeNotifier)

	gateway, err := provideGateway(cfg, zlog)
	if err != nil {
		return fail(err)
	}

	txManager := mysql.NewTxManager(db)
	userRepo := mysql.NewUserRepository(db)
	addressRepo := mysql.NewAddressRepository(db)
	tokenRepo := mysql.NewTokenRepository(db)
	catalogRepo := mysql.NewCatalogRepository(db)
	inventoryRepo := mysql.NewInventoryRepository(db)
	couponRepo := mysql.NewCouponRepository(db)
	orderRepo := mysql.NewOrderRepository(db)
	activityRepo := mysql.NewActivityRepository(db)

	sessions := redis.NewSessionStore(redisClient)
	orderCache := provideOrderCache(cfg, redisClient)
	jwtManager := provideJWTManager(cfg)

	// 领域层
	userService := user.NewService(userRepo)

	// 应用层
	ledger := appinventory.NewLedger(catalogRepo, inventoryRepo)
	carts := appcart.NewService(provideCartStore(cfg, redisClient), catalogRepo)
	orderNotifier := provideOrderNotifier(cfg, notifier, notifier, userRepo)

	createOrder := provideCreateOrderUseCase(cfg, txManager, orderRepo, catalogRepo, couponRepo, userRepo,
		addressRepo, activityRepo, ledger, orderCache, orderNotifier)
	transition := apporder.NewTransitionStatusUseCase(txManager, orderRepo, activityRepo, ledger, gateway, orderCache, orderNotifier)
	getOrder := apporder.NewGetOrderUseCase(orderRepo, orderCache)
	verifyCoupon := appcoupon.NewVerifyCouponUseCase(couponRepo)

	// 接口层
	handlers := router.Handlers{
		User: handler.NewUserHandler(
			provideRegisterUseCase(cfg, userService, userRepo),
			provideLoginUseCase(cfg, userService, jwtManager, sessions),
			appuser.NewLogoutUseCase(jwtManager, sessions),
			appuser.NewRefreshTokenUseCase(jwtManager, userRepo),
			appuser.NewTokenUseCase(txManager, userRepo, tokenRepo, userService, notifier, provideTokenConfig(cfg)),
			appuser.NewAddressUseCase(addressRepo),
		),
		Cart: handler.NewCartHandler(carts),
		Checkout: handler.NewCheckoutHandler(
			provideCheckoutUseCase(cfg, createOrder, transition, carts, orderRepo, gateway, orderNotifier),
			apporder.NewVerifyPaymentUseCase(txManager, orderRepo, gateway, transition, orderNotifier),
			getOrder,
		),
		Coupon: handler.NewCouponHandler(
			verifyCoupon,
			appcoupon.NewApplyCouponUseCase(verifyCoupon, carts),
			appcoupon.NewCreateCouponUseCase(txManager, couponRepo, activityRepo),
			appcoupon.NewUpdateCouponUseCase(txManager, couponRepo, activityRepo),
			appcoupon.NewListCouponsUseCase(couponRepo),
		),
		Order: handler.NewOrderHandler(
			createOrder,
			transition,
			apporder.NewUpdateTrackingUseCase(txManager, orderRepo, activityRepo, orderCache),
			apporder.NewListOrdersUseCase(orderRepo),
			getOrder,
			apporder.NewStatsUseCase(orderRepo, orderCache),
		),
		Inventory: handler.NewInventoryHandler(
			appinventory.NewAdjustStockUseCase(txManager, ledger, activityRepo),
			appinventory.NewListLogsUseCase(catalogRepo, inventoryRepo),
			appinventory.NewReconcileUseCase(catalogRepo, inventoryRepo),
		),
		Catalog: handler.NewCatalogHandler(appcatalog.NewService(txManager, catalogRepo, orderRepo, orderCache, ledger, activityRepo)),
	}

	engine, err := router.New(cfg, zlog, handlers, middleware.NewAuthMiddleware(jwtManager, sessions))
	if err != nil {
		return fail(err)
	}
	return engine, cleanup, nil
}
