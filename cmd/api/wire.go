//go:build wireinject
// +build wireinject

// Wire依赖注入配置
// 与main.go中buildEngine描述同一张依赖图；运行 `wire gen ./cmd/api` 生成wire_gen.go

package main

import (
	"github.com/gin-gonic/gin"
	"github.com/google/wire"
	"go.uber.org/zap"

	appcart "github.com/xiebiao/supplestore/internal/application/cart"
	appcatalog "github.com/xiebiao/supplestore/internal/application/catalog"
	appcoupon "github.com/xiebiao/supplestore/internal/application/coupon"
	appinventory "github.com/xiebiao/supplestore/internal/application/inventory"
	apporder "github.com/xiebiao/supplestore/internal/application/order"
	appuser "github.com/xiebiao/supplestore/internal/application/user"
	"github.com/xiebiao/supplestore/internal/domain/cart"
	"github.com/xiebiao/supplestore/internal/domain/order"
	"github.com/xiebiao/supplestore/internal/domain/shared"
	"github.com/xiebiao/supplestore/internal/domain/user"
	"github.com/xiebiao/supplestore/internal/infrastructure/config"
	"github.com/xiebiao/supplestore/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/supplestore/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/supplestore/internal/interface/http/handler"
	"github.com/xiebiao/supplestore/internal/interface/http/middleware"
	"github.com/xiebiao/supplestore/internal/interface/http/router"
)

// infrastructureSet 数据库、Redis、MQ、支付网关
var infrastructureSet = wire.NewSet(
	provideDB,
	provideRedis,
	provideNotifier,
	provideSender,
	provideEventPublisher,
	provideGateway,
	provideJWTManager,
)

// repositorySet 仓储与缓存
var repositorySet = wire.NewSet(
	mysql.NewTxManager,
	wire.Bind(new(shared.TxManager), new(*mysql.TxManager)),
	mysql.NewUserRepository,
	mysql.NewAddressRepository,
	mysql.NewTokenRepository,
	mysql.NewCatalogRepository,
	mysql.NewInventoryRepository,
	mysql.NewCouponRepository,
	mysql.NewOrderRepository,
	mysql.NewActivityRepository,

	redis.NewSessionStore,
	wire.Bind(new(appuser.SessionStore), new(*redis.SessionStore)),
	wire.Bind(new(middleware.TokenBlacklist), new(*redis.SessionStore)),
	provideCartStore,
	wire.Bind(new(cart.Store), new(*redis.CartStore)),
	provideOrderCache,
	wire.Bind(new(order.Cache), new(*redis.OrderCache)),
	wire.Bind(new(order.StatsCache), new(*redis.OrderCache)),
)

// domainSet 领域服务
var domainSet = wire.NewSet(
	user.NewService,
)

// applicationSet 用例
var applicationSet = wire.NewSet(
	provideRegisterUseCase,
	provideLoginUseCase,
	appuser.NewLogoutUseCase,
	appuser.NewRefreshTokenUseCase,
	provideTokenConfig,
	appuser.NewTokenUseCase,
	appuser.NewAddressUseCase,

	appinventory.NewLedger,
	appinventory.NewAdjustStockUseCase,
	appinventory.NewListLogsUseCase,
	appinventory.NewReconcileUseCase,

	appcart.NewService,
	wire.Bind(new(appcoupon.CartSubtotaler), new(*appcart.Service)),

	appcatalog.NewService,

	appcoupon.NewVerifyCouponUseCase,
	appcoupon.NewApplyCouponUseCase,
	appcoupon.NewCreateCouponUseCase,
	appcoupon.NewUpdateCouponUseCase,
	appcoupon.NewListCouponsUseCase,

	provideOrderNotifier,
	provideCreateOrderUseCase,
	apporder.NewTransitionStatusUseCase,
	apporder.NewUpdateTrackingUseCase,
	apporder.NewListOrdersUseCase,
	apporder.NewGetOrderUseCase,
	apporder.NewStatsUseCase,
	provideCheckoutUseCase,
	apporder.NewVerifyPaymentUseCase,
)

// interfaceSet 处理器、中间件、路由
var interfaceSet = wire.NewSet(
	middleware.NewAuthMiddleware,
	handler.NewUserHandler,
	handler.NewCartHandler,
	handler.NewCheckoutHandler,
	handler.NewCouponHandler,
	handler.NewOrderHandler,
	handler.NewInventoryHandler,
	handler.NewCatalogHandler,
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)

// InitializeApp 构建Gin引擎，cleanup按相反顺序关闭MQ、Redis、数据库
func InitializeApp(cfg *config.Config, log *zap.Logger) (*gin.Engine, func(), error) {
	wire.Build(
		infrastructureSet,
		repositorySet,
		domainSet,
		applicationSet,
		interfaceSet,
	)
	return nil, nil, nil
}
