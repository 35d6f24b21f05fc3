package main

import (
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	appcart "github.com/xiebiao/supplestore/internal/application/cart"
	appinventory "github.com/xiebiao/supplestore/internal/application/inventory"
	apporder "github.com/xiebiao/supplestore/internal/application/order"
	appuser "github.com/xiebiao/supplestore/internal/application/user"
	"github.com/xiebiao/supplestore/internal/domain/activity"
	"github.com/xiebiao/supplestore/internal/domain/catalog"
	"github.com/xiebiao/supplestore/internal/domain/coupon"
	"github.com/xiebiao/supplestore/internal/domain/notification"
	"github.com/xiebiao/supplestore/internal/domain/order"
	domainpayment "github.com/xiebiao/supplestore/internal/domain/payment"
	"github.com/xiebiao/supplestore/internal/domain/shared"
	"github.com/xiebiao/supplestore/internal/domain/user"
	"github.com/xiebiao/supplestore/internal/infrastructure/config"
	"github.com/xiebiao/supplestore/internal/infrastructure/notify"
	"github.com/xiebiao/supplestore/internal/infrastructure/payment"
	"github.com/xiebiao/supplestore/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/supplestore/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/supplestore/pkg/jwt"
	"github.com/xiebiao/supplestore/pkg/mq"
)

// 自定义Provider：构造函数需要从Config中提取参数时使用
// main.go的手动组装与wire.go共用这些函数

// Notifier 邮件与领域事件投递
type Notifier interface {
	notification.Sender
	notification.EventPublisher
}

func provideDB(cfg *config.Config, log *zap.Logger) (*gorm.DB, func(), error) {
	db, err := mysql.NewDB(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return db, cleanup, nil
}

func provideRedis(cfg *config.Config, log *zap.Logger) (*goredis.Client, func(), error) {
	client, err := redis.NewClient(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return client, func() { _ = client.Close() }, nil
}

func provideJWTManager(cfg *config.Config) *jwt.Manager {
	return jwt.NewManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpire, cfg.JWT.RefreshTokenExpire)
}

func provideCartStore(cfg *config.Config, client *goredis.Client) *redis.CartStore {
	return redis.NewCartStore(client, cfg.Redis.CartTTL)
}

func provideOrderCache(cfg *config.Config, client *goredis.Client) *redis.OrderCache {
	return redis.NewOrderCache(client, cfg.Redis.OrderTTL, cfg.Redis.StatsTTL)
}

func provideGateway(cfg *config.Config, log *zap.Logger) (domainpayment.Gateway, error) {
	return payment.New(cfg.Payment, log)
}

// provideNotifier MQ未启用时只写日志
func provideNotifier(cfg *config.Config, log *zap.Logger) (Notifier, func(), error) {
	if !cfg.MQ.Enabled {
		return notify.NewLogNotifier(log), func() {}, nil
	}
	publisher, err := mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange, cfg.MQ.ExchangeType, log)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := publisher.Close(); err != nil {
			log.Warn("关闭MQ发布者失败", zap.Error(err))
		}
	}
	return notify.NewMQNotifier(publisher, cfg.MQ.PublishTimeout, log), cleanup, nil
}

func provideSender(n Notifier) notification.Sender { return n }

func provideEventPublisher(n Notifier) notification.EventPublisher { return n }

func provideRegisterUseCase(cfg *config.Config, userService user.Service, userRepo user.Repository) *appuser.RegisterUseCase {
	return appuser.NewRegisterUseCase(userService, userRepo, cfg.Store.AdminEmails)
}

// provideLoginUseCase 会话与Refresh Token同寿命
func provideLoginUseCase(cfg *config.Config, userService user.Service, jwtManager *jwt.Manager, sessions appuser.SessionStore) *appuser.LoginUseCase {
	return appuser.NewLoginUseCase(userService, jwtManager, sessions, cfg.JWT.RefreshTokenExpire)
}

func provideTokenConfig(cfg *config.Config) appuser.TokenConfig {
	return appuser.TokenConfig{
		PasswordResetTTL: cfg.Store.PasswordResetTTL,
		FrontendURL:      cfg.Store.FrontendURL,
		StoreName:        cfg.Store.Name,
	}
}

func provideOrderNotifier(cfg *config.Config, sender notification.Sender, events notification.EventPublisher, userRepo user.Repository) *apporder.Notifier {
	return apporder.NewNotifier(sender, events, userRepo, cfg.Store.Name)
}

func provideCreateOrderUseCase(
	cfg *config.Config,
	txManager shared.TxManager,
	orderRepo order.Repository,
	catalogRepo catalog.Repository,
	couponRepo coupon.Repository,
	userRepo user.Repository,
	addressRepo user.AddressRepository,
	activityRepo activity.Repository,
	ledger *appinventory.Ledger,
	cache order.Cache,
	notifier *apporder.Notifier,
) *apporder.CreateOrderUseCase {
	return apporder.NewCreateOrderUseCase(txManager, orderRepo, catalogRepo, couponRepo, userRepo,
		addressRepo, activityRepo, ledger, cache, notifier, cfg.Payment.Currency)
}

// provideCheckoutUseCase saga超时取网关超时的3倍（创建订单、网关下单、保存支付记录）
func provideCheckoutUseCase(
	cfg *config.Config,
	create *apporder.CreateOrderUseCase,
	transition *apporder.TransitionStatusUseCase,
	carts *appcart.Service,
	orderRepo order.Repository,
	gateway domainpayment.Gateway,
	notifier *apporder.Notifier,
) *apporder.CheckoutUseCase {
	timeout := 3 * cfg.Payment.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return apporder.NewCheckoutUseCase(create, transition, carts, orderRepo, gateway, notifier, cfg.Payment.Currency, timeout)
}
