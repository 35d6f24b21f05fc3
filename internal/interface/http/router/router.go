package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/xiebiao/supplestore/internal/infrastructure/config"
	"github.com/xiebiao/supplestore/internal/interface/http/dto"
	"github.com/xiebiao/supplestore/internal/interface/http/handler"
	"github.com/xiebiao/supplestore/internal/interface/http/middleware"
	"github.com/xiebiao/supplestore/pkg/metrics"
	"github.com/xiebiao/supplestore/pkg/response"
)

// Handlers 路由需要的全部处理器
type Handlers struct {
	User      *handler.UserHandler
	Cart      *handler.CartHandler
	Checkout  *handler.CheckoutHandler
	Coupon    *handler.CouponHandler
	Order     *handler.OrderHandler
	Inventory *handler.InventoryHandler
	Catalog   *handler.CatalogHandler
}

// New 创建Gin引擎并注册路由
// 中间件顺序：Recovery → Logger → Tracing → Metrics → CORS
func New(cfg *config.Config, log *zap.Logger, h Handlers, auth *middleware.AuthMiddleware) (*gin.Engine, error) {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := dto.RegisterValidators(); err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(
		middleware.Recovery(),
		middleware.Logger(log),
		middleware.Tracing(),
		middleware.Metrics(),
		middleware.CORS(cfg.CORS),
	)

	// 健康检查
	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{"message": "pong", "status": "healthy"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	if cfg.Server.EnableSwagger {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group("/api/v1")

	// 账号（公开）
	users := v1.Group("/users")
	{
		users.POST("/register", h.User.Register)
		users.POST("/login", h.User.Login)
		users.POST("/refresh", h.User.Refresh)
		users.POST("/password-reset", h.User.RequestPasswordReset)
		users.POST("/password-reset/confirm", h.User.ResetPassword)
		users.POST("/verify-email", h.User.VerifyEmail)
	}

	// 需要登录
	authed := v1.Group("")
	authed.Use(auth.RequireAuth())
	{
		authed.POST("/users/logout", h.User.Logout)
		authed.POST("/users/verify-email/request", h.User.RequestEmailVerification)
		authed.GET("/addresses", h.User.ListAddresses)
		authed.POST("/addresses", h.User.CreateAddress)

		authed.GET("/cart", h.Cart.Get)
		authed.PUT("/cart/items", h.Cart.SetItem)
		authed.DELETE("/cart/items/:variantId", h.Cart.RemoveItem)
		authed.DELETE("/cart", h.Cart.Clear)

		authed.POST("/checkout", h.Checkout.Checkout)
		authed.POST("/checkout/verify", h.Checkout.Verify)
		authed.GET("/orders/:id", h.Checkout.GetMyOrder)

		authed.POST("/coupons/verify", h.Coupon.Verify)
		authed.POST("/coupons/apply", h.Coupon.Apply)
	}

	// 商品浏览（公开）
	v1.GET("/products", h.Catalog.ListProducts)
	v1.GET("/products/:id", h.Catalog.GetProduct)

	// 后台：登录且角色为admin
	admin := v1.Group("/admin")
	admin.Use(auth.RequireAuth(), auth.RequireAdmin())
	{
		admin.GET("/orders", h.Order.ListOrders)
		admin.POST("/orders", h.Order.CreateOrder)
		admin.GET("/orders/:id", h.Order.GetOrder)
		admin.PATCH("/orders/:id/status", h.Order.UpdateStatus)
		admin.PATCH("/orders/:id/tracking", h.Order.UpdateTracking)
		admin.GET("/orders-stats", h.Order.Stats)

		admin.POST("/inventory/adjust", h.Inventory.Adjust)
		admin.GET("/inventory/:variantId/logs", h.Inventory.ListLogs)
		admin.GET("/inventory/:variantId/reconcile", h.Inventory.Reconcile)

		admin.GET("/coupons", h.Coupon.List)
		admin.POST("/coupons", h.Coupon.Create)
		admin.PATCH("/coupons/:id", h.Coupon.Update)

		admin.POST("/categories", h.Catalog.CreateCategory)
		admin.GET("/products", h.Catalog.AdminListProducts)
		admin.POST("/products", h.Catalog.CreateProduct)
		admin.POST("/products/:id/variants", h.Catalog.CreateVariant)
		admin.DELETE("/products/:id", h.Catalog.DeleteProduct)
		admin.PATCH("/variants/:id", h.Catalog.UpdateVariant)
	}

	return r, nil
}
