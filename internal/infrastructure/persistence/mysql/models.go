package mysql

import (
	"time"

	"github.com/shopspring/decimal"
)

// 本文件是infrastructure层的数据模型（带GORM tag）
// domain层实体不依赖GORM，由各Repository负责转换
// 金额统一使用decimal(12,2)，decimal.Decimal实现了Scanner/Valuer

// UserModel 用户表
type UserModel struct {
	ID            uint      `gorm:"primaryKey"`
	Email         string    `gorm:"uniqueIndex;size:100;not null;comment:邮箱"`
	Password      string    `gorm:"size:255;not null;comment:密码（bcrypt加密）"`
	Name          string    `gorm:"size:100;not null;comment:姓名"`
	Role          string    `gorm:"size:20;not null;default:customer;comment:角色"`
	EmailVerified bool      `gorm:"not null;default:false"`
	CreatedAt     time.Time `gorm:"comment:创建时间"`
	UpdatedAt     time.Time `gorm:"comment:更新时间"`
}

func (UserModel) TableName() string { return "users" }

// AddressModel 收货地址表
type AddressModel struct {
	ID         uint   `gorm:"primaryKey"`
	UserID     uint   `gorm:"index;not null"`
	FullName   string `gorm:"size:100;not null"`
	Phone      string `gorm:"size:30"`
	Line1      string `gorm:"size:255;not null"`
	Line2      string `gorm:"size:255"`
	City       string `gorm:"size:100;not null"`
	State      string `gorm:"size:100"`
	PostalCode string `gorm:"size:20"`
	Country    string `gorm:"size:60;not null"`
	IsDefault  bool   `gorm:"not null;default:false"`
	CreatedAt  time.Time
}

func (AddressModel) TableName() string { return "addresses" }

// PurposeTokenModel 一次性令牌表（只存哈希）
type PurposeTokenModel struct {
	ID         uint      `gorm:"primaryKey"`
	UserID     uint      `gorm:"index;not null"`
	Purpose    string    `gorm:"size:30;not null;uniqueIndex:idx_purpose_hash,priority:1"`
	TokenHash  string    `gorm:"size:64;not null;uniqueIndex:idx_purpose_hash,priority:2"`
	ExpiresAt  time.Time `gorm:"not null"`
	ConsumedAt *time.Time
	CreatedAt  time.Time
}

func (PurposeTokenModel) TableName() string { return "purpose_tokens" }

// CategoryModel 商品分类表
type CategoryModel struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:100;not null"`
	Slug      string `gorm:"uniqueIndex;size:120;not null"`
	CreatedAt time.Time
}

func (CategoryModel) TableName() string { return "categories" }

// ProductModel 商品表
type ProductModel struct {
	ID           uint                  `gorm:"primaryKey"`
	Name         string                `gorm:"index:idx_search;size:200;not null;comment:商品名"`
	Slug         string                `gorm:"uniqueIndex;size:220;not null"`
	Description  string                `gorm:"type:text"`
	CategoryID   *uint                 `gorm:"index"`
	IsSupplement bool                  `gorm:"not null;default:false;comment:是否营养补剂"`
	IsActive     bool                  `gorm:"index;not null;default:true"`
	Variants     []ProductVariantModel `gorm:"foreignKey:ProductID"`
	CreatedAt    time.Time             `gorm:"index"`
	UpdatedAt    time.Time
}

func (ProductModel) TableName() string { return "products" }

// ProductVariantModel 商品规格表
// 库存只能通过UpdateVariantQuantity的原子UPDATE修改
type ProductVariantModel struct {
	ID        uint             `gorm:"primaryKey"`
	ProductID uint             `gorm:"index;not null"`
	SKU       string           `gorm:"column:sku;uniqueIndex;size:64;not null"`
	Flavor    string           `gorm:"size:100"`
	Weight    string           `gorm:"size:50"`
	Price     decimal.Decimal  `gorm:"type:decimal(12,2);not null;comment:原价"`
	SalePrice *decimal.Decimal `gorm:"type:decimal(12,2);comment:促销价"`
	Quantity  int              `gorm:"not null;default:0;comment:库存数量"`
	IsActive  bool             `gorm:"not null;default:true"`
	Product   *ProductModel    `gorm:"foreignKey:ProductID"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ProductVariantModel) TableName() string { return "product_variants" }

// InventoryLogModel 库存流水表（只追加）
type InventoryLogModel struct {
	ID               uint   `gorm:"primaryKey"`
	VariantID        uint   `gorm:"index;not null"`
	QuantityChange   int    `gorm:"not null"`
	Reason           string `gorm:"size:20;not null;index:idx_reference,priority:2"`
	PreviousQuantity int    `gorm:"not null"`
	NewQuantity      int    `gorm:"not null"`
	ReferenceID      *uint  `gorm:"index:idx_reference,priority:1"`
	Notes            string `gorm:"size:500"`
	CreatedBy        string `gorm:"size:100"`
	CreatedAt        time.Time
}

func (InventoryLogModel) TableName() string { return "inventory_logs" }

// CouponModel 优惠券表
type CouponModel struct {
	ID             uint             `gorm:"primaryKey"`
	Code           string           `gorm:"uniqueIndex;size:50;not null"`
	Description    string           `gorm:"size:255"`
	DiscountType   string           `gorm:"size:20;not null"`
	DiscountValue  decimal.Decimal  `gorm:"type:decimal(12,2);not null"`
	MinOrderAmount *decimal.Decimal `gorm:"type:decimal(12,2)"`
	MaxUses        *int
	UsedCount      int `gorm:"not null;default:0"`
	StartDate      *time.Time
	EndDate        *time.Time
	IsActive       bool `gorm:"not null;default:true"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (CouponModel) TableName() string { return "coupons" }

// OrderModel 订单表
// 与OrderItemModel一对多，与物流、支付一对一
type OrderModel struct {
	ID                uint                `gorm:"primaryKey"`
	OrderNumber       string              `gorm:"uniqueIndex;size:32;not null;comment:订单号"`
	UserID            uint                `gorm:"index;not null;comment:买家用户ID"`
	ShippingAddressID *uint               `gorm:"comment:收货地址ID"`
	Status            string              `gorm:"index;size:20;not null;default:PENDING"`
	SubTotal          decimal.Decimal     `gorm:"column:subtotal;type:decimal(12,2);not null"`
	Tax               decimal.Decimal     `gorm:"type:decimal(12,2);not null;default:0"`
	ShippingCost      decimal.Decimal     `gorm:"type:decimal(12,2);not null;default:0"`
	Discount          decimal.Decimal     `gorm:"type:decimal(12,2);not null;default:0"`
	Total             decimal.Decimal     `gorm:"type:decimal(12,2);not null"`
	CouponID          *uint               `gorm:"index"`
	CouponCode        string              `gorm:"size:50"`
	Notes             string              `gorm:"type:text"`
	CancelReason      string              `gorm:"size:500"`
	CancelledAt       *time.Time
	CancelledBy       string              `gorm:"size:100"`
	Items             []OrderItemModel    `gorm:"foreignKey:OrderID"`
	Tracking          *OrderTrackingModel `gorm:"foreignKey:OrderID"`
	Payment           *PaymentModel       `gorm:"foreignKey:OrderID"`
	CreatedAt         time.Time           `gorm:"index;comment:创建时间"`
	UpdatedAt         time.Time
}

func (OrderModel) TableName() string { return "orders" }

// OrderItemModel 订单明细表（下单时的快照）
type OrderItemModel struct {
	ID           uint            `gorm:"primaryKey"`
	OrderID      uint            `gorm:"index;not null"`
	ProductID    uint            `gorm:"index;not null"`
	VariantID    uint            `gorm:"index;not null"`
	ProductName  string          `gorm:"size:200;not null"`
	VariantSKU   string          `gorm:"column:variant_sku;size:64;not null"`
	Price        decimal.Decimal `gorm:"type:decimal(12,2);not null;comment:下单时单价"`
	Quantity     int             `gorm:"not null"`
	SubTotal     decimal.Decimal `gorm:"column:subtotal;type:decimal(12,2);not null"`
	IsSupplement bool            `gorm:"not null;default:false"`
}

func (OrderItemModel) TableName() string { return "order_items" }

// OrderTrackingModel 物流表
type OrderTrackingModel struct {
	ID                uint                  `gorm:"primaryKey"`
	OrderID           uint                  `gorm:"uniqueIndex;not null"`
	TrackingNumber    string                `gorm:"uniqueIndex;size:64;not null"`
	Carrier           string                `gorm:"size:100;not null"`
	Status            string                `gorm:"size:20;not null"`
	ShippedAt         *time.Time
	DeliveredAt       *time.Time
	EstimatedDelivery *time.Time
	Updates           []TrackingUpdateModel `gorm:"foreignKey:TrackingID"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (OrderTrackingModel) TableName() string { return "order_tracking" }

// TrackingUpdateModel 物流节点表（只追加）
type TrackingUpdateModel struct {
	ID          uint   `gorm:"primaryKey"`
	TrackingID  uint   `gorm:"index;not null"`
	Status      string `gorm:"size:20;not null"`
	Location    string `gorm:"size:200"`
	Description string `gorm:"size:500"`
	CreatedAt   time.Time
}

func (TrackingUpdateModel) TableName() string { return "tracking_updates" }

// PaymentModel 支付表
type PaymentModel struct {
	ID               uint            `gorm:"primaryKey"`
	OrderID          uint            `gorm:"uniqueIndex;not null"`
	Amount           decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Currency         string          `gorm:"size:3;not null"`
	Provider         string          `gorm:"size:20;not null"`
	GatewayOrderID   string          `gorm:"index;size:100"`
	GatewayPaymentID string          `gorm:"size:100"`
	Status           string          `gorm:"size:20;not null"`
	PaymentMethod    string          `gorm:"size:50"`
	FailureReason    string          `gorm:"size:500"`
	Refunds          []RefundModel   `gorm:"foreignKey:PaymentID"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (PaymentModel) TableName() string { return "payments" }

// RefundModel 退款表
type RefundModel struct {
	ID              uint            `gorm:"primaryKey"`
	PaymentID       uint            `gorm:"index;not null"`
	GatewayRefundID string          `gorm:"size:100"`
	Amount          decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Status          string          `gorm:"size:20;not null"`
	Notes           string          `gorm:"size:500"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (RefundModel) TableName() string { return "refunds" }

// ActivityLogModel 后台操作审计表
type ActivityLogModel struct {
	ID          uint   `gorm:"primaryKey"`
	Actor       string `gorm:"size:100;not null"`
	Action      string `gorm:"size:50;not null"`
	EntityType  string `gorm:"size:30;not null;index:idx_entity,priority:1"`
	EntityID    uint   `gorm:"not null;index:idx_entity,priority:2"`
	Description string `gorm:"size:1000"`
	CreatedAt   time.Time
}

func (ActivityLogModel) TableName() string { return "activity_logs" }
