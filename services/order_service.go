package services

import (
	"errors"
	"fmt"
	"time"

	"secondcycle_go/config"
	"secondcycle_go/models"

	"gorm.io/gorm"
)

// OrderService 订单服务
// 订单状态机: PENDING -> DEPOSITED -> CONFIRMED -> COMPLETED; PENDING/DEPOSITED -> CANCELLED
type OrderService struct {
	db            *gorm.DB
	carts         *CartService
	notifications *NotificationService
}

// NewOrderService 创建订单服务实例
func NewOrderService() *OrderService {
	return &OrderService{
		db:            config.DB,
		carts:         NewCartService(),
		notifications: NewNotificationService(),
	}
}

// CreateOrderRequest 创建订单请求
type CreateOrderRequest struct {
	ListingID         string `json:"listing_id" binding:"required"`
	ShippingAddressID string `json:"shipping_address_id"`
	Note              string `json:"note" binding:"max=500"`
}

// CheckoutRequest 购物车结算请求
type CheckoutRequest struct {
	ShippingAddressID string `json:"shipping_address_id"`
	Note              string `json:"note" binding:"max=500"`
}

// CreateOrder 从单个发布创建订单
// 订单+明细+地址+通知在一个事务里落库；
// 同一 listing 的活跃订单唯一性由 active_listing_id 唯一索引兜底
func (os *OrderService) CreateOrder(buyerID string, req *CreateOrderRequest) (*models.Order, error) {
	var order models.Order
	var pushes []*models.Notification

	err := os.db.Transaction(func(tx *gorm.DB) error {
		// 1. 校验 listing
		var listing models.Listing
		if err := tx.Preload("Vehicle").First(&listing, "id = ?", req.ListingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if !listing.IsAvailable() {
			return ErrInvalidState
		}

		if listing.SellerID == buyerID {
			return ErrInvalidOwnership
		}

		// 2. 该 listing 是否已有活跃订单
		var existing int64
		if err := tx.Model(&models.Order{}).
			Where("listing_id = ? AND status IN ?", req.ListingID,
				[]string{models.OrderPending, models.OrderDeposited}).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrConflict
		}

		// 3. 创建订单，定金 = 当前车辆价格
		activeID := req.ListingID
		order = models.Order{
			BuyerID:         buyerID,
			ListingID:       req.ListingID,
			ActiveListingID: &activeID,
			DepositAmount:   listing.Vehicle.Price,
			Status:          models.OrderPending,
			Note:            req.Note,
		}
		if err := tx.Create(&order).Error; err != nil {
			return translateDuplicate(err)
		}

		// 4. 价格快照
		detail := models.OrderDetail{
			OrderID:    order.ID,
			ListingID:  req.ListingID,
			VehicleID:  listing.VehicleID,
			Quantity:   1,
			UnitPrice:  listing.Vehicle.Price,
			TotalPrice: listing.Vehicle.Price,
		}
		if err := tx.Create(&detail).Error; err != nil {
			return err
		}

		// 5. 收货地址（仅当属于买家本人）
		if err := os.attachAddress(tx, order.ID, buyerID, req.ShippingAddressID); err != nil {
			return err
		}

		// 6. 通知卖家
		n, err := os.notifications.CreateTx(tx, listing.SellerID, NotificationTypeOrder,
			"Đơn hàng mới",
			fmt.Sprintf("Bạn có đơn hàng mới cho %s", listing.Vehicle.DisplayName()))
		if err != nil {
			return err
		}
		pushes = append(pushes, n)

		order.Listing = listing
		return nil
	})

	if err != nil {
		return nil, err
	}

	for _, n := range pushes {
		os.notifications.Push(n)
	}
	return &order, nil
}

// CreateOrderFromCart 从购物车结算
// 行按卖家分组，每个卖家一张订单，代表性 listing 取该组第一行；
// 所有订单和清空购物车在同一个事务里，要么全部成功要么全部回滚
func (os *OrderService) CreateOrderFromCart(buyerID string, req *CheckoutRequest) ([]models.Order, error) {
	// 1. 取已校验的结算数据（空车/含不可购买条目会在这里失败）
	checkout, err := os.carts.GetCartForOrder(buyerID)
	if err != nil {
		return nil, err
	}

	// 2. 按卖家分组，保持行的插入顺序
	sellerIDs := make([]string, 0)
	grouped := make(map[string][]CartLine)
	for _, line := range checkout.Items {
		if _, ok := grouped[line.SellerID]; !ok {
			sellerIDs = append(sellerIDs, line.SellerID)
		}
		grouped[line.SellerID] = append(grouped[line.SellerID], line)
	}

	var createdIDs []string
	var pushes []*models.Notification

	err = os.db.Transaction(func(tx *gorm.DB) error {
		for _, sellerID := range sellerIDs {
			lines := grouped[sellerID]

			var totalAmount float64
			for _, line := range lines {
				totalAmount += line.TotalPrice
			}

			// 代表性 listing = 该组第一行（同组都是同一个卖家）
			activeID := lines[0].ListingID
			order := models.Order{
				BuyerID:         buyerID,
				ListingID:       lines[0].ListingID,
				ActiveListingID: &activeID,
				DepositAmount:   totalAmount,
				Status:          models.OrderPending,
				Note:            req.Note,
			}
			if err := tx.Create(&order).Error; err != nil {
				return translateDuplicate(err)
			}

			for _, line := range lines {
				detail := models.OrderDetail{
					OrderID:    order.ID,
					ListingID:  line.ListingID,
					VehicleID:  line.VehicleID,
					Quantity:   line.Quantity,
					UnitPrice:  line.UnitPrice,
					TotalPrice: line.TotalPrice,
				}
				if err := tx.Create(&detail).Error; err != nil {
					return err
				}
			}

			if err := os.attachAddress(tx, order.ID, buyerID, req.ShippingAddressID); err != nil {
				return err
			}

			n, err := os.notifications.CreateTx(tx, sellerID, NotificationTypeOrder,
				"Đơn hàng mới",
				fmt.Sprintf("Bạn có đơn hàng mới với %d sản phẩm", len(lines)))
			if err != nil {
				return err
			}
			pushes = append(pushes, n)

			createdIDs = append(createdIDs, order.ID)
		}

		// 3. 同一事务里清空购物车
		return tx.Where("cart_id = ?", checkout.CartID).Delete(&models.CartItem{}).Error
	})

	if err != nil {
		return nil, err
	}

	for _, n := range pushes {
		os.notifications.Push(n)
	}

	// 4. 返回完整订单数据
	var orders []models.Order
	if err := os.db.
		Preload("Listing.Vehicle").
		Preload("Listing.Seller").
		Preload("OrderDetails").
		Where("id IN ?", createdIDs).
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// ConfirmOrder 卖家确认订单，仅 DEPOSITED 可确认
func (os *OrderService) ConfirmOrder(orderID, sellerID, note string) (*models.Order, error) {
	order, err := os.loadOrder(orderID)
	if err != nil {
		return nil, err
	}

	if order.Listing.SellerID != sellerID {
		return nil, ErrForbidden
	}

	var push *models.Notification
	err = os.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		result := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", orderID, models.OrderDeposited).
			Updates(map[string]interface{}{
				"status":            models.OrderConfirmed,
				"confirmed_at":      now,
				"active_listing_id": nil,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrInvalidState
		}

		message := fmt.Sprintf("Đơn hàng %s đã được xác nhận", order.Listing.Vehicle.DisplayName())
		if note != "" {
			message += ": " + note
		}
		n, err := os.notifications.CreateTx(tx, order.BuyerID, NotificationTypeOrder,
			"Đơn hàng được xác nhận", message)
		if err != nil {
			return err
		}
		push = n

		order.Status = models.OrderConfirmed
		order.ConfirmedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	os.notifications.Push(push)
	return order, nil
}

// CancelOrder 买家取消订单
// CONFIRMED/COMPLETED 不可取消；取消后 listing 恢复 ACTIVE 重新可售
func (os *OrderService) CancelOrder(orderID, buyerID, reason string) (*models.Order, error) {
	order, err := os.loadOrder(orderID)
	if err != nil {
		return nil, err
	}

	if order.BuyerID != buyerID {
		return nil, ErrForbidden
	}

	if order.Status == models.OrderConfirmed || order.Status == models.OrderCompleted {
		return nil, ErrInvalidState
	}

	var push *models.Notification
	err = os.db.Transaction(func(tx *gorm.DB) error {
		// 条件更新兜住并发的重复取消/确认
		result := tx.Model(&models.Order{}).
			Where("id = ? AND status IN ?", orderID,
				[]string{models.OrderPending, models.OrderDeposited}).
			Updates(map[string]interface{}{
				"status":            models.OrderCancelled,
				"active_listing_id": nil,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrInvalidState
		}

		// listing 恢复可售
		if err := tx.Model(&models.Listing{}).
			Where("id = ?", order.ListingID).
			Updates(map[string]interface{}{
				"status":     models.ListingActive,
				"updated_at": time.Now(),
			}).Error; err != nil {
			return err
		}

		n, err := os.notifications.CreateTx(tx, order.Listing.SellerID, NotificationTypeOrder,
			"Đơn hàng bị hủy",
			fmt.Sprintf("Đơn hàng %s đã bị hủy. Lý do: %s", order.Listing.Vehicle.DisplayName(), reason))
		if err != nil {
			return err
		}
		push = n

		order.Status = models.OrderCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}

	os.notifications.Push(push)
	return order, nil
}

// CompleteOrder 卖家完成订单，仅 CONFIRMED 可完成
func (os *OrderService) CompleteOrder(orderID, sellerID string) (*models.Order, error) {
	order, err := os.loadOrder(orderID)
	if err != nil {
		return nil, err
	}

	if order.Listing.SellerID != sellerID {
		return nil, ErrForbidden
	}

	var push *models.Notification
	err = os.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", orderID, models.OrderConfirmed).
			Update("status", models.OrderCompleted)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrInvalidState
		}

		n, err := os.notifications.CreateTx(tx, order.BuyerID, NotificationTypeOrder,
			"Đơn hàng hoàn thành",
			fmt.Sprintf("Đơn hàng %s đã hoàn thành", order.Listing.Vehicle.DisplayName()))
		if err != nil {
			return err
		}
		push = n

		order.Status = models.OrderCompleted
		return nil
	})
	if err != nil {
		return nil, err
	}

	os.notifications.Push(push)
	return order, nil
}

// UpdateOrderStatus 内部状态变更入口（支付回调使用）
func (os *OrderService) UpdateOrderStatus(orderID, status, paymentLinkID string) (*models.Order, error) {
	var order *models.Order
	var pushes []*models.Notification

	err := os.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		order, pushes, txErr = os.UpdateOrderStatusTx(tx, orderID, status, paymentLinkID)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	for _, n := range pushes {
		os.notifications.Push(n)
	}
	return order, nil
}

// UpdateOrderStatusTx 在调用方事务里执行状态变更
// 转 DEPOSITED 时：条件更新（仅 PENDING 可转）、listing 置 SOLD、双向通知；
// 返回的通知记录由调用方在事务提交后推送
func (os *OrderService) UpdateOrderStatusTx(tx *gorm.DB, orderID, status, paymentLinkID string) (*models.Order, []*models.Notification, error) {
	var order models.Order
	if err := tx.Preload("Listing.Vehicle").First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}

	if status != models.OrderDeposited {
		if err := tx.Model(&order).Update("status", status).Error; err != nil {
			return nil, nil, err
		}
		order.Status = status
		return &order, nil, nil
	}

	// PENDING -> DEPOSITED，条件更新防止回调重放
	now := time.Now()
	result := tx.Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, models.OrderPending).
		Updates(map[string]interface{}{
			"status":       models.OrderDeposited,
			"confirmed_at": now,
		})
	if result.Error != nil {
		return nil, nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil, ErrInvalidState
	}

	// listing 标记已售
	if err := tx.Model(&models.Listing{}).
		Where("id = ?", order.ListingID).
		Updates(map[string]interface{}{
			"status":     models.ListingSold,
			"updated_at": now,
		}).Error; err != nil {
		return nil, nil, err
	}

	vehicleName := order.Listing.Vehicle.DisplayName()
	var pushes []*models.Notification

	n, err := os.notifications.CreateTx(tx, order.BuyerID, NotificationTypeOrder,
		"Thanh toán thành công",
		fmt.Sprintf("Thanh toán thành công cho %s", vehicleName))
	if err != nil {
		return nil, nil, err
	}
	pushes = append(pushes, n)

	n, err = os.notifications.CreateTx(tx, order.Listing.SellerID, NotificationTypeOrder,
		"Đơn hàng đã được thanh toán",
		fmt.Sprintf("Đơn hàng %s đã được thanh toán", vehicleName))
	if err != nil {
		return nil, nil, err
	}
	pushes = append(pushes, n)

	order.Status = models.OrderDeposited
	order.ConfirmedAt = &now
	return &order, pushes, nil
}

// GetMyOrders 买家订单列表
func (os *OrderService) GetMyOrders(buyerID, status string) ([]models.Order, error) {
	query := os.db.Where("buyer_id = ?", buyerID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var orders []models.Order
	if err := query.
		Preload("Listing.Vehicle").
		Preload("Listing.Seller").
		Preload("OrderDetails.Vehicle").
		Preload("Payments").
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// GetOrdersForSeller 卖家订单列表（来自卖家的 listings）
func (os *OrderService) GetOrdersForSeller(sellerID, status string) ([]models.Order, error) {
	query := os.db.
		Joins("JOIN listings ON listings.id = orders.listing_id").
		Where("listings.seller_id = ?", sellerID)
	if status != "" {
		query = query.Where("orders.status = ?", status)
	}

	var orders []models.Order
	if err := query.
		Preload("Buyer").
		Preload("Listing.Vehicle").
		Preload("OrderDetails.Vehicle").
		Preload("OrderAddresses.Address").
		Preload("Payments").
		Order("orders.created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// GetOrderByID 订单详情，只有买家或卖家可以查看
func (os *OrderService) GetOrderByID(orderID, userID string) (*models.Order, error) {
	var order models.Order
	if err := os.db.
		Preload("Buyer").
		Preload("Listing.Vehicle").
		Preload("Listing.Seller").
		Preload("OrderDetails.Vehicle").
		Preload("OrderAddresses.Address").
		Preload("Payments").
		First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if order.BuyerID != userID && order.Listing.SellerID != userID {
		return nil, ErrForbidden
	}

	return &order, nil
}

// loadOrder 查询订单及其 listing/vehicle
func (os *OrderService) loadOrder(orderID string) (*models.Order, error) {
	var order models.Order
	if err := os.db.
		Preload("Listing.Vehicle").
		First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// attachAddress 关联收货地址，仅当地址属于买家；不属于则静默跳过
func (os *OrderService) attachAddress(tx *gorm.DB, orderID, buyerID, addressID string) error {
	if addressID == "" {
		return nil
	}

	var address models.Address
	err := tx.First(&address, "id = ?", addressID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if address.UserID != buyerID {
		return nil
	}

	return tx.Create(&models.OrderAddress{
		OrderID:     orderID,
		AddressID:   addressID,
		AddressType: "SHIPPING",
	}).Error
}

// translateDuplicate 唯一键冲突映射为业务上的 Conflict
func translateDuplicate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrConflict
	}
	return err
}
