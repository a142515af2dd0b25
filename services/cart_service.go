package services

import (
	"errors"

	"secondcycle_go/config"
	"secondcycle_go/models"

	"gorm.io/gorm"
)

// CartService 购物车服务
type CartService struct {
	db *gorm.DB
}

// NewCartService 创建购物车服务实例
func NewCartService() *CartService {
	return &CartService{db: config.DB}
}

// CartLine 结算用的购物车行，带下单时的价格快照
type CartLine struct {
	CartItemID string         `json:"cart_item_id"`
	ListingID  string         `json:"listing_id"`
	VehicleID  string         `json:"vehicle_id"`
	SellerID   string         `json:"seller_id"`
	Quantity   int            `json:"quantity"`
	UnitPrice  float64        `json:"unit_price"`
	TotalPrice float64        `json:"total_price"`
	Listing    models.Listing `json:"listing"`
}

// CartCheckout 校验通过的结算数据
type CartCheckout struct {
	CartID      string     `json:"cart_id"`
	Items       []CartLine `json:"items"`
	TotalAmount float64    `json:"total_amount"`
}

// AddToCart 添加发布到购物车
// 买家不能加自己的发布；只有 APPROVED/ACTIVE 的发布可以加；
// 已在购物车里的发布数量累加
func (cs *CartService) AddToCart(buyerID, listingID string, quantity int) (*models.CartItem, error) {
	if quantity <= 0 {
		quantity = 1
	}

	// 1. 校验 listing
	var listing models.Listing
	if err := cs.db.Preload("Vehicle").First(&listing, "id = ?", listingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if !listing.IsAvailable() {
		return nil, ErrInvalidState
	}

	if listing.SellerID == buyerID {
		return nil, ErrInvalidOwnership
	}

	// 2. 查找或懒创建购物车
	cart, err := cs.getOrCreateCart(buyerID)
	if err != nil {
		return nil, err
	}

	// 3. 已有条目则累加数量，否则插入新行
	var item models.CartItem
	err = cs.db.Where("cart_id = ? AND listing_id = ?", cart.ID, listingID).First(&item).Error
	switch {
	case err == nil:
		// Update 会把新值写回 item.Quantity，不要再手动累加
		if err := cs.db.Model(&item).Update("quantity", item.Quantity+quantity).Error; err != nil {
			return nil, err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		item = models.CartItem{
			CartID:    cart.ID,
			ListingID: listingID,
			Quantity:  quantity,
		}
		if err := cs.db.Create(&item).Error; err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	item.Listing = listing
	return &item, nil
}

// GetMyCart 获取买家购物车，返回条目、总金额和条目数
func (cs *CartService) GetMyCart(buyerID string) (*models.Cart, float64, error) {
	cart, err := cs.getOrCreateCart(buyerID)
	if err != nil {
		return nil, 0, err
	}

	if err := cs.db.
		Preload("Items.Listing.Vehicle").
		Preload("Items.Listing.Seller").
		First(cart, "id = ?", cart.ID).Error; err != nil {
		return nil, 0, err
	}

	var total float64
	for _, item := range cart.Items {
		total += item.Listing.Vehicle.Price * float64(item.Quantity)
	}

	return cart, total, nil
}

// UpdateCartItem 更新条目数量，只能操作自己的购物车
func (cs *CartService) UpdateCartItem(buyerID, cartItemID string, quantity int) (*models.CartItem, error) {
	item, err := cs.findOwnedItem(buyerID, cartItemID)
	if err != nil {
		return nil, err
	}

	if err := cs.db.Model(item).Update("quantity", quantity).Error; err != nil {
		return nil, err
	}
	item.Quantity = quantity

	return item, nil
}

// RemoveFromCart 删除条目，只能操作自己的购物车
func (cs *CartService) RemoveFromCart(buyerID, cartItemID string) error {
	item, err := cs.findOwnedItem(buyerID, cartItemID)
	if err != nil {
		return err
	}
	return cs.db.Delete(item).Error
}

// ClearCart 清空购物车
func (cs *CartService) ClearCart(buyerID string) error {
	var cart models.Cart
	if err := cs.db.First(&cart, "buyer_id = ?", buyerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return cs.db.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error
}

// GetCartForOrder 结算前校验购物车
// 任何一条发布不可购买就整体失败（不允许只结算可用部分），
// 成功时返回带价格快照的行和总金额
func (cs *CartService) GetCartForOrder(buyerID string) (*CartCheckout, error) {
	var cart models.Cart
	err := cs.db.
		Preload("Items.Listing.Vehicle").
		First(&cart, "buyer_id = ?", buyerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCartEmpty
		}
		return nil, err
	}

	if len(cart.Items) == 0 {
		return nil, ErrCartEmpty
	}

	var unavailable []string
	lines := make([]CartLine, 0, len(cart.Items))
	var total float64

	for _, item := range cart.Items {
		if !item.Listing.IsAvailable() {
			unavailable = append(unavailable, item.Listing.Vehicle.DisplayName())
			continue
		}

		lineTotal := item.Listing.Vehicle.Price * float64(item.Quantity)
		lines = append(lines, CartLine{
			CartItemID: item.ID,
			ListingID:  item.ListingID,
			VehicleID:  item.Listing.VehicleID,
			SellerID:   item.Listing.SellerID,
			Quantity:   item.Quantity,
			UnitPrice:  item.Listing.Vehicle.Price,
			TotalPrice: lineTotal,
			Listing:    item.Listing,
		})
		total += lineTotal
	}

	if len(unavailable) > 0 {
		return nil, &CartInvalidError{Items: unavailable}
	}

	return &CartCheckout{
		CartID:      cart.ID,
		Items:       lines,
		TotalAmount: total,
	}, nil
}

// getOrCreateCart 查找购物车，不存在则懒创建
func (cs *CartService) getOrCreateCart(buyerID string) (*models.Cart, error) {
	var cart models.Cart
	err := cs.db.First(&cart, "buyer_id = ?", buyerID).Error
	if err == nil {
		return &cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	cart = models.Cart{BuyerID: buyerID}
	if err := cs.db.Create(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// findOwnedItem 查找条目并校验归属
func (cs *CartService) findOwnedItem(buyerID, cartItemID string) (*models.CartItem, error) {
	var item models.CartItem
	if err := cs.db.Preload("Cart").First(&item, "id = ?", cartItemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if item.Cart.BuyerID != buyerID {
		return nil, ErrForbidden
	}

	return &item, nil
}
