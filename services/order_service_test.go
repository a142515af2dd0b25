package services

import (
	"testing"

	"secondcycle_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOrder(t *testing.T) {
	db := newTestDB(t)
	seller := createUser(t, db, models.RoleSeller)
	buyer := createUser(t, db, models.RoleBuyer)
	listing := createListing(t, db, seller, models.ListingApproved)

	os := NewOrderService()

	order, err := os.CreateOrder(buyer.ID, &CreateOrderRequest{ListingID: listing.ID})
	require.NoError(t, err)

	assert.Equal(t, models.OrderPending, order.Status)
	assert.EqualValues(t, 8000000, order.DepositAmount)
	require.NotNil(t, order.ActiveListingID)
	assert.Equal(t, listing.ID, *order.ActiveListingID)

	// 价格快照
	var detail models.OrderDetail
	require.NoError(t, db.First(&detail, "order_id = ?", order.ID).Error)
	assert.Equal(t, listing.ID, detail.ListingID)
	assert.EqualValues(t, 8000000, detail.UnitPrice)
	assert.Equal(t, 1, detail.Quantity)

	// 卖家收到下单通知
	assert.EqualValues(t, 1, countNotifications(t, db, seller.ID))
}

func TestCreateOrderValidation(t *testing.T) {
	db := newTestDB(t)
	seller := createUser(t, db, models.RoleSeller)
	buyer := createUser(t, db, models.RoleBuyer)

	os := NewOrderService()

	_, err := os.CreateOrder(buyer.ID, &CreateOrderRequest{ListingID: "missing-id"})
	assert.ErrorIs(t, err, ErrNotFound)

	hidden := createListing(t, db, seller, models.ListingHidden)
	_, err = os.CreateOrder(buyer.ID, &CreateOrderRequest{ListingID: hidden.ID})
	assert.ErrorIs(t, err, ErrInvalidState)

	own := createListing(t, db, seller, models.ListingActive)
	_, err = os.CreateOrder(seller.ID, &CreateOrderRequest{ListingID: own.ID})
	assert.ErrorIs(t, err, ErrInvalidOwnership)
}

func TestCreateOrderSingleActivePerListing(t *testing.T) {
	db := newTestDB(t)
	seller := createUser(t, db, models.RoleSeller)
	buyer1 := createUser(t, db, models.RoleBuyer)
	buyer2 := createUser(t, db, models.RoleBuyer)
	listing := createListing(t, db, seller, models.ListingApproved)

	os := NewOrderService()

	first, err := os.CreateOrder(buyer1.ID, &CreateOrderRequest{ListingID: listing.ID})
	require.NoError(t, err)

	// 同一 listing 已有活跃订单，第二个买家下单冲突
	_, err = os.CreateOrder(buyer2.ID, &CreateOrderRequest{ListingID: listing.ID})
	assert.ErrorIs(t, err, ErrConflict)

	// 取消后位置释放，可以重新下单
	_, err = os.CancelOrder(first.ID, buyer1.ID, "đổi ý")
	require.NoError(t, err)

	_, err = os.CreateOrder(buyer2.ID, &CreateOrderRequest{ListingID: listing.ID})
	require.NoError(t, err)
}

func TestCancelOrderRevertsListing(t *testing.T) {
	db := newTestDB(t)
	seller := createUser(t, db, models.RoleSeller)
	buyer := createUser(t, db, models.RoleBuyer)
	listing := createListing(t, db, seller, models.ListingApproved)

	os := NewOrderService()

	order, err := os.CreateOrder(buyer.ID, &CreateOrderRequest{ListingID: listing.ID})
	require.NoError(t, err)

	// 只有买家本人能取消
	_, err = os.CancelOrder(order.ID, seller.ID, "")
	assert.ErrorIs(t, err, ErrForbidden)

	cancelled, err := os.CancelOrder(order.ID, buyer.ID, "đổi ý")
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, cancelled.Status)

	// 发布恢复可售，活跃位清空
	assert.Equal(t, models.ListingActive, reloadListing(t, db, listing.ID).Status)
	assert.Nil(t, reloadOrder(t, db, order.ID).ActiveListingID)

	// 重复取消
	_, err = os.CancelOrder(order.ID, buyer.ID, "again")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCancelOrderRejectedAfterConfirm(t *testing.T) {
	db := newTestDB(t)
	seller := createUser(t, db, models.RoleSeller)
	buyer := createUser(t, db, models.RoleBuyer)
	listing := createListing(t, db, seller, models.ListingApproved)

	os := NewOrderService()

	order, err := os.CreateOrder(buyer.ID, &CreateOrderRequest{ListingID: listing.ID})
	require.NoError(t, err)

	_, err = os.UpdateOrderStatus(order.ID, models.OrderDeposited, "link-1")
	require.NoError(t, err)

	_, err = os.ConfirmOrder(order.ID, seller.ID, "")
	require.NoError(t, err)

	// 确认后不可取消
	_, err = os.CancelOrder(order.ID, buyer.ID, "")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestOrderLifecycle(t *testing.T) {
	db := newTestDB(t)
	seller := createUser(t, db, models.RoleSeller)
	buyer := createUser(t, db, models.RoleBuyer)
	listing := createListing(t, db, seller, models.ListingApproved)

	os := NewOrderService()

	order, err := os.CreateOrder(buyer.ID, &CreateOrderRequest{ListingID: listing.ID})
	require.NoError(t, err)

	// PENDING 不可直接确认/完成
	_, err = os.ConfirmOrder(order.ID, seller.ID, "")
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = os.CompleteOrder(order.ID, seller.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	// 支付成功 PENDING -> DEPOSITED，发布锁定为 SOLD
	deposited, err := os.UpdateOrderStatus(order.ID, models.OrderDeposited, "link-1")
	require.NoError(t, err)
	assert.Equal(t, models.OrderDeposited, deposited.Status)
	require.NotNil(t, deposited.ConfirmedAt)
	assert.Equal(t, models.ListingSold, reloadListing(t, db, listing.ID).Status)

	// 确认只有卖家可以做
	_, err = os.ConfirmOrder(order.ID, buyer.ID, "")
	assert.ErrorIs(t, err, ErrForbidden)

	confirmed, err := os.ConfirmOrder(order.ID, seller.ID, "hẹn giao xe cuối tuần")
	require.NoError(t, err)
	assert.Equal(t, models.OrderConfirmed, confirmed.Status)
	assert.Nil(t, reloadOrder(t, db, order.ID).ActiveListingID)

	completed, err := os.CompleteOrder(order.ID, seller.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCompleted, completed.Status)

	// 买家收到：支付成功、确认、完成三条通知
	assert.EqualValues(t, 3, countNotifications(t, db, buyer.ID))
	// 卖家收到：下单、已支付两条通知
	assert.EqualValues(t, 2, countNotifications(t, db, seller.ID))
}

func TestUpdateOrderStatusIdempotent(t *testing.T) {
	db := newTestDB(t)
	seller := createUser(t, db, models.RoleSeller)
	buyer := createUser(t, db, models.RoleBuyer)
	listing := createListing(t, db, seller, models.ListingApproved)

	os := NewOrderService()

	order, err := os.CreateOrder(buyer.ID, &CreateOrderRequest{ListingID: listing.ID})
	require.NoError(t, err)

	_, err = os.UpdateOrderStatus(order.ID, models.OrderDeposited, "link-1")
	require.NoError(t, err)

	// 条件更新只在 PENDING 生效，重放被拒绝
	_, err = os.UpdateOrderStatus(order.ID, models.OrderDeposited, "link-1")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCheckoutGroupsBySeller(t *testing.T) {
	db := newTestDB(t)
	seller1 := createUser(t, db, models.RoleSeller)
	seller2 := createUser(t, db, models.RoleSeller)
	buyer := createUser(t, db, models.RoleBuyer)

	l1 := createListing(t, db, seller1, models.ListingActive) // 8,000,000
	l2 := createListingWithVehicle(t, db, seller1, models.ListingActive, &models.Vehicle{
		Brand: "Giant",
		Model: "ATX 660",
		Price: 6000000,
	})
	l3 := createListingWithVehicle(t, db, seller2, models.ListingActive, &models.Vehicle{
		Brand: "Trek",
		Model: "FX 2",
		Price: 5000000,
	})

	cs := NewCartService()
	for _, id := range []string{l1.ID, l2.ID, l3.ID} {
		_, err := cs.AddToCart(buyer.ID, id, 1)
		require.NoError(t, err)
	}

	os := NewOrderService()

	orders, err := os.CreateOrderFromCart(buyer.ID, &CheckoutRequest{})
	require.NoError(t, err)
	require.Len(t, orders, 2)

	// 金额按卖家分组汇总
	totals := make(map[string]float64)
	for _, order := range orders {
		totals[order.Listing.SellerID] = order.DepositAmount
	}
	assert.EqualValues(t, 14000000, totals[seller1.ID])
	assert.EqualValues(t, 5000000, totals[seller2.ID])

	// 明细行数：seller1 两行，seller2 一行
	var detailCount int64
	require.NoError(t, db.Model(&models.OrderDetail{}).Count(&detailCount).Error)
	assert.EqualValues(t, 3, detailCount)

	// 购物车在同一事务里被清空
	cart, _, err := cs.GetMyCart(buyer.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	// 每个卖家各收到一条通知
	assert.EqualValues(t, 1, countNotifications(t, db, seller1.ID))
	assert.EqualValues(t, 1, countNotifications(t, db, seller2.ID))
}

func TestCheckoutFailsAtomically(t *testing.T) {
	db := newTestDB(t)
	seller := createUser(t, db, models.RoleSeller)
	buyer := createUser(t, db, models.RoleBuyer)

	ok := createListing(t, db, seller, models.ListingActive)
	gone := createListing(t, db, seller, models.ListingActive)

	cs := NewCartService()
	_, err := cs.AddToCart(buyer.ID, ok.ID, 1)
	require.NoError(t, err)
	_, err = cs.AddToCart(buyer.ID, gone.ID, 1)
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.Listing{}).
		Where("id = ?", gone.ID).
		Update("status", models.ListingSold).Error)

	os := NewOrderService()

	_, err = os.CreateOrderFromCart(buyer.ID, &CheckoutRequest{})
	require.Error(t, err)

	// 没有任何订单落库，购物车保持原样
	var orderCount int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orderCount).Error)
	assert.EqualValues(t, 0, orderCount)

	cart, _, err := cs.GetMyCart(buyer.ID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2)
}

func TestGetOrderByIDAccess(t *testing.T) {
	db := newTestDB(t)
	seller := createUser(t, db, models.RoleSeller)
	buyer := createUser(t, db, models.RoleBuyer)
	stranger := createUser(t, db, models.RoleBuyer)
	listing := createListing(t, db, seller, models.ListingApproved)

	os := NewOrderService()

	order, err := os.CreateOrder(buyer.ID, &CreateOrderRequest{ListingID: listing.ID})
	require.NoError(t, err)

	_, err = os.GetOrderByID(order.ID, buyer.ID)
	assert.NoError(t, err)
	_, err = os.GetOrderByID(order.ID, seller.ID)
	assert.NoError(t, err)

	// 无关用户不可见
	_, err = os.GetOrderByID(order.ID, stranger.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}
