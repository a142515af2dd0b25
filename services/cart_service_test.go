package services

import (
	"errors"
	"testing"

	"secondcycle_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddToCart(t *testing.T) {
	db := newTestDB(t)
	seller := createUser(t, db, models.RoleSeller)
	buyer := createUser(t, db, models.RoleBuyer)
	listing := createListing(t, db, seller, models.ListingActive)

	cs := NewCartService()

	item, err := cs.AddToCart(buyer.ID, listing.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, item.Quantity)

	// 重复添加数量累加，不产生新行
	item, err = cs.AddToCart(buyer.ID, listing.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, item.Quantity)

	// 返回值必须和落库的数量一致
	var stored models.CartItem
	require.NoError(t, db.First(&stored, "id = ?", item.ID).Error)
	assert.Equal(t, stored.Quantity, item.Quantity)

	var count int64
	require.NoError(t, db.Model(&models.CartItem{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestAddToCartRejectsOwnListing(t *testing.T) {
	db := newTestDB(t)
	seller := createUser(t, db, models.RoleSeller)
	listing := createListing(t, db, seller, models.ListingActive)

	_, err := NewCartService().AddToCart(seller.ID, listing.ID, 1)
	assert.ErrorIs(t, err, ErrInvalidOwnership)
}

func TestAddToCartRejectsUnavailableListing(t *testing.T) {
	db := newTestDB(t)
	seller := createUser(t, db, models.RoleSeller)
	buyer := createUser(t, db, models.RoleBuyer)

	cs := NewCartService()

	for _, status := range []string{
		models.ListingPendingApproval,
		models.ListingHidden,
		models.ListingRejected,
		models.ListingSold,
	} {
		listing := createListing(t, db, seller, status)
		_, err := cs.AddToCart(buyer.ID, listing.ID, 1)
		assert.ErrorIs(t, err, ErrInvalidState, "status %s", status)
	}

	_, err := cs.AddToCart(buyer.ID, "missing-id", 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCartItemOwnership(t *testing.T) {
	db := newTestDB(t)
	seller := createUser(t, db, models.RoleSeller)
	buyer := createUser(t, db, models.RoleBuyer)
	other := createUser(t, db, models.RoleBuyer)
	listing := createListing(t, db, seller, models.ListingActive)

	cs := NewCartService()

	item, err := cs.AddToCart(buyer.ID, listing.ID, 1)
	require.NoError(t, err)

	// 别人的购物车条目不可操作
	_, err = cs.UpdateCartItem(other.ID, item.ID, 5)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, cs.RemoveFromCart(other.ID, item.ID), ErrForbidden)

	updated, err := cs.UpdateCartItem(buyer.ID, item.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Quantity)

	require.NoError(t, cs.RemoveFromCart(buyer.ID, item.ID))

	var count int64
	require.NoError(t, db.Model(&models.CartItem{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestGetMyCartTotals(t *testing.T) {
	db := newTestDB(t)
	seller := createUser(t, db, models.RoleSeller)
	buyer := createUser(t, db, models.RoleBuyer)

	l1 := createListing(t, db, seller, models.ListingActive) // 8,000,000
	l2 := createListingWithVehicle(t, db, seller, models.ListingActive, &models.Vehicle{
		Brand: "Trek",
		Model: "FX 2",
		Price: 5000000,
	})

	cs := NewCartService()
	_, err := cs.AddToCart(buyer.ID, l1.ID, 1)
	require.NoError(t, err)
	_, err = cs.AddToCart(buyer.ID, l2.ID, 2)
	require.NoError(t, err)

	cart, total, err := cs.GetMyCart(buyer.ID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2)
	assert.EqualValues(t, 18000000, total)
}

func TestGetCartForOrderAllOrNothing(t *testing.T) {
	db := newTestDB(t)
	seller := createUser(t, db, models.RoleSeller)
	buyer := createUser(t, db, models.RoleBuyer)

	ok := createListing(t, db, seller, models.ListingActive)
	gone := createListingWithVehicle(t, db, seller, models.ListingActive, &models.Vehicle{
		Brand: "Trek",
		Model: "FX 2",
		Price: 5000000,
	})

	cs := NewCartService()
	_, err := cs.AddToCart(buyer.ID, ok.ID, 1)
	require.NoError(t, err)
	_, err = cs.AddToCart(buyer.ID, gone.ID, 1)
	require.NoError(t, err)

	// 结算前其中一条被卖家下架
	require.NoError(t, db.Model(&models.Listing{}).
		Where("id = ?", gone.ID).
		Update("status", models.ListingHidden).Error)

	_, err = cs.GetCartForOrder(buyer.ID)
	require.Error(t, err)

	// 全有或全无：哪怕只有一条失效，整体失败并点名失效条目
	var invalid *CartInvalidError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, []string{"Trek FX 2"}, invalid.Items)

	// 购物车原样保留
	cart, _, err := cs.GetMyCart(buyer.ID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2)
}

func TestGetCartForOrderEmptyCart(t *testing.T) {
	db := newTestDB(t)
	buyer := createUser(t, db, models.RoleBuyer)

	cs := NewCartService()

	// 从未创建过购物车
	_, err := cs.GetCartForOrder(buyer.ID)
	assert.ErrorIs(t, err, ErrCartEmpty)

	// 空购物车
	_, _, err = cs.GetMyCart(buyer.ID)
	require.NoError(t, err)
	_, err = cs.GetCartForOrder(buyer.ID)
	assert.ErrorIs(t, err, ErrCartEmpty)
}
