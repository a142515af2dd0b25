package services

import (
	"testing"

	"secondcycle_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateListing(t *testing.T) {
	db := newTestDB(t)
	seller := createUser(t, db, models.RoleSeller)

	ls := NewListingService()

	listing, err := ls.CreateListing(seller.ID, &CreateListingRequest{
		Brand:       "Giant",
		Model:       "Escape 3",
		Year:        2021,
		Price:       8000000,
		Description: "Xe còn mới, ít sử dụng",
		FrameSerial: "GNT-2021-0042",
	})
	require.NoError(t, err)

	// 初始状态待审核
	assert.Equal(t, models.ListingPendingApproval, listing.Status)
	assert.Equal(t, seller.ID, listing.SellerID)
	assert.Equal(t, "Giant Escape 3", listing.Vehicle.DisplayName())

	var vehicle models.Vehicle
	require.NoError(t, db.First(&vehicle, "id = ?", listing.VehicleID).Error)
	assert.EqualValues(t, 8000000, vehicle.Price)
}

func TestChangeStatus(t *testing.T) {
	db := newTestDB(t)
	seller := createUser(t, db, models.RoleSeller)
	other := createUser(t, db, models.RoleSeller)

	ls := NewListingService()

	listing := createListing(t, db, seller, models.ListingApproved)

	// 只有卖家本人可以操作
	_, err := ls.ChangeStatus(listing.ID, other.ID, ListingActionHide)
	assert.ErrorIs(t, err, ErrForbidden)

	hidden, err := ls.ChangeStatus(listing.ID, seller.ID, ListingActionHide)
	require.NoError(t, err)
	assert.Equal(t, models.ListingHidden, hidden.Status)

	shown, err := ls.ChangeStatus(listing.ID, seller.ID, ListingActionShow)
	require.NoError(t, err)
	assert.Equal(t, models.ListingActive, shown.Status)

	sold, err := ls.ChangeStatus(listing.ID, seller.ID, ListingActionMarkSold)
	require.NoError(t, err)
	assert.Equal(t, models.ListingSold, sold.Status)

	// SOLD 是终态，卖家不能再自助变更
	_, err = ls.ChangeStatus(listing.ID, seller.ID, ListingActionShow)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestChangeStatusRejectsModeratedStates(t *testing.T) {
	db := newTestDB(t)
	seller := createUser(t, db, models.RoleSeller)

	ls := NewListingService()

	// 待审核和已驳回的发布不允许卖家绕过审核
	for _, status := range []string{models.ListingPendingApproval, models.ListingRejected} {
		listing := createListing(t, db, seller, status)
		_, err := ls.ChangeStatus(listing.ID, seller.ID, ListingActionShow)
		assert.ErrorIs(t, err, ErrInvalidState, "status %s", status)
	}

	_, err := ls.ChangeStatus("missing-id", seller.ID, ListingActionShow)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetListingsOnlyAvailable(t *testing.T) {
	db := newTestDB(t)
	seller := createUser(t, db, models.RoleSeller)

	createListing(t, db, seller, models.ListingApproved)
	createListing(t, db, seller, models.ListingActive)
	createListing(t, db, seller, models.ListingPendingApproval)
	createListing(t, db, seller, models.ListingHidden)
	createListing(t, db, seller, models.ListingSold)

	ls := NewListingService()

	listings, total, err := ls.GetListings(1, 20, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	for _, l := range listings {
		assert.True(t, l.IsAvailable())
	}
}

func TestGetListingsBrandFilter(t *testing.T) {
	db := newTestDB(t)
	seller := createUser(t, db, models.RoleSeller)

	createListing(t, db, seller, models.ListingActive) // Giant
	createListingWithVehicle(t, db, seller, models.ListingActive, &models.Vehicle{
		Brand: "Trek",
		Model: "FX 2",
		Price: 5000000,
	})

	ls := NewListingService()

	listings, total, err := ls.GetListings(1, 20, map[string]interface{}{"brand": "Trek"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, listings, 1)
	assert.Equal(t, "Trek", listings[0].Vehicle.Brand)
}

func TestGetMyListingsIncludesAllStatuses(t *testing.T) {
	db := newTestDB(t)
	seller := createUser(t, db, models.RoleSeller)
	other := createUser(t, db, models.RoleSeller)

	createListing(t, db, seller, models.ListingPendingApproval)
	createListing(t, db, seller, models.ListingRejected)
	createListing(t, db, other, models.ListingActive)

	ls := NewListingService()

	listings, err := ls.GetMyListings(seller.ID, "")
	require.NoError(t, err)
	assert.Len(t, listings, 2)

	rejected, err := ls.GetMyListings(seller.ID, models.ListingRejected)
	require.NoError(t, err)
	assert.Len(t, rejected, 1)
}
