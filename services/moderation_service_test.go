package services

import (
	"errors"
	"testing"
	"time"

	"secondcycle_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApproveListing(t *testing.T) {
	db := newTestDB(t)
	seller := createUser(t, db, models.RoleSeller)
	admin := createUser(t, db, models.RoleAdmin)
	listing := createListing(t, db, seller, models.ListingPendingApproval)

	ms := NewModerationService()

	result, err := ms.ApproveListing(listing.ID, admin.ID, "kiểm tra ổn")
	require.NoError(t, err)

	// 有效期固定7天
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 7), result.ExpiresAt, time.Minute)

	updated := reloadListing(t, db, listing.ID)
	assert.Equal(t, models.ListingApproved, updated.Status)
	assert.Equal(t, admin.ID, updated.ApprovedBy)
	require.NotNil(t, updated.ExpiresAt)
	require.NotNil(t, updated.ApprovedAt)
}

func TestApproveListingBannedKeywordAutoRejects(t *testing.T) {
	db := newTestDB(t)
	seller := createUser(t, db, models.RoleSeller)
	admin := createUser(t, db, models.RoleAdmin)
	listing := createListingWithVehicle(t, db, seller, models.ListingPendingApproval, &models.Vehicle{
		Brand:       "Giant",
		Model:       "Escape 3",
		Price:       8000000,
		Description: "Xe đẹp, KHÔNG SANG TÊN, bán nhanh",
	})

	ms := NewModerationService()

	_, err := ms.ApproveListing(listing.ID, admin.ID, "")
	require.Error(t, err)

	// 返回命中的违禁词（大小写无关）
	var violation *PolicyViolationError
	require.True(t, errors.As(err, &violation))
	assert.Equal(t, "không sang tên", violation.Keyword)

	// 自动驳回必须已落库，即使 approve 调用返回了错误
	updated := reloadListing(t, db, listing.ID)
	assert.Equal(t, models.ListingRejected, updated.Status)
	assert.Contains(t, updated.ApprovalNote, "không sang tên")
	assert.Nil(t, updated.ExpiresAt)
}

func TestApproveListingScansAdminNote(t *testing.T) {
	db := newTestDB(t)
	seller := createUser(t, db, models.RoleSeller)
	admin := createUser(t, db, models.RoleAdmin)
	listing := createListing(t, db, seller, models.ListingPendingApproval)

	ms := NewModerationService()

	// 管理员备注也在扫描范围内
	_, err := ms.ApproveListing(listing.ID, admin.ID, "nghi là xe gian")

	var violation *PolicyViolationError
	require.True(t, errors.As(err, &violation))
	assert.Equal(t, "xe gian", violation.Keyword)
	assert.Equal(t, models.ListingRejected, reloadListing(t, db, listing.ID).Status)
}

func TestApproveListingRequiresPendingStatus(t *testing.T) {
	db := newTestDB(t)
	seller := createUser(t, db, models.RoleSeller)
	admin := createUser(t, db, models.RoleAdmin)

	ms := NewModerationService()

	for _, status := range []string{
		models.ListingApproved,
		models.ListingActive,
		models.ListingRejected,
		models.ListingSold,
	} {
		listing := createListing(t, db, seller, status)
		_, err := ms.ApproveListing(listing.ID, admin.ID, "")
		assert.ErrorIs(t, err, ErrInvalidState, "status %s", status)
	}

	_, err := ms.ApproveListing("missing-id", admin.ID, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRejectListing(t *testing.T) {
	db := newTestDB(t)
	seller := createUser(t, db, models.RoleSeller)
	admin := createUser(t, db, models.RoleAdmin)
	listing := createListing(t, db, seller, models.ListingPendingApproval)

	ms := NewModerationService()

	// 驳回理由必填
	require.Error(t, ms.RejectListing(listing.ID, admin.ID, "  "))

	require.NoError(t, ms.RejectListing(listing.ID, admin.ID, "Ảnh không rõ nét"))

	updated := reloadListing(t, db, listing.ID)
	assert.Equal(t, models.ListingRejected, updated.Status)
	assert.Equal(t, "Ảnh không rõ nét", updated.ApprovalNote)

	// 重复驳回
	assert.ErrorIs(t, ms.RejectListing(listing.ID, admin.ID, "again"), ErrInvalidState)
}

func TestGetPendingListings(t *testing.T) {
	db := newTestDB(t)
	seller := createUser(t, db, models.RoleSeller)

	createListing(t, db, seller, models.ListingPendingApproval)
	createListing(t, db, seller, models.ListingPendingApproval)
	createListing(t, db, seller, models.ListingApproved)

	listings, total, err := NewModerationService().GetPendingListings(1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, listings, 2)
	for _, l := range listings {
		assert.Equal(t, models.ListingPendingApproval, l.Status)
	}
}
