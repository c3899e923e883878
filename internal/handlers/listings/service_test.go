package listings

import (
	"bytes"
	"context"
	"log/slog"
	"regexp"
	"strings"
	"testing"
	"time"

	"marketplace/internal/auth"
	"marketplace/internal/errors"
	"marketplace/internal/storage"
	"marketplace/internal/testutil"

	repo "marketplace/internal/database/postgresql"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	sellerUUID  = "a0eebc99-9c0b-4ef8-bb6d-6bb9bd380a11"
	otherUUID   = "b1eebc99-9c0b-4ef8-bb6d-6bb9bd380a22"
	listingUUID = "11111111-1111-1111-1111-111111111111"
	imageUUIDA  = "22222222-2222-2222-2222-222222222222"
	imageUUIDB  = "33333333-3333-3333-3333-333333333333"
	imageUUIDC  = "44444444-4444-4444-4444-444444444444"
)

func newTestService(t *testing.T) (*svc, pgxmock.PgxPoolIface, *storage.MemoryProvider) {
	t.Helper()
	mockPool := testutil.NewMockDB(t)
	store := storage.NewMemoryProvider()

	service := &svc{
		repo:           repo.New(mockPool),
		db:             mockPool,
		logger:         testutil.NewTestLogger(),
		storage:        store,
		publicFilesURL: "https://cdn.example.com",
	}
	return service, mockPool, store
}

func sellerInfo() auth.UserInfo {
	return auth.UserInfo{
		ID:       sellerUUID,
		Email:    "seller@example.com",
		Username: "seller",
	}
}

func strPtr(s string) *string { return &s }
func pricePtr(n int64) *int64 { return &n }

func TestCreateListing_DraftWithImage(t *testing.T) {
	service, mockPool, store := newTestService(t)
	now := time.Now()

	req := &CreateListingRequest{
		Title:        "Oak dining chair",
		Description:  "Solid oak, barely used",
		PriceMinUnit: pricePtr(4500),
		Category:     "CHAIR",
		Condition:    "good",
		Directives:   []Directive{CreateImage{Position: 1, FileKey: "photo_front"}},
		Uploads:      uploadsFor("photo_front"),
	}

	mockPool.ExpectBegin()

	mockPool.ExpectQuery(regexp.QuoteMeta(`INSERT INTO listings`)).
		WithArgs(
			pgxmock.AnyArg(), "seller", "Oak dining chair", "Solid oak, barely used",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnRows(pgxmock.NewRows(testutil.ListingsCols).AddRow(
			listingUUID, sellerUUID, "seller", "Oak dining chair", "Solid oak, barely used",
			int64(4500), "CHAIR", "good", "draft", now, now,
		))

	// Reconcile loads the (empty) persisted set first
	mockPool.ExpectQuery(regexp.QuoteMeta(`FROM listing_images WHERE listing_id = $1 ORDER BY position`)).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(testutil.ListingImageCols))

	mockPool.ExpectQuery(regexp.QuoteMeta(`INSERT INTO listing_images`)).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), []int32{1}).
		WillReturnRows(pgxmock.NewRows(testutil.ListingImageCols).AddRow(
			imageUUIDA, listingUUID, "listings/"+listingUUID+"/front.jpg", int32(1), now,
		))

	// Final load for the response
	mockPool.ExpectQuery(regexp.QuoteMeta(`FROM listing_images WHERE listing_id = $1 ORDER BY position`)).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(testutil.ListingImageCols).AddRow(
			imageUUIDA, listingUUID, "listings/"+listingUUID+"/front.jpg", int32(1), now,
		))

	mockPool.ExpectCommit()

	result, err := service.CreateListing(context.Background(), sellerInfo(), req)
	require.NoError(t, err)

	assert.Equal(t, "Oak dining chair", result.Title)
	assert.Equal(t, "draft", result.Status)
	require.Len(t, result.Images, 1)
	require.NotNil(t, result.Thumbnail)
	assert.Equal(t, "https://cdn.example.com/listings/"+listingUUID+"/front.jpg", *result.Thumbnail)
	assert.True(t, result.IsOwner)
	assert.Equal(t, 1, store.Len())
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestCreateListing_PublishNamesMissingFields(t *testing.T) {
	service, mockPool, _ := newTestService(t)

	req := &CreateListingRequest{
		Status: "published",
	}

	_, err := service.CreateListing(context.Background(), sellerInfo(), req)
	assertAppError(t, err, errors.ErrInvalidInput)

	for _, field := range []string{"title", "price", "category", "condition"} {
		assert.Contains(t, err.Error(), field)
	}
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestCreateListing_RejectsNonCreateDirectives(t *testing.T) {
	service, mockPool, _ := newTestService(t)

	req := &CreateListingRequest{
		Title:      "Oak chair",
		Directives: []Directive{KeepImage{ID: imageUUIDA, Position: 1}},
	}

	_, err := service.CreateListing(context.Background(), sellerInfo(), req)
	assertAppError(t, err, errors.ErrInvalidInput)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestUpdateListing_EmptyBatchLeavesImagesUntouched(t *testing.T) {
	service, mockPool, _ := newTestService(t)
	now := time.Now()

	mockPool.ExpectBegin()

	mockPool.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(testutil.ListingsCols).AddRow(
			listingUUID, sellerUUID, "seller", "Old title", "desc",
			int64(4500), "CHAIR", "good", "draft", now, now,
		))

	mockPool.ExpectQuery(regexp.QuoteMeta(`UPDATE listings SET`)).
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnRows(pgxmock.NewRows(testutil.ListingsCols).AddRow(
			listingUUID, sellerUUID, "seller", "New title", "desc",
			int64(4500), "CHAIR", "good", "draft", now, now,
		))

	// Only the response load touches listing_images; no DELETE, reorder or
	// INSERT is expected for an empty directive batch.
	mockPool.ExpectQuery(regexp.QuoteMeta(`FROM listing_images WHERE listing_id = $1 ORDER BY position`)).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(testutil.ListingImageCols))

	mockPool.ExpectCommit()

	result, err := service.UpdateListing(context.Background(), sellerInfo(), listingUUID, &UpdateListingRequest{
		Title: strPtr("New title"),
	})
	require.NoError(t, err)
	assert.Equal(t, "New title", result.Title)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestUpdateListing_BatchIsAuthoritative(t *testing.T) {
	service, mockPool, store := newTestService(t)
	now := time.Now()

	// Blob for the image the batch omits; it must be released after commit.
	require.NoError(t, store.Put(context.Background(), storage.BucketImages,
		"keyB.jpg", strings.NewReader("b"), 1, "image/jpeg"))

	// Keep A at position 2, create C at position 1, omit B entirely.
	req := &UpdateListingRequest{
		Directives: []Directive{
			KeepImage{ID: imageUUIDA, Position: 2},
			CreateImage{Position: 1, FileKey: "photo_new"},
		},
		Uploads: uploadsFor("photo_new"),
	}

	mockPool.ExpectBegin()

	mockPool.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(testutil.ListingsCols).AddRow(
			listingUUID, sellerUUID, "seller", "Oak chair", "desc",
			int64(4500), "CHAIR", "good", "draft", now, now,
		))

	mockPool.ExpectQuery(regexp.QuoteMeta(`UPDATE listings SET`)).
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnRows(pgxmock.NewRows(testutil.ListingsCols).AddRow(
			listingUUID, sellerUUID, "seller", "Oak chair", "desc",
			int64(4500), "CHAIR", "good", "draft", now, now,
		))

	mockPool.ExpectQuery(regexp.QuoteMeta(`FROM listing_images WHERE listing_id = $1 ORDER BY position`)).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(testutil.ListingImageCols).
			AddRow(imageUUIDA, listingUUID, "keyA.jpg", int32(1), now).
			AddRow(imageUUIDB, listingUUID, "keyB.jpg", int32(2), now))

	// 1. The omitted image is deleted
	mockPool.ExpectQuery(regexp.QuoteMeta(`DELETE FROM listing_images`)).
		WithArgs(pgxmock.AnyArg(), []string{imageUUIDB}).
		WillReturnRows(pgxmock.NewRows([]string{"object_key"}).AddRow("keyB.jpg"))

	// 2. The kept image is repositioned in bulk
	mockPool.ExpectExec(regexp.QuoteMeta(`UPDATE listing_images AS li`)).
		WithArgs(pgxmock.AnyArg(), []string{imageUUIDA}, []int32{2}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	// 3. The new image is inserted in bulk
	mockPool.ExpectQuery(regexp.QuoteMeta(`INSERT INTO listing_images`)).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), []int32{1}).
		WillReturnRows(pgxmock.NewRows(testutil.ListingImageCols).AddRow(
			imageUUIDC, listingUUID, "keyC.jpg", int32(1), now,
		))

	mockPool.ExpectQuery(regexp.QuoteMeta(`FROM listing_images WHERE listing_id = $1 ORDER BY position`)).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(testutil.ListingImageCols).
			AddRow(imageUUIDC, listingUUID, "keyC.jpg", int32(1), now).
			AddRow(imageUUIDA, listingUUID, "keyA.jpg", int32(2), now))

	mockPool.ExpectCommit()

	result, err := service.UpdateListing(context.Background(), sellerInfo(), listingUUID, req)
	require.NoError(t, err)

	require.Len(t, result.Images, 2)
	assert.Equal(t, int32(1), result.Images[0].Order)
	require.NotNil(t, result.Thumbnail)
	assert.Equal(t, "https://cdn.example.com/keyC.jpg", *result.Thumbnail)

	// B's blob was released after commit; C's upload is in the store.
	assert.False(t, store.Has(storage.BucketImages, "keyB.jpg"))
	assert.Equal(t, 1, store.Len())
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestUpdateListing_SwapsKeptPositions(t *testing.T) {
	service, mockPool, _ := newTestService(t)
	now := time.Now()

	// A and B trade places. The bulk reposition passes through a transient
	// duplicate that only the deferred constraint tolerates.
	req := &UpdateListingRequest{
		Directives: []Directive{
			KeepImage{ID: imageUUIDA, Position: 2},
			KeepImage{ID: imageUUIDB, Position: 1},
		},
	}

	mockPool.ExpectBegin()

	mockPool.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(testutil.ListingsCols).AddRow(
			listingUUID, sellerUUID, "seller", "Oak chair", "desc",
			int64(4500), "CHAIR", "good", "draft", now, now,
		))

	mockPool.ExpectQuery(regexp.QuoteMeta(`UPDATE listings SET`)).
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnRows(pgxmock.NewRows(testutil.ListingsCols).AddRow(
			listingUUID, sellerUUID, "seller", "Oak chair", "desc",
			int64(4500), "CHAIR", "good", "draft", now, now,
		))

	mockPool.ExpectQuery(regexp.QuoteMeta(`FROM listing_images WHERE listing_id = $1 ORDER BY position`)).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(testutil.ListingImageCols).
			AddRow(imageUUIDA, listingUUID, "keyA.jpg", int32(1), now).
			AddRow(imageUUIDB, listingUUID, "keyB.jpg", int32(2), now))

	// One bulk update in directive order, no deletes, no inserts.
	mockPool.ExpectExec(regexp.QuoteMeta(`UPDATE listing_images AS li`)).
		WithArgs(pgxmock.AnyArg(), []string{imageUUIDA, imageUUIDB}, []int32{2, 1}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	mockPool.ExpectQuery(regexp.QuoteMeta(`FROM listing_images WHERE listing_id = $1 ORDER BY position`)).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(testutil.ListingImageCols).
			AddRow(imageUUIDB, listingUUID, "keyB.jpg", int32(1), now).
			AddRow(imageUUIDA, listingUUID, "keyA.jpg", int32(2), now))

	mockPool.ExpectCommit()

	result, err := service.UpdateListing(context.Background(), sellerInfo(), listingUUID, req)
	require.NoError(t, err)

	require.Len(t, result.Images, 2)
	assert.Equal(t, imageUUIDB, result.Images[0].ID)
	assert.Equal(t, int32(1), result.Images[0].Order)
	assert.Equal(t, imageUUIDA, result.Images[1].ID)
	assert.Equal(t, int32(2), result.Images[1].Order)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestUpdateListing_SoldIsTerminal(t *testing.T) {
	service, mockPool, _ := newTestService(t)
	now := time.Now()

	mockPool.ExpectBegin()
	mockPool.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(testutil.ListingsCols).AddRow(
			listingUUID, sellerUUID, "seller", "Oak chair", "desc",
			int64(4500), "CHAIR", "good", "sold", now, now,
		))
	mockPool.ExpectRollback()

	_, err := service.UpdateListing(context.Background(), sellerInfo(), listingUUID, &UpdateListingRequest{
		Title: strPtr("New title"),
	})
	assertAppError(t, err, errors.ErrBusinessRule)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestUpdateListing_CannotSetSoldDirectly(t *testing.T) {
	service, mockPool, _ := newTestService(t)

	_, err := service.UpdateListing(context.Background(), sellerInfo(), listingUUID, &UpdateListingRequest{
		Status: strPtr("sold"),
	})
	assertAppError(t, err, errors.ErrBusinessRule)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestUpdateListing_NotOwner(t *testing.T) {
	service, mockPool, _ := newTestService(t)
	now := time.Now()

	mockPool.ExpectBegin()
	mockPool.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(testutil.ListingsCols).AddRow(
			listingUUID, otherUUID, "someone", "Oak chair", "desc",
			int64(4500), "CHAIR", "good", "draft", now, now,
		))
	mockPool.ExpectRollback()

	_, err := service.UpdateListing(context.Background(), sellerInfo(), listingUUID, &UpdateListingRequest{
		Title: strPtr("New title"),
	})
	assertAppError(t, err, errors.ErrForbidden)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestGetListingByID_DraftHiddenFromOthers(t *testing.T) {
	service, mockPool, _ := newTestService(t)
	now := time.Now()

	mockPool.ExpectQuery(regexp.QuoteMeta(`FROM listings WHERE id = $1`)).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(testutil.ListingsCols).AddRow(
			listingUUID, sellerUUID, "seller", "Oak chair", "desc",
			int64(4500), "CHAIR", "good", "draft", now, now,
		))

	_, err := service.GetListingByID(context.Background(), nil, listingUUID)
	assertAppError(t, err, errors.ErrNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestGetListingByID_OwnerSeesDraft(t *testing.T) {
	service, mockPool, _ := newTestService(t)
	now := time.Now()

	mockPool.ExpectQuery(regexp.QuoteMeta(`FROM listings WHERE id = $1`)).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(testutil.ListingsCols).AddRow(
			listingUUID, sellerUUID, "seller", "Oak chair", "desc",
			nil, nil, nil, "draft", now, now,
		))

	mockPool.ExpectQuery(regexp.QuoteMeta(`FROM listing_images WHERE listing_id = $1 ORDER BY position`)).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(testutil.ListingImageCols))

	mockPool.ExpectQuery(regexp.QuoteMeta(`FROM comments WHERE listing_id = $1`)).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(testutil.CommentCols))

	viewer := sellerInfo()
	result, err := service.GetListingByID(context.Background(), &viewer, listingUUID)
	require.NoError(t, err)

	assert.True(t, result.IsOwner)
	assert.Nil(t, result.PriceMinUnit)
	assert.Nil(t, result.Category)
	assert.Nil(t, result.Thumbnail)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestGetHomeListings_MapsThumbnails(t *testing.T) {
	service, mockPool, _ := newTestService(t)
	now := time.Now()

	mockPool.ExpectQuery(regexp.QuoteMeta(`WHERE l.status = 'published'`)).
		WithArgs(pgxmock.AnyArg(), int32(20), int32(0)).
		WillReturnRows(pgxmock.NewRows(testutil.ListingSummaryCols).
			AddRow(listingUUID, sellerUUID, "Oak chair", "desc", int64(4500),
				"CHAIR", "good", "published", now, "keyA.jpg").
			AddRow(imageUUIDB, otherUUID, "Pine desk", "desc", int64(9900),
				"DESK", "fair", "published", now, nil))

	result, err := service.GetHomeListings(context.Background(), nil, 0, 0)
	require.NoError(t, err)
	require.Len(t, result, 2)

	require.NotNil(t, result[0].Thumbnail)
	assert.Equal(t, "https://cdn.example.com/keyA.jpg", *result[0].Thumbnail)
	assert.Nil(t, result[1].Thumbnail)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestGetMyListings_InvalidStatus(t *testing.T) {
	service, mockPool, _ := newTestService(t)

	_, err := service.GetMyListings(context.Background(), sellerInfo(), "archived")
	assertAppError(t, err, errors.ErrInvalidInput)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestCreateListing_LogsOrphanedBlobsOnRollback(t *testing.T) {
	mockPool := testutil.NewMockDB(t)
	store := storage.NewMemoryProvider()
	var logs bytes.Buffer

	service := &svc{
		repo:           repo.New(mockPool),
		db:             mockPool,
		logger:         slog.New(slog.NewJSONHandler(&logs, nil)),
		storage:        store,
		publicFilesURL: "https://cdn.example.com",
	}

	req := &CreateListingRequest{
		Title:      "Oak chair",
		Directives: []Directive{CreateImage{Position: 1, FileKey: "photo_front"}},
		Uploads:    uploadsFor("photo_front"),
	}

	mockPool.ExpectBegin()

	now := time.Now()
	mockPool.ExpectQuery(regexp.QuoteMeta(`INSERT INTO listings`)).
		WithArgs(
			pgxmock.AnyArg(), "seller", "Oak chair", "",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnRows(pgxmock.NewRows(testutil.ListingsCols).AddRow(
			listingUUID, sellerUUID, "seller", "Oak chair", "",
			nil, nil, nil, "draft", now, now,
		))

	mockPool.ExpectQuery(regexp.QuoteMeta(`FROM listing_images WHERE listing_id = $1 ORDER BY position`)).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(testutil.ListingImageCols))

	mockPool.ExpectQuery(regexp.QuoteMeta(`INSERT INTO listing_images`)).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), []int32{1}).
		WillReturnRows(pgxmock.NewRows(testutil.ListingImageCols).AddRow(
			imageUUIDA, listingUUID, "keyA.jpg", int32(1), now,
		))

	// The response load fails, so the transaction rolls back after the blob
	// was already written.
	mockPool.ExpectQuery(regexp.QuoteMeta(`FROM listing_images WHERE listing_id = $1 ORDER BY position`)).
		WithArgs(pgxmock.AnyArg()).
		WillReturnError(assert.AnError)

	mockPool.ExpectRollback()

	_, err := service.CreateListing(context.Background(), sellerInfo(), req)
	assertAppError(t, err, errors.ErrInternal)

	assert.Contains(t, logs.String(), "Orphaned blob after rollback")
	assert.Contains(t, logs.String(), "object_key")
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestSaveListing_Published(t *testing.T) {
	service, mockPool, _ := newTestService(t)
	now := time.Now()

	mockPool.ExpectQuery(regexp.QuoteMeta(`FROM listings WHERE id = $1`)).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(testutil.ListingsCols).AddRow(
			listingUUID, sellerUUID, "seller", "Oak chair", "desc",
			int64(4500), "CHAIR", "good", "published", now, now,
		))

	mockPool.ExpectExec(regexp.QuoteMeta(`INSERT INTO saved_listings`)).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := service.SaveListing(context.Background(), auth.UserInfo{ID: otherUUID, Username: "someone"}, listingUUID)
	require.NoError(t, err)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestSaveListing_DraftHiddenFromOthers(t *testing.T) {
	service, mockPool, _ := newTestService(t)
	now := time.Now()

	mockPool.ExpectQuery(regexp.QuoteMeta(`FROM listings WHERE id = $1`)).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(testutil.ListingsCols).AddRow(
			listingUUID, sellerUUID, "seller", "Oak chair", "desc",
			int64(4500), "CHAIR", "good", "draft", now, now,
		))

	err := service.SaveListing(context.Background(), auth.UserInfo{ID: otherUUID, Username: "someone"}, listingUUID)
	assertAppError(t, err, errors.ErrNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestUnsaveListing_MissingSaveIsNoOp(t *testing.T) {
	service, mockPool, _ := newTestService(t)

	mockPool.ExpectExec(regexp.QuoteMeta(`DELETE FROM saved_listings`)).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := service.UnsaveListing(context.Background(), sellerInfo(), listingUUID)
	require.NoError(t, err)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestGetSavedListings_MapsThumbnails(t *testing.T) {
	service, mockPool, _ := newTestService(t)
	now := time.Now()

	mockPool.ExpectQuery(regexp.QuoteMeta(`JOIN saved_listings sl ON sl.listing_id = l.id`)).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(testutil.ListingSummaryCols).
			AddRow(listingUUID, sellerUUID, "Oak chair", "desc", int64(4500),
				"CHAIR", "good", "published", now, "keyA.jpg"))

	result, err := service.GetSavedListings(context.Background(), sellerInfo())
	require.NoError(t, err)
	require.Len(t, result, 1)
	require.NotNil(t, result[0].Thumbnail)
	assert.Equal(t, "https://cdn.example.com/keyA.jpg", *result[0].Thumbnail)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestDeleteListing_ReleasesBlobs(t *testing.T) {
	service, mockPool, store := newTestService(t)
	now := time.Now()

	require.NoError(t, store.Put(context.Background(), storage.BucketImages,
		"keyA.jpg", strings.NewReader("a"), 1, "image/jpeg"))

	mockPool.ExpectBegin()
	mockPool.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(testutil.ListingsCols).AddRow(
			listingUUID, sellerUUID, "seller", "Oak chair", "desc",
			int64(4500), "CHAIR", "good", "draft", now, now,
		))
	mockPool.ExpectQuery(regexp.QuoteMeta(`SELECT object_key FROM listing_images`)).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"object_key"}).AddRow("keyA.jpg"))
	mockPool.ExpectExec(regexp.QuoteMeta(`DELETE FROM listings`)).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mockPool.ExpectCommit()

	err := service.DeleteListing(context.Background(), sellerInfo(), listingUUID)
	require.NoError(t, err)

	assert.Equal(t, 0, store.Len())
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
