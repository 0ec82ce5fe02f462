package campaign

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"donationhub/pkg/db/option"
	"donationhub/pkg/db/pagination"
	"donationhub/pkg/errutil"
	"donationhub/pkg/repository"
	"donationhub/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type repoMock[T any] struct {
	withTrxFn func(tx *gorm.DB) repository.Repository[T]
	findFn    func(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	findOneFn func(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	createFn  func(ctx context.Context, resource *T) error
	updateFn  func(ctx context.Context, resourceID string, resource any) error
	deleteFn  func(ctx context.Context, resourceID string) error
	countFn   func(ctx context.Context, query *T) (int64, error)
}

func (m *repoMock[T]) WithTrx(tx *gorm.DB) repository.Repository[T] {
	if m.withTrxFn != nil {
		return m.withTrxFn(tx)
	}
	return m
}

func (m *repoMock[T]) Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error) {
	if m.findFn != nil {
		return m.findFn(ctx, query, opts...)
	}
	return nil, nil
}

func (m *repoMock[T]) FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error) {
	if m.findOneFn != nil {
		return m.findOneFn(ctx, query, opts...)
	}
	return nil, nil
}

func (m *repoMock[T]) Create(ctx context.Context, resource *T) error {
	if m.createFn != nil {
		return m.createFn(ctx, resource)
	}
	return nil
}

func (m *repoMock[T]) Update(ctx context.Context, resourceID string, resource any) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, resourceID, resource)
	}
	return nil
}

func (m *repoMock[T]) Delete(ctx context.Context, resourceID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, resourceID)
	}
	return nil
}

func (m *repoMock[T]) Count(ctx context.Context, query *T) (int64, error) {
	if m.countFn != nil {
		return m.countFn(ctx, query)
	}
	return 0, nil
}

type counterMock struct {
	count int64
	err   error
}

func (m counterMock) CountOutstanding(ctx context.Context, campaignID string) (int64, error) {
	return m.count, m.err
}

func newTestService(t *testing.T) *Service {
	t.Helper()

	db := testutil.NewTestDB(t, &Campaign{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(ServiceParams{
		DB:      db,
		Node:    node,
		Cache:   NewCache(nil, time.Second),
		Counter: counterMock{},
	})
}

func requireStatus(t *testing.T, err error, want errutil.CoreStatus) errutil.BaseError {
	t.Helper()
	var base errutil.BaseError
	require.True(t, errors.As(err, &base))
	require.Equal(t, want, base.Status())
	return base
}

func validCreateRequest() *CreateRequest {
	now := time.Now()
	return &CreateRequest{
		Name:         "School Renovation",
		Description:  "Rebuild the east wing classrooms",
		Category:     "education",
		Location:     "Bandung",
		TargetAmount: 1000,
		StartDate:    now,
		EndDate:      now.Add(30 * 24 * time.Hour),
		ImageRef:     "campaigns/school.jpg",
	}
}

func TestCreateCampaign(t *testing.T) {
	svc := newTestService(t)

	created, err := svc.Create(context.Background(), "orph-1", validCreateRequest())
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, "orph-1", created.OrphanageID)
	require.Equal(t, StatusActive, created.Status)
	require.Equal(t, int64(0), created.CurrentAmount)
	require.Equal(t, "school-renovation", created.Slug)
}

func TestCreateCampaignCollectsAllFieldErrors(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Create(context.Background(), "orph-1", &CreateRequest{
		TargetAmount: 0,
	})
	be := requireStatus(t, err, errutil.StatusValidationFailed)

	fields := make(map[string]bool, len(be.Details))
	for _, d := range be.Details {
		fields[d.Field] = true
	}
	for _, want := range []string{"name", "description", "category", "location", "target_amount", "end_date", "image_ref"} {
		require.True(t, fields[want], "missing detail for %s", want)
	}
}

func TestUpdateCampaignNotFound(t *testing.T) {
	svc := newTestService(t)

	name := "New Name"
	_, err := svc.Update(context.Background(), "orph-1", "123456", &UpdateRequest{Name: &name})
	requireStatus(t, err, errutil.StatusNotFound)
}

func TestUpdateCampaignNotOwner(t *testing.T) {
	svc := newTestService(t)

	created, err := svc.Create(context.Background(), "orph-1", validCreateRequest())
	require.NoError(t, err)

	name := "Hijacked"
	_, err = svc.Update(context.Background(), "orph-2", created.ID, &UpdateRequest{Name: &name})
	requireStatus(t, err, errutil.StatusForbidden)

	unchanged, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, "School Renovation", unchanged.Name)
}

func TestUpdateCampaignMalformedID(t *testing.T) {
	svc := newTestService(t)

	name := "New Name"
	_, err := svc.Update(context.Background(), "orph-1", "not-an-id", &UpdateRequest{Name: &name})
	requireStatus(t, err, errutil.StatusValidationFailed)
}

func TestUpdateCampaign(t *testing.T) {
	svc := newTestService(t)

	created, err := svc.Create(context.Background(), "orph-1", validCreateRequest())
	require.NoError(t, err)

	name := "Library Renovation"
	updated, err := svc.Update(context.Background(), "orph-1", created.ID, &UpdateRequest{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "Library Renovation", updated.Name)
	require.Equal(t, "library-renovation", updated.Slug)
}

func TestDeleteCampaignBlockedByDonations(t *testing.T) {
	svc := newTestService(t)
	svc.counter = counterMock{count: 2}

	created, err := svc.Create(context.Background(), "orph-1", validCreateRequest())
	require.NoError(t, err)

	err = svc.Delete(context.Background(), "orph-1", created.ID)
	requireStatus(t, err, errutil.StatusConflict)

	still, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.NotNil(t, still)
}

func TestDeleteCampaign(t *testing.T) {
	svc := newTestService(t)

	created, err := svc.Create(context.Background(), "orph-1", validCreateRequest())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), "orph-1", created.ID))

	_, err = svc.Get(context.Background(), created.ID)
	requireStatus(t, err, errutil.StatusNotFound)
}

func TestListOngoingFiltersByStatus(t *testing.T) {
	svc := newTestService(t)

	active, err := svc.Create(context.Background(), "orph-1", validCreateRequest())
	require.NoError(t, err)

	other, err := svc.Create(context.Background(), "orph-1", validCreateRequest())
	require.NoError(t, err)
	require.NoError(t, svc.db.Model(&Campaign{}).Where("id = ?", other.ID).
		Update("status", StatusCompleted).Error)

	ongoing, err := svc.ListOngoing(context.Background())
	require.NoError(t, err)
	require.Len(t, ongoing, 1)
	require.Equal(t, active.ID, ongoing[0].ID)
}

func TestListCampaignsPagesNewestFirst(t *testing.T) {
	svc := newTestService(t)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.db.Create(&Campaign{
			ID:           svc.node.Generate().String(),
			OrphanageID:  "orph-1",
			Name:         "Campaign",
			TargetAmount: 1000,
			Status:       StatusActive,
			StartDate:    base,
			EndDate:      base.Add(30 * 24 * time.Hour),
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}).Error)
	}

	first, info, err := svc.List(context.Background(), pagination.Pagination{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.True(t, info.HasMore)
	require.NotEmpty(t, info.NextCursor)
	require.True(t, first[0].CreatedAt.After(first[1].CreatedAt))

	rest, info, err := svc.List(context.Background(), pagination.Pagination{Limit: 2, Cursor: info.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	require.False(t, info.HasMore)
	require.True(t, first[1].CreatedAt.After(rest[0].CreatedAt))
}

func TestListCampaignsRejectsMalformedCursor(t *testing.T) {
	svc := newTestService(t)

	_, _, err := svc.List(context.Background(), pagination.Pagination{Cursor: "not-a-cursor"})
	requireStatus(t, err, errutil.StatusBadRequest)
}

func TestCreateCampaignEndBeforeStart(t *testing.T) {
	svc := newTestService(t)

	req := validCreateRequest()
	req.StartDate = time.Now()
	req.EndDate = req.StartDate.Add(-time.Hour)

	_, err := svc.Create(context.Background(), "orph-1", req)
	be := requireStatus(t, err, errutil.StatusValidationFailed)
	require.Len(t, be.Details, 1)
	require.Equal(t, "end_date", be.Details[0].Field)
}
