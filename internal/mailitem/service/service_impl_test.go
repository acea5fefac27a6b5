package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mailroom/internal/clock"
	feedomain "github.com/smallbiznis/mailroom/internal/fee/domain"
	"github.com/smallbiznis/mailroom/internal/mailitem/domain"
	"github.com/smallbiznis/mailroom/internal/mailitem/repository"
	"github.com/smallbiznis/mailroom/internal/testutil/dbtest"
	"github.com/smallbiznis/mailroom/pkg/tenantctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type mockFeeService struct {
	mock.Mock
}

func (m *mockFeeService) CreateFeeRecord(ctx context.Context, req feedomain.CreateFeeRequest) (feedomain.PackageFee, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(feedomain.PackageFee), args.Error(1)
}

func (m *mockFeeService) CreateFeeRecordTx(ctx context.Context, tx *gorm.DB, req feedomain.CreateFeeRequest) (feedomain.PackageFee, error) {
	args := m.Called(ctx, tx, req)
	return args.Get(0).(feedomain.PackageFee), args.Error(1)
}

func (m *mockFeeService) GetFee(ctx context.Context, id string) (feedomain.PackageFee, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(feedomain.PackageFee), args.Error(1)
}

func (m *mockFeeService) WaiveFee(ctx context.Context, req feedomain.WaiveFeeRequest) (feedomain.PackageFee, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(feedomain.PackageFee), args.Error(1)
}

func (m *mockFeeService) MarkFeePaid(ctx context.Context, req feedomain.MarkFeePaidRequest) (feedomain.PackageFee, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(feedomain.PackageFee), args.Error(1)
}

func (m *mockFeeService) RecalculateFee(ctx context.Context, id string) (feedomain.PackageFee, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(feedomain.PackageFee), args.Error(1)
}

func (m *mockFeeService) RecalculateAll(ctx context.Context, req feedomain.RecalculateRequest) (feedomain.RecalculateSummary, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(feedomain.RecalculateSummary), args.Error(1)
}

func newTestService(t *testing.T, fees feedomain.Service) (*Service, *clock.FakeClock, context.Context) {
	t.Helper()
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	fc := clock.NewFakeClock(time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC))
	svc := New(Params{
		DB:    dbtest.Open(t),
		Log:   zaptest.NewLogger(t),
		GenID: node,
		Repo:  repository.Provide(),
		Fees:  fees,
		Clock: fc,
	}).(*Service)
	return svc, fc, tenantctx.WithUserID(context.Background(), "user-a")
}

func TestIntakeLetterDoesNotCreateFee(t *testing.T) {
	fees := &mockFeeService{}
	svc, fc, ctx := newTestService(t, fees)

	item, err := svc.Intake(ctx, domain.IntakeRequest{ContactID: "7", ItemType: "letter"})
	require.NoError(t, err)
	assert.Equal(t, domain.ItemTypeLetter, item.ItemType)
	assert.Equal(t, domain.StatusReceived, item.Status)
	assert.Equal(t, 1, item.Quantity)
	assert.True(t, item.ReceivedDate.Equal(fc.Now()))
	fees.AssertNotCalled(t, "CreateFeeRecordTx", mock.Anything, mock.Anything, mock.Anything)
}

func TestIntakePackageCreatesFee(t *testing.T) {
	fees := &mockFeeService{}
	fees.On("CreateFeeRecordTx", mock.Anything, mock.Anything, mock.MatchedBy(func(req feedomain.CreateFeeRequest) bool {
		return req.ContactID == 7 && req.UserID == "user-a" && req.MailItemID != 0
	})).Return(feedomain.PackageFee{}, nil).Once()

	svc, _, ctx := newTestService(t, fees)
	received := time.Date(2025, 5, 30, 22, 0, 0, 0, time.UTC)
	item, err := svc.Intake(ctx, domain.IntakeRequest{ContactID: "7", ItemType: "Package", Quantity: 2, ReceivedAt: &received})
	require.NoError(t, err)
	assert.True(t, item.ReceivedDate.Equal(received))
	assert.Equal(t, 2, item.Quantity)
	fees.AssertExpectations(t)
}

func TestIntakeValidation(t *testing.T) {
	svc, _, ctx := newTestService(t, &mockFeeService{})

	_, err := svc.Intake(ctx, domain.IntakeRequest{ContactID: "", ItemType: "Letter"})
	assert.ErrorIs(t, err, domain.ErrInvalidContact)

	_, err = svc.Intake(ctx, domain.IntakeRequest{ContactID: "7", ItemType: "Crate"})
	assert.ErrorIs(t, err, domain.ErrInvalidItemType)

	_, err = svc.Intake(ctx, domain.IntakeRequest{ContactID: "7", ItemType: "Letter", Quantity: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	assert.True(t, domain.IsValidationError(err))

	_, err = svc.Intake(context.Background(), domain.IntakeRequest{ContactID: "7", ItemType: "Letter"})
	assert.ErrorIs(t, err, tenantctx.ErrMissingUserID)
}

func TestChangeTypeToPackageCreatesFee(t *testing.T) {
	fees := &mockFeeService{}
	svc, _, ctx := newTestService(t, fees)

	item, err := svc.Intake(ctx, domain.IntakeRequest{ContactID: "7", ItemType: "Letter"})
	require.NoError(t, err)

	fees.On("CreateFeeRecordTx", mock.Anything, mock.Anything, feedomain.CreateFeeRequest{
		MailItemID: item.ID,
		ContactID:  7,
		UserID:     "user-a",
	}).Return(feedomain.PackageFee{}, nil).Once()

	converted, err := svc.ChangeType(ctx, domain.ChangeTypeRequest{ID: item.ID.String(), ItemType: "Large Package"})
	require.NoError(t, err)
	assert.Equal(t, domain.ItemTypeLargePackage, converted.ItemType)
	assert.True(t, converted.ReceivedDate.Equal(item.ReceivedDate))
	fees.AssertExpectations(t)

	_, err = svc.ChangeType(ctx, domain.ChangeTypeRequest{ID: "424242", ItemType: "Letter"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIntakeRollsBackWhenFeeFails(t *testing.T) {
	fees := &mockFeeService{}
	fees.On("CreateFeeRecordTx", mock.Anything, mock.Anything, mock.Anything).
		Return(feedomain.PackageFee{}, errors.New("store down")).Once()
	svc, _, ctx := newTestService(t, fees)

	_, err := svc.Intake(ctx, domain.IntakeRequest{ContactID: "7", ItemType: "Package"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create fee record")

	var count int64
	require.NoError(t, svc.db.Raw(`SELECT COUNT(*) FROM mail_items`).Scan(&count).Error)
	assert.Zero(t, count)
	fees.AssertExpectations(t)
}

func TestChangeTypeRollsBackWhenFeeFails(t *testing.T) {
	fees := &mockFeeService{}
	svc, _, ctx := newTestService(t, fees)

	item, err := svc.Intake(ctx, domain.IntakeRequest{ContactID: "7", ItemType: "Letter"})
	require.NoError(t, err)

	fees.On("CreateFeeRecordTx", mock.Anything, mock.Anything, mock.Anything).
		Return(feedomain.PackageFee{}, errors.New("store down")).Once()
	_, err = svc.ChangeType(ctx, domain.ChangeTypeRequest{ID: item.ID.String(), ItemType: "Package"})
	require.Error(t, err)

	reloaded, err := svc.GetByID(ctx, item.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.ItemTypeLetter, reloaded.ItemType)
	fees.AssertExpectations(t)
}

func TestUpdateStatusStampsPickupDate(t *testing.T) {
	svc, fc, ctx := newTestService(t, &mockFeeService{})

	item, err := svc.Intake(ctx, domain.IntakeRequest{ContactID: "7", ItemType: "Magazine"})
	require.NoError(t, err)

	fc.Advance(26 * time.Hour)
	picked, err := svc.UpdateStatus(ctx, domain.UpdateStatusRequest{ID: item.ID.String(), Status: "picked up"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPickedUp, picked.Status)
	require.NotNil(t, picked.PickupDate)
	assert.True(t, picked.PickupDate.Equal(fc.Now()))

	reopened, err := svc.UpdateStatus(ctx, domain.UpdateStatusRequest{ID: item.ID.String(), Status: "Notified"})
	require.NoError(t, err)
	assert.Nil(t, reopened.PickupDate)

	_, err = svc.UpdateStatus(ctx, domain.UpdateStatusRequest{ID: item.ID.String(), Status: "Teleported"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}
