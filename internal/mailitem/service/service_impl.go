package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mailroom/internal/clock"
	feedomain "github.com/smallbiznis/mailroom/internal/fee/domain"
	"github.com/smallbiznis/mailroom/internal/mailitem/domain"
	"github.com/smallbiznis/mailroom/pkg/tenantctx"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Fees  feedomain.Service
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
	fees  feedomain.Service
	clock clock.Clock
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("mailitem.service"),
		genID: p.GenID,
		repo:  p.Repo,
		fees:  p.Fees,
		clock: clk,
	}
}

func (s *Service) Intake(ctx context.Context, req domain.IntakeRequest) (domain.MailItem, error) {
	userID, ok := tenantctx.UserID(ctx)
	if !ok {
		return domain.MailItem{}, tenantctx.ErrMissingUserID
	}

	contactID, err := parseID(req.ContactID, domain.ErrInvalidContact)
	if err != nil {
		return domain.MailItem{}, err
	}
	itemType, ok := domain.NormalizeItemType(req.ItemType)
	if !ok {
		return domain.MailItem{}, domain.ErrInvalidItemType
	}
	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 {
		return domain.MailItem{}, domain.ErrInvalidQuantity
	}

	now := s.clock.Now()
	received := now
	if req.ReceivedAt != nil && !req.ReceivedAt.IsZero() {
		received = req.ReceivedAt.UTC()
	}

	item := domain.MailItem{
		ID:           s.genID.Generate(),
		UserID:       userID,
		ContactID:    contactID,
		ItemType:     itemType,
		Status:       domain.StatusReceived,
		ReceivedDate: received,
		Quantity:     quantity,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &item); err != nil {
			return fmt.Errorf("insert mail item: %w", err)
		}
		if item.IsPackage() {
			return s.ensureFee(ctx, tx, item)
		}
		return nil
	})
	if err != nil {
		return domain.MailItem{}, err
	}

	s.log.Info("mail item received",
		zap.String("mail_item_id", item.ID.String()),
		zap.String("item_type", item.ItemType),
		zap.Int("quantity", item.Quantity),
	)
	return item, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.MailItem, error) {
	userID, ok := tenantctx.UserID(ctx)
	if !ok {
		return domain.MailItem{}, tenantctx.ErrMissingUserID
	}
	itemID, err := parseID(id, domain.ErrInvalidID)
	if err != nil {
		return domain.MailItem{}, err
	}
	return s.load(ctx, userID, itemID)
}

// ChangeType converts an item. Becoming a package starts fee accrual from
// the original received date.
func (s *Service) ChangeType(ctx context.Context, req domain.ChangeTypeRequest) (domain.MailItem, error) {
	userID, ok := tenantctx.UserID(ctx)
	if !ok {
		return domain.MailItem{}, tenantctx.ErrMissingUserID
	}
	itemID, err := parseID(req.ID, domain.ErrInvalidID)
	if err != nil {
		return domain.MailItem{}, err
	}
	itemType, ok := domain.NormalizeItemType(req.ItemType)
	if !ok {
		return domain.MailItem{}, domain.ErrInvalidItemType
	}

	var item domain.MailItem
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := s.repo.UpdateType(ctx, tx, userID, itemID, itemType, s.clock.Now())
		if err != nil {
			return fmt.Errorf("update item type: %w", err)
		}
		if rows == 0 {
			return domain.ErrNotFound
		}
		item, err = s.loadWith(ctx, tx, userID, itemID)
		if err != nil {
			return err
		}
		if item.IsPackage() {
			return s.ensureFee(ctx, tx, item)
		}
		return nil
	})
	if err != nil {
		return domain.MailItem{}, err
	}
	return item, nil
}

func (s *Service) UpdateStatus(ctx context.Context, req domain.UpdateStatusRequest) (domain.MailItem, error) {
	userID, ok := tenantctx.UserID(ctx)
	if !ok {
		return domain.MailItem{}, tenantctx.ErrMissingUserID
	}
	itemID, err := parseID(req.ID, domain.ErrInvalidID)
	if err != nil {
		return domain.MailItem{}, err
	}
	status, ok := domain.NormalizeStatus(req.Status)
	if !ok {
		return domain.MailItem{}, domain.ErrInvalidStatus
	}

	now := s.clock.Now()
	var pickupDate *time.Time
	if status == domain.StatusPickedUp {
		pickupDate = &now
	}

	rows, err := s.repo.UpdateStatus(ctx, s.db, userID, itemID, status, pickupDate, now)
	if err != nil {
		return domain.MailItem{}, fmt.Errorf("update item status: %w", err)
	}
	if rows == 0 {
		return domain.MailItem{}, domain.ErrNotFound
	}

	s.log.Info("mail item status changed",
		zap.String("mail_item_id", itemID.String()),
		zap.String("status", status),
	)
	return s.load(ctx, userID, itemID)
}

func (s *Service) ensureFee(ctx context.Context, tx *gorm.DB, item domain.MailItem) error {
	if s.fees == nil {
		return nil
	}
	_, err := s.fees.CreateFeeRecordTx(ctx, tx, feedomain.CreateFeeRequest{
		MailItemID: item.ID,
		ContactID:  item.ContactID,
		UserID:     item.UserID,
	})
	if err != nil {
		s.log.Error("create fee record failed",
			zap.String("mail_item_id", item.ID.String()),
			zap.Error(err),
		)
		return fmt.Errorf("create fee record: %w", err)
	}
	return nil
}

func (s *Service) load(ctx context.Context, userID string, id snowflake.ID) (domain.MailItem, error) {
	return s.loadWith(ctx, s.db, userID, id)
}

func (s *Service) loadWith(ctx context.Context, db *gorm.DB, userID string, id snowflake.ID) (domain.MailItem, error) {
	item, err := s.repo.FindByID(ctx, db, userID, id)
	if err != nil {
		return domain.MailItem{}, fmt.Errorf("load mail item: %w", err)
	}
	if item == nil {
		return domain.MailItem{}, domain.ErrNotFound
	}
	return *item, nil
}

func parseID(value string, invalid error) (snowflake.ID, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || id <= 0 {
		return 0, invalid
	}
	return snowflake.ID(id), nil
}
