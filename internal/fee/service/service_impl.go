package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/mailroom/internal/clock"
	"github.com/smallbiznis/mailroom/internal/config"
	"github.com/smallbiznis/mailroom/internal/fee/domain"
	obscontext "github.com/smallbiznis/mailroom/internal/observability/context"
	obsmetrics "github.com/smallbiznis/mailroom/internal/observability/metrics"
	"github.com/smallbiznis/mailroom/pkg/db"
	"github.com/smallbiznis/mailroom/pkg/tenantctx"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	Clock   clock.Clock
	Fees    *config.FeeConfigHolder
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	clock   clock.Clock
	fees    *config.FeeConfigHolder
	metrics *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("fee.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		clock:   clk,
		fees:    p.Fees,
		metrics: p.Metrics,
	}
}

func (s *Service) CreateFeeRecord(ctx context.Context, req domain.CreateFeeRequest) (domain.PackageFee, error) {
	return s.CreateFeeRecordTx(ctx, s.db, req)
}

func (s *Service) CreateFeeRecordTx(ctx context.Context, tx *gorm.DB, req domain.CreateFeeRequest) (domain.PackageFee, error) {
	if req.MailItemID == 0 || req.ContactID == 0 {
		return domain.PackageFee{}, domain.ErrInvalidMailItem
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return domain.PackageFee{}, tenantctx.ErrMissingUserID
	}
	if tx == nil {
		tx = s.db
	}

	existing, err := s.repo.FindByMailItemID(ctx, tx, req.MailItemID)
	if err != nil {
		return domain.PackageFee{}, fmt.Errorf("load existing fee: %w", err)
	}
	if existing != nil {
		s.log.Debug("fee already exists for mail item",
			zap.String("mail_item_id", req.MailItemID.String()),
			zap.String("fee_id", existing.ID.String()),
		)
		return *existing, nil
	}

	cfg := s.fees.Get()
	now := s.clock.Now()
	fee := domain.PackageFee{
		ID:               s.genID.Generate(),
		MailItemID:       req.MailItemID,
		ContactID:        req.ContactID,
		UserID:           userID,
		FeeAmount:        decimal.Zero,
		DaysCharged:      0,
		DailyRate:        cfg.Rate(),
		GracePeriodDays:  cfg.GracePeriodDays,
		FeeStatus:        domain.FeeStatusPending,
		LastCalculatedAt: &now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.Insert(ctx, tx, &fee); err != nil {
		if !db.IsDuplicateKeyErr(err) {
			return domain.PackageFee{}, fmt.Errorf("insert fee: %w", err)
		}
		// Concurrent insert. Inside a postgres transaction the lookup fails
		// and the caller rolls back.
		existing, findErr := s.repo.FindByMailItemID(ctx, tx, req.MailItemID)
		if findErr != nil {
			return domain.PackageFee{}, fmt.Errorf("load existing fee: %w", findErr)
		}
		if existing == nil {
			return domain.PackageFee{}, fmt.Errorf("insert fee: %w", err)
		}
		s.log.Debug("fee already exists for mail item",
			zap.String("mail_item_id", req.MailItemID.String()),
			zap.String("fee_id", existing.ID.String()),
		)
		return *existing, nil
	}

	s.log.Info("fee record created",
		zap.String("fee_id", fee.ID.String()),
		zap.String("mail_item_id", fee.MailItemID.String()),
		zap.String("daily_rate", fee.DailyRate.StringFixed(2)),
		zap.Int("grace_period_days", fee.GracePeriodDays),
	)
	return fee, nil
}

func (s *Service) GetFee(ctx context.Context, id string) (domain.PackageFee, error) {
	userID, ok := tenantctx.UserID(ctx)
	if !ok {
		return domain.PackageFee{}, tenantctx.ErrMissingUserID
	}
	feeID, err := parseID(id)
	if err != nil {
		return domain.PackageFee{}, err
	}

	fee, err := s.repo.FindByID(ctx, s.db, userID, feeID)
	if err != nil {
		return domain.PackageFee{}, fmt.Errorf("load fee: %w", err)
	}
	if fee == nil {
		return domain.PackageFee{}, domain.ErrNotFound
	}
	return *fee, nil
}

func (s *Service) WaiveFee(ctx context.Context, req domain.WaiveFeeRequest) (domain.PackageFee, error) {
	reason := strings.TrimSpace(req.Reason)
	if utf8.RuneCountInString(reason) < domain.MinWaiveReasonLength {
		return domain.PackageFee{}, domain.ErrInvalidWaiveReason
	}

	return s.transition(ctx, req.FeeID, domain.Transition{
		Status:      domain.FeeStatusWaived,
		Actor:       req.ActorID,
		WaiveReason: reason,
	})
}

func (s *Service) MarkFeePaid(ctx context.Context, req domain.MarkFeePaidRequest) (domain.PackageFee, error) {
	method, ok := domain.ParsePaymentMethod(req.PaymentMethod)
	if !ok {
		return domain.PackageFee{}, domain.ErrInvalidPaymentMethod
	}
	if req.CollectedAmount != nil && req.CollectedAmount.IsNegative() {
		return domain.PackageFee{}, domain.ErrInvalidCollectedAmount
	}

	return s.transition(ctx, req.FeeID, domain.Transition{
		Status:          domain.FeeStatusPaid,
		Actor:           req.ActorID,
		PaymentMethod:   method,
		CollectedAmount: req.CollectedAmount,
	})
}

// transition moves a pending fee to a terminal status with one conditional update.
func (s *Service) transition(ctx context.Context, id string, t domain.Transition) (domain.PackageFee, error) {
	userID, ok := tenantctx.UserID(ctx)
	if !ok {
		return domain.PackageFee{}, tenantctx.ErrMissingUserID
	}
	feeID, err := parseID(id)
	if err != nil {
		return domain.PackageFee{}, err
	}

	t.At = s.clock.Now()
	t.Actor = resolveActor(ctx, t.Actor, userID)

	rows, err := s.repo.TransitionPending(ctx, s.db, userID, feeID, t)
	if err != nil {
		s.metrics.RecordFeeTransition(ctx, string(t.Status), "error")
		return domain.PackageFee{}, fmt.Errorf("transition fee: %w", err)
	}
	if rows == 0 {
		s.metrics.RecordFeeTransition(ctx, string(t.Status), "already_processed")
		s.log.Warn("fee transition rejected",
			zap.String("fee_id", feeID.String()),
			zap.String("fee_status", string(t.Status)),
			zap.String("actor_id", t.Actor),
		)
		return domain.PackageFee{}, domain.ErrAlreadyProcessed
	}
	s.metrics.RecordFeeTransition(ctx, string(t.Status), "success")

	fields := []zap.Field{
		zap.String("fee_id", feeID.String()),
		zap.String("fee_status", string(t.Status)),
		zap.String("actor_id", t.Actor),
	}
	if t.Status == domain.FeeStatusPaid {
		fields = append(fields, zap.String("payment_method", string(t.PaymentMethod)))
		if t.CollectedAmount != nil {
			fields = append(fields, zap.String("collected_amount", t.CollectedAmount.StringFixed(2)))
		}
	}
	s.log.Info("fee transitioned", fields...)

	fee, err := s.repo.FindByID(ctx, s.db, userID, feeID)
	if err != nil {
		return domain.PackageFee{}, fmt.Errorf("reload fee: %w", err)
	}
	if fee == nil {
		return domain.PackageFee{}, domain.ErrNotFound
	}
	return *fee, nil
}

func resolveActor(ctx context.Context, actor, userID string) string {
	if actor = strings.TrimSpace(actor); actor != "" {
		return actor
	}
	if actor = obscontext.ActorFromContext(ctx); actor != "" {
		return actor
	}
	return userID
}

func parseID(value string) (snowflake.ID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, domain.ErrInvalidID
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return snowflake.ID(id), nil
}
