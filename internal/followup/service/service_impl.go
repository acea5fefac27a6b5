package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mailroom/internal/clock"
	"github.com/smallbiznis/mailroom/internal/config"
	contactdomain "github.com/smallbiznis/mailroom/internal/contact/domain"
	feedomain "github.com/smallbiznis/mailroom/internal/fee/domain"
	"github.com/smallbiznis/mailroom/internal/followup/domain"
	mailitemdomain "github.com/smallbiznis/mailroom/internal/mailitem/domain"
	obsmetrics "github.com/smallbiznis/mailroom/internal/observability/metrics"
	"github.com/smallbiznis/mailroom/pkg/tenantctx"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	Fees      *config.FeeConfigHolder
	MailItems mailitemdomain.Repository
	FeeRepo   feedomain.Repository
	Contacts  contactdomain.Repository
	Metrics   *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	fees      *config.FeeConfigHolder
	mailItems mailitemdomain.Repository
	feeRepo   feedomain.Repository
	contacts  contactdomain.Repository
	metrics   *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("followup.service"),
		clock:     clk,
		fees:      p.Fees,
		mailItems: p.MailItems,
		feeRepo:   p.FeeRepo,
		contacts:  p.Contacts,
		metrics:   p.Metrics,
	}
}

func (s *Service) ListFollowUps(ctx context.Context, req domain.ListFollowUpsRequest) ([]domain.FollowUpGroup, error) {
	userID, ok := tenantctx.UserID(ctx)
	if !ok {
		return nil, tenantctx.ErrMissingUserID
	}
	asOf := s.clock.Now()
	if req.AsOf != nil {
		asOf = *req.AsOf
	}

	candidates, err := s.mailItems.ListNeedingFollowUp(ctx, s.db, userID, nil)
	if err != nil {
		return nil, fmt.Errorf("list follow-up candidates: %w", err)
	}

	interval := s.fees.Get().FollowUpIntervalDays
	items := make([]mailitemdomain.MailItem, 0, len(candidates))
	for _, item := range candidates {
		if domain.NeedsFollowUp(item, asOf, interval) {
			items = append(items, item)
		}
	}

	groups, err := s.group(ctx, userID, nil, items, asOf)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordFollowUpGroups(ctx, len(groups))
	s.log.Debug("follow-ups listed",
		zap.String("user_id", userID),
		zap.Int("candidates", len(candidates)),
		zap.Int("items", len(items)),
		zap.Int("groups", len(groups)),
	)
	return groups, nil
}

func (s *Service) ContactGroup(ctx context.Context, contactID string, asOf time.Time) (domain.FollowUpGroup, error) {
	userID, ok := tenantctx.UserID(ctx)
	if !ok {
		return domain.FollowUpGroup{}, tenantctx.ErrMissingUserID
	}
	id, err := strconv.ParseInt(strings.TrimSpace(contactID), 10, 64)
	if err != nil || id <= 0 {
		return domain.FollowUpGroup{}, domain.ErrInvalidContact
	}
	cid := snowflake.ID(id)

	contact, err := s.contacts.FindByID(ctx, s.db, userID, cid)
	if err != nil {
		return domain.FollowUpGroup{}, fmt.Errorf("load contact: %w", err)
	}
	if contact == nil {
		return domain.FollowUpGroup{}, domain.ErrContactNotFound
	}

	items, err := s.mailItems.ListNeedingFollowUp(ctx, s.db, userID, &cid)
	if err != nil {
		return domain.FollowUpGroup{}, fmt.Errorf("list contact items: %w", err)
	}
	if len(items) == 0 {
		return domain.FollowUpGroup{}, domain.ErrNoOutstandingItems
	}

	groups, err := s.group(ctx, userID, &cid, items, asOf)
	if err != nil {
		return domain.FollowUpGroup{}, err
	}
	group := groups[0]
	group.Contact = *contact
	return group, nil
}

func (s *Service) group(ctx context.Context, userID string, contactID *snowflake.ID, items []mailitemdomain.MailItem, asOf time.Time) ([]domain.FollowUpGroup, error) {
	if len(items) == 0 {
		return []domain.FollowUpGroup{}, nil
	}

	fees, err := s.feeRepo.ListPendingByUser(ctx, s.db, userID, contactID)
	if err != nil {
		return nil, fmt.Errorf("list pending fees: %w", err)
	}

	seen := make(map[snowflake.ID]struct{})
	ids := make([]snowflake.ID, 0)
	for _, item := range items {
		if _, ok := seen[item.ContactID]; ok {
			continue
		}
		seen[item.ContactID] = struct{}{}
		ids = append(ids, item.ContactID)
	}
	contacts, err := s.contacts.ListByIDs(ctx, s.db, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}

	return domain.GroupAndScore(items, fees, contacts, asOf), nil
}
