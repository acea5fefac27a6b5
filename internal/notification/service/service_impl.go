package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mailroom/internal/clock"
	followupdomain "github.com/smallbiznis/mailroom/internal/followup/domain"
	mailitemdomain "github.com/smallbiznis/mailroom/internal/mailitem/domain"
	"github.com/smallbiznis/mailroom/internal/notification/domain"
	"github.com/smallbiznis/mailroom/internal/notification/render"
	obscontext "github.com/smallbiznis/mailroom/internal/observability/context"
	obsmetrics "github.com/smallbiznis/mailroom/internal/observability/metrics"
	"github.com/smallbiznis/mailroom/internal/providers/email"
	"github.com/smallbiznis/mailroom/pkg/tenantctx"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	FollowUps followupdomain.Service
	MailItems mailitemdomain.Repository
	Email     email.Provider
	Metrics   *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	followUps followupdomain.Service
	mailItems mailitemdomain.Repository
	email     email.Provider
	metrics   *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("notification.service"),
		genID:     p.GenID,
		clock:     clk,
		repo:      p.Repo,
		followUps: p.FollowUps,
		mailItems: p.MailItems,
		email:     p.Email,
		metrics:   p.Metrics,
	}
}

func (s *Service) SendFollowUp(ctx context.Context, req domain.SendFollowUpRequest) (*domain.NotificationLog, error) {
	userID, ok := tenantctx.UserID(ctx)
	if !ok {
		return nil, tenantctx.ErrMissingUserID
	}
	if _, err := parseContactID(req.ContactID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	group, err := s.followUps.ContactGroup(ctx, req.ContactID, now)
	if err != nil {
		return nil, err
	}
	recipient := strings.TrimSpace(group.Contact.Email)
	if recipient == "" {
		return nil, domain.ErrMissingRecipient
	}

	subjectTpl, bodyTpl := req.SubjectTemplate, req.BodyTemplate
	if strings.TrimSpace(subjectTpl) == "" {
		subjectTpl = domain.DefaultSubjectTemplate
	}
	if strings.TrimSpace(bodyTpl) == "" {
		bodyTpl = domain.DefaultBodyTemplate
	}

	vars := groupVariables(group)
	rendered := render.Render(subjectTpl, bodyTpl, vars)

	sender := strings.TrimSpace(req.SenderUserID)
	if sender == "" {
		sender = obscontext.ActorFromContext(ctx)
	}
	if sender == "" {
		sender = userID
	}

	messageID, err := s.email.Send(ctx, email.Message{
		To:           recipient,
		Subject:      rendered.Subject,
		HTML:         rendered.Body,
		SenderUserID: sender,
	})
	if err != nil {
		s.metrics.RecordNotification(ctx, "failed")
		s.log.Warn("follow-up delivery failed",
			zap.String("user_id", userID),
			zap.String("contact_id", group.Contact.ID.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", domain.ErrDeliveryFailed, err)
	}

	logVars := make(datatypes.JSONMap, len(vars))
	for key, value := range vars {
		logVars[key] = render.Stringify(value)
	}
	entry := &domain.NotificationLog{
		ID:        s.genID.Generate(),
		UserID:    userID,
		ContactID: group.Contact.ID,
		MessageID: messageID,
		Recipient: recipient,
		Subject:   rendered.Subject,
		Variables: logVars,
		SentBy:    sender,
		SentAt:    now,
	}

	itemIDs := make([]snowflake.ID, 0, group.ItemCount())
	for _, item := range group.Items() {
		itemIDs = append(itemIDs, item.ID)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, entry); err != nil {
			return fmt.Errorf("insert notification log: %w", err)
		}
		if _, err := s.mailItems.MarkNotified(ctx, tx, userID, itemIDs, now); err != nil {
			return fmt.Errorf("mark items notified: %w", err)
		}
		return nil
	})
	if err != nil {
		s.metrics.RecordNotification(ctx, "unrecorded")
		s.log.Error("follow-up delivered but not recorded",
			zap.String("user_id", userID),
			zap.String("message_id", messageID),
			zap.Error(err),
		)
		return nil, err
	}

	s.metrics.RecordNotification(ctx, "sent")
	s.log.Info("follow-up sent",
		zap.String("user_id", userID),
		zap.String("contact_id", group.Contact.ID.String()),
		zap.String("message_id", messageID),
		zap.Int("items", len(itemIDs)),
	)
	return entry, nil
}

func (s *Service) Preview(ctx context.Context, req domain.PreviewRequest) (render.Rendered, error) {
	if strings.TrimSpace(req.Subject) == "" && strings.TrimSpace(req.Body) == "" {
		return render.Rendered{}, domain.ErrEmptyTemplate
	}

	vars := map[string]any{}
	if strings.TrimSpace(req.ContactID) != "" {
		if _, ok := tenantctx.UserID(ctx); !ok {
			return render.Rendered{}, tenantctx.ErrMissingUserID
		}
		group, err := s.followUps.ContactGroup(ctx, req.ContactID, s.clock.Now())
		if err != nil && !errors.Is(err, followupdomain.ErrNoOutstandingItems) {
			return render.Rendered{}, err
		}
		if err == nil {
			vars = groupVariables(group)
		}
	}
	for key, value := range req.Variables {
		vars[key] = value
	}

	return render.Render(req.Subject, req.Body, vars), nil
}

func (s *Service) ListHistory(ctx context.Context, contactID string, limit int) ([]domain.NotificationLog, error) {
	userID, ok := tenantctx.UserID(ctx)
	if !ok {
		return nil, tenantctx.ErrMissingUserID
	}
	id, err := parseContactID(contactID)
	if err != nil {
		return nil, err
	}
	logs, err := s.repo.ListByContact(ctx, s.db, userID, id, limit)
	if err != nil {
		return nil, fmt.Errorf("list notification logs: %w", err)
	}
	return logs, nil
}

func groupVariables(group followupdomain.FollowUpGroup) map[string]any {
	vars := render.PluralVariables(len(group.Letters), len(group.Packages))
	vars["Name"] = group.Contact.Name
	vars["MailboxNumber"] = group.Contact.MailboxNumber
	vars["TotalFees"] = group.TotalFees
	vars["MaxAgeDays"] = group.MaxAgeDays
	return vars
}

func parseContactID(value string) (snowflake.ID, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidContact
	}
	return snowflake.ID(id), nil
}
