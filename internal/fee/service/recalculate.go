package service

import (
	"context"
	"fmt"
	"time"

	"github.com/smallbiznis/mailroom/internal/fee/domain"
	mailitemdomain "github.com/smallbiznis/mailroom/internal/mailitem/domain"
	"github.com/smallbiznis/mailroom/pkg/tenantctx"
	"go.uber.org/zap"
)

// RecalculateAll refreshes every pending fee, optionally for one tenant.
// Only the initial fetch can fail the run; row errors are counted.
func (s *Service) RecalculateAll(ctx context.Context, req domain.RecalculateRequest) (domain.RecalculateSummary, error) {
	asOf := s.clock.Now()
	if req.AsOf != nil {
		asOf = *req.AsOf
	}

	rows, err := s.repo.ListPendingWithItems(ctx, s.db, req.UserID)
	if err != nil {
		return domain.RecalculateSummary{}, fmt.Errorf("list pending fees: %w", err)
	}

	summary := domain.RecalculateSummary{Total: len(rows)}
	for _, row := range rows {
		if row.ItemStatus == mailitemdomain.StatusPickedUp {
			summary.Skipped++
			continue
		}

		updated, err := s.recalculateRow(ctx, row, asOf)
		if err != nil {
			summary.Errors++
			s.log.Warn("fee recalculation failed",
				zap.String("fee_id", row.ID.String()),
				zap.String("user_id", row.UserID),
				zap.Error(err),
			)
			continue
		}
		if !updated {
			summary.Skipped++
			continue
		}
		summary.Updated++
	}

	s.metrics.RecordRecalculation(ctx, "updated", summary.Updated)
	s.metrics.RecordRecalculation(ctx, "skipped", summary.Skipped)
	s.metrics.RecordRecalculation(ctx, "error", summary.Errors)

	fields := []zap.Field{
		zap.Int("total", summary.Total),
		zap.Int("updated", summary.Updated),
		zap.Int("skipped", summary.Skipped),
		zap.Int("errors", summary.Errors),
		zap.Time("as_of", asOf),
	}
	if req.UserID != nil {
		fields = append(fields, zap.String("user_id", *req.UserID))
	}
	s.log.Info("fee recalculation finished", fields...)

	return summary, nil
}

// RecalculateFee refreshes a single pending fee as of now.
func (s *Service) RecalculateFee(ctx context.Context, id string) (domain.PackageFee, error) {
	userID, ok := tenantctx.UserID(ctx)
	if !ok {
		return domain.PackageFee{}, tenantctx.ErrMissingUserID
	}
	feeID, err := parseID(id)
	if err != nil {
		return domain.PackageFee{}, err
	}

	row, err := s.repo.FindPendingWithItem(ctx, s.db, userID, feeID)
	if err != nil {
		return domain.PackageFee{}, fmt.Errorf("load pending fee: %w", err)
	}
	if row == nil {
		return domain.PackageFee{}, domain.ErrAlreadyProcessed
	}

	if row.ItemStatus != mailitemdomain.StatusPickedUp {
		updated, err := s.recalculateRow(ctx, *row, s.clock.Now())
		if err != nil {
			return domain.PackageFee{}, err
		}
		if !updated {
			return domain.PackageFee{}, domain.ErrAlreadyProcessed
		}
	}

	return s.GetFee(ctx, id)
}

// recalculateRow sets the amount owed. It reports false when the fee left
// pending between the read and the write.
func (s *Service) recalculateRow(ctx context.Context, row domain.PendingFee, asOf time.Time) (bool, error) {
	calc := domain.Calculate(row.ReceivedDate, row.Policy(), asOf)
	affected, err := s.repo.UpdateCalculation(ctx, s.db, row.ID, calc, asOf)
	if err != nil {
		return false, fmt.Errorf("update fee %s: %w", row.ID, err)
	}
	return affected > 0, nil
}
