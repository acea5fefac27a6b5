package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	feedomain "github.com/smallbiznis/mailroom/internal/fee/domain"
	"github.com/smallbiznis/mailroom/pkg/tenantctx"
)

type waiveFeeRequest struct {
	Reason  string `json:"reason"`
	ActorID string `json:"actor_id"`
}

type markFeePaidRequest struct {
	PaymentMethod   string  `json:"payment_method"`
	CollectedAmount *string `json:"collected_amount"`
	ActorID         string  `json:"actor_id"`
}

func (s *Server) GetFeeByID(c *gin.Context) {
	resp, err := s.feeSvc.GetFee(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) WaiveFee(c *gin.Context) {
	var req waiveFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.feeSvc.WaiveFee(c.Request.Context(), feedomain.WaiveFeeRequest{
		FeeID:   strings.TrimSpace(c.Param("id")),
		Reason:  req.Reason,
		ActorID: strings.TrimSpace(req.ActorID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) MarkFeePaid(c *gin.Context) {
	var req markFeePaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	collected, err := parseOptionalDecimal(req.CollectedAmount)
	if err != nil {
		AbortWithError(c, feedomain.ErrInvalidCollectedAmount)
		return
	}

	resp, err := s.feeSvc.MarkFeePaid(c.Request.Context(), feedomain.MarkFeePaidRequest{
		FeeID:           strings.TrimSpace(c.Param("id")),
		PaymentMethod:   req.PaymentMethod,
		CollectedAmount: collected,
		ActorID:         strings.TrimSpace(req.ActorID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RecalculateFee(c *gin.Context) {
	resp, err := s.feeSvc.RecalculateFee(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// RecalculateFees runs the bulk job for the calling tenant only. Amounts are
// always priced at the current time, any request body is ignored.
func (s *Server) RecalculateFees(c *gin.Context) {
	ctx := c.Request.Context()
	userID, ok := tenantctx.UserID(ctx)
	if !ok {
		AbortWithError(c, tenantctx.ErrMissingUserID)
		return
	}

	summary, err := s.feeSvc.RecalculateAll(ctx, feedomain.RecalculateRequest{
		UserID: &userID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": summary})
}
