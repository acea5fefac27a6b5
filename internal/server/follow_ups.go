package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	followupdomain "github.com/smallbiznis/mailroom/internal/followup/domain"
	notificationdomain "github.com/smallbiznis/mailroom/internal/notification/domain"
)

type sendFollowUpRequest struct {
	Subject      string `json:"subject"`
	Body         string `json:"body"`
	SenderUserID string `json:"sender_user_id"`
}

func (s *Server) ListFollowUps(c *gin.Context) {
	asOf, err := parseOptionalTime(c.Query("as_of"))
	if err != nil {
		AbortWithError(c, newValidationError("as_of", "invalid_as_of", "invalid as_of"))
		return
	}

	groups, err := s.followUpSvc.ListFollowUps(c.Request.Context(), followupdomain.ListFollowUpsRequest{AsOf: asOf})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": groups})
}

func (s *Server) GetContactFollowUp(c *gin.Context) {
	group, err := s.followUpSvc.ContactGroup(c.Request.Context(), strings.TrimSpace(c.Param("contact_id")), s.clock.Now())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": group})
}

func (s *Server) SendFollowUp(c *gin.Context) {
	var req sendFollowUpRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	resp, err := s.notificationSvc.SendFollowUp(c.Request.Context(), notificationdomain.SendFollowUpRequest{
		ContactID:       strings.TrimSpace(c.Param("contact_id")),
		SubjectTemplate: req.Subject,
		BodyTemplate:    req.Body,
		SenderUserID:    strings.TrimSpace(req.SenderUserID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListNotificationHistory(c *gin.Context) {
	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
			return
		}
		limit = parsed
	}

	logs, err := s.notificationSvc.ListHistory(c.Request.Context(), strings.TrimSpace(c.Param("contact_id")), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": logs})
}

func (s *Server) PreviewTemplate(c *gin.Context) {
	var req notificationdomain.PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.notificationSvc.Preview(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
