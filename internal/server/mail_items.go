package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	mailitemdomain "github.com/smallbiznis/mailroom/internal/mailitem/domain"
)

type intakeMailItemRequest struct {
	ContactID  string `json:"contact_id"`
	ItemType   string `json:"item_type"`
	Quantity   int    `json:"quantity"`
	ReceivedAt string `json:"received_at"`
}

type changeTypeRequest struct {
	ItemType string `json:"item_type"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) IntakeMailItem(c *gin.Context) {
	var req intakeMailItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	receivedAt, err := parseOptionalTime(req.ReceivedAt)
	if err != nil {
		AbortWithError(c, newValidationError("received_at", "invalid_received_at", "invalid received_at"))
		return
	}

	resp, err := s.mailItemSvc.Intake(c.Request.Context(), mailitemdomain.IntakeRequest{
		ContactID:  strings.TrimSpace(req.ContactID),
		ItemType:   strings.TrimSpace(req.ItemType),
		Quantity:   req.Quantity,
		ReceivedAt: receivedAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetMailItemByID(c *gin.Context) {
	resp, err := s.mailItemSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ChangeMailItemType(c *gin.Context) {
	var req changeTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.mailItemSvc.ChangeType(c.Request.Context(), mailitemdomain.ChangeTypeRequest{
		ID:       strings.TrimSpace(c.Param("id")),
		ItemType: strings.TrimSpace(req.ItemType),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateMailItemStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.mailItemSvc.UpdateStatus(c.Request.Context(), mailitemdomain.UpdateStatusRequest{
		ID:     strings.TrimSpace(c.Param("id")),
		Status: strings.TrimSpace(req.Status),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
