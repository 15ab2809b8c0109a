package handler

import (
	"net/http"

	"salespipe/internal/middleware"
	"salespipe/internal/services"
	"salespipe/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

type ContactHandler struct {
	contacts *services.ContactService
}

func NewContactHandler(contacts *services.ContactService) *ContactHandler {
	return &ContactHandler{contacts: contacts}
}

type createContactRequest struct {
	Email     string `json:"email" binding:"required,email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	AccountID string `json:"account_id"`
}

type contactResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	AccountID string `json:"account_id,omitempty"`
}

func (h *ContactHandler) Create(c *gin.Context) {
	tenantID := middleware.TenantID(c)
	if tenantID == "" {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("missing X-Tenant-Id header", "MISSING_TENANT"))
		return
	}

	var req createContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(err.Error(), "INVALID_INPUT"))
		return
	}

	contact, err := h.contacts.Create(c.Request.Context(), tenantID, services.CreateContactInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		AccountID: req.AccountID,
		RequestID: c.Writer.Header().Get("X-Request-Id"),
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(contactResponse{
		ID:        contact.ID,
		Email:     contact.Email,
		FirstName: contact.FirstName,
		LastName:  contact.LastName,
		AccountID: contact.AccountID,
	}))
}

func (h *ContactHandler) Get(c *gin.Context) {
	tenantID := middleware.TenantID(c)
	if tenantID == "" {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("missing X-Tenant-Id header", "MISSING_TENANT"))
		return
	}

	contact, err := h.contacts.GetByID(c.Request.Context(), c.Param("id"), tenantID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(contactResponse{
		ID:        contact.ID,
		Email:     contact.Email,
		FirstName: contact.FirstName,
		LastName:  contact.LastName,
		AccountID: contact.AccountID,
	}))
}
