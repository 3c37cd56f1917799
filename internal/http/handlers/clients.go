package handlers

import (
	"net/http"

	"shiptrack/internal/services"

	"github.com/gin-gonic/gin"
)

type createClientRequest struct {
	Name        string `json:"name"`
	CompanyName string `json:"companyName"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
}

// POST /api/clients
func (h *Handlers) CreateClient(c *gin.Context) {
	var req createClientRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	cl, err := h.clientSvc(c).CreateClient(c.Request.Context(), services.CreateClientInput(req))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"client": cl})
}

// GET /api/clients?q=&page=&limit=
func (h *Handlers) ListClients(c *gin.Context) {
	list, page, err := h.clientSvc(c).ListClients(c.Request.Context(), c.Query("q"), pagination(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"clients": list, "pagination": page})
}

// GET /api/clients/:id
func (h *Handlers) GetClient(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	cl, err := h.clientSvc(c).GetClient(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"client": cl})
}
