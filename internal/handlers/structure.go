package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/evetools/indy/internal/apperror"
	"github.com/evetools/indy/internal/middleware"
	"github.com/evetools/indy/internal/repos"
	"github.com/evetools/indy/internal/types"
)

type StructureHandler struct {
	structures repos.StructureRepo
}

func NewStructureHandler(structures repos.StructureRepo) *StructureHandler {
	return &StructureHandler{structures: structures}
}

type structureRequest struct {
	StructureID int64   `json:"structure_id"`
	Name        string  `json:"name"`
	SystemID    int64   `json:"system_id"`
	TypeID      int32   `json:"type_id"`
	Rigs        []int32 `json:"rigs"`
	Services    []int32 `json:"services"`
}

func (h *StructureHandler) Create(c *gin.Context) {
	var req structureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apperror.Validation("bad request body: %v", err))
		return
	}
	if req.StructureID <= 0 || req.Name == "" || req.SystemID <= 0 {
		RespondError(c, apperror.Validation("structure_id, name and system_id are required"))
		return
	}
	row := &types.Structure{
		OwnerID:     middleware.OwnerID(c),
		StructureID: req.StructureID,
		Name:        req.Name,
		SystemID:    req.SystemID,
		TypeID:      req.TypeID,
		Rigs:        req.Rigs,
		Services:    req.Services,
	}
	created, err := h.structures.Create(c.Request.Context(), nil, row)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondCreated(c, created)
}

func (h *StructureHandler) List(c *gin.Context) {
	rows, err := h.structures.ListByOwner(c.Request.Context(), nil, middleware.OwnerID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, rows)
}

func (h *StructureHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, apperror.Validation("bad structure id"))
		return
	}
	existing, err := h.structures.GetByID(c.Request.Context(), nil, id)
	if err != nil {
		RespondError(c, err)
		return
	}
	if existing.OwnerID != middleware.OwnerID(c) {
		RespondError(c, apperror.NotFound("structure"))
		return
	}
	var req structureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apperror.Validation("bad request body: %v", err))
		return
	}
	if req.Name != "" {
		existing.Name = req.Name
	}
	if req.Rigs != nil {
		existing.Rigs = req.Rigs
	}
	if req.Services != nil {
		existing.Services = req.Services
	}
	if err := h.structures.Update(c.Request.Context(), nil, existing); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, existing)
}

func (h *StructureHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, apperror.Validation("bad structure id"))
		return
	}
	existing, err := h.structures.GetByID(c.Request.Context(), nil, id)
	if err != nil {
		RespondError(c, err)
		return
	}
	if existing.OwnerID != middleware.OwnerID(c) {
		RespondError(c, apperror.NotFound("structure"))
		return
	}
	if err := h.structures.Delete(c.Request.Context(), nil, id); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": id})
}
