package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/evetools/indy/internal/apperror"
	"github.com/evetools/indy/internal/middleware"
	"github.com/evetools/indy/internal/services"
)

type AssignmentHandler struct {
	assignments *services.AssignmentService
}

func NewAssignmentHandler(assignments *services.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignments: assignments}
}

func (h *AssignmentHandler) Create(c *gin.Context) {
	var req struct {
		Name          string      `json:"name"`
		ProjectJobIDs []uuid.UUID `json:"project_job_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apperror.Validation("bad request body: %v", err))
		return
	}
	created, err := h.assignments.Create(c.Request.Context(), middleware.OwnerID(c), req.Name, req.ProjectJobIDs)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondCreated(c, created)
}

func (h *AssignmentHandler) List(c *gin.Context) {
	rows, err := h.assignments.List(c.Request.Context(), middleware.OwnerID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, rows)
}

func (h *AssignmentHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, apperror.Validation("bad assignment id"))
		return
	}
	row, err := h.assignments.Get(c.Request.Context(), middleware.OwnerID(c), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, row)
}

func (h *AssignmentHandler) MarkStarted(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, apperror.Validation("bad assignment id"))
		return
	}
	var req struct {
		ProjectJobID uuid.UUID `json:"project_job_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apperror.Validation("bad request body: %v", err))
		return
	}
	if err := h.assignments.MarkStarted(c.Request.Context(), middleware.OwnerID(c), id, req.ProjectJobID); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"started": req.ProjectJobID})
}

func (h *AssignmentHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, apperror.Validation("bad assignment id"))
		return
	}
	if err := h.assignments.Delete(c.Request.Context(), middleware.OwnerID(c), id); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": id})
}
