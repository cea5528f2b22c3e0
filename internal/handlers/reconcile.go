package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/evetools/indy/internal/apperror"
	"github.com/evetools/indy/internal/middleware"
	"github.com/evetools/indy/internal/services"
)

type ReconcileHandler struct {
	reconcile *services.ReconcileService
}

func NewReconcileHandler(reconcile *services.ReconcileService) *ReconcileHandler {
	return &ReconcileHandler{reconcile: reconcile}
}

func (h *ReconcileHandler) Candidates(c *gin.Context) {
	candidates, err := h.reconcile.Candidates(c.Request.Context(), middleware.OwnerID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, candidates)
}

func (h *ReconcileHandler) Assign(c *gin.Context) {
	var req struct {
		ProjectJobID uuid.UUID `json:"project_job_id"`
		JobID        int64     `json:"job_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apperror.Validation("bad request body: %v", err))
		return
	}
	if err := h.reconcile.Assign(c.Request.Context(), middleware.OwnerID(c), req.ProjectJobID, req.JobID); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"project_job_id": req.ProjectJobID, "job_id": req.JobID})
}

func (h *ReconcileHandler) Unassign(c *gin.Context) {
	var req struct {
		ProjectJobID uuid.UUID `json:"project_job_id"`
		// DeleteFromSource removes the project-job row instead of
		// reverting it; Ignore hides the freed game job from future
		// candidate lists.
		DeleteFromSource bool `json:"delete_from_source"`
		Ignore           bool `json:"ignore"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apperror.Validation("bad request body: %v", err))
		return
	}
	err := h.reconcile.Unassign(c.Request.Context(), middleware.OwnerID(c),
		req.ProjectJobID, req.DeleteFromSource, req.Ignore)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"project_job_id": req.ProjectJobID})
}

func (h *ReconcileHandler) Replace(c *gin.Context) {
	var req struct {
		JobID           int64     `json:"job_id"`
		NewProjectJobID uuid.UUID `json:"new_project_job_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apperror.Validation("bad request body: %v", err))
		return
	}
	if err := h.reconcile.Replace(c.Request.Context(), middleware.OwnerID(c), req.JobID, req.NewProjectJobID); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"job_id": req.JobID, "project_job_id": req.NewProjectJobID})
}

func (h *ReconcileHandler) MarkDone(c *gin.Context) {
	var req struct {
		ProjectJobID uuid.UUID `json:"project_job_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apperror.Validation("bad request body: %v", err))
		return
	}
	if err := h.reconcile.MarkDone(c.Request.Context(), middleware.OwnerID(c), req.ProjectJobID); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"project_job_id": req.ProjectJobID})
}
