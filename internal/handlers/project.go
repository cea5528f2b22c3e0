package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/evetools/indy/internal/apperror"
	"github.com/evetools/indy/internal/industry"
	"github.com/evetools/indy/internal/middleware"
	"github.com/evetools/indy/internal/services"
)

type ProjectHandler struct {
	projects  *services.ProjectService
	startable *services.StartableService
}

func NewProjectHandler(projects *services.ProjectService, startable *services.StartableService) *ProjectHandler {
	return &ProjectHandler{projects: projects, startable: startable}
}

type mappingRequest struct {
	StructureID uuid.UUID `json:"structure_id"`
	CategoryID  int32     `json:"category_id"`
	GroupID     int32     `json:"group_id"`
}

type planRequest struct {
	Name               string            `json:"name"`
	ProductTypeID      int32             `json:"product_type_id"`
	Runs               int32             `json:"runs"`
	StructureIDs       []uuid.UUID       `json:"structure_ids"`
	Mappings           []mappingRequest  `json:"mappings"`
	MaterialOverwrites map[int32]float64 `json:"material_overwrites"`
	RunPolicies        map[int32]int32   `json:"run_policies"`
	SkipChildren       bool              `json:"skip_children"`
	FacilityTax        float64           `json:"facility_tax"`
	RoleTax            float64           `json:"role_tax"`
	SellPrice          *float64          `json:"sell_price"`
	GroupID            *uuid.UUID        `json:"group_id"`
}

func (r planRequest) options() services.PlanOptions {
	opts := services.PlanOptions{
		StructureIDs:       r.StructureIDs,
		MaterialOverwrites: r.MaterialOverwrites,
		RunPolicies:        r.RunPolicies,
		SkipChildren:       r.SkipChildren,
		FacilityTax:        r.FacilityTax,
		RoleTax:            r.RoleTax,
		SellPrice:          r.SellPrice,
		GroupID:            r.GroupID,
	}
	for _, m := range r.Mappings {
		opts.Mappings = append(opts.Mappings, industry.StructureMapping{
			StructureID: m.StructureID,
			CategoryGroup: industry.CategoryGroup{
				CategoryID: m.CategoryID,
				GroupID:    m.GroupID,
			},
		})
	}
	return opts
}

// Plan previews a build without persisting it.
func (h *ProjectHandler) Plan(c *gin.Context) {
	var req planRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apperror.Validation("bad request body: %v", err))
		return
	}
	plan, _, err := h.projects.Plan(c.Request.Context(), middleware.OwnerID(c),
		industry.Request{ProductTypeID: req.ProductTypeID, Runs: req.Runs}, req.options())
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, plan)
}

func (h *ProjectHandler) Create(c *gin.Context) {
	var req planRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apperror.Validation("bad request body: %v", err))
		return
	}
	project, plan, err := h.projects.CreateProject(c.Request.Context(), middleware.OwnerID(c), req.Name,
		industry.Request{ProductTypeID: req.ProductTypeID, Runs: req.Runs}, req.options())
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondCreated(c, gin.H{"project": project, "plan": plan})
}

func (h *ProjectHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, apperror.Validation("bad project id"))
		return
	}
	project, err := h.projects.Get(c.Request.Context(), middleware.OwnerID(c), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, project)
}

func (h *ProjectHandler) List(c *gin.Context) {
	projects, err := h.projects.List(c.Request.Context(), middleware.OwnerID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, projects)
}

func (h *ProjectHandler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, apperror.Validation("bad project id"))
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apperror.Validation("bad request body: %v", err))
		return
	}
	if err := h.projects.UpdateStatus(c.Request.Context(), middleware.OwnerID(c), id, req.Status); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"status": req.Status})
}

func (h *ProjectHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, apperror.Validation("bad project id"))
		return
	}
	if err := h.projects.Delete(c.Request.Context(), middleware.OwnerID(c), id); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": id})
}

func (h *ProjectHandler) SetStock(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, apperror.Validation("bad project id"))
		return
	}
	var req struct {
		TypeID   int32    `json:"type_id"`
		Quantity int64    `json:"quantity"`
		Cost     *float64 `json:"cost"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apperror.Validation("bad request body: %v", err))
		return
	}
	if err := h.projects.SetStock(c.Request.Context(), middleware.OwnerID(c), id, req.TypeID, req.Quantity, req.Cost); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"type_id": req.TypeID, "quantity": req.Quantity})
}

func (h *ProjectHandler) AddMisc(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, apperror.Validation("bad project id"))
		return
	}
	var req struct {
		Description string   `json:"description"`
		Quantity    int64    `json:"quantity"`
		Cost        *float64 `json:"cost"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apperror.Validation("bad request body: %v", err))
		return
	}
	if err := h.projects.AddMisc(c.Request.Context(), middleware.OwnerID(c), id, req.Description, req.Quantity, req.Cost); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"added": req.Description})
}

// Startable lists the jobs of a project whose dependencies are satisfied.
func (h *ProjectHandler) Startable(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, apperror.Validation("bad project id"))
		return
	}
	jobs, err := h.startable.Evaluate(c.Request.Context(), middleware.OwnerID(c), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, jobs)
}

func (h *ProjectHandler) MarkReady(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, apperror.Validation("bad project id"))
		return
	}
	promoted, err := h.startable.MarkReady(c.Request.Context(), middleware.OwnerID(c), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"promoted": promoted})
}
