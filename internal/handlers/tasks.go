package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/evetools/indy/internal/apperror"
	"github.com/evetools/indy/internal/repos"
)

// TaskHandler exposes a read-only view of the worker queue for dashboards.
type TaskHandler struct {
	tasks repos.WorkerTaskRepo
}

func NewTaskHandler(tasks repos.WorkerTaskRepo) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

func (h *TaskHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	rows, err := h.tasks.ListRecent(c.Request.Context(), nil, limit)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, rows)
}

func (h *TaskHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, apperror.Validation("bad task id"))
		return
	}
	row, err := h.tasks.GetByID(c.Request.Context(), nil, id)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, row)
}
