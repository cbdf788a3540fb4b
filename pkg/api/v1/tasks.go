package apiv1

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tanagardigil-gorkem/assistme-api/pkg/auth"
	"github.com/tanagardigil-gorkem/assistme-api/pkg/repository"
	"github.com/tanagardigil-gorkem/assistme-api/pkg/types"
)

type TasksGroup struct {
	routerGroup *echo.Group
	backend     repository.TaskRepository
}

type CreateTaskRequest struct {
	Title    string     `json:"title"`
	Notes    string     `json:"notes,omitempty"`
	Priority string     `json:"priority,omitempty"`
	DueAt    *time.Time `json:"due_at,omitempty"`
}

func NewTasksGroup(g *echo.Group, backend repository.TaskRepository) *TasksGroup {
	group := &TasksGroup{routerGroup: g, backend: backend}

	g.POST("", auth.WithAuth(group.CreateTask))
	g.GET("", auth.WithAuth(group.ListTasks))
	g.GET("/:id", auth.WithAuth(group.GetTask))
	g.PATCH("/:id", auth.WithAuth(group.UpdateTask))
	g.DELETE("/:id", auth.WithAuth(group.DeleteTask))

	return group
}

func validPriority(p string) bool {
	switch types.TaskPriority(p) {
	case types.TaskPriorityLow, types.TaskPriorityMedium, types.TaskPriorityHigh:
		return true
	}
	return false
}

func (g *TasksGroup) CreateTask(c echo.Context) error {
	var req CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return ErrorResponse(c, http.StatusBadRequest, "invalid request body")
	}
	if req.Title == "" {
		return ErrorResponse(c, http.StatusBadRequest, "title is required")
	}
	if req.Priority != "" && !validPriority(req.Priority) {
		return ErrorResponse(c, http.StatusBadRequest, "priority must be low, medium, or high")
	}

	ctx := c.Request().Context()
	task, err := g.backend.CreateTask(ctx, auth.UserId(ctx), &types.Task{
		Title:    req.Title,
		Notes:    req.Notes,
		Priority: types.TaskPriority(req.Priority),
		DueAt:    req.DueAt,
	})
	if err != nil {
		return DomainErrorResponse(c, err)
	}

	return c.JSON(http.StatusCreated, Response{Success: true, Data: task})
}

func (g *TasksGroup) ListTasks(c echo.Context) error {
	ctx := c.Request().Context()
	includeDone := c.QueryParam("include_done") == "true"

	tasks, err := g.backend.ListTasks(ctx, auth.UserId(ctx), includeDone)
	if err != nil {
		return DomainErrorResponse(c, err)
	}
	if tasks == nil {
		tasks = []types.Task{}
	}
	return SuccessResponse(c, tasks)
}

func (g *TasksGroup) GetTask(c echo.Context) error {
	ctx := c.Request().Context()
	task, err := g.backend.GetTask(ctx, auth.UserId(ctx), c.Param("id"))
	if err != nil {
		return DomainErrorResponse(c, err)
	}
	if task == nil {
		return ErrorResponse(c, http.StatusNotFound, "task not found")
	}
	return SuccessResponse(c, task)
}

func (g *TasksGroup) UpdateTask(c echo.Context) error {
	var update types.TaskUpdate
	if err := c.Bind(&update); err != nil {
		return ErrorResponse(c, http.StatusBadRequest, "invalid request body")
	}
	if update.Priority != nil && !validPriority(string(*update.Priority)) {
		return ErrorResponse(c, http.StatusBadRequest, "priority must be low, medium, or high")
	}

	ctx := c.Request().Context()
	task, err := g.backend.UpdateTask(ctx, auth.UserId(ctx), c.Param("id"), &update)
	if err != nil {
		return DomainErrorResponse(c, err)
	}
	if task == nil {
		return ErrorResponse(c, http.StatusNotFound, "task not found")
	}
	return SuccessResponse(c, task)
}

func (g *TasksGroup) DeleteTask(c echo.Context) error {
	ctx := c.Request().Context()
	err := g.backend.DeleteTask(ctx, auth.UserId(ctx), c.Param("id"))
	if errors.Is(err, sql.ErrNoRows) {
		return ErrorResponse(c, http.StatusNotFound, "task not found")
	}
	if err != nil {
		return DomainErrorResponse(c, err)
	}
	return SuccessResponse(c, map[string]string{"status": "deleted"})
}
