package apiv1

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanagardigil-gorkem/assistme-api/pkg/auth"
	"github.com/tanagardigil-gorkem/assistme-api/pkg/types"
)

type memTaskRepo struct {
	nextId uint
	tasks  map[string]*types.Task
}

func newMemTaskRepo() *memTaskRepo {
	return &memTaskRepo{tasks: map[string]*types.Task{}}
}

func (m *memTaskRepo) CreateTask(ctx context.Context, userId uint, task *types.Task) (*types.Task, error) {
	m.nextId++
	t := *task
	t.Id = m.nextId
	t.ExternalId = uuid.NewString()
	t.UserId = userId
	if t.Priority == "" {
		t.Priority = types.TaskPriorityMedium
	}
	m.tasks[t.ExternalId] = &t
	copied := t
	return &copied, nil
}

func (m *memTaskRepo) GetTask(ctx context.Context, userId uint, externalId string) (*types.Task, error) {
	t, ok := m.tasks[externalId]
	if !ok || t.UserId != userId {
		return nil, nil
	}
	copied := *t
	return &copied, nil
}

func (m *memTaskRepo) ListTasks(ctx context.Context, userId uint, includeDone bool) ([]types.Task, error) {
	var out []types.Task
	for _, t := range m.tasks {
		if t.UserId != userId || (!includeDone && t.Done) {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (m *memTaskRepo) UpdateTask(ctx context.Context, userId uint, externalId string, update *types.TaskUpdate) (*types.Task, error) {
	t, ok := m.tasks[externalId]
	if !ok || t.UserId != userId {
		return nil, nil
	}
	if update.Title != nil {
		t.Title = *update.Title
	}
	if update.Done != nil {
		t.Done = *update.Done
	}
	if update.Priority != nil {
		t.Priority = *update.Priority
	}
	copied := *t
	return &copied, nil
}

func (m *memTaskRepo) DeleteTask(ctx context.Context, userId uint, externalId string) error {
	t, ok := m.tasks[externalId]
	if !ok || t.UserId != userId {
		return sql.ErrNoRows
	}
	delete(m.tasks, externalId)
	return nil
}

// testAuth injects a fixed user, mimicking a validated bearer token
func testAuth(userId uint) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := auth.WithAuthInfo(c.Request().Context(), &types.AuthInfo{User: &types.User{Id: userId, ExternalId: "ext", Email: "u@example.com"}})
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func newTasksServer(t *testing.T, repo *memTaskRepo, userId uint) *echo.Echo {
	t.Helper()

	e := echo.New()
	g := e.Group("/api/v1/tasks")
	if userId != 0 {
		g.Use(testAuth(userId))
	}
	NewTasksGroup(g, repo)
	return e
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var resp struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success, "expected success, got error: %s", resp.Error)

	var data T
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	return data
}

func TestTasksCRUD(t *testing.T) {
	repo := newMemTaskRepo()
	e := newTasksServer(t, repo, 1)

	rec := doJSON(e, http.MethodPost, "/api/v1/tasks", `{"title":"buy milk","priority":"high"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeData[types.Task](t, rec)
	assert.Equal(t, "buy milk", created.Title)
	assert.Equal(t, types.TaskPriorityHigh, created.Priority)

	rec = doJSON(e, http.MethodGet, "/api/v1/tasks", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeData[[]types.Task](t, rec)
	require.Len(t, list, 1)

	rec = doJSON(e, http.MethodPatch, "/api/v1/tasks/"+created.ExternalId, `{"done":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeData[types.Task](t, rec)
	assert.True(t, updated.Done)

	// Done tasks drop out of the default listing
	rec = doJSON(e, http.MethodGet, "/api/v1/tasks", "")
	assert.Empty(t, decodeData[[]types.Task](t, rec))

	rec = doJSON(e, http.MethodGet, "/api/v1/tasks?include_done=true", "")
	assert.Len(t, decodeData[[]types.Task](t, rec), 1)

	rec = doJSON(e, http.MethodDelete, "/api/v1/tasks/"+created.ExternalId, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodDelete, "/api/v1/tasks/"+created.ExternalId, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTasksValidation(t *testing.T) {
	e := newTasksServer(t, newMemTaskRepo(), 1)

	rec := doJSON(e, http.MethodPost, "/api/v1/tasks", `{"title":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(e, http.MethodPost, "/api/v1/tasks", `{"title":"x","priority":"urgent"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(e, http.MethodGet, "/api/v1/tasks/"+"missing-id", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTasksRequireAuth(t *testing.T) {
	e := newTasksServer(t, newMemTaskRepo(), 0)

	rec := doJSON(e, http.MethodGet, "/api/v1/tasks", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
