package task

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mcn-dashboard/auth"
	"mcn-dashboard/internal/audit"
	"mcn-dashboard/internal/domain"
	"mcn-dashboard/internal/middleware"
	"mcn-dashboard/internal/visibility"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) List(ctx context.Context, q Query, order string) ([]domain.Task, error) {
	args := m.Called(ctx, q, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Task), args.Error(1)
}

func (m *MockRepository) FindByID(ctx context.Context, id uint64) (*domain.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Task), args.Error(1)
}

func (m *MockRepository) Create(ctx context.Context, t *domain.Task) error {
	return m.Called(ctx, t).Error(0)
}

func (m *MockRepository) Save(ctx context.Context, t *domain.Task) error {
	return m.Called(ctx, t).Error(0)
}

type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(ctx context.Context, caller visibility.Caller) (visibility.Scope, error) {
	args := m.Called(ctx, caller)
	return args.Get(0).(visibility.Scope), args.Error(1)
}

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Record(ctx context.Context, e audit.Entry) {
	m.Called(ctx, e)
}

type deps struct {
	repo     *MockRepository
	resolver *MockResolver
	recorder *MockRecorder
	router   *gin.Engine
}

// setup routes requests as staff 1 with the given role and channel scope.
func setup(role string, scope visibility.Scope) deps {
	d := deps{repo: new(MockRepository), resolver: new(MockResolver), recorder: new(MockRecorder)}
	d.resolver.On("Resolve", mock.Anything, visibility.Caller{ID: 1, Role: role}).Return(scope, nil)
	d.recorder.On("Record", mock.Anything, mock.Anything).Return()

	gin.SetMode(gin.TestMode)
	d.router = gin.New()
	d.router.Use(middleware.ErrorHandler())
	d.router.Use(func(c *gin.Context) {
		auth.SetIdentity(c, auth.Identity{ID: 1, Role: role})
		c.Next()
	})
	NewHandler(NewService(d.repo, d.resolver, d.recorder)).RegisterRoutes(d.router.Group("/api/tasks"))
	return d
}

func (d deps) send(method, url, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	d.router.ServeHTTP(w, req)
	return w
}

func ptr[T any](v T) *T { return &v }

func TestList_Filters(t *testing.T) {
	d := setup("admin", visibility.Scope{All: true})
	d.repo.On("List", mock.Anything, Query{
		Filter:  Filter{Status: ptr("review"), ChannelID: ptr(uint64(7)), AssigneeID: ptr(uint64(3))},
		Scope:   visibility.Scope{All: true},
		StaffID: 1,
	}, OrderByDueDate).Return([]domain.Task{{ID: 2, Title: "Cut trailer"}}, nil)

	w := d.send(http.MethodGet, "/api/tasks?status=review&channelId=7&assigneeId=3", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"title":"Cut trailer"`)
	d.repo.AssertExpectations(t)
}

func TestList_ScopedCaller(t *testing.T) {
	scope := visibility.Scope{ChannelIDs: []uint64{7, 9}}
	d := setup("viewer", scope)
	d.repo.On("List", mock.Anything, Query{Scope: scope, StaffID: 1}, OrderByDueDate).Return([]domain.Task{}, nil)

	w := d.send(http.MethodGet, "/api/tasks", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[]}`, w.Body.String())
}

func TestList_InvalidFilter(t *testing.T) {
	d := setup("admin", visibility.Scope{All: true})

	assert.Equal(t, http.StatusBadRequest, d.send(http.MethodGet, "/api/tasks?status=bogus", "").Code)
	assert.Equal(t, http.StatusBadRequest, d.send(http.MethodGet, "/api/tasks?channelId=abc", "").Code)
	d.repo.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything)
}

func TestBoard_GroupsByStage(t *testing.T) {
	d := setup("admin", visibility.Scope{All: true})
	d.repo.On("List", mock.Anything, mock.Anything, OrderByNewest).Return([]domain.Task{
		{ID: 3, PipelineStage: "Editing"},
		{ID: 2, PipelineStage: "Editing"},
		{ID: 1, PipelineStage: "Backlog"},
	}, nil)

	w := d.send(http.MethodGet, "/api/tasks/board", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Columns map[string][]domain.Task `json:"columns"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	assert.Len(t, body.Columns, len(domain.PipelineStages)+1)
	require.Len(t, body.Columns["Editing"], 2)
	assert.Equal(t, uint64(3), body.Columns["Editing"][0].ID)
	assert.NotNil(t, body.Columns["Script"])
	assert.Empty(t, body.Columns["Script"])
	require.Len(t, body.Columns["Other"], 1)
	assert.Equal(t, uint64(1), body.Columns["Other"][0].ID)
}

func TestCreate_Defaults(t *testing.T) {
	d := setup("viewer", visibility.Scope{ChannelIDs: []uint64{7}})
	d.repo.On("Create", mock.Anything, mock.MatchedBy(func(tk *domain.Task) bool {
		return tk.Title == "Intro video" &&
			*tk.ChannelID == 7 &&
			tk.Status == domain.TaskIdea &&
			tk.PipelineStage == "Idea" &&
			tk.AssigneeID != nil && *tk.AssigneeID == 1 &&
			tk.DueDate.Equal(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)) &&
			len(tk.Checklist) == 2 && tk.Checklist[0].ID != "" && tk.Checklist[1].ID == "keep"
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.Task).ID = 12
	}).Return(nil)

	w := d.send(http.MethodPost, "/api/tasks", `{
		"title":" Intro video ",
		"channel_id":7,
		"due_date":"2025-04-01",
		"checklist":[{"label":"Draft script"},{"id":"keep","label":"Record","done":true}]
	}`)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"id":12`)
	d.recorder.AssertCalled(t, "Record", mock.Anything, mock.MatchedBy(func(e audit.Entry) bool {
		return e.Action == "task.create" && e.EntityType == audit.EntityTask && e.EntityID == 12
	}))
}

func TestCreate_AdminKeepsUnassigned(t *testing.T) {
	d := setup("admin", visibility.Scope{All: true})
	d.repo.On("Create", mock.Anything, mock.MatchedBy(func(tk *domain.Task) bool {
		return tk.AssigneeID == nil && tk.Status == domain.TaskScript && tk.PipelineStage == "Script"
	})).Return(nil)

	w := d.send(http.MethodPost, "/api/tasks", `{"title":"Outline","status":"script","pipeline_stage":"Script"}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	d.repo.AssertExpectations(t)
}

func TestCreate_ChannelOutsideScope(t *testing.T) {
	d := setup("manager", visibility.Scope{ChannelIDs: []uint64{7}})

	w := d.send(http.MethodPost, "/api/tasks", `{"title":"Intro","channel_id":8}`)

	assert.Equal(t, http.StatusForbidden, w.Code)
	d.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreate_Validation(t *testing.T) {
	d := setup("admin", visibility.Scope{All: true})

	tests := []string{
		`{}`,
		`{"title":"X","pipeline_stage":"Done"}`,
		`{"title":"X","status":"finished"}`,
		`{"title":"X","due_date":"04/01/2025"}`,
		`{"title":"X","checklist":[{"done":true}]}`,
	}
	for _, body := range tests {
		w := d.send(http.MethodPost, "/api/tasks", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	d.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreate_UnknownReference(t *testing.T) {
	d := setup("admin", visibility.Scope{All: true})
	d.repo.On("Create", mock.Anything, mock.Anything).Return(gorm.ErrForeignKeyViolated)

	w := d.send(http.MethodPost, "/api/tasks", `{"title":"X","project_id":99}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdate_ChangesOnlySetFields(t *testing.T) {
	d := setup("admin", visibility.Scope{All: true})
	due := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	d.repo.On("FindByID", mock.Anything, uint64(4)).Return(&domain.Task{
		ID: 4, Title: "Old", Status: domain.TaskIdea, PipelineStage: "Idea", DueDate: &due,
	}, nil)
	d.repo.On("Save", mock.Anything, mock.MatchedBy(func(tk *domain.Task) bool {
		return tk.Title == "Old" && tk.Status == domain.TaskEditing && tk.PipelineStage == "Editing" && tk.DueDate.Equal(due)
	})).Return(nil)

	w := d.send(http.MethodPatch, "/api/tasks/4", `{"status":"editing","pipeline_stage":"Editing"}`)

	require.Equal(t, http.StatusOK, w.Code)
	d.repo.AssertExpectations(t)
	d.recorder.AssertCalled(t, "Record", mock.Anything, mock.MatchedBy(func(e audit.Entry) bool {
		fields, _ := e.Metadata["fields"].([]string)
		return e.Action == "task.update" && assert.ObjectsAreEqual([]string{"status", "pipeline_stage"}, fields)
	}))
}

func TestUpdate_NoChanges(t *testing.T) {
	d := setup("admin", visibility.Scope{All: true})
	d.repo.On("FindByID", mock.Anything, uint64(4)).Return(&domain.Task{ID: 4, Title: "Old"}, nil)

	w := d.send(http.MethodPatch, "/api/tasks/4", `{}`)

	assert.Equal(t, http.StatusOK, w.Code)
	d.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	d.recorder.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
}

func TestUpdate_HiddenTask(t *testing.T) {
	d := setup("viewer", visibility.Scope{ChannelIDs: []uint64{7}})
	d.repo.On("FindByID", mock.Anything, uint64(4)).Return(&domain.Task{ID: 4, ChannelID: ptr(uint64(9)), AssigneeID: ptr(uint64(5))}, nil)

	w := d.send(http.MethodPatch, "/api/tasks/4", `{"status":"review"}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
	d.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestUpdate_AssigneeWithoutChannelAccess(t *testing.T) {
	d := setup("viewer", visibility.Scope{})
	d.repo.On("FindByID", mock.Anything, uint64(4)).Return(&domain.Task{ID: 4, Title: "Edit", ChannelID: ptr(uint64(9)), AssigneeID: ptr(uint64(1))}, nil)
	d.repo.On("Save", mock.Anything, mock.Anything).Return(nil)

	w := d.send(http.MethodPatch, "/api/tasks/4", `{"status":"review"}`)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUpdate_MoveToForeignChannel(t *testing.T) {
	d := setup("manager", visibility.Scope{ChannelIDs: []uint64{7}})
	d.repo.On("FindByID", mock.Anything, uint64(4)).Return(&domain.Task{ID: 4, Title: "Edit", ChannelID: ptr(uint64(7))}, nil)

	w := d.send(http.MethodPatch, "/api/tasks/4", `{"channel_id":9}`)

	assert.Equal(t, http.StatusForbidden, w.Code)
	d.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestUpdate_NotFound(t *testing.T) {
	d := setup("admin", visibility.Scope{All: true})
	d.repo.On("FindByID", mock.Anything, uint64(4)).Return(nil, gorm.ErrRecordNotFound)

	assert.Equal(t, http.StatusNotFound, d.send(http.MethodPatch, "/api/tasks/4", `{"title":"New"}`).Code)
	assert.Equal(t, http.StatusBadRequest, d.send(http.MethodPatch, "/api/tasks/abc", `{"title":"New"}`).Code)
}
