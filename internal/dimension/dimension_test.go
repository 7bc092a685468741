package dimension

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mcn-dashboard/auth"
	"mcn-dashboard/internal/audit"
	"mcn-dashboard/internal/domain"
	"mcn-dashboard/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) List(ctx context.Context) ([]domain.Team, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Team), args.Error(1)
}

func (m *MockStore) FindByID(ctx context.Context, id uint64) (*domain.Team, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Team), args.Error(1)
}

func (m *MockStore) Create(ctx context.Context, row *domain.Team) error {
	return m.Called(ctx, row).Error(0)
}

func (m *MockStore) Save(ctx context.Context, row *domain.Team) error {
	return m.Called(ctx, row).Error(0)
}

func (m *MockStore) Delete(ctx context.Context, id uint64) error {
	return m.Called(ctx, id).Error(0)
}

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Record(ctx context.Context, e audit.Entry) {
	m.Called(ctx, e)
}

type MockInvalidator struct {
	mock.Mock
}

func (m *MockInvalidator) Invalidate(ctx context.Context) {
	m.Called(ctx)
}

type deps struct {
	store       *MockStore
	recorder    *MockRecorder
	invalidator *MockInvalidator
	service     *TeamService
}

func newDeps() deps {
	d := deps{store: new(MockStore), recorder: new(MockRecorder), invalidator: new(MockInvalidator)}
	d.recorder.On("Record", mock.Anything, mock.Anything).Return()
	d.invalidator.On("Invalidate", mock.Anything).Return()
	d.service = NewService[domain.Team, *domain.Team](TeamKind, d.store, d.recorder, d.invalidator)
	return d
}

func setupRouter(d deps, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.ErrorHandler())
	router.Use(func(c *gin.Context) {
		auth.SetIdentity(c, auth.Identity{ID: 1, Role: role})
		c.Next()
	})
	NewHandler(d.service).RegisterRoutes(router.Group("/api/teams"), auth.RequireRole(domain.RoleAdmin))
	return router
}

func send(router *gin.Engine, method, url, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestList(t *testing.T) {
	d := newDeps()
	d.store.On("List", mock.Anything).Return([]domain.Team{{ID: 1, Name: "Gaming"}}, nil)

	w := send(setupRouter(d, "viewer"), http.MethodGet, "/api/teams", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Gaming"`)
}

func TestCreate(t *testing.T) {
	d := newDeps()
	d.store.On("Create", mock.Anything, mock.MatchedBy(func(team *domain.Team) bool {
		return team.Name == "Gaming" && *team.Description == "games"
	})).Return(nil).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.Team).ID = 3
	})

	w := send(setupRouter(d, "admin"), http.MethodPost, "/api/teams", `{"name":"  Gaming ","description":"games"}`)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"id":3`)
	d.recorder.AssertCalled(t, "Record", mock.Anything, mock.MatchedBy(func(e audit.Entry) bool {
		return e.Action == "team.create" && e.EntityID == 3 && e.EntityType == "team"
	}))
}

func TestCreate_Conflict(t *testing.T) {
	d := newDeps()
	d.store.On("Create", mock.Anything, mock.Anything).Return(gorm.ErrDuplicatedKey)

	w := send(setupRouter(d, "admin"), http.MethodPost, "/api/teams", `{"name":"Gaming"}`)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"error":"Team name already exists"}`, w.Body.String())
}

func TestCreate_Validation(t *testing.T) {
	d := newDeps()

	w := send(setupRouter(d, "admin"), http.MethodPost, "/api/teams", `{"name":""}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	d.store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestMutationsRequireAdmin(t *testing.T) {
	d := newDeps()
	router := setupRouter(d, "manager")

	assert.Equal(t, http.StatusForbidden, send(router, http.MethodPost, "/api/teams", `{"name":"X"}`).Code)
	assert.Equal(t, http.StatusForbidden, send(router, http.MethodPut, "/api/teams/1", `{"name":"X"}`).Code)
	assert.Equal(t, http.StatusForbidden, send(router, http.MethodDelete, "/api/teams/1", "").Code)
	assert.Empty(t, d.store.Calls)
}

func TestUpdate_InvalidatesDashboard(t *testing.T) {
	d := newDeps()
	d.store.On("FindByID", mock.Anything, uint64(2)).Return(&domain.Team{ID: 2, Name: "Old"}, nil)
	d.store.On("Save", mock.Anything, mock.MatchedBy(func(team *domain.Team) bool {
		return team.Name == "New" && team.Description == nil
	})).Return(nil)

	w := send(setupRouter(d, "admin"), http.MethodPut, "/api/teams/2", `{"name":"New"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	d.invalidator.AssertNumberOfCalls(t, "Invalidate", 1)
}

func TestUpdate_NotFound(t *testing.T) {
	d := newDeps()
	d.store.On("FindByID", mock.Anything, uint64(9)).Return(nil, gorm.ErrRecordNotFound)

	w := send(setupRouter(d, "admin"), http.MethodPut, "/api/teams/9", `{"name":"New"}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
	d.invalidator.AssertNotCalled(t, "Invalidate", mock.Anything)
}

func TestDelete(t *testing.T) {
	d := newDeps()
	d.store.On("Delete", mock.Anything, uint64(2)).Return(nil)
	d.store.On("Delete", mock.Anything, uint64(3)).Return(gorm.ErrRecordNotFound)
	router := setupRouter(d, "admin")

	assert.Equal(t, http.StatusNoContent, send(router, http.MethodDelete, "/api/teams/2", "").Code)
	assert.Equal(t, http.StatusNotFound, send(router, http.MethodDelete, "/api/teams/3", "").Code)
	d.invalidator.AssertNumberOfCalls(t, "Invalidate", 1)
}
