package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"mcn-dashboard/internal/domain"
	"mcn-dashboard/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, log *domain.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *MockRepository) List(ctx context.Context, entityType string, page, pageSize int) ([]domain.AuditLog, int64, error) {
	args := m.Called(ctx, entityType, page, pageSize)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.AuditLog), args.Get(1).(int64), args.Error(2)
}

func TestRecord(t *testing.T) {
	repo := new(MockRepository)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(l *domain.AuditLog) bool {
		return l.Action == "team.create" &&
			l.EntityType == EntityTeam &&
			*l.ActorUserID == 1 &&
			*l.EntityID == 7 &&
			l.Metadata["name"] == "Gaming"
	})).Return(nil)

	NewService(repo).Record(context.Background(), Entry{
		ActorID:    1,
		Action:     "team.create",
		EntityType: EntityTeam,
		EntityID:   7,
		Metadata:   map[string]any{"name": "Gaming"},
	})

	repo.AssertExpectations(t)
}

func TestRecord_OptionalFieldsStayNull(t *testing.T) {
	repo := new(MockRepository)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(l *domain.AuditLog) bool {
		return l.ActorUserID == nil && l.EntityID == nil && l.Metadata != nil
	})).Return(nil)

	NewService(repo).Record(context.Background(), Entry{Action: "sync.daily", EntityType: EntityChannel})

	repo.AssertExpectations(t)
}

// Audit failures are swallowed.
func TestRecord_FailureDoesNotPanic(t *testing.T) {
	repo := new(MockRepository)
	repo.On("Create", mock.Anything, mock.Anything).Return(assert.AnError)

	assert.NotPanics(t, func() {
		NewService(repo).Record(context.Background(), Entry{Action: "x", EntityType: EntityTeam})
	})
}

// A canceled request still gets its audit row written.
func TestRecord_SurvivesCanceledContext(t *testing.T) {
	repo := new(MockRepository)
	repo.On("Create", mock.MatchedBy(func(ctx context.Context) bool {
		return ctx.Err() == nil
	}), mock.Anything).Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	NewService(repo).Record(ctx, Entry{Action: "x", EntityType: EntityTeam})

	repo.AssertExpectations(t)
}

func setupRouter(service *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.ErrorHandler())
	router.GET("/audit", NewHandler(service).List)
	return router
}

func TestHandler_List(t *testing.T) {
	repo := new(MockRepository)
	repo.On("List", mock.Anything, "team", 2, 10).
		Return([]domain.AuditLog{{ID: 11, Action: "team.create", EntityType: "team"}}, int64(11), nil)

	req := httptest.NewRequest(http.MethodGet, "/audit?page=2&per_page=10&entity_type=team", nil)
	w := httptest.NewRecorder()
	setupRouter(NewService(repo)).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data []domain.AuditLog `json:"data"`
		Meta struct {
			Total     int64 `json:"total"`
			TotalPage int   `json:"total_page"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Data, 1)
	assert.Equal(t, int64(11), body.Meta.Total)
	assert.Equal(t, 2, body.Meta.TotalPage)
}

func TestHandler_ListError(t *testing.T) {
	repo := new(MockRepository)
	repo.On("List", mock.Anything, "", 1, 20).Return(nil, int64(0), assert.AnError)

	req := httptest.NewRequest(http.MethodGet, "/audit", nil)
	w := httptest.NewRecorder()
	setupRouter(NewService(repo)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
