package staff

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mcn-dashboard/auth"
	"mcn-dashboard/internal/domain"
	"mcn-dashboard/internal/errors"
	"mcn-dashboard/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockService is a mock implementation of the Service interface
type MockService struct {
	mock.Mock
}

func (m *MockService) Register(ctx context.Context, s *domain.Staff) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockService) Create(ctx context.Context, actorID uint64, s *domain.Staff) error {
	return m.Called(ctx, actorID, s).Error(0)
}

func (m *MockService) Login(ctx context.Context, email, password string) (*domain.Staff, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Staff), args.Error(1)
}

func (m *MockService) GetStaffByID(ctx context.Context, id uint64) (*domain.Staff, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Staff), args.Error(1)
}

func (m *MockService) Logout(ctx context.Context, id uint64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockService) List(ctx context.Context, page, pageSize int) (*Page, error) {
	args := m.Called(ctx, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Page), args.Error(1)
}

func (m *MockService) ChangeRole(ctx context.Context, actorID, id uint64, role string) (*domain.Staff, error) {
	args := m.Called(ctx, actorID, id, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Staff), args.Error(1)
}

func (m *MockService) Delete(ctx context.Context, actorID, id uint64) error {
	return m.Called(ctx, actorID, id).Error(0)
}

var testTokens = auth.NewTokenManager("test-secret", 15*time.Minute, time.Hour)

func setupRouter(handler *Handler, identity *auth.Identity) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.ErrorHandler())
	if identity != nil {
		router.Use(func(c *gin.Context) {
			auth.SetIdentity(c, *identity)
			c.Next()
		})
	}

	router.POST("/api/auth/register", handler.Register)
	router.POST("/api/auth/login", handler.Login)
	router.POST("/api/auth/refresh", handler.RefreshToken)
	router.POST("/api/auth/logout", handler.Logout)
	router.GET("/api/auth/me", handler.Me)
	router.GET("/api/staff", handler.List)
	router.POST("/api/staff", handler.Create)
	router.PATCH("/api/staff/:id/role", handler.ChangeRole)
	router.DELETE("/api/staff/:id", handler.Delete)
	return router
}

func doJSON(router *gin.Engine, method, url string, payload any) *httptest.ResponseRecorder {
	var body bytes.Buffer
	if payload != nil {
		json.NewEncoder(&body).Encode(payload)
	}
	req := httptest.NewRequest(method, url, &body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRegister_Success(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService, testTokens, false), nil)

	mockService.On("Register", mock.Anything, mock.MatchedBy(func(s *domain.Staff) bool {
		return s.Name == "John Doe" && s.Email == "john@example.com" && s.Password == "password123"
	})).Return(nil).Run(func(args mock.Arguments) {
		s := args.Get(1).(*domain.Staff)
		s.ID = 1
		s.Role = domain.RoleAdmin
	})

	w := doJSON(router, http.MethodPost, "/api/auth/register", FormRegister{
		Name:     "John Doe",
		Email:    "john@example.com",
		Password: "password123",
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	var response struct {
		User domain.SafeStaff `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "admin", response.User.Role)
	assert.NotContains(t, w.Body.String(), "password")
	mockService.AssertExpectations(t)
}

func TestRegister_InvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		payload any
	}{
		{"missing fields", map[string]string{"name": "John"}},
		{"invalid email", FormRegister{Name: "John", Email: "invalid-email", Password: "password123"}},
		{"short password", FormRegister{Name: "John", Email: "john@example.com", Password: "123"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			router := setupRouter(NewHandler(mockService, testTokens, false), nil)

			w := doJSON(router, http.MethodPost, "/api/auth/register", tt.payload)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			mockService.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
		})
	}
}

func TestLogin_Success(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService, testTokens, true), nil)

	st := &domain.Staff{ID: 1, Name: "John Doe", Email: "john@example.com", Role: domain.RoleManager, TokenVersion: 2}
	mockService.On("Login", mock.Anything, "john@example.com", "password123").Return(st, nil)

	w := doJSON(router, http.MethodPost, "/api/auth/login", FormLogin{Email: "john@example.com", Password: "password123"})

	require.Equal(t, http.StatusOK, w.Code)
	var response struct {
		AccessToken string           `json:"access_token"`
		User        domain.SafeStaff `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

	claims, err := testTokens.Verify(response.AccessToken, auth.KindAccess)
	require.NoError(t, err)
	assert.Equal(t, "manager", claims.Role)
	assert.Equal(t, uint64(2), claims.TokenVersion)

	cookie := w.Result().Cookies()[0]
	assert.Equal(t, "refresh_token", cookie.Name)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
}

func TestLogin_Unauthorized(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService, testTokens, false), nil)

	mockService.On("Login", mock.Anything, "nobody@example.com", "password123").
		Return(nil, errors.Unauthorized("Invalid email or password", nil))

	w := doJSON(router, http.MethodPost, "/api/auth/login", FormLogin{Email: "nobody@example.com", Password: "password123"})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Invalid email or password"}`, w.Body.String())
}

func refreshRequest(router *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "refresh_token", Value: token})
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRefreshToken(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService, testTokens, false), nil)
	mockService.On("GetStaffByID", mock.Anything, uint64(1)).
		Return(&domain.Staff{ID: 1, Role: domain.RoleViewer, TokenVersion: 3}, nil)

	current, _ := testTokens.GenerateRefreshToken(1, 3)
	stale, _ := testTokens.GenerateRefreshToken(1, 2)
	access, _ := testTokens.GenerateAccessToken(1, domain.RoleViewer, 3)

	w := refreshRequest(router, current)
	require.Equal(t, http.StatusOK, w.Code)
	var response map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	_, err := testTokens.Verify(response["access_token"], auth.KindAccess)
	assert.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, refreshRequest(router, stale).Code)
	assert.Equal(t, http.StatusUnauthorized, refreshRequest(router, access).Code)
	assert.Equal(t, http.StatusUnauthorized, refreshRequest(router, "").Code)
}

func TestLogout_Success(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService, testTokens, false), &auth.Identity{ID: 4, Role: "viewer"})
	mockService.On("Logout", mock.Anything, uint64(4)).Return(nil)

	w := doJSON(router, http.MethodPost, "/api/auth/logout", nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	mockService.AssertExpectations(t)
}

func TestLogout_NoIdentity(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService, testTokens, false), nil)

	w := doJSON(router, http.MethodPost, "/api/auth/logout", nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	mockService.AssertNotCalled(t, "Logout", mock.Anything, mock.Anything)
}

func TestMe(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService, testTokens, false), &auth.Identity{ID: 1, Role: "admin"})
	mockService.On("GetStaffByID", mock.Anything, uint64(1)).
		Return(&domain.Staff{ID: 1, Name: "John Doe", Email: "john@example.com", Role: "admin"}, nil)

	w := doJSON(router, http.MethodGet, "/api/auth/me", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var response domain.SafeStaff
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "John Doe", response.Name)
}

func TestMe_NoIdentity(t *testing.T) {
	router := setupRouter(NewHandler(new(MockService), testTokens, false), nil)

	w := doJSON(router, http.MethodGet, "/api/auth/me", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandler_List(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService, testTokens, false), &auth.Identity{ID: 1, Role: "admin"})
	mockService.On("List", mock.Anything, 2, 5).Return(&Page{Data: []domain.SafeStaff{{ID: 1}}}, nil)

	w := doJSON(router, http.MethodGet, "/api/staff?page=2&per_page=5", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestHandler_Create(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService, testTokens, false), &auth.Identity{ID: 1, Role: "admin"})
	mockService.On("Create", mock.Anything, uint64(1), mock.MatchedBy(func(s *domain.Staff) bool {
		return s.Role == "manager" && s.Email == "m@example.com"
	})).Return(nil)

	w := doJSON(router, http.MethodPost, "/api/staff", map[string]string{
		"name": "M", "email": "m@example.com", "password": "password123", "role": "manager",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(router, http.MethodPost, "/api/staff", map[string]string{
		"name": "M", "email": "m@example.com", "password": "password123", "role": "deleted",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertNumberOfCalls(t, "Create", 1)
}

func TestHandler_ChangeRole(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService, testTokens, false), &auth.Identity{ID: 1, Role: "admin"})
	mockService.On("ChangeRole", mock.Anything, uint64(1), uint64(5), "manager").
		Return(&domain.Staff{ID: 5, Role: "manager"}, nil)

	w := doJSON(router, http.MethodPatch, "/api/staff/5/role", FormRole{Role: "manager"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodPatch, "/api/staff/abc/role", FormRole{Role: "manager"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_Delete(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService, testTokens, false), &auth.Identity{ID: 1, Role: "admin"})
	mockService.On("Delete", mock.Anything, uint64(1), uint64(5)).Return(nil)
	mockService.On("Delete", mock.Anything, uint64(1), uint64(6)).Return(errors.NotFound("Staff not found", nil))

	assert.Equal(t, http.StatusNoContent, doJSON(router, http.MethodDelete, "/api/staff/5", nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(router, http.MethodDelete, "/api/staff/6", nil).Code)
}
