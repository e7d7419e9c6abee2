package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"chatlink/backend/internal/auth"
	"chatlink/backend/internal/config"
	"chatlink/backend/internal/database"
	"chatlink/backend/internal/friends"
	"chatlink/backend/internal/registry"
	"chatlink/backend/internal/router"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testApp wires the same dependency graph as cmd/server, on an in-memory
// store, so handler tests exercise the real routes end to end.
type testApp struct {
	engine   *gin.Engine
	db       *gorm.DB
	registry *registry.Registry
	friends  *friends.Service
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	gin.SetMode(gin.TestMode)
	config.AppConfig = &config.Config{JWTSecret: "handler-test-secret"}

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	reg := registry.New()
	t.Cleanup(reg.Close)

	friendSvc := friends.NewService(db)
	msgRouter := router.New(reg, friendSvc)

	userHandler := NewUserHandler(db)
	friendHandler := NewFriendHandler(friendSvc)
	wsHandler := NewWSHandler(db, reg, msgRouter)

	engine := gin.New()
	engine.GET("/ws", wsHandler.Connect)

	apiV1 := engine.Group("/api/v1")
	{
		authRoutes := apiV1.Group("/auth")
		{
			authRoutes.POST("/signup", userHandler.Signup)
			authRoutes.POST("/login", userHandler.Login)
		}

		userRoutes := apiV1.Group("/users")
		userRoutes.Use(auth.AuthMiddleware())
		{
			userRoutes.GET("", userHandler.SearchUsers)
			userRoutes.GET("/me", userHandler.GetMe)
			userRoutes.GET("/me/friends", friendHandler.GetFriends)
			userRoutes.POST("/:id/request", friendHandler.SendRequest)
			userRoutes.POST("/:id/accept", friendHandler.AcceptRequest)
		}
	}

	return &testApp{
		engine:   engine,
		db:       db,
		registry: reg,
		friends:  friendSvc,
	}
}

// doJSON performs a request against the test app and returns the recorder.
// A non-empty token is sent as a Bearer header.
func (a *testApp) doJSON(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	a.engine.ServeHTTP(rec, req)
	return rec
}

// signup registers a user through the API and returns its id and token.
func (a *testApp) signup(t *testing.T, username string) (string, string) {
	t.Helper()

	rec := a.doJSON(t, http.MethodPost, "/api/v1/auth/signup", SignupInput{
		Username: username,
		Password: "password123",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ID)
	require.NotEmpty(t, resp.Token)
	return resp.ID, resp.Token
}
