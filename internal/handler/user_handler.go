package handler

import (
	"errors"
	"net/http"
	"strconv"

	"chatlink/backend/internal/models"
	"chatlink/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserHandler serves signup, login and profile endpoints against the
// credential store.
type UserHandler struct {
	db *gorm.DB
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{db: db}
}

// region --- DTOs ---

// SignupInput defines the structure for account creation.
type SignupInput struct {
	Username string `json:"username" binding:"required" example:"testuser"`
	Password string `json:"password" binding:"required,min=8" example:"password123"`
}

// LoginInput defines the structure for user login.
type LoginInput struct {
	Username string `json:"username" binding:"required" example:"testuser"`
	Password string `json:"password" binding:"required" example:"password123"`
}

// AuthResponse is returned on successful signup or login.
type AuthResponse struct {
	ID    string `json:"id" example:"4f9e1b2c-0b6a-4c33-9d20-7a1d6a2f9c11"`
	Token string `json:"token"`
}

// PublicUserResponse defines the structure for a user's public profile.
type PublicUserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// PrivateUserResponse defines the structure for the authenticated user's own profile.
type PrivateUserResponse struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	FriendsCount    int64  `json:"friends_count"`
	IncomingPending int64  `json:"incoming_pending"`
	OutgoingPending int64  `json:"outgoing_pending"`
}

// endregion

// region --- Auth Handlers ---

// Signup godoc
// @Summary      Create a new account
// @Description  Registers a new user and returns the assigned ID with an authentication token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body SignupInput true "Signup Info"
// @Success      201  {object}  AuthResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse "Username already exists"
// @Failure      500  {object}  ErrorResponse
// @Router       /auth/signup [post]
func (h *UserHandler) Signup(c *gin.Context) {
	var input SignupInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var existing models.User
	if err := h.db.Where("username = ?", input.Username).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Username exists. Did you mean to sign in?"})
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check username"})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	user := models.User{
		Username:     input.Username,
		PasswordHash: string(hashedPassword),
	}
	if err := h.db.Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	token, err := jwt.GenerateToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusCreated, AuthResponse{ID: user.ID, Token: token})
}

// Login godoc
// @Summary      Log in a user
// @Description  Authenticates a user with username and password, and returns a new token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body LoginInput true "Login Info"
// @Success      200  {object}  AuthResponse
// @Failure      400  {object}  ErrorResponse "Invalid input"
// @Failure      401  {object}  ErrorResponse "Wrong password"
// @Failure      404  {object}  ErrorResponse "Username not found"
// @Failure      500  {object}  ErrorResponse
// @Router       /auth/login [post]
func (h *UserHandler) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := h.db.Where("username = ?", input.Username).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Username not found"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Wrong password"})
		return
	}

	token, err := jwt.GenerateToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, AuthResponse{ID: user.ID, Token: token})
}

// endregion

// region --- User Handlers ---

// GetMe godoc
// @Summary      Get current user's info
// @Description  Retrieves the private profile for the currently authenticated user.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  PrivateUserResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /users/me [get]
func (h *UserHandler) GetMe(c *gin.Context) {
	viewerID, _ := c.Get("userID")

	var user models.User
	if err := h.db.First(&user, "id = ?", viewerID.(string)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	countEdges := func(column string, status models.FriendStatus, dest *int64) error {
		return h.db.Model(&models.Friend{}).
			Where(column+" = ? AND status = ?", user.ID, status).
			Count(dest).Error
	}

	var friendsCount, incomingPending, outgoingPending int64
	err := countEdges("user_id", models.StatusAccepted, &friendsCount)
	if err == nil {
		err = countEdges("friend_id", models.StatusPending, &incomingPending)
	}
	if err == nil {
		err = countEdges("user_id", models.StatusPending, &outgoingPending)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count relations"})
		return
	}

	c.JSON(http.StatusOK, PrivateUserResponse{
		ID:              user.ID,
		Username:        user.Username,
		FriendsCount:    friendsCount,
		IncomingPending: incomingPending,
		OutgoingPending: outgoingPending,
	})
}

// SearchUsers godoc
// @Summary      Search for users
// @Description  Searches for users by username with pagination.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        q     query     string  false  "Search query for username"
// @Param        page  query     int     false  "Page number" default(1)
// @Param        limit query     int     false  "Items per page" default(10)
// @Success      200   {object}  PaginatedResponse[PublicUserResponse]
// @Failure      401   {object}  ErrorResponse
// @Failure      500   {object}  ErrorResponse
// @Router       /users [get]
func (h *UserHandler) SearchUsers(c *gin.Context) {
	viewerID, _ := c.Get("userID")
	searchQuery := c.Query("q")

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100 // Max limit
	}

	query := h.db.Model(&models.User{}).Where("id <> ?", viewerID.(string))
	if searchQuery != "" {
		query = query.Where("username LIKE ?", "%"+searchQuery+"%")
	}

	result, err := Paginate[models.User](query, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve users"})
		return
	}

	users := make([]PublicUserResponse, 0, len(result.Data))
	for _, u := range result.Data {
		users = append(users, PublicUserResponse{ID: u.ID, Username: u.Username})
	}

	c.JSON(http.StatusOK, PaginatedResponse[PublicUserResponse]{
		Data: users,
		Meta: result.Meta,
	})
}

// endregion
