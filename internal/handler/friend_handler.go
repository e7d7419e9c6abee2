package handler

import (
	"net/http"

	"chatlink/backend/internal/friends"
	"chatlink/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// FriendHandler serves the friend-request endpoints on top of the
// relationship service.
type FriendHandler struct {
	friends *friends.Service
}

// NewFriendHandler creates a FriendHandler.
func NewFriendHandler(svc *friends.Service) *FriendHandler {
	return &FriendHandler{friends: svc}
}

// RelationResponse describes one of the viewer's relationships.
type RelationResponse struct {
	UserID    string              `json:"user_id"`
	Username  string              `json:"username,omitempty"`
	Status    models.FriendStatus `json:"status"`
	Direction string              `json:"direction"`
}

// SendRequest godoc
// @Summary      Send friend request
// @Description  Sends a friend request to another user. Repeating an already sent request is a no-op.
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Target User ID"
// @Success      200  {object}  map[string]string "{"message": "Friend request sent!"}"
// @Failure      400  {object}  ErrorResponse "Request to yourself"
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse "Target user not found"
// @Failure      500  {object}  ErrorResponse
// @Router       /users/{id}/request [post]
func (h *FriendHandler) SendRequest(c *gin.Context) {
	viewerID, _ := c.Get("userID")
	targetUserID := c.Param("id")

	if err := h.friends.Request(c.Request.Context(), viewerID.(string), targetUserID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Friend request sent!"})
}

// AcceptRequest godoc
// @Summary      Accept friend request
// @Description  Accepts a friend request from another user, establishing the friendship in both directions.
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Requesting User ID"
// @Success      200  {object}  map[string]string "{"message": "Friend request accepted!"}"
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse "Requesting user not found"
// @Failure      500  {object}  ErrorResponse
// @Router       /users/{id}/accept [post]
func (h *FriendHandler) AcceptRequest(c *gin.Context) {
	viewerID, _ := c.Get("userID")
	requestingUserID := c.Param("id")

	if err := h.friends.Accept(c.Request.Context(), requestingUserID, viewerID.(string)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Friend request accepted!"})
}

// GetFriends godoc
// @Summary      Get the viewer's relations
// @Description  Lists the viewer's friend edges, optionally filtered by status and direction.
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        status    query     string  false  "Filter by status (pending, accepted)"
// @Param        direction query     string  false  "Filter by direction (incoming, outgoing)"
// @Success      200       {array}   RelationResponse
// @Failure      401       {object}  ErrorResponse
// @Failure      500       {object}  ErrorResponse
// @Router       /users/me/friends [get]
func (h *FriendHandler) GetFriends(c *gin.Context) {
	viewerID, _ := c.Get("userID")
	status := models.FriendStatus(c.Query("status"))
	direction := c.Query("direction")

	relations, err := h.friends.Relations(c.Request.Context(), viewerID.(string), status, direction)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]RelationResponse, 0, len(relations))
	for _, r := range relations {
		// Report the counterpart of the edge, not the viewer.
		if r.UserID == viewerID.(string) {
			responses = append(responses, RelationResponse{
				UserID:    r.FriendID,
				Username:  r.FriendUser.Username,
				Status:    r.Status,
				Direction: "outgoing",
			})
		} else {
			responses = append(responses, RelationResponse{
				UserID:    r.UserID,
				Username:  r.User.Username,
				Status:    r.Status,
				Direction: "incoming",
			})
		}
	}

	c.JSON(http.StatusOK, responses)
}
