package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"chatlink/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFriendRequestAndAccept(t *testing.T) {
	app := newTestApp(t)
	aliceID, aliceToken := app.signup(t, "alice")
	bobID, bobToken := app.signup(t, "bob")

	rec := app.doJSON(t, http.MethodPost, "/api/v1/users/"+bobID+"/request", nil, aliceToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var edge models.Friend
	require.NoError(t, app.db.Where("user_id = ? AND friend_id = ?", aliceID, bobID).First(&edge).Error)
	assert.Equal(t, models.StatusPending, edge.Status)

	// Bob accepts Alice's request.
	rec = app.doJSON(t, http.MethodPost, "/api/v1/users/"+aliceID+"/accept", nil, bobToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Use fresh structs: First on a struct with populated primary keys adds
	// them as extra query conditions.
	var forward, reverse models.Friend
	require.NoError(t, app.db.Where("user_id = ? AND friend_id = ?", aliceID, bobID).First(&forward).Error)
	assert.Equal(t, models.StatusAccepted, forward.Status)
	require.NoError(t, app.db.Where("user_id = ? AND friend_id = ?", bobID, aliceID).First(&reverse).Error)
	assert.Equal(t, models.StatusAccepted, reverse.Status)
}

func TestFriendRequestToSelf(t *testing.T) {
	app := newTestApp(t)
	aliceID, aliceToken := app.signup(t, "alice")

	rec := app.doJSON(t, http.MethodPost, "/api/v1/users/"+aliceID+"/request", nil, aliceToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFriendRequestUnknownTarget(t *testing.T) {
	app := newTestApp(t)
	_, aliceToken := app.signup(t, "alice")

	rec := app.doJSON(t, http.MethodPost, "/api/v1/users/no-such-user/request", nil, aliceToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFriendAcceptUnknownRequester(t *testing.T) {
	app := newTestApp(t)
	_, aliceToken := app.signup(t, "alice")

	rec := app.doJSON(t, http.MethodPost, "/api/v1/users/no-such-user/accept", nil, aliceToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var count int64
	require.NoError(t, app.db.Model(&models.Friend{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestFriendRequestRequiresAuth(t *testing.T) {
	app := newTestApp(t)
	bobID, _ := app.signup(t, "bob")

	rec := app.doJSON(t, http.MethodPost, "/api/v1/users/"+bobID+"/request", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetFriendsListsCounterparts(t *testing.T) {
	app := newTestApp(t)
	aliceID, aliceToken := app.signup(t, "alice")
	bobID, bobToken := app.signup(t, "bob")
	carolID, _ := app.signup(t, "carol")

	rec := app.doJSON(t, http.MethodPost, "/api/v1/users/"+bobID+"/request", nil, aliceToken)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = app.doJSON(t, http.MethodPost, "/api/v1/users/"+carolID+"/request", nil, aliceToken)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = app.doJSON(t, http.MethodPost, "/api/v1/users/"+aliceID+"/accept", nil, bobToken)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.doJSON(t, http.MethodGet, "/api/v1/users/me/friends?status=accepted", nil, aliceToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var relations []RelationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &relations))
	require.Len(t, relations, 2, "accepted friendship shows up as both edges")
	for _, r := range relations {
		assert.Equal(t, bobID, r.UserID)
		assert.Equal(t, "bob", r.Username)
		assert.Equal(t, models.StatusAccepted, r.Status)
	}

	rec = app.doJSON(t, http.MethodGet, "/api/v1/users/me/friends?status=pending&direction=outgoing", nil, aliceToken)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &relations))
	require.Len(t, relations, 1)
	assert.Equal(t, carolID, relations[0].UserID)
	assert.Equal(t, "outgoing", relations[0].Direction)
}
