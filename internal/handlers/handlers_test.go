package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/dealdrop/backend/internal/apperrors"
	"github.com/dealdrop/backend/internal/testutil"
	"github.com/dealdrop/backend/internal/votes"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func render(err error) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondError(c, err)
	return w
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"unauthenticated", apperrors.Unauthenticated("no token"), http.StatusUnauthorized, apperrors.ErrUnauthenticated},
		{"not found", apperrors.NotFound("deal"), http.StatusNotFound, apperrors.ErrNotFound},
		{"removed", apperrors.Removed("deal"), http.StatusGone, apperrors.ErrRemoved},
		{"conflict", apperrors.Conflict("busy", errors.New("40001")), http.StatusConflict, apperrors.ErrTransactionConflict},
		{"untyped", errors.New("boom"), http.StatusInternalServerError, apperrors.ErrDatabase},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := render(tt.err)
			testutil.AssertStatus(t, w, tt.status)

			var body map[string]any
			testutil.AssertJSON(t, w, &body)
			assert.Equal(t, tt.code, body["error"])
		})
	}
}

func TestRespondErrorHidesStoreDetails(t *testing.T) {
	w := render(apperrors.Database("failed to fetch deals", errors.New("pq: password authentication failed")))

	assert.NotContains(t, w.Body.String(), "password")
	assert.Contains(t, w.Body.String(), "failed to fetch deals")
}

func TestRespondErrorMarksConflictRetryable(t *testing.T) {
	var body map[string]any
	testutil.AssertJSON(t, render(apperrors.Conflict("busy", nil)), &body)
	assert.Equal(t, true, body["retryable"])

	body = nil
	testutil.AssertJSON(t, render(apperrors.NotFound("deal")), &body)
	assert.NotContains(t, body, "retryable")
}

func TestVoteMap(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	got := voteMap(map[uuid.UUID]votes.Direction{a: votes.Up, b: votes.Down})
	assert.Equal(t, map[string]votes.Direction{a.String(): votes.Up, b.String(): votes.Down}, got)
	assert.NotNil(t, voteMap(nil))
}
