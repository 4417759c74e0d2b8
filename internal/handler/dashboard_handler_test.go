package handler_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/proposal-review-api/internal/dto"
	"github.com/noah-isme/proposal-review-api/internal/models"
)

func TestDashboardHandler(t *testing.T) {
	api := newTestAPI(t, apiOptions{})
	admin := api.user(t, "root", models.RoleAdmin)
	student := api.user(t, "ada", models.RoleStudent)

	resp := api.do(t, &student, http.MethodPost, "/api/v1/submissions", proposalBody("Thesis", "Yield forecasting"))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = api.do(t, &admin, http.MethodGet, "/api/v1/dashboard", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var dashboard dto.DashboardResponse
	body := decodeData(t, resp, &dashboard)
	require.Equal(t, models.RoleAdmin, dashboard.Role)
	require.Equal(t, 1, dashboard.Summary.Total)
	require.Equal(t, 1, dashboard.Summary.Bands.Unscored)
	require.JSONEq(t, `{"cache_hit":false}`, string(body.Meta))
}

func TestNotificationHandlerInbox(t *testing.T) {
	api := newTestAPI(t, apiOptions{})
	admin := api.user(t, "root", models.RoleAdmin)
	student := api.user(t, "ada", models.RoleStudent)
	other := api.user(t, "grace", models.RoleStudent)

	resp := api.do(t, &student, http.MethodPost, "/api/v1/submissions", proposalBody("Seminar", "Soil sensing"))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var created dto.SubmissionView
	decodeData(t, resp, &created)

	resp = api.do(t, &admin, http.MethodPost, fmt.Sprintf("/api/v1/admin/submissions/%d/finalize", created.ID), dto.DecisionRequest{Decision: models.DecisionApproved})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = api.do(t, &student, http.MethodGet, "/api/v1/notifications", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var inbox []dto.NotificationResponse
	decodeData(t, resp, &inbox)
	require.NotEmpty(t, inbox)

	var final *dto.NotificationResponse
	for i := range inbox {
		if inbox[i].Type == dto.NotificationFinalDecision {
			final = &inbox[i]
		}
	}
	require.NotNil(t, final)
	require.Equal(t, `Your proposal "Soil sensing" was approved`, final.Message)

	resp = api.do(t, &other, http.MethodPatch, fmt.Sprintf("/api/v1/notifications/%d/read", final.ID), nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = api.do(t, &student, http.MethodPatch, fmt.Sprintf("/api/v1/notifications/%d/read", final.ID), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = api.do(t, &student, http.MethodGet, "/api/v1/notifications/unread-count", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var count struct {
		Unread int64 `json:"unread"`
	}
	decodeData(t, resp, &count)
	require.Equal(t, int64(len(inbox)-1), count.Unread)

	resp = api.do(t, &student, http.MethodGet, "/api/v1/notifications?unread=true", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var unread []dto.NotificationResponse
	decodeData(t, resp, &unread)
	require.Len(t, unread, len(inbox)-1)

	resp = api.do(t, &student, http.MethodGet, "/api/v1/notifications?unread=maybe", nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = api.do(t, &student, http.MethodPatch, "/api/v1/notifications/read-all", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var readAll dto.NotificationReadAllResponse
	decodeData(t, resp, &readAll)
	require.Equal(t, int64(len(inbox)-1), readAll.Updated)

	resp = api.do(t, &student, http.MethodGet, "/api/v1/notifications/ws", nil)
	require.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}
