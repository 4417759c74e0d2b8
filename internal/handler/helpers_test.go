package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/proposal-review-api/internal/config"
	"github.com/noah-isme/proposal-review-api/internal/database"
	"github.com/noah-isme/proposal-review-api/internal/handler"
	"github.com/noah-isme/proposal-review-api/internal/middleware"
	"github.com/noah-isme/proposal-review-api/internal/models"
	"github.com/noah-isme/proposal-review-api/internal/repository"
	"github.com/noah-isme/proposal-review-api/internal/router"
	"github.com/noah-isme/proposal-review-api/internal/service"
	"github.com/noah-isme/proposal-review-api/internal/utils"
	"github.com/noah-isme/proposal-review-api/pkg/pdf"
	"github.com/noah-isme/proposal-review-api/pkg/scoring"
)

const testUserHeader = "X-Test-User"

var regNumbers atomic.Int64

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
	Details json.RawMessage `json:"details"`
}

type fixedScorer struct {
	value float64
}

func (s fixedScorer) Score(context.Context, scoring.Request) (float64, error) {
	return s.value, nil
}

type pdfRenderer struct{}

func (pdfRenderer) Render(context.Context, pdf.Document) ([]byte, error) {
	return []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n"), nil
}

type memoryUploader struct {
	names []string
}

func (u *memoryUploader) Upload(_ context.Context, name string, reader io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return "", err
	}
	u.names = append(u.names, name)
	return "https://cdn.test/" + name, nil
}

// testAPI is the full HTTP surface over a private sqlite database.
type testAPI struct {
	app      *fiber.App
	db       *gorm.DB
	uploader *memoryUploader
}

type apiOptions struct {
	scorer      scoring.Scorer
	seedEnabled bool
	seedToken   string
}

func newTestAPI(t *testing.T, opts apiOptions) *testAPI {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	users := repository.NewUserRepository(db)
	assignments := repository.NewSupervisorAssignmentRepository(db)
	submissions := repository.NewSubmissionRepository(db)
	policies := repository.NewSimilarityPolicyRepository(db)

	activity := service.NewActivityService(repository.NewActivityLogRepository(db), logger)
	notifications := service.NewNotificationService(repository.NewNotificationRepository(db), validate, logger)
	notifier := service.NewWorkflowNotifier(notifications, logger)

	policyService := service.NewSimilarityPolicyService(policies, nil, time.Minute, validate, activity, logger)
	accountService := service.NewAccountService(users, assignments, validate, activity, notifier, logger)
	assignmentService := service.NewAssignmentService(users, assignments, validate, activity, logger)
	submissionService := service.NewSubmissionService(submissions, assignments, policyService, opts.scorer, validate, notifier, logger, service.SubmissionOptions{HighSimilarityAlert: 70})
	reviewService := service.NewReviewService(submissions, assignments, validate, activity, notifier, logger, 70)
	uploader := &memoryUploader{}
	documentService := service.NewDocumentService(submissions, assignments, pdfRenderer{}, uploader, activity, logger)
	exportService := service.NewExportService(submissions, assignments, logger)
	dashboardService := service.NewDashboardService(users, assignments, submissions, nil, time.Second, logger)
	seedService := service.NewSeedService(users, assignments, policies, validate, opts.seedEnabled, opts.seedToken, logger)

	app := fiber.New()
	router.Register(app, config.Config{AppName: "Proposal Review", AppEnv: "test", RateLimitMax: 1000, RateLimitWindow: time.Minute}, router.Dependencies{
		AccountHandler:      handler.NewAccountHandler(accountService, logger),
		AssignmentHandler:   handler.NewAssignmentHandler(assignmentService, logger),
		SubmissionHandler:   handler.NewSubmissionHandler(submissionService, logger),
		ReviewHandler:       handler.NewReviewHandler(reviewService, logger),
		DocumentHandler:     handler.NewDocumentHandler(documentService, exportService, logger),
		PolicyHandler:       handler.NewPolicyHandler(policyService, logger),
		ActivityHandler:     handler.NewActivityHandler(activity, logger),
		DashboardHandler:    handler.NewDashboardHandler(dashboardService, logger),
		NotificationHandler: handler.NewNotificationHandler(notifications, logger, time.Second),
		SeedHandler:         handler.NewSeedHandler(seedService, logger),
		JWTMiddleware:       headerIdentity,
		IdentityMiddleware:  middleware.RequireApprovedIdentity(accountService),
	})

	return &testAPI{app: app, db: db, uploader: uploader}
}

// headerIdentity stands in for the JWT middleware: the caller's id comes from a plain header.
func headerIdentity(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Get(testUserHeader), 10, 64)
	if err != nil || id == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "missing token")
	}
	c.Locals("user_id", uint(id))
	return c.Next()
}

func (a *testAPI) user(t *testing.T, name, role string) models.User {
	t.Helper()
	user := models.User{
		Name:       name,
		Email:      fmt.Sprintf("%s-%s@uni.test", name, uuid.NewString()[:8]),
		Role:       role,
		IsApproved: true,
	}
	if role == models.RoleStudent {
		reg := fmt.Sprintf("%06d", 200000+regNumbers.Add(1))
		user.RegNumber = &reg
	}
	require.NoError(t, a.db.Create(&user).Error)
	return user
}

func (a *testAPI) assign(t *testing.T, admin, student, supervisor models.User) {
	t.Helper()
	resp := a.do(t, &admin, http.MethodPost, "/api/v1/admin/assignments", map[string]uint{
		"student_id":    student.ID,
		"supervisor_id": supervisor.ID,
	})
	require.Contains(t, []int{fiber.StatusCreated, fiber.StatusOK}, resp.StatusCode)
}

func (a *testAPI) do(t *testing.T, as *models.User, method, path string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if as != nil {
		req.Header.Set(testUserHeader, strconv.FormatUint(uint64(as.ID), 10))
	}

	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

func decodeAPI(t *testing.T, resp *http.Response) apiResponse {
	t.Helper()
	var body apiResponse
	decodeResponse(t, resp, &body)
	return body
}

func decodeData(t *testing.T, resp *http.Response, target interface{}) apiResponse {
	t.Helper()
	body := decodeAPI(t, resp)
	require.NoError(t, json.Unmarshal(body.Data, target), "message: %s", body.Message)
	return body
}

func proposalBody(proposalType, title string) map[string]string {
	return map[string]string{
		"proposal_type":  proposalType,
		"proposed_title": title,
		"background":     "Crop yields vary. Sensors are cheap! Can we predict harvests?",
		"aim":            "Predict maize yield from soil sensors.",
	}
}
