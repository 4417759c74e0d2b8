package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/proposal-review-api/internal/database"
	"github.com/noah-isme/proposal-review-api/internal/models"
	"github.com/noah-isme/proposal-review-api/internal/repository"
	"github.com/noah-isme/proposal-review-api/pkg/pdf"
	"github.com/noah-isme/proposal-review-api/pkg/scoring"
)

var regNumbers = func() *atomic.Int64 {
	counter := &atomic.Int64{}
	counter.Store(100000)
	return counter
}()

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	return db
}

// workflowEnv wires the real repositories over one sqlite database.
type workflowEnv struct {
	db          *gorm.DB
	users       repository.UserRepository
	assignments repository.SupervisorAssignmentRepository
	submissions repository.SubmissionRepository
	policies    repository.SimilarityPolicyRepository
	activity    *memoryActivityRepo
	notifier    *recordingNotifier
}

func newWorkflowEnv(t *testing.T) *workflowEnv {
	t.Helper()
	db := setupServiceDB(t)
	return &workflowEnv{
		db:          db,
		users:       repository.NewUserRepository(db),
		assignments: repository.NewSupervisorAssignmentRepository(db),
		submissions: repository.NewSubmissionRepository(db),
		policies:    repository.NewSimilarityPolicyRepository(db),
		activity:    &memoryActivityRepo{},
		notifier:    &recordingNotifier{},
	}
}

func (e *workflowEnv) activityService() ActivityService {
	return NewActivityService(e.activity, testLogger())
}

func (e *workflowEnv) policyService() SimilarityPolicyService {
	return NewSimilarityPolicyService(e.policies, nil, 0, testValidator(), e.activityService(), testLogger())
}

func (e *workflowEnv) submissionService(scorer scoring.Scorer) SubmissionService {
	return NewSubmissionService(e.submissions, e.assignments, e.policyService(), scorer, testValidator(), e.notifier, testLogger(), SubmissionOptions{})
}

func (e *workflowEnv) reviewService() ReviewService {
	return NewReviewService(e.submissions, e.assignments, testValidator(), e.activityService(), e.notifier, testLogger(), 0)
}

func (e *workflowEnv) user(t *testing.T, name, role string) Actor {
	t.Helper()
	user := models.User{
		Name:       name,
		Email:      fmt.Sprintf("%s-%s@uni.test", name, uuid.NewString()[:8]),
		Role:       role,
		IsApproved: true,
	}
	if role == models.RoleStudent {
		reg := fmt.Sprintf("%06d", regNumbers.Add(1))
		user.RegNumber = &reg
	}
	require.NoError(t, e.db.Create(&user).Error)
	return Actor{ID: user.ID, Role: role}
}

func (e *workflowEnv) assign(t *testing.T, student, supervisor Actor) {
	t.Helper()
	_, err := e.assignments.Assign(context.Background(), &models.SupervisorAssignment{
		StudentID:    student.ID,
		SupervisorID: supervisor.ID,
		AssignedBy:   1,
	})
	require.NoError(t, err)
}

type fixedScorer struct {
	value float64
	err   error
	calls int
}

func (f *fixedScorer) Score(ctx context.Context, req scoring.Request) (float64, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.value, nil
}

type recordedNotification struct {
	UserID  uint
	Kind    string
	Message string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []recordedNotification
}

func (n *recordingNotifier) Notify(ctx context.Context, userID uint, kind, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, recordedNotification{UserID: userID, Kind: kind, Message: message})
}

func (n *recordingNotifier) kinds(userID uint) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var kinds []string
	for _, item := range n.sent {
		if item.UserID == userID {
			kinds = append(kinds, item.Kind)
		}
	}
	return kinds
}

type stubRenderer struct {
	docs []pdf.Document
	err  error
	data []byte
}

func (r *stubRenderer) Render(ctx context.Context, doc pdf.Document) ([]byte, error) {
	r.docs = append(r.docs, doc)
	if r.err != nil {
		return nil, r.err
	}
	if r.data != nil {
		return r.data, nil
	}
	return []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n"), nil
}

type stubUploader struct {
	names []string
	sizes []int
}

func (u *stubUploader) Upload(ctx context.Context, name string, reader io.Reader) (string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	u.names = append(u.names, name)
	u.sizes = append(u.sizes, len(data))
	return "https://cdn.test/" + name, nil
}
