package rfp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/customeros/rfpstack/config"
	"github.com/customeros/rfpstack/dto"
	"github.com/customeros/rfpstack/internal/models"
	"github.com/customeros/rfpstack/internal/repository"
	"github.com/customeros/rfpstack/internal/testutil"
	"github.com/customeros/rfpstack/services/events"
	"github.com/customeros/rfpstack/services/timeline"
)

type mockDrafter struct {
	mock.Mock
}

func (m *mockDrafter) DraftRfp(ctx context.Context, request dto.DraftRequest) *dto.DraftResult {
	args := m.Called(ctx, request)
	return args.Get(0).(*dto.DraftResult)
}

type mockOracle struct {
	mock.Mock
}

func (m *mockOracle) DraftRfp(ctx context.Context, request dto.DraftRequest) (*dto.DraftResult, error) {
	args := m.Called(ctx, request)
	result, _ := args.Get(0).(*dto.DraftResult)
	return result, args.Error(1)
}

func (m *mockOracle) ExtractProposal(ctx context.Context, request dto.ExtractionRequest) (*dto.ExtractionResult, error) {
	args := m.Called(ctx, request)
	result, _ := args.Get(0).(*dto.ExtractionResult)
	return result, args.Error(1)
}

func (m *mockOracle) CompareProposals(ctx context.Context, request dto.ComparisonRequest) (*dto.ComparisonResult, error) {
	args := m.Called(ctx, request)
	result, _ := args.Get(0).(*dto.ComparisonResult)
	return result, args.Error(1)
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Send(ctx context.Context, to, subject, body string) (string, error) {
	args := m.Called(ctx, to, subject, body)
	return args.String(0), args.Error(1)
}

type mockPoller struct {
	mock.Mock
}

func (m *mockPoller) Poll(ctx context.Context) (*dto.PollResult, error) {
	args := m.Called(ctx)
	result, _ := args.Get(0).(*dto.PollResult)
	return result, args.Error(1)
}

type testEnv struct {
	service *Service
	repos   *repository.Repositories
	drafter *mockDrafter
	oracle  *mockOracle
	mailer  *mockMailer
	poller  *mockPoller
}

func newTestEnv(t *testing.T, cfg *config.IngestionConfig) *testEnv {
	t.Helper()
	db := testutil.NewSQLiteDB(t, repository.AutoMigrate)
	repos := repository.InitRepositories(db)
	log := testutil.NewLogger()

	env := &testEnv{
		repos:   repos,
		drafter: new(mockDrafter),
		oracle:  new(mockOracle),
		mailer:  new(mockMailer),
		poller:  new(mockPoller),
	}
	env.service = NewService(ServiceDeps{
		Repos:     repos,
		Timeline:  timeline.NewChatTimeline(repos.ChatRepository),
		Drafter:   env.drafter,
		Oracle:    env.oracle,
		Mailer:    env.mailer,
		Poller:    env.poller,
		Publisher: events.NewNoopPublisher(log),
		Config:    cfg,
		Log:       log,
	})
	return env
}

func (e *testEnv) vendor(t *testing.T, name, email string) models.Vendor {
	t.Helper()
	vendor := models.Vendor{Name: name, Email: email}
	require.NoError(t, e.repos.VendorRepository.Create(context.Background(), &vendor))
	return vendor
}

// draft stores a DRAFT rfp owned by a new session.
func (e *testEnv) draft(t *testing.T) (*models.ChatSession, *models.RFP) {
	t.Helper()
	ctx := context.Background()
	session, err := e.repos.ChatRepository.CreateSession(ctx)
	require.NoError(t, err)
	rfp := &models.RFP{Title: "20 laptops", Description: "16GB RAM, delivery within 30 days"}
	require.NoError(t, e.repos.RfpRepository.CreateForSession(ctx, session.ID, rfp))
	return session, rfp
}

// sent stores a SENT rfp with the given invited vendors.
func (e *testEnv) sent(t *testing.T, vendors ...models.Vendor) (*models.ChatSession, *models.RFP) {
	t.Helper()
	session, rfp := e.draft(t)
	ids := make([]string, 0, len(vendors))
	for _, vendor := range vendors {
		ids = append(ids, vendor.ID)
	}
	rfp, _, err := e.repos.RfpRepository.Finalize(context.Background(), rfp.ID, ids, dto.RfpOverrides{})
	require.NoError(t, err)
	return session, rfp
}

func (e *testEnv) messages(t *testing.T, sessionID string) []models.ChatMessage {
	t.Helper()
	messages, err := e.repos.ChatRepository.ListMessages(context.Background(), sessionID)
	require.NoError(t, err)
	return messages
}
