package ingestion

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.openly.dev/pointy"

	"github.com/customeros/rfpstack/config"
	"github.com/customeros/rfpstack/dto"
	"github.com/customeros/rfpstack/interfaces"
	"github.com/customeros/rfpstack/internal/enum"
	errs "github.com/customeros/rfpstack/internal/errors"
	"github.com/customeros/rfpstack/internal/models"
	"github.com/customeros/rfpstack/internal/repository"
	"github.com/customeros/rfpstack/internal/testutil"
	"github.com/customeros/rfpstack/internal/tracking"
	"github.com/customeros/rfpstack/services/ai"
	"github.com/customeros/rfpstack/services/events"
	"github.com/customeros/rfpstack/services/storage"
	"github.com/customeros/rfpstack/services/timeline"
)

// fakeMailbox is an in-memory inbox.
type fakeMailbox struct {
	connectErr error
	session    *fakeSession
}

func (m *fakeMailbox) Connect(ctx context.Context) (interfaces.MailboxSession, error) {
	if m.connectErr != nil {
		return nil, m.connectErr
	}
	return m.session, nil
}

type fakeSession struct {
	messages  map[uint32][]byte
	fetchErrs map[uint32]error
	markErrs  map[uint32]error
	seen      map[uint32]bool
	flagged   map[uint32]bool
	closed    bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		messages:  map[uint32][]byte{},
		fetchErrs: map[uint32]error{},
		markErrs:  map[uint32]error{},
		seen:      map[uint32]bool{},
		flagged:   map[uint32]bool{},
	}
}

func (s *fakeSession) add(uid uint32, raw string) {
	s.messages[uid] = []byte(raw)
}

func (s *fakeSession) ListUnread(ctx context.Context) ([]uint32, error) {
	var uids []uint32
	for uid := range s.messages {
		if !s.seen[uid] {
			uids = append(uids, uid)
		}
	}
	return uids, nil
}

func (s *fakeSession) Fetch(ctx context.Context, uid uint32) (*dto.RawMessage, error) {
	if err := s.fetchErrs[uid]; err != nil {
		return nil, err
	}
	return &dto.RawMessage{UID: uid, Raw: s.messages[uid], Seen: s.seen[uid]}, nil
}

func (s *fakeSession) MarkProcessed(ctx context.Context, uid uint32) error {
	if err := s.markErrs[uid]; err != nil {
		return err
	}
	s.seen[uid] = true
	return nil
}

func (s *fakeSession) Flag(ctx context.Context, uid uint32) error {
	s.flagged[uid] = true
	return nil
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) ExtractProposal(ctx context.Context, request dto.ExtractionRequest) *dto.ExtractionResult {
	args := m.Called(ctx, request)
	return args.Get(0).(*dto.ExtractionResult)
}

type mockAttachmentExtractor struct {
	mock.Mock
}

func (m *mockAttachmentExtractor) ExtractText(ctx context.Context, data []byte) string {
	args := m.Called(ctx, data)
	return args.String(0)
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

type fixture struct {
	repos   *repository.Repositories
	session *models.ChatSession
	rfp     *models.RFP
	vendor  models.Vendor
	inbox   *fakeSession
	mailbox *fakeMailbox
}

// newFixture stores a SENT rfp with one invited vendor (R1/V1).
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db := testutil.NewSQLiteDB(t, repository.AutoMigrate)
	repos := repository.InitRepositories(db)

	vendor := models.Vendor{Name: "Acme Supplies", Email: "sales@acme.com"}
	require.NoError(t, repos.VendorRepository.Create(ctx, &vendor))

	session, err := repos.ChatRepository.CreateSession(ctx)
	require.NoError(t, err)
	rfp := &models.RFP{Title: "20 laptops", Description: "16GB RAM, delivery within 30 days"}
	require.NoError(t, repos.RfpRepository.CreateForSession(ctx, session.ID, rfp))
	rfp, _, err = repos.RfpRepository.Finalize(ctx, rfp.ID, []string{vendor.ID}, dto.RfpOverrides{})
	require.NoError(t, err)

	inbox := newFakeSession()
	return &fixture{
		repos:   repos,
		session: session,
		rfp:     rfp,
		vendor:  vendor,
		inbox:   inbox,
		mailbox: &fakeMailbox{session: inbox},
	}
}

func (f *fixture) poller(extractor interfaces.ProposalExtractor, attachments interfaces.AttachmentExtractor, cfg *config.IngestionConfig) *Poller {
	log := testutil.NewLogger()
	return NewPoller(PollerDeps{
		Mailbox:     f.mailbox,
		Repos:       f.repos,
		Extractor:   extractor,
		Attachments: attachments,
		Archive:     storage.NewAttachmentArchive(nil, log),
		Timeline:    timeline.NewChatTimeline(f.repos.ChatRepository),
		Publisher:   events.NewNoopPublisher(log),
		Config:      cfg,
		Log:         log,
	})
}

func (f *fixture) reply(from, subject, body string) string {
	return plainEmail(from, subject, body+"\n\n> "+tracking.Footer(f.rfp.ID, f.vendor.ID))
}

func plainEmail(from, subject, body string) string {
	return fmt.Sprintf("From: %s\r\nTo: rfp@buyer.com\r\nSubject: %s\r\nMessage-ID: <m1@acme.com>\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n", from, subject, body)
}

func (f *fixture) proposals(t *testing.T) []models.Proposal {
	proposals, err := f.repos.ProposalRepository.ListByRfp(context.Background(), f.rfp.ID)
	require.NoError(t, err)
	return proposals
}

func (f *fixture) messages(t *testing.T) []models.ChatMessage {
	messages, err := f.repos.ChatRepository.ListMessages(context.Background(), f.session.ID)
	require.NoError(t, err)
	return messages
}

func TestPoll_HappyPath(t *testing.T) {
	// Arrange
	f := newFixture(t)
	f.inbox.add(1, f.reply("Acme Sales <Sales@Acme.com>", "Re: 20 laptops", "We can do $1200 per unit, delivery in 14 days."))

	extractor := new(mockExtractor)
	extractor.On("ExtractProposal", mock.Anything, mock.MatchedBy(func(request dto.ExtractionRequest) bool {
		return request.Rfp.Title == "20 laptops" && request.AttachmentText == ""
	})).Return(&dto.ExtractionResult{
		Price:        pointy.Float64(24000),
		DeliveryDays: pointy.Int(14),
		Warranty:     pointy.String("2 years"),
		AiSummary:    pointy.String("Competitive offer"),
		AiScore:      0.8,
	})

	// Act
	result, err := f.poller(extractor, nil, nil).Poll(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count(enum.IngestionProcessed))
	require.Len(t, result.ProposalIds, 1)
	assert.True(t, f.inbox.seen[1])
	assert.True(t, f.inbox.closed)

	proposals := f.proposals(t)
	require.Len(t, proposals, 1)
	assert.Equal(t, f.vendor.ID, proposals[0].VendorID)
	assert.Equal(t, "24000", proposals[0].Price.Decimal.String())
	assert.Equal(t, 14, *proposals[0].DeliveryDays)
	assert.Equal(t, 0.8, proposals[0].AiScore)
	assert.Equal(t, "Re: 20 laptops", proposals[0].EmailSubject)

	rfp, err := f.repos.RfpRepository.GetByID(context.Background(), f.rfp.ID)
	require.NoError(t, err)
	assert.Equal(t, enum.RfpStatusInProgress, rfp.Status)

	messages := f.messages(t)
	require.Len(t, messages, 1)
	assert.Equal(t, enum.ChatRoleSystem, messages[0].Role)
	assert.Equal(t, "Got reply from: Acme Supplies", messages[0].Content)
	extractor.AssertExpectations(t)
}

func TestPoll_PdfAttachment(t *testing.T) {
	// Arrange
	f := newFixture(t)
	raw := "From: sales@acme.com\r\n" +
		"Subject: Quote\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/mixed; boundary=\"XYZ\"\r\n\r\n" +
		"--XYZ\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n\r\n" +
		"Please find our quote attached.\r\n" + tracking.Format(f.rfp.ID, f.vendor.ID) + "\r\n" +
		"--XYZ\r\n" +
		"Content-Type: application/pdf\r\n" +
		"Content-Disposition: attachment; filename=\"quote.pdf\"\r\n" +
		"Content-Transfer-Encoding: base64\r\n\r\n" +
		"JVBERi0xLjQK\r\n" +
		"--XYZ--\r\n"
	f.inbox.add(7, raw)

	attachments := new(mockAttachmentExtractor)
	attachments.On("ExtractText", mock.Anything, []byte("%PDF-1.4\n")).Return("Unit price 1100 USD")

	extractor := new(mockExtractor)
	extractor.On("ExtractProposal", mock.Anything, mock.MatchedBy(func(request dto.ExtractionRequest) bool {
		return request.AttachmentText == "\n\n--- Attachment: quote.pdf ---\nUnit price 1100 USD"
	})).Return(&dto.ExtractionResult{AiScore: 0.5})

	// Act
	result, err := f.poller(extractor, attachments, nil).Poll(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count(enum.IngestionProcessed))
	proposals := f.proposals(t)
	require.Len(t, proposals, 1)
	require.Len(t, proposals[0].Attachments, 1)
	assert.Equal(t, "quote.pdf", proposals[0].Attachments[0].Filename)
	assert.Empty(t, proposals[0].Attachments[0].StorageKey)
	attachments.AssertExpectations(t)
	extractor.AssertExpectations(t)
}

func TestPoll_ForeignMessage(t *testing.T) {
	// Arrange
	f := newFixture(t)
	f.inbox.add(1, plainEmail("newsletter@shop.com", "Weekly deals", "Nothing to see here"))
	extractor := new(mockExtractor)

	// Act
	result, err := f.poller(extractor, nil, nil).Poll(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count(enum.IngestionForeign))
	assert.True(t, f.inbox.seen[1])
	assert.Empty(t, f.proposals(t))
	assert.Empty(t, f.messages(t))
	extractor.AssertNotCalled(t, "ExtractProposal", mock.Anything, mock.Anything)
}

func TestPoll_UnknownReference(t *testing.T) {
	// Arrange
	f := newFixture(t)
	f.inbox.add(1, plainEmail("sales@acme.com", "Re: laptops", "Offer\n"+tracking.Format(f.rfp.ID, "missing-vendor")))
	f.inbox.add(2, plainEmail("sales@acme.com", "Re: laptops", "Offer\n"+tracking.Format("missing-rfp", f.vendor.ID)))
	extractor := new(mockExtractor)

	// Act
	result, err := f.poller(extractor, nil, nil).Poll(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, result.Count(enum.IngestionUnknownReference))
	assert.True(t, f.inbox.seen[1])
	assert.True(t, f.inbox.seen[2])
	assert.Empty(t, f.proposals(t))
	assert.Empty(t, f.messages(t))
}

func TestPoll_UninvitedVendor(t *testing.T) {
	// Arrange
	f := newFixture(t)
	other := models.Vendor{Name: "Other", Email: "other@vendor.com"}
	require.NoError(t, f.repos.VendorRepository.Create(context.Background(), &other))
	f.inbox.add(1, plainEmail("other@vendor.com", "Re", tracking.Format(f.rfp.ID, other.ID)))

	// Act
	result, err := f.poller(new(mockExtractor), nil, nil).Poll(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count(enum.IngestionUnknownReference))
	assert.Empty(t, f.proposals(t))
}

func TestPoll_Idempotent(t *testing.T) {
	// Arrange
	f := newFixture(t)
	f.inbox.add(1, f.reply("sales@acme.com", "First offer", "Price 1000"))
	f.inbox.add(2, f.reply("sales@acme.com", "Revised offer", "Price 900"))

	extractor := new(mockExtractor)
	extractor.On("ExtractProposal", mock.Anything, mock.MatchedBy(func(r dto.ExtractionRequest) bool {
		return strings.HasPrefix(r.EmailBody, "Price 1000")
	})).Return(&dto.ExtractionResult{Price: pointy.Float64(1000), Notes: pointy.String("first"), AiScore: 0.4}).Once()
	extractor.On("ExtractProposal", mock.Anything, mock.Anything).Return(&dto.ExtractionResult{Price: pointy.Float64(900), Notes: pointy.String("revised"), AiScore: 0.7})

	// Act
	result, err := f.poller(extractor, nil, nil).Poll(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, result.Count(enum.IngestionProcessed))
	require.Len(t, result.ProposalIds, 2)
	assert.Equal(t, result.ProposalIds[0], result.ProposalIds[1])

	proposals := f.proposals(t)
	require.Len(t, proposals, 1)
	assert.Equal(t, "First offer", proposals[0].EmailSubject)
	assert.Equal(t, "revised", *proposals[0].Notes)
	assert.Equal(t, "900", proposals[0].Price.Decimal.String())
	assert.Equal(t, 0.7, proposals[0].AiScore)
	assert.Len(t, f.messages(t), 2)
}

func TestPoll_SenderMismatch(t *testing.T) {
	t.Run("left unread by default", func(t *testing.T) {
		f := newFixture(t)
		f.inbox.add(1, f.reply("attacker@evil.com", "Re", "Cheap offer"))

		result, err := f.poller(new(mockExtractor), nil, nil).Poll(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 1, result.Count(enum.IngestionSenderMismatch))
		assert.False(t, f.inbox.seen[1])
		assert.Empty(t, f.proposals(t))
	})

	t.Run("marked processed when configured", func(t *testing.T) {
		f := newFixture(t)
		f.inbox.add(1, f.reply("attacker@evil.com", "Re", "Cheap offer"))

		result, err := f.poller(new(mockExtractor), nil, &config.IngestionConfig{MarkMismatchProcessed: true}).Poll(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 1, result.Count(enum.IngestionSenderMismatch))
		assert.True(t, f.inbox.seen[1])
		assert.Empty(t, f.proposals(t))
	})

	for name, from := range map[string]string{
		"vendor address as display name":     `"sales@acme.com" <x@evil.io>`,
		"vendor address in other local part": "attacker <notsales@acme.com>",
		"look-alike domain":                  "sales@acme.com.evil.io",
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			f.inbox.add(1, f.reply(from, "Re", "Cheap offer"))
			extractor := new(mockExtractor)

			result, err := f.poller(extractor, nil, nil).Poll(context.Background())

			require.NoError(t, err)
			assert.Equal(t, 1, result.Count(enum.IngestionSenderMismatch))
			assert.False(t, f.inbox.seen[1])
			assert.Empty(t, f.proposals(t))
			assert.Empty(t, f.messages(t))
			extractor.AssertNotCalled(t, "ExtractProposal", mock.Anything, mock.Anything)
		})
	}
}

func TestPoll_MarkProcessedFailure(t *testing.T) {
	// Arrange
	f := newFixture(t)
	f.inbox.add(1, f.reply("sales@acme.com", "Re: 20 laptops", "Price 1000"))
	f.inbox.markErrs[1] = errors.New("store flags: connection reset")

	extractor := new(mockExtractor)
	extractor.On("ExtractProposal", mock.Anything, mock.Anything).Return(&dto.ExtractionResult{Price: pointy.Float64(1000), AiScore: 0.5})
	poller := f.poller(extractor, nil, nil)

	// Act
	first, err := poller.Poll(context.Background())
	require.NoError(t, err)
	afterFailure := f.messages(t)

	delete(f.inbox.markErrs, 1)
	second, err := poller.Poll(context.Background())
	require.NoError(t, err)

	// Assert
	assert.Equal(t, 1, first.Count(enum.IngestionFailed))
	assert.Empty(t, afterFailure)
	assert.Equal(t, 1, second.Count(enum.IngestionProcessed))
	assert.True(t, f.inbox.seen[1])
	assert.Len(t, f.proposals(t), 1)

	messages := f.messages(t)
	require.Len(t, messages, 1)
	assert.Equal(t, "Got reply from: Acme Supplies", messages[0].Content)
}

func TestPoll_ConnectionFailure(t *testing.T) {
	// Arrange
	f := newFixture(t)
	f.mailbox.connectErr = errors.New("dial tcp: connection refused")

	// Act
	result, err := f.poller(new(mockExtractor), nil, nil).Poll(context.Background())

	// Assert
	assert.Nil(t, result)
	assert.ErrorIs(t, err, errs.ErrConnection)
	assert.Empty(t, f.proposals(t))
	assert.Empty(t, f.messages(t))
}

func TestPoll_ParseErrorAndFetchFailure(t *testing.T) {
	// Arrange
	f := newFixture(t)
	f.inbox.add(1, "Subject: no sender\r\n\r\nbody")
	f.inbox.add(2, f.reply("sales@acme.com", "Re", "Offer"))
	f.inbox.fetchErrs[2] = errors.New("connection reset")
	f.inbox.add(3, plainEmail("someone@else.com", "Hello", "no token"))

	// Act
	result, err := f.poller(new(mockExtractor), nil, nil).Poll(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 3, result.Unread)
	assert.Equal(t, 1, result.Count(enum.IngestionParseError))
	assert.Equal(t, 1, result.Count(enum.IngestionFailed))
	assert.Equal(t, 1, result.Count(enum.IngestionForeign))
	assert.True(t, f.inbox.seen[1])
	assert.True(t, f.inbox.flagged[1])
	assert.False(t, f.inbox.seen[2])
	assert.True(t, f.inbox.seen[3])
}

func TestPoll_OracleFailureUsesFallback(t *testing.T) {
	// Arrange
	f := newFixture(t)
	f.inbox.add(1, f.reply("sales@acme.com", "Re", "Offer attached"))

	oracle := new(mockOracle)
	oracle.On("ExtractProposal", mock.Anything, mock.Anything).Return(nil, errs.ErrOracle)
	extractor := ai.NewFallback(oracle, testutil.NewLogger())

	// Act
	result, err := f.poller(extractor, nil, nil).Poll(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count(enum.IngestionProcessed))
	proposals := f.proposals(t)
	require.Len(t, proposals, 1)
	assert.Equal(t, 0.0, proposals[0].AiScore)
	require.NotNil(t, proposals[0].Notes)
	assert.Equal(t, ai.ExtractionFallbackNotes, *proposals[0].Notes)
	assert.False(t, proposals[0].Price.Valid)
}

func TestPoll_MaxMessagesPerPoll(t *testing.T) {
	f := newFixture(t)
	for uid := uint32(1); uid <= 3; uid++ {
		f.inbox.add(uid, plainEmail("a@b.com", "x", "no token"))
	}

	result, err := f.poller(new(mockExtractor), nil, &config.IngestionConfig{MaxMessagesPerPoll: 2}).Poll(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, result.Unread)
	assert.Equal(t, 2, result.Count(enum.IngestionForeign))
	assert.False(t, f.inbox.seen[3])
}
