package services

import (
	"github.com/customeros/rfpstack/config"
	"github.com/customeros/rfpstack/interfaces"
	"github.com/customeros/rfpstack/internal/logger"
	"github.com/customeros/rfpstack/internal/repository"
	"github.com/customeros/rfpstack/services/ai"
	"github.com/customeros/rfpstack/services/events"
	"github.com/customeros/rfpstack/services/imap"
	"github.com/customeros/rfpstack/services/ingestion"
	"github.com/customeros/rfpstack/services/pdf"
	"github.com/customeros/rfpstack/services/rfp"
	"github.com/customeros/rfpstack/services/smtp"
	"github.com/customeros/rfpstack/services/storage"
	"github.com/customeros/rfpstack/services/timeline"
)

type Services struct {
	EventsService *events.EventsService
	Timeline      *timeline.ChatTimeline
	Oracle        interfaces.Oracle
	Mailer        interfaces.Mailer
	// Poller is nil when no mailbox is configured.
	Poller     *ingestion.Poller
	RfpService *rfp.Service
}

func InitServices(cfg *config.Config, log logger.Logger, repos *repository.Repositories) (*Services, error) {
	eventsService, err := events.NewEventsService(cfg.AppConfig.RabbitMQURL, cfg.AppConfig.AppSource, log, events.DefaultPublisherConfig())
	if err != nil {
		return nil, err
	}

	chatTimeline := timeline.NewChatTimeline(repos.ChatRepository)
	oracle := ai.NewOpenAIOracle(cfg.AIConfig, log)
	fallback := ai.NewFallback(oracle, log)

	var mailer interfaces.Mailer
	if cfg.SMTPConfig.Server != "" {
		mailer = smtp.NewMailer(cfg.SMTPConfig)
	} else {
		log.Warn("SMTP_SERVER not set, RFP dispatch will fail per vendor")
	}

	var archive *storage.AttachmentArchive
	if cfg.ArchiveEnabled() {
		archive = storage.NewAttachmentArchive(storage.NewR2StorageService(cfg.R2StorageConfig), log)
	}

	s := &Services{
		EventsService: eventsService,
		Timeline:      chatTimeline,
		Oracle:        oracle,
		Mailer:        mailer,
	}

	var poller interfaces.MailboxPoller
	if cfg.MailboxConfig.ImapServer != "" {
		s.Poller = ingestion.NewPoller(ingestion.PollerDeps{
			Mailbox:     imap.NewMailboxClient(cfg.MailboxConfig, log),
			Repos:       repos,
			Extractor:   fallback,
			Attachments: pdf.NewExtractor(log, cfg.IngestionConfig.PdfMaxTextChars),
			Archive:     archive,
			Timeline:    chatTimeline,
			Publisher:   eventsService.Publisher,
			Config:      cfg.IngestionConfig,
			Log:         log,
		})
		poller = s.Poller
	} else {
		log.Warn("IMAP_SERVER not set, vendor replies will not be ingested")
	}

	s.RfpService = rfp.NewService(rfp.ServiceDeps{
		Repos:     repos,
		Timeline:  chatTimeline,
		Drafter:   fallback,
		Oracle:    oracle,
		Mailer:    mailer,
		Poller:    poller,
		Publisher: eventsService.Publisher,
		Config:    cfg.IngestionConfig,
		Log:       log,
	})

	return s, nil
}

func (s *Services) Close() error {
	if s.EventsService == nil {
		return nil
	}
	return s.EventsService.Close()
}
