package config

import "time"

type AppConfig struct {
	APIPort   string `env:"PORT,required" envDefault:"12222"`
	APIKey    string `env:"API_KEY,required"`
	AppSource string `env:"APP_SOURCE" envDefault:"rfpstack"`
	// Empty disables event publishing.
	RabbitMQURL string `env:"RABBITMQ_URL"`
}

type DatabaseConfig struct {
	Host            string `env:"RFPSTACK_POSTGRES_HOST,required"`
	Port            string `env:"RFPSTACK_POSTGRES_PORT,required" envDefault:"5432"`
	User            string `env:"RFPSTACK_POSTGRES_USER,required"`
	DBName          string `env:"RFPSTACK_POSTGRES_DB_NAME,required"`
	Password        string `env:"RFPSTACK_POSTGRES_PASSWORD,required"`
	MaxConn         int    `env:"RFPSTACK_POSTGRES_DB_MAX_CONN" envDefault:"25"`
	MaxIdleConn     int    `env:"RFPSTACK_POSTGRES_DB_MAX_IDLE_CONN" envDefault:"10"`
	ConnMaxLifetime int    `env:"RFPSTACK_POSTGRES_DB_CONN_MAX_LIFETIME" envDefault:"60"`
	LogLevel        string `env:"RFPSTACK_POSTGRES_LOG_LEVEL" envDefault:"WARN"`
	SSLMode         string `env:"RFPSTACK_POSTGRES_SSL_MODE" envDefault:"require"`
}

// MailboxConfig is the shared inbox vendors reply to.
type MailboxConfig struct {
	ImapServer     string        `env:"IMAP_SERVER"`
	ImapPort       int           `env:"IMAP_PORT" envDefault:"993"`
	ImapUsername   string        `env:"IMAP_USERNAME"`
	ImapPassword   string        `env:"IMAP_PASSWORD"`
	ImapTLS        bool          `env:"IMAP_TLS" envDefault:"true"`
	Folder         string        `env:"IMAP_FOLDER" envDefault:"INBOX"`
	DialTimeout    time.Duration `env:"IMAP_DIAL_TIMEOUT" envDefault:"30s"`
	CommandTimeout time.Duration `env:"IMAP_COMMAND_TIMEOUT" envDefault:"60s"`
}

type SMTPConfig struct {
	Server   string        `env:"SMTP_SERVER"`
	Port     int           `env:"SMTP_PORT" envDefault:"587"`
	Username string        `env:"SMTP_USERNAME"`
	Password string        `env:"SMTP_PASSWORD"`
	Security string        `env:"SMTP_SECURITY" envDefault:"startTLS"`
	From     string        `env:"SMTP_FROM"`
	FromName string        `env:"SMTP_FROM_NAME" envDefault:"Procurement Team"`
	Timeout  time.Duration `env:"SMTP_TIMEOUT" envDefault:"30s"`
}

type AIConfig struct {
	ApiKey      string        `env:"OPENAI_API_KEY"`
	BaseUrl     string        `env:"OPENAI_BASE_URL"`
	Model       string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	Temperature float32       `env:"OPENAI_TEMPERATURE" envDefault:"0.1"`
	Timeout     time.Duration `env:"AI_TIMEOUT" envDefault:"60s"`
}

// R2StorageConfig enables the attachment archive when AccountID is set.
type R2StorageConfig struct {
	AccountID        string `env:"CLOUDFLARE_R2_ACCOUNT_ID"`
	AccessKeyID      string `env:"CLOUDFLARE_R2_ACCESS_KEY_ID"`
	AccessKeySecret  string `env:"CLOUDFLARE_R2_ACCESS_KEY_SECRET"`
	AttachmentBucket string `env:"BUCKET_NAME_PROPOSAL_ATTACHMENT" envDefault:"proposal-attachments"`
}

type IngestionConfig struct {
	// Leave mismatched-sender replies unread unless this is set.
	MarkMismatchProcessed bool `env:"MAILBOX_MARK_MISMATCH_PROCESSED" envDefault:"false"`
	MaxMessagesPerPoll    int  `env:"MAILBOX_MAX_MESSAGES_PER_POLL" envDefault:"50"`
	PdfMaxTextChars       int  `env:"PDF_MAX_TEXT_CHARS" envDefault:"20000"`
	// Comma separated emails for the three default vendors created by `seed`.
	SeedVendorEmails []string `env:"SEED_VENDOR_EMAILS" envSeparator:","`
}

type CronConfig struct {
	// Heartbeat check, every minute
	CronScheduleHeartbeat string `env:"CRON_SCHEDULE_HEARTBEAT" envDefault:"0 * * * * *"`
	// Mailbox poll for vendor replies, every five minutes
	CronScheduleMailboxPoll string `env:"CRON_SCHEDULE_MAILBOX_POLL" envDefault:"0 */5 * * * *"`
}
