package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"receipt-extractor-go/internal/extractor"
	"receipt-extractor-go/internal/status"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Gmail      GmailConfig      `mapstructure:"gmail"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Account    AccountConfig    `mapstructure:"account"`
	View       status.Filter    `mapstructure:"view"`
	LogLevel   string           `mapstructure:"log_level"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// GmailConfig holds mailbox access configuration, either the Gmail API or
// plain IMAP
type GmailConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RefreshToken string `mapstructure:"refresh_token"`
	UserEmail    string `mapstructure:"user_email"`
	Query        string `mapstructure:"query"`
	UseIMAP      bool   `mapstructure:"use_imap"`
	IMAPHost     string `mapstructure:"imap_host"`
	IMAPPort     int    `mapstructure:"imap_port"`
	IMAPUser     string `mapstructure:"imap_user"`
	IMAPPassword string `mapstructure:"imap_password"`
	IMAPMailbox  string `mapstructure:"imap_mailbox"`
}

// SchedulerConfig holds scheduler configuration
type SchedulerConfig struct {
	IntervalMinutes int  `mapstructure:"interval_minutes"`
	AutoStart       bool `mapstructure:"auto_start"`
}

// ExtractionConfig tunes the extraction pipeline
type ExtractionConfig struct {
	DefaultCurrency  string                   `mapstructure:"default_currency"`
	Workers          int                      `mapstructure:"workers"`
	SplitDigestItems bool                     `mapstructure:"split_digest_items"`
	MaxAttachmentMB  int                      `mapstructure:"max_attachment_mb"`
	Mappings         []extractor.MappingEntry `mapstructure:"mappings"`
}

// AccountConfig identifies the mailbox owner
type AccountConfig struct {
	DisplayName string   `mapstructure:"display_name"`
	Email       string   `mapstructure:"email"`
	OtherNames  []string `mapstructure:"other_names"`
}

// Owner converts the account section for the resolver
func (a AccountConfig) Owner() extractor.Account {
	return extractor.Account{DisplayName: a.DisplayName, Email: a.Email, OtherNames: a.OtherNames}
}

// Options builds extractor options from the configuration
func (c *Config) Options() extractor.Options {
	return extractor.Options{
		Owner:            c.Account.Owner(),
		DefaultCurrency:  c.Extraction.DefaultCurrency,
		SplitDigestItems: c.Extraction.SplitDigestItems,
		Workers:          c.Extraction.Workers,
	}
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Environment variables override config file
	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if cfg.Account.Email == "" {
		cfg.Account.Email = cfg.Gmail.UserEmail
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)

	v.SetDefault("gmail.use_imap", false)
	v.SetDefault("gmail.query", "category:primary OR category:updates")
	v.SetDefault("gmail.imap_host", "imap.gmail.com")
	v.SetDefault("gmail.imap_port", 993)
	v.SetDefault("gmail.imap_mailbox", "INBOX")

	v.SetDefault("scheduler.interval_minutes", 5)
	v.SetDefault("scheduler.auto_start", true)

	v.SetDefault("extraction.default_currency", "AUD")
	v.SetDefault("extraction.workers", 4)
	v.SetDefault("extraction.split_digest_items", false)
	v.SetDefault("extraction.max_attachment_mb", 10)

	v.SetDefault("view.show_archived_emails", false)
	v.SetDefault("log_level", "info")
}

// bindEnvVars binds environment variables to configuration keys
func bindEnvVars(v *viper.Viper) {
	// Server
	v.BindEnv("server.port", "SERVER_PORT")
	v.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	v.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")

	// Database
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.dbname", "DB_NAME")

	// Gmail
	v.BindEnv("gmail.client_id", "GMAIL_CLIENT_ID")
	v.BindEnv("gmail.client_secret", "GMAIL_CLIENT_SECRET")
	v.BindEnv("gmail.refresh_token", "GMAIL_REFRESH_TOKEN")
	v.BindEnv("gmail.user_email", "GMAIL_USER_EMAIL")
	v.BindEnv("gmail.query", "GMAIL_QUERY")
	v.BindEnv("gmail.use_imap", "GMAIL_USE_IMAP")
	v.BindEnv("gmail.imap_host", "GMAIL_IMAP_HOST")
	v.BindEnv("gmail.imap_port", "GMAIL_IMAP_PORT")
	v.BindEnv("gmail.imap_user", "GMAIL_IMAP_USER")
	v.BindEnv("gmail.imap_password", "GMAIL_IMAP_PASSWORD")
	v.BindEnv("gmail.imap_mailbox", "GMAIL_IMAP_MAILBOX")

	// Scheduler
	v.BindEnv("scheduler.interval_minutes", "SCHEDULER_INTERVAL_MINUTES")
	v.BindEnv("scheduler.auto_start", "SCHEDULER_AUTO_START")

	// Extraction
	v.BindEnv("extraction.default_currency", "EXTRACTION_DEFAULT_CURRENCY")
	v.BindEnv("extraction.workers", "EXTRACTION_WORKERS")
	v.BindEnv("extraction.split_digest_items", "EXTRACTION_SPLIT_DIGEST_ITEMS")
	v.BindEnv("extraction.max_attachment_mb", "EXTRACTION_MAX_ATTACHMENT_MB")

	// Account
	v.BindEnv("account.display_name", "ACCOUNT_DISPLAY_NAME")
	v.BindEnv("account.email", "ACCOUNT_EMAIL")

	v.BindEnv("view.show_archived_emails", "VIEW_SHOW_ARCHIVED_EMAILS")
	v.BindEnv("log_level", "LOG_LEVEL")
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.DBName)
}

var supportedCurrencies = map[string]bool{"AUD": true, "USD": true, "NZD": true, "EUR": true, "GBP": true}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if c.Database.Host == "" || c.Database.User == "" || c.Database.DBName == "" {
		return fmt.Errorf("database host, user, and dbname are required")
	}

	if !c.Gmail.UseIMAP {
		if c.Gmail.ClientID == "" || c.Gmail.ClientSecret == "" || c.Gmail.RefreshToken == "" {
			return fmt.Errorf("Gmail OAuth2 credentials are required when not using IMAP")
		}
	} else {
		if c.Gmail.IMAPUser == "" || c.Gmail.IMAPPassword == "" {
			return fmt.Errorf("IMAP credentials are required when using IMAP")
		}
	}

	if c.Scheduler.IntervalMinutes <= 0 {
		return fmt.Errorf("scheduler interval must be greater than 0")
	}

	return c.Extraction.Validate()
}

// Validate checks the extraction section on its own, so tools that never
// touch the database can still use it
func (e *ExtractionConfig) Validate() error {
	if e.DefaultCurrency != "" && !supportedCurrencies[strings.ToUpper(e.DefaultCurrency)] {
		return fmt.Errorf("unsupported default currency %q", e.DefaultCurrency)
	}
	if e.Workers < 0 {
		return fmt.Errorf("extraction workers must not be negative")
	}
	for i, m := range e.Mappings {
		if strings.TrimSpace(m.Pattern) == "" || strings.TrimSpace(m.Merchant) == "" {
			return fmt.Errorf("extraction mapping %d needs both pattern and merchant", i)
		}
		if strings.Contains(m.Pattern, "@") || strings.Contains(m.Pattern, "*") {
			return fmt.Errorf("extraction mapping %d: pattern %q must be a bare domain", i, m.Pattern)
		}
	}
	return nil
}
