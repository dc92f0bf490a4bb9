package cfg

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/linnemanlabs/esitriage/internal/queue"
)

// Config adds esitriage-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	APIToken              string

	PredictorURL            string
	PredictorTimeoutSeconds int
	ClaudeAPIKey            string
	ClaudeModel             string

	QueueURL            string
	QueueTimeoutSeconds int

	QueueKey       string
	QueueDir       string
	DatabaseURL    string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisKeyPrefix string

	SlackWebhookURL string
	Timezone        string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.APIToken, "api-token", "", "bearer token required on /api/v1 (empty = no auth)")

	fs.StringVar(&c.PredictorURL, "predictor-url", "", "ESI predictor endpoint, e.g. http://127.0.0.1:8000/predict")
	fs.IntVar(&c.PredictorTimeoutSeconds, "predictor-timeout-seconds", 0, "predictor exchange timeout (0 = bounded only by the request, 0..300)")
	fs.StringVar(&c.ClaudeAPIKey, "claude-api-key", "", "API key for the Claude predictor backend, used when predictor-url is empty")
	fs.StringVar(&c.ClaudeModel, "claude-model", "claude-sonnet-4-20250514", "Claude model to use")

	fs.StringVar(&c.QueueURL, "queue-url", "", "server queue endpoint, e.g. http://127.0.0.1:8000/queue (empty = disabled)")
	fs.IntVar(&c.QueueTimeoutSeconds, "queue-timeout-seconds", 10, "server queue read timeout (0..300)")

	fs.StringVar(&c.QueueKey, "queue-key", queue.DefaultKey, "name of the persisted local queue slot")
	fs.StringVar(&c.QueueDir, "queue-dir", "", "directory for the file-backed local queue")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL for the local queue")
	fs.StringVar(&c.RedisAddr, "redis-addr", "", "Redis address for the local queue, host:port")
	fs.StringVar(&c.RedisPassword, "redis-password", "", "Redis password")
	fs.IntVar(&c.RedisDB, "redis-db", 0, "Redis database number (0..15)")
	fs.StringVar(&c.RedisKeyPrefix, "redis-key-prefix", "esitriage:", "prefix prepended to Redis slot keys")

	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for ESI 1-2 notifications")
	fs.StringVar(&c.Timezone, "timezone", "", "IANA zone for queue entry timestamps (empty = local)")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	// One predictor backend must be reachable
	switch {
	case c.PredictorURL != "":
		if err := checkURL("PREDICTOR_URL", c.PredictorURL); err != nil {
			errs = append(errs, err)
		}
	case c.ClaudeAPIKey != "":
		if c.ClaudeModel == "" {
			errs = append(errs, errors.New("CLAUDE_MODEL is required with CLAUDE_API_KEY"))
		}
	default:
		errs = append(errs, errors.New("PREDICTOR_URL or CLAUDE_API_KEY is required"))
	}
	if c.PredictorTimeoutSeconds < 0 || c.PredictorTimeoutSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid PREDICTOR_TIMEOUT_SECONDS %d (must be 0..300)", c.PredictorTimeoutSeconds))
	}

	if c.QueueURL != "" {
		if err := checkURL("QUEUE_URL", c.QueueURL); err != nil {
			errs = append(errs, err)
		}
	}
	if c.QueueTimeoutSeconds < 0 || c.QueueTimeoutSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid QUEUE_TIMEOUT_SECONDS %d (must be 0..300)", c.QueueTimeoutSeconds))
	}

	// Local queue slot
	if strings.TrimSpace(c.QueueKey) == "" {
		errs = append(errs, errors.New("QUEUE_KEY is required"))
	}
	var backends []string
	for name, v := range map[string]string{"DATABASE_URL": c.DatabaseURL, "REDIS_ADDR": c.RedisAddr, "QUEUE_DIR": c.QueueDir} {
		if v != "" {
			backends = append(backends, name)
		}
	}
	if len(backends) > 1 {
		errs = append(errs, fmt.Errorf("only one queue backend may be set, got %d (DATABASE_URL, REDIS_ADDR, QUEUE_DIR)", len(backends)))
	}
	if c.RedisDB < 0 || c.RedisDB > 15 {
		errs = append(errs, fmt.Errorf("invalid REDIS_DB %d (must be 0..15)", c.RedisDB))
	}

	if c.SlackWebhookURL != "" {
		if err := checkURL("SLACK_WEBHOOK_URL", c.SlackWebhookURL); err != nil {
			errs = append(errs, err)
		}
	}

	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Location returns the zone entry timestamps are rendered in. Call after Validate.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// PredictorTimeout is the predictor exchange timeout; zero means none.
func (c *Config) PredictorTimeout() time.Duration {
	return time.Duration(c.PredictorTimeoutSeconds) * time.Second
}

// QueueTimeout is the server queue read timeout; zero means none.
func (c *Config) QueueTimeout() time.Duration {
	return time.Duration(c.QueueTimeoutSeconds) * time.Second
}

func checkURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid %s %q (must be an http or https URL)", name, raw)
	}
	return nil
}
