package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"housetrend/internal/remoteconf"
)

type Config struct {
	// HTTP servers
	Port           string
	AdminPort      string
	RequestTimeout time.Duration
	// How often the viewer reloads the document; zero disables it
	ReloadInterval time.Duration

	// Local document file and the directory saves are downloaded to
	DataFile    string
	DownloadDir string

	// Backend selection
	DataBackend string

	// Remote repository, overridden by the saved remote config
	GitHubUsername   string
	GitHubRepository string
	GitHubToken      string
	GitHubPath       string
	GitHubBranch     string
	GitHubAPIURL     string
	RemoteConfigFile string

	// Snapshot archive
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets mirror
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
	GoogleOAuthClientFile    string
	GoogleOAuthClientJSON    string
	GoogleOAuthTokenFile     string
	OAuthRedirectPort        string

	// Worker
	SyncBatchSize int
	SyncInterval  time.Duration
}

func Load() *Config {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		AdminPort:      getEnv("ADMIN_PORT", "8081"),
		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 15*time.Second),
		ReloadInterval: getEnvDuration("RELOAD_INTERVAL", 5*time.Minute),

		DataFile:    getEnv("DATA_FILE", "./data.json"),
		DownloadDir: getEnv("DOWNLOAD_DIR", "./downloads"),

		DataBackend: getEnv("DATA_BACKEND", "local"),

		GitHubUsername:   getEnv("GITHUB_USERNAME", ""),
		GitHubRepository: getEnv("GITHUB_REPOSITORY", ""),
		GitHubToken:      getEnv("GITHUB_TOKEN", ""),
		GitHubPath:       getEnv("GITHUB_PATH", remoteconf.DefaultPath),
		GitHubBranch:     getEnv("GITHUB_BRANCH", ""),
		GitHubAPIURL:     getEnv("GITHUB_API_URL", remoteconf.DefaultAPIURL),
		RemoteConfigFile: getEnv("REMOTE_CONFIG_FILE", ""),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/housetrend.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "housetrend"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "snapshot_archive"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Transactions"),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", getEnv("GOOGLE_APPLICATION_CREDENTIALS", "")),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleOAuthClientFile:    getEnv("GOOGLE_OAUTH_CLIENT_FILE", ""),
		GoogleOAuthClientJSON:    getEnv("GOOGLE_OAUTH_CLIENT_JSON", ""),
		GoogleOAuthTokenFile:     getEnv("GOOGLE_OAUTH_TOKEN_FILE", ""),
		OAuthRedirectPort:        getEnv("OAUTH_REDIRECT_PORT", "8085"),

		SyncBatchSize: getEnvInt("SYNC_BATCH_SIZE", 10),
		SyncInterval:  getEnvDuration("SYNC_INTERVAL", 30*time.Second),
	}

	return cfg
}

// Remote returns the remote repository settings given by the environment.
func (c *Config) Remote() remoteconf.Config {
	return remoteconf.Config{
		Username:    c.GitHubUsername,
		Repository:  c.GitHubRepository,
		AccessToken: c.GitHubToken,
		Path:        c.GitHubPath,
		Branch:      c.GitHubBranch,
		APIURL:      c.GitHubAPIURL,
	}
}

// ArchiveEnabled reports whether saves are recorded in SQLite.
func (c *Config) ArchiveEnabled() bool { return c.SQLiteDBPath != "" }

// MirrorEnabled reports whether the Google Sheets mirror is configured.
func (c *Config) MirrorEnabled() bool { return c.GoogleSpreadsheetID != "" }

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	errors = append(errors, validatePort("port", c.Port)...)
	errors = append(errors, validatePort("admin port", c.AdminPort)...)
	if c.Port == c.AdminPort {
		errors = append(errors, fmt.Sprintf("port and admin port must differ, both are %s", c.Port))
	}

	if c.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid request timeout %v: must be positive", c.RequestTimeout))
	}

	if c.ReloadInterval < 0 {
		errors = append(errors, fmt.Sprintf("invalid reload interval %v: must not be negative", c.ReloadInterval))
	} else if c.ReloadInterval > 0 && c.ReloadInterval < 10*time.Second {
		errors = append(errors, fmt.Sprintf("invalid reload interval %v: must be at least 10 seconds", c.ReloadInterval))
	}

	validBackends := []string{"local", "memory"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "local" && c.DataFile == "" {
		errors = append(errors, "data file cannot be empty when using local backend")
	}
	if c.DownloadDir == "" {
		errors = append(errors, "download directory cannot be empty")
	}

	if c.GitHubAPIURL != "" {
		if u, err := url.Parse(c.GitHubAPIURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid GitHub API URL '%s': %v", c.GitHubAPIURL, err))
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid GitHub API URL scheme '%s': must be 'http' or 'https'", u.Scheme))
		}
	}

	if c.SQLiteDBPath != "" {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.GoogleSpreadsheetID != "" {
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when a spreadsheet ID is set")
		}
		userToken := c.GoogleOAuthTokenFile != "" && (c.GoogleOAuthClientFile != "" || c.GoogleOAuthClientJSON != "")
		if c.GoogleServiceAccountFile == "" && c.GoogleServiceAccountJSON == "" && !userToken {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for the sheets mirror (or GOOGLE_OAUTH_TOKEN_FILE with an OAuth client)")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if c.SyncBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at least 1", c.SyncBatchSize))
	} else if c.SyncBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at most 1000", c.SyncBatchSize))
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func validatePort(name, value string) []string {
	port, err := strconv.Atoi(value)
	if err != nil {
		return []string{fmt.Sprintf("invalid %s '%s': must be a number", name, value)}
	}
	if port < 1 || port > 65535 {
		return []string{fmt.Sprintf("invalid %s %d: must be between 1 and 65535", name, port)}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
