package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"CaseReview/internal/constants"

	"github.com/caarlos0/env/v11"
)

const (
	DefaultClioBase        = "https://app.clio.com"
	DefaultAPIVersion      = "4"
	DefaultGraphBase       = "https://graph.microsoft.com/v1.0"
	DefaultGraphAuthority  = "https://login.microsoftonline.com"
	DefaultGraphScope      = "https://graph.microsoft.com/.default"
	DefaultMasterFolder    = "General Management/Global Case Review Lists"
	DefaultOwnerBaseFolder = "Attorneys and Paralegals/Attorney Case Lists"
	DefaultMasterTitle     = "Seabrook's Case Review List"
	DefaultOwnerTitle      = "Case Review"
	DefaultCycleSchedule   = "0 0 1,16 * *"
	DefaultTZOffset        = "-08:00"
	DefaultConfigFile      = "casereview.yaml"
	DefaultLogFolder       = "./logs"

	DefaultPageLimit   = 200
	DefaultMaxAttempts = 7
	DefaultMinSleep    = 250 * time.Millisecond
	DefaultHTTPTimeout = 60 * time.Second

	StorageGraph = "graph"
	StorageS3    = "s3"

	UnbilledJoinCase   = "case"
	UnbilledJoinClient = "client"
)

// DefaultOwnerFolders is used when the YAML file carries no owners table.
var DefaultOwnerFolders = map[string]string{
	"Voorhees, Elizabeth": DefaultOwnerBaseFolder + "/Voorhees, Elizabeth",
	"Darling, Craig":      DefaultOwnerBaseFolder + "/Darling, Craig",
	"Huang, Lily":         DefaultOwnerBaseFolder + "/Huang, Lily",
	"Parker, Gabriella":   DefaultOwnerBaseFolder + "/Parker, Gabriella",
}

type Config struct {
	Clio       ClioConfig
	Storage    StorageConfig
	Report     ReportConfig
	Cycle      CycleConfig
	Log        LogConfig
	ScratchDir string
	ConfigFile string
}

type ClioConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	RefreshToken string
	AccessToken  string
	ExpiresAt    time.Time
	MinSleep     time.Duration
	MaxAttempts  int
	PageLimit    int
	StrictPages  bool
	HTTPTimeout  time.Duration
}

// APIURL is the versioned REST root, e.g. https://app.clio.com/api/v4.
func (c ClioConfig) APIURL() string {
	return c.BaseURL + "/api/v" + DefaultAPIVersion
}

// TokenURL is the OAuth token endpoint for refresh-token grants.
func (c ClioConfig) TokenURL() string {
	return c.BaseURL + "/oauth/token"
}

type StorageConfig struct {
	Backend         string
	GraphBaseURL    string
	GraphAuthority  string
	TenantID        string
	ClientID        string
	ClientSecret    string
	SiteID          string
	DriveID         string
	MasterFolder    string
	OwnerBaseFolder string
	S3Bucket        string
	S3Prefix        string
	S3Region        string
	S3Endpoint      string
	S3AccessKey     string
	S3SecretKey     string
}

// TokenURL is the client-credentials endpoint for the configured tenant.
func (s StorageConfig) TokenURL() string {
	return fmt.Sprintf("%s/%s/oauth2/v2.0/token", s.GraphAuthority, s.TenantID)
}

type ReportConfig struct {
	MasterTitle         string
	OwnerTitle          string
	RestrictToOverrides bool
	Allocate            bool
	UnbilledJoin        string
}

type CycleConfig struct {
	StartDate string
	EndDate   string
	Schedule  string
	TZOffset  string
}

type LogConfig struct {
	Folder        string
	RetentionDays int
	Level         string
}

// rawEnv holds the environment exactly as provided; Load converts it.
type rawEnv struct {
	ClioBase         string  `env:"CLIO_BASE"                 envDefault:"https://app.clio.com"`
	ClioClientID     string  `env:"CLIO_CLIENT_ID"`
	ClioClientSecret string  `env:"CLIO_CLIENT_SECRET"`
	ClioRefreshToken string  `env:"CLIO_REFRESH_TOKEN"`
	ClioAccessToken  string  `env:"CLIO_ACCESS_TOKEN"`
	ClioExpiresAt    string  `env:"CLIO_EXPIRES_AT"`
	ClioExpiresIn    string  `env:"CLIO_EXPIRES_IN"`
	ClioMinSleepSec  float64 `env:"CLIO_GLOBAL_MIN_SLEEP_SEC" envDefault:"0.25"`
	ClioMaxAttempts  int     `env:"CLIO_MAX_ATTEMPTS"         envDefault:"7"`
	ClioPageLimit    int     `env:"CLIO_PAGE_LIMIT"           envDefault:"200"`
	ClioStrictPages  bool    `env:"CLIO_STRICT_PAGES"         envDefault:"false"`

	ClioHTTPTimeout time.Duration `env:"CLIO_HTTP_TIMEOUT" envDefault:"60s"`

	StorageBackend  string `env:"STORAGE_BACKEND"     envDefault:"graph"`
	GraphBaseURL    string `env:"GRAPH_BASE_URL"      envDefault:"https://graph.microsoft.com/v1.0"`
	GraphAuthority  string `env:"GRAPH_AUTHORITY"     envDefault:"https://login.microsoftonline.com"`
	GraphTenantID   string `env:"GRAPH_TENANT_ID"`
	GraphClientID   string `env:"GRAPH_CLIENT_ID"`
	GraphSecret     string `env:"GRAPH_CLIENT_SECRET"`
	SiteID          string `env:"SHAREPOINT_SITE_ID"`
	DriveID         string `env:"SHAREPOINT_DRIVE_ID"`
	MasterFolder    string `env:"SHAREPOINT_DOC_LIB"  envDefault:"General Management/Global Case Review Lists"`
	OwnerBaseFolder string `env:"OWNER_BASE_FOLDER"   envDefault:"Attorneys and Paralegals/Attorney Case Lists"`
	S3Bucket        string `env:"S3_BUCKET"`
	S3Prefix        string `env:"S3_PREFIX"`
	S3Region        string `env:"S3_REGION"           envDefault:"us-east-1"`
	S3Endpoint      string `env:"S3_ENDPOINT"`
	S3AccessKey     string `env:"S3_ACCESS_KEY_ID"`
	S3SecretKey     string `env:"S3_SECRET_ACCESS_KEY"`

	MasterTitle         string `env:"REPORT_MASTER_TITLE"   envDefault:"Seabrook's Case Review List"`
	OwnerTitle          string `env:"REPORT_OWNER_TITLE"    envDefault:"Case Review"`
	RestrictToOverrides bool   `env:"OWNER_RESTRICT"        envDefault:"false"`
	Allocate            bool   `env:"ALLOCATE_OUTSTANDING"  envDefault:"true"`
	UnbilledJoin        string `env:"UNBILLED_JOIN"         envDefault:"case"`

	CycleStart    string `env:"CYCLE_START_DATE"`
	CycleEnd      string `env:"CYCLE_END_DATE"`
	CycleSchedule string `env:"CYCLE_SCHEDULE" envDefault:"0 0 1,16 * *"`
	TZOffset      string `env:"CLIO_TZ_OFFSET" envDefault:"-08:00"`

	LogFolder        string `env:"LOG_FOLDER"         envDefault:"./logs"`
	LogRetentionDays int    `env:"LOG_RETENTION_DAYS" envDefault:"30"`
	LogLevel         string `env:"LOG_LEVEL"          envDefault:"info"`

	ScratchDir string `env:"SCRATCH_DIR"`
	ConfigFile string `env:"CASEREVIEW_CONFIG" envDefault:"casereview.yaml"`
}

// Load reads the process environment. It does not require Clio or storage
// credentials; callers validate the pieces their job needs.
func Load() (*Config, error) {
	var raw rawEnv
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", constants.ErrConfig, err)
	}

	cfg := &Config{
		Clio: ClioConfig{
			BaseURL:      strings.TrimRight(raw.ClioBase, "/"),
			ClientID:     raw.ClioClientID,
			ClientSecret: raw.ClioClientSecret,
			RefreshToken: raw.ClioRefreshToken,
			AccessToken:  raw.ClioAccessToken,
			ExpiresAt:    parseUnixSeconds(firstNonEmpty(raw.ClioExpiresAt, raw.ClioExpiresIn)),
			MinSleep:     time.Duration(raw.ClioMinSleepSec * float64(time.Second)),
			MaxAttempts:  raw.ClioMaxAttempts,
			PageLimit:    raw.ClioPageLimit,
			StrictPages:  raw.ClioStrictPages,
			HTTPTimeout:  raw.ClioHTTPTimeout,
		},
		Storage: StorageConfig{
			Backend:         strings.ToLower(strings.TrimSpace(raw.StorageBackend)),
			GraphBaseURL:    strings.TrimRight(raw.GraphBaseURL, "/"),
			GraphAuthority:  strings.TrimRight(raw.GraphAuthority, "/"),
			TenantID:        raw.GraphTenantID,
			ClientID:        raw.GraphClientID,
			ClientSecret:    raw.GraphSecret,
			SiteID:          raw.SiteID,
			DriveID:         raw.DriveID,
			MasterFolder:    strings.Trim(raw.MasterFolder, "/"),
			OwnerBaseFolder: strings.Trim(raw.OwnerBaseFolder, "/"),
			S3Bucket:        raw.S3Bucket,
			S3Prefix:        strings.Trim(raw.S3Prefix, "/"),
			S3Region:        raw.S3Region,
			S3Endpoint:      raw.S3Endpoint,
			S3AccessKey:     raw.S3AccessKey,
			S3SecretKey:     raw.S3SecretKey,
		},
		Report: ReportConfig{
			MasterTitle:         raw.MasterTitle,
			OwnerTitle:          raw.OwnerTitle,
			RestrictToOverrides: raw.RestrictToOverrides,
			Allocate:            raw.Allocate,
			UnbilledJoin:        strings.ToLower(strings.TrimSpace(raw.UnbilledJoin)),
		},
		Cycle: CycleConfig{
			StartDate: strings.TrimSpace(raw.CycleStart),
			EndDate:   strings.TrimSpace(raw.CycleEnd),
			Schedule:  raw.CycleSchedule,
			TZOffset:  raw.TZOffset,
		},
		Log: LogConfig{
			Folder:        raw.LogFolder,
			RetentionDays: raw.LogRetentionDays,
			Level:         raw.LogLevel,
		},
		ScratchDir: raw.ScratchDir,
		ConfigFile: raw.ConfigFile,
	}

	if cfg.Clio.MaxAttempts <= 0 {
		cfg.Clio.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Clio.PageLimit <= 0 {
		cfg.Clio.PageLimit = DefaultPageLimit
	}
	if cfg.Clio.MinSleep < 0 {
		cfg.Clio.MinSleep = DefaultMinSleep
	}
	if cfg.ScratchDir == "" {
		cfg.ScratchDir = os.TempDir()
	}
	if cfg.Report.UnbilledJoin != UnbilledJoinCase && cfg.Report.UnbilledJoin != UnbilledJoinClient {
		return nil, fmt.Errorf("%w: UNBILLED_JOIN must be %q or %q", constants.ErrConfig, UnbilledJoinCase, UnbilledJoinClient)
	}
	if (cfg.Cycle.StartDate == "") != (cfg.Cycle.EndDate == "") {
		return nil, fmt.Errorf("%w: %s", constants.ErrConfig, constants.ErrCycleDatesIncomplete)
	}
	return cfg, nil
}

// ValidateStorage checks the settings of the selected upload backend.
func (c *Config) ValidateStorage() error {
	s := c.Storage
	switch s.Backend {
	case StorageGraph:
		if s.TenantID == "" || s.ClientID == "" || s.ClientSecret == "" || s.SiteID == "" || s.DriveID == "" {
			return fmt.Errorf("%w: %s", constants.ErrConfig, constants.ErrMissingGraphSettings)
		}
	case StorageS3:
		if s.S3Bucket == "" {
			return fmt.Errorf("%w: %s", constants.ErrConfig, constants.ErrMissingS3Bucket)
		}
	default:
		return fmt.Errorf("%w: "+constants.ErrUnknownStorageBackend, constants.ErrConfig, s.Backend)
	}
	return nil
}

func parseUnixSeconds(v string) time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}
	}
	var secs float64
	if _, err := fmt.Sscanf(v, "%g", &secs); err != nil || secs <= 0 {
		return time.Time{}
	}
	return time.Unix(0, int64(secs*float64(time.Second)))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
