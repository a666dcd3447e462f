package config

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "UTC"
	configPathEnv   = "INCIDENT_SCANNER_CONFIG"
	dotEnvFile      = ".env"

	databaseDSNEnv      = "DATABASE_DSN"
	telegramTokenEnv    = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv   = "TELEGRAM_CHAT_ID"
	logLevelEnv         = "LOG_LEVEL"
	filesJSONEnv        = "FILES_JSON"
	lastWeekdayJSONEnv  = "FILES_LAST_WEEKDAY_JSON"
	cvDirEnv            = "CV_DIR"
	outputDirEnv        = "OUTPUT_DIR"
	sourceWorkersEnv    = "SOURCE_WORKERS"
	defaultSourceWorker = 4
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Inputs        InputConfig        `yaml:"inputs"`
	Output        OutputConfig       `yaml:"output"`
	Workers       WorkerConfig       `yaml:"workers"`
	Detection     DetectionConfig    `yaml:"detection"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// LoggingConfig selects the slog level and handler format ("text" or "json").
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig describes Postgres connection details. An empty DSN
// disables the incident ledger.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// SchedulerConfig defines when the daily run fires.
type SchedulerConfig struct {
	RunAt    string         `yaml:"runAt"`
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	return time.UTC
}

// InputConfig points at the daily manifests and the CV directory.
type InputConfig struct {
	FilesJSON            string `yaml:"filesJson"`
	FilesLastWeekdayJSON string `yaml:"filesLastWeekdayJson"`
	CVDir                string `yaml:"cvDir"`
}

// OutputConfig is where report bundles are written.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// WorkerConfig bounds concurrency.
type WorkerConfig struct {
	Sources int `yaml:"sources"`
}

// DetectionConfig carries the detector tunables.
type DetectionConfig struct {
	UrgentEmptyPerEntity int      `yaml:"urgentEmptyPerEntity"`
	LateThresholdMinutes int      `yaml:"lateThresholdMinutes"`
	DailyTotalRatio      float64  `yaml:"dailyTotalRatio"`
	LagToleranceDays     int      `yaml:"lagToleranceDays"`
	BandCushion          float64  `yaml:"bandCushion"`
	Enabled              []string `yaml:"enabled"`
}

// LateThreshold returns the grace period as a duration.
func (d DetectionConfig) LateThreshold() time.Duration {
	return time.Duration(d.LateThresholdMinutes) * time.Minute
}

// orDefaults replaces values no detector can work with by the matching
// value of def. Zero is a valid setting for every field except the ratio.
func (d DetectionConfig) orDefaults(def DetectionConfig) DetectionConfig {
	if d.UrgentEmptyPerEntity < 0 {
		log.Printf("config: ignoring urgentEmptyPerEntity=%d", d.UrgentEmptyPerEntity)
		d.UrgentEmptyPerEntity = def.UrgentEmptyPerEntity
	}
	if d.LateThresholdMinutes < 0 {
		log.Printf("config: ignoring lateThresholdMinutes=%d", d.LateThresholdMinutes)
		d.LateThresholdMinutes = def.LateThresholdMinutes
	}
	if d.DailyTotalRatio <= 0 {
		d.DailyTotalRatio = def.DailyTotalRatio
	}
	if d.LagToleranceDays < 0 {
		log.Printf("config: ignoring lagToleranceDays=%d", d.LagToleranceDays)
		d.LagToleranceDays = def.LagToleranceDays
	}
	if d.BandCushion < 0 || d.BandCushion >= 1 {
		log.Printf("config: ignoring bandCushion=%v", d.BandCushion)
		d.BandCushion = def.BandCushion
	}
	if len(d.Enabled) == 0 {
		d.Enabled = def.Enabled
	}
	return d
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Enabled reports whether both bot token and chat are set.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// Load reads .env and YAML configuration (if present) and applies
// environment overrides.
func Load() Config {
	if err := godotenv.Load(dotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("config: cannot load %s: %v", dotEnvFile, err)
	}

	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			// Detection keys are decoded over the defaults so an explicit zero
			// survives the merge.
			fileCfg := Config{Detection: cfg.Detection}
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

func (c *Config) applyEnvOverrides() {
	overrides := []struct {
		env    string
		target *string
	}{
		{databaseDSNEnv, &c.Database.DSN},
		{telegramTokenEnv, &c.Notifications.Telegram.BotToken},
		{telegramChatIDEnv, &c.Notifications.Telegram.ChatID},
		{logLevelEnv, &c.Logging.Level},
		{filesJSONEnv, &c.Inputs.FilesJSON},
		{lastWeekdayJSONEnv, &c.Inputs.FilesLastWeekdayJSON},
		{cvDirEnv, &c.Inputs.CVDir},
		{outputDirEnv, &c.Output.Dir},
	}
	for _, o := range overrides {
		if v := strings.TrimSpace(os.Getenv(o.env)); v != "" {
			*o.target = v
		}
	}

	if v := os.Getenv(sourceWorkersEnv); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			log.Printf("config: ignoring %s=%q", sourceWorkersEnv, v)
		} else {
			c.Workers.Sources = n
		}
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		tz, loc = defaultTimezone, time.UTC
	}
	c.Scheduler.Timezone = tz
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	mergeString(&base.Logging.Level, override.Logging.Level)
	mergeString(&base.Logging.Format, override.Logging.Format)
	mergeString(&base.Database.DSN, override.Database.DSN)
	mergeString(&base.Scheduler.RunAt, override.Scheduler.RunAt)
	mergeString(&base.Scheduler.Timezone, override.Scheduler.Timezone)
	mergeString(&base.Inputs.FilesJSON, override.Inputs.FilesJSON)
	mergeString(&base.Inputs.FilesLastWeekdayJSON, override.Inputs.FilesLastWeekdayJSON)
	mergeString(&base.Inputs.CVDir, override.Inputs.CVDir)
	mergeString(&base.Output.Dir, override.Output.Dir)
	mergeString(&base.Notifications.Telegram.BotToken, override.Notifications.Telegram.BotToken)
	mergeString(&base.Notifications.Telegram.ChatID, override.Notifications.Telegram.ChatID)

	if override.Workers.Sources > 0 {
		base.Workers.Sources = override.Workers.Sources
	}

	base.Detection = override.Detection.orDefaults(base.Detection)

	return base
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func defaultConfig() Config {
	return Config{
		Logging:   LoggingConfig{Level: "info", Format: "text"},
		Scheduler: SchedulerConfig{RunAt: "06:00", Timezone: defaultTimezone, location: time.UTC},
		Inputs: InputConfig{
			FilesJSON:            "files.json",
			FilesLastWeekdayJSON: "files_last_weekday.json",
			CVDir:                "cvs",
		},
		Output:  OutputConfig{Dir: "reports"},
		Workers: WorkerConfig{Sources: defaultSourceWorker},
		Detection: DetectionConfig{
			UrgentEmptyPerEntity: 3,
			LateThresholdMinutes: 240,
			DailyTotalRatio:      20,
			LagToleranceDays:     1,
			BandCushion:          0.10,
		},
	}
}
