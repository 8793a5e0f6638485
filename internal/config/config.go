/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/HamedShams/sprint-metrics/internal/domain"
	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv string
	TZ     string

	JiraBaseURL        string
	JiraUsername       string
	JiraPassword       string
	JiraPAT            string
	StoryPointsField   string
	CommittedDateField string
	JiraPageSize       int
	HTTPTimeout        time.Duration

	CaptureLocation string
	DBDSN           string

	HTTPAddr    string
	DigestCron  string
	ReportBoard string

	TelegramToken   string
	TelegramChatIDs []int64

	OpenAIKey     string
	OpenAIModel   string
	OpenAITimeout time.Duration

	loc *time.Location
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func atoi(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func dur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func parseInt64s(csv string) []int64 {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.ParseInt(p, 10, 64)
		if err == nil {
			out = append(out, n)
		}
	}
	return out
}

// Load reads envFile into the process environment (without overriding
// variables already set) and builds a Config from the environment. A missing
// envFile is only an error when required is true.
func Load(envFile string, required bool) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if required || !errors.Is(err, fs.ErrNotExist) {
				return Config{}, domain.ConfigError("load %s: %v", envFile, err)
			}
		}
	}

	cfg := Config{
		AppEnv: getenv("APP_ENV", "dev"),
		TZ:     getenv("APP_TZ", ""),

		JiraBaseURL:        strings.TrimRight(getenv("JIRA_URL", ""), "/"),
		JiraUsername:       getenv("JIRA_USERNAME", ""),
		JiraPassword:       getenv("JIRA_PASSWORD", ""),
		JiraPAT:            getenv("JIRA_PAT", ""),
		StoryPointsField:   getenv("JIRA_STORY_POINTS_CUSTOM_FIELD", ""),
		CommittedDateField: getenv("JIRA_COMMITTED_DATE_CUSTOM_FIELD", ""),
		JiraPageSize:       atoi("JIRA_PAGE_SIZE", 500),
		HTTPTimeout:        dur("HTTP_TIMEOUT", 30*time.Second),

		CaptureLocation: getenv("CAPTURE_LOCATION", "."),
		DBDSN:           getenv("DB_DSN", ""),

		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		DigestCron:  getenv("CRON_SPEC", "0 10 * * FRI"),
		ReportBoard: getenv("REPORT_BOARD", ""),

		TelegramToken:   getenv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatIDs: parseInt64s(getenv("TELEGRAM_CHAT_IDS", "")),

		OpenAIKey:     getenv("OPENAI_API_KEY", ""),
		OpenAIModel:   getenv("OPENAI_MODEL", "gpt-4.1-mini"),
		OpenAITimeout: dur("OPENAI_TIMEOUT", 30*time.Second),
	}
	if cfg.JiraPageSize <= 0 {
		cfg.JiraPageSize = 500
	}

	if cfg.TZ != "" {
		loc, err := time.LoadLocation(cfg.TZ)
		if err != nil {
			return Config{}, domain.ConfigError("cannot load APP_TZ %q: %v", cfg.TZ, err)
		}
		cfg.loc = loc
	}
	return cfg, nil
}

// Location is the zone for calendar dates: APP_TZ when set, else the host's.
func (c Config) Location() *time.Location {
	if c.loc == nil {
		return time.Local
	}
	return c.loc
}

// Validate checks what a run needs. Offline runs replay captured data and
// never talk to Jira, so they need neither credentials nor field names.
func (c Config) Validate(offline bool) error {
	if offline {
		return nil
	}
	var missing []string
	if c.JiraBaseURL == "" {
		missing = append(missing, "JIRA_URL")
	}
	if c.JiraPAT == "" && (c.JiraUsername == "" || c.JiraPassword == "") {
		missing = append(missing, "JIRA_USERNAME and JIRA_PASSWORD (or JIRA_PAT)")
	}
	if c.StoryPointsField == "" {
		missing = append(missing, "JIRA_STORY_POINTS_CUSTOM_FIELD")
	}
	if c.CommittedDateField == "" {
		missing = append(missing, "JIRA_COMMITTED_DATE_CUSTOM_FIELD")
	}
	if len(missing) > 0 {
		return domain.ConfigError("missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// Notify reports whether report delivery to Telegram is configured.
func (c Config) Notify() bool {
	return c.TelegramToken != "" && len(c.TelegramChatIDs) > 0
}

func (c Config) String() string {
	return fmt.Sprintf("env=%s jira=%s user=%s capture=%s db=%t telegram=%t openai=%t",
		c.AppEnv, c.JiraBaseURL, c.JiraUsername, c.CaptureLocation, c.DBDSN != "", c.Notify(), c.OpenAIKey != "")
}
