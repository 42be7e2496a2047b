package config

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Server struct {
	DBPath  string `env:"DB_PATH, default=vipgate.db"`
	OpsAddr string `env:"OPS_ADDR, default=127.0.0.1:6580"`
	Dev     bool   `env:"DEV, default=false"`
}

type Telegram struct {
	Token    string  `env:"TOKEN, required"`
	ChatID   int64   `env:"CHAT_ID, required"`
	AdminIDs []int64 `env:"ADMIN_IDS"`

	// BypassToken grants entry without a partner lookup. The default
	// exists only so local setups boot; it is not a secret and must be
	// overridden in any real deployment.
	BypassToken string `env:"BYPASS_TOKEN, default=00000000010101010"`

	GroupName string `env:"GROUP_NAME, default=VIP"`
}

func (t Telegram) IsAdmin(id int64) bool {
	for _, admin := range t.AdminIDs {
		if admin == id {
			return true
		}
	}
	return false
}

type Partner struct {
	BaseURL    string `env:"BASE_URL, default=https://www.okx.com/api/v5"`
	APIKey     string `env:"API_KEY, required"`
	APISecret  string `env:"API_SECRET, required"`
	Passphrase string `env:"PASSPHRASE, required"`
}

type Report struct {
	Timezone    string `env:"TIMEZONE, default=America/Argentina/Buenos_Aires"`
	WeeklyDay   string `env:"WEEKLY_DAY, default=Sunday"`
	WeeklyTime  string `env:"WEEKLY_TIME, default=00:00"`
	MonthlyTime string `env:"MONTHLY_TIME, default=00:05"`
	MonthlyDay  int    `env:"MONTHLY_DAY, default=30"`
}

func (r Report) Location() (*time.Location, error) {
	return time.LoadLocation(r.Timezone)
}

func (r Report) Weekday() (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), r.WeeklyDay) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("invalid weekday %q", r.WeeklyDay)
}

// ParseClock parses a "HH:MM" time-of-day string.
func ParseClock(s string) (hour, minute int, err error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time-of-day %q", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid time-of-day %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid time-of-day %q", s)
	}
	return hour, minute, nil
}

type Resend struct {
	APIKey string `env:"API_KEY"`
	From   string `env:"FROM, default=reports@vipgate.org"`
	To     string `env:"TO"`
}

type Config struct {
	Server   Server   `env:",prefix=VIPGATE_SERVER_"`
	Telegram Telegram `env:",prefix=VIPGATE_TELEGRAM_"`
	Partner  Partner  `env:",prefix=VIPGATE_PARTNER_"`
	Report   Report   `env:",prefix=VIPGATE_REPORT_"`
	Resend   Resend   `env:",prefix=VIPGATE_RESEND_"`
}

func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	err := envconfig.Process(ctx, &cfg)
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
