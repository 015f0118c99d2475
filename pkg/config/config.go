package config

import (
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"golang.org/x/oauth2"
)

type Configuration struct {
	ListenAddr    string
	SessionSecret string
	BaseURL       string
	Database      struct {
		User     string
		Password string
		Host     string
		DB       string
		SSLMode  string
	}
	Mqtt struct {
		ListenAddr string
	}
	Blob struct {
		Bucket string
	}
	Tracking TrackingSettings
	SSO      SSOSettings
}

// TrackingSettings controls the presence tracker on both ends: how
// often units report and when an observer declares a signal lost.
type TrackingSettings struct {
	// ReportInterval is the cadence of position writes and of the
	// monitor's fallback poll.
	ReportInterval time.Duration
	// StaleAfter is the lost-signal threshold. A unit whose last report
	// is at least this old is classified lost by observing consoles.
	StaleAfter time.Duration
	// ReferencePoint seeds the synthetic coordinate source for units
	// with no live device fix.
	ReferenceLat float64
	ReferenceLng float64
}

// SSOSettings configures the optional OAuth login path. When Enabled is
// false the console only offers password login.
type SSOSettings struct {
	Enabled      bool
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
}

func (s SSOSettings) OAuthConfig(baseURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.ClientID,
		ClientSecret: s.ClientSecret,
		RedirectURL:  baseURL + "/auth/sso/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:  s.AuthURL,
			TokenURL: s.TokenURL,
		},
	}
}

// DSN builds the postgres connection string.
func (c *Configuration) DSN() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=%s",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.DB, sslMode)
}

// Load reads configuration from the given file (yaml) with OPSWATCH_*
// environment overrides.
func Load(path string) (*Configuration, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("OPSWATCH")
	v.AutomaticEnv()

	v.SetDefault("ListenAddr", ":8080")
	v.SetDefault("Mqtt.ListenAddr", ":1883")
	v.SetDefault("Database.SSLMode", "disable")
	v.SetDefault("Tracking.ReportInterval", "5s")
	v.SetDefault("Tracking.StaleAfter", "20s")
	v.SetDefault("Tracking.ReferenceLat", -33.4489)
	v.SetDefault("Tracking.ReferenceLng", -70.6483)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Configuration
	err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
	)))
	if err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if cfg.SessionSecret == "" {
		return nil, fmt.Errorf("SessionSecret is required")
	}
	return &cfg, nil
}
