package app

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-i2p/logger"
	"github.com/samber/oops"
	"github.com/spf13/viper"

	"sascheck/internal/domain"
	"sascheck/internal/protocol/auth"
	"sascheck/internal/relay"
)

var log = logger.GetGoI2PLogger()

// BaseDir is the default home directory name under the user's home.
const BaseDir = ".sascheck"

// Config holds runtime wiring options for building the app.
type Config struct {
	Home         string        // config directory, e.g. $HOME/.sascheck
	RelayURL     string        // relay base URL, e.g. http://127.0.0.1:8080
	Policy       domain.Policy // default liveness policy
	Digits       int
	Timeouts     auth.Timeouts
	PollInterval time.Duration
	HTTP         *http.Client // optional; defaults to http.DefaultClient
}

// DefaultHome returns $HOME/.sascheck, or .sascheck if $HOME is unknown.
func DefaultHome() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		return BaseDir
	}
	return filepath.Join(dir, BaseDir)
}

// NewViper returns a viper instance with defaults, environment binding and
// the config file location set. cfgFile overrides the search path.
func NewViper(cfgFile string) *viper.Viper {
	v := viper.New()
	v.SetDefault("home", DefaultHome())
	v.SetDefault("relay", "http://127.0.0.1:8080")
	v.SetDefault("policy", string(domain.PolicyLive))
	v.SetDefault("digits", 6)
	v.SetDefault("relay_poll", relay.DefaultPollInterval)

	v.SetEnvPrefix("SASCHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(DefaultHome())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	return v
}

// LoadConfig reads the config file, if any, and resolves v into a Config.
// Phase timeouts not set explicitly come from the policy's defaults.
func LoadConfig(v *viper.Viper) (Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return Config{}, oops.Wrapf(err, "reading config")
		}
		log.WithFields(logger.Fields{"at": "LoadConfig"}).Debug("no config file, using defaults")
	}

	policy, err := domain.ParsePolicy(v.GetString("policy"))
	if err != nil {
		return Config{}, oops.Wrapf(err, "config key policy")
	}
	t := auth.DefaultTimeouts(policy)
	for key, dst := range map[string]*time.Duration{
		"timeouts.wait_commit":  &t.WaitCommit,
		"timeouts.wait_offer":   &t.WaitOffer,
		"timeouts.wait_reveal":  &t.WaitReveal,
		"timeouts.sas":          &t.SAS,
		"timeouts.peer_confirm": &t.PeerConfirm,
	} {
		if v.IsSet(key) {
			*dst = v.GetDuration(key)
		}
	}

	cfg := Config{
		Home:         v.GetString("home"),
		RelayURL:     strings.TrimRight(v.GetString("relay"), "/"),
		Policy:       policy,
		Digits:       v.GetInt("digits"),
		Timeouts:     t,
		PollInterval: v.GetDuration("relay_poll"),
	}
	if cfg.Home == "" {
		return Config{}, oops.Errorf("config key home is empty")
	}
	return cfg, nil
}
