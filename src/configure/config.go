package configure

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	jsoniter "github.com/json-iterator/go"
	"github.com/seventv/GifCropper/src/containers/gif"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	ErrNoSource         = fmt.Errorf("no source given")
	ErrNoDestination    = fmt.Errorf("no destination given")
	ErrUnknownQuantizer = fmt.Errorf("unknown quantizer")
	ErrBadLogLevel      = fmt.Errorf("bad log level")
	ErrNegativeValue    = fmt.Errorf("value must not be negative")
)

func checkErr(err error) {
	if err != nil {
		logrus.WithError(err).Fatal("config")
	}
}

// New loads the process configuration from the command line, the config file and the
// environment, then sets up logging. Any problem is fatal.
func New() *Config {
	cfg, err := Load(pflag.CommandLine, os.Args[1:])
	checkErr(err)
	checkErr(cfg.Validate())

	initLogging(cfg.LogLevel, cfg.NoLogs)

	return cfg
}

func defaults() Config {
	return Config{
		LogLevel:     "info",
		Config:       "config.yaml",
		DefaultDelay: 100,
		Quantizer:    gif.QuantizerMedianCut,
	}
}

// Load builds a Config from the given flag set and arguments. Positional arguments fill in
// the source and destination when the flags leave them empty.
func Load(flags *pflag.FlagSet, args []string) (*Config, error) {
	config := viper.New()
	config.SetConfigType("yaml")

	b, err := json.Marshal(defaults())
	if err != nil {
		return nil, err
	}

	tmp := viper.New()
	tmp.SetConfigType("json")
	if err := tmp.ReadConfig(bytes.NewBuffer(b)); err != nil {
		return nil, err
	}
	for k, v := range tmp.AllSettings() {
		config.SetDefault(k, v)
	}

	flags.String("config", "config.yaml", "Config file location")
	flags.Bool("noheader", false, "Disable the startup header")
	flags.Bool("nologs", false, "Disable logging")
	flags.String("log_level", "info", "Log level (trace, debug, info, warn, error)")
	flags.StringP("source", "s", "", "Source image, a local path or s3://bucket/key")
	flags.StringP("destination", "d", "", "Destination gif, a local path or s3://bucket/key")
	flags.Int("default_delay", 100, "Frame duration in milliseconds used when the source has none")
	flags.String("quantizer", gif.QuantizerMedianCut, "Palette quantizer (mediancut, websafe)")
	flags.Bool("report", false, "Print a json report of the result on stdout")
	flags.Int("max_task_duration", 0, "Abort after this many seconds, 0 disables the limit")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	if err := config.BindPFlags(flags); err != nil {
		return nil, err
	}

	config.SetConfigFile(config.GetString("config"))
	if err := config.ReadInConfig(); err == nil {
		logrus.Debug("using config file: ", config.ConfigFileUsed())
	}

	config.SetEnvPrefix("GIFCROP")
	config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.AllowEmptyEnv(true)
	config.AutomaticEnv()
	for _, k := range []string{"aws.access_token", "aws.secret_key", "aws.region", "aws.endpoint"} {
		if err := config.BindEnv(k); err != nil {
			return nil, err
		}
	}

	cfg := Config{}
	if err := config.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.Source == "" && flags.NArg() > 0 {
		cfg.Source = flags.Arg(0)
	}
	if cfg.Destination == "" && flags.NArg() > 1 {
		cfg.Destination = flags.Arg(1)
	}

	return &cfg, nil
}

type Config struct {
	LogLevel string `json:"log_level,omitempty" mapstructure:"log_level,omitempty"`
	Config   string `json:"config,omitempty" mapstructure:"config,omitempty"`
	NoHeader bool   `json:"noheader,omitempty" mapstructure:"noheader,omitempty"`
	NoLogs   bool   `json:"nologs,omitempty" mapstructure:"nologs,omitempty"`

	Source      string `json:"source,omitempty" mapstructure:"source,omitempty"`
	Destination string `json:"destination,omitempty" mapstructure:"destination,omitempty"`

	// Aws
	Aws struct {
		AccessToken string `json:"access_token,omitempty" mapstructure:"access_token,omitempty"`
		SecretKey   string `json:"secret_key,omitempty" mapstructure:"secret_key,omitempty"`
		Region      string `json:"region,omitempty" mapstructure:"region,omitempty"`
		Endpoint    string `json:"endpoint,omitempty" mapstructure:"endpoint,omitempty"`
	} `json:"aws,omitempty" mapstructure:"aws,omitempty"`

	DefaultDelay    int    `json:"default_delay,omitempty" mapstructure:"default_delay,omitempty"`
	Quantizer       string `json:"quantizer,omitempty" mapstructure:"quantizer,omitempty"`
	Report          bool   `json:"report,omitempty" mapstructure:"report,omitempty"`
	MaxTaskDuration int    `json:"max_task_duration,omitempty" mapstructure:"max_task_duration,omitempty"`
}

// Validate reports every problem with the config, not just the first one.
func (c *Config) Validate() error {
	var err error

	if c.Source == "" {
		err = multierror.Append(err, ErrNoSource)
	}
	if c.Destination == "" {
		err = multierror.Append(err, ErrNoDestination)
	}

	switch c.Quantizer {
	case gif.QuantizerMedianCut, gif.QuantizerWebSafe:
	default:
		err = multierror.Append(err, fmt.Errorf("%w: %q", ErrUnknownQuantizer, c.Quantizer))
	}

	if _, e := logrus.ParseLevel(c.LogLevel); e != nil {
		err = multierror.Append(err, fmt.Errorf("%w: %q", ErrBadLogLevel, c.LogLevel))
	}
	if c.DefaultDelay < 0 {
		err = multierror.Append(err, fmt.Errorf("default_delay: %w", ErrNegativeValue))
	}
	if c.MaxTaskDuration < 0 {
		err = multierror.Append(err, fmt.Errorf("max_task_duration: %w", ErrNegativeValue))
	}

	return err
}
