package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

// EnvPrefix namespaces environment overrides, e.g. MAPCHAT_CACHE_BACKEND.
const EnvPrefix = "MAPCHAT"

type Config struct {
	Mode   string `mapstructure:"mode"`
	Dotenv string `mapstructure:"dotenv"`
	Server struct {
		HTTPPort        string        `mapstructure:"HTTPPort"`
		Timeout         time.Duration `mapstructure:"HTTPTimeout"`
		ReadTimeout     time.Duration `mapstructure:"readTimeout"`
		WriteTimeout    time.Duration `mapstructure:"writeTimeout"`
		IdleTimeout     time.Duration `mapstructure:"idleTimeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
		AllowedOrigins  []string      `mapstructure:"allowedOrigins"`
		RateLimit       struct {
			Requests int           `mapstructure:"requests"`
			Window   time.Duration `mapstructure:"window"`
		} `mapstructure:"rateLimit"`
	} `mapstructure:"server"`
	Pipeline struct {
		UpstreamLimit   int     `mapstructure:"upstreamLimit"`
		FallbackLimit   int     `mapstructure:"fallbackLimit"`
		ResultCap       int     `mapstructure:"resultCap"`
		DefaultRadiusM  float64 `mapstructure:"defaultRadiusM"`
		RegionQualifier string  `mapstructure:"regionQualifier"`
	} `mapstructure:"pipeline"`
	Providers struct {
		NominatimURL string        `mapstructure:"nominatimURL"`
		OverpassURL  string        `mapstructure:"overpassURL"`
		UserAgent    string        `mapstructure:"userAgent"`
		Timeout      time.Duration `mapstructure:"timeout"`
	} `mapstructure:"providers"`
	Cache struct {
		Backend         string        `mapstructure:"backend"`
		TTL             time.Duration `mapstructure:"ttl"`
		CleanupInterval time.Duration `mapstructure:"cleanupInterval"`
		ValkeyAddr      string        `mapstructure:"valkeyAddr"`
	} `mapstructure:"cache"`
	LLM struct {
		APIKey      string  `mapstructure:"apiKey"`
		Model       string  `mapstructure:"model"`
		Temperature float32 `mapstructure:"temperature"`
	} `mapstructure:"llm"`
	Session struct {
		Secret string        `mapstructure:"secret"`
		Issuer string        `mapstructure:"issuer"`
		TTL    time.Duration `mapstructure:"ttl"`
	} `mapstructure:"session"`
	Observability struct {
		ServiceName  string `mapstructure:"serviceName"`
		OTLPEndpoint string `mapstructure:"otlpEndpoint"`
	} `mapstructure:"observability"`
}

func InitConfig() (Config, error) {
	v := newViper()

	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")
	v.AddConfigPath("/usr/local/bin")

	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
		}
	}

	config, err := load(v)
	if err != nil {
		return Config{}, err
	}
	fmt.Println("Successfully loaded app configs...")
	return config, nil
}

// Embedded loads only the compiled-in defaults plus environment overrides.
func Embedded() (Config, error) {
	v := newViper()
	if err := v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
		return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
	}
	return load(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yml")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Provider keys conventionally live outside the app namespace.
	_ = v.BindEnv("llm.apiKey", EnvPrefix+"_LLM_APIKEY", "GOOGLE_GEMINI_API_KEY")
	_ = v.BindEnv("session.secret", EnvPrefix+"_SESSION_SECRET", "JWT_SECRET_KEY")
	return v
}

func load(v *viper.Viper) (Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// Validate rejects values the service cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.Server.HTTPPort == "" {
		errs = append(errs, errors.New("server.HTTPPort is required"))
	}
	if c.Pipeline.ResultCap <= 0 {
		errs = append(errs, errors.New("pipeline.resultCap must be positive"))
	}
	if c.Pipeline.DefaultRadiusM <= 0 {
		errs = append(errs, errors.New("pipeline.defaultRadiusM must be positive"))
	}
	switch c.Cache.Backend {
	case "", "memory", "valkey":
	default:
		errs = append(errs, fmt.Errorf("cache.backend %q is not supported", c.Cache.Backend))
	}
	if c.Cache.Backend == "valkey" && c.Cache.ValkeyAddr == "" {
		errs = append(errs, errors.New("cache.valkeyAddr is required for the valkey backend"))
	}
	return errors.Join(errs...)
}

// IsDevelopment reports whether the service runs in development mode.
func (c Config) IsDevelopment() bool {
	return c.Mode == "" || c.Mode == "development"
}
