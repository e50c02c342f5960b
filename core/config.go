package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env              string `mapstructure:"env"`
		Debug            bool   `mapstructure:"debug"`
		TestMode         bool   `mapstructure:"testMode"`
		AppName          string `mapstructure:"appName"`
		Build            string `mapstructure:"build"`
		WorkDir          string `mapstructure:"workDir"`
		SecretKey        string `mapstructure:"secretKey"`
		FrontendBaseURL  string `mapstructure:"frontendBaseURL"`
		DefaultFromEmail string `mapstructure:"defaultFromEmail"`
		RollbarToken     string `mapstructure:"rollbarToken"`

		Server   ServerConfig   `mapstructure:"server"`
		Database DatabaseConfig `mapstructure:"database"`
		Mail     MailConfig     `mapstructure:"mail"`
		Media    MediaConfig    `mapstructure:"media"`
	}

	ServerConfig struct {
		Host                      string        `mapstructure:"host"`
		Address                   string        `mapstructure:"address"`
		DebugHost                 string        `mapstructure:"debugHost"`
		ShutdownTimeout           time.Duration `mapstructure:"shutdownTimeout"`
		JWTExpirationDelta        time.Duration `mapstructure:"jwtExpirationDelta"`
		JWTRefreshExpirationDelta time.Duration `mapstructure:"jwtRefreshExpirationDelta"`
		PasswordResetTimeoutDelta time.Duration `mapstructure:"passwordResetTimeoutDelta"`
		AllowedOrigins            []string      `mapstructure:"allowedOrigins"`
	}

	DatabaseConfig struct {
		Engine        string `mapstructure:"engine"`
		Host          string `mapstructure:"host"`
		Port          string `mapstructure:"port"`
		Name          string `mapstructure:"name"`
		User          string `mapstructure:"user"`
		Password      string `mapstructure:"password"`
		AdminUser     string `mapstructure:"adminUser"`
		AdminPassword string `mapstructure:"adminPassword"`
		DisableTLS    bool   `mapstructure:"disableTLS"`
		MaxOpenConns  int    `mapstructure:"maxOpenConns"`
	}

	MailConfig struct {
		Backend        string `mapstructure:"backend"` // console | sendgrid | smtp
		SendgridAPIKey string `mapstructure:"sendgridAPIKey"`
	}

	MediaConfig struct {
		Backend       string `mapstructure:"backend"` // local | s3
		MaxUploadSize int64  `mapstructure:"maxUploadSize"`
		LocalDir      string `mapstructure:"localDir"`
		PublicBaseURL string `mapstructure:"publicBaseURL"`
		S3Bucket      string `mapstructure:"s3Bucket"`
		S3Region      string `mapstructure:"s3Region"`
		S3Endpoint    string `mapstructure:"s3Endpoint"`
		S3AccessKey   string `mapstructure:"s3AccessKey"`
		S3SecretKey   string `mapstructure:"s3SecretKey"`
	}
)

func (c DatabaseConfig) Address() string {
	return c.Host + ":" + c.Port
}

// DefaultFrom parses DefaultFromEmail; it may be a bare address or "Name <address>".
func (c *Config) DefaultFrom() mail.Address {
	if addr, err := mail.ParseAddress(c.DefaultFromEmail); err == nil {
		return *addr
	}
	return mail.Address{Name: c.AppName, Address: c.DefaultFromEmail}
}

// devSecretKey signs tokens on developer machines only; QA and PROD refuse to start with it.
const devSecretKey = "p4q5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy"

// ErrInsecureSecretKey is returned when a deployed environment has no secret key of its own.
var ErrInsecureSecretKey = errors.New("secretKey must be set for this environment")

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Vitrine")
	v.SetDefault("build", "develop")
	v.SetDefault("workDir", "")
	v.SetDefault("secretKey", devSecretKey)
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":4000")
	v.SetDefault("server.debugHost", "localhost:4010")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 8*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.passwordResetTimeoutDelta", 3*24*time.Hour)
	v.SetDefault("server.allowedOrigins", []string{"http://localhost:3000"})

	v.SetDefault("database.engine", "mysql")
	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", "3306")
	v.SetDefault("database.name", "vitrine")
	v.SetDefault("database.user", "vitrine")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "root")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.maxOpenConns", 10)

	v.SetDefault("mail.backend", "")
	v.SetDefault("mail.sendgridAPIKey", "")

	v.SetDefault("media.backend", "local")
	v.SetDefault("media.maxUploadSize", 8<<20)
	v.SetDefault("media.localDir", "media")
	v.SetDefault("media.publicBaseURL", "http://localhost:4000/media")
	v.SetDefault("media.s3Bucket", "")
	v.SetDefault("media.s3Region", "us-east-1")
	v.SetDefault("media.s3Endpoint", "")
	v.SetDefault("media.s3AccessKey", "")
	v.SetDefault("media.s3SecretKey", "")
}

// NewConfig loads the configuration for the environment named by $ENV (DEV by default).
// Every key can be overridden with an environment variable prefixed with the environment name,
// e.g. PROD_DATABASE_PASSWORD for database.password.
func NewConfig() *Config {
	conf, err := LoadConfig(os.Getenv("ENV"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return conf
}

func LoadConfig(env string) (*Config, error) {
	env = strings.ToUpper(strings.TrimSpace(env)) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}

	v := viper.New()
	setDefaults(v)
	v.SetDefault("env", env)
	v.SetDefault("debug", env == "DEV")
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(workDir(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "stat %s", dotEnvPath)
	}

	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	conf := new(Config)
	if err := v.Unmarshal(conf); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	if conf.WorkDir == "" {
		conf.WorkDir = workDir()
	}
	if deployed(env) && (strings.TrimSpace(conf.SecretKey) == "" || conf.SecretKey == devSecretKey) {
		return nil, errors.Wrapf(ErrInsecureSecretKey, "set %s_SECRETKEY", env)
	}
	if conf.Mail.Backend == "" {
		conf.Mail.Backend = "smtp"
		if conf.Debug {
			conf.Mail.Backend = "console"
		}
	}
	return conf, nil
}

// NewTestConfig returns a config for unit tests; it never reads the environment.
func NewTestConfig() *Config {
	v := viper.New()
	setDefaults(v)
	v.Set("env", "TEST")
	v.Set("testMode", true)
	v.Set("debug", false)
	v.Set("secretKey", "secret")
	v.Set("mail.backend", "console")

	conf := new(Config)
	if err := v.Unmarshal(conf); err != nil {
		log.Fatalf("config: %v", err)
	}
	return conf
}

// deployed tells whether env runs outside developer machines.
func deployed(env string) bool {
	return env == "QA" || env == "PROD"
}

func workDir() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}
