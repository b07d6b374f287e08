package infra

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pot-code/progress-engine/internal/infrastructure/validate"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix env prefix for viper
const EnvPrefix = "GOAPP"

// runtime environments
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// DriverMemory keeps progress and catalog in process, no database is needed
const DriverMemory = "memory"

// AppConfig App option object
type AppConfig struct {
	AppID          string        `mapstructure:"app_id" json:"app_id" yaml:"app_id" validate:"required"`            // Application ID
	Host           string        `mapstructure:"host" json:"host" yaml:"host"`                                      // bind host address
	Port           int           `mapstructure:"port" json:"port" yaml:"port"`                                      // bind listen port
	Env            string        `mapstructure:"env" json:"env" yaml:"env" validate:"oneof=development production"` // runtime environment
	EnvFile        string        `mapstructure:"env_file" json:"env_file" yaml:"env_file"`                          // optional dotenv file
	SessionTimeout time.Duration `mapstructure:"session_timeout" json:"session_timeout" yaml:"session_timeout"`
	SessionRefresh time.Duration `mapstructure:"session_refresh" json:"session_refresh" yaml:"session_refresh"` // session refresh threshold
	RequestTimeout time.Duration `mapstructure:"request_timeout" json:"request_timeout" yaml:"request_timeout"` // abort request after
	Database       struct {
		Driver   string `mapstructure:"driver" json:"driver" yaml:"driver" validate:"oneof=postgres mysql memory"`   // driver name
		Host     string `mapstructure:"host" json:"host" yaml:"host"`                                                // server host
		MaxConn  int32  `mapstructure:"maxconn" json:"maxconn" yaml:"maxconn" validate:"min=1"`                      // maximum opening connections number
		Password string `mapstructure:"password" json:"-" yaml:"password"`                                           // db password
		Port     int    `mapstructure:"port" json:"port" yaml:"port"`                                                // server port
		Protocol string `mapstructure:"protocol" json:"protocol" yaml:"protocol" validate:"omitempty,oneof=tcp udp"` // connection protocol, eg.tcp
		Query    string `mapstructure:"query" json:"query" yaml:"query"`                                             // DSN query parameter
		Schema   string `mapstructure:"schema" json:"schema" yaml:"schema"`                                          // use schema
		User     string `mapstructure:"username" json:"username" yaml:"username"`                                    // db username
	} `mapstructure:"database" json:"database" yaml:"database"`
	Logging struct {
		FilePath string `mapstructure:"file_path" json:"file_path" yaml:"file_path"`                            // log file path
		Level    string `mapstructure:"level" json:"level" yaml:"level" validate:"oneof=debug info warn error"` // global logging level
	} `mapstructure:"logging" json:"logging" yaml:"logging"`
	Security struct {
		IDLength  int    `mapstructure:"id_length" json:"id_length" yaml:"id_length" validate:"min=8"` // length of generated ID for entities
		JWTMethod string `mapstructure:"jwt_method" json:"jwt_method" yaml:"jwt_method" validate:"oneof=HS256 HS512"`
		JWTSecret string `mapstructure:"jwt_secret" json:"-" yaml:"jwt_secret" validate:"required"`
		TokenName string `mapstructure:"token_name" json:"token_name" yaml:"token_name" validate:"required"` // jwt token name set in cookie
	} `mapstructure:"security" json:"security" yaml:"security"`
	KVStore struct {
		Host       string        `mapstructure:"host" json:"host" yaml:"host"`                      // kv server host, in process store is used if empty
		Port       int           `mapstructure:"port" json:"port" yaml:"port"`                      // kv server port
		Password   string        `mapstructure:"password" json:"-" yaml:"password"`                 // password for security reasons
		CatalogTTL time.Duration `mapstructure:"catalog_ttl" json:"catalog_ttl" yaml:"catalog_ttl"` // course metadata cache lifetime, 0 disables caching
	} `mapstructure:"kv" json:"kv" yaml:"kv"`
	Progress struct {
		CompletionThreshold float64       `mapstructure:"completion_threshold" json:"completion_threshold" yaml:"completion_threshold" validate:"gt=0,lte=1"`
		RewindTolerance     time.Duration `mapstructure:"rewind_tolerance" json:"rewind_tolerance" yaml:"rewind_tolerance" validate:"min=0"`
		SkewTolerance       time.Duration `mapstructure:"skew_tolerance" json:"skew_tolerance" yaml:"skew_tolerance" validate:"min=0"`
		DurationTolerance   time.Duration `mapstructure:"duration_tolerance" json:"duration_tolerance" yaml:"duration_tolerance" validate:"min=0"`
	} `mapstructure:"progress" json:"progress" yaml:"progress"`
	Dashboard struct {
		MaxParallel int `mapstructure:"max_parallel" json:"max_parallel" yaml:"max_parallel" validate:"min=1"` // concurrent course summaries per request
	} `mapstructure:"dashboard" json:"dashboard" yaml:"dashboard"`
	DevOP struct {
		APM bool `mapstructure:"apm" json:"apm" yaml:"apm"`
	} `mapstructure:"devop" json:"devop" yaml:"devop"`
}

// InitConfig init app config using viper
func InitConfig() (*AppConfig, error) {
	// app
	pflag.String("host", "", "binding address")
	pflag.String("app_id", "", "application identifier (required)")
	pflag.String("env", EnvDevelopment, "runtime environment, can be 'development' or 'production'")
	pflag.String("env_file", ".env", "dotenv file to load GOAPP_* variables from, skipped if missing")
	pflag.Int("port", 8081, "listening port")
	pflag.Duration("session_timeout", 30*time.Minute, "JWT lifetime(m, s and h units are supported), eg.30m")
	pflag.Duration("session_refresh", 5*time.Minute, "session refresh threshold(m, s and h units are supported), eg.5m")
	pflag.Duration("request_timeout", 10*time.Second, "abort request after this duration")

	// database
	pflag.String("database.driver", "postgres", "database driver to use, can be 'postgres', 'mysql' or 'memory'")
	pflag.String("database.host", "127.0.0.1", "database host")
	pflag.Int("database.port", 5432, "database server port")
	pflag.String("database.protocol", "", "connection protocol(if mysql is used, this flag must be set), eg.tcp")
	pflag.String("database.username", "", "database username (required unless driver is memory)")
	pflag.String("database.password", "", "database password")
	pflag.String("database.schema", "", "database schema (required unless driver is memory)")
	pflag.String("database.query", "", `additional DSN query parameters('?' is auto prefixed), if you work with mysql you
must specify "parseTime=true"`)
	pflag.Int32("database.maxconn", 50, `max connection count, if you encounter a "too many connections" error, please consider
increasing the max_connection value of your db server, or lower this value`)

	// logging
	pflag.String("logging.level", "info", "logging level")
	pflag.String("logging.file_path", "", "log to file")

	// security
	pflag.Int("security.id_length", 21, "set length of generated ID for entities")
	pflag.String("security.jwt_method", "HS256", "hash algorithm used for JWT auth")
	pflag.String("security.jwt_secret", "", "JWT secret (required)")
	pflag.String("security.token_name", "token", "cookie name to store the token")

	// kv storage
	pflag.String("kv.host", "", "kv host, an in process store is used if empty")
	pflag.Int("kv.port", 6379, "kv server port")
	pflag.String("kv.password", "", "kv server password")
	pflag.Duration("kv.catalog_ttl", 5*time.Minute, "course metadata cache lifetime, 0 disables caching")

	// progress policy
	pflag.Float64("progress.completion_threshold", 0.95, "fraction of lesson duration that marks the lesson completed")
	pflag.Duration("progress.rewind_tolerance", 10*time.Second, "position regression tolerated without a newer timestamp")
	pflag.Duration("progress.skew_tolerance", 5*time.Second, "clock skew tolerated when ordering heartbeats")
	pflag.Duration("progress.duration_tolerance", 2*time.Second, "position overshoot past lesson duration that is clamped")

	// dashboard
	pflag.Int("dashboard.max_parallel", 8, "concurrent course summaries computed for continue-learning")

	// DevOp
	pflag.Bool("devop.apm", false, "enable apm metrics")

	pflag.Parse()
	viper.BindPFlags(pflag.CommandLine)
	if err := loadEnvFile(viper.GetString("env_file")); err != nil {
		return nil, err
	}
	viper.AutomaticEnv()
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var config = new(AppConfig)
	if err := viper.Unmarshal(config); err != nil {
		return nil, err
	}
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	if config.Logging.Level == "debug" {
		if configJSON, err := json.MarshalIndent(config, "", "  "); err == nil {
			log.Printf("App config: %s\n", string(configJSON))
		}
	}
	return config, nil
}

// loadEnvFile export variables in path into the process environment, existing variables win
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func validateConfig(config *AppConfig) error {
	v := validator.New()
	v.RegisterTagNameFunc(validate.JSONTagName)
	err := v.Struct(config)
	if _, ok := err.(*validator.InvalidValidationError); ok {
		return fmt.Errorf("Failed to validate config: %w", err)
	}

	var msg []string
	if err != nil {
		for _, field := range err.(validator.ValidationErrors) {
			namespace := field.Namespace()
			fieldName := namespace[strings.IndexByte(namespace, '.')+1:] // trim top level namespace
			switch field.Tag() {
			case "required":
				msg = append(msg, fmt.Sprintf("%s is required", fieldName))
			case "oneof":
				msg = append(msg, fmt.Sprintf("%s must be one of (%s)", fieldName, field.Param()))
			case "min", "gt", "lte":
				msg = append(msg, fmt.Sprintf("%s is out of range (%s %s)", fieldName, field.Tag(), field.Param()))
			default:
				msg = append(msg, fmt.Sprintf("%s is invalid", fieldName))
			}
		}
	}
	if config.Database.Driver != DriverMemory {
		if config.Database.User == "" {
			msg = append(msg, "database.username is required")
		}
		if config.Database.Schema == "" {
			msg = append(msg, "database.schema is required")
		}
	}
	if len(msg) > 0 {
		return fmt.Errorf("failed to validate config: \n%s", strings.Join(msg, "\n"))
	}
	return nil
}
