package config

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/sachin-pal89/Saarathi-Recorder/pkg/configs"
)

// Application config structure
type AppConfig struct {
	Name     string `mapstructure:"service_name" validate:"required"`
	Version  string `mapstructure:"version" validate:"required"`
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"required"`
	LogLevel string `mapstructure:"log_level" validate:"required"`
	LogPath  string `mapstructure:"log_path" validate:"required"`

	FrontendOrigin string `mapstructure:"frontend_origin" validate:"required"`

	// Signed playback URLs expire after this many seconds.
	SignedUrlTTL int `mapstructure:"signed_url_ttl" validate:"required"`

	// Upload bodies above this many bytes are rejected.
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes" validate:"required"`

	PostgresConfig   configs.PostgresConfig   `mapstructure:"postgres" validate:"required"`
	AssetStoreConfig configs.AssetStoreConfig `mapstructure:"asset_store" validate:"required"`
}

// reading config and intializing configs for application
func InitConfig() (*viper.Viper, error) {
	vConfig := viper.NewWithOptions(viper.KeyDelimiter("__"))

	vConfig.AddConfigPath(".")
	vConfig.SetConfigName(".env")
	path := os.Getenv("ENV_PATH")
	if path != "" {
		log.Printf("env path %v", path)
		vConfig.SetConfigFile(path)
	}
	vConfig.SetConfigType("env")
	vConfig.AutomaticEnv()

	setDefault(vConfig)
	if err := vConfig.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		log.Printf("Reading from env variables.")
	}

	return vConfig, nil
}

func setDefault(v *viper.Viper) {
	// setting all default values
	// keeping watch on https://github.com/spf13/viper/issues/188

	v.SetDefault("SERVICE_NAME", "recording-api")
	v.SetDefault("VERSION", "0.0.1")
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", 3001)
	v.SetDefault("LOG_LEVEL", "debug")
	v.SetDefault("LOG_PATH", ".")
	v.SetDefault("FRONTEND_ORIGIN", "http://localhost:5173")
	v.SetDefault("SIGNED_URL_TTL", 3600)
	v.SetDefault("MAX_UPLOAD_BYTES", 100*1024*1024)

	v.SetDefault("POSTGRES__HOST", "localhost")
	v.SetDefault("POSTGRES__PORT", 5432)
	v.SetDefault("POSTGRES__DB_NAME", "saarathi")
	v.SetDefault("POSTGRES__AUTH__USER", "saarathi")
	v.SetDefault("POSTGRES__AUTH__PASSWORD", "saarathi")
	v.SetDefault("POSTGRES__MAX_OPEN_CONNECTION", 10)
	v.SetDefault("POSTGRES__MAX_IDEAL_CONNECTION", 10)
	v.SetDefault("POSTGRES__SSL_MODE", "disable")

	v.SetDefault("ASSET_STORE__REGION", "ap-south-1")
	v.SetDefault("ASSET_STORE__BUCKET", "recordings")
	v.SetDefault("ASSET_STORE__ENDPOINT", "")
	v.SetDefault("ASSET_STORE__ACCESS_KEY_ID", "")
	v.SetDefault("ASSET_STORE__SECRET_ACCESS_KEY", "")
	v.SetDefault("ASSET_STORE__FORCE_PATH_STYLE", false)
}

// Getting application config from viper
func GetApplicationConfig(v *viper.Viper) (*AppConfig, error) {
	var config AppConfig
	err := v.Unmarshal(&config)
	if err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}

	// valdating the app config
	validate := validator.New()
	err = validate.Struct(&config)
	if err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}
	return &config, nil
}
