package configs

// PostgresAuthConfig carries database credentials.
type PostgresAuthConfig struct {
	User     string `mapstructure:"user" validate:"required"`
	Password string `mapstructure:"password" validate:"required"`
}

// PostgresConfig is the relational metadata store configuration.
type PostgresConfig struct {
	Host               string             `mapstructure:"host" validate:"required"`
	Port               int                `mapstructure:"port" validate:"required"`
	DBName             string             `mapstructure:"db_name" validate:"required"`
	Auth               PostgresAuthConfig `mapstructure:"auth" validate:"required"`
	MaxOpenConnection  int                `mapstructure:"max_open_connection"`
	MaxIdealConnection int                `mapstructure:"max_ideal_connection"`
	SSLMode            string             `mapstructure:"ssl_mode"`
}

// AssetStoreConfig is the S3 compatible blob store configuration. Endpoint is
// optional so the client can talk to AWS proper or to a self hosted gateway.
type AssetStoreConfig struct {
	Region          string `mapstructure:"region" validate:"required"`
	Bucket          string `mapstructure:"bucket" validate:"required"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyId     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	ForcePathStyle  bool   `mapstructure:"force_path_style"`
}
