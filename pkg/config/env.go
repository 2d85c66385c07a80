package config

const (
	// EnvPrefix is the envconfig prefix shared by every setting.
	EnvPrefix = "pharmapos"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "PHARMAPOS_DB_DSN"
	EnvDBHost = "PHARMAPOS_DB_HOST"
	EnvDBUser = "PHARMAPOS_DB_USER"
	EnvDBName = "PHARMAPOS_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
