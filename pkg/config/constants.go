package config

// EnvPrefix is passed to envconfig; individual fields carry fully prefixed
// names so this stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "BOOKLEDGER_DB_DSN"
	EnvDBHost = "BOOKLEDGER_DB_HOST"
	EnvDBUser = "BOOKLEDGER_DB_USER"
	EnvDBName = "BOOKLEDGER_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
