package config

// EnvPrefix is passed to envconfig; individual fields carry fully-qualified
// env tags so the prefix stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "TEABROKER_DB_DSN"
	EnvDBHost = "TEABROKER_DB_HOST"
	EnvDBUser = "TEABROKER_DB_USER"
	EnvDBName = "TEABROKER_DB_NAME"
)

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
