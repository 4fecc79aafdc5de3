package shared

type ServerConfig struct {
	SafePoint SafePointConfig `mapstructure:"safepoint" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Google    GoogleConfig    `mapstructure:"google"`
	Firebase  FirebaseConfig  `mapstructure:"firebase"`
	Minio     MinioConfig     `mapstructure:"minio"`
	Twilio    TwilioConfig    `mapstructure:"twilio"`
}

type SafePointConfig struct {
	PrivateKeyPem   string          `mapstructure:"privateKeyPem" validate:"required"`
	URL             string          `mapstructure:"url"`
	TokenTTLMinutes int             `mapstructure:"tokenTTLMinutes" validate:"omitempty,min=1"`
	Cron            CronConfig      `mapstructure:"cron" validate:"required"`
	Listener        ListenerConfig  `mapstructure:"listener" validate:"required"`
	Log             LogConfig       `mapstructure:"log"`
	RateLimit       RateLimitConfig `mapstructure:"rateLimit"`
}

type DatabaseConfig struct {
	// Driver is one of sqlite, sqlite-plain, mysql or postgres
	Driver     string `mapstructure:"driver" validate:"required,oneof=sqlite sqlite-plain mysql postgres"`
	DSN        string `mapstructure:"dsn"`
	PassPhrase string `mapstructure:"passPhrase"`
}

type GoogleConfig struct {
	ApplicationCredentials string          `mapstructure:"applicationCredentials"`
	Storage                StorageConfig   `mapstructure:"storage"`
	Firestore              FirestoreConfig `mapstructure:"firestore"`
}

type FirebaseConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"projectID" validate:"required_with=Enabled"`
}

type FirestoreConfig struct {
	ProjectID string `mapstructure:"projectID"`
}

type MinioConfig struct {
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"accessKey" validate:"required_with=Endpoint"`
	SecretKey     string `mapstructure:"secretKey" validate:"required_with=Endpoint"`
	Bucket        string `mapstructure:"bucket" validate:"required_with=Endpoint"`
	UseSSL        bool   `mapstructure:"useSSL"`
	PublicBaseURL string `mapstructure:"publicBaseURL"`
}

type TwilioConfig struct {
	AccountSid          string `mapstructure:"accountSid"`
	AuthToken           string `mapstructure:"authToken"`
	MessagingServiceSid string `mapstructure:"messagingServiceSid"`
}

type CronConfig struct {
	TimeZone string `mapstructure:"timeZone" validate:"required"`
}

type ListenerConfig struct {
	Port int `mapstructure:"port" validate:"required"`
}

type LogConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"maxSizeMB"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAgeDays"`
}

type RateLimitConfig struct {
	// Alerts is a ulule/limiter formatted rate e.g. "5-M"
	Alerts string `mapstructure:"alerts"`
}

type StorageConfig struct {
	Bucket                    string `mapstructure:"bucket" validate:"required_with=EnableSqliteBackupAndSync"`
	Prefix                    string `mapstructure:"prefix" validate:"required_with=EnableSqliteBackupAndSync"`
	ImagePrefix               string `mapstructure:"imagePrefix"`
	EnableImageUploads        bool   `mapstructure:"enableImageUploads"`
	SqliteBackupSchedule      string `mapstructure:"sqliteBackupSchedule" validate:"required_with=EnableSqliteBackupAndSync"`
	EnableSqliteBackupAndSync bool   `mapstructure:"enableSqliteBackupAndSync"`
}

// TwilioEnabled reports whether enough twilio credentials were provided to send real messages
func (c TwilioConfig) TwilioEnabled() bool {
	return c.AccountSid != "" && c.AuthToken != "" && c.MessagingServiceSid != ""
}
