package server

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Daskott/safepoint/server/auth"
	"github.com/Daskott/safepoint/server/auth/key"
	"github.com/Daskott/safepoint/server/cache"
	"github.com/Daskott/safepoint/server/docstore"
	"github.com/Daskott/safepoint/server/gstorage"
	"github.com/Daskott/safepoint/server/imagestore"
	"github.com/Daskott/safepoint/server/logger"
	"github.com/Daskott/safepoint/server/metrics"
	"github.com/Daskott/safepoint/server/models"
	"github.com/Daskott/safepoint/server/twilio"
	"github.com/Daskott/safepoint/server/work"
	"github.com/Daskott/safepoint/shared"
	"github.com/Daskott/safepoint/utils"
	"github.com/go-playground/validator"
	"github.com/gorilla/mux"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	DEFAULT_TOKEN_TTL_MINUTES = 24 * 60
	DEFAULT_ALERTS_RATE_LIMIT = "5-M"
)

type RequestContextKey string

type DecodedJWT struct {
	Claims   *auth.SafePointTokenClaims
	ErrorMsg string
}

type SmsSender interface {
	SendMessage(to, msg string) (string, error)
	ValidateRequest(path string, urlValues url.Values, expectedSignature string) bool
}

type DocumentMirror interface {
	Put(ctx context.Context, collection, docID string, data map[string]interface{}) error
}

type IDTokenVerifier interface {
	Verify(ctx context.Context, idToken string) (*auth.FirebaseIdentity, error)
}

var (
	logg     = logger.NewLogger()
	validate *validator.Validate

	serverConfig shared.ServerConfig
	tokenTTL     = DEFAULT_TOKEN_TTL_MINUTES * time.Minute

	authKeyPair      *key.KeyPair
	appCache         = cache.NewStore()
	smsClient        SmsSender
	workerPool       *work.WorkerPoolAdapter
	firebaseVerifier IDTokenVerifier
	docMirror        DocumentMirror
	imageStore       imagestore.Store
	imagePrefix      string
	gStorage         *gstorage.GStorage
	sqliteFilePath   string
)

func init() {
	validate = validator.New()
	err := RegisterValidators(validate)
	if err != nil {
		logg.Panic(err)
	}
}

func Start(configArg *viper.Viper, devMode bool) {
	var err error

	serverConfig, err = parseConfig(configArg)
	fatalOnError(err)

	useLogger(logger.NewLoggerWithFile(serverConfig.SafePoint.Log))
	if serverConfig.SafePoint.TokenTTLMinutes > 0 {
		tokenTTL = time.Duration(serverConfig.SafePoint.TokenTTLMinutes) * time.Minute
	}

	authKeyPair, err = key.NewKeyPairFromRSAPrivateKeyPem(serverConfig.SafePoint.PrivateKeyPem)
	fatalOnError(err)

	configDir := configDirectory(devMode)
	fatalOnError(initGoogleServices(serverConfig, configDir))

	fatalOnError(restoreSqliteDb())
	fatalOnError(models.AutoMigrate(serverConfig.Database, configDir))

	twilioClient := twilio.NewClient(serverConfig.Twilio, serverConfig.SafePoint.URL)
	if twilioClient.DryRun() {
		logg.Warn("Twilio credentials not set, SMS messages will only be logged")
	}
	smsClient = twilioClient

	fatalOnError(initImageStore(serverConfig))

	workerPool = work.NewWorkerAdapter(serverConfig.SafePoint.Cron.TimeZone, work.MAX_CONCURRENCY)
	fatalOnError(registerJobHandlers(workerPool))
	fatalOnError(enqueueJobs(workerPool))

	router, err := newRouter(serverConfig.SafePoint.RateLimit.Alerts)
	fatalOnError(err)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%v", serverConfig.SafePoint.Listener.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	workerPool.Start()
	go serve(server)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	cleanup(server, gStorage != nil && serverConfig.Google.Storage.EnableSqliteBackupAndSync)
}

// useLogger makes every package log through 'l'
func useLogger(l *zap.SugaredLogger) {
	logg = l
	models.SetLogger(l)
	work.SetLogger(l)
	twilio.SetLogger(l)
	gstorage.SetLogger(l)
}

func newRouter(alertsRateLimit string) (*mux.Router, error) {
	if alertsRateLimit == "" {
		alertsRateLimit = DEFAULT_ALERTS_RATE_LIMIT
	}

	alertsRateLimiter, err := rateLimitMiddleware(alertsRateLimit)
	if err != nil {
		return nil, err
	}

	router := mux.NewRouter()
	router.Use(loggingMiddleware, metrics.Middleware)

	router.HandleFunc("/health", healthCheck).Methods("GET")
	router.Handle("/metrics", metrics.Handler()).Methods("GET")

	api := router.NewRoute().Subrouter()
	api.Use(initialContextMiddleware)

	api.HandleFunc("/.well-known/jwks.json", jwks).Methods("GET")
	api.HandleFunc("/api/v1/users", createUser).Methods("POST")
	api.HandleFunc("/api/v1/jwt", login).Methods("POST")
	api.HandleFunc(twilio.STATUS_CALLBACK_PATH, smsStatusWebhook).Methods("POST")

	protected := api.PathPrefix("/api/v1").Subrouter()
	protected.Use(protectedRouteMiddleware)

	protected.HandleFunc("/logout", logout).Methods("POST")
	protected.HandleFunc("/incidents/nearby", nearbyIncidents).Methods("GET")
	protected.HandleFunc("/incidents/{id:[0-9]+}", findIncidentReport).Methods("GET")

	userResources := protected.PathPrefix("/users/{uid:[0-9]+}").Subrouter()
	userResources.Use(userResourceMiddleware)

	userResources.HandleFunc("", findUser).Methods("GET")
	userResources.HandleFunc("", updateUser).Methods("PUT")
	userResources.HandleFunc("", deleteUser).Methods("DELETE")
	userResources.HandleFunc("/contacts", createContact).Methods("POST")
	userResources.HandleFunc("/contacts", contacts).Methods("GET")
	userResources.HandleFunc("/contacts/{cid:[0-9]+}", updateContact).Methods("PUT")
	userResources.HandleFunc("/contacts/{cid:[0-9]+}", deleteContact).Methods("DELETE")
	userResources.HandleFunc("/incidents", createIncidentReport).Methods("POST")
	userResources.HandleFunc("/incidents", userIncidentReports).Methods("GET")
	userResources.HandleFunc("/incidents/{id:[0-9]+}/image", uploadIncidentImage).Methods("POST")
	userResources.Handle("/alerts", alertsRateLimiter(http.HandlerFunc(createEmergencyAlert))).Methods("POST")
	userResources.HandleFunc("/alerts", userEmergencyAlerts).Methods("GET")

	admin := protected.NewRoute().Subrouter()
	admin.Use(adminRouteMiddleware)

	admin.HandleFunc("/users", users).Methods("GET")
	admin.HandleFunc("/users/{uid:[0-9]+}/role", updateUserRole).Methods("PUT")
	admin.HandleFunc("/incidents", incidentReports).Methods("GET")
	admin.HandleFunc("/incidents/{id:[0-9]+}/status", updateIncidentStatus).Methods("PUT")
	admin.HandleFunc("/alerts", emergencyAlerts).Methods("GET")
	admin.HandleFunc("/jobs", jobs).Methods("GET")
	admin.HandleFunc("/jobs/stats", jobStats).Methods("GET")

	return router, nil
}

func parseConfig(configArg *viper.Viper) (shared.ServerConfig, error) {
	config := shared.ServerConfig{}

	err := configArg.Unmarshal(&config)
	if err != nil {
		return config, fmt.Errorf("unable to decode server config: %v", err)
	}

	err = validate.Struct(config)
	if err != nil {
		return config, fmt.Errorf("invalid server config: %v", err)
	}

	switch config.Database.Driver {
	case "mysql", "postgres":
		if config.Database.DSN == "" {
			return config, fmt.Errorf("database.dsn is required for the %v driver", config.Database.Driver)
		}
	case "sqlite":
		if config.Database.PassPhrase == "" {
			return config, fmt.Errorf("database.passPhrase is required for the sqlite driver")
		}
	}

	for _, path := range []*string{&config.Google.ApplicationCredentials, &config.SafePoint.Log.File} {
		*path, err = utils.ExpandHome(*path)
		if err != nil {
			return config, err
		}
	}

	return config, nil
}

func initGoogleServices(config shared.ServerConfig, configDir string) error {
	var err error
	ctx := context.Background()
	credentials := config.Google.ApplicationCredentials
	storageConfig := config.Google.Storage

	if storageConfig.EnableSqliteBackupAndSync || storageConfig.EnableImageUploads {
		gStorage, err = gstorage.NewGStorage(credentials)
		if err != nil {
			return err
		}
	}

	if storageConfig.EnableSqliteBackupAndSync {
		sqliteFilePath, err = models.DbFilePath(config.Database, configDir)
		if err != nil {
			return err
		}
	}

	if config.Google.Firestore.ProjectID != "" {
		docMirror, err = docstore.NewMirror(ctx, config.Google.Firestore.ProjectID, credentials)
		if err != nil {
			return err
		}
	}

	if config.Firebase.Enabled {
		firebaseVerifier, err = auth.NewFirebaseVerifier(ctx, config.Firebase.ProjectID, credentials)
		if err != nil {
			return err
		}
	}

	return nil
}

// initImageStore prefers minio when it's configured, then google storage
func initImageStore(config shared.ServerConfig) error {
	imagePrefix = config.Google.Storage.ImagePrefix

	if config.Minio.Endpoint != "" {
		store, err := imagestore.NewMinioStore(config.Minio)
		if err != nil {
			return err
		}
		imageStore = store
		return nil
	}

	if config.Google.Storage.EnableImageUploads && gStorage != nil {
		imageStore = imagestore.NewGCSStore(gStorage, config.Google.Storage.Bucket)
	}

	return nil
}
