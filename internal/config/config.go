package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/arkade-os/bridged/internal/core/application"
	"github.com/arkade-os/bridged/internal/core/ports"
	alertsmanager "github.com/arkade-os/bridged/internal/infrastructure/alertsmanager"
	ethrpcregistry "github.com/arkade-os/bridged/internal/infrastructure/chain-registry/ethrpc"
	staticregistry "github.com/arkade-os/bridged/internal/infrastructure/chain-registry/static"
	"github.com/arkade-os/bridged/internal/infrastructure/db"
	"github.com/arkade-os/bridged/internal/infrastructure/feemanager"
	inmemorylivestore "github.com/arkade-os/bridged/internal/infrastructure/live-store/inmemory"
	redislivestore "github.com/arkade-os/bridged/internal/infrastructure/live-store/redis"
	natsnotifier "github.com/arkade-os/bridged/internal/infrastructure/notifier/nats"
	timescheduler "github.com/arkade-os/bridged/internal/infrastructure/scheduler/gocron"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var (
	supportedEventDbs = supportedType{
		"inmemory": {},
		"postgres": {},
	}
	supportedDbs = supportedType{
		"badger":   {},
		"sqlite":   {},
		"postgres": {},
	}
	supportedLiveStores = supportedType{
		"inmemory": {},
		"redis":    {},
	}
	supportedChainRegistries = supportedType{
		"static": {},
		"ethrpc": {},
	}
)

type Config struct {
	Datadir   string
	Port      uint32
	AdminPort uint32
	LogLevel  int
	LogJSON   bool

	DbType              string
	EventDbType         string
	DbDir               string
	DbUrl               string
	EventDbUrl          string
	PgAutoCreate        bool
	LiveStoreType       string
	RedisUrl            string
	RedisTxNumOfRetries int

	ChainRegistryType     string
	ChainsFile            string
	EthRpcUrls            map[string]string
	GasPriceRefreshPeriod int64
	RpcRequestsPerSecond  float64

	LowLatencyProtocol string
	FeeUnitDecimals    int32
	FeeProgram         string
	ResetSweepInterval int64

	AlertManagerURL   string
	NatsURL           string
	NatsSubjectPrefix string

	AdminJWTSecret     string
	RateLimitPerMinute int

	OtelCollectorEndpoint string
	OtelPushInterval      int64

	repo      ports.RepoManager
	svc       application.Service
	adminSvc  application.AdminService
	scheduler ports.SchedulerService
	liveStore ports.LiveStore
	chains    ports.ChainRegistry
	fees      ports.FeeManager
	alerts    ports.Alerts
	notifier  ports.EventNotifier
}

func (c *Config) String() string {
	clone := *c
	if clone.AdminJWTSecret != "" {
		clone.AdminJWTSecret = "••••••"
	}
	json, err := json.MarshalIndent(clone, "", "  ")
	if err != nil {
		return fmt.Sprintf("error while marshalling config JSON: %s", err)
	}
	return string(json)
}

var (
	defaultDatadir               = appDataDir("bridged")
	DefaultPort                  = 7070
	DefaultAdminPort             = 7071
	defaultDbType                = "sqlite"
	defaultEventDbType           = "inmemory"
	defaultLiveStoreType         = "inmemory"
	defaultRedisTxNumOfRetries   = 10
	defaultChainRegistryType     = "static"
	defaultGasPriceRefreshPeriod = 30 // seconds
	defaultRpcRequestsPerSecond  = 5.0
	defaultLogLevel              = 4
	defaultFeeUnitDecimals       = 6
	defaultResetSweepInterval    = 600 // seconds
	defaultNatsSubjectPrefix     = natsnotifier.DefaultSubjectPrefix
	defaultRateLimitPerMinute    = 600
	defaultOtelPushInterval      = 10 // seconds
)

// env returns a list of strings prefixed with `BRIDGED_`.
// This is used as a syntax sugar for defining env vars.
func env(values ...string) []string {
	envs := make([]string, len(values))

	for i, value := range values {
		envs[i] = fmt.Sprintf("BRIDGED_%s", value)
	}

	return envs
}

var (
	Datadir = &cli.StringFlag{
		Usage: "Directory to store data",
		Name:  "datadir", EnvVars: env("DATADIR"),
		Value: defaultDatadir,
	}

	Port = &cli.UintFlag{
		Usage: "Port (public) to listen on",
		Name:  "port", EnvVars: env("PORT"),
		Value: uint(DefaultPort),
	}

	AdminPort = &cli.UintFlag{
		Usage: "Admin port (private) to listen on, fallback to service port if 0",
		Name:  "admin-port", EnvVars: env("ADMIN_PORT"),
		Value: uint(DefaultAdminPort),
	}

	LogLevel = &cli.IntFlag{
		Usage: "Logging level (0-6, where 6 is trace)",
		Name:  "log-level", EnvVars: env("LOG_LEVEL"),
		Value: defaultLogLevel,
	}

	LogJSON = &cli.BoolFlag{
		Usage: "Format logs as JSON",
		Name:  "log-json", EnvVars: env("LOG_JSON"),
	}

	DbType = &cli.StringFlag{
		Usage: "Database type (postgres, sqlite, badger)",
		Name:  "db-type", EnvVars: env("DB_TYPE"),
		Value: defaultDbType,
	}

	DbUrl = &cli.StringFlag{
		Usage: "Postgres connection url if BRIDGED_DB_TYPE is set to postgres",
		Name:  "pg-db-url", EnvVars: env("PG_DB_URL"),
	}

	EventDbType = &cli.StringFlag{
		Usage: "Event database type (postgres, inmemory). inmemory keeps the event history of " +
			"the 100000 most recently used transfers only",
		Name:  "event-db-type", EnvVars: env("EVENT_DB_TYPE"),
		Value: defaultEventDbType,
	}

	EventDbUrl = &cli.StringFlag{
		Usage: "Postgres connection url if BRIDGED_EVENT_DB_TYPE is set to postgres",
		Name:  "pg-event-db-url", EnvVars: env("PG_EVENT_DB_URL"),
	}

	PgAutoCreate = &cli.BoolFlag{
		Usage: "Create the postgres databases if they don't exist",
		Name:  "pg-auto-create", EnvVars: env("PG_AUTO_CREATE"),
	}

	LiveStoreType = &cli.StringFlag{
		Usage: "Capacity store type (redis, inmemory)",
		Name:  "live-store-type", EnvVars: env("LIVE_STORE_TYPE"),
		Value: defaultLiveStoreType,
	}

	RedisUrl = &cli.StringFlag{
		Usage: "Redis db connection url if BRIDGED_LIVE_STORE_TYPE is set to redis",
		Name:  "redis-url", EnvVars: env("REDIS_URL"),
	}

	RedisTxNumOfRetries = &cli.IntFlag{
		Usage: "Maximum number of retries for Redis write operations in case of conflicts",
		Name:  "redis-num-of-retries", EnvVars: env("REDIS_NUM_OF_RETRIES"),
		Value: defaultRedisTxNumOfRetries,
	}

	ChainRegistryType = &cli.StringFlag{
		Usage: "Chain registry type (static, ethrpc)",
		Name:  "chain-registry-type", EnvVars: env("CHAIN_REGISTRY_TYPE"),
		Value: defaultChainRegistryType,
	}

	ChainsFile = &cli.StringFlag{
		Usage: "Path to a YAML file listing the supported chains, built-in list if unset",
		Name:  "chains-file", EnvVars: env("CHAINS_FILE"),
	}

	EthRpcUrls = &cli.StringSliceFlag{
		Usage: "JSON-RPC endpoints used to refresh gas prices, in the form <chain>=<url>",
		Name:  "eth-rpc-urls", EnvVars: env("ETH_RPC_URLS"),
	}

	GasPriceRefreshPeriod = &cli.Int64Flag{
		Usage: "How often (in seconds) gas prices are refreshed from the JSON-RPC endpoints",
		Name:  "gas-price-refresh-period", EnvVars: env("GAS_PRICE_REFRESH_PERIOD"),
		Value: int64(defaultGasPriceRefreshPeriod),
	}

	RpcRequestsPerSecond = &cli.Float64Flag{
		Usage: "Maximum number of requests per second to each JSON-RPC endpoint",
		Name:  "rpc-requests-per-second", EnvVars: env("RPC_REQUESTS_PER_SECOND"),
		Value: defaultRpcRequestsPerSecond,
	}

	LowLatencyProtocol = &cli.StringFlag{
		Usage: "Protocol that gets the scoring bonus for fast transfers",
		Name:  "low-latency-protocol", EnvVars: env("LOW_LATENCY_PROTOCOL"),
	}

	FeeUnitDecimals = &cli.IntFlag{
		Usage: "Decimals of the fee unit, used to bucket fees into cost tiers",
		Name:  "fee-unit-decimals", EnvVars: env("FEE_UNIT_DECIMALS"),
		Value: defaultFeeUnitDecimals,
	}

	FeeProgram = &cli.StringFlag{
		Usage: "CEL program computing the protocol fee, basis points of the amount if unset",
		Name:  "fee-program", EnvVars: env("FEE_PROGRAM"),
	}

	ResetSweepInterval = &cli.Int64Flag{
		Usage: "How often (in seconds) expired daily windows are reset",
		Name:  "reset-sweep-interval", EnvVars: env("RESET_SWEEP_INTERVAL"),
		Value: int64(defaultResetSweepInterval),
	}

	AlertManagerURL = &cli.StringFlag{
		Usage: "Alertmanager URL for operator alerts",
		Name:  "alert-manager-url", EnvVars: env("ALERT_MANAGER_URL"),
	}

	NatsURL = &cli.StringFlag{
		Usage: "NATS server url, transfer events are published there if set",
		Name:  "nats-url", EnvVars: env("NATS_URL"),
	}

	NatsSubjectPrefix = &cli.StringFlag{
		Usage: "Prefix of the NATS subjects transfer events are published to",
		Name:  "nats-subject-prefix", EnvVars: env("NATS_SUBJECT_PREFIX"),
		Value: defaultNatsSubjectPrefix,
	}

	AdminJWTSecret = &cli.StringFlag{
		Usage: "Secret used to verify admin bearer tokens (HS256), admin API is open if unset",
		Name:  "admin-jwt-secret", EnvVars: env("ADMIN_JWT_SECRET"),
	}

	RateLimitPerMinute = &cli.IntFlag{
		Usage: "Maximum number of public API requests per minute per client IP, 0 to disable",
		Name:  "rate-limit-per-minute", EnvVars: env("RATE_LIMIT_PER_MINUTE"),
		Value: defaultRateLimitPerMinute,
	}

	OtelCollectorEndpoint = &cli.StringFlag{
		Usage: "OpenTelemetry collector endpoint",
		Name:  "collector-endpoint", EnvVars: env("COLLECTOR_ENDPOINT"),
	}

	OtelPushInterval = &cli.Int64Flag{
		Usage: "OpenTelemetry metrics push interval in seconds",
		Name:  "otel-push-interval", EnvVars: env("OTEL_PUSH_INTERVAL"),
		Value: int64(defaultOtelPushInterval),
	}
)

var Flags = []cli.Flag{
	Datadir,
	Port,
	AdminPort,
	LogLevel,
	LogJSON,
	DbType,
	DbUrl,
	EventDbType,
	EventDbUrl,
	PgAutoCreate,
	LiveStoreType,
	RedisUrl,
	RedisTxNumOfRetries,
	ChainRegistryType,
	ChainsFile,
	EthRpcUrls,
	GasPriceRefreshPeriod,
	RpcRequestsPerSecond,
	LowLatencyProtocol,
	FeeUnitDecimals,
	FeeProgram,
	ResetSweepInterval,
	AlertManagerURL,
	NatsURL,
	NatsSubjectPrefix,
	AdminJWTSecret,
	RateLimitPerMinute,
	OtelCollectorEndpoint,
	OtelPushInterval,
}

func LoadConfig(c *cli.Context) (*Config, error) {
	if err := initDatadir(c); err != nil {
		return nil, fmt.Errorf("failed to create datadir: %s", err)
	}

	dbPath := filepath.Join(c.String(Datadir.Name), "db")

	var eventDbUrl string
	if c.String(EventDbType.Name) == "postgres" {
		eventDbUrl = c.String(EventDbUrl.Name)
		if eventDbUrl == "" {
			return nil, fmt.Errorf("event db type set to 'postgres' but event db url is missing")
		}
	}

	var dbUrl string
	if c.String(DbType.Name) == "postgres" {
		dbUrl = c.String(DbUrl.Name)
		if dbUrl == "" {
			return nil, fmt.Errorf("db type set to 'postgres' but db url is missing")
		}
	}

	var redisUrl string
	if c.String(LiveStoreType.Name) == "redis" {
		redisUrl = c.String(RedisUrl.Name)
		if redisUrl == "" {
			return nil, fmt.Errorf("live store type set to 'redis' but redis url is missing")
		}
	}

	rpcUrls, err := parseRpcUrls(c.StringSlice(EthRpcUrls.Name))
	if err != nil {
		return nil, err
	}
	if c.String(ChainRegistryType.Name) == "ethrpc" && len(rpcUrls) == 0 {
		return nil, fmt.Errorf("chain registry type set to 'ethrpc' but rpc urls are missing")
	}

	// In case the admin port is unset, fallback to service port.
	adminPort := c.Uint(AdminPort.Name)
	if adminPort == 0 {
		adminPort = c.Uint(Port.Name)
	}

	return &Config{
		Datadir:               c.String(Datadir.Name),
		Port:                  uint32(c.Uint(Port.Name)),
		AdminPort:             uint32(adminPort),
		LogLevel:              c.Int(LogLevel.Name),
		LogJSON:               c.Bool(LogJSON.Name),
		DbType:                c.String(DbType.Name),
		EventDbType:           c.String(EventDbType.Name),
		DbDir:                 dbPath,
		DbUrl:                 dbUrl,
		EventDbUrl:            eventDbUrl,
		PgAutoCreate:          c.Bool(PgAutoCreate.Name),
		LiveStoreType:         c.String(LiveStoreType.Name),
		RedisUrl:              redisUrl,
		RedisTxNumOfRetries:   c.Int(RedisTxNumOfRetries.Name),
		ChainRegistryType:     c.String(ChainRegistryType.Name),
		ChainsFile:            c.String(ChainsFile.Name),
		EthRpcUrls:            rpcUrls,
		GasPriceRefreshPeriod: c.Int64(GasPriceRefreshPeriod.Name),
		RpcRequestsPerSecond:  c.Float64(RpcRequestsPerSecond.Name),
		LowLatencyProtocol:    c.String(LowLatencyProtocol.Name),
		FeeUnitDecimals:       int32(c.Int(FeeUnitDecimals.Name)),
		FeeProgram:            c.String(FeeProgram.Name),
		ResetSweepInterval:    c.Int64(ResetSweepInterval.Name),
		AlertManagerURL:       c.String(AlertManagerURL.Name),
		NatsURL:               c.String(NatsURL.Name),
		NatsSubjectPrefix:     c.String(NatsSubjectPrefix.Name),
		AdminJWTSecret:        c.String(AdminJWTSecret.Name),
		RateLimitPerMinute:    c.Int(RateLimitPerMinute.Name),
		OtelCollectorEndpoint: c.String(OtelCollectorEndpoint.Name),
		OtelPushInterval:      c.Int64(OtelPushInterval.Name),
	}, nil
}

func initDatadir(c *cli.Context) error {
	datadir := c.String(Datadir.Name)
	return makeDirectoryIfNotExists(datadir)
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0o755)
	}
	return nil
}

// appDataDir returns the default data directory of the app for the current OS.
func appDataDir(appName string) string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "." + appName
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir, "Library", "Application Support", capitalize(appName))
	case "windows":
		if appData := os.Getenv("LOCALAPPDATA"); appData != "" {
			return filepath.Join(appData, capitalize(appName))
		}
	}
	return filepath.Join(homeDir, "."+appName)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func parseRpcUrls(values []string) (map[string]string, error) {
	urls := make(map[string]string, len(values))
	for _, value := range values {
		chainId, url, ok := strings.Cut(value, "=")
		chainId, url = strings.TrimSpace(chainId), strings.TrimSpace(url)
		if !ok || chainId == "" || url == "" {
			return nil, fmt.Errorf("invalid rpc url %q, must be in the form <chain>=<url>", value)
		}
		if _, ok := urls[chainId]; ok {
			return nil, fmt.Errorf("duplicate rpc url for chain %s", chainId)
		}
		urls[chainId] = url
	}
	return urls, nil
}

func (c *Config) Validate() error {
	if !supportedEventDbs.supports(c.EventDbType) {
		return fmt.Errorf(
			"event db type not supported, please select one of: %s",
			supportedEventDbs,
		)
	}
	if !supportedDbs.supports(c.DbType) {
		return fmt.Errorf("db type not supported, please select one of: %s", supportedDbs)
	}
	if len(c.LiveStoreType) > 0 && !supportedLiveStores.supports(c.LiveStoreType) {
		return fmt.Errorf(
			"live store type not supported, please select one of: %s",
			supportedLiveStores,
		)
	}
	if !supportedChainRegistries.supports(c.ChainRegistryType) {
		return fmt.Errorf(
			"chain registry type not supported, please select one of: %s",
			supportedChainRegistries,
		)
	}
	if c.FeeUnitDecimals < 0 || c.FeeUnitDecimals > 18 {
		return fmt.Errorf("invalid fee unit decimals, must be in range [0, 18]")
	}
	if c.ResetSweepInterval < 1 {
		return fmt.Errorf("invalid reset sweep interval, must be at least 1 second")
	}
	if c.ChainRegistryType == "ethrpc" {
		if c.GasPriceRefreshPeriod < 1 {
			return fmt.Errorf("invalid gas price refresh period, must be at least 1 second")
		}
		if c.RpcRequestsPerSecond <= 0 {
			return fmt.Errorf("invalid rpc requests per second, must be greater than 0")
		}
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("invalid rate limit, must not be negative")
	}
	if c.RateLimitPerMinute == 0 {
		log.Debugf("public api rate limit is disabled")
	}
	if c.AdminJWTSecret == "" {
		log.Warn("admin jwt secret is not set, the admin api is unauthenticated")
	}

	if err := c.repoManager(); err != nil {
		return err
	}
	if err := c.liveStoreService(); err != nil {
		return err
	}
	if err := c.chainRegistry(); err != nil {
		return err
	}
	if err := c.feeManager(); err != nil {
		return err
	}
	if err := c.schedulerService(); err != nil {
		return err
	}
	if err := c.alertsService(); err != nil {
		return err
	}
	if err := c.notifierService(); err != nil {
		return err
	}
	if err := c.adminService(); err != nil {
		return err
	}
	return nil
}

func (c *Config) AppService() (application.Service, error) {
	if c.svc == nil {
		if err := c.appService(); err != nil {
			return nil, err
		}
	}
	return c.svc, nil
}

func (c *Config) AdminService() application.AdminService {
	return c.adminSvc
}

func (c *Config) repoManager() error {
	var eventStoreConfig []interface{}
	var dataStoreConfig []interface{}
	logger := log.New()

	switch c.EventDbType {
	case "inmemory":
	case "postgres":
		eventStoreConfig = []interface{}{c.EventDbUrl, c.PgAutoCreate}
	default:
		return fmt.Errorf("unknown event db type")
	}

	switch c.DbType {
	case "badger":
		dataStoreConfig = []interface{}{c.DbDir, logger}
	case "sqlite":
		if err := makeDirectoryIfNotExists(c.DbDir); err != nil {
			return fmt.Errorf("failed to create db dir: %s", err)
		}
		dataStoreConfig = []interface{}{c.DbDir}
	case "postgres":
		dataStoreConfig = []interface{}{c.DbUrl, c.PgAutoCreate}
	default:
		return fmt.Errorf("unknown db type")
	}

	svc, err := db.NewService(db.ServiceConfig{
		EventStoreType:   c.EventDbType,
		DataStoreType:    c.DbType,
		EventStoreConfig: eventStoreConfig,
		DataStoreConfig:  dataStoreConfig,
	})
	if err != nil {
		return err
	}

	c.repo = svc
	return nil
}

func (c *Config) liveStoreService() error {
	var liveStoreSvc ports.LiveStore
	var err error
	switch c.LiveStoreType {
	case "inmemory", "":
		liveStoreSvc = inmemorylivestore.NewLiveStore()
	case "redis":
		redisOpts, err := redis.ParseURL(c.RedisUrl)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(redisOpts)
		liveStoreSvc = redislivestore.NewLiveStore(rdb, c.RedisTxNumOfRetries)
	default:
		err = fmt.Errorf("unknown liveStore type")
	}

	if err != nil {
		return err
	}

	c.liveStore = liveStoreSvc
	return nil
}

func (c *Config) chainRegistry() error {
	chains, err := staticregistry.NewChainRegistry(c.ChainsFile)
	if err != nil {
		return fmt.Errorf("failed to load chain registry: %w", err)
	}

	if c.ChainRegistryType == "ethrpc" {
		chains, err = ethrpcregistry.NewChainRegistry(chains, ethrpcregistry.Config{
			RpcUrls:           c.EthRpcUrls,
			RefreshInterval:   time.Duration(c.GasPriceRefreshPeriod) * time.Second,
			RequestsPerSecond: c.RpcRequestsPerSecond,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to rpc endpoints: %w", err)
		}
	}

	c.chains = chains
	return nil
}

func (c *Config) feeManager() error {
	fees, err := feemanager.NewFeeManager(c.FeeProgram)
	if err != nil {
		return fmt.Errorf("invalid fee program: %w", err)
	}
	c.fees = fees
	return nil
}

func (c *Config) schedulerService() error {
	c.scheduler = timescheduler.NewScheduler()
	return nil
}

func (c *Config) appService() error {
	svc, err := application.NewService(
		c.repo, c.liveStore, c.chains, c.fees, c.alerts, c.notifier, c.scheduler,
		c.LowLatencyProtocol, c.FeeUnitDecimals,
		time.Duration(c.ResetSweepInterval)*time.Second,
	)
	if err != nil {
		return err
	}

	c.svc = svc
	return nil
}

func (c *Config) adminService() error {
	c.adminSvc = application.NewAdminService(c.repo, c.liveStore, c.chains, c.fees)
	return nil
}

func (c *Config) alertsService() error {
	if c.AlertManagerURL == "" {
		return nil
	}

	c.alerts = alertsmanager.NewService(c.AlertManagerURL)
	return nil
}

func (c *Config) notifierService() error {
	if c.NatsURL == "" {
		return nil
	}

	notifier, err := natsnotifier.NewNotifier(c.NatsURL, c.NatsSubjectPrefix)
	if err != nil {
		return fmt.Errorf("failed to connect to nats: %w", err)
	}
	c.notifier = notifier
	return nil
}

type supportedType map[string]struct{}

func (t supportedType) String() string {
	types := make([]string, 0, len(t))
	for tt := range t {
		types = append(types, tt)
	}
	return strings.Join(types, " | ")
}

func (t supportedType) supports(typeStr string) bool {
	_, ok := t[typeStr]
	return ok
}
