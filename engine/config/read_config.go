package config

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/go-ini/ini"
	"github.com/pkg/errors"

	"github.com/rangzgamez/idle-mmo-2-sub002/engine/gamelog"
)

const (
	_DEFAULT_CONFIG_FILE      = "server.ini"
	_DEFAULT_IP               = "0.0.0.0"
	_DEFAULT_PORT             = 14000
	_DEFAULT_LOG_LEVEL        = "debug"
	_DEFAULT_TICK_INTERVAL_MS = 100
	_DEFAULT_MAX_PARTY_SIZE   = 3
	_DEFAULT_WIRE_FORMAT      = "msgpack"
	_DEFAULT_STORAGE_TYPE     = "memory"
	_DEFAULT_REDIS_HOST       = "127.0.0.1:6379"
	_DEFAULT_MONGODB_URL      = "mongodb://127.0.0.1:27017"
	_DEFAULT_STORAGE_DB       = "idlemmo"
)

// ServerConfig defines fields of the [server] section
type ServerConfig struct {
	Ip           string
	Port         int
	LogFile      string
	LogStderr    bool
	LogLevel     string
	GoMaxProcs   int
	TickInterval time.Duration
	MaxPartySize int
	WireFormat   string
}

// AuthConfig defines fields of the [auth] section
type AuthConfig struct {
	HMACSecret string
	JWKSUrl    string
	Issuer     string
	Audience   string
}

// StorageConfig defines fields of the [storage] section
type StorageConfig struct {
	Type                string // memory, redis, rediscluster, mongodb
	Host                string // redis
	StartNodes          []string
	DBIndex             int    // redis db index
	Url                 string // mongodb connection url
	DB                  string // mongodb database name
	AccountCollection   string
	CharacterCollection string
}

// GameServerConfig is the total config file structure
type GameServerConfig struct {
	Server  ServerConfig
	Auth    AuthConfig
	Storage StorageConfig
}

var (
	configFilePath = _DEFAULT_CONFIG_FILE
	serverConfig   *GameServerConfig
	configLock     sync.Mutex
)

// SetConfigFile sets the config file path
func SetConfigFile(f string) {
	configFilePath = f
	serverConfig = nil
}

// GetConfigFilePath returns the config file path
func GetConfigFilePath() string {
	return configFilePath
}

// Get returns the total configuration, reading the config file on first use
func Get() *GameServerConfig {
	configLock.Lock()
	defer configLock.Unlock()

	if serverConfig == nil {
		serverConfig = readGameServerConfig()
	}
	return serverConfig
}

// Reload forces the config file to be read again
func Reload() *GameServerConfig {
	configLock.Lock()
	serverConfig = nil
	configLock.Unlock()

	return Get()
}

// GetServer returns the [server] section
func GetServer() *ServerConfig {
	return &Get().Server
}

// GetAuth returns the [auth] section
func GetAuth() *AuthConfig {
	return &Get().Auth
}

// GetStorage returns the [storage] section
func GetStorage() *StorageConfig {
	return &Get().Storage
}

// DumpPretty pretty-formats a config value as JSON
func DumpPretty(cfg interface{}) string {
	s, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		return err.Error()
	}
	return string(s)
}

func readGameServerConfig() *GameServerConfig {
	config := GameServerConfig{
		Server: ServerConfig{
			Ip:           _DEFAULT_IP,
			Port:         _DEFAULT_PORT,
			LogStderr:    true,
			LogLevel:     _DEFAULT_LOG_LEVEL,
			TickInterval: time.Millisecond * _DEFAULT_TICK_INTERVAL_MS,
			MaxPartySize: _DEFAULT_MAX_PARTY_SIZE,
			WireFormat:   _DEFAULT_WIRE_FORMAT,
		},
		Auth: AuthConfig{},
		Storage: StorageConfig{
			Type:                _DEFAULT_STORAGE_TYPE,
			Host:                _DEFAULT_REDIS_HOST,
			Url:                 _DEFAULT_MONGODB_URL,
			DB:                  _DEFAULT_STORAGE_DB,
			AccountCollection:   "accounts",
			CharacterCollection: "characters",
		},
	}

	iniFile, err := ini.Load(configFilePath)
	if err != nil {
		gamelog.Panic(errors.Wrapf(err, "load config file %s failed", configFilePath))
	}

	gamelog.Infof("Using config file: %s", configFilePath)

	for _, sec := range iniFile.Sections() {
		secName := strings.ToLower(sec.Name())
		switch secName {
		case "server":
			readServerConfig(sec, &config.Server)
		case "auth":
			readAuthConfig(sec, &config.Auth)
		case "storage":
			readStorageConfig(sec, &config.Storage)
		case "default":
			// ini root section, ignored
		default:
			gamelog.Errorf("unknown config section: %s", sec.Name())
		}
	}

	validateConfig(&config)
	return &config
}

func readServerConfig(sec *ini.Section, scc *ServerConfig) {
	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		switch name {
		case "ip":
			scc.Ip = key.MustString(scc.Ip)
		case "port":
			scc.Port = key.MustInt(scc.Port)
		case "log_file":
			scc.LogFile = key.MustString(scc.LogFile)
		case "log_stderr":
			scc.LogStderr = key.MustBool(scc.LogStderr)
		case "log_level":
			scc.LogLevel = key.MustString(scc.LogLevel)
		case "gomaxprocs":
			scc.GoMaxProcs = key.MustInt(scc.GoMaxProcs)
		case "tick_interval_ms":
			scc.TickInterval = time.Millisecond * time.Duration(key.MustInt(_DEFAULT_TICK_INTERVAL_MS))
		case "max_party_size":
			scc.MaxPartySize = key.MustInt(scc.MaxPartySize)
		case "wire_format":
			scc.WireFormat = strings.ToLower(key.MustString(scc.WireFormat))
		default:
			gamelog.Errorf("unknown key in section [server]: %s", key.Name())
		}
	}
}

func readAuthConfig(sec *ini.Section, acc *AuthConfig) {
	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		switch name {
		case "hmac_secret":
			acc.HMACSecret = key.MustString(acc.HMACSecret)
		case "jwks_url":
			acc.JWKSUrl = key.MustString(acc.JWKSUrl)
		case "issuer":
			acc.Issuer = key.MustString(acc.Issuer)
		case "audience":
			acc.Audience = key.MustString(acc.Audience)
		default:
			gamelog.Errorf("unknown key in section [auth]: %s", key.Name())
		}
	}
}

func readStorageConfig(sec *ini.Section, stc *StorageConfig) {
	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		switch name {
		case "type":
			stc.Type = strings.ToLower(key.MustString(stc.Type))
		case "host":
			stc.Host = key.MustString(stc.Host)
		case "start_nodes":
			stc.StartNodes = strings.Split(key.MustString(""), ",")
		case "db_index":
			stc.DBIndex = key.MustInt(stc.DBIndex)
		case "url":
			stc.Url = key.MustString(stc.Url)
		case "db":
			stc.DB = key.MustString(stc.DB)
		case "account_collection":
			stc.AccountCollection = key.MustString(stc.AccountCollection)
		case "character_collection":
			stc.CharacterCollection = key.MustString(stc.CharacterCollection)
		default:
			gamelog.Errorf("unknown key in section [storage]: %s", key.Name())
		}
	}
}

func validateConfig(config *GameServerConfig) {
	if config.Server.Port <= 0 {
		gamelog.Panicf("invalid server port: %d", config.Server.Port)
	}
	if config.Server.TickInterval <= 0 {
		gamelog.Panicf("invalid tick interval: %s", config.Server.TickInterval)
	}
	if config.Server.MaxPartySize <= 0 {
		gamelog.Panicf("invalid max party size: %d", config.Server.MaxPartySize)
	}
	if config.Server.WireFormat != "msgpack" && config.Server.WireFormat != "json" {
		gamelog.Panicf("invalid wire format: %s", config.Server.WireFormat)
	}
	switch config.Storage.Type {
	case "memory", "redis", "rediscluster", "mongodb":
	default:
		gamelog.Panicf("unknown storage type: %s", config.Storage.Type)
	}
}
