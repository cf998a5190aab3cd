package config

import (
	"fmt"
	"time"

	"GeoConquest/internal/conquest/domain"
)

type Config struct {
	Log       LogConfig         `yaml:"log" mapstructure:"log"`
	World     WorldConfig       `yaml:"world" mapstructure:"world"`
	Gate      GateConfig        `yaml:"gate" mapstructure:"gate"`
	Store     StoreConfig       `yaml:"store" mapstructure:"store"`
	MongoDB   MongoDBConfig     `yaml:"mongodb" mapstructure:"mongodb"`
	MySQL     MySQLConfig       `yaml:"mysql" mapstructure:"mysql"`
	SQLite    SQLiteConfig      `yaml:"sqlite" mapstructure:"sqlite"`
	Rules     domain.Rules      `yaml:"rules" mapstructure:"rules"`
	Sync      SyncConfig        `yaml:"sync" mapstructure:"sync"`
	Catalog   []domain.ShopItem `yaml:"catalog" mapstructure:"catalog"`
	JWTSecret string            `yaml:"jwt_secret" mapstructure:"jwt_secret"`
}

type LogConfig struct {
	FileDir    string `yaml:"file_dir" mapstructure:"file_dir"`
	MaxSize    int    `yaml:"max_size" mapstructure:"max_size"` // MB
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAge     int    `yaml:"max_age" mapstructure:"max_age"` // days
	Compress   bool   `yaml:"compress" mapstructure:"compress"`
	Level      string `yaml:"level" mapstructure:"level"` // debug/info/warn/error...
	Dev        bool   `yaml:"dev" mapstructure:"dev"`
}

// WorldConfig 是权威存储进程（cmd/world）的配置。
type WorldConfig struct {
	Host        string        `yaml:"host" mapstructure:"host"`
	Port        int           `yaml:"port" mapstructure:"port"`
	NodeID      int64         `yaml:"node_id" mapstructure:"node_id"`
	AskTimeout  time.Duration `yaml:"ask_timeout" mapstructure:"ask_timeout"`
	FlushEvery  time.Duration `yaml:"flush_every" mapstructure:"flush_every"`
	WatchBuffer int           `yaml:"watch_buffer" mapstructure:"watch_buffer"`
	JournalDir  string        `yaml:"journal_dir" mapstructure:"journal_dir"`
}

// GateConfig 是客户端网关（cmd/gate）的配置。
type GateConfig struct {
	Host      string  `yaml:"host" mapstructure:"host"`
	Port      int     `yaml:"port" mapstructure:"port"`
	WSPath    string  `yaml:"ws_path" mapstructure:"ws_path"`
	WorldAddr string  `yaml:"world_addr" mapstructure:"world_addr"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"` // 每连接每秒意图数
	RateBurst int     `yaml:"rate_burst" mapstructure:"rate_burst"`
	Compress  bool    `yaml:"compress" mapstructure:"compress"` // ws 帧是否 gzip 压缩
}

const (
	StoreMemory  = "memory"
	StoreMongoDB = "mongodb"
	StoreMySQL   = "mysql"
)

type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
}

type MongoDBConfig struct {
	URI             string `yaml:"uri" mapstructure:"uri"`
	Database        string `yaml:"database" mapstructure:"database"`
	ConnectTimeoutS int    `yaml:"connect_timeout_s" mapstructure:"connect_timeout_s"`
}

type MySQLConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	DBName   string `yaml:"dbname" mapstructure:"dbname"`
	Charset  string `yaml:"charset" mapstructure:"charset"`
	MaxIdle  int    `yaml:"max_idle" mapstructure:"max_idle"`
	MaxConn  int    `yaml:"max_conn" mapstructure:"max_conn"`
}

// SQLiteConfig 是离线缓存的位置，每个玩家一个库文件；为空则离线状态只在内存里。
type SQLiteConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

const (
	OfflineCombatReject = "reject"
	OfflineCombatLocal  = "local"
)

type SyncConfig struct {
	PollInterval   time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
	WatchRetry     time.Duration `yaml:"watch_retry" mapstructure:"watch_retry"`
	OfflineCombat  string        `yaml:"offline_combat" mapstructure:"offline_combat"`
}

func (c Config) Validate() error {
	if err := c.Rules.Validate(); err != nil {
		return err
	}
	switch c.Store.Driver {
	case StoreMemory, StoreMongoDB, StoreMySQL:
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	switch c.Sync.OfflineCombat {
	case OfflineCombatReject, OfflineCombatLocal:
	default:
		return fmt.Errorf("config: unknown sync.offline_combat %q", c.Sync.OfflineCombat)
	}
	if c.Sync.PollInterval <= 0 || c.Sync.RequestTimeout <= 0 {
		return fmt.Errorf("config: sync intervals must be positive")
	}
	seen := make(map[string]struct{}, len(c.Catalog))
	for _, it := range c.Catalog {
		if it.ID == "" || it.Cost < 0 {
			return fmt.Errorf("config: catalog item %q invalid", it.ID)
		}
		if _, dup := seen[it.ID]; dup {
			return fmt.Errorf("config: catalog item %q duplicated", it.ID)
		}
		seen[it.ID] = struct{}{}
	}
	return nil
}

// ShopCatalog 为空时回落到内置目录。
func (c Config) ShopCatalog() *domain.Catalog {
	if len(c.Catalog) == 0 {
		return domain.DefaultCatalog()
	}
	return domain.NewCatalog(c.Catalog...)
}

func defaults() Config {
	return Config{
		Log:   LogConfig{MaxSize: 100, MaxBackups: 7, MaxAge: 30, Level: "info"},
		World: WorldConfig{Host: "0.0.0.0", Port: 8301, AskTimeout: 3 * time.Second, FlushEvery: 5 * time.Second, WatchBuffer: 256},
		Gate: GateConfig{
			Host: "0.0.0.0", Port: 8300, WSPath: "/ws", WorldAddr: "127.0.0.1:8301",
			RateLimit: 10, RateBurst: 20,
		},
		Store:   StoreConfig{Driver: StoreMemory},
		MongoDB: MongoDBConfig{Database: "geoconquest", ConnectTimeoutS: 3},
		MySQL:   MySQLConfig{Port: 3306, Charset: "utf8mb4", MaxIdle: 5, MaxConn: 20},
		Rules:   domain.DefaultRules(),
		Sync: SyncConfig{
			PollInterval:   2 * time.Second,
			RequestTimeout: 5 * time.Second,
			WatchRetry:     3 * time.Second,
			OfflineCombat:  OfflineCombatReject,
		},
	}
}
