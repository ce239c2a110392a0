package community_chat

import (
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

type Config struct {
	DB          *gorm.DB
	RDB         *redis.Client
	TablePrefix string

	// SnapshotLimit 消息流每次重拉的快照条数
	SnapshotLimit int

	// RetryMin / RetryMax 实时订阅断开后的重连退避区间
	RetryMin time.Duration
	RetryMax time.Duration

	// TypingSweepInterval / TypingSweepRetention 输入指示器清扫：
	// 每隔 interval 删掉 retention 之前的旧行。interval <= 0 关闭清扫。
	TypingSweepInterval  time.Duration
	TypingSweepRetention time.Duration
}

type Option func(*Config)

func WithDB(db *gorm.DB) Option {
	return func(c *Config) {
		c.DB = db
	}
}

func WithRDB(rdb *redis.Client) Option {
	return func(c *Config) {
		c.RDB = rdb
	}
}

func WithTablePrefix(prefix string) Option {
	return func(c *Config) {
		c.TablePrefix = prefix
	}
}

func WithSnapshotLimit(limit int) Option {
	return func(c *Config) {
		c.SnapshotLimit = limit
	}
}

// WithFeedBackoff 配置实时订阅的重连退避区间
func WithFeedBackoff(min, max time.Duration) Option {
	return func(c *Config) {
		c.RetryMin = min
		c.RetryMax = max
	}
}

// WithTypingSweep 配置输入指示器的周期清扫。interval <= 0 关闭。
func WithTypingSweep(interval, retention time.Duration) Option {
	return func(c *Config) {
		c.TypingSweepInterval = interval
		c.TypingSweepRetention = retention
	}
}
