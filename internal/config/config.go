// Package config 配置管理模块
package config

import (
	"encoding/json"
	"os"
	"sync"
)

// Config 全局配置结构
type Config struct {
	BotName  string  `json:"bot_name"`
	BotToken string  `json:"bot_token"`
	Owner    int64   `json:"owner"`
	Groups   []int64 `json:"group"`
	Channel  string  `json:"channel"`
	Admins   []int64 `json:"admins"`

	Database  DatabaseConfig  `json:"database"`
	Lottery   LotteryConfig   `json:"lottery"`
	Scheduler SchedulerConfig `json:"scheduler"`
	API       APIConfig       `json:"api"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// LotteryConfig 抽奖配置
type LotteryConfig struct {
	Enabled         bool   `json:"enabled"`
	DefaultMode     string `json:"default_mode"`      // claim(手动领取) / auto(自动发送)
	ClaimTimeout    int64  `json:"claim_timeout"`     // 领奖超时（秒）
	FallbackPrize   string `json:"fallback_prize"`    // 库存耗尽时的保底奖品文案
	MaxParticipants int    `json:"max_participants"`  // 单场人数上限
	MaxWinners      int    `json:"max_winners"`       // 单场中奖人数上限
}

// SchedulerConfig 定时任务配置
type SchedulerConfig struct {
	SweepExpired bool `json:"sweep_expired"`
	SweepMinutes int  `json:"sweep_minutes"`
}

// APIConfig Web API 配置
type APIConfig struct {
	Enabled      bool     `json:"enabled"`
	Host         string   `json:"host"`
	Port         int      `json:"port"`
	AllowOrigins []string `json:"allow_origins"`
}

var (
	cfg     *Config
	cfgLock sync.RWMutex
)

// Load 加载配置文件
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	// 设置默认值
	config.setDefaults()

	cfgLock.Lock()
	cfg = &config
	cfgLock.Unlock()

	return &config, nil
}

// Get 获取全局配置（线程安全）
func Get() *Config {
	cfgLock.RLock()
	defer cfgLock.RUnlock()
	return cfg
}

// Save 保存配置到文件
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// setDefaults 设置默认值
func (c *Config) setDefaults() {
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Lottery.DefaultMode == "" {
		c.Lottery.DefaultMode = "claim"
	}
	if c.Lottery.ClaimTimeout == 0 {
		c.Lottery.ClaimTimeout = 86400 // 默认 24 小时
	}
	if c.Lottery.FallbackPrize == "" {
		c.Lottery.FallbackPrize = "谢谢参与，请联系管理员领取安慰奖"
	}
	if c.Lottery.MaxParticipants == 0 {
		c.Lottery.MaxParticipants = 10000
	}
	if c.Lottery.MaxWinners == 0 {
		c.Lottery.MaxWinners = 100
	}
	if c.Scheduler.SweepMinutes == 0 {
		c.Scheduler.SweepMinutes = 30
	}
	if c.API.Port == 0 {
		c.API.Port = 8838
	}
	if len(c.API.AllowOrigins) == 0 {
		c.API.AllowOrigins = []string{"*"}
	}
}

// IsAdmin 判断是否是管理员
func (c *Config) IsAdmin(userID int64) bool {
	if userID == c.Owner {
		return true
	}
	for _, admin := range c.Admins {
		if admin == userID {
			return true
		}
	}
	return false
}

// IsOwner 判断是否是 Owner
func (c *Config) IsOwner(userID int64) bool {
	return userID == c.Owner
}

// IsInGroup 判断群组是否在配置中
func (c *Config) IsInGroup(groupID int64) bool {
	for _, g := range c.Groups {
		if g == groupID {
			return true
		}
	}
	return false
}

// configPath 存储配置文件路径
var configPath string

// GetConfigPath 获取配置文件路径
func GetConfigPath() string {
	return configPath
}

// SetConfigPath 设置配置文件路径
func SetConfigPath(path string) {
	configPath = path
}

// Reload 重新加载配置文件
func Reload() (*Config, error) {
	if configPath == "" {
		return nil, nil
	}
	return Load(configPath)
}

// AddAdmin 添加管理员
func (c *Config) AddAdmin(userID int64) bool {
	for _, admin := range c.Admins {
		if admin == userID {
			return false // 已经是管理员
		}
	}
	c.Admins = append(c.Admins, userID)
	return true
}

// RemoveAdmin 移除管理员
func (c *Config) RemoveAdmin(userID int64) bool {
	for i, admin := range c.Admins {
		if admin == userID {
			c.Admins = append(c.Admins[:i], c.Admins[i+1:]...)
			return true
		}
	}
	return false
}
