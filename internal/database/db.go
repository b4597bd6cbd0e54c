// Package database 数据库初始化
package database

import (
	"fmt"
	"time"

	driver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/smysle/sakura-lottery-go/internal/config"
	"github.com/smysle/sakura-lottery-go/internal/database/models"
	"github.com/smysle/sakura-lottery-go/pkg/logger"
)

var DB *gorm.DB

// Init 初始化数据库连接并执行迁移
// 迁移在对外提供服务之前一次性完成，运行期不再变更表结构
func Init(cfg *config.DatabaseConfig) error {
	dsnCfg := driver.NewConfig()
	dsnCfg.User = cfg.User
	dsnCfg.Passwd = cfg.Password
	dsnCfg.Net = "tcp"
	dsnCfg.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	dsnCfg.DBName = cfg.Name
	dsnCfg.ParseTime = true
	dsnCfg.Loc = time.Local
	dsnCfg.Params = map[string]string{"charset": "utf8mb4"}

	// 配置 GORM
	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	}

	db, err := gorm.Open(mysql.Open(dsnCfg.FormatDSN()), gormConfig)
	if err != nil {
		return fmt.Errorf("连接数据库失败: %w", err)
	}

	// 获取底层 sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("获取数据库连接池失败: %w", err)
	}

	// 配置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	// 执行版本化迁移
	if err := migrate(db); err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}

	DB = db
	logger.Info().Msg("数据库连接成功")
	return nil
}

// schemaMigration 迁移版本记录表
type schemaMigration struct {
	Version   int       `gorm:"primaryKey"`
	AppliedAt time.Time `gorm:"column:applied_at"`
}

func (schemaMigration) TableName() string {
	return "schema_migrations"
}

// migration 单个迁移步骤
type migration struct {
	version int
	name    string
	run     func(db *gorm.DB) error
}

// migrations 全部迁移步骤，按版本号顺序执行，已执行的版本跳过
var migrations = []migration{
	{
		version: 1,
		name:    "抽奖核心表",
		run: func(db *gorm.DB) error {
			return db.AutoMigrate(
				&models.Lottery{},
				&models.Participant{},
				&models.PrizeItem{},
				&models.WinnerRecord{},
			)
		},
	},
}

// migrate 执行尚未应用的迁移
func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&schemaMigration{}); err != nil {
		return err
	}

	var current int
	db.Model(&schemaMigration{}).Select("COALESCE(MAX(version), 0)").Scan(&current)

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		if err := m.run(db); err != nil {
			return fmt.Errorf("迁移 v%d(%s) 失败: %w", m.version, m.name, err)
		}

		record := schemaMigration{Version: m.version, AppliedAt: time.Now()}
		if err := db.Create(&record).Error; err != nil {
			return err
		}

		logger.Info().Int("version", m.version).Str("name", m.name).Msg("已应用数据库迁移")
	}

	return nil
}

// Close 关闭数据库连接
func Close() error {
	if DB != nil {
		sqlDB, err := DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

// GetDB 获取数据库实例
func GetDB() *gorm.DB {
	return DB
}
