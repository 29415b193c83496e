package mysql

import (
	"log"
	"os"
	"strings"
	"time"

	"CipherChat/config"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"
)

var global *gorm.DB

// DB 返回全局数据库句柄（未初始化时为 nil）。
func DB() *gorm.DB { return global }

// ReplaceGlobal 设置全局数据库句柄，需在进程启动时调用一次。
func ReplaceGlobal(db *gorm.DB) { global = db }

// Build 根据配置构建 gorm 句柄。
// - 开启 TranslateError，把驱动错误翻译为 gorm.ErrDuplicatedKey 等哨兵错误。
// - 配置了只读副本时通过 dbresolver 做读写分离：事务与写操作固定走主库。
func Build(cfg config.MySQLConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		Logger:         buildGormLogger(cfg),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if len(cfg.ReplicaDSNs) > 0 {
		replicas := make([]gorm.Dialector, 0, len(cfg.ReplicaDSNs))
		for _, dsn := range cfg.ReplicaDSNs {
			replicas = append(replicas, mysql.Open(dsn))
		}
		err = db.Use(dbresolver.Register(dbresolver.Config{
			Replicas: replicas,
			Policy:   dbresolver.RandomPolicy{},
		}))
		if err != nil {
			return nil, err
		}
	}

	return db, nil
}

// buildGormLogger 根据配置构建 gorm 日志器（慢查询阈值 + 级别）。
func buildGormLogger(cfg config.MySQLConfig) gormlogger.Interface {
	level := gormlogger.Warn
	switch strings.ToLower(cfg.LogLevel) {
	case "silent":
		level = gormlogger.Silent
	case "error":
		level = gormlogger.Error
	case "info":
		level = gormlogger.Info
	}

	slow := cfg.SlowThreshold
	if slow <= 0 {
		slow = 200 * time.Millisecond
	}

	return gormlogger.New(log.New(os.Stdout, "\r\n", log.LstdFlags), gormlogger.Config{
		SlowThreshold:             slow,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}
