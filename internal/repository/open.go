package repository

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// Open connects to the form store. driver is "sqlite" (dsn is a file path) or
// "mysql" (dsn needs parseTime=true). Tables are prefixed with namespace.
func Open(driver, dsn, namespace string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch driver {
	case "sqlite", "":
		dialector = sqlite.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}

	return gorm.Open(dialector, GormConfig(namespace))
}

// GormConfig is the gorm configuration shared by every dialect.
func GormConfig(namespace string) *gorm.Config {
	cfg := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	}

	if namespace != "" {
		cfg.NamingStrategy = schema.NamingStrategy{TablePrefix: namespace + "_"}
	}

	return cfg
}
