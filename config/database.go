package config

import (
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

var db *gorm.DB

func GetDB() *gorm.DB {
	return db
}

func init() {
	// .env is optional; the listener must come up before any connection is made
	_ = godotenv.Load()
}

// DatabaseDSN builds the MySQL DSN from DB_* variables. A DB_HOST of the
// form "/cloudsql/<instance>" selects the unix socket.
func DatabaseDSN() string {
	host := stringFromEnv("DB_HOST", "127.0.0.1")

	cfg := mysqldriver.NewConfig()
	cfg.User = os.Getenv("DB_USER")
	cfg.Passwd = os.Getenv("DB_PASSWORD")
	cfg.DBName = os.Getenv("DB_NAME")
	if strings.HasPrefix(host, "/cloudsql/") {
		cfg.Net = "unix"
		cfg.Addr = host
	} else {
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(host, stringFromEnv("DB_PORT", "3306"))
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// retryDelay doubles from 2s and stops growing at 30s.
func retryDelay(attempt int) time.Duration {
	d := time.Second << min(attempt, 5)
	if d > 30*time.Second {
		d = 30 * time.Second
	}
	return d
}

// ConnectDatabaseWithRetry opens the global DB, retrying until MySQL answers.
// Call it after the HTTP listener is up.
func ConnectDatabaseWithRetry() {
	dsn := DatabaseDSN()
	log := GetLogger().WithField("component", "database")

	for attempt := 1; ; attempt++ {
		conn, err := gorm.Open(mysql.Open(dsn), gormConfig())
		if err == nil {
			configurePool(conn)
			if err := conn.Use(otelgorm.NewPlugin()); err != nil {
				log.Warnf("otelgorm plugin not installed: %v", err)
			}
			db = conn
			log.WithField("attempt", attempt).Info("connected to database")
			return
		}
		wait := retryDelay(attempt)
		log.WithFields(logrus.Fields{"attempt": attempt, "retry_in": wait.String()}).Warnf("database not reachable: %v", err)
		time.Sleep(wait)
	}
}

func configurePool(conn *gorm.DB) {
	sqlDB, err := conn.DB()
	if err != nil || sqlDB == nil {
		return
	}
	if n := intFromEnv("DB_MAX_OPEN_CONNS", 50); n > 0 {
		sqlDB.SetMaxOpenConns(n)
	}
	if n := intFromEnv("DB_MAX_IDLE_CONNS", 25); n >= 0 {
		sqlDB.SetMaxIdleConns(n)
	}
	if s := intFromEnv("DB_CONN_MAX_LIFETIME_SECONDS", 300); s > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(s) * time.Second)
	}
	if s := intFromEnv("DB_CONN_MAX_IDLE_TIME_SECONDS", 60); s > 0 {
		sqlDB.SetConnMaxIdleTime(time.Duration(s) * time.Second)
	}
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: logger.New(GetLogger(), logger.Config{
			LogLevel:                  logger.Error,
			SlowThreshold:             time.Second,
			IgnoreRecordNotFoundError: true,
		}),
		NamingStrategy: schema.NamingStrategy{},
	}
}

func intFromEnv(key string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return n
}

func boolFromEnv(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "true", "1", "yes", "y", "on":
		return true
	case "false", "0", "no", "n", "off":
		return false
	default:
		return def
	}
}

func stringFromEnv(key string, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
