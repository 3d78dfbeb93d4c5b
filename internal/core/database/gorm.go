package database

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/glebarez/sqlite"
	mysqldrv "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"gin-gorm-employees/internal/core/logger"
	"gin-gorm-employees/internal/domain"
)

var (
	ErrUnsupportedDriver = errors.New("unsupported db driver")
	ErrMissingDSN        = errors.New("db dsn is required")
)

type Opts struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	LogLevel           string
	Logger             *zap.Logger // 为空时使用 gorm 默认 logger
}

func NewGorm(o Opts) (*gorm.DB, error) {
	dial, err := dialector(o)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dial, &gorm.Config{
		Logger: gormLogger(o.Logger, o.LogLevel),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// 内存 sqlite 每个连接都是独立的库，只能保留一个连接
	if o.Driver == "sqlite" && strings.Contains(o.DSN, ":memory:") {
		o.MaxOpenConns, o.MaxIdleConns, o.ConnMaxLifetimeMin = 1, 1, 0
	}
	if o.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(o.MaxOpenConns)
	}
	if o.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(o.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(time.Duration(o.ConnMaxLifetimeMin) * time.Minute)
	db = db.
		Session(&gorm.Session{
			PrepareStmt:            true,
			SkipDefaultTransaction: true, // 单行操作本身是原子的
		})
	return db, nil
}

// Connect 以指数退避重试 NewGorm；配置错误不重试。
// 最终失败时返回的错误包含 domain.ErrStoreUnavailable。
func Connect(ctx context.Context, o Opts, maxTries uint) (*gorm.DB, error) {
	if maxTries == 0 {
		maxTries = 1
	}
	db, err := backoff.Retry(ctx, func() (*gorm.DB, error) {
		db, err := NewGorm(o)
		if errors.Is(err, ErrUnsupportedDriver) || errors.Is(err, ErrMissingDSN) {
			return nil, backoff.Permanent(err)
		}
		return db, err
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			if o.Logger != nil {
				o.Logger.Warn("db connect failed, retrying", zap.Error(err), zap.Duration("next", next))
			}
		}),
	)
	if err != nil {
		if errors.Is(err, ErrUnsupportedDriver) || errors.Is(err, ErrMissingDSN) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return db, nil
}

func dialector(o Opts) (gorm.Dialector, error) {
	if strings.TrimSpace(o.DSN) == "" {
		return nil, ErrMissingDSN
	}
	switch o.Driver {
	case "postgres":
		return postgres.Open(o.DSN), nil
	case "mysql":
		dsn, err := normalizeMySQLDSN(o.DSN, o.Username, o.Password)
		if err != nil {
			return nil, err
		}
		if o.Logger != nil {
			o.Logger.Info("mysql dsn", zap.String("dsn", maskMySQLDSN(dsn)))
		}
		return mysql.Open(dsn), nil
	case "sqlserver":
		return sqlserver.Open(o.DSN), nil
	case "sqlite":
		return sqlite.Open(o.DSN), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, o.Driver)
	}
}

func gormLogger(l *zap.Logger, level string) gormlogger.Interface {
	lvl := gormlogger.Warn
	switch level {
	case "silent":
		lvl = gormlogger.Silent
	case "error":
		lvl = gormlogger.Error
	case "info":
		lvl = gormlogger.Info
	}
	if l == nil {
		return gormlogger.Default.LogMode(lvl)
	}
	std, err := logger.ToStdLogger(l.Named("gorm"), zapcore.InfoLevel)
	if err != nil {
		return gormlogger.Default.LogMode(lvl)
	}
	return gormlogger.New(std, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  lvl,
		IgnoreRecordNotFoundError: true,
	})
}

// normalizeMySQLDSN 接受 go-sql-driver 原生 DSN 或 mysql:// / jdbc:mysql:// URL，
// 统一转成 go-sql-driver 的格式
func normalizeMySQLDSN(input, userOverride, passOverride string) (string, error) {
	in := strings.TrimPrefix(strings.TrimSpace(input), "jdbc:")
	if strings.HasPrefix(in, "mysql://") {
		var err error
		if in, err = mysqlURLToDSN(in); err != nil {
			return "", err
		}
	}
	cfg, err := mysqldrv.ParseDSN(in)
	if err != nil {
		return "", err
	}
	if userOverride != "" {
		cfg.User = userOverride
	}
	if passOverride != "" {
		cfg.Passwd = passOverride
	}
	if !strings.Contains(in, "parseTime=") {
		cfg.ParseTime = true
	}
	if !strings.Contains(in, "charset=") {
		if cfg.Params == nil {
			cfg.Params = map[string]string{}
		}
		cfg.Params["charset"] = "utf8mb4"
	}
	return cfg.FormatDSN(), nil
}

func mysqlURLToDSN(in string) (string, error) {
	u, err := url.Parse(in)
	if err != nil {
		return "", err
	}
	var user, pass string
	if u.User != nil {
		user = u.User.Username()
		pass, _ = u.User.Password()
	}
	q := u.Query()
	if v := q.Get("user"); v != "" {
		user = v
	}
	if v := q.Get("password"); v != "" {
		pass = v
	}
	q.Del("user")
	q.Del("password")

	// JDBC/Navicat 参数适配
	if q.Get("characterEncoding") != "" && q.Get("charset") == "" {
		q.Set("charset", q.Get("characterEncoding"))
	}
	q.Del("characterEncoding")
	q.Del("useUnicode")
	q.Del("zeroDateTimeBehavior")
	if v := strings.ToLower(q.Get("useSSL")); v != "" {
		switch v {
		case "true", "1":
			q.Set("tls", "true")
		case "skip-verify", "preferred":
			q.Set("tls", v)
		default:
			q.Set("tls", "false")
		}
		q.Del("useSSL")
	}
	if tz := q.Get("serverTimezone"); tz != "" {
		q.Set("loc", tz)
		q.Del("serverTimezone")
	}

	cred := user
	if pass != "" {
		cred += ":" + pass
	}
	if cred != "" {
		cred += "@"
	}
	dsn := fmt.Sprintf("%stcp(%s)/%s", cred, u.Host, strings.TrimPrefix(u.Path, "/"))
	if enc := q.Encode(); enc != "" {
		dsn += "?" + enc
	}
	return dsn, nil
}

func maskMySQLDSN(dsn string) string {
	cfg, err := mysqldrv.ParseDSN(dsn)
	if err != nil {
		return "<invalid dsn>"
	}
	if cfg.Passwd != "" {
		cfg.Passwd = "****"
	}
	return cfg.FormatDSN()
}

// AutoMigrate 建表/补列，只在 db.autoMigrate 或 migrate 命令中调用
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.Employee{})
}
