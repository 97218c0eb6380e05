package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"contractflow/internal/config"
	"contractflow/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Store is the explicit persistence handle. Its methods return repositories
// bound to DB, which is either the pool or an open transaction.
type Store struct {
	DB *gorm.DB
}

func NewStore(cfg config.Config) (*Store, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case DriverPostgres, "":
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("POSTGRES_DSN is required for driver %q", DriverPostgres)
		}
		dialector = postgres.Open(cfg.PostgresDSN)
	case DriverSQLite:
		dialector = sqlite.Open(sqliteDSN(cfg.SQLitePath))
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", dialector.Name(), err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	if cfg.DBDriver == DriverSQLite {
		// SQLite has a single writer; one connection keeps transactions
		// serialized instead of failing with SQLITE_BUSY.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	store := &Store{DB: gdb}
	if cfg.AutoMigrate {
		if err := store.Migrate(context.Background()); err != nil {
			return nil, err
		}
	}
	slog.Info("store ready", "driver", dialector.Name(), "auto_migrate", cfg.AutoMigrate)
	return store, nil
}

func sqliteDSN(path string) string {
	if path == "" {
		path = "contractflow.db"
	}
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// Migrate creates or updates the schema and the audit sequence row.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errDBUnavailable
	}
	db := s.DB.WithContext(ctx)
	if err := db.AutoMigrate(
		&BranchModel{},
		&UserModel{},
		&ContractModel{},
		&PaymentModel{},
		&SignatureModel{},
		&AuditLogModel{},
		&AuditSeqModel{},
		&NotificationModel{},
	); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return db.Exec("INSERT INTO audit_seq (id, seq) VALUES (1, 0) ON CONFLICT (id) DO NOTHING").Error
}

func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errDBUnavailable
	}
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx domain.Repositories) error) error {
	if s == nil || s.DB == nil {
		return errDBUnavailable
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{DB: tx})
	})
}

func (s *Store) Contracts() domain.ContractRepository {
	return NewContractRepository(s.DB)
}

func (s *Store) Signatures() domain.SignatureRepository {
	return NewSignatureRepository(s.DB)
}

func (s *Store) Payments() domain.PaymentRepository {
	return NewPaymentRepository(s.DB)
}

func (s *Store) AuditLogs() domain.AuditLogRepository {
	return NewAuditLogRepository(s.DB)
}

func (s *Store) Notifications() domain.NotificationRepository {
	return NewNotificationRepository(s.DB)
}

func (s *Store) Users() domain.UserRepository {
	return NewUserRepository(s.DB)
}

func (s *Store) Branches() domain.BranchRepository {
	return NewBranchRepository(s.DB)
}

var _ domain.Store = (*Store)(nil)
