package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/smallbiznis/roomlease/internal/audit/domain"
	authdomain "github.com/smallbiznis/roomlease/internal/auth/domain"
	contractdomain "github.com/smallbiznis/roomlease/internal/contract/domain"
	invoicedomain "github.com/smallbiznis/roomlease/internal/invoice/domain"
	roomdomain "github.com/smallbiznis/roomlease/internal/room/domain"
	tenantdomain "github.com/smallbiznis/roomlease/internal/tenant/domain"
	"gorm.io/gorm"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Apply brings the schema up to date. Postgres runs the versioned SQL
// migrations; other dialects use AutoMigrate.
func Apply(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	if conn.Dialector.Name() != "postgres" {
		return AutoMigrate(conn)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB)
}

// RunMigrations applies the embedded postgres migrations.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// AutoMigrate creates the schema from the models and adds the partial
// unique index on active contracts where the dialect supports it.
func AutoMigrate(conn *gorm.DB) error {
	err := conn.AutoMigrate(
		&authdomain.User{},
		&tenantdomain.Tenant{},
		&roomdomain.Room{},
		&contractdomain.Contract{},
		&invoicedomain.Invoice{},
		&auditdomain.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	// MySQL has no partial indexes; the row lock in the contract service
	// is the only guard there.
	if conn.Dialector.Name() == "mysql" {
		return nil
	}

	stmt := fmt.Sprintf(
		"CREATE UNIQUE INDEX IF NOT EXISTS %s ON contracts (room_id, tenant_id) WHERE status = '%s'",
		contractdomain.ActiveIndexName,
		contractdomain.ContractStatusActive,
	)
	if err := conn.Exec(stmt).Error; err != nil {
		return fmt.Errorf("create active contract index: %w", err)
	}
	return nil
}
