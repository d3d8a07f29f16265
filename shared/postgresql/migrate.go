package postgresql

import (
	"fmt"
	"log/slog"

	"github.com/fieldscope/reportq/migrations"
	"github.com/pressly/goose/v3"
)

// RunMigrations applies the embedded SQL migrations. The worker service runs
// this at startup; the other services assume the schema exists.
func (c *Client) RunMigrations() error {
	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(&slogGooseLogger{logger: c.logger})

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.Up(c.db.DB, "."); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	c.logger.Info("Database migrations applied")
	return nil
}

// slogGooseLogger forwards goose output to slog.
type slogGooseLogger struct {
	logger *slog.Logger
}

func (l *slogGooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, v...))
}

func (l *slogGooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, v...))
}
