package main

import (
	"fmt"
	"log/slog"

	"github.com/Veraticus/spice-sms/internal/cli"
	"github.com/Veraticus/spice-sms/internal/storage"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

An existing database is backed up before its schema is upgraded. Backups are
written to a backups directory next to the database file.`,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("status", false, "Show current migration status without applying changes")
	cmd.Flags().Bool("no-backup", false, "Skip the backup taken before an upgrade")
	cmd.Flags().Bool("backup", false, "Take a backup now without migrating")
	cmd.Flags().Bool("list-backups", false, "List existing backups")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	status, _ := cmd.Flags().GetBool("status")
	noBackup, _ := cmd.Flags().GetBool("no-backup")
	backupOnly, _ := cmd.Flags().GetBool("backup")
	listBackups, _ := cmd.Flags().GetBool("list-backups")
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	store, err := storage.NewSQLiteStorage(settings.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	if listBackups {
		return printBackups(cmd, store)
	}

	current, err := store.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	if status {
		_, _ = fmt.Fprintf(out, "Database:        %s\n", store.Path())
		_, _ = fmt.Fprintf(out, "Current version: %d\n", current)
		_, _ = fmt.Fprintf(out, "Latest version:  %d\n", storage.ExpectedSchemaVersion)
		if current < storage.ExpectedSchemaVersion {
			_, _ = fmt.Fprintln(out, cli.FormatWarning("Migrations pending; run spice migrate"))
		}
		return nil
	}

	if backupOnly {
		info, err := store.Backup(ctx, "manual")
		if err != nil {
			return fmt.Errorf("backup failed: %w", err)
		}
		_, _ = fmt.Fprintln(out, cli.FormatSuccess("Backup written to "+info.Path))
		return nil
	}

	if current >= storage.ExpectedSchemaVersion {
		_, _ = fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Database is up to date (version %d)", current)))
		return nil
	}

	if current > 0 && !noBackup {
		info, err := store.Backup(ctx, fmt.Sprintf("before migration %d to %d", current, storage.ExpectedSchemaVersion))
		if err != nil {
			return fmt.Errorf("backup before migration failed (use --no-backup to skip): %w", err)
		}
		slog.Info("Backed up database before migration", "path", info.Path)
	}

	slog.Info("Running database migrations", "database", store.Path(), "from", current, "to", storage.ExpectedSchemaVersion)
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	_, _ = fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Database migrated to version %d", storage.ExpectedSchemaVersion)))
	return nil
}

func printBackups(cmd *cobra.Command, store *storage.SQLiteStorage) error {
	backups, err := store.ListBackups()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("No backups in "+store.BackupDir()))
		return nil
	}

	w := newTable(cmd)
	_, _ = fmt.Fprintln(w, "ID\tCREATED\tSCHEMA\tTRANSACTIONS\tSIZE\tREASON")
	_, _ = fmt.Fprintln(w, "──\t───────\t──────\t────────────\t────\t──────")
	for _, b := range backups {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d KB\t%s\n",
			b.ID,
			b.CreatedAt.Format("2006-01-02 15:04"),
			b.SchemaVersion,
			b.RowCounts["transactions"],
			b.FileSize/1024,
			b.Reason)
	}
	return w.Flush()
}
