package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"therapytrack/internal/blob"
	"therapytrack/internal/config"
	"therapytrack/internal/database"
	"therapytrack/internal/logging"
	"therapytrack/internal/service"
	"therapytrack/migrations"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app is the state shared by every subcommand once the database is open
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	db      *database.DB
	backups *service.BackupService
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "backup",
		Short:        "TherapyTrack database backup tool",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.Context())
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}

	root.AddCommand(newExportCmd(a), newImportCmd(a))
	return root
}

func (a *app) open(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel, "console")
	if err != nil {
		return err
	}

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	// Run migrations to ensure schema is up to date
	if err := db.RunMigrations(ctx, migrations.FS, logger); err != nil {
		db.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	a.cfg = cfg
	a.logger = logger
	a.db = db
	a.backups = service.NewBackupService(db, logger)
	return nil
}

func (a *app) close() error {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func newExportCmd(a *app) *cobra.Command {
	var output, prefix string
	var upload bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the database to a JSON file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if upload {
				store, err := blob.New(ctx, blob.Config{
					Region:    a.cfg.BackupRegion,
					Bucket:    a.cfg.BackupBucket,
					Prefix:    prefix,
					Endpoint:  a.cfg.BackupEndpoint,
					PathStyle: a.cfg.BackupPathStyle,
				})
				if err != nil {
					return err
				}
				key, err := a.backups.Upload(ctx, store)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Uploaded s3://%s/%s\n", store.Bucket(), key)
				return nil
			}

			// Generate default filename if not provided
			if output == "" {
				output = fmt.Sprintf("backup_%s.json", time.Now().Format("20060102_150405"))
			}
			if dir := filepath.Dir(output); dir != "." && dir != "" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("failed to create output directory: %w", err)
				}
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", output, err)
			}
			if _, err := a.backups.ExportToWriter(ctx, f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}

			info, err := os.Stat(output)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s (%.2f MB)\n", output, float64(info.Size())/1024/1024)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file path (default: backup_YYYYMMDD_HHMMSS.json)")
	cmd.Flags().BoolVar(&upload, "upload", false, "upload to the configured S3 bucket instead of writing a file")
	cmd.Flags().StringVar(&prefix, "prefix", "backups", "object key prefix for uploads")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	var input string
	var clearData, yes bool

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import the database from a JSON file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			f, err := os.Open(input)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", input, err)
			}
			defer f.Close()

			if clearData {
				if !yes && !confirm(cmd.InOrStdin(), cmd.OutOrStdout()) {
					fmt.Fprintln(cmd.OutOrStdout(), "Import cancelled")
					return nil
				}
				if err := a.backups.ClearAll(ctx); err != nil {
					return err
				}
			}

			backup, err := a.backups.ImportFromReader(ctx, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d users, %d children, %d therapies, %d assessments\n",
				len(backup.Users), len(backup.Children), len(backup.Therapies), len(backup.Assessments))
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "input file path")
	cmd.Flags().BoolVar(&clearData, "clear", false, "clear existing data before import (destructive)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt for --clear")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func confirm(in io.Reader, out io.Writer) bool {
	fmt.Fprint(out, "WARNING: This will delete all existing data. Type 'yes' to confirm: ")
	line, _ := bufio.NewReader(in).ReadString('\n')
	return strings.TrimSpace(line) == "yes"
}
