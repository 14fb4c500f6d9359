package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"warcdb/internal/app"
	"warcdb/internal/config"
	"warcdb/internal/model"
	"warcdb/internal/warcdb"
)

// memoryDB is the --db value that selects a throwaway in-memory store.
const memoryDB = ":memory:"

var (
	dbFlag     string
	configFlag string
)

func main() {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig resolves the config file location and reads it, applying --db.
func loadConfig() (*config.Config, string, error) {
	paths, err := app.DefaultPaths()
	if err != nil {
		return nil, "", fmt.Errorf("getting defaults: %w", err)
	}

	path := paths.Config(configFlag)
	cfg, err := config.ReadOrDefault(path, paths.BaseDir)
	if err != nil {
		return nil, "", fmt.Errorf("reading config: %w", err)
	}

	switch dbFlag {
	case "":
	case memoryDB:
		cfg.Database = config.DatabaseConfig{Type: "memory"}
	default:
		cfg.Database = config.DatabaseConfig{Type: "sqlite", Path: dbFlag}
	}
	return cfg, path, nil
}

// newApp reads the config and creates a WARCDBApp. The caller must defer app.Close().
func newApp() (*app.WARCDBApp, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewWARCDBApp(cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

var rootCmd = &cobra.Command{
	Use:          "warcdb",
	Short:        "Load WARC archives into a SQLite database",
	SilenceUsage: true,
}

// add command
var addCmd = &cobra.Command{
	Use:   "add FILE...",
	Short: "Import WARC archives",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		_, err = a.AddArchives(cmd.Context(), args, func(location string, count int) {
			fmt.Printf("imported %d records from %s\n", count, location)
		})
		return err
	},
}

// list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List imported archives",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		files, err := a.Files(cmd.Context())
		if err != nil {
			return err
		}

		if len(files) == 0 {
			fmt.Println("No archives imported.")
			return nil
		}

		for _, f := range files {
			fmt.Printf("%s  %s\n", warcdb.FormatTimestamp(f.Created), f.Filename)
		}
		return nil
	},
}

var requestsCmd = &cobra.Command{
	Use:   "requests",
	Short: "List request records",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := a.Requests(cmd.Context())
		if err != nil {
			return err
		}
		return printRecords(records)
	},
}

var responsesCmd = &cobra.Command{
	Use:   "responses",
	Short: "List response records",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := a.Responses(cmd.Context())
		if err != nil {
			return err
		}
		return printRecords(records)
	},
}

func printRecords(records []*model.Record) error {
	if len(records) == 0 {
		fmt.Println("No records found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, r := range records {
		date, status := "-", "-"
		if r.WARCDate.Valid {
			date = warcdb.FormatTimestamp(r.WARCDate.Time)
		}
		if r.HTTPStatus.Valid {
			status = fmt.Sprint(r.HTTPStatus.Int64)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.ID, date, status, r.WARCTargetURI.String)
	}
	return w.Flush()
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := app.DefaultPaths()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		path := paths.Config(configFlag)
		cfg := config.NewConfig(paths.BaseDir)
		if err := config.Init(path, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", path)
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		fmt.Printf("Database: %s\n", cfg.Database.Path)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}

		database := cfg.Database.Type
		if cfg.Database.Path != "" {
			database += " " + cfg.Database.Path
		}
		identity := cfg.Encryption.IdentityPath
		if identity == "" {
			identity = "(none)"
		}

		fmt.Printf("Configuration from %s:\n\n", path)
		fmt.Printf("Base Dir:  %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:   %s\n", cfg.LogDir)
		fmt.Printf("Database:  %s\n", database)
		fmt.Printf("Identity:  %s\n", identity)
		if cfg.S3.Region != "" || cfg.S3.Endpoint != "" {
			fmt.Printf("S3:        region=%s endpoint=%s\n", cfg.S3.Region, cfg.S3.Endpoint)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbFlag, "db", "", "database file to use (\":memory:\" for a temporary store)")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "config file (default $WARCDB_CONFIG_PATH or ~/.config/warcdb.toml)")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(requestsCmd)
	rootCmd.AddCommand(responsesCmd)
}
