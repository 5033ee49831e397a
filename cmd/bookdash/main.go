package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bookdash/internal/api"
	"bookdash/internal/catalog"
	"bookdash/internal/config"
	"bookdash/internal/provider"
	"bookdash/internal/search"
	"bookdash/internal/storage"
	"bookdash/internal/validate"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	var debug bool

	root := &cobra.Command{
		Use:   "bookdash",
		Short: "Book catalog search with edition and binding detection",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// API keys may live in a local .env; absence is fine.
			_ = godotenv.Load()
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	root.AddCommand(newServeCmd(&configPath, &debug))
	root.AddCommand(newSearchCmd(&configPath, &debug))
	return root
}

func loadConfig(path string, debug bool) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if debug {
		cfg.Debug = true
	}
	return cfg, nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// buildService constructs the provider set and the orchestrator.
func buildService(cfg *config.Config, log *zap.Logger) *search.Service {
	apiKey := os.Getenv(cfg.Providers.GoogleAPIKeyEnv)

	googleBooks := provider.NewGoogleBooks(&cfg.Providers, &cfg.Scoring, apiKey, log)
	openLibrary := provider.NewOpenLibrary(&cfg.Providers, &cfg.Scoring, log)

	validator := validate.New(googleBooks, catalog.SourceGoogleBooks, log)

	providers := []provider.Provider{googleBooks, openLibrary}
	return search.NewService(providers, validator, cfg.Validate, log)
}

func newServeCmd(configPath *string, debug *bool) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath, *debug)
			if err != nil {
				return err
			}
			log, err := newLogger(cfg.Debug)
			if err != nil {
				return err
			}
			defer log.Sync()

			if err := os.MkdirAll(filepath.Dir(cfg.Storage.DatabasePath), 0755); err != nil {
				return fmt.Errorf("failed to create data directory: %w", err)
			}
			db, err := storage.NewDatabase(cfg.Storage.DatabasePath)
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer db.Close()

			svc := buildService(cfg, log)
			handler := api.NewHandler(svc, db, log)

			if !cfg.Debug {
				gin.SetMode(gin.ReleaseMode)
			}
			r := gin.Default()
			r.Use(corsMiddleware())
			handler.RegisterRoutes(r)

			bind := addr
			if bind == "" {
				bind = fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
			}
			log.Info("bookdash server starting", zap.String("addr", bind))
			return r.Run(bind)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Server bind address (overrides config)")
	return cmd
}

func newSearchCmd(configPath *string, debug *bool) *cobra.Command {
	var title, author, isbn string
	var doValidate, asJSON bool

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run one search through the pipeline and print the editions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath, *debug)
			if err != nil {
				return err
			}
			log, err := newLogger(cfg.Debug)
			if err != nil {
				return err
			}
			defer log.Sync()

			svc := buildService(cfg, log)
			resp, err := svc.Search(context.Background(), search.Request{
				Title:    title,
				Author:   author,
				ISBN:     isbn,
				Validate: doValidate,
			})
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(resp.Groups)
			}
			printGroups(cmd, resp.Groups)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Title to search for")
	cmd.Flags().StringVar(&author, "author", "", "Author to search for")
	cmd.Flags().StringVar(&isbn, "isbn", "", "ISBN to look up")
	cmd.Flags().BoolVar(&doValidate, "validate", false, "Run publication validation")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print raw JSON")
	return cmd
}

func printGroups(cmd *cobra.Command, groups []catalog.EditionGroup) {
	out := cmd.OutOrStdout()
	if len(groups) == 0 {
		fmt.Fprintln(out, "no matches")
		return
	}
	for _, g := range groups {
		label := fmt.Sprintf("Edition %d", g.Number)
		if g.Type != "" {
			label = capitalize(g.Type) + " Edition"
		}
		if g.Year > 0 {
			label += fmt.Sprintf(" (%d)", g.Year)
		}
		fmt.Fprintln(out, label)
		for _, b := range g.Books {
			line := fmt.Sprintf("  [%s] %s", catalog.NormalizeBinding(b.Binding), b.Title)
			if b.ISBN != "" {
				line += " — " + b.ISBN
			}
			fmt.Fprintln(out, line)
		}
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
