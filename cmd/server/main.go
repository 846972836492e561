package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Skufu/AortaRisk/internal/config"
	"github.com/Skufu/AortaRisk/internal/features"
	"github.com/Skufu/AortaRisk/internal/inference"
	"github.com/Skufu/AortaRisk/internal/model"
	"github.com/Skufu/AortaRisk/internal/patient"
	"github.com/Skufu/AortaRisk/internal/report"
	"github.com/Skufu/AortaRisk/internal/server"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "aortarisk",
		Short:        "3-year mortality risk for acute Type B aortic dissection",
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd())
	root.AddCommand(predictCmd())
	root.AddCommand(schemaCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the risk form server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func predictCmd() *cobra.Command {
	defaults := patient.Defaults()
	var (
		in       patient.Input
		coronary string
		renal    string
	)
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Score one patient and print the report as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if in.CoronaryDisease, err = patient.ParseChoice(coronary); err != nil {
				return fmt.Errorf("--coronary: %w", err)
			}
			if in.RenalDysfunction, err = patient.ParseChoice(renal); err != nil {
				return fmt.Errorf("--renal: %w", err)
			}
			if err := in.Validate(); err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			engine, closeDB, err := bootstrap(cmd.Context(), cfg, zerolog.Nop())
			if err != nil {
				return err
			}
			defer closeDB()

			rep, err := report.Build(engine, in)
			if err != nil {
				return fmt.Errorf("prediction failed: %w", err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rep)
		},
	}
	cmd.Flags().IntVar(&in.Age, "age", defaults.Age, "Age (years), 20-100")
	cmd.Flags().IntVar(&in.HeartRate, "hr", defaults.HeartRate, "Heart rate (bpm), 30-180")
	cmd.Flags().IntVar(&in.Hemoglobin, "hgb", defaults.Hemoglobin, "Hemoglobin (g/L), 50-200")
	cmd.Flags().IntVar(&in.HospitalizationDays, "days", defaults.HospitalizationDays, "Hospitalization days, 1-100")
	cmd.Flags().Float64Var(&in.BUN, "bun", defaults.BUN, "Blood urea nitrogen (mmol/L), 1.0-50.0")
	cmd.Flags().StringVar(&coronary, "coronary", patient.No, "Coronary heart disease (No|Yes)")
	cmd.Flags().StringVar(&renal, "renal", patient.No, "Renal insufficiency (No|Yes)")
	return cmd
}

func schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Compare the encoder's feature schema with the fitted scaler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			src, closeDB, err := artifactSource(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeDB()

			artifacts, err := model.Load(ctx, src, cfg.ScalerPath, cfg.ModelPath)
			if err != nil {
				return err
			}
			verr := features.Canonical.Verify(artifacts.Scaler.FeatureNamesIn)
			printSchema(cmd.OutOrStdout(), features.Canonical, artifacts.Scaler.FeatureNamesIn, verr)
			return verr
		},
	}
}

func printSchema(out io.Writer, schema features.Schema, fitted []string, verr error) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tENCODER\tUNIT\tSCALER\t")
	for i, c := range schema.Columns() {
		name := "-"
		if i < len(fitted) {
			name = fitted[i]
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t\n", i, c.Name, c.Unit, name)
	}
	for i := schema.Len(); i < len(fitted); i++ {
		fmt.Fprintf(w, "%d\t-\t-\t%s\t\n", i, fitted[i])
	}
	w.Flush()
	if verr != nil {
		fmt.Fprintf(out, "MISMATCH: %v\n", verr)
		return
	}
	fmt.Fprintln(out, "OK: schema matches fitted scaler")
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	logger := newLogger(cfg)
	gin.SetMode(cfg.GinMode)

	ctx := context.Background()
	opts := server.Options{Logger: logger, CORSOrigins: cfg.CORSOrigins}
	src := sourceFor(cfg, nil)
	if cfg.UsesDB() {
		pool, err := connectDB(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("database connection failed")
		}
		defer pool.Close()
		logger.Info().Msg("connected to database")
		opts.DB = pool
		src = sourceFor(cfg, pool)
	}

	engine, err := loadEngine(ctx, cfg, src, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load model artifacts")
	}
	opts.Engine = engine

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.NewRouter(opts),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	logger.Info().Str("port", cfg.Port).Msg("server listening")
	waitForShutdown(srv, logger)
	return nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

// bootstrap opens whatever the artifact source needs and returns a ready
// engine. The returned func releases the database pool, if any.
func bootstrap(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*inference.Engine, func(), error) {
	src, closeDB, err := artifactSource(ctx, cfg)
	if err != nil {
		return nil, closeDB, err
	}
	engine, err := loadEngine(ctx, cfg, src, logger)
	if err != nil {
		closeDB()
		return nil, func() {}, err
	}
	return engine, closeDB, nil
}

func artifactSource(ctx context.Context, cfg *config.Config) (model.Source, func(), error) {
	if cfg.ArtifactSource != config.SourcePostgres {
		return sourceFor(cfg, nil), func() {}, nil
	}
	pool, err := connectDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, func() {}, fmt.Errorf("database connection failed: %w", err)
	}
	return sourceFor(cfg, pool), pool.Close, nil
}

func sourceFor(cfg *config.Config, db model.RowQuerier) model.Source {
	if cfg.ArtifactSource == config.SourcePostgres && db != nil {
		return model.PostgresSource{DB: db}
	}
	return model.FileSource{Dir: cfg.ArtifactDir}
}

func loadEngine(ctx context.Context, cfg *config.Config, src model.Source, logger zerolog.Logger) (*inference.Engine, error) {
	artifacts, err := model.Load(ctx, src, cfg.ScalerPath, cfg.ModelPath)
	if err != nil {
		return nil, err
	}
	engine, err := inference.New(artifacts, features.Canonical)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("source", cfg.ArtifactSource).
		Str("scaler", cfg.ScalerPath).
		Str("model", cfg.ModelPath).
		Str("kernel", string(artifacts.Model.Kernel)).
		Int("support_vectors", len(artifacts.Model.SupportVectors)).
		Strs("features", features.Canonical.Names()).
		Msg("model artifacts loaded")
	return engine, nil
}

func connectDB(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return pool, nil
}

func waitForShutdown(srv *http.Server, logger zerolog.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info().Msg("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
