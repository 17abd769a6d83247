package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/puzzlemind/backend/internal/config"
	"github.com/puzzlemind/backend/internal/database"
	"github.com/puzzlemind/backend/internal/dna"
	"github.com/puzzlemind/backend/internal/generator"
	"github.com/puzzlemind/backend/internal/models"
	"github.com/puzzlemind/backend/internal/puzzles"
)

// version is stamped by the build.
var version = "dev"

var (
	configPath string

	genType       string
	genDifficulty string
	genCount      int
	genMock       bool
)

var rootCmd = &cobra.Command{
	Use:   "puzzlectl",
	Short: "Admin tooling for the puzzle recommendation backend",
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := database.Migrate(cfg.Database); err != nil {
			return err
		}
		fmt.Println("migrations applied")
		return nil
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate puzzles of one type and difficulty into the inventory",
	RunE: func(cmd *cobra.Command, args []string) error {
		pt := models.PuzzleType(genType)
		if !models.ValidPuzzleTypes[pt] {
			return fmt.Errorf("unknown puzzle type %q", genType)
		}
		label := models.DifficultyLabel(genDifficulty)
		if !models.ValidDifficultyLabels[label] {
			return fmt.Errorf("unknown difficulty %q", genDifficulty)
		}

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if genMock {
			cfg.Generator.Mock = true
			cfg.Generator.ValidationEnabled = false
			cfg.Generator.AmbiguityEnabled = false
		}

		logger, err := buildLogger(cfg.Logging.Level)
		if err != nil {
			return err
		}
		defer logger.Sync()

		if err := database.Migrate(cfg.Database); err != nil {
			return err
		}
		db, err := database.Connect(cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		var store puzzles.Store
		switch cfg.Database.Driver {
		case "sqlite":
			store = puzzles.NewSQLiteStore(db)
		default:
			store = puzzles.NewPostgresStore(db)
		}

		gen := generator.NewGenerator(cfg.Generator, logger)
		val := generator.NewValidator(cfg.Generator, logger)
		svc := puzzles.NewService(store, gen, val, dna.NewAnalyzer(), cfg.Generator, logger)

		stored, err := svc.GenerateAndStore(context.Background(), pt, label, genCount)
		if err != nil {
			return err
		}
		fmt.Printf("stored %d/%d puzzles (%s, %s)\n", stored, genCount, pt, label)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("puzzlectl " + version)
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.toml", "path to the TOML config file")

	generateCmd.Flags().StringVar(&genType, "type", "", "puzzle type to generate")
	generateCmd.Flags().StringVar(&genDifficulty, "difficulty", "medium", "difficulty label (easy, medium, hard)")
	generateCmd.Flags().IntVar(&genCount, "count", 3, "number of puzzles to generate")
	generateCmd.Flags().BoolVar(&genMock, "mock", false, "use the deterministic mock generator")
	generateCmd.MarkFlagRequired("type")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func buildLogger(level string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		zcfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return zcfg.Build()
}
