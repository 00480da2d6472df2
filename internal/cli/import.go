package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"live-quiz-engine/internal/config"
	"live-quiz-engine/internal/domain"
	"live-quiz-engine/internal/infra/boltdb"
	pgloader "live-quiz-engine/internal/infra/postgres"
	"live-quiz-engine/internal/logging"
)

type quizSaver interface {
	SaveQuiz(ctx context.Context, set domain.QuestionSet) error
}

// NewImportCmd stores a YAML question set in the configured database.
func NewImportCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a YAML question set into postgres or bolt",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), *configPath, file)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "path to the question set YAML")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runImport(ctx context.Context, configPath, file string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	set, err := readQuestionSet(file)
	if err != nil {
		return err
	}

	var saver quizSaver
	switch {
	case cfg.Postgres.URL != "":
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		saver = pgloader.NewQuizLoader(pool)
	case cfg.Bolt.Path != "":
		db, err := boltdb.Open(cfg.Bolt.Path)
		if err != nil {
			return err
		}
		defer db.Close()
		saver = db
	default:
		return fmt.Errorf("neither postgres url nor bolt path configured")
	}

	if err := saver.SaveQuiz(ctx, set); err != nil {
		return fmt.Errorf("save %s: %w", set.ID, err)
	}
	logging.FromContext(ctx).Infow("question set imported", "id", set.ID, "questions", len(set.Questions))
	return nil
}

// readQuestionSet parses and validates a question set file.
func readQuestionSet(path string) (domain.QuestionSet, error) {
	var set domain.QuestionSet
	data, err := os.ReadFile(path)
	if err != nil {
		return set, err
	}
	if err := yaml.Unmarshal(data, &set); err != nil {
		return set, fmt.Errorf("parse %s: %w", path, err)
	}
	set = set.Normalize()
	if err := set.Validate(); err != nil {
		return set, fmt.Errorf("%s: %w", path, err)
	}
	return set, nil
}
