package cmd

import (
	"fmt"

	"github.com/tonyyueyu/optimization/pkg/config"
	"github.com/tonyyueyu/optimization/pkg/controllers"
	"github.com/tonyyueyu/optimization/pkg/files"
	"github.com/tonyyueyu/optimization/pkg/history"
	"github.com/tonyyueyu/optimization/pkg/logger"
	"github.com/tonyyueyu/optimization/pkg/retrieval"
	"github.com/tonyyueyu/optimization/pkg/solve"
	"github.com/tonyyueyu/optimization/pkg/vectorstore"
)

// buildController assembles the solve controller and its collaborators
// from the loaded config.
func buildController() (*controllers.SolveController, error) {
	settings := config.Get()

	solveClient := solve.NewClient(settings.Solver.Host)
	historyClient := history.NewClient(settings.History.Host)

	controller := controllers.NewSolveController(
		controllers.AdaptSolveClient(solveClient),
		historyClient,
		settings.Owner,
		logger.WithPrefix("solve"),
	)

	if settings.Files.Host != "" {
		controller.WithUploader(files.NewClient(settings.Files.Host))
	}
	if settings.Reporting.Enabled {
		controller.WithReporter(logger.NewReporter(settings.Reporting.Endpoint, logger.WithPrefix("reporter")))
	}
	if settings.Retrieval.Enabled {
		retriever, err := buildLocalRetriever()
		if err != nil {
			logger.Warn("local retrieval disabled: %v", err)
		} else {
			controller.WithLocalRetriever(retriever)
		}
	}

	return controller, nil
}

// buildLocalRetriever opens the on-disk problem index used when the
// backend's retrieve endpoint is unreachable.
func buildLocalRetriever() (*retrieval.Retriever, error) {
	store, err := openProblemStore()
	if err != nil {
		return nil, err
	}

	settings := config.Get()
	return retrieval.NewRetriever(store, retrieval.Config{
		MaxExamples:    settings.Retrieval.K,
		ScoreThreshold: settings.Retrieval.ScoreThreshold,
	}), nil
}

func openProblemStore() (vectorstore.ProblemStore, error) {
	settings := config.Get()

	embedder, err := vectorstore.NewOllamaEmbedder(
		settings.Retrieval.Embedding.Model,
		settings.Retrieval.Embedding.Endpoint,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	persistDir := settings.Retrieval.Path
	if persistDir == "" {
		persistDir = config.BuildSettingsPath("problem-index")
	}

	store, err := vectorstore.NewChromemStore(vectorstore.ChromemConfig{
		CollectionName:   settings.Retrieval.Collection,
		PersistDirectory: persistDir,
		Embedder:         embedder,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open problem store: %w", err)
	}
	return store, nil
}
