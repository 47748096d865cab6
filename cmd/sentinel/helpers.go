package main

import (
	"context"
	"fmt"

	"github.com/spf13/viper"

	"github.com/mshadianto/mnee-sentinel/internal/config"
	"github.com/mshadianto/mnee-sentinel/internal/interpreter"
	"github.com/mshadianto/mnee-sentinel/internal/storage"
)

// initStorage initializes the storage layer with proper path expansion.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/sentinel/sentinel.db"
	}

	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// initInterpreter builds the proposal interpreter from configuration. With
// no provider configured it runs fallback-only.
func initInterpreter() (*interpreter.Interpreter, error) {
	provider := viper.GetString("interpreter.provider")
	if provider == "" || provider == "fallback" {
		return interpreter.New(nil), nil
	}

	client, err := interpreter.NewClient(interpreter.Config{
		Provider:    provider,
		APIKey:      viper.GetString("interpreter.api_key"),
		Model:       viper.GetString("interpreter.model"),
		Temperature: viper.GetFloat64("interpreter.temperature"),
		MaxTokens:   viper.GetInt("interpreter.max_tokens"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create interpreter client: %w", err)
	}

	return interpreter.New(client), nil
}
