package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"userdb/internal/backup"
	"userdb/internal/events"
	"userdb/internal/shared/logger"
	"userdb/internal/users/adapter/persistence/mongodb"
	"userdb/internal/users/config"
	"userdb/internal/users/domain/model"
	"userdb/internal/users/usecase"
)

var (
	mongoURI     string
	databaseName string

	restoreDrop   bool
	restoreDryRun bool

	seedCount    int
	seedPassword string

	eventsSince string
	eventsTrim  bool
)

func main() {
	// .env is optional for the CLI; flags and env vars take precedence
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "userdbctl",
		Short: "Administrative tooling for the UserDB service",
	}
	rootCmd.PersistentFlags().StringVar(&mongoURI, "mongodb-uri", envOr("MONGODB_URI", "mongodb://localhost:27017"), "MongoDB connection URI")
	rootCmd.PersistentFlags().StringVar(&databaseName, "database", envOr("DATABASE_NAME", "userdb"), "Database name")

	backupCmd := &cobra.Command{
		Use:   "backup <directory>",
		Short: "Archive the users and sessions collections to a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackup(cmd.Context(), args[0])
		},
	}

	restoreCmd := &cobra.Command{
		Use:   "restore <directory>",
		Short: "Restore collections from a backup directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRestore(cmd.Context(), args[0])
		},
	}
	restoreCmd.Flags().BoolVar(&restoreDrop, "drop", false, "Drop target collections before restoring")
	restoreCmd.Flags().BoolVar(&restoreDryRun, "dry-run", false, "Report what would be restored without writing")

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert generated users for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context())
		},
	}
	seedCmd.Flags().IntVar(&seedCount, "count", 25, "Number of users to generate")
	seedCmd.Flags().StringVar(&seedPassword, "password", "Password123!", "Password assigned to every seeded user")

	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "Read the user event feed from Redis",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvents(cmd.Context())
		},
	}
	eventsCmd.Flags().StringVar(&eventsSince, "since", "", "Resume token of the last event already seen (empty replays from the start)")
	eventsCmd.Flags().BoolVar(&eventsTrim, "trim", false, "Trim the stream to its configured maximum length first")

	rootCmd.AddCommand(backupCmd, restoreCmd, seedCmd, eventsCmd)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func runBackup(ctx context.Context, dir string) error {
	log := logger.NewLogger()

	client, err := backup.Connect(ctx, mongoURI, log)
	if err != nil {
		return err
	}
	defer client.Disconnect(context.Background())

	engine := backup.NewEngine(client.Database(databaseName), log)
	result, err := engine.Backup(ctx, dir, backup.DefaultCollections)
	if err != nil {
		return err
	}

	fmt.Printf("Backup written to %s in %s\n", result.Directory, result.Duration.Round(time.Millisecond))
	for _, c := range result.Collections {
		fmt.Printf("  %-12s %d documents\n", c.Name, c.Count)
	}
	return nil
}

func runRestore(ctx context.Context, dir string) error {
	log := logger.NewLogger()

	client, err := backup.Connect(ctx, mongoURI, log)
	if err != nil {
		return err
	}
	defer client.Disconnect(context.Background())

	engine := backup.NewEngine(client.Database(databaseName), log)
	result, err := engine.Restore(ctx, dir, backup.RestoreOptions{
		Drop:   restoreDrop,
		DryRun: restoreDryRun,
	})
	if err != nil {
		return err
	}

	if result.DryRun {
		fmt.Printf("Dry run: archive of database %q contains\n", result.Database)
	} else {
		fmt.Printf("Restored into database %q in %s\n", databaseName, result.Duration.Round(time.Millisecond))
	}
	for _, c := range result.Collections {
		fmt.Printf("  %-12s %d documents\n", c.Name, c.Count)
	}
	return nil
}

func runEvents(ctx context.Context) error {
	log := logger.NewLogger()

	redisCfg, err := config.LoadRedisConfig()
	if err != nil {
		return err
	}

	client := config.NewRedisClient(redisCfg)
	defer client.Close()

	store := events.NewRedisEventStore(client, redisCfg.StreamMaxLength, log)
	if err := store.Ping(ctx); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", redisCfg.GetAddr(), err)
	}

	if eventsTrim {
		if err := store.Trim(ctx); err != nil {
			return fmt.Errorf("failed to trim event stream: %w", err)
		}
	}

	feed, err := store.EventsSince(ctx, events.ResumeToken(eventsSince))
	if err != nil {
		return fmt.Errorf("failed to read event stream: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	for _, ev := range feed {
		if err := enc.Encode(ev); err != nil {
			return err
		}
	}

	total := store.EventCount(ctx)
	if len(feed) > 0 {
		fmt.Fprintf(os.Stderr, "%d events (stream holds %d), last resume token %s\n", len(feed), total, feed[len(feed)-1].ResumeToken)
	} else {
		fmt.Fprintf(os.Stderr, "no new events (stream holds %d)\n", total)
	}
	return nil
}

func runSeed(ctx context.Context) error {
	log := logger.NewLogger()

	if seedCount <= 0 {
		return fmt.Errorf("count must be positive")
	}

	client, err := backup.Connect(ctx, mongoURI, log)
	if err != nil {
		return err
	}
	defer client.Disconnect(context.Background())

	repo, err := mongodb.NewMongoUserRepository(ctx, client.Database(databaseName))
	if err != nil {
		return fmt.Errorf("failed to initialize user repository: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash seed password: %w", err)
	}

	faker := gofakeit.New(0)
	statuses := []model.UserStatus{model.StatusActive, model.StatusActive, model.StatusActive, model.StatusInactive, model.StatusSuspended}

	var created, skipped int
	for i := 0; i < seedCount; i++ {
		age := faker.Number(18, 90)
		user := &model.User{
			ID:           uuid.NewString(),
			Name:         faker.Name(),
			Email:        faker.Email(),
			Age:          &age,
			Status:       statuses[faker.Number(0, len(statuses)-1)],
			PasswordHash: string(hash),
		}
		if err := user.ValidateFields(); err != nil {
			skipped++
			continue
		}

		if err := repo.CreateUser(ctx, user); err != nil {
			if err == usecase.ErrEmailTaken {
				skipped++
				continue
			}
			return fmt.Errorf("failed to insert user: %w", err)
		}
		created++
	}

	fmt.Printf("Seeded %d users (%d skipped)\n", created, skipped)
	return nil
}
