package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nutrio/nutrio/internal/config"
	"github.com/nutrio/nutrio/internal/platform/db"
	"github.com/nutrio/nutrio/internal/platform/demo"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "nutrio-server",
		Short: "Nutrition practice API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(demoCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, cfg.MigrationsDir)
			fmt.Printf("Running migrations on schema: %s\n", schema)

			count, err := migrator.Up(ctx, schema)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("schema", "public", "Target schema for migrations")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, cfg.MigrationsDir).Status(ctx, schema)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("Migration status for schema: %s\n", schema)
			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("schema", "public", "Target schema for migrations")
	cmd.AddCommand(statusCmd)

	return cmd
}

func demoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Seed or purge demo patients",
	}

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Generate demo patients with meal and weight histories",
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := nutritionistFlag(cmd)
			if err != nil {
				return err
			}
			profile := demo.DefaultProfile()
			if path, _ := cmd.Flags().GetString("profile"); path != "" {
				if profile, err = demo.LoadProfile(path); err != nil {
					return err
				}
			}
			if seed, _ := cmd.Flags().GetInt64("seed"); seed != 0 {
				profile.Seed = seed
			}

			seeder, err := openSeeder()
			if err != nil {
				return err
			}
			res, err := seeder.Seed(context.Background(), owner, profile)
			if err != nil {
				return err
			}
			fmt.Printf("Seeded %d patient(s), %d meal(s), %d weight record(s) in %s.\n",
				res.Patients, res.Meals, res.Weights, res.Duration)
			return nil
		},
	}
	seedCmd.Flags().String("nutritionist", "", "Nutritionist user id owning the demo patients")
	seedCmd.Flags().String("profile", "", "Path to a YAML seed profile")
	seedCmd.Flags().Int64("seed", 0, "Random seed (0 picks one)")
	cmd.AddCommand(seedCmd)

	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete demo patients and their histories",
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := nutritionistFlag(cmd)
			if err != nil {
				return err
			}
			seeder, err := openSeeder()
			if err != nil {
				return err
			}
			n, err := seeder.Purge(context.Background(), owner)
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %d demo patient(s).\n", n)
			return nil
		},
	}
	purgeCmd.Flags().String("nutritionist", "", "Nutritionist user id owning the demo patients")
	cmd.AddCommand(purgeCmd)

	return cmd
}

func nutritionistFlag(cmd *cobra.Command) (uuid.UUID, error) {
	raw, _ := cmd.Flags().GetString("nutritionist")
	if raw == "" {
		return uuid.Nil, fmt.Errorf("--nutritionist is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("--nutritionist: %w", err)
	}
	return id, nil
}

func openSeeder() (*demo.Seeder, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	gdb, err := demo.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return demo.NewSeeder(gdb, cfg.DemoEmailDomain, newLogger(cfg.Env)), nil
}
