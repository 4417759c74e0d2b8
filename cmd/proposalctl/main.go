package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/noah-isme/proposal-review-api/internal/config"
	"github.com/noah-isme/proposal-review-api/internal/database"
	"github.com/noah-isme/proposal-review-api/internal/dto"
	"github.com/noah-isme/proposal-review-api/internal/models"
	"github.com/noah-isme/proposal-review-api/internal/repository"
	"github.com/noah-isme/proposal-review-api/internal/service"
)

const version = "0.1.0"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var databaseURL string

	cmd := &cobra.Command{
		Use:           "proposalctl",
		Short:         "Operational tooling for the proposal review API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "Postgres DSN (defaults to PROPOSAL_DATABASE_URL)")

	cmd.AddCommand(migrateCmd(&databaseURL), seedCmd(&databaseURL), &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "proposalctl version %s\n", version)
		},
	})

	return cmd
}

func migrateCmd(databaseURL *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := connect(*databaseURL)
			if err != nil {
				return err
			}
			if err := database.Migrate(db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}

func seedCmd(databaseURL *string) *cobra.Command {
	var (
		file       string
		adminName  string
		adminEmail string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import pre-approved accounts and supervisor assignments",
		Long: `Seed creates pre-approved accounts, links students to supervisors and
ensures the similarity policy row exists. Existing emails and pairs are skipped,
so the command can be re-run safely.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := seedRequest(file, adminName, adminEmail)
			if err != nil {
				return err
			}
			if len(req.Accounts) == 0 && len(req.Assignments) == 0 {
				return fmt.Errorf("nothing to seed: pass --file or --admin-email")
			}

			db, logger, err := connect(*databaseURL)
			if err != nil {
				return err
			}
			if err := database.Migrate(db); err != nil {
				return err
			}

			validate := validator.New(validator.WithRequiredStructEnabled())
			seeder := service.NewSeedService(
				repository.NewUserRepository(db),
				repository.NewSupervisorAssignmentRepository(db),
				repository.NewSimilarityPolicyRepository(db),
				validate, false, "", logger,
			)

			result, err := seeder.Bootstrap(context.Background(), req)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "accounts created: %d, skipped: %d, assignments created: %d\n",
				result.AccountsCreated, result.AccountsSkipped, result.AssignmentsCreated)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file with accounts and assignments")
	cmd.Flags().StringVar(&adminName, "admin-name", "Administrator", "Name of the admin account to create")
	cmd.Flags().StringVar(&adminEmail, "admin-email", "", "Email of an admin account to create")

	return cmd
}

func seedRequest(file, adminName, adminEmail string) (dto.SeedRequest, error) {
	var req dto.SeedRequest
	if file != "" {
		raw, err := os.ReadFile(file)
		if err != nil {
			return req, fmt.Errorf("read seed file: %w", err)
		}
		if err := json.Unmarshal(raw, &req); err != nil {
			return req, fmt.Errorf("parse seed file: %w", err)
		}
	}

	if email := strings.TrimSpace(adminEmail); email != "" {
		req.Accounts = append(req.Accounts, dto.SeedAccount{
			Name:  strings.TrimSpace(adminName),
			Email: email,
			Role:  models.RoleAdmin,
		})
	}
	return req, nil
}

func connect(databaseURL string) (*gorm.DB, zerolog.Logger, error) {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.LoadTooling()
	if err != nil {
		return nil, logger, err
	}
	if databaseURL == "" {
		databaseURL = cfg.DatabaseURL
	}

	db, err := database.ConnectPostgres(databaseURL, database.PostgresOptions{
		MaxOpenConns:    2,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		SlowQuery:       cfg.DBSlowQuery,
		Logger:          &logger,
	})
	if err != nil {
		return nil, logger, err
	}
	return db, logger, nil
}
