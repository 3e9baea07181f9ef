package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aryan0dhankhar/storepulse/internal/domain"
	"github.com/aryan0dhankhar/storepulse/internal/infrastructure/logger"
	"github.com/aryan0dhankhar/storepulse/internal/repository"
	"github.com/aryan0dhankhar/storepulse/internal/security/auth"
	"github.com/aryan0dhankhar/storepulse/internal/service"
	"github.com/aryan0dhankhar/storepulse/pkg/config"
	"github.com/aryan0dhankhar/storepulse/pkg/database"
)

// operator is the identity CLI writes are attributed to in the audit log
var operator = domain.Actor{UserID: "cli", Role: domain.RoleAdmin}

// processor is the identity used for job callbacks issued from the CLI
var processor = domain.Actor{UserID: "cli", Role: domain.RoleService}

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "storepulse",
		Short:         "StorePulse admin CLI",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(schemaCmd(), creditsCmd(), tokenCmd(), analysisCmd())
	return root
}

// env bundles what the store-backed commands share
type env struct {
	cfg   *config.Config
	log   *slog.Logger
	pool  *database.ConnectionPool
	store *repository.PostgresStore
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.Storage != "postgres" {
		return nil, fmt.Errorf("STORAGE=%s: the CLI only operates on postgres", cfg.Storage)
	}
	log := logger.NewLogger(cfg.LogLevel)
	pool, err := database.NewConnectionPool(ctx, &database.Config{
		URL:             cfg.DatabaseURL,
		Host:            cfg.DB.Host,
		Port:            cfg.DB.Port,
		User:            cfg.DB.User,
		Password:        cfg.DB.Password,
		Database:        cfg.DB.Name,
		SSLMode:         cfg.DB.SSLMode,
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	}, log)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log, pool: pool, store: repository.NewPostgresStore(pool.GetDB(), log)}, nil
}

func (e *env) Close() { _ = e.pool.Close() }

// withEnv adapts a store-backed command body to cobra's RunE
func withEnv(fn func(ctx context.Context, e *env, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()
		return fn(cmd.Context(), e, args)
	}
}

// Schema commands
func schemaCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "schema", Short: "Database schema"}
	cmd.AddCommand(&cobra.Command{
		Use:   "apply",
		Short: "Create tables and indexes if missing",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(ctx context.Context, e *env, _ []string) error {
			if err := repository.EnsureSchema(ctx, e.pool.GetDB()); err != nil {
				return err
			}
			fmt.Println("✓ schema applied")
			return nil
		}),
	})
	return cmd
}

// Credit commands
func creditsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "credits", Short: "Credit balances"}

	var user string
	var amount int
	grant := &cobra.Command{
		Use:   "grant",
		Short: "Add credits to a user",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(ctx context.Context, e *env, _ []string) error {
			svc := service.NewCreditService(e.store, nil, e.log)
			bal, err := svc.Grant(ctx, operator, user, amount)
			if err != nil {
				return err
			}
			fmt.Printf("✓ %s now has %d credits\n", user, bal)
			return nil
		}),
	}
	grant.Flags().StringVar(&user, "user", "", "user ID")
	grant.Flags().IntVar(&amount, "amount", 0, "credits to add")
	_ = grant.MarkFlagRequired("user")
	_ = grant.MarkFlagRequired("amount")

	var balanceUser string
	balance := &cobra.Command{
		Use:   "balance",
		Short: "Show a user's balance",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(ctx context.Context, e *env, _ []string) error {
			svc := service.NewCreditService(e.store, nil, e.log)
			bal, err := svc.Balance(ctx, domain.Actor{UserID: balanceUser})
			if err != nil {
				return err
			}
			fmt.Printf("%s: %d credits\n", balanceUser, bal)
			return nil
		}),
	}
	balance.Flags().StringVar(&balanceUser, "user", "", "user ID")
	_ = balance.MarkFlagRequired("user")

	cmd.AddCommand(grant, balance)
	return cmd
}

// Token commands
func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "token", Short: "Bearer tokens"}

	var user, store, role string
	var ttl time.Duration
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Sign a token with JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET is not set")
			}
			tm := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer)
			token, err := tm.GenerateToken(domain.Actor{UserID: user, StoreID: store, Role: domain.Role(role)}, ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	issue.Flags().StringVar(&user, "user", "", "user ID")
	issue.Flags().StringVar(&store, "store", "", "active store ID")
	issue.Flags().StringVar(&role, "role", string(domain.RoleMember), "member, admin or service")
	issue.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = issue.MarkFlagRequired("user")

	cmd.AddCommand(issue)
	return cmd
}

// Analysis commands
func analysisCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "analysis", Short: "Job processor callbacks"}

	var completeID, file string
	complete := &cobra.Command{
		Use:   "complete",
		Short: "Complete an analysis with a result document",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(ctx context.Context, e *env, _ []string) error {
			result, err := readResult(file)
			if err != nil {
				return err
			}
			svc := service.NewAnalysisService(e.store, e.cfg.Admission.RefundFailed, nil, nil, e.log)
			a, err := svc.Complete(ctx, processor, completeID, *result)
			if err != nil {
				return err
			}
			fmt.Printf("✓ analysis %s completed with %d suggestions\n", a.ID, len(a.Suggestions))
			return nil
		}),
	}
	complete.Flags().StringVar(&completeID, "id", "", "analysis ID")
	complete.Flags().StringVar(&file, "file", "", "JSON result document")
	_ = complete.MarkFlagRequired("id")
	_ = complete.MarkFlagRequired("file")

	var failID, reason string
	fail := &cobra.Command{
		Use:   "fail",
		Short: "Fail an analysis and refund its credits",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(ctx context.Context, e *env, _ []string) error {
			svc := service.NewAnalysisService(e.store, e.cfg.Admission.RefundFailed, nil, nil, e.log)
			a, err := svc.Fail(ctx, processor, failID, reason, service.SourceProcessor)
			if err != nil {
				return err
			}
			fmt.Printf("✓ analysis %s failed\n", a.ID)
			return nil
		}),
	}
	fail.Flags().StringVar(&failID, "id", "", "analysis ID")
	fail.Flags().StringVar(&reason, "reason", "failed from CLI", "failure reason")
	_ = fail.MarkFlagRequired("id")

	cmd.AddCommand(complete, fail)
	return cmd
}

func readResult(path string) (*domain.AnalysisResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read result: %w", err)
	}
	var result domain.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("parse result: %w", err)
	}
	result.Status = domain.AnalysisCompleted
	return &result, nil
}
