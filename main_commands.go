package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"sales_server/adapter/out/persistence"
	"sales_server/core/domain"
	"sales_server/core/port/in"
	"sales_server/core/service/business"
	"sales_server/core/service/catalog"
	"sales_server/core/service/classification"
	"sales_server/infra/database"
	"sales_server/infra/middleware"
	"sales_server/internal/stream"
	"sales_server/pkg/cache"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

const defaultTokenTTL = 24 * time.Hour

func openDB(ctx context.Context) (*sqlx.DB, error) {
	db, err := database.OpenSQL(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := persistence.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			version, err := persistence.CurrentVersion(cmd.Context(), db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", version)
			return nil
		},
	}
}

func classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <text>",
		Short: "Print the emotion and buying intent of a message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result := classification.NewClassifier().Classify(strings.Join(args, " "))
			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}

func tokensCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens",
		Short: "Manage token balances and access tokens",
	}

	var detail string
	grant := &cobra.Command{
		Use:   "grant <user-id> <amount>",
		Short: "Credit tokens to a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid user id: %w", err)
			}
			amount, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid amount: %w", err)
			}

			db, err := openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			balance, err := business.NewTokenService(persistence.NewLedgerAdapter(db)).
				Grant(cmd.Context(), userID, amount, detail)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "granted %d tokens, balance %d\n", amount, balance)
			return nil
		},
	}
	grant.Flags().StringVar(&detail, "detail", "", "transaction detail")

	var ttl time.Duration
	issue := &cobra.Command{
		Use:   "issue <user-id>",
		Short: "Sign an API access token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid user id: %w", err)
			}

			db, err := openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			user, err := persistence.NewUserAdapter(db).GetByID(cmd.Context(), userID)
			if err != nil {
				return fmt.Errorf("get user: %w", err)
			}
			token, err := middleware.IssueToken(cfg.JWTSecret, user.ID, user.Email, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	issue.Flags().DurationVar(&ttl, "ttl", defaultTokenTTL, "token lifetime")

	var revokeTTL time.Duration
	revoke := &cobra.Command{
		Use:   "revoke <jti>",
		Short: "Revoke an access token by its id (requires Redis)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.RedisURL == "" {
				return fmt.Errorf("REDIS_URL is required to revoke tokens")
			}
			client, err := database.NewRedis(cmd.Context(), cfg.RedisURL, nil)
			if err != nil {
				return fmt.Errorf("connect redis: %w", err)
			}
			defer client.Close()

			blacklist := middleware.NewTokenBlacklist(cache.NewRedisCache(client, "sales:"))
			if err := blacklist.Revoke(cmd.Context(), args[0], revokeTTL); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "revoked %s\n", args[0])
			return nil
		},
	}
	revoke.Flags().DurationVar(&revokeTTL, "ttl", defaultTokenTTL, "how long the revocation is kept; at least the token's remaining lifetime")

	cmd.AddCommand(grant, issue, revoke)
	return cmd
}

func usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage accounts",
	}

	var (
		businessName string
		configFile   string
	)
	create := &cobra.Command{
		Use:   "create <email> <full name>",
		Short: "Create a business and its owner with the signup token grant",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var rawConfig string
			if configFile != "" {
				data, err := os.ReadFile(configFile)
				if err != nil {
					return fmt.Errorf("read config: %w", err)
				}
				rawConfig = string(data)
			}

			db, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			businesses := persistence.NewBusinessAdapter(db)
			products := persistence.NewProductAdapter(db)
			resolver := catalog.NewResolver(products, businesses, persistence.NewLocalCatalogCache(1, cfg.CatalogCacheTTL()))
			svc := business.NewService(persistence.NewUserAdapter(db), businesses, products, persistence.NewLeadAdapter(db), resolver)

			biz, user, err := svc.CreateAccount(ctx, &in.CreateAccountRequest{
				BusinessName: businessName,
				Config:       rawConfig,
				FullName:     strings.Join(args[1:], " "),
				Email:        args[0],
			})
			if err != nil {
				return err
			}

			balance := int64(0)
			if cfg.SignupTokens > 0 {
				balance, err = business.NewTokenService(persistence.NewLedgerAdapter(db)).
					Grant(ctx, user.ID, cfg.SignupTokens, "Signup bonus")
				if err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "business %d, user %s, balance %d\n", biz.ID, user.ID, balance)
			if cfg.JWTSecret != "" {
				token, err := middleware.IssueToken(cfg.JWTSecret, user.ID, user.Email, defaultTokenTTL)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), token)
			}
			return nil
		},
	}
	create.Flags().StringVar(&businessName, "business", "", "business name (defaults to the full name)")
	create.Flags().StringVar(&configFile, "config", "", "path to a business configuration JSON file")

	cmd.AddCommand(create)
	return cmd
}

func eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect chat events (requires Redis)",
	}

	var group, consumer string
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Print lead and purchase-intent events as they arrive",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.RedisURL == "" {
				return fmt.Errorf("REDIS_URL is required to read events")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client, err := database.NewRedis(ctx, cfg.RedisURL, nil)
			if err != nil {
				return fmt.Errorf("connect redis: %w", err)
			}
			defer client.Close()

			w := cmd.OutOrStdout()
			return stream.NewRedisStream(client, group).Consume(ctx, consumer, func(event *domain.Event) error {
				line, err := json.Marshal(event)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(w, string(line))
				return err
			})
		},
	}
	tail.Flags().StringVar(&group, "group", "sales-cli", "consumer group")
	tail.Flags().StringVar(&consumer, "consumer", "tail", "consumer name within the group")

	cmd.AddCommand(tail)
	return cmd
}
