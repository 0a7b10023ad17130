package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/iho/branchledger/internal/adapter/http/dto"
	"github.com/iho/branchledger/internal/domain"
	"github.com/iho/branchledger/internal/infrastructure/auth"
	"github.com/iho/branchledger/internal/infrastructure/logger"
	"github.com/iho/branchledger/internal/infrastructure/postgres"
)

var errLedgerUnbalanced = errors.New("ledger is unbalanced")

type options struct {
	baseURL  string
	timeout  time.Duration
	token    string
	actorID  string
	branchID string
}

func (o *options) client() *apiClient {
	return &apiClient{
		http:     &http.Client{Timeout: o.timeout},
		baseURL:  o.baseURL,
		token:    o.token,
		actorID:  o.actorID,
		branchID: o.branchID,
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "branchledger-cli",
		Short:         "Branch ledger operations tool",
		Long:          `A command line interface for operating the branch settlement ledger.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.baseURL, "url", envOr("BRANCHLEDGER_URL", "http://localhost:8080"), "Base URL of the ledger API")
	flags.DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")
	flags.StringVar(&opts.token, "token", os.Getenv("BRANCHLEDGER_TOKEN"), "Bearer token")
	flags.StringVar(&opts.actorID, "actor", envOr("BRANCHLEDGER_ACTOR", "cli"), "Actor id sent when no token is set")
	flags.StringVar(&opts.branchID, "branch", "", "Branch id sent when no token is set")

	rootCmd.AddCommand(ledgerCmd(opts), transactionCmd(opts), tokenCmd(), migrateCmd())

	return rootCmd
}

func ledgerCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger reconciliation",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "consistency",
		Short: "Check that every GL transaction balances",
		RunE: func(cmd *cobra.Command, args []string) error {
			var report dto.ConsistencyResponse
			if _, err := opts.client().do(cmd.Context(), http.MethodGet, "/api/v1/reconciliation/consistency", nil, &report); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Total debit:  %s\n", report.TotalDebit.StringFixed(2))
			fmt.Fprintf(out, "Total credit: %s\n", report.TotalCredit.StringFixed(2))
			fmt.Fprintf(out, "Unposted:     %d\n", report.UnpostedCount)

			if !report.LedgerBalanced {
				for _, id := range report.Unbalanced {
					fmt.Fprintf(out, "Unbalanced GL transaction: %s\n", id)
				}
				fmt.Fprintln(out, "Consistency check FAILED")

				return errLedgerUnbalanced
			}

			fmt.Fprintln(out, "Consistency check PASSED")

			return nil
		},
	})

	var (
		branchID string
		limit    int
	)
	unposted := &cobra.Command{
		Use:   "unposted",
		Short: "List transactions awaiting GL posting",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if branchID != "" {
				q.Set("branch_id", branchID)
			}
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}

			path := "/api/v1/reconciliation/unposted"
			if len(q) > 0 {
				path += "?" + q.Encode()
			}

			var txns []*dto.TransactionResponse
			if _, err := opts.client().do(cmd.Context(), http.MethodGet, path, nil, &txns); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(txns) == 0 {
				fmt.Fprintln(out, "No unposted transactions")
				return nil
			}

			for _, t := range txns {
				fmt.Fprintf(out, "%s  %-16s %-10s %12s  %s\n", t.ID, t.Domain, t.Type, t.Amount.StringFixed(2), t.BranchID)
			}

			return nil
		},
	}
	unposted.Flags().StringVar(&branchID, "branch-id", "", "Only this branch")
	unposted.Flags().IntVar(&limit, "limit", 0, "Maximum rows")
	cmd.AddCommand(unposted)

	return cmd
}

func transactionCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transaction",
		Aliases: []string{"txn"},
		Short:   "Transaction operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Show a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var txn dto.TransactionResponse
			if _, err := opts.client().do(cmd.Context(), http.MethodGet, "/api/v1/transactions/"+url.PathEscape(args[0]), nil, &txn); err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), txn)
		},
	})

	var reason string
	reverse := &cobra.Command{
		Use:   "reverse <id>",
		Short: "Void a transaction, keeping it as a reversed record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/transactions/" + url.PathEscape(args[0]) + "/reverse"

			var raw json.RawMessage
			status, err := opts.client().do(cmd.Context(), http.MethodPost, path, dto.ReverseTransactionRequest{Reason: reason}, &raw)
			if err != nil {
				return err
			}

			if status == http.StatusAccepted {
				var flagged dto.PostingFlaggedResponse
				if err := json.Unmarshal(raw, &flagged); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", flagged.Warning)

				return printJSON(cmd.OutOrStdout(), flagged.Transaction)
			}

			return printJSON(cmd.OutOrStdout(), raw)
		},
	}
	reverse.Flags().StringVar(&reason, "reason", "", "Reason recorded in the audit trail")
	cmd.AddCommand(reverse)

	return cmd
}

func tokenCmd() *cobra.Command {
	var (
		secret   string
		issuer   string
		branchID string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token <actor-id>",
		Short: "Sign a bearer token for an actor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return errors.New("--secret or JWT_SECRET is required")
			}

			token, err := auth.NewJWTManager(secret, ttl, auth.WithIssuer(issuer)).Generate(domain.Actor{ID: args[0], BranchID: branchID})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)

			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "Signing secret")
	cmd.Flags().StringVar(&issuer, "issuer", os.Getenv("JWT_ISSUER"), "Issuer claim; must match the server's JWT_ISSUER when set")
	cmd.Flags().StringVar(&branchID, "branch-id", "", "Branch of the actor")
	cmd.Flags().DurationVar(&ttl, "ttl", 8*time.Hour, "Token lifetime")

	return cmd
}

func migrateCmd() *cobra.Command {
	var (
		databaseURL string
		path        string
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}
	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL URL")
	cmd.PersistentFlags().StringVar(&path, "path", "", "Migrations directory; embedded migrations when empty")

	migrator := func(cmd *cobra.Command) (*postgres.Migrator, error) {
		if databaseURL == "" {
			return nil, errors.New("--database-url or DATABASE_URL is required")
		}

		lg := logger.NewWithWriter(logger.Config{Level: "info", Format: "console"}, cmd.ErrOrStderr())

		return postgres.NewMigrator(databaseURL, path, lg), nil
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				m, err := migrator(cmd)
				if err != nil {
					return err
				}

				return m.Up()
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the last migration",
			RunE: func(cmd *cobra.Command, args []string) error {
				m, err := migrator(cmd)
				if err != nil {
					return err
				}

				return m.Down()
			},
		},
	)

	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}
