package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/iho/bookkeeper/internal/adapter/http/dto"
	"github.com/iho/bookkeeper/internal/domain"
	"github.com/iho/bookkeeper/internal/infrastructure/auth"
	"github.com/iho/bookkeeper/internal/infrastructure/config"
	"github.com/iho/bookkeeper/internal/infrastructure/postgres"
)

type options struct {
	baseURL string
	timeout time.Duration
	company string
	role    string
	token   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	o := &options{}

	rootCmd := &cobra.Command{
		Use:          "bookkeeper-cli",
		Short:        "Bookkeeper CLI tool",
		Long:         `A command line interface for the bookkeeper ledger and bank reconciliation API.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&o.baseURL, "url", "http://localhost:8080", "Base URL of the bookkeeper API")
	rootCmd.PersistentFlags().DurationVar(&o.timeout, "timeout", 30*time.Second, "Request timeout")
	rootCmd.PersistentFlags().StringVar(&o.company, "company", os.Getenv("BOOKKEEPER_COMPANY"), "Company ID (header auth)")
	rootCmd.PersistentFlags().StringVar(&o.role, "role", "", "Role sent with header auth")
	rootCmd.PersistentFlags().StringVar(&o.token, "token", os.Getenv("BOOKKEEPER_TOKEN"), "Bearer token; overrides --company")

	rootCmd.AddCommand(
		ledgerCmd(o),
		accountsCmd(o),
		journalCmd(o),
		statementCmd(o),
		reconcileCmd(o),
		monthlyCmd(o),
		migrateCmd(),
		tokenCmd(),
	)
	return rootCmd
}

func ledgerCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{Use: "ledger", Short: "Ledger operations"}

	cmd.AddCommand(&cobra.Command{
		Use:   "consistency",
		Short: "Check that every posted transaction balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := contextFor(o)
			defer cancel()

			var report dto.ConsistencyResponse
			err := newAPIClient(o).getJSON(ctx, "/ledger/consistency", &report)
			var apiErr *apiError
			if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
				if jsonErr := json.Unmarshal(apiErr.Body, &report); jsonErr != nil {
					return err
				}
			} else if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Debits:  %s\nCredits: %s\n", report.TotalDebits, report.TotalCredits)
			if !report.Consistent {
				for _, id := range report.UnbalancedTransactions {
					fmt.Fprintf(out, "  unbalanced: %s\n", id)
				}
				return errors.New("consistency check FAILED")
			}
			fmt.Fprintln(out, "Consistency check PASSED")
			return nil
		},
	})
	return cmd
}

func accountsCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{Use: "accounts", Short: "Chart of accounts"}

	cmd.AddCommand(&cobra.Command{
		Use:   "seed",
		Short: "Seed the standard chart of accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := contextFor(o)
			defer cancel()

			var resp dto.InitializeChartResponse
			if err := newAPIClient(o).sendJSON(ctx, http.MethodPost, "/chart/initialize", nil, &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d accounts, skipped %d\n", len(resp.Created), resp.Skipped)
			return nil
		},
	})

	var accountType string
	var inactive bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := contextFor(o)
			defer cancel()

			q := url.Values{}
			if accountType != "" {
				q.Set("type", accountType)
			}
			if inactive {
				q.Set("include_inactive", "true")
			}
			path := "/accounts"
			if len(q) > 0 {
				path += "?" + q.Encode()
			}

			var resp dto.ListAccountsResponse
			if err := newAPIClient(o).getJSON(ctx, path, &resp); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, a := range resp.Accounts {
				fmt.Fprintf(out, "%-6s %-32s %-10s %s\n", a.Code, truncate(a.Name, 32), a.Type, a.ID)
			}
			return nil
		},
	}
	list.Flags().StringVar(&accountType, "type", "", "Filter by account type")
	list.Flags().BoolVar(&inactive, "include-inactive", false, "Include deactivated accounts")
	cmd.AddCommand(list)
	return cmd
}

func journalCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{Use: "journal", Short: "Journal transactions"}

	var reason, date string
	reverse := &cobra.Command{
		Use:   "reverse <transaction-id>",
		Short: "Post a reversal of a posted transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := contextFor(o)
			defer cancel()

			req := map[string]string{"reason": reason}
			if date != "" {
				req["date"] = date
			}
			var tx dto.TransactionResponse
			if err := newAPIClient(o).sendJSON(ctx, http.MethodPost, "/transactions/"+url.PathEscape(args[0])+"/reverse", req, &tx); err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), tx)
			return nil
		},
	}
	reverse.Flags().StringVar(&reason, "reason", "", "Why the transaction is reversed")
	reverse.Flags().StringVar(&date, "date", "", "Reversal date (YYYY-MM-DD), defaults to today")
	_ = reverse.MarkFlagRequired("reason")
	cmd.AddCommand(reverse)
	return cmd
}

func statementCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{Use: "statement", Short: "Bank statements"}

	var file, format, layout string
	importCmd := &cobra.Command{
		Use:   "import <bank-account-id>",
		Short: "Import a bank statement export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}

			q := url.Values{"source": {filepath.Base(file)}}
			if format != "" {
				q.Set("format", format)
			}
			if layout != "" {
				q.Set("date_layout", layout)
			}

			ctx, cancel := contextFor(o)
			defer cancel()

			path := "/bank-accounts/" + url.PathEscape(args[0]) + "/statements/import?" + q.Encode()
			body, err := newAPIClient(o).do(ctx, http.MethodPost, path, "text/csv", bytes.NewReader(data))
			if err != nil {
				return err
			}

			var result dto.ImportResultResponse
			if err := json.Unmarshal(body, &result); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			b := result.Batch
			fmt.Fprintf(out, "batch %s: %d rows, %d imported, %d duplicate, %d errors\n",
				b.ID, b.RowsTotal, b.RowsImported, b.RowsDuplicate, len(b.RowErrors))
			for _, e := range b.RowErrors {
				fmt.Fprintf(out, "  line %d: %s\n", e.Line, e.Reason)
			}
			return nil
		},
	}
	importCmd.Flags().StringVar(&file, "file", "", "Statement file to upload")
	importCmd.Flags().StringVar(&format, "format", "", "Parser format (generic, csv, tsv)")
	importCmd.Flags().StringVar(&layout, "date-layout", "", "Go time layout for the date columns")
	_ = importCmd.MarkFlagRequired("file")
	cmd.AddCommand(importCmd)
	return cmd
}

func reconcileCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{Use: "reconcile", Short: "Bank reconciliation"}

	var days int
	var amount string
	autoMatch := &cobra.Command{
		Use:   "auto-match <bank-account-id>",
		Short: "Match pending statement lines to unreconciled ledger entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := dto.AutoMatchRequest{}
			if cmd.Flags().Changed("days") {
				req.DateToleranceDays = &days
			}
			if amount != "" {
				d, err := decimal.NewFromString(amount)
				if err != nil {
					return fmt.Errorf("invalid --amount: %w", err)
				}
				req.AmountTolerance = &d
			}

			ctx, cancel := contextFor(o)
			defer cancel()

			var resp dto.AutoMatchResponse
			if err := newAPIClient(o).sendJSON(ctx, http.MethodPost, "/bank-accounts/"+url.PathEscape(args[0])+"/auto-match", req, &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "matched %d, contended %d, unmatched book %d, unmatched bank %d\n",
				len(resp.Matched), len(resp.Contended), len(resp.UnmatchedBook), len(resp.UnmatchedBank))
			return nil
		},
	}
	autoMatch.Flags().IntVar(&days, "days", 0, "Date tolerance in days (server default when unset)")
	autoMatch.Flags().StringVar(&amount, "amount", "", "Amount tolerance (server default when unset)")
	cmd.AddCommand(autoMatch)
	return cmd
}

func monthlyCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{Use: "monthly", Short: "Monthly bank reconciliation"}

	periodPath := func(args []string) (string, error) {
		if _, err := strconv.Atoi(args[1]); err != nil {
			return "", fmt.Errorf("invalid year %q", args[1])
		}
		if _, err := strconv.Atoi(args[2]); err != nil {
			return "", fmt.Errorf("invalid month %q", args[2])
		}
		return "/bank-accounts/" + url.PathEscape(args[0]) + "/monthly/" + args[1] + "/" + args[2], nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show <bank-account-id> <year> <month>",
		Short: "Show the reconciliation statement for a month",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := periodPath(args)
			if err != nil {
				return err
			}
			ctx, cancel := contextFor(o)
			defer cancel()

			var resp dto.MonthlyReconciliationResponse
			if err := newAPIClient(o).getJSON(ctx, path, &resp); err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), resp)
			return nil
		},
	})

	var closedBy string
	closeCmd := &cobra.Command{
		Use:   "close <bank-account-id> <year> <month>",
		Short: "Close a reconciled month",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := periodPath(args)
			if err != nil {
				return err
			}
			ctx, cancel := contextFor(o)
			defer cancel()

			var resp dto.MonthlyReconciliationResponse
			if err := newAPIClient(o).sendJSON(ctx, http.MethodPost, path+"/close", dto.CloseMonthlyRequest{ClosedBy: closedBy}, &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%04d-%02d %s\n", resp.Year, resp.Month, resp.Status)
			return nil
		},
	}
	closeCmd.Flags().StringVar(&closedBy, "closed-by", "", "Who signs off the month")
	cmd.AddCommand(closeCmd)
	return cmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "migrate", Short: "Database migrations (reads DATABASE_URL)"}

	run := func(fn func(cfg *config.Config, out io.Writer) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return fn(cfg, cmd.OutOrStdout())
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: run(func(cfg *config.Config, out io.Writer) error {
				return postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath)
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back all migrations",
			Args:  cobra.NoArgs,
			RunE: run(func(cfg *config.Config, out io.Writer) error {
				return postgres.RunMigrationsDown(cfg.DatabaseURL, cfg.MigrationsPath)
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the schema version",
			Args:  cobra.NoArgs,
			RunE: run(func(cfg *config.Config, out io.Writer) error {
				st, err := postgres.MigrationVersion(cfg.DatabaseURL, cfg.MigrationsPath)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "version %d dirty=%v\n", st.Version, st.Dirty)
				return nil
			}),
		},
	)
	return cmd
}

// loadConfig is replaced in tests.
var loadConfig = func() (*config.Config, error) { return config.Load() }

func tokenCmd() *cobra.Command {
	var company, user, role string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token signed with JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET is not set")
			}
			p := &domain.Principal{UserID: user, CompanyID: company, Role: domain.Role(role)}
			if !p.Role.IsValid() {
				return fmt.Errorf("invalid role %q", role)
			}
			token, err := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration).Generate(p)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&company, "company", "", "Company ID the token is scoped to")
	cmd.Flags().StringVar(&user, "user", domain.SystemUserID, "User ID")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleOperator), "admin, operator or viewer")
	_ = cmd.MarkFlagRequired("company")
	return cmd
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
