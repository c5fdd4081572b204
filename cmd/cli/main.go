package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/iho/goaccount/internal/adapter/http/dto"
	"github.com/iho/goaccount/internal/infrastructure/auth"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	baseURL        string
	timeout        time.Duration
	token          string
	idempotencyKey string
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "bankctl",
		Short:         "Account service CLI",
		Long:          `A command line interface for opening, crediting and debiting accounts through the account service API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(out)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.baseURL, "url", envOr("BANKCTL_URL", "http://localhost:8080"), "Base URL of the account API")
	flags.DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")
	flags.StringVar(&opts.token, "token", os.Getenv("BANKCTL_TOKEN"), "Bearer token")
	flags.StringVar(&opts.idempotencyKey, "idempotency-key", "", "Idempotency-Key sent with mutating requests")

	client := func() *apiClient {
		return newAPIClient(opts.baseURL, opts.token, opts.idempotencyKey, opts.timeout)
	}

	rootCmd.AddCommand(
		openCmd(client),
		creditCmd(client),
		debitCmd(client),
		balanceCmd(client),
		getCmd(client),
		listCmd(client),
		historyCmd(client),
		tokenCmd(),
	)

	return rootCmd
}

func openCmd(client func() *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "open CURRENCY",
		Short: "Open an account in CURRENCY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.AccountResponse
			err := client().do(cmd.Context(), http.MethodPost, "/api/v1/accounts",
				dto.OpenAccountRequest{Currency: args[0]}, &resp)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
}

func creditCmd(client func() *apiClient) *cobra.Command {
	var currency string

	cmd := &cobra.Command{
		Use:   "credit ACCOUNT_ID AMOUNT",
		Short: "Credit an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.AccountResponse
			err := client().do(cmd.Context(), http.MethodPost, accountPath(args[0], "credit"),
				dto.CreditRequest{Amount: json.Number(args[1]), Currency: currency}, &resp)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().StringVar(&currency, "currency", "", "Currency of AMOUNT (defaults to the account currency)")

	return cmd
}

func debitCmd(client func() *apiClient) *cobra.Command {
	var (
		currency string
		date     string
	)

	cmd := &cobra.Command{
		Use:   "debit ACCOUNT_ID AMOUNT",
		Short: "Debit an account; a 0.5% fee is added",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := dto.DebitRequest{Amount: json.Number(args[1]), Currency: currency}
			if date != "" {
				at, err := parseOperationDate(date)
				if err != nil {
					return err
				}
				req.OperationDate = &at
			}

			var resp dto.AccountResponse
			if err := client().do(cmd.Context(), http.MethodPost, accountPath(args[0], "debit"), req, &resp); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().StringVar(&currency, "currency", "", "Currency of AMOUNT (defaults to the account currency)")
	cmd.Flags().StringVar(&date, "date", "", "Operation date, YYYY-MM-DD or RFC 3339 (defaults to now)")

	return cmd
}

func balanceCmd(client func() *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "balance ACCOUNT_ID",
		Short: "Show the balance of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.BalanceResponse
			if err := client().do(cmd.Context(), http.MethodGet, accountPath(args[0], "balance"), nil, &resp); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), resp.Balance.String())
			return err
		},
	}
}

func getCmd(client func() *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "get ACCOUNT_ID",
		Short: "Show an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.AccountResponse
			if err := client().do(cmd.Context(), http.MethodGet, accountPath(args[0], ""), nil, &resp); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
}

func listCmd(client func() *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.ListAccountsResponse
			if err := client().do(cmd.Context(), http.MethodGet, "/api/v1/accounts", nil, &resp); err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCURRENCY\tBALANCE\tUPDATED")
			for _, a := range resp.Accounts {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					a.ID, a.Currency, a.Balance.StringFixed(),
					a.UpdatedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
}

func historyCmd(client func() *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "history ACCOUNT_ID",
		Short: "Show debits grouped by operation date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.DebitHistoryResponse
			if err := client().do(cmd.Context(), http.MethodGet, accountPath(args[0], "debits"), nil, &resp); err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tCOUNT\tAMOUNT\tPERFORMED")
			for _, day := range resp.Days {
				for _, p := range day.Payments {
					fmt.Fprintf(w, "%s\t%d\t%s\t%s\n",
						day.Date, day.Count, p.Amount, p.PerformedOn.Format(time.RFC3339))
				}
			}
			return w.Flush()
		},
	}
}

func tokenCmd() *cobra.Command {
	var (
		secret  string
		subject string
		scopes  []string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token signed with the server's JWT secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return fmt.Errorf("--secret or JWT_SECRET is required")
			}

			token, err := auth.NewJWTManager(secret, ttl).Generate(subject, scopes...)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "HMAC secret")
	cmd.Flags().StringVar(&subject, "subject", "bankctl", "Token subject")
	cmd.Flags().StringSliceVar(&scopes, "scope", []string{auth.ScopeRead, auth.ScopeWrite}, "Granted scopes")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")

	return cmd
}

func accountPath(id, suffix string) string {
	path := "/api/v1/accounts/" + id
	if suffix != "" {
		path += "/" + suffix
	}
	return path
}

// parseOperationDate accepts a bare date (midnight UTC) or an RFC 3339 time.
func parseOperationDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q: want YYYY-MM-DD or RFC 3339", s)
	}
	return t, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
