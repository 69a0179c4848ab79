package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	baseURL string
	timeout time.Duration
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "goaccount-cli",
		Short:         "GoAccount CLI tool",
		Long:          `A command line interface for interacting with the GoAccount API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the GoAccount API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(accountCmd())
	return rootCmd
}

func accountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Account operations",
	}

	cmd.AddCommand(
		createAccountCmd(),
		getAccountCmd(),
		listAccountsCmd(),
		customerAccountsCmd(),
		emailAccountsCmd(),
		updateStatusCmd(),
	)
	return cmd
}

func createAccountCmd() *cobra.Command {
	var (
		req struct {
			CustomerID   string `json:"customerId"`
			AccountType  string `json:"accountType"`
			Currency     string `json:"currency"`
			CustomerName string `json:"customerName"`
			Email        string `json:"email"`
			PhoneNumber  string `json:"phoneNumber,omitempty"`
		}
		idempotencyKey string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Open a new account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(cmd.OutOrStdout(), http.MethodPost, "/api/v1/accounts", req, idempotencyKey)
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.CustomerID, "customer-id", "", "Customer identifier")
	f.StringVar(&req.AccountType, "type", "", "Account type (SAVINGS, CURRENT, SALARY, FIXED_DEPOSIT)")
	f.StringVar(&req.Currency, "currency", "", "ISO 4217 currency code")
	f.StringVar(&req.CustomerName, "name", "", "Customer name")
	f.StringVar(&req.Email, "email", "", "Customer email")
	f.StringVar(&req.PhoneNumber, "phone", "", "Customer phone number")
	f.StringVar(&idempotencyKey, "idempotency-key", "", "Idempotency-Key header value")
	for _, name := range []string{"customer-id", "type", "currency", "name", "email"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func getAccountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <account-id>",
		Short: "Show one account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(cmd.OutOrStdout(), http.MethodGet, "/api/v1/accounts/"+url.PathEscape(args[0]), nil, "")
		},
	}
}

func listAccountsCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts in a status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/accounts?" + url.Values{"status": {status}}.Encode()
			return call(cmd.OutOrStdout(), http.MethodGet, path, nil, "")
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Account status")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func customerAccountsCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "customer <customer-id>",
		Short: "List a customer's accounts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/accounts/customer/" + url.PathEscape(args[0])
			if status != "" {
				path += "?" + url.Values{"status": {status}}.Encode()
			}
			return call(cmd.OutOrStdout(), http.MethodGet, path, nil, "")
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Only accounts in this status")
	return cmd
}

func emailAccountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "by-email <email>",
		Short: "Find accounts bound to an email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(cmd.OutOrStdout(), http.MethodGet, "/api/v1/accounts/by-email/"+url.PathEscape(args[0]), nil, "")
		},
	}
}

func updateStatusCmd() *cobra.Command {
	var (
		req struct {
			Status string `json:"status"`
			Reason string `json:"reason,omitempty"`
		}
		idempotencyKey string
	)

	cmd := &cobra.Command{
		Use:   "status <account-id>",
		Short: "Transition an account to a new status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/accounts/" + url.PathEscape(args[0]) + "/status"
			return call(cmd.OutOrStdout(), http.MethodPatch, path, req, idempotencyKey)
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.Status, "to", "", "Target status")
	f.StringVar(&req.Reason, "reason", "", "Reason for the change")
	f.StringVar(&idempotencyKey, "idempotency-key", "", "Idempotency-Key header value")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

// call sends one API request and pretty-prints the response body to out.
// Non-2xx responses are printed too and reported as an error.
func call(out io.Writer, method, path string, body any, idempotencyKey string) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	printJSON(out, respBody)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("request failed (status %d)", resp.StatusCode)
	}
	return nil
}

// printJSON indents raw when it is JSON and writes it verbatim otherwise.
func printJSON(out io.Writer, raw []byte) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		fmt.Fprintln(out, string(raw))
		return
	}
	fmt.Fprintln(out, buf.String())
}
