package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"lease-escrow/internal/auth"
	"lease-escrow/internal/leaseclient"
)

type globalOptions struct {
	server  string
	token   string
	retries int
	timeout time.Duration
}

func bindGlobalFlags(cmd *cobra.Command) *globalOptions {
	opts := &globalOptions{}
	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.server, "server", envDefault("LEASE_API_URL", "http://localhost:8080"), "API base URL")
	flags.StringVar(&opts.token, "token", os.Getenv("LEASE_TOKEN"), "bearer token")
	flags.IntVar(&opts.retries, "retries", 2, "retries on transport errors and 5xx responses")
	flags.DurationVar(&opts.timeout, "timeout", 30*time.Second, "request timeout")
	return opts
}

func (o *globalOptions) client() *leaseclient.Client {
	return leaseclient.New(o.server, o.token,
		leaseclient.WithTimeout(o.timeout),
		leaseclient.WithRetries(o.retries),
	)
}

func tokenCmd() *cobra.Command {
	var (
		subject string
		role    string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed API token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret := envDefault("AUTH_JWT_SECRET", os.Getenv("JWT_SECRET"))
			if secret == "" {
				return errors.New("AUTH_JWT_SECRET is required")
			}
			normalized, ok := auth.NormalizeRole(role)
			if !ok {
				return fmt.Errorf("unknown role %q", role)
			}
			token, err := auth.IssueJWT([]byte(secret), subject, normalized, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "identity the token speaks for")
	cmd.Flags().StringVar(&role, "role", string(auth.RoleMember), "viewer, member or operator")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func propertyCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "property", Short: "Manage properties"}

	var in leaseclient.Property
	list := &cobra.Command{
		Use:   "list",
		Short: "List a property as the token's landlord",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := opts.client().ListProperty(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	list.Flags().StringVar(&in.Address, "address", "", "street address")
	list.Flags().StringVar(&in.Description, "description", "", "free text description")
	list.Flags().Int64Var(&in.MonthlyRent, "rent", 0, "monthly rent")
	list.Flags().Int64Var(&in.SecurityDeposit, "deposit", 0, "security deposit")
	list.Flags().IntVar(&in.MinMaintenanceScore, "min-score", 0, "minimum condition score for rent release")
	list.Flags().BoolVar(&in.IoTEnabled, "iot", false, "gate releases on condition reports")
	_ = list.MarkFlagRequired("address")

	get := &cobra.Command{
		Use:   "get PROPERTY_ID",
		Short: "Show a property",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printGet(cmd, opts, "/api/v1/properties/"+args[0], nil)
		},
	}

	var scores leaseclient.Scores
	condition := &cobra.Command{
		Use:   "condition PROPERTY_ID",
		Short: "Submit a condition report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := opts.client().ReportCondition(cmd.Context(), args[0], scores)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), body)
		},
	}
	condition.Flags().IntVar(&scores.Temperature, "temperature", 0, "temperature score 0-100")
	condition.Flags().IntVar(&scores.Plumbing, "plumbing", 0, "plumbing score 0-100")
	condition.Flags().IntVar(&scores.Security, "security", 0, "security score 0-100")

	owned := &cobra.Command{
		Use:   "owned LANDLORD",
		Short: "List a landlord's properties",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printGet(cmd, opts, "/api/v1/landlords/"+args[0]+"/properties", nil)
		},
	}

	cmd.AddCommand(list, get, condition, owned)
	return cmd
}

func agreementCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "agreement", Short: "Manage rental agreements"}

	var (
		in         leaseclient.MoveIn
		start, end string
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Move in as the token's tenant",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if in.StartDate, err = time.Parse(time.RFC3339, start); err != nil {
				return fmt.Errorf("start: %w", err)
			}
			if in.EndDate, err = time.Parse(time.RFC3339, end); err != nil {
				return fmt.Errorf("end: %w", err)
			}
			id, err := opts.client().CreateAgreement(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	create.Flags().StringVar(&in.PropertyID, "property", "", "property id")
	create.Flags().StringVar(&start, "start", "", "start date (RFC 3339)")
	create.Flags().StringVar(&end, "end", "", "end date (RFC 3339)")
	create.Flags().Int64Var(&in.Payment, "payment", 0, "first month plus deposit")
	for _, name := range []string{"property", "start", "end", "payment"} {
		_ = create.MarkFlagRequired(name)
	}

	get := &cobra.Command{
		Use:   "get AGREEMENT_ID",
		Short: "Show an agreement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printGet(cmd, opts, "/api/v1/agreements/"+args[0], nil)
		},
	}

	escrow := &cobra.Command{
		Use:   "escrow AGREEMENT_ID",
		Short: "Show an agreement's escrow account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printGet(cmd, opts, "/api/v1/agreements/"+args[0]+"/escrow", nil)
		},
	}

	var payment int64
	pay := &cobra.Command{
		Use:   "pay AGREEMENT_ID",
		Short: "Pay one month of rent into escrow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.client().PayRent(cmd.Context(), args[0], payment); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "paid")
			return nil
		},
	}
	pay.Flags().Int64Var(&payment, "payment", 0, "amount, exactly the monthly rent")
	_ = pay.MarkFlagRequired("payment")

	release := &cobra.Command{
		Use:   "release AGREEMENT_ID",
		Short: "Release escrowed rent to the landlord",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := opts.client().ReleaseRent(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), body)
		},
	}

	terminate := &cobra.Command{
		Use:   "terminate AGREEMENT_ID",
		Short: "End an agreement and settle the deposit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := opts.client().Terminate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), body)
		},
	}

	cmd.AddCommand(create, get, escrow, pay, release, terminate)
	return cmd
}

func disputeCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "dispute", Short: "Raise and resolve disputes"}

	var deposit int64
	raise := &cobra.Command{
		Use:   "raise AGREEMENT_ID",
		Short: "Open a dispute, staking the dispute deposit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.client().RaiseDispute(cmd.Context(), args[0], deposit); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "raised")
			return nil
		},
	}
	raise.Flags().Int64Var(&deposit, "deposit", 0, "stake, exactly the platform dispute deposit")
	_ = raise.MarkFlagRequired("deposit")

	var favorTenant bool
	resolve := &cobra.Command{
		Use:   "resolve AGREEMENT_ID",
		Short: "Rule on a dispute (operator)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := opts.client().ResolveDispute(cmd.Context(), args[0], favorTenant)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), body)
		},
	}
	resolve.Flags().BoolVar(&favorTenant, "favor-tenant", false, "refund the deposit to the tenant")

	cmd.AddCommand(raise, resolve)
	return cmd
}

func ledgerCmd(opts *globalOptions) *cobra.Command {
	var party string
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Show ledger entries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var query map[string]string
			if party != "" {
				query = map[string]string{"party": party}
			}
			return printGet(cmd, opts, "/api/v1/ledger", query)
		},
	}
	cmd.Flags().StringVar(&party, "party", "", "party to show (operator only)")
	return cmd
}

func statementCmd(opts *globalOptions) *cobra.Command {
	var party, out string
	cmd := &cobra.Command{
		Use:       "statement pdf|xlsx",
		Short:     "Download a ledger statement",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"pdf", "xlsx"},
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := opts.client().Statement(cmd.Context(), args[0], party)
			if err != nil {
				return err
			}
			if out == "" {
				out = "statement." + args[0]
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(data))
			return nil
		},
	}
	cmd.Flags().StringVar(&party, "party", "", "party to export (operator only)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file")
	return cmd
}

func platformCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "platform",
		Short: "Show platform parameters and fee pool",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printGet(cmd, opts, "/api/v1/admin/platform", nil)
		},
	}
}

func printGet(cmd *cobra.Command, opts *globalOptions, path string, query map[string]string) error {
	body, err := opts.client().Get(cmd.Context(), path, query)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), body)
}

func printJSON(w io.Writer, body json.RawMessage) error {
	if len(body) == 0 {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		_, err = w.Write(body)
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}

func envDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
