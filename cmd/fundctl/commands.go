package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	money "github.com/Rhymond/go-money"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"

	grpcadapter "github.com/simaogato/fundfolio-backend/internal/adapter/grpc"
	"github.com/simaogato/fundfolio-backend/internal/app"
	"github.com/simaogato/fundfolio-backend/internal/common"
	"github.com/simaogato/fundfolio-backend/internal/domain"
	"github.com/simaogato/fundfolio-backend/internal/usecase/portfolio"
)

// openApp loads configuration and wires the application
func openApp(ctx context.Context) (*app.App, error) {
	config, err := common.LoadConfig(*configFile)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, config, common.InitLogger(config))
}

// refreshCmd re-fetches the NAV of every catalog fund
type refreshCmd struct{}

func (*refreshCmd) Name() string     { return "refresh" }
func (*refreshCmd) Synopsis() string { return "update the NAV of every fund in the catalog" }
func (*refreshCmd) Usage() string {
	return `fundctl refresh

  Fetches each catalog fund from the provider and stores its latest NAV.
  Funds that cannot be fetched are listed and left unchanged.
`
}

func (*refreshCmd) SetFlags(f *flag.FlagSet) {}

func (*refreshCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	report, err := a.SyncService.RefreshAllNAV(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error refreshing NAVs: %v\n", err)
		return subcommands.ExitFailure
	}

	printReport(os.Stdout, report)
	if report.FailedCount() > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func printReport(w io.Writer, report *domain.RefreshReport) {
	fmt.Fprintf(w, "Updated NAV for %d funds\n", report.UpdatedCount())
	if report.FailedCount() == 0 {
		return
	}
	fmt.Fprintf(w, "Failed to update %d funds:\n", report.FailedCount())
	for _, f := range report.Failed {
		fmt.Fprintf(w, "  %s: %s\n", f.SchemeCode, f.Reason)
	}
}

// catalogCmd lists the provider's fund family
type catalogCmd struct{}

func (*catalogCmd) Name() string     { return "catalog" }
func (*catalogCmd) Synopsis() string { return "list the schemes of the configured fund family" }
func (*catalogCmd) Usage() string {
	return `fundctl catalog

  Lists open-ended schemes of the configured fund family as reported by the provider.
`
}

func (*catalogCmd) SetFlags(f *flag.FlagSet) {}

func (*catalogCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	records, err := a.CatalogService.ListCatalog(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing catalog: %v\n", err)
		return subcommands.ExitFailure
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tNAME\tNAV")
	for _, r := range records {
		nav := "-"
		if r.NAV.Valid {
			nav = r.NAV.Decimal.StringFixed(domain.NAVPlaces)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.SchemeCode, r.Name, nav)
	}
	tw.Flush()
	return subcommands.ExitSuccess
}

// portfolioCmd prints an owner's valued holdings
type portfolioCmd struct {
	owner string
}

func (*portfolioCmd) Name() string     { return "portfolio" }
func (*portfolioCmd) Synopsis() string { return "display an owner's holdings at current NAV" }
func (*portfolioCmd) Usage() string {
	return `fundctl portfolio -owner <id>

  Displays every holding of the owner with its NAV and current value.
`
}

func (c *portfolioCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.owner, "owner", "", "Owner identifier")
}

func (c *portfolioCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.owner == "" {
		fmt.Fprintln(os.Stderr, "Error: -owner is required")
		return subcommands.ExitUsageError
	}

	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	entries, err := a.PortfolioService.ListPortfolio(ctx, c.owner)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing portfolio: %v\n", err)
		return subcommands.ExitFailure
	}

	printPortfolio(os.Stdout, entries)
	return subcommands.ExitSuccess
}

func printPortfolio(w io.Writer, entries []portfolio.Entry) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "FUND\tCODE\tNAV\tQUANTITY\tVALUE\t")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t\n",
			e.FundName, e.SchemeCode, formatINR(e.NAV), e.Quantity, formatINR(e.CurrentValue))
	}
	fmt.Fprintf(tw, "TOTAL\t\t\t\t%s\t\n", formatINR(portfolio.Total(entries)))
	tw.Flush()
}

// formatINR renders amount as rupees, e.g. ₹1,038.52
func formatINR(amount decimal.Decimal) string {
	cur := money.GetCurrency(money.INR)
	factor := decimal.New(1, int32(cur.Fraction))
	return money.New(amount.Mul(factor).Round(0).IntPart(), money.INR).Display()
}

// tokenCmd issues an owner identity token for gRPC clients
type tokenCmd struct {
	owner string
	ttl   time.Duration
}

func (*tokenCmd) Name() string     { return "token" }
func (*tokenCmd) Synopsis() string { return "issue a signed owner identity token" }
func (*tokenCmd) Usage() string {
	return `fundctl token -owner <id> [-ttl 24h]

  Prints a token to send as the x-owner-token header when the server has an
  owner token secret configured.
`
}

func (c *tokenCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.owner, "owner", "", "Owner identifier")
	f.DurationVar(&c.ttl, "ttl", 24*time.Hour, "Token lifetime")
}

func (c *tokenCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.owner == "" {
		fmt.Fprintln(os.Stderr, "Error: -owner is required")
		return subcommands.ExitUsageError
	}

	config, err := common.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return subcommands.ExitFailure
	}
	if config.Auth.OwnerTokenSecret == "" {
		fmt.Fprintln(os.Stderr, "Error: auth.owner_token_secret is not configured")
		return subcommands.ExitFailure
	}

	token, err := grpcadapter.SignOwnerToken([]byte(config.Auth.OwnerTokenSecret), c.owner, c.ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error signing token: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Println(token)
	return subcommands.ExitSuccess
}

// addCmd records a purchase for an owner
type addCmd struct {
	owner    string
	code     string
	quantity int64
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "add units of a fund to an owner's holding" }
func (*addCmd) Usage() string {
	return `fundctl add -owner <id> -code <scheme code> -quantity <n>

  Imports the fund from the provider if needed and adds the units to the owner's holding.
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.owner, "owner", "", "Owner identifier")
	f.StringVar(&c.code, "code", "", "Scheme code")
	f.Int64Var(&c.quantity, "quantity", 0, "Number of units to add")
}

func (c *addCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.owner == "" || c.code == "" {
		fmt.Fprintln(os.Stderr, "Error: -owner and -code are required")
		return subcommands.ExitUsageError
	}

	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	entry, err := a.PortfolioService.AddHolding(ctx, portfolio.AddHoldingInput{
		OwnerID:    c.owner,
		SchemeCode: c.code,
		Quantity:   c.quantity,
	})
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity):
		fmt.Fprintln(os.Stderr, "Error: quantity must be greater than zero")
		return subcommands.ExitUsageError
	case errors.Is(err, domain.ErrInvalidRecord):
		fmt.Fprintf(os.Stderr, "Invalid fund details for %s\n", c.code)
		return subcommands.ExitFailure
	case errors.Is(err, domain.ErrFetchFailed):
		fmt.Fprintf(os.Stderr, "Failed to fetch fund details for %s\n", c.code)
		return subcommands.ExitFailure
	case err != nil:
		fmt.Fprintf(os.Stderr, "Error adding holding: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("%s (%s): %d units, value %s\n",
		entry.FundName, entry.SchemeCode, entry.Quantity, formatINR(entry.CurrentValue))
	return subcommands.ExitSuccess
}
