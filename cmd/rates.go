package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/tastytax/tastytax"
)

// ratesCmd holds the flags for the 'rates' subcommand.
type ratesCmd struct {
	ratesFile string
	url       string
}

func (*ratesCmd) Name() string     { return "rates" }
func (*ratesCmd) Synopsis() string { return "fetch or refresh the EUR/USD reference rates" }
func (*ratesCmd) Usage() string {
	return `ttx rates [-rates <file>]

  Downloads the daily EUR/USD reference rates from bundesbank.de and saves
  them for offline use.
`
}

func (c *ratesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.ratesFile, "rates", defaultRatesFile, "file to save the rate table to")
	f.StringVar(&c.url, "url", tastytax.BundesbankURL, "source of the rate series")
}

func (c *ratesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	table, err := tastytax.FetchRates(ctx, c.url)
	if err != nil {
		return fail(err)
	}
	out, err := os.Create(c.ratesFile)
	if err != nil {
		return fail(err)
	}
	defer out.Close()
	if _, err := table.WriteTo(out); err != nil {
		return fail(err)
	}
	fmt.Printf("Saved exchange rates to %s\n", c.ratesFile)
	return subcommands.ExitSuccess
}
