package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"
	"github.com/tastytax/tastytax"
)

// summaryCmd holds the flags for the 'summary' subcommand.
type summaryCmd struct {
	year        int
	assumeStock bool
	usd         bool
	ratesFile   string
	rulesFile   string
	outputCSV   string
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "tax figures restricted to a single tax year" }
func (*summaryCmd) Usage() string {
	return `ttx summary [-year <year>] <history.csv>...

  Processes the complete history (earlier years are needed for the lot
  queues and the carried-forward losses) but reports only the requested tax
  year, sorted by tax category.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.year, "year", time.Now().Year()-1, "tax year to report")
	f.BoolVar(&c.assumeStock, "assume-individual-stock", false, "treat unknown symbols as individual stocks instead of failing")
	f.BoolVar(&c.usd, "usd", false, "keep amounts in USD instead of converting to EUR")
	f.StringVar(&c.ratesFile, "rates", defaultRatesFile, "bundesbank EUR/USD rate file, downloaded when missing")
	f.StringVar(&c.rulesFile, "tax-rules", "", "YAML file overriding the built-in tax-rule parameters")
	f.StringVar(&c.outputCSV, "output-csv", "", "write the year's rows to this csv file instead of stdout")
}

func (c *summaryCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "missing transaction history file")
		return subcommands.ExitUsageError
	}
	rows, proc, rules, status := run(ctx, f.Args(), runOptions{
		assumeStock: c.assumeStock,
		usd:         c.usd,
		ratesFile:   c.ratesFile,
		rulesFile:   c.rulesFile,
	})
	if status != subcommands.ExitSuccess {
		return status
	}

	out := os.Stdout
	if c.outputCSV != "" {
		file, err := os.Create(c.outputCSV)
		if err != nil {
			return fail(err)
		}
		defer file.Close()
		out = file
	}
	if err := tastytax.WriteYearCSV(out, rows, c.year); err != nil {
		return fail(err)
	}

	for _, s := range tastytax.Aggregate(rows, proc.Extremes(), rules) {
		if s.Year == c.year {
			tastytax.WriteSummaries(os.Stderr, []*tastytax.YearlySummary{s}, false)
			return subcommands.ExitSuccess
		}
	}
	fmt.Fprintf(os.Stderr, "no transactions in %d\n", c.year)
	return subcommands.ExitFailure
}
