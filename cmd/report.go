package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/tastytax/tastytax"
)

// reportCmd holds the flags for the 'report' subcommand.
type reportCmd struct {
	assumeStock bool
	usd         bool
	verbose     bool
	debugFIFO   bool
	ratesFile   string
	rulesFile   string
	outputCSV   string
	outputExcel string
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "process a transaction history into tax figures" }
func (*reportCmd) Usage() string {
	return `ttx report [-assume-individual-stock] [-usd] [-output-csv <file>] [-output-excel <file>] <history.csv>...

  Processes the complete transaction history chronologically, realizes gains
  against the FIFO lot queues, and prints a per-year summary. Multiple input
  files are merged and re-sorted before the pass.

Usage Examples:
# Full report with csv output next to the summary.
$ ttx report -output-csv report.csv history.csv

`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.assumeStock, "assume-individual-stock", false, "treat unknown symbols as individual stocks instead of failing")
	f.BoolVar(&c.usd, "usd", false, "keep amounts in USD instead of converting to EUR")
	f.BoolVar(&c.verbose, "verbose", false, "log every processed row")
	f.BoolVar(&c.debugFIFO, "debug-fifo", false, "dump the open lots after every transaction")
	f.StringVar(&c.ratesFile, "rates", defaultRatesFile, "bundesbank EUR/USD rate file, downloaded when missing")
	f.StringVar(&c.rulesFile, "tax-rules", "", "YAML file overriding the built-in tax-rule parameters")
	f.StringVar(&c.outputCSV, "output-csv", "", "write the normalized rows to this csv file")
	f.StringVar(&c.outputExcel, "output-excel", "", "write the normalized rows to this xlsx file")
}

func (c *reportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "missing transaction history file")
		return subcommands.ExitUsageError
	}
	rows, proc, rules, status := run(ctx, f.Args(), runOptions{
		assumeStock: c.assumeStock,
		usd:         c.usd,
		verbose:     c.verbose,
		debugFIFO:   c.debugFIFO,
		ratesFile:   c.ratesFile,
		rulesFile:   c.rulesFile,
	})
	if status != subcommands.ExitSuccess {
		return status
	}

	if c.outputCSV != "" {
		out, err := os.Create(c.outputCSV)
		if err != nil {
			return fail(err)
		}
		defer out.Close()
		if err := tastytax.WriteRowsCSV(out, rows); err != nil {
			return fail(err)
		}
	}
	if c.outputExcel != "" {
		if err := tastytax.WriteRowsExcel(c.outputExcel, rows); err != nil {
			return fail(err)
		}
	}

	sums := tastytax.Aggregate(rows, proc.Extremes(), rules)
	tastytax.WriteSummaries(os.Stdout, sums, c.verbose)
	fmt.Printf("\naccount end total: %s\n", proc.CashTotal().StringFixed(2))
	proc.Lots().Dump(os.Stdout)
	return subcommands.ExitSuccess
}

// runOptions are the options shared by report and summary.
type runOptions struct {
	assumeStock bool
	usd         bool
	verbose     bool
	debugFIFO   bool
	ratesFile   string
	rulesFile   string
}

// run reads, merges and processes the input files.
func run(ctx context.Context, paths []string, opt runOptions) ([]tastytax.Row, *tastytax.Processor, tastytax.TaxRules, subcommands.ExitStatus) {
	rules, err := loadRules(opt.rulesFile)
	if err != nil {
		return nil, nil, rules, fail(err)
	}
	rates, err := openRates(ctx, opt.ratesFile)
	if err != nil {
		return nil, nil, rules, fail(err)
	}
	txs, err := tastytax.ReadFiles(paths...)
	if err != nil {
		return nil, nil, rules, fail(err)
	}
	proc := tastytax.NewProcessor(tastytax.Config{
		Rates:      rates,
		Classifier: tastytax.Classifier{AssumeStock: opt.assumeStock},
		NoConvert:  opt.usd,
		Verbose:    opt.verbose,
		DebugFIFO:  opt.debugFIFO,
		Log:        os.Stderr,
	})
	rows, err := proc.Process(txs)
	if err != nil {
		return nil, nil, rules, fail(err)
	}
	return rows, proc, rules, subcommands.ExitSuccess
}
