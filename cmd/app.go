// Package cmd implements the CLI application that turns a brokerage
// transaction history into German tax figures.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/tastytax/tastytax"
)

// as a CLI application, it has a very short lived lifecycle, so it is ok to
// keep the command list as a package variable.

// Commands returns all subcommands of the application. A main package
// registers them on a commander and executes the user-selected one.
func Commands() []subcommands.Command {
	return []subcommands.Command{
		&reportCmd{},
		&summaryCmd{},
		&ratesCmd{},
		&topicCmd{},
	}
}

// defaultRatesFile is where the bundesbank table is cached between runs.
const defaultRatesFile = "eurusd.csv"

// openRates loads the exchange-rate table, downloading it on first use.
func openRates(ctx context.Context, path string) (*tastytax.RateTable, error) {
	rates, err := tastytax.OpenRates(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("loading exchange rates: %w", err)
	}
	return rates, nil
}

// loadRules loads the tax-rule parameters, using the built-in current rule
// set when no override file is given.
func loadRules(path string) (tastytax.TaxRules, error) {
	if path == "" {
		return tastytax.DefaultTaxRules(), nil
	}
	return tastytax.LoadTaxRules(path)
}

func fail(err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return subcommands.ExitFailure
}
