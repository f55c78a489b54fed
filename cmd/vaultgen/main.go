// Command vaultgen derives need vault addresses offline and prints them as a
// table or as Go literals for escrow.SeedVaults.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/gagliardetto/solana-go"

	"github.com/glimpsegive/glimpse-ledger/internal/escrow"
)

var defaultSlugs = []string{"shower", "groceries", "wardrobe", "tires", "rent"}

func main() {
	program := flag.String("program", escrow.DefaultProgramID.String(), "escrow program address")
	asGo := flag.Bool("go", false, "print Go literals instead of a table")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: vaultgen [-program ADDR] [-go] [slug ...]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	pid, err := solana.PublicKeyFromBase58(*program)
	if err != nil {
		fmt.Fprintln(os.Stderr, "program:", err)
		os.Exit(2)
	}
	slugs := flag.Args()
	if len(slugs) == 0 {
		slugs = defaultSlugs
	}
	vaults, err := derive(pid, slugs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *asGo {
		err = writeGo(os.Stdout, vaults)
	} else {
		err = writeTable(os.Stdout, vaults)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func derive(pid solana.PublicKey, slugs []string) ([]escrow.Vault, error) {
	out := make([]escrow.Vault, 0, len(slugs))
	for _, s := range slugs {
		v, err := escrow.DeriveVault(pid, s)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", s, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func writeTable(w io.Writer, vaults []escrow.Vault) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SLUG\tVAULT\tBUMP")
	for _, v := range vaults {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", v.Slug, v.Address, v.Bump)
	}
	return tw.Flush()
}

func writeGo(w io.Writer, vaults []escrow.Vault) error {
	for _, v := range vaults {
		if _, err := fmt.Fprintf(w, "\t{Slug: %q, Address: solana.MustPublicKeyFromBase58(%q), Bump: %d},\n", v.Slug, v.Address, v.Bump); err != nil {
			return err
		}
	}
	return nil
}
