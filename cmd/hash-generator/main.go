// Command hash-generator prints bcrypt hashes for seeding users by hand.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"github.com/tasklane/tasklane-api/internal/domain"
	"github.com/tasklane/tasklane-api/internal/service/auth"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "hash-generator:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("hash-generator", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	cost := fs.Int("cost", bcrypt.DefaultCost, "bcrypt cost")
	skipRules := fs.Bool("skip-rules", false, "hash passwords that fail the registration rules")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("usage: hash-generator [--cost N] PASSWORD...")
	}
	if *cost < bcrypt.MinCost || *cost > bcrypt.MaxCost {
		return fmt.Errorf("cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}

	var failed int
	for _, password := range fs.Args() {
		if !*skipRules {
			if err := domain.ValidatePassword(password); err != nil {
				fmt.Fprintf(stderr, "skipping %q: %v\n", password, err)
				failed++
				continue
			}
		}
		hash, err := auth.HashPassword(password, *cost)
		if err != nil {
			fmt.Fprintf(stderr, "skipping %q: %v\n", password, err)
			failed++
			continue
		}
		fmt.Fprintf(stdout, "%s\t%s\n", password, hash)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d passwords not hashed", failed, fs.NArg())
	}
	return nil
}
