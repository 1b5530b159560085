package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/liamcoop/configbuilder/catalog"
	"github.com/liamcoop/configbuilder/configbuilder"
	"github.com/liamcoop/configbuilder/store"
)

// codeError carries a non-zero exit code for an outcome that is already reported
type codeError struct {
	code int
}

func (e *codeError) Error() string {
	return "exit " + strconv.Itoa(e.code)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "configctl",
		Short:         "Validate and evaluate product configuration catalogs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newValidateCmd(), newEvaluateCmd(), newImportCmd())
	return root
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <catalog>",
		Short: "Check a YAML or JSON catalog for structural errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			snap, err := catalog.LoadFile(args[0])
			if err != nil {
				return err
			}
			cat, resolver, err := snap.Build()
			if err != nil {
				fmt.Fprintf(out, "INVALID %s\n  %v\n", args[0], err)
				return &codeError{code: exitInvalid}
			}

			fmt.Fprintf(out, "OK %s\n", args[0])
			fmt.Fprintf(out, "  product classes: %d\n", len(cat.ProductClasses()))
			fmt.Fprintf(out, "  categories:      %d\n", len(cat.Categories()))
			fmt.Fprintf(out, "  options:         %d\n", len(cat.Options()))
			fmt.Fprintf(out, "  active rules:    %d of %d\n", len(resolver.Rules()), len(snap.Rules))
			return nil
		},
	}
}

type evaluateFlags struct {
	classID        string
	selections     []string
	quantities     []string
	nameCategories []string
	defaults       bool
	jsonOutput     bool
}

func newEvaluateCmd() *cobra.Command {
	var flags evaluateFlags

	cmd := &cobra.Command{
		Use:   "evaluate <catalog>",
		Short: "Build a configuration from flags and print its evaluation",
		Long: `Starts a session on --class, applies each --select in order, then each
--quantity, and prints the selections, category statuses, validation
results and total. Exits 1 when the configuration has errors.`,
		Example: `  configctl evaluate testdata/catalog.yaml --class cls_feed_heavy --select opt_touchscreen,opt_light_curtain --quantity opt_light_curtain=2`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return evaluate(cmd.OutOrStdout(), args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.classID, "class", "", "Product class to configure (required)")
	cmd.Flags().StringSliceVar(&flags.selections, "select", nil, "Options to check, in order")
	cmd.Flags().StringSliceVar(&flags.quantities, "quantity", nil, "Quantities as option=count")
	cmd.Flags().StringSliceVar(&flags.nameCategories, "name-categories", nil, "Categories that make up the auto name")
	cmd.Flags().BoolVar(&flags.defaults, "defaults", false, "Seed defaults into empty categories after selecting")
	cmd.Flags().BoolVar(&flags.jsonOutput, "json", false, "Print the evaluation as JSON")
	_ = cmd.MarkFlagRequired("class")

	return cmd
}

func evaluate(out io.Writer, path string, flags evaluateFlags) error {
	quantities, err := parseQuantities(flags.quantities)
	if err != nil {
		return err
	}

	snap, err := catalog.LoadFile(path)
	if err != nil {
		return err
	}
	cat, resolver, err := snap.Build()
	if err != nil {
		return err
	}

	sess, err := configbuilder.NewSession(cat, resolver, flags.classID,
		configbuilder.WithNameCategories(flags.nameCategories...))
	if err != nil {
		return err
	}
	for _, id := range flags.selections {
		sess.SelectOption(id, true)
	}
	for _, q := range quantities {
		sess.SetQuantity(q.optionID, q.quantity)
	}
	if flags.defaults {
		sess.SelectDefaults()
	}

	if flags.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(sess.Evaluation()); err != nil {
			return err
		}
	} else {
		printEvaluation(out, sess)
	}

	if !sess.IsValid() {
		return &codeError{code: exitInvalid}
	}
	return nil
}

func printEvaluation(out io.Writer, sess *configbuilder.Session) {
	cat := sess.Catalog()

	fmt.Fprintf(out, "%s (%s)\n\n", sess.Name(), sess.ProductClassID())

	fmt.Fprintln(out, "Selections:")
	for _, sel := range sess.Selections() {
		opt, _ := cat.Option(sel.OptionID)
		fmt.Fprintf(out, "  %-20s %-24s x%d  %s\n", sel.OptionID, opt.Name, sel.Quantity, opt.Price.StringFixed(2))
	}

	fmt.Fprintln(out, "\nCategories:")
	for _, view := range sess.Categories() {
		fmt.Fprintf(out, "  %-20s %s\n", view.ID, view.Status)
	}

	fmt.Fprintln(out, "\nValidation:")
	for _, result := range sess.Validate() {
		fmt.Fprintf(out, "  [%s] %s\n", result.Severity, result.Message)
	}

	fmt.Fprintf(out, "\n%s\n", sess.Summary())
}

type quantity struct {
	optionID string
	quantity int
}

func parseQuantities(values []string) ([]quantity, error) {
	parsed := make([]quantity, 0, len(values))
	for _, v := range values {
		id, count, ok := strings.Cut(v, "=")
		if !ok || id == "" {
			return nil, fmt.Errorf("invalid quantity %q, want option=count", v)
		}
		n, err := strconv.Atoi(count)
		if err != nil {
			return nil, fmt.Errorf("invalid quantity %q: %w", v, err)
		}
		parsed = append(parsed, quantity{optionID: id, quantity: n})
	}
	return parsed, nil
}

func newImportCmd() *cobra.Command {
	var databaseURL string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "import <catalog>",
		Short: "Replace the catalog stored in Postgres with a catalog file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if databaseURL == "" {
				databaseURL = os.Getenv("DATABASE_URL")
			}
			if databaseURL == "" {
				return fmt.Errorf("database URL is required: use --database or DATABASE_URL")
			}

			snap, err := catalog.LoadFile(args[0])
			if err != nil {
				return err
			}

			db, err := sql.Open("postgres", databaseURL)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			if err := store.NewPostgresCatalogSource(db).Import(ctx, snap); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d product classes, %d categories, %d options, %d rules\n",
				len(snap.ProductClasses), len(snap.Categories), len(snap.Options), len(snap.Rules))
			return nil
		},
	}

	cmd.Flags().StringVar(&databaseURL, "database", "", "Database URL (defaults to DATABASE_URL)")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Import timeout")

	return cmd
}
