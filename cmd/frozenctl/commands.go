package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/frozen-objects-go/frozen"
	"github.com/AntonStoeckl/frozen-objects-go/frozen/postgresstore"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2

	envDSN = "FROZEN_DSN"

	usage = `usage: frozenctl <command> [flags] [args]

commands:
  validate <specs.yaml>        check a column spec file
  inspect <payload.json>       print the snapshot stored in a payload file ("-" reads stdin)
  get [flags] <key>            print the snapshot stored under key
`
)

var errUsage = errors.New("invalid usage")

var output = jsoniter.Config{SortMapKeys: true, EscapeHTML: false}.Froze()

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		_, _ = fmt.Fprint(stderr, usage)
		return exitUsage
	}

	var err error

	switch args[0] {
	case "validate":
		err = validateCommand(args[1:], stdout)
	case "inspect":
		err = inspectCommand(args[1:], stdout)
	case "get":
		err = getCommand(ctx, args[1:], stdout, stderr)
	case "help", "-h", "--help":
		_, _ = fmt.Fprint(stdout, usage)
		return exitOK
	default:
		err = errors.Join(errUsage, fmt.Errorf("unknown command %q", args[0]))
	}

	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errUsage):
		_, _ = fmt.Fprintf(stderr, "%v\n\n%s", err, usage)
		return exitUsage
	default:
		_, _ = fmt.Fprintf(stderr, "frozenctl: %v\n", err)
		return exitError
	}
}

func validateCommand(args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return errors.Join(errUsage, errors.New("validate expects one spec file"))
	}

	specs, err := frozen.LoadColumnSpecsFile(args[0])
	if err != nil {
		return err
	}

	for _, spec := range specs {
		_, _ = fmt.Fprintf(stdout, "%s\t%s\n", spec.Name, spec.SourceModel)
	}
	_, _ = fmt.Fprintf(stdout, "%d column(s) ok\n", len(specs))

	return nil
}

func inspectCommand(args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return errors.Join(errUsage, errors.New("inspect expects one payload file"))
	}

	var payload []byte
	var err error
	if args[0] == "-" {
		payload, err = io.ReadAll(os.Stdin)
	} else {
		payload, err = os.ReadFile(args[0])
	}
	if err != nil {
		return err
	}

	node, err := frozen.UnfreezeJSON(payload, nil)
	if err != nil {
		return err
	}

	return printNode(stdout, node)
}

func getCommand(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("get", flag.ContinueOnError)
	flags.SetOutput(stderr)
	dsn := flags.String("dsn", os.Getenv(envDSN), "postgres DSN, defaults to $"+envDSN)
	specsPath := flags.String("specs", "", "column spec file")
	columnName := flags.String("column", "", "column name in the specs file")
	table := flags.String("table", "", "table name, defaults to frozen_objects")
	verbose := flags.Bool("v", false, "log store operations to stderr")

	if err := flags.Parse(args); err != nil {
		return errors.Join(errUsage, err)
	}

	if flags.NArg() != 1 || *dsn == "" || *specsPath == "" || *columnName == "" {
		return errors.Join(errUsage, errors.New("get expects -dsn, -specs, -column and one key"))
	}

	column, err := loadColumn(*specsPath, *columnName)
	if err != nil {
		return err
	}

	options := []postgresstore.Option{postgresstore.WithColumn(column)}
	if *table != "" {
		options = append(options, postgresstore.WithTableName(*table))
	}
	if *verbose {
		options = append(options, postgresstore.WithLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))))
	}

	pool, err := pgxpool.New(ctx, *dsn)
	if err != nil {
		return err
	}
	defer pool.Close()

	store, err := postgresstore.NewStoreFromPGXPool(pool, options...)
	if err != nil {
		return err
	}

	node, err := store.Get(ctx, flags.Arg(0))
	if err != nil {
		return err
	}

	if node == nil {
		_, _ = fmt.Fprintf(stdout, "nothing stored under %q\n", flags.Arg(0))
		return nil
	}

	return printNode(stdout, node)
}

func loadColumn(specsPath, name string) (frozen.Column, error) {
	specs, err := frozen.LoadColumnSpecsFile(specsPath)
	if err != nil {
		return frozen.Column{}, err
	}

	for _, spec := range specs {
		if spec.Name == name {
			return frozen.NewColumn(spec)
		}
	}

	return frozen.Column{}, fmt.Errorf("no column %q in %s", name, specsPath)
}

func printNode(w io.Writer, node *frozen.Node) error {
	meta := node.Meta()

	_, _ = fmt.Fprintf(w, "model:      %s\n", meta.Model())
	_, _ = fmt.Fprintf(w, "frozen at:  %s\n", meta.FrozenAt().Format("2006-01-02T15:04:05.000Z07:00"))
	_, _ = fmt.Fprintf(w, "attributes: %s\n", strings.Join(node.Attrs(), ", "))

	data, err := output.MarshalIndent(node.Data(), "", "  ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "%s\n", data)

	return err
}
