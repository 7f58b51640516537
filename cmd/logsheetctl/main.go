// Command logsheetctl drives a running logsheet server from the shell.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"github.com/tphummel/logsheet/internal/client"
)

const usage = `usage: logsheetctl <command> [flags]

commands:
  groups                          list directory groups
  group <name>                    list equipment in a group
  equipment <id>                  resolve an equipment id
  registry                        list registered equipment
  register <id> <name>            name or rename an equipment id
  unregister <id>                 remove a registry entry
  readings [-uid] [-group] [-date]
  delete-reading <id>
  export -group G -date D [-format csv] [-o file]

environment:
  LOGSHEET_URL  server address (default http://127.0.0.1:8080)
  API_TOKEN     bearer token
`

var errUsage = errors.New("invalid usage")

func newClient() (*client.Client, error) {
	v := viper.New()
	v.SetDefault("LOGSHEET_URL", "http://127.0.0.1:8080")
	v.AutomaticEnv()
	token := v.GetString("API_TOKEN")
	if token == "" {
		return nil, errors.New("API_TOKEN environment variable is required")
	}
	return client.New(v.GetString("LOGSHEET_URL"), token), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func run(ctx context.Context, c *client.Client, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, args := args[0], args[1:]

	switch cmd {
	case "groups":
		groups, err := c.Groups(ctx)
		if err != nil {
			return err
		}
		for _, g := range groups {
			fmt.Fprintln(stdout, g)
		}
		return nil

	case "group":
		if len(args) != 1 {
			return errUsage
		}
		equipment, err := c.GroupEquipment(ctx, args[0])
		if err != nil {
			return err
		}
		for _, e := range equipment {
			fmt.Fprintf(stdout, "%s\t%s\n", e.ID, e.Name)
		}
		return nil

	case "equipment":
		if len(args) != 1 {
			return errUsage
		}
		e, err := c.Equipment(ctx, args[0])
		if err != nil {
			return err
		}
		if e == nil {
			return fmt.Errorf("equipment %q not found", args[0])
		}
		return printJSON(stdout, e)

	case "registry":
		entries, err := c.Registry(ctx)
		if err != nil {
			return err
		}
		return printJSON(stdout, entries)

	case "register":
		if len(args) != 2 {
			return errUsage
		}
		e, err := c.Register(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		return printJSON(stdout, e)

	case "unregister":
		if len(args) != 1 {
			return errUsage
		}
		return c.Unregister(ctx, args[0])

	case "readings":
		fs := flag.NewFlagSet("readings", flag.ContinueOnError)
		var f client.Filter
		fs.StringVar(&f.UID, "uid", "", "equipment id")
		fs.StringVar(&f.Group, "group", "", "directory group (requires -date)")
		fs.StringVar(&f.Date, "date", "", "calendar day, YYYY-MM-DD")
		if err := fs.Parse(args); err != nil {
			return errUsage
		}
		list, err := c.Readings(ctx, f)
		if err != nil {
			return err
		}
		return printJSON(stdout, list)

	case "delete-reading":
		if len(args) != 1 {
			return errUsage
		}
		return c.DeleteReading(ctx, args[0])

	case "export":
		fs := flag.NewFlagSet("export", flag.ContinueOnError)
		group := fs.String("group", "", "directory group")
		date := fs.String("date", "", "calendar day, YYYY-MM-DD")
		format := fs.String("format", "csv", "html, pdf, csv or xlsx")
		out := fs.String("o", "", "download to this file or directory instead of writing on the server")
		if err := fs.Parse(args); err != nil || *group == "" || *date == "" {
			return errUsage
		}
		if *out == "" {
			res, err := c.Export(ctx, *group, *date, *format)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "%s (%d readings)\n", res.Path, res.Readings)
			return nil
		}
		body, name, err := c.Report(ctx, *group, *date, *format)
		if err != nil {
			return err
		}
		path := *out
		if fi, err := os.Stat(path); err == nil && fi.IsDir() {
			if name == "" {
				return fmt.Errorf("server sent no usable file name; pass a file path to -o")
			}
			path = filepath.Join(path, name)
		}
		if err := os.WriteFile(path, body, 0o644); err != nil {
			return err
		}
		fmt.Fprintln(stdout, path)
		return nil
	}
	return errUsage
}

func main() {
	c, err := newClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := run(context.Background(), c, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
