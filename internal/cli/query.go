package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/prequel/internal/harness"
	"github.com/roach88/prequel/internal/keyset"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Database  string
	ModelsDir string
	Keys      []string // start from these keys instead of every record
	Scopes    []string // "name" or "name:[arg, ...]"
	Where     []string // "field<op>value"
	Sort      string
	Desc      bool
	Limit     int // negative means no limit
	Count     bool
	First     bool
}

// QueryResult is the JSON payload of the query command.
type QueryResult struct {
	Model string          `json:"model"`
	Keys  []string        `json:"keys"`
	Count *int            `json:"count,omitempty"`
	First json.RawMessage `json:"first,omitempty"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <model>",
		Short: "Query the records of a model",
		Long: `Build a key set over the records of a model and print its keys.

Steps apply in this order: scopes (in the order given), where filters,
sort, limit. A scope taking parameters lists its arguments after a colon
as a YAML flow sequence.

Examples:
  prequel query --db ./people.db --models ./models Person --scope howards
  prequel query --db ./people.db --models ./models Person --scope 'named:["Moe Howard"]'
  prequel query --db ./people.db --models ./models Person --where 'born<1900' --sort born --desc
  prequel query --db ./people.db --models ./models Person --scope stooges --first`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.ModelsDir, "models", "", "directory of CUE model definitions (required)")
	cmd.Flags().StringSliceVar(&opts.Keys, "keys", nil, "start from these keys instead of every record")
	cmd.Flags().StringArrayVar(&opts.Scopes, "scope", nil, "apply a scope (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Where, "where", nil, "filter field<op>value, op one of = != < > ~ (repeatable)")
	cmd.Flags().StringVar(&opts.Sort, "sort", "", "sort by attribute")
	cmd.Flags().BoolVar(&opts.Desc, "desc", false, "sort descending")
	cmd.Flags().IntVar(&opts.Limit, "limit", -1, "keep at most n keys")
	cmd.Flags().BoolVar(&opts.Count, "count", false, "print the number of matching records")
	cmd.Flags().BoolVar(&opts.First, "first", false, "print the first matching record")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("models")

	return cmd
}

func runQuery(opts *QueryOptions, modelName string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	q, err := buildQuery(opts, modelName)
	if err != nil {
		_ = formatter.Error(ErrCodeQuery, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid query", err)
	}

	ctx := commandContext(cmd)
	reg, st, err := openRegistry(ctx, opts.Database, opts.ModelsDir)
	if err != nil {
		return err
	}
	defer closeStore(st)

	ks, err := harness.Evaluate(ctx, reg, q)
	if err != nil {
		_ = formatter.Error(ErrCodeQuery, err.Error(), nil)
		return WrapExitError(ExitFailure, "query failed", err)
	}
	formatter.VerboseLog("%d key(s) after %d step(s)", ks.Size(), len(q.Pipeline))

	result := QueryResult{Model: modelName, Keys: []string{}}
	for _, k := range ks.Keys() {
		result.Keys = append(result.Keys, string(k))
	}

	if opts.Count {
		n, err := ks.Count(nil)
		if err != nil {
			_ = formatter.Error(ErrCodeQuery, err.Error(), nil)
			return WrapExitError(ExitFailure, "count failed", err)
		}
		result.Count = &n
	}

	if opts.First {
		first, found, err := ks.First(nil)
		if err != nil {
			_ = formatter.Error(ErrCodeQuery, err.Error(), nil)
			return WrapExitError(ExitFailure, "first failed", err)
		}
		if found {
			if result.First, err = marshalInstance(first); err != nil {
				return err
			}
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	return outputQueryText(formatter, opts, result)
}

// buildQuery turns the command-line steps into a harness query.
func buildQuery(opts *QueryOptions, modelName string) (harness.Query, error) {
	q := harness.Query{Name: "cli", Model: modelName, Keys: opts.Keys}

	for _, raw := range opts.Scopes {
		step, err := parseScopeFlag(raw)
		if err != nil {
			return q, err
		}
		q.Pipeline = append(q.Pipeline, step)
	}
	if len(opts.Where) > 0 {
		q.Pipeline = append(q.Pipeline, harness.Step{Where: opts.Where})
	}
	if opts.Sort != "" {
		q.Pipeline = append(q.Pipeline, harness.Step{Sort: opts.Sort, Desc: opts.Desc})
	} else if opts.Desc {
		return q, fmt.Errorf("--desc requires --sort")
	}
	if opts.Limit >= 0 {
		limit := opts.Limit
		q.Pipeline = append(q.Pipeline, harness.Step{Limit: &limit})
	}
	return q, nil
}

// parseScopeFlag parses "name" or "name:[arg, ...]".
func parseScopeFlag(raw string) (harness.Step, error) {
	name, rawArgs, hasArgs := strings.Cut(raw, ":")
	name = strings.TrimSpace(name)
	if name == "" {
		return harness.Step{}, fmt.Errorf("invalid scope %q: missing name", raw)
	}
	step := harness.Step{Scope: name}
	if !hasArgs {
		return step, nil
	}
	if err := yaml.Unmarshal([]byte(rawArgs), &step.Args); err != nil {
		return harness.Step{}, fmt.Errorf("invalid scope %q: arguments must be a list: %w", raw, err)
	}
	return step, nil
}

func marshalInstance(inst keyset.Instance) (json.RawMessage, error) {
	data, err := json.Marshal(inst)
	if err != nil {
		return nil, fmt.Errorf("marshaling %v: %w", inst, err)
	}
	return data, nil
}

func outputQueryText(formatter *OutputFormatter, opts *QueryOptions, result QueryResult) error {
	w := formatter.Writer
	switch {
	case opts.Count:
		fmt.Fprintln(w, *result.Count)
	case opts.First:
		if result.First == nil {
			fmt.Fprintln(w, "(none)")
			return nil
		}
		fmt.Fprintln(w, string(result.First))
	default:
		for _, k := range result.Keys {
			fmt.Fprintln(w, k)
		}
	}
	return nil
}
