package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pthm/hxwire"
)

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect [snapshot|-]",
		Short: "Verify and print a snapshot",
		Long: `Verify a snapshot's checksum with the configured secret and print its
memo and data. The snapshot is read from the argument, or from stdin when
the argument is "-" or missing.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runInspect(opts *RootOptions, args []string, cmd *cobra.Command) error {
	var raw []byte
	if len(args) == 0 || args[0] == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read snapshot: %w", err)
		}
		raw = b
	} else {
		raw = []byte(args[0])
	}

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	m, err := hxwire.NewFromConfig(cfg, hxwire.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		return err
	}

	snap, err := m.Decode(raw)
	if err != nil {
		return fmt.Errorf("inspect: %w", err)
	}

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}
	return writeSnapshotText(out, snap)
}

// writeSnapshotText prints the memo as a header and the data as YAML.
func writeSnapshotText(w io.Writer, snap *hxwire.Snapshot) error {
	memo := snap.Memo
	fmt.Fprintf(w, "component: %s\n", memo.Name)
	fmt.Fprintf(w, "id:        %s\n", memo.ID)
	fmt.Fprintf(w, "request:   %s %s\n", memo.Method, memo.Path)
	fmt.Fprintf(w, "locale:    %s\n", memo.Locale)

	for _, c := range memo.Children {
		fmt.Fprintf(w, "child:     %s <%s> key=%s\n", c.ID, c.Tag, c.Key)
	}

	fields := make([]string, 0, len(memo.Errors))
	for f := range memo.Errors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		fmt.Fprintf(w, "error:     %s: %s\n", f, memo.Errors[f])
	}

	data, err := yaml.Marshal(yamlNumbers(snap.Data))
	if err != nil {
		return fmt.Errorf("encode data: %w", err)
	}
	fmt.Fprintln(w, "data:")
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		fmt.Fprintf(w, "  %s\n", line)
	}
	return nil
}

// yamlNumbers turns json.Number leaves into Go numbers so YAML prints them
// unquoted.
func yamlNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if u, err := strconv.ParseUint(t.String(), 10, 64); err == nil {
			return u
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = yamlNumbers(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = yamlNumbers(item)
		}
		return out
	}
	return v
}
