package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"go-query-cache/internal/model"
	"go-query-cache/internal/pipeline"
	"go-query-cache/internal/runner"
	"go-query-cache/internal/source"
	"go-query-cache/pkg/utils"
)

// formatTable prints the result for reading; the other formats are exports.
const formatTable = "table"

type fetchOptions struct {
	query     string
	queryFile string
	name      string
	cache     string
	refresh   bool
	format    string
	output    string

	pivotIndex   string
	pivotColumns string
	pivotValues  string
	pivotAgg     string
	where        []string
	sort         string
	desc         bool
}

func newFetchCmd(a *app) *cobra.Command {
	var o fetchOptions

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch a query result, from the cache when present",
		Long: "Fetch reads the cache file for the query when it exists and decodes. Otherwise,\n" +
			"or with --refresh, it runs the query against the source and rewrites the cache file.",
		Example: `  # Run a query file; the cache file is named after it
  querycache fetch --query-file queries/pax_df.sql

  # Items per month, one column per GP system supplier
  querycache fetch --query-file queries/pax_df.sql \
    --pivot-index month --pivot-columns system_supplier --pivot-values items

  # GP-setting practices for July 2023, most items first
  querycache fetch --query-file queries/pax_set_df.sql \
    --where code=4 --where month=2023-07-01 --sort items --desc

  # Force a fresh query and export it
  querycache fetch -q "SELECT 1 AS n" --name one --refresh --output one.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runFetch(cmd, o)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.query, "query", "q", "", "SQL query text")
	f.StringVar(&o.queryFile, "query-file", "", "file holding the SQL query")
	f.StringVar(&o.name, "name", "", "query name (defaults to the query file name)")
	f.StringVar(&o.cache, "cache", "", "cache file path (default <data dir>/<name or key>.csv)")
	f.BoolVar(&o.refresh, "refresh", false, "ignore the cache file and query the source")
	f.StringVar(&o.format, "format", "", "output format: table, csv, json or xlsx (default table, or from --output)")
	f.StringVarP(&o.output, "output", "o", "", "write the result to this file instead of stdout")
	f.StringVar(&o.pivotIndex, "pivot-index", "", "pivot: column whose values become rows")
	f.StringVar(&o.pivotColumns, "pivot-columns", "", "pivot: column whose values become columns")
	f.StringVar(&o.pivotValues, "pivot-values", "", "pivot: column to aggregate")
	f.StringVar(&o.pivotAgg, "pivot-agg", "sum", "pivot aggregation: sum, count, mean, max or min")
	f.StringArrayVar(&o.where, "where", nil, "keep rows where column=value (repeatable)")
	f.StringVar(&o.sort, "sort", "", "sort rows by this column")
	f.BoolVar(&o.desc, "desc", false, "sort descending")

	cmd.MarkFlagsMutuallyExclusive("query", "query-file")
	cmd.MarkFlagsOneRequired("query", "query-file")

	return cmd
}

// resolveQuery builds the query from --query or --query-file.
func (o fetchOptions) resolveQuery() (model.Query, error) {
	if o.queryFile != "" {
		q, err := pipeline.LoadQueryFile(o.queryFile)
		if err != nil {
			return model.Query{}, err
		}
		if o.name != "" {
			q.Name = strings.TrimSpace(o.name)
		}
		return q, nil
	}
	q := model.NewQuery(o.name, o.query)
	if q.Empty() {
		return model.Query{}, runner.ErrEmptyQuery
	}
	return q, nil
}

// plan turns the shaping flags into a pipeline plan.
func (o fetchOptions) plan() (pipeline.Plan, error) {
	var p pipeline.Plan
	for _, w := range o.where {
		f, ok := pipeline.ParseFilter(w)
		if !ok {
			return p, fmt.Errorf("invalid --where %q: expected column=value", w)
		}
		p.Filters = append(p.Filters, f)
	}
	if o.pivotIndex != "" || o.pivotColumns != "" || o.pivotValues != "" {
		agg, err := pipeline.ParseAgg(o.pivotAgg)
		if err != nil {
			return p, err
		}
		p.Pivot = &pipeline.PivotSpec{
			Index:   o.pivotIndex,
			Columns: o.pivotColumns,
			Values:  o.pivotValues,
			Agg:     agg,
		}
	}
	if o.sort != "" {
		p.Sort = &pipeline.Sort{Column: o.sort, Desc: o.desc}
	}
	return p, p.Validate()
}

// outputFormat resolves --format against --output.
func (o fetchOptions) outputFormat() (string, error) {
	switch strings.ToLower(strings.TrimSpace(o.format)) {
	case "":
		if o.output != "" {
			return string(pipeline.FormatForPath(o.output)), nil
		}
		return formatTable, nil
	case formatTable:
		if o.output != "" {
			return "", errors.New("table output goes to stdout; use --format csv, json or xlsx with --output")
		}
		return formatTable, nil
	}
	f, err := pipeline.ParseFormat(o.format)
	return string(f), err
}

func (a *app) runFetch(cmd *cobra.Command, o fetchOptions) error {
	q, err := o.resolveQuery()
	if err != nil {
		return err
	}
	plan, err := o.plan()
	if err != nil {
		return err
	}
	format, err := o.outputFormat()
	if err != nil {
		return err
	}
	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	layout := utils.NewCacheLayout(a.cfg.DataDir)
	if err := layout.EnsureBaseDirExists(); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	cachePath := o.cache
	if cachePath == "" {
		cachePath = layout.PathFor(q)
	}

	src, err := source.Lazy(a.cfg.Source)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	opts := []runner.Option{runner.WithLogger(a.logger)}
	hist, err := a.openHistory()
	if err != nil {
		a.logger.Warn().Err(err).Msg("fetch history disabled")
	} else {
		defer func() { _ = hist.Close() }()
		opts = append(opts, runner.WithRecorder(hist))
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.QueryTimeout())
	defer cancel()

	rep, err := runner.New(src, opts...).FetchReport(ctx, q, cachePath, o.refresh)
	if err != nil {
		if rep == nil || !errors.Is(err, runner.ErrCacheWriteFailed) {
			return err
		}
		cmd.PrintErrf("Warning: %v\n", err)
	}

	res, err := pipeline.Apply(rep.Result, plan)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format == formatTable {
		if err := renderTable(out, res); err != nil {
			return err
		}
		_, err := fmt.Fprintf(out, "%d rows (%s, %s)\n", res.Len(), rep.Outcome, rep.CachePath)
		return err
	}

	info := pipeline.ExportInfo{
		QueryName:  q.Label(),
		CachePath:  rep.CachePath,
		RowCount:   res.Len(),
		ExportedAt: time.Now().UTC(),
	}
	exportFormat := pipeline.Format(format)
	if o.output != "" {
		if err := pipeline.ExportFile(o.output, res, exportFormat, info); err != nil {
			return err
		}
		cmd.PrintErrf("Wrote %d rows to %s\n", res.Len(), o.output)
		return nil
	}
	if exportFormat == pipeline.FormatXLSX && isWriterTerminal(out) {
		return errors.New("refusing to write xlsx to a terminal; use --output")
	}
	return pipeline.Export(out, res, exportFormat, info)
}
