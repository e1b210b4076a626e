package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/natserract/sfclient/pkg/bootstrap"
	"github.com/natserract/sfclient/pkg/salesforce"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// defaultParallelGets bounds concurrent GETs issued by the get command.
const defaultParallelGets = 4

var (
	outputFormat string
	getFields    []string
	getParallel  int
)

func newRootCmd(logger *zap.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:          "sfquery",
		Short:        "Query and edit Salesforce records with the stored access token",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&outputFormat, "output", "o", outputJSON, "Output format (json|table)")

	root.AddCommand(
		newQueryCmd(logger),
		newGetCmd(logger),
		newCreateCmd(logger),
		newUpdateCmd(logger),
		newDeleteCmd(logger),
	)
	return root
}

func execute(logger *zap.Logger) int {
	if err := newRootCmd(logger).ExecuteContext(context.Background()); err != nil {
		logger.Error("Command failed", zap.Error(err))
		return bootstrap.ExitCode(err)
	}
	return bootstrap.ExitCodeSuccess
}

// withClient builds the client from the environment and installs the stored token.
func withClient(cmd *cobra.Command, logger *zap.Logger, fn func(ctx context.Context, client *salesforce.Client) error) error {
	ctx := cmd.Context()
	env, err := bootstrap.Setup(ctx, logger)
	if err != nil {
		return err
	}
	defer env.Close()

	if _, err := bootstrap.LoadToken(ctx, env, logger); err != nil {
		if salesforce.IsStoreNotFound(err) {
			return fmt.Errorf("no stored access token, run sftoken exchange first: %w", err)
		}
		return err
	}

	err = fn(ctx, env.Client)
	if salesforce.IsAuthenticationError(err) {
		return fmt.Errorf("session rejected, run sftoken refresh: %w", err)
	}
	return err
}

func newQueryCmd(logger *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "query <soql>",
		Short: "Run a SOQL query and print every record across all pages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, logger, func(ctx context.Context, client *salesforce.Client) error {
				records, err := client.Search(ctx, args[0])
				if err != nil {
					return err
				}
				return writeRecords(cmd.OutOrStdout(), records, outputFormat)
			})
		},
	}
}

func newGetCmd(logger *zap.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <type> <id>...",
		Short: "Fetch records by id",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, logger, func(ctx context.Context, client *salesforce.Client) error {
				records, err := getRecords(ctx, client, logger, args[0], getFields, args[1:], getParallel)
				if err != nil {
					return err
				}
				return writeRecords(cmd.OutOrStdout(), records, outputFormat)
			})
		},
	}
	cmd.Flags().StringSliceVarP(&getFields, "fields", "f", nil, "Fields to fetch (comma separated, default all)")
	cmd.Flags().IntVarP(&getParallel, "parallel", "p", defaultParallelGets, "Maximum concurrent requests")
	return cmd
}

func newCreateCmd(logger *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "create <type> <json>",
		Short: "Create a record and print its id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := parseRecordJSON(args[1])
			if err != nil {
				return err
			}
			return withClient(cmd, logger, func(ctx context.Context, client *salesforce.Client) error {
				id, err := client.CreateRecord(ctx, args[0], data)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}
}

func newUpdateCmd(logger *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "update <type> <id> <json>",
		Short: "Update fields of a record",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := parseRecordJSON(args[2])
			if err != nil {
				return err
			}
			return withClient(cmd, logger, func(ctx context.Context, client *salesforce.Client) error {
				return client.UpdateRecord(ctx, args[0], args[1], data)
			})
		},
	}
}

func newDeleteCmd(logger *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <type> <id>",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, logger, func(ctx context.Context, client *salesforce.Client) error {
				return client.DeleteRecord(ctx, args[0], args[1])
			})
		},
	}
}

// getRecords fetches ids in parallel, keeping the input order. Only reads
// happen here; the token is not touched while the pool runs.
func getRecords(ctx context.Context, client *salesforce.Client, logger *zap.Logger, objectType string, fields, ids []string, parallel int) ([]salesforce.Record, error) {
	if parallel < 1 {
		parallel = 1
	}
	records := make([]salesforce.Record, len(ids))

	p := pool.New().WithMaxGoroutines(parallel).WithErrors()
	for i, id := range ids {
		p.Go(func() error {
			record, err := client.GetRecord(ctx, objectType, id, fields)
			if err != nil {
				logger.Warn("Failed to get record", zap.String("record_id", id), zap.Error(err))
				return fmt.Errorf("record %s: %w", id, err)
			}
			records[i] = record
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

func parseRecordJSON(raw string) (map[string]interface{}, error) {
	var data map[string]interface{}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("invalid record json: %w", err)
	}
	return data, nil
}
