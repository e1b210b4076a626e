package main

import (
	"context"
	"fmt"

	"github.com/natserract/sfclient/pkg/bootstrap"
	"github.com/natserract/sfclient/pkg/salesforce"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02 15:04:05"

func newRootCmd(logger *zap.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:   "sftoken",
		Short: "Obtain, refresh and inspect the stored Salesforce access token",
		Long: `sftoken runs the Salesforce OAuth2 web server flow and keeps the
resulting access token in the configured token store (a local file or
PostgreSQL, optionally encrypted).`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newLoginURLCmd(logger),
		newExchangeCmd(logger),
		newRefreshCmd(logger),
		newShowCmd(logger),
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

// withEnv builds the client and store from the environment for the duration of fn.
func withEnv(cmd *cobra.Command, logger *zap.Logger, fn func(ctx context.Context, env *bootstrap.Env) error) error {
	ctx := cmd.Context()
	env, err := bootstrap.Setup(ctx, logger)
	if err != nil {
		return err
	}
	defer env.Close()
	return fn(ctx, env)
}

func newLoginURLCmd(logger *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "login-url <redirect-url>",
		Short: "Print the URL that grants this app access",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, logger, func(_ context.Context, env *bootstrap.Env) error {
				fmt.Fprintln(cmd.OutOrStdout(), env.Client.LoginURL(args[0]))
				return nil
			})
		},
	}
}

func newExchangeCmd(logger *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "exchange <code> <redirect-url>",
		Short: "Exchange an authorization code and save the token",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, logger, func(ctx context.Context, env *bootstrap.Env) error {
				resp, err := env.Client.AuthorizeConfirm(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				token, err := salesforce.NewTokenFromResponse(resp)
				if err != nil {
					return err
				}
				if err := env.Store.Save(ctx, token); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved access token for %s, expires %s\n",
					token.APIURL, token.DateExpires.Format(dateLayout))
				return nil
			})
		},
	}
}

func newRefreshCmd(logger *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Refresh the stored token and save it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, logger, func(ctx context.Context, env *bootstrap.Env) error {
				if _, err := bootstrap.LoadToken(ctx, env, logger); err != nil {
					return err
				}
				token, err := env.Client.RefreshToken(ctx)
				if err != nil {
					return err
				}
				if err := env.Store.Save(ctx, token); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Refreshed access token, expires %s\n",
					token.DateExpires.Format(dateLayout))
				return nil
			})
		},
	}
}

func newShowCmd(logger *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the stored token with secrets redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, logger, func(ctx context.Context, env *bootstrap.Env) error {
				token, err := env.Store.Fetch(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, token.String())
				fmt.Fprintf(out, "needs refresh: %t\n", token.NeedsRefresh())
				return nil
			})
		},
	}
}
