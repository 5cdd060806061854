package main

import (
	"fmt"

	"github.com/gfaurobert/specflow/internal/publish"
	"github.com/spf13/cobra"
)

func newPublishCommand(env *cliEnv) *cobra.Command {
	var prefix string
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Upload the test summary and screenshots to Azure Blob Storage",
		Long: `Upload the markdown summary and every screenshot to the configured Azure
Blob Storage container, keeping their relative layout so report links
still resolve.

Credentials are taken from SPECFLOW_AZURE_SAS_TOKEN, from
SPECFLOW_AZURE_ACCOUNT_NAME plus SPECFLOW_AZURE_ACCOUNT_KEY, or from the
default Azure credential chain.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pc := env.cfg.Publish
			if cmd.Flags().Changed("prefix") {
				pc.Prefix = prefix
			}
			azCfg := publish.AzureConfig{
				AccountURL:  pc.AccountURL,
				AccountName: pc.AccountName,
				AccountKey:  pc.AccountKey,
				SASToken:    pc.SASToken,
				Container:   pc.Container,
			}
			uploader, err := publish.NewAzureUploader(azCfg)
			if err != nil {
				return err
			}

			p := publish.New(uploader,
				publish.WithPrefix(pc.Prefix),
				publish.WithConcurrency(pc.Concurrency),
				publish.WithLogger(env.logger))
			sum, err := p.Publish(cmd.Context(), env.reportPath(), env.assetsRoot())
			if err != nil {
				return err
			}

			dest, _ := publish.ContainerURL(azCfg)
			fmt.Fprintf(cmd.OutOrStdout(), "Published %d file(s), %s to %s\n", len(sum.Keys), formatBytes(sum.Bytes), dest)
			return nil
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "Blob name prefix (default from config)")
	return cmd
}
