package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gfaurobert/specflow/internal/webserver"
	"github.com/spf13/cobra"
)

func newServeCommand(env *cliEnv) *cobra.Command {
	var (
		port      int
		host      string
		noBrowser bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the test summary and screenshots in a browser",
		Long: `Start a local dashboard that renders the markdown summary as HTML, serves
screenshot evidence and exposes stored results under /api.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				env.cfg.Server.Port = port
			}
			if cmd.Flags().Changed("host") {
				env.cfg.Server.Host = host
			}

			store, err := env.resultStore()
			if err != nil {
				return err
			}
			defer store.Close()

			srv, err := webserver.New(webserver.Config{
				Host:       env.cfg.Server.Host,
				Port:       env.cfg.Server.Port,
				ReportPath: env.reportPath(),
				AssetsDir:  env.assetsRoot(),
				Results:    store,
				Assets:     env.screenshots(nil),
				NoBrowser:  noBrowser,
				Logger:     env.logger,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.ListenAndServe(ctx)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (default from config, 4173)")
	cmd.Flags().StringVar(&host, "host", "", "Interface to bind (default from config, 127.0.0.1)")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Do not open a browser window")
	return cmd
}
