package cli

import (
	"github.com/spf13/cobra"

	"github.com/billmal071/mangadl/internal/config"
	"github.com/billmal071/mangadl/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Serve chapter names and .cbz archives over HTTP.

Endpoints:
  GET  /                  banner
  GET  /sites             supported sites as JSON
  POST /get_chapter_info  {"url": "..."} -> {"chapter_name": "..."}
  POST /download          {"url": "..."} -> .cbz archive

Examples:
  mangadl serve
  mangadl serve --addr 127.0.0.1:9000`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = config.Get().Server.Addr
		}

		svc, resolver := newService(nil, nil)
		srv := server.New(svc, resolver.Sites(), "", logger)
		return srv.ListenAndServe(cmd.Context(), addr)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default: server.addr)")
}
