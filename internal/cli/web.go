package cli

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"taskboard/internal/web"

	"github.com/spf13/cobra"
)

func newWebCmd(app *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "web",
		Short: "Serve the drag engine over HTTP (JSON, websocket, SSE)",
		Long: strings.TrimSpace(`
Serve the board and the drag engine from a local HTTP server.

Endpoints:
  GET  /board          assembled containers + view version + active drag
  GET  /drag           active drag state (null when idle)
  POST /drag/start     {"taskId": "..."}
  POST /drag/move      {"pointer": {"x":..,"y":..}, "zones": [...]}
  POST /drag/end       {"target": "kind:ref" | {"kind":..,"ref":..} | null}
  POST /drag/cancel
  POST /drop           end on the last resolved target
  POST /reload         reload tasks from the store
  GET  /ws             websocket carrying the same messages with a "type" field
  GET  /events         datastar signals stream of the board
  GET  /health
`),
		Example: strings.TrimSpace(`
taskboard web --addr 127.0.0.1:8787
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			listenAddr := strings.TrimSpace(addr)
			if !cmd.Flags().Changed("addr") {
				listenAddr = strings.TrimSpace(cfg.Web.Addr)
			}
			if listenAddr == "" {
				return writeErr(cmd, errors.New("web: missing --addr"))
			}

			e, _, err := app.newEngine(cmd.Context(), cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			srv, err := web.NewServer(web.ServerConfig{Addr: listenAddr, Engine: e, Logger: app.log()})
			if err != nil {
				return writeErr(cmd, err)
			}

			ln, err := net.Listen("tcp", listenAddr)
			if err != nil {
				return writeErr(cmd, err)
			}
			actualAddr := ln.Addr().String()
			url := "http://" + actualAddr + "/"

			_ = writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"addr":      actualAddr,
					"url":       url,
					"dir":       cfg.Store.Dir,
					"tasks":     e.View().Len(),
					"startedAt": time.Now().UTC().Format(time.RFC3339Nano),
				},
				"_hints": []string{"curl " + url + "board"},
			})
			fmt.Fprintf(cmd.ErrOrStderr(), "taskboard web running at %s\n", url)

			hs := &http.Server{Handler: srv.Handler(), ReadHeaderTimeout: 10 * time.Second}
			err = hs.Serve(ln)
			e.OnDragCancel()
			e.Wait()
			return err
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8787", "Bind address (host:port or :port; default from config)")
	return cmd
}
