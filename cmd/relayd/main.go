// Command relayd runs the group-chat relay: it accepts websocket
// connections, admits and authorizes events per the capability model,
// and persists group and capability state to a bbolt database.
package main

import (
	"context"
	"net/http"
	"os"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/kgroups/rootkey/relay"
	"github.com/kgroups/rootkey/store"
	"github.com/kgroups/rootkey/transport"
)

var bindFlag = &cli.StringFlag{
	Name:    "bind",
	Value:   ":8080",
	Usage:   "host:port to bind the websocket listener",
	EnvVars: []string{"RELAYD_BIND"},
}

var metricsFlag = &cli.StringFlag{
	Name:    "metrics",
	Value:   ":9090",
	Usage:   "host:port to bind the Prometheus metrics endpoint",
	EnvVars: []string{"RELAYD_METRICS"},
}

var dbFlag = &cli.StringFlag{
	Name:    "db",
	Value:   "relayd.db",
	Usage:   "path to the bbolt database file",
	EnvVars: []string{"RELAYD_DB"},
}

var maxEventSizeFlag = &cli.IntFlag{
	Name:    "max-event-size",
	Value:   65536,
	Usage:   "maximum accepted event size in bytes",
	EnvVars: []string{"RELAYD_MAX_EVENT_SIZE"},
}

var maxSubscriptionsFlag = &cli.IntFlag{
	Name:    "max-subscriptions",
	Value:   20,
	Usage:   "maximum subscriptions per connection",
	EnvVars: []string{"RELAYD_MAX_SUBSCRIPTIONS"},
}

var requireAuthFlag = &cli.BoolFlag{
	Name:    "require-auth",
	Usage:   "require NIP-42 style AUTH before admitting events",
	EnvVars: []string{"RELAYD_REQUIRE_AUTH"},
}

var devFlag = &cli.BoolFlag{
	Name:    "dev",
	Usage:   "development mode: verbose logging",
	EnvVars: []string{"RELAYD_DEV"},
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Serve runs the relay until its listeners fail or the process is
// killed.
func Serve(c *cli.Context) error {
	logger, err := newLogger(c.Bool(devFlag.Name))
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	sugar := logger.Sugar()

	st, err := store.Open(c.String(dbFlag.Name), sugar)
	if err != nil {
		sugar.Fatalw("open store", "err", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			sugar.Errorw("close store", "err", err)
		}
	}()

	cfg := relay.DefaultConfig()
	cfg.MaxEventSize = c.Int(maxEventSizeFlag.Name)
	cfg.MaxSubscriptionsPerConn = c.Int(maxSubscriptionsFlag.Name)
	cfg.RequireAuth = c.Bool(requireAuthFlag.Name)

	r := relay.New(cfg, sugar, st)
	ctx := c.Context
	if err := r.LoadState(ctx); err != nil {
		sugar.Fatalw("load relay state", "err", err)
	}
	go r.Run(ctx)

	reg := prometheus.NewRegistry()
	relay.RegisterMetrics(reg)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	relayMux := http.NewServeMux()
	relayMux.HandleFunc("/", websocketHandler(r, sugar))

	go func() {
		sugar.Infow("serving metrics", "addr", c.String(metricsFlag.Name))
		if err := http.ListenAndServe(c.String(metricsFlag.Name), metricsMux); err != nil {
			sugar.Fatalw("metrics listener", "err", err)
		}
	}()

	sugar.Infow("serving relay", "addr", c.String(bindFlag.Name))
	return http.ListenAndServe(c.String(bindFlag.Name), relayMux)
}

func main() {
	app := &cli.App{
		Name:  "relayd",
		Usage: "run the threshold-rooted community relay",
		Flags: []cli.Flag{
			bindFlag, metricsFlag, dbFlag, maxEventSizeFlag,
			maxSubscriptionsFlag, requireAuthFlag, devFlag,
		},
		Action: Serve,
	}

	if err := app.Run(os.Args); err != nil {
		zap.S().Fatalw("relayd", "err", err)
	}
}

func websocketHandler(r *relay.Relay, sugar *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		ws, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			sugar.Warnw("websocket upgrade failed", "err", err, "remote", req.RemoteAddr)
			return
		}
		conn := transport.NewConn(ws)
		r.Serve(req.Context(), conn)
	}
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
