package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/iliyamo/zone-explorer/internal/config"
	"github.com/iliyamo/zone-explorer/internal/database"
	"github.com/iliyamo/zone-explorer/internal/queue"
	"github.com/iliyamo/zone-explorer/internal/zone"
)

// newApp builds the command line.  Running without a command serves HTTP.
func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "zone-explorer"
	app.Usage = "conference zone check-in game"
	app.Action = startServe
	app.Commands = []*cli.Command{
		{
			Action:   startServe,
			Name:     "serve",
			Usage:    "Start the HTTP API",
			Category: "Server",
			Description: `Serves the visitor and admin APIs.  When AMQP_ENABLED is true the
activity consumer runs in the same process.`,
		},
		{
			Action:   startMigrate,
			Name:     "migrate",
			Usage:    "Create the database tables",
			Category: "Maintenance",
		},
		{
			Action:   printZones,
			Name:     "zones",
			Usage:    "Print the zone catalog and the QR payload of each zone",
			Category: "Maintenance",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "file", EnvVars: []string{"ZONES_FILE"}, Usage: "TOML zone catalog"},
				&cli.StringFlag{Name: "base-url", Value: "", Usage: "prefix for the printed check-in links"},
			},
		},
		{
			Action:   startDraw,
			Name:     "draw",
			Usage:    "Draw a prize winner among eligible entries",
			Category: "Maintenance",
		},
		{
			Action:   startConsume,
			Name:     "consume",
			Usage:    "Run the activity consumer standalone",
			Category: "Worker",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "log-file", Value: "logs/activity.log", Usage: "file the events are appended to"},
			},
		},
	}
	return app
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func startServe(cctx *cli.Context) error {
	var s srv
	s.cfg = config.Load()
	if err := s.loadLogger(); err != nil {
		return err
	}
	defer func() { _ = s.log.Sync() }()
	if err := s.loadZones(); err != nil {
		return err
	}
	if err := s.loadDatabase(cctx.Context, true); err != nil {
		return err
	}
	defer s.db.Close()
	s.loadRedis()
	if s.rdb != nil {
		defer s.rdb.Close()
	}
	s.loadServices()
	if err := s.loadRouter(); err != nil {
		return err
	}

	ctx, stop := signalContext(cctx.Context)
	defer stop()
	return s.startServer(ctx)
}

func startMigrate(cctx *cli.Context) error {
	var s srv
	s.cfg = config.LoadBase()
	if err := s.loadLogger(); err != nil {
		return err
	}
	if err := s.loadDatabase(cctx.Context, true); err != nil {
		return err
	}
	defer s.db.Close()
	s.log.Info("migration complete", zap.String("driver", s.cfg.DBDriver))
	return nil
}

func printZones(cctx *cli.Context) error {
	reg, err := zone.Load(cctx.String("file"))
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cctx.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tNAME\tQR PAYLOAD\tCHECK-IN LINK")
	for _, z := range reg.Zones() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s/v1/checkin?zone=%s\n", z.Code, z.Name, z.Code, cctx.String("base-url"), z.Code)
	}
	return w.Flush()
}

func startDraw(cctx *cli.Context) error {
	var s srv
	s.cfg = config.LoadBase()
	if err := s.loadLogger(); err != nil {
		return err
	}
	if err := s.loadZones(); err != nil {
		return err
	}
	if err := s.loadDatabase(cctx.Context, false); err != nil {
		return err
	}
	defer s.db.Close()
	s.loadServices()

	winner, err := s.prizes.DrawWinner(cctx.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(cctx.App.Writer, "winner: %s (entry %d, entered %s)\n",
		winner.Email, winner.ID, winner.CreatedAt.Format("2006-01-02 15:04:05"))
	return nil
}

func startConsume(cctx *cli.Context) error {
	cfg := config.LoadBase()
	var s srv
	s.cfg = cfg
	if err := s.loadLogger(); err != nil {
		return err
	}
	ctx, stop := signalContext(cctx.Context)
	defer stop()

	c := queue.NewConsumer(cfg.AMQPURL, queue.NewActivityLog(cctx.String("log-file")), s.log)
	if err := c.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	s.log.Info("activity consumer stopped")
	return nil
}

// dataSource returns the DSN for the configured driver.
func dataSource(cfg config.Config) (string, error) {
	switch cfg.DBDriver {
	case database.DriverMySQL:
		return database.MySQLDSN(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName), nil
	case database.DriverSQLite:
		return cfg.DBPath, nil
	default:
		return "", fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}
