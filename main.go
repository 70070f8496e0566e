package main

import (
	"log"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm"

	"github.com/customeros/rfpstack/config"
	"github.com/customeros/rfpstack/internal/database"
	"github.com/customeros/rfpstack/internal/logger"
	"github.com/customeros/rfpstack/internal/repository"
	"github.com/customeros/rfpstack/server"
	"github.com/customeros/rfpstack/services"
)

func main() {
	app := &cli.App{
		Name:  "rfpstack",
		Usage: "draft RFPs, send them to vendors and ingest their proposals",
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Run database migrations",
				Action: migrate,
			},
			{
				Name:   "seed",
				Usage:  "Create the default vendors if they do not exist",
				Action: seed,
			},
			{
				Name:   "server",
				Usage:  "Start the application server",
				Action: runServer,
			},
			{
				Name:   "poll",
				Usage:  "Run a single mailbox ingestion pass and exit",
				Action: poll,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("rfpstack: %v", err)
	}
}

type runtime struct {
	cfg *config.Config
	log logger.Logger
	db  *gorm.DB
}

func setup() (*runtime, error) {
	cfg, err := config.InitConfig()
	if err != nil {
		return nil, errors.Wrap(err, "config initialization failed")
	}
	if cfg == nil {
		return nil, errors.New("config is empty")
	}

	appLogger := logger.NewAppLogger(cfg.Logger)
	appLogger.InitLogger()

	db, err := database.InitDatabase(cfg.DatabaseConfig)
	if err != nil {
		return nil, err
	}

	return &runtime{cfg: cfg, log: appLogger, db: db}, nil
}

func migrate(_ *cli.Context) error {
	rt, err := setup()
	if err != nil {
		return err
	}
	if err := repository.MigrateDB(rt.cfg.DatabaseConfig, rt.db); err != nil {
		return errors.Wrap(err, "database migration failed")
	}
	rt.log.Info("Database migration completed successfully")
	return nil
}

func seed(c *cli.Context) error {
	rt, err := setup()
	if err != nil {
		return err
	}
	svcs, err := services.InitServices(rt.cfg, rt.log, repository.InitRepositories(rt.db))
	if err != nil {
		return err
	}
	defer svcs.Close()

	vendors, err := svcs.RfpService.Seed(c.Context)
	if err != nil {
		return errors.Wrap(err, "seeding vendors failed")
	}
	for _, vendor := range vendors {
		rt.log.Infof("Vendor %s <%s> id=%s", vendor.Name, vendor.Email, vendor.ID)
	}
	return nil
}

func poll(c *cli.Context) error {
	rt, err := setup()
	if err != nil {
		return err
	}
	svcs, err := services.InitServices(rt.cfg, rt.log, repository.InitRepositories(rt.db))
	if err != nil {
		return err
	}
	defer svcs.Close()

	result, err := svcs.RfpService.Poll(c.Context)
	if err != nil {
		return errors.Wrap(err, "mailbox poll failed")
	}
	rt.log.Infof("Poll finished: %d unread, outcomes %v, proposals %v", result.Unread, result.Outcomes, result.ProposalIds)
	return nil
}

func runServer(_ *cli.Context) error {
	rt, err := setup()
	if err != nil {
		return err
	}
	rt.log.Info("RFPStack starting up...")

	srv, err := server.NewServer(rt.cfg, rt.db, rt.log)
	if err != nil {
		return errors.Wrap(err, "server setup failed")
	}
	if err := srv.Run(); err != nil {
		return errors.Wrap(err, "server startup failed")
	}

	rt.log.Info("Shutdown complete")
	return nil
}
