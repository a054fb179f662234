package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"BollingerBot/config"
	"BollingerBot/internal/handlers"
	"BollingerBot/internal/logging"
	"BollingerBot/internal/models"
	"BollingerBot/internal/operations/backtest"
	"BollingerBot/internal/operations/binance"
	"BollingerBot/internal/operations/position"
	"BollingerBot/internal/operations/price"
	"BollingerBot/internal/operations/report"
	"BollingerBot/internal/operations/search"
	"BollingerBot/internal/repositories"
	"BollingerBot/internal/services/model"
	"BollingerBot/internal/services/strategy"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	app := &cli.App{
		Name:  "bollingerbot",
		Usage: "backtest and trade a Bollinger band strategy on Binance spot",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error; overrides LOG_LEVEL"},
			&cli.StringFlag{Name: "env", Usage: "dotenv file to load instead of .env; must exist"},
			&cli.BoolFlag{Name: "persist", Usage: "store bars and runs in the configured database"},
		},
		Commands: []*cli.Command{
			{
				Name:  "backtest",
				Usage: "replay the strategy over recent bars",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "strategy", Value: models.StrategyBollinger, Usage: "bollinger or model"},
					&cli.StringFlag{Name: "trades-csv", Usage: "write the trade ledger to this file"},
					&cli.StringFlag{Name: "equity-csv", Usage: "write the equity curve to this file"},
				},
				Action: backtestAction,
			},
			{
				Name:  "grid",
				Usage: "search trade percentage, take profit and stop loss",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "strategy", Value: models.StrategyBollinger, Usage: "bollinger or model"},
					&cli.StringFlag{Name: "grid", Usage: "YAML grid file; the default grid when empty"},
					&cli.IntFlag{Name: "workers", Usage: "parallel backtests, GOMAXPROCS when 0"},
				},
				Action: gridAction,
			},
			{
				Name:   "model",
				Usage:  "train the regression model and report its test error",
				Action: modelAction,
			},
			{
				Name:  "live",
				Usage: "trade the band strategy until interrupted",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "paper", Usage: "log orders instead of sending them"},
				},
				Action: liveAction,
			},
			{
				Name:  "runs",
				Usage: "read back runs stored with --persist",
				Subcommands: []*cli.Command{
					{
						Name:  "list",
						Usage: "list the stored runs with the highest final balance",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "symbol", Usage: "symbol to list; TRADING_SYMBOL when empty"},
							&cli.IntFlag{Name: "limit", Value: handlers.DefaultRunListLimit},
						},
						Action: runsListAction,
					},
					{
						Name:      "show",
						Usage:     "print one stored run and its trades",
						ArgsUsage: "<id>",
						Action:    runsShowAction,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// services holds what every command shares
type services struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
	client *binance.BinanceClient
	loader *price.Loader
}

func setup(c *cli.Context) (*services, error) {
	return setupWith(c, false)
}

// setupWith opens the database when needDB is set or --persist was given
func setupWith(c *cli.Context, needDB bool) (*services, error) {
	var envFiles []string
	if c.IsSet("env") {
		envFiles = append(envFiles, c.String("env"))
	}
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	level := cfg.LogLevel
	if c.IsSet("log-level") {
		level = c.String("log-level")
	}
	log, err := logging.New(level)
	if err != nil {
		return nil, err
	}

	a := &services{cfg: cfg, logger: log}
	a.client = binance.NewBinanceClient(cfg.Exchange.APIKey, cfg.Exchange.SecretKey,
		binance.WithLogger(log),
		binance.WithQuantityPrecision(cfg.Live.QuantityPrecision))

	opts := []price.Option{price.WithLogger(log)}
	persist := c.Bool("persist")
	if persist || needDB {
		if !cfg.Database.Enabled() {
			return nil, fmt.Errorf("%s needs DB_HOST to be set", c.Command.Name)
		}
		a.db, err = setupDatabase(cfg.Database)
		if err != nil {
			return nil, err
		}
	}
	if persist {
		opts = append(opts, price.WithStore(repositories.NewPriceRepository(a.db)))
	}
	a.loader = price.NewLoader(a.client, opts...)
	return a, nil
}

func (a *services) close() {
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	_ = a.logger.Sync()
}

func (a *services) strategyHandler() *handlers.StrategyHandler {
	var runs handlers.RunStore
	if a.db != nil {
		runs = repositories.NewRunRepository(a.db)
	}
	return handlers.NewStrategyHandler(handlers.NewPriceHandler(a.loader, a.logger), runs, a.logger)
}

func (a *services) request(strategyName string) handlers.Request {
	t := a.cfg.Trading
	return handlers.Request{
		Symbol:   t.Symbol,
		Interval: t.Interval,
		Limit:    t.Limit,
		Strategy: strategyName,
		Bands: strategy.Config{
			Window:     a.cfg.Bands.Window,
			Deviations: a.cfg.Bands.Deviations,
			Horizon:    a.cfg.Bands.ModelHorizon,
		},
		Backtest: backtest.Config{
			InitialBalance:  t.InitialBalance,
			TradePercentage: t.TradePercentage,
			TakeProfit:      t.TakeProfit,
			StopLoss:        t.StopLoss,
		},
	}
}

func signalContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
}

func backtestAction(c *cli.Context) error {
	a, err := setup(c)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signalContext(c)
	defer stop()

	rep, err := a.strategyHandler().Backtest(ctx, a.request(c.String("strategy")))
	if err != nil {
		return err
	}

	fmt.Println("\n=== Backtest Results ===")
	if rep.Model != nil {
		printModel(*rep.Model)
	}
	fmt.Print(report.Summary(rep.Config, rep.Results))
	if rep.RunID != 0 {
		fmt.Printf("Saved as run %d\n", rep.RunID)
	}

	if path := c.String("trades-csv"); path != "" {
		if err := report.WriteTradesCSV(path, rep.Results.Trades); err != nil {
			return err
		}
	}
	if path := c.String("equity-csv"); path != "" {
		if err := report.WriteEquityCSV(path, rep.Bars, rep.Results.EquityCurve); err != nil {
			return err
		}
	}
	return nil
}

func gridAction(c *cli.Context) error {
	a, err := setup(c)
	if err != nil {
		return err
	}
	defer a.close()

	grid := search.DefaultGrid()
	if path := c.String("grid"); path != "" {
		if grid, err = search.LoadGrid(path); err != nil {
			return err
		}
	}

	ctx, stop := signalContext(c)
	defer stop()

	rep, err := a.strategyHandler().Grid(ctx, a.request(c.String("strategy")), grid, c.Int("workers"))
	if err != nil {
		return err
	}

	fmt.Printf("\n=== Grid Search: %d combinations ===\n", len(rep.Outcome.Results))
	if rep.Model != nil {
		printModel(*rep.Model)
	}
	fmt.Print(report.Summary(rep.Outcome.Best.Config, rep.Outcome.Best.Results))
	if rep.RunID != 0 {
		fmt.Printf("Best run saved as run %d\n", rep.RunID)
	}
	return nil
}

func modelAction(c *cli.Context) error {
	a, err := setup(c)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signalContext(c)
	defer stop()

	_, rep, err := a.strategyHandler().Train(ctx, a.request(models.StrategyModel))
	if err != nil {
		return err
	}
	printModel(rep)
	return nil
}

func liveAction(c *cli.Context) error {
	a, err := setup(c)
	if err != nil {
		return err
	}
	defer a.close()

	var orders position.OrderPort = a.client
	if c.Bool("paper") {
		orders = position.NewPaperBroker(a.logger)
	}

	req := a.request(models.StrategyBollinger)
	req.Backtest.StopLoss = a.cfg.Live.StopLoss

	ctx, stop := signalContext(c)
	defer stop()

	return handlers.NewLiveHandler(a.loader, orders, a.logger).Run(ctx, handlers.LiveRequest{
		Symbol:       req.Symbol,
		Interval:     req.Interval,
		Bands:        req.Bands,
		Backtest:     req.Backtest,
		HistoryLimit: a.cfg.Live.HistoryLimit,
		PollInterval: a.cfg.Live.PollInterval,
		RetryDelay:   a.cfg.Live.RetryDelay,
	})
}

func runsListAction(c *cli.Context) error {
	a, err := setupWith(c, true)
	if err != nil {
		return err
	}
	defer a.close()

	symbol := c.String("symbol")
	if symbol == "" {
		symbol = a.cfg.Trading.Symbol
	}
	runs, err := handlers.NewRunHandler(repositories.NewRunRepository(a.db), a.logger).Best(symbol, c.Int("limit"))
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Printf("No stored runs for %s\n", symbol)
		return nil
	}
	fmt.Print(report.RunTable(runs))
	return nil
}

func runsShowAction(c *cli.Context) error {
	id, err := strconv.ParseUint(c.Args().First(), 10, 0)
	if err != nil || id == 0 {
		return fmt.Errorf("runs show needs a run id, got %q", c.Args().First())
	}

	a, err := setupWith(c, true)
	if err != nil {
		return err
	}
	defer a.close()

	run, err := handlers.NewRunHandler(repositories.NewRunRepository(a.db), a.logger).Show(uint(id))
	if err != nil {
		return err
	}
	fmt.Print(report.RunDetail(run))
	return nil
}

func printModel(rep model.TrainReport) {
	fmt.Printf("Model: %d train samples, %d test samples, test MSE %.6f\n",
		rep.TrainSamples, rep.TestSamples, rep.MSE)
}

func setupDatabase(dbConfig config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		dbConfig.Host,
		dbConfig.Port,
		dbConfig.User,
		dbConfig.Password,
		dbConfig.DBName)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto migrate database schemas
	if err := db.AutoMigrate(&models.Price{}, &models.BacktestRun{}, &models.TradeRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}
