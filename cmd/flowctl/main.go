// cmd/flowctl/main.go
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/hvdc-project/warehouse-flow/pkg/logger"
)

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func newDataDirFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "data-dir",
		Usage:   "Directory containing warehouse xlsx exports",
		Value:   "./data/input",
		EnvVars: []string{"APP_DATA_DIR"},
	}
}

func newEngineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "ontology",
			Usage:   "YAML file overriding the built-in location ontology",
			EnvVars: []string{"ENGINE_ONTOLOGY_FILE"},
		},
		&cli.StringFlag{
			Name:    "expected",
			Usage:   "YAML file with audited expected stock per date and location",
			EnvVars: []string{"ENGINE_EXPECTED_STOCK_FILE"},
		},
		&cli.IntFlag{
			Name:    "tolerance",
			Usage:   "Allowed unit delta in stock validation",
			Value:   2,
			EnvVars: []string{"ENGINE_TOLERANCE"},
		},
		&cli.BoolFlag{
			Name:  "no-synthesize",
			Usage: "Disable orphan transfer leg repair",
		},
	}
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		logger.SetLevel(level)
	}

	app := &cli.App{
		Name:  "flowctl",
		Usage: "Warehouse inventory flow toolkit",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Process a directory of xlsx exports and write the stock report",
				Flags: append([]cli.Flag{
					newDataDirFlag(),
					&cli.StringFlag{
						Name:    "report-dir",
						Usage:   "Directory receiving the generated workbook",
						Value:   "./data/reports",
						EnvVars: []string{"APP_REPORT_DIR"},
					},
				}, newEngineFlags()...),
				Action: runBatch,
			},
			{
				Name:  "validate",
				Usage: "Compute stock from exports and compare against audited figures",
				Flags: append([]cli.Flag{
					newDataDirFlag(),
				}, newEngineFlags()...),
				Action: runValidate,
			},
			{
				Name:   "migrate",
				Usage:  "Create the database schema",
				Flags:  []cli.Flag{newDBURLFlag()},
				Action: runMigrate,
			},
			{
				Name:  "seed",
				Usage: "Process exports and load the computed records into Postgres",
				Flags: append([]cli.Flag{
					newDBURLFlag(),
					newDataDirFlag(),
				}, newEngineFlags()...),
				Action: runSeed,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
