package main

import (
	"flag"
	"os"

	"stockkit/internal/analyze"
	"stockkit/internal/config"
	"stockkit/internal/prices"
	"stockkit/internal/util"

	"github.com/rs/zerolog"
)

var (
	csvPath    = flag.String("csv", "", "Path to the wide-format price CSV (required)")
	configPath = flag.String("config", "", "Optional TOML config file")
	dateCol    = flag.String("date-col", "", "Name of the date column (overrides config)")
	method     = flag.String("method", "", "Return method: simple or log (overrides config)")
	rfAnnual   = flag.Float64("rf", -1, "Annual risk-free rate, e.g. 0.02 (overrides config)")
	periods    = flag.Int("periods", 0, "Periods per year for annualization (overrides config)")
	cvarLevel  = flag.Float64("cvar", 0, "CVaR confidence level, e.g. 0.95 (overrides config)")
)

func main() {
	flag.Parse()
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if *csvPath == "" {
		flag.Usage()
		log.Fatal().Msg("-csv is required")
	}

	cfg, err := config.LoadFromFile(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("could not load config")
	}
	opts, err := cfg.Options()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}
	applyFlagOverrides(&opts, log)

	result, err := analyze.QuickMaxSharpeFromCSV(*csvPath, opts)
	if err != nil {
		log.Fatal().Err(err).Str("csv", *csvPath).Msg("analysis failed")
	}

	if err := util.WriteJSON(os.Stdout, result); err != nil {
		log.Fatal().Err(err).Msg("could not write result")
	}
}

func applyFlagOverrides(opts *analyze.Options, log zerolog.Logger) {
	if *dateCol != "" {
		opts.DateColumn = *dateCol
	}
	if *method != "" {
		m, err := prices.ParseMethod(*method)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid -method")
		}
		opts.Method = m
	}
	if *rfAnnual >= 0 {
		opts.RiskFreeAnnual = *rfAnnual
	}
	if *periods > 0 {
		opts.PeriodsPerYear = *periods
	}
	if *cvarLevel > 0 {
		opts.CVaRLevel = *cvarLevel
	}
}
