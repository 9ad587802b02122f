// Command gose replays OHLCV candles through the signal engine: one
// pair, one variant, paper execution. Candles come from a csv file of
// timestamp,open,high,low,close,volume rows; the protective stop is
// simulated against each candle's low the way a venue-side stop order
// would fill.
package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/evdnx/gose/config"
	"github.com/evdnx/gose/engine"
	"github.com/evdnx/gose/executor"
	"github.com/evdnx/gose/logger"
	"github.com/evdnx/gose/types"
)

func main() {
	var (
		configPath  = flag.String("config", "", "yaml configuration; built-in defaults when empty")
		candlesPath = flag.String("candles", "", "csv candles: timestamp,open,high,low,close,volume")
		pairFlag    = flag.String("pair", "", "pair the csv belongs to; first configured pair when empty")
		resample    = flag.Int("resample", 1, "merge every N input candles into one before the replay")
		metricsAddr = flag.String("metrics-addr", "", "expose prometheus metrics on this address, e.g. :9100")
	)
	flag.Parse()

	if *candlesPath == "" {
		fmt.Fprintln(os.Stderr, "gose: -candles is required")
		os.Exit(2)
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if *pairFlag != "" {
		cfg.Pairs = []string{*pairFlag}
	}
	pair := cfg.Pairs[0]

	log, err := buildLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *metricsAddr != "" {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(*metricsAddr, nil); err != nil {
				log.Error("metrics listener failed", logger.Err(err))
			}
		}()
		log.Info("metrics exposed", logger.String("addr", *metricsAddr))
	}

	candles, err := loadCandles(*candlesPath)
	if err != nil {
		log.Error("loading candles failed", logger.Err(err))
		os.Exit(1)
	}
	if *resample > 1 {
		candles, err = engine.Resample(candles, *resample)
		if err != nil {
			log.Error("resample failed", logger.Err(err))
			os.Exit(1)
		}
	}

	exec := executor.NewPaperExecutor(cfg.InitialEquity, log)
	eng, err := engine.New(cfg, exec, log)
	if err != nil {
		log.Error("engine construction failed", logger.Err(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("replay starting",
		logger.String("pair", pair),
		logger.String("variant", string(cfg.Variant)),
		logger.Int("candles", len(candles)),
		logger.Float64("equity", cfg.InitialEquity))

	stats, err := replay(ctx, eng, pair, candles)
	if err != nil {
		log.Error("replay aborted", logger.Err(err))
		os.Exit(1)
	}

	// Force-close whatever is still open so the summary is realized.
	if _, open := eng.Position(pair); open {
		last := candles[len(candles)-1]
		if err := eng.ExternalExit(pair, last.Close, "shutdown"); err != nil {
			log.Error("shutdown exit failed", logger.Err(err))
			os.Exit(1)
		}
	}

	log.Info("replay finished",
		logger.Int("candles", stats.candles),
		logger.Int("entries", stats.entries),
		logger.Int("roi_exits", stats.roiExits),
		logger.Int("stop_exits", stats.stopExits),
		logger.Float64("final_equity", exec.Equity()),
		logger.Float64("pnl", exec.Equity()-cfg.InitialEquity))
}

func buildLogger(cfg *config.Config) (logger.Logger, error) {
	if cfg.Log.File != "" {
		return logger.NewFileLogger(cfg.Log.File, cfg.Log.MaxSizeMB, cfg.Log.MaxBackups), nil
	}
	return logger.NewZapLogger()
}

type replayStats struct {
	candles   int
	entries   int
	roiExits  int
	stopExits int
}

// replay drives the engine candle by candle: evaluate, refresh the
// stop off the close, then fill the stop if the candle's low reached
// it, otherwise let the ROI schedule collect aged winners. The candle
// that opens a trade is never checked against its own stop; the fill
// happened at the close, after the low printed. An interrupt stops the
// replay cleanly between candles.
func replay(ctx context.Context, eng *engine.Engine, pair string, candles []types.Candle) (replayStats, error) {
	var stats replayStats
	wasOpen := false

	for _, c := range candles {
		if ctx.Err() != nil {
			return stats, nil
		}
		if _, _, err := eng.OnCandle(pair, c); err != nil {
			return stats, err
		}
		stats.candles++

		snap, open := eng.Position(pair)
		if open && !wasOpen {
			stats.entries++
		}

		if open {
			stop, err := eng.OnTick(pair, c.Close, c.Time)
			if err != nil {
				return stats, err
			}
			if !snap.EntryTime.Equal(c.Time) {
				stopPrice := snap.EntryPrice * (1 + stop)
				if c.Low <= stopPrice {
					if err := eng.ExternalExit(pair, stopPrice, "stoploss"); err != nil {
						return stats, err
					}
					stats.stopExits++
				} else {
					closed, err := eng.CheckROI(pair, c.Close, c.Time)
					if err != nil {
						return stats, err
					}
					if closed {
						stats.roiExits++
					}
				}
			}
		}
		_, wasOpen = eng.Position(pair)
	}
	return stats, nil
}

// loadCandles reads timestamp,open,high,low,close,volume rows. The
// timestamp is epoch seconds or milliseconds; one header row is
// tolerated.
func loadCandles(path string) ([]types.Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	r.FieldsPerRecord = -1

	var out []types.Candle
	line := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		line++
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "timestamp") {
			continue
		}
		if len(rec) < 6 {
			return nil, fmt.Errorf("%s line %d: want 6 fields, got %d", path, line, len(rec))
		}

		ts, err := strconv.ParseInt(strings.TrimSpace(rec[0]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: timestamp: %w", path, line, err)
		}
		var when time.Time
		if ts > 1e12 { // epoch millis
			when = time.UnixMilli(ts)
		} else {
			when = time.Unix(ts, 0)
		}

		var v [5]float64
		for i := range v {
			v[i], err = strconv.ParseFloat(strings.TrimSpace(rec[i+1]), 64)
			if err != nil {
				return nil, fmt.Errorf("%s line %d: column %d: %w", path, line, i+2, err)
			}
		}
		out = append(out, types.Candle{
			Time:   when.UTC(),
			Open:   v[0],
			High:   v[1],
			Low:    v[2],
			Close:  v[3],
			Volume: v[4],
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: no candles", path)
	}
	return out, nil
}
