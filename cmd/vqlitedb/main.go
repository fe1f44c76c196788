// Command vqlitedb is a thin demonstration entrypoint: it opens a table at
// the configured data file and runs a short, hard-coded sequence of
// statements. It is not a SQL front end or REPL; statement parsing is out of
// scope (spec §7).
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"vqlitedb"
	"vqlitedb/engine"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional)")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "vqlitedb: building logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Sugar()

	cfg := vqlitedb.DefaultConfig()
	if *configPath != "" {
		cfg, err = vqlitedb.LoadConfig(*configPath)
		if err != nil {
			log.Fatalw("loading config", "err", err)
		}
	}

	t, err := engine.Open(cfg.DataFile, cfg.AnalyzeCronSpec, log)
	if err != nil {
		log.Fatalw("opening table", "err", err)
	}
	defer func() {
		if err := t.Close(); err != nil {
			log.Errorw("closing table", "err", err)
		}
	}()

	res := t.Insert(1, "user1", "user1@example.com")
	log.Infow("insert", "code", res.Code, "message", res.Message)

	sel := t.Select(nil)
	log.Infow("select", "code", sel.Code, "rows", len(sel.Rows))
	for _, row := range sel.Rows {
		fmt.Printf("(%d, %s, %s)\n", row.ID, row.UsernameString(), row.EmailString())
	}
}
