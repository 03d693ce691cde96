package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/alsatianco/peadb"
	"github.com/rsms/go-log"
)

func main() {
	var (
		addr    = flag.String("addr", ":6379", "listen address")
		dir     = flag.String("dir", ".", "working directory for persistence artifacts")
		dbfile  = flag.String("dbfilename", "dump.rdb", "snapshot filename")
		pass    = flag.String("requirepass", "", "require clients to AUTH with this password")
		verbose = flag.Bool("v", false, "verbose logging")
		debug   = flag.Bool("debug", false, "debug logging")
	)
	flag.Parse()

	switch {
	case *debug:
		log.RootLogger.Level = log.LevelDebug
	case *verbose:
		log.RootLogger.Level = log.LevelInfo
	default:
		log.RootLogger.Level = log.LevelWarn
	}
	log.RootLogger.SetWriter(os.Stderr)
	log.RootLogger.DisableFeatures(log.FPrefixInfo)
	defer log.Sync()

	srv := peadb.NewServer(peadb.Options{Logger: log.RootLogger})
	srv.ConfigSet("dir", *dir)
	srv.ConfigSet("dbfilename", *dbfile)
	if *pass != "" {
		srv.ConfigSet("requirepass", *pass)
	}

	if err := srv.LoadSnapshotFile(); err != nil {
		log.Warn("snapshot load failed: %v", err)
	}
	if err := srv.Listen(*addr); err != nil {
		fmt.Fprintf(os.Stderr, "peadb: %v\n", err)
		os.Exit(1)
	}

	go srv.Run()
	if err := srv.Serve(); err != nil {
		fmt.Fprintf(os.Stderr, "peadb: %v\n", err)
		os.Exit(1)
	}
}
