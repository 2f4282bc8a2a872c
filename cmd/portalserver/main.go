// Command portalserver runs a dragonfly server with portal guns enabled.
package main

import (
	"errors"
	"flag"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/df-mc/dragonfly/server"
	"github.com/df-mc/dragonfly/server/world"

	"github.com/oriumgames/portals"
	"github.com/oriumgames/portals/dfhost"
	"github.com/oriumgames/portals/sqlstore"
)

func main() {
	var (
		configPath = flag.String("config", "portals.yaml", "path to the portals config (defaults are used when missing)")
		watch      = flag.Bool("watch", true, "reload the portals config when it changes")
		debug      = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	conf, err := loadConfig(*configPath, log)
	if err != nil {
		log.Error("portals: load config", "path", *configPath, "error", err)
		os.Exit(1)
	}

	store, closeStore, err := openStore(conf.Storage, log)
	if err != nil {
		log.Error("portals: open store", "driver", conf.Storage.Driver, "error", err)
		os.Exit(1)
	}

	uc := server.DefaultConfig()
	sc, err := uc.Config(log)
	if err != nil {
		log.Error("portals: server config", "error", err)
		os.Exit(1)
	}
	srv := sc.New()
	srv.CloseOnProgramEnd()

	host, err := dfhost.New(dfhost.Options{
		Worlds: map[portals.Dimension]*world.World{
			portals.Overworld: srv.World(),
			portals.Nether:    srv.Nether(),
			portals.End:       srv.End(),
		},
		Store:  store,
		Config: &conf,
		Logger: log,
	})
	if err != nil {
		log.Error("portals: create host", "error", err)
		os.Exit(1)
	}

	if conf.Storage.Driver == "memory" && conf.Storage.SnapshotEverySeconds > 0 {
		every := time.Duration(conf.Storage.SnapshotEverySeconds) * time.Second
		host.Runner().Every(every, func() { writeSnapshot(conf.Storage.Snapshot, store, log) })
	}
	host.Start()

	if *watch {
		if w := watchConfig(*configPath, host, log); w != nil {
			defer w.Close()
		}
	}

	srv.Listen()
	for p := range srv.Accept() {
		host.Accept(p)
	}

	host.Stop()
	if conf.Storage.Driver == "memory" {
		writeSnapshot(conf.Storage.Snapshot, store, log)
	}
	if err := closeStore(); err != nil {
		log.Warn("portals: close store", "error", err)
	}
}

// loadConfig loads the config at path, falling back to defaults when the
// file does not exist.
func loadConfig(path string, log *slog.Logger) (portals.Config, error) {
	conf, err := portals.LoadConfig(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Info("portals: config not found, using defaults", "path", path)
		return portals.DefaultConfig(), nil
	}
	return conf, err
}

// openStore opens the configured property store. The memory driver is
// restored from its snapshot.
func openStore(sc portals.StorageConfig, log *slog.Logger) (portals.Store, func() error, error) {
	switch sc.Driver {
	case "sqlite":
		s, err := sqlstore.Open(sc.Path)
		if err != nil {
			return nil, nil, err
		}
		log.Info("portals: opened sqlite store", "path", sc.Path, "owners", len(s.Owners()))
		return s, s.Close, nil
	default:
		s := portals.NewMemoryStore()
		header, err := portals.ReadSnapshot(sc.Snapshot, s)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			log.Info("portals: no snapshot, starting empty", "path", sc.Snapshot)
		case err != nil:
			log.Warn("portals: snapshot restored with errors", "path", sc.Snapshot, "error", err)
		default:
			log.Info("portals: snapshot restored", "path", sc.Snapshot, "owners", header.Owners, "records", header.Records)
		}
		return s, func() error { return nil }, nil
	}
}

func writeSnapshot(path string, s portals.Store, log *slog.Logger) {
	header, err := portals.WriteSnapshot(path, s)
	if err != nil {
		log.Warn("portals: write snapshot", "path", path, "error", err)
		return
	}
	log.Debug("portals: snapshot written", "path", path, "records", header.Records)
}

// watchConfig applies config changes on the Runner goroutine.
func watchConfig(path string, host *dfhost.Host, log *slog.Logger) *portals.ConfigWatcher {
	w, err := portals.WatchConfig(path)
	if err != nil {
		log.Warn("portals: config watch disabled", "path", path, "error", err)
		return nil
	}
	go func() {
		for {
			select {
			case c, ok := <-w.Configs:
				if !ok {
					return
				}
				host.Post(func() {
					if err := host.Engine().SetConfig(c); err != nil {
						log.Warn("portals: rejected config", "error", err)
					}
				})
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn("portals: config reload", "path", path, "error", err)
			}
		}
	}()
	return w
}
