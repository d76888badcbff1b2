package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/branchline/branchline/src/api/config"
	"github.com/branchline/branchline/src/api/data"
	"github.com/branchline/branchline/src/api/webserver"
)

func main() {
	cfg := config.Load()

	db := data.MustMySQL(cfg.MySQLDSN)
	if err := data.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	rdb := data.MustRedis(cfg.RedisURL)

	router := webserver.New(cfg, db, rdb)

	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveTLS := false
	if cfg.EnableSSL && cfg.SSLCert != "" && cfg.SSLKey != "" {
		reloader, err := webserver.NewCertReloader(cfg.SSLCert, cfg.SSLKey)
		if err != nil {
			log.Printf("tls: %v, falling back to http", err)
		} else {
			httpSrv.TLSConfig = reloader.Config()
			serveTLS = true
		}
	}

	go func() {
		var err error
		if serveTLS {
			err = httpSrv.ListenAndServeTLS("", "")
		} else {
			err = httpSrv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("http: %v", err)
		}
	}()

	log.Printf("Branchline API listening on :%s (tls=%v)", cfg.Port, serveTLS)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutCtx)
}
