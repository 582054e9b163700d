// Command fakeapi runs an in-memory election server that speaks the same
// wire protocol as the production backend.  Useful for demos and for
// developing the CLI without a real deployment.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"

	"github.com/pemira/evote/internal/fakeapi"
	"github.com/pemira/evote/internal/logging"
)

func main() {
	addr := flag.String("addr", ":5000", "listen address")
	secret := flag.String("secret", "", "JWT signing secret (random if empty)")
	seed := flag.Bool("seed", true, "seed demo accounts and candidates")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	logging.Setup(logging.Options{Level: *logLevel})

	if *secret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			slog.Error("could not generate secret", "err", err)
			os.Exit(1)
		}
		*secret = hex.EncodeToString(buf)
		slog.Warn("using a random JWT secret; tokens will not survive a restart")
	}

	srv := fakeapi.NewServer(*secret)
	if *seed {
		srv.Seed()
		slog.Info("seeded demo data",
			"admin", "admin/admin123",
			"voters", "230104050/rahasia1 230104051/rahasia2")
	}

	httpSrv := &http.Server{
		Handler:      handlers.CombinedLoggingHandler(os.Stdout, srv.Handler()),
		Addr:         *addr,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	slog.Info("serving", "addr", *addr)
	if err := httpSrv.ListenAndServe(); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
