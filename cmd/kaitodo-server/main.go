// Command kaitodo-server runs the shared record service: the multi-writer
// store that kaitodo devices publish to, join from, and sync against.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/kaitodo/kaitodo/internal/recordserver"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	dbPath := flag.String("db", "kaitodo-server.db", "record database path")
	flag.Parse()

	logger := log.New(os.Stderr, "[server] ", log.LstdFlags)

	db, err := recordserver.OpenDB(*dbPath)
	if err != nil {
		logger.Fatalf("Failed to open record database: %v", err)
	}
	defer db.Close()

	srv := recordserver.NewServer(db, logger)
	defer srv.Stop()

	if err := srv.Start(*addr); err != nil {
		logger.Fatalf("Server failed: %v", err)
	}
}
