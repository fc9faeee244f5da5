package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"

	"github.com/jrsteele09/go-auth-client/devserver"
	"github.com/jrsteele09/go-auth-client/internal/config"

	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error running server: %s\n", err)
	}
	log.Printf("Server stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName() + " dev server")

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	handler := devserver.New(devserver.Config{
		TokenSecret: c.GetTokenSecret(),
		AccessTTL:   c.GetAccessTokenExpiry(),
		RefreshTTL:  c.GetRefreshTokenExpiry(),
	}, logger)

	server := &http.Server{Addr: c.GetPort(), Handler: handler}
	go listenAndServe(server)
	waitForStopSignal()
	return shutdown(server)
}

func listenAndServe(server *http.Server) {
	log.Printf("Server listening on %s\n", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("server.ListenAndServe: %s\n", err)
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appName string) {
	banner := figure.NewFigure(appName, "", true)
	banner.Print()
}
