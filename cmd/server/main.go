package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/aural-portal/browser"
	"github.com/jrsteele09/aural-portal/googleauth"
	"github.com/jrsteele09/aural-portal/internal/config"
	"github.com/jrsteele09/aural-portal/internal/logging"
	"github.com/jrsteele09/aural-portal/server"
	"github.com/rs/zerolog/log"
)

const sweepInterval = 10 * time.Minute

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.New()
	if err != nil {
		return err
	}
	logging.Setup(c.GetLogLevel(), c.GetEnv())
	displayAppname(c.GetAppName())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clients := browser.NewRegistry(
		browser.NewInMemoryRepo(),
		browser.ProviderGateway(c.GetAuthProviderURL(), c.GetBaseURL(), c.GetRequestTimeout(), nil),
		browser.WithTTL(c.GetClientSessionTTL()),
		browser.WithAnonymousTTL(c.GetAnonymousClientTTL()),
		browser.WithResetRedirectDelay(c.GetResetRedirectDelay()),
	)
	go clients.RunSweeper(ctx, sweepInterval)

	var google *googleauth.Handshake
	if c.GoogleConfigured() {
		google = googleauth.New(googleauth.Config{
			ClientID:     c.GetGoogleClientID(),
			ClientSecret: c.GetGoogleClientSecret(),
			Issuer:       c.GetGoogleIssuer(),
			RedirectURL:  c.GetBaseURL() + server.RouteGoogleCallback,
		}, googleauth.NewInMemoryStateRepo())
		go sweepGoogleStates(ctx, google)
		log.Info().Msg("Google sign-in: local OIDC exchange")
	} else {
		log.Info().Msg("Google sign-in: provider redirect")
	}

	handler, err := server.New(c, clients, google)
	if err != nil {
		return err
	}

	srv := &http.Server{Addr: c.GetPort(), Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- listenAndServe(srv)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(srv)
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func sweepGoogleStates(ctx context.Context, h *googleauth.Handshake) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := h.Sweep(); n > 0 {
				log.Debug().Int("removed", n).Msg("swept expired google sign-in states")
			}
		}
	}
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
