package main

import (
	"fmt"
	"io"

	"github.com/davecgh/go-spew/spew"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/kiloprojects/go-client/internal/config"
	"github.com/kiloprojects/go-client/internal/logger"
	"github.com/kiloprojects/go-client/pkg/client"
	"github.com/kiloprojects/go-client/pkg/client/trace"
	"github.com/kiloprojects/go-client/pkg/kilonova"
	"github.com/kiloprojects/go-client/pkg/request"
	"github.com/kiloprojects/go-client/pkg/requests"
	"github.com/kiloprojects/go-client/pkg/restyclient"
	"github.com/kiloprojects/go-client/pkg/session"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// app holds dependencies of the commands, they are created once before a command runs.
type app struct {
	stdout io.Writer
	stderr io.Writer

	envFile string
	debug   bool

	cfg    *config.Config
	logger *zap.SugaredLogger
	store  *session.Store
	sender request.Sender
	api    *kilonova.API
	legacy *requests.Client
}

// init creates the dependencies, already set dependencies are kept.
func (a *app) init() error {
	if a.cfg == nil {
		cfg, err := config.Load(a.envFile)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}

	if a.logger == nil {
		log, err := logger.New(a.cfg.LogLevel, a.stderr)
		if err != nil {
			return err
		}
		a.logger = log
	}

	if a.store == nil {
		store, err := session.Open(a.cfg.SessionDB)
		if err != nil {
			// The CLI works without the store, as the guest
			a.logger.Warnf("session store is not available: %s", err)
		}
		a.store = store
	}

	if a.sender == nil {
		a.sender = a.newSender()
	}

	sessionID, err := session.Load(a.store, a.cfg.Session)
	if err != nil {
		return err
	}

	if a.api == nil {
		a.api = kilonova.NewAPI("", kilonova.WithSender(a.sender), kilonova.WithSession(sessionID), kilonova.WithLogger(a.logger))
	}
	if a.legacy == nil {
		a.legacy = requests.New(requests.WithTransport(a.sender), requests.WithSession(sessionID), requests.WithLogger(a.logger))
	}
	return nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil && a.logger != nil {
		a.logger.Warnf("cannot close session store: %s", err)
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// newSender creates the transport selected by the configuration.
func (a *app) newSender() request.Sender {
	if a.cfg.Transport == config.TransportResty {
		return restyclient.New(
			restyclient.WithBaseURL(a.cfg.BaseURL),
			restyclient.WithTimeout(a.cfg.Timeout),
			restyclient.WithRetry(a.cfg.RetryCount, client.RetryWaitTimeStart),
			restyclient.WithLogger(a.logger),
		)
	}

	retry := client.NoRetry()
	if a.cfg.RetryCount > 0 {
		retry = client.DefaultRetry()
		retry.Count = a.cfg.RetryCount
	}
	retry.TotalRequestTimeout = a.cfg.Timeout

	c := client.New().
		WithBaseURL(a.cfg.BaseURL).
		WithRetry(retry).
		AndTrace(trace.LogTracer(a.logger))
	if a.cfg.HTTPDump {
		c = c.AndTrace(trace.DumpTracer(a.stderr))
	}
	return c
}

// print writes the value as indented JSON, the Go value is dumped too in the debug mode.
func (a *app) print(v any) error {
	if a.debug {
		spew.Fdump(a.stderr, v)
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot encode output: %w", err)
	}
	_, err = fmt.Fprintln(a.stdout, string(out))
	return err
}

// printEnvelope prints the envelope, an error envelope is returned as an error.
func (a *app) printEnvelope(v any, isError bool, message string) error {
	if err := a.print(v); err != nil {
		return err
	}
	if isError {
		return fmt.Errorf("api call failed: %s", message)
	}
	return nil
}
