// Copyright (c) 2026 John Dewey

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to
// deal in the Software without restriction, including without limitation the
// rights to use, copy, modify, merge, publish, distribute, sublicense, and/or
// sell copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:

// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.

// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER
// DEALINGS IN THE SOFTWARE.

package cmd

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/leaseaudit-io/leaseaudit/internal/api"
	"github.com/leaseaudit-io/leaseaudit/internal/auditor"
	"github.com/leaseaudit-io/leaseaudit/internal/authtoken"
	"github.com/leaseaudit-io/leaseaudit/internal/cli"
	"github.com/leaseaudit-io/leaseaudit/internal/config"
	"github.com/leaseaudit-io/leaseaudit/internal/ledger"
	"github.com/leaseaudit-io/leaseaudit/internal/probe"
	"github.com/leaseaudit-io/leaseaudit/internal/scheduler"
	"github.com/leaseaudit-io/leaseaudit/internal/store"
	"github.com/leaseaudit-io/leaseaudit/internal/telemetry"
)

// compositeLifecycle manages multiple Lifecycle components, starting them
// sequentially and stopping them concurrently.
type compositeLifecycle struct {
	components []cli.Lifecycle
}

func (c *compositeLifecycle) Start() {
	for _, comp := range c.components {
		comp.Start()
	}
}

func (c *compositeLifecycle) Stop(ctx context.Context) {
	var wg sync.WaitGroup
	for _, comp := range c.components {
		wg.Add(1)
		go func(lc cli.Lifecycle) {
			defer wg.Done()
			lc.Stop(ctx)
		}(comp)
	}
	wg.Wait()
}

// schedulerLifecycle adapts the blocking scheduler loop to the Lifecycle
// contract.
type schedulerLifecycle struct {
	logger *slog.Logger
	sched  *scheduler.Scheduler

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func (s *schedulerLifecycle) Start() {
	go func() {
		defer close(s.done)

		err := s.sched.Run(s.ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error(
				"scheduler stopped",
				slog.String("error", err.Error()),
			)
		}
	}()
}

func (s *schedulerLifecycle) Stop(ctx context.Context) {
	s.cancel()

	select {
	case <-s.done:
	case <-ctx.Done():
	}
}

// startCmd represents the top-level start command.
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the auditor (scheduler, and API server when enabled)",
	Long: `Start the epoch scheduler and, when enabled, the read-only status API
in a single process.

The scheduler connects to the ledger service, reconciles records left
open by a previous run, and then drives one audit cycle per ledger
epoch. Both components shut down gracefully on SIGINT/SIGTERM.
`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()

		shutdownTracer, err := telemetry.InitTracer(
			ctx,
			"leaseaudit",
			appConfig.Telemetry.Tracing,
		)
		if err != nil {
			cli.LogFatal(logger, "failed to initialize tracer", err)
		}

		nc, err := cli.ConnectLedger(appConfig.Ledger)
		if err != nil {
			cli.LogFatal(logger, "failed to connect to ledger", err, "url", appConfig.Ledger.URL)
		}

		bucket := appConfig.Ledger.Bucket
		if bucket == "" {
			bucket = cli.DefaultAuditBucket
		}

		kv, err := cli.EnsureBucket(nc, bucket)
		if err != nil {
			cli.LogFatal(logger, "failed to open audit bucket", err, "bucket", bucket)
		}
		auditStore := store.NewKVStore(logger.With("component", "store"), kv)

		ledgerClient := ledger.NewNATSClient(
			logger.With("component", "ledger"),
			nc,
			appConfig.Ledger.Account,
			config.ParseDuration(appConfig.Ledger.Timeout, 0),
		)

		params, err := ledgerClient.EpochParams(ctx)
		if err != nil {
			cli.LogFatal(logger, "failed to fetch epoch params", err)
		}
		logger.Info(
			"fetched epoch params",
			slog.Uint64("base", params.Base),
			slog.Uint64("size", params.Size),
		)

		aud := setupAuditor(ledgerClient, auditStore, params)

		sched := scheduler.New(
			logger.With("component", "scheduler"),
			ledgerClient,
			auditStore,
			params,
			aud.auditor,
		)

		schedCtx, schedCancel := context.WithCancel(context.Background())
		components := []cli.Lifecycle{
			&schedulerLifecycle{
				logger: logger.With("component", "scheduler"),
				sched:  sched,
				ctx:    schedCtx,
				cancel: schedCancel,
				done:   make(chan struct{}),
			},
		}

		if appConfig.API.Enabled {
			components = append(components, api.New(
				appConfig,
				logger.With("component", "api"),
				auditStore,
				authtoken.New(logger),
				aud.registry,
			))
		}

		composite := &compositeLifecycle{components: components}

		composite.Start()
		cli.RunServer(ctx, composite, func() {
			_ = shutdownTracer(context.Background())
			cli.CloseConn(nc)
		})
	},
}

// auditorBundle groups the auditor with the metrics registry its API
// endpoint gathers from.
type auditorBundle struct {
	auditor  *auditor.Auditor
	registry *prometheus.Registry
}

// setupAuditor assembles the auditor: session keys, probe script,
// metrics, and the per-audit session factory.
func setupAuditor(
	ledgerClient ledger.Client,
	auditStore store.Store,
	params ledger.EpochParams,
) auditorBundle {
	kp, err := probe.LoadOrCreateKeyPair(appFs, appConfig.DataDir)
	if err != nil {
		cli.LogFatal(logger, "failed to load session key pair", err, "dataDir", appConfig.DataDir)
	}

	script := probe.DefaultScript()
	if appConfig.Audit.ScriptPath != "" {
		script, err = probe.LoadScript(appFs, appConfig.Audit.ScriptPath)
		if err != nil {
			cli.LogFatal(logger, "failed to load probe script", err, "path", appConfig.Audit.ScriptPath)
		}
	}

	probeTimeout := config.ParseDuration(appConfig.Audit.ProbeTimeout, 0)
	probeLogger := logger.With("component", "probe")

	sessions := func() auditor.VerifySession {
		transport := probe.NewNATSTransport(probeLogger, appFs, kp, probeTimeout)

		return probe.NewSession(probeLogger, transport, probeTimeout)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := auditor.NewMetrics(registry)

	return auditorBundle{
		auditor: auditor.New(
			logger.With("component", "auditor"),
			ledgerClient,
			auditStore,
			params,
			sessions,
			auditor.Options{
				Image:       appConfig.Audit.Image,
				BundlePath:  appConfig.Audit.BundlePath,
				Script:      script,
				CustomAudit: probe.DefaultCustomAudit(probeLogger, probeTimeout),
			},
			metrics,
		),
		registry: registry,
	}
}

func init() {
	rootCmd.AddCommand(startCmd)
}
