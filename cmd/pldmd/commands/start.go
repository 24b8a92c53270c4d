package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/openbmc-go/pldmd/internal/config"
	"github.com/openbmc-go/pldmd/internal/controlapi"
	"github.com/openbmc-go/pldmd/internal/effecter"
	"github.com/openbmc-go/pldmd/internal/event"
	"github.com/openbmc-go/pldmd/internal/hostsync"
	"github.com/openbmc-go/pldmd/internal/instanceid"
	"github.com/openbmc-go/pldmd/internal/logger"
	"github.com/openbmc-go/pldmd/internal/mctp"
	"github.com/openbmc-go/pldmd/internal/mctp/unixsock"
	"github.com/openbmc-go/pldmd/internal/metrics"
	"github.com/openbmc-go/pldmd/internal/oem/ibm"
	"github.com/openbmc-go/pldmd/internal/pdr"
	"github.com/openbmc-go/pldmd/internal/responder"
	"github.com/openbmc-go/pldmd/internal/store"
	"github.com/openbmc-go/pldmd/internal/telemetry"
	"github.com/openbmc-go/pldmd/internal/wire"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the pldmd terminus daemon",
	Long: `Start the pldmd terminus daemon with the specified configuration:
bind the MCTP datagram socket, register the base-discovery and PDR
responder handlers, start the host-sync state machine, and serve the
control API and metrics endpoint.

Examples:
  # Start with the default config location
  pldmd start

  # Start with an explicit config file
  pldmd start --config /etc/pldmd/config.yaml

  # Override a setting via environment variable
  PLDMD_LOGGING_LEVEL=DEBUG pldmd start`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := logger.Init(cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryCfg := telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	}
	telemetryShutdown, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	if telemetry.IsEnabled() {
		logger.Info("telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	} else {
		logger.Info("telemetry disabled")
	}

	dbStore, err := store.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer func() {
		if err := dbStore.Close(); err != nil {
			logger.Error("store close error", "error", err)
		}
	}()

	repo := pdr.NewRepository()
	repo.SetMaxBytes(cfg.Repository.MaxTotalBytes)
	bmcTree := pdr.NewTree()

	reg := effecter.NewRegistry()

	effWatcher, err := effecter.NewWatcher(cfg.Effecter.Path)
	if err != nil {
		return fmt.Errorf("failed to load effecter mapping: %w", err)
	}
	if err := effWatcher.Start(); err != nil {
		return fmt.Errorf("failed to watch effecter mapping: %w", err)
	}
	defer effWatcher.Stop()
	logger.Info("effecter mapping loaded", "path", cfg.Effecter.Path, "count", len(effWatcher.Current().Effecters))

	transport, err := unixsock.Listen(cfg.MCTP.SocketPath)
	if err != nil {
		return fmt.Errorf("failed to bind MCTP socket: %w", err)
	}
	defer transport.Close()

	var ids *instanceid.DB
	if cfg.MCTP.PersistInstanceIDs {
		persistentIDs, err := instanceid.OpenPersistentDB(cfg.MCTP.InstanceIDStorePath)
		if err != nil {
			return fmt.Errorf("failed to open persistent instance-id store: %w", err)
		}
		defer func() {
			if err := persistentIDs.Close(); err != nil {
				logger.Error("instance-id store close error", "error", err)
			}
		}()
		ids = persistentIDs.DB
		logger.Info("instance-id reservations persisted", "path", cfg.MCTP.InstanceIDStorePath)
	} else {
		ids = instanceid.NewDB()
	}
	dispatcher := responder.NewDispatcher()

	supportedTypes := []uint8{wire.TypeBase, wire.TypePlatform}
	supportedCommands := map[uint8][]uint8{
		wire.TypeBase:     {responder.CmdGetTID, responder.CmdGetPLDMTypes, responder.CmdGetPLDMCommands, responder.CmdGetPLDMVersion},
		wire.TypePlatform: {responder.CmdGetPDR, responder.CmdGetPDRRepositoryInfo, wire.CmdPlatformEventMessage},
	}
	if cfg.OEM.IBM.Enabled {
		supportedTypes = append(supportedTypes, wire.TypeOEM)
		supportedCommands[wire.TypeOEM] = []uint8{wire.CmdOEMNewFileAvailable, wire.CmdOEMWriteFile, wire.CmdOEMReadFile, wire.CmdOEMFileAck}
	}
	base := responder.NewBaseDiscovery(cfg.MCTP.LocalTID, supportedTypes, supportedCommands)
	base.Register(dispatcher)

	pdrHandlers := &responder.PDRHandlers{Repo: repo}
	pdrHandlers.Register(dispatcher)

	if cfg.OEM.IBM.Enabled {
		s3Client, err := ibm.NewS3ClientFromConfig(ctx, cfg.OEM.IBM)
		if err != nil {
			return fmt.Errorf("failed to create IBM OEM S3 client: %w", err)
		}
		ibmHandler := ibm.NewHandler(ibm.NewS3Store(s3Client, cfg.OEM.IBM.Bucket, cfg.OEM.IBM.KeyPrefix))
		ibmHandler.Register(dispatcher)
		logger.Info("IBM OEM file-transfer handler enabled", "bucket", cfg.OEM.IBM.Bucket)
	}

	engine := mctp.NewEngine(transport, ids, dispatcher)

	var metricsRecorder metrics.Recorder
	var metricsHTTP *http.Server
	promReg := prometheus.NewRegistry()
	if cfg.Metrics.Enabled {
		promMetrics := metrics.New(promReg)
		metricsRecorder = promMetrics
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
		metricsHTTP = &http.Server{Addr: cfg.Metrics.Address, Handler: mux}
		logger.Info("metrics enabled", "address", cfg.Metrics.Address)
	} else {
		logger.Info("metrics collection disabled")
	}
	if metricsRecorder != nil {
		engine.SetMetrics(metricsRecorder)
	}

	synchronizer := hostsync.New(engine, repo, reg, cfg.MCTP.HostEID, bmcTree)
	synchronizer.SetStore(dbStore)
	if metricsRecorder != nil {
		synchronizer.SetMetrics(metricsRecorder)
	}

	actions := event.NewActionRegistry()
	bindings := map[effecter.SensorKey]string{}

	var softOff *hostsync.SoftOffTrigger
	if cfg.SoftOff.Enabled {
		softOff = hostsync.NewSoftOffTrigger(engine, cfg.SoftOff.EffecterID, cfg.SoftOff.State, cfg.SoftOff.Timeout)
		synchronizer.SetSoftOff(softOff)
		if cfg.SoftOff.CompletionSensorID != 0 {
			actions.Register("softoff-complete", func(ctx context.Context, eid uint8, info *effecter.SensorInfo, data wire.StateSensorEventData) {
				logger.InfoCtx(ctx, "hostsync: host reported softoff complete", logger.EID(eid), logger.SensorID(data.SensorID))
				softOff.Complete()
			})
			bindings[effecter.SensorKey{TID: cfg.MCTP.HostEID, SensorID: cfg.SoftOff.CompletionSensorID}] = "softoff-complete"
		}
		logger.Info("softoff trigger enabled", "effecter_id", cfg.SoftOff.EffecterID, "state", cfg.SoftOff.State)
	}

	eventHandler := &event.Handler{
		Reg:      reg,
		Actions:  actions,
		Bindings: bindings,
		Queue:    synchronizer,
		Engine:   engine,
	}
	eventHandler.Register(dispatcher)

	writer := &effecter.Writer{
		Engine:  engine,
		Repo:    repo,
		Reg:     reg,
		Boot:    synchronizer,
		Metrics: metricsRecorder,
		Audit:   dbStore,
	}

	apiServer, err := controlapi.NewServer(cfg.ControlAPI, dbStore, writer, reg)
	if err != nil {
		return fmt.Errorf("failed to create control API server: %w", err)
	}

	errCh := make(chan error, 3)
	go func() {
		if err := engine.Serve(ctx); err != nil {
			errCh <- fmt.Errorf("mctp engine: %w", err)
		}
	}()
	go func() {
		if err := apiServer.Start(ctx); err != nil {
			errCh <- fmt.Errorf("control api: %w", err)
		}
	}()
	if metricsHTTP != nil {
		go func() {
			logger.Info("metrics: listening", "address", metricsHTTP.Addr)
			if err := metricsHTTP.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("pldmd is running", "socket", cfg.MCTP.SocketPath, "host_eid", cfg.MCTP.HostEID)

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("shutdown signal received, initiating graceful shutdown")
		cancel() // engine observes ctx.Done() and stops its own serve loop
		if metricsHTTP != nil {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer shutdownCancel()
			if err := metricsHTTP.Shutdown(shutdownCtx); err != nil {
				logger.Error("metrics server shutdown error", "error", err)
			}
		}
		time.Sleep(100 * time.Millisecond) // let in-flight goroutines observe ctx.Done
		logger.Info("pldmd stopped gracefully")

	case err := <-errCh:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("pldmd error", "error", err)
			return err
		}
	}

	return nil
}
