package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nervctl/rspstub"
	"github.com/nervctl/rspstub/internal/adminapi"
	"github.com/nervctl/rspstub/internal/demotarget"
	"github.com/nervctl/rspstub/internal/logging"
	"github.com/nervctl/rspstub/internal/transport"
)

const shutdownGrace = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the RSP listener and the admin HTTP surface",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("rsp-addr", "", "listen address for the RSP protocol (overrides config)")
	serveCmd.Flags().String("admin-addr", "", "listen address for the admin HTTP surface (overrides config)")
	serveCmd.Flags().Bool("quic", false, "serve RSP over QUIC instead of TCP")
	serveCmd.Flags().String("image", "", "path to a firmware image file; a write to it triggers a Library stop reason on the next continue")
	_ = viper.BindPFlag("rsp_addr", serveCmd.Flags().Lookup("rsp-addr"))
	_ = viper.BindPFlag("admin_addr", serveCmd.Flags().Lookup("admin-addr"))
	_ = viper.BindPFlag("quic", serveCmd.Flags().Lookup("quic"))
	_ = viper.BindPFlag("image_path", serveCmd.Flags().Lookup("image"))
}

func loadServeConfig() (adminapi.ServeConfig, error) {
	cfg := adminapi.ServeConfig{
		RSPAddr:          viper.GetString("rsp_addr"),
		AdminAddr:        viper.GetString("admin_addr"),
		PacketBufferSize: viper.GetInt("packet_buffer_size"),
		DemoRAMSize:      viper.GetInt("demo_ram_size"),
		JWTSecret:        viper.GetString("jwt_secret"),
		QUIC:             viper.GetBool("quic"),
		ImagePath:        viper.GetString("image_path"),
	}

	if err := adminapi.Validate(cfg); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	// sessions.go binds admin_addr to its own --admin-addr flag in a later
	// init, replacing the binding above; bind this command's flag again.
	_ = viper.BindPFlag("admin_addr", cmd.Flags().Lookup("admin-addr"))

	cfg, err := loadServeConfig()
	if err != nil {
		return err
	}

	if err := logging.Init(logging.Config{
		Level:  viper.GetString("log_level"),
		Format: viper.GetString("log_format"),
	}); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	log := logging.Logger()
	log.Info("starting rspstubd", "rsp_addr", cfg.RSPAddr, "admin_addr", cfg.AdminAddr, "quic", cfg.QUIC)

	target := demotarget.NewTarget(cfg.DemoRAMSize, demotarget.ProgramDebugInfo{})

	hostIODir, err := os.MkdirTemp("", "rspstubd-hostio-*")
	if err != nil {
		return fmt.Errorf("create host-io dir: %w", err)
	}
	defer os.RemoveAll(hostIODir)

	hostIO, err := demotarget.NewBadgerHostIO(hostIODir)
	if err != nil {
		return fmt.Errorf("open host-io store: %w", err)
	}
	defer hostIO.Close()

	target.WithHostIO(hostIO)

	if cfg.ImagePath != "" {
		onImageChange := func() {
			data, err := os.ReadFile(cfg.ImagePath)
			if err != nil {
				log.Warn("reading changed firmware image", "path", cfg.ImagePath, "error", err)
				target.NotifyImageChanged()
				return
			}

			info, err := demotarget.Deserialize(data)
			if err != nil {
				// Not every image is a debug-info sidecar; still report
				// the reload, just without refreshed symbol data.
				target.NotifyImageChanged()
				return
			}

			target.ReloadDebugInfo(info)
		}

		watcher, err := transport.WatchConfig(cfg.ImagePath, onImageChange)
		if err != nil {
			return fmt.Errorf("watch image path: %w", err)
		}
		defer watcher.Close()

		log.Info("watching firmware image for reload", "path", cfg.ImagePath)
	}

	reg := prometheus.NewRegistry()
	metrics := adminapi.NewMetrics(reg)
	sessions := newSessionRegistry()

	var jwtSecret []byte
	if cfg.JWTSecret != "" {
		jwtSecret = []byte(cfg.JWTSecret)
	}

	adminSrv := &http.Server{
		Addr:    cfg.AdminAddr,
		Handler: adminapi.NewRouter(sessions, reg, jwtSecret),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	adminDone := make(chan error, 1)
	go func() {
		if cfg.AdminAddr == "" {
			adminDone <- nil
			return
		}

		log.Info("admin HTTP surface listening", "addr", cfg.AdminAddr)

		if err := adminSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			adminDone <- err
			return
		}

		adminDone <- nil
	}()

	rspDone := make(chan error, 1)
	go func() {
		rspDone <- serveRSP(ctx, cfg, target, sessions, metrics, log)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-rspDone:
		if err != nil {
			log.Error("rsp listener stopped", "error", err)
		}
		stop()
	case err := <-adminDone:
		if err != nil {
			log.Error("admin listener stopped", "error", err)
		}
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	_ = adminSrv.Shutdown(shutdownCtx)

	return nil
}

func serveRSP(ctx context.Context, cfg adminapi.ServeConfig, target *demotarget.Target, sessions *sessionRegistry, metrics *adminapi.Metrics, log *slog.Logger) error {
	if cfg.QUIC {
		return serveRSPQUIC(ctx, cfg, target, sessions, metrics, log)
	}

	return serveRSPTCP(ctx, cfg, target, sessions, metrics, log)
}

func serveRSPTCP(ctx context.Context, cfg adminapi.ServeConfig, target *demotarget.Target, sessions *sessionRegistry, metrics *adminapi.Metrics, log *slog.Logger) error {
	addr, err := net.ResolveTCPAddr("tcp", cfg.RSPAddr)
	if err != nil {
		return fmt.Errorf("resolve rsp addr: %w", err)
	}

	ln, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen rsp addr: %w", err)
	}
	defer ln.Close()

	log.Info("rsp listener (tcp) listening", "addr", ln.Addr().String())

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.AcceptTCP()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}

		go handleTCPConn(ctx, conn, cfg, target, sessions, metrics, log)
	}
}

func handleTCPConn(ctx context.Context, conn *net.TCPConn, cfg adminapi.ServeConfig, target *demotarget.Target, sessions *sessionRegistry, metrics *adminapi.Metrics, log *slog.Logger) {
	remote := conn.RemoteAddr().String()
	defer conn.Close()

	byteConn := transport.NewTCPConn(conn)
	core := rsp.NewProtocolCore(byteConn, target, cfg.PacketBufferSize, log)

	ts := sessions.add(remote, core.Session())
	metrics.Sessions.Inc()

	defer func() {
		sessions.remove(ts)
		metrics.Sessions.Dec()
	}()

	stopCh := make(chan rsp.StopReason)

	reason, err := core.Run(ctx, stopCh)
	if err != nil {
		log.Warn("rsp session ended with error", "remote", remote, "error", err)
		return
	}

	log.Info("rsp session ended", "remote", remote, "reason", reason.Kind)
}

func serveRSPQUIC(ctx context.Context, cfg adminapi.ServeConfig, target *demotarget.Target, sessions *sessionRegistry, metrics *adminapi.Metrics, log *slog.Logger) error {
	return fmt.Errorf("quic transport requires a TLS certificate; run with a reverse proxy or supply one via a future --tls-cert flag")
}
