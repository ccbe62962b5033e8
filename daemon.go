package main

import (
	"context"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"highlightundo/buffer"
	"highlightundo/config"
	"highlightundo/engine"
	"highlightundo/logger"
	"highlightundo/types"

	"github.com/neovim/go-client/nvim"
)

type Daemon struct {
	config      config.Config
	buf         *buffer.NvimBuffer
	engine      *engine.Engine
	trace       *logger.TraceLog
	listener    net.Listener
	socketPath  string
	pidPath     string
	clientCount int64
	ctx         context.Context
	cancel      context.CancelFunc
}

func NewDaemon(cfg config.Config) (*Daemon, error) {
	trace, err := logger.OpenTraceLog(cfg.DebugLogPath)
	if err != nil {
		return nil, err
	}

	buf := buffer.New()
	eng, err := engine.New(cfg, buf, buf, buf, trace)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		config:     cfg,
		buf:        buf,
		engine:     eng,
		trace:      trace,
		socketPath: getSocketPath(),
		pidPath:    getPidPath(),
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

func (d *Daemon) Start() error {
	// Setup logging and PID management
	d.writePidFile()
	defer d.removePidFile()

	// Setup socket
	if err := d.setupSocket(); err != nil {
		return err
	}
	defer d.cleanup()

	log.Printf("daemon listening on socket: %s", d.socketPath)

	// Setup shutdown handling
	d.setupShutdownHandling()

	// Start connection handling
	go d.acceptConnections()

	// Start idle monitoring
	go d.monitorIdleShutdown()

	// Wait for shutdown
	<-d.ctx.Done()
	log.Printf("daemon shutting down...")
	return nil
}

func (d *Daemon) setupSocket() error {
	// Remove existing socket
	os.Remove(d.socketPath)

	// Listen on Unix socket
	listener, err := net.Listen("unix", d.socketPath)
	if err != nil {
		return err
	}
	d.listener = listener
	return nil
}

func (d *Daemon) setupShutdownHandling() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Printf("received shutdown signal")
		d.Stop()
	}()
}

func (d *Daemon) acceptConnections() {
	for {
		conn, err := d.listener.Accept()
		if err != nil {
			select {
			case <-d.ctx.Done():
				return // Server is shutting down
			default:
				log.Printf("error accepting connection: %v", err)
				continue
			}
		}

		atomic.AddInt64(&d.clientCount, 1)
		log.Printf("new client connected, total clients: %d", atomic.LoadInt64(&d.clientCount))
		go d.handleConnection(conn)
	}
}

func (d *Daemon) handleConnection(conn net.Conn) {
	defer conn.Close()
	defer func() {
		atomic.AddInt64(&d.clientCount, -1)
		log.Printf("client disconnected, remaining clients: %d", atomic.LoadInt64(&d.clientCount))
	}()

	// Create Neovim client from the connection
	n, err := nvim.New(conn, conn, conn, log.Printf)
	if err != nil {
		log.Printf("error creating nvim client: %v", err)
		return
	}

	// Bind this connection's client to the buffer adapter
	if err := d.buf.SetClient(n); err != nil {
		log.Printf("error binding nvim client: %v", err)
		return
	}

	if err := d.registerHandlers(n); err != nil {
		log.Printf("error registering handlers: %v", err)
		return
	}

	// Serve this connection until it closes or context is done
	select {
	case <-d.ctx.Done():
		return
	default:
		if err := n.Serve(); err != nil && err != io.EOF {
			log.Printf("error serving connection: %v", err)
		}
	}
}

// registerHandlers exposes the RPC surface the Lua side calls. A bufID of 0
// means the currently focused buffer.
func (d *Daemon) registerHandlers(n *nvim.Nvim) error {
	if err := n.RegisterHandler("highlightundo_exec", func(_ *nvim.Nvim, direction string, bufID int) error {
		dir := types.Direction(direction)
		if dir != types.DirectionUndo && dir != types.DirectionRedo {
			logger.Warn("unknown direction %q", direction)
			return nil
		}
		if bufID == 0 {
			current, err := d.buf.CurrentBuffer()
			if err != nil {
				logger.Error("resolving current buffer: %v", err)
				return nil
			}
			bufID = current
		}
		if err := d.engine.PrepareSnapshot(bufID, dir); err != nil {
			logger.Debug("snapshot capture failed for buffer %d: %v", bufID, err)
		}
		d.engine.ExecuteWithHighlight(bufID, dir)
		return nil
	}); err != nil {
		return err
	}

	if err := n.RegisterHandler("highlightundo_buf_closed", func(_ *nvim.Nvim, bufID int) error {
		d.engine.BufferClosed(bufID)
		return nil
	}); err != nil {
		return err
	}

	if err := n.RegisterHandler("highlightundo_stats", func(_ *nvim.Nvim) (engine.Stats, error) {
		return d.engine.Stats(), nil
	}); err != nil {
		return err
	}

	return n.RegisterHandler("highlightundo_clear_caches", func(_ *nvim.Nvim) error {
		d.engine.ClearAllCaches()
		return nil
	})
}

func (d *Daemon) monitorIdleShutdown() {
	// In debug mode, shut down immediately when no clients are connected
	if d.config.DebugImmediateShutdown {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-d.ctx.Done():
				return
			case <-ticker.C:
				if atomic.LoadInt64(&d.clientCount) == 0 {
					log.Printf("debug mode: no clients connected, shutting down daemon immediately")
					d.Stop()
					return
				}
			}
		}
	} else {
		// Normal mode: wait for timeout period before shutting down
		idleTimer := time.NewTimer(30 * time.Second)
		defer idleTimer.Stop()

		for {
			select {
			case <-d.ctx.Done():
				return
			case <-idleTimer.C:
				if atomic.LoadInt64(&d.clientCount) == 0 {
					log.Printf("no clients connected for timeout period, shutting down daemon")
					d.Stop()
					return
				}
			}

			// Reset timer when no clients
			if atomic.LoadInt64(&d.clientCount) == 0 {
				idleTimer.Reset(5 * time.Second)
			} else {
				idleTimer.Reset(30 * time.Second)
			}
		}
	}
}

func (d *Daemon) Stop() {
	if d.listener != nil {
		d.listener.Close()
	}
	d.trace.Close()
	d.cancel()
}

func (d *Daemon) cleanup() {
	os.Remove(d.socketPath)
}

func (d *Daemon) writePidFile() {
	pid := os.Getpid()
	err := os.WriteFile(d.pidPath, []byte(strconv.Itoa(pid)), 0644)
	if err != nil {
		log.Printf("warning: could not write PID file: %v", err)
	}
	log.Printf("server started with PID %d", pid)
}

func (d *Daemon) removePidFile() {
	if err := os.Remove(d.pidPath); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: could not remove PID file: %v", err)
	}
}
