// Command mqttechod runs a minimal MQTT 3.1.1 framing server: it accepts
// TCP connections, frames and decodes packets, logs them (CONNECT, PUBLISH,
// SUBSCRIBE and DISCONNECT at Info, every other type at Debug), and echoes
// each one except DISCONNECT back to the sender. It does
// not implement broker semantics (no session state, no subscription
// routing, no retained messages) — those are explicit non-goals of the
// wire codec this binary exercises. See SPEC_FULL.md.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/axmq/mqttwire/encoding"
	"github.com/axmq/mqttwire/network"
	"github.com/axmq/mqttwire/pkg/logger"
)

// listenAddr is fixed: this binary takes no arguments and reads no
// configuration file.
const listenAddr = "0.0.0.0:12345"

func main() {
	log := logger.NewSlogLogger(slog.LevelInfo, os.Stderr)

	srv, err := network.NewServer(network.ServerConfig{
		Listener: network.DefaultListenerConfig(listenAddr),
		Pool:     network.DefaultPoolConfig(),
		Logger:   log,
	}, handlePacket(log))
	if err != nil {
		log.Error("failed to construct server", "error", err)
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		log.Error("failed to start listener", "addr", listenAddr, "error", err)
		os.Exit(1)
	}
	log.Info("listening", "addr", listenAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("forced shutdown", "error", err)
		os.Exit(1)
	}
	log.Info("stopped")
}

// handlePacket logs each decoded packet and echoes it straight back to the
// sender, except DISCONNECT, which gets no reply. This binary is a testing harness, not a broker: it never routes
// PUBLISH to subscribers, tracks SUBSCRIBE/UNSUBSCRIBE state, or drives the
// QoS 1/2 acknowledgement flows — all explicitly out of scope here.
func handlePacket(log logger.Logger) network.PacketHandler {
	return func(_ context.Context, conn *network.Connection, pkt encoding.Packet) (encoding.Packet, error) {
		switch p := pkt.(type) {
		case *encoding.ConnectPacket:
			log.Info("CONNECT", "conn_id", conn.ID(), "client_id", p.ClientID, "clean_session", p.CleanSession)
		case *encoding.PublishPacket:
			log.Info("PUBLISH", "conn_id", conn.ID(), "topic", p.TopicName, "qos", fmt.Sprint(p.QoS), "bytes", len(p.Payload))
		case *encoding.SubscribePacket:
			log.Info("SUBSCRIBE", "conn_id", conn.ID(), "filters", len(p.Subscriptions))
		case *encoding.DisconnectPacket:
			log.Info("DISCONNECT", "conn_id", conn.ID())
			return nil, nil
		default:
			log.Debug("packet", "conn_id", conn.ID(), "type", p.Type().String())
		}
		return pkt, nil
	}
}
