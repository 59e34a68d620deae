package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

var (
	serverURL      = flag.String("server", "ws://localhost:9000/ocpp", "Central system WebSocket URL")
	chargePointID  = flag.String("id", "CP001", "Charge point ID")
	password       = flag.String("password", "", "Basic auth password (empty for open connect)")
	vendor         = flag.String("vendor", "SimuVolt", "Charge point vendor")
	model          = flag.String("model", "SV-AC22", "Charge point model")
	serial         = flag.String("serial", "SIM001", "Serial number")
	firmware       = flag.String("firmware", "1.0.0", "Firmware version")
	connectorCount = flag.Int("connectors", 2, "Number of connectors")
	idTag          = flag.String("tag", "TAG001", "ID tag used for local charging sessions")
	interactive    = flag.Bool("interactive", false, "Read commands from stdin")
	verbose        = flag.Bool("verbose", false, "Development logging")
)

func main() {
	flag.Parse()

	var logger *zap.Logger
	var err error
	if *verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	sim := NewSimulator(&SimulatorConfig{
		ServerURL:       *serverURL,
		ChargePointID:   *chargePointID,
		Password:        *password,
		Vendor:          *vendor,
		Model:           *model,
		SerialNumber:    *serial,
		FirmwareVersion: *firmware,
		ConnectorCount:  *connectorCount,
		IdTag:           *idTag,
	}, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down simulator...")
		sim.Stop()
		os.Exit(0)
	}()

	if err := sim.Connect(); err != nil {
		logger.Fatal("Failed to connect", zap.Error(err))
	}

	if *interactive {
		fmt.Println("OCPP 1.6 charge point simulator")
		fmt.Println("Commands: start [conn], stop [conn], status <conn> <state>, heartbeat, fault [conn], quit")
		sim.RunInteractive()
		return
	}

	fmt.Printf("Simulator running as %s against %s, Ctrl+C to stop\n", *chargePointID, *serverURL)
	select {}
}
