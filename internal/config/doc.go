// Package config manages the retools configuration file.
//
// The file is YAML and holds the frame sources to attach, engine settings,
// key extensions installed whenever the engine starts, the HTTP API listener
// and the CAN gateways seen by discovery. Command line flags override
// values read from the file.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/retools/config.yaml or $HOME/.config/retools/config.yaml
//   - macOS: $HOME/.config/retools/config.yaml
//   - Windows: %LOCALAPPDATA%\retools\config.yaml
//
// # Example
//
//	version: 1
//	log_level: info
//	engine:
//	  queue_size: 64
//	sources:
//	  - type: websocket
//	    url: ws://192.168.4.1/can
//	    origin: can1
//	  - type: nats
//	    url: nats://localhost:4222
//	    subject: can.>
//	keys:
//	  "100": [1]
//	  "7e8": [2, 3]
//	api:
//	  listen: 127.0.0.1:8088
//
// Saves are atomic: the file is written to a temporary path and renamed.
package config
