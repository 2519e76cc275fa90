// Package discovery finds CAN gateways on the local network using mDNS.
//
// Gateways advertise the "_canbus._tcp" service. TXT records describe how to
// reach the bus:
//
//	bus=can1        bus name, used as the frame origin
//	proto=ws        transport, "ws" (default) or "nats"
//	path=/can       WebSocket path (default "/")
//	subject=can.>   NATS subject (default "can.>")
//
// # Usage Example
//
//	gateways, err := discovery.ScanForGateways(ctx, 5*time.Second)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, gw := range gateways {
//	    fmt.Println(gw, gw.URL())
//	}
//
// Discovery needs multicast on the network interface and UDP port 5353 open.
package discovery
