// Package discovery finds BLE gateways ("bridges") on the local network via mDNS.
//
// Bridges advertise the "_heaterble._tcp" service type. TXT records describe
// the websocket endpoint:
//
//	path=/ble                                    websocket path
//	service=0000ffe0-0000-1000-8000-00805f9b34fb GATT service the bridge serves
//	version=1.2.0                                bridge software version
//
// Entries advertising a different GATT service are ignored.
//
// # Usage Example
//
//	bridges, err := discovery.Scan(ctx, 5*time.Second)
//	if err != nil {
//	    return err
//	}
//	for _, b := range bridges {
//	    fmt.Printf("Found: %s → %s\n", b.Instance, b.URL())
//	}
//
// A bridge process registers itself with Advertise and withdraws with
// Advertisement.Shutdown.
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Bridges must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
