// Package influxdb provides InfluxDB connectivity for power telemetry.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, batched non-blocking writes and health checks.
//
// Every device transition becomes one power_state point:
//
//	power_state,device_id=node-0,source=command,state=Pending value=-1i
//
// with value 1 for On, 0 for Off and -1 for Pending.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WritePowerState("node-0", "On", "status", time.Now())
//
// Write errors arrive asynchronously through SetOnError. Connection and
// health check errors are returned directly.
package influxdb
