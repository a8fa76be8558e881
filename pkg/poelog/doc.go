// Package poelog detects zone changes by tailing the Path of Exile client log.
//
// This package allows you to:
//   - Monitor Client.txt in real time for zone transitions
//   - Parse historical client logs into zone change events
//   - Classify zone names as hideout, map, town, campaign or unknown
//
// # Basic Usage
//
// To monitor the client log in real time:
//
//	mon, err := poelog.NewMonitor(poelog.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	mon.OnZoneChange(func(ev poelog.ChangeEvent) {
//	    fmt.Printf("entered %s (%s)\n", ev.ZoneName, ev.ZoneType)
//	})
//	mon.Start()
//	defer mon.Stop()
//
// The monitor starts reading at the current end of the file, so zones
// entered before Start are never reported. A missing log file is not an
// error; the monitor keeps checking and begins reading once it appears.
//
// # Area Levels
//
// The client writes a "Generating level N area" line before each zone
// entry. The monitor attaches the most recent such level to the next zone
// entry as ChangeEvent.AreaLevel.
//
// # Disclaimer
//
// This is an unofficial tool and is not affiliated with Grinding Gear Games.
package poelog
