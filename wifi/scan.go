// SPDX-License-Identifier: MIT
//
// WiFi scan.
//

package wifi

import (
	"bytes"
	"context"
	"fmt"
	"slices"
)

// scan runs one scan on a started radio.  The scan-done handler is
// registered for the duration of the call only.
func (r *Radio) scan(ctx context.Context, conf ScanConfig) ([]ApRecord, error) {
	if err := conf.validate(); err != nil {
		return nil, err
	}

	done := make(chan ScanDone, 1)
	id, err := r.bus.Register(WifiEvent, EventScanDone,
		func(_ EventBase, _ EventID, data any) {
			ev, _ := payload[ScanDone](data)
			select {
			case done <- ev:
			default:
			}
		})
	if err != nil {
		return nil, fmt.Errorf("register scan handler: %w", err)
	}
	defer func() {
		if err := r.bus.Unregister(id); err != nil {
			logger.Warnf("failed to unregister scan handler: %v", err)
		}
	}()

	if err := r.drv.StartScan(&conf); err != nil {
		return nil, fmt.Errorf("start scan: %w", err)
	}

	select {
	case ev := <-done:
		if ev.Status != 0 {
			return nil, fmt.Errorf("scan failed with status %d", ev.Status)
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	records, err := r.drv.ScanResults()
	if err != nil {
		return nil, fmt.Errorf("get scan results: %w", err)
	}
	records = slices.DeleteFunc(records, func(rec ApRecord) bool {
		if rec.SSID == "" && !conf.ShowHidden {
			return true
		}
		if conf.SSID != "" && rec.SSID != conf.SSID {
			return true
		}
		if conf.BSSID != nil && !bytes.Equal(rec.BSSID, conf.BSSID) {
			return true
		}
		return conf.Channel != 0 && rec.Channel != conf.Channel
	})
	slices.SortStableFunc(records, func(a, b ApRecord) int {
		return int(b.RSSI) - int(a.RSSI)
	})
	logger.Debugf("scan found %d access points", len(records))
	return records, nil
}

// payload decodes an event payload given either by value or by pointer.
func payload[T any](data any) (T, bool) {
	switch v := data.(type) {
	case T:
		return v, true
	case *T:
		if v != nil {
			return *v, true
		}
	}
	var zero T
	return zero, false
}
