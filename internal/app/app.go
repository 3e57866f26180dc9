package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jkaberg/saj-hass/internal/bus"
	"github.com/jkaberg/saj-hass/internal/config"
	"github.com/jkaberg/saj-hass/internal/domain"
	"github.com/jkaberg/saj-hass/internal/saj"
	"github.com/jkaberg/saj-hass/internal/sensors"
	"github.com/jkaberg/saj-hass/internal/transmission"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// InverterReader performs one read against the inverter and commits the
// result to reg on success.
type InverterReader interface {
	Read(ctx context.Context, reg *sensors.Registry) saj.Result
}

// Observer is told about every read, e.g. the Prometheus collector.
type Observer interface {
	Observe(res saj.Result, snap *sensors.Snapshot)
}

// Run polls the inverter and fans snapshots out to the transmitter until ctx
// is cancelled. tx and obs may be nil.
func Run(
	parentCtx context.Context,
	cfg *config.Config,
	reader InverterReader,
	reg *sensors.Registry,
	tx transmission.Transmitter,
	obs Observer,
	logger *logrus.Logger,
) {
	messageBus := bus.New()
	grp, ctx := errgroup.WithContext(parentCtx)

	// Set by the poller after an outage so the first snapshot afterwards is
	// sent even when nothing changed, restoring availability.
	var resend atomic.Bool

	// Collector -----------------------------------------------------------
	grp.Go(func() error {
		defer messageBus.Close()

		online := true
		poll := func() {
			res := reader.Read(ctx, reg)
			if ctx.Err() != nil {
				return
			}

			var snap *sensors.Snapshot
			if res.OK() {
				snap = reg.Snapshot()
			}
			if obs != nil {
				obs.Observe(res, snap)
			}

			switch {
			case res.OK():
				if !online {
					logger.Info("SAJ inverter is back online")
					online = true
					resend.Store(true)
				}
				messageBus.Publish(snap)
			case res.Outcome == saj.Offline:
				if online {
					logger.Info("SAJ inverter went offline")
					online = false
					if tx != nil {
						if err := tx.MarkOffline(); err != nil {
							logger.WithError(err).Warn("Failed to publish offline availability")
						}
					}
				}
			default:
				logger.WithError(res.Err).WithField("outcome", res.Outcome).Warn("collector: read failed")
			}
		}

		poll()
		ticker := time.NewTicker(cfg.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				poll()
			}
		}
	})

	// Scheduler -----------------------------------------------------------
	if tx != nil {
		sub := messageBus.Subscribe()
		grp.Go(func() error {
			var (
				lastSnap *sensors.Snapshot
				lastSent time.Time
			)
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case snap, ok := <-sub:
					if !ok {
						return nil
					}
					now := time.Now()
					force := resend.Swap(false) ||
						(cfg.ForceUpdateInterval > 0 && now.Sub(lastSent) >= cfg.ForceUpdateInterval)
					if !force && !domain.Changed(lastSnap, snap) {
						continue
					}
					if err := transmit(tx, snap); err != nil {
						logger.WithError(err).Warn("MQTT transmit failed")
						// Retry with the next snapshot even if nothing changed.
						lastSnap = nil
						continue
					}
					lastSnap = snap
					lastSent = now
				}
			}
		})
	}

	if err := grp.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Warn("app: background group exited")
	}
}

// ReadOnce performs a single read and returns the resulting snapshot.
func ReadOnce(ctx context.Context, reader InverterReader, reg *sensors.Registry) (*sensors.Snapshot, error) {
	res := reader.Read(ctx, reg)
	if !res.OK() {
		return nil, fmt.Errorf("read failed (%s): %w", res.Outcome, res.Err)
	}
	return reg.Snapshot(), nil
}

func transmit(tx transmission.Transmitter, snap *sensors.Snapshot) error {
	if tx == nil || snap == nil {
		return nil
	}
	if err := tx.Transmit(snap); err != nil {
		return fmt.Errorf("MQTT transmit failed: %w", err)
	}
	return nil
}
