package main

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	gruenbeck "github.com/muurk/gruenbeck-cloud"
	"github.com/muurk/gruenbeck-cloud/internal/logging"
	"github.com/muurk/gruenbeck-cloud/internal/ui"
)

// refreshTimeout bounds a single push-window re-arm call.
const refreshTimeout = 30 * time.Second

// watchCmd implements the 'watch' command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch live telemetry from a device",
	Long: `Open the realtime stream and show the device's telemetry in a
full-screen view: current flow, remaining capacity, salt reserve and
the regeneration step while a cycle runs.

The appliance stops volunteering data a few minutes after the last
request, so the view re-arms the push window periodically (and on the
r key). Quit with q; the stream is left cleanly either way.`,
	Example: `  # Watch the default device
  gruenbeck-cli watch

  # Watch a specific device
  gruenbeck-cli watch --device BS11022077`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	reg := loadRegistry()
	initLogging(reg)
	defer logging.Sync()

	client, err := buildClient(reg)
	if err != nil {
		return err
	}

	// The timeout covers login and selection only; the watch itself
	// runs until the user quits.
	ctx, cancel, err := opContext()
	if err != nil {
		return err
	}
	d, err := selectDevice(ctx, client, reg)
	cancel()
	if err != nil {
		ui.PrintFailure("Live watch", err, failureTips(err))
		printVerboseLog(client)
		return err
	}

	name := d.Name
	if dev := reg.GetDevice(d.SerialNumber); dev != nil && dev.Nickname != "" {
		name = dev.Nickname
	}

	streamCtx, stopStream := context.WithCancel(context.Background())
	defer stopStream()

	program := ui.NewWatchProgram(ui.WatchConfig{
		DeviceName: name,
		Serial:     d.SerialNumber,
		Refresh: func() error {
			rctx, rcancel := context.WithTimeout(streamCtx, refreshTimeout)
			defer rcancel()
			return client.RefreshRealtime(rctx)
		},
	})

	refreshEvery := time.Duration(reg.Preferences.WatchRefreshMinutes) * time.Minute
	if refreshEvery <= 0 {
		refreshEvery = 6 * time.Minute
	}

	go func() {
		if err := client.Connect(streamCtx); err != nil {
			program.Send(ui.WatchErrorMsg{Err: err})
			return
		}
		program.Send(ui.WatchConnectedMsg{})

		// The appliance goes quiet a few minutes after the last
		// request; keep re-arming the push window.
		go func() {
			ticker := time.NewTicker(refreshEvery)
			defer ticker.Stop()
			for {
				select {
				case <-streamCtx.Done():
					return
				case <-ticker.C:
					rctx, rcancel := context.WithTimeout(streamCtx, refreshTimeout)
					err := client.RefreshRealtime(rctx)
					rcancel()
					if err != nil {
						logging.Warn("Could not re-arm the telemetry push window", zap.Error(err))
					}
				}
			}
		}()

		err := client.Listen(streamCtx, func(update gruenbeck.Device) {
			program.Send(ui.WatchUpdateMsg{Device: update})
		})
		switch {
		case err == nil, errors.Is(err, context.Canceled):
			program.Send(ui.WatchClosedMsg{})
		default:
			program.Send(ui.WatchErrorMsg{Err: err})
		}
	}()

	final, runErr := program.Run()

	// Leave the relay group before the socket goes away; cancelling the
	// stream context first would close the socket under Disconnect.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := client.Disconnect(shutdownCtx); err != nil {
		logging.Debug("Graceful stream exit failed, closing hard", zap.Error(err))
		_ = client.Close()
	}
	shutdownCancel()
	stopStream()

	if runErr != nil {
		return runErr
	}

	watched, ok := final.(ui.WatchModel)
	if !ok {
		return nil
	}

	switch {
	case watched.Err() != nil:
		err := watched.Err()
		ui.PrintFailure("Live watch", err, failureTips(err))
		printVerboseLog(client)
		return err
	case watched.Closed():
		ui.PrintWarning("Stream closed by the cloud", map[string]string{
			"Device":  d.SerialNumber,
			"Updates": strconv.Itoa(watched.Frames()),
			"Watched": watched.Elapsed().Round(time.Second).String(),
		})
	default:
		ui.PrintSuccess("Live watch", map[string]string{
			"Device":  d.SerialNumber,
			"Updates": strconv.Itoa(watched.Frames()),
			"Watched": watched.Elapsed().Round(time.Second).String(),
		})
	}
	printVerboseLog(client)
	return nil
}
