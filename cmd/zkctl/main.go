// Command zkctl is a small operator CLI over the zkteco client, used to
// exercise a terminal by hand: connect, dump users/attendance, watch
// real-time events, or poke device controls.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zkteco-community/zkgo"
)

var (
	host    string
	port    int
	timeout time.Duration
	inport  int
)

func main() {
	root := &cobra.Command{
		Use:   "zkctl",
		Short: "Operator CLI for ZKTeco-family biometric terminals",
	}
	root.PersistentFlags().StringVar(&host, "host", "192.168.1.201", "device IP address")
	root.PersistentFlags().IntVar(&port, "port", 4370, "device port")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Second, "per-command timeout")
	root.PersistentFlags().IntVar(&inport, "inport", 0, "local UDP port for fallback (0 = any)")

	root.AddCommand(usersCmd(), attlogCmd(), infoCmd(), watchCmd(), restartCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newClient() *zkteco.Client {
	log := logrus.NewEntry(logrus.StandardLogger())
	return zkteco.NewClient(host, port, timeout, inport, zkteco.WithLogger(log))
}

func connect(ctx context.Context, c *zkteco.Client) error {
	return c.CreateSocket(ctx, func(err error) {
		logrus.WithError(err).Warn("device error")
	}, func(t zkteco.ConnectionType) {
		logrus.WithField("transport", t).Info("disconnected")
	})
}

func usersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "Dump the enrolled user table",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c := newClient()
			if err := connect(ctx, c); err != nil {
				return err
			}
			defer c.Disconnect(ctx)

			users, err := c.GetUsers(ctx)
			if err != nil {
				return err
			}
			for _, u := range users {
				fmt.Printf("uid=%d userId=%s name=%q role=%d card=%d\n", u.UID, u.UserID, u.Name, u.Role, u.CardNo)
			}
			return nil
		},
	}
}

func attlogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "attlog",
		Short: "Dump the attendance log",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c := newClient()
			if err := connect(ctx, c); err != nil {
				return err
			}
			defer c.Disconnect(ctx)

			logs, err := c.GetAttendances(ctx, func(received, total int) {
				fmt.Fprintf(os.Stderr, "\r%d/%d bytes", received, total)
			})
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return err
			}
			for _, a := range logs {
				fmt.Printf("uid=%d userId=%s state=%s type=%s time=%s\n",
					a.UID, a.UserID, zkteco.StateName(a.State), zkteco.TypeName(a.Type), a.RecordTime.Format(time.RFC3339))
			}
			return nil
		},
	}
}

func infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print device identity and capacity counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c := newClient()
			if err := connect(ctx, c); err != nil {
				return err
			}
			defer c.Disconnect(ctx)

			info, err := c.GetInfo(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("users=%d logs=%d capacity=%d\n", info.UserCounts, info.LogCounts, info.LogCapacity)

			if c.ConnectionType() == zkteco.ConnTCP {
				if sn, err := c.GetSerialNumber(ctx); err == nil {
					fmt.Println("serial:", sn)
				}
				if fw, err := c.GetFirmware(ctx); err == nil {
					fmt.Println("firmware:", fw)
				}
			}
			return nil
		},
	}
}

func watchCmd() *cobra.Command {
	var duration time.Duration
	c := &cobra.Command{
		Use:   "watch",
		Short: "Stream real-time attendance events",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := newClient()
			if err := connect(ctx, client); err != nil {
				return err
			}
			defer client.Disconnect(ctx)

			return client.GetRealTimeLogs(ctx, func(ev zkteco.RealTimeEvent) {
				fmt.Printf("[%s] user=%s state=%s time=%s\n", ev.EventName, ev.UserID, zkteco.StateName(ev.State), ev.Time.Format(time.RFC3339))
			}, duration)
		},
	}
	c.Flags().DurationVar(&duration, "duration", 0, "stop after this long (0 = run until interrupted)")
	return c
}

func restartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restart",
		Short: "Reboot the device",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c := newClient()
			if err := connect(ctx, c); err != nil {
				return err
			}
			defer c.Disconnect(ctx)
			return c.Restart(ctx)
		},
	}
}
