// Package zkteco provides a Go client for ZKTeco-family biometric
// terminals: user and attendance-log management, device control, and
// real-time event subscription, over either the proprietary TCP framing
// or raw UDP.
//
// Usage:
//
//	c := zkteco.NewClient("192.168.1.201", 4370, 5*time.Second, 0,
//		zkteco.WithLogger(logrus.NewEntry(logrus.StandardLogger())),
//	)
//	if err := c.CreateSocket(ctx, nil, nil); err != nil {
//		log.Fatal(err)
//	}
//	defer c.Disconnect(ctx)
//
//	serial, _ := c.GetSerialNumber(ctx)
//	fmt.Println("Serial:", serial)
package zkteco
