// Command jooemon scans for a BlueFrog coffee machine, connects, and prints
// its decoded events to the terminal. It is the driver/CLI glue component
// (§2) — thin wiring over the bluefrog/catalog/adapter packages, not part
// of the core protocol.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"runtime/debug"
	"syscall"
	"time"

	bluefrog "github.com/Jutta-Proto/bluefrog-ble"
	"github.com/Jutta-Proto/bluefrog-ble/catalog"
	"github.com/op/go-logging"
	"github.com/urfave/cli"
)

func useSyslog() bool {
	env := os.Getenv("JOOEMON_LOG_SYSLOG")
	if env != "" {
		return env == "true"
	}
	return false
}

var log *logging.Logger = bluefrog.SetupLogging("jooemon", logging.INFO, useSyslog())

func printEvent(ev bluefrog.Event) {
	switch ev.Kind {
	case bluefrog.EventStateChanged:
		fmt.Println(cyan(fmt.Sprintf("state -> %s", ev.State)))
	case bluefrog.EventManufacturerData:
		fmt.Printf("machine: article %d, serial %d, firmware %d.%d\n",
			ev.ManData.ArticleNumber, ev.ManData.SerialNumber, ev.ManData.BFMajorVersion, ev.ManData.BFMinorVersion)
	case bluefrog.EventJoeChanged:
		if ev.Joe != nil && ev.Joe.Machine != nil {
			fmt.Println(green(fmt.Sprintf("machine description loaded: %s (%d products)", ev.Joe.Machine.Name, len(ev.Joe.Products))))
		}
	case bluefrog.EventAbout:
		fmt.Printf("firmware: bluefrog=%s machine=%s\n", ev.About.BlueFrogVersion, ev.About.MachineVersion)
	case bluefrog.EventAlertsChanged:
		if len(ev.Alerts) == 0 {
			fmt.Println(green("alerts: none"))
		} else {
			fmt.Println(yellow(fmt.Sprintf("alerts: %v", ev.Alerts)))
		}
	case bluefrog.EventProductCounters:
		fmt.Printf("product counters: total=%d by-code=%v\n", ev.Total, ev.ByCode)
	case bluefrog.EventMaintenanceCounters:
		fmt.Printf("maintenance counters: %v\n", ev.Counters)
	case bluefrog.EventMaintenancePercents:
		fmt.Printf("maintenance percents: %v\n", ev.Counters)
	case bluefrog.EventProductProgress:
		fmt.Printf("product progress: % x\n", ev.Raw)
	case bluefrog.EventRx:
		fmt.Printf("uart rx: % x\n", ev.Raw)
	}
}

func scanCommand(c *cli.Context) error {
	namePattern := c.String("name")
	catalogTxt := c.String("catalog")
	catalogDir := c.String("catalog-dir")

	machines, err := catalog.LoadMachines(catalogTxt)
	if err != nil {
		log.Error(err)
		return err
	}

	gattAdapter, err := newPlatformAdapter()
	if err != nil {
		log.Error(err)
		return err
	}

	session := bluefrog.NewSession(gattAdapter, machines, catalogDir, bluefrog.DefaultTimings())

	stopSignal := make(chan os.Signal, 1)
	signal.Notify(stopSignal, os.Interrupt, syscall.SIGTERM)

	go func() {
		for ev := range session.Events() {
			printEvent(ev)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := session.Connect(ctx, regexp.MustCompile(namePattern)); err != nil {
		log.Error(err)
		return err
	}
	log.Notice("connected, press Ctrl-C to disconnect")

	sig := <-stopSignal
	log.Notice("signal received, disconnecting", sig)
	session.Disconnect()
	return nil
}

func main() {
	defer func() {
		if x := recover(); x != nil {
			log.Error(fmt.Sprintf("run time panic: %v", x))
			log.Error(string(debug.Stack()))
			panic(x)
		}
	}()

	app := cli.NewApp()
	app.Name = "jooemon"
	app.Usage = "scan for and drive a BlueFrog coffee machine over BLE"
	app.Version = "0.1.0"
	app.Commands = []cli.Command{
		cli.Command{
			Name:  "scan",
			Usage: "Scan for a machine, connect, and print decoded events until interrupted.",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "name", Value: "^BlueFrog", Usage: "regex to match the advertised name"},
				cli.StringFlag{Name: "catalog", Value: "JOE_MACHINES.TXT", Usage: "path to the machine catalog"},
				cli.StringFlag{Name: "catalog-dir", Value: ".", Usage: "directory containing per-machine XML descriptions"},
			},
			Action: scanCommand,
		},
	}
	app.Run(os.Args)
}
