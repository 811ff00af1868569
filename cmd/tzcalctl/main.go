package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/mo"
	"github.com/urfave/cli"

	"tzcal/internal/calendar"
	"tzcal/internal/capture"
	"tzcal/internal/eventapi"
	"tzcal/internal/ics"
	appLog "tzcal/internal/log"
	"tzcal/internal/model"
	"tzcal/internal/tzconv"
)

func main() {
	app := cli.NewApp()
	app.Name = "tzcalctl"
	app.Usage = "manage events and inspect layouts of a tzcal server"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "server", Value: "http://127.0.0.1:8080", Usage: "tzcal base URL", EnvVar: "TZCAL_SERVER"},
		cli.StringFlag{Name: "user", Usage: "basic auth username", EnvVar: "TZCAL_USER"},
		cli.StringFlag{Name: "password", Usage: "basic auth password", EnvVar: "TZCAL_PASSWORD"},
		cli.StringFlag{Name: "log-level", Value: "error", Usage: "debug, info or error"},
	}
	app.Before = func(c *cli.Context) error {
		appLog.SetLevel(appLog.ParseLevel(c.GlobalString("log-level")))
		return nil
	}
	app.Commands = []cli.Command{
		{
			Name:  "list",
			Usage: "list events",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "tz", Value: "UTC", Usage: "zone to print times in"},
			},
			Action: listCmd,
		},
		{
			Name:  "create",
			Usage: "create an event",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "title"},
				cli.StringFlag{Name: "start", Usage: "YYYY-MM-DDTHH:MM"},
				cli.StringFlag{Name: "end", Usage: "YYYY-MM-DDTHH:MM"},
				cli.StringFlag{Name: "tz", Value: "UTC", Usage: "zone start/end are given in"},
				cli.StringFlag{Name: "description"},
				cli.StringFlag{Name: "color", Usage: "e.g. #ff8800"},
			},
			Action: createCmd,
		},
		{
			Name:      "delete",
			Usage:     "delete an event",
			ArgsUsage: "<id>",
			Action:    deleteCmd,
		},
		{
			Name:  "export",
			Usage: "download all events as iCalendar",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "out", Usage: "output file (default stdout)"},
			},
			Action: exportCmd,
		},
		{
			Name:      "import",
			Usage:     "create events from an .ics file or URL",
			ArgsUsage: "<file.ics|url>",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "tz", Value: "UTC", Usage: "zone imported events are entered in"},
				cli.StringFlag{Name: "cache-dir", Usage: "HTTP cache for URL imports"},
			},
			Action: importCmd,
		},
		{
			Name:  "grid",
			Usage: "fetch events, lay them out locally and print the result",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "view", Value: "week", Usage: "day, week or month"},
				cli.StringFlag{Name: "date", Usage: "anchor date YYYY-MM-DD (default today)"},
				cli.StringFlag{Name: "tz", Value: "UTC", Usage: "reference zone"},
				cli.StringSliceFlag{Name: "zone", Usage: "display zone (repeatable, max 3)"},
				cli.StringFlag{Name: "week-start", Value: "monday"},
				cli.Float64Flag{Name: "hour-height", Value: calendar.DefaultHourHeightPx},
			},
			Action: gridCmd,
		},
		{
			Name:   "snapshot",
			Usage:  "capture an HTML page that renders /api/layout to PNG with headless Chromium",
			Flags:  snapshotFlags(),
			Action: snapshotCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newClient(c *cli.Context) (*eventapi.Client, error) {
	var opts []eventapi.Option
	if user := c.GlobalString("user"); user != "" {
		opts = append(opts, eventapi.WithBasicAuth(user, c.GlobalString("password")))
	}
	return eventapi.New(c.GlobalString("server"), opts...)
}

func listCmd(c *cli.Context) error {
	loc, err := tzconv.Location(c.String("tz"))
	if err != nil {
		return err
	}
	client, err := newClient(c)
	if err != nil {
		return err
	}
	events, err := client.List(context.Background())
	if err != nil {
		return err
	}
	return printEvents(os.Stdout, events, loc)
}

func createCmd(c *cli.Context) error {
	client, err := newClient(c)
	if err != nil {
		return err
	}
	ev, err := client.Create(context.Background(), model.Draft{
		Title:         c.String("title"),
		StartDateTime: c.String("start"),
		EndDateTime:   c.String("end"),
		Timezone:      c.String("tz"),
		Description:   mo.EmptyableToOption(c.String("description")),
		Color:         mo.EmptyableToOption(c.String("color")),
	})
	if err != nil {
		return err
	}
	fmt.Println(ev.ID)
	return nil
}

func deleteCmd(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("usage: tzcalctl delete <id>")
	}
	client, err := newClient(c)
	if err != nil {
		return err
	}
	return client.Delete(context.Background(), c.Args().First())
}

func exportCmd(c *cli.Context) error {
	client, err := newClient(c)
	if err != nil {
		return err
	}
	body, err := client.ExportICS(context.Background())
	if err != nil {
		return err
	}
	if out := c.String("out"); out != "" {
		return os.WriteFile(out, body, 0o644)
	}
	_, err = os.Stdout.Write(body)
	return err
}

func importCmd(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("usage: tzcalctl import <file.ics|url>")
	}
	src := c.Args().First()
	zone := c.String("tz")
	loc, err := tzconv.Location(zone)
	if err != nil {
		return err
	}
	client, err := newClient(c)
	if err != nil {
		return err
	}
	ctx := context.Background()

	body, err := readICS(ctx, src, c.String("cache-dir"))
	if err != nil {
		return err
	}
	parsed, err := ics.ParseICS(body, loc)
	if err != nil {
		return err
	}

	created := 0
	for _, p := range parsed {
		d, err := p.Draft(zone)
		if err != nil {
			return err
		}
		if d.Title == "" {
			d.Title = "(untitled)"
		}
		if _, err := client.Create(ctx, d); err != nil {
			appLog.Error("import: create failed", err, "uid", p.Event.ID)
			continue
		}
		if p.Recurring {
			appLog.Info("import: recurring event imported as its first instance", "uid", p.Event.ID)
		}
		created++
	}
	fmt.Printf("imported %d of %d events\n", created, len(parsed))
	return nil
}

func readICS(ctx context.Context, src, cacheDir string) ([]byte, error) {
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		return os.ReadFile(src)
	}
	if cacheDir == "" {
		if dir, err := os.UserCacheDir(); err == nil {
			cacheDir = filepath.Join(dir, "tzcal", "ics-cache")
		}
	}
	body, _, err := ics.NewFetcher(cacheDir).Fetch(ctx, src)
	return body, err
}

func gridCmd(c *cli.Context) error {
	ref, err := tzconv.Location(c.String("tz"))
	if err != nil {
		return err
	}
	mode, err := calendar.ParseViewMode(c.String("view"))
	if err != nil {
		return err
	}
	client, err := newClient(c)
	if err != nil {
		return err
	}

	now := time.Now()
	session := calendar.NewSession(calendar.Options{
		Reference: ref,
		WeekStart: calendar.ParseWeekStart(c.String("week-start")),
		Geometry:  calendar.NewGridGeometry(c.Float64("hour-height")),
		View:      mode,
	}, now)
	if s := c.String("date"); s != "" {
		anchor, err := calendar.ParseDate(s)
		if err != nil {
			return err
		}
		session.View = calendar.NewViewState(mode, anchor)
	}
	for _, zone := range c.StringSlice("zone") {
		if err := session.Zones.Add(zone); err != nil {
			return err
		}
	}
	if err := session.LoadEvents(context.Background(), client); err != nil {
		return err
	}

	return printLayout(os.Stdout, session.Rebuild(now), ref)
}

// defaultSnapshotSelector waits for any page body. Pages that flag
// themselves ready can pass --selector '[data-ready="true"]'.
const defaultSnapshotSelector = "body"

func snapshotFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{Name: "url", Usage: "HTML rendering surface; tzcal itself serves JSON only"},
		cli.StringFlag{Name: "out", Value: "snapshot.png"},
		cli.IntFlag{Name: "width", Value: capture.DefaultWidth},
		cli.IntFlag{Name: "height", Value: capture.DefaultHeight},
		cli.StringFlag{Name: "selector", Value: defaultSnapshotSelector, Usage: "CSS selector that must be visible before capture"},
		cli.DurationFlag{Name: "timeout", Value: capture.DefaultTimeout},
	}
}

func snapshotCmd(c *cli.Context) error {
	return capture.SnapshotPNG(context.Background(), capture.Options{
		URL:           c.String("url"),
		OutputPath:    c.String("out"),
		Width:         c.Int("width"),
		Height:        c.Int("height"),
		ReadySelector: c.String("selector"),
		Settle:        capture.DefaultSettle,
		Timeout:       c.Duration("timeout"),
	})
}
