package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/eiannone/keyboard"

	"go-elevator-logsim/internal/app"
	"go-elevator-logsim/pkg/eventbus"
)

const (
	SourceHall     = "Hall"
	SourceCarPanel = "CarPanel"
)

// console maps single key presses to simulation commands.
// console은 키 입력을 엘리베이터 명령으로 변환합니다.
type console struct {
	app    *app.App
	source string
	out    io.Writer
}

func newConsole(a *app.App, out io.Writer) *console {
	return &console{app: a, source: SourceHall, out: out}
}

func (c *console) help() {
	fmt.Fprintf(c.out, "Floors 1..%d: digits (0 = 10)  c: toggle Hall/CarPanel  s: state  l: logs  h: health  q/Ctrl+C: quit\n",
		c.app.Config.Elevator.Floors)
}

// handleKey runs one command. It reports whether the console should exit.
func (c *console) handleKey(char rune, key keyboard.Key) bool {
	switch {
	case key == keyboard.KeyCtrlC || key == keyboard.KeyEsc || char == 'q':
		return true
	case char >= '1' && char <= '9':
		c.request(int(char - '0'))
	case char == '0':
		c.request(10)
	case char == 'c' || char == 'C':
		if c.source == SourceHall {
			c.source = SourceCarPanel
		} else {
			c.source = SourceHall
		}
		fmt.Fprintf(c.out, "Request source: %s\n", c.source)
	case char == 's':
		c.printState()
	case char == 'l':
		c.printLogs()
	case char == 'h':
		h := c.app.Health()
		fmt.Fprintf(c.out, "Log sink healthy=%v pending=%d written=%d dropped=%d\n", h.Healthy, h.Pending, h.Written, h.Dropped)
	case char == '?':
		c.help()
	}
	return false
}

func (c *console) request(floor int) {
	if floor > c.app.Config.Elevator.Floors {
		fmt.Fprintf(c.out, "No floor %d\n", floor)
		return
	}
	c.app.Request(floor, c.source)
}

func (c *console) printState() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	snap, err := c.app.Snapshot(ctx)
	if err != nil {
		fmt.Fprintf(c.out, "State unavailable: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "%s at F%d (pos %.2f, target F%d, %s), %d queued\n",
		snap.State, snap.NearestFloor, snap.CarPosition, snap.TargetFloor, snap.Direction, len(snap.Queue))
}

func (c *console) printLogs() {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	entries := c.app.Logs(ctx)
	if len(entries) == 0 {
		fmt.Fprintln(c.out, "No persisted logs")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(c.out, "%s  %-12s F%d  %s\n", e.Timestamp.Local().Format("15:04:05.000"), e.EventType, e.Floor, e.Status)
	}
}

// printEvents echoes status changes and trips until events is closed.
func (c *console) printEvents(events <-chan eventbus.Event) {
	for ev := range events {
		switch ev.Type {
		case eventbus.EventStatusChanged:
			fmt.Fprintf(c.out, "[%s] F%d  %s\n", ev.Timestamp.Format("15:04:05.000"), ev.Floor, ev.Status)
		case eventbus.EventTripCompleted:
			fmt.Fprintf(c.out, "[%s] F%d  trip took %dms\n", ev.Timestamp.Format("15:04:05.000"), ev.Floor, ev.ElapsedMs)
		}
	}
}
