// Package main - dreamterm
// Terminal presentation client. It renders a session from a running
// server, or from an in-process engine with -local.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/MRamiBalles/DreamSprite/server/internal/scenario"
)

const frameInterval = 100 * time.Millisecond

func main() {
	serverURL := flag.String("url", "ws://localhost:8080/ws", "WebSocket server URL")
	local := flag.Bool("local", false, "Run the session in-process instead of connecting")
	scenarioPath := flag.String("scenario", "", "Scenario YAML for -local (default: embedded)")
	flag.Parse()

	var (
		b   backend
		err error
	)
	if *local {
		sc, lerr := scenario.LoadOrDefault(*scenarioPath)
		if lerr != nil {
			fmt.Fprintln(os.Stderr, "dreamterm: "+lerr.Error())
			os.Exit(1)
		}
		b = newLocalBackend(sc.Setup())
	} else {
		b, err = newRemoteBackend(*serverURL)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
	}
	defer b.Close()

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer screen.Fini()

	run(screen, b)
}

func run(screen tcell.Screen, b backend) {
	v := &view{}
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	quit := make(chan struct{})
	defer close(quit)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case eventChan <- ev:
			case <-quit:
				return
			}
		}
	}()

	journal := b.Events()
	for {
		select {
		case ev := <-eventChan:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				action, send, exit := v.handleKey(ev)
				if exit {
					return
				}
				if send {
					if err := b.Send(action); err != nil {
						v.status = "send failed: " + err.Error()
					} else {
						v.status = ""
					}
				}
			case *tcell.EventResize:
				screen.Sync()
			}

		case snap := <-b.Snapshots():
			v.setSnapshot(snap)

		case e, ok := <-journal:
			if !ok {
				journal = nil
				v.status = "disconnected from server"
				continue
			}
			v.addEvent(e)

		case <-ticker.C:
			v.draw(screen)
		}
	}
}
