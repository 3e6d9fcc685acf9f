package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/skyward/groundlink/internal/directory"
	"github.com/skyward/groundlink/internal/session"
	"github.com/skyward/groundlink/internal/telemetry"
	"github.com/skyward/groundlink/pkg/util"
)

type appConfig struct {
	Directory directory.Config `yaml:"directory"`
	Session   session.Config   `yaml:"session"`
	Telemetry telemetry.Config `yaml:"telemetry"`
}

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	room := flag.String("room", "", "room code to join")
	name := flag.String("name", "", "display name")
	create := flag.Bool("create", false, "allocate a new room instead of joining an existing one")
	flag.Parse()

	// Optional .env for local overrides; absence is not an error.
	godotenv.Load()

	cfg, err := util.LoadConfig[appConfig](*cfgPath)
	if err != nil {
		log.Fatalf("FATAL: Error reading configuration file: %v", err)
	}
	if v := os.Getenv("GROUNDLINK_API_URL"); v != "" {
		cfg.Directory.APIBaseURL = v
	}
	if v := os.Getenv("GROUNDLINK_WS_URL"); v != "" {
		cfg.Session.WebSocketURL = v
	}

	if *name == "" {
		log.Fatal("FATAL: -name is required")
	}

	ctx := context.Background()
	dir := directory.New(cfg.Directory)

	code := *room
	if *create {
		code, err = dir.CreateRoom(ctx)
		if err != nil {
			log.Fatalf("FATAL: Could not create room: %v", err)
		}
		log.Printf("Room created: %s", code)
	} else {
		if code == "" {
			log.Fatal("FATAL: -room is required unless -create is set")
		}
		exists, err := dir.RoomExists(ctx, code)
		if err != nil {
			log.Fatalf("FATAL: Could not check room %s: %v", code, err)
		}
		if !exists {
			log.Fatalf("FATAL: Room %s does not exist", code)
		}
	}

	log.Printf("Joining room %s as %s", code, *name)
	ch, err := session.Dial(cfg.Session, code, *name)
	if err != nil {
		log.Fatalf("FATAL: Could not connect to room %s: %v", code, err)
	}
	defer ch.Close()

	simCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	sim := telemetry.New(cfg.Telemetry, nil)
	go sim.Run(simCtx)

	// Relay stdin lines as outgoing chat.
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			if err := ch.Send(scanner.Text()); err != nil {
				log.Printf("send failed: %v", err)
			}
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	readout := time.NewTicker(10 * time.Second)
	defer readout.Stop()

	for {
		select {
		case ev := <-ch.Events():
			printEvent(ev)
			if ev.Kind == session.EventClosed {
				return
			}

		case <-readout.C:
			s := sim.Snapshot().State
			fmt.Printf("[drone] %s | %s | %.4f,%.4f | alt %.0fm | %.1f m/s | batt %.0f%% | range %.0fm\n",
				formatElapsed(s.MissionElapsedSeconds), s.Status, s.Lat, s.Lng,
				s.AltitudeMeters, s.SpeedMps, s.BatteryPercent, s.RangeToTargetMeters)

		case <-interrupt:
			log.Println("Interrupt received. Disconnecting...")
			ch.Close()
			return
		}
	}
}

func printEvent(ev session.Event) {
	switch ev.Kind {
	case session.EventOpen:
		log.Println("Connected.")
	case session.EventChat:
		who := ev.Message.Sender
		if ev.Message.IsOwn {
			who = "you"
		}
		fmt.Printf("[%s] %s: %s\n", ev.Message.Timestamp, who, ev.Message.Text)
	case session.EventMembers:
		log.Printf("%d members online", ev.Count)
	case session.EventRoomNotFound:
		log.Println("Room does not exist.")
	case session.EventReconnecting:
		log.Printf("Connection lost, retrying (attempt %d)...", ev.Attempt)
	case session.EventClosed:
		if ev.Err != nil {
			log.Printf("Session closed: %v", ev.Err)
		} else {
			log.Println("Session closed.")
		}
	}
}

func formatElapsed(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
