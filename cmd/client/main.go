package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/0-th/antenna-client/internal/api"
	"github.com/0-th/antenna-client/internal/cards"
	"github.com/0-th/antenna-client/internal/config"
	"github.com/0-th/antenna-client/internal/hub"
	"github.com/0-th/antenna-client/internal/session"
	"github.com/0-th/antenna-client/internal/ws"
	"github.com/0-th/antenna-client/pkg/types"
)

var roomFlag = flag.String("room", "", "room id (overrides ANTENNA_ROOM)")

func main() {
	flag.Parse()
	cfg := config.Load()
	if *roomFlag != "" {
		cfg.Room = *roomFlag
	}

	logger := buildLogger(cfg.LogLevel)
	defer logger.Sync()

	if cfg.Room == "" {
		fmt.Fprintln(os.Stderr, "no room: set ANTENNA_ROOM or pass -room")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("client exited", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	client, err := api.New(cfg.API, cfg.Token, logger)
	if err != nil {
		return err
	}

	me, err := client.Me(ctx)
	if err != nil {
		return fmt.Errorf("fetch identity: %w", err)
	}
	room, err := client.Room(ctx, cfg.Room)
	if err != nil {
		return fmt.Errorf("fetch room: %w", err)
	}
	fmt.Printf("%s (#%d) joining room %s: %s\n", me.Nickname, me.ID, room.ID, room.Title)

	table, err := client.CardTable(ctx)
	if err != nil {
		logger.Warn("card table unavailable", zap.Error(err))
	}

	conn, err := ws.Dial(ctx, cfg.API, room.ID, cfg.Token, logger)
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer conn.Close()

	// Everything hangs off the group context so that a signal, a read error
	// or a server-side close unwinds the session actor (closing the render
	// outbox) and every tracked goroutine with it.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	sess := session.New(gctx, me.ID, room, conn, logger)
	defer func() { sess.Inbox() <- session.Shutdown{} }()

	h := hub.New(gctx, logger)
	reply := make(chan *session.Session, 1)
	h.Inbox() <- hub.Register{RoomID: room.ID, Session: sess, Reply: reply}
	<-reply

	out := make(chan session.Snapshot, 16)
	sess.Inbox() <- session.Join{SubscriberID: uuid.NewString(), Outbox: out}
	sess.Inbox() <- session.ConnState{Online: true}

	g.Go(func() error {
		// The channel is the client's lifeline: when the read loop ends,
		// cleanly or not, the whole run unwinds.
		defer cancel()
		err := conn.ReadLoop(gctx, func(data []byte) {
			sess.Inbox() <- session.FromServer{Data: data}
		})
		sess.Inbox() <- session.ConnState{Online: false}
		fmt.Println("* connection dropped")
		return err
	})

	g.Go(func() error {
		render(out, table)
		return nil
	})

	// Scan has no cancellation, so stdin is read on an untracked goroutine
	// that is simply abandoned at exit; the tracked consumer selects on the
	// group context so shutdown never waits on a keystroke.
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-gctx.Done():
				return
			}
		}
	}()
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					return nil
				}
				if msg, ok := parseCommand(line); ok {
					sess.Inbox() <- msg
				} else {
					fmt.Println("? commands: seat N, withdraw, start, accept, pass, arena N, hand N, target N|none, queue, end, say ...")
				}
			}
		}
	})

	return g.Wait()
}

// render prints each snapshot delta: new log lines, phase changes and the
// countdown. The session actor owns all state; this layer only reads.
func render(out <-chan session.Snapshot, table cards.Table) {
	seenLog := 0
	lastPhase := ""
	var lastTimer int = -1

	for snap := range out {
		for _, entry := range snap.Log[seenLog:] {
			fmt.Printf("| %s\n", entry.Content)
		}
		seenLog = len(snap.Log)

		if string(snap.Phase) != lastPhase {
			lastPhase = string(snap.Phase)
			fmt.Printf("* phase: %s\n", lastPhase)
		}

		if snap.TimerSeconds != nil && *snap.TimerSeconds != lastTimer {
			lastTimer = *snap.TimerSeconds
			fmt.Printf("* %ds\n", lastTimer)
		}

		if snap.SelfCanAct && snap.Gameplay != nil {
			fmt.Println("* your move, arena:", strings.Join(snap.Gameplay.Arena, " / "))
			for i, name := range snap.Gameplay.Hand {
				reqs := strings.Join(table.Requirements(name), "+")
				fmt.Printf("    [%d] %s (%s)\n", i, name, reqs)
			}
		}
		if snap.SelfIsStoryteller {
			fmt.Println("* you are the storyteller, `end` when finished")
		}
	}
}

func parseCommand(line string) (session.Msg, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, false
	}
	arg := func() (int, bool) {
		if len(fields) < 2 {
			return 0, false
		}
		n, err := strconv.Atoi(fields[1])
		return n, err == nil
	}

	switch fields[0] {
	case "seat":
		if n, ok := arg(); ok {
			return session.Command{Cmd: types.SeatCmd{ProfileID: n}}, true
		}
	case "withdraw":
		return session.Command{Cmd: types.WithdrawCmd{}}, true
	case "start":
		return session.Command{Cmd: types.StartCmd{}}, true
	case "accept":
		return session.Command{Cmd: types.AppointmentAcceptCmd{}}, true
	case "pass":
		return session.Command{Cmd: types.AppointmentPassCmd{}}, true
	case "arena":
		if n, ok := arg(); ok {
			return session.ChooseArena{Index: n}, true
		}
	case "hand":
		if n, ok := arg(); ok {
			return session.ChooseHand{Index: n}, true
		}
	case "target":
		if len(fields) >= 2 && fields[1] == "none" {
			return session.ChooseTarget{Seat: types.NoTarget}, true
		}
		if n, ok := arg(); ok {
			return session.ChooseTarget{Seat: n}, true
		}
	case "queue":
		return session.Command{Cmd: types.QueueCmd{}}, true
	case "end":
		return session.Command{Cmd: types.StorytellingEndCmd{}}, true
	case "say":
		if len(fields) > 1 {
			return session.Command{Cmd: types.CommentCmd{Text: strings.Join(fields[1:], " ")}}, true
		}
	}
	return nil, false
}

func buildLogger(level string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if lvl, err := zap.ParseAtomicLevel(level); err == nil {
		cfg.Level = lvl
	}
	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
