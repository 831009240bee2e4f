package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/2beens/workouttracker/internal/client"
	"github.com/2beens/workouttracker/internal/routines"
	"github.com/2beens/workouttracker/internal/workouts/engine"

	log "github.com/sirupsen/logrus"
)

const helpLine = "[enter] next  [p] pause/resume  [+/-] reps  [f] finish"

type RunCmd struct {
	URL      string `help:"API base URL." default:"http://localhost:3000" env:"WORKOUT_API_URL"`
	Username string `help:"Account username." required:"" env:"WORKOUT_USERNAME"`
	Password string `help:"Account password." required:"" env:"WORKOUT_PASSWORD"`
	Routine  int    `help:"Routine id to run. Lists the routines when omitted."`
}

func (c *RunCmd) Run(ctx context.Context) error {
	api, err := client.New(c.URL)
	if err != nil {
		return err
	}

	me, err := api.Login(ctx, c.Username, c.Password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	defer func() {
		if err := api.Logout(context.Background()); err != nil {
			log.Debugf("logout: %s", err)
		}
	}()
	fmt.Printf("Logged in as %s %s\n", me.Avatar, me.Username)

	if c.Routine == 0 {
		list, err := api.ListRoutines(ctx)
		if err != nil {
			return err
		}
		printRoutines(os.Stdout, list)
		return nil
	}

	started, err := api.StartWorkout(ctx, c.Routine)
	if err != nil {
		return fmt.Errorf("start workout: %w", err)
	}

	e := engine.New(started.SessionID, started.Exercises, time.Now)
	runner := engine.NewRunner(e, api, time.Second)

	fmt.Println(helpLine)
	go readCommands(ctx, os.Stdin, runner)

	done := make(chan struct{})
	go func() {
		defer close(done)
		r := newRenderer(os.Stdout, len(started.Exercises))
		for ev := range runner.Events() {
			r.render(ev)
		}
	}()

	req, err := runner.Run(ctx)
	<-done
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Println("\nWorkout aborted, nothing was saved.")
			return nil
		}
		return err
	}

	fmt.Printf("Saved: %d exercise(s), %s\n", len(req.ExerciseLogs), formatDuration(time.Duration(req.Duration)*time.Second))
	return nil
}

func readCommands(ctx context.Context, in io.Reader, runner *engine.Runner) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		cmd, ok := parseCommand(scanner.Text())
		if !ok {
			fmt.Println(helpLine)
			continue
		}
		if err := runner.Send(ctx, cmd); err != nil {
			return
		}
	}
}

func parseCommand(line string) (engine.Command, bool) {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "", "n", "next":
		return engine.CmdNext, true
	case "p", "pause", "resume":
		return engine.CmdTogglePause, true
	case "+":
		return engine.CmdIncrementReps, true
	case "-":
		return engine.CmdDecrementReps, true
	case "f", "finish", "q":
		return engine.CmdFinish, true
	default:
		return 0, false
	}
}

func printRoutines(w io.Writer, list []routines.Routine) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No routines yet.")
		return
	}
	for _, r := range list {
		fmt.Fprintf(w, "%4d  %-30s %d exercise(s)\n", r.ID, r.Name, r.ExerciseCount)
	}
	fmt.Fprintln(w, "Pick one with --routine <id>.")
}
