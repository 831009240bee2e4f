package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/2beens/workouttracker/internal/logging"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
)

type Globals struct {
	Env      string `help:"Config environment." default:"development" enum:"dev,development,ddev,dockerdev,prod,production"`
	Config   string `help:"Path of the TOML config file." default:"./config.toml" type:"path"`
	EnvFile  string `help:"Optional file with secrets, loaded into the environment." default:".env" name:"envfile"`
	LogLevel string `help:"Log level." default:"warn"`
}

var CLI struct {
	Globals

	Migrate      MigrateCmd      `cmd:"" help:"Apply pending database migrations."`
	HashPassword HashPasswordCmd `cmd:"" help:"Print the bcrypt hash of a password, e.g. for WORKOUT_ADMIN_PASSWORD_HASH."`
	Run          RunCmd          `cmd:"" help:"Run a workout in the terminal against the API."`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kctx := kong.Parse(&CLI,
		kong.Name("workoutctl"),
		kong.Description("Workout tracker operator and terminal client"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	if err := godotenv.Load(CLI.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: load %s: %v\n", CLI.EnvFile, err)
	}

	logging.Setup(logging.LoggerSetupParams{
		LogToStdout: true,
		LogLevel:    CLI.LogLevel,
	})

	err := kctx.Run(&CLI.Globals)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
