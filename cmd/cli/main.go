package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/google/subcommands"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/keshon/orator/internal/client"
	"github.com/keshon/orator/internal/config"
	"github.com/keshon/orator/internal/scaffold"
)

type scaffoldCmd struct {
	force bool
}

func (*scaffoldCmd) Name() string     { return "scaffold" }
func (*scaffoldCmd) Synopsis() string { return "write a starter definitions tree and .env template" }
func (*scaffoldCmd) Usage() string {
	return "scaffold [-force] <dir>:\n  Write example commands, permissions and events into dir.\n"
}

func (c *scaffoldCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.force, "force", false, "overwrite existing files")
}

func (c *scaffoldCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitFailure
	}
	written, err := scaffold.Write(f.Arg(0), c.force)
	if err != nil {
		fmt.Fprintln(os.Stderr, "scaffold:", err)
		return subcommands.ExitFailure
	}
	for _, p := range written {
		fmt.Println("created", p)
	}
	return subcommands.ExitSuccess
}

type validateCmd struct {
	envFile     string
	commands    string
	permissions string
	events      string
	verbose     bool
}

func (*validateCmd) Name() string     { return "validate" }
func (*validateCmd) Synopsis() string { return "load every definition file and report errors" }
func (*validateCmd) Usage() string {
	return "validate [-env file] [-commands dir] [-permissions dir] [-events dir]:\n" +
		"  Load the definitions the bot would load at startup. Paths default to the\n" +
		"  COMMANDS_PATH, PERMISSIONS_PATH and EVENTS_PATH variables.\n"
}

func (c *validateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.envFile, "env", ".env", "dotenv file to read paths from")
	f.StringVar(&c.commands, "commands", "", "commands path")
	f.StringVar(&c.permissions, "permissions", "", "permissions path")
	f.StringVar(&c.events, "events", "", "events path")
	f.BoolVar(&c.verbose, "v", false, "log while loading")
}

func (c *validateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := godotenv.Load(c.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "validate:", err)
		return subcommands.ExitFailure
	}

	cfg := &config.Config{
		DefaultPrefix:   "!",
		CommandsPath:    orEnv(c.commands, "COMMANDS_PATH"),
		PermissionsPath: orEnv(c.permissions, "PERMISSIONS_PATH"),
		EventsPath:      orEnv(c.events, "EVENTS_PATH"),
	}
	if cfg.CommandsPath == "" && cfg.PermissionsPath == "" && cfg.EventsPath == "" {
		fmt.Fprintln(os.Stderr, "validate: no definition paths given")
		return subcommands.ExitFailure
	}

	log := zerolog.Nop()
	if c.verbose {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	cl, err := client.Check(ctx, cfg, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "validate:", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("ok: %d permissions, %d commands, %d events\n",
		cl.Permissions.Len(), cl.Commands.Len(), cl.Events.Len())
	return subcommands.ExitSuccess
}

func orEnv(v, key string) string {
	if v != "" {
		return v
	}
	return os.Getenv(key)
}

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(&scaffoldCmd{}, "")
	subcommands.Register(&validateCmd{}, "")

	flag.Parse()
	os.Exit(exitCode(subcommands.Execute(context.Background())))
}

// exitCode maps every failure, usage errors included, to 1.
func exitCode(status subcommands.ExitStatus) int {
	if status == subcommands.ExitSuccess {
		return 0
	}
	return 1
}
