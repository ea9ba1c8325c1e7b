package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/claude/gymtrack/internal/app"
	"github.com/claude/gymtrack/internal/catalog"
	"github.com/claude/gymtrack/internal/config"
	"github.com/claude/gymtrack/internal/importer"
	"github.com/claude/gymtrack/internal/localstore"
	"github.com/claude/gymtrack/internal/models"
	"github.com/claude/gymtrack/internal/remote"
	"github.com/claude/gymtrack/internal/syncqueue"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: gymtrack-sync [-config config.yaml] <command> [args]

Commands:
  register <name>          create an account on the server
  login <userId>           authenticate as an existing user
  status                   show auth, connectivity, and queue state
  sync                     drain the pending-change queue
  force-sync               sync, failing immediately when offline
  log [flags]              record a workout (see: log -h)
  substitutes <id>         suggest alternatives for a piece of equipment
  stats                    print workout statistics
  import <file>            merge an export file into local data
  export <file>            write local data to an export file
`)
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file (missing file uses defaults)")
	version := flag.Bool("version", false, "print version and exit")
	flag.Usage = usage
	flag.Parse()

	if *version {
		fmt.Println("gymtrack-sync", Version)
		return
	}
	if flag.NArg() == 0 {
		usage()
		os.Exit(1)
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg, err := config.LoadClient(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	store, err := localstore.Open(cfg.Client.DataDir, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: opening local store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	cat, err := catalog.LoadEmbedded()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: loading equipment catalog: %v\n", err)
		os.Exit(1)
	}

	rc := remote.New(cfg.Client.ServerURL, store, log)
	notify := syncqueue.NotifierFunc(func(msg string) {
		fmt.Fprintln(os.Stderr, "notice:", msg)
	})
	a := app.New(store, rc, cat, notify, log)

	ctx := context.Background()

	if err := run(ctx, a, store, rc, flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, a *app.App, store *localstore.Store, rc *remote.Client, cmd string, args []string) error {
	switch cmd {
	case "register":
		if len(args) != 1 {
			return fmt.Errorf("usage: register <name>")
		}
		st, err := a.Register(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Registered. Your user id (keep it to log in elsewhere):\n  %s\n", st.UserID)
		return nil

	case "login":
		if len(args) != 1 {
			return fmt.Errorf("usage: login <userId>")
		}
		st, err := a.Login(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Logged in as %s\n", st.UserID)
		return nil

	case "status":
		return cmdStatus(ctx, a, rc)

	case "sync":
		res := a.Sync(ctx)
		printSyncResult(res)
		return nil

	case "force-sync":
		res, err := a.ForceSync(ctx)
		if err != nil {
			return err
		}
		printSyncResult(res)
		return nil

	case "log":
		return cmdLog(ctx, a, args)

	case "substitutes":
		return cmdSubstitutes(a, args)

	case "stats":
		return cmdStats(a)

	case "import":
		if len(args) != 1 {
			return fmt.Errorf("usage: import <file>")
		}
		imp := importer.New(store, a.Catalog(), slog.New(slog.NewTextHandler(os.Stderr, nil)))
		stats, err := imp.ImportFile(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Imported: %d workouts added (%d total), %d templates, settings merged: %v\n",
			stats.WorkoutsAdded, stats.WorkoutsTotal, stats.TemplatesTotal, stats.SettingsMerged)
		return nil

	case "export":
		if len(args) != 1 {
			return fmt.Errorf("usage: export <file>")
		}
		imp := importer.New(store, a.Catalog(), slog.New(slog.NewTextHandler(os.Stderr, nil)))
		if err := imp.ExportFile(args[0]); err != nil {
			return err
		}
		fmt.Printf("Exported to %s\n", args[0])
		return nil

	default:
		return fmt.Errorf("unknown command %q (run with no arguments for usage)", cmd)
	}
}

func cmdStatus(ctx context.Context, a *app.App, rc *remote.Client) error {
	if st, ok := rc.Auth(); ok {
		fmt.Printf("Signed in:  %s\n", st.UserID)
	} else {
		fmt.Println("Signed in:  no")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if rc.Ping(pingCtx) {
		fmt.Println("Server:     reachable")
	} else {
		fmt.Println("Server:     unreachable")
	}

	items, err := a.Queue().Items()
	if err != nil {
		return err
	}
	fmt.Printf("Pending:    %d change(s)\n", len(items))
	for _, item := range items {
		fmt.Printf("  - %s (attempt %d)\n", item.Type, item.RetryCount)
	}
	return nil
}

func cmdLog(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("log", flag.ExitOnError)
	equipmentID := fs.String("equipment", "", "equipment id (required; see substitutes for ids)")
	weight := fs.Float64("weight", 0, "weight used")
	reps := fs.Int("reps", 0, "reps per set")
	sets := fs.Int("sets", 3, "number of sets")
	duration := fs.Int("duration", 45, "workout duration in minutes")
	date := fs.String("date", "", "workout date YYYY-MM-DD (default today)")
	notes := fs.String("notes", "", "free-form notes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *equipmentID == "" {
		fs.Usage()
		return fmt.Errorf("log: -equipment is required")
	}

	w := models.Workout{
		DurationMinutes: *duration,
		Notes:           *notes,
	}
	if *date != "" {
		d, err := time.Parse("2006-01-02", *date)
		if err != nil {
			return fmt.Errorf("log: bad -date %q: %w", *date, err)
		}
		w.Date = d
	}
	ex := models.ExerciseRecord{EquipmentID: *equipmentID}
	for i := 0; i < *sets; i++ {
		ex.Sets = append(ex.Sets, models.SetRecord{Weight: *weight, Reps: *reps, Completed: true})
	}
	w.Exercises = []models.ExerciseRecord{ex}

	saved, err := a.LogWorkout(ctx, w)
	if err != nil {
		return err
	}
	fmt.Printf("Logged workout %s (%s, %d sets)\n", saved.ID, *equipmentID, *sets)
	return nil
}

func cmdSubstitutes(a *app.App, args []string) error {
	fs := flag.NewFlagSet("substitutes", flag.ExitOnError)
	limit := fs.Int("limit", 5, "maximum suggestions")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: substitutes [-limit N] <equipmentId>")
	}

	results, err := a.FindSubstitutes(fs.Arg(0), *limit)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("No substitutes found.")
		return nil
	}
	for _, r := range results {
		fmt.Printf("  %-24s score %3d  (%s, %s)\n",
			r.Equipment.ID, r.Score, r.Equipment.Name, strings.Join(r.Equipment.Muscles.Primary, ", "))
	}
	return nil
}

func cmdStats(a *app.App) error {
	stats, err := a.Statistics()
	if err != nil {
		return err
	}

	fmt.Println("=== Workout Statistics ===")
	fmt.Printf("  Workouts:  %d\n", stats.TotalWorkouts)
	fmt.Printf("  Minutes:   %d\n", stats.TotalMinutes)
	if len(stats.EquipmentUsage) > 0 {
		fmt.Println("  Equipment usage:")
		for id, n := range stats.EquipmentUsage {
			fmt.Printf("    %-24s %d\n", id, n)
		}
	}
	return nil
}

func printSyncResult(res syncqueue.Result) {
	fmt.Printf("Sync: %d processed, %d requeued, %d dropped\n", res.Processed, res.Requeued, res.Evicted)
	switch res.Stopped {
	case "offline":
		fmt.Println("Stopped early: server unreachable. Changes stay queued.")
	case "auth":
		fmt.Println("Stopped early: session expired. Run `gymtrack-sync login <userId>` and sync again.")
	}
}
