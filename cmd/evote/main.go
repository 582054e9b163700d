// Command evote is the campus election client: log in, watch the voting
// window, cast a ballot, and export results.
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
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/pemira/evote/internal/api"
	"github.com/pemira/evote/internal/ballot"
	"github.com/pemira/evote/internal/clock"
	"github.com/pemira/evote/internal/config"
	"github.com/pemira/evote/internal/errors"
	"github.com/pemira/evote/internal/export"
	"github.com/pemira/evote/internal/logging"
	"github.com/pemira/evote/internal/models"
	"github.com/pemira/evote/internal/session"
	"github.com/pemira/evote/internal/window"
)

const usage = `usage: evote [-config <path>] <command> [args]

commands:
  login      log in and store the session
  register   create a voter account
  logout     clear all stored sessions
  me         show the logged-in profile
  status     show the voting window (use -watch for a live countdown)
  candidates list the candidate pairs
  vote       cast a ballot for a candidate number
  results    show the tally
  export     write the tally to CSV or PDF
  admin      election administration (open, close, schedule, ...)
`

// env holds everything a subcommand needs once the common setup is done.
type env struct {
	cfg    config.Config
	store  *session.Store
	client *api.Client
	guard  *session.Guard
}

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", defaultConfigPath(), "path to the YAML config file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(err)
	}
	logging.Setup(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	store, err := session.Open(cfg.StatePath)
	if err != nil {
		fatal(err)
	}
	defer store.Close()

	e := &env{
		cfg:    cfg,
		store:  store,
		client: api.New(cfg.BaseURL, store),
		guard:  session.NewGuard(store),
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		err = runLogin(e, rest)
	case "register":
		err = runRegister(e, rest)
	case "logout":
		err = runLogout(e)
	case "me":
		err = runMe(e)
	case "status":
		err = runStatus(e, rest)
	case "candidates":
		err = runCandidates(e)
	case "vote":
		err = runVote(e, rest)
	case "results":
		err = runResults(e)
	case "export":
		err = runExport(e, rest)
	case "admin":
		err = runAdmin(e, rest)
	default:
		fmt.Fprintf(os.Stderr, "evote: unknown command %q\n\n", cmd)
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		fatal(err)
	}
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return dir + "/evote/config.yaml"
}

func fatal(err error) {
	msg := errors.Message(err)
	if msg == "" {
		msg = err.Error()
	}
	fmt.Fprintln(os.Stderr, "evote:", msg)
	os.Exit(1)
}

// prompt reads one line from stdin, used for credentials not passed as
// flags.  Passwords echo; this is a campus election, not a bank.
func prompt(label string) (string, error) {
	fmt.Fprintf(os.Stderr, "%s: ", label)
	sc := bufio.NewScanner(os.Stdin)
	if !sc.Scan() {
		return "", sc.Err()
	}
	return strings.TrimSpace(sc.Text()), nil
}

func runLogin(e *env, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	nim := fs.String("nim", "", "student ID (or admin username)")
	password := fs.String("password", "", "password (prompted if empty)")
	_ = fs.Parse(args)

	var err error
	if *nim == "" {
		if *nim, err = prompt("NIM"); err != nil {
			return err
		}
	}
	if *password == "" {
		if *password, err = prompt("Password"); err != nil {
			return err
		}
	}

	sess, err := e.client.Login(context.Background(), *nim, *password)
	if err != nil {
		return err
	}
	if err := e.store.SetSession(sess); err != nil {
		return err
	}

	fmt.Printf("Logged in as %s (%s)\n", *nim, sess.Role)
	return nil
}

func runRegister(e *env, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	name := fs.String("name", "", "full name")
	nim := fs.String("nim", "", "student ID")
	password := fs.String("password", "", "password (prompted if empty)")
	_ = fs.Parse(args)

	var err error
	if *name == "" {
		if *name, err = prompt("Name"); err != nil {
			return err
		}
	}
	if *nim == "" {
		if *nim, err = prompt("NIM"); err != nil {
			return err
		}
	}
	if *password == "" {
		if *password, err = prompt("Password"); err != nil {
			return err
		}
	}

	reg := models.Registration{Name: *name, NIM: *nim, Password: *password}
	if err := e.client.Register(context.Background(), reg); err != nil {
		return err
	}

	fmt.Println("Account created. Log in with: evote login -nim", *nim)
	return nil
}

func runLogout(e *env) error {
	if err := e.store.Clear(); err != nil {
		return err
	}
	fmt.Println("Logged out.")
	return nil
}

func runMe(e *env) error {
	if _, ok, err := e.store.Session(); err != nil {
		return err
	} else if !ok {
		return errors.E(errors.KindAuthError, "not logged in")
	}

	profile, err := e.client.Me(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("%s (%s)\n", profile.Name, profile.NIM)
	return nil
}

func runStatus(e *env, args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	watch := fs.Bool("watch", false, "keep polling and show a live countdown")
	_ = fs.Parse(args)

	if !*watch {
		st, err := e.client.VotingStatus(context.Background())
		if err != nil {
			return err
		}
		printStatus(st, clock.New())
		return nil
	}

	return watchStatus(e)
}

func printStatus(st models.VotingStatus, clk *clock.Clock) {
	clk.Sync(st.ServerTime)
	phase, countdown, has := window.Derive(st, clk.Now())

	fmt.Println("Voting:", describePhase(phase))
	if st.Scheduled() {
		fmt.Println("Opens: ", st.VotingStart.Local().Format("2006-01-02 15:04:05"))
		fmt.Println("Closes:", st.VotingEnd.Local().Format("2006-01-02 15:04:05"))
	}
	if has {
		fmt.Println("Countdown:", window.FormatCountdown(countdown))
	}
}

func describePhase(p window.Phase) string {
	switch p {
	case window.PhaseOpen, window.PhasePendingClose:
		return "open"
	case window.PhasePendingOpen:
		return "opens soon"
	case window.PhaseEnded:
		return "ended"
	case window.PhaseClosed:
		return "closed"
	default:
		return "unknown"
	}
}

func watchStatus(e *env) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	p := window.NewPoller(e.client, clock.New(), e.cfg.PollInterval)
	p.Cache = e.store

	// show the cached schedule immediately, before the first poll lands
	if st, ok, err := e.store.CachedSchedule(); err == nil && ok {
		p.Seed(st)
	}

	go p.Run(ctx)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Println()
			return nil
		case <-ticker.C:
			snap := p.Snapshot()
			line := "Voting: " + describePhase(snap.Phase)
			if snap.HasCountdown {
				line += "  " + snap.CountdownText()
			}
			if snap.LastErr != nil {
				line += "  (offline, showing last known)"
			}
			// overwrite the previous line in place
			fmt.Printf("\r\033[K%s", line)
		}
	}
}

func runCandidates(e *env) error {
	cands, err := e.client.Candidates(context.Background())
	if err != nil {
		return err
	}

	if len(cands) == 0 {
		fmt.Println("No candidates yet.")
		return nil
	}
	for _, c := range cands {
		fmt.Printf("%d. %s / %s\n", c.Number, c.Name, c.Vice)
		if c.Description != "" {
			fmt.Printf("   %s\n", c.Description)
		}
	}
	return nil
}

func runVote(e *env, args []string) error {
	if len(args) != 1 {
		return errors.E(errors.KindBadRequest, "usage: evote vote <candidate number>")
	}
	number, err := strconv.Atoi(args[0])
	if err != nil {
		return errors.E(errors.KindBadRequest, "candidate number must be numeric")
	}

	sess, err := e.guard.Require(models.RoleUser)
	if err != nil {
		return err
	}
	claims, err := session.DecodeToken(sess.Token, time.Now())
	if err != nil {
		return err
	}

	ctx := context.Background()
	wf := ballot.New(e.client, claims.ID)

	if err := wf.Load(ctx); err != nil {
		if errors.Kind(err) == errors.KindVotingClosed {
			return errors.E(errors.KindVotingClosed, "Voting belum dibuka")
		}
		return err
	}

	if wf.State() == ballot.StateSubmitted {
		if id, ok := wf.Selected(); ok {
			for _, c := range wf.Candidates() {
				if c.ID == id {
					fmt.Printf("You already voted for %d. %s / %s\n", c.Number, c.Name, c.Vice)
					return nil
				}
			}
		}
		fmt.Println("You already voted.")
		return nil
	}

	if err := wf.SelectByNumber(number); err != nil {
		return err
	}
	if err := wf.Submit(ctx); err != nil {
		return err
	}

	fmt.Println("Vote recorded. Thank you for participating.")
	return nil
}

func runResults(e *env) error {
	rows, err := e.client.Results(context.Background())
	if err != nil {
		return err
	}

	if len(rows) == 0 {
		fmt.Println("No results yet.")
		return nil
	}
	for i, r := range rows {
		fmt.Printf("%d. %s / %s: %d votes (%.2f%%)\n", i+1, r.Name, r.Vice, r.TotalVotes, r.Percent)
	}
	return nil
}

func runExport(e *env, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	format := fs.String("format", "csv", "output format: csv or pdf")
	out := fs.String("o", "", "output file (default results.<format>)")
	title := fs.String("title", "Hasil Pemilihan Raya", "report title (pdf only)")
	org := fs.String("org", "", "organization letterhead (pdf only)")
	_ = fs.Parse(args)

	ctx := context.Background()
	rows, err := e.client.Results(ctx)
	if err != nil {
		return err
	}

	path := *out
	if path == "" {
		path = "results." + *format
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	switch *format {
	case "csv":
		err = export.WriteCSV(f, rows)
	case "pdf":
		rep := export.Report{
			Title:        *title,
			Organization: *org,
			GeneratedAt:  time.Now(),
		}
		// participation block needs admin stats; skip it for voters
		if stats, statsErr := e.client.AdminStats(ctx); statsErr == nil {
			rep.Stats = &stats
		}
		err = export.WritePDF(f, rep, rows)
	default:
		return errors.E(errors.KindBadRequest, "format must be csv or pdf")
	}
	if err != nil {
		return err
	}

	fmt.Println("Wrote", path)
	return nil
}

const adminUsage = `usage: evote admin <command> [args]

commands:
  open            open voting immediately
  close           close voting and clear any schedule
  schedule        set the voting window (-start, -end, RFC 3339)
  clear-schedule  remove the scheduled window
  stats           show turnout statistics
  voters          list registered voters
  history         list archived election cycles
  archive         archive the current cycle and reset
  add-candidate   register a candidate pair
  del-candidate   remove a candidate by id
`

func runAdmin(e *env, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, adminUsage)
		os.Exit(2)
	}

	if _, err := e.guard.Require(models.RoleAdmin); err != nil {
		return err
	}

	ctx := context.Background()
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "open":
		if err := e.client.OpenVoting(ctx); err != nil {
			return err
		}
		fmt.Println("Voting is open.")
	case "close":
		if err := e.client.CloseVoting(ctx); err != nil {
			return err
		}
		fmt.Println("Voting is closed.")
	case "schedule":
		return runAdminSchedule(e, rest)
	case "clear-schedule":
		if err := e.client.ClearSchedule(ctx); err != nil {
			return err
		}
		fmt.Println("Schedule cleared.")
	case "stats":
		stats, err := e.client.AdminStats(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Voters:       %d\n", stats.TotalVoters)
		fmt.Printf("Votes cast:   %d\n", stats.TotalVotes)
		fmt.Printf("Candidates:   %d\n", stats.TotalCandidates)
		fmt.Printf("Turnout:      %.2f%%\n", stats.Participation)
	case "voters":
		voters, err := e.client.Voters(ctx)
		if err != nil {
			return err
		}
		for _, v := range voters {
			mark := " "
			if v.HasVoted {
				mark = "x"
			}
			fmt.Printf("[%s] %s  %s\n", mark, v.NIM, v.Name)
		}
	case "history":
		archives, err := e.client.History(ctx)
		if err != nil {
			return err
		}
		if len(archives) == 0 {
			fmt.Println("No archived elections.")
			return nil
		}
		for _, a := range archives {
			fmt.Printf("%s  %s  %d/%d votes\n",
				a.ArchivedAt.Local().Format("2006-01-02 15:04"), a.ID, a.TotalVotes, a.TotalVoters)
		}
	case "archive":
		archive, err := e.client.ArchiveAndReset(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Archived cycle %s (%d votes). Election reset.\n", archive.ID, archive.TotalVotes)
	case "add-candidate":
		return runAdminAddCandidate(e, rest)
	case "del-candidate":
		if len(rest) != 1 {
			return errors.E(errors.KindBadRequest, "usage: evote admin del-candidate <id>")
		}
		if err := e.client.DeleteCandidate(ctx, rest[0]); err != nil {
			return err
		}
		fmt.Println("Candidate removed.")
	default:
		fmt.Fprintf(os.Stderr, "evote admin: unknown command %q\n\n", cmd)
		fmt.Fprint(os.Stderr, adminUsage)
		os.Exit(2)
	}

	return nil
}

func runAdminSchedule(e *env, args []string) error {
	fs := flag.NewFlagSet("schedule", flag.ExitOnError)
	start := fs.String("start", "", "window start, RFC 3339 (e.g. 2026-09-01T08:00:00+07:00)")
	end := fs.String("end", "", "window end, RFC 3339")
	_ = fs.Parse(args)

	startAt, err := time.Parse(time.RFC3339, *start)
	if err != nil {
		return errors.E(errors.KindBadRequest, "start must be RFC 3339")
	}
	endAt, err := time.Parse(time.RFC3339, *end)
	if err != nil {
		return errors.E(errors.KindBadRequest, "end must be RFC 3339")
	}

	if err := e.client.ScheduleVoting(context.Background(), startAt, endAt); err != nil {
		return err
	}

	fmt.Printf("Voting scheduled %s to %s\n",
		startAt.Local().Format("2006-01-02 15:04"), endAt.Local().Format("2006-01-02 15:04"))
	return nil
}

func runAdminAddCandidate(e *env, args []string) error {
	fs := flag.NewFlagSet("add-candidate", flag.ExitOnError)
	name := fs.String("name", "", "candidate name")
	vice := fs.String("vice", "", "running mate name")
	number := fs.Int("number", 0, "ballot number (auto-assigned if 0)")
	description := fs.String("description", "", "platform summary")
	career := fs.String("career", "", "career highlights")
	photo := fs.String("photo", "", "path to the pair's photo")
	_ = fs.Parse(args)

	if *name == "" || *vice == "" {
		return errors.E(errors.KindBadRequest, "-name and -vice are required")
	}

	cand := models.Candidate{
		Number:      *number,
		Name:        *name,
		Vice:        *vice,
		Description: *description,
		Career:      *career,
	}

	var photoFile *os.File
	photoName := ""
	if *photo != "" {
		var err error
		photoFile, err = os.Open(*photo)
		if err != nil {
			return err
		}
		defer photoFile.Close()
		photoName = photoFile.Name()
	}

	var created models.Candidate
	var err error
	if photoFile != nil {
		created, err = e.client.AddCandidate(context.Background(), cand, photoFile, photoName)
	} else {
		created, err = e.client.AddCandidate(context.Background(), cand, nil, "")
	}
	if err != nil {
		return err
	}

	fmt.Printf("Added %d. %s / %s\n", created.Number, created.Name, created.Vice)
	return nil
}
