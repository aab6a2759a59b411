package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/umputun/go-flags"
	"gopkg.in/natefinch/lumberjack.v2"

	"contractor/internal/adapters/email"
	web "contractor/internal/adapters/http"
	"contractor/internal/adapters/http/perf"
	"contractor/internal/adapters/storage"
	rosterstore "contractor/internal/adapters/storage/roster"
	"contractor/internal/application/orchestrators"
	"contractor/internal/application/projections"
	"contractor/internal/application/workerstore"
)

var opts struct {
	DBPath         string        `long:"db" env:"CONTRACTOR_DB" default:"contractor.db" description:"sqlite database file"`
	Listen         string        `short:"l" long:"listen" env:"CONTRACTOR_LISTEN" default:":8080" description:"listen address"`
	SlotKey        string        `long:"slot-key" env:"CONTRACTOR_SLOT_KEY" default:"contractorData" description:"storage slot holding the roster"`
	SeedFile       string        `long:"seed" env:"CONTRACTOR_SEED" description:"yaml roster loaded when the slot is empty"`
	CSRFKey        string        `long:"csrf-key" env:"CONTRACTOR_CSRF_KEY" description:"hex-encoded 32-byte CSRF secret, random if empty"`
	Secure         bool          `long:"secure" env:"CONTRACTOR_SECURE" description:"serve cookies for HTTPS only"`
	TrustedOrigins []string      `long:"trusted-origin" env:"CONTRACTOR_TRUSTED_ORIGINS" env-delim:"," description:"extra hosts allowed to post forms"`
	RateLimit      float64       `long:"rate-limit" env:"CONTRACTOR_RATE_LIMIT" default:"10" description:"api requests per second per ip"`
	SlowQuery      time.Duration `long:"slow-query" env:"CONTRACTOR_SLOW_QUERY" default:"50ms" description:"slow query warning threshold"`
	SlowRequest    time.Duration `long:"slow-request" env:"CONTRACTOR_SLOW_REQUEST" default:"200ms" description:"slow request warning threshold"`
	Dbg            bool          `long:"dbg" env:"CONTRACTOR_DEBUG" description:"debug mode"`

	Log struct {
		Enabled         bool   `long:"enabled" env:"ENABLED" description:"write logs to a rotated file instead of stdout"`
		FileName        string `long:"file" env:"FILE" default:"contractor.log" description:"log file"`
		MaxSize         int    `long:"max-size" env:"MAX_SIZE" default:"100" description:"max log file size, MB"`
		MaxBackups      int    `long:"max-backups" env:"MAX_BACKUPS" default:"7" description:"max rotated files to keep"`
		MaxAge          int    `long:"max-age" env:"MAX_AGE" default:"0" description:"max days to keep rotated files, 0 keeps all"`
		EnabledCompress bool   `long:"compress" env:"COMPRESS" description:"gzip rotated files"`
	} `group:"log" namespace:"log" env-namespace:"CONTRACTOR_LOG"`

	Summary struct {
		Schedule  string   `long:"schedule" env:"SCHEDULE" description:"cron spec for the payroll summary email, empty disables"`
		To        []string `long:"to" env:"TO" env-delim:"," description:"summary recipient(s)"`
		From      string   `long:"from" env:"FROM" default:"payroll@localhost" description:"summary sender address"`
		ResendKey string   `long:"resend-key" env:"RESEND_KEY" description:"resend api key, noop delivery if empty"`
	} `group:"summary" namespace:"summary" env-namespace:"CONTRACTOR_SUMMARY"`
}

// revision is set at build time via -ldflags "-X main.revision=..."
var revision = "unknown"

func main() {
	fmt.Printf("contractor %s\n", revision)

	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(2)
	}
	setupLog(opts.Dbg, setupLogs())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	signals(cancel) // handle SIGINT and SIGTERM, dump stacks on SIGQUIT

	if err := run(ctx); err != nil {
		log.Fatalf("[ERROR] %v", err)
	}
}

// run wires storage, the worker store, the summary schedule and the web server, and blocks until ctx is done.
func run(ctx context.Context) error {
	csrfKey, err := loadCSRFKey(opts.CSRFKey)
	if err != nil {
		return err
	}

	db, err := storage.Open(opts.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := storage.InitDB(db); err != nil {
		return err
	}

	collector := perf.NewCollector(perf.DefaultRingSize)
	timedDB := storage.NewTimedDB(db, collector, opts.SlowQuery)
	store := workerstore.New(rosterstore.NewSQLiteStore(timedDB, opts.SlotKey))
	store.Load(ctx)

	if opts.SeedFile != "" {
		if _, err := orchestrators.ExecuteSeedRoster(ctx, orchestrators.SeedRosterInput{Path: opts.SeedFile},
			orchestrators.SeedRosterDeps{Roster: store}); err != nil {
			return err
		}
	}

	sender := makeSender()
	sched, err := makeSchedule(ctx, store, sender)
	if err != nil {
		return err
	}
	if sched != nil {
		sched.Start()
		defer func() { <-sched.Stop().Done() }()
	}

	srv, err := web.New(web.Config{
		Store:          store,
		Collector:      collector,
		EmailSender:    sender,
		EmailFrom:      opts.Summary.From,
		SummaryTo:      opts.Summary.To,
		CSRFKey:        csrfKey,
		SecureCookies:  opts.Secure,
		TrustedOrigins: opts.TrustedOrigins,
		RateLimit:      opts.RateLimit,
		SlowRequest:    opts.SlowRequest,
		Version:        revision,
	})
	if err != nil {
		return err
	}
	return srv.Run(ctx, opts.Listen)
}

// loadCSRFKey decodes the hex CSRF secret. An empty key yields a random one, so sessions won't survive a restart.
func loadCSRFKey(keyHex string) ([]byte, error) {
	if keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil || len(key) != 32 {
			return nil, errors.New("csrf key must be 64 hex characters (32 bytes)")
		}
		return key, nil
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate csrf key: %w", err)
	}
	slog.Warn("csrf_key_random", "hint", "set --csrf-key to keep form tokens valid across restarts")
	return key, nil
}

func makeSender() email.Sender {
	if opts.Summary.ResendKey == "" {
		slog.Info("email_event", "event", "sender_configured", "provider", "noop")
		return email.NewNoopSender()
	}
	slog.Info("email_event", "event", "sender_configured", "provider", "resend", "from", opts.Summary.From)
	return email.NewResendSender(opts.Summary.ResendKey, opts.Summary.From)
}

// makeSchedule builds the payroll summary schedule. It returns nil when no
// schedule or no recipients are configured.
func makeSchedule(ctx context.Context, roster projections.RosterReader, sender email.Sender) (*orchestrators.SummarySchedule, error) {
	if opts.Summary.Schedule == "" {
		return nil, nil
	}
	if len(opts.Summary.To) == 0 {
		slog.Warn("summary_schedule_disabled", "reason", "no recipients", "hint", "set --summary.to")
		return nil, nil
	}
	return orchestrators.NewSummarySchedule(opts.Summary.Schedule, func() error {
		_, err := orchestrators.ExecuteSendPayrollSummary(ctx, orchestrators.SendPayrollSummaryInput{To: opts.Summary.To},
			orchestrators.SendPayrollSummaryDeps{Roster: roster, EmailSender: sender, FromAddress: opts.Summary.From})
		return err
	})
}

// setupLogs returns the log destination, a rotated file when --log.enabled is set
func setupLogs() io.Writer {
	if !opts.Log.Enabled {
		return os.Stdout
	}
	return &lumberjack.Logger{
		Filename:   opts.Log.FileName,
		MaxSize:    opts.Log.MaxSize,
		MaxBackups: opts.Log.MaxBackups,
		MaxAge:     opts.Log.MaxAge,
		Compress:   opts.Log.EnabledCompress,
	}
}

// setupLog configures lgr and routes slog through it.
func setupLog(dbg bool, out io.Writer) {
	logOpts := []log.Option{log.Msec, log.Out(out)}
	if dbg {
		logOpts = append(logOpts, log.Debug, log.CallerFunc, log.CallerPkg, log.CallerFile)
	}
	log.Setup(logOpts...)
	slog.SetDefault(slog.New(log.ToSlogHandler(log.Default())))
}

func signals(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	go func() {
		stacktrace := make([]byte, 8192)
		for sig := range sigChan {
			if sig == syscall.SIGQUIT { // catch SIGQUIT and print stack traces
				length := runtime.Stack(stacktrace, true)
				fmt.Println(string(stacktrace[:length]))
				continue
			}
			slog.Info("shutdown_requested", "signal", sig.String())
			cancel()
		}
	}()
	signal.Notify(sigChan, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT)
}
