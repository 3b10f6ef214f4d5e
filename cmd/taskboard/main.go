package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/taskboard/internal/app"
	"github.com/nhle/taskboard/internal/credential"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/remote"
	"github.com/nhle/taskboard/internal/session"
)

// Version information set via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-v") {
		fmt.Printf("taskboard %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	cfgPath := os.Getenv("TASKBOARD_CONFIG")
	if cfgPath == "" {
		cfgPath = model.DefaultConfigPath()
	}
	cfg, err := model.LoadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// The terminal belongs to the UI, so log lines go to a file.
	logPath := filepath.Join(filepath.Dir(cfgPath), "taskboard.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err == nil {
		f, err := tea.LogToFile(logPath, "taskboard")
		if err == nil {
			defer f.Close()
		}
	}

	timeout := time.Duration(cfg.Store.TimeoutSec) * time.Second
	opts := []remote.Option{remote.WithTimeout(timeout)}

	sess := session.Guest()
	var (
		sessions *session.Manager
		token    string
	)
	creds, err := credential.Open()
	if err != nil {
		log.Printf("main: keyring unavailable, sessions will not persist: %v", err)
		creds = nil
	} else {
		sessions = session.NewManager(creds)
		if s, err := sessions.Load(); err != nil {
			log.Printf("main: loading session: %v", err)
		} else {
			sess = s
		}

		t, err := creds.Get(credential.KeyStoreToken)
		switch {
		case err == nil:
			token = t
			opts = append(opts, remote.WithAuthToken(token))
		case !errors.Is(err, credential.ErrNotFound):
			log.Printf("main: reading store token: %v", err)
		}
	}

	m := app.New(app.Config{
		Client:       remote.NewClient(cfg.Store.BaseURL, opts...),
		Store:        cfg.Store,
		Sessions:     sessions,
		Session:      sess,
		PollInterval: time.Duration(cfg.Display.PollIntervalSec) * time.Second,
		Timeout:      timeout,
		Settings:     *cfg,
		ConfigPath:   cfgPath,
		Credentials:  creds,
		StoreToken:   token,
	})

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running application: %v\n", err)
		os.Exit(1)
	}
}
