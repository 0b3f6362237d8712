package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BaoBao112233/AI-single-agent-chat-with-pdf/internal/client"
	"github.com/BaoBao112233/AI-single-agent-chat-with-pdf/internal/session"
	"github.com/BaoBao112233/AI-single-agent-chat-with-pdf/internal/tui"
	"github.com/BaoBao112233/AI-single-agent-chat-with-pdf/pkg/logger"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	var (
		serverURL string
		userID    int64
		sessionID int64
		stateDir  string
		logLevel  string
	)

	flag.StringVar(&serverURL, "server", "http://localhost:5555", "backend base URL")
	flag.Int64Var(&userID, "user", 0, "user identifier")
	flag.Int64Var(&sessionID, "session", 1, "session identifier")
	flag.StringVar(&stateDir, "state-dir", defaultStateDir(), "directory for persisted sessions")
	flag.StringVar(&logLevel, "log-level", "info", "log level")
	flag.Parse()

	if err := logger.Init(logLevel, "text"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}

	store, err := session.NewFileStore(stateDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open state dir: %v\n", err)
		os.Exit(1)
	}

	// The terminal owns stdout; send logs to a file next to the state.
	if logFile, err := os.OpenFile(filepath.Join(stateDir, "pdfchat.log"),
		os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644); err == nil {
		logger.SetOutput(logFile)
		defer logFile.Close()
	}

	api := client.New(serverURL)
	ctrl := session.NewController(api, store, userID, sessionID)

	if err := ctrl.Restore(); err != nil {
		logger.Warnf("Could not restore session: %v", err)
	}

	program := tea.NewProgram(tui.NewModel(ctrl), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pdfchat"
	}
	return filepath.Join(home, ".pdfchat")
}
