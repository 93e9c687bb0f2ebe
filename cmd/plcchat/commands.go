package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/Dhanuzh/plcchat/internal/api"
	"github.com/Dhanuzh/plcchat/internal/cache"
	"github.com/Dhanuzh/plcchat/internal/config"
	"github.com/Dhanuzh/plcchat/internal/content"
	"github.com/Dhanuzh/plcchat/internal/export"
	"github.com/Dhanuzh/plcchat/internal/identity"
	"github.com/Dhanuzh/plcchat/internal/render"
	"github.com/Dhanuzh/plcchat/internal/session"
	"github.com/Dhanuzh/plcchat/internal/theme"
)

// ---------------------------------------------------------------------------
// account commands
// ---------------------------------------------------------------------------

func loginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with an ID token",
		Long: `Sign in by pasting the ID token issued by the web login page.
The token is stored in the credentials file; PLCCHAT_ID_TOKEN overrides it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, false, false)
			if err != nil {
				return err
			}
			defer a.Close()

			token, _ := cmd.Flags().GetString("token")
			if token == "" {
				noBrowser, _ := cmd.Flags().GetBool("no-browser")
				if u := a.cfg.LoginURL; u != "" {
					fmt.Printf("Sign in at %s and copy the ID token.\n", u)
					if !noBrowser {
						if err := config.OpenBrowser(u); err != nil {
							a.log.Debug("open browser failed")
						}
					}
				}
				token, err = config.ReadHiddenInput("ID token: ")
				if err != nil {
					return fmt.Errorf("read token: %w", err)
				}
			}
			if token == "" {
				return fmt.Errorf("no token given")
			}

			user, err := a.auth.SignIn(cmd.Context(), token)
			if err != nil {
				return err
			}
			fmt.Printf("Signed in as %s\n", user.Name())
			return nil
		},
	}
	cmd.Flags().String("token", "", "ID token (prompted for when omitted)")
	cmd.Flags().Bool("no-browser", false, "Do not open the login page")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear the local cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, false, false)
			if err != nil {
				return err
			}
			defer a.Close()

			user := a.ident.User()
			if user == nil {
				fmt.Println("Not signed in.")
				return nil
			}
			if a.cache != nil {
				if err := a.cache.Purge(cmd.Context()); err != nil {
					return err
				}
			}
			if err := a.ident.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Printf("Signed out %s\n", user.Name())
			return nil
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, true, false)
			if err != nil {
				return err
			}
			defer a.Close()

			u := a.ident.User()
			fmt.Printf("Name:    %s\n", u.Name())
			if u.Email != "" {
				fmt.Printf("Email:   %s\n", u.Email)
			}
			fmt.Printf("UID:     %s\n", u.UID)
			if exp := a.auth.Expiry(); !exp.IsZero() {
				state := "valid"
				if time.Now().After(exp) {
					state = "expired"
				}
				fmt.Printf("Token:   %s until %s\n", state, exp.Local().Format(time.DateTime))
			}
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// sessions command
// ---------------------------------------------------------------------------

func sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"session", "chats"},
		Short:   "Manage chat sessions",
	}

	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List chat sessions, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, true, false)
			if err != nil {
				return err
			}
			defer a.Close()

			sessions, err := a.client.ListSessions(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return printJSON(os.Stdout, sessions)
			}
			if len(sessions) == 0 {
				fmt.Println("No chats yet. Start one with `plcchat sessions new`.")
				return nil
			}

			fmt.Printf("%-38s %-32s %6s  %s\n", "ID", "Title", "Msgs", "Updated")
			fmt.Println(strings.Repeat("-", 92))
			for _, s := range sessions {
				title := s.Title
				if len([]rune(title)) > 32 {
					title = string([]rune(title)[:31]) + "…"
				}
				updated := ""
				if !s.UpdatedAt.IsZero() {
					updated = s.UpdatedAt.Local().Format("2006-01-02 15:04")
				}
				fmt.Printf("%-38s %-32s %6d  %s\n", s.ID, title, s.MessageCount, updated)
			}
			return nil
		},
	}
	listCmd.Flags().Bool("json", false, "Print the sessions as JSON")

	newCmd := &cobra.Command{
		Use:   "new",
		Short: "Start a new chat session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, true, false)
			if err != nil {
				return err
			}
			defer a.Close()

			id, err := a.client.CreateSession(cmd.Context())
			if err != nil {
				return err
			}
			if title, _ := cmd.Flags().GetString("title"); strings.TrimSpace(title) != "" {
				if err := a.client.RenameSession(cmd.Context(), id, strings.TrimSpace(title)); err != nil {
					return err
				}
			}
			fmt.Println(id)
			return nil
		},
	}
	newCmd.Flags().String("title", "", "Title for the new session")

	renameCmd := &cobra.Command{
		Use:   "rename <session-id> <title...>",
		Short: "Rename a chat session",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.TrimSpace(strings.Join(args[1:], " "))
			if title == "" {
				return fmt.Errorf("title must not be blank")
			}
			a, err := setup(cmd, true, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.client.RenameSession(cmd.Context(), args[0], title); err != nil {
				return sessionErr(args[0], err)
			}
			fmt.Printf("Renamed %s to %q\n", args[0], title)
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:     "delete <session-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a chat session",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, true, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.client.DeleteSession(cmd.Context(), args[0]); err != nil {
				return sessionErr(args[0], err)
			}
			a.dropCachedSession(cmd.Context(), args[0])
			fmt.Printf("Deleted %s\n", args[0])
			return nil
		},
	}

	exportCmd := &cobra.Command{
		Use:   "export <session-id>",
		Short: "Export a chat transcript as Markdown, JSON or YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			name, _ := cmd.Flags().GetString("format")
			if name == "" && output != "" {
				name = filepath.Ext(output)
			}
			if name == "" {
				name = string(export.Markdown)
			}
			format, err := export.ParseFormat(name)
			if err != nil {
				return err
			}

			a, err := setup(cmd, true, false)
			if err != nil {
				return err
			}
			defer a.Close()

			id := args[0]
			msgs, err := a.client.GetMessages(cmd.Context(), id)
			if err != nil {
				return sessionErr(id, err)
			}
			t := export.Transcript{
				Session:    session.ChatSession{ID: id},
				Messages:   msgs,
				ExportedAt: time.Now(),
			}
			if sessions, err := a.client.ListSessions(cmd.Context()); err == nil {
				for _, s := range sessions {
					if s.ID == id {
						t.Session = s
					}
				}
			}

			var w io.Writer = os.Stdout
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create file: %w", err)
				}
				defer f.Close()
				w = f
			}
			if err := export.Write(w, format, t); err != nil {
				return err
			}
			if output != "" {
				fmt.Fprintf(os.Stderr, "Session exported to: %s\n", output)
			}
			return nil
		},
	}
	exportCmd.Flags().StringP("format", "f", "", "Output format (md, json, yaml); defaults to the output extension or md")
	exportCmd.Flags().StringP("output", "o", "", "Output file path (stdout when omitted)")

	cmd.AddCommand(listCmd, newCmd, renameCmd, deleteCmd, exportCmd)

	// Default to list
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return listCmd.RunE(cmd, args)
	}
	return cmd
}

// dropCachedSession forgets a deleted session locally. The service already
// dropped it, so a cache failure is only logged.
func (a *app) dropCachedSession(ctx context.Context, id string) {
	if a.cache == nil {
		return
	}
	if err := a.cache.DeleteSession(ctx, id); err != nil {
		a.log.Debug("drop cached session failed", zap.String("session", id), zap.Error(err))
	}
}

// sessionErr reports a session the service does not know in plain words.
func sessionErr(id string, err error) error {
	if api.IsStatus(err, http.StatusNotFound) {
		return fmt.Errorf("session %s not found", id)
	}
	return err
}

// ---------------------------------------------------------------------------
// send command
// ---------------------------------------------------------------------------

func sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <session-id> <message...>",
		Short: "Send one message and print the reply",
		Long: `Send a message to a chat session without the TUI and print the
rendered reply blocks. The session history is sent along as context.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, true, false)
			if err != nil {
				return err
			}
			defer a.Close()

			store := a.store()
			ctrl, err := a.controller(store)
			if err != nil {
				return err
			}
			defer ctrl.Wait()

			ctx := cmd.Context()
			if err := store.Select(ctx, args[0]); err != nil {
				return sessionErr(args[0], err)
			}
			res, err := ctrl.Send(ctx, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}

			themes := theme.NewRegistry()
			_ = themes.SetCurrent(a.cfg.Theme)
			width := 100
			if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 20 {
				width = w - 2
			}
			r := render.NewRenderer(themes.Current(), width)
			views := render.ViewMessage(string(res.Reply.Role), res.Reply.Timestamp, res.Reply.Content)
			fmt.Println(r.Blocks(views, nil))

			if res.Failed() {
				return res.Err
			}
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// library command
// ---------------------------------------------------------------------------

func libraryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "library",
		Short: "List replies marked accurate",
		Long: `List the question and reply pairs saved to the local response
library with the accuracy feedback in the chat screen.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, true, false)
			if err != nil {
				return err
			}
			defer a.Close()
			if a.cache == nil {
				return fmt.Errorf("local cache unavailable at %s", a.cfg.CachePath)
			}

			all, _ := cmd.Flags().GetBool("all")
			var entries []cache.Entry
			if all {
				entries, err = a.cache.Feedback(cmd.Context())
			} else {
				entries, err = a.cache.Library(cmd.Context())
			}
			if err != nil {
				return err
			}
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return printJSON(os.Stdout, libraryJSON(entries))
			}
			if len(entries) == 0 {
				fmt.Println("The library is empty.")
				return nil
			}
			for _, e := range entries {
				mark := "✓"
				if !e.Accurate {
					mark = "✗"
				}
				fmt.Printf("%s %s  (%s)\n", mark, e.SavedAt.Local().Format("2006-01-02 15:04"), e.SessionID)
				fmt.Printf("  Q: %s\n", oneLine(e.Question, 100))
				fmt.Printf("  A: %s\n\n", oneLine(content.String(content.Normalize(e.Reply)), 100))
			}
			return nil
		},
	}
	cmd.Flags().Bool("all", false, "Include replies marked inaccurate")
	cmd.Flags().Bool("json", false, "Print the entries as JSON")
	return cmd
}

type libraryEntryJSON struct {
	ID        int64           `json:"id"`
	SessionID string          `json:"session_id"`
	Question  string          `json:"question"`
	Reply     json.RawMessage `json:"reply"`
	Accurate  bool            `json:"accurate"`
	SavedAt   time.Time       `json:"saved_at"`
}

func libraryJSON(entries []cache.Entry) []libraryEntryJSON {
	out := make([]libraryEntryJSON, 0, len(entries))
	for _, e := range entries {
		reply, err := content.MarshalJSON(e.Reply)
		if err != nil {
			reply = []byte("null")
		}
		out = append(out, libraryEntryJSON{
			ID:        e.ID,
			SessionID: e.SessionID,
			Question:  e.Question,
			Reply:     reply,
			Accurate:  e.Accurate,
			SavedAt:   e.SavedAt,
		})
	}
	return out
}

// ---------------------------------------------------------------------------
// config and version
// ---------------------------------------------------------------------------

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			applyFlags(cmd, cfg)
			if err := printJSON(os.Stdout, cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				fmt.Fprintf(os.Stderr, "\nWarning: %v\n", err)
			}
			return nil
		},
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("path")
			if path == "" {
				path = config.DefaultConfigPath()
			}
			force, _ := cmd.Flags().GetBool("force")
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.SaveConfig(path); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
			fmt.Printf("Config written to %s\n", path)
			return nil
		},
	}
	initCmd.Flags().String("path", "", "Config file path (default "+config.DefaultConfigPath()+")")
	initCmd.Flags().Bool("force", false, "Overwrite an existing file")

	pathsCmd := &cobra.Command{
		Use:   "paths",
		Short: "Show config sources and file locations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			fmt.Println(config.GetConfigPrecedence())
			fmt.Println()
			fmt.Printf("  Config dir:  %s\n", config.GetConfigDir())
			fmt.Printf("  Credentials: %s\n", cfg.CredentialsPath)
			fmt.Printf("  Cache:       %s\n", cfg.CachePath)
			fmt.Printf("  Log:         %s\n", cfg.LogFile)
			fmt.Printf("  Token env:   %s\n", identity.TokenEnvVar)
			return nil
		},
	}

	cmd.AddCommand(initCmd, pathsCmd)
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("plcchat %s (%s)\n", version, commit)
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// oneLine collapses whitespace and cuts s to n runes.
func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return s
}
