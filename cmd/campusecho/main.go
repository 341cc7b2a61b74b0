package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pbaille/campusecho/internal/api"
	"github.com/pbaille/campusecho/internal/dates"
	"github.com/pbaille/campusecho/internal/docparse"
	"github.com/pbaille/campusecho/internal/domain"
	"github.com/pbaille/campusecho/internal/handlers"
	"github.com/pbaille/campusecho/internal/intent"
	"github.com/pbaille/campusecho/internal/logging"
	"github.com/pbaille/campusecho/internal/priority"
	"github.com/pbaille/campusecho/internal/reminder"
	"github.com/pbaille/campusecho/internal/store"
)

var (
	cfgPath string
	dbPath  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "campusecho",
		Short:         "Study companion: schedule, deadlines, tasks and chat",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default ~/.campusecho/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (overrides storage.db_path)")

	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(classifyCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(deadlineCmd())
	rootCmd.AddCommand(classCmd())
	rootCmd.AddCommand(cacheCmd())
	rootCmd.AddCommand(historyCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

func askCmd() *cobra.Command {
	var headless bool

	cmd := &cobra.Command{
		Use:   "ask [text]",
		Short: "Answer a single query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), appOptions{headless: headless})
			if err != nil {
				return err
			}
			defer a.Close()

			sess := a.sessions.Get("cli")
			res, ok := a.dispatcher.Handle(cmd.Context(), sess, strings.Join(args, " "))
			if !ok {
				return fmt.Errorf("nothing to ask")
			}
			fmt.Println(res.Response)
			return nil
		},
	}

	cmd.Flags().BoolVar(&headless, "headless", false, "print links instead of opening a browser")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP bridge",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, appOptions{jsonLogs: true, headless: true})
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			server := api.New(a.dispatcher, a.sessions, addr, a.log)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return server.Run(gctx) })

			if a.cfg.Reminder.Enabled {
				rlog := logging.Component(a.log, "reminder")
				checker := reminder.New(a.store, func(r reminder.Reminder) {
					rlog.Info().
						Str("kind", string(r.Kind)).
						Str("id", r.ID).
						Str("due", r.DueDate).
						Msg(r.Message(time.Now()))
				}, reminder.WithLookahead(a.cfg.Reminder.LookaheadDays), reminder.WithLogger(a.log))
				g.Go(func() error { return checker.Run(gctx, a.cfg.Reminder.Schedule) })
			}

			return g.Wait()
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (overrides server.addr)")
	return cmd
}

func classifyCmd() *cobra.Command {
	var document string

	cmd := &cobra.Command{
		Use:   "classify [text]",
		Short: "Show how a query is classified, or score a document against every intent",
		RunE: func(cmd *cobra.Command, args []string) error {
			if document == "" && len(args) == 0 {
				return fmt.Errorf("give a query or --document")
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, appOptions{headless: true})
			if err != nil {
				return err
			}
			defer a.Close()

			if document == "" {
				text := strings.Join(args, " ")
				dec := a.classifier.Decide(ctx, text)
				fmt.Printf("Intent:     %s\n", dec.Intent)
				fmt.Printf("Stage:      %s\n", dec.Stage)
				if dec.Keyword != "" {
					fmt.Printf("Keyword:    %s\n", dec.Keyword)
				}
				if dec.Stage != intent.StageKeyword {
					fmt.Printf("Similarity: %.3f\n", dec.Similarity)
				}
				entities := intent.Extract(text, dec.Intent)
				for _, name := range dec.Intent.EntityNames() {
					if v, ok := entities.Get(name); ok {
						fmt.Printf("  %s = %s\n", name, v)
					}
				}
				return nil
			}

			text, err := docparse.Parse(ctx, document)
			if err != nil {
				return err
			}
			if !a.classifier.Ready() {
				return fmt.Errorf("document scoring needs an embedding provider (embedding.provider in config)")
			}
			scores, err := a.classifier.ScoreDocument(ctx, text)
			if err != nil {
				return err
			}

			intents := domain.AllIntents()
			sort.SliceStable(intents, func(i, j int) bool { return scores[intents[i]] > scores[intents[j]] })
			for _, in := range intents {
				fmt.Printf("%-14s %.3f\n", in, scores[in])
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&document, "document", "d", "", "score a document (path or URL) instead of a query")
	return cmd
}

func taskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
	}

	var (
		description string
		level       string
		due         string
	)
	add := &cobra.Command{
		Use:   "add [title]",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			var dueDate *string
			if due != "" {
				d := dates.ParseDate(due)
				dueDate = &d
			}
			t, err := s.AddTask(cmd.Context(), strings.Join(args, " "), description, domain.ParsePriority(level), dueDate)
			if err != nil {
				return err
			}
			fmt.Printf("Added task: %s [%s]\n", t.Title, t.ID[:8])
			return nil
		},
	}
	add.Flags().StringVar(&description, "description", "", "longer description")
	add.Flags().StringVarP(&level, "priority", "p", "medium", "low, medium or high")
	add.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD, MM/DD/YYYY or DD-MM-YYYY)")

	var all bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List open tasks by urgency",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			tasks, err := s.ListTasks(cmd.Context(), false)
			if err != nil {
				return err
			}
			if all {
				done, err := s.ListTasks(cmd.Context(), true)
				if err != nil {
					return err
				}
				tasks = append(tasks, done...)
			}
			if len(tasks) == 0 {
				fmt.Println("No tasks yet. Use 'campusecho task add' to create one.")
				return nil
			}

			priority.SortTasks(tasks, time.Now())
			fmt.Print(handlers.FormatTasks(tasks))
			return nil
		},
	}
	list.Flags().BoolVar(&all, "all", false, "include completed tasks")

	done := &cobra.Command{
		Use:   "done [id]",
		Short: "Mark a task completed (id prefix accepted)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			t, err := s.CompleteTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Completed: %s\n", t.Title)
			return nil
		},
	}

	cmd.AddCommand(add, list, done)
	return cmd
}

func deadlineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deadline",
		Short: "Manage deadlines (exams, fees, library returns...)",
	}

	var (
		description string
		level       string
		due         string
	)
	add := &cobra.Command{
		Use:   "add [type] [title]",
		Short: "Add a deadline",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			var dueDate *string
			if due != "" {
				d := dates.ParseDate(due)
				dueDate = &d
			}
			d, err := s.AddDeadline(cmd.Context(), args[0], strings.Join(args[1:], " "), description,
				domain.ParsePriority(level), dueDate)
			if err != nil {
				return err
			}
			fmt.Printf("Added %s deadline: %s [%s]\n", d.Kind, d.Title, d.ID[:8])
			return nil
		},
	}
	add.Flags().StringVar(&description, "description", "", "longer description")
	add.Flags().StringVarP(&level, "priority", "p", "medium", "low, medium or high")
	add.Flags().StringVar(&due, "due", "", "due date")

	var (
		kind string
		all  bool
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List deadlines by urgency",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			deadlines, err := s.ListDeadlines(cmd.Context(), store.DeadlineFilter{Kind: kind})
			if err != nil {
				return err
			}
			if all {
				done, err := s.ListDeadlines(cmd.Context(), store.DeadlineFilter{Kind: kind, Completed: true})
				if err != nil {
					return err
				}
				deadlines = append(deadlines, done...)
			}
			if len(deadlines) == 0 {
				fmt.Println("No deadlines tracked.")
				return nil
			}

			now := time.Now()
			priority.SortDeadlines(deadlines, now)
			fmt.Print(handlers.FormatDeadlines(deadlines, now))
			return nil
		},
	}
	list.Flags().StringVarP(&kind, "type", "t", "", "only this type (exam, fee, library...)")
	list.Flags().BoolVar(&all, "all", false, "include completed deadlines")

	done := &cobra.Command{
		Use:   "done [id]",
		Short: "Mark a deadline completed (id prefix accepted)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.CompleteDeadline(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("Deadline completed.")
			return nil
		},
	}

	cmd.AddCommand(add, list, done)
	return cmd
}

func classCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "class",
		Short: "Manage the class timetable",
	}

	var entry domain.ClassEntry
	add := &cobra.Command{
		Use:   "add [subject]",
		Short: "Add a class",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			entry.Subject = strings.Join(args, " ")
			entry.Time = dates.ParseTime(entry.Time)
			c, err := s.AddClass(cmd.Context(), entry)
			if err != nil {
				return err
			}
			fmt.Printf("Added %s on %s at %s.\n", c.Subject, c.Day, c.Time)
			return nil
		},
	}
	add.Flags().StringVar(&entry.Day, "day", "", "weekday (required)")
	add.Flags().StringVar(&entry.Time, "time", "", "start time, e.g. 9am or 14:00")
	add.Flags().StringVar(&entry.Location, "location", "", "room or building")
	add.Flags().StringVar(&entry.Notes, "notes", "", "free-form notes")
	add.MarkFlagRequired("day")

	list := &cobra.Command{
		Use:   "list [day]",
		Short: "Show the timetable, optionally for one day",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			day := ""
			if len(args) == 1 {
				day = args[0]
			}
			classes, err := s.ListClasses(cmd.Context(), day)
			if err != nil {
				return err
			}
			if len(classes) == 0 {
				fmt.Println("No classes scheduled.")
				return nil
			}
			fmt.Print(handlers.FormatSchedule(classes))
			return nil
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the response cache",
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show cache size",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			c, err := buildCache(cmd.Context(), cfg.Cache, zerolog.Nop())
			if err != nil {
				return err
			}
			st, err := c.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Backend: %s\n", cfg.Cache.Backend)
			fmt.Printf("Entries: %s\n", humanize.Comma(int64(st.EntryCount)))
			fmt.Printf("Size:    %s\n", humanize.Bytes(uint64(st.TotalBytes)))
			if cfg.Cache.Backend == "memory" {
				fmt.Println("(the memory cache lives only as long as one process)")
			}
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached response",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			c, err := buildCache(cmd.Context(), cfg.Cache, zerolog.Nop())
			if err != nil {
				return err
			}
			if err := c.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Cache cleared.")
			return nil
		},
	}

	cmd.AddCommand(stats, clearCmd)
	return cmd
}

func historyCmd() *cobra.Command {
	var (
		limit     int
		sessionID string
		wipe      bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent conversation turns",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			if wipe {
				if err := s.ClearConversation(cmd.Context(), sessionID); err != nil {
					return err
				}
				fmt.Println("Conversation history cleared.")
				return nil
			}

			turns, err := s.RecentConversation(cmd.Context(), sessionID, limit)
			if err != nil {
				return err
			}
			if len(turns) == 0 {
				fmt.Println("No conversation history.")
				return nil
			}
			for _, t := range turns {
				fmt.Printf("%s  [%s] %s\n", t.Timestamp.Local().Format("2006-01-02 15:04"), t.Intent, truncate(t.UserInput, 60))
				fmt.Printf("                  → %s\n", truncate(t.AssistantResponse, 70))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of turns to show")
	cmd.Flags().StringVar(&sessionID, "session", "", "only this session")
	cmd.Flags().BoolVar(&wipe, "clear", false, "delete history instead of showing it")
	return cmd
}

func truncate(s string, max int) string {
	// Replace newlines with spaces for display
	s = strings.ReplaceAll(s, "\n", " ")
	if len([]rune(s)) <= max {
		return s
	}
	return string([]rune(s)[:max-3]) + "..."
}
