package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/pbaille/campusecho/internal/dispatch"
	"github.com/pbaille/campusecho/internal/reminder"
	"github.com/pbaille/campusecho/internal/session"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("87"))
	headingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	promptStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	reminderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

var banner = strings.Repeat("=", 60)

func chatCmd() *cobra.Command {
	var (
		headless    bool
		noReminders bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			a, err := newApp(ctx, appOptions{headless: headless})
			if err != nil {
				return err
			}
			defer a.Close()

			out := &lockedWriter{w: os.Stdout}

			var wg sync.WaitGroup
			if a.cfg.Reminder.Enabled && !noReminders {
				checker := reminder.New(a.store, func(r reminder.Reminder) {
					fmt.Fprintln(out, reminderStyle.Render(r.Message(time.Now())))
				}, reminder.WithLookahead(a.cfg.Reminder.LookaheadDays), reminder.WithLogger(a.log))

				// Show what is already due before the first prompt.
				if _, err := checker.Check(ctx); err != nil {
					a.log.Warn().Err(err).Msg("reminder check failed")
				}
				wg.Add(1)
				go func() {
					defer wg.Done()
					if err := checker.Run(ctx, a.cfg.Reminder.Schedule); err != nil {
						a.log.Warn().Err(err).Msg("reminders stopped")
					}
				}()
			}

			r := &repl{
				dispatcher: a.dispatcher,
				session:    a.sessions.Get("cli"),
				in:         os.Stdin,
				out:        out,
			}
			err = r.run(ctx)

			cancel()
			wg.Wait()
			return err
		},
	}

	cmd.Flags().BoolVar(&headless, "headless", false, "print links instead of opening a browser")
	cmd.Flags().BoolVar(&noReminders, "no-reminders", false, "do not check for due tasks and deadlines")
	return cmd
}

// lockedWriter serializes writes from the REPL and the reminder loop.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

type repl struct {
	dispatcher *dispatch.Dispatcher
	session    *session.Session
	in         io.Reader
	out        io.Writer
}

func (r *repl) run(ctx context.Context) error {
	r.welcome()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Fprint(r.out, promptStyle.Render("You: "))

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.out)
			r.goodbye()
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(r.out)
				r.goodbye()
				return nil
			}
			line = l
		}

		text := strings.TrimSpace(line)
		switch strings.ToLower(text) {
		case "":
			continue
		case "quit", "exit", "bye":
			r.say("Goodbye! Have a great day! 👋")
			r.goodbye()
			return nil
		case "help":
			r.help()
			continue
		case "clear":
			r.session.Reset()
			r.say("Conversation history cleared! 🧹")
			continue
		}

		res, ok := r.dispatcher.Handle(ctx, r.session, text)
		if ok {
			r.say(res.Response)
		}
	}
}

func (r *repl) say(text string) {
	fmt.Fprintf(r.out, "%s%s\n\n", assistantStyle.Render("Assistant: "), text)
}

func (r *repl) welcome() {
	var sb strings.Builder
	sb.WriteString("\n" + titleStyle.Render(banner) + "\n")
	sb.WriteString(titleStyle.Render("🎓 Welcome to CampusEcho!") + "\n")
	sb.WriteString(titleStyle.Render(banner) + "\n")
	sb.WriteString(headingStyle.Render("Your study companion") + "\n\n")
	sb.WriteString("What I can help you with:\n")
	for _, item := range []string{
		"Natural conversation and questions",
		"Task and deadline tracking",
		"Class schedule management",
		"Math calculations",
		"Weather information",
		"Document summarization",
		"YouTube search",
		"Jokes and entertainment",
	} {
		sb.WriteString("  • " + item + "\n")
	}
	sb.WriteString("\n" + mutedStyle.Render("Type 'help' for commands or 'quit' to exit") + "\n")
	sb.WriteString(titleStyle.Render(banner) + "\n\n")
	fmt.Fprint(r.out, sb.String())
}

var helpSections = []struct {
	title string
	lines []string
}{
	{"General Commands", []string{
		"help              - Show this help message",
		"quit/exit/bye     - Exit the assistant",
		"clear             - Clear conversation history",
	}},
	{"Task Management", []string{
		`"Add task: [title] - priority: high due 2026-11-02"`,
		`"Show tasks" / "List tasks"`,
		`"Complete task [id]"`,
	}},
	{"Schedule", []string{
		`"What's my schedule?" / "Today's schedule"`,
		`"Add class: [subject] on [day] at [time]"`,
	}},
	{"Deadlines", []string{
		`"Show deadlines"`,
		`"Add deadline: [type] - [title] on [date]"`,
	}},
	{"Calculations", []string{
		`"Calculate 25 + 17"`,
		`"Calculate 15% of 200"`,
	}},
	{"Weather", []string{
		`"What's the weather in London?"`,
		`"Weather forecast"`,
	}},
	{"Other Features", []string{
		`"Summarize document: [path or URL]"`,
		`"Tell me a joke"`,
		`"Search YouTube for [query]"`,
		`"Open YouTube"`,
	}},
}

func (r *repl) help() {
	var sb strings.Builder
	sb.WriteString("\n" + titleStyle.Render(banner) + "\n")
	sb.WriteString(titleStyle.Render("📚 CampusEcho - Command Reference") + "\n")
	sb.WriteString(titleStyle.Render(banner) + "\n")
	for _, s := range helpSections {
		sb.WriteString("\n" + headingStyle.Render(s.title+":") + "\n")
		for _, l := range s.lines {
			sb.WriteString("  " + l + "\n")
		}
	}
	sb.WriteString("\n" + titleStyle.Render(banner) + "\n\n")
	fmt.Fprint(r.out, sb.String())
}

func (r *repl) goodbye() {
	fmt.Fprintln(r.out, titleStyle.Render("\nThank you for using CampusEcho! 🎓")+"\n")
}
