// Command trainer runs an exam session in the terminal on the same storage
// as the server. Progress is auto-saved; interrupting the program makes a
// final save and the session can be resumed on the next start.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/lid-trainer/backend/internal/app"
	"github.com/lid-trainer/backend/internal/autosave"
	"github.com/lid-trainer/backend/internal/domain/question"
	"github.com/lid-trainer/backend/internal/domain/testresult"
	"github.com/lid-trainer/backend/internal/domain/testsession"
	"github.com/lid-trainer/backend/internal/infrastructure/config"
	"github.com/lid-trainer/backend/internal/infrastructure/logger"
	"github.com/lid-trainer/backend/internal/mistakes"
	"github.com/lid-trainer/backend/internal/service"
)

const help = `commands: a|b|c|d answer, n next, p previous, g <n> go to question,
          pause, resume, check, submit, quit`

func main() {
	configDir := flag.String("config", ".", "directory containing config.yaml")
	state := flag.String("state", "", "state code for a state exam, e.g. BY")
	count := flag.Int("count", testsession.QuestionCount, "number of questions")
	lang := flag.String("lang", question.Canonical, "display language: de, en or tr")
	practice := flag.String("practice", "", "practice past mistakes: all, category or tests")
	category := flag.String("category", "", "category for -practice category")
	flag.Parse()

	cfg, err := config.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg.Log.Level = "warn"
	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log, prometheus.NewRegistry())
	if err != nil {
		log.Fatal("failed to initialise", zap.Error(err))
	}
	defer a.Close()

	s, err := openSession(ctx, a.Manager, *state, *count, *lang, *practice, *category)
	if err != nil {
		fmt.Fprintln(os.Stderr, "cannot start:", err)
		return
	}

	attempt, err := a.Manager.OpenAttempt(ctx, s.ID, autosave.Config{
		Interval: cfg.Autosave.Interval,
		Debounce: cfg.Autosave.Debounce,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "cannot open session:", err)
		return
	}

	t := newTerminal(attempt, a.Manager, os.Stdin, *lang)

	go func() {
		res, err := a.Manager.WatchCountdown(ctx, s.ID, time.Second, nil)
		if err == nil && res != nil {
			t.done <- res
		}
	}()

	t.run(ctx)
}

// openSession resumes the open session if there is one, otherwise starts
// a new exam or practice session.
func openSession(ctx context.Context, m *service.Manager, state string, count int, lang, practice, category string) (*testsession.TestSession, error) {
	if s, err := m.ActiveSession(ctx); err == nil {
		fmt.Printf("resuming session started %s\n", s.StartTime.Local().Format(time.Kitchen))
		if s.Status == testsession.StatusPaused {
			return m.ResumeSession(ctx, s.ID)
		}
		return s, nil
	} else if !errors.Is(err, service.ErrNotFound) {
		return nil, err
	}

	if practice != "" {
		return m.CreateMistakePracticeSession(ctx, mistakes.Options{
			Type:     testsession.PracticeType(practice),
			Category: category,
		}, lang)
	}
	return m.CreateSession(ctx, testsession.SessionConfig{
		State:         state,
		QuestionCount: count,
		Language:      lang,
	})
}

type terminal struct {
	attempt *service.Attempt
	manager *service.Manager
	in      io.Reader
	lang    string
	done    chan *testresult.TestResult
}

func newTerminal(attempt *service.Attempt, m *service.Manager, in io.Reader, lang string) *terminal {
	return &terminal{attempt: attempt, manager: m, in: in, lang: lang, done: make(chan *testresult.TestResult, 1)}
}

func (t *terminal) run(ctx context.Context) {
	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(t.in)
		for sc.Scan() {
			lines <- strings.TrimSpace(sc.Text())
		}
		close(lines)
	}()

	fmt.Println(help)
	t.show()
	for {
		select {
		case <-ctx.Done():
			// interrupted: the final save must not inherit the cancelled context
			t.unload(context.WithoutCancel(ctx))
			fmt.Println("\nprogress saved, run again to resume")
			return
		case res := <-t.done:
			fmt.Println("\ntime is up")
			printResult(res)
			return
		case line, ok := <-lines:
			if !ok {
				t.unload(ctx)
				return
			}
			if t.handle(ctx, line) {
				return
			}
		}
	}
}

// handle executes one command and reports whether the program should stop.
func (t *terminal) handle(ctx context.Context, line string) bool {
	cmd, arg, _ := strings.Cut(line, " ")
	_, index := t.attempt.Current()
	var err error

	switch strings.ToLower(cmd) {
	case "a", "b", "c", "d":
		opt, _ := question.ParseOption(cmd)
		q, _ := t.attempt.Current()
		if err = t.attempt.Answer(q.ID, opt); err == nil {
			err = t.attempt.Navigate(ctx, min(index+1, len(t.attempt.Snapshot().Questions)-1))
		}
	case "n":
		err = t.attempt.Navigate(ctx, index+1)
	case "p":
		err = t.attempt.Navigate(ctx, index-1)
	case "g":
		n, convErr := strconv.Atoi(arg)
		if convErr != nil {
			fmt.Println("usage: g <question number>")
			return false
		}
		err = t.attempt.Navigate(ctx, n-1)
	case "pause":
		err = t.attempt.Pause(ctx)
		if err == nil {
			fmt.Println("paused; the exam clock keeps running")
			return false
		}
	case "resume":
		err = t.attempt.Resume(ctx)
	case "check":
		t.check(ctx)
		return false
	case "submit":
		res, err := t.attempt.Complete(ctx)
		if err != nil {
			fmt.Println("error:", err)
			return false
		}
		printResult(res)
		return true
	case "quit", "q":
		t.unload(ctx)
		fmt.Println("progress saved, run again to resume")
		return true
	default:
		fmt.Println(help)
		return false
	}

	if err != nil {
		fmt.Println("error:", err)
	}
	t.show()
	return false
}

func (t *terminal) show() {
	q, i := t.attempt.Current()
	s := t.attempt.Snapshot()
	loc := q.Localize(t.lang)

	remaining := t.attempt.Remaining().Round(time.Second)
	fmt.Printf("\n[%d/%d] %s left, %d answered\n", i+1, len(s.Questions), remaining, s.AnsweredCount())
	fmt.Println(loc.Question)
	for j, opt := range question.Options {
		marker := " "
		if s.Answers[q.ID] == opt {
			marker = "*"
		}
		fmt.Printf(" %s %s) %s\n", marker, opt, loc.Options[j])
	}
}

func (t *terminal) check(ctx context.Context) {
	check, err := t.manager.ValidateSessionForSubmission(ctx, t.attempt.SessionID())
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	if check.OK() && len(check.Warnings) == 0 {
		fmt.Println("ready to submit")
	}
	for _, issue := range check.Errors {
		fmt.Println("error:", issue.Code)
	}
	for _, issue := range check.Warnings {
		fmt.Printf("warning: %s %d\n", issue.Code, issue.Count)
	}
}

func (t *terminal) unload(ctx context.Context) {
	if t.attempt.Unload(ctx) {
		fmt.Fprintln(os.Stderr, "warning: the last changes could not be saved")
	}
}

func printResult(res *testresult.TestResult) {
	verdict := "not passed"
	if res.Passed {
		verdict = "passed"
	}
	fmt.Printf("\n%d/%d correct (%d%%), %s\n", res.Score, res.TotalQuestions, res.Percentage, verdict)
	if res.UnansweredQuestions > 0 {
		fmt.Printf("%d questions unanswered\n", res.UnansweredQuestions)
	}
	for name, c := range res.CategoryBreakdown {
		fmt.Printf("  %-40s %2d/%-2d %3d%%\n", name, c.Correct, c.Total, c.Accuracy)
	}
}
