package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/hh-interviewer/internal/ai"
	"github.com/spigell/hh-interviewer/internal/interview"
	"github.com/spigell/hh-interviewer/internal/logger"
	"github.com/spigell/hh-interviewer/internal/report"
)

const (
	PromptGetFeedback = "Get Feedback"
	PromptRestart     = "Restart Interview"
	PromptSaveReport  = "Save report"
	PromptExit        = "Exit"

	banner = "Start by introducing yourself."
)

var errExit = errors.New("exit requested")

var interviewCmd = &cobra.Command{
	Use:   "interview",
	Short: "Run an interactive mock interview in the terminal",
	Run: func(cmd *cobra.Command, _ []string) {
		runInterview(cmd)
	},
}

func init() {
	rootCmd.AddCommand(interviewCmd)

	interviewCmd.Flags().String("report-dir", "", "directory for saved interview reports (default is the system temp dir)")
	viper.BindPFlag("report.dir", interviewCmd.Flags().Lookup("report-dir"))
}

func runInterview(cmd *cobra.Command) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync() //nolint:errcheck

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the hh-interviewer", zap.String("version", version))

	preset, err := interview.DecodeProfile(config.Profile)
	if err != nil {
		logger.Fatal("decoding the profile preset", zap.Error(err))
	}

	engine, err := newEngine(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal("preparing the interviewer", zap.Error(err),
			zap.String("hint", "use --provider mock to try the interview without an API key"),
		)
	}

	state := interview.NewState()
	state.Profile = preset

	sh := &shell{
		engine:    engine,
		state:     state,
		logger:    logger,
		out:       cmd.OutOrStdout(),
		reportDir: config.Report.Dir,
	}

	if err := sh.run(ctx); err != nil && !errors.Is(err, errExit) {
		logger.Fatal("exiting", zap.Error(err))
	}
}

// shell renders the interview phases with promptui.
type shell struct {
	engine    *interview.Engine
	state     *interview.State
	logger    *zap.Logger
	out       io.Writer
	reportDir string
}

func (sh *shell) run(ctx context.Context) error {
	for {
		var err error
		switch sh.state.Phase() {
		case interview.PhaseSetup:
			err = sh.setup()
		case interview.PhaseInterviewing:
			err = sh.turn(ctx)
		case interview.PhaseChatComplete:
			err = sh.chatComplete(ctx)
		case interview.PhaseFeedbackShown:
			err = sh.feedbackShown()
		}

		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				return errExit
			}
			return err
		}
	}
}

func (sh *shell) setup() error {
	p := sh.state.Profile

	fields := []struct {
		label string
		value *string
		limit int
	}{
		{"Name", &p.Name, interview.MaxNameLength},
		{"Experience", &p.Experience, interview.MaxExperienceLength},
		{"Skills", &p.Skills, interview.MaxSkillsLength},
	}
	for _, f := range fields {
		prompt := promptui.Prompt{
			Label:     f.label,
			Default:   *f.value,
			AllowEdit: true,
			Validate:  maxRunes(f.label, f.limit),
		}
		value, err := prompt.Run()
		if err != nil {
			return err
		}
		*f.value = strings.TrimSpace(value)
	}

	choices := []struct {
		label string
		value *string
		items []string
	}{
		{"Level", &p.Level, interview.Levels},
		{"Position", &p.Position, interview.Positions},
		{"Company", &p.Company, interview.Companies},
	}
	for _, c := range choices {
		sel := promptui.Select{
			Label:     c.label,
			Items:     c.items,
			CursorPos: max(slices.Index(c.items, *c.value), 0),
		}
		_, value, err := sel.Run()
		if err != nil {
			return err
		}
		*c.value = value
	}

	if err := sh.engine.SetProfile(sh.state, p); err != nil {
		return err
	}
	if err := sh.engine.CompleteSetup(sh.state); err != nil {
		return err
	}

	fmt.Fprintf(sh.out, "\n%s\n\n", banner)
	return nil
}

func (sh *shell) turn(ctx context.Context) error {
	prompt := promptui.Prompt{
		Label:    fmt.Sprintf("You (%d/%d)", sh.state.UserTurnCount+1, interview.MaxUserTurns),
		Validate: reply,
	}
	text, err := prompt.Run()
	if err != nil {
		return err
	}

	fmt.Fprint(sh.out, "Interviewer: ")
	res, err := sh.engine.SubmitUserTurn(ctx, sh.state, text, func(fragment string) {
		fmt.Fprint(sh.out, fragment)
	})
	fmt.Fprintln(sh.out)

	var verr *interview.ValidationError
	switch {
	case errors.As(err, &verr):
		fmt.Fprintf(sh.out, "%s\n", verr)
		return nil
	case errors.Is(err, ai.ErrModelRequestFailed):
		// The reply is already counted; the candidate just continues.
		fmt.Fprintf(sh.out, "The interviewer could not answer (%s). Please continue.\n", ai.KindOf(err))
		return nil
	case err != nil:
		return err
	}

	if res.ChatComplete {
		fmt.Fprintln(sh.out, "Thank you, the interview is over.")
	}
	return nil
}

func (sh *shell) chatComplete(ctx context.Context) error {
	sel := promptui.Select{
		Label: "Interview complete",
		Items: []string{PromptGetFeedback, PromptExit},
	}
	_, action, err := sel.Run()
	if err != nil {
		return err
	}

	if action == PromptExit {
		return errExit
	}

	fmt.Fprintln(sh.out, "Generating feedback...")
	text, err := sh.engine.RequestFeedback(ctx, sh.state)
	if errors.Is(err, ai.ErrModelRequestFailed) {
		fmt.Fprintf(sh.out, "Feedback is not available right now (%s). Try again.\n", ai.KindOf(err))
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(sh.out, "\n%s\n\n", text)
	return nil
}

func (sh *shell) feedbackShown() error {
	sel := promptui.Select{
		Label: "What next?",
		Items: []string{PromptRestart, PromptSaveReport, PromptExit},
	}
	_, action, err := sel.Run()
	if err != nil {
		return err
	}

	switch action {
	case PromptRestart:
		return sh.engine.Restart(sh.state)
	case PromptSaveReport:
		filename, err := report.Write(sh.reportDir, report.New(sh.state))
		if err != nil {
			return fmt.Errorf("save report: %w", err)
		}
		sh.logger.Info("saving report to file", zap.String("filename", filename))
		fmt.Fprintf(sh.out, "Report saved to %s\n", filename)
		return nil
	case PromptExit:
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func maxRunes(label string, limit int) promptui.ValidateFunc {
	return func(s string) error {
		if utf8.RuneCountInString(s) > limit {
			return fmt.Errorf("%s must be at most %d characters", strings.ToLower(label), limit)
		}
		return nil
	}
}

func reply(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("reply must not be empty")
	}
	return maxRunes("reply", interview.MaxReplyLength)(s)
}
