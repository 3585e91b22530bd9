// Command execorch is a thin demonstration CLI that loads an execution plan
// from YAML, wires an in-memory LLMAdapter stub and the Artifact Analyzer /
// Quality Loop / Orchestrator, runs the plan to completion, and prints the
// OrchestratorOutput. It carries no semantics beyond spec.md §6's contracts —
// a wiring demonstration, not a product surface.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/forgeflow/execorch/analyzer"
	"github.com/forgeflow/execorch/blackboard"
	"github.com/forgeflow/execorch/budget"
	"github.com/forgeflow/execorch/config"
	"github.com/forgeflow/execorch/events"
	"github.com/forgeflow/execorch/orchestrator"
	"github.com/forgeflow/execorch/patch"
	"github.com/forgeflow/execorch/plan"
	"github.com/forgeflow/execorch/quality"
	"github.com/forgeflow/execorch/taskrunner"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("execorch: %v", err))
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		planPath           string
		budgetDefaultsPath string
		sessionID          string
		runID              string
	)

	cmd := &cobra.Command{
		Use:   "execorch",
		Short: "Run an execution plan through the orchestration core",
		Long: `execorch loads a YAML execution plan, drives it through the Scheduler,
Task Runner, Patch Merger, and Quality/Repair Loop, and prints the final
orchestration result. It is a wiring demonstration: the LLM adapter, tool
registry, and file storage are in-memory stubs, not a product surface.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd.Context(), planPath, budgetDefaultsPath, sessionID, runID)
		},
	}

	cmd.Flags().StringVar(&planPath, "plan", "", "path to a YAML execution plan (required)")
	cmd.Flags().StringVar(&budgetDefaultsPath, "budget-defaults", "", "optional YAML file of ExecutionBudgetState.limits defaults")
	cmd.Flags().StringVar(&sessionID, "session-id", "demo-session", "session id to attach to the run")
	cmd.Flags().StringVar(&runID, "run-id", "demo-run", "run id to attach to the run")
	_ = cmd.MarkFlagRequired("plan")

	return cmd
}

func runPlan(ctx context.Context, planPath, budgetDefaultsPath, sessionID, runID string) error {
	cfg, err := config.Load(budgetDefaultsPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	f, err := os.Open(planPath)
	if err != nil {
		return fmt.Errorf("open plan: %w", err)
	}
	defer f.Close()

	execPlan, err := plan.LoadYAML(f)
	if err != nil {
		return fmt.Errorf("decode plan: %w", err)
	}

	board := blackboard.New()
	stream := events.NewStream(nil)
	an := analyzer.New()
	merger := patch.NewMerger(board)

	var tracker *budget.Tracker
	if cfg.BudgetDefaults != (budget.Limits{}) {
		tracker = budget.New(cfg.BudgetDefaults)
	}

	runnerOpts := []taskrunner.Option{
		taskrunner.WithEventStream(stream),
		taskrunner.WithPublisher(board),
		taskrunner.WithImportChecker(an),
		taskrunner.WithDefaultTimeout(cfg.DefaultAgentTimeout),
	}
	if tracker != nil {
		runnerOpts = append(runnerOpts, taskrunner.WithBudget(tracker))
	}

	runner := taskrunner.New(newMemoryFiles(), stubPromptBuilders{}, stubRegistry{}, nil, echoAdapter{}, runnerOpts...)
	loop := quality.New(runner, newMemoryFiles(), an, board, stream)
	orch := orchestrator.New(runner, merger, loop, board, stream)

	out, err := orch.Run(ctx, orchestrator.Input{
		SessionID:        sessionID,
		RunID:            runID,
		Plan:             *execPlan,
		SessionDocuments: nil,
	}, tracker)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	printResult(out)
	if !out.Success {
		os.Exit(1)
	}
	return nil
}

func printResult(out orchestrator.Output) {
	status := color.GreenString("PASSED")
	if !out.Success {
		status = color.RedString("FAILED")
	}
	fmt.Printf("run status: %s (score %d/100)\n", status, out.FinalScore)
	fmt.Printf("touched files: %d\n", len(out.TouchedFiles))
	for _, f := range out.TouchedFiles {
		fmt.Printf("  %s\n", f)
	}
	if len(out.DegradedTasks) > 0 {
		fmt.Println(color.YellowString("degraded tasks:"))
		for _, t := range out.DegradedTasks {
			fmt.Printf("  %s\n", t)
		}
	}
	if len(out.UnresolvedIssues) > 0 {
		fmt.Println(color.YellowString("unresolved issues:"))
		for _, issue := range out.UnresolvedIssues {
			fmt.Printf("  %s\n", issue)
		}
	}
	if out.BudgetStopReason != "" {
		fmt.Println(color.YellowString("budget stop reason: %s", out.BudgetStopReason))
	}
}
