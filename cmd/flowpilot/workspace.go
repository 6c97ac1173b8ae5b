package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/flowpilot/flowpilot/pkg/api"
)

const (
	docScan   = `Scan a site and wait for the result`
	docSpec   = `Generate a flow spec from the last completed scan`
	docRun    = `Run the selected flow tests and wait for the result`
	docRerun  = `Rerun only the tests that failed in the last run`
	docCancel = `Cancel the in-flight test run`
	docStatus = `Print the current workspace & evaluation state`
)

type optsScan struct {
	optsGeneral

	URL    string `long:"url" required:"true" description:"Target site url"`
	Prompt string `long:"prompt" description:"Optional guidance for the flow-spec agent"`
}

func (c *optsScan) Execute(args []string) error {
	s, err := c.session()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	s.Workspace.Load(ctx)
	s.Workspace.SetTarget(ctx, c.URL, c.Prompt)
	if err := s.Workspace.Scan(ctx); err != nil {
		return err
	}

	state := s.Workspace.State()
	if state.ScanError != "" {
		return fmt.Errorf("%s", state.ScanError)
	}
	fmt.Printf("scan %s: %s (progress %d)\n", state.ScanJob.ID, state.ScanJob.Status, state.ScanJob.Progress)
	return nil
}

type optsSpec struct {
	optsGeneral
}

func (c *optsSpec) Execute(args []string) error {
	s, err := c.session()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	s.Workspace.Load(ctx)
	if err := s.Workspace.GenerateSpec(ctx); err != nil {
		return err
	}

	state := s.Workspace.State()
	for _, t := range state.Spec.Tests {
		fmt.Printf("%s  %-30s [%s] %s\n", t.ID, t.Title, t.Risk, strings.Join(t.Tags, ","))
	}
	return nil
}

type optsRun struct {
	optsGeneral

	Tests []string `long:"test" description:"Test id to run (repeatable); defaults to the current selection"`
}

func (c *optsRun) Execute(args []string) error {
	s, err := c.session()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	s.Workspace.Load(ctx)
	if len(c.Tests) > 0 {
		s.Workspace.ClearSelection(ctx)
		for _, id := range c.Tests {
			s.Workspace.SelectTest(ctx, id)
		}
	}
	if err := s.Workspace.RunSelected(ctx); err != nil {
		return err
	}
	return printRunOutcome(s)
}

type optsRerun struct {
	optsGeneral
}

func (c *optsRerun) Execute(args []string) error {
	s, err := c.session()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	s.Workspace.Load(ctx)
	if err := s.Workspace.RerunFailed(ctx); err != nil {
		return err
	}
	return printRunOutcome(s)
}

type optsCancel struct {
	optsGeneral
}

func (c *optsCancel) Execute(args []string) error {
	s, err := c.session()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	s.Workspace.Load(ctx)
	if err := s.Workspace.CancelRun(ctx); err != nil {
		return err
	}

	state := s.Workspace.State()
	fmt.Printf("run %s: %s\n", state.RunJob.ID, state.RunJob.Status)
	return nil
}

type optsStatus struct {
	optsGeneral
}

func (c *optsStatus) Execute(args []string) error {
	s, err := c.session()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	s.Workspace.Load(ctx)
	s.Evaluation.Load(ctx)

	ws := s.Workspace.State()
	fmt.Println("target:", ws.URL)
	if ws.ScanJob != nil {
		fmt.Printf("scan:   %s %s (progress %d)\n", ws.ScanJob.ID, ws.ScanJob.Status, ws.ScanJob.Progress)
	}
	if ws.Spec != nil {
		fmt.Printf("spec:   %d tests, %d selected\n", len(ws.Spec.Tests), len(ws.SelectedTestIDs))
	}
	if ws.RunJob != nil {
		fmt.Printf("run:    %s %s (progress %d)\n", ws.RunJob.ID, ws.RunJob.Status, ws.RunJob.Progress)
	}
	if ws.RunResult != nil {
		fmt.Printf("result: %d total, %d passed, %d failed\n", ws.RunResult.Total, ws.RunResult.Passed, ws.RunResult.Failed)
	}

	ev := s.Evaluation.State()
	fmt.Printf("eval:   sample_size=%d top_k=%d fetch_k=%d\n", ev.SampleSize, ev.TopK, ev.FetchK)
	for kind, job := range ev.LatestCompleted {
		fmt.Printf("        latest %s: %s\n", kind, job.ID)
	}
	return nil
}

func printRunOutcome(s *api.Session) error {
	state := s.Workspace.State()
	if state.RunError != "" {
		return fmt.Errorf("%s", state.RunError)
	}
	if state.RunResult == nil {
		fmt.Println("no tests were run")
		return nil
	}
	fmt.Printf("%d total, %d passed, %d failed\n", state.RunResult.Total, state.RunResult.Passed, state.RunResult.Failed)
	for _, item := range state.RunResult.Items {
		fmt.Printf("  %s %-30s %s\n", item.ID, item.Title, item.Status)
	}
	return nil
}
