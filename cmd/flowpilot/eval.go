package main

import (
	"context"
	"fmt"

	"github.com/flowpilot/flowpilot/pkg/api"
	"github.com/flowpilot/flowpilot/pkg/structs"
)

const (
	docEval     = `Run a retrieval evaluation and wait for the result`
	docIngest   = `Ingest (or re-ingest) the retrieval corpus`
	docRetrieve = `Probe the retriever with a query`
)

type optsEval struct {
	optsGeneral

	Kind       string `long:"kind" default:"eval_baseline" description:"One of eval_baseline, eval_advanced, eval_compare"`
	SampleSize int    `long:"sample-size" description:"Override the sample size for this run"`
	TopK       int    `long:"top-k" description:"Override top K for this run"`
	FetchK     int    `long:"fetch-k" description:"Override fetch K for this run"`

	SafeRetry bool `long:"safe-retry" description:"Retry the last failed run with conservative defaults instead"`
}

func (c *optsEval) Execute(args []string) error {
	s, err := c.session()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	s.Evaluation.Load(ctx)

	if c.SafeRetry {
		if err := s.Evaluation.RetrySafeDefaults(ctx); err != nil {
			return err
		}
		return printEvalOutcome(s)
	}

	kind := structs.ToKind(c.Kind)
	ov := &structs.EvalOverrides{SampleSize: c.SampleSize, TopK: c.TopK, FetchK: c.FetchK}
	if err := s.Evaluation.Run(ctx, kind, ov); err != nil {
		return err
	}
	return printEvalOutcome(s)
}

func printEvalOutcome(s *api.Session) error {
	state := s.Evaluation.State()
	if state.LastError != "" {
		return fmt.Errorf("%s", state.LastError)
	}

	job := state.CurrentJob
	if job == nil {
		fmt.Println("no evaluation has run")
		return nil
	}
	fmt.Printf("%s %s: %s\n", job.Kind, job.ID, job.Status)

	if job.Kind == structs.KindEvalCompare {
		result, err := structs.NarrowEvalCompareResult(job.Result)
		if err != nil {
			return err
		}
		printMetrics("baseline", result.Baseline.Metrics)
		printMetrics("advanced", result.Advanced.Metrics)
		printMetrics("delta", result.Delta)
		fmt.Println(result.Conclusion)
		return nil
	}

	result, err := structs.NarrowEvalRunResult(job.Result)
	if err != nil {
		return err
	}
	printMetrics(string(job.Kind), result.Metrics)
	fmt.Println(result.Conclusion)
	return nil
}

func printMetrics(label string, m structs.EvalMetrics) {
	fmt.Printf("  %-10s faithfulness=%.4f precision=%.4f recall=%.4f\n",
		label, m.Faithfulness, m.ContextPrecision, m.ContextRecall)
}

type optsIngest struct {
	optsGeneral

	Force bool `long:"force" description:"Re-ingest even if the collection is populated"`
}

func (c *optsIngest) Execute(args []string) error {
	s, err := c.session()
	if err != nil {
		return err
	}
	defer s.Close()

	resp, err := s.Evaluation.Ingest(context.Background(), c.Force)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d chunks. %s\n", resp.Collection, resp.ChunksTotal, resp.Message)
	return nil
}

type optsRetrieve struct {
	optsGeneral

	Query string `long:"query" required:"true" description:"Free-text query"`
}

func (c *optsRetrieve) Execute(args []string) error {
	s, err := c.session()
	if err != nil {
		return err
	}
	defer s.Close()

	resp, err := s.Evaluation.Retrieve(context.Background(), c.Query)
	if err != nil {
		return err
	}
	for _, chunk := range resp.Chunks {
		fmt.Printf("%.3f %-20s %s\n", chunk.Score, chunk.Source, chunk.Text)
	}
	return nil
}
