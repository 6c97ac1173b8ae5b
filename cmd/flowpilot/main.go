package main

import (
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

func main() {
	// This main is a thin terminal front-end over the session facade: it
	// renders whatever state the orchestrators expose and invokes their
	// named operations. All lifecycle logic lives under internal/core.
	_ = godotenv.Load()

	parser := flags.NewParser(nil, flags.Default)
	parser.AddCommand("scan", docScan, docScan, &optsScan{})
	parser.AddCommand("spec", docSpec, docSpec, &optsSpec{})
	parser.AddCommand("run", docRun, docRun, &optsRun{})
	parser.AddCommand("rerun-failed", docRerun, docRerun, &optsRerun{})
	parser.AddCommand("cancel", docCancel, docCancel, &optsCancel{})
	parser.AddCommand("eval", docEval, docEval, &optsEval{})
	parser.AddCommand("ingest", docIngest, docIngest, &optsIngest{})
	parser.AddCommand("retrieve", docRetrieve, docRetrieve, &optsRetrieve{})
	parser.AddCommand("status", docStatus, docStatus, &optsStatus{})

	if _, err := parser.Parse(); err != nil {
		switch flagsErr := err.(type) {
		case flags.ErrorType:
			if flagsErr == flags.ErrHelp {
				os.Exit(0)
			}
			os.Exit(1)
		default:
			os.Exit(1)
		}
	}
}
