package cmd

import (
	"flag"

	"github.com/etnz/irpf"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// flagPredictors are the predictions of the flags taking known values.
var flagPredictors = map[string]complete.Predictor{
	"config":        predict.Files("*.toml"),
	"l":             predict.Files("*.jsonl"),
	"db":            predict.Files("*.db"),
	"consolidation": predict.Set{"yearly", "monthly"},
	"period":        predict.Set{"day", "month", "year"},
	"categories":    categoryCodes(),
	"category":      categoryCodes(),
}

func categoryCodes() predict.Set {
	var codes predict.Set
	for _, c := range irpf.Categories() {
		codes = append(codes, c.Code())
	}
	return codes
}

// Completion returns the shell completion of the application flags and
// commands.
func Completion() *complete.Command {
	root := &complete.Command{
		Sub:   make(map[string]*complete.Command),
		Flags: predictFlags(flag.CommandLine),
	}
	for _, c := range Commands {
		fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
		c.SetFlags(fs)
		root.Sub[c.Name()] = &complete.Command{Flags: predictFlags(fs)}
	}
	root.Sub["help"] = &complete.Command{Args: predict.Set(commandNames())}
	return root
}

func commandNames() []string {
	names := make([]string, 0, len(Commands))
	for _, c := range Commands {
		names = append(names, c.Name())
	}
	return names
}

// predictFlags predicts the flags of fs: nothing after a boolean flag,
// something after the others unless a better prediction is known.
func predictFlags(fs *flag.FlagSet) map[string]complete.Predictor {
	flags := make(map[string]complete.Predictor)
	fs.VisitAll(func(f *flag.Flag) {
		if p, ok := flagPredictors[f.Name]; ok {
			flags[f.Name] = p
			return
		}
		if b, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && b.IsBoolFlag() {
			flags[f.Name] = predict.Nothing
			return
		}
		flags[f.Name] = predict.Something
	})
	return flags
}
