package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"housetrend/internal/report"
	"housetrend/internal/stats"
)

// loadEnv builds the command environment; tests swap it.
var loadEnv = newEnv

type statsCmd struct {
	community string
	houseType string
	raw       bool
	width     int
}

func (*statsCmd) Name() string     { return "stats" }
func (*statsCmd) Synopsis() string { return "print the price statistics report" }
func (*statsCmd) Usage() string {
	return `housectl stats [-c <community>] [-t <house type>] [-raw] [-w <width>]

  Loads the document (remote, then local file) and prints the statistics of
  the selection with one line per house type.
`
}

func (c *statsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.community, "c", "", "community filter (empty for all)")
	f.StringVar(&c.houseType, "t", "", "house type filter (empty for all)")
	f.BoolVar(&c.raw, "raw", false, "print markdown instead of rendering it")
	f.IntVar(&c.width, "w", report.DefaultWidth, "word wrap width")
}

func (c *statsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := loadEnv()
	if err != nil {
		fmt.Fprintf(stderrOf(e), "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	s, err := e.open(ctx, false)
	if err != nil {
		e.errorf("%v", err)
		return subcommands.ExitFailure
	}
	defer s.Close()

	store := s.engine.Store()
	md := report.Markdown(store.Site(), stats.Filter{Community: c.community, HouseType: c.houseType}, store.Records())
	md += fmt.Sprintf("\n_数据来源：%s_\n", s.source)
	if c.raw {
		fmt.Fprint(e.stdout, md)
		return subcommands.ExitSuccess
	}
	out, err := report.Terminal(md, c.width)
	if err != nil {
		e.errorf("%v", err)
		return subcommands.ExitFailure
	}
	fmt.Fprint(e.stdout, out)
	return subcommands.ExitSuccess
}
