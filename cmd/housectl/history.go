package main

import (
	"context"
	"flag"
	"fmt"
	"sort"
	"strings"

	"github.com/google/subcommands"

	"housetrend/internal/report"
	"housetrend/internal/storage"
)

type historyCmd struct {
	limit int
	raw   bool
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "list the archived saves and their mirror status" }
func (*historyCmd) Usage() string {
	return `housectl history [-n <count>] [-raw]

  Lists the latest saves recorded in the snapshot archive, newest first.
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.limit, "n", 20, "number of saves to show")
	f.BoolVar(&c.raw, "raw", false, "print markdown instead of rendering it")
}

func (c *historyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := loadEnv()
	if err != nil {
		fmt.Fprintf(stderrOf(e), "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	if !e.cfg.ArchiveEnabled() {
		e.errorf("snapshot archive disabled, set SQLITE_DB_PATH")
		return subcommands.ExitUsageError
	}
	archive, err := storage.NewSQLiteRepository(e.cfg.SQLiteDBPath)
	if err != nil {
		e.errorf("%v", err)
		return subcommands.ExitFailure
	}
	defer archive.Close()

	list, err := archive.List(ctx, c.limit)
	if err != nil {
		e.errorf("%v", err)
		return subcommands.ExitFailure
	}
	counts, err := archive.CountByStatus(ctx)
	if err != nil {
		e.errorf("%v", err)
		return subcommands.ExitFailure
	}

	md := historyMarkdown(list, counts) + fmt.Sprintf("\n_存档结构版本 %d_\n", archive.SchemaVersion())
	if c.raw {
		fmt.Fprint(e.stdout, md)
		return subcommands.ExitSuccess
	}
	out, err := report.Terminal(md, report.DefaultWidth)
	if err != nil {
		e.errorf("%v", err)
		return subcommands.ExitFailure
	}
	fmt.Fprint(e.stdout, out)
	return subcommands.ExitSuccess
}

func historyMarkdown(list []storage.Snapshot, counts map[string]int) string {
	var b strings.Builder
	b.WriteString("# 保存记录\n\n")
	if len(list) == 0 {
		b.WriteString("暂无记录\n")
		return b.String()
	}
	b.WriteString("| # | 时间 | 目标 | 版本 | 记录数 | 同步 |\n|---:|---|---|---|---:|---|\n")
	for _, s := range list {
		status := s.SyncStatus
		if s.SyncError != "" {
			status += ": " + strings.ReplaceAll(s.SyncError, "|", `\|`)
		}
		version := s.Version
		if version == "" {
			version = "-"
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %d | %s |\n",
			s.ID, s.SavedAt.Local().Format("2006-01-02 15:04:05"), s.Source, version, s.RecordCount, status)
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %d", k, counts[k]))
	}
	fmt.Fprintf(&b, "\n%s\n", strings.Join(parts, " · "))
	return b.String()
}
