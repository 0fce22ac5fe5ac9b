package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"

	"housetrend/internal/csvio"
	"housetrend/internal/datasync"
	"housetrend/internal/stats"
)

type exportCmd struct {
	community string
	houseType string
	output    string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "export the records as CSV" }
func (*exportCmd) Usage() string {
	return `housectl export [-c <community>] [-t <house type>] [-o <file>|-]

  Writes the selected records in the dashboard's CSV format. The default
  file name carries today's date; "-o -" writes to stdout.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.community, "c", "", "community filter")
	f.StringVar(&c.houseType, "t", "", "house type filter")
	f.StringVar(&c.output, "o", "", "output file, - for stdout")
}

func (c *exportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	filter := stats.Filter{Community: c.community, HouseType: c.houseType}
	var buf bytes.Buffer
	if err := csvio.Export(&buf, filter.Apply(s.engine.Store().Records())); err != nil {
		e.errorf("%v", err)
		return subcommands.ExitFailure
	}

	if c.output == "-" {
		_, _ = e.stdout.Write(buf.Bytes())
		return subcommands.ExitSuccess
	}
	name := c.output
	if name == "" {
		name = csvio.FileName(time.Now())
	}
	if err := os.WriteFile(name, buf.Bytes(), 0o644); err != nil {
		e.errorf("write %s: %v", name, err)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(e.stdout, "已导出到 %s\n", name)
	return subcommands.ExitSuccess
}

type importCmd struct{}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "append the rows of a CSV file and save" }
func (*importCmd) Usage() string {
	return `housectl import <file.csv>

  Appends every row with at least five fields, numbering them after the
  highest existing id, then saves to the remote repository or, failing
  that, to the download directory.
`
}

func (*importCmd) SetFlags(*flag.FlagSet) {}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprint(os.Stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	e, err := loadEnv()
	if err != nil {
		fmt.Fprintf(stderrOf(e), "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	file, err := os.Open(f.Arg(0))
	if err != nil {
		e.errorf("读取文件失败: %v", err)
		return subcommands.ExitFailure
	}
	defer file.Close()
	res, err := csvio.Import(file)
	if err != nil {
		e.errorf("%v", err)
		return subcommands.ExitFailure
	}

	s, err := e.open(ctx, true)
	if err != nil {
		e.errorf("%v", err)
		return subcommands.ExitFailure
	}
	defer s.Close()

	added := s.engine.Store().Import(res.Rows)
	fmt.Fprintf(e.stdout, "成功导入 %d 条记录！", len(added))
	if res.NonNumeric > 0 {
		fmt.Fprintf(e.stdout, "其中 %d 条价格或面积不是数字。", res.NonNumeric)
	}
	fmt.Fprintln(e.stdout)
	return reportSave(e, s.engine.Save(ctx))
}

// reportSave prints where the document went and fails only when it went
// nowhere.
func reportSave(e *env, res datasync.SaveResult) subcommands.ExitStatus {
	switch {
	case res.Remote:
		fmt.Fprintf(e.stdout, "数据已成功保存到GitHub！(%s)\n", res.Version)
	case res.Downloaded && res.Conflict():
		fmt.Fprintf(e.stdout, "GitHub上的文件已被其他人修改，已保存到 %s\n", res.Location)
	case res.Downloaded && res.Err != nil:
		fmt.Fprintf(e.stdout, "GitHub保存失败（%v），已保存到 %s\n", res.Err, res.Location)
	case res.Downloaded:
		fmt.Fprintf(e.stdout, "数据已保存到 %s，请手动上传到GitHub仓库的根目录。\n", res.Location)
	default:
		e.errorf("保存失败：%v", res.Err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
