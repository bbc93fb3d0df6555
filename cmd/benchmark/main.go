package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/delaneyj/deptrack/observed"
	"github.com/delaneyj/deptrack/track"
	"github.com/dustin/go-humanize"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"
)

const (
	itersKey      = "iters"
	propagateKey  = "propagate"
	containersKey = "containers"
)

func main() {
	cmd := &cli.Command{
		Name:  "benchmark",
		Usage: "Benchmark slot-level dependency tracking",
		Flags: []cli.Flag{
			&cli.UintFlag{
				Name:  itersKey,
				Usage: "Writes per propagate grid cell",
				Value: 100,
			},
			&cli.BoolFlag{
				Name:  propagateKey,
				Usage: "Run the derived-chain propagation grid",
				Value: true,
			},
			&cli.BoolFlag{
				Name:  containersKey,
				Usage: "Run the container churn scenarios",
				Value: true,
			},
		},
		Action: run,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	start := time.Now()
	log.Print("Starting deptrack benchmark, please wait...")
	defer func() {
		log.Printf("Finished deptrack benchmark in %v", time.Since(start))
	}()

	if cmd.Bool(propagateKey) {
		benchmarkPropagate(int(cmd.Uint(itersKey)))
	}
	if cmd.Bool(containersKey) {
		return benchmarkContainers()
	}
	return nil
}

var (
	ww = []int{1, 10, 100, 1_000}
	hh = []int{1, 10, 100, 1_000}
)

// one source box fanning out to w chains of h derived values each, with an
// effect at the end of every chain
func benchmarkPropagate(iters int) {
	getValue := func(x any) int {
		switch x := x.(type) {
		case *observed.Box[int]:
			return x.Get() + 1
		case *track.Derived[int]:
			v, err := x.Value()
			if err != nil {
				log.Panic(err)
			}
			return v + 1
		default:
			panic("unknown type")
		}
	}

	tbl := table.NewWriter()
	tbl.SetTitle("Deptrack propagate")
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"benchmark", "avg", "min", "p75", "p99", "max"})

	for _, w := range ww {
		for _, h := range hh {
			tach := tachymeter.New(&tachymeter.Config{Size: iters})

			u := track.NewUniverse()
			src := observed.NewBox(u, 1)
			for i := 0; i < w; i++ {
				var last any = src
				for j := 0; j < h; j++ {
					prev := last
					d, err := track.NewDerived(u, func() (int, error) {
						return getValue(prev), nil
					})
					if err != nil {
						log.Panic(err)
					}
					last = d
				}

				leaf := last
				if _, err := track.Register(u, func() (any, error) {
					getValue(leaf)
					return nil, nil
				}); err != nil {
					log.Panic(err)
				}
			}

			for i := 0; i < iters; i++ {
				start := time.Now()
				if err := src.Set(src.Peek() + 1); err != nil {
					log.Panic(err)
				}
				tach.AddTime(time.Since(start))
			}

			calc := tach.Calc()
			tbl.AppendRows([]table.Row{
				{
					fmt.Sprintf("propagate: %d * %d", w, h),
					calc.Time.Avg,
					calc.Time.Min,
					calc.Time.P75,
					calc.Time.P99,
					calc.Time.Max,
				},
			})
		}
	}

	tbl.Render()
}

type containerScenario struct {
	name     string
	entries  int
	watchers int
	churn    int
}

// keyed maps under enumeration-subscribed watchers while keys come and go
func benchmarkContainers() error {
	scenarios := []containerScenario{
		{name: "small quiet", entries: 10, watchers: 1, churn: 10_000},
		{name: "small watched", entries: 10, watchers: 100, churn: 10_000},
		{name: "large quiet", entries: 10_000, watchers: 1, churn: 1_000},
		{name: "large watched", entries: 10_000, watchers: 100, churn: 1_000},
	}

	tbl := tablewriter.NewWriter(os.Stdout)
	tbl.SetHeader([]string{
		"scenario", "entries", "watchers", "churn",
		"notifications", "time", "rate",
	})

	for _, s := range scenarios {
		log.Printf("Running '%s' scenario", s.name)

		u := track.NewUniverse()
		m := observed.NewMap[string, int](u)
		for i := 0; i < s.entries; i++ {
			if err := m.Set(fmt.Sprintf("seed-%d", i), i); err != nil {
				return err
			}
		}

		notifications := 0
		for i := 0; i < s.watchers; i++ {
			if _, err := track.Register(u, func() (any, error) {
				notifications++
				m.Len()
				return nil, nil
			}); err != nil {
				return err
			}
		}
		notifications = 0

		start := time.Now()
		for i := 0; i < s.churn; i++ {
			key := fmt.Sprintf("churn-%d", i)
			if err := m.Set(key, i); err != nil {
				return err
			}
			if err := m.Delete(key); err != nil {
				return err
			}
		}
		dur := time.Since(start)

		rate := float64(notifications) / dur.Seconds()
		tbl.Append([]string{
			s.name,
			humanize.Comma(int64(s.entries)),
			humanize.Comma(int64(s.watchers)),
			humanize.Comma(int64(s.churn)),
			humanize.Comma(int64(notifications)),
			dur.Round(time.Millisecond).String(),
			humanize.CommafWithDigits(rate, 0) + "/s",
		})
	}

	tbl.Render()
	return nil
}
