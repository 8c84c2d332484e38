package cmd

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/achilleasa/kdtrace/scene"
	"github.com/achilleasa/kdtrace/types"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
	"golang.org/x/sync/errgroup"
)

type benchStats struct {
	Worker   int
	Rays     int
	Hits     int
	Duration time.Duration
}

// Fire random rays at the scene from concurrent workers sharing the same
// aggregate and report the query throughput.
func Benchmark(ctx *cli.Context) error {
	setupLogging(ctx)

	numRays := ctx.Int("rays")
	numWorkers := ctx.Int("workers")
	if numRays <= 0 || numWorkers <= 0 {
		return errors.Errorf("rays and workers must be positive; got %d and %d", numRays, numWorkers)
	}

	agg, err := loadScene(ctx)
	if err != nil {
		return err
	}

	stats, elapsed, err := runBenchmark(context.Background(), agg, numRays, numWorkers, ctx.Int64("seed"))
	if err != nil {
		return err
	}

	displayBenchStats(stats, elapsed)
	return nil
}

// Split numRays among numWorkers goroutines. Rays start on a sphere enclosing
// the scene and aim at random points inside the scene bounds.
func runBenchmark(ctx context.Context, agg *scene.Aggregate, numRays, numWorkers int, seed int64) ([]benchStats, time.Duration, error) {
	bounds := agg.Bounds()
	center := bounds.Center()
	radius := bounds.Diagonal().Len()
	if types.AlmostZero(radius) {
		radius = 1
	}

	stats := make([]benchStats, numWorkers)
	var remaining int64 = int64(numRays)

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for worker := 0; worker < numWorkers; worker++ {
		worker := worker
		g.Go(func() error {
			rng := rand.New(rand.NewSource(seed + int64(worker)))
			workerStart := time.Now()
			stat := &stats[worker]
			stat.Worker = worker

			for atomic.AddInt64(&remaining, -1) >= 0 {
				if stat.Rays%1024 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}

				origin := center.Add(randomDirection(rng).Mul(radius))
				target := types.XYZ(
					bounds.Min[0]+rng.Float32()*(bounds.Max[0]-bounds.Min[0]),
					bounds.Min[1]+rng.Float32()*(bounds.Max[1]-bounds.Min[1]),
					bounds.Min[2]+rng.Float32()*(bounds.Max[2]-bounds.Min[2]),
				)
				dir := target.Sub(origin)
				if types.AlmostZero(dir.Len()) {
					continue
				}
				ray := types.NewRay(origin, dir.Normalize())

				tval := types.Inf()
				var isec scene.Intersection
				if agg.Intersect(ray, &tval, &isec) {
					stat.Hits++
				}
				stat.Rays++
			}

			stat.Duration = time.Since(workerStart)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return stats, time.Since(start), nil
}

// Pick a uniformly distributed unit vector.
func randomDirection(rng *rand.Rand) types.Vec3 {
	for {
		v := types.XYZ(rng.Float32()*2-1, rng.Float32()*2-1, rng.Float32()*2-1)
		if l := v.Len(); l > 1e-3 && l <= 1 {
			return v.Mul(1 / l)
		}
	}
}

func displayBenchStats(stats []benchStats, elapsed time.Duration) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Worker", "Rays", "Hits", "Time", "Rays/sec"})

	var totalRays, totalHits int
	for _, stat := range stats {
		totalRays += stat.Rays
		totalHits += stat.Hits
		table.Append([]string{
			fmt.Sprintf("%d", stat.Worker),
			fmt.Sprintf("%d", stat.Rays),
			fmt.Sprintf("%d", stat.Hits),
			stat.Duration.String(),
			fmtRate(stat.Rays, stat.Duration),
		})
	}
	table.SetFooter([]string{"TOTAL", fmt.Sprintf("%d", totalRays), fmt.Sprintf("%d", totalHits), elapsed.String(), fmtRate(totalRays, elapsed)})

	table.Render()
	logger.Noticef("benchmark statistics\n%s", buf.String())
}

func fmtRate(rays int, d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.0f", float64(rays)/d.Seconds())
}
