package renderer

import (
	"errors"
	"image"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/df07/lumen/pkg/core"
	"github.com/df07/lumen/pkg/sensor"
)

func TestNewTileGrid(t *testing.T) {
	tests := []struct {
		width, height, size int
		tiles               int
	}{
		{64, 64, 32, 4},
		{65, 64, 32, 6},
		{10, 7, 32, 1},
		{100, 50, 0, 8}, // default tile size
	}

	for _, tt := range tests {
		tiles := NewTileGrid(tt.width, tt.height, tt.size)
		if len(tiles) != tt.tiles {
			t.Errorf("%dx%d/%d: got %d tiles, want %d", tt.width, tt.height, tt.size, len(tiles), tt.tiles)
		}

		covered := make([]int, tt.width*tt.height)
		for i, tile := range tiles {
			if tile.ID != i {
				t.Errorf("tile %d has ID %d", i, tile.ID)
			}
			if !tile.Bounds.In(image.Rect(0, 0, tt.width, tt.height)) {
				t.Errorf("tile %v exceeds image", tile.Bounds)
			}
			for y := tile.Bounds.Min.Y; y < tile.Bounds.Max.Y; y++ {
				for x := tile.Bounds.Min.X; x < tile.Bounds.Max.X; x++ {
					covered[y*tt.width+x]++
				}
			}
		}
		for i, c := range covered {
			if c != 1 {
				t.Fatalf("%dx%d: pixel %d covered %d times", tt.width, tt.height, i, c)
			}
		}
	}
}

func TestSplitBudget(t *testing.T) {
	tests := []struct {
		total int64
		parts int
		want  []int64
	}{
		{10, 3, []int64{4, 3, 3}},
		{9, 3, []int64{3, 3, 3}},
		{2, 5, []int64{1, 1}},
		{0, 4, nil},
		{5, 0, nil},
	}
	for _, tt := range tests {
		got := SplitBudget(tt.total, tt.parts)
		if len(got) != len(tt.want) {
			t.Errorf("SplitBudget(%d, %d) = %v, want %v", tt.total, tt.parts, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("SplitBudget(%d, %d) = %v, want %v", tt.total, tt.parts, got, tt.want)
				break
			}
		}
	}
}

// runDraws runs one task per id and records the first random number each sees
func runDraws(t *testing.T, workers int, ids int) []float64 {
	t.Helper()
	pool := NewWorkerPool(workers, 99)
	defer pool.Stop()

	draws := make([]float64, ids)
	var mu sync.Mutex
	tasks := make([]Task, ids)
	for i := range tasks {
		tasks[i] = Task{ID: i, Run: func(stream *core.RandomStream) TaskStats {
			v := stream.Get1D()
			mu.Lock()
			draws[i] = v
			mu.Unlock()
			return TaskStats{Samples: 1}
		}}
	}
	if err := pool.Run(tasks, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return draws
}

func TestWorkerPoolDeterministic(t *testing.T) {
	one := runDraws(t, 1, 50)
	many := runDraws(t, 7, 50)
	for i := range one {
		if one[i] != many[i] {
			t.Fatalf("task %d: 1 worker drew %v, 7 workers drew %v", i, one[i], many[i])
		}
	}
	if one[0] == one[1] {
		t.Error("different tasks should see different streams")
	}
}

func TestWorkerPoolPhasesDiffer(t *testing.T) {
	pool := NewWorkerPool(2, 1)
	defer pool.Stop()

	var a, b float64
	err := pool.Run([]Task{
		{ID: 0, Phase: 0, Run: func(s *core.RandomStream) TaskStats { a = s.Get1D(); return TaskStats{} }},
		{ID: 0, Phase: 1, Run: func(s *core.RandomStream) TaskStats { b = s.Get1D(); return TaskStats{} }},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("same task id in different phases should see different streams")
	}
}

func TestWorkerPoolRecoversInvariantViolation(t *testing.T) {
	pool := NewWorkerPool(3, 5)
	defer pool.Stop()

	tasks := make([]Task, 20)
	for i := range tasks {
		tasks[i] = Task{ID: i, Run: func(stream *core.RandomStream) TaskStats {
			if i == 4 {
				core.CheckRadiance("test radiance", core.NewVec3(-1, 0, 0))
			}
			return TaskStats{Samples: 1}
		}}
	}

	progress := NewProgress("test", len(tasks), false)
	err := pool.Run(tasks, progress)
	var violation *core.InvariantViolation
	if !errors.As(err, &violation) {
		t.Fatalf("Run error = %v, want an InvariantViolation", err)
	}
	if !strings.Contains(err.Error(), "test radiance") {
		t.Errorf("error %q lacks the diagnostic", err)
	}
	if progress.Completed() != len(tasks) {
		t.Errorf("progress saw %d of %d results", progress.Completed(), len(tasks))
	}
}

func TestWorkerPoolStats(t *testing.T) {
	pool := NewWorkerPool(4, 1)
	defer pool.Stop()

	tasks := make([]Task, 40)
	for i := range tasks {
		tasks[i] = Task{ID: i, Run: func(*core.RandomStream) TaskStats { return TaskStats{Samples: 3} }}
	}
	if err := pool.Run(tasks, NewProgress("stats", len(tasks), true)); err != nil {
		t.Fatal(err)
	}

	var taskCount int
	var samples int64
	for _, w := range pool.WorkerStats() {
		taskCount += w.Tasks
		samples += w.Samples
	}
	if taskCount != 40 || samples != 120 {
		t.Errorf("workers ran %d tasks with %d samples, want 40 and 120", taskCount, samples)
	}

	stats := RenderStats{Samples: samples, Elapsed: time.Second, Workers: pool.WorkerStats(),
		Metrics: map[string]float64{"acceptance": 0.25}}
	table := stats.Table()
	for _, want := range []string{"Worker", "TOTAL", "acceptance", "0.25"} {
		if !strings.Contains(table, want) {
			t.Errorf("stats table missing %q:\n%s", want, table)
		}
	}
	if stats.SamplesPerSecond() != 120 {
		t.Errorf("SamplesPerSecond = %g", stats.SamplesPerSecond())
	}
}

type constantEstimator struct{ L core.Vec3 }

func (c constantEstimator) Estimate(pFilm core.Vec2, sampler core.Sampler) (core.Vec3, []sensor.Splat) {
	return c.L, []sensor.Splat{{Raster: core.NewVec2(0.5, 0.5), L: core.Splat(1)}}
}

func TestTileRenderer(t *testing.T) {
	film := sensor.NewFilm(20, 12, sensor.NewTentFilter(1))
	tr := NewTileRenderer(film, constantEstimator{L: core.NewVec3(0.2, 0.4, 0.6)}, 3)

	pool := NewWorkerPool(3, 11)
	defer pool.Stop()
	tiles := NewTileGrid(20, 12, 8)
	if err := pool.Run(tr.Tasks(tiles, 0), nil); err != nil {
		t.Fatal(err)
	}

	img := film.Image(0)
	for i, c := range img {
		if c.Subtract(core.NewVec3(0.2, 0.4, 0.6)).Length() > 1e-9 {
			t.Fatalf("pixel %d = %v", i, c)
		}
	}
	// every sample splatted one unit onto pixel (0,0)
	if got := film.Pixel(0, 0).Splat.X; got != 20*12*3 {
		t.Errorf("splat total = %g, want %d", got, 20*12*3)
	}
}

func TestDefaultThreadCount(t *testing.T) {
	if DefaultThreadCount() < 1 {
		t.Error("DefaultThreadCount must be positive")
	}
}
