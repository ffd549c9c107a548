// Command patchdump runs view-optimization passes over a spherical terrain
// patch tree for a synthetic camera and dumps the resulting level
// distribution and pass timings.
package main

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/edaniels/golog"
	"github.com/fatih/color"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"gonum.org/v1/gonum/stat"

	"github.com/terrence2/openfa-sub002/camera"
	"github.com/terrence2/openfa-sub002/patchtree"
	"github.com/terrence2/openfa-sub002/spheremath"
)

func main() {
	logger := golog.NewDevelopmentLogger("patchdump")
	app := &cli.App{
		Name:  "patchdump",
		Usage: "exercise the terrain LOD patch tree from a fixed viewpoint",
		Flags: []cli.Flag{
			&cli.Float64Flag{
				Name:  "radius",
				Usage: "planet radius in kilometers",
				Value: spheremath.EarthRadiusKm,
			},
			&cli.IntFlag{
				Name:  "max-level",
				Usage: "deepest subdivision level",
				Value: 8,
			},
			&cli.Float64Flag{
				Name:  "falloff",
				Usage: "per-level detail distance falloff",
				Value: 2,
			},
			&cli.StringFlag{
				Name:  "eye",
				Usage: "eye position as x,y,z kilometers from the planet center",
				Value: fmt.Sprintf("0,0,%f", spheremath.EarthRadiusKm+2),
			},
			&cli.StringFlag{
				Name:  "target",
				Usage: "look-at target as x,y,z kilometers",
				Value: "0,0,0",
			},
			&cli.IntFlag{
				Name:  "passes",
				Usage: "number of optimization passes to run",
				Value: 8,
			},
			&cli.BoolFlag{
				Name:  "tree",
				Usage: "dump the final tree shape",
			},
		},
		Action: func(ctx *cli.Context) error {
			return run(ctx, logger)
		},
	}
	if err := app.Run(os.Args); err != nil {
		logger.Fatal(err)
	}
}

func run(ctx *cli.Context, logger golog.Logger) error {
	eye, err := parseVector(ctx.String("eye"))
	if err != nil {
		return errors.Wrap(err, "parsing --eye")
	}
	target, err := parseVector(ctx.String("target"))
	if err != nil {
		return errors.Wrap(err, "parsing --target")
	}

	tree, err := patchtree.New(patchtree.Config{
		PlanetRadiusKm: ctx.Float64("radius"),
		MaxLevel:       ctx.Int("max-level"),
		Falloff:        ctx.Float64("falloff"),
	}, logger)
	if err != nil {
		return err
	}

	cam, err := camera.New(80*math.Pi/180, 16.0/9.0, 0.5, 4*ctx.Float64("radius"))
	if err != nil {
		return err
	}
	if err := cam.SetLookAt(eye, target, upHint(target.Sub(eye))); err != nil {
		return err
	}

	var live []patchtree.PatchIndex
	durations := make([]float64, 0, ctx.Int("passes"))
	for i := 0; i < ctx.Int("passes"); i++ {
		live = tree.OptimizeForView(cam, live)
		s := tree.Stats()
		durations = append(durations, s.PassDuration.Seconds()*1e3)
		logger.Infow("pass",
			"n", i,
			"subdivisions", s.Subdivisions,
			"rejoins", s.Rejoins,
			"nodes_visited", s.NodesVisited,
			"live_patches", s.LivePatches,
		)
	}

	byLevel := map[int]int{}
	for _, pi := range live {
		byLevel[tree.LevelOf(pi)]++
	}
	levels := make([]int, 0, len(byLevel))
	for lvl := range byLevel {
		levels = append(levels, lvl)
	}
	sort.Ints(levels)

	color.New(color.FgGreen, color.Bold).Printf("%d live patches\n", len(live))
	for _, lvl := range levels {
		fmt.Printf("  level %2d: %d\n", lvl, byLevel[lvl])
	}
	fmt.Printf("pass time: mean %.3fms stddev %.3fms\n",
		stat.Mean(durations, nil), stat.StdDev(durations, nil))

	if ctx.Bool("tree") {
		fmt.Print(tree.Dump())
	}
	return nil
}

// parseVector reads "x,y,z" into a vector.
func parseVector(s string) (r3.Vector, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return r3.Vector{}, errors.Errorf("want x,y,z, got %q", s)
	}
	var out [3]float64
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return r3.Vector{}, errors.Wrapf(err, "component %d of %q", i, s)
		}
		out[i] = v
	}
	return r3.Vector{X: out[0], Y: out[1], Z: out[2]}, nil
}

// upHint picks an up vector not parallel to the view direction.
func upHint(forward r3.Vector) r3.Vector {
	up := r3.Vector{X: 0, Y: 1, Z: 0}
	if forward.Normalize().Cross(up).Norm2() < 1e-9 {
		up = r3.Vector{X: 1, Y: 0, Z: 0}
	}
	return up
}
