package main

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/body"
	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/sim"
)

var (
	advanceDays float64
	advanceStep time.Duration
	advanceSlider float64

	sweepBody    string
	sweepFactors []float64
	sweepTilt    float64
)

var elementsCmd = &cobra.Command{
	Use:   "elements",
	Short: "Print elements, apsides and period of every body at day 0",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		e, err := newEngine(cmd)
		if err != nil {
			return err
		}
		printBodies(cmd.OutOrStdout(), e.Snapshot())
		return nil
	},
}

var advanceCmd = &cobra.Command{
	Use:   "advance",
	Short: "Advance the scene by a number of simulated days",
	Long: `
Advance the scene in fixed wall-clock steps until the requested number of
simulated days has elapsed, then print the resulting bodies and belts.`,
	Args: cobra.NoArgs,
	RunE: runAdvance,
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Apply a range of velocity factors to one body",
	Long: `
Apply each velocity factor (with the given tilt) to the body from its baseline
and report the resulting orbit against the scene bound. The scene is reset
between factors.`,
	Args: cobra.NoArgs,
	RunE: runSweep,
}

func init() {
	advanceCmd.Flags().Float64Var(&advanceDays, "days", 365.25, "simulated days to advance")
	advanceCmd.Flags().DurationVar(&advanceStep, "step", 250*time.Millisecond, "wall-clock time per tick")
	advanceCmd.Flags().Float64Var(&advanceSlider, "slider", -1, "speed slider position 0-100 (default: configured rate)")

	sweepCmd.Flags().StringVar(&sweepBody, "body", "Mars", "body to edit")
	sweepCmd.Flags().Float64SliceVar(&sweepFactors, "factors", []float64{0.8, 0.9, 1, 1.1, 1.2, 1.3}, "velocity factors")
	sweepCmd.Flags().Float64Var(&sweepTilt, "tilt", 0, "tilt in degrees applied with every factor")
}

func runAdvance(cmd *cobra.Command, _ []string) error {
	if advanceDays <= 0 || math.IsNaN(advanceDays) {
		return fmt.Errorf("--days must be positive, got %v", advanceDays)
	}
	if advanceStep <= 0 {
		return fmt.Errorf("--step must be positive, got %v", advanceStep)
	}

	e, err := newEngine(cmd)
	if err != nil {
		return err
	}
	if advanceSlider >= 0 {
		if err := e.SetSpeed(advanceSlider); err != nil {
			return err
		}
	}

	start := time.Now()
	ticks := 0
	for e.Snapshot().Days < advanceDays {
		e.Tick(advanceStep.Seconds())
		ticks++
	}
	snap := e.Snapshot()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "advanced %.2f days in %d ticks (%.1f days/s, %s wall)\n",
		snap.Days, ticks, snap.Rate, time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(out, "date %s\n\n", snap.Date.Format(time.DateOnly))
	printBodies(out, snap)
	fmt.Fprintln(out)
	printBelts(out, e)
	return nil
}

func runSweep(cmd *cobra.Command, _ []string) error {
	e, err := newEngine(cmd)
	if err != nil {
		return err
	}
	base, ok := e.Snapshot().Body(sweepBody)
	if !ok {
		return fmt.Errorf("%q: %w", sweepBody, sim.ErrUnknownBody)
	}

	out := cmd.OutOrStdout()
	bound := e.Snapshot().Bound
	fmt.Fprintf(out, "%s baseline a=%.3f e=%.4f, scene bound %.1f\n\n", sweepBody, base.Baseline.A, base.Baseline.E, bound)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "factor\ta\te\ti(deg)\tperi\tapo\tapo/bound\tperiod(d)")
	for _, f := range sweepFactors {
		e.ResetAll()
		if err := e.ApplyEdit(sweepBody, f, sweepTilt); err != nil {
			fmt.Fprintf(tw, "%.3f\t%v\n", f, err)
			continue
		}
		b, _ := e.Snapshot().Body(sweepBody)
		el := b.Elements
		fmt.Fprintf(tw, "%.3f\t%.3f\t%.4f\t%.2f\t%.2f\t%.2f\t%.3f\t%.1f\n",
			f, el.A, el.E, el.I*180/math.Pi, el.Periapsis(), el.Apoapsis(), el.Apoapsis()/bound, gravity.Period(el.A))
	}
	return tw.Flush()
}

var gravity = body.DefaultGravity()

func printBodies(w io.Writer, snap *sim.Snapshot) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "body\ta\te\ti(deg)\tM(rad)\tperi\tapo\tperiod(d)\trev")
	for _, b := range snap.Bodies {
		el := b.Elements
		fmt.Fprintf(tw, "%s\t%.3f\t%.4f\t%.2f\t%.3f\t%.2f\t%.2f\t%.1f\t%d\n",
			b.Name, el.A, el.E, el.I*180/math.Pi, el.M, el.Periapsis(), el.Apoapsis(), gravity.Period(el.A), b.Revision)
	}
	fmt.Fprintf(tw, "bound\t%.1f\n", snap.Bound)
	tw.Flush()
}

func printBelts(w io.Writer, e *sim.Engine) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "belt\tkind\tcount\tchunk\tcursor\ta range")
	for _, s := range e.BeltStats() {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%.1f-%.1f\n", s.ID, s.Kind, s.Count, s.Chunk, s.Cursor, s.AMin, s.AMax)
	}
	tw.Flush()
}
