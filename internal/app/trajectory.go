package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/lineagegrid/internal/builder"
	"github.com/specialistvlad/lineagegrid/internal/ctxlog"
	"github.com/specialistvlad/lineagegrid/internal/graph"
	"github.com/specialistvlad/lineagegrid/internal/materialize"
	"github.com/specialistvlad/lineagegrid/internal/session"
	"github.com/specialistvlad/lineagegrid/internal/trajectory"
)

// runTrajectories integrates every trajectory of the build over the gated
// results of its velocity components. Failures are reported per trajectory
// and never abort the run.
func runTrajectories(ctx context.Context, build *builder.Build, report *session.Report) []trajectorySummary {
	logger := ctxlog.FromContext(ctx)
	outcomes := make(map[graph.ID]session.Outcome, len(report.Outcomes))
	for _, o := range report.Outcomes {
		if o.Result != nil {
			outcomes[o.Result.Node] = o
		}
	}

	out := make([]trajectorySummary, 0, len(build.Trajectories))
	for _, bt := range build.Trajectories {
		s := trajectorySummary{Name: bt.Name, Steps: bt.Steps}
		track, err := runTrajectory(ctx, bt, outcomes)
		switch {
		case err != nil:
			s.Error = err.Error()
		case !allFinite(track.Lat) || !allFinite(track.Lon):
			s.Error = "trajectory reached a non-finite position"
		default:
			s.Usable = true
			s.Time, s.Lat, s.Lon = track.Time, track.Lat, track.Lon
			s.History = track.Attrs[materialize.HistoryAttr]
			s.Attrs = track.Attrs
		}
		if s.Usable {
			logger.Info("🧭 Trajectory integrated.", "trajectory", bt.Name, "steps", bt.Steps)
		} else {
			logger.Warn("Trajectory is not usable.", "trajectory", bt.Name, "error", s.Error)
		}
		out = append(out, s)
	}
	return out
}

func runTrajectory(ctx context.Context, bt builder.Trajectory, outcomes map[graph.ID]session.Outcome) (*trajectory.Track, error) {
	u, ok := outcomes[bt.U]
	if !ok || !u.Usable {
		return nil, fmt.Errorf("velocity component u (%s) is not usable", bt.U)
	}
	v, ok := outcomes[bt.V]
	if !ok || !v.Usable {
		return nil, fmt.Errorf("velocity component v (%s) is not usable", bt.V)
	}
	return trajectory.Run(ctx, bt.Name, bt.Start, u.Result, v.Result, bt.Steps)
}
