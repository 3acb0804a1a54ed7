package analysis

import (
	"fmt"
	"io"
	"math"
)

// PrintResults writes the human-readable result tables: criterion values,
// criterion positions, the analyzed/reference point list and the matched
// points of the leading samples.
func PrintResults(w io.Writer, samples []Sample, ds *Dataset, params Parameters) {
	n := len(samples)
	if n == 0 {
		fmt.Fprintln(w, "No sample survived the analysis.")
		return
	}

	printed := params.PrintedResults
	if printed <= 0 || printed > n {
		printed = n
	}
	onlyTargets := len(params.AnalyzedProjections) > 0

	fmt.Fprintf(w, "Results containing values of the criteria:\n\n")
	fmt.Fprintf(w, "%4s %8s %6s %6s %7s %6s %7s %6s %9s %9s %4s %9s %4s %9s %9s\n",
		"#", "Proj", "Categ", "latP", "lonP", "lat0", "lon0", "BKEY",
		"CND[m]", "HOMT[m]", matchHeader(params.Match), "HELT[m]", matchHeader(params.Match), "GNTF", "VDTF")

	row := 0
	for i := range samples {
		s := &samples[i]
		if onlyTargets && !s.IsTarget {
			continue
		}
		if !onlyTargets && row >= printed {
			break
		}
		row++
		fmt.Fprintf(w, "%4d %8s %6s %6.1f %7.1f %6.1f %7.1f %6.2f %9s %9s %3d%% %9s %3d%% %9s %9s\n",
			row, s.Family.Name, s.Family.Category,
			s.Latp, s.Lonp, s.Lat0, s.Lon0, bkey(s),
			ratio(s.CrossNN), ratio(s.Homothetic), s.HomotheticMatch,
			ratio(s.Helmert), s.HelmertMatch,
			ratio(s.GraticuleTF), ratio(s.VoronoiTF))
	}

	fmt.Fprintf(w, "\nResults containing positions of the criteria:\n\n")
	fmt.Fprintf(w, "%4s %8s %6s %6s %7s %6s %7s %6s %6s %6s %6s %6s\n",
		"#", "Proj", "Categ", "latP", "lonP", "lat0", "lon0", "CND", "HOMT", "HELT", "GNTF", "VDTF")

	row = 0
	for i := range samples {
		s := &samples[i]
		if onlyTargets && !s.IsTarget {
			continue
		}
		if !onlyTargets && row >= printed {
			break
		}
		row++
		mark := " "
		if s.Rotated {
			mark = "*"
		}
		fmt.Fprintf(w, "%4d %8s %6s %6.1f %7.1f %6.1f %7.1f %6d %6d %6d %6d %6d%s\n",
			row, s.Family.Name, s.Family.Category,
			s.Latp, s.Lonp, s.Lat0, s.Lon0,
			s.CrossNN.Position, s.Homothetic.Position, s.Helmert.Position,
			s.GraticuleTF.Position, s.VoronoiTF.Position, mark)
	}
	fmt.Fprintf(w, "\n  ( * Sample with additionally corrected rotation. )\n")

	fmt.Fprintf(w, "\nAnalyzed and reference points:\n\n")
	fmt.Fprintf(w, "%3s %15s %15s %13s %13s\n", "#", "X_test", "Y_test", "Fi_ref", "La_ref")
	for i := range ds.Test {
		fmt.Fprintf(w, "%3d %15.3f %15.3f %13.5f %13.5f\n",
			i, ds.Test[i].X, ds.Test[i].Y, ds.Reference[i].Lat, ds.Reference[i].Lon)
	}

	fmt.Fprintf(w, "\nScale, rotation and matched points for each projection:\n\n")
	row = 0
	for i := range samples {
		s := &samples[i]
		if onlyTargets && !s.IsTarget {
			continue
		}
		if !onlyTargets && row >= printed {
			break
		}
		row++
		fmt.Fprintf(w, "%4d %8s  R = %.4g  scale(helm) = %.6g  scale(hom) = %.6g  rot = %.4f\n",
			row, s.Family.Name, s.R, s.ScaleHelT, s.ScaleHomT, s.Rotation)
		fmt.Fprintf(w, "      matched(helm): %v\n", s.HelmertMatched)
		if s.OutliersFound {
			fmt.Fprintf(w, "      k-best: %v\n", s.KBest)
		}
		if s.SingularPointsFound {
			fmt.Fprintf(w, "      non-singular: %v\n", s.NonSingular)
		}
	}
	fmt.Fprintln(w)
}

func matchHeader(m MatchMethod) string {
	if m == MatchTissot {
		return "+MT"
	}
	return "+MC"
}

func ratio(c Criterion) string {
	if c.Position < 0 || math.IsInf(c.Value, 0) {
		return "-"
	}
	return fmt.Sprintf("%.3g", c.Value)
}

// bkey is the similarity of helmert and homothetic scales, a quick
// indicator of how conformal the fit is.
func bkey(s *Sample) float64 {
	if s.ScaleHomT == 0 {
		return 0
	}
	return s.ScaleHelT / s.ScaleHomT
}
