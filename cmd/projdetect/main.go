// Command projdetect estimates the cartographic projection of an early map
// from control points with known geographic coordinates and prints the
// ranked candidate projections.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"projdetect/internal/analysis"
	"projdetect/internal/config"
	"projdetect/internal/logger"
	"projdetect/internal/projection"
	"projdetect/internal/version"
	"projdetect/pkg/geometry"
)

func main() {
	showVersion := flag.Bool("version", false, "Print version and exit")
	cfgPath := flag.String("c", "", "Path to a config file")
	testFile := flag.String("t", "", "Path to the test (map plane) point file: id x y")
	refFile := flag.String("r", "", "Path to the reference geographic point file: id lat lon")
	gratFile := flag.String("g", "", "Optional graticule file: M lon i j k... / P lat i j k...")
	optimizer := flag.String("o", "", "Optimizer: grid, simplex, de, nls (overrides config)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("projdetect %s (%s, built %s)\n", version.Version, version.GitCommit, version.BuildTime)
		return
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *testFile != "" {
		cfg.Input.TestFile = *testFile
	}
	if *refFile != "" {
		cfg.Input.ReferenceFile = *refFile
	}
	if *optimizer != "" {
		cfg.Analysis.Optimizer = *optimizer
	}
	if cfg.Input.TestFile == "" || cfg.Input.ReferenceFile == "" {
		fmt.Println("Usage: projdetect -t <test points> -r <reference points> [-g <graticule>] [-c <config>] [-o <optimizer>]")
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ds, err := loadDataset(cfg.Input.TestFile, cfg.Input.ReferenceFile, *gratFile)
	if err != nil {
		log.Fatal("load dataset", zap.Error(err))
	}
	log.Info("dataset loaded",
		zap.Int("points", len(ds.Test)),
		zap.Int("meridians", len(ds.Meridians)),
		zap.Int("parallels", len(ds.Parallels)))

	params, err := buildParameters(&cfg.Analysis)
	if err != nil {
		log.Fatal("analysis parameters", zap.Error(err))
	}

	families := projection.Catalog()
	if len(cfg.Analysis.Families) > 0 {
		families = families[:0:0]
		for _, name := range cfg.Analysis.Families {
			f := projection.FindFamily(name)
			if f == nil {
				log.Fatal("unknown projection family", zap.String("family", name))
			}
			families = append(families, f)
		}
	}

	analyzer := analysis.NewAnalyzer(params, log)
	samples, err := analyzer.Run(ds, families)
	if err != nil {
		log.Fatal("analysis failed", zap.Error(err))
	}

	analysis.PrintResults(os.Stdout, samples, ds, params)
}

func buildParameters(ac *config.AnalysisConfig) (analysis.Parameters, error) {
	params := analysis.DefaultParameters()

	switch ac.Optimizer {
	case "", "grid":
		params.Optimizer = analysis.GridSearch
	case "simplex":
		params.Optimizer = analysis.NelderMead
	case "de":
		params.Optimizer = analysis.DifferentialEvolution
	case "nls":
		params.Optimizer = analysis.LeastSquares
	default:
		return params, fmt.Errorf("unknown optimizer %q", ac.Optimizer)
	}

	switch ac.MatchMethod {
	case "", "circle":
		params.Match = analysis.MatchCircle
	case "tissot":
		params.Match = analysis.MatchTissot
	default:
		return params, fmt.Errorf("unknown match method %q", ac.MatchMethod)
	}

	params.AnalyzeNormal = ac.AnalyzeNormal
	params.AnalyzeTransverse = ac.AnalyzeTransverse
	params.AnalyzeOblique = ac.AnalyzeOblique
	params.PerformHeuristic = ac.Heuristic
	if ac.Sensitivity > 0 {
		params.Sensitivity = ac.Sensitivity
	}
	if ac.Lat0Step > 0 {
		params.Lat0Step = ac.Lat0Step
	}
	if ac.LatPStep > 0 {
		params.LatPStep = ac.LatPStep
	}
	if ac.LonPStep > 0 {
		params.LonPStep = ac.LonPStep
	}
	params.RemoveOutliers = ac.RemoveOutliers
	params.CorrectRotation = ac.CorrectRotation
	params.PrintExceptions = ac.PrintExceptions
	if ac.PrintedResults > 0 {
		params.PrintedResults = ac.PrintedResults
	}
	if ac.MaxGenerations > 0 {
		params.MaxGenerations = ac.MaxGenerations
	}
	if ac.Seed != 0 {
		params.Seed = ac.Seed
	}
	return params, nil
}

// loadDataset reads the point files. Both files are whitespace-separated
// with one point per line, matched 1-to-1 by line order.
func loadDataset(testPath, refPath, gratPath string) (*analysis.Dataset, error) {
	ds := &analysis.Dataset{}

	if err := eachRow(testPath, func(fields []string) error {
		if len(fields) < 3 {
			return fmt.Errorf("want: id x y, got %d fields", len(fields))
		}
		x, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return err
		}
		y, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return err
		}
		ds.Test = append(ds.Test, geometry.Point2D{X: x, Y: y})
		return nil
	}); err != nil {
		return nil, fmt.Errorf("test points %s: %w", testPath, err)
	}

	if err := eachRow(refPath, func(fields []string) error {
		if len(fields) < 3 {
			return fmt.Errorf("want: id lat lon, got %d fields", len(fields))
		}
		id, err := strconv.Atoi(fields[0])
		if err != nil {
			return err
		}
		lat, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return err
		}
		lon, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return err
		}
		ds.Reference = append(ds.Reference, projection.GeoPoint{ID: id, Lat: lat, Lon: lon})
		return nil
	}); err != nil {
		return nil, fmt.Errorf("reference points %s: %w", refPath, err)
	}

	if gratPath != "" {
		if err := eachRow(gratPath, func(fields []string) error {
			if len(fields) < 2 {
				return fmt.Errorf("want: M|P angle idx..., got %d fields", len(fields))
			}
			angle, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return err
			}
			indices := make([]int, 0, len(fields)-2)
			for _, f := range fields[2:] {
				idx, err := strconv.Atoi(f)
				if err != nil {
					return err
				}
				indices = append(indices, idx)
			}
			switch fields[0] {
			case "M", "m":
				ds.Meridians = append(ds.Meridians, analysis.Meridian{Lon: angle, Indices: indices})
			case "P", "p":
				ds.Parallels = append(ds.Parallels, analysis.Parallel{Lat: angle, Indices: indices})
			default:
				return fmt.Errorf("unknown line kind %q", fields[0])
			}
			return nil
		}); err != nil {
			return nil, fmt.Errorf("graticule %s: %w", gratPath, err)
		}
	}

	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

func eachRow(path string, fn func(fields []string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if err := fn(strings.Fields(text)); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
	return scanner.Err()
}
