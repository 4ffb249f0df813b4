// Command arrayviz computes one array design and writes its diagram as a
// Matlab script, a JSON summary and optional PNG plots.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/wiless/vlib"

	"github.com/wiless/arraysim"
	"github.com/wiless/arraysim/render"
)

var (
	configFile string
	kind       string
	outdir     string
	verbose    bool
	withPNG    bool
)

func init() {
	flag.StringVar(&configFile, "config", "", "configuration file (yaml, json or toml)")
	flag.StringVar(&kind, "kind", "", "overrides antenna_type: antenna, controlled_connections, subarray or adaptive_filtering")
	flag.StringVar(&outdir, "outdir", ".", "Directory where all the output files are generated..")
	flag.BoolVar(&verbose, "v", false, "debug logging")
	flag.BoolVar(&withPNG, "png", true, "also render PNG plots")
}

func main() {
	flag.Parse()
	if verbose {
		log.SetLevel(log.DebugLevel)
	}

	cfg, err := ReadAppConfig(configFile, kind)
	if err != nil {
		log.Fatal(err)
	}
	if err := prepareOutdir(); err != nil {
		log.Fatal(err)
	}

	res, err := arraysim.Design(cfg)
	switch {
	case err == nil:
	case arraysim.IsConfiguration(err):
		log.WithError(err).Fatal("rejected configuration")
	case arraysim.IsNumerical(err):
		log.WithError(err).Fatal("numerical failure, try more samples or another seed")
	default:
		log.Fatal(err)
	}
	for _, c := range res.Context {
		log.WithField("value", c.Value).Info(c.Label)
	}
	if res.Cancellation != nil {
		for _, d := range res.Cancellation.Directions {
			log.WithFields(log.Fields{"db": d.Db, "relative": d.RelativeDb, "note": d.Note}).Infof("cancellation at %.2f deg", d.AngleDeg)
		}
	}

	name := string(res.Kind)
	if err := exportMatlab(res, outdir, name); err != nil {
		log.Fatal(err)
	}
	fname := filepath.Join(outdir, name+".json")
	vlib.SaveStructure(res, fname, true)
	log.Info("written ", fname)

	if !withPNG {
		return
	}
	b, err := render.DiagramPNG(res)
	if err != nil {
		log.Fatal(err)
	}
	writeFile(name+".png", b)

	b, err = render.ClutterPNG(res)
	switch {
	case errors.Is(err, render.ErrNoClutter):
	case err != nil:
		log.Fatal(err)
	default:
		writeFile(name+"_clutter.png", b)
	}

	b, err = render.ScatterPNG(res)
	switch {
	case errors.Is(err, render.ErrNoClutter):
	case err != nil:
		log.Fatal(err)
	default:
		writeFile(name+"_scatter.png", b)
	}
}

// exportMatlab writes <name>.m in dir, plotting the diagram like the PNG
// output does.
func exportMatlab(res *arraysim.Result, dir, name string) error {
	matlab := vlib.NewMatlab(filepath.Join(dir, name))
	fname := matlab.Name()
	if _, err := os.Stat(fname); err != nil {
		return fmt.Errorf("matlab export: %w", err)
	}
	matlab.Silent = true
	matlab.Json = false

	matlab.Export("theta", res.ThetaDeg)
	matlab.Export("diagram", res.DiagramDb)
	matlab.Command("figure;plot(theta,diagram,'b');grid on;hold on;")
	if res.BaselineDb != nil {
		matlab.Export("baseline", res.BaselineDb)
		matlab.Command("plot(theta,baseline,'k--');")
	}
	if len(res.InterferenceIndex) > 0 {
		idx := vlib.NewVectorF(len(res.InterferenceIndex))
		for i, ind := range res.InterferenceIndex {
			idx[i] = float64(ind + 1)
		}
		matlab.Export("interference", idx)
		matlab.Command("plot(theta(interference),diagram(interference),'rx');")
	}
	matlab.Command("xlabel('Angle, deg');ylabel('Gain, dB');")
	if err := matlab.Close(); err != nil {
		return fmt.Errorf("matlab export: %w", err)
	}
	log.Info("written ", fname)
	return nil
}

func prepareOutdir() error {
	finfo, err := os.Stat(outdir)
	if err != nil {
		log.Print("Creating OUTPUT directory : ", outdir)
		return os.MkdirAll(outdir, os.ModeDir|os.ModePerm)
	}
	if !finfo.IsDir() {
		return errors.New("output path is not a directory: " + outdir)
	}
	return nil
}

func writeFile(name string, b []byte) {
	fname := filepath.Join(outdir, name)
	if err := os.WriteFile(fname, b, 0o644); err != nil {
		log.Fatal(err)
	}
	log.Info("written ", fname)
}
