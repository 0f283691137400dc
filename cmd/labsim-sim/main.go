package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/chemverse/labsim/internal/lab"
)

// scriptedPour is one pour gesture in the script file: the chemical starts
// pouring into the target vessel at StartTick and stops after DurationTicks.
type scriptedPour struct {
	StartTick     int64  `json:"start_tick"`
	ChemicalID    string `json:"chemical_id"`
	TargetVessel  string `json:"target_vessel"`
	DurationTicks int64  `json:"duration_ticks"`
}

// eventCollector records every lab event emitted during the run.
type eventCollector struct {
	mu     sync.Mutex
	events []lab.LabEvent
}

func (c *eventCollector) ID() string   { return "collector" }
func (c *eventCollector) Type() string { return "collector" }

func (c *eventCollector) Notify(_ context.Context, event lab.LabEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *eventCollector) Close() error { return nil }

func (c *eventCollector) Events() []lab.LabEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]lab.LabEvent, len(c.events))
	copy(out, c.events)
	return out
}

func main() {
	var (
		sceneFile  = flag.String("scene-file", "", "path to scene JSON file (required)")
		scriptFile = flag.String("script", "", "path to scripted-pours JSON file (optional)")
		ticks      = flag.Int64("ticks", 600, "number of frames to run")
		dt         = flag.Float64("dt", 1.0/60.0, "seconds per frame")
		seed       = flag.Int64("seed", 0, "random seed for the particle simulation (0 = time-based)")
	)
	flag.Parse()

	if *sceneFile == "" {
		fmt.Fprintf(os.Stderr, "error: --scene-file is required\n")
		flag.Usage()
		os.Exit(1)
	}

	session, cfg, err := loadSceneFromFile(*sceneFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading scene: %v\n", err)
		os.Exit(1)
	}
	if *seed != 0 {
		session.Simulator().Seed(*seed)
	}

	var script []scriptedPour
	if *scriptFile != "" {
		script, err = loadScript(*scriptFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error loading script: %v\n", err)
			os.Exit(1)
		}
	}

	collector := &eventCollector{}
	nm := lab.NewNotificationManager()
	if err := nm.RegisterNotifier(collector); err != nil {
		fmt.Fprintf(os.Stderr, "error registering collector: %v\n", err)
		os.Exit(1)
	}
	session.SetNotificationManager(nm, collector.ID())

	runScripted(session, script, *ticks, float32(*dt))

	// Let queued events drain before reading the collector.
	_ = nm.Close()

	printSummary(cfg.Name, *ticks, session, collector.Events())
}

// runScripted steps the session frame by frame, starting and ending pours at
// their scripted ticks.
func runScripted(session *lab.Session, script []scriptedPour, ticks int64, dt float32) {
	ends := make(map[int64][]int)
	for i, p := range script {
		end := p.StartTick + p.DurationTicks
		ends[end] = append(ends[end], i)
	}

	for tick := int64(0); tick < ticks; tick++ {
		for _, p := range script {
			if p.StartTick == tick {
				if _, ok := session.StartPour(p.ChemicalID, lab.VesselID(p.TargetVessel)); !ok {
					fmt.Fprintf(os.Stderr, "warning: pour of %s at tick %d refused\n", p.ChemicalID, tick)
				}
			}
		}
		for range ends[tick] {
			session.EndPour()
		}
		session.Step(dt)
	}
}

func loadSceneFromFile(path string) (*lab.Session, lab.SceneConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, lab.SceneConfig{}, err
	}

	var cfg lab.SceneConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, lab.SceneConfig{}, err
	}

	session, err := lab.BuildSessionFromConfig(cfg)
	if err != nil {
		return nil, lab.SceneConfig{}, err
	}
	return session, cfg, nil
}

func loadScript(path string) ([]scriptedPour, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var script []scriptedPour
	if err := json.Unmarshal(data, &script); err != nil {
		return nil, err
	}
	return script, nil
}

func printSummary(sceneName string, ticks int64, session *lab.Session, events []lab.LabEvent) {
	fmt.Printf("scene: %s\n", sceneName)
	fmt.Printf("frames: %d\n", ticks)
	fmt.Printf("live particles: %d\n", session.Simulator().LiveParticles())

	vessels := session.Vessels()
	sort.Slice(vessels, func(i, j int) bool { return vessels[i].ID < vessels[j].ID })
	fmt.Println("vessels:")
	for _, v := range vessels {
		fmt.Printf("  %-16s %-9s %6.2f / %-6.2f (%.0f%%)\n",
			v.ID, v.Kind, v.Volume, v.Capacity, v.FillFraction()*100)
	}

	pours, reactions := 0, 0
	for _, e := range events {
		switch e.Type {
		case lab.EventPourCompleted:
			pours++
		case lab.EventReactionFired:
			reactions++
		}
	}
	fmt.Printf("pours completed: %d\n", pours)
	fmt.Printf("reactions fired: %d\n", reactions)
	for _, e := range events {
		if e.Type == lab.EventReactionFired {
			fmt.Printf("  [%s] %s\n", e.ExperimentID, e.Outcome)
		}
	}
}
