package cli

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/me/clustersim/internal/config"
	"github.com/me/clustersim/internal/scheduler"
	"github.com/me/clustersim/pkg/model"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Scenario is a scripted simulation: nodes registered up front, jobs
// submitted when the clock reaches their At time, and a number of ticks.
type Scenario struct {
	Nodes []model.NodeRequest `yaml:"nodes"`
	Jobs  []ScenarioJob       `yaml:"jobs"`
	Ticks int                 `yaml:"ticks"`
}

// ScenarioJob is a job request with its submission time.
type ScenarioJob struct {
	model.JobRequest `yaml:",inline"`
	At               int `yaml:"at"`
}

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if sc.Ticks < 0 {
		return nil, fmt.Errorf("scenario %s: ticks must not be negative", path)
	}
	for i, j := range sc.Jobs {
		if j.At < 0 || j.At > sc.Ticks {
			return nil, fmt.Errorf("scenario %s: job %d: at must be between 0 and ticks", path, i+1)
		}
	}
	return &sc, nil
}

// Play runs the scenario on loop. Jobs due at time t are submitted, in file
// order, before the tick that advances the clock past t.
func (sc *Scenario) Play(ctx context.Context, loop *scheduler.Loop) error {
	for i, n := range sc.Nodes {
		if _, err := loop.AddNode(n.CPU, n.RAM); err != nil {
			return fmt.Errorf("node %d: %w", i+1, err)
		}
	}

	jobs := make([]ScenarioJob, len(sc.Jobs))
	copy(jobs, sc.Jobs)
	sort.SliceStable(jobs, func(a, b int) bool { return jobs[a].At < jobs[b].At })

	next := 0
	for t := 0; ; t++ {
		for next < len(jobs) && jobs[next].At == t {
			if _, err := loop.AddJob(jobs[next].JobRequest); err != nil {
				return fmt.Errorf("job at time %d: %w", t, err)
			}
			next++
		}
		if t == sc.Ticks {
			return nil
		}
		if err := loop.Tick(ctx); err != nil {
			return err
		}
	}
}

func newRunCmd() *cobra.Command {
	var configPath, stateFile string

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Play a YAML scenario on an in-process engine and print the final status",
		Example: `  # scenario.yaml
  nodes:
    - {cpu: 8, ram: 16}
  jobs:
    - {priority: 1, cpu: 4, ram: 8, duration: 3}
    - {priority: 0, cpu: 8, ram: 8, duration: 2, at: 1}
  ticks: 10`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := LoadScenario(args[0])
			if err != nil {
				return err
			}
			cfg, err := loopConfig(configPath)
			if err != nil {
				return err
			}
			loop := scheduler.NewLoop(nil, cfg, logger)
			if err := sc.Play(cmd.Context(), loop); err != nil {
				return fmt.Errorf("run scenario: %w", err)
			}
			printStatus(cmd.OutOrStdout(), loop.Status())

			if stateFile != "" {
				if err := loop.SaveFile(stateFile); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "State saved to %s\n", stateFile)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "YAML config file (engine section is used)")
	cmd.Flags().StringVar(&stateFile, "state-file", "", "Write the final state to this file")
	return cmd
}

// loopConfig builds an in-process loop configuration, reading the engine
// section of path when given.
func loopConfig(path string) (scheduler.Config, error) {
	cfg := scheduler.DefaultConfig()
	cfg.TickInterval = 0
	if path == "" {
		return cfg, nil
	}
	srvCfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	cfg.Engine = srvCfg.Engine
	return cfg, nil
}
