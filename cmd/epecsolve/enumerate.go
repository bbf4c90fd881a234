// SPDX-License-Identifier: MIT

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/epec/instance"
	"github.com/katalvlaran/epec/lcp"
)

type vertex struct {
	Pattern string    `yaml:"pattern"`
	Z       []float64 `yaml:"z,flow"`
}

type leaderVertices struct {
	Leader   string   `yaml:"leader"`
	Vertices []vertex `yaml:"vertices"`
}

func newEnumerateCommand(root *rootOptions) *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "enumerate <instance.yaml>",
		Short: "List every complementarity solution of each leader's game at the zero profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := root.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if workers < 1 {
				return fmt.Errorf("invalid --workers %d", workers)
			}
			f, err := instance.Load(args[0])
			if err != nil {
				return err
			}
			leaders, err := instance.Build(f, log)
			if err != nil {
				return err
			}

			opts := append([]lcp.Option{lcp.WithLogger(log), lcp.WithWorkers(workers)}, f.Solver.LCPOptions()...)
			out := make([]leaderVertices, 0, len(leaders))
			for _, ld := range leaders {
				l, err := ld.Game.FormulateLCP(opts...)
				if err != nil {
					return fmt.Errorf("%s: %w", ld.Name, err)
				}
				sols, err := l.EnumerateAll(cmd.Context())
				if err != nil {
					return fmt.Errorf("%s: %w", ld.Name, err)
				}
				lv := leaderVertices{Leader: ld.Name, Vertices: make([]vertex, 0, len(sols))}
				for _, s := range sols {
					p, err := l.Encode(s)
					if err != nil {
						return fmt.Errorf("%s: %w", ld.Name, err)
					}
					lv.Vertices = append(lv.Vertices, vertex{Pattern: p.Key(), Z: s.Z})
				}
				log.Debug("enumerated", "leader", ld.Name, "vertices", len(sols))
				out = append(out, lv)
			}

			w, closeFn, err := root.writer(cmd)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(w)
			enc.SetIndent(2)
			if err := enc.Encode(out); err != nil {
				_ = closeFn()
				return err
			}
			if err := enc.Close(); err != nil {
				_ = closeFn()
				return err
			}

			return closeFn()
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 1, "parallel enumeration workers")

	return cmd
}
