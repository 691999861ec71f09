package commands

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/assetrev/internal/pipeline"
)

// GraphCmd implements the 'graph' command.
type GraphCmd struct{}

func (GraphCmd) Run(g *Global) error {
	graph := pipeline.Graph()
	order, err := pipeline.Order(graph)
	if err != nil {
		return err
	}
	for _, stage := range order {
		deps := make([]string, 0, len(graph[stage]))
		for _, d := range graph[stage] {
			deps = append(deps, string(d))
		}
		if len(deps) == 0 {
			fmt.Fprintf(g.Out, "%s\n", stage)
			continue
		}
		fmt.Fprintf(g.Out, "%s <- %s\n", stage, strings.Join(deps, ", "))
	}
	return nil
}
