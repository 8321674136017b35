package engine

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Node names a step in a graph.
type Node string

// ErrInvalidGraph reports a graph that fails structural validation.
var ErrInvalidGraph = errors.New("invalid graph")

// ErrIllegalTransition reports a step that chose a successor it does not
// declare, or a node entered twice in one run.
var ErrIllegalTransition = errors.New("illegal graph transition")

// stepFunc runs one node and names the next one. The terminal node's
// return value is ignored.
type stepFunc[T any] func(ctx context.Context, run T) (Node, error)

// graph is a small fixed DAG with one start and one terminal node.
type graph[T any] struct {
	name     string
	start    Node
	terminal Node
	steps    map[Node]stepFunc[T]
	edges    map[Node][]Node
	order    []Node
}

func newGraph[T any](name string, start, terminal Node) *graph[T] {
	return &graph[T]{
		name:     name,
		start:    start,
		terminal: terminal,
		steps:    make(map[Node]stepFunc[T]),
		edges:    make(map[Node][]Node),
	}
}

// add registers node with its allowed successors.
func (g *graph[T]) add(node Node, fn stepFunc[T], next ...Node) *graph[T] {
	if _, ok := g.steps[node]; !ok {
		g.order = append(g.order, node)
	}
	g.steps[node] = fn
	g.edges[node] = next
	return g
}

// Nodes lists nodes in registration order.
func (g *graph[T]) Nodes() []Node {
	return append([]Node(nil), g.order...)
}

// Successors lists the declared successors of n.
func (g *graph[T]) Successors(n Node) []Node {
	return append([]Node(nil), g.edges[n]...)
}

// validate checks that every edge points at a known node, the terminal has
// no successors, the graph has no cycle, and the terminal is reachable
// from every node.
func (g *graph[T]) validate() error {
	if _, ok := g.steps[g.start]; !ok {
		return fmt.Errorf("%w: %s: start %q not registered", ErrInvalidGraph, g.name, g.start)
	}
	if _, ok := g.steps[g.terminal]; !ok {
		return fmt.Errorf("%w: %s: terminal %q not registered", ErrInvalidGraph, g.name, g.terminal)
	}
	if len(g.edges[g.terminal]) > 0 {
		return fmt.Errorf("%w: %s: terminal %q has successors", ErrInvalidGraph, g.name, g.terminal)
	}
	for _, n := range g.order {
		for _, next := range g.edges[n] {
			if _, ok := g.steps[next]; !ok {
				return fmt.Errorf("%w: %s: %q -> unknown %q", ErrInvalidGraph, g.name, n, next)
			}
		}
		if n != g.terminal && len(g.edges[n]) == 0 {
			return fmt.Errorf("%w: %s: %q is a dead end", ErrInvalidGraph, g.name, n)
		}
	}

	const (
		unseen = iota
		active
		done
	)
	state := make(map[Node]int, len(g.order))
	var visit func(Node) error
	visit = func(n Node) error {
		switch state[n] {
		case active:
			return fmt.Errorf("%w: %s: cycle through %q", ErrInvalidGraph, g.name, n)
		case done:
			return nil
		}
		state[n] = active
		for _, next := range g.edges[n] {
			if err := visit(next); err != nil {
				return err
			}
		}
		state[n] = done
		return nil
	}
	for _, n := range g.order {
		if err := visit(n); err != nil {
			return err
		}
	}
	// Acyclic and no dead ends except the terminal, so every path ends there.
	return nil
}

// observer receives a span and a debug line per node.
type observer struct {
	tracer trace.Tracer
	logger *zap.Logger
}

// run walks the graph from start to terminal, once per node at most, and
// returns the nodes visited in order.
func (g *graph[T]) run(ctx context.Context, obs observer, r T) ([]Node, error) {
	visited := make([]Node, 0, len(g.order))
	seen := make(map[Node]bool, len(g.order))
	current := g.start
	for {
		if seen[current] {
			return visited, fmt.Errorf("%w: %s: %q entered twice", ErrIllegalTransition, g.name, current)
		}
		seen[current] = true
		visited = append(visited, current)

		next, err := g.step(ctx, obs, current, r)
		if err != nil {
			return visited, err
		}
		if current == g.terminal {
			return visited, nil
		}
		if !g.allows(current, next) {
			return visited, fmt.Errorf("%w: %s: %q -> %q", ErrIllegalTransition, g.name, current, next)
		}
		current = next
	}
}

func (g *graph[T]) step(ctx context.Context, obs observer, n Node, r T) (Node, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	obs.logger.Debug("node entered", zap.String("graph", g.name), zap.String("node", string(n)))
	ctx, span := obs.tracer.Start(ctx, g.name+"."+string(n), trace.WithAttributes(
		attribute.String("graph", g.name),
		attribute.String("node", string(n)),
	))
	defer span.End()

	next, err := g.steps[n](ctx, r)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	if next != "" {
		span.SetAttributes(attribute.String("next", string(next)))
	}
	return next, nil
}

func (g *graph[T]) allows(from, to Node) bool {
	for _, n := range g.edges[from] {
		if n == to {
			return true
		}
	}
	return false
}
