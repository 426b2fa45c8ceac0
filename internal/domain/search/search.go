// Package search runs an exhaustive minimax over "pick fifteen" positions.
//
// A position is the interleaved list of digits picked so far, starting side
// first. Values are reported from the starting side's point of view:
// +1 is a forced win for the starting side, -1 a forced win for the second
// side and 0 a draw or an unresolved line within the depth bound.
package search

import (
	"fmt"

	"github.com/okian/fifteen/internal/domain/game"
)

// Outcome values.
const (
	StarterWins = 1
	Draw        = 0
	SecondWins  = -1
)

// Node is one position of the search tree. Children are keyed by the digit
// played to reach them. Identical positions reached through different move
// orders share the same *Node.
type Node struct {
	Value    int
	Children map[game.Choice]*Node
}

// Terminal reports whether the node has no continuation.
func (n *Node) Terminal() bool { return len(n.Children) == 0 }

type key struct {
	first, second game.Set
	depth         int
}

type searcher struct {
	memo map[key]*Node
}

// Search builds the tree below history, looking at most depth plies ahead.
// It panics if history is not a legal, non-terminal position: a caller
// asking for a move in a finished game has let an inconsistent state through.
func Search(history []game.Choice, depth int) *Node {
	first, second := split(history)
	if first.Wins() || second.Wins() {
		panic(fmt.Sprintf("search: position %v is already decided", history))
	}
	s := &searcher{memo: make(map[key]*Node)}
	return s.expand(first, second, depth)
}

// Evaluate returns the value of history without keeping the tree around.
// Unlike Search it accepts decided positions and reports their outcome.
func Evaluate(history []game.Choice, depth int) int {
	first, second := split(history)
	s := &searcher{memo: make(map[key]*Node)}
	return s.expand(first, second, depth).Value
}

// Pool lists the digits history has not used yet.
func Pool(history []game.Choice) []game.Choice {
	first, second := split(history)
	return game.Available(first, second)
}

// split separates history into the starting side's and second side's picks.
func split(history []game.Choice) (first, second game.Set) {
	for i, c := range history {
		if !c.Valid() {
			panic(fmt.Sprintf("search: digit %d out of range", c))
		}
		if first.Has(c) || second.Has(c) {
			panic(fmt.Sprintf("search: digit %d picked twice", c))
		}
		if i%2 == 0 {
			first = first.With(c)
		} else {
			second = second.With(c)
		}
	}
	return first, second
}

func (s *searcher) expand(first, second game.Set, depth int) *Node {
	k := key{first: first, second: second, depth: depth}
	if n, ok := s.memo[k]; ok {
		return n
	}

	n := &Node{}
	switch {
	case first.Wins():
		n.Value = StarterWins
	case second.Wins():
		n.Value = SecondWins
	case depth <= 0:
		n.Value = Draw
	default:
		pool := game.Available(first, second)
		if len(pool) == 0 {
			n.Value = Draw
			break
		}
		starterToAct := (first.Len()+second.Len())%2 == 0
		n.Children = make(map[game.Choice]*Node, len(pool))
		if starterToAct {
			n.Value = SecondWins
		} else {
			n.Value = StarterWins
		}
		for _, c := range pool {
			var child *Node
			if starterToAct {
				child = s.expand(first.With(c), second, depth-1)
				n.Value = max(n.Value, child.Value)
			} else {
				child = s.expand(first, second.With(c), depth-1)
				n.Value = min(n.Value, child.Value)
			}
			n.Children[c] = child
		}
	}

	s.memo[k] = n
	return n
}
