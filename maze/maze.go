package maze

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"
)

// 迷路生成の開始セル。グリッドがこれより小さい場合は0から開始する
const seedCell = 26

var ErrGridTooSmall = errors.New("grid too small")

type Resolution struct {
	X int `json:"x"` // 列数
	Y int `json:"y"` // 行数
}

type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Edge は2つのセルを結ぶ無向の通路
type Edge struct {
	From int
	To   int
}

// Cell はグリッド上の1マス。edgesには接続された通路のインデックスが入る
type Cell struct {
	Index   int
	visited bool
	edges   []int
}

// Maze はグリッド全体を覆う全域木（完全迷路）
type Maze struct {
	Resolution Resolution
	CellSize   float64
	Cells      []*Cell
	Edges      []Edge
}

// NewLocalRand は迷路生成用の乱数生成器を作成します。
func NewLocalRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// New はcols×rowsのグリッドを作成し、迷路を生成します。
func New(cols, rows int, cellSize float64, rng *rand.Rand) (*Maze, error) {
	if cols < 1 || rows < 1 {
		return nil, fmt.Errorf("%w: %dx%d", ErrGridTooSmall, cols, rows)
	}
	m := &Maze{
		Resolution: Resolution{X: cols, Y: rows},
		CellSize:   cellSize,
		Cells:      make([]*Cell, cols*rows),
	}
	for i := range m.Cells {
		m.Cells[i] = &Cell{Index: i}
	}
	m.generate(rng)
	return m, nil
}

// Neighbors はインデックスから計算した上下左右の隣接セルを昇順で返します。
func (m *Maze) Neighbors(index int) []int {
	cols := m.Resolution.X
	total := cols * m.Resolution.Y
	neighbors := make([]int, 0, 4)

	if up := index - cols; up >= 0 {
		neighbors = append(neighbors, up)
	}
	col := index % cols
	if col != 0 {
		neighbors = append(neighbors, index-1)
	}
	if col != cols-1 {
		neighbors = append(neighbors, index+1)
	}
	if down := index + cols; down < total {
		neighbors = append(neighbors, down)
	}
	return neighbors
}

func (m *Maze) unvisitedNeighbors(c *Cell) []*Cell {
	var out []*Cell
	for _, n := range m.Neighbors(c.Index) {
		if !m.Cells[n].visited {
			out = append(out, m.Cells[n])
		}
	}
	return out
}

// generate はランダムな反復深さ優先探索で全域木を作ります。
// 未訪問の隣接セルが2つ以上あるセルだけをスタックに積み、行き止まりでポップします。
func (m *Maze) generate(rng *rand.Rand) {
	start := 0
	if len(m.Cells) > seedCell {
		start = seedCell
	}
	var stack []*Cell
	current := m.Cells[start]
	current.visited = true

	for current != nil {
		unvisited := m.unvisitedNeighbors(current)
		n := len(unvisited)
		if n > 1 {
			stack = append(stack, current)
		}
		if n == 0 {
			// 行き止まり
			if len(stack) == 0 {
				current = nil
				continue
			}
			current = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			continue
		}
		next := unvisited[rng.Intn(n)]
		m.addEdge(current, next)
		next.visited = true
		current = next
	}
}

func (m *Maze) addEdge(from, to *Cell) {
	m.Edges = append(m.Edges, Edge{From: from.Index, To: to.Index})
	idx := len(m.Edges) - 1
	from.edges = append(from.edges, idx)
	to.edges = append(to.edges, idx)
}

// Connected は通路でつながっているセルのインデックスを返します。
func (m *Maze) Connected(index int) []int {
	c := m.Cells[index]
	out := make([]int, 0, len(c.edges))
	for _, ei := range c.edges {
		e := m.Edges[ei]
		if e.From == index {
			out = append(out, e.To)
		} else {
			out = append(out, e.From)
		}
	}
	sort.Ints(out)
	return out
}

// Position はセルの中心のワールド座標（y=0）を返します。
func (m *Maze) Position(index int) Vector3 {
	cols, rows := m.Resolution.X, m.Resolution.Y
	cs := m.CellSize
	return Vector3{
		X: float64(index%cols)*cs - float64(cols)*cs/2 + cs/2,
		Z: float64(index/cols)*cs - float64(rows)*cs/2 + cs/2,
	}
}

func (m *Maze) isBorder(index int) bool {
	cols, rows := m.Resolution.X, m.Resolution.Y
	row, col := index/cols, index%cols
	return row == 0 || row == rows-1 || col == 0 || col == cols-1
}
