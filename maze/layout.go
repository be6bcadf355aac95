package maze

import (
	"fmt"
	"math/rand"
)

const exitHeight = 15.0

// Exit は出口の高さと位置
type Exit struct {
	Height   float64 `json:"height"`
	Position Vector3 `json:"position"`
}

// Layout は対戦で共有される迷路と出口、プレッシャープレートの配置
type Layout struct {
	Maze           *Maze
	Exit           Exit
	ExitCell       int
	PressurePlates []Vector3
}

// PressurePlateCount はセル数からプレート数を決めます。
func PressurePlateCount(cells int) int {
	if cells < 400 {
		return 4
	}
	return 5
}

// Generate は迷路を生成し、出口とプレッシャープレートを配置します。
func Generate(cols, rows int, cellSize float64, rng *rand.Rand) (*Layout, error) {
	plates := PressurePlateCount(cols * rows)
	// 出口と全プレートが別のセルに置けること
	if cols*rows < plates+1 {
		return nil, fmt.Errorf("%w: %dx%d cannot hold exit and %d plates", ErrGridTooSmall, cols, rows, plates)
	}
	m, err := New(cols, rows, cellSize, rng)
	if err != nil {
		return nil, err
	}

	l := &Layout{Maze: m}
	l.placeExit(rng)
	l.placePressurePlates(rng, plates)
	return l, nil
}

// placeExit は通路を持つ外周セルから一様に出口を選びます。
func (l *Layout) placeExit(rng *rand.Rand) {
	var border []int
	for _, c := range l.Maze.Cells {
		if l.Maze.isBorder(c.Index) && len(c.edges) > 0 {
			border = append(border, c.Index)
		}
	}
	cell := border[rng.Intn(len(border))]
	pos := l.Maze.Position(cell)

	l.ExitCell = cell
	l.Exit = Exit{
		Height: exitHeight,
		Position: Vector3{
			X: pos.X,
			Y: exitHeight / 2,
			Z: pos.Z,
		},
	}
}

// placePressurePlates は棄却サンプリングで重複せず出口とも重ならない位置を選びます。
func (l *Layout) placePressurePlates(rng *rand.Rand, count int) {
	cells := l.Maze.Cells
	for len(l.PressurePlates) < count {
		c := cells[rng.Intn(len(cells))]
		if len(c.edges) == 0 {
			continue
		}
		pos := l.Maze.Position(c.Index)
		if pos.X == l.Exit.Position.X && pos.Z == l.Exit.Position.Z {
			continue
		}
		duplicate := false
		for _, p := range l.PressurePlates {
			if p.X == pos.X && p.Z == pos.Z {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		l.PressurePlates = append(l.PressurePlates, pos)
	}
}

type SerializedNode struct {
	Index     int   `json:"index"`
	Neighbors []int `json:"neighbors"`
}

// Serialized はクライアントが迷路を再構築するためのJSON表現
type Serialized struct {
	Resolution              Resolution       `json:"resolution"`
	CellSize                float64          `json:"cellSize"`
	Nodes                   []SerializedNode `json:"nodes"`
	PressurePlatesPositions []Vector3        `json:"pressurePlatesPositions"`
	Exit                    Exit             `json:"exit"`
}

func (l *Layout) Serialize() Serialized {
	m := l.Maze
	nodes := make([]SerializedNode, len(m.Cells))
	for i := range m.Cells {
		nodes[i] = SerializedNode{Index: i, Neighbors: m.Connected(i)}
	}
	plates := make([]Vector3, len(l.PressurePlates))
	copy(plates, l.PressurePlates)

	return Serialized{
		Resolution:              m.Resolution,
		CellSize:                m.CellSize,
		Nodes:                   nodes,
		PressurePlatesPositions: plates,
		Exit:                    l.Exit,
	}
}
