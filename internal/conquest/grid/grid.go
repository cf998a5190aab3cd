// Package grid 把地理坐标映射为离散格子编号与四邻域。
//
// 格子以行列整数索引为准：row = round(lat/size)，col = round(lng/size)。
// 编号由格子中心坐标格式化而来，因此可以反解回坐标；相邻判断只比较整数索引，不受浮点误差影响。
// 经度方向首尾相接（±180° 是同一列），纬度方向到两极为止，极点格没有更外侧的邻居。
package grid

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// DefaultCellSize 约 300~400 米（赤道附近），一个街区大小。
const DefaultCellSize = 0.003

var ErrBadCellID = errors.New("grid: malformed cell id")

type Coord struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Cell 是格子的整数索引。
type Cell struct {
	Row int64
	Col int64
}

type Grid struct {
	size     float64
	decimals int
	cols     int64 // 一圈经度的列数
	rowLimit int64 // 行索引取值 [-rowLimit, rowLimit]
}

func New(cellSize float64) Grid {
	if cellSize <= 0 || math.IsNaN(cellSize) || math.IsInf(cellSize, 0) {
		cellSize = DefaultCellSize
	}
	decimals := int(math.Ceil(-math.Log10(cellSize))) + 1
	if decimals < 4 {
		decimals = 4
	}
	cols := int64(math.Round(360 / cellSize))
	if cols < 1 {
		cols = 1
	}
	rowLimit := int64(math.Floor(90/cellSize + 1e-9))
	return Grid{size: cellSize, decimals: decimals, cols: cols, rowLimit: rowLimit}
}

func (g Grid) CellSize() float64 {
	return g.size
}

func (g Grid) index(coord float64) int64 {
	return int64(math.Round(coord / g.size))
}

// Snap 把坐标吸附到最近的格子中心。
func (g Grid) Snap(coord float64) float64 {
	return float64(g.index(coord)) * g.size
}

func (g Grid) CellOf(lat, lng float64) Cell {
	return g.normalize(Cell{Row: g.index(lat), Col: g.index(lng)})
}

// normalize 把列折回 [-cols/2, cols-cols/2) 区间，行夹到两极之内。
func (g Grid) normalize(c Cell) Cell {
	half := g.cols / 2
	c.Col = ((c.Col+half)%g.cols+g.cols)%g.cols - half
	c.Row = min(max(c.Row, -g.rowLimit), g.rowLimit)
	return c
}

func (g Grid) inRows(row int64) bool {
	return row >= -g.rowLimit && row <= g.rowLimit
}

func (g Grid) Center(c Cell) Coord {
	return Coord{Lat: float64(c.Row) * g.size, Lng: float64(c.Col) * g.size}
}

// CellID 对两个轴吸附后格式化为稳定的字符串 key，例如 "-23.5500_-46.6350"。
func (g Grid) CellID(lat, lng float64) string {
	return g.IDOf(g.CellOf(lat, lng))
}

func (g Grid) IDOf(c Cell) string {
	center := g.Center(g.normalize(c))
	return strconv.FormatFloat(center.Lat, 'f', g.decimals, 64) + "_" +
		strconv.FormatFloat(center.Lng, 'f', g.decimals, 64)
}

// Parse 把格子编号反解为索引。
func (g Grid) Parse(id string) (Cell, error) {
	latRaw, lngRaw, ok := strings.Cut(id, "_")
	if !ok {
		return Cell{}, fmt.Errorf("%w: %q", ErrBadCellID, id)
	}
	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil {
		return Cell{}, fmt.Errorf("%w: %q", ErrBadCellID, id)
	}
	lng, err := strconv.ParseFloat(lngRaw, 64)
	if err != nil {
		return Cell{}, fmt.Errorf("%w: %q", ErrBadCellID, id)
	}
	if math.Abs(lat) > 90 || math.Abs(lng) > 180 {
		return Cell{}, fmt.Errorf("%w: out of range %q", ErrBadCellID, id)
	}
	return g.CellOf(lat, lng), nil
}

// Canonical 校验编号并返回规范写法（不同小数位写法归一）。
func (g Grid) Canonical(id string) (string, error) {
	c, err := g.Parse(id)
	if err != nil {
		return "", err
	}
	return g.IDOf(c), nil
}

// Neighbors 返回北/南/东/西的相邻格子；经度跨 ±180° 回绕，极点格少一个邻居。
func (g Grid) Neighbors(c Cell) []Cell {
	c = g.normalize(c)
	out := make([]Cell, 0, 4)
	for _, n := range [4]Cell{
		{Row: c.Row + 1, Col: c.Col},
		{Row: c.Row - 1, Col: c.Col},
		{Row: c.Row, Col: c.Col + 1},
		{Row: c.Row, Col: c.Col - 1},
	} {
		if !g.inRows(n.Row) {
			continue
		}
		n = g.normalize(n)
		if n == c || slices.Contains(out, n) {
			continue
		}
		out = append(out, n)
	}
	return out
}

func (g Grid) NeighborIDs(id string) ([]string, error) {
	c, err := g.Parse(id)
	if err != nil {
		return nil, err
	}
	ns := g.Neighbors(c)
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = g.IDOf(n)
	}
	return out, nil
}

// Around 返回以 (lat,lng) 所在格为中心、半径 radius 的正方形区域内全部格子编号。
func (g Grid) Around(lat, lng float64, radius int) []string {
	if radius < 0 {
		radius = 0
	}
	c := g.CellOf(lat, lng)
	out := make([]string, 0, (2*radius+1)*(2*radius+1))
	seen := make(map[Cell]struct{}, cap(out))
	for dr := -radius; dr <= radius; dr++ {
		row := c.Row + int64(dr)
		if !g.inRows(row) {
			continue
		}
		for dc := -radius; dc <= radius; dc++ {
			n := g.normalize(Cell{Row: row, Col: c.Col + int64(dc)})
			if _, dup := seen[n]; dup {
				continue
			}
			seen[n] = struct{}{}
			out = append(out, g.IDOf(n))
		}
	}
	return out
}

// Adjacent 四连通：恰好一个轴相差一步。
func (g Grid) Adjacent(a, b string) bool {
	ca, err := g.Parse(a)
	if err != nil {
		return false
	}
	cb, err := g.Parse(b)
	if err != nil {
		return false
	}
	return slices.Contains(g.Neighbors(ca), cb)
}
