package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/tilt-alarm/challenge"
	"github.com/lixenwraith/tilt-alarm/maze"
)

// Each maze cell is two columns wide so the grid looks square
const cellWidth = 2

var (
	styleText   = tcell.StyleDefault
	styleWall   = tcell.StyleDefault.Foreground(tcell.ColorBlue)
	styleGoal   = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleBall   = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleAlarm  = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleStatus = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleHint   = tcell.StyleDefault.Foreground(tcell.ColorGray)
)

// Draw renders the current state and shows it
func (a *App) Draw() {
	a.screen.Clear()
	v := a.source.Snapshot()
	ringing, status := a.lines()

	row := 0
	if ringing != "" {
		a.text(0, row, styleAlarm, ringing)
		row++
	}

	switch {
	case v.State == challenge.StateIdle:
		a.text(0, row, styleText, "No alarm ringing")
		row++
	case v.Kind == challenge.KindMaze:
		row = a.drawMaze(v, row)
	case v.Kind == challenge.KindQuiz:
		row = a.drawQuiz(v, row)
	}

	if status != "" {
		a.text(0, row+1, styleStatus, status)
	}
	_, h := a.screen.Size()
	a.text(0, h-1, styleHint, hint(v))
	a.screen.Show()
}

func hint(v challenge.View) string {
	if v.State == challenge.StateActive {
		switch v.Kind {
		case challenge.KindMaze:
			return "arrows tilt, space levels the board, q quits"
		case challenge.KindQuiz:
			return "1-9 answer, q quits"
		}
	}
	return "q quits"
}

func (a *App) drawMaze(v challenge.View, top int) int {
	for y, cells := range v.Maze {
		for x, c := range cells {
			r, style := ' ', styleText
			switch maze.Cell(c) {
			case maze.Wall:
				r, style = '█', styleWall
			case maze.Goal:
				r, style = '▒', styleGoal
			}
			sx := x * cellWidth
			a.screen.SetContent(sx, top+y, r, nil, style)
			a.screen.SetContent(sx+1, top+y, r, nil, style)
		}
	}
	a.screen.SetContent(v.BallCell.X*cellWidth, top+v.BallCell.Y, '●', nil, styleBall)
	row := top + len(v.Maze)
	a.text(0, row, styleText, fmt.Sprintf("Roll the ball to the goal  steps %d", v.Steps))
	return row + 1
}

func (a *App) drawQuiz(v challenge.View, top int) int {
	a.text(0, top, styleText, fmt.Sprintf("Streak %d/%d", v.Streak, v.Required))
	a.text(0, top+2, styleText, v.Prompt)
	row := top + 3
	for i, choice := range v.Choices {
		a.text(2, row, styleText, fmt.Sprintf("%d) %s", i+1, choice))
		row++
	}
	return row
}

func (a *App) text(x, y int, style tcell.Style, s string) {
	for _, r := range s {
		a.screen.SetContent(x, y, r, nil, style)
		x++
	}
}
